package storefront

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Steam talks to the public Steam Store API (no key required for these
// endpoints). Prices arrive in minor units (cents); this client converts to
// major units at the boundary so nothing downstream deals with cents.
type Steam struct {
	BaseURL string
	Country string
	Lang    string
	Client  *http.Client
	Cache   *Cache
}

func NewSteam(cache *Cache) *Steam {
	return &Steam{
		BaseURL: "https://store.steampowered.com/api",
		Country: "US",
		Lang:    "english",
		Client:  &http.Client{Timeout: 15 * time.Second},
		Cache:   cache,
	}
}

// SearchResult is one storesearch hit.
type SearchResult struct {
	AppID    int      `json:"appid"`
	Name     string   `json:"name"`
	Price    *float64 `json:"price,omitempty"`
	Currency string   `json:"currency,omitempty"`
}

// AppDetails is the price-relevant slice of an appdetails response.
type AppDetails struct {
	AppID           string   `json:"appid"`
	Name            string   `json:"name"`
	IsFree          bool     `json:"is_free"`
	Currency        string   `json:"currency,omitempty"`
	InitialPrice    *float64 `json:"initial_price,omitempty"`
	FinalPrice      *float64 `json:"final_price,omitempty"`
	DiscountPercent float64  `json:"discount_percent"`
}

// Special is one discounted item from the featured-categories feed.
type Special struct {
	AppID           int      `json:"appid"`
	Name            string   `json:"name"`
	DiscountPercent float64  `json:"discount_percent"`
	OriginalPrice   *float64 `json:"original_price,omitempty"`
	FinalPrice      *float64 `json:"final_price,omitempty"`
	Currency        string   `json:"currency"`
}

func (s *Steam) getJSON(ctx context.Context, cacheKey, rawURL string, out any) error {
	if b, ok := s.Cache.Get(ctx, cacheKey); ok {
		return json.Unmarshal(b, out)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	resp, err := s.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("steam: status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return err
	}
	s.Cache.Set(ctx, cacheKey, body)
	return nil
}

// Search resolves a title against the storesearch endpoint.
func (s *Steam) Search(ctx context.Context, term string, limit int) ([]SearchResult, error) {
	if limit <= 0 || limit > 25 {
		limit = 10
	}
	u := fmt.Sprintf("%s/storesearch/?term=%s&l=%s&cc=%s",
		s.BaseURL, url.QueryEscape(term), s.Lang, s.Country)

	var decoded struct {
		Items []struct {
			ID    int    `json:"id"`
			Name  string `json:"name"`
			Price *struct {
				Currency string  `json:"currency"`
				Final    float64 `json:"final"`
			} `json:"price"`
		} `json:"items"`
	}
	if err := s.getJSON(ctx, "steam:search:"+term, u, &decoded); err != nil {
		return nil, err
	}

	items := decoded.Items
	if len(items) > limit {
		items = items[:limit]
	}
	out := make([]SearchResult, 0, len(items))
	for _, it := range items {
		r := SearchResult{AppID: it.ID, Name: it.Name}
		if it.Price != nil {
			p := it.Price.Final / 100
			r.Price = &p
			r.Currency = it.Price.Currency
		}
		out = append(out, r)
	}
	return out, nil
}

// AppDetails fetches price details for one app id. A missing or delisted
// app yields (nil, nil).
func (s *Steam) AppDetails(ctx context.Context, appID string) (*AppDetails, error) {
	u := fmt.Sprintf("%s/appdetails?appids=%s&cc=%s&l=%s",
		s.BaseURL, url.QueryEscape(appID), s.Country, s.Lang)

	var decoded map[string]struct {
		Success bool `json:"success"`
		Data    struct {
			Name          string `json:"name"`
			IsFree        bool   `json:"is_free"`
			PriceOverview *struct {
				Currency        string  `json:"currency"`
				Initial         float64 `json:"initial"`
				Final           float64 `json:"final"`
				DiscountPercent float64 `json:"discount_percent"`
			} `json:"price_overview"`
		} `json:"data"`
	}
	if err := s.getJSON(ctx, "steam:app:"+appID, u, &decoded); err != nil {
		return nil, err
	}

	entry, ok := decoded[appID]
	if !ok || !entry.Success {
		return nil, nil
	}
	d := &AppDetails{AppID: appID, Name: entry.Data.Name, IsFree: entry.Data.IsFree}
	if po := entry.Data.PriceOverview; po != nil {
		initial := po.Initial / 100
		final := po.Final / 100
		d.Currency = po.Currency
		d.InitialPrice = &initial
		d.FinalPrice = &final
		d.DiscountPercent = po.DiscountPercent
	}
	return d, nil
}

// Specials lists the current Steam discount carousel.
func (s *Steam) Specials(ctx context.Context, limit int) ([]Special, error) {
	if limit <= 0 || limit > 50 {
		limit = 20
	}
	u := fmt.Sprintf("%s/featuredcategories?cc=%s&l=%s", s.BaseURL, s.Country, s.Lang)

	var decoded struct {
		Specials struct {
			Items []struct {
				ID              int     `json:"id"`
				Name            string  `json:"name"`
				DiscountPercent float64 `json:"discount_percent"`
				OriginalPrice   float64 `json:"original_price"`
				FinalPrice      float64 `json:"final_price"`
				Currency        string  `json:"currency"`
			} `json:"items"`
		} `json:"specials"`
	}
	if err := s.getJSON(ctx, "steam:specials", u, &decoded); err != nil {
		return nil, err
	}

	items := decoded.Specials.Items
	if len(items) > limit {
		items = items[:limit]
	}
	out := make([]Special, 0, len(items))
	for _, it := range items {
		orig := it.OriginalPrice / 100
		final := it.FinalPrice / 100
		out = append(out, Special{
			AppID:           it.ID,
			Name:            it.Name,
			DiscountPercent: it.DiscountPercent,
			OriginalPrice:   &orig,
			FinalPrice:      &final,
			Currency:        it.Currency,
		})
	}
	return out, nil
}
