package storefront

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// storeNames maps CheapShark store ids to display names. The /stores
// endpoint serves the authoritative list; this covers the common ones when
// that call is skipped.
var storeNames = map[string]string{
	"1":  "Steam",
	"2":  "GamersGate",
	"3":  "GreenManGaming",
	"7":  "GOG",
	"8":  "Origin",
	"11": "Humble Store",
	"13": "Uplay",
	"15": "Fanatical",
	"21": "WinGameStore",
	"23": "GameBillet",
	"25": "Epic Games Store",
	"27": "Gamesplanet",
}

// CheapShark queries the free CheapShark deals API, which aggregates Steam,
// GOG, Epic, Humble and others. Prices are USD strings on the wire.
type CheapShark struct {
	BaseURL string
	Client  *http.Client
	Cache   *Cache
}

func NewCheapShark(cache *Cache) *CheapShark {
	return &CheapShark{
		BaseURL: "https://www.cheapshark.com/api/1.0",
		Client:  &http.Client{Timeout: 15 * time.Second},
		Cache:   cache,
	}
}

// Deal is one cross-store discount offer.
type Deal struct {
	Title          string  `json:"title"`
	Store          string  `json:"store"`
	SalePrice      float64 `json:"sale_price"`
	NormalPrice    float64 `json:"normal_price"`
	SavingsPercent float64 `json:"savings_percent"`
	SteamAppID     string  `json:"steam_appid,omitempty"`
}

type wireDeal struct {
	Title       string `json:"title"`
	StoreID     string `json:"storeID"`
	SalePrice   string `json:"salePrice"`
	NormalPrice string `json:"normalPrice"`
	Savings     string `json:"savings"`
	SteamAppID  string `json:"steamAppID"`
}

func (c *CheapShark) getJSON(ctx context.Context, cacheKey, rawURL string, out any) error {
	if b, ok := c.Cache.Get(ctx, cacheKey); ok {
		return json.Unmarshal(b, out)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	resp, err := c.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("cheapshark: status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return err
	}
	c.Cache.Set(ctx, cacheKey, body)
	return nil
}

// TopDeals returns the best current deals across all stores, sorted by deal
// rating.
func (c *CheapShark) TopDeals(ctx context.Context, limit int) ([]Deal, error) {
	if limit <= 0 || limit > 60 {
		limit = 15
	}
	u := fmt.Sprintf("%s/deals?sortBy=DealRating&pageSize=%d", c.BaseURL, limit)

	var wire []wireDeal
	if err := c.getJSON(ctx, fmt.Sprintf("cheapshark:top:%d", limit), u, &wire); err != nil {
		return nil, err
	}

	out := make([]Deal, 0, len(wire))
	for _, w := range wire {
		out = append(out, Deal{
			Title:          w.Title,
			Store:          storeName(w.StoreID),
			SalePrice:      parsePrice(w.SalePrice),
			NormalPrice:    parsePrice(w.NormalPrice),
			SavingsPercent: parsePrice(w.Savings),
			SteamAppID:     w.SteamAppID,
		})
	}
	return out, nil
}

// Store is one storefront known to the aggregator.
type Store struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

type wireStore struct {
	StoreID   string `json:"storeID"`
	StoreName string `json:"storeName"`
	IsActive  int    `json:"isActive"`
}

// Stores lists the storefronts CheapShark aggregates.
func (c *CheapShark) Stores(ctx context.Context) ([]Store, error) {
	var wire []wireStore
	if err := c.getJSON(ctx, "cheapshark:stores", c.BaseURL+"/stores", &wire); err != nil {
		return nil, err
	}
	out := make([]Store, 0, len(wire))
	for _, w := range wire {
		out = append(out, Store{
			ID:     w.StoreID,
			Name:   w.StoreName,
			Active: w.IsActive == 1,
		})
	}
	return out, nil
}

func storeName(id string) string {
	if n, ok := storeNames[id]; ok {
		return n
	}
	return "Store #" + id
}

func parsePrice(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
