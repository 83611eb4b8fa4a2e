package storefront

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSteamServer(t *testing.T, handler http.HandlerFunc) *Steam {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	s := NewSteam(nil)
	s.BaseURL = srv.URL
	return s
}

func TestSteamSearch_ConvertsCents(t *testing.T) {
	s := newSteamServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/storesearch/", r.URL.Path)
		require.Equal(t, "celeste", r.URL.Query().Get("term"))
		w.Write([]byte(`{"items":[
			{"id":504230,"name":"Celeste","price":{"currency":"USD","final":1999}},
			{"id":504231,"name":"Celeste OST"}
		]}`))
	})

	results, err := s.Search(context.Background(), "celeste", 10)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, 504230, results[0].AppID)
	require.NotNil(t, results[0].Price)
	assert.Equal(t, 19.99, *results[0].Price)
	assert.Equal(t, "USD", results[0].Currency)

	// Unpriced entries stay unpriced instead of becoming 0.00.
	assert.Nil(t, results[1].Price)
}

func TestSteamAppDetails(t *testing.T) {
	s := newSteamServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/appdetails", r.URL.Path)
		w.Write([]byte(`{"504230":{"success":true,"data":{
			"name":"Celeste","is_free":false,
			"price_overview":{"currency":"USD","initial":1999,"final":999,"discount_percent":50}
		}}}`))
	})

	d, err := s.AppDetails(context.Background(), "504230")
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, "Celeste", d.Name)
	assert.Equal(t, 19.99, *d.InitialPrice)
	assert.Equal(t, 9.99, *d.FinalPrice)
	assert.Equal(t, 50.0, d.DiscountPercent)
}

func TestSteamAppDetails_MissingApp(t *testing.T) {
	s := newSteamServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"999":{"success":false}}`))
	})

	d, err := s.AppDetails(context.Background(), "999")
	require.NoError(t, err)
	assert.Nil(t, d)
}

func TestSteamSpecials(t *testing.T) {
	s := newSteamServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/featuredcategories", r.URL.Path)
		w.Write([]byte(`{"specials":{"items":[
			{"id":1,"name":"A","discount_percent":75,"original_price":4000,"final_price":1000,"currency":"USD"},
			{"id":2,"name":"B","discount_percent":50,"original_price":2000,"final_price":1000,"currency":"USD"}
		]}}`))
	})

	specials, err := s.Specials(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, specials, 1)
	assert.Equal(t, "A", specials[0].Name)
	assert.Equal(t, 40.0, *specials[0].OriginalPrice)
	assert.Equal(t, 10.0, *specials[0].FinalPrice)
}

func TestSteam_Non200IsError(t *testing.T) {
	s := newSteamServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	_, err := s.Search(context.Background(), "celeste", 10)
	require.Error(t, err)
}
