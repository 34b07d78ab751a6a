package maps

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"GoldEater/internal/domain/model"
)

var anchor = model.LatLng{Lat: -33.885, Lng: 151.215}

func newPlacesServer(t *testing.T, search, details string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var detailCalls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "test-key", q.Get("key"))
		switch r.URL.Path {
		case "/textsearch/json":
			assert.Equal(t, "Bistro X", q.Get("query"))
			assert.Equal(t, "-33.885,151.215", q.Get("location"))
			assert.Equal(t, "500", q.Get("radius"))
			assert.Equal(t, "restaurant", q.Get("type"))
			_, _ = io.WriteString(w, search)
		case "/details/json":
			detailCalls.Add(1)
			assert.Equal(t, "place-1", q.Get("place_id"))
			_, _ = io.WriteString(w, details)
		default:
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
	}))
	t.Cleanup(server.Close)
	return server, &detailCalls
}

const bistroSearch = `{
  "status": "OK",
  "results": [
    {
      "place_id": "place-1",
      "name": "Bistro X Surry Hills",
      "formatted_address": "1 Crown St, Surry Hills NSW 2010",
      "types": ["restaurant", "food", "point_of_interest"],
      "price_level": 3,
      "geometry": {"location": {"lat": -33.8841, "lng": 151.2132}}
    },
    {"place_id": "place-2", "name": "Other"}
  ]
}`

func TestGooglePlacesProvider_Resolve(t *testing.T) {
	server, detailCalls := newPlacesServer(t, bistroSearch,
		`{"status": "OK", "result": {"types": ["french_restaurant", "restaurant"]}}`)

	p := NewGooglePlacesProvider(PlacesOptions{
		APIKey:      "test-key",
		BaseURL:     server.URL,
		CellIndexer: func(model.LatLng) string { return "8abe0e35a4a7fff" },
	})

	b, err := p.Resolve(context.Background(), "Bistro X", anchor)
	require.NoError(t, err)

	assert.Equal(t, "place-1", b.GooglePlaceID)
	assert.Equal(t, "Bistro X Surry Hills", b.OfficialName)
	assert.Equal(t, "1 Crown St, Surry Hills NSW 2010", b.Address)
	assert.Equal(t, -33.8841, b.Lat)
	assert.Equal(t, "8abe0e35a4a7fff", b.H3Index)
	require.NotNil(t, b.PriceRange)
	assert.Equal(t, "$$$", *b.PriceRange)
	require.NotNil(t, b.Cuisine)
	assert.Equal(t, "French", *b.Cuisine)
	require.NotNil(t, b.Category)
	assert.Equal(t, "restaurant", *b.Category)
	assert.Equal(t, int32(1), detailCalls.Load())
}

func TestGooglePlacesProvider_DetailsFailureStillResolves(t *testing.T) {
	server, _ := newPlacesServer(t, bistroSearch, `{"status": "INVALID_REQUEST"}`)
	p := NewGooglePlacesProvider(PlacesOptions{APIKey: "test-key", BaseURL: server.URL})

	b, err := p.Resolve(context.Background(), "Bistro X", anchor)
	require.NoError(t, err)
	assert.Nil(t, b.Cuisine)
	assert.Equal(t, "place-1", b.GooglePlaceID)
}

func TestGooglePlacesProvider_NotFound(t *testing.T) {
	server, detailCalls := newPlacesServer(t, `{"status": "ZERO_RESULTS", "results": []}`, "")
	p := NewGooglePlacesProvider(PlacesOptions{APIKey: "test-key", BaseURL: server.URL})

	_, err := p.Resolve(context.Background(), "Bistro X", anchor)
	assert.ErrorIs(t, err, model.ErrPlaceNotFound)
	assert.Zero(t, detailCalls.Load())
}

func TestGooglePlacesProvider_StatusErrors(t *testing.T) {
	tests := []struct {
		status    string
		transient bool
	}{
		{"OVER_QUERY_LIMIT", true},
		{"UNKNOWN_ERROR", true},
		{"REQUEST_DENIED", false},
		{"INVALID_REQUEST", false},
	}

	for _, tc := range tests {
		t.Run(tc.status, func(t *testing.T) {
			server, _ := newPlacesServer(t, `{"status": "`+tc.status+`"}`, "")
			p := NewGooglePlacesProvider(PlacesOptions{APIKey: "test-key", BaseURL: server.URL})

			_, err := p.Resolve(context.Background(), "Bistro X", anchor)
			var pe *model.ProviderError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, tc.transient, pe.IsTransient())
		})
	}
}

func TestGooglePlacesProvider_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	p := NewGooglePlacesProvider(PlacesOptions{APIKey: "test-key", BaseURL: server.URL})
	_, err := p.Resolve(context.Background(), "Bistro X", anchor)

	assert.True(t, model.IsTransientError(err))
}

func TestPriceLevelToRange(t *testing.T) {
	level := func(n int) *int { return &n }

	assert.Nil(t, priceLevelToRange(nil))
	assert.Nil(t, priceLevelToRange(level(0)))
	assert.Nil(t, priceLevelToRange(level(5)))
	assert.Equal(t, "$", *priceLevelToRange(level(1)))
	assert.Equal(t, "$$$$", *priceLevelToRange(level(4)))
}
