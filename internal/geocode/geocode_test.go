package geocode

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoordinatesReturnsFirstResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "20 W 34th St, New York, NY 10001", r.URL.Query().Get("address"))
		assert.Equal(t, "maps-key", r.URL.Query().Get("key"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"OK","results":[
			{"geometry":{"location":{"lat":40.7484405,"lng":-73.9878584}}},
			{"geometry":{"location":{"lat":1,"lng":2}}}
		]}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "maps-key", time.Second)
	loc, err := client.Coordinates(context.Background(), "20 W 34th St, New York, NY 10001")
	require.NoError(t, err)
	assert.InDelta(t, 40.7484405, loc.Lat, 1e-9)
	assert.InDelta(t, -73.9878584, loc.Lng, 1e-9)
}

func TestCoordinatesZeroResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"ZERO_RESULTS","results":[]}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "k", time.Second).Coordinates(context.Background(), "nowhere")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCoordinatesProviderFailures(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"denied": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"status":"REQUEST_DENIED","error_message":"bad key"}`))
		},
		"server error": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		},
		"garbage": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`<html>`))
		},
	}
	for name, handler := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(handler)
			defer srv.Close()

			_, err := NewClient(srv.URL, "k", time.Second).Coordinates(context.Background(), "x")
			assert.True(t, errors.Is(err, ErrUpstream), "got %v", err)
		})
	}
}

func TestCoordinatesHonoursTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "k", 50*time.Millisecond).Coordinates(context.Background(), "x")
	assert.ErrorIs(t, err, ErrUpstream)
}
