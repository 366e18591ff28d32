package location_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jrsteele09/go-tab-session/location"
	"github.com/stretchr/testify/require"
)

func TestChain_FallsBackToUnknown(t *testing.T) {
	failing := location.ProviderFunc(func(context.Context) (*location.Info, error) {
		return nil, errors.New("denied")
	})

	info := location.NewChain(0, failing, failing).Resolve(context.Background())
	require.Equal(t, location.Unknown(), info)
}

func TestChain_FirstAnswerWins(t *testing.T) {
	var secondCalled bool
	first := location.ProviderFunc(func(context.Context) (*location.Info, error) {
		return &location.Info{IP: "203.0.113.9", City: "Leeds"}, nil
	})
	second := location.ProviderFunc(func(context.Context) (*location.Info, error) {
		secondCalled = true
		return nil, nil
	})

	info := location.NewChain(0, first, second).Resolve(context.Background())
	require.Equal(t, "Leeds", info.City)
	require.False(t, secondCalled)
}

func TestChain_StepTimeout(t *testing.T) {
	slow := location.ProviderFunc(func(ctx context.Context) (*location.Info, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})

	start := time.Now()
	info := location.NewChain(20*time.Millisecond, slow).Resolve(context.Background())
	require.Equal(t, location.Unknown(), info)
	require.Less(t, time.Since(start), time.Second)
}

func TestIPLookup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ip":"198.51.100.4","city":"Lisbon","country_name":"Portugal","region":"Lisbon","timezone":"Europe/Lisbon","latitude":38.72,"longitude":-9.13}`))
	}))
	defer srv.Close()

	info, err := location.IPLookup{URL: srv.URL}.Lookup(context.Background())
	require.NoError(t, err)
	require.Equal(t, "198.51.100.4", info.IP)
	require.Equal(t, "Portugal", info.Country)
	require.NotNil(t, info.Latitude)
	require.InDelta(t, 38.72, *info.Latitude, 0.0001)
}

func TestIPLookup_ErrorPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":true,"reason":"RateLimited"}`))
	}))
	defer srv.Close()

	_, err := location.IPLookup{URL: srv.URL}.Lookup(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "RateLimited")
}

func TestCoordinates(t *testing.T) {
	t.Run("without reverse geocoding", func(t *testing.T) {
		info, err := location.Coordinates{Latitude: 51.5, Longitude: -0.12}.Lookup(context.Background())
		require.NoError(t, err)
		require.Equal(t, 51.5, *info.Latitude)
		require.Equal(t, "Unknown", info.City)
	})

	t.Run("reverse geocoded", func(t *testing.T) {
		var gotLat string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotLat = r.URL.Query().Get("lat")
			_, _ = w.Write([]byte(`{"address":{"town":"Camden","state":"England","country":"United Kingdom"}}`))
		}))
		defer srv.Close()

		info, err := location.Coordinates{Latitude: 51.5, Longitude: -0.12, ReverseURL: srv.URL}.Lookup(context.Background())
		require.NoError(t, err)
		require.Equal(t, "51.5", gotLat)
		require.Equal(t, "Camden", info.City)
		require.Equal(t, "England", info.Region)
		require.Equal(t, "United Kingdom", info.Country)
	})
}
