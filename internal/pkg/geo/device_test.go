package geo

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newReverseServer(t *testing.T, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "6.5244", r.URL.Query().Get("latitude"))
		assert.Equal(t, "3.3792", r.URL.Query().Get("longitude"))
		_, _ = w.Write([]byte(`{"countryCode":"NG","countryName":"Nigeria (the)"}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

var lagos = Coordinates{Latitude: 6.5244, Longitude: 3.3792}

func TestDeviceStrategyResolvesCoordinates(t *testing.T) {
	var hits atomic.Int32
	srv := newReverseServer(t, &hits)

	s := DeviceStrategy(NewReverseGeocoder(srv.URL, time.Second), time.Second)
	loc, ok := s.Resolve(context.Background(), Signals{Coordinates: StaticCoordinates(lagos)})

	require.True(t, ok)
	assert.Equal(t, "NG", loc.CountryCode)
	assert.Equal(t, "NGN", loc.Currency)
	assert.Equal(t, "Nigeria (the)", loc.Country)
	assert.EqualValues(t, 1, hits.Load())
}

func TestDeviceStrategyDeclinesSilently(t *testing.T) {
	var hits atomic.Int32
	srv := newReverseServer(t, &hits)
	g := NewReverseGeocoder(srv.URL, time.Second)

	tests := []struct {
		name string
		src  CoordinateSource
	}{
		{"no source", nil},
		{"permission denied", func(context.Context) (Coordinates, error) { return Coordinates{}, errors.New("denied") }},
		{"no fix", func(context.Context) (Coordinates, error) { return Coordinates{}, ErrNoCoordinates }},
		{"out of range", StaticCoordinates(Coordinates{Latitude: 123, Longitude: 0})},
		{"panics", func(context.Context) (Coordinates, error) { panic("gps driver") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := DeviceStrategy(g, time.Second).Resolve(context.Background(), Signals{Coordinates: tt.src})
			assert.False(t, ok)
		})
	}
	assert.EqualValues(t, 0, hits.Load())
}

func TestDeviceStrategyTimesOut(t *testing.T) {
	var hits atomic.Int32
	srv := newReverseServer(t, &hits)

	never := func(context.Context) (Coordinates, error) {
		time.Sleep(time.Second)
		return lagos, nil
	}
	start := time.Now()
	_, ok := DeviceStrategy(NewReverseGeocoder(srv.URL, time.Second), 50*time.Millisecond).
		Resolve(context.Background(), Signals{Coordinates: never})

	assert.False(t, ok)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.EqualValues(t, 0, hits.Load())
}

func TestReverseGeocoderErrors(t *testing.T) {
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"countryCode":""}`))
	}))
	defer bad.Close()
	_, _, err := NewReverseGeocoder(bad.URL, time.Second).Lookup(context.Background(), lagos)
	assert.Error(t, err)

	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer down.Close()
	_, _, err = NewReverseGeocoder(down.URL, time.Second).Lookup(context.Background(), lagos)
	assert.Error(t, err)
}
