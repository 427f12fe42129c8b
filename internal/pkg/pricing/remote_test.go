package pricing

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/ManuelReschke/JobFox/app/models"
)

func TestHTTPSourceFetchTiers(t *testing.T) {
	tiers := []Tier{{ID: "starter", Name: "Starter", BasePrice: BasePrice{Monthly: 5, Yearly: 50}}}

	t.Run("bare array", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodGet, r.Method)
			assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
			_ = json.NewEncoder(w).Encode(tiers)
		}))
		defer srv.Close()

		got, err := NewHTTPSource(srv.URL, "secret", time.Second).FetchTiers(context.Background())
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "starter", got[0].ID)
	})

	t.Run("wrapped object", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Empty(t, r.Header.Get("Authorization"))
			_ = json.NewEncoder(w).Encode(map[string]any{"tiers": tiers})
		}))
		defer srv.Close()

		got, err := NewHTTPSource(srv.URL, "", time.Second).FetchTiers(context.Background())
		require.NoError(t, err)
		assert.Len(t, got, 1)
	})

	t.Run("server error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "nope", http.StatusBadGateway)
		}))
		defer srv.Close()

		_, err := NewHTTPSource(srv.URL, "", time.Second).FetchTiers(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "status=502")
	})

	t.Run("malformed body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("<html>"))
		}))
		defer srv.Close()

		_, err := NewHTTPSource(srv.URL, "", time.Second).FetchTiers(context.Background())
		assert.Error(t, err)
	})
}

func TestHTTPSourceSaveTier(t *testing.T) {
	var received Tier
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	src := NewHTTPSource(srv.URL, "", time.Second)
	require.NoError(t, src.SaveTier(context.Background(), Tier{ID: "team", Name: "Team"}))
	assert.Equal(t, "team", received.ID)
}

func TestHTTPSourceFeedsCatalog(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := NewCatalog(NewHTTPSource(srv.URL, "", time.Second))
	assert.ErrorIs(t, c.LoadRemote(context.Background()), ErrEmptyCatalog)
	assert.Len(t, c.All(), 4)
}

func resolveTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("Skipping MySQL-dependent test: TEST_DB_DSN not set")
	}
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Skipf("Skipping MySQL-dependent test: %v", err)
	}
	require.NoError(t, db.AutoMigrate(&models.PricingTier{}))
	require.NoError(t, db.Exec("DELETE FROM pricing_tiers").Error)
	return db
}

func TestGormSourceRoundTrip(t *testing.T) {
	db := resolveTestDB(t)
	src := NewGormSource(db)
	ctx := context.Background()

	require.NoError(t, src.Seed(ctx, DefaultTiers()))
	require.NoError(t, src.Seed(ctx, DefaultTiers()))

	tiers, err := src.FetchTiers(ctx)
	require.NoError(t, err)
	require.Len(t, tiers, 4)
	assert.Equal(t, "free", tiers[0].ID)

	pro := tiers[2]
	pro.BasePrice.Monthly = 24.99
	require.NoError(t, src.SaveTier(ctx, pro))
	require.NoError(t, src.SaveTier(ctx, Tier{ID: "team", Name: "Team", BasePrice: BasePrice{Monthly: 199}}))

	c := NewCatalog(src)
	require.NoError(t, c.LoadRemote(ctx))
	all := c.All()
	require.Len(t, all, 5)
	assert.Equal(t, "professional", all[2].ID)
	assert.Equal(t, 24.99, all[2].BasePrice.Monthly)
	assert.Equal(t, "team", all[4].ID)
}
