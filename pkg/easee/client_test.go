package easee

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestChargers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chargers", r.URL.Path)
		assert.Equal(t, "Bearer token123", r.Header.Get("Authorization"))
		w.Write([]byte(`[{"id":"EHVZ2792","name":"Garage"}]`))
	}))
	defer srv.Close()

	c := NewClient("token123")
	c.URL = srv.URL

	chargers, err := c.Chargers(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, []Charger{{ID: "EHVZ2792", Name: "Garage"}}, chargers)
}

func TestHourlyEnergy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chargers/lifetime-energy/EHVZ2792/hourly", r.URL.Path)
		assert.Equal(t, "2025-08-31T22:00:00Z", r.URL.Query().Get("from"))
		w.Write([]byte(`[
			{"date":"2025-08-31T22:00:00+00:00","consumption":0},
			{"date":"2025-08-31T23:00:00+00:00","consumption":7.3}
		]`))
	}))
	defer srv.Close()

	c := NewClient("token123")
	c.URL = srv.URL

	loc := time.FixedZone("CEST", 2*3600)
	from := time.Date(2025, 9, 1, 0, 0, 0, 0, loc)
	hours, err := c.HourlyEnergy(context.Background(), "EHVZ2792", from, from.Add(24*time.Hour))
	assert.NoError(t, err)
	assert.Len(t, hours, 2)
	assert.Equal(t, 7.3, hours[1].Consumption)
}

func TestHourlyEnergyTokenExpired(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient("expired")
	c.URL = srv.URL

	_, err := c.HourlyEnergy(context.Background(), "EHVZ2792", time.Now().Add(-time.Hour), time.Now())
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestRefreshTokens(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/accounts/refresh_token", r.URL.Path)
		body := map[string]string{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "old-access", body["accessToken"])
		assert.Equal(t, "old-refresh", body["refreshToken"])
		w.Write([]byte(`{"accessToken":"new-access","refreshToken":"new-refresh","expiresIn":86400}`))
	}))
	defer srv.Close()

	c := NewClient("old-access")
	c.URL = srv.URL

	tokens, err := c.RefreshTokens(context.Background(), "old-refresh")
	assert.NoError(t, err)
	assert.Equal(t, "new-access", tokens.AccessToken)
	assert.Equal(t, "new-access", c.accessToken)
	assert.Equal(t, 86400, tokens.ExpiresIn)
}

func TestLogin(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/accounts/login", r.URL.Path)
		assert.Equal(t, "application/*+json", r.Header.Get("Content-Type"))
		w.Write([]byte(`{"accessToken":"a","refreshToken":"r","expiresIn":3600}`))
	}))
	defer srv.Close()

	tokens, err := Login(context.Background(), srv.URL, "user@example.com", "pass")
	assert.NoError(t, err)
	assert.Equal(t, "a", tokens.AccessToken)
}
