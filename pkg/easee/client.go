package easee

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const DefaultAPIURL = "https://api.easee.com/api"

// ErrTokenExpired is returned on 401 responses. Easee access tokens
// only live for a few hours; callers should refresh and retry.
var ErrTokenExpired = errors.New("easee access token expired")

var httpClient = &http.Client{
	Timeout: time.Second * 10,
}

type Client struct {
	URL string

	accessToken string
}

func NewClient(accessToken string) *Client {
	return &Client{
		URL:         DefaultAPIURL,
		accessToken: accessToken,
	}
}

type Tokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int    `json:"expiresIn"`
}

// Login exchanges account credentials for an access + refresh token pair.
func Login(ctx context.Context, apiURL, userName, password string) (*Tokens, error) {
	body, err := json.Marshal(map[string]string{
		"userName": userName,
		"password": password,
	})
	if err != nil {
		return nil, err
	}
	return postTokenRequest(ctx, apiURL+"/accounts/login", body)
}

// RefreshTokens trades the current access + refresh token pair for a
// fresh one and starts using the new access token.
func (c *Client) RefreshTokens(ctx context.Context, refreshToken string) (*Tokens, error) {
	body, err := json.Marshal(map[string]string{
		"accessToken":  c.accessToken,
		"refreshToken": refreshToken,
	})
	if err != nil {
		return nil, err
	}
	tokens, err := postTokenRequest(ctx, c.URL+"/accounts/refresh_token", body)
	if err != nil {
		return nil, err
	}
	c.accessToken = tokens.AccessToken
	return tokens, nil
}

func postTokenRequest(ctx context.Context, u string, body []byte) (*Tokens, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/*+json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("error fetching easee tokens StatusCode: %d", resp.StatusCode)
	}
	tokens := &Tokens{}
	err = json.NewDecoder(resp.Body).Decode(tokens)
	return tokens, err
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrTokenExpired
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("error fetching %s StatusCode: %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

type Charger struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (c *Client) Chargers(ctx context.Context) ([]Charger, error) {
	var chargers []Charger
	err := c.get(ctx, "/chargers", &chargers)
	return chargers, err
}

// HourlyEnergy is one hour of charger energy in kWh.
type HourlyEnergy struct {
	Date        time.Time `json:"date"`
	Consumption float64   `json:"consumption"`
}

// HourlyEnergy fetches the lifetime energy series for one charger
// between two instants, inclusive from and exclusive to.
func (c *Client) HourlyEnergy(ctx context.Context, chargerID string, from, to time.Time) ([]HourlyEnergy, error) {
	path := fmt.Sprintf("/chargers/lifetime-energy/%s/hourly?from=%s&to=%s",
		url.PathEscape(chargerID),
		url.QueryEscape(from.UTC().Format(time.RFC3339)),
		url.QueryEscape(to.UTC().Format(time.RFC3339)))
	var hours []HourlyEnergy
	err := c.get(ctx, path, &hours)
	return hours, err
}
