package tibber

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// Pulse settings are only reachable through the phone app API, not the
// public developer API, so the app client logs in with credentials.
const (
	DefaultAppLoginURL = "https://app.tibber.com/login.credentials"
	DefaultAppGQLURL   = "https://app.tibber.com/v4/gql"
)

// tokens are valid three hours, refresh well before that
var appTokenMaxAge = time.Hour

const setPulseSettingsMutation = `mutation SetPulseSettings($homeId: String!, $deviceId: String!, $settings: [SettingsItemInput!]!) {
  me {
    home(id: $homeId) {
      pulse(id: $deviceId) {
        setSettings(settings: $settings) {
          id
        }
      }
    }
  }
}`

// AppClient calls the app API on behalf of a tibber account. The
// login token is fetched lazily and refreshed when it ages out.
type AppClient struct {
	LoginURL string
	URL      string

	email    string
	password string

	mutex     sync.Mutex
	token     string
	fetchedAt time.Time
	now       func() time.Time
}

func NewAppClient(email, password string) *AppClient {
	return &AppClient{
		LoginURL: DefaultAppLoginURL,
		URL:      DefaultAppGQLURL,
		email:    email,
		password: password,
		now:      time.Now,
	}
}

func (c *AppClient) ensureToken(ctx context.Context) (string, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.token != "" && c.now().Sub(c.fetchedAt) < appTokenMaxAge {
		return c.token, nil
	}

	form := url.Values{}
	form.Set("email", c.email)
	form.Set("password", c.password)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.LoginURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("tibber app login failed StatusCode: %d", resp.StatusCode)
	}

	login := struct {
		Token string `json:"token"`
	}{}
	err = json.NewDecoder(resp.Body).Decode(&login)
	if err != nil {
		return "", err
	}
	c.token = login.Token
	c.fetchedAt = c.now()
	return c.token, nil
}

// SetHourlyConsumptionLimit sets the pulse hourlyConsumptionLimit
// setting in kWh.
func (c *AppClient) SetHourlyConsumptionLimit(ctx context.Context, homeID, deviceID string, kwh float64) error {
	token, err := c.ensureToken(ctx)
	if err != nil {
		return err
	}

	body, err := json.Marshal(graphqlRequest{
		Query: setPulseSettingsMutation,
		Variables: map[string]interface{}{
			"homeId":   homeID,
			"deviceId": deviceID,
			"settings": []map[string]string{
				{"key": "hourlyConsumptionLimit", "value": fmt.Sprintf("%.2f", kwh)},
			},
		},
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, strings.NewReader(string(body)))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", token)

	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("error setting pulse settings StatusCode: %d", resp.StatusCode)
	}

	response := struct {
		Errors []graphqlError `json:"errors"`
	}{}
	err = json.NewDecoder(resp.Body).Decode(&response)
	if err != nil {
		return err
	}
	if len(response.Errors) > 0 {
		return fmt.Errorf("tibber mutation error: %s", response.Errors[0].Message)
	}
	return nil
}
