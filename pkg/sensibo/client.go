package sensibo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const DefaultAPIURL = "https://home.sensibo.com/api/v2"

var httpClient = &http.Client{
	Timeout: time.Second * 10,
}

type Client struct {
	URL string

	apiKey string
}

func NewClient(apiKey string) *Client {
	return &Client{
		URL:    DefaultAPIURL,
		apiKey: apiKey,
	}
}

type apiResponse struct {
	Status string          `json:"status"`
	Result json.RawMessage `json:"result"`
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	u := c.URL + path
	if len(u) > 0 {
		sep := "?"
		if parsed, err := url.Parse(u); err == nil && parsed.RawQuery != "" {
			sep = "&"
		}
		u += sep + "apiKey=" + url.QueryEscape(c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("error calling %s %s StatusCode: %d", method, path, resp.StatusCode)
	}

	response := apiResponse{}
	err = json.NewDecoder(resp.Body).Decode(&response)
	if err != nil {
		return err
	}
	if response.Status != "success" {
		return fmt.Errorf("sensibo call %s failed with status %q", path, response.Status)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(response.Result, out)
}

// Devices returns pod uids keyed by room name.
func (c *Client) Devices(ctx context.Context) (map[string]string, error) {
	var pods []struct {
		ID   string `json:"id"`
		Room struct {
			Name string `json:"name"`
		} `json:"room"`
	}
	err := c.do(ctx, http.MethodGet, "/users/me/pods?fields=id,room", nil, &pods)
	if err != nil {
		return nil, err
	}
	devices := make(map[string]string, len(pods))
	for _, pod := range pods {
		devices[pod.Room.Name] = pod.ID
	}
	return devices, nil
}

type Measurement struct {
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
}

// Measurement returns the latest pod sensor sample.
func (c *Client) Measurement(ctx context.Context, uid string) (*Measurement, error) {
	var measurements []Measurement
	err := c.do(ctx, http.MethodGet, "/pods/"+url.PathEscape(uid)+"/measurements", nil, &measurements)
	if err != nil {
		return nil, err
	}
	if len(measurements) == 0 {
		return nil, fmt.Errorf("no measurements for pod %s", uid)
	}
	return &measurements[0], nil
}

// SetACProperty changes a single AC state property, the way the pod
// remote would.
func (c *Client) SetACProperty(ctx context.Context, uid, property string, value interface{}) error {
	body := map[string]interface{}{"newValue": value}
	return c.do(ctx, http.MethodPatch, "/pods/"+url.PathEscape(uid)+"/acStates/"+url.PathEscape(property), body, nil)
}
