package tibber

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const DefaultAPIURL = "https://api.tibber.com/v1-beta/gql"

var httpClient = &http.Client{
	Timeout: time.Second * 30,
}

type Client struct {
	URL       string
	UserAgent string

	token string
}

func NewClient(token string) *Client {
	return &Client{
		URL:       DefaultAPIURL,
		UserAgent: "hemel-optimizer",
		token:     token,
	}
}

type graphqlRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables,omitempty"`
}

type graphqlError struct {
	Message string `json:"message"`
}

func (c *Client) query(ctx context.Context, query string, variables map[string]interface{}, out interface{}) error {
	body, err := json.Marshal(graphqlRequest{Query: query, Variables: variables})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("User-Agent", c.UserAgent)

	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("error querying tibber StatusCode: %d", resp.StatusCode)
	}

	response := struct {
		Data   json.RawMessage `json:"data"`
		Errors []graphqlError  `json:"errors"`
	}{}
	err = json.NewDecoder(resp.Body).Decode(&response)
	if err != nil {
		return err
	}
	if len(response.Errors) > 0 {
		return fmt.Errorf("tibber query error: %s", response.Errors[0].Message)
	}
	return json.Unmarshal(response.Data, out)
}

const viewerQuery = `{
  viewer {
    name
    websocketSubscriptionUrl
    homes {
      id
      appNickname
    }
  }
}`

func (c *Client) Viewer(ctx context.Context) (*Viewer, error) {
	out := struct {
		Viewer Viewer `json:"viewer"`
	}{}
	err := c.query(ctx, viewerQuery, nil, &out)
	if err != nil {
		return nil, err
	}
	return &out.Viewer, nil
}

const consumptionQuery = `query ($homeId: ID!, $first: Int, $last: Int, $after: String) {
  viewer {
    home(id: $homeId) {
      consumption(resolution: HOURLY, first: $first, last: $last, after: $after) {
        nodes {
          from
          to
          consumption
          unitPrice
          cost
        }
      }
    }
  }
}`

type consumptionResponse struct {
	Viewer struct {
		Home struct {
			Consumption struct {
				Nodes []ConsumptionNode `json:"nodes"`
			} `json:"consumption"`
		} `json:"home"`
	} `json:"viewer"`
}

// HourlyConsumption fetches the most recent hours of consumption data.
func (c *Client) HourlyConsumption(ctx context.Context, homeID string, hours int) ([]ConsumptionNode, error) {
	out := consumptionResponse{}
	err := c.query(ctx, consumptionQuery, map[string]interface{}{
		"homeId": homeID,
		"last":   hours,
	}, &out)
	if err != nil {
		return nil, err
	}
	return out.Viewer.Home.Consumption.Nodes, nil
}

// HourlyConsumptionFrom fetches consumption data starting at the given
// time, using the opaque cursor encoding the API expects.
func (c *Client) HourlyConsumptionFrom(ctx context.Context, homeID string, start time.Time, hours int) ([]ConsumptionNode, error) {
	out := consumptionResponse{}
	err := c.query(ctx, consumptionQuery, map[string]interface{}{
		"homeId": homeID,
		"first":  hours,
		"after":  base64.StdEncoding.EncodeToString([]byte(start.Format(time.RFC3339))),
	}, &out)
	if err != nil {
		return nil, err
	}
	return out.Viewer.Home.Consumption.Nodes, nil
}
