package price

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

const DayHours = 24

// ErrNotPublished is returned when the requested day has no published
// prices yet. Day-ahead prices are normally released around 13:00 CET.
var ErrNotPublished = errors.New("prices not published")

var httpClient = &http.Client{
	Timeout: time.Second * 10,
}

// Hour is one spot price period as served by elprisetjustnu.se.
type Hour struct {
	Start     time.Time `json:"time_start"`
	End       time.Time `json:"time_end"`
	SEKPerKWh float64   `json:"SEK_per_kWh"`
	EURPerKWh float64   `json:"EUR_per_kWh"`
}

type Client struct {
	BaseURL string
	Region  string
}

func NewClient(region string) *Client {
	return &Client{
		BaseURL: "https://www.elprisetjustnu.se/api/v1/prices",
		Region:  region,
	}
}

// Day fetches the hourly spot prices for one local calendar day. The
// short DST day is padded to 24 entries so callers can index by hour.
func (c *Client) Day(ctx context.Context, day time.Time) ([]Hour, error) {
	u := fmt.Sprintf("%s/%d/%02d-%02d_%s.json", c.BaseURL, day.Year(), day.Month(), day.Day(), c.Region)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotPublished
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("error fetching prices StatusCode: %d", resp.StatusCode)
	}

	var hours []Hour
	err = json.NewDecoder(resp.Body).Decode(&hours)
	if err != nil {
		return nil, err
	}
	if len(hours) == 0 {
		return nil, ErrNotPublished
	}

	for len(hours) < DayHours { // spring DST day is one hour short
		last := hours[len(hours)-1]
		hours = append(hours, Hour{
			Start: last.End,
			End:   last.End.Add(time.Hour),
		})
	}
	return hours, nil
}

// EUR returns the day as an hour indexed EUR/kWh slice.
func EUR(hours []Hour) []float64 {
	values := make([]float64, 0, len(hours))
	for _, h := range hours {
		values = append(values, h.EURPerKWh)
	}
	return values
}

// SEKPerMWh returns the raw spot price in SEK/MWh for one period.
func SEKPerMWh(h Hour) float64 {
	return h.SEKPerKWh * 1000.0
}
