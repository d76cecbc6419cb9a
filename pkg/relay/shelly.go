package relay

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

var httpClient = &http.Client{
	Timeout: time.Second * 10,
}

// Shelly drives a Gen2 relay wired through a normally closed contactor
// with inverted logic: switching the relay on cuts the load, and
// toggle_after restores it without another request.
type Shelly struct {
	URL string
	ID  int
}

func New(url string) *Shelly {
	return &Shelly{URL: url}
}

// PauseLoad cuts the controlled load for the given duration.
func (s *Shelly) PauseLoad(ctx context.Context, d time.Duration) error {
	u := fmt.Sprintf("%s/rpc/Switch.Set?id=%d&on=true&toggle_after=%d", s.URL, s.ID, int(d.Seconds()))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("error acting relay StatusCode: %d", resp.StatusCode)
	}
	return nil
}
