package monitor

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

var httpClient = &http.Client{
	Timeout: time.Second * 10,
}

// TankAction tells the hot water thermostat to back off for the rest
// of the hour. The acted minute is appended so the tank can resume at
// the hour change, e.g. <url>/25.42 when acting at minute 42.
type TankAction struct {
	URL string
}

func (a *TankAction) Act(ctx context.Context, minute int) error {
	u := fmt.Sprintf("%s.%d", a.URL, minute)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("error requesting %s: %w", u, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s from %s", resp.Status, u)
	}
	return nil
}
