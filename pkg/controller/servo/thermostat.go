package servo

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

var httpClient = &http.Client{
	Timeout: time.Second * 10,
}

// nudgeRestorePause gives the servo time to wiggle the dial before
// returning to the set point.
var nudgeRestorePause = 5 * time.Second

const nudgeDegrees = 5

// Thermostat drives a servo mounted on the dial of an electric water
// heater. The servo unit exposes the target temperature as the URL
// path, so setting 50 degrees is a GET of <url>/50.
type Thermostat struct {
	url string

	prevDegrees int
	hasPrev     bool
}

func New(url string) *Thermostat {
	return &Thermostat{
		url: strings.TrimSuffix(url, "/"),
	}
}

func (t *Thermostat) SetTemperature(ctx context.Context, degrees int) error {
	if t.hasPrev && t.prevDegrees == degrees {
		return nil
	}
	err := t.request(ctx, degrees)
	if err != nil {
		return err
	}
	t.prevDegrees = degrees
	t.hasPrev = true
	return nil
}

func (t *Thermostat) NudgeUp(ctx context.Context) error {
	logrus.Debug("servo: nudging up")
	return t.nudge(ctx, nudgeDegrees)
}

func (t *Thermostat) NudgeDown(ctx context.Context) error {
	logrus.Debug("servo: nudging down")
	return t.nudge(ctx, -nudgeDegrees)
}

// nudge moves the dial briefly past the set point and back, tripping
// the tank hysteresis without changing the target.
func (t *Thermostat) nudge(ctx context.Context, delta int) error {
	if !t.hasPrev {
		return nil
	}
	err := t.request(ctx, t.prevDegrees+delta)
	if err != nil {
		return err
	}
	select {
	case <-time.After(nudgeRestorePause):
	case <-ctx.Done():
		return ctx.Err()
	}
	return t.request(ctx, t.prevDegrees)
}

func (t *Thermostat) request(ctx context.Context, degrees int) error {
	u := fmt.Sprintf("%s/%d", t.url, degrees)
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
