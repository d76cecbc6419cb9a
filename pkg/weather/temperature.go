package weather

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

var httpClient = &http.Client{
	Timeout: time.Second * 10,
}

const cacheDuration = 5 * time.Minute

// TemperatureProvider averages outdoor temperature readings from one
// or more plain text endpoints (each returning a number like "-3.2").
// Readings are cached and the last good value is returned when all
// endpoints fail.
type TemperatureProvider struct {
	urls []string

	mutex       sync.Mutex
	temperature float64
	lastUpdate  time.Time
}

// NewTemperatureProvider seeds the provider with a fallback value used
// until the first successful read.
func NewTemperatureProvider(fallback float64, urls ...string) *TemperatureProvider {
	return &TemperatureProvider{
		urls:        urls,
		temperature: fallback,
	}
}

func (p *TemperatureProvider) Outdoor(ctx context.Context) float64 {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	if !p.lastUpdate.IsZero() && time.Since(p.lastUpdate) < cacheDuration {
		return p.temperature
	}

	sum := 0.0
	collected := 0
	for _, u := range p.urls {
		v, err := fetchTemperature(ctx, u)
		if err != nil {
			logrus.Warnf("ignoring outdoor temperature read error from %s: %v", u, err)
			continue
		}
		sum += v
		collected++
	}
	if collected > 0 {
		p.temperature = sum / float64(collected)
		p.lastUpdate = time.Now()
	}
	return p.temperature
}

func fetchTemperature(ctx context.Context, url string) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("error fetching temperature StatusCode: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64))
	if err != nil {
		return 0, err
	}
	return strconv.ParseFloat(strings.TrimSpace(string(body)), 64)
}
