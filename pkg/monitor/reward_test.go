package monitor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeSetter struct {
	limits []float64
}

func (f *fakeSetter) SetHourlyConsumptionLimit(ctx context.Context, homeID, deviceID string, kwh float64) error {
	f.limits = append(f.limits, kwh)
	return nil
}

func TestLimitForBoostsEarlyQuarters(t *testing.T) {
	r := NewRewardMaximizer(&fakeSetter{}, "home", "pulse", 7.5)

	var tests = []struct {
		setMinute int
		want      float64
	}{
		{setMinute: 59, want: 11.25}, // first quarter, 50% extra
		{setMinute: 14, want: 9.375}, // second quarter, 25% extra
		{setMinute: 29, want: 7.5},
		{setMinute: 44, want: 7.5},
	}
	for _, tt := range tests {
		tt := tt
		assert.Equal(t, tt.want, r.limitFor(tt.setMinute), "minute %d", tt.setMinute)
	}
}

func TestNextSetTime(t *testing.T) {
	day := time.Date(2026, time.March, 4, 10, 0, 0, 0, time.UTC)
	var tests = []struct {
		minute, second int
		wantMinute     int
	}{
		{minute: 0, second: 0, wantMinute: 14},
		{minute: 13, second: 59, wantMinute: 14},
		{minute: 14, second: 0, wantMinute: 29}, // already on the mark, wait for the next
		{minute: 30, second: 10, wantMinute: 44},
		{minute: 59, second: 30, wantMinute: 14},
	}
	for _, tt := range tests {
		tt := tt
		now := day.Add(time.Duration(tt.minute)*time.Minute + time.Duration(tt.second)*time.Second)
		next := nextSetTime(now)
		assert.Equal(t, tt.wantMinute, next.Minute(), "from %02d:%02d", tt.minute, tt.second)
		assert.True(t, next.After(now), "from %02d:%02d", tt.minute, tt.second)
	}
}
