package monitor

import (
	"context"
	"testing"
	"time"

	"github.com/hemel-se/optimizer/pkg/tibber"
	"github.com/stretchr/testify/assert"
)

type fakeRelay struct {
	pauses []time.Duration
}

func (f *fakeRelay) PauseLoad(ctx context.Context, d time.Duration) error {
	f.pauses = append(f.pauses, d)
	return nil
}

type fakeActor struct {
	minutes []int
	err     error
}

func (f *fakeActor) Act(ctx context.Context, minute int) error {
	f.minutes = append(f.minutes, minute)
	return f.err
}

func testMonitor(hour, minute int) (*Monitor, *fakeRelay, *fakeActor) {
	relay := &fakeRelay{}
	actor := &fakeActor{}
	m := New(DefaultConfig(), relay, actor)
	m.now = func() time.Time {
		return time.Date(2026, time.March, 4, hour, minute, 0, 0, time.Local)
	}
	return m, relay, actor
}

func heavyLoad() tibber.LiveMeasurement {
	return tibber.LiveMeasurement{
		AccumulatedConsumptionLastHour: 3.0,
		EstimatedHourConsumption:       8.0,
		CurrentL1:                      12.0,
		CurrentL2:                      11.0,
		VoltagePhase1:                  230.0,
		VoltagePhase2:                  231.0,
	}
}

func TestFuseProtection(t *testing.T) {
	m, relay, actor := testMonitor(12, 30)

	lm := heavyLoad()
	lm.CurrentL1 = 32.0
	m.HandleMeasurement(context.Background(), lm)

	assert.Equal(t, []time.Duration{5 * time.Minute}, relay.pauses)
	assert.Empty(t, actor.minutes)
	assert.True(t, m.LoadPaused())
}

func TestLoadPausedExpires(t *testing.T) {
	m, _, _ := testMonitor(12, 30)

	lm := heavyLoad()
	lm.CurrentL1 = 32.0
	m.HandleMeasurement(context.Background(), lm)
	assert.True(t, m.LoadPaused())

	m.now = func() time.Time {
		return time.Date(2026, time.March, 4, 12, 36, 0, 0, time.Local)
	}
	assert.False(t, m.LoadPaused())
}

func TestFuseProtectionMarginWhenLoadInactive(t *testing.T) {
	m, relay, _ := testMonitor(12, 30)

	// one phase near the fuse limit while the supervised load is off
	// means something else is drawing and the margin is gone
	lm := heavyLoad()
	lm.CurrentL1 = 25.0
	lm.CurrentL2 = 2.0
	m.HandleMeasurement(context.Background(), lm)

	assert.Len(t, relay.pauses, 1)
}

func TestActsOncePerHourThenUsesRelay(t *testing.T) {
	m, relay, actor := testMonitor(12, 42)

	m.HandleMeasurement(context.Background(), heavyLoad())
	assert.Equal(t, []int{42}, actor.minutes)
	assert.Empty(t, relay.pauses)

	// second breach in the same hour cuts with the relay instead
	m.HandleMeasurement(context.Background(), heavyLoad())
	assert.Equal(t, []int{42}, actor.minutes)
	assert.Equal(t, []time.Duration{5 * time.Minute}, relay.pauses)
}

func TestActedHourResets(t *testing.T) {
	m, _, actor := testMonitor(12, 42)

	m.HandleMeasurement(context.Background(), heavyLoad())
	assert.Equal(t, []int{42}, actor.minutes)

	m.now = func() time.Time {
		return time.Date(2026, time.March, 4, 13, 20, 0, 0, time.Local)
	}
	m.HandleMeasurement(context.Background(), heavyLoad())
	assert.Equal(t, []int{42, 20}, actor.minutes)
}

func TestIgnoresCheapHours(t *testing.T) {
	m, relay, actor := testMonitor(23, 42)

	m.HandleMeasurement(context.Background(), heavyLoad())
	assert.Empty(t, actor.minutes)
	assert.Empty(t, relay.pauses)

	// still counts as acted, no relay repeat acting either
	m.HandleMeasurement(context.Background(), heavyLoad())
	assert.Empty(t, relay.pauses)
}

func TestEarlyMinutesLeftAlone(t *testing.T) {
	m, relay, actor := testMonitor(12, 10)

	m.HandleMeasurement(context.Background(), heavyLoad())
	assert.Empty(t, actor.minutes)
	assert.Empty(t, relay.pauses)
}

func TestActionFailureRetries(t *testing.T) {
	m, _, actor := testMonitor(12, 42)
	actor.err = assert.AnError

	m.HandleMeasurement(context.Background(), heavyLoad())
	assert.Nil(t, m.actedHour)

	actor.err = nil
	m.HandleMeasurement(context.Background(), heavyLoad())
	assert.Equal(t, []int{42, 42}, actor.minutes)
	assert.NotNil(t, m.actedHour)
}

func TestRelayPauseCappedByRemainingMinutes(t *testing.T) {
	m, relay, _ := testMonitor(12, 58)

	m.HandleMeasurement(context.Background(), heavyLoad())
	m.HandleMeasurement(context.Background(), heavyLoad())
	assert.Equal(t, []time.Duration{2 * time.Minute}, relay.pauses)
}
