package climate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIndoorTemperatureReports(t *testing.T) {
	ac := &fakeAC{temp: 23.0}
	var reported []float64
	indoor := newIndoorTemperature(ac, func(v float64) {
		reported = append(reported, v)
	})

	got := indoor.current(context.Background())
	// blended with the comfort floor start value
	assert.Equal(t, (minFloorComfortTemp+23.0)/2, got)
	assert.Equal(t, []float64{got}, reported)

	// cached readings are not re-reported
	indoor.current(context.Background())
	assert.Len(t, reported, 1)
}
