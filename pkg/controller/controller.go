package controller

import (
	"context"
)

// Thermostat controls the target temperature of a hot water tank.
type Thermostat interface {
	SetTemperature(ctx context.Context, degrees int) error

	// NudgeUp and NudgeDown wiggle the set point between hours so a
	// tank sitting right at the hysteresis limit starts or stops
	// heating ahead of a price change.
	NudgeUp(ctx context.Context) error
	NudgeDown(ctx context.Context) error
}

func Scale100itof(i int, err error) (*float64, error) {
	f := float64(i) / 100.0
	return &f, err
}

func Scale10itof(i int, err error) (*float64, error) {
	f := float64(i) / 10.0
	return &f, err
}
