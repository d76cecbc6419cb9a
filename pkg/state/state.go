package state

import "sync"

// State is the latest snapshot of the household, served over the
// status endpoint. Nil fields are unknown.
type State struct {
	Outdoor               *float64 `json:"outdoor,omitempty"`
	Indoor                *float64 `json:"indoor,omitempty"`
	TankTemperature       *float64 `json:"tankTemperature,omitempty"`
	WantedTankTemperature *float64 `json:"wantedTankTemperature,omitempty"`
	SpotPrice             *float64 `json:"spotPrice,omitempty"`
	Power                 *float64 `json:"power,omitempty"`
	LoadPaused            *bool    `json:"loadPaused,omitempty"`
	Alarm                 *bool    `json:"alarm,omitempty"`
}

func (s State) Map() map[string]interface{} {
	m := make(map[string]interface{})
	if s.Outdoor != nil {
		m["outdoor"] = *s.Outdoor
	}
	if s.Indoor != nil {
		m["indoor"] = *s.Indoor
	}
	if s.TankTemperature != nil {
		m["tankTemperature"] = *s.TankTemperature
	}
	if s.WantedTankTemperature != nil {
		m["wantedTankTemperature"] = *s.WantedTankTemperature
	}
	if s.SpotPrice != nil {
		m["spotPrice"] = *s.SpotPrice
	}
	if s.Power != nil {
		m["power"] = *s.Power
	}
	if s.LoadPaused != nil {
		m["loadPaused"] = boolToInt(*s.LoadPaused)
	}
	if s.Alarm != nil {
		m["alarm"] = boolToInt(*s.Alarm)
	}

	return m
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// Cache holds the current state behind a lock so the HTTP status
// endpoint and the optimizer loops can share it.
type Cache struct {
	state State
	mutex sync.RWMutex
}

func (c *Cache) Get() State {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.state
}

func (c *Cache) Update(fn func(*State)) {
	c.mutex.Lock()
	fn(&c.state)
	c.mutex.Unlock()
}
