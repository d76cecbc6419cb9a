package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func float(v float64) *float64 {
	return &v
}

func TestMapSkipsUnknown(t *testing.T) {
	paused := true
	s := State{
		Outdoor:    float(-3.5),
		SpotPrice:  float(1.25),
		LoadPaused: &paused,
	}
	m := s.Map()
	assert.Equal(t, map[string]interface{}{
		"outdoor":    -3.5,
		"spotPrice":  1.25,
		"loadPaused": int64(1),
	}, m)
}

func TestCacheUpdate(t *testing.T) {
	c := &Cache{}
	c.Update(func(s *State) {
		s.Indoor = float(21.0)
	})
	got := c.Get()
	assert.NotNil(t, got.Indoor)
	assert.Equal(t, 21.0, *got.Indoor)
}
