package sensibo

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// commandPace keeps the pod from dropping rapid fire state changes.
var commandPace = 1500 * time.Millisecond

// Settings is a full requested AC state. Modes other than heat ignore
// TargetTemperature but the pod still wants one sent during restore.
type Settings struct {
	On                bool   `json:"on"`
	Mode              string `json:"mode"`
	HorizontalSwing   string `json:"horizontalSwing"`
	Swing             string `json:"swing"`
	FanLevel          string `json:"fanLevel"`
	TargetTemperature int    `json:"targetTemperature"`
}

type property struct {
	name  string
	value interface{}
}

func (s Settings) properties() []property {
	return []property{
		{"on", s.On},
		{"mode", s.Mode},
		{"horizontalSwing", s.HorizontalSwing},
		{"swing", s.Swing},
		{"fanLevel", s.FanLevel},
		{"targetTemperature", s.TargetTemperature},
	}
}

// Controller drives one pod and only transmits properties that differ
// from the last requested state.
type Controller struct {
	client *Client
	uid    string

	current map[string]interface{}
}

func NewController(client *Client, uid string) *Controller {
	return &Controller{
		client:  client,
		uid:     uid,
		current: make(map[string]interface{}),
	}
}

// LastTargetTemperature returns the most recently requested target
// temperature, if any state has been applied.
func (c *Controller) LastTargetTemperature() (int, bool) {
	v, ok := c.current["targetTemperature"]
	if !ok {
		return 0, false
	}
	t, ok := v.(int)
	return t, ok
}

// Apply transmits settings adjusted by tempOffset. force resends every
// property regardless of the cached state.
func (c *Controller) Apply(ctx context.Context, settings Settings, tempOffset int, force bool) error {
	settings.TargetTemperature += tempOffset
	logrus.Debugf("sensibo: applying %+v", settings)
	if force {
		c.current = make(map[string]interface{})
	}
	first := true
	for _, p := range settings.properties() {
		if v, ok := c.current[p.name]; ok && v == p.value {
			continue
		}
		if !first {
			select {
			case <-time.After(commandPace):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		err := c.client.SetACProperty(ctx, c.uid, p.name, p.value)
		if err != nil {
			return err
		}
		c.current[p.name] = p.value
		first = false
	}
	return nil
}

// ReadTemperature returns the pod sensor temperature.
func (c *Controller) ReadTemperature(ctx context.Context) (float64, error) {
	m, err := c.client.Measurement(ctx, c.uid)
	if err != nil {
		return 0, err
	}
	return m.Temperature, nil
}
