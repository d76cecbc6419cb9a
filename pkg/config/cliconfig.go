package config

import (
	"os"
	"strings"
	"sync"
)

// CliConfig is loaded from flags and environment with multiconfig.
// Empty component fields leave the component disabled.
type CliConfig struct {
	LogLevel string `default:"info"`

	PriceRegion  string `default:"SE3"`
	PriceBaseURL string

	TibberToken     string
	TibberTokenFile string `default:"/etc/tibbertoken"`
	TibberHomeID    string

	// TibberEmail and TibberPassword log into the app API for the
	// pulse consumption limit; the developer token cannot change it.
	TibberEmail       string
	TibberPassword    string
	TibberPulseDevice string
	RewardBudgetKWh   float64 `default:"7.5"`

	// Thermostat selects the hot water thermostat, servo, heater or
	// dummy. Address is the servo URL or the modbus tcp address.
	Thermostat         string `default:"dummy"`
	ThermostatAddress  string
	ThermostatReadonly bool

	SensiboToken     string
	SensiboTokenFile string
	SensiboDevice    string

	// RelayURL pauses the supervised load, TankBackoffURL tells the
	// hot water tank to back off for the rest of the hour.
	RelayURL       string
	TankBackoffURL string

	MQTTAddress string `default:":1883"`
	MbusDevice  string `default:"/dev/ttyAMA0"`
	MeterModel  string
	MeterID     string

	MetricsAddress string `default:":8080"`

	// OutdoorURLs are tried in order for the outdoor temperature.
	OutdoorURLs     []string
	OutdoorFallback float64 `default:"8"`

	// AtHomeUntil holds everyone-at-home comfort until the given
	// RFC3339 time.
	AtHomeUntil string

	mutex sync.RWMutex
}

func (c *CliConfig) Token() string {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.TibberToken
}

func (c *CliConfig) SetToken(t string) {
	c.mutex.Lock()
	c.TibberToken = strings.TrimSpace(t)
	c.mutex.Unlock()
}

func (c *CliConfig) PersistToken() error {
	if c.TibberTokenFile == "" {
		return nil
	}
	return os.WriteFile(c.TibberTokenFile, []byte(c.Token()), 0644)
}

func (c *CliConfig) LoadToken() error {
	return loadTokenFile(c.TibberTokenFile, c.SetToken)
}

func (c *CliConfig) LoadSensiboToken() error {
	return loadTokenFile(c.SensiboTokenFile, func(t string) {
		c.mutex.Lock()
		c.SensiboToken = strings.TrimSpace(t)
		c.mutex.Unlock()
	})
}

func loadTokenFile(path string, set func(string)) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err == nil {
		b, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if len(b) == 0 {
			return nil // dont load empty token
		}

		set(string(b))
	}
	return nil
}
