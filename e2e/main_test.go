package e2e

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/fortnoxab/gohtmock"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/tbrandon/mbserver"

	"github.com/hemel-se/optimizer/pkg/app"
	"github.com/hemel-se/optimizer/pkg/config"
	"github.com/hemel-se/optimizer/pkg/hotwater"
	"github.com/hemel-se/optimizer/pkg/price"
)

func pricePath(day time.Time, region string) string {
	return fmt.Sprintf("/%d/%02d-%02d_%s.json", day.Year(), day.Month(), day.Day(), region)
}

func flatDayJSON(t *testing.T, day time.Time, eur float64) string {
	midnight := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	hours := make([]price.Hour, 24)
	for i := range hours {
		hours[i] = price.Hour{
			Start:     midnight.Add(time.Duration(i) * time.Hour),
			End:       midnight.Add(time.Duration(i+1) * time.Hour),
			SEKPerKWh: eur * 11.0,
			EURPerKWh: eur,
		}
	}
	b, err := json.Marshal(hours)
	assert.NoError(t, err)
	return string(b)
}

func TestHeaterFollowsPrices(t *testing.T) {
	logrus.SetLevel(logrus.DebugLevel)

	now := time.Now()
	mock := gohtmock.New()
	mock.Mock(pricePath(now, "SE3"), flatDayJSON(t, now, 0.05))
	mock.Mock(pricePath(now.AddDate(0, 0, 1), "SE3"), "", func(r *http.Request) int {
		return http.StatusNotFound
	})

	serv := mbserver.NewServer()
	err := serv.ListenTCP("127.0.0.1:1503")
	assert.NoError(t, err)
	defer serv.Close()

	cfg := &config.CliConfig{
		Thermostat:        "heater",
		ThermostatAddress: "127.0.0.1:1503",
		PriceRegion:       "SE3",
		PriceBaseURL:      mock.URL(),
		OutdoorFallback:   8,
	}
	a := app.New(cfg)

	ctx, cancel := context.WithCancel(context.TODO())
	defer cancel()
	err = a.Start(ctx)
	assert.NoError(t, err)

	eur := make([]float64, 24)
	for i := range eur {
		eur[i] = 0.05
	}
	opt := hotwater.New(hotwater.DefaultConfig())
	opt.StartDay()
	wanted := opt.WantedTemperature(now.Hour(), now.Weekday(), eur, nil, 8)

	WaitFor(t, 2*time.Second, "heater stop temperature write", func() bool {
		return serv.HoldingRegisters[23] == uint16(wanted*100)
	})
	assert.Equal(t, uint16((wanted-5)*100), serv.HoldingRegisters[22])
}

func TestUnreachablePriceAPIRaisesNoWrites(t *testing.T) {
	mock := gohtmock.New()
	mock.Mock(pricePath(time.Now(), "SE3"), "", func(r *http.Request) int {
		return http.StatusInternalServerError
	})

	serv := mbserver.NewServer()
	err := serv.ListenTCP("127.0.0.1:1504")
	assert.NoError(t, err)
	defer serv.Close()

	cfg := &config.CliConfig{
		Thermostat:        "heater",
		ThermostatAddress: "127.0.0.1:1504",
		PriceRegion:       "SE3",
		PriceBaseURL:      mock.URL(),
	}
	a := app.New(cfg)

	ctx, cancel := context.WithCancel(context.TODO())
	defer cancel()
	err = a.Start(ctx)
	assert.NoError(t, err)

	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, uint16(0), serv.HoldingRegisters[22])
	assert.Equal(t, uint16(0), serv.HoldingRegisters[23])
}

func WaitFor(t *testing.T, timeout time.Duration, msg string, ok func() bool) {
	end := time.Now().Add(timeout)
	for {
		if end.Before(time.Now()) {
			t.Errorf("timeout waiting for: %s", msg)
			return
		}
		time.Sleep(10 * time.Millisecond)
		if ok() {
			return
		}
	}
}
