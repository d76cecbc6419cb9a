package mqtt

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	mqttv2 "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/hooks/auth"
	"github.com/mochi-mqtt/server/v2/listeners"
	"github.com/mochi-mqtt/server/v2/packets"
	"github.com/sirupsen/logrus"

	"github.com/hemel-se/optimizer/pkg/meter"
)

const p1ibTopic = "p1ib/sensor_state"

// Start runs an embedded MQTT broker and feeds decoded p1ib readings
// to handler. The broker closes when ctx is done.
func Start(ctx context.Context, wg *sync.WaitGroup, address string, handler func(*meter.Data)) (*mqttv2.Server, error) {
	server := mqttv2.New(&mqttv2.Options{
		InlineClient: true,
	})

	// Allow all connections.
	_ = server.AddHook(new(auth.AllowHook), nil)

	tcp := listeners.NewTCP(listeners.Config{ID: "t1", Address: address})
	err := server.AddListener(tcp)
	if err != nil {
		return server, err
	}

	err = server.Serve()
	if err != nil {
		return server, err
	}

	err = server.Subscribe(p1ibTopic, 1, func(cl *mqttv2.Client, sub packets.Subscription, pk packets.Packet) {
		data, err := decodeP1ib(pk.Payload)
		if err != nil {
			logrus.WithField("topic", pk.TopicName).Errorf("decoding p1ib payload: %s", err)
			return
		}
		handler(data)
	})
	if err != nil {
		server.Close()
		return server, err
	}

	wg.Add(1)
	go func() {
		<-ctx.Done()
		server.Close()
		wg.Done()
	}()
	return server, nil
}

// P1ib is the sensor state a p1ib wifi dongle publishes. Powers are
// kW, energies kWh.
type P1ib struct {
	P1IbHourlyActiveImportQ1Q4 float64 `json:"p1ib_hourly_active_import_q1_q4"`
	P1IbHourlyActiveExportQ2Q3 float64 `json:"p1ib_hourly_active_export_q2_q3"`
	P1IbActivePowerPlusQ1Q4    float64 `json:"p1ib_active_power_plus_q1_q4"`
	P1IbActivePowerMinusQ2Q3   float64 `json:"p1ib_active_power_minus_q2_q3"`
	P1IbVoltageL1              float64 `json:"p1ib_voltage_l1"`
	P1IbVoltageL2              float64 `json:"p1ib_voltage_l2"`
	P1IbVoltageL3              float64 `json:"p1ib_voltage_l3"`
	P1IbCurrentL1              float64 `json:"p1ib_current_l1"`
	P1IbCurrentL2              float64 `json:"p1ib_current_l2"`
	P1IbCurrentL3              float64 `json:"p1ib_current_l3"`
	P1IbImportExport           float64 `json:"p1ib_import_export"`
	P1IbMeter                  string  `json:"p1ib_meter"`
	P1IbWifiMac                string  `json:"p1ib_wifi_mac"`
}

func (p P1ib) AsMeterData() *meter.Data {
	return &meter.Data{
		Id:        p.P1IbWifiMac,
		Model:     "p1ib",
		Time:      time.Now(),
		Current_W: p.P1IbImportExport * 1000,
		Total_WH:  p.P1IbHourlyActiveImportQ1Q4 * 1000,
		L1_A:      p.P1IbCurrentL1,
		L2_A:      p.P1IbCurrentL2,
		L3_A:      p.P1IbCurrentL3,
		L1_V:      p.P1IbVoltageL1,
		L2_V:      p.P1IbVoltageL2,
		L3_V:      p.P1IbVoltageL3,
	}
}

func decodeP1ib(payload []byte) (*meter.Data, error) {
	p := P1ib{}
	err := json.Unmarshal(payload, &p)
	if err != nil {
		return nil, err
	}
	return p.AsMeterData(), nil
}
