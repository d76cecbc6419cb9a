package tibber

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
)

func TestViewer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer testtoken", r.Header.Get("Authorization"))
		w.Write([]byte(`{"data":{"viewer":{"name":"Arya Stark","websocketSubscriptionUrl":"wss://example.com/sub","homes":[{"id":"home-1","appNickname":"Vinterfell"}]}}}`))
	}))
	defer srv.Close()

	c := NewClient("testtoken")
	c.URL = srv.URL

	viewer, err := c.Viewer(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, "Arya Stark", viewer.Name)
	assert.Len(t, viewer.Homes, 1)
	assert.Equal(t, "home-1", viewer.Homes[0].ID)
	assert.Equal(t, "wss://example.com/sub", viewer.WebsocketSubscriptionURL)
}

func TestHourlyConsumption(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		req := graphqlRequest{}
		assert.NoError(t, json.Unmarshal(body, &req))
		assert.Equal(t, "home-1", req.Variables["homeId"])
		assert.Equal(t, float64(720), req.Variables["last"])

		w.Write([]byte(`{"data":{"viewer":{"home":{"consumption":{"nodes":[
			{"from":"2025-09-01T00:00:00+02:00","to":"2025-09-01T01:00:00+02:00","consumption":1.25,"unitPrice":0.8,"cost":1.0},
			{"from":"2025-09-01T01:00:00+02:00","to":"2025-09-01T02:00:00+02:00","consumption":null,"unitPrice":0.7,"cost":0}
		]}}}}}`))
	}))
	defer srv.Close()

	c := NewClient("testtoken")
	c.URL = srv.URL

	nodes, err := c.HourlyConsumption(context.Background(), "home-1", 720)
	assert.NoError(t, err)
	assert.Len(t, nodes, 2)
	assert.Equal(t, 1.25, *nodes[0].Consumption)
	assert.Nil(t, nodes[1].Consumption)
}

func TestQueryErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":null,"errors":[{"message":"invalid token"}]}`))
	}))
	defer srv.Close()

	c := NewClient("testtoken")
	c.URL = srv.URL

	_, err := c.Viewer(context.Background())
	assert.ErrorContains(t, err, "invalid token")
}

func TestMeasurementPhaseHelpers(t *testing.T) {
	m := LiveMeasurement{
		CurrentL1: 1.5, CurrentL2: 2.5, CurrentL3: 3.5,
		VoltagePhase1: 231, VoltagePhase2: 232, VoltagePhase3: 233,
	}
	assert.Equal(t, 2.5, m.Current(2))
	assert.Equal(t, 233.0, m.Voltage(3))
	assert.Equal(t, 0.0, m.Current(4))
}

func TestSubscribeLiveMeasurement(t *testing.T) {
	upgrader := websocket.Upgrader{
		Subprotocols: []string{wsSubprotocol},
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		assert.NoError(t, err)
		defer conn.Close()

		msg := wsMessage{}
		assert.NoError(t, conn.ReadJSON(&msg))
		assert.Equal(t, "connection_init", msg.Type)
		assert.NoError(t, conn.WriteJSON(wsMessage{Type: "connection_ack"}))

		assert.NoError(t, conn.ReadJSON(&msg))
		assert.Equal(t, "subscribe", msg.Type)

		assert.NoError(t, conn.WriteJSON(map[string]interface{}{
			"id":   "1",
			"type": "next",
			"payload": map[string]interface{}{
				"data": map[string]interface{}{
					"liveMeasurement": map[string]interface{}{
						"power":                    4321.0,
						"estimatedHourConsumption": 3.3,
						"currentL1":                11.5,
					},
				},
			},
		}))
		assert.NoError(t, conn.WriteJSON(wsMessage{ID: "1", Type: "complete"}))
	}))
	defer srv.Close()

	c := NewClient("testtoken")
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")

	var got []LiveMeasurement
	err := c.SubscribeLiveMeasurement(context.Background(), wsURL, "home-1", func(m LiveMeasurement) {
		got = append(got, m)
	})
	assert.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, 4321.0, got[0].Power)
	assert.Equal(t, 11.5, got[0].Current(1))
}
