package tibber

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	wsSubprotocol    = "graphql-transport-ws"
	connectTimeout   = 30 * time.Second
	readableDeadline = 90 * time.Second
)

const liveMeasurementQuery = `subscription ($homeId: ID!) {
  liveMeasurement(homeId: $homeId) {
    timestamp
    power
    accumulatedConsumptionLastHour
    estimatedHourConsumption
    currentL1
    currentL2
    currentL3
    voltagePhase1
    voltagePhase2
    voltagePhase3
  }
}`

type wsMessage struct {
	ID      string          `json:"id,omitempty"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// SubscribeLiveMeasurement opens a realtime subscription and delivers
// every measurement to cb. It blocks until the connection dies or ctx
// is cancelled; the caller owns reconnecting.
func (c *Client) SubscribeLiveMeasurement(ctx context.Context, wsURL, homeID string, cb func(LiveMeasurement)) error {
	dialer := websocket.Dialer{
		Subprotocols:     []string{wsSubprotocol},
		HandshakeTimeout: connectTimeout,
	}
	header := http.Header{}
	header.Set("User-Agent", c.UserAgent)
	conn, _, err := dialer.DialContext(ctx, wsURL, header)
	if err != nil {
		return fmt.Errorf("error connecting live subscription: %w", err)
	}
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	init, err := json.Marshal(map[string]interface{}{
		"type":    "connection_init",
		"payload": map[string]string{"token": c.token},
	})
	if err != nil {
		return err
	}
	err = conn.WriteMessage(websocket.TextMessage, init)
	if err != nil {
		return err
	}

	err = awaitAck(conn)
	if err != nil {
		return err
	}

	subscribe, err := json.Marshal(map[string]interface{}{
		"id":   "1",
		"type": "subscribe",
		"payload": graphqlRequest{
			Query:     liveMeasurementQuery,
			Variables: map[string]interface{}{"homeId": homeID},
		},
	})
	if err != nil {
		return err
	}
	err = conn.WriteMessage(websocket.TextMessage, subscribe)
	if err != nil {
		return err
	}

	for {
		err := conn.SetReadDeadline(time.Now().Add(readableDeadline))
		if err != nil {
			return err
		}
		msg := wsMessage{}
		err = conn.ReadJSON(&msg)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("error reading live subscription: %w", err)
		}
		switch msg.Type {
		case "next":
			payload := struct {
				Data struct {
					LiveMeasurement LiveMeasurement `json:"liveMeasurement"`
				} `json:"data"`
			}{}
			err = json.Unmarshal(msg.Payload, &payload)
			if err != nil {
				logrus.Warnf("ignoring malformed live measurement: %v", err)
				continue
			}
			cb(payload.Data.LiveMeasurement)
		case "error":
			return fmt.Errorf("live subscription error: %s", string(msg.Payload))
		case "complete":
			return nil
		case "ping":
			err = conn.WriteJSON(wsMessage{Type: "pong"})
			if err != nil {
				return err
			}
		}
	}
}

func awaitAck(conn *websocket.Conn) error {
	err := conn.SetReadDeadline(time.Now().Add(connectTimeout))
	if err != nil {
		return err
	}
	for {
		msg := wsMessage{}
		err := conn.ReadJSON(&msg)
		if err != nil {
			return fmt.Errorf("error waiting for connection_ack: %w", err)
		}
		switch msg.Type {
		case "connection_ack":
			return nil
		case "error", "connection_error":
			return fmt.Errorf("connection rejected: %s", string(msg.Payload))
		}
	}
}
