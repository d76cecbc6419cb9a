package main

import (
	"context"
	"flag"
	"os/signal"
	"sync"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/hemel-se/optimizer/pkg/meter"
	"github.com/hemel-se/optimizer/pkg/mqtt"
)

// Debug broker: runs the embedded MQTT server and prints every p1ib
// reading it decodes.
func main() {
	address := flag.String("address", ":1883", "listen address")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	wg := &sync.WaitGroup{}
	_, err := mqtt.Start(ctx, wg, *address, func(d *meter.Data) {
		logrus.WithFields(logrus.Fields{
			"id":    d.Id,
			"power": d.Current_W,
			"l1":    d.L1_A,
			"l2":    d.L2_A,
			"l3":    d.L3_A,
		}).Info("meter reading")
	})
	if err != nil {
		logrus.Fatal(err)
	}

	wg.Wait()
}
