package main

import (
	"flag"
	"log"

	"github.com/goburrow/modbus"

	"github.com/hemel-se/optimizer/pkg/controller"
	"github.com/hemel-se/optimizer/pkg/modbusclient"
)

// Debug tool for poking at the hot water heater registers over tcp
// modbus.
func main() {
	address := flag.String("addr", "", "tcp modbus address")

	inputreg := flag.Int("inputreg", 0, "input reg")
	holdingreg := flag.Int("holdingreg", 0, "")
	coil := flag.Int("coil", 0, "")

	slaveID := flag.Int("slave", 0, "modbus slave id")
	value := flag.Int("value", 0, "value to write. will write any value")
	scale100 := flag.Bool("scale100", false, "print register value divided by 100")
	flag.Parse()

	handler := modbus.NewTCPClientHandler(*address)
	handler.SlaveId = byte(*slaveID)
	client := modbusclient.New(modbus.NewClient(handler), handler.Close)
	defer handler.Close()

	var raw int
	var err error
	switch {
	case isFlagPassed("inputreg"):
		raw, err = client.ReadInputRegister(uint16(*inputreg))
	case isFlagPassed("holdingreg") && isFlagPassed("value"):
		_, err = client.WriteSingleRegister(uint16(*holdingreg), uint16(*value))
	case isFlagPassed("holdingreg"):
		raw, err = client.ReadHoldingRegister16(uint16(*holdingreg))
	case isFlagPassed("coil") && isFlagPassed("value"):
		// on must be 0xff00, INT 65280
		raw, err = client.WriteSingleCoil(uint16(*coil), uint16(*value))
	default:
		flag.Usage()
		return
	}
	if err != nil {
		log.Println("error was: ", err)
	}

	if *scale100 {
		scaled, _ := controller.Scale100itof(raw, err)
		log.Println("value is: ", *scaled)
		return
	}
	log.Println("value is: ", raw)
}

func isFlagPassed(name string) bool {
	found := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}
