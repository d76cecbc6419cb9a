package dummy

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/sirupsen/logrus"
)

// Dummy logs every thermostat command and serves the current state on
// :8888 so behavior can be watched without hardware.
type Dummy struct {
	degrees int
	nudges  []string
	sync.Mutex
}

func New() *Dummy {
	dummy := &Dummy{}
	http.HandleFunc("/thermostat", func(w http.ResponseWriter, req *http.Request) {
		dummy.Lock()
		fmt.Fprintf(w, "target: %d nudges: %d\n", dummy.degrees, len(dummy.nudges))
		dummy.Unlock()
	})
	http.HandleFunc("/resetnudges", func(w http.ResponseWriter, req *http.Request) {
		dummy.Lock()
		dummy.nudges = nil
		dummy.Unlock()
		fmt.Fprintf(w, "nudges reset\n")
	})

	go func() {
		err := http.ListenAndServe(":8888", nil)
		if err != nil {
			logrus.Error(err)
		}
	}()

	return dummy
}

func (ts *Dummy) SetTemperature(ctx context.Context, degrees int) error {
	logrus.Info("dummy: SetTemperature: ", degrees)
	ts.Lock()
	ts.degrees = degrees
	ts.Unlock()
	return nil
}

func (ts *Dummy) NudgeUp(ctx context.Context) error {
	logrus.Info("dummy: NudgeUp")
	ts.Lock()
	ts.nudges = append(ts.nudges, "up")
	ts.Unlock()
	return nil
}

func (ts *Dummy) NudgeDown(ctx context.Context) error {
	logrus.Info("dummy: NudgeDown")
	ts.Lock()
	ts.nudges = append(ts.nudges, "down")
	ts.Unlock()
	return nil
}
