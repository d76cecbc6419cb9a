package alarm

import "sync"

// ActiveAlarms tracks currently raised conditions, fuse overloads and
// failed price fetches among them, so each is alerted once until
// cleared.
type ActiveAlarms struct {
	activeAlarms []string
	sync.RWMutex
}

// Add adds string to alarm list and returns true if it was added. returns false if it already exists.
func (a *ActiveAlarms) Add(alarm string) bool {
	a.Lock()
	defer a.Unlock()
	for _, activeAlarm := range a.activeAlarms {
		if activeAlarm == alarm {
			return false
		}
	}

	a.activeAlarms = append(a.activeAlarms, alarm)
	return true
}

// List returns a copy of the active alarms.
func (a *ActiveAlarms) List() []string {
	a.RLock()
	defer a.RUnlock()
	return append([]string(nil), a.activeAlarms...)
}

func (a *ActiveAlarms) Clear() bool {
	hasActive := false
	a.Lock()
	if len(a.activeAlarms) > 0 {
		hasActive = true
		a.activeAlarms = nil
	}
	a.Unlock()
	return hasActive
}
