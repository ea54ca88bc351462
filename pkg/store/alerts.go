package store

import (
	"sort"
	"sync"
	"time"

	"zygl/pkg/models"
)

// DefaultAlertMaxAge is how long an acknowledged alert is kept before the sweep.
const DefaultAlertMaxAge = 24 * time.Hour

// AlertStore keeps alerts by UUID behind a reader/writer lock.
type AlertStore struct {
	alerts map[string]*models.Alert
	mu     sync.RWMutex
}

func NewAlertStore() *AlertStore {
	return &AlertStore{alerts: make(map[string]*models.Alert)}
}

// Save upserts an alert.
func (as *AlertStore) Save(alert *models.Alert) {
	as.mu.Lock()
	defer as.mu.Unlock()
	as.alerts[alert.UUID] = alert.Clone()
}

func (as *AlertStore) Get(uuid string) (*models.Alert, bool) {
	as.mu.RLock()
	defer as.mu.RUnlock()

	alert, ok := as.alerts[uuid]
	if !ok {
		return nil, false
	}
	return alert.Clone(), true
}

// All returns every alert, newest first.
func (as *AlertStore) All() []*models.Alert {
	return as.filter(func(*models.Alert) bool { return true })
}

func (as *AlertStore) Unacknowledged() []*models.Alert {
	return as.filter(func(a *models.Alert) bool { return !a.Acknowledged })
}

func (as *AlertStore) ByType(typ models.AlertType) []*models.Alert {
	return as.filter(func(a *models.Alert) bool { return a.Type == typ })
}

// ByEntity matches the related entity: a board address or a task id.
func (as *AlertStore) ByEntity(entity string) []*models.Alert {
	return as.filter(func(a *models.Alert) bool { return a.RelatedEntity == entity })
}

func (as *AlertStore) ByBoardAddress(address string) []*models.Alert {
	return as.filter(func(a *models.Alert) bool { return a.Location.BoardAddress == address })
}

func (as *AlertStore) ByStackUUID(stackUUID string) []*models.Alert {
	return as.filter(func(a *models.Alert) bool { return a.StackUUID == stackUUID })
}

// Acknowledge marks one alert. Acknowledging twice is not an error.
func (as *AlertStore) Acknowledge(uuid string) bool {
	as.mu.Lock()
	defer as.mu.Unlock()

	alert, ok := as.alerts[uuid]
	if !ok {
		return false
	}
	alert.Acknowledge()
	return true
}

// AcknowledgeMany returns how many of the ids existed.
func (as *AlertStore) AcknowledgeMany(uuids []string) int {
	as.mu.Lock()
	defer as.mu.Unlock()

	n := 0
	for _, uuid := range uuids {
		if alert, ok := as.alerts[uuid]; ok {
			alert.Acknowledge()
			n++
		}
	}
	return n
}

func (as *AlertStore) Unacknowledge(uuid string) bool {
	as.mu.Lock()
	defer as.mu.Unlock()

	alert, ok := as.alerts[uuid]
	if !ok {
		return false
	}
	alert.Unacknowledge()
	return true
}

func (as *AlertStore) Remove(uuid string) bool {
	as.mu.Lock()
	defer as.mu.Unlock()

	if _, ok := as.alerts[uuid]; !ok {
		return false
	}
	delete(as.alerts, uuid)
	return true
}

// RemoveExpired deletes acknowledged alerts older than maxAge at now. Unacknowledged
// alerts are never removed, whatever their age.
func (as *AlertStore) RemoveExpired(maxAge time.Duration, now time.Time) int {
	as.mu.Lock()
	defer as.mu.Unlock()

	removed := 0
	for uuid, alert := range as.alerts {
		if alert.Acknowledged && alert.AgeAt(now) > maxAge {
			delete(as.alerts, uuid)
			removed++
		}
	}
	return removed
}

func (as *AlertStore) Clear() {
	as.mu.Lock()
	defer as.mu.Unlock()
	as.alerts = make(map[string]*models.Alert)
}

func (as *AlertStore) Count() int {
	as.mu.RLock()
	defer as.mu.RUnlock()
	return len(as.alerts)
}

func (as *AlertStore) CountUnacknowledged() int {
	return as.count(func(a *models.Alert) bool { return !a.Acknowledged })
}

func (as *AlertStore) CountBoardAlerts() int {
	return as.count((*models.Alert).IsBoardAlert)
}

func (as *AlertStore) CountComponentAlerts() int {
	return as.count((*models.Alert).IsComponentAlert)
}

func (as *AlertStore) count(match func(*models.Alert) bool) int {
	as.mu.RLock()
	defer as.mu.RUnlock()

	n := 0
	for _, alert := range as.alerts {
		if match(alert) {
			n++
		}
	}
	return n
}

func (as *AlertStore) filter(match func(*models.Alert) bool) []*models.Alert {
	as.mu.RLock()
	out := make([]*models.Alert, 0, len(as.alerts))
	for _, alert := range as.alerts {
		if match(alert) {
			out = append(out, alert.Clone())
		}
	}
	as.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].UUID < out[j].UUID
	})
	return out
}
