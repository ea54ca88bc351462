package store

import (
	"fmt"

	"zygl/pkg/models"
)

// ChassisReader is the read side of the topology store.
type ChassisReader interface {
	Snapshot() *Snapshot
}

// StackReader is the read side of the workload store.
type StackReader interface {
	All() []*models.Stack
	Get(uuid string) (*models.Stack, bool)
	FindByLabel(labelUUID string) []*models.Stack
	FindTaskResources(taskID string) (models.ResourceUsage, bool)
}

// AlertReader is the read side of the alert store.
type AlertReader interface {
	Unacknowledged() []*models.Alert
	Get(uuid string) (*models.Alert, bool)
}

// NotFoundError names the kind and identity of a missed lookup.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e NotFoundError) Error() string {
	return e.Kind + " not found: " + e.ID
}

// InvalidChassisError is returned for chassis numbers outside 1..9.
type InvalidChassisError struct {
	Number int
}

func (e InvalidChassisError) Error() string {
	return fmt.Sprintf("invalid chassis number %d", e.Number)
}
