package store

import (
	"sync/atomic"
	"time"

	"zygl/pkg/models"
)

// Snapshot is one immutable generation of the topology. Nothing may write to a
// Snapshot after it has been published.
type Snapshot struct {
	Chassis   [models.ChassisCount]models.Chassis
	Version   uint64
	UpdatedAt time.Time
}

// ChassisByNumber returns the chassis with the given number (1..9).
func (s *Snapshot) ChassisByNumber(number int) (*models.Chassis, bool) {
	if !models.IsValidChassisNumber(number) {
		return nil, false
	}
	return &s.Chassis[number-1], true
}

// BoardByAddress searches every chassis for an address.
func (s *Snapshot) BoardByAddress(address string) (*models.Board, bool) {
	for i := range s.Chassis {
		if board, ok := s.Chassis[i].BoardByAddress(address); ok {
			return board, true
		}
	}
	return nil, false
}

// ChassisStore holds the topology as an atomically swapped snapshot. Readers load
// the current pointer once and never block; the single writer builds a new
// snapshot off to the side and publishes it with one atomic store.
//
// ChassisStore assumes exactly one writer. Concurrent calls to ReplaceAll must be
// serialized by the caller.
type ChassisStore struct {
	current atomic.Pointer[Snapshot]
	now     func() time.Time
}

// NewChassisStore publishes the initial topology as version 1.
func NewChassisStore(initial [models.ChassisCount]models.Chassis) *ChassisStore {
	cs := &ChassisStore{now: time.Now}
	cs.ReplaceAll(initial)
	return cs
}

// Snapshot returns the current generation. The result must be treated as read-only.
func (cs *ChassisStore) Snapshot() *Snapshot {
	return cs.current.Load()
}

// ReplaceAll deep-copies chassis into a new snapshot and publishes it.
func (cs *ChassisStore) ReplaceAll(chassis [models.ChassisCount]models.Chassis) {
	next := &Snapshot{UpdatedAt: cs.now()}
	for i := range chassis {
		next.Chassis[i] = chassis[i].Clone()
	}
	if prev := cs.current.Load(); prev != nil {
		next.Version = prev.Version + 1
	} else {
		next.Version = 1
	}
	cs.current.Store(next)
}

// All returns a deep copy of every chassis that the caller may mutate, which is
// how the writer prepares the next generation.
func (cs *ChassisStore) All() [models.ChassisCount]models.Chassis {
	snap := cs.current.Load()
	var out [models.ChassisCount]models.Chassis
	for i := range snap.Chassis {
		out[i] = snap.Chassis[i].Clone()
	}
	return out
}

// Chassis returns a copy of one chassis.
func (cs *ChassisStore) Chassis(number int) (models.Chassis, error) {
	c, ok := cs.current.Load().ChassisByNumber(number)
	if !ok {
		return models.Chassis{}, InvalidChassisError{Number: number}
	}
	return c.Clone(), nil
}

// Board returns a copy of the board at chassis/slot.
func (cs *ChassisStore) Board(chassis, slot int) (models.Board, bool) {
	c, ok := cs.current.Load().ChassisByNumber(chassis)
	if !ok {
		return models.Board{}, false
	}
	board, ok := c.Board(slot)
	if !ok {
		return models.Board{}, false
	}
	return board.Clone(), true
}

// BoardByAddress returns a copy of the board with the given address.
func (cs *ChassisStore) BoardByAddress(address string) (models.Board, bool) {
	board, ok := cs.current.Load().BoardByAddress(address)
	if !ok {
		return models.Board{}, false
	}
	return board.Clone(), true
}

func (cs *ChassisStore) CountBoards() int {
	return models.ChassisCount * models.SlotsPerChassis
}

func (cs *ChassisStore) CountNormal() int {
	return cs.sum((*models.Chassis).CountNormal)
}

func (cs *ChassisStore) CountAbnormal() int {
	return cs.sum((*models.Chassis).CountAbnormal)
}

func (cs *ChassisStore) CountOffline() int {
	return cs.sum((*models.Chassis).CountOffline)
}

func (cs *ChassisStore) CountTasks() int {
	return cs.sum((*models.Chassis).TotalTasks)
}

func (cs *ChassisStore) Version() uint64 {
	return cs.current.Load().Version
}

func (cs *ChassisStore) sum(f func(*models.Chassis) int) int {
	snap := cs.current.Load()
	total := 0
	for i := range snap.Chassis {
		total += f(&snap.Chassis[i])
	}
	return total
}
