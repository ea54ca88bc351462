package store

import (
	"sort"
	"sync"

	"zygl/pkg/models"
)

// StackStore keeps stacks by UUID behind a reader/writer lock. Values going in
// and coming out are deep copies, so callers never share state with the store.
type StackStore struct {
	stacks map[string]*models.Stack
	mu     sync.RWMutex
}

func NewStackStore() *StackStore {
	return &StackStore{stacks: make(map[string]*models.Stack)}
}

// Save upserts one stack.
func (ss *StackStore) Save(stack *models.Stack) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	ss.stacks[stack.UUID] = stack.Clone()
}

// SaveAll upserts every stack under a single lock.
func (ss *StackStore) SaveAll(stacks []*models.Stack) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	for _, stack := range stacks {
		ss.stacks[stack.UUID] = stack.Clone()
	}
}

// ReplaceAll swaps the whole collection; stacks not in the new set are dropped.
func (ss *StackStore) ReplaceAll(stacks []*models.Stack) {
	next := make(map[string]*models.Stack, len(stacks))
	for _, stack := range stacks {
		next[stack.UUID] = stack.Clone()
	}

	ss.mu.Lock()
	defer ss.mu.Unlock()
	ss.stacks = next
}

func (ss *StackStore) Get(uuid string) (*models.Stack, bool) {
	ss.mu.RLock()
	defer ss.mu.RUnlock()

	stack, ok := ss.stacks[uuid]
	if !ok {
		return nil, false
	}
	return stack.Clone(), true
}

// All returns every stack ordered by name, then UUID.
func (ss *StackStore) All() []*models.Stack {
	return ss.filter(func(*models.Stack) bool { return true })
}

// FindByLabel returns the stacks carrying labelUUID.
func (ss *StackStore) FindByLabel(labelUUID string) []*models.Stack {
	return ss.filter(func(s *models.Stack) bool { return s.HasLabel(labelUUID) })
}

// FindTaskResources scans every stack for the task. Task ids are unique across
// the cluster, so the result does not depend on iteration order.
func (ss *StackStore) FindTaskResources(taskID string) (models.ResourceUsage, bool) {
	ss.mu.RLock()
	defer ss.mu.RUnlock()

	for _, stack := range ss.stacks {
		if usage, ok := stack.FindTaskResources(taskID); ok {
			return usage, true
		}
	}
	return models.ResourceUsage{}, false
}

// FindStackByTaskID returns the stack that owns the task.
func (ss *StackStore) FindStackByTaskID(taskID string) (*models.Stack, bool) {
	ss.mu.RLock()
	defer ss.mu.RUnlock()

	for _, stack := range ss.stacks {
		if _, _, ok := stack.FindTask(taskID); ok {
			return stack.Clone(), true
		}
	}
	return nil, false
}

func (ss *StackStore) Remove(uuid string) bool {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	if _, ok := ss.stacks[uuid]; !ok {
		return false
	}
	delete(ss.stacks, uuid)
	return true
}

func (ss *StackStore) Clear() {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	ss.stacks = make(map[string]*models.Stack)
}

func (ss *StackStore) Count() int {
	ss.mu.RLock()
	defer ss.mu.RUnlock()
	return len(ss.stacks)
}

func (ss *StackStore) CountDeployed() int {
	return ss.count(func(s *models.Stack) bool { return s.IsDeployed() })
}

func (ss *StackStore) CountRunningNormally() int {
	return ss.count(func(s *models.Stack) bool { return s.IsRunningNormally() })
}

// CountAbnormal counts deployed stacks that are not running normally.
func (ss *StackStore) CountAbnormal() int {
	return ss.count(func(s *models.Stack) bool { return s.IsDeployed() && !s.IsRunningNormally() })
}

func (ss *StackStore) CountTotalTasks() int {
	ss.mu.RLock()
	defer ss.mu.RUnlock()

	total := 0
	for _, stack := range ss.stacks {
		total += stack.TotalTasks()
	}
	return total
}

func (ss *StackStore) count(match func(*models.Stack) bool) int {
	ss.mu.RLock()
	defer ss.mu.RUnlock()

	n := 0
	for _, stack := range ss.stacks {
		if match(stack) {
			n++
		}
	}
	return n
}

func (ss *StackStore) filter(match func(*models.Stack) bool) []*models.Stack {
	ss.mu.RLock()
	out := make([]*models.Stack, 0, len(ss.stacks))
	for _, stack := range ss.stacks {
		if match(stack) {
			out = append(out, stack.Clone())
		}
	}
	ss.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].UUID < out[j].UUID
	})
	return out
}
