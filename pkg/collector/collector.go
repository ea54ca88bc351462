// Package collector polls the backend and publishes what it reports into the
// chassis and stack stores. It is the only writer of either store.
package collector

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"zygl/pkg/backend"
	"zygl/pkg/log"
	"zygl/pkg/models"
	"zygl/pkg/store"
)

const (
	DefaultInterval = 5 * time.Second
	DefaultTimeout  = 10 * time.Second
)

// API is the part of the backend client the collector polls.
type API interface {
	GetBoardInfo(ctx context.Context) ([]backend.BoardInfo, error)
	GetStackInfo(ctx context.Context) ([]backend.StackInfo, error)
}

// Stats summarizes collector activity.
type Stats struct {
	Cycles        uint64    `json:"cycles"`
	BoardFailures uint64    `json:"board_failures"`
	StackFailures uint64    `json:"stack_failures"`
	LastSuccess   time.Time `json:"last_success"`
}

type Collector struct {
	api      API
	chassis  *store.ChassisStore
	stacks   *store.StackStore
	interval time.Duration
	timeout  time.Duration
	logger   zerolog.Logger

	cycles        atomic.Uint64
	boardFailures atomic.Uint64
	stackFailures atomic.Uint64
	lastSuccess   atomic.Int64

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewCollector creates a collector. Non-positive interval and timeout take the defaults.
func NewCollector(api API, chassis *store.ChassisStore, stacks *store.StackStore, interval, timeout time.Duration) *Collector {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Collector{
		api:      api,
		chassis:  chassis,
		stacks:   stacks,
		interval: interval,
		timeout:  timeout,
		logger:   log.Component("collector"),
		stopCh:   make(chan struct{}),
	}
}

// Start runs one collection right away, then one per interval.
func (c *Collector) Start() {
	c.wg.Add(1)
	go c.loop()

	c.logger.Info().Dur("interval", c.interval).Msg("Collector started")
}

// Stop waits for an in-flight cycle to finish. Its requests are not
// cancelled; they complete or hit the cycle timeout.
func (c *Collector) Stop() {
	c.stopOnce.Do(func() { close(c.stopCh) })
	c.wg.Wait()
	c.logger.Info().Msg("Collector stopped")
}

func (c *Collector) loop() {
	defer c.wg.Done()

	c.cycle()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.cycle()
		}
	}
}

func (c *Collector) cycle() {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	_ = c.CollectOnce(ctx)
}

// CollectOnce runs a board and a stack collection. A failure in one does not
// skip the other; the returned error joins both.
func (c *Collector) CollectOnce(ctx context.Context) error {
	c.cycles.Add(1)
	boardErr := c.CollectBoards(ctx)
	stackErr := c.CollectStacks(ctx)
	if boardErr == nil && stackErr == nil {
		c.lastSuccess.Store(time.Now().UnixNano())
	}
	return errors.Join(boardErr, stackErr)
}

// CollectBoards applies a board report to a copy of the current topology and
// publishes it. Boards missing from the report go offline. On error the store
// keeps its last good snapshot.
func (c *Collector) CollectBoards(ctx context.Context) error {
	reports, err := c.api.GetBoardInfo(ctx)
	if err != nil {
		c.boardFailures.Add(1)
		c.logger.Warn().Err(err).Msg("Board collection failed, keeping last snapshot")
		return err
	}

	byAddress := make(map[string]*backend.BoardInfo, len(reports))
	for i := range reports {
		byAddress[reports[i].BoardAddress] = &reports[i]
	}

	next := c.chassis.All()
	seen := make(map[string]struct{}, len(reports))
	for ci := range next {
		for bi := range next[ci].Boards {
			board := &next[ci].Boards[bi]
			report, ok := byAddress[board.Address]
			if !ok {
				board.MarkOffline()
				continue
			}
			seen[board.Address] = struct{}{}
			if err := board.UpdateFromAPI(report.BoardStatus, convertBoardTasks(report.TaskInfos)); err != nil {
				c.logger.Warn().Err(err).
					Str("board", board.Address).
					Int("tasks", len(report.TaskInfos)).
					Msg("Board task list truncated")
			}
		}
	}

	for address := range byAddress {
		if _, ok := seen[address]; !ok {
			c.logger.Debug().Str("board", address).Msg("Backend reported unknown board address")
		}
	}

	c.chassis.ReplaceAll(next)
	c.logger.Debug().
		Int("reported", len(reports)).
		Uint64("version", c.chassis.Version()).
		Msg("Board snapshot published")
	return nil
}

// CollectStacks replaces the stack store with the backend's current view.
func (c *Collector) CollectStacks(ctx context.Context) error {
	reports, err := c.api.GetStackInfo(ctx)
	if err != nil {
		c.stackFailures.Add(1)
		c.logger.Warn().Err(err).Msg("Stack collection failed, keeping last snapshot")
		return err
	}

	stacks := make([]*models.Stack, 0, len(reports))
	for i := range reports {
		stacks = append(stacks, c.convertStack(&reports[i]))
	}
	c.stacks.ReplaceAll(stacks)

	c.logger.Debug().Int("stacks", len(stacks)).Msg("Stack snapshot published")
	return nil
}

func (c *Collector) Stats() Stats {
	stats := Stats{
		Cycles:        c.cycles.Load(),
		BoardFailures: c.boardFailures.Load(),
		StackFailures: c.stackFailures.Load(),
	}
	if ns := c.lastSuccess.Load(); ns != 0 {
		stats.LastSuccess = time.Unix(0, ns)
	}
	return stats
}

func convertBoardTasks(in []backend.BoardTask) []models.TaskSummary {
	if len(in) == 0 {
		return nil
	}
	out := make([]models.TaskSummary, len(in))
	for i, t := range in {
		out[i] = models.TaskSummary{
			TaskID:      t.TaskID,
			Status:      t.TaskStatus,
			ServiceName: t.ServiceName,
			ServiceUUID: t.ServiceUUID,
			StackName:   t.StackName,
			StackUUID:   t.StackUUID,
		}
	}
	return out
}

// convertStack builds a stack and recomputes the derived service and stack
// statuses from the reported tasks. The reported deploy status is kept.
func (c *Collector) convertStack(in *backend.StackInfo) *models.Stack {
	stack := models.NewStack(in.StackUUID, in.StackName)
	stack.DeployStatus = models.StackDeployStatus(in.StackDeployStatus)
	stack.RunningStatus = models.StackRunningStatus(in.StackRunningStatus)

	for _, l := range in.StackLabelInfos {
		if err := stack.AddLabel(models.Label{Name: l.LabelName, UUID: l.LabelUUID}); err != nil {
			c.logger.Warn().Err(err).Str("stack", in.StackUUID).Str("label", l.LabelUUID).Msg("Label dropped")
		}
	}

	for _, si := range in.ServiceInfos {
		svc := models.NewService(si.ServiceUUID, si.ServiceName,
			models.ServiceStatus(si.ServiceStatus), models.ServiceType(si.ServiceType))
		for _, ti := range si.TaskInfos {
			svc.UpsertTask(models.Task{
				ID:     ti.TaskID,
				Status: ti.TaskStatus,
				Resources: models.ResourceUsage{
					CPUCores:    ti.CPUCores,
					CPUUsed:     ti.CPUUsed,
					CPUUsage:    ti.CPUUsage,
					MemorySize:  ti.MemorySize,
					MemoryUsed:  ti.MemoryUsed,
					MemoryUsage: ti.MemoryUsage,
					NetReceive:  ti.NetReceive,
					NetSent:     ti.NetSent,
					GPUMemUsed:  ti.GPUMemUsed,
				},
				Location: models.Location{
					ChassisName:   ti.ChassisName,
					ChassisNumber: ti.ChassisNumber,
					BoardName:     ti.BoardName,
					BoardNumber:   ti.BoardNumber,
					BoardAddress:  ti.BoardAddress,
				},
			})
		}
		stack.UpsertService(svc)
	}

	stack.RecalculateAll()
	return stack
}
