package monitor

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/triage-service/internal/config"
	"github.com/spec-kit/triage-service/internal/domain"
	"github.com/spec-kit/triage-service/internal/events"
	"github.com/spec-kit/triage-service/internal/helpdesk"
	"github.com/spec-kit/triage-service/internal/processor"
	"github.com/spec-kit/triage-service/internal/store"
)

// State enumerates the monitor lifecycle.
type State string

const (
	StateIdle          State = "idle"
	StateMonitoring    State = "monitoring"
	StateCircuitPaused State = "circuit_paused"
)

// ErrAlreadyRunning reports a Start call while monitoring.
var ErrAlreadyRunning = errors.New("monitor: already running")

// ErrNotRunning reports a Stop call while idle.
var ErrNotRunning = errors.New("monitor: not running")

// TicketProcessor is the slice of the processor the monitor drives.
type TicketProcessor interface {
	Process(ctx context.Context, ticketID int64, queueName string, provenance domain.AuditProvenance) (processor.Result, error)
}

// CycleResetter clears breaker state after a fully successful tick.
// Implemented by the helpdesk client.
type CycleResetter interface {
	ResetCycle()
}

// Pruner removes aged history entries. Run once per session start.
type Pruner interface {
	PruneOlderThan(ctx context.Context, age time.Duration) (int, error)
}

// Monitor polls the configured queues on a timer, diffs membership against
// per-queue baselines, and feeds newly-observed tickets to the processor.
//
// Membership diffing deliberately ignores content changes: a ticket already
// in the baseline is not re-fed this session even if new comments arrived
// (reprocessing on genuine status change is handled by the processor's
// backoff rule). Pending product confirmation whether that throttling is
// intended for the comment-change case.
type Monitor struct {
	api        helpdesk.API
	processor  TicketProcessor
	resetter   CycleResetter
	pruner     Pruner
	sessions   *store.SessionStore
	settings   *store.SettingsStore
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.MonitorConfig

	breakerThreshold int
	cooldown         time.Duration
	retentionAge     time.Duration

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error

	mu           sync.Mutex
	state        State
	cancel       context.CancelFunc
	loopDone     chan struct{}
	queues       []domain.Queue
	baselines    map[int64]map[int64]struct{}
	tickFailures int
	pausedUntil  time.Time
	sessionStart time.Time
	ticks        int64
	observed     int64
	processed    int64
}

// Dependencies bundles collaborators for the monitor.
type Dependencies struct {
	API        helpdesk.API
	Processor  TicketProcessor
	Resetter   CycleResetter
	Pruner     Pruner
	Sessions   *store.SessionStore
	Settings   *store.SettingsStore
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// New constructs an idle monitor.
func New(cfg config.MonitorConfig, helpdeskCfg config.HelpdeskConfig, triageCfg config.TriageConfig, deps Dependencies) *Monitor {
	return &Monitor{
		api:              deps.API,
		processor:        deps.Processor,
		resetter:         deps.Resetter,
		pruner:           deps.Pruner,
		sessions:         deps.Sessions,
		settings:         deps.Settings,
		dispatcher:       deps.Dispatcher,
		logger:           deps.Logger,
		cfg:              cfg,
		breakerThreshold: helpdeskCfg.BreakerThreshold,
		cooldown:         helpdeskCfg.BreakerCooldown(),
		retentionAge:     triageCfg.RetentionAge(),
		now:              time.Now,
		sleep:            sleepCtx,
		state:            StateIdle,
		baselines:        make(map[int64]map[int64]struct{}),
	}
}

// Status is a point-in-time view of the monitor.
type Status struct {
	State        State          `json:"state"`
	Queues       []domain.Queue `json:"queues"`
	Ticks        int64          `json:"ticks"`
	Observed     int64          `json:"observed"`
	Processed    int64          `json:"processed"`
	SessionStart time.Time      `json:"session_start,omitempty"`
	PausedUntil  time.Time      `json:"paused_until,omitempty"`
}

// CurrentStatus reports the monitor state.
func (m *Monitor) CurrentStatus() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Status{
		State:        m.state,
		Queues:       append([]domain.Queue(nil), m.queues...),
		Ticks:        m.ticks,
		Observed:     m.observed,
		Processed:    m.processed,
		SessionStart: m.sessionStart,
		PausedUntil:  m.pausedUntil,
	}
}

// Start validates connectivity, captures per-queue baselines, and begins the
// recurring check. Returns ErrAlreadyRunning when not idle.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.state != StateIdle {
		m.mu.Unlock()
		return ErrAlreadyRunning
	}
	m.mu.Unlock()

	// Connectivity check doubles as queue resolution.
	views, err := m.api.ListViews(ctx)
	if err != nil {
		return err
	}
	queues := m.selectQueues(views)
	if len(queues) == 0 {
		return errors.New("monitor: no configured queues found")
	}

	baselines := make(map[int64]map[int64]struct{}, len(queues))
	for _, queue := range queues {
		ids, err := m.fetchQueueMembership(ctx, queue.ID)
		if err != nil {
			return err
		}
		baselines[queue.ID] = ids
		m.logger.Info("captured queue baseline",
			zap.String("queue", queue.Name),
			zap.Int("tickets", len(ids)))
	}

	if m.pruner != nil && m.retentionAge > 0 {
		if pruned, err := m.pruner.PruneOlderThan(ctx, m.retentionAge); err != nil {
			m.logger.Warn("history pruning failed", zap.Error(err))
		} else if pruned > 0 {
			m.logger.Info("pruned aged history entries", zap.Int("count", pruned))
		}
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	m.mu.Lock()
	m.state = StateMonitoring
	m.cancel = cancel
	m.loopDone = done
	m.queues = queues
	m.baselines = baselines
	m.tickFailures = 0
	m.pausedUntil = time.Time{}
	m.sessionStart = m.now()
	m.ticks, m.observed, m.processed = 0, 0, 0
	m.mu.Unlock()

	interval := m.pollInterval(ctx)
	go m.loop(loopCtx, done, interval)

	m.publish(ctx, events.EventMonitorStarted, nil)
	m.logger.Info("monitoring started",
		zap.Int("queues", len(queues)),
		zap.Duration("interval", interval))
	return nil
}

// Stop cancels the recurring check, lets any in-flight tick finish, and
// records the session.
func (m *Monitor) Stop(ctx context.Context) (domain.SessionRecord, error) {
	m.mu.Lock()
	if m.state == StateIdle {
		m.mu.Unlock()
		return domain.SessionRecord{}, ErrNotRunning
	}
	cancel := m.cancel
	done := m.loopDone
	m.mu.Unlock()

	cancel()
	<-done

	m.mu.Lock()
	record := domain.SessionRecord{
		ID:               uuid.NewString(),
		StartedAt:        m.sessionStart,
		EndedAt:          m.now(),
		Ticks:            m.ticks,
		TicketsObserved:  m.observed,
		TicketsProcessed: m.processed,
	}
	m.state = StateIdle
	m.cancel = nil
	m.loopDone = nil
	m.mu.Unlock()

	if m.sessions != nil {
		if err := m.sessions.Append(ctx, record); err != nil {
			m.logger.Warn("failed to record session", zap.Error(err))
		}
	}
	m.publish(ctx, events.EventMonitorStopped, events.MonitorStoppedPayload{Session: record})
	m.logger.Info("monitoring stopped",
		zap.Duration("duration", record.Duration()),
		zap.Int64("ticks", record.Ticks),
		zap.Int64("processed", record.TicketsProcessed))
	return record, nil
}

func (m *Monitor) loop(ctx context.Context, done chan<- struct{}, interval time.Duration) {
	defer close(done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.tick(ctx)
		}
	}
}

// tick runs one polling cycle: concurrent queue fetches joined all-settled,
// then sequential ticket processing with pacing.
func (m *Monitor) tick(ctx context.Context) {
	m.mu.Lock()
	if m.state == StateCircuitPaused {
		if m.now().Before(m.pausedUntil) {
			m.mu.Unlock()
			return
		}
		m.state = StateMonitoring
		m.tickFailures = 0
		m.mu.Unlock()
		m.publish(ctx, events.EventCircuitResumed, nil)
		m.logger.Info("circuit pause elapsed, resuming monitoring")
	} else {
		m.mu.Unlock()
	}

	m.mu.Lock()
	m.ticks++
	queues := append([]domain.Queue(nil), m.queues...)
	m.mu.Unlock()

	type queueResult struct {
		queue domain.Queue
		ids   map[int64]struct{}
		err   error
	}
	results := make([]queueResult, len(queues))
	var wg sync.WaitGroup
	for i, queue := range queues {
		wg.Add(1)
		go func(i int, queue domain.Queue) {
			defer wg.Done()
			ids, err := m.fetchQueueMembership(ctx, queue.ID)
			results[i] = queueResult{queue: queue, ids: ids, err: err}
		}(i, queue)
	}
	wg.Wait()

	allFailed := true
	for _, result := range results {
		if result.err == nil {
			allFailed = false
			break
		}
	}

	if allFailed {
		for _, result := range results {
			m.logger.Warn("queue fetch failed",
				zap.String("queue", result.queue.Name),
				zap.Error(result.err))
		}
		m.advanceTickFailure(ctx)
		return
	}

	m.mu.Lock()
	m.tickFailures = 0
	m.mu.Unlock()
	if m.resetter != nil {
		m.resetter.ResetCycle()
	}

	for _, result := range results {
		if result.err != nil {
			// Per-queue isolation: one queue's failure does not affect the
			// others in the same tick.
			m.logger.Warn("queue fetch failed",
				zap.String("queue", result.queue.Name),
				zap.Error(result.err))
			continue
		}
		m.processQueue(ctx, result.queue, result.ids)
	}
}

// processQueue diffs the fetched membership against the baseline, processes
// the new tickets sequentially, and replaces the baseline wholesale.
func (m *Monitor) processQueue(ctx context.Context, queue domain.Queue, current map[int64]struct{}) {
	m.mu.Lock()
	baseline := m.baselines[queue.ID]
	m.mu.Unlock()

	var newIDs []int64
	for id := range current {
		if _, seen := baseline[id]; !seen {
			newIDs = append(newIDs, id)
		}
	}

	if len(newIDs) > 0 {
		m.logger.Info("new tickets observed",
			zap.String("queue", queue.Name),
			zap.Int("count", len(newIDs)))
	}

	for i, ticketID := range newIDs {
		if ctx.Err() != nil {
			return
		}
		if i > 0 {
			if err := m.sleep(ctx, m.cfg.TicketPacing()); err != nil {
				return
			}
		}
		m.mu.Lock()
		m.observed++
		m.mu.Unlock()

		result, err := m.processor.Process(ctx, ticketID, queue.Name, domain.ProvenanceAutomatic)
		if err != nil {
			// Per-ticket isolation: log and move on. A rate-limited ticket
			// stays out of the baseline-diff path until its status changes.
			m.logger.Warn("ticket processing failed",
				zap.Int64("ticket_id", ticketID),
				zap.String("queue", queue.Name),
				zap.Error(err))
			continue
		}
		if result.Processed {
			m.mu.Lock()
			m.processed++
			m.mu.Unlock()
		}
	}

	m.mu.Lock()
	m.baselines[queue.ID] = current
	m.mu.Unlock()
}

// advanceTickFailure counts a full-tick failure and pauses when the breaker
// threshold is reached.
func (m *Monitor) advanceTickFailure(ctx context.Context) {
	m.mu.Lock()
	m.tickFailures++
	failures := m.tickFailures
	shouldPause := failures >= m.breakerThreshold && m.state == StateMonitoring
	if shouldPause {
		m.state = StateCircuitPaused
		m.pausedUntil = m.now().Add(m.cooldown)
	}
	m.mu.Unlock()

	if shouldPause {
		m.publish(ctx, events.EventCircuitPaused, nil)
		m.logger.Warn("all queues failing, pausing monitoring",
			zap.Int("consecutive_failures", failures),
			zap.Duration("cooldown", m.cooldown))
	}
}

// fetchQueueMembership pages through a queue's tickets and returns the full
// id set.
func (m *Monitor) fetchQueueMembership(ctx context.Context, queueID int64) (map[int64]struct{}, error) {
	const maxPages = 10
	ids := make(map[int64]struct{})
	for page := 1; page <= maxPages; page++ {
		tickets, hasMore, err := m.api.ListViewTickets(ctx, queueID, page)
		if err != nil {
			return nil, err
		}
		for _, ticket := range tickets {
			ids[ticket.ID] = struct{}{}
		}
		if !hasMore {
			break
		}
	}
	return ids, nil
}

// selectQueues filters fetched views down to the configured names. An empty
// configuration retains every view.
func (m *Monitor) selectQueues(views []domain.Queue) []domain.Queue {
	if len(m.cfg.QueueNames) == 0 {
		return views
	}
	wanted := make(map[string]bool, len(m.cfg.QueueNames))
	for _, name := range m.cfg.QueueNames {
		wanted[name] = true
	}
	var selected []domain.Queue
	for _, view := range views {
		if wanted[view.Name] {
			selected = append(selected, view)
		}
	}
	return selected
}

// pollInterval prefers the operator-adjusted setting over env config.
func (m *Monitor) pollInterval(ctx context.Context) time.Duration {
	interval := m.cfg.PollInterval()
	if m.settings == nil {
		return interval
	}
	settings, err := m.settings.Load(ctx)
	if err != nil || settings.PollIntervalSec == 0 {
		return interval
	}
	adjusted := config.MonitorConfig{PollIntervalSec: settings.PollIntervalSec}
	return adjusted.PollInterval()
}

func (m *Monitor) publish(ctx context.Context, eventType events.EventType, payload any) {
	if m.dispatcher == nil {
		return
	}
	_ = m.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: m.now(),
		Payload:   payload,
	})
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
