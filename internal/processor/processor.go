package processor

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/triage-service/internal/analyzer"
	"github.com/spec-kit/triage-service/internal/config"
	"github.com/spec-kit/triage-service/internal/domain"
	"github.com/spec-kit/triage-service/internal/events"
	"github.com/spec-kit/triage-service/internal/helpdesk"
	"github.com/spec-kit/triage-service/internal/observability"
	"github.com/spec-kit/triage-service/internal/repository"
	"github.com/spec-kit/triage-service/internal/store"
)

// Result reports the outcome of one processing attempt.
type Result struct {
	Processed bool                  `json:"processed"`
	Action    domain.DecisionAction `json:"action,omitempty"`
	NewStatus domain.TicketStatus   `json:"new_status,omitempty"`
	Reason    string                `json:"reason,omitempty"`
}

// Processor orchestrates triage for a single ticket: tag-based fast path
// first, then the analyzers in priority order, with backoff-based dedup and
// audit recording.
type Processor struct {
	api        helpdesk.API
	history    *store.HistoryStore
	settings   *store.SettingsStore
	audit      repository.AuditRepository
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	trigger    *analyzer.TriggerAnalyzer
	resolution *analyzer.ResolutionAnalyzer
	cfg        config.TriageConfig
	backoff    time.Duration
	stats      *SessionStats
	now        func() time.Time
}

// Dependencies bundles collaborators for the processor.
type Dependencies struct {
	API        helpdesk.API
	History    *store.HistoryStore
	Settings   *store.SettingsStore
	Audit      repository.AuditRepository
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
	Trigger    *analyzer.TriggerAnalyzer
	Resolution *analyzer.ResolutionAnalyzer
}

// New constructs the processor.
func New(cfg config.TriageConfig, deps Dependencies) *Processor {
	return &Processor{
		api:        deps.API,
		history:    deps.History,
		settings:   deps.Settings,
		audit:      deps.Audit,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
		trigger:    deps.Trigger,
		resolution: deps.Resolution,
		cfg:        cfg,
		backoff:    cfg.BackoffWindow(),
		stats:      NewSessionStats(),
		now:        time.Now,
	}
}

// Stats exposes the in-memory session counters.
func (p *Processor) Stats() *SessionStats {
	return p.stats
}

// Process triages one ticket. Failures are returned to the caller for
// logging; they never write history, so the ticket stays eligible for the
// next cycle.
func (p *Processor) Process(ctx context.Context, ticketID int64, queueName string, provenance domain.AuditProvenance) (Result, error) {
	settings, err := p.settings.Load(ctx)
	if err != nil {
		p.logger.Warn("failed to load settings, using defaults", zap.Error(err))
	}

	ticket, err := p.api.GetTicket(ctx, ticketID)
	if err != nil {
		p.stats.recordError()
		p.metrics.RecordTicketOutcome("fetch", "error")
		return Result{}, fmt.Errorf("fetch ticket %d: %w", ticketID, err)
	}

	if p.cfg.RoutingTag != "" && ticket.HasTag(p.cfg.RoutingTag) {
		return p.routeProvider(ctx, ticket, queueName, settings, provenance)
	}

	comments, err := p.api.ListComments(ctx, ticketID)
	if err != nil {
		p.stats.recordError()
		p.metrics.RecordTicketOutcome("comments", "error")
		return Result{}, fmt.Errorf("fetch comments for ticket %d: %w", ticketID, err)
	}

	if settings.ResolutionOps {
		decision := p.resolution.Analyze(ctx, comments, settings.Phrases.EnabledResolution())
		if decision.Matched {
			return p.applyDecision(ctx, ticket, queueName, decision, settings, provenance, false)
		}
	}

	if settings.AwaitCustomerOps {
		decision := p.trigger.Analyze(ctx, comments, settings.Phrases.EnabledAwaitCustomer())
		if decision.Matched {
			return p.applyDecision(ctx, ticket, queueName, decision, settings, provenance, true)
		}
	}

	// No pattern matched; record the observation so the backoff rule has a
	// baseline status to compare against next cycle.
	if err := p.recordHistory(ctx, ticket.ID, ticket.Status, false); err != nil {
		p.logger.Warn("failed to record history", zap.Int64("ticket_id", ticket.ID), zap.Error(err))
	}
	p.stats.recordSkipped()
	p.metrics.RecordTicketOutcome("analyze", "no_match")
	return Result{Processed: false, Reason: "no matching pattern"}, nil
}

// routeProvider is the provider-tag fast path: group reassignment without
// comment analysis.
func (p *Processor) routeProvider(ctx context.Context, ticket *domain.Ticket, queueName string, settings store.Settings, provenance domain.AuditProvenance) (Result, error) {
	if !settings.RTAOps {
		p.stats.recordSkipped()
		return Result{Processed: false, Reason: "rta operations disabled"}, nil
	}

	entry, err := p.history.Get(ctx, ticket.ID)
	if err != nil {
		p.logger.Warn("history read failed", zap.Int64("ticket_id", ticket.ID), zap.Error(err))
	}
	if !p.eligible(entry, domain.TicketStatusRTA) {
		p.stats.recordSkipped()
		p.metrics.RecordTicketOutcome("route", "backoff")
		return Result{Processed: false, Reason: "backoff window active"}, nil
	}

	groupID := p.cfg.RoutingGroupID
	update := domain.TicketUpdate{GroupID: &groupID}

	if settings.DryRun {
		p.logger.Info("dry run: would reassign ticket to routing group",
			zap.Int64("ticket_id", ticket.ID),
			zap.Int64("group_id", groupID))
		if err := p.recordHistory(ctx, ticket.ID, domain.TicketStatusRTA, false); err != nil {
			p.logger.Warn("failed to record history", zap.Int64("ticket_id", ticket.ID), zap.Error(err))
		}
		p.stats.recordSkipped()
		return Result{Processed: false, Action: domain.DecisionActionRoute, Reason: "dry run"}, nil
	}

	if err := p.api.UpdateTicket(ctx, ticket.ID, update); err != nil {
		p.stats.recordError()
		p.metrics.RecordTicketOutcome("route", "error")
		return Result{}, fmt.Errorf("route ticket %d: %w", ticket.ID, err)
	}

	if err := p.recordHistory(ctx, ticket.ID, domain.TicketStatusRTA, true); err != nil {
		p.logger.Warn("failed to record history", zap.Int64("ticket_id", ticket.ID), zap.Error(err))
	}
	p.writeAudit(ctx, ticket, queueName, domain.Decision{
		Action:       domain.DecisionActionRoute,
		TargetStatus: domain.TicketStatusRTA,
	}, provenance, false)
	p.publishProcessed(ctx, ticket.ID, queueName, Result{
		Processed: true,
		Action:    domain.DecisionActionRoute,
		NewStatus: domain.TicketStatusRTA,
	}, provenance)
	p.stats.recordProcessed(domain.DecisionActionRoute)
	p.metrics.RecordTicketOutcome("route", "processed")
	p.logger.Info("ticket routed to provider group",
		zap.Int64("ticket_id", ticket.ID),
		zap.String("queue", queueName),
		zap.Int64("group_id", groupID))
	return Result{Processed: true, Action: domain.DecisionActionRoute, NewStatus: domain.TicketStatusRTA}, nil
}

// applyDecision turns an analyzer verdict into a helpdesk update, honoring
// backoff, the live-status pre-check, dry-run, and the pending-needs-owner
// invariant.
func (p *Processor) applyDecision(ctx context.Context, ticket *domain.Ticket, queueName string, decision domain.Decision, settings store.Settings, provenance domain.AuditProvenance, checkLiveStatus bool) (Result, error) {
	if decision.TargetStatus == domain.TicketStatusPending && decision.TargetAssigneeID == 0 {
		p.stats.recordSkipped()
		p.logger.Warn("decision targets pending without an assignee, refusing",
			zap.Int64("ticket_id", ticket.ID))
		return Result{Processed: false, Reason: "pending decision lacks assignee"}, nil
	}

	entry, err := p.history.Get(ctx, ticket.ID)
	if err != nil {
		p.logger.Warn("history read failed", zap.Int64("ticket_id", ticket.ID), zap.Error(err))
	}
	if !p.eligible(entry, decision.TargetStatus) {
		p.stats.recordSkipped()
		p.metrics.RecordTicketOutcome(string(decision.Action), "backoff")
		return Result{Processed: false, Reason: "backoff window active"}, nil
	}

	if checkLiveStatus {
		live, err := p.api.GetTicket(ctx, ticket.ID)
		if err != nil {
			p.stats.recordError()
			return Result{}, fmt.Errorf("confirm live status of ticket %d: %w", ticket.ID, err)
		}
		if live.Status == decision.TargetStatus {
			// Record history anyway so the next cycles stop re-querying.
			if err := p.recordHistory(ctx, ticket.ID, decision.TargetStatus, false); err != nil {
				p.logger.Warn("failed to record history", zap.Int64("ticket_id", ticket.ID), zap.Error(err))
			}
			p.stats.recordSkipped()
			p.metrics.RecordTicketOutcome(string(decision.Action), "already_target")
			return Result{Processed: false, Reason: "already in target state"}, nil
		}
		ticket = live
	}

	status := decision.TargetStatus
	update := domain.TicketUpdate{Status: &status}
	if decision.TargetAssigneeID != 0 {
		assignee := decision.TargetAssigneeID
		update.AssigneeID = &assignee
	}
	if status == domain.TicketStatusPending && p.isSpecialQueue(queueName) {
		priority := domain.TicketPriorityNormal
		update.Priority = &priority
	}

	if settings.DryRun {
		p.logger.Info("dry run: would update ticket",
			zap.Int64("ticket_id", ticket.ID),
			zap.String("action", string(decision.Action)),
			zap.String("target_status", string(status)),
			zap.String("phrase", decision.MatchedPhrase))
		if err := p.recordHistory(ctx, ticket.ID, status, false); err != nil {
			p.logger.Warn("failed to record history", zap.Int64("ticket_id", ticket.ID), zap.Error(err))
		}
		p.writeAudit(ctx, ticket, queueName, decision, provenance, true)
		p.stats.recordSkipped()
		return Result{Processed: false, Action: decision.Action, NewStatus: status, Reason: "dry run"}, nil
	}

	if err := p.api.UpdateTicket(ctx, ticket.ID, update); err != nil {
		p.stats.recordError()
		p.metrics.RecordTicketOutcome(string(decision.Action), "error")
		return Result{}, fmt.Errorf("update ticket %d: %w", ticket.ID, err)
	}

	if err := p.recordHistory(ctx, ticket.ID, status, true); err != nil {
		p.logger.Warn("failed to record history", zap.Int64("ticket_id", ticket.ID), zap.Error(err))
	}
	p.writeAudit(ctx, ticket, queueName, decision, provenance, false)
	result := Result{Processed: true, Action: decision.Action, NewStatus: status}
	p.publishProcessed(ctx, ticket.ID, queueName, result, provenance)
	p.stats.recordProcessed(decision.Action)
	p.metrics.RecordTicketOutcome(string(decision.Action), "processed")
	p.logger.Info("ticket updated",
		zap.Int64("ticket_id", ticket.ID),
		zap.String("queue", queueName),
		zap.String("action", string(decision.Action)),
		zap.String("new_status", string(status)),
		zap.String("phrase", decision.MatchedPhrase))
	return result, nil
}

// eligible applies the backoff rule: reprocess only when the observed target
// status differs from the last recorded one, or the backoff window has
// elapsed since the last attempt at the same status.
func (p *Processor) eligible(entry *domain.StatusHistoryEntry, target domain.TicketStatus) bool {
	if entry == nil {
		return true
	}
	if entry.Status != target {
		return true
	}
	return p.now().Sub(entry.LastProcessedAt) >= p.backoff
}

func (p *Processor) recordHistory(ctx context.Context, ticketID int64, status domain.TicketStatus, processed bool) error {
	return p.history.Record(ctx, domain.StatusHistoryEntry{
		TicketID:        ticketID,
		Status:          status,
		LastProcessedAt: p.now(),
		WasProcessed:    processed,
	})
}

func (p *Processor) writeAudit(ctx context.Context, ticket *domain.Ticket, queueName string, decision domain.Decision, provenance domain.AuditProvenance, dryRun bool) {
	if p.audit == nil {
		return
	}
	entry := &domain.AuditEntry{
		ID:         uuid.NewString(),
		TicketID:   ticket.ID,
		QueueName:  queueName,
		Action:     decision.Action,
		OldStatus:  ticket.Status,
		NewStatus:  decision.TargetStatus,
		AssigneeID: decision.TargetAssigneeID,
		Provenance: provenance,
		Reason:     decision.Reason,
		DryRun:     dryRun,
	}
	if err := p.audit.Create(ctx, entry); err != nil {
		p.logger.Warn("failed to write audit entry",
			zap.Int64("ticket_id", ticket.ID),
			zap.Error(err))
	}
}

func (p *Processor) publishProcessed(ctx context.Context, ticketID int64, queueName string, result Result, provenance domain.AuditProvenance) {
	if p.dispatcher == nil {
		return
	}
	_ = p.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventTicketProcessed,
		TicketID:  ticketID,
		Timestamp: p.now(),
		Payload: events.TicketProcessedPayload{
			QueueName:  queueName,
			Processed:  result.Processed,
			Action:     result.Action,
			NewStatus:  result.NewStatus,
			Reason:     result.Reason,
			Provenance: provenance,
		},
	})
}

func (p *Processor) isSpecialQueue(queueName string) bool {
	for _, name := range p.cfg.SpecialQueueNames {
		if name == queueName {
			return true
		}
	}
	return false
}
