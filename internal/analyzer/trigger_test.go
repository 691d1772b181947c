package analyzer

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/triage-service/internal/domain"
)

const (
	opAgentID  int64 = 100
	qaAuthorID int64 = 200
	customerID int64 = 300
	otherAgent int64 = 400
	botID      int64 = 500
)

type fakeUserLookup struct {
	roles map[int64]domain.UserRole
	fail  map[int64]bool
	calls int
}

func (f *fakeUserLookup) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	f.calls++
	if f.fail[id] {
		return nil, errors.New("lookup failed")
	}
	role, ok := f.roles[id]
	if !ok {
		role = domain.UserRoleOther
	}
	return &domain.User{ID: id, Role: role}, nil
}

func defaultLookup() *fakeUserLookup {
	return &fakeUserLookup{
		roles: map[int64]domain.UserRole{
			opAgentID:  domain.UserRoleAgent,
			qaAuthorID: domain.UserRoleAgent,
			customerID: domain.UserRoleEndUser,
			otherAgent: domain.UserRoleAdmin,
			botID:      domain.UserRoleOther,
		},
		fail: map[int64]bool{},
	}
}

func newTestTrigger(users UserLookup, exclusions []string) *TriggerAnalyzer {
	return NewTriggerAnalyzer(users, opAgentID, qaAuthorID, exclusions, zap.NewNop())
}

func comment(id, author int64, body string) domain.Comment {
	return domain.Comment{ID: id, AuthorID: author, Body: body, Public: true, CreatedAt: time.Unix(id, 0)}
}

func qaComment(id int64) domain.Comment {
	return comment(id, qaAuthorID, "Incident Type: billing")
}

var escalation = "we have escalated this to a specialized support team"

func TestTriggerMatchesNewestAgentComment(t *testing.T) {
	a := newTestTrigger(defaultLookup(), nil)
	comments := []domain.Comment{
		comment(3, opAgentID, "We have escalated this to a specialized support team."),
		qaComment(2),
		comment(1, customerID, "my printer is on fire"),
	}

	decision := a.Analyze(context.Background(), comments, []string{escalation})
	if !decision.Matched {
		t.Fatalf("expected match, got reason %q", decision.Reason)
	}
	if decision.Action != domain.DecisionActionAwaitCustomer {
		t.Fatalf("unexpected action %q", decision.Action)
	}
	if decision.TargetStatus != domain.TicketStatusPending {
		t.Fatalf("unexpected target status %q", decision.TargetStatus)
	}
	if decision.TargetAssigneeID != opAgentID {
		t.Fatalf("unexpected assignee %d", decision.TargetAssigneeID)
	}
	if decision.SourceCommentID != 3 {
		t.Fatalf("unexpected source comment %d", decision.SourceCommentID)
	}
}

func TestTriggerRequiresQAAnnotation(t *testing.T) {
	a := newTestTrigger(defaultLookup(), nil)
	comments := []domain.Comment{
		comment(2, opAgentID, "We have escalated this to a specialized support team."),
		comment(1, customerID, "help"),
	}

	decision := a.Analyze(context.Background(), comments, []string{escalation})
	if decision.Matched {
		t.Fatalf("match without qualifying qa comment must be rejected")
	}
}

func TestTriggerQACustomerWordsAnnotationQualifies(t *testing.T) {
	a := newTestTrigger(defaultLookup(), nil)
	comments := []domain.Comment{
		comment(3, opAgentID, "We have escalated this to a specialized support team."),
		comment(2, qaAuthorID, "Customer Words: refund please"),
		comment(1, customerID, "help"),
	}

	if decision := a.Analyze(context.Background(), comments, []string{escalation}); !decision.Matched {
		t.Fatalf("customer-words annotation must qualify, got %q", decision.Reason)
	}
}

func TestTriggerWalksPastCustomerToNearestAgent(t *testing.T) {
	a := newTestTrigger(defaultLookup(), nil)
	comments := []domain.Comment{
		comment(5, customerID, "thanks, waiting"),
		comment(4, customerID, "any update?"),
		comment(3, opAgentID, "We have escalated this to a specialized support team."),
		qaComment(2),
		comment(1, customerID, "help"),
	}

	decision := a.Analyze(context.Background(), comments, []string{escalation})
	if !decision.Matched {
		t.Fatalf("expected match on nearest agent comment, got %q", decision.Reason)
	}
	if decision.SourceCommentID != 3 {
		t.Fatalf("expected comment 3 as source, got %d", decision.SourceCommentID)
	}
}

func TestTriggerWalkStopsAtNearestAgent(t *testing.T) {
	// The nearest agent comment lacks the phrase; an older agent comment with
	// the phrase must not be reached.
	a := newTestTrigger(defaultLookup(), nil)
	comments := []domain.Comment{
		comment(5, customerID, "ok"),
		comment(4, opAgentID, "still looking into it"),
		comment(3, opAgentID, "We have escalated this to a specialized support team."),
		qaComment(2),
		comment(1, customerID, "help"),
	}

	if decision := a.Analyze(context.Background(), comments, []string{escalation}); decision.Matched {
		t.Fatalf("walk must stop at the nearest agent comment")
	}
}

func TestTriggerUnsupportedNewestRole(t *testing.T) {
	a := newTestTrigger(defaultLookup(), nil)
	comments := []domain.Comment{
		comment(3, botID, "automated note"),
		qaComment(2),
		comment(1, opAgentID, "We have escalated this to a specialized support team."),
	}

	if decision := a.Analyze(context.Background(), comments, []string{escalation}); decision.Matched {
		t.Fatalf("newest comment from unsupported role must end the analysis")
	}
}

func TestTriggerLookupFailureTestsNewestDirectly(t *testing.T) {
	lookup := defaultLookup()
	lookup.fail[opAgentID] = true
	a := newTestTrigger(lookup, nil)
	comments := []domain.Comment{
		comment(3, opAgentID, "We have escalated this to a specialized support team."),
		qaComment(2),
		comment(1, customerID, "help"),
	}

	decision := a.Analyze(context.Background(), comments, []string{escalation})
	if !decision.Matched {
		t.Fatalf("lookup failure must degrade to a direct check, got %q", decision.Reason)
	}
}

func TestTriggerExclusionPhraseDiscardsMatch(t *testing.T) {
	a := newTestTrigger(defaultLookup(), []string{"migration tool"})
	comments := []domain.Comment{
		comment(3, opAgentID, "Created by the Migration Tool. We have escalated this to a specialized support team."),
		qaComment(2),
		comment(1, customerID, "help"),
	}

	if decision := a.Analyze(context.Background(), comments, []string{escalation}); decision.Matched {
		t.Fatalf("exclusion phrase must discard the match")
	}
}

func TestTriggerQAAuthoredSourceDiscarded(t *testing.T) {
	a := newTestTrigger(defaultLookup(), nil)
	comments := []domain.Comment{
		comment(3, qaAuthorID, "Incident Type: x. We have escalated this to a specialized support team."),
		comment(1, customerID, "help"),
	}

	if decision := a.Analyze(context.Background(), comments, []string{escalation}); decision.Matched {
		t.Fatalf("qa-authored source comment must be discarded")
	}
}

func TestTriggerNonOperationalAgentDiscarded(t *testing.T) {
	a := newTestTrigger(defaultLookup(), nil)
	comments := []domain.Comment{
		comment(3, otherAgent, "We have escalated this to a specialized support team."),
		qaComment(2),
		comment(1, customerID, "help"),
	}

	if decision := a.Analyze(context.Background(), comments, []string{escalation}); decision.Matched {
		t.Fatalf("agent other than the operational agent must be discarded")
	}
}

func TestTriggerNoComments(t *testing.T) {
	a := newTestTrigger(defaultLookup(), nil)
	if decision := a.Analyze(context.Background(), nil, []string{escalation}); decision.Matched {
		t.Fatalf("empty comment log must not match")
	}
}

func TestTriggerRoleLookupCachedPerPass(t *testing.T) {
	lookup := defaultLookup()
	a := newTestTrigger(lookup, nil)
	comments := []domain.Comment{
		comment(4, customerID, "ping"),
		comment(3, customerID, "ping again"),
		comment(2, opAgentID, "We have escalated this to a specialized support team."),
		qaComment(1),
	}

	if decision := a.Analyze(context.Background(), comments, []string{escalation}); !decision.Matched {
		t.Fatalf("expected match, got %q", decision.Reason)
	}
	// Two distinct authors resolved during the walk; the repeated customer
	// comment must come from the cache.
	if lookup.calls != 2 {
		t.Fatalf("expected 2 lookups, got %d", lookup.calls)
	}
}
