package analyzer

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/triage-service/internal/domain"
)

// QA annotation markers. A ticket is structurally eligible for the
// await-customer transition only if a QA-authored comment carries one of
// these, case-insensitively.
const (
	qaIncidentMarker = "incident type"
	qaCustomerMarker = "customer words"
)

// TriggerAnalyzer decides whether a ticket's comment log warrants an
// await-customer transition.
type TriggerAnalyzer struct {
	users              UserLookup
	operationalAgentID int64
	qaAuthorID         int64
	exclusionPhrases   []string
	logger             *zap.Logger
}

// NewTriggerAnalyzer constructs the analyzer.
func NewTriggerAnalyzer(users UserLookup, operationalAgentID, qaAuthorID int64, exclusionPhrases []string, logger *zap.Logger) *TriggerAnalyzer {
	return &TriggerAnalyzer{
		users:              users,
		operationalAgentID: operationalAgentID,
		qaAuthorID:         qaAuthorID,
		exclusionPhrases:   exclusionPhrases,
		logger:             logger,
	}
}

// Analyze inspects the comment log, newest first, against the enabled
// await-customer phrases. See the package tests for the walk semantics: when
// the newest comment is from an end-user, only the nearest preceding agent
// comment is tested, and a negative there ends the search.
func (a *TriggerAnalyzer) Analyze(ctx context.Context, comments []domain.Comment, phrases []string) domain.Decision {
	if len(comments) == 0 {
		return domain.NoMatch("no comments")
	}
	if !a.hasQualifyingQAComment(comments) {
		return domain.NoMatch("no qualifying qa comment")
	}

	resolver := newRoleResolver(a.users)
	candidate, reason := a.findCandidate(ctx, comments, resolver)
	if candidate == nil {
		return domain.NoMatch(reason)
	}

	for _, phrase := range phrases {
		strategy, ok := MatchPhrase(*candidate, phrase)
		if !ok {
			continue
		}
		if ContainsAny(*candidate, a.exclusionPhrases) {
			a.logger.Debug("await-customer match discarded by exclusion phrase",
				zap.Int64("comment_id", candidate.ID),
				zap.String("phrase", phrase))
			continue
		}
		if candidate.AuthorID == a.qaAuthorID {
			a.logger.Debug("await-customer match discarded, qa-authored source",
				zap.Int64("comment_id", candidate.ID))
			continue
		}
		if candidate.AuthorID != a.operationalAgentID {
			a.logger.Debug("await-customer match discarded, author not operational agent",
				zap.Int64("comment_id", candidate.ID),
				zap.Int64("author_id", candidate.AuthorID))
			continue
		}
		a.logger.Debug("await-customer phrase matched",
			zap.Int64("comment_id", candidate.ID),
			zap.String("phrase", phrase),
			zap.String("strategy", strategy))
		return domain.Decision{
			Matched:          true,
			MatchedPhrase:    phrase,
			SourceCommentID:  candidate.ID,
			Action:           domain.DecisionActionAwaitCustomer,
			TargetStatus:     domain.TicketStatusPending,
			TargetAssigneeID: a.operationalAgentID,
			Reason:           "await-customer phrase in " + strategy,
		}
	}
	return domain.NoMatch("no enabled phrase matched")
}

// findCandidate picks the single comment eligible for phrase testing.
func (a *TriggerAnalyzer) findCandidate(ctx context.Context, comments []domain.Comment, resolver *roleResolver) (*domain.Comment, string) {
	newest := comments[0]
	role, err := resolver.role(ctx, newest.AuthorID)
	if err != nil {
		// Lookup failure degrades to testing the newest comment directly.
		a.logger.Warn("author role lookup failed, testing newest comment directly",
			zap.Int64("author_id", newest.AuthorID),
			zap.Error(err))
		return &newest, ""
	}

	if role.IsStaff() {
		return &newest, ""
	}
	if role != domain.UserRoleEndUser {
		return nil, "newest comment from unsupported role"
	}

	// Newest is from the customer: walk back to the nearest agent comment.
	// Whatever that comment says settles the question; the walk never
	// continues past it.
	for i := 1; i < len(comments); i++ {
		older := comments[i]
		olderRole, err := resolver.role(ctx, older.AuthorID)
		if err != nil {
			a.logger.Warn("author role lookup failed during walk, testing comment directly",
				zap.Int64("author_id", older.AuthorID),
				zap.Error(err))
			return &older, ""
		}
		if olderRole == domain.UserRoleEndUser {
			continue
		}
		if olderRole.IsStaff() {
			return &older, ""
		}
		return nil, "non-agent comment reached before agent reply"
	}
	return nil, "no agent comment precedes customer reply"
}

// hasQualifyingQAComment gates eligibility: some QA-authored comment must
// carry an incident-type or customer-words annotation.
func (a *TriggerAnalyzer) hasQualifyingQAComment(comments []domain.Comment) bool {
	for _, comment := range comments {
		if comment.AuthorID != a.qaAuthorID {
			continue
		}
		body := strings.ToLower(comment.Body)
		if strings.Contains(body, qaIncidentMarker) || strings.Contains(body, qaCustomerMarker) {
			return true
		}
	}
	return false
}
