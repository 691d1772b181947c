package analyzer

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/triage-service/internal/domain"
)

// ResolutionAnalyzer decides whether a ticket should be resolved or, after a
// customer reply to a resolution, reopened back to the operational agent.
type ResolutionAnalyzer struct {
	users              UserLookup
	operationalAgentID int64
	reviewerID         int64
	logger             *zap.Logger
}

// NewResolutionAnalyzer constructs the analyzer.
func NewResolutionAnalyzer(users UserLookup, operationalAgentID, reviewerID int64, logger *zap.Logger) *ResolutionAnalyzer {
	return &ResolutionAnalyzer{
		users:              users,
		operationalAgentID: operationalAgentID,
		reviewerID:         reviewerID,
		logger:             logger,
	}
}

// Analyze tests three disjoint cases in order: a public resolution comment
// from the operational agent, a private one (checked against that agent's
// previous comment only), and a customer reply arriving after a resolution.
func (a *ResolutionAnalyzer) Analyze(ctx context.Context, comments []domain.Comment, phrases []string) domain.Decision {
	if len(comments) == 0 {
		return domain.NoMatch("no comments")
	}
	newest := comments[0]

	if newest.AuthorID == a.operationalAgentID {
		if newest.Public {
			if phrase, ok := a.matchResolution(newest, phrases); ok {
				return a.resolveDecision(newest, phrase)
			}
			return domain.NoMatch("newest agent comment lacks resolution phrase")
		}
		// Private note: check only the agent's previous comment, then stop.
		for i := 1; i < len(comments); i++ {
			if comments[i].AuthorID != a.operationalAgentID {
				continue
			}
			if phrase, ok := a.matchResolution(comments[i], phrases); ok {
				return a.resolveDecision(comments[i], phrase)
			}
			return domain.NoMatch("previous agent comment lacks resolution phrase")
		}
		return domain.NoMatch("no previous agent comment before private note")
	}

	resolver := newRoleResolver(a.users)
	role, err := resolver.role(ctx, newest.AuthorID)
	if err != nil {
		a.logger.Warn("author role lookup failed, skipping resolution analysis",
			zap.Int64("author_id", newest.AuthorID),
			zap.Error(err))
		return domain.NoMatch("author role unknown")
	}
	if role != domain.UserRoleEndUser {
		return domain.NoMatch("newest comment not from customer or operational agent")
	}

	// Customer replied: walk back to the nearest agent comment. A resolution
	// phrase there means the customer answered a solved ticket, so it goes
	// back to the operational agent.
	for i := 1; i < len(comments); i++ {
		older := comments[i]
		olderRole, err := resolver.role(ctx, older.AuthorID)
		if err != nil {
			a.logger.Warn("author role lookup failed during walk, skipping resolution analysis",
				zap.Int64("author_id", older.AuthorID),
				zap.Error(err))
			return domain.NoMatch("author role unknown during walk")
		}
		if olderRole == domain.UserRoleEndUser {
			continue
		}
		if !olderRole.IsStaff() {
			return domain.NoMatch("non-agent comment reached before agent reply")
		}
		if older.AuthorID != a.operationalAgentID {
			return domain.NoMatch("nearest agent comment from different agent")
		}
		phrase, ok := a.matchResolution(older, phrases)
		if !ok {
			return domain.NoMatch("nearest agent comment lacks resolution phrase")
		}
		return domain.Decision{
			Matched:          true,
			MatchedPhrase:    phrase,
			SourceCommentID:  older.ID,
			Action:           domain.DecisionActionReopen,
			TargetStatus:     domain.TicketStatusPending,
			TargetAssigneeID: a.operationalAgentID,
			Reason:           "customer replied after resolution",
		}
	}
	return domain.NoMatch("no agent comment precedes customer reply")
}

func (a *ResolutionAnalyzer) matchResolution(comment domain.Comment, phrases []string) (string, bool) {
	for _, phrase := range phrases {
		if _, ok := MatchPhrase(comment, phrase); ok {
			return phrase, true
		}
	}
	return "", false
}

func (a *ResolutionAnalyzer) resolveDecision(comment domain.Comment, phrase string) domain.Decision {
	return domain.Decision{
		Matched:          true,
		MatchedPhrase:    phrase,
		SourceCommentID:  comment.ID,
		Action:           domain.DecisionActionResolve,
		TargetStatus:     domain.TicketStatusSolved,
		TargetAssigneeID: a.reviewerID,
		Reason:           "resolution phrase in agent comment",
	}
}
