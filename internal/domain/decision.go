package domain

// DecisionAction enumerates the transitions an analyzer can request.
type DecisionAction string

const (
	DecisionActionNone          DecisionAction = "none"
	DecisionActionAwaitCustomer DecisionAction = "await_customer"
	DecisionActionResolve       DecisionAction = "resolve"
	DecisionActionReopen        DecisionAction = "reopen"
	DecisionActionRoute         DecisionAction = "route"
)

// Decision is an analyzer's verdict for one ticket. It is consumed once by
// the processor and never persisted. A decision targeting pending must carry
// a non-zero assignee: the engine never sets pending without an owner.
type Decision struct {
	Matched          bool
	MatchedPhrase    string
	SourceCommentID  int64
	Action           DecisionAction
	TargetStatus     TicketStatus
	TargetAssigneeID int64
	Reason           string
}

// NoMatch is the canonical negative decision.
func NoMatch(reason string) Decision {
	return Decision{Action: DecisionActionNone, Reason: reason}
}
