package domain

import "time"

// Comment is a single entry in a ticket's conversation log. Comments are
// immutable once created; the helpdesk delivers them newest first.
type Comment struct {
	ID        int64
	AuthorID  int64
	Body      string
	HTMLBody  string
	Public    bool
	CreatedAt time.Time
}
