package domain

// Queue is a saved helpdesk view returning a ticket list.
type Queue struct {
	ID   int64
	Name string
}
