package domain

import "time"

// ListInput carries the mutable fields of a list for create and update.
type ListInput struct {
	Name        string
	Description *string
}

// ItemInput carries the mutable fields of an item for create and update.
// On update, nil fields keep the stored value.
type ItemInput struct {
	Name          string
	Description   *string
	State         *TodoState
	DueDate       *time.Time
	CompletedDate *time.Time
}

// Page selects a window of an ordered result: Skip entries are dropped from
// the front, then at most Limit are kept. Limit <= 0 keeps everything.
type Page struct {
	Skip  int
	Limit int
}
