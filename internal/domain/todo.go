package domain

import (
	"fmt"
	"strings"
	"time"
)

// Domain entities: business objects only.
// No dependency on Gin, the store drivers or Redis.

// TodoList is a named collection of todo items.
type TodoList struct {
	ID          string
	Name        string
	Description *string

	CreatedDate time.Time
	UpdatedDate *time.Time
}

// TodoItem is a single task owned by exactly one list.
type TodoItem struct {
	ID            string
	ListID        string
	Name          string
	Description   *string
	State         *TodoState
	DueDate       *time.Time
	CompletedDate *time.Time

	CreatedDate time.Time
	UpdatedDate *time.Time
}

// TodoState is the lifecycle stage of an item. Any state may move to any other.
type TodoState string

const (
	StateTodo       TodoState = "todo"
	StateInProgress TodoState = "inprogress"
	StateDone       TodoState = "done"
)

// States lists every valid state in declaration order.
var States = []TodoState{StateTodo, StateInProgress, StateDone}

// ParseTodoState parses the lowercase token of a state. Case and surrounding
// whitespace are ignored.
func ParseTodoState(s string) (TodoState, error) {
	switch TodoState(strings.ToLower(strings.TrimSpace(s))) {
	case StateTodo:
		return StateTodo, nil
	case StateInProgress:
		return StateInProgress, nil
	case StateDone:
		return StateDone, nil
	}
	return "", fmt.Errorf("invalid state %q: must be one of todo, inprogress, done", s)
}

func (s TodoState) String() string { return string(s) }

// Valid reports whether s is one of the three known states.
func (s TodoState) Valid() bool {
	switch s {
	case StateTodo, StateInProgress, StateDone:
		return true
	}
	return false
}

func (s TodoState) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid state %q", string(s))
	}
	return []byte(s), nil
}

func (s *TodoState) UnmarshalText(data []byte) error {
	v, err := ParseTodoState(string(data))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Ptr returns a pointer to a copy of s.
func (s TodoState) Ptr() *TodoState { return &s }
