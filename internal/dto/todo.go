package dto

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	dom "todoapi/internal/domain"
)

const dateOnly = "2006-01-02"

// Timestamp parses an optional JSON date as either date-only ("2006-01-02")
// or RFC3339. Date-only is stored as start of that day in UTC. null, "" and
// an absent field all leave it unset.
type Timestamp struct{ t *time.Time }

func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	var raw *string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil || strings.TrimSpace(*raw) == "" {
		ts.t = nil
		return nil
	}
	s := strings.TrimSpace(*raw)
	layouts := []string{
		dateOnly,
		time.RFC3339,
		time.RFC3339Nano,
		"2006-01-02T15:04:05",
	}
	for _, layout := range layouts {
		parsed, err := time.Parse(layout, s)
		if err == nil {
			parsed = parsed.UTC()
			ts.t = &parsed
			return nil
		}
	}
	return fmt.Errorf("invalid date %q: use date (YYYY-MM-DD) or RFC3339 datetime", s)
}

// Ptr returns *time.Time for use in service/domain.
func (ts Timestamp) Ptr() *time.Time { return ts.t }

// NewTimestamp wraps t, mostly for tests.
func NewTimestamp(t time.Time) Timestamp { return Timestamp{t: &t} }

type CreateUpdateTodoList struct {
	Name        string  `json:"name" binding:"required"`
	Description *string `json:"description"`
}

// ListInput converts the request into the domain input.
func (r CreateUpdateTodoList) ListInput() dom.ListInput {
	return dom.ListInput{Name: r.Name, Description: r.Description}
}

type CreateUpdateTodoItem struct {
	Name          string         `json:"name" binding:"required"`
	Description   *string        `json:"description"`
	State         *dom.TodoState `json:"state" swaggertype:"string" enums:"todo,inprogress,done"`
	DueDate       Timestamp      `json:"dueDate" swaggertype:"string" example:"2026-02-19"`
	CompletedDate Timestamp      `json:"completedDate" swaggertype:"string" example:"2026-02-19T10:00:00Z"`
}

// ItemInput converts the request into the domain input. Absent optional
// fields stay nil so an update keeps the stored value.
func (r CreateUpdateTodoItem) ItemInput() dom.ItemInput {
	return dom.ItemInput{
		Name:          r.Name,
		Description:   r.Description,
		State:         r.State,
		DueDate:       r.DueDate.Ptr(),
		CompletedDate: r.CompletedDate.Ptr(),
	}
}

type TodoListResponse struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description *string    `json:"description"`
	CreatedDate time.Time  `json:"createdDate"`
	UpdatedDate *time.Time `json:"updatedDate"`
}

type TodoItemResponse struct {
	ID            string         `json:"id"`
	ListID        string         `json:"listId"`
	Name          string         `json:"name"`
	Description   *string        `json:"description"`
	State         *dom.TodoState `json:"state" swaggertype:"string" enums:"todo,inprogress,done"`
	DueDate       *time.Time     `json:"dueDate"`
	CompletedDate *time.Time     `json:"completedDate"`
	CreatedDate   time.Time      `json:"createdDate"`
	UpdatedDate   *time.Time     `json:"updatedDate"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func ListToResponse(l dom.TodoList) TodoListResponse {
	return TodoListResponse{
		ID:          l.ID,
		Name:        l.Name,
		Description: l.Description,
		CreatedDate: l.CreatedDate,
		UpdatedDate: l.UpdatedDate,
	}
}

func ListsToResponses(lists []dom.TodoList) []TodoListResponse {
	out := make([]TodoListResponse, len(lists))
	for i := range lists {
		out[i] = ListToResponse(lists[i])
	}
	return out
}

func ItemToResponse(it dom.TodoItem) TodoItemResponse {
	return TodoItemResponse{
		ID:            it.ID,
		ListID:        it.ListID,
		Name:          it.Name,
		Description:   it.Description,
		State:         it.State,
		DueDate:       it.DueDate,
		CompletedDate: it.CompletedDate,
		CreatedDate:   it.CreatedDate,
		UpdatedDate:   it.UpdatedDate,
	}
}

func ItemsToResponses(items []dom.TodoItem) []TodoItemResponse {
	out := make([]TodoItemResponse, len(items))
	for i := range items {
		out[i] = ItemToResponse(items[i])
	}
	return out
}
