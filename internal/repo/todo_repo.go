package repo

import (
	"context"
	"errors"
	"sort"
	"time"

	dom "todoapi/internal/domain"

	"github.com/google/uuid"
)

var (
	// ErrNotFound means the list or item does not exist, or the item exists
	// under another list. Backend failures are never reported as ErrNotFound.
	ErrNotFound = errors.New("not found")
	// ErrConflict means the backend rejected a write as a duplicate id.
	ErrConflict = errors.New("conflict")
)

// TodoRepo is the persistence gateway over lists and their items.
// Items are always addressed by (listID, itemID).
type TodoRepo interface {
	CreateList(ctx context.Context, in dom.ListInput) (dom.TodoList, error)
	GetList(ctx context.Context, id string) (dom.TodoList, error)
	ListLists(ctx context.Context, page dom.Page) ([]dom.TodoList, error)
	UpdateList(ctx context.Context, id string, in dom.ListInput) (dom.TodoList, error)
	DeleteList(ctx context.Context, id string) (bool, error)

	CreateItem(ctx context.Context, listID string, in dom.ItemInput) (dom.TodoItem, error)
	GetItem(ctx context.Context, listID, itemID string) (dom.TodoItem, error)
	ListItems(ctx context.Context, listID string, page dom.Page) ([]dom.TodoItem, error)
	ListItemsByState(ctx context.Context, listID string, state dom.TodoState, page dom.Page) ([]dom.TodoItem, error)
	UpdateItem(ctx context.Context, listID, itemID string, in dom.ItemInput) (dom.TodoItem, error)
	UpdateItemsState(ctx context.Context, listID string, itemIDs []string, state dom.TodoState) ([]dom.TodoItem, error)
	DeleteItem(ctx context.Context, listID, itemID string) (bool, error)

	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// Clock returns the current time. Backends stamp createdDate/updatedDate with it.
type Clock func() time.Time

// SystemClock is UTC wall time at millisecond precision, which every backend
// stores losslessly.
func SystemClock() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

func newID() string {
	return uuid.NewString()
}

// normalizeTime brings caller-supplied timestamps to the stored precision.
func normalizeTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC().Truncate(time.Millisecond)
	return &v
}

func newList(in dom.ListInput, now time.Time) dom.TodoList {
	return dom.TodoList{
		ID:          newID(),
		Name:        in.Name,
		Description: in.Description,
		CreatedDate: now,
	}
}

// applyListInput overwrites name and description and stamps updatedDate.
func applyListInput(l dom.TodoList, in dom.ListInput, now time.Time) dom.TodoList {
	l.Name = in.Name
	l.Description = in.Description
	l.UpdatedDate = &now
	return l
}

func newItem(listID string, in dom.ItemInput, now time.Time) dom.TodoItem {
	return dom.TodoItem{
		ID:            newID(),
		ListID:        listID,
		Name:          in.Name,
		Description:   in.Description,
		State:         in.State,
		DueDate:       normalizeTime(in.DueDate),
		CompletedDate: normalizeTime(in.CompletedDate),
		CreatedDate:   now,
	}
}

// mergeItemInput overwrites the name and every optional field present in
// the input; absent optional fields keep the stored value.
func mergeItemInput(it dom.TodoItem, in dom.ItemInput, now time.Time) dom.TodoItem {
	it.Name = in.Name
	if in.Description != nil {
		it.Description = in.Description
	}
	if in.State != nil {
		it.State = in.State
	}
	if in.DueDate != nil {
		it.DueDate = normalizeTime(in.DueDate)
	}
	if in.CompletedDate != nil {
		it.CompletedDate = normalizeTime(in.CompletedDate)
	}
	it.UpdatedDate = &now
	return it
}

func withState(it dom.TodoItem, state dom.TodoState, now time.Time) dom.TodoItem {
	it.State = state.Ptr()
	it.UpdatedDate = &now
	return it
}

// updateEach applies update to every id in order. ErrNotFound skips the id;
// any other error aborts.
func updateEach(ids []string, update func(id string) (dom.TodoItem, error)) ([]dom.TodoItem, error) {
	out := make([]dom.TodoItem, 0, len(ids))
	for _, id := range ids {
		it, err := update(id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, nil
}

// paginate returns the page window of an already ordered slice.
func paginate[T any](all []T, page dom.Page) []T {
	skip := page.Skip
	if skip < 0 {
		skip = 0
	}
	if skip >= len(all) {
		return []T{}
	}
	all = all[skip:]
	if page.Limit > 0 && page.Limit < len(all) {
		all = all[:page.Limit]
	}
	return all
}

func sortLists(lists []dom.TodoList) {
	sort.SliceStable(lists, func(i, j int) bool {
		return createdBefore(lists[i].CreatedDate, lists[i].ID, lists[j].CreatedDate, lists[j].ID)
	})
}

func sortItems(items []dom.TodoItem) {
	sort.SliceStable(items, func(i, j int) bool {
		return createdBefore(items[i].CreatedDate, items[i].ID, items[j].CreatedDate, items[j].ID)
	})
}

func createdBefore(a time.Time, aID string, b time.Time, bID string) bool {
	if !a.Equal(b) {
		return a.Before(b)
	}
	return aID < bID
}
