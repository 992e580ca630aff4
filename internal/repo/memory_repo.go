package repo

import (
	"context"
	"sync"

	dom "todoapi/internal/domain"
)

// MemoryTodoRepo implements TodoRepo in process memory. Results come back
// in insertion order.
type MemoryTodoRepo struct {
	mu    sync.RWMutex
	now   Clock
	lists map[string]dom.TodoList
	order []string
	items map[string]map[string]dom.TodoItem // listID -> itemID -> item
	// per-list insertion order of item ids
	itemOrder map[string][]string
}

// NewMemoryTodoRepo returns an empty in-memory repo. A nil clock means SystemClock.
func NewMemoryTodoRepo(now Clock) *MemoryTodoRepo {
	if now == nil {
		now = SystemClock
	}
	return &MemoryTodoRepo{
		now:       now,
		lists:     make(map[string]dom.TodoList),
		items:     make(map[string]map[string]dom.TodoItem),
		itemOrder: make(map[string][]string),
	}
}

func (r *MemoryTodoRepo) CreateList(ctx context.Context, in dom.ListInput) (dom.TodoList, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l := newList(in, r.now())
	if _, ok := r.lists[l.ID]; ok {
		return dom.TodoList{}, ErrConflict
	}
	r.lists[l.ID] = l
	r.order = append(r.order, l.ID)
	return l, nil
}

func (r *MemoryTodoRepo) GetList(ctx context.Context, id string) (dom.TodoList, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.lists[id]
	if !ok {
		return dom.TodoList{}, ErrNotFound
	}
	return l, nil
}

func (r *MemoryTodoRepo) ListLists(ctx context.Context, page dom.Page) ([]dom.TodoList, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	all := make([]dom.TodoList, 0, len(r.order))
	for _, id := range r.order {
		all = append(all, r.lists[id])
	}
	return paginate(all, page), nil
}

func (r *MemoryTodoRepo) UpdateList(ctx context.Context, id string, in dom.ListInput) (dom.TodoList, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.lists[id]
	if !ok {
		return dom.TodoList{}, ErrNotFound
	}
	l = applyListInput(l, in, r.now())
	r.lists[id] = l
	return l, nil
}

func (r *MemoryTodoRepo) DeleteList(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.lists[id]; !ok {
		return false, nil
	}
	delete(r.lists, id)
	r.order = without(r.order, id)
	return true, nil
}

func (r *MemoryTodoRepo) CreateItem(ctx context.Context, listID string, in dom.ItemInput) (dom.TodoItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	it := newItem(listID, in, r.now())
	part, ok := r.items[listID]
	if !ok {
		part = make(map[string]dom.TodoItem)
		r.items[listID] = part
	}
	if _, dup := part[it.ID]; dup {
		return dom.TodoItem{}, ErrConflict
	}
	part[it.ID] = it
	r.itemOrder[listID] = append(r.itemOrder[listID], it.ID)
	return it, nil
}

func (r *MemoryTodoRepo) GetItem(ctx context.Context, listID, itemID string) (dom.TodoItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.getItemLocked(listID, itemID)
}

func (r *MemoryTodoRepo) getItemLocked(listID, itemID string) (dom.TodoItem, error) {
	it, ok := r.items[listID][itemID]
	if !ok || it.ListID != listID {
		return dom.TodoItem{}, ErrNotFound
	}
	return it, nil
}

func (r *MemoryTodoRepo) ListItems(ctx context.Context, listID string, page dom.Page) ([]dom.TodoItem, error) {
	return r.filterItems(listID, nil, page), nil
}

func (r *MemoryTodoRepo) ListItemsByState(ctx context.Context, listID string, state dom.TodoState, page dom.Page) ([]dom.TodoItem, error) {
	return r.filterItems(listID, &state, page), nil
}

func (r *MemoryTodoRepo) filterItems(listID string, state *dom.TodoState, page dom.Page) []dom.TodoItem {
	r.mu.RLock()
	defer r.mu.RUnlock()
	part := r.items[listID]
	all := make([]dom.TodoItem, 0, len(part))
	for _, id := range r.itemOrder[listID] {
		it := part[id]
		if state != nil && (it.State == nil || *it.State != *state) {
			continue
		}
		all = append(all, it)
	}
	return paginate(all, page)
}

func (r *MemoryTodoRepo) UpdateItem(ctx context.Context, listID, itemID string, in dom.ItemInput) (dom.TodoItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	it, err := r.getItemLocked(listID, itemID)
	if err != nil {
		return dom.TodoItem{}, err
	}
	it = mergeItemInput(it, in, r.now())
	r.items[listID][itemID] = it
	return it, nil
}

func (r *MemoryTodoRepo) UpdateItemsState(ctx context.Context, listID string, itemIDs []string, state dom.TodoState) ([]dom.TodoItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return updateEach(itemIDs, func(id string) (dom.TodoItem, error) {
		it, err := r.getItemLocked(listID, id)
		if err != nil {
			return dom.TodoItem{}, err
		}
		it = withState(it, state, r.now())
		r.items[listID][id] = it
		return it, nil
	})
}

func (r *MemoryTodoRepo) DeleteItem(ctx context.Context, listID, itemID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.getItemLocked(listID, itemID); err != nil {
		return false, nil
	}
	delete(r.items[listID], itemID)
	r.itemOrder[listID] = without(r.itemOrder[listID], itemID)
	return true, nil
}

func (r *MemoryTodoRepo) Ping(ctx context.Context) error { return nil }

func (r *MemoryTodoRepo) Close(ctx context.Context) error { return nil }

func without(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
