package repo

import (
	"context"
	"testing"
	"time"

	dom "todoapi/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ TodoRepo = (*MemoryTodoRepo)(nil)
	_ TodoRepo = (*PGTodoRepo)(nil)
	_ TodoRepo = (*MongoTodoRepo)(nil)
	_ TodoRepo = (*CosmosTodoRepo)(nil)
)

// runTodoRepoContract checks the gateway behaviour every backend must share.
// newRepo must return an empty repo.
func runTodoRepoContract(t *testing.T, newRepo func(t *testing.T) TodoRepo) {
	t.Run("CreateThenGetList", func(t *testing.T) {
		r := newRepo(t)
		ctx := context.Background()

		created, err := r.CreateList(ctx, dom.ListInput{Name: "Groceries", Description: strPtr("weekly")})
		require.NoError(t, err)
		assert.NotEmpty(t, created.ID)
		assert.False(t, created.CreatedDate.IsZero())
		assert.Nil(t, created.UpdatedDate)

		got, err := r.GetList(ctx, created.ID)
		require.NoError(t, err)
		assertSameList(t, created, got)
	})

	t.Run("GetUnknownList", func(t *testing.T) {
		r := newRepo(t)
		_, err := r.GetList(context.Background(), "61958439e0dbd854f5ab9000")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("UpdateList", func(t *testing.T) {
		r := newRepo(t)
		ctx := context.Background()

		created, err := r.CreateList(ctx, dom.ListInput{Name: "Chores", Description: strPtr("home")})
		require.NoError(t, err)

		updated, err := r.UpdateList(ctx, created.ID, dom.ListInput{Name: "Chores Updated"})
		require.NoError(t, err)
		assert.Equal(t, created.ID, updated.ID)
		assert.Equal(t, "Chores Updated", updated.Name)
		assert.Nil(t, updated.Description)
		assert.True(t, created.CreatedDate.Equal(updated.CreatedDate))
		require.NotNil(t, updated.UpdatedDate)

		got, err := r.GetList(ctx, created.ID)
		require.NoError(t, err)
		assertSameList(t, updated, got)

		_, err = r.UpdateList(ctx, "missing", dom.ListInput{Name: "x"})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("DeleteListTwice", func(t *testing.T) {
		r := newRepo(t)
		ctx := context.Background()

		created, err := r.CreateList(ctx, dom.ListInput{Name: "Temp"})
		require.NoError(t, err)

		ok, err := r.DeleteList(ctx, created.ID)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = r.DeleteList(ctx, created.ID)
		require.NoError(t, err)
		assert.False(t, ok)

		_, err = r.GetList(ctx, created.ID)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("ListListsPagination", func(t *testing.T) {
		r := newRepo(t)
		ctx := context.Background()

		for _, name := range []string{"a", "b", "c", "d", "e"} {
			_, err := r.CreateList(ctx, dom.ListInput{Name: name})
			require.NoError(t, err)
		}

		all, err := r.ListLists(ctx, dom.Page{})
		require.NoError(t, err)
		require.Len(t, all, 5)

		again, err := r.ListLists(ctx, dom.Page{})
		require.NoError(t, err)
		assert.Equal(t, listIDs(all), listIDs(again))

		window, err := r.ListLists(ctx, dom.Page{Skip: 1, Limit: 2})
		require.NoError(t, err)
		assert.Equal(t, listIDs(all[1:3]), listIDs(window))

		tail, err := r.ListLists(ctx, dom.Page{Skip: 3})
		require.NoError(t, err)
		assert.Equal(t, listIDs(all[3:]), listIDs(tail))

		past, err := r.ListLists(ctx, dom.Page{Skip: 10})
		require.NoError(t, err)
		assert.Empty(t, past)
	})

	t.Run("GetItemIsScopedByList", func(t *testing.T) {
		r := newRepo(t)
		ctx := context.Background()

		home := mustList(t, r, "home")
		work := mustList(t, r, "work")
		it, err := r.CreateItem(ctx, home.ID, dom.ItemInput{Name: "Dishes"})
		require.NoError(t, err)
		assert.Equal(t, home.ID, it.ListID)
		assert.Nil(t, it.UpdatedDate)

		got, err := r.GetItem(ctx, home.ID, it.ID)
		require.NoError(t, err)
		assertSameItem(t, it, got)

		_, err = r.GetItem(ctx, work.ID, it.ID)
		assert.ErrorIs(t, err, ErrNotFound)

		_, err = r.UpdateItem(ctx, work.ID, it.ID, dom.ItemInput{Name: "hijack"})
		assert.ErrorIs(t, err, ErrNotFound)

		ok, err := r.DeleteItem(ctx, work.ID, it.ID)
		require.NoError(t, err)
		assert.False(t, ok)

		_, err = r.GetItem(ctx, home.ID, it.ID)
		require.NoError(t, err)
	})

	t.Run("ListItemsAndByState", func(t *testing.T) {
		r := newRepo(t)
		ctx := context.Background()

		home := mustList(t, r, "home")
		other := mustList(t, r, "other")
		for i, st := range []*dom.TodoState{dom.StateDone.Ptr(), nil, dom.StateDone.Ptr(), dom.StateTodo.Ptr()} {
			_, err := r.CreateItem(ctx, home.ID, dom.ItemInput{Name: string(rune('a' + i)), State: st})
			require.NoError(t, err)
		}
		_, err := r.CreateItem(ctx, other.ID, dom.ItemInput{Name: "elsewhere", State: dom.StateDone.Ptr()})
		require.NoError(t, err)

		all, err := r.ListItems(ctx, home.ID, dom.Page{})
		require.NoError(t, err)
		require.Len(t, all, 4)
		for _, it := range all {
			assert.Equal(t, home.ID, it.ListID)
		}

		window, err := r.ListItems(ctx, home.ID, dom.Page{Skip: 1, Limit: 2})
		require.NoError(t, err)
		assert.Equal(t, itemIDs(all[1:3]), itemIDs(window))

		done, err := r.ListItemsByState(ctx, home.ID, dom.StateDone, dom.Page{})
		require.NoError(t, err)
		require.Len(t, done, 2)
		for _, it := range done {
			assert.Equal(t, home.ID, it.ListID)
			require.NotNil(t, it.State)
			assert.Equal(t, dom.StateDone, *it.State)
		}

		firstDone, err := r.ListItemsByState(ctx, home.ID, dom.StateDone, dom.Page{Limit: 1})
		require.NoError(t, err)
		assert.Equal(t, itemIDs(done[:1]), itemIDs(firstDone))

		none, err := r.ListItemsByState(ctx, home.ID, dom.StateInProgress, dom.Page{})
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("UpdateItemMergesAbsentFields", func(t *testing.T) {
		r := newRepo(t)
		ctx := context.Background()

		l := mustList(t, r, "home")
		due := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
		completed := time.Date(2030, 1, 3, 0, 0, 0, 0, time.UTC)
		it, err := r.CreateItem(ctx, l.ID, dom.ItemInput{
			Name:          "Taxes",
			Description:   strPtr("file them"),
			State:         dom.StateInProgress.Ptr(),
			DueDate:       &due,
			CompletedDate: &completed,
		})
		require.NoError(t, err)

		updated, err := r.UpdateItem(ctx, l.ID, it.ID, dom.ItemInput{Name: "Taxes 2030"})
		require.NoError(t, err)
		assert.Equal(t, "Taxes 2030", updated.Name)
		assert.Equal(t, strPtr("file them"), updated.Description)
		require.NotNil(t, updated.State)
		assert.Equal(t, dom.StateInProgress, *updated.State)
		require.NotNil(t, updated.DueDate)
		assert.True(t, due.Equal(*updated.DueDate))
		require.NotNil(t, updated.CompletedDate)
		assert.True(t, completed.Equal(*updated.CompletedDate))
		require.NotNil(t, updated.UpdatedDate)

		got, err := r.GetItem(ctx, l.ID, it.ID)
		require.NoError(t, err)
		assertSameItem(t, updated, got)

		moved, err := r.UpdateItem(ctx, l.ID, it.ID, dom.ItemInput{Name: "Taxes 2030", State: dom.StateDone.Ptr()})
		require.NoError(t, err)
		assert.Equal(t, dom.StateDone, *moved.State)
	})

	t.Run("UpdateItemsStateSkipsUnresolved", func(t *testing.T) {
		r := newRepo(t)
		ctx := context.Background()

		home := mustList(t, r, "home")
		work := mustList(t, r, "work")
		id1, err := r.CreateItem(ctx, home.ID, dom.ItemInput{Name: "one"})
		require.NoError(t, err)
		wrongList, err := r.CreateItem(ctx, work.ID, dom.ItemInput{Name: "two"})
		require.NoError(t, err)
		id4, err := r.CreateItem(ctx, home.ID, dom.ItemInput{Name: "four", State: dom.StateTodo.Ptr()})
		require.NoError(t, err)

		out, err := r.UpdateItemsState(ctx, home.ID, []string{id4.ID, wrongList.ID, "unknown", id1.ID}, dom.StateDone)
		require.NoError(t, err)
		require.Len(t, out, 2)
		assert.Equal(t, []string{id4.ID, id1.ID}, itemIDs(out))
		for _, it := range out {
			assert.Equal(t, dom.StateDone, *it.State)
			assert.NotNil(t, it.UpdatedDate)
		}

		untouched, err := r.GetItem(ctx, work.ID, wrongList.ID)
		require.NoError(t, err)
		assert.Nil(t, untouched.State)
		assert.Nil(t, untouched.UpdatedDate)
	})

	t.Run("DeleteItemTwice", func(t *testing.T) {
		r := newRepo(t)
		ctx := context.Background()

		l := mustList(t, r, "home")
		it, err := r.CreateItem(ctx, l.ID, dom.ItemInput{Name: "trash"})
		require.NoError(t, err)

		ok, err := r.DeleteItem(ctx, l.ID, it.ID)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = r.DeleteItem(ctx, l.ID, it.ID)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("DeleteListKeepsItems", func(t *testing.T) {
		r := newRepo(t)
		ctx := context.Background()

		l := mustList(t, r, "home")
		it, err := r.CreateItem(ctx, l.ID, dom.ItemInput{Name: "orphan"})
		require.NoError(t, err)

		ok, err := r.DeleteList(ctx, l.ID)
		require.NoError(t, err)
		require.True(t, ok)

		_, err = r.GetItem(ctx, l.ID, it.ID)
		assert.NoError(t, err)
	})
}

func mustList(t *testing.T, r TodoRepo, name string) dom.TodoList {
	t.Helper()
	l, err := r.CreateList(context.Background(), dom.ListInput{Name: name})
	require.NoError(t, err)
	return l
}

func assertSameList(t *testing.T, want, got dom.TodoList) {
	t.Helper()
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.Name, got.Name)
	assert.Equal(t, want.Description, got.Description)
	assert.True(t, want.CreatedDate.Equal(got.CreatedDate), "createdDate %v != %v", want.CreatedDate, got.CreatedDate)
	assertSameTime(t, want.UpdatedDate, got.UpdatedDate)
}

func assertSameItem(t *testing.T, want, got dom.TodoItem) {
	t.Helper()
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.ListID, got.ListID)
	assert.Equal(t, want.Name, got.Name)
	assert.Equal(t, want.Description, got.Description)
	assert.Equal(t, want.State, got.State)
	assert.True(t, want.CreatedDate.Equal(got.CreatedDate), "createdDate %v != %v", want.CreatedDate, got.CreatedDate)
	assertSameTime(t, want.DueDate, got.DueDate)
	assertSameTime(t, want.CompletedDate, got.CompletedDate)
	assertSameTime(t, want.UpdatedDate, got.UpdatedDate)
}

func assertSameTime(t *testing.T, want, got *time.Time) {
	t.Helper()
	if want == nil || got == nil {
		assert.Equal(t, want == nil, got == nil, "want %v, got %v", want, got)
		return
	}
	assert.True(t, want.Equal(*got), "want %v, got %v", *want, *got)
}

func listIDs(lists []dom.TodoList) []string {
	out := make([]string, len(lists))
	for i, l := range lists {
		out[i] = l.ID
	}
	return out
}

func itemIDs(items []dom.TodoItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func strPtr(s string) *string { return &s }
