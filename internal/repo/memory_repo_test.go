package repo

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	dom "todoapi/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryTodoRepo_Contract(t *testing.T) {
	runTodoRepoContract(t, func(t *testing.T) TodoRepo {
		return NewMemoryTodoRepo(nil)
	})
}

func TestMemoryTodoRepo_InsertionOrder(t *testing.T) {
	r := NewMemoryTodoRepo(func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) })
	ctx := context.Background()

	var want []string
	for i := 0; i < 4; i++ {
		l, err := r.CreateList(ctx, dom.ListInput{Name: fmt.Sprintf("list %d", i)})
		require.NoError(t, err)
		want = append(want, l.ID)
	}
	got, err := r.ListLists(ctx, dom.Page{})
	require.NoError(t, err)
	assert.Equal(t, want, listIDs(got))

	_, err = r.DeleteList(ctx, want[1])
	require.NoError(t, err)
	got, err = r.ListLists(ctx, dom.Page{})
	require.NoError(t, err)
	assert.Equal(t, []string{want[0], want[2], want[3]}, listIDs(got))
}

func TestMemoryTodoRepo_StampsClock(t *testing.T) {
	now := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	r := NewMemoryTodoRepo(func() time.Time { return now })
	ctx := context.Background()

	l, err := r.CreateList(ctx, dom.ListInput{Name: "x"})
	require.NoError(t, err)
	assert.Equal(t, now, l.CreatedDate)

	now = now.Add(time.Hour)
	l, err = r.UpdateList(ctx, l.ID, dom.ListInput{Name: "y"})
	require.NoError(t, err)
	require.NotNil(t, l.UpdatedDate)
	assert.Equal(t, now, *l.UpdatedDate)
}

func TestMemoryTodoRepo_ConcurrentWrites(t *testing.T) {
	r := NewMemoryTodoRepo(nil)
	ctx := context.Background()
	l := mustList(t, r, "busy")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			it, err := r.CreateItem(ctx, l.ID, dom.ItemInput{Name: fmt.Sprintf("item %d", i)})
			if err != nil {
				t.Error(err)
				return
			}
			if _, err := r.UpdateItemsState(ctx, l.ID, []string{it.ID}, dom.StateDone); err != nil {
				t.Error(err)
			}
		}(i)
	}
	wg.Wait()

	done, err := r.ListItemsByState(ctx, l.ID, dom.StateDone, dom.Page{})
	require.NoError(t, err)
	assert.Len(t, done, 50)
}

func TestPaginate(t *testing.T) {
	all := []int{0, 1, 2, 3, 4}
	tests := []struct {
		name string
		page dom.Page
		want []int
	}{
		{name: "everything", page: dom.Page{}, want: []int{0, 1, 2, 3, 4}},
		{name: "window", page: dom.Page{Skip: 1, Limit: 2}, want: []int{1, 2}},
		{name: "skip only", page: dom.Page{Skip: 3}, want: []int{3, 4}},
		{name: "limit past end", page: dom.Page{Skip: 4, Limit: 10}, want: []int{4}},
		{name: "skip past end", page: dom.Page{Skip: 5}, want: []int{}},
		{name: "negative skip", page: dom.Page{Skip: -2, Limit: 1}, want: []int{0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, paginate(all, tt.page))
		})
	}
}

func TestMergeItemInput(t *testing.T) {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	due := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	it := dom.TodoItem{
		ID:          "i1",
		ListID:      "l1",
		Name:        "old",
		Description: strPtr("keep"),
		State:       dom.StateTodo.Ptr(),
		DueDate:     &due,
		CreatedDate: created,
	}
	now := created.Add(time.Hour)

	got := mergeItemInput(it, dom.ItemInput{Name: "new"}, now)
	assert.Equal(t, "new", got.Name)
	assert.Equal(t, strPtr("keep"), got.Description)
	assert.Equal(t, dom.StateTodo, *got.State)
	assert.Equal(t, &due, got.DueDate)
	assert.Nil(t, got.CompletedDate)
	assert.Equal(t, &now, got.UpdatedDate)
	assert.Equal(t, "i1", got.ID)
	assert.Equal(t, "l1", got.ListID)
	assert.Equal(t, created, got.CreatedDate)
}

func TestNormalizeTime(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	in := time.Date(2024, 3, 4, 12, 0, 0, 123456789, loc)
	got := normalizeTime(&in)
	require.NotNil(t, got)
	assert.Equal(t, time.UTC, got.Location())
	assert.Equal(t, 123000000, got.Nanosecond())
	assert.True(t, in.Truncate(time.Millisecond).Equal(*got))
	assert.Nil(t, normalizeTime(nil))
}
