package repo

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	dom "todoapi/internal/domain"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestCosmosTodoRepo_Contract requires a Cosmos DB account or emulator in
// TEST_COSMOS_CONNECTION_STRING. Each subtest uses its own throwaway database.
func TestCosmosTodoRepo_Contract(t *testing.T) {
	conn := os.Getenv("TEST_COSMOS_CONNECTION_STRING")
	if conn == "" {
		t.Skip("TEST_COSMOS_CONNECTION_STRING not set")
	}
	client, err := NewCosmosClient("", conn)
	require.NoError(t, err)
	ctx := context.Background()

	runTodoRepoContract(t, func(t *testing.T) TodoRepo {
		name := "todo-test-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
		require.NoError(t, EnsureCosmosContainers(ctx, client, name))
		t.Cleanup(func() {
			if db, err := client.NewDatabase(name); err == nil {
				_, _ = db.Delete(ctx, nil)
			}
		})
		r, err := NewCosmosTodoRepo(client, name, nil)
		require.NoError(t, err)
		return r
	})
}

func TestCosmosErrorClassification(t *testing.T) {
	notFound := &azcore.ResponseError{StatusCode: http.StatusNotFound, ErrorCode: "NotFound"}
	conflict := &azcore.ResponseError{StatusCode: http.StatusConflict, ErrorCode: "Conflict"}
	throttled := &azcore.ResponseError{StatusCode: http.StatusTooManyRequests, ErrorCode: "TooManyRequests"}

	assert.Same(t, ErrNotFound, cosmosReadErr("get list", notFound))
	err := cosmosReadErr("get list", throttled)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.ErrorAs(t, err, new(*azcore.ResponseError))

	assert.ErrorIs(t, cosmosWriteErr("create item", conflict), ErrConflict)
	err = cosmosWriteErr("create item", throttled)
	assert.NotErrorIs(t, err, ErrConflict)
	assert.Contains(t, err.Error(), "create item")

	ok, err := cosmosDeleted("delete list", nil)
	assert.True(t, ok)
	assert.NoError(t, err)

	ok, err = cosmosDeleted("delete list", notFound)
	assert.False(t, ok)
	assert.NoError(t, err)

	ok, err = cosmosDeleted("delete list", throttled)
	assert.False(t, ok)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestCosmosItemDocument(t *testing.T) {
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	due := created.Add(48 * time.Hour)
	it := dom.TodoItem{
		ID:          "i1",
		ListID:      "l1",
		Name:        "Milk",
		Description: strPtr("2 litres"),
		State:       dom.StateInProgress.Ptr(),
		DueDate:     &due,
		CreatedDate: created,
	}

	body, err := json.Marshal(itemToCosmos(it))
	require.NoError(t, err)
	var raw map[string]any
	require.NoError(t, json.Unmarshal(body, &raw))
	assert.Equal(t, "l1", raw["listId"])
	assert.Equal(t, "inprogress", raw["state"])
	assert.Nil(t, raw["completedDate"])

	var doc cosmosItem
	require.NoError(t, json.Unmarshal(body, &doc))
	got, err := doc.toDomain()
	require.NoError(t, err)
	assertSameItem(t, it, got)

	bad := "archived"
	doc.State = &bad
	_, err = doc.toDomain()
	assert.Error(t, err)
}

func TestCosmosListDocument(t *testing.T) {
	plus2 := time.FixedZone("UTC+2", 2*60*60)
	doc := cosmosList{
		ID:          "l1",
		Name:        "Groceries",
		CreatedDate: time.Date(2024, 3, 1, 14, 0, 0, 0, plus2),
	}
	l := doc.toDomain()
	assert.Equal(t, time.UTC, l.CreatedDate.Location())
	assert.Equal(t, 12, l.CreatedDate.Hour())
	assert.Nil(t, l.UpdatedDate)

	body, err := json.Marshal(listToCosmos(l))
	require.NoError(t, err)
	assert.Contains(t, string(body), `"id":"l1"`)
	assert.Contains(t, string(body), `"description":null`)
}
