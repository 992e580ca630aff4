package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	dom "todoapi/internal/domain"
	"todoapi/internal/utils"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/data/azcosmos"
)

const (
	cosmosListContainer = "TodoList"
	cosmosItemContainer = "TodoItem"
)

// cosmosList is the stored shape of a list; partition key /id.
type cosmosList struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description *string    `json:"description"`
	CreatedDate time.Time  `json:"createdDate"`
	UpdatedDate *time.Time `json:"updatedDate"`
}

// cosmosItem is the stored shape of an item; partition key /listId.
type cosmosItem struct {
	ID            string     `json:"id"`
	ListID        string     `json:"listId"`
	Name          string     `json:"name"`
	Description   *string    `json:"description"`
	State         *string    `json:"state"`
	DueDate       *time.Time `json:"dueDate"`
	CompletedDate *time.Time `json:"completedDate"`
	CreatedDate   time.Time  `json:"createdDate"`
	UpdatedDate   *time.Time `json:"updatedDate"`
}

// CosmosTodoRepo implements TodoRepo on Azure Cosmos DB for NoSQL.
type CosmosTodoRepo struct {
	client   *azcosmos.Client
	database string
	lists    *azcosmos.ContainerClient
	items    *azcosmos.ContainerClient
	now      Clock
}

// NewCosmosClient connects with a connection string when one is given,
// otherwise with DefaultAzureCredential against endpoint.
func NewCosmosClient(endpoint, connectionString string) (*azcosmos.Client, error) {
	if connectionString != "" {
		c, err := azcosmos.NewClientFromConnectionString(connectionString, nil)
		if err != nil {
			return nil, fmt.Errorf("cosmos client: %w", err)
		}
		return c, nil
	}
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("azure credential: %w", err)
	}
	c, err := azcosmos.NewClient(endpoint, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("cosmos client: %w", err)
	}
	return c, nil
}

// NewCosmosTodoRepo returns a repo over the TodoList and TodoItem containers
// of database. A nil clock means SystemClock.
func NewCosmosTodoRepo(client *azcosmos.Client, database string, now Clock) (*CosmosTodoRepo, error) {
	if now == nil {
		now = SystemClock
	}
	lists, err := client.NewContainer(database, cosmosListContainer)
	if err != nil {
		return nil, fmt.Errorf("cosmos container %s: %w", cosmosListContainer, err)
	}
	items, err := client.NewContainer(database, cosmosItemContainer)
	if err != nil {
		return nil, fmt.Errorf("cosmos container %s: %w", cosmosItemContainer, err)
	}
	return &CosmosTodoRepo{client: client, database: database, lists: lists, items: items, now: now}, nil
}

// EnsureCosmosContainers creates the database and both containers if missing.
func EnsureCosmosContainers(ctx context.Context, client *azcosmos.Client, database string) error {
	_, err := client.CreateDatabase(ctx, azcosmos.DatabaseProperties{ID: database}, nil)
	if err != nil && !utils.IsHTTPStatus(err, http.StatusConflict) {
		return fmt.Errorf("create database %s: %w", database, err)
	}
	db, err := client.NewDatabase(database)
	if err != nil {
		return fmt.Errorf("database %s: %w", database, err)
	}
	containers := []azcosmos.ContainerProperties{
		{ID: cosmosListContainer, PartitionKeyDefinition: azcosmos.PartitionKeyDefinition{Paths: []string{"/id"}}},
		{ID: cosmosItemContainer, PartitionKeyDefinition: azcosmos.PartitionKeyDefinition{Paths: []string{"/listId"}}},
	}
	for _, props := range containers {
		_, err := db.CreateContainer(ctx, props, nil)
		if err != nil && !utils.IsHTTPStatus(err, http.StatusConflict) {
			return fmt.Errorf("create container %s: %w", props.ID, err)
		}
	}
	return nil
}

func (r *CosmosTodoRepo) CreateList(ctx context.Context, in dom.ListInput) (dom.TodoList, error) {
	l := newList(in, r.now())
	body, err := json.Marshal(listToCosmos(l))
	if err != nil {
		return dom.TodoList{}, err
	}
	if _, err := r.lists.CreateItem(ctx, azcosmos.NewPartitionKeyString(l.ID), body, nil); err != nil {
		return dom.TodoList{}, cosmosWriteErr("create list", err)
	}
	return l, nil
}

func (r *CosmosTodoRepo) GetList(ctx context.Context, id string) (dom.TodoList, error) {
	resp, err := r.lists.ReadItem(ctx, azcosmos.NewPartitionKeyString(id), id, nil)
	if err != nil {
		return dom.TodoList{}, cosmosReadErr("get list", err)
	}
	var doc cosmosList
	if err := json.Unmarshal(resp.Value, &doc); err != nil {
		return dom.TodoList{}, fmt.Errorf("decode list: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *CosmosTodoRepo) ListLists(ctx context.Context, page dom.Page) ([]dom.TodoList, error) {
	// Lists span partitions; the empty partition key runs a cross-partition query.
	docs, err := queryAll[cosmosList](ctx, r.lists, "SELECT * FROM c", azcosmos.NewPartitionKey(), nil)
	if err != nil {
		return nil, fmt.Errorf("list lists: %w", err)
	}
	all := make([]dom.TodoList, 0, len(docs))
	for _, d := range docs {
		all = append(all, d.toDomain())
	}
	sortLists(all)
	return paginate(all, page), nil
}

func (r *CosmosTodoRepo) UpdateList(ctx context.Context, id string, in dom.ListInput) (dom.TodoList, error) {
	l, err := r.GetList(ctx, id)
	if err != nil {
		return dom.TodoList{}, err
	}
	l = applyListInput(l, in, r.now())
	body, err := json.Marshal(listToCosmos(l))
	if err != nil {
		return dom.TodoList{}, err
	}
	if _, err := r.lists.ReplaceItem(ctx, azcosmos.NewPartitionKeyString(id), id, body, nil); err != nil {
		return dom.TodoList{}, cosmosReadErr("update list", err)
	}
	return l, nil
}

func (r *CosmosTodoRepo) DeleteList(ctx context.Context, id string) (bool, error) {
	_, err := r.lists.DeleteItem(ctx, azcosmos.NewPartitionKeyString(id), id, nil)
	return cosmosDeleted("delete list", err)
}

func (r *CosmosTodoRepo) CreateItem(ctx context.Context, listID string, in dom.ItemInput) (dom.TodoItem, error) {
	it := newItem(listID, in, r.now())
	body, err := json.Marshal(itemToCosmos(it))
	if err != nil {
		return dom.TodoItem{}, err
	}
	if _, err := r.items.CreateItem(ctx, azcosmos.NewPartitionKeyString(listID), body, nil); err != nil {
		return dom.TodoItem{}, cosmosWriteErr("create item", err)
	}
	return it, nil
}

func (r *CosmosTodoRepo) GetItem(ctx context.Context, listID, itemID string) (dom.TodoItem, error) {
	resp, err := r.items.ReadItem(ctx, azcosmos.NewPartitionKeyString(listID), itemID, nil)
	if err != nil {
		return dom.TodoItem{}, cosmosReadErr("get item", err)
	}
	var doc cosmosItem
	if err := json.Unmarshal(resp.Value, &doc); err != nil {
		return dom.TodoItem{}, fmt.Errorf("decode item: %w", err)
	}
	// The partition read already scopes by list; the check keeps the
	// boundary explicit.
	if doc.ListID != listID {
		return dom.TodoItem{}, ErrNotFound
	}
	return doc.toDomain()
}

func (r *CosmosTodoRepo) ListItems(ctx context.Context, listID string, page dom.Page) ([]dom.TodoItem, error) {
	params := []azcosmos.QueryParameter{{Name: "@listId", Value: listID}}
	return r.queryItems(ctx, "list items", "SELECT * FROM c WHERE c.listId = @listId", listID, params, page)
}

func (r *CosmosTodoRepo) ListItemsByState(ctx context.Context, listID string, state dom.TodoState, page dom.Page) ([]dom.TodoItem, error) {
	params := []azcosmos.QueryParameter{
		{Name: "@listId", Value: listID},
		{Name: "@state", Value: string(state)},
	}
	return r.queryItems(ctx, "list items by state", "SELECT * FROM c WHERE c.listId = @listId AND c.state = @state", listID, params, page)
}

func (r *CosmosTodoRepo) queryItems(ctx context.Context, op, query, listID string, params []azcosmos.QueryParameter, page dom.Page) ([]dom.TodoItem, error) {
	docs, err := queryAll[cosmosItem](ctx, r.items, query, azcosmos.NewPartitionKeyString(listID), params)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	all := make([]dom.TodoItem, 0, len(docs))
	for _, d := range docs {
		it, err := d.toDomain()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		all = append(all, it)
	}
	sortItems(all)
	return paginate(all, page), nil
}

func (r *CosmosTodoRepo) UpdateItem(ctx context.Context, listID, itemID string, in dom.ItemInput) (dom.TodoItem, error) {
	it, err := r.GetItem(ctx, listID, itemID)
	if err != nil {
		return dom.TodoItem{}, err
	}
	return r.replaceItem(ctx, mergeItemInput(it, in, r.now()))
}

func (r *CosmosTodoRepo) UpdateItemsState(ctx context.Context, listID string, itemIDs []string, state dom.TodoState) ([]dom.TodoItem, error) {
	return updateEach(itemIDs, func(id string) (dom.TodoItem, error) {
		it, err := r.GetItem(ctx, listID, id)
		if err != nil {
			return dom.TodoItem{}, err
		}
		return r.replaceItem(ctx, withState(it, state, r.now()))
	})
}

func (r *CosmosTodoRepo) replaceItem(ctx context.Context, it dom.TodoItem) (dom.TodoItem, error) {
	body, err := json.Marshal(itemToCosmos(it))
	if err != nil {
		return dom.TodoItem{}, err
	}
	if _, err := r.items.ReplaceItem(ctx, azcosmos.NewPartitionKeyString(it.ListID), it.ID, body, nil); err != nil {
		return dom.TodoItem{}, cosmosReadErr("update item", err)
	}
	return it, nil
}

func (r *CosmosTodoRepo) DeleteItem(ctx context.Context, listID, itemID string) (bool, error) {
	_, err := r.items.DeleteItem(ctx, azcosmos.NewPartitionKeyString(listID), itemID, nil)
	return cosmosDeleted("delete item", err)
}

func (r *CosmosTodoRepo) Ping(ctx context.Context) error {
	db, err := r.client.NewDatabase(r.database)
	if err != nil {
		return err
	}
	_, err = db.Read(ctx, nil)
	return err
}

func (r *CosmosTodoRepo) Close(ctx context.Context) error { return nil }

func queryAll[T any](ctx context.Context, c *azcosmos.ContainerClient, query string, pk azcosmos.PartitionKey, params []azcosmos.QueryParameter) ([]T, error) {
	pager := c.NewQueryItemsPager(query, pk, &azcosmos.QueryOptions{QueryParameters: params})
	var out []T
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, raw := range resp.Items {
			var doc T
			if err := json.Unmarshal(raw, &doc); err != nil {
				return nil, fmt.Errorf("decode: %w", err)
			}
			out = append(out, doc)
		}
	}
	return out, nil
}

func listToCosmos(l dom.TodoList) cosmosList {
	return cosmosList{
		ID:          l.ID,
		Name:        l.Name,
		Description: l.Description,
		CreatedDate: l.CreatedDate,
		UpdatedDate: l.UpdatedDate,
	}
}

func (d cosmosList) toDomain() dom.TodoList {
	return dom.TodoList{
		ID:          d.ID,
		Name:        d.Name,
		Description: d.Description,
		CreatedDate: d.CreatedDate.UTC(),
		UpdatedDate: utcPtr(d.UpdatedDate),
	}
}

func itemToCosmos(it dom.TodoItem) cosmosItem {
	return cosmosItem{
		ID:            it.ID,
		ListID:        it.ListID,
		Name:          it.Name,
		Description:   it.Description,
		State:         stateArg(it.State),
		DueDate:       it.DueDate,
		CompletedDate: it.CompletedDate,
		CreatedDate:   it.CreatedDate,
		UpdatedDate:   it.UpdatedDate,
	}
}

func (d cosmosItem) toDomain() (dom.TodoItem, error) {
	it := dom.TodoItem{
		ID:            d.ID,
		ListID:        d.ListID,
		Name:          d.Name,
		Description:   d.Description,
		DueDate:       utcPtr(d.DueDate),
		CompletedDate: utcPtr(d.CompletedDate),
		CreatedDate:   d.CreatedDate.UTC(),
		UpdatedDate:   utcPtr(d.UpdatedDate),
	}
	if d.State != nil {
		s, err := dom.ParseTodoState(*d.State)
		if err != nil {
			return dom.TodoItem{}, err
		}
		it.State = &s
	}
	return it, nil
}

func cosmosReadErr(op string, err error) error {
	if utils.IsHTTPStatus(err, http.StatusNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}

func cosmosWriteErr(op string, err error) error {
	if utils.IsHTTPStatus(err, http.StatusConflict) {
		return fmt.Errorf("%s: %w", op, ErrConflict)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func cosmosDeleted(op string, err error) (bool, error) {
	switch {
	case err == nil:
		return true, nil
	case utils.IsHTTPStatus(err, http.StatusNotFound):
		return false, nil
	default:
		return false, fmt.Errorf("%s: %w", op, err)
	}
}
