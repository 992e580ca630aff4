package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	dom "todoapi/internal/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoList struct {
	ID          string     `bson:"_id"`
	Name        string     `bson:"name"`
	Description *string    `bson:"description"`
	CreatedDate time.Time  `bson:"createdDate"`
	UpdatedDate *time.Time `bson:"updatedDate"`
}

type mongoItem struct {
	ID            string     `bson:"_id"`
	ListID        string     `bson:"listId"`
	Name          string     `bson:"name"`
	Description   *string    `bson:"description"`
	State         *string    `bson:"state"`
	DueDate       *time.Time `bson:"dueDate"`
	CompletedDate *time.Time `bson:"completedDate"`
	CreatedDate   time.Time  `bson:"createdDate"`
	UpdatedDate   *time.Time `bson:"updatedDate"`
}

// MongoTodoRepo implements TodoRepo on MongoDB (including Cosmos DB for MongoDB).
type MongoTodoRepo struct {
	client *mongo.Client
	lists  *mongo.Collection
	items  *mongo.Collection
	now    Clock
}

// NewMongoClient connects to uri and verifies the connection.
func NewMongoClient(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return client, nil
}

// NewMongoTodoRepo returns a repo over the TodoList and TodoItem collections
// of database and ensures the item lookup index. A nil clock means SystemClock.
func NewMongoTodoRepo(ctx context.Context, client *mongo.Client, database string, now Clock) (*MongoTodoRepo, error) {
	if now == nil {
		now = SystemClock
	}
	db := client.Database(database)
	r := &MongoTodoRepo{
		client: client,
		lists:  db.Collection(cosmosListContainer),
		items:  db.Collection(cosmosItemContainer),
		now:    now,
	}
	_, err := r.items.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "listId", Value: 1}, {Key: "state", Value: 1}},
	})
	if err != nil {
		return nil, fmt.Errorf("mongo index: %w", err)
	}
	return r, nil
}

func (r *MongoTodoRepo) CreateList(ctx context.Context, in dom.ListInput) (dom.TodoList, error) {
	l := newList(in, r.now())
	doc := mongoList{ID: l.ID, Name: l.Name, Description: l.Description, CreatedDate: l.CreatedDate}
	if _, err := r.lists.InsertOne(ctx, doc); err != nil {
		return dom.TodoList{}, mongoWriteErr("create list", err)
	}
	return l, nil
}

func (r *MongoTodoRepo) GetList(ctx context.Context, id string) (dom.TodoList, error) {
	var doc mongoList
	if err := r.lists.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		return dom.TodoList{}, mongoReadErr("get list", err)
	}
	return doc.toDomain(), nil
}

func (r *MongoTodoRepo) ListLists(ctx context.Context, page dom.Page) ([]dom.TodoList, error) {
	cur, err := r.lists.Find(ctx, bson.M{}, findPage(page))
	if err != nil {
		return nil, fmt.Errorf("list lists: %w", err)
	}
	var docs []mongoList
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("list lists: %w", err)
	}
	out := make([]dom.TodoList, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}

func (r *MongoTodoRepo) UpdateList(ctx context.Context, id string, in dom.ListInput) (dom.TodoList, error) {
	update := bson.M{"$set": bson.M{
		"name":        in.Name,
		"description": in.Description,
		"updatedDate": r.now(),
	}}
	var doc mongoList
	err := r.lists.FindOneAndUpdate(ctx, bson.M{"_id": id}, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&doc)
	if err != nil {
		return dom.TodoList{}, mongoReadErr("update list", err)
	}
	return doc.toDomain(), nil
}

func (r *MongoTodoRepo) DeleteList(ctx context.Context, id string) (bool, error) {
	res, err := r.lists.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, fmt.Errorf("delete list: %w", err)
	}
	return res.DeletedCount > 0, nil
}

func (r *MongoTodoRepo) CreateItem(ctx context.Context, listID string, in dom.ItemInput) (dom.TodoItem, error) {
	it := newItem(listID, in, r.now())
	doc := mongoItem{
		ID:            it.ID,
		ListID:        it.ListID,
		Name:          it.Name,
		Description:   it.Description,
		State:         stateArg(it.State),
		DueDate:       it.DueDate,
		CompletedDate: it.CompletedDate,
		CreatedDate:   it.CreatedDate,
	}
	if _, err := r.items.InsertOne(ctx, doc); err != nil {
		return dom.TodoItem{}, mongoWriteErr("create item", err)
	}
	return it, nil
}

func (r *MongoTodoRepo) GetItem(ctx context.Context, listID, itemID string) (dom.TodoItem, error) {
	var doc mongoItem
	if err := r.items.FindOne(ctx, itemFilter(listID, itemID)).Decode(&doc); err != nil {
		return dom.TodoItem{}, mongoReadErr("get item", err)
	}
	return doc.toDomain()
}

func (r *MongoTodoRepo) ListItems(ctx context.Context, listID string, page dom.Page) ([]dom.TodoItem, error) {
	return r.findItems(ctx, "list items", bson.M{"listId": listID}, page)
}

func (r *MongoTodoRepo) ListItemsByState(ctx context.Context, listID string, state dom.TodoState, page dom.Page) ([]dom.TodoItem, error) {
	return r.findItems(ctx, "list items by state", bson.M{"listId": listID, "state": string(state)}, page)
}

func (r *MongoTodoRepo) findItems(ctx context.Context, op string, filter bson.M, page dom.Page) ([]dom.TodoItem, error) {
	cur, err := r.items.Find(ctx, filter, findPage(page))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	var docs []mongoItem
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	out := make([]dom.TodoItem, 0, len(docs))
	for _, d := range docs {
		it, err := d.toDomain()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		out = append(out, it)
	}
	return out, nil
}

func (r *MongoTodoRepo) UpdateItem(ctx context.Context, listID, itemID string, in dom.ItemInput) (dom.TodoItem, error) {
	set := bson.M{"name": in.Name, "updatedDate": r.now()}
	if in.Description != nil {
		set["description"] = *in.Description
	}
	if in.State != nil {
		set["state"] = string(*in.State)
	}
	if in.DueDate != nil {
		set["dueDate"] = *normalizeTime(in.DueDate)
	}
	if in.CompletedDate != nil {
		set["completedDate"] = *normalizeTime(in.CompletedDate)
	}
	return r.updateItem(ctx, "update item", listID, itemID, set)
}

func (r *MongoTodoRepo) UpdateItemsState(ctx context.Context, listID string, itemIDs []string, state dom.TodoState) ([]dom.TodoItem, error) {
	return updateEach(itemIDs, func(id string) (dom.TodoItem, error) {
		set := bson.M{"state": string(state), "updatedDate": r.now()}
		return r.updateItem(ctx, "update item state", listID, id, set)
	})
}

func (r *MongoTodoRepo) updateItem(ctx context.Context, op, listID, itemID string, set bson.M) (dom.TodoItem, error) {
	var doc mongoItem
	err := r.items.FindOneAndUpdate(ctx, itemFilter(listID, itemID), bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&doc)
	if err != nil {
		return dom.TodoItem{}, mongoReadErr(op, err)
	}
	return doc.toDomain()
}

func (r *MongoTodoRepo) DeleteItem(ctx context.Context, listID, itemID string) (bool, error) {
	res, err := r.items.DeleteOne(ctx, itemFilter(listID, itemID))
	if err != nil {
		return false, fmt.Errorf("delete item: %w", err)
	}
	return res.DeletedCount > 0, nil
}

func (r *MongoTodoRepo) Ping(ctx context.Context) error {
	return r.client.Ping(ctx, nil)
}

func (r *MongoTodoRepo) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}

// itemFilter scopes an item lookup to its owning list.
func itemFilter(listID, itemID string) bson.M {
	return bson.M{"_id": itemID, "listId": listID}
}

func findPage(page dom.Page) *options.FindOptions {
	opts := options.Find().SetSort(bson.D{{Key: "createdDate", Value: 1}, {Key: "_id", Value: 1}})
	if page.Skip > 0 {
		opts.SetSkip(int64(page.Skip))
	}
	if page.Limit > 0 {
		opts.SetLimit(int64(page.Limit))
	}
	return opts
}

func (d mongoList) toDomain() dom.TodoList {
	return dom.TodoList{
		ID:          d.ID,
		Name:        d.Name,
		Description: d.Description,
		CreatedDate: d.CreatedDate.UTC(),
		UpdatedDate: utcPtr(d.UpdatedDate),
	}
}

func (d mongoItem) toDomain() (dom.TodoItem, error) {
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

func mongoReadErr(op string, err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}

func mongoWriteErr(op string, err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%s: %w", op, ErrConflict)
	}
	return fmt.Errorf("%s: %w", op, err)
}
