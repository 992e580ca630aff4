package cache

import (
	"context"
	"encoding/json"
	"time"

	dom "todoapi/internal/domain"

	"github.com/redis/go-redis/v9"
)

const (
	keyList = "todo:list:"
	keyItem = "todo:item:"
)

// TodoCache caches single lists and items in Redis. Item keys include the
// owning list id, so a cached item is only ever served for its own list.
type TodoCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewTodoCache returns a new TodoCache.
func NewTodoCache(rdb *redis.Client, ttl time.Duration) *TodoCache {
	return &TodoCache{rdb: rdb, ttl: ttl}
}

// GetList returns the cached list or nil on a miss.
func (c *TodoCache) GetList(ctx context.Context, id string) (*dom.TodoList, error) {
	var l dom.TodoList
	ok, err := c.get(ctx, listKey(id), &l)
	if err != nil || !ok {
		return nil, err
	}
	return &l, nil
}

// SetList stores the list in cache.
func (c *TodoCache) SetList(ctx context.Context, l dom.TodoList) error {
	return c.set(ctx, listKey(l.ID), l)
}

// DeleteList drops the cached list.
func (c *TodoCache) DeleteList(ctx context.Context, id string) error {
	return c.rdb.Del(ctx, listKey(id)).Err()
}

// GetItem returns the cached item or nil on a miss.
func (c *TodoCache) GetItem(ctx context.Context, listID, itemID string) (*dom.TodoItem, error) {
	var it dom.TodoItem
	ok, err := c.get(ctx, itemKey(listID, itemID), &it)
	if err != nil || !ok {
		return nil, err
	}
	return &it, nil
}

// SetItem stores the item in cache.
func (c *TodoCache) SetItem(ctx context.Context, it dom.TodoItem) error {
	return c.set(ctx, itemKey(it.ListID, it.ID), it)
}

// DeleteItems drops the cached items of listID.
func (c *TodoCache) DeleteItems(ctx context.Context, listID string, itemIDs ...string) error {
	if len(itemIDs) == 0 {
		return nil
	}
	keys := make([]string, len(itemIDs))
	for i, id := range itemIDs {
		keys[i] = itemKey(listID, id)
	}
	return c.rdb.Del(ctx, keys...).Err()
}

// Ping checks the Redis connection.
func (c *TodoCache) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func (c *TodoCache) get(ctx context.Context, key string, dest any) (bool, error) {
	b, err := c.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(b, dest); err != nil {
		return false, err
	}
	return true, nil
}

func (c *TodoCache) set(ctx context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, key, b, c.ttl).Err()
}

func listKey(id string) string { return keyList + id }

func itemKey(listID, itemID string) string { return keyItem + listID + ":" + itemID }
