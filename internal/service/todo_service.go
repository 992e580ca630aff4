package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"todoapi/internal/cache"
	dom "todoapi/internal/domain"
	"todoapi/internal/repo"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
)

var (
	ErrNotFound     = repo.ErrNotFound
	ErrConflict     = repo.ErrConflict
	ErrInvalidInput = errors.New("invalid input")
)

const tracerName = "todoapi/internal/service"

type TodoService struct {
	repo   repo.TodoRepo
	cache  *cache.TodoCache
	sf     singleflight.Group
	gens   generations
	log    *slog.Logger
	tracer trace.Tracer
}

// NewTodoService creates a TodoService. If c is nil, caching is disabled.
// A nil logger means slog.Default().
func NewTodoService(r repo.TodoRepo, c *cache.TodoCache, log *slog.Logger) *TodoService {
	if log == nil {
		log = slog.Default()
	}
	return &TodoService{
		repo:   r,
		cache:  c,
		log:    log,
		tracer: otel.Tracer(tracerName),
	}
}

func (s *TodoService) CreateList(ctx context.Context, in dom.ListInput) (l dom.TodoList, err error) {
	ctx, span := s.tracer.Start(ctx, "TodoService.CreateList")
	defer func() { endSpan(span, err) }()

	if in, err = normalizeListInput(in); err != nil {
		return dom.TodoList{}, err
	}
	l, err = s.repo.CreateList(ctx, in)
	if err != nil {
		return dom.TodoList{}, err
	}
	span.SetAttributes(attribute.String("todo.list_id", l.ID))
	return l, nil
}

func (s *TodoService) GetList(ctx context.Context, id string) (l dom.TodoList, err error) {
	ctx, span := s.tracer.Start(ctx, "TodoService.GetList", trace.WithAttributes(attribute.String("todo.list_id", id)))
	defer func() { endSpan(span, err) }()

	if s.cache == nil {
		return s.repo.GetList(ctx, id)
	}
	key := listKey(id)
	v, err, _ := s.sf.Do(key, func() (interface{}, error) {
		cached, err := s.cache.GetList(ctx, id)
		if err != nil {
			s.log.WarnContext(ctx, "cache get list", "list_id", id, "error", err)
		} else if cached != nil {
			return *cached, nil
		}
		gen := s.gens.current(key)
		l, err := s.repo.GetList(ctx, id)
		if err != nil {
			return nil, err
		}
		s.gens.fillIf(key, gen, func() {
			if err := s.cache.SetList(ctx, l); err != nil {
				s.log.WarnContext(ctx, "cache set list", "list_id", id, "error", err)
			}
		})
		return l, nil
	})
	if err != nil {
		return dom.TodoList{}, err
	}
	return v.(dom.TodoList), nil
}

func (s *TodoService) ListLists(ctx context.Context, page dom.Page) (out []dom.TodoList, err error) {
	ctx, span := s.tracer.Start(ctx, "TodoService.ListLists", pageAttrs(page))
	defer func() { endSpan(span, err) }()

	if err = validatePage(page); err != nil {
		return nil, err
	}
	return s.repo.ListLists(ctx, page)
}

func (s *TodoService) UpdateList(ctx context.Context, id string, in dom.ListInput) (l dom.TodoList, err error) {
	ctx, span := s.tracer.Start(ctx, "TodoService.UpdateList", trace.WithAttributes(attribute.String("todo.list_id", id)))
	defer func() { endSpan(span, err) }()

	if in, err = normalizeListInput(in); err != nil {
		return dom.TodoList{}, err
	}
	l, err = s.repo.UpdateList(ctx, id, in)
	if err != nil {
		return dom.TodoList{}, err
	}
	s.invalidateList(ctx, id)
	return l, nil
}

// DeleteList removes a list. Its items are left in place.
func (s *TodoService) DeleteList(ctx context.Context, id string) (err error) {
	ctx, span := s.tracer.Start(ctx, "TodoService.DeleteList", trace.WithAttributes(attribute.String("todo.list_id", id)))
	defer func() { endSpan(span, err) }()

	ok, err := s.repo.DeleteList(ctx, id)
	if err != nil {
		return err
	}
	s.invalidateList(ctx, id)
	if !ok {
		return ErrNotFound
	}
	return nil
}

func (s *TodoService) CreateItem(ctx context.Context, listID string, in dom.ItemInput) (it dom.TodoItem, err error) {
	ctx, span := s.tracer.Start(ctx, "TodoService.CreateItem", trace.WithAttributes(attribute.String("todo.list_id", listID)))
	defer func() { endSpan(span, err) }()

	if in, err = normalizeItemInput(in); err != nil {
		return dom.TodoItem{}, err
	}
	it, err = s.repo.CreateItem(ctx, listID, in)
	if err != nil {
		return dom.TodoItem{}, err
	}
	span.SetAttributes(attribute.String("todo.item_id", it.ID))
	return it, nil
}

func (s *TodoService) GetItem(ctx context.Context, listID, itemID string) (it dom.TodoItem, err error) {
	ctx, span := s.tracer.Start(ctx, "TodoService.GetItem", itemAttrs(listID, itemID))
	defer func() { endSpan(span, err) }()

	if s.cache == nil {
		return s.repo.GetItem(ctx, listID, itemID)
	}
	key := itemKey(listID, itemID)
	v, err, _ := s.sf.Do(key, func() (interface{}, error) {
		cached, err := s.cache.GetItem(ctx, listID, itemID)
		if err != nil {
			s.log.WarnContext(ctx, "cache get item", "list_id", listID, "item_id", itemID, "error", err)
		} else if cached != nil {
			return *cached, nil
		}
		gen := s.gens.current(key)
		it, err := s.repo.GetItem(ctx, listID, itemID)
		if err != nil {
			return nil, err
		}
		s.gens.fillIf(key, gen, func() {
			if err := s.cache.SetItem(ctx, it); err != nil {
				s.log.WarnContext(ctx, "cache set item", "list_id", listID, "item_id", itemID, "error", err)
			}
		})
		return it, nil
	})
	if err != nil {
		return dom.TodoItem{}, err
	}
	return v.(dom.TodoItem), nil
}

func (s *TodoService) ListItems(ctx context.Context, listID string, page dom.Page) (out []dom.TodoItem, err error) {
	ctx, span := s.tracer.Start(ctx, "TodoService.ListItems", pageAttrs(page), trace.WithAttributes(attribute.String("todo.list_id", listID)))
	defer func() { endSpan(span, err) }()

	if err = validatePage(page); err != nil {
		return nil, err
	}
	return s.repo.ListItems(ctx, listID, page)
}

func (s *TodoService) ListItemsByState(ctx context.Context, listID string, state dom.TodoState, page dom.Page) (out []dom.TodoItem, err error) {
	ctx, span := s.tracer.Start(ctx, "TodoService.ListItemsByState", pageAttrs(page), trace.WithAttributes(
		attribute.String("todo.list_id", listID),
		attribute.String("todo.state", string(state)),
	))
	defer func() { endSpan(span, err) }()

	if err = validatePage(page); err != nil {
		return nil, err
	}
	if !state.Valid() {
		return nil, fmt.Errorf("%w: unknown state %q", ErrInvalidInput, string(state))
	}
	return s.repo.ListItemsByState(ctx, listID, state, page)
}

// UpdateItem merges in into the stored item: nil optional fields keep their value.
func (s *TodoService) UpdateItem(ctx context.Context, listID, itemID string, in dom.ItemInput) (it dom.TodoItem, err error) {
	ctx, span := s.tracer.Start(ctx, "TodoService.UpdateItem", itemAttrs(listID, itemID))
	defer func() { endSpan(span, err) }()

	if in, err = normalizeItemInput(in); err != nil {
		return dom.TodoItem{}, err
	}
	it, err = s.repo.UpdateItem(ctx, listID, itemID, in)
	if err != nil {
		return dom.TodoItem{}, err
	}
	s.invalidateItems(ctx, listID, itemID)
	return it, nil
}

// UpdateItemsState sets state on every id that resolves under listID and
// returns those items in input order. Unresolved ids are skipped.
func (s *TodoService) UpdateItemsState(ctx context.Context, listID string, itemIDs []string, state dom.TodoState) (out []dom.TodoItem, err error) {
	ctx, span := s.tracer.Start(ctx, "TodoService.UpdateItemsState", trace.WithAttributes(
		attribute.String("todo.list_id", listID),
		attribute.String("todo.state", string(state)),
		attribute.Int("todo.item_count", len(itemIDs)),
	))
	defer func() { endSpan(span, err) }()

	if len(itemIDs) == 0 {
		return nil, fmt.Errorf("%w: no items specified", ErrInvalidInput)
	}
	if !state.Valid() {
		return nil, fmt.Errorf("%w: unknown state %q", ErrInvalidInput, string(state))
	}
	out, err = s.repo.UpdateItemsState(ctx, listID, itemIDs, state)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(out))
	for i, it := range out {
		ids[i] = it.ID
	}
	s.invalidateItems(ctx, listID, ids...)
	span.SetAttributes(attribute.Int("todo.updated_count", len(out)))
	return out, nil
}

func (s *TodoService) DeleteItem(ctx context.Context, listID, itemID string) (err error) {
	ctx, span := s.tracer.Start(ctx, "TodoService.DeleteItem", itemAttrs(listID, itemID))
	defer func() { endSpan(span, err) }()

	ok, err := s.repo.DeleteItem(ctx, listID, itemID)
	if err != nil {
		return err
	}
	s.invalidateItems(ctx, listID, itemID)
	if !ok {
		return ErrNotFound
	}
	return nil
}

// Ping checks the store and, when enabled, the cache.
func (s *TodoService) Ping(ctx context.Context) error {
	if err := s.repo.Ping(ctx); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	if s.cache != nil {
		if err := s.cache.Ping(ctx); err != nil {
			return fmt.Errorf("cache: %w", err)
		}
	}
	return nil
}

// invalidateList marks the write before dropping the key, so a fill that
// read the old row cannot land afterwards.
func (s *TodoService) invalidateList(ctx context.Context, id string) {
	if s.cache == nil {
		return
	}
	s.gens.bump(listKey(id))
	if err := s.cache.DeleteList(ctx, id); err != nil {
		s.log.WarnContext(ctx, "cache invalidate list", "list_id", id, "error", err)
	}
}

func (s *TodoService) invalidateItems(ctx context.Context, listID string, itemIDs ...string) {
	if s.cache == nil {
		return
	}
	for _, id := range itemIDs {
		s.gens.bump(itemKey(listID, id))
	}
	if err := s.cache.DeleteItems(ctx, listID, itemIDs...); err != nil {
		s.log.WarnContext(ctx, "cache invalidate items", "list_id", listID, "error", err)
	}
}

func listKey(id string) string { return "list:" + id }

func itemKey(listID, itemID string) string { return "item:" + listID + ":" + itemID }

func normalizeListInput(in dom.ListInput) (dom.ListInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return in, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	in.Description = trimPtr(in.Description)
	return in, nil
}

func normalizeItemInput(in dom.ItemInput) (dom.ItemInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return in, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if in.State != nil && !in.State.Valid() {
		return in, fmt.Errorf("%w: unknown state %q", ErrInvalidInput, string(*in.State))
	}
	in.Description = trimPtr(in.Description)
	return in, nil
}

func validatePage(page dom.Page) error {
	if page.Skip < 0 || page.Limit < 0 {
		return fmt.Errorf("%w: skip and top must not be negative", ErrInvalidInput)
	}
	return nil
}

func trimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

func pageAttrs(page dom.Page) trace.SpanStartOption {
	return trace.WithAttributes(attribute.Int("todo.skip", page.Skip), attribute.Int("todo.top", page.Limit))
}

func itemAttrs(listID, itemID string) trace.SpanStartOption {
	return trace.WithAttributes(attribute.String("todo.list_id", listID), attribute.String("todo.item_id", itemID))
}

// endSpan records err on span unless it is an expected not-found or input error.
func endSpan(span trace.Span, err error) {
	if err != nil && !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrInvalidInput) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
