package repo

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"time"

	dom "todoapi/internal/domain"
	"todoapi/internal/utils"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var pgMigrations embed.FS

const (
	listColumns = `id, name, description, created_date, updated_date`
	itemColumns = `id, list_id, name, description, state, due_date, completed_date, created_date, updated_date`
)

// PGTodoRepo implements TodoRepo with Postgres.
type PGTodoRepo struct {
	db  *pgxpool.Pool
	now Clock
}

// NewPGTodoRepo returns a new PGTodoRepo. A nil clock means SystemClock.
func NewPGTodoRepo(db *pgxpool.Pool, now Clock) *PGTodoRepo {
	if now == nil {
		now = SystemClock
	}
	return &PGTodoRepo{db: db, now: now}
}

// MigratePG applies the embedded goose migrations to the database at dsn.
func MigratePG(dsn string) error {
	db, err := goose.OpenDBWithDriver("pgx", dsn)
	if err != nil {
		return fmt.Errorf("goose open db: %w", err)
	}
	defer db.Close()

	goose.SetBaseFS(pgMigrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

func (r *PGTodoRepo) CreateList(ctx context.Context, in dom.ListInput) (dom.TodoList, error) {
	l := newList(in, r.now())
	query := `
		INSERT INTO todo_lists (id, name, description, created_date)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + listColumns
	out, err := scanList(r.db.QueryRow(ctx, query, l.ID, l.Name, l.Description, l.CreatedDate))
	if err != nil {
		return dom.TodoList{}, pgWriteErr("create list", err)
	}
	return out, nil
}

func (r *PGTodoRepo) GetList(ctx context.Context, id string) (dom.TodoList, error) {
	query := `SELECT ` + listColumns + ` FROM todo_lists WHERE id = $1`
	l, err := scanList(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return dom.TodoList{}, pgReadErr("get list", err)
	}
	return l, nil
}

func (r *PGTodoRepo) ListLists(ctx context.Context, page dom.Page) ([]dom.TodoList, error) {
	query := `SELECT ` + listColumns + ` FROM todo_lists ORDER BY seq OFFSET $1 LIMIT $2`
	rows, err := r.db.Query(ctx, query, offsetArg(page), limitArg(page))
	if err != nil {
		return nil, fmt.Errorf("list lists: %w", err)
	}
	defer rows.Close()
	list := []dom.TodoList{}
	for rows.Next() {
		l, err := scanList(rows)
		if err != nil {
			return nil, fmt.Errorf("list lists: %w", err)
		}
		list = append(list, l)
	}
	return list, rows.Err()
}

func (r *PGTodoRepo) UpdateList(ctx context.Context, id string, in dom.ListInput) (dom.TodoList, error) {
	query := `
		UPDATE todo_lists SET name = $2, description = $3, updated_date = $4
		WHERE id = $1
		RETURNING ` + listColumns
	l, err := scanList(r.db.QueryRow(ctx, query, id, in.Name, in.Description, r.now()))
	if err != nil {
		return dom.TodoList{}, pgReadErr("update list", err)
	}
	return l, nil
}

func (r *PGTodoRepo) DeleteList(ctx context.Context, id string) (bool, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM todo_lists WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete list: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PGTodoRepo) CreateItem(ctx context.Context, listID string, in dom.ItemInput) (dom.TodoItem, error) {
	it := newItem(listID, in, r.now())
	query := `
		INSERT INTO todo_items (id, list_id, name, description, state, due_date, completed_date, created_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + itemColumns
	out, err := scanItem(r.db.QueryRow(ctx, query,
		it.ID, it.ListID, it.Name, it.Description, stateArg(it.State),
		it.DueDate, it.CompletedDate, it.CreatedDate,
	))
	if err != nil {
		return dom.TodoItem{}, pgWriteErr("create item", err)
	}
	return out, nil
}

func (r *PGTodoRepo) GetItem(ctx context.Context, listID, itemID string) (dom.TodoItem, error) {
	query := `SELECT ` + itemColumns + ` FROM todo_items WHERE id = $1 AND list_id = $2`
	it, err := scanItem(r.db.QueryRow(ctx, query, itemID, listID))
	if err != nil {
		return dom.TodoItem{}, pgReadErr("get item", err)
	}
	return it, nil
}

func (r *PGTodoRepo) ListItems(ctx context.Context, listID string, page dom.Page) ([]dom.TodoItem, error) {
	query := `
		SELECT ` + itemColumns + ` FROM todo_items
		WHERE list_id = $1
		ORDER BY seq OFFSET $2 LIMIT $3`
	return r.queryItems(ctx, "list items", query, listID, offsetArg(page), limitArg(page))
}

func (r *PGTodoRepo) ListItemsByState(ctx context.Context, listID string, state dom.TodoState, page dom.Page) ([]dom.TodoItem, error) {
	query := `
		SELECT ` + itemColumns + ` FROM todo_items
		WHERE list_id = $1 AND state = $2
		ORDER BY seq OFFSET $3 LIMIT $4`
	return r.queryItems(ctx, "list items by state", query, listID, string(state), offsetArg(page), limitArg(page))
}

func (r *PGTodoRepo) queryItems(ctx context.Context, op, query string, args ...any) ([]dom.TodoItem, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()
	list := []dom.TodoItem{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		list = append(list, it)
	}
	return list, rows.Err()
}

func (r *PGTodoRepo) UpdateItem(ctx context.Context, listID, itemID string, in dom.ItemInput) (dom.TodoItem, error) {
	query := `
		UPDATE todo_items SET
			name = $3,
			description = COALESCE($4, description),
			state = COALESCE($5, state),
			due_date = COALESCE($6, due_date),
			completed_date = COALESCE($7, completed_date),
			updated_date = $8
		WHERE id = $1 AND list_id = $2
		RETURNING ` + itemColumns
	it, err := scanItem(r.db.QueryRow(ctx, query,
		itemID, listID, in.Name, in.Description, stateArg(in.State),
		normalizeTime(in.DueDate), normalizeTime(in.CompletedDate), r.now(),
	))
	if err != nil {
		return dom.TodoItem{}, pgReadErr("update item", err)
	}
	return it, nil
}

func (r *PGTodoRepo) UpdateItemsState(ctx context.Context, listID string, itemIDs []string, state dom.TodoState) ([]dom.TodoItem, error) {
	query := `
		UPDATE todo_items SET state = $3, updated_date = $4
		WHERE id = $1 AND list_id = $2
		RETURNING ` + itemColumns
	return updateEach(itemIDs, func(id string) (dom.TodoItem, error) {
		it, err := scanItem(r.db.QueryRow(ctx, query, id, listID, string(state), r.now()))
		if err != nil {
			return dom.TodoItem{}, pgReadErr("update item state", err)
		}
		return it, nil
	})
}

func (r *PGTodoRepo) DeleteItem(ctx context.Context, listID, itemID string) (bool, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM todo_items WHERE id = $1 AND list_id = $2`, itemID, listID)
	if err != nil {
		return false, fmt.Errorf("delete item: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PGTodoRepo) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

func (r *PGTodoRepo) Close(ctx context.Context) error {
	r.db.Close()
	return nil
}

func scanList(row pgx.Row) (dom.TodoList, error) {
	var l dom.TodoList
	if err := row.Scan(&l.ID, &l.Name, &l.Description, &l.CreatedDate, &l.UpdatedDate); err != nil {
		return dom.TodoList{}, err
	}
	l.CreatedDate = l.CreatedDate.UTC()
	l.UpdatedDate = utcPtr(l.UpdatedDate)
	return l, nil
}

func scanItem(row pgx.Row) (dom.TodoItem, error) {
	var (
		it    dom.TodoItem
		state *string
	)
	if err := row.Scan(&it.ID, &it.ListID, &it.Name, &it.Description, &state,
		&it.DueDate, &it.CompletedDate, &it.CreatedDate, &it.UpdatedDate); err != nil {
		return dom.TodoItem{}, err
	}
	if state != nil {
		s, err := dom.ParseTodoState(*state)
		if err != nil {
			return dom.TodoItem{}, err
		}
		it.State = &s
	}
	it.CreatedDate = it.CreatedDate.UTC()
	it.DueDate = utcPtr(it.DueDate)
	it.CompletedDate = utcPtr(it.CompletedDate)
	it.UpdatedDate = utcPtr(it.UpdatedDate)
	return it, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}

func stateArg(s *dom.TodoState) *string {
	if s == nil {
		return nil
	}
	v := string(*s)
	return &v
}

func offsetArg(page dom.Page) int {
	if page.Skip < 0 {
		return 0
	}
	return page.Skip
}

// limitArg returns nil for "no limit"; LIMIT NULL is LIMIT ALL in Postgres.
func limitArg(page dom.Page) any {
	if page.Limit <= 0 {
		return nil
	}
	return page.Limit
}

func pgReadErr(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}

func pgWriteErr(op string, err error) error {
	if utils.IsPGUniqueViolation(err) {
		return fmt.Errorf("%s: %w", op, ErrConflict)
	}
	return fmt.Errorf("%s: %w", op, err)
}
