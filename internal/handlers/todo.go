package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	dom "todoapi/internal/domain"
	"todoapi/internal/dto"
	"todoapi/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	msgListNotFound = "Todo list not found"
	msgItemNotFound = "Todo item not found"
)

type TodoHandler struct {
	svc *service.TodoService
	log *slog.Logger
}

func NewTodoHandler(svc *service.TodoService, log *slog.Logger) *TodoHandler {
	if log == nil {
		log = slog.Default()
	}
	return &TodoHandler{svc: svc, log: log}
}

// ListLists godoc
// @Summary      List todo lists
// @Tags         lists
// @Produce      json
// @Param        top   query     int  false  "Max number of lists"
// @Param        skip  query     int  false  "Number of lists to skip"
// @Success      200   {array}   dto.TodoListResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      500   {object}  dto.ErrorResponse
// @Router       /lists [get]
func (h *TodoHandler) ListLists(c *gin.Context) {
	page, ok := parsePage(c)
	if !ok {
		return
	}
	lists, err := h.svc.ListLists(c.Request.Context(), page)
	if err != nil {
		h.fail(c, err, msgListNotFound)
		return
	}
	c.JSON(http.StatusOK, dto.ListsToResponses(lists))
}

// CreateList godoc
// @Summary      Create a todo list
// @Tags         lists
// @Accept       json
// @Produce      json
// @Param        body  body      dto.CreateUpdateTodoList  true  "List body"
// @Success      201   {object}  dto.TodoListResponse
// @Header       201   {string}  Location  "URL of the new list"
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      500   {object}  dto.ErrorResponse
// @Router       /lists [post]
func (h *TodoHandler) CreateList(c *gin.Context) {
	var req dto.CreateUpdateTodoList
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	l, err := h.svc.CreateList(c.Request.Context(), req.ListInput())
	if err != nil {
		h.fail(c, err, msgListNotFound)
		return
	}
	c.Header("Location", absoluteURL(c, "lists", l.ID))
	c.JSON(http.StatusCreated, dto.ListToResponse(l))
}

// GetList godoc
// @Summary      Get a todo list
// @Tags         lists
// @Produce      json
// @Param        listId  path      string  true  "List ID"
// @Success      200     {object}  dto.TodoListResponse
// @Failure      404     {object}  dto.ErrorResponse
// @Failure      500     {object}  dto.ErrorResponse
// @Router       /lists/{listId} [get]
func (h *TodoHandler) GetList(c *gin.Context) {
	l, err := h.svc.GetList(c.Request.Context(), c.Param("listId"))
	if err != nil {
		h.fail(c, err, msgListNotFound)
		return
	}
	c.JSON(http.StatusOK, dto.ListToResponse(l))
}

// UpdateList godoc
// @Summary      Update a todo list
// @Description  Overwrites name and description.
// @Tags         lists
// @Accept       json
// @Produce      json
// @Param        listId  path      string                    true  "List ID"
// @Param        body    body      dto.CreateUpdateTodoList  true  "List body"
// @Success      200     {object}  dto.TodoListResponse
// @Failure      400     {object}  dto.ErrorResponse
// @Failure      404     {object}  dto.ErrorResponse
// @Failure      500     {object}  dto.ErrorResponse
// @Router       /lists/{listId} [put]
func (h *TodoHandler) UpdateList(c *gin.Context) {
	var req dto.CreateUpdateTodoList
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	l, err := h.svc.UpdateList(c.Request.Context(), c.Param("listId"), req.ListInput())
	if err != nil {
		h.fail(c, err, msgListNotFound)
		return
	}
	c.JSON(http.StatusOK, dto.ListToResponse(l))
}

// DeleteList godoc
// @Summary      Delete a todo list
// @Description  Items of the list are not deleted.
// @Tags         lists
// @Param        listId  path  string  true  "List ID"
// @Success      204
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /lists/{listId} [delete]
func (h *TodoHandler) DeleteList(c *gin.Context) {
	if err := h.svc.DeleteList(c.Request.Context(), c.Param("listId")); err != nil {
		h.fail(c, err, msgListNotFound)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListItems godoc
// @Summary      List items of a todo list
// @Tags         items
// @Produce      json
// @Param        listId  path      string  true   "List ID"
// @Param        top     query     int     false  "Max number of items"
// @Param        skip    query     int     false  "Number of items to skip"
// @Success      200     {array}   dto.TodoItemResponse
// @Failure      400     {object}  dto.ErrorResponse
// @Failure      500     {object}  dto.ErrorResponse
// @Router       /lists/{listId}/items [get]
func (h *TodoHandler) ListItems(c *gin.Context) {
	page, ok := parsePage(c)
	if !ok {
		return
	}
	items, err := h.svc.ListItems(c.Request.Context(), c.Param("listId"), page)
	if err != nil {
		h.fail(c, err, msgItemNotFound)
		return
	}
	c.JSON(http.StatusOK, dto.ItemsToResponses(items))
}

// CreateItem godoc
// @Summary      Create an item in a todo list
// @Tags         items
// @Accept       json
// @Produce      json
// @Param        listId  path      string                    true  "List ID"
// @Param        body    body      dto.CreateUpdateTodoItem  true  "Item body"
// @Success      201     {object}  dto.TodoItemResponse
// @Header       201     {string}  Location  "URL of the new item"
// @Failure      400     {object}  dto.ErrorResponse
// @Failure      500     {object}  dto.ErrorResponse
// @Router       /lists/{listId}/items [post]
func (h *TodoHandler) CreateItem(c *gin.Context) {
	var req dto.CreateUpdateTodoItem
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	listID := c.Param("listId")
	it, err := h.svc.CreateItem(c.Request.Context(), listID, req.ItemInput())
	if err != nil {
		h.fail(c, err, msgItemNotFound)
		return
	}
	c.Header("Location", absoluteURL(c, "lists", listID, "items", it.ID))
	c.JSON(http.StatusCreated, dto.ItemToResponse(it))
}

// GetItem godoc
// @Summary      Get an item of a todo list
// @Tags         items
// @Produce      json
// @Param        listId  path      string  true  "List ID"
// @Param        itemId  path      string  true  "Item ID"
// @Success      200     {object}  dto.TodoItemResponse
// @Failure      404     {object}  dto.ErrorResponse
// @Failure      500     {object}  dto.ErrorResponse
// @Router       /lists/{listId}/items/{itemId} [get]
func (h *TodoHandler) GetItem(c *gin.Context) {
	it, err := h.svc.GetItem(c.Request.Context(), c.Param("listId"), c.Param("itemId"))
	if err != nil {
		h.fail(c, err, msgItemNotFound)
		return
	}
	c.JSON(http.StatusOK, dto.ItemToResponse(it))
}

// UpdateItem godoc
// @Summary      Update an item of a todo list
// @Description  Name is overwritten; absent optional fields keep their stored value.
// @Tags         items
// @Accept       json
// @Produce      json
// @Param        listId  path      string                    true  "List ID"
// @Param        itemId  path      string                    true  "Item ID"
// @Param        body    body      dto.CreateUpdateTodoItem  true  "Item body"
// @Success      200     {object}  dto.TodoItemResponse
// @Failure      400     {object}  dto.ErrorResponse
// @Failure      404     {object}  dto.ErrorResponse
// @Failure      500     {object}  dto.ErrorResponse
// @Router       /lists/{listId}/items/{itemId} [put]
func (h *TodoHandler) UpdateItem(c *gin.Context) {
	var req dto.CreateUpdateTodoItem
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	it, err := h.svc.UpdateItem(c.Request.Context(), c.Param("listId"), c.Param("itemId"), req.ItemInput())
	if err != nil {
		h.fail(c, err, msgItemNotFound)
		return
	}
	c.JSON(http.StatusOK, dto.ItemToResponse(it))
}

// DeleteItem godoc
// @Summary      Delete an item of a todo list
// @Tags         items
// @Param        listId  path  string  true  "List ID"
// @Param        itemId  path  string  true  "Item ID"
// @Success      204
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /lists/{listId}/items/{itemId} [delete]
func (h *TodoHandler) DeleteItem(c *gin.Context) {
	if err := h.svc.DeleteItem(c.Request.Context(), c.Param("listId"), c.Param("itemId")); err != nil {
		h.fail(c, err, msgItemNotFound)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListItemsByState godoc
// @Summary      List items of a todo list in a given state
// @Tags         items
// @Produce      json
// @Param        listId  path      string  true   "List ID"
// @Param        state   path      string  true   "Item state"  Enums(todo, inprogress, done)
// @Param        top     query     int     false  "Max number of items"
// @Param        skip    query     int     false  "Number of items to skip"
// @Success      200     {array}   dto.TodoItemResponse
// @Failure      400     {object}  dto.ErrorResponse
// @Failure      500     {object}  dto.ErrorResponse
// @Router       /lists/{listId}/items/state/{state} [get]
func (h *TodoHandler) ListItemsByState(c *gin.Context) {
	state, ok := parseState(c)
	if !ok {
		return
	}
	page, ok := parsePage(c)
	if !ok {
		return
	}
	items, err := h.svc.ListItemsByState(c.Request.Context(), c.Param("listId"), state, page)
	if err != nil {
		h.fail(c, err, msgItemNotFound)
		return
	}
	c.JSON(http.StatusOK, dto.ItemsToResponses(items))
}

// UpdateItemsState godoc
// @Summary      Set the state of several items
// @Description  Ids that do not resolve under the list are skipped.
// @Tags         items
// @Accept       json
// @Produce      json
// @Param        listId  path      string    true  "List ID"
// @Param        state   path      string    true  "New state"  Enums(todo, inprogress, done)
// @Param        body    body      []string  true  "Item IDs"
// @Success      200     {array}   dto.TodoItemResponse
// @Failure      400     {object}  dto.ErrorResponse
// @Failure      500     {object}  dto.ErrorResponse
// @Router       /lists/{listId}/items/state/{state} [put]
func (h *TodoHandler) UpdateItemsState(c *gin.Context) {
	state, ok := parseState(c)
	if !ok {
		return
	}
	var ids []string
	if err := c.ShouldBindJSON(&ids); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(ids) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no item ids provided"})
		return
	}
	items, err := h.svc.UpdateItemsState(c.Request.Context(), c.Param("listId"), ids, state)
	if err != nil {
		h.fail(c, err, msgItemNotFound)
		return
	}
	c.JSON(http.StatusOK, dto.ItemsToResponses(items))
}

// fail maps a service error to a status code. Unexpected errors are logged
// and answered with a generic 500.
func (h *TodoHandler) fail(c *gin.Context, err error, notFound string) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": notFound})
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "conflict"})
	default:
		h.log.ErrorContext(c.Request.Context(), "request failed",
			"method", c.Request.Method,
			"route", c.FullPath(),
			"error", err,
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func parsePage(c *gin.Context) (dom.Page, bool) {
	var page dom.Page
	for _, q := range []struct {
		name string
		dst  *int
	}{{"top", &page.Limit}, {"skip", &page.Skip}} {
		raw := c.Query(q.name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + q.name})
			return dom.Page{}, false
		}
		*q.dst = n
	}
	return page, true
}

func parseState(c *gin.Context) (dom.TodoState, bool) {
	state, err := dom.ParseTodoState(c.Param("state"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return "", false
	}
	return state, true
}

// absoluteURL builds a URL on the request's own scheme and host.
func absoluteURL(c *gin.Context, segments ...string) string {
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	if proto := c.GetHeader("X-Forwarded-Proto"); proto != "" {
		scheme = strings.TrimSpace(strings.Split(proto, ",")[0])
	}
	u := url.URL{
		Scheme: scheme,
		Host:   c.Request.Host,
		Path:   "/" + strings.Join(segments, "/"),
	}
	return u.String()
}
