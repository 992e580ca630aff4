package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"todoapi/internal/config"
	"todoapi/internal/handlers"
	"todoapi/internal/service"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"github.com/swaggo/swag"
)

// Setup registers all routes on the given engine.
func Setup(r *gin.Engine, cfg config.Config, svc *service.TodoService, log *slog.Logger) {
	r.GET("/", rootHandler(cfg))
	r.GET("/health", healthHandler(cfg, svc, log))
	r.GET("/version", versionHandler(cfg))
	r.GET("/swagger-doc.json", swaggerDocHandler())
	r.GET("/swagger", func(c *gin.Context) { c.Redirect(http.StatusFound, "/swagger/index.html") })
	r.GET("/swagger/*any", ginSwagger.WrapHandler(
		swaggerFiles.Handler,
		ginSwagger.URL("/swagger-doc.json"),
		ginSwagger.DefaultModelsExpandDepth(-1),
	))

	todoHandler := handlers.NewTodoHandler(svc, log)
	registerTodoRoutes(r, todoHandler)
}

func rootHandler(cfg config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service": "Todo API",
			"version": cfg.App.Version,
			"env":     cfg.App.Env,
			"docs":    "/swagger/index.html",
			"spec":    "/swagger-doc.json",
			"health":  "/health",
			"api":     "/lists",
		})
	}
}

func healthHandler(cfg config.Config, svc *service.TodoService, log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := svc.Ping(ctx); err != nil {
			log.WarnContext(ctx, "health check failed", "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false, "env": cfg.App.Env})
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true, "env": cfg.App.Env})
	}
}

func versionHandler(cfg config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"version": cfg.App.Version})
	}
}

func swaggerDocHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		doc, err := swag.ReadDoc("swagger")
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(doc))
	}
}

func registerTodoRoutes(r gin.IRouter, h *handlers.TodoHandler) {
	lists := r.Group("/lists")
	lists.GET("", h.ListLists)
	lists.POST("", h.CreateList)
	lists.GET("/:listId", h.GetList)
	lists.PUT("/:listId", h.UpdateList)
	lists.DELETE("/:listId", h.DeleteList)

	lists.GET("/:listId/items", h.ListItems)
	lists.POST("/:listId/items", h.CreateItem)
	lists.GET("/:listId/items/state/:state", h.ListItemsByState)
	lists.PUT("/:listId/items/state/:state", h.UpdateItemsState)
	lists.GET("/:listId/items/:itemId", h.GetItem)
	lists.PUT("/:listId/items/:itemId", h.UpdateItem)
	lists.DELETE("/:listId/items/:itemId", h.DeleteItem)
}
