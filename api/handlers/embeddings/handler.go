// Package embeddings 题目向量 CRUD 接口
package embeddings

import (
	"context"
	"fmt"
	"strconv"

	response "mathtutor/api/handlers/common"
	"mathtutor/internal/failure"
	"mathtutor/internal/question"

	"github.com/gin-gonic/gin"
)

// 分页参数
const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// Generator 向量生成
type Generator interface {
	GenerateCombined(ctx context.Context, question, answer string) ([]float32, error)
}

// Store 题目持久化
type Store interface {
	Create(ctx context.Context, question, answer string, embedding []float32) (*question.Question, error)
	FindAll(ctx context.Context, limit, offset int) (*question.Page, error)
	FindByID(ctx context.Context, id string) (*question.Question, error)
	Update(ctx context.Context, id string, fields question.UpdateFields) (*question.Question, error)
	Delete(ctx context.Context, id string) error
}

// Handler 题目向量处理器；不重试、不重新分类错误
type Handler struct {
	generator Generator
	store     Store
}

// NewHandler 创建处理器
func NewHandler(generator Generator, store Store) *Handler {
	return &Handler{generator: generator, store: store}
}

// Register 注册路由；guard 作用于会调用向量服务的写接口
func (h *Handler) Register(group *gin.RouterGroup, guard ...gin.HandlerFunc) {
	group.POST("", chain(guard, h.Create)...)
	group.GET("", h.List)
	group.GET("/:id", h.Get)
	group.PUT("/:id", chain(guard, h.Update)...)
	group.DELETE("/:id", h.Delete)
}

func chain(guard []gin.HandlerFunc, handler gin.HandlerFunc) []gin.HandlerFunc {
	out := make([]gin.HandlerFunc, 0, len(guard)+1)
	return append(append(out, guard...), handler)
}

// Create 创建题目并生成向量
// POST /embeddings
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ResponseFailure(c, failure.Wrap(failure.KindValidationFailed, err, "invalid JSON body"))
		return
	}

	embedding, err := h.generator.GenerateCombined(c.Request.Context(), req.Question, req.Answer)
	if err != nil {
		response.ResponseFailure(c, err)
		return
	}

	record, err := h.store.Create(c.Request.Context(), req.Question, req.Answer, embedding)
	if err != nil {
		response.ResponseFailure(c, err)
		return
	}

	response.ResponseCreated(c, toResponse(record))
}

// List 分页列出题目（不含向量）
// GET /embeddings?limit=10&offset=0
func (h *Handler) List(c *gin.Context) {
	limit, err := queryInt(c, "limit", DefaultLimit, 1)
	if err != nil {
		response.ResponseFailure(c, err)
		return
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	offset, err := queryInt(c, "offset", 0, 0)
	if err != nil {
		response.ResponseFailure(c, err)
		return
	}

	page, err := h.store.FindAll(c.Request.Context(), limit, offset)
	if err != nil {
		response.ResponseFailure(c, err)
		return
	}

	response.ResponseList(c, toSummaries(page.Records), page.Pagination)
}

// Get 查询单个题目
// GET /embeddings/:id
func (h *Handler) Get(c *gin.Context) {
	record, err := h.store.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.ResponseFailure(c, err)
		return
	}
	response.ResponseSuccess(c, 200, toResponse(record))
}

// Update 更新题目，文本变化时重新生成向量
// PUT /embeddings/:id
func (h *Handler) Update(c *gin.Context) {
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ResponseFailure(c, failure.Wrap(failure.KindValidationFailed, err, "invalid JSON body"))
		return
	}

	record, err := h.store.Update(c.Request.Context(), c.Param("id"), question.UpdateFields{
		Question: req.Question,
		Answer:   req.Answer,
	})
	if err != nil {
		response.ResponseFailure(c, err)
		return
	}
	response.ResponseSuccess(c, 200, toResponse(record))
}

// Delete 删除题目
// DELETE /embeddings/:id
func (h *Handler) Delete(c *gin.Context) {
	id := c.Param("id")
	if err := h.store.Delete(c.Request.Context(), id); err != nil {
		response.ResponseFailure(c, err)
		return
	}
	response.ResponseSuccess(c, 200, DeleteResponse{ID: id, Deleted: true})
}

func queryInt(c *gin.Context, key string, def, min int) (int, error) {
	raw, ok := c.GetQuery(key)
	if !ok || raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < min {
		return 0, failure.New(failure.KindValidationFailed,
			fmt.Sprintf("%s must be an integer >= %d", key, min))
	}
	return n, nil
}
