package question

import (
	"context"
	"fmt"
	"strings"
	"time"

	"mathtutor/internal/failure"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

// Embedder 更新题目时重新生成向量
type Embedder interface {
	GenerateCombined(ctx context.Context, question, answer string) ([]float32, error)
}

// listColumns 列表查询不返回向量
var listColumns = []string{"id", "question", "answer", "source_key", "created_at", "updated_at"}

// Repository 题目持久化网关，记录生命周期的唯一所有者
type Repository struct {
	db         *gorm.DB
	embedder   Embedder
	dimensions int
}

// NewRepository 创建题目仓储
func NewRepository(db *gorm.DB, embedder Embedder, dimensions int) *Repository {
	return &Repository{db: db, embedder: embedder, dimensions: dimensions}
}

// Create 新建题目
func (r *Repository) Create(ctx context.Context, question, answer string, embedding []float32) (*Question, error) {
	return r.insert(ctx, "create", &Question{Question: question, Answer: answer}, embedding)
}

// Import 批量导入写入，携带来源键
func (r *Repository) Import(ctx context.Context, sourceKey, question, answer string, embedding []float32) (*Question, error) {
	return r.insert(ctx, "import", &Question{Question: question, Answer: answer, SourceKey: &sourceKey}, embedding)
}

func (r *Repository) insert(ctx context.Context, op string, q *Question, embedding []float32) (*Question, error) {
	if err := validateText(q.Question, q.Answer); err != nil {
		return nil, err
	}
	if err := r.checkDimensions(embedding); err != nil {
		return nil, err
	}
	q.Embedding = pgvector.NewVector(embedding)

	if err := r.db.WithContext(ctx).Create(q).Error; err != nil {
		return nil, translateError(op, err)
	}
	return q, nil
}

// FindAll 按创建时间升序分页查询
func (r *Repository) FindAll(ctx context.Context, limit, offset int) (*Page, error) {
	var records []Question
	err := r.db.WithContext(ctx).
		Select(listColumns).
		Order("created_at ASC").
		Order("id ASC").
		Limit(limit).
		Offset(offset).
		Find(&records).Error
	if err != nil {
		return nil, translateError("find_all", err)
	}

	return &Page{
		Records: records,
		Pagination: Pagination{
			Limit:  limit,
			Offset: offset,
			Total:  len(records),
		},
	}, nil
}

// FindByID 按 ID 查询
func (r *Repository) FindByID(ctx context.Context, id string) (*Question, error) {
	if !validID(id) {
		return nil, failure.New(failure.KindNotFound, fmt.Sprintf("question %s not found", id))
	}

	var q Question
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&q).Error; err != nil {
		err = translateError("find_by_id", err)
		if failure.IsKind(err, failure.KindNotFound) {
			return nil, failure.Wrap(failure.KindNotFound, err, fmt.Sprintf("question %s not found", id))
		}
		return nil, err
	}
	return &q, nil
}

// Update 部分更新；题目或答案变化时先重新生成向量再写入
func (r *Repository) Update(ctx context.Context, id string, fields UpdateFields) (*Question, error) {
	if fields.Question == nil && fields.Answer == nil {
		return nil, failure.New(failure.KindValidationFailed, "question or answer is required")
	}

	q, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	newQuestion, newAnswer := q.Question, q.Answer
	if fields.Question != nil {
		newQuestion = *fields.Question
	}
	if fields.Answer != nil {
		newAnswer = *fields.Answer
	}
	if err := validateText(newQuestion, newAnswer); err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if newQuestion != q.Question || newAnswer != q.Answer {
		embedding, err := r.embedder.GenerateCombined(ctx, newQuestion, newAnswer)
		if err != nil {
			return nil, err
		}
		if err := r.checkDimensions(embedding); err != nil {
			return nil, err
		}
		q.Question, q.Answer = newQuestion, newAnswer
		q.Embedding = pgvector.NewVector(embedding)
		updates["question"] = q.Question
		updates["answer"] = q.Answer
		updates["embedding"] = q.Embedding
	}
	if len(updates) == 0 {
		return q, nil
	}
	q.UpdatedAt = time.Now()
	updates["updated_at"] = q.UpdatedAt

	result := r.db.WithContext(ctx).Model(q).Updates(updates)
	if result.Error != nil {
		return nil, translateError("update", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, failure.New(failure.KindNotFound, fmt.Sprintf("question %s not found", id))
	}
	return q, nil
}

// Delete 物理删除
func (r *Repository) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return failure.New(failure.KindNotFound, fmt.Sprintf("question %s not found", id))
	}

	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&Question{})
	if result.Error != nil {
		return translateError("delete", result.Error)
	}
	if result.RowsAffected == 0 {
		return failure.New(failure.KindNotFound, fmt.Sprintf("question %s not found", id))
	}
	return nil
}

// Count 全表记录数
func (r *Repository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&Question{}).Count(&n).Error; err != nil {
		return 0, translateError("count", err)
	}
	return n, nil
}

// SourceKeys 已导入记录的来源键
func (r *Repository) SourceKeys(ctx context.Context) ([]string, error) {
	var keys []string
	err := r.db.WithContext(ctx).
		Model(&Question{}).
		Where("source_key IS NOT NULL").
		Pluck("source_key", &keys).Error
	if err != nil {
		return nil, translateError("source_keys", err)
	}
	return keys, nil
}

// Ping 数据库连通性检查
func (r *Repository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return translateError("ping", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return translateError("ping", err)
	}
	return nil
}

func (r *Repository) checkDimensions(embedding []float32) error {
	if r.dimensions > 0 && len(embedding) != r.dimensions {
		return failure.New(failure.KindValidationFailed,
			fmt.Sprintf("embedding has %d dimensions, expected %d", len(embedding), r.dimensions))
	}
	return nil
}

func validateText(question, answer string) error {
	if strings.TrimSpace(question) == "" {
		return failure.New(failure.KindValidationFailed, "question is required")
	}
	if strings.TrimSpace(answer) == "" {
		return failure.New(failure.KindValidationFailed, "answer is required")
	}
	return nil
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
