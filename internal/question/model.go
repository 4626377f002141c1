// Package question 题目记录模型与持久化网关
package question

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

// Question 题目记录
type Question struct {
	ID        string          `gorm:"type:uuid;primaryKey" json:"id"`
	Question  string          `gorm:"type:text;not null" json:"question"`
	Answer    string          `gorm:"type:text;not null" json:"answer"`
	Embedding pgvector.Vector `gorm:"type:vector(1536);not null" json:"-"` // 题目+答案合并文本的向量
	SourceKey *string         `gorm:"type:varchar(255);uniqueIndex:idx_questions_source_key" json:"source_key,omitempty"` // 批量导入来源（unit:number），接口创建为空
	CreatedAt time.Time       `gorm:"not null;index:idx_questions_created_at" json:"created_at"`
	UpdatedAt time.Time       `gorm:"not null" json:"updated_at"`
}

// BeforeCreate GORM 钩子：创建前设置 ID
func (q *Question) BeforeCreate(tx *gorm.DB) error {
	if q.ID == "" {
		q.ID = uuid.New().String()
	}
	now := time.Now()
	if q.CreatedAt.IsZero() {
		q.CreatedAt = now
	}
	if q.UpdatedAt.IsZero() {
		q.UpdatedAt = now
	}
	return nil
}

// TableName 指定表名
func (Question) TableName() string {
	return "questions"
}

// Vector 向量的浮点切片视图
func (q *Question) Vector() []float32 {
	return q.Embedding.Slice()
}

// Pagination 分页信息
// Total 为本页实际返回的条数，不是全表总数
type Pagination struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
	Total  int `json:"total"`
}

// Page 分页查询结果（记录不含向量）
type Page struct {
	Records    []Question
	Pagination Pagination
}

// UpdateFields 部分更新字段，nil 表示不修改
type UpdateFields struct {
	Question *string
	Answer   *string
}
