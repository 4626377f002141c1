package embeddings

import (
	"time"

	"mathtutor/internal/question"
)

// CreateRequest 创建题目请求
type CreateRequest struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// UpdateRequest 更新题目请求，未传字段保持不变
type UpdateRequest struct {
	Question *string `json:"question"`
	Answer   *string `json:"answer"`
}

// QuestionResponse 完整题目记录（含向量）
type QuestionResponse struct {
	ID        string    `json:"id"`
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	Embedding []float32 `json:"embedding"`
	SourceKey *string   `json:"sourceKey,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// QuestionSummary 列表项（不含向量）
type QuestionSummary struct {
	ID        string    `json:"id"`
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	SourceKey *string   `json:"sourceKey,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// DeleteResponse 删除结果
type DeleteResponse struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
}

func toResponse(q *question.Question) QuestionResponse {
	return QuestionResponse{
		ID:        q.ID,
		Question:  q.Question,
		Answer:    q.Answer,
		Embedding: q.Vector(),
		SourceKey: q.SourceKey,
		CreatedAt: q.CreatedAt,
		UpdatedAt: q.UpdatedAt,
	}
}

func toSummaries(records []question.Question) []QuestionSummary {
	out := make([]QuestionSummary, 0, len(records))
	for _, q := range records {
		out = append(out, QuestionSummary{
			ID:        q.ID,
			Question:  q.Question,
			Answer:    q.Answer,
			SourceKey: q.SourceKey,
			CreatedAt: q.CreatedAt,
			UpdatedAt: q.UpdatedAt,
		})
	}
	return out
}
