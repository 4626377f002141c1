package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"mathtutor/internal/failure"
	"mathtutor/internal/question"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const dims = 1536

// fakeGenerator 生成固定维度向量，可注入错误
type fakeGenerator struct {
	err error
}

func (g *fakeGenerator) GenerateCombined(_ context.Context, q, a string) ([]float32, error) {
	if g.err != nil {
		return nil, g.err
	}
	if q == "" || a == "" {
		return nil, failure.New(failure.KindValidationFailed, "question and answer are required")
	}
	vec := make([]float32, dims)
	vec[0] = float32(len(q))
	vec[1] = float32(len(a))
	return vec, nil
}

type envelope struct {
	StatusCode int             `json:"statusCode"`
	Data       json.RawMessage `json:"data"`
	Pagination *struct {
		Limit  int `json:"limit"`
		Offset int `json:"offset"`
		Total  int `json:"total"`
	} `json:"pagination"`
	Error     string `json:"error"`
	Code      string `json:"code"`
	Retryable bool   `json:"retryable"`
}

func setupRouter(t *testing.T, gen Generator) (*gin.Engine, *question.Repository) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&question.Question{}))

	repo := question.NewRepository(db, gen, dims)
	router := gin.New()
	NewHandler(gen, repo).Register(router.Group("/embeddings"))
	return router, repo
}

func doRequest(t *testing.T, router http.Handler, method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *bytes.Reader
	switch v := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(v))
	default:
		raw, err := json.Marshal(v)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w, env
}

func TestCreateAndGet(t *testing.T) {
	router, _ := setupRouter(t, &fakeGenerator{})

	w, env := doRequest(t, router, http.MethodPost, "/embeddings", CreateRequest{Question: "$1+1$", Answer: "$2$"})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, http.StatusCreated, env.StatusCode)

	var created QuestionResponse
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "$1+1$", created.Question)
	assert.Len(t, created.Embedding, dims)
	assert.False(t, created.CreatedAt.IsZero())

	w, env = doRequest(t, router, http.MethodGet, "/embeddings/"+created.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var fetched QuestionResponse
	require.NoError(t, json.Unmarshal(env.Data, &fetched))
	assert.Equal(t, created.ID, fetched.ID)
	assert.Equal(t, created.Embedding, fetched.Embedding)
}

func TestCreate_Validation(t *testing.T) {
	router, _ := setupRouter(t, &fakeGenerator{})

	t.Run("缺少答案", func(t *testing.T) {
		w, env := doRequest(t, router, http.MethodPost, "/embeddings", CreateRequest{Question: "q"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "VALIDATION_ERROR", env.Code)
		assert.False(t, env.Retryable)
	})

	t.Run("非法 JSON", func(t *testing.T) {
		w, env := doRequest(t, router, http.MethodPost, "/embeddings", "{not json")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "VALIDATION_ERROR", env.Code)
	})
}

func TestCreate_ProviderFailures(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		status    int
		code      string
		retryable bool
	}{
		{"额度耗尽", failure.New(failure.KindQuotaExceeded, "quota exceeded, check billing"), http.StatusTooManyRequests, "QUOTA_EXCEEDED", false},
		{"普通限流", failure.New(failure.KindRateLimited, "rate limit exceeded, retry later"), http.StatusTooManyRequests, "RATE_LIMITED", true},
		{"凭证无效", failure.New(failure.KindInvalidCredential, "invalid or missing credential"), http.StatusUnauthorized, "INVALID_CREDENTIAL", false},
		{"网络故障", failure.New(failure.KindNetworkUnavailable, "transient network/service failure"), http.StatusServiceUnavailable, "NETWORK_ERROR", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, repo := setupRouter(t, &fakeGenerator{err: tt.err})

			w, env := doRequest(t, router, http.MethodPost, "/embeddings", CreateRequest{Question: "q", Answer: "a"})
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.status, env.StatusCode)
			assert.Equal(t, tt.code, env.Code)
			assert.Equal(t, tt.retryable, env.Retryable)
			assert.NotEmpty(t, env.Error)

			count, err := repo.Count(context.Background())
			require.NoError(t, err)
			assert.Zero(t, count)
		})
	}
}

func TestList_Pagination(t *testing.T) {
	router, repo := setupRouter(t, &fakeGenerator{})
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		vec := make([]float32, dims)
		_, err := repo.Create(ctx, fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i), vec)
		require.NoError(t, err)
		time.Sleep(2 * time.Millisecond)
	}

	w, env := doRequest(t, router, http.MethodGet, "/embeddings?limit=1&offset=0", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var items []map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &items))
	require.Len(t, items, 1)
	assert.Equal(t, "q0", items[0]["question"])
	assert.NotContains(t, items[0], "embedding")

	require.NotNil(t, env.Pagination)
	assert.Equal(t, 1, env.Pagination.Limit)
	assert.Equal(t, 0, env.Pagination.Offset)
	assert.Equal(t, 1, env.Pagination.Total)

	_, env = doRequest(t, router, http.MethodGet, "/embeddings?offset=2", nil)
	require.NoError(t, json.Unmarshal(env.Data, &items))
	require.Len(t, items, 1)
	assert.Equal(t, "q2", items[0]["question"])
	assert.Equal(t, DefaultLimit, env.Pagination.Limit)
}

func TestList_InvalidQuery(t *testing.T) {
	router, _ := setupRouter(t, &fakeGenerator{})

	for _, query := range []string{"limit=0", "limit=abc", "offset=-1", "offset=x"} {
		t.Run(query, func(t *testing.T) {
			w, env := doRequest(t, router, http.MethodGet, "/embeddings?"+query, nil)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, "VALIDATION_ERROR", env.Code)
		})
	}

	t.Run("超过上限截断", func(t *testing.T) {
		w, env := doRequest(t, router, http.MethodGet, "/embeddings?limit=1000", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, MaxLimit, env.Pagination.Limit)
	})
}

func TestUpdate(t *testing.T) {
	router, repo := setupRouter(t, &fakeGenerator{})
	record, err := repo.Create(context.Background(), "q", "a", make([]float32, dims))
	require.NoError(t, err)

	newAnswer := "a longer answer"
	w, env := doRequest(t, router, http.MethodPut, "/embeddings/"+record.ID, UpdateRequest{Answer: &newAnswer})
	require.Equal(t, http.StatusOK, w.Code)

	var updated QuestionResponse
	require.NoError(t, json.Unmarshal(env.Data, &updated))
	assert.Equal(t, "q", updated.Question)
	assert.Equal(t, newAnswer, updated.Answer)
	assert.Equal(t, float32(len(newAnswer)), updated.Embedding[1])

	t.Run("空请求体", func(t *testing.T) {
		w, env := doRequest(t, router, http.MethodPut, "/embeddings/"+record.ID, map[string]any{})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "VALIDATION_ERROR", env.Code)
	})

	t.Run("记录不存在", func(t *testing.T) {
		missing := "00000000-0000-0000-0000-000000000000"
		w, env := doRequest(t, router, http.MethodPut, "/embeddings/"+missing, UpdateRequest{Answer: &newAnswer})
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "NOT_FOUND", env.Code)
	})
}

func TestDelete(t *testing.T) {
	router, repo := setupRouter(t, &fakeGenerator{})
	record, err := repo.Create(context.Background(), "q", "a", make([]float32, dims))
	require.NoError(t, err)

	w, env := doRequest(t, router, http.MethodDelete, "/embeddings/"+record.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var deleted DeleteResponse
	require.NoError(t, json.Unmarshal(env.Data, &deleted))
	assert.Equal(t, record.ID, deleted.ID)
	assert.True(t, deleted.Deleted)

	w, env = doRequest(t, router, http.MethodGet, "/embeddings/"+record.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", env.Code)

	w, _ = doRequest(t, router, http.MethodDelete, "/embeddings/"+record.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// failingStore 存储层总是失败
type failingStore struct{ err error }

func (s failingStore) Create(context.Context, string, string, []float32) (*question.Question, error) {
	return nil, s.err
}
func (s failingStore) FindAll(context.Context, int, int) (*question.Page, error) { return nil, s.err }
func (s failingStore) FindByID(context.Context, string) (*question.Question, error) {
	return nil, s.err
}
func (s failingStore) Update(context.Context, string, question.UpdateFields) (*question.Question, error) {
	return nil, s.err
}
func (s failingStore) Delete(context.Context, string) error { return s.err }

func TestStorageFailure(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	storeErr := failure.Wrap(failure.KindStorageFailed, errors.New("connection refused"), "")
	NewHandler(&fakeGenerator{}, failingStore{err: storeErr}).Register(router.Group("/embeddings"))

	w, env := doRequest(t, router, http.MethodGet, "/embeddings", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "DATABASE_ERROR", env.Code)
	assert.True(t, env.Retryable)
	assert.NotContains(t, env.Error, "connection refused")
}
