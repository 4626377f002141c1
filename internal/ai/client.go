package ai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"

	openai "github.com/sashabaranov/go-openai"
)

// EmbeddingClient 向量服务客户端，返回上游原始错误（由 Classify 统一分类）
type EmbeddingClient interface {
	CreateEmbedding(ctx context.Context, text string) ([]float32, error)
	Model() string
}

// Transcriber 图像转文本服务（视觉模型），同样返回上游原始错误
type Transcriber interface {
	Transcribe(ctx context.Context, image []byte, mimeType string) (string, error)
}

// ProviderError 上游错误的归一化视图
type ProviderError struct {
	Status  int    // HTTP 状态码，网络错误时为 0
	Code    string // 上游错误码或网络错误码（ECONNRESET / ETIMEDOUT / ENOTFOUND ...）
	Message string
	Type    string
}

// 网络错误码
const (
	CodeConnReset   = "ECONNRESET"
	CodeConnRefused = "ECONNREFUSED"
	CodeTimeout     = "ETIMEDOUT"
	CodeDNSNotFound = "ENOTFOUND"
	CodeDNSAgain    = "EAI_AGAIN"
)

// Inspect 从 go-openai 或网络层错误中提取状态码、错误码与信息
func Inspect(err error) ProviderError {
	if err == nil {
		return ProviderError{}
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return ProviderError{
			Status:  apiErr.HTTPStatusCode,
			Code:    codeString(apiErr.Code),
			Message: apiErr.Message,
			Type:    apiErr.Type,
		}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		pe := ProviderError{
			Status:  reqErr.HTTPStatusCode,
			Message: reqErr.Error(),
			Type:    "request_error",
		}
		if reqErr.Err != nil {
			pe.Code = networkCode(reqErr.Err)
		}
		return pe
	}

	return ProviderError{
		Code:    networkCode(err),
		Message: err.Error(),
		Type:    fmt.Sprintf("%T", err),
	}
}

// codeString APIError.Code 可能是字符串或数字
func codeString(code any) string {
	switch v := code.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// networkCode 将网络层错误映射为错误码，无法识别时返回空串
func networkCode(err error) string {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsTimeout || dnsErr.IsTemporary {
			return CodeDNSAgain
		}
		return CodeDNSNotFound
	}

	switch {
	case errors.Is(err, syscall.ECONNRESET), errors.Is(err, io.ErrUnexpectedEOF):
		return CodeConnReset
	case errors.Is(err, syscall.ECONNREFUSED):
		return CodeConnRefused
	case errors.Is(err, context.DeadlineExceeded):
		return CodeTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return CodeTimeout
	}
	return ""
}
