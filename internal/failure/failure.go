// Package failure 定义跨组件边界传递的错误分类
package failure

import (
	"errors"
	"net/http"
)

// Kind 错误类别（封闭集合，新增类别必须同步更新 kindTable）
type Kind int

const (
	KindUnclassified Kind = iota
	KindQuotaExceeded
	KindInvalidCredential
	KindRateLimited
	KindNetworkUnavailable
	KindValidationFailed
	KindStorageFailed
	KindNotFound
	KindDuplicateEntry
)

// kindAttrs 每个类别固定绑定的属性
type kindAttrs struct {
	name           string
	code           string
	status         int
	retryable      bool
	defaultMessage string
}

var kindTable = map[Kind]kindAttrs{
	KindUnclassified:       {"Unclassified", "PROVIDER_ERROR", http.StatusInternalServerError, true, "upstream service error"},
	KindQuotaExceeded:      {"QuotaExceeded", "QUOTA_EXCEEDED", http.StatusTooManyRequests, false, "quota exceeded, check billing"},
	KindInvalidCredential:  {"InvalidCredential", "INVALID_CREDENTIAL", http.StatusUnauthorized, false, "invalid or missing credential"},
	KindRateLimited:        {"RateLimited", "RATE_LIMITED", http.StatusTooManyRequests, true, "rate limit exceeded, retry later"},
	KindNetworkUnavailable: {"NetworkUnavailable", "NETWORK_ERROR", http.StatusServiceUnavailable, true, "transient network/service failure"},
	KindValidationFailed:   {"ValidationFailed", "VALIDATION_ERROR", http.StatusBadRequest, false, "invalid input"},
	KindStorageFailed:      {"StorageFailed", "DATABASE_ERROR", http.StatusInternalServerError, true, "persistence operation failed"},
	KindNotFound:           {"NotFound", "NOT_FOUND", http.StatusNotFound, false, "record not found"},
	KindDuplicateEntry:     {"DuplicateEntry", "DUPLICATE_ENTRY", http.StatusConflict, false, "record already exists"},
}

func (k Kind) attrs() kindAttrs {
	if s, ok := kindTable[k]; ok {
		return s
	}
	return kindTable[KindUnclassified]
}

// String 类别名称
func (k Kind) String() string { return k.attrs().name }

// Code 稳定的机器可读错误码
func (k Kind) Code() string { return k.attrs().code }

// Status 类别默认 HTTP 状态码
func (k Kind) Status() int { return k.attrs().status }

// Retryable 是否可重试
func (k Kind) Retryable() bool { return k.attrs().retryable }

// DefaultMessage 默认提示信息
func (k Kind) DefaultMessage() string { return k.attrs().defaultMessage }

// Kinds 返回全部类别，按声明顺序
func Kinds() []Kind {
	return []Kind{
		KindUnclassified,
		KindQuotaExceeded,
		KindInvalidCredential,
		KindRateLimited,
		KindNetworkUnavailable,
		KindValidationFailed,
		KindStorageFailed,
		KindNotFound,
		KindDuplicateEntry,
	}
}

// Failure 已分类的错误
type Failure struct {
	Kind    Kind
	Message string
	// status 仅 Unclassified 会覆盖（透传上游状态码）
	status int
	Cause  error
}

// New 创建指定类别的错误，message 为空时使用默认信息
func New(kind Kind, message string) *Failure {
	if message == "" {
		message = kind.DefaultMessage()
	}
	return &Failure{Kind: kind, Message: message}
}

// Wrap 创建带原始错误的分类错误
func Wrap(kind Kind, cause error, message string) *Failure {
	f := New(kind, message)
	f.Cause = cause
	return f
}

// Unclassified 包装无法归类的上游错误，保留上游状态码（缺省 500）
func Unclassified(status int, message string, cause error) *Failure {
	f := Wrap(KindUnclassified, cause, message)
	if status > 0 {
		f.status = status
	}
	return f
}

// Error 实现 error 接口
func (f *Failure) Error() string {
	if f == nil {
		return ""
	}
	return f.Kind.Code() + ": " + f.Message
}

// Unwrap 返回原始错误
func (f *Failure) Unwrap() error { return f.Cause }

// Code 错误码
func (f *Failure) Code() string { return f.Kind.Code() }

// HTTPStatus HTTP 状态码
func (f *Failure) HTTPStatus() int {
	if f.status > 0 {
		return f.status
	}
	return f.Kind.Status()
}

// Retryable 是否可重试（仅作为调用方参考）
func (f *Failure) Retryable() bool { return f.Kind.Retryable() }

// As 从错误链中提取 *Failure
func As(err error) (*Failure, bool) {
	var f *Failure
	if errors.As(err, &f) && f != nil {
		return f, true
	}
	return nil, false
}

// IsKind 判断错误链中是否为指定类别
func IsKind(err error, kind Kind) bool {
	f, ok := As(err)
	return ok && f.Kind == kind
}

// KindOf 返回错误类别，非分类错误返回 Unclassified
func KindOf(err error) Kind {
	if f, ok := As(err); ok {
		return f.Kind
	}
	return KindUnclassified
}
