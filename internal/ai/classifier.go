package ai

import (
	"net/http"
	"strings"

	"mathtutor/internal/failure"
	"mathtutor/internal/metrics"

	"go.uber.org/zap"
)

// quotaCodes 额度/账单耗尽类错误码（OpenAI 在 429 中返回）
var quotaCodes = []string{"insufficient_quota", "billing_hard_limit_reached", "billing_not_active", "quota_exceeded"}

// networkCodes 连接重置、超时、DNS 失败
var networkCodes = map[string]struct{}{
	CodeConnReset:   {},
	CodeConnRefused: {},
	CodeTimeout:     {},
	CodeDNSNotFound: {},
	CodeDNSAgain:    {},
}

// Classify 将上游调用错误映射为分类错误
// 分类前完整记录原始错误上下文；已分类的错误原样返回
func Classify(log *zap.Logger, err error) *failure.Failure {
	if err == nil {
		return nil
	}
	if f, ok := failure.As(err); ok {
		return f
	}

	pe := Inspect(err)
	if log != nil {
		log.Warn("AI 服务调用失败",
			zap.Int("status", pe.Status),
			zap.String("code", pe.Code),
			zap.String("message", pe.Message),
			zap.String("type", pe.Type),
			zap.Error(err),
		)
	}

	f := ClassifyProviderError(pe, err)
	metrics.ProviderFailuresTotal.WithLabelValues(f.Code()).Inc()
	return f
}

// ClassifyProviderError 按顺序匹配，首个命中的规则生效
func ClassifyProviderError(pe ProviderError, cause error) *failure.Failure {
	switch {
	case pe.Status == http.StatusUnauthorized:
		return failure.Wrap(failure.KindInvalidCredential, cause, "")
	case pe.Status == http.StatusTooManyRequests && isQuotaCode(pe):
		return failure.Wrap(failure.KindQuotaExceeded, cause, "")
	case pe.Status == http.StatusTooManyRequests:
		return failure.Wrap(failure.KindRateLimited, cause, "")
	case pe.Status >= http.StatusInternalServerError || isNetworkCode(pe.Code):
		return failure.Wrap(failure.KindNetworkUnavailable, cause, "")
	}

	message := pe.Message
	if message == "" && cause != nil {
		message = cause.Error()
	}
	return failure.Unclassified(pe.Status, message, cause)
}

func isQuotaCode(pe ProviderError) bool {
	code := strings.ToLower(pe.Code)
	typ := strings.ToLower(pe.Type)
	for _, q := range quotaCodes {
		if code == q || typ == q {
			return true
		}
	}
	return false
}

func isNetworkCode(code string) bool {
	_, ok := networkCodes[strings.ToUpper(code)]
	return ok
}
