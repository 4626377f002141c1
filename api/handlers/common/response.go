package common

import (
	"net/http"

	"mathtutor/internal/failure"
	"mathtutor/internal/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ResponseSuccess 返回成功响应
func ResponseSuccess(c *gin.Context, status int, data any) {
	c.JSON(status, SuccessEnvelope{StatusCode: status, Data: data})
}

// ResponseCreated 返回创建成功响应（201）
func ResponseCreated(c *gin.Context, data any) {
	ResponseSuccess(c, http.StatusCreated, data)
}

// ResponseList 返回分页列表响应
func ResponseList(c *gin.Context, data any, pagination any) {
	c.JSON(http.StatusOK, ListEnvelope{StatusCode: http.StatusOK, Data: data, Pagination: pagination})
}

// ResponseFailure 将错误映射为统一错误响应
// 分类错误原样映射；其他带信息的错误视为参数错误；否则返回不透明的 500
func ResponseFailure(c *gin.Context, err error) {
	f := ToFailure(err)
	if f.HTTPStatus() >= http.StatusInternalServerError {
		logger.WithContext(c.Request.Context()).Error("请求处理失败",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.String("code", f.Code()),
			zap.Error(err),
		)
	}
	c.JSON(f.HTTPStatus(), ErrorEnvelopeFrom(f))
}

// AbortWithFailure 中断并返回错误
func AbortWithFailure(c *gin.Context, err error) {
	ResponseFailure(c, err)
	c.Abort()
}

// ToFailure 任意错误转换为分类错误
func ToFailure(err error) *failure.Failure {
	if f, ok := failure.As(err); ok {
		return f
	}
	if err != nil && err.Error() != "" {
		return failure.Wrap(failure.KindValidationFailed, err, err.Error())
	}
	return failure.Unclassified(http.StatusInternalServerError, "internal server error", err)
}

// ErrorEnvelopeFrom 构造错误响应体
func ErrorEnvelopeFrom(f *failure.Failure) ErrorEnvelope {
	return ErrorEnvelope{
		StatusCode: f.HTTPStatus(),
		Error:      f.Message,
		Code:       f.Code(),
		Retryable:  f.Retryable(),
	}
}
