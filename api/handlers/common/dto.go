package common

// SuccessEnvelope 成功响应结构。
type SuccessEnvelope struct {
	StatusCode int `json:"statusCode"`
	Data       any `json:"data"`
}

// ListEnvelope 列表响应结构，包含数据与分页信息。
type ListEnvelope struct {
	StatusCode int `json:"statusCode"`
	Data       any `json:"data"`
	Pagination any `json:"pagination"`
}

// ErrorEnvelope 统一错误返回结构。
type ErrorEnvelope struct {
	StatusCode int    `json:"statusCode"`
	Error      string `json:"error"`
	Code       string `json:"code"`
	Retryable  bool   `json:"retryable"`
}
