package httputil

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// TestNewClient 测试创建基础客户端
func TestNewClient(t *testing.T) {
	client := NewClient()
	if client == nil {
		t.Fatal("NewClient() 返回 nil")
	}
	if client.Timeout() != 60*time.Second {
		t.Errorf("默认超时时间应为60秒，实际为 %v", client.Timeout())
	}
	if client.headers["User-Agent"] != DefaultUserAgent {
		t.Errorf("默认User-Agent不正确: %s", client.headers["User-Agent"])
	}

	customClient := NewClient(
		WithTimeout(10*time.Second),
		WithHeaders(map[string]string{"X-Custom": "value", "User-Agent": "custom/2.0"}),
	)
	if customClient.Timeout() != 10*time.Second {
		t.Errorf("自定义超时时间应为10秒，实际为 %v", customClient.Timeout())
	}
	if customClient.headers["X-Custom"] != "value" {
		t.Errorf("自定义头未设置")
	}
	if customClient.headers["User-Agent"] != "custom/2.0" {
		t.Errorf("自定义User-Agent未生效: %s", customClient.headers["User-Agent"])
	}
}

// TestClientDo_AppliesHeaders 测试默认请求头
func TestClientDo_AppliesHeaders(t *testing.T) {
	var gotUA, gotCustom, gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotCustom = r.Header.Get("X-Custom")
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := NewClient(WithHeaders(map[string]string{"X-Custom": "value", "Authorization": "Bearer default"}))

	req, err := http.NewRequest(http.MethodGet, server.URL, nil)
	if err != nil {
		t.Fatalf("创建请求失败: %v", err)
	}
	req.Header.Set("Authorization", "Bearer explicit")

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("Do() 错误: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("期望状态码 204，实际为 %d", resp.StatusCode)
	}
	if gotUA != DefaultUserAgent {
		t.Errorf("User-Agent 未附加: %s", gotUA)
	}
	if gotCustom != "value" {
		t.Errorf("自定义头未附加: %s", gotCustom)
	}
	if gotAuth != "Bearer explicit" {
		t.Errorf("显式请求头被覆盖: %s", gotAuth)
	}
}

// TestClientDo_NoRetryOnServerError 测试 5xx 不重试
func TestClientDo_NoRetryOnServerError(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	req, _ := http.NewRequest(http.MethodPost, server.URL, nil)
	resp, err := NewClient().Do(req)
	if err != nil {
		t.Fatalf("Do() 错误: %v", err)
	}
	resp.Body.Close()

	if calls != 1 {
		t.Errorf("期望只请求 1 次，实际为 %d", calls)
	}
}
