// Package httputil 出站 HTTP 客户端构造
package httputil

import (
	"net"
	"net/http"
	"time"
)

// DefaultUserAgent 默认 User-Agent
const DefaultUserAgent = "mathtutor/1.0"

// Client HTTP 客户端包装器，为每个请求附加默认请求头
// 实现 Do(*http.Request)，可直接作为 SDK 的 HTTP 客户端使用
type Client struct {
	httpClient *http.Client
	timeout    time.Duration
	headers    map[string]string
}

// ClientOption 客户端配置选项
type ClientOption func(*Client)

// WithTimeout 设置请求超时时间，<= 0 表示不限制（由 ctx 控制）
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = timeout
		c.httpClient.Timeout = timeout
	}
}

// WithHeaders 设置默认请求头
func WithHeaders(headers map[string]string) ClientOption {
	return func(c *Client) {
		for k, v := range headers {
			c.headers[k] = v
		}
	}
}

// WithTransport 替换底层 Transport
func WithTransport(rt http.RoundTripper) ClientOption {
	return func(c *Client) {
		c.httpClient.Transport = rt
	}
}

// NewClient 创建HTTP客户端
func NewClient(opts ...ClientOption) *Client {
	client := &Client{
		httpClient: &http.Client{
			Timeout:   60 * time.Second,
			Transport: newTransport(),
		},
		timeout: 60 * time.Second,
		headers: make(map[string]string),
	}

	for _, opt := range opts {
		opt(client)
	}

	if _, ok := client.headers["User-Agent"]; !ok {
		client.headers["User-Agent"] = DefaultUserAgent
	}
	return client
}

func newTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: time.Second,
	}
}

// Timeout 当前超时时间
func (c *Client) Timeout() time.Duration {
	return c.timeout
}

// Do 执行HTTP请求；不做重试，重试由调用方按错误分类决定
// 已显式设置的同名请求头不会被覆盖
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	for k, v := range c.headers {
		if req.Header.Get(k) == "" {
			req.Header.Set(k, v)
		}
	}
	return c.httpClient.Do(req)
}
