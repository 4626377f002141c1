package openai

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"time"

	"mathtutor/internal/failure"
	"mathtutor/pkg/httputil"

	openai "github.com/sashabaranov/go-openai"
)

// DefaultTranscribePrompt 作业图片转 LaTeX 的默认提示词
const DefaultTranscribePrompt = `You are transcribing a math worksheet image.
Return ONLY a JSON array. Each element must be an object with the keys
"number" (the question number as printed), "question" and "answer".
Write all mathematics in LaTeX. If an answer is not shown on the page,
solve the problem and give the final answer in LaTeX.`

// Config OpenAI 客户端配置
type Config struct {
	APIKey              string
	BaseURL             string
	OrgID               string
	EmbeddingModel      string
	EmbeddingDimensions int // 0 表示使用模型默认维度
	VisionModel         string
	VisionPrompt        string
	Timeout             time.Duration
}

// Client OpenAI 适配器：向量生成与图像转写
// 不做重试，错误原样返回由上层分类
type Client struct {
	client      *openai.Client
	embedModel  string
	dimensions  int
	visionModel string
	prompt      string
}

// NewClient 创建 OpenAI 客户端
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, failure.New(failure.KindInvalidCredential, "OpenAI API key is not configured")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	if cfg.OrgID != "" {
		clientConfig.OrgID = cfg.OrgID
	}
	clientConfig.HTTPClient = httputil.NewClient(httputil.WithTimeout(cfg.Timeout))

	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = string(openai.SmallEmbedding3)
	}
	if cfg.VisionModel == "" {
		cfg.VisionModel = openai.GPT4o
	}
	if cfg.VisionPrompt == "" {
		cfg.VisionPrompt = DefaultTranscribePrompt
	}

	return &Client{
		client:      openai.NewClientWithConfig(clientConfig),
		embedModel:  cfg.EmbeddingModel,
		dimensions:  cfg.EmbeddingDimensions,
		visionModel: cfg.VisionModel,
		prompt:      cfg.VisionPrompt,
	}, nil
}

// Model 当前向量模型
func (c *Client) Model() string {
	return c.embedModel
}

// CreateEmbedding 调用 Embeddings API，返回未经处理的向量
func (c *Client) CreateEmbedding(ctx context.Context, text string) ([]float32, error) {
	req := openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(c.embedModel),
	}
	if c.dimensions > 0 {
		req.Dimensions = c.dimensions
	}

	resp, err := c.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, errors.New("OpenAI API 返回空向量")
	}
	return resp.Data[0].Embedding, nil
}

// Transcribe 将图片以 data URL 形式发送给视觉模型，返回模型输出文本
func (c *Client) Transcribe(ctx context.Context, image []byte, mimeType string) (string, error) {
	if len(image) == 0 {
		return "", failure.New(failure.KindValidationFailed, "image is empty")
	}
	if mimeType == "" {
		mimeType = http.DetectContentType(image)
	}
	dataURL := "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(image)

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.visionModel,
		Temperature: 0,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: c.prompt},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL:    dataURL,
							Detail: openai.ImageURLDetailHigh,
						},
					},
				},
			},
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("OpenAI API 返回空响应")
	}
	return resp.Choices[0].Message.Content, nil
}
