package embedding

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// TokenCounter 文本 token 计数
type TokenCounter interface {
	Count(text string) int
}

// TiktokenCounter 基于 tiktoken 的 token 计数器
type TiktokenCounter struct {
	tkm *tiktoken.Tiktoken
}

// NewTiktokenCounter 按模型加载编码，未识别的模型回退到 cl100k_base
func NewTiktokenCounter(model string) (*TiktokenCounter, error) {
	tkm, err := tiktoken.EncodingForModel(model)
	if err != nil {
		tkm, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, fmt.Errorf("加载 tiktoken 编码失败: %w", err)
		}
	}
	return &TiktokenCounter{tkm: tkm}, nil
}

// Count 计算 token 数
func (c *TiktokenCounter) Count(text string) int {
	return len(c.tkm.Encode(text, nil, nil))
}
