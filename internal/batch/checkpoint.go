package batch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Progress 断点进度
type Progress struct {
	ProcessedKeys []string  `json:"processedKeys"`
	LastUpdated   time.Time `json:"lastUpdated"`
}

// KeySet 已处理键集合
func (p *Progress) KeySet() map[string]struct{} {
	set := make(map[string]struct{}, len(p.ProcessedKeys))
	for _, k := range p.ProcessedKeys {
		set[k] = struct{}{}
	}
	return set
}

// CheckpointStore 断点存储
// Load 在没有断点时返回空进度；Clear 在没有断点时不报错
type CheckpointStore interface {
	Load(ctx context.Context) (*Progress, error)
	Save(ctx context.Context, progress *Progress) error
	Clear(ctx context.Context) error
}

// FileCheckpoint 本地 JSON 文件断点
type FileCheckpoint struct {
	path string
}

// NewFileCheckpoint 创建文件断点存储
func NewFileCheckpoint(path string) *FileCheckpoint {
	return &FileCheckpoint{path: path}
}

// Path 断点文件路径
func (c *FileCheckpoint) Path() string {
	return c.path
}

// Load 读取断点
func (c *FileCheckpoint) Load(ctx context.Context) (*Progress, error) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Progress{}, nil
		}
		return nil, fmt.Errorf("读取断点文件失败: %w", err)
	}
	return decodeProgress(data)
}

// Save 写入断点（临时文件 + 重命名）
func (c *FileCheckpoint) Save(ctx context.Context, progress *Progress) error {
	data, err := json.MarshalIndent(progress, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化断点失败: %w", err)
	}
	if dir := filepath.Dir(c.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("创建断点目录失败: %w", err)
		}
	}

	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("写入断点文件失败: %w", err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		return fmt.Errorf("写入断点文件失败: %w", err)
	}
	return nil
}

// Clear 删除断点
func (c *FileCheckpoint) Clear(ctx context.Context) error {
	if err := os.Remove(c.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("删除断点文件失败: %w", err)
	}
	return nil
}

func decodeProgress(data []byte) (*Progress, error) {
	var p Progress
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("解析断点失败: %w", err)
	}
	return &p, nil
}
