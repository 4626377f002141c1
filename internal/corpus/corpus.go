// Package corpus 题库语料文件（JSON / YAML）读写
package corpus

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	// ErrCorpusMissing 语料文件不存在
	ErrCorpusMissing = errors.New("corpus file not found")
	// ErrCorpusEmpty 语料文件没有任何条目
	ErrCorpusEmpty = errors.New("corpus is empty")
)

// Label 单元号/题号，文件中可以是数字或字符串
type Label string

// UnmarshalJSON 兼容数字与字符串
func (l *Label) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*l = Label(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("label must be a string or number: %s", string(data))
	}
	*l = Label(n.String())
	return nil
}

// UnmarshalYAML 兼容数字与字符串
func (l *Label) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: label must be a scalar", node.Line)
	}
	*l = Label(strings.TrimSpace(node.Value))
	return nil
}

// MarshalJSON 纯数字标签写成数字
func (l Label) MarshalJSON() ([]byte, error) {
	if n, err := strconv.ParseInt(string(l), 10, 64); err == nil && strconv.FormatInt(n, 10) == string(l) {
		return []byte(l), nil
	}
	return json.Marshal(string(l))
}

// Item 一道题
type Item struct {
	Unit     Label  `json:"unit" yaml:"unit"`
	Number   Label  `json:"number" yaml:"number"`
	Question string `json:"question" yaml:"question"`
	Answer   string `json:"answer" yaml:"answer"`
	Source   string `json:"source,omitempty" yaml:"source,omitempty"` // 转写来源图片，手写语料为空
}

// Key 工作项键 "<unit>:<number>"
func (it Item) Key() string {
	return string(it.Unit) + ":" + string(it.Number)
}

// Load 读取语料文件，按扩展名选择 JSON 或 YAML
// 键重复时保留首次出现的条目
func Load(path string) ([]Item, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrCorpusMissing, path)
		}
		return nil, fmt.Errorf("读取语料文件失败: %w", err)
	}

	var items []Item
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &items)
	default:
		err = json.Unmarshal(data, &items)
	}
	if err != nil {
		return nil, fmt.Errorf("解析语料文件 %s 失败: %w", path, err)
	}

	items = dedupe(items)
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrCorpusEmpty, path)
	}
	return items, nil
}

// Write 以 JSON 数组写出语料（先写临时文件再重命名）
func Write(path string, items []Item) error {
	if items == nil {
		items = []Item{}
	}
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化语料失败: %w", err)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("创建输出目录失败: %w", err)
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("写入语料文件失败: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("写入语料文件失败: %w", err)
	}
	return nil
}

// Sources 已出现的来源键，按首次出现顺序
func Sources(items []Item) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, it := range items {
		if it.Source == "" {
			continue
		}
		if _, ok := seen[it.Source]; ok {
			continue
		}
		seen[it.Source] = struct{}{}
		out = append(out, it.Source)
	}
	return out
}

func dedupe(items []Item) []Item {
	seen := make(map[string]struct{}, len(items))
	out := items[:0]
	for _, it := range items {
		key := it.Key()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, it)
	}
	return out
}
