package converter

import (
	"encoding/json"
	"fmt"
	"strings"

	"mathtutor/internal/corpus"
	"mathtutor/internal/failure"
)

type transcribedQuestion struct {
	Number   corpus.Label `json:"number"`
	Question string       `json:"question"`
	Answer   string       `json:"answer"`
}

// ParseTranscription 解析视觉模型输出（JSON 数组，允许 ``` 代码块包裹）
// 缺少题号时用 "<页面文件名>-<序号>"，保证同一单元内不同页面的键不冲突
func ParseTranscription(page Page, raw string) ([]corpus.Item, error) {
	text := stripFences(raw)
	if start, end := strings.Index(text, "["), strings.LastIndex(text, "]"); start >= 0 && end > start {
		text = text[start : end+1]
	}

	var parsed []transcribedQuestion
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		return nil, failure.Wrap(failure.KindValidationFailed, err,
			fmt.Sprintf("transcription is not a JSON array: %v", err))
	}

	items := make([]corpus.Item, 0, len(parsed))
	for i, q := range parsed {
		if strings.TrimSpace(q.Question) == "" {
			continue
		}
		number := q.Number
		if number == "" {
			number = corpus.Label(fmt.Sprintf("%s-%d", page.Stem(), i+1))
		}
		items = append(items, corpus.Item{
			Unit:     corpus.Label(page.Unit),
			Number:   number,
			Question: strings.TrimSpace(q.Question),
			Answer:   strings.TrimSpace(q.Answer),
			Source:   page.Key,
		})
	}
	return items, nil
}

func stripFences(raw string) string {
	text := strings.TrimSpace(raw)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if nl := strings.IndexByte(text, '\n'); nl >= 0 {
		text = text[nl+1:] // 去掉语言标记，如 ```json
	}
	text = strings.TrimSpace(text)
	return strings.TrimSpace(strings.TrimSuffix(text, "```"))
}
