package converter

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var (
	// ErrInputMissing 输入目录不存在
	ErrInputMissing = errors.New("input directory not found")
	// ErrNoImages 输入目录中没有图片
	ErrNoImages = errors.New("no worksheet images found")
)

var imageTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".webp": "image/webp",
}

// Page 一张作业图片，目录名即单元号
type Page struct {
	Unit string
	Path string
	Key  string // 相对 root 的路径，作为断点键
}

// MimeType 按扩展名推断
func (p Page) MimeType() string {
	return imageTypes[strings.ToLower(filepath.Ext(p.Path))]
}

// Stem 不含扩展名的文件名
func (p Page) Stem() string {
	base := filepath.Base(p.Path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// ScanPages 扫描 <root>/<unit>/<page>.{png,jpg,jpeg,webp}，按单元、文件名排序
func ScanPages(root string) ([]Page, error) {
	info, err := os.Stat(root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrInputMissing, root)
		}
		return nil, fmt.Errorf("读取输入目录失败: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrInputMissing, root)
	}

	units, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("读取输入目录失败: %w", err)
	}

	var pages []Page
	for _, unit := range units {
		if !unit.IsDir() || strings.HasPrefix(unit.Name(), ".") {
			continue
		}
		entries, err := os.ReadDir(filepath.Join(root, unit.Name()))
		if err != nil {
			return nil, fmt.Errorf("读取单元目录失败: %w", err)
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			if _, ok := imageTypes[strings.ToLower(filepath.Ext(e.Name()))]; !ok {
				continue
			}
			pages = append(pages, Page{
				Unit: unit.Name(),
				Path: filepath.Join(root, unit.Name(), e.Name()),
				Key:  unit.Name() + "/" + e.Name(),
			})
		}
	}

	if len(pages) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoImages, root)
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i].Key < pages[j].Key })
	return pages, nil
}
