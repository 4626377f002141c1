// Package bootstrap 各可执行程序共用的启动装配
package bootstrap

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// maxEnvDepth 向上查找 .env 的最大层数
const maxEnvDepth = 8

// LoadEnvFile 加载当前目录或可执行文件目录向上最近的 .env
// 返回加载的文件路径，未找到时为空
func LoadEnvFile() (string, error) {
	path := resolveEnvPath(envSearchRoots()...)
	if path == "" {
		return "", nil
	}
	if err := godotenv.Load(path); err != nil {
		return path, err
	}
	return path, nil
}

func envSearchRoots() []string {
	var roots []string
	if wd, err := os.Getwd(); err == nil {
		roots = append(roots, wd)
	}
	if exe, err := os.Executable(); err == nil {
		roots = append(roots, filepath.Dir(exe))
	}
	return roots
}

// resolveEnvPath 返回第一个存在的候选 .env 路径
func resolveEnvPath(roots ...string) string {
	for _, path := range collectEnvCandidates(roots...) {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

func collectEnvCandidates(roots ...string) []string {
	seen := make(map[string]struct{})
	var candidates []string
	add := func(path string) {
		if _, ok := seen[path]; ok {
			return
		}
		seen[path] = struct{}{}
		candidates = append(candidates, path)
	}

	for _, start := range roots {
		dir := filepath.Clean(start)
		for i := 0; i < maxEnvDepth; i++ {
			if dir == "" || dir == "." || dir == string(filepath.Separator) {
				break
			}
			add(filepath.Join(dir, ".env"))
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}
	return candidates
}
