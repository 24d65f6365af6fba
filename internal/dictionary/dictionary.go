// Package dictionary 提供找字遊戲使用的單字驗證。
//
// 驗證結果只有兩種：是單字或不是。查詢失敗（網路、逾時）以錯誤返回，
// 由呼叫端決定視為拒絕。
package dictionary

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
)

// Checker 單字驗證器
type Checker interface {
	Check(ctx context.Context, word string) (bool, error)
}

// CheckerFunc 讓普通函數滿足 Checker
type CheckerFunc func(ctx context.Context, word string) (bool, error)

// Check 實現 Checker
func (f CheckerFunc) Check(ctx context.Context, word string) (bool, error) {
	return f(ctx, word)
}

// AcceptAll 任何字母組合都算單字，只在明確停用字典時使用
var AcceptAll Checker = CheckerFunc(func(context.Context, string) (bool, error) { return true, nil })

// WordListChecker 以記憶體中的單字表驗證
type WordListChecker struct {
	words map[string]struct{}
}

// NewWordListChecker 以單字清單建立驗證器（不分大小寫）
func NewWordListChecker(words []string) *WordListChecker {
	c := &WordListChecker{words: make(map[string]struct{}, len(words))}
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			c.words[w] = struct{}{}
		}
	}
	return c
}

// ReadWordList 從每行一字的文字讀取單字表，# 開頭為註解
func ReadWordList(r io.Reader) (*WordListChecker, error) {
	var words []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		words = append(words, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read word list: %w", err)
	}
	return NewWordListChecker(words), nil
}

// LoadWordList 從檔案載入單字表
func LoadWordList(path string) (*WordListChecker, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open word list: %w", err)
	}
	defer f.Close()
	return ReadWordList(f)
}

// Check 實現 Checker
func (c *WordListChecker) Check(ctx context.Context, word string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	_, ok := c.words[strings.ToLower(word)]
	return ok, nil
}

// Len 單字數量
func (c *WordListChecker) Len() int {
	return len(c.words)
}
