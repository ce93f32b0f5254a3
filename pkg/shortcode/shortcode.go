package shortcode

import (
	"crypto/rand"
	"fmt"
)

// Alphabet 去除易混淆字符（0/O、1/I/L）的字母表，便于人工输入
const Alphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// DefaultLength 检查点编码默认长度
const DefaultLength = 6

// New 生成一个长度为 n 的随机短码
// 短码空间较小，全局唯一性由数据库唯一约束 + 冲突重试保证，
// 生成器本身不做去重。
func New(n int) (string, error) {
	if n <= 0 {
		n = DefaultLength
	}

	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("生成随机短码失败: %w", err)
	}

	out := make([]byte, n)
	for i, b := range buf {
		out[i] = Alphabet[int(b)%len(Alphabet)]
	}
	return string(out), nil
}
