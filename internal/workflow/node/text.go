package node

import (
	"strings"
	"unicode/utf8"
)

// TruncateByRunes 按字符（而非字节）截断，保证不切断多字节字符
func TruncateByRunes(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	for i, n := 0, 0; i < len(s); n++ {
		if n == maxRunes {
			return s[:i]
		}
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
	}
	return s
}

// NormalizeSpace 把连续空白（含换行）折叠为单个空格
func NormalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Snippet 折叠空白后截取前 maxRunes 个字符
func Snippet(s string, maxRunes int) string {
	return strings.TrimSpace(TruncateByRunes(NormalizeSpace(s), maxRunes))
}
