package node

import (
	"regexp"
	"strings"
)

var trailingCommaRe = regexp.MustCompile(`,(\s*[}\]])`)

// repairSteps 依次尝试：原文、去注释与尾逗号、宽松字面量
var repairSteps = []func(string) string{
	func(s string) string { return s },
	Sanitize,
	RelaxLiterals,
}

// DecodeWithRepair 依次对修复后的文本调用 decode，首次成功即返回 nil，
// 全部失败时返回最后一次的错误。
func DecodeWithRepair(text string, decode func([]byte) error) error {
	var lastErr error
	for _, step := range repairSteps {
		candidate := strings.TrimSpace(step(text))
		if err := decode([]byte(candidate)); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return lastErr
}

// Sanitize 去除字符串之外的 // 与 /* */ 注释以及对象/数组末尾的多余逗号
func Sanitize(s string) string {
	return trailingCommaRe.ReplaceAllString(stripComments(s), "$1")
}

// RelaxLiterals 在 Sanitize 的基础上把单引号字符串转为双引号，
// 并把字符串之外的 True/False/None 转为 JSON 字面量。
func RelaxLiterals(s string) string {
	s = Sanitize(s)

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == '"':
			end := skipString(s, i, '"')
			b.WriteString(s[i:end])
			i = end
		case c == '\'':
			end := skipString(s, i, '\'')
			b.WriteString(requoteSingle(s[i:end]))
			i = end
		case isIdentByte(c) && (i == 0 || !isIdentByte(s[i-1])):
			j := i
			for j < len(s) && isIdentByte(s[j]) {
				j++
			}
			word := s[i:j]
			switch word {
			case "True":
				word = "true"
			case "False":
				word = "false"
			case "None":
				word = "null"
			}
			b.WriteString(word)
			i = j
		default:
			b.WriteByte(c)
			i++
		}
	}
	return b.String()
}

// stripComments 去除字符串之外的注释
func stripComments(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inString := false
	escape := false

	for i := 0; i < len(s); i++ {
		c := s[i]
		if escape {
			b.WriteByte(c)
			escape = false
			continue
		}
		if c == '\\' {
			escape = true
			b.WriteByte(c)
			continue
		}
		if c == '"' {
			inString = !inString
			b.WriteByte(c)
			continue
		}
		if !inString && c == '/' && i+1 < len(s) {
			switch s[i+1] {
			case '/':
				i += 2
				for i < len(s) && s[i] != '\n' && s[i] != '\r' {
					i++
				}
				if i < len(s) {
					b.WriteByte(s[i])
				}
				continue
			case '*':
				i += 2
				for i+1 < len(s) && !(s[i] == '*' && s[i+1] == '/') {
					i++
				}
				i++
				continue
			}
		}
		b.WriteByte(c)
	}
	return b.String()
}

// skipString 返回从 start 处引号开始的字符串结束位置（不含），未闭合时返回 len(s)
func skipString(s string, start int, quote byte) int {
	for i := start + 1; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case quote:
			return i + 1
		}
	}
	return len(s)
}

// requoteSingle 把 'abc' 形式的字符串改写为合法的 JSON 字符串
func requoteSingle(lit string) string {
	body := strings.TrimPrefix(lit, "'")
	body = strings.TrimSuffix(body, "'")
	body = strings.ReplaceAll(body, `\'`, `'`)

	var b strings.Builder
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c == '\\' && i+1 < len(body) {
			b.WriteByte(c)
			b.WriteByte(body[i+1])
			i++
			continue
		}
		if c == '"' {
			b.WriteString(`\"`)
			continue
		}
		b.WriteByte(c)
	}
	return `"` + b.String() + `"`
}

func isIdentByte(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
