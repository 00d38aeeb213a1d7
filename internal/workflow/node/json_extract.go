package node

import (
	"encoding/json"
	"regexp"
	"strings"
)

var fencedJSONRe = regexp.MustCompile("(?i)```json\\s*([\\s\\S]*?)\\s*```")

// JSONBlock 模型输出中定位到的 JSON 片段。
// Start/End 为整个片段（含代码围栏）在原文中的字节区间。
type JSONBlock struct {
	Text  string
	Start int
	End   int
}

// FindJSONBlock 定位模型输出中的 JSON 块。
// 优先匹配 ```json 围栏（忽略大小写）；没有围栏时取第一个能被解析的平衡 {...}。
func FindJSONBlock(raw string) (JSONBlock, bool) {
	if m := fencedJSONRe.FindStringSubmatchIndex(raw); m != nil {
		return JSONBlock{Text: raw[m[2]:m[3]], Start: m[0], End: m[1]}, true
	}

	start := strings.IndexByte(raw, '{')
	for start >= 0 {
		end := matchingBrace(raw, start)
		if end < 0 {
			break
		}
		candidate := raw[start : end+1]
		if json.Valid([]byte(candidate)) {
			return JSONBlock{Text: candidate, Start: start, End: end + 1}, true
		}
		next := strings.IndexByte(raw[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return JSONBlock{}, false
}

// StripBlock 返回去掉 JSON 块之后的剩余文本（已 TrimSpace）
func StripBlock(raw string, b JSONBlock) string {
	if b.End <= b.Start {
		return strings.TrimSpace(raw)
	}
	return strings.TrimSpace(raw[:b.Start] + raw[b.End:])
}

// matchingBrace 返回与 start 处 '{' 配对的 '}' 下标，忽略字符串中的括号；找不到时返回 -1
func matchingBrace(s string, start int) int {
	depth := 0
	inString := false
	escape := false

	for i := start; i < len(s); i++ {
		c := s[i]
		if escape {
			escape = false
			continue
		}
		if c == '\\' {
			escape = true
			continue
		}
		if c == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}
		switch c {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
