package extractor

import (
	"bufio"
	"bytes"
	"sort"
	"strings"
	"unicode/utf16"
)

// toUnicodeMap decodes show-operator bytes through a font's
// /ToUnicode CMap. Codes can have mixed byte lengths, so lookups try
// the longest configured length first.
type toUnicodeMap struct {
	entries map[string]string
	lengths []int
}

func parseToUnicodeCMap(data []byte) *toUnicodeMap {
	result := &toUnicodeMap{entries: make(map[string]string)}
	lengthSet := make(map[int]struct{})
	lines := bufio.NewScanner(bytes.NewReader(data))
	state := ""
	for lines.Scan() {
		line := strings.TrimSpace(lines.Text())
		if line == "" || strings.HasPrefix(line, "%") {
			continue
		}
		switch {
		case strings.HasSuffix(line, "begincodespacerange"):
			state = "codespace"
			continue
		case strings.HasSuffix(line, "beginbfchar"):
			state = "bfchar"
			continue
		case strings.HasSuffix(line, "beginbfrange"):
			state = "bfrange"
			continue
		case strings.HasSuffix(line, "endcodespacerange"),
			strings.HasSuffix(line, "endbfchar"),
			strings.HasSuffix(line, "endbfrange"):
			state = ""
			continue
		}
		switch state {
		case "codespace":
			if hexes := hexTokens(line); len(hexes) > 0 {
				if b := hexBytes(hexes[0]); len(b) > 0 {
					lengthSet[len(b)] = struct{}{}
				}
			}
		case "bfchar":
			hexes := hexTokens(line)
			if len(hexes) >= 2 {
				src := hexBytes(hexes[0])
				if len(src) > 0 {
					result.entries[string(src)] = utf16String(hexBytes(hexes[1]))
					lengthSet[len(src)] = struct{}{}
				}
			}
		case "bfrange":
			line = joinBracketed(line, lines)
			hexes := hexTokens(line)
			if len(hexes) < 3 {
				continue
			}
			src := hexBytes(hexes[0])
			length := len(src)
			lengthSet[length] = struct{}{}
			startVal := beValue(src)
			endVal := beValue(hexBytes(hexes[1]))
			if strings.Contains(line, "[") {
				for i := 0; i <= endVal-startVal && 2+i < len(hexes); i++ {
					key := string(beBytes(startVal+i, length))
					result.entries[key] = utf16String(hexBytes(hexes[2+i]))
				}
			} else {
				dst := hexBytes(hexes[2])
				dstVal := beValue(dst)
				for i := 0; i <= endVal-startVal; i++ {
					key := string(beBytes(startVal+i, length))
					result.entries[key] = utf16String(beBytes(dstVal+i, len(dst)))
				}
			}
		}
	}
	if len(lengthSet) == 0 {
		for k := range result.entries {
			lengthSet[len(k)] = struct{}{}
		}
	}
	for l := range lengthSet {
		result.lengths = append(result.lengths, l)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(result.lengths)))
	return result
}

func (m *toUnicodeMap) decode(data []byte) string {
	if len(m.lengths) == 0 {
		return string(data)
	}
	var out strings.Builder
	for len(data) > 0 {
		matched := false
		for _, l := range m.lengths {
			if len(data) < l {
				continue
			}
			if val, ok := m.entries[string(data[:l])]; ok {
				out.WriteString(val)
				data = data[l:]
				matched = true
				break
			}
		}
		if !matched {
			out.WriteByte(data[0])
			data = data[1:]
		}
	}
	return out.String()
}

// joinBracketed pulls continuation lines in until the closing bracket
// of a bfrange destination array arrives.
func joinBracketed(line string, lines *bufio.Scanner) string {
	if !strings.Contains(line, "[") || strings.Contains(line, "]") {
		return line
	}
	for lines.Scan() {
		next := strings.TrimSpace(lines.Text())
		line += " " + next
		if strings.Contains(next, "]") {
			break
		}
	}
	return line
}

func hexTokens(line string) []string {
	var tokens []string
	for {
		start := strings.IndexByte(line, '<')
		if start < 0 {
			break
		}
		end := strings.IndexByte(line[start+1:], '>')
		if end < 0 {
			break
		}
		tokens = append(tokens, strings.ReplaceAll(line[start+1:start+1+end], " ", ""))
		line = line[start+1+end+1:]
	}
	return tokens
}

func hexBytes(hex string) []byte {
	if len(hex)%2 == 1 {
		hex += "0"
	}
	out := make([]byte, len(hex)/2)
	for i := 0; i < len(hex); i += 2 {
		out[i/2] = hexNibble(hex[i])<<4 | hexNibble(hex[i+1])
	}
	return out
}

func hexNibble(c byte) byte {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	default:
		return 0
	}
}

func beValue(b []byte) int {
	v := 0
	for _, c := range b {
		v = v<<8 | int(c)
	}
	return v
}

func beBytes(v, length int) []byte {
	out := make([]byte, length)
	for i := length - 1; i >= 0; i-- {
		out[i] = byte(v)
		v >>= 8
	}
	return out
}

func utf16String(b []byte) string {
	if len(b)%2 != 0 {
		b = b[:len(b)-1]
	}
	if len(b) == 0 {
		return ""
	}
	units := make([]uint16, len(b)/2)
	for i := range units {
		units[i] = uint16(b[2*i])<<8 | uint16(b[2*i+1])
	}
	return string(utf16.Decode(units))
}
