package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
)

type tokenType int

const (
	tokDictOpen tokenType = iota // '<<'
	tokArrayOpen
	tokName
	tokString
	tokNumber
	tokBool
	tokNull
	tokRef
	tokStream
	tokKeyword // obj, endobj, >>, ], operators
)

type token struct {
	typ   tokenType
	str   string // name, keyword
	bytes []byte // string payload, stream payload
	i     int64
	f     float64
	isInt bool
	gen   int // ref generation
	hex   bool
	pos   int64
}

// lexer tokenizes PDF syntax over an in-memory buffer. Streams are a
// special case: when streamLen is set from the surrounding dictionary's
// /Length the payload is sliced directly, otherwise the lexer falls
// back to searching for the endstream marker.
type lexer struct {
	data      []byte
	pos       int64
	streamLen int64
}

func newLexer(data []byte) *lexer {
	return &lexer{data: data, streamLen: -1}
}

func (l *lexer) seek(off int64) error {
	if off < 0 || off > int64(len(l.data)) {
		return fmt.Errorf("seek out of range: %d", off)
	}
	l.pos = off
	return nil
}

func (l *lexer) setStreamLength(n int64) { l.streamLen = n }

func (l *lexer) next() (token, error) {
	l.skipWSAndComments()
	if l.pos >= int64(len(l.data)) {
		return token{}, io.EOF
	}
	start := l.pos
	c := l.data[l.pos]
	switch c {
	case '<':
		if l.peek(1) == '<' {
			l.pos += 2
			return token{typ: tokDictOpen, pos: start}, nil
		}
		return l.scanHexString()
	case '>':
		if l.peek(1) == '>' {
			l.pos += 2
			return token{typ: tokKeyword, str: ">>", pos: start}, nil
		}
		l.pos++
		return token{typ: tokKeyword, str: ">", pos: start}, nil
	case '[':
		l.pos++
		return token{typ: tokArrayOpen, pos: start}, nil
	case ']':
		l.pos++
		return token{typ: tokKeyword, str: "]", pos: start}, nil
	case '(':
		return l.scanLiteralString()
	case '/':
		return l.scanName()
	}
	if isNumberStart(c) {
		return l.scanNumberOrRef()
	}
	return l.scanKeyword()
}

func (l *lexer) peek(n int64) byte {
	if l.pos+n >= int64(len(l.data)) {
		return 0
	}
	return l.data[l.pos+n]
}

func (l *lexer) skipWSAndComments() {
	for l.pos < int64(len(l.data)) {
		c := l.data[l.pos]
		if isWhitespace(c) {
			l.pos++
			continue
		}
		if c == '%' {
			for l.pos < int64(len(l.data)) && !isEOL(l.data[l.pos]) {
				l.pos++
			}
			continue
		}
		return
	}
}

func (l *lexer) scanName() (token, error) {
	start := l.pos
	l.pos++ // '/'
	var out bytes.Buffer
	for l.pos < int64(len(l.data)) {
		c := l.data[l.pos]
		if isDelimiter(c) {
			break
		}
		if c == '#' && l.pos+2 < int64(len(l.data)) {
			a := fromHex(l.data[l.pos+1])
			b := fromHex(l.data[l.pos+2])
			out.WriteByte((a << 4) | b)
			l.pos += 3
			continue
		}
		out.WriteByte(c)
		l.pos++
	}
	return token{typ: tokName, str: out.String(), pos: start}, nil
}

func (l *lexer) scanLiteralString() (token, error) {
	start := l.pos
	l.pos++ // '('
	var buf bytes.Buffer
	depth := 1
	for l.pos < int64(len(l.data)) {
		c := l.data[l.pos]
		if c == '\\' {
			l.pos++
			if l.pos >= int64(len(l.data)) {
				break
			}
			esc := l.data[l.pos]
			switch {
			case esc == '\r':
				l.pos++
				if l.pos < int64(len(l.data)) && l.data[l.pos] == '\n' {
					l.pos++
				}
			case esc == '\n':
				l.pos++
			case esc >= '0' && esc <= '7':
				val := int(esc - '0')
				l.pos++
				for k := 0; k < 2 && l.pos < int64(len(l.data)); k++ {
					d := l.data[l.pos]
					if d < '0' || d > '7' {
						break
					}
					val = val<<3 + int(d-'0')
					l.pos++
				}
				buf.WriteByte(byte(val))
			default:
				buf.WriteByte(translateEscape(esc))
				l.pos++
			}
			continue
		}
		if c == '(' {
			depth++
		} else if c == ')' {
			depth--
			if depth == 0 {
				l.pos++
				return token{typ: tokString, bytes: buf.Bytes(), pos: start}, nil
			}
		}
		buf.WriteByte(c)
		l.pos++
	}
	return token{}, errors.New("pdf: unterminated literal string")
}

func (l *lexer) scanHexString() (token, error) {
	start := l.pos
	l.pos++ // '<'
	var nibbles []byte
	for l.pos < int64(len(l.data)) {
		c := l.data[l.pos]
		if c == '>' {
			l.pos++
			if len(nibbles)%2 == 1 {
				nibbles = append(nibbles, '0')
			}
			out := make([]byte, 0, len(nibbles)/2)
			for i := 0; i < len(nibbles); i += 2 {
				out = append(out, fromHex(nibbles[i])<<4|fromHex(nibbles[i+1]))
			}
			return token{typ: tokString, bytes: out, hex: true, pos: start}, nil
		}
		if !isWhitespace(c) {
			nibbles = append(nibbles, c)
		}
		l.pos++
	}
	return token{}, errors.New("pdf: unterminated hex string")
}

func (l *lexer) scanKeyword() (token, error) {
	start := l.pos
	var buf bytes.Buffer
	for l.pos < int64(len(l.data)) {
		c := l.data[l.pos]
		if isDelimiter(c) {
			break
		}
		buf.WriteByte(c)
		l.pos++
	}
	if buf.Len() == 0 {
		// Single delimiter byte that matched no structural case.
		l.pos++
		return token{typ: tokKeyword, str: string(l.data[start]), pos: start}, nil
	}
	kw := buf.String()
	switch kw {
	case "true", "false":
		return token{typ: tokBool, i: boolToInt(kw == "true"), pos: start}, nil
	case "null":
		return token{typ: tokNull, pos: start}, nil
	case "stream":
		return l.scanStream(start)
	default:
		return token{typ: tokKeyword, str: kw, pos: start}, nil
	}
}

func (l *lexer) scanStream(start int64) (token, error) {
	// The stream keyword is followed by CRLF or LF before the data.
	if l.pos < int64(len(l.data)) && l.data[l.pos] == '\r' {
		l.pos++
	}
	if l.pos < int64(len(l.data)) && l.data[l.pos] == '\n' {
		l.pos++
	}
	dataStart := l.pos
	if l.streamLen >= 0 {
		end := dataStart + l.streamLen
		if end > int64(len(l.data)) {
			end = int64(len(l.data))
		}
		payload := append([]byte(nil), l.data[dataStart:end]...)
		l.pos = end
		l.streamLen = -1
		// Skip the optional EOL and the endstream keyword.
		if idx := bytes.Index(l.data[l.pos:], []byte("endstream")); idx >= 0 && idx <= 4 {
			l.pos += int64(idx + len("endstream"))
		}
		return token{typ: tokStream, bytes: payload, pos: start}, nil
	}
	idx := bytes.Index(l.data[dataStart:], []byte("endstream"))
	if idx < 0 {
		return token{}, errors.New("pdf: endstream not found")
	}
	end := dataStart + int64(idx)
	// Trim the EOL that separates data from the marker.
	if end > dataStart && l.data[end-1] == '\n' {
		end--
	}
	if end > dataStart && l.data[end-1] == '\r' {
		end--
	}
	payload := append([]byte(nil), l.data[dataStart:end]...)
	l.pos = dataStart + int64(idx+len("endstream"))
	return token{typ: tokStream, bytes: payload, pos: start}, nil
}

func (l *lexer) scanNumberOrRef() (token, error) {
	start := l.pos
	first := l.scanNumberString()
	if first == "" {
		l.pos++
		return token{typ: tokKeyword, str: string(l.data[start]), pos: start}, nil
	}
	// "n g R" lookahead for an indirect reference.
	save := l.pos
	l.skipWSAndComments()
	second := l.scanNumberString()
	if second != "" {
		l.skipWSAndComments()
		if l.pos < int64(len(l.data)) && l.data[l.pos] == 'R' &&
			(l.pos+1 >= int64(len(l.data)) || isDelimiter(l.data[l.pos+1])) {
			l.pos++
			num, err1 := strconv.Atoi(first)
			gen, err2 := strconv.Atoi(second)
			if err1 == nil && err2 == nil {
				return token{typ: tokRef, i: int64(num), gen: gen, pos: start}, nil
			}
		}
	}
	l.pos = save
	if i, err := strconv.ParseInt(first, 10, 64); err == nil {
		return token{typ: tokNumber, i: i, isInt: true, pos: start}, nil
	}
	f, err := strconv.ParseFloat(first, 64)
	if err != nil {
		return token{}, fmt.Errorf("pdf: bad number %q", first)
	}
	return token{typ: tokNumber, f: f, pos: start}, nil
}

func (l *lexer) scanNumberString() string {
	start := l.pos
	seenDigit := false
	for l.pos < int64(len(l.data)) {
		c := l.data[l.pos]
		if c == '+' || c == '-' || c == '.' || (c >= '0' && c <= '9') {
			if c >= '0' && c <= '9' {
				seenDigit = true
			}
			l.pos++
			continue
		}
		break
	}
	if !seenDigit {
		l.pos = start
		return ""
	}
	return string(l.data[start:l.pos])
}

func isNumberStart(c byte) bool { return c == '+' || c == '-' || c == '.' || (c >= '0' && c <= '9') }

func isWhitespace(c byte) bool {
	return c == 0x00 || c == 0x09 || c == 0x0A || c == 0x0C || c == 0x0D || c == 0x20
}

func isEOL(c byte) bool { return c == '\r' || c == '\n' }

func isDelimiter(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	default:
		return isWhitespace(c)
	}
}

func fromHex(c byte) byte {
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

func translateEscape(c byte) byte {
	switch c {
	case 'n':
		return '\n'
	case 'r':
		return '\r'
	case 't':
		return '\t'
	case 'b':
		return '\b'
	case 'f':
		return '\f'
	default:
		return c
	}
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
