package pdf

import (
	"bytes"
	"io"
)

// ContentReader iterates a decoded content stream as operator calls:
// each Next returns one operator with the operands that preceded it.
type ContentReader struct {
	tr       *tokenReader
	operands []Object
}

// NewContentReader reads operators from decoded content stream data.
func NewContentReader(data []byte) *ContentReader {
	return &ContentReader{tr: &tokenReader{l: newLexer(data)}}
}

// Next returns the next operator and its operands. The operand slice
// is reused between calls. io.EOF signals the end of the stream.
func (c *ContentReader) Next() (string, []Object, error) {
	c.operands = c.operands[:0]
	for {
		tok, err := c.tr.next()
		if err != nil {
			return "", nil, err
		}
		if tok.typ == tokKeyword {
			switch tok.str {
			case "BI":
				// Inline image: skip params and binary payload.
				if err := c.skipInlineImage(); err != nil {
					return "", nil, err
				}
				c.operands = c.operands[:0]
				continue
			case "]", ">>":
				// Stray delimiters in damaged streams; ignore.
				continue
			}
			return tok.str, c.operands, nil
		}
		c.tr.unread(tok)
		obj, err := parseObject(c.tr)
		if err != nil {
			return "", nil, err
		}
		c.operands = append(c.operands, obj)
	}
}

// skipInlineImage advances past "BI ... ID <binary> EI". The payload
// is not tokenizable, so it scans for a whitespace-delimited EI.
func (c *ContentReader) skipInlineImage() error {
	l := c.tr.l
	c.tr.buf = c.tr.buf[:0]
	idx := bytes.Index(l.data[l.pos:], []byte("ID"))
	if idx < 0 {
		return io.EOF
	}
	pos := l.pos + int64(idx) + 2
	if pos < int64(len(l.data)) && isWhitespace(l.data[pos]) {
		pos++
	}
	for pos+1 < int64(len(l.data)) {
		if l.data[pos] == 'E' && l.data[pos+1] == 'I' &&
			isWhitespace(l.data[pos-1]) &&
			(pos+2 >= int64(len(l.data)) || isDelimiter(l.data[pos+2])) {
			return l.seek(pos + 2)
		}
		pos++
	}
	return io.EOF
}
