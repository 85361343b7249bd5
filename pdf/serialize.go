package pdf

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// AppendObject writes the direct serialized form of obj to buf.
// Dictionary keys are emitted in sorted order so equal documents
// serialize to equal bytes.
func AppendObject(buf *bytes.Buffer, obj Object) {
	switch v := obj.(type) {
	case Name:
		buf.WriteByte('/')
		appendName(buf, string(v))
	case Integer:
		buf.WriteString(strconv.FormatInt(int64(v), 10))
	case Real:
		buf.WriteString(FormatNumber(float64(v)))
	case Bool:
		if v {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case Null, nil:
		buf.WriteString("null")
	case String:
		if v.Hex {
			buf.WriteByte('<')
			for _, b := range v.Val {
				fmt.Fprintf(buf, "%02X", b)
			}
			buf.WriteByte('>')
		} else {
			appendLiteralString(buf, v.Val)
		}
	case Ref:
		fmt.Fprintf(buf, "%d %d R", v.Num, v.Gen)
	case Array:
		buf.WriteByte('[')
		for i, it := range v {
			if i > 0 {
				buf.WriteByte(' ')
			}
			AppendObject(buf, it)
		}
		buf.WriteByte(']')
	case Dict:
		appendDict(buf, v)
	case *Stream:
		d := v.Dict.Clone()
		d["Length"] = Integer(len(v.Raw))
		appendDict(buf, d)
		buf.WriteString("\nstream\n")
		buf.Write(v.Raw)
		buf.WriteString("\nendstream")
	default:
		buf.WriteString("null")
	}
}

func appendDict(buf *bytes.Buffer, d Dict) {
	buf.WriteString("<<")
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)
	for _, k := range keys {
		buf.WriteByte('/')
		appendName(buf, k)
		buf.WriteByte(' ')
		AppendObject(buf, d[Name(k)])
	}
	buf.WriteString(">>")
}

func appendName(buf *bytes.Buffer, name string) {
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c <= 0x20 || c >= 0x7f || c == '#' || isDelimiter(c) {
			fmt.Fprintf(buf, "#%02X", c)
			continue
		}
		buf.WriteByte(c)
	}
}

func appendLiteralString(buf *bytes.Buffer, val []byte) {
	buf.WriteByte('(')
	for _, c := range val {
		switch c {
		case '(', ')', '\\':
			buf.WriteByte('\\')
			buf.WriteByte(c)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		default:
			buf.WriteByte(c)
		}
	}
	buf.WriteByte(')')
}

// SerializeIndirect renders "num gen obj ... endobj" for one object.
func SerializeIndirect(ref ObjectRef, obj Object) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%d %d obj\n", ref.Num, ref.Gen)
	AppendObject(&buf, obj)
	buf.WriteString("\nendobj\n")
	return buf.Bytes()
}

// FormatNumber renders a float the way PDF expects: plain decimal,
// no exponent, trailing zeros trimmed.
func FormatNumber(f float64) string {
	s := strconv.FormatFloat(f, 'f', 4, 64)
	s = trimTrailingZeros(s)
	return s
}

func trimTrailingZeros(s string) string {
	if strings.IndexByte(s, '.') < 0 {
		return s
	}
	i := len(s)
	for i > 0 && s[i-1] == '0' {
		i--
	}
	if i > 0 && s[i-1] == '.' {
		i--
	}
	if i == 0 {
		return "0"
	}
	return s[:i]
}
