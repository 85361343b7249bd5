package pdf

import (
	"errors"
	"fmt"
)

// tokenReader adds single-token pushback on top of the lexer so the
// recursive-descent parser can look ahead.
type tokenReader struct {
	l   *lexer
	buf []token
}

func (r *tokenReader) next() (token, error) {
	if n := len(r.buf); n > 0 {
		t := r.buf[n-1]
		r.buf = r.buf[:n-1]
		return t, nil
	}
	return r.l.next()
}

func (r *tokenReader) unread(tok token) { r.buf = append(r.buf, tok) }

func parseObject(tr *tokenReader) (Object, error) {
	tok, err := tr.next()
	if err != nil {
		return nil, err
	}
	switch tok.typ {
	case tokName:
		return Name(tok.str), nil
	case tokNumber:
		if tok.isInt {
			return Integer(tok.i), nil
		}
		return Real(tok.f), nil
	case tokBool:
		return Bool(tok.i != 0), nil
	case tokNull:
		return Null{}, nil
	case tokString:
		return String{Val: tok.bytes, Hex: tok.hex}, nil
	case tokRef:
		return Ref{Num: int(tok.i), Gen: tok.gen}, nil
	case tokArrayOpen:
		return parseArray(tr)
	case tokDictOpen:
		return parseDict(tr)
	}
	return nil, fmt.Errorf("pdf: unexpected token %q at %d", tok.str, tok.pos)
}

func parseArray(tr *tokenReader) (Object, error) {
	arr := Array{}
	for {
		tok, err := tr.next()
		if err != nil {
			return nil, err
		}
		if tok.typ == tokKeyword && tok.str == "]" {
			return arr, nil
		}
		tr.unread(tok)
		item, err := parseObject(tr)
		if err != nil {
			return nil, err
		}
		arr = append(arr, item)
	}
}

func parseDict(tr *tokenReader) (Object, error) {
	d := Dict{}
	for {
		tok, err := tr.next()
		if err != nil {
			return nil, err
		}
		if tok.typ == tokKeyword && tok.str == ">>" {
			return d, nil
		}
		if tok.typ != tokName {
			return nil, fmt.Errorf("pdf: expected name key in dict at %d", tok.pos)
		}
		val, err := parseObject(tr)
		if err != nil {
			return nil, err
		}
		d[Name(tok.str)] = val
	}
}

// parseIndirect reads "num gen obj ... endobj" at the lexer's position.
// Streams are wrapped once the /Length is known, resolving an indirect
// length through lookup when necessary.
func parseIndirect(tr *tokenReader, lookup func(ObjectRef) (Object, error)) (ObjectRef, Object, error) {
	numTok, err := tr.next()
	if err != nil {
		return ObjectRef{}, nil, err
	}
	if numTok.typ != tokNumber || !numTok.isInt {
		return ObjectRef{}, nil, fmt.Errorf("pdf: expected object number at %d", numTok.pos)
	}
	genTok, err := tr.next()
	if err != nil {
		return ObjectRef{}, nil, err
	}
	if genTok.typ != tokNumber || !genTok.isInt {
		return ObjectRef{}, nil, fmt.Errorf("pdf: expected generation at %d", genTok.pos)
	}
	kwTok, err := tr.next()
	if err != nil {
		return ObjectRef{}, nil, err
	}
	if kwTok.typ != tokKeyword || kwTok.str != "obj" {
		return ObjectRef{}, nil, fmt.Errorf("pdf: expected obj keyword at %d", kwTok.pos)
	}
	ref := ObjectRef{Num: int(numTok.i), Gen: int(genTok.i)}

	obj, err := parseObject(tr)
	if err != nil {
		return ObjectRef{}, nil, err
	}
	if dict, ok := obj.(Dict); ok {
		if length, ok := streamLength(dict, lookup); ok {
			tr.l.setStreamLength(length)
		}
		if streamTok, err := tr.next(); err == nil {
			if streamTok.typ == tokStream {
				obj = &Stream{Dict: dict, Raw: streamTok.bytes}
			} else {
				tr.unread(streamTok)
			}
		}
	}
	if t, err := tr.next(); err == nil {
		if t.typ != tokKeyword || t.str != "endobj" {
			tr.unread(t)
		}
	}
	return ref, obj, nil
}

func streamLength(dict Dict, lookup func(ObjectRef) (Object, error)) (int64, bool) {
	switch v := dict["Length"].(type) {
	case Integer:
		return int64(v), true
	case Ref:
		if lookup == nil {
			return 0, false
		}
		obj, err := lookup(ObjectRef(v))
		if err != nil {
			return 0, false
		}
		if n, ok := Int(obj); ok {
			return n, true
		}
	}
	return 0, false
}

var errObjectMissing = errors.New("pdf: object not found")
