// Package pdf implements reading and writing of PDF files at the object
// level: tokenizing, the object model, cross-reference resolution, stream
// filters and incremental update serialization. It understands classic
// xref tables with /Prev chains, cross-reference streams and compressed
// object streams, which covers the output of every mainstream producer.
package pdf

import "fmt"

// ObjectRef identifies an indirect object by number and generation.
type ObjectRef struct {
	Num int
	Gen int
}

func (r ObjectRef) String() string { return fmt.Sprintf("%d %d R", r.Num, r.Gen) }

// Object is implemented by every PDF object type in this package.
type Object interface {
	pdfObject()
}

// Name is a PDF name object without the leading slash.
type Name string

// Integer is a PDF integer.
type Integer int64

// Real is a PDF real number.
type Real float64

// Bool is a PDF boolean.
type Bool bool

// Null is the PDF null object.
type Null struct{}

// String is a PDF string. Hex records whether the source used the
// hexadecimal form, and is honored when serializing.
type String struct {
	Val []byte
	Hex bool
}

// Ref is an indirect reference appearing inside another object.
type Ref ObjectRef

// Array is a PDF array.
type Array []Object

// Dict is a PDF dictionary keyed by name.
type Dict map[Name]Object

// Stream couples a stream dictionary with its raw, still-encoded payload.
type Stream struct {
	Dict Dict
	Raw  []byte
}

func (Name) pdfObject()    {}
func (Integer) pdfObject() {}
func (Real) pdfObject()    {}
func (Bool) pdfObject()    {}
func (Null) pdfObject()    {}
func (String) pdfObject()  {}
func (Ref) pdfObject()     {}
func (Array) pdfObject()   {}
func (Dict) pdfObject()    {}
func (*Stream) pdfObject() {}

// Number unwraps an Integer or Real into a float64.
func Number(o Object) (float64, bool) {
	switch v := o.(type) {
	case Integer:
		return float64(v), true
	case Real:
		return float64(v), true
	}
	return 0, false
}

// Int unwraps an Integer, truncating a Real if the source wrote one.
func Int(o Object) (int64, bool) {
	switch v := o.(type) {
	case Integer:
		return int64(v), true
	case Real:
		return int64(v), true
	}
	return 0, false
}

// Name returns the direct name value stored under key.
func (d Dict) Name(key Name) (Name, bool) {
	n, ok := d[key].(Name)
	return n, ok
}

// Int returns the direct integer value stored under key.
func (d Dict) Int(key Name) (int64, bool) {
	return Int(d[key])
}

// Dict returns the direct dictionary stored under key.
func (d Dict) Dict(key Name) (Dict, bool) {
	v, ok := d[key].(Dict)
	return v, ok
}

// Array returns the direct array stored under key.
func (d Dict) Array(key Name) (Array, bool) {
	v, ok := d[key].(Array)
	return v, ok
}

// Clone returns a shallow copy of the dictionary.
func (d Dict) Clone() Dict {
	out := make(Dict, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}
