package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
)

// Updater builds an incremental update section appended after the
// original file bytes. The original content is never rewritten, so a
// failed or abandoned update leaves nothing behind and the appended
// section is byte-for-byte reproducible for the same inputs.
type Updater struct {
	doc     *Document
	nextNum int
	objects map[ObjectRef]Object
	order   []ObjectRef
}

// NewUpdater prepares an incremental update over doc.
func NewUpdater(doc *Document) *Updater {
	return &Updater{
		doc:     doc,
		nextNum: doc.MaxObjNum() + 1,
		objects: make(map[ObjectRef]Object),
	}
}

// Alloc reserves a fresh object number.
func (u *Updater) Alloc() ObjectRef {
	ref := ObjectRef{Num: u.nextNum}
	u.nextNum++
	return ref
}

// Put registers obj under ref. Passing a ref that already exists in the
// original document replaces that object in the update section.
func (u *Updater) Put(ref ObjectRef, obj Object) {
	if _, ok := u.objects[ref]; !ok {
		u.order = append(u.order, ref)
	}
	u.objects[ref] = obj
}

// Add allocates a number for obj and registers it.
func (u *Updater) Add(obj Object) ObjectRef {
	ref := u.Alloc()
	u.Put(ref, obj)
	return ref
}

// FlateStream builds a stream object with a zlib-compressed payload.
func FlateStream(dict Dict, data []byte) *Stream {
	d := dict.Clone()
	if d == nil {
		d = Dict{}
	}
	d["Filter"] = Name("FlateDecode")
	return &Stream{Dict: d, Raw: flateEncode(data)}
}

// Bytes serializes the original document plus the update section:
// the new objects, a classic xref subsection covering them, and a
// trailer chaining to the previous xref via /Prev.
func (u *Updater) Bytes() ([]byte, error) {
	if len(u.objects) == 0 {
		return u.doc.Bytes(), nil
	}
	prevStart, err := u.doc.lastXrefOffset()
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.Write(u.doc.Bytes())
	if buf.Len() > 0 && buf.Bytes()[buf.Len()-1] != '\n' {
		buf.WriteByte('\n')
	}

	refs := append([]ObjectRef(nil), u.order...)
	sort.Slice(refs, func(i, j int) bool { return refs[i].Num < refs[j].Num })

	offsets := make(map[int]int64, len(refs))
	for _, ref := range refs {
		offsets[ref.Num] = int64(buf.Len())
		buf.Write(SerializeIndirect(ref, u.objects[ref]))
	}

	xrefOffset := int64(buf.Len())
	buf.WriteString("xref\n")
	// Contiguous runs become one subsection each.
	for i := 0; i < len(refs); {
		j := i
		for j+1 < len(refs) && refs[j+1].Num == refs[j].Num+1 {
			j++
		}
		fmt.Fprintf(&buf, "%d %d\n", refs[i].Num, j-i+1)
		for k := i; k <= j; k++ {
			fmt.Fprintf(&buf, "%010d %05d n \n", offsets[refs[k].Num], refs[k].Gen)
		}
		i = j + 1
	}

	size := int64(u.nextNum)
	if prev, ok := u.doc.Trailer.Int("Size"); ok && prev > size {
		size = prev
	}
	trailer := Dict{
		"Size": Integer(size),
		"Prev": Integer(prevStart),
	}
	for _, key := range []Name{"Root", "Info", "ID"} {
		if v, ok := u.doc.Trailer[key]; ok {
			trailer[key] = v
		}
	}
	buf.WriteString("trailer\n")
	AppendObject(&buf, trailer)
	fmt.Fprintf(&buf, "\nstartxref\n%d\n%%%%EOF\n", xrefOffset)
	return buf.Bytes(), nil
}

func (d *Document) lastXrefOffset() (int64, error) {
	idx := bytes.LastIndex(d.data, []byte("startxref"))
	if idx < 0 {
		return 0, errors.New("pdf: startxref not found")
	}
	var off int64
	if _, err := fmt.Sscanf(firstLine(d.data[idx+len("startxref"):]), "%d", &off); err != nil {
		return 0, fmt.Errorf("pdf: parse startxref: %w", err)
	}
	return off, nil
}
