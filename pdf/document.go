package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
)

const (
	maxRefDepth   = 32
	maxXrefChains = 64
)

type xrefEntry struct {
	offset     int64
	gen        int
	compressed bool
	streamNum  int
	streamIdx  int
}

// Document is a parsed PDF held fully in memory. Objects are loaded
// lazily from the cross-reference table and cached.
type Document struct {
	Version string
	Trailer Dict

	data []byte
	xref map[int]xrefEntry

	// mu guards the lazily filled caches below. xref is complete
	// after Parse and read without locking. Only fully parsed values
	// are stored, so concurrent loaders never see partial state.
	mu      sync.Mutex
	objects map[ObjectRef]Object
	objstm  map[int]map[int]Object
}

// Parse reads a complete PDF from data. The buffer is retained by the
// returned document and must not be modified.
func Parse(data []byte) (*Document, error) {
	doc := &Document{
		data:    data,
		xref:    make(map[int]xrefEntry),
		objects: make(map[ObjectRef]Object),
		objstm:  make(map[int]map[int]Object),
	}
	if err := doc.parseHeader(); err != nil {
		return nil, err
	}
	if err := doc.parseXref(); err != nil {
		return nil, err
	}
	return doc, nil
}

// Bytes returns the original file contents.
func (d *Document) Bytes() []byte { return d.data }

func (d *Document) parseHeader() error {
	if len(d.data) < 8 || !bytes.HasPrefix(d.data, []byte("%PDF-")) {
		return errors.New("pdf: missing %PDF header")
	}
	end := bytes.IndexAny(d.data[5:16], "\r\n \t")
	if end < 0 {
		end = 3
	}
	d.Version = string(d.data[5 : 5+end])
	return nil
}

func (d *Document) parseXref() error {
	idx := bytes.LastIndex(d.data, []byte("startxref"))
	if idx < 0 {
		return errors.New("pdf: startxref not found")
	}
	rest := d.data[idx+len("startxref"):]
	line := strings.TrimSpace(firstLine(rest))
	offset, err := strconv.ParseInt(line, 10, 64)
	if err != nil {
		return fmt.Errorf("pdf: parse startxref: %w", err)
	}

	seen := make(map[int64]bool)
	for chains := 0; offset > 0; chains++ {
		if chains >= maxXrefChains || seen[offset] {
			return errors.New("pdf: xref chain loop")
		}
		seen[offset] = true
		trailer, err := d.readXrefSection(offset)
		if err != nil {
			return err
		}
		// Earlier sections never override newer entries.
		for k, v := range trailer {
			if _, ok := d.Trailer[k]; !ok {
				if d.Trailer == nil {
					d.Trailer = Dict{}
				}
				d.Trailer[k] = v
			}
		}
		// Hybrid files point at a supplementary xref stream.
		if stm, ok := trailer.Int("XRefStm"); ok && !seen[stm] {
			seen[stm] = true
			if _, err := d.readXrefSection(stm); err != nil {
				return err
			}
		}
		prev, ok := trailer.Int("Prev")
		if !ok {
			break
		}
		offset = prev
	}
	if _, ok := d.Trailer["Root"]; !ok {
		return errors.New("pdf: trailer missing /Root")
	}
	return nil
}

func (d *Document) readXrefSection(offset int64) (Dict, error) {
	if offset < 0 || offset >= int64(len(d.data)) {
		return nil, fmt.Errorf("pdf: xref offset out of range: %d", offset)
	}
	l := newLexer(d.data)
	if err := l.seek(offset); err != nil {
		return nil, err
	}
	tr := &tokenReader{l: l}
	tok, err := tr.next()
	if err != nil {
		return nil, err
	}
	if tok.typ == tokKeyword && tok.str == "xref" {
		return d.readXrefTable(tr)
	}
	tr.unread(tok)
	return d.readXrefStream(tr)
}

// readXrefTable parses a classic ASCII cross-reference table followed
// by its trailer dictionary.
func (d *Document) readXrefTable(tr *tokenReader) (Dict, error) {
	for {
		tok, err := tr.next()
		if err != nil {
			return nil, err
		}
		if tok.typ == tokKeyword && tok.str == "trailer" {
			break
		}
		if tok.typ != tokNumber || !tok.isInt {
			return nil, fmt.Errorf("pdf: bad xref subsection at %d", tok.pos)
		}
		start := int(tok.i)
		countTok, err := tr.next()
		if err != nil {
			return nil, err
		}
		if countTok.typ != tokNumber || !countTok.isInt {
			return nil, fmt.Errorf("pdf: bad xref count at %d", countTok.pos)
		}
		count := int(countTok.i)
		for i := 0; i < count; i++ {
			offTok, err := tr.next()
			if err != nil {
				return nil, err
			}
			genTok, err := tr.next()
			if err != nil {
				return nil, err
			}
			kindTok, err := tr.next()
			if err != nil {
				return nil, err
			}
			if offTok.typ != tokNumber || genTok.typ != tokNumber || kindTok.typ != tokKeyword {
				return nil, errors.New("pdf: malformed xref entry")
			}
			if kindTok.str != "n" {
				continue
			}
			d.addEntry(start+i, xrefEntry{offset: offTok.i, gen: int(genTok.i)})
		}
	}
	trailer, err := parseObject(tr)
	if err != nil {
		return nil, err
	}
	dict, ok := trailer.(Dict)
	if !ok {
		return nil, errors.New("pdf: trailer is not a dictionary")
	}
	return dict, nil
}

// readXrefStream parses a PDF 1.5 cross-reference stream.
func (d *Document) readXrefStream(tr *tokenReader) (Dict, error) {
	_, obj, err := parseIndirect(tr, nil)
	if err != nil {
		return nil, err
	}
	stm, ok := obj.(*Stream)
	if !ok {
		return nil, errors.New("pdf: xref offset does not point at a stream")
	}
	if t, _ := stm.Dict.Name("Type"); t != "XRef" {
		return nil, errors.New("pdf: xref stream has wrong /Type")
	}
	data, err := decodeFilters(stm.Dict, stm.Raw)
	if err != nil {
		return nil, err
	}
	wArr, ok := stm.Dict.Array("W")
	if !ok || len(wArr) < 3 {
		return nil, errors.New("pdf: xref stream missing /W")
	}
	var w [3]int
	for i := 0; i < 3; i++ {
		n, ok := Int(wArr[i])
		if !ok || n < 0 || n > 8 {
			return nil, errors.New("pdf: bad /W field width")
		}
		w[i] = int(n)
	}
	size, _ := stm.Dict.Int("Size")
	index := []int64{0, size}
	if idxArr, ok := stm.Dict.Array("Index"); ok {
		index = index[:0]
		for _, it := range idxArr {
			n, ok := Int(it)
			if !ok {
				return nil, errors.New("pdf: bad /Index entry")
			}
			index = append(index, n)
		}
	}
	rowLen := w[0] + w[1] + w[2]
	if rowLen == 0 {
		return nil, errors.New("pdf: zero-width xref rows")
	}
	pos := 0
	for i := 0; i+1 < len(index); i += 2 {
		start, count := int(index[i]), int(index[i+1])
		for j := 0; j < count; j++ {
			if pos+rowLen > len(data) {
				return nil, errors.New("pdf: xref stream truncated")
			}
			typ := int64(1) // a zero-width first field means type 1
			if w[0] > 0 {
				typ = beInt(data[pos : pos+w[0]])
			}
			f2 := beInt(data[pos+w[0] : pos+w[0]+w[1]])
			f3 := beInt(data[pos+w[0]+w[1] : pos+rowLen])
			pos += rowLen
			num := start + j
			switch typ {
			case 1:
				d.addEntry(num, xrefEntry{offset: f2, gen: int(f3)})
			case 2:
				d.addEntry(num, xrefEntry{compressed: true, streamNum: int(f2), streamIdx: int(f3)})
			}
		}
	}
	return stm.Dict, nil
}

// addEntry keeps the first entry seen for each object number, so the
// newest incremental section wins over the chain it supersedes.
func (d *Document) addEntry(num int, e xrefEntry) {
	if _, ok := d.xref[num]; !ok {
		d.xref[num] = e
	}
}

func beInt(b []byte) int64 {
	var v int64
	for _, c := range b {
		v = v<<8 | int64(c)
	}
	return v
}

// Object loads the indirect object ref points to. Safe for concurrent
// use; loads are not held under the cache lock because object parsing
// recurses back into Object (indirect /Length, object streams), so two
// goroutines may parse the same object once each before one result
// lands in the cache.
func (d *Document) Object(ref ObjectRef) (Object, error) {
	d.mu.Lock()
	obj, ok := d.objects[ref]
	d.mu.Unlock()
	if ok {
		return obj, nil
	}
	e, ok := d.xref[ref.Num]
	if !ok {
		return nil, fmt.Errorf("%w: %s", errObjectMissing, ref)
	}
	var err error
	if e.compressed {
		obj, err = d.objectFromStream(ref.Num, e.streamNum)
	} else {
		obj, err = d.objectAt(ref.Num, e.offset)
	}
	if err != nil {
		return nil, err
	}
	d.mu.Lock()
	d.objects[ref] = obj
	d.mu.Unlock()
	return obj, nil
}

func (d *Document) objectAt(num int, offset int64) (Object, error) {
	l := newLexer(d.data)
	if err := l.seek(offset); err != nil {
		return nil, err
	}
	tr := &tokenReader{l: l}
	ref, obj, err := parseIndirect(tr, func(r ObjectRef) (Object, error) { return d.Object(r) })
	if err != nil {
		return nil, fmt.Errorf("pdf: object %d: %w", num, err)
	}
	if ref.Num != num {
		return nil, fmt.Errorf("pdf: object header mismatch: want %d, got %d", num, ref.Num)
	}
	return obj, nil
}

func (d *Document) objectFromStream(num, streamNum int) (Object, error) {
	d.mu.Lock()
	objs, ok := d.objstm[streamNum]
	d.mu.Unlock()
	if !ok {
		var err error
		objs, err = d.inflateObjectStream(streamNum)
		if err != nil {
			return nil, err
		}
		d.mu.Lock()
		d.objstm[streamNum] = objs
		d.mu.Unlock()
	}
	obj, ok := objs[num]
	if !ok {
		return nil, fmt.Errorf("pdf: object %d not in object stream %d", num, streamNum)
	}
	return obj, nil
}

func (d *Document) inflateObjectStream(streamNum int) (map[int]Object, error) {
	if e, ok := d.xref[streamNum]; !ok || e.compressed {
		return nil, fmt.Errorf("pdf: object stream %d has no direct xref entry", streamNum)
	}
	container, err := d.Object(ObjectRef{Num: streamNum})
	if err != nil {
		return nil, err
	}
	stm, ok := container.(*Stream)
	if !ok {
		return nil, fmt.Errorf("pdf: object stream %d is not a stream", streamNum)
	}
	data, err := decodeFilters(stm.Dict, stm.Raw)
	if err != nil {
		return nil, err
	}
	n, _ := stm.Dict.Int("N")
	first, _ := stm.Dict.Int("First")
	if first <= 0 || first > int64(len(data)) {
		return nil, fmt.Errorf("pdf: object stream %d has bad /First", streamNum)
	}
	// Header is n pairs of (object number, offset into the body).
	hl := newLexer(data[:first])
	htr := &tokenReader{l: hl}
	pairs := make([]int64, 0, 2*n)
	for int64(len(pairs)) < 2*n {
		tok, err := htr.next()
		if err != nil {
			return nil, fmt.Errorf("pdf: object stream %d header: %w", streamNum, err)
		}
		if tok.typ == tokNumber && tok.isInt {
			pairs = append(pairs, tok.i)
		}
	}
	body := data[first:]
	objs := make(map[int]Object, n)
	for i := int64(0); i < n; i++ {
		num := int(pairs[2*i])
		off := pairs[2*i+1]
		if off < 0 || off > int64(len(body)) {
			return nil, fmt.Errorf("pdf: object stream %d offset out of range", streamNum)
		}
		bl := newLexer(body[off:])
		obj, err := parseObject(&tokenReader{l: bl})
		if err != nil {
			return nil, fmt.Errorf("pdf: object stream %d entry %d: %w", streamNum, num, err)
		}
		objs[num] = obj
	}
	return objs, nil
}

// Resolve follows indirect references until a direct object remains.
func (d *Document) Resolve(obj Object) (Object, error) {
	for depth := 0; depth < maxRefDepth; depth++ {
		ref, ok := obj.(Ref)
		if !ok {
			return obj, nil
		}
		var err error
		obj, err = d.Object(ObjectRef(ref))
		if err != nil {
			return nil, err
		}
	}
	return nil, errors.New("pdf: reference chain too deep")
}

// ResolveDict resolves obj and asserts it is a dictionary.
func (d *Document) ResolveDict(obj Object) (Dict, error) {
	o, err := d.Resolve(obj)
	if err != nil {
		return nil, err
	}
	dict, ok := o.(Dict)
	if !ok {
		return nil, fmt.Errorf("pdf: expected dictionary, got %T", o)
	}
	return dict, nil
}

// ResolveNumber resolves obj to a numeric value.
func (d *Document) ResolveNumber(obj Object) (float64, error) {
	o, err := d.Resolve(obj)
	if err != nil {
		return 0, err
	}
	n, ok := Number(o)
	if !ok {
		return 0, fmt.Errorf("pdf: expected number, got %T", o)
	}
	return n, nil
}

// StreamData resolves obj to a stream and returns its decoded payload.
func (d *Document) StreamData(obj Object) ([]byte, error) {
	o, err := d.Resolve(obj)
	if err != nil {
		return nil, err
	}
	stm, ok := o.(*Stream)
	if !ok {
		return nil, fmt.Errorf("pdf: expected stream, got %T", o)
	}
	return decodeFilters(stm.Dict, stm.Raw)
}

// Catalog returns the document catalog.
func (d *Document) Catalog() (Dict, error) {
	return d.ResolveDict(d.Trailer["Root"])
}

// MaxObjNum reports the highest object number in the xref, the floor
// for allocating numbers in an incremental update.
func (d *Document) MaxObjNum() int {
	max := 0
	for num := range d.xref {
		if num > max {
			max = num
		}
	}
	return max
}

func firstLine(b []byte) string {
	for len(b) > 0 && isEOL(b[0]) {
		b = b[1:]
	}
	if i := bytes.IndexAny(b, "\r\n"); i >= 0 {
		b = b[:i]
	}
	return string(b)
}
