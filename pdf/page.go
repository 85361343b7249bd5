package pdf

import (
	"bytes"
	"errors"
	"fmt"
)

// Page is one leaf of the page tree with inherited attributes applied.
type Page struct {
	Index     int // zero-based position in document order
	Ref       ObjectRef
	Dict      Dict
	Width     float64 // MediaBox extent in points
	Height    float64
	Rotate    int
	Resources Dict
}

// Pages walks the page tree in document order, applying the inherited
// /MediaBox, /Resources and /Rotate attributes to each leaf.
func (d *Document) Pages() ([]Page, error) {
	catalog, err := d.Catalog()
	if err != nil {
		return nil, err
	}
	rootRef, ok := catalog["Pages"].(Ref)
	if !ok {
		return nil, errors.New("pdf: catalog missing /Pages")
	}
	var pages []Page
	inherited := pageAttrs{}
	visited := make(map[ObjectRef]bool)
	if err := d.walkPageTree(ObjectRef(rootRef), inherited, visited, &pages); err != nil {
		return nil, err
	}
	return pages, nil
}

type pageAttrs struct {
	mediaBox  Array
	resources Dict
	rotate    *int
}

func (d *Document) walkPageTree(ref ObjectRef, inherited pageAttrs, visited map[ObjectRef]bool, pages *[]Page) error {
	if visited[ref] {
		return errors.New("pdf: page tree cycle")
	}
	visited[ref] = true
	node, err := d.ResolveDict(Ref(ref))
	if err != nil {
		return err
	}

	attrs := inherited
	if mb, err := d.resolveArray(node["MediaBox"]); err == nil && mb != nil {
		attrs.mediaBox = mb
	}
	if res, err := d.ResolveDict(node["Resources"]); err == nil {
		attrs.resources = res
	}
	if rot, err := d.ResolveNumber(node["Rotate"]); err == nil {
		r := int(rot)
		attrs.rotate = &r
	}

	typ, _ := node.Name("Type")
	switch typ {
	case "Pages":
		kids, err := d.resolveArray(node["Kids"])
		if err != nil {
			return fmt.Errorf("pdf: pages node %s: %w", ref, err)
		}
		for _, kid := range kids {
			kidRef, ok := kid.(Ref)
			if !ok {
				return errors.New("pdf: page tree kid is not a reference")
			}
			if err := d.walkPageTree(ObjectRef(kidRef), attrs, visited, pages); err != nil {
				return err
			}
		}
		return nil
	case "Page":
		p := Page{
			Index:     len(*pages),
			Ref:       ref,
			Dict:      node,
			Resources: attrs.resources,
		}
		if attrs.rotate != nil {
			p.Rotate = ((*attrs.rotate)%360 + 360) % 360
		}
		if len(attrs.mediaBox) < 4 {
			return fmt.Errorf("pdf: page %d has no MediaBox", p.Index)
		}
		var box [4]float64
		for i := 0; i < 4; i++ {
			v, err := d.ResolveNumber(attrs.mediaBox[i])
			if err != nil {
				return fmt.Errorf("pdf: page %d MediaBox: %w", p.Index, err)
			}
			box[i] = v
		}
		p.Width = box[2] - box[0]
		p.Height = box[3] - box[1]
		if p.Width <= 0 || p.Height <= 0 {
			return fmt.Errorf("pdf: page %d has degenerate MediaBox", p.Index)
		}
		*pages = append(*pages, p)
		return nil
	default:
		return fmt.Errorf("pdf: page tree node %s has type %q", ref, typ)
	}
}

func (d *Document) resolveArray(obj Object) (Array, error) {
	o, err := d.Resolve(obj)
	if err != nil {
		return nil, err
	}
	arr, ok := o.(Array)
	if !ok {
		return nil, fmt.Errorf("pdf: expected array, got %T", o)
	}
	return arr, nil
}

// Contents returns the page's decoded content streams joined in order.
// Multiple streams are concatenated with a newline, matching how a
// conforming reader treats split content.
func (p Page) Contents(d *Document) ([]byte, error) {
	obj, err := d.Resolve(p.Dict["Contents"])
	if err != nil {
		return nil, err
	}
	switch v := obj.(type) {
	case *Stream:
		return decodeFilters(v.Dict, v.Raw)
	case Array:
		var buf bytes.Buffer
		for _, it := range v {
			data, err := d.StreamData(it)
			if err != nil {
				return nil, err
			}
			if buf.Len() > 0 {
				buf.WriteByte('\n')
			}
			buf.Write(data)
		}
		return buf.Bytes(), nil
	case nil, Null:
		return nil, nil
	default:
		return nil, fmt.Errorf("pdf: page contents is %T", obj)
	}
}

// Font resolves the named font dictionary from the page resources.
func (p Page) Font(d *Document, name Name) (Dict, error) {
	if p.Resources == nil {
		return nil, fmt.Errorf("pdf: page %d has no resources", p.Index)
	}
	fonts, err := d.ResolveDict(p.Resources["Font"])
	if err != nil {
		return nil, fmt.Errorf("pdf: page %d font resources: %w", p.Index, err)
	}
	font, err := d.ResolveDict(fonts[name])
	if err != nil {
		return nil, fmt.Errorf("pdf: page %d font %s: %w", p.Index, name, err)
	}
	return font, nil
}
