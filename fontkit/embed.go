package fontkit

import (
	"bytes"
	"fmt"
	"math"
	"sort"
	"unicode/utf16"

	"golang.org/x/image/font/sfnt"

	"github.com/RodrigoAbrao/editor-pdf/pdf"
)

// Embedder accumulates the glyphs one export draws with a font and
// then writes the matching PDF font objects. Registered fonts become
// Type0/Identity-H with the full font file embedded; the built-in
// fallback becomes a plain Type1 dictionary with WinAnsi encoding.
type Embedder struct {
	Font *Font
	used map[sfnt.GlyphIndex]rune
}

// NewEmbedder starts glyph collection for f.
func NewEmbedder(f *Font) *Embedder {
	return &Embedder{Font: f, used: make(map[sfnt.GlyphIndex]rune)}
}

// Encode turns text into the string object a content stream shows
// with Tj, recording glyph usage for the font objects.
func (e *Embedder) Encode(text string) pdf.String {
	if e.Font.Builtin {
		out := make([]byte, 0, len(text))
		for _, r := range text {
			b, ok := winAnsiByte(r)
			if !ok {
				b = '?'
			}
			out = append(out, b)
		}
		return pdf.String{Val: out}
	}
	glyphs := e.Font.shape(text)
	runes := []rune(text)
	out := make([]byte, 0, 2*len(glyphs))
	for _, g := range glyphs {
		gid := sfnt.GlyphIndex(g.GlyphID)
		out = append(out, byte(gid>>8), byte(gid))
		if _, ok := e.used[gid]; !ok {
			cluster := g.ClusterIndex
			if cluster >= 0 && cluster < len(runes) {
				e.used[gid] = runes[cluster]
			}
		}
	}
	return pdf.String{Val: out, Hex: true}
}

// Finish writes the font objects into the update and returns the
// reference a page resource dictionary should point at.
func (e *Embedder) Finish(u *pdf.Updater) pdf.ObjectRef {
	if e.Font.Builtin {
		return u.Add(pdf.Dict{
			"Type":     pdf.Name("Font"),
			"Subtype":  pdf.Name("Type1"),
			"BaseFont": pdf.Name(e.Font.PostScript),
			"Encoding": pdf.Name("WinAnsiEncoding"),
		})
	}

	f := e.Font
	fileRef := u.Add(pdf.FlateStream(pdf.Dict{
		"Length1": pdf.Integer(len(f.data)),
	}, f.data))

	descRef := u.Add(pdf.Dict{
		"Type":        pdf.Name("FontDescriptor"),
		"FontName":    pdf.Name(f.PostScript),
		"Flags":       pdf.Integer(4),
		"ItalicAngle": pdf.Real(f.italicAngle),
		"Ascent":      pdf.Real(f.Metrics.Ascent),
		"Descent":     pdf.Real(f.Metrics.Descent),
		"CapHeight":   pdf.Real(f.Metrics.CapHeight),
		"StemV":       pdf.Integer(80),
		"FontBBox": pdf.Array{
			pdf.Real(f.bbox[0]), pdf.Real(f.bbox[1]),
			pdf.Real(f.bbox[2]), pdf.Real(f.bbox[3]),
		},
		"FontFile2": pdf.Ref(fileRef),
	})

	gids := make([]int, 0, len(e.used))
	for gid := range e.used {
		gids = append(gids, int(gid))
	}
	sort.Ints(gids)
	widths := pdf.Array{}
	for _, gid := range gids {
		w := math.Round(f.glyphWidth(sfnt.GlyphIndex(gid)))
		widths = append(widths, pdf.Integer(gid), pdf.Array{pdf.Integer(int64(w))})
	}

	cidRef := u.Add(pdf.Dict{
		"Type":     pdf.Name("Font"),
		"Subtype":  pdf.Name("CIDFontType2"),
		"BaseFont": pdf.Name(f.PostScript),
		"CIDSystemInfo": pdf.Dict{
			"Registry":   pdf.String{Val: []byte("Adobe")},
			"Ordering":   pdf.String{Val: []byte("Identity")},
			"Supplement": pdf.Integer(0),
		},
		"DW":             pdf.Integer(1000),
		"W":              widths,
		"CIDToGIDMap":    pdf.Name("Identity"),
		"FontDescriptor": pdf.Ref(descRef),
	})

	toUniRef := u.Add(pdf.FlateStream(nil, e.toUnicode(gids)))

	return u.Add(pdf.Dict{
		"Type":            pdf.Name("Font"),
		"Subtype":         pdf.Name("Type0"),
		"BaseFont":        pdf.Name(f.PostScript),
		"Encoding":        pdf.Name("Identity-H"),
		"DescendantFonts": pdf.Array{pdf.Ref(cidRef)},
		"ToUnicode":       pdf.Ref(toUniRef),
	})
}

// toUnicode renders the bfchar CMap so extracted overlay text maps
// back to the runes that produced it.
func (e *Embedder) toUnicode(gids []int) []byte {
	var buf bytes.Buffer
	buf.WriteString(`/CIDInit /ProcSet findresource begin
12 dict begin
begincmap
/CIDSystemInfo <</Registry (Adobe) /Ordering (UCS) /Supplement 0>> def
/CMapName /Adobe-Identity-UCS def
/CMapType 2 def
1 begincodespacerange
<0000> <FFFF>
endcodespacerange
`)
	fmt.Fprintf(&buf, "%d beginbfchar\n", len(gids))
	for _, gid := range gids {
		fmt.Fprintf(&buf, "<%04X> <", gid)
		for _, unit := range utf16.Encode([]rune{e.used[sfnt.GlyphIndex(gid)]}) {
			fmt.Fprintf(&buf, "%04X", unit)
		}
		buf.WriteString(">\n")
	}
	buf.WriteString(`endbfchar
endcmap
CMapName currentdict /CMap defineresource pop
end
end
`)
	return buf.Bytes()
}
