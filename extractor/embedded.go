package extractor

import (
	"sort"

	"github.com/RodrigoAbrao/editor-pdf/fontkit"
	"github.com/RodrigoAbrao/editor-pdf/pdf"
)

// EmbeddedFont is a font program carried inside the document itself.
type EmbeddedFont struct {
	Name string
	Data []byte
}

// EmbeddedFonts collects TrueType and CFF font programs (FontFile2,
// FontFile3) from every page's font resources, keyed by the cleaned
// BaseFont name. Unparseable or incomplete entries are skipped.
func (e *Extractor) EmbeddedFonts() []EmbeddedFont {
	seen := make(map[string]bool)
	var out []EmbeddedFont
	for _, page := range e.pages {
		if page.Resources == nil {
			continue
		}
		fonts, err := e.doc.ResolveDict(page.Resources["Font"])
		if err != nil {
			continue
		}
		for _, obj := range fonts {
			dict, err := e.doc.ResolveDict(obj)
			if err != nil {
				continue
			}
			base, _ := dict.Name("BaseFont")
			name := fontkit.StripSubsetPrefix(string(base))
			if name == "" || seen[name] {
				continue
			}
			data := e.fontProgram(dict)
			if len(data) == 0 {
				continue
			}
			seen[name] = true
			out = append(out, EmbeddedFont{Name: name, Data: data})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// fontProgram digs the outline stream out of the font's descriptor,
// following DescendantFonts for composite fonts.
func (e *Extractor) fontProgram(dict pdf.Dict) []byte {
	if subtype, _ := dict.Name("Subtype"); subtype == "Type0" {
		desc, ok := descendantFont(e.doc, dict)
		if !ok {
			return nil
		}
		dict = desc
	}
	fd, err := e.doc.ResolveDict(dict["FontDescriptor"])
	if err != nil {
		return nil
	}
	for _, key := range []pdf.Name{"FontFile2", "FontFile3"} {
		if data, err := e.doc.StreamData(fd[key]); err == nil && len(data) > 0 {
			return data
		}
	}
	return nil
}
