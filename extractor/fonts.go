package extractor

import (
	"strings"

	"github.com/RodrigoAbrao/editor-pdf/fontkit"
	"github.com/RodrigoAbrao/editor-pdf/pdf"
)

// fontInfo carries everything the interpreter needs from one font
// dictionary: text decoding, glyph advances and vertical metrics.
type fontInfo struct {
	baseName string
	twoByte  bool // Type0 fonts consume 2-byte codes
	cmap     *toUnicodeMap

	widths       map[int]float64 // code -> advance in thousandths
	defaultWidth float64
	ascent       float64 // thousandths, positive
	descent      float64 // thousandths, negative
	flags        int     // FlagBold / FlagItalic hints
}

func newFontInfo(doc *pdf.Document, dict pdf.Dict) *fontInfo {
	info := &fontInfo{
		defaultWidth: 500,
		ascent:       800,
		descent:      -200,
		widths:       make(map[int]float64),
	}
	base, _ := dict.Name("BaseFont")
	info.baseName = fontkit.StripSubsetPrefix(string(base))
	lower := strings.ToLower(info.baseName)
	if strings.Contains(lower, "bold") {
		info.flags |= FlagBold
	}
	if strings.Contains(lower, "italic") || strings.Contains(lower, "oblique") {
		info.flags |= FlagItalic
	}

	if data, err := doc.StreamData(dict["ToUnicode"]); err == nil && len(data) > 0 {
		info.cmap = parseToUnicodeCMap(data)
	}

	subtype, _ := dict.Name("Subtype")
	if subtype == "Type0" {
		info.twoByte = true
		info.defaultWidth = 1000
		if desc, ok := descendantFont(doc, dict); ok {
			info.loadCIDWidths(doc, desc)
			info.loadDescriptor(doc, desc)
		}
		return info
	}

	info.loadSimpleWidths(doc, dict)
	info.loadDescriptor(doc, dict)
	if len(info.widths) == 0 {
		if w, ok := builtinWidths(info.baseName); ok {
			info.widths = w
		}
	}
	return info
}

func descendantFont(doc *pdf.Document, dict pdf.Dict) (pdf.Dict, bool) {
	arr, err := doc.Resolve(dict["DescendantFonts"])
	if err != nil {
		return nil, false
	}
	items, ok := arr.(pdf.Array)
	if !ok || len(items) == 0 {
		return nil, false
	}
	desc, err := doc.ResolveDict(items[0])
	if err != nil {
		return nil, false
	}
	return desc, true
}

func (f *fontInfo) loadSimpleWidths(doc *pdf.Document, dict pdf.Dict) {
	first, err := doc.ResolveNumber(dict["FirstChar"])
	if err != nil {
		return
	}
	arr, err := doc.Resolve(dict["Widths"])
	if err != nil {
		return
	}
	widths, ok := arr.(pdf.Array)
	if !ok {
		return
	}
	for i, item := range widths {
		w, err := doc.ResolveNumber(item)
		if err != nil {
			continue
		}
		f.widths[int(first)+i] = w
	}
}

// loadCIDWidths parses the /W array: runs of "start [w1 w2 ...]" and
// ranges of "start end w".
func (f *fontInfo) loadCIDWidths(doc *pdf.Document, desc pdf.Dict) {
	if dw, err := doc.ResolveNumber(desc["DW"]); err == nil {
		f.defaultWidth = dw
	}
	arr, err := doc.Resolve(desc["W"])
	if err != nil {
		return
	}
	items, ok := arr.(pdf.Array)
	if !ok {
		return
	}
	for i := 0; i < len(items); {
		start, err := doc.ResolveNumber(items[i])
		if err != nil || i+1 >= len(items) {
			return
		}
		next, err := doc.Resolve(items[i+1])
		if err != nil {
			return
		}
		switch v := next.(type) {
		case pdf.Array:
			for j, it := range v {
				if w, err := doc.ResolveNumber(it); err == nil {
					f.widths[int(start)+j] = w
				}
			}
			i += 2
		default:
			if i+2 >= len(items) {
				return
			}
			end, ok1 := pdf.Number(v)
			w, err := doc.ResolveNumber(items[i+2])
			if ok1 && err == nil {
				for c := int(start); c <= int(end); c++ {
					f.widths[c] = w
				}
			}
			i += 3
		}
	}
}

func (f *fontInfo) loadDescriptor(doc *pdf.Document, dict pdf.Dict) {
	desc, err := doc.ResolveDict(dict["FontDescriptor"])
	if err != nil {
		return
	}
	if a, err := doc.ResolveNumber(desc["Ascent"]); err == nil && a > 0 {
		f.ascent = a
	}
	if d, err := doc.ResolveNumber(desc["Descent"]); err == nil && d < 0 {
		f.descent = d
	}
	if mw, err := doc.ResolveNumber(desc["MissingWidth"]); err == nil && mw > 0 {
		f.defaultWidth = mw
	}
	if fl, err := doc.ResolveNumber(desc["Flags"]); err == nil && int(fl)&0x40 != 0 {
		f.flags |= FlagItalic
	}
	if ia, err := doc.ResolveNumber(desc["ItalicAngle"]); err == nil && ia != 0 {
		f.flags |= FlagItalic
	}
}

// width returns the advance of one character code in thousandths.
func (f *fontInfo) width(code int) float64 {
	if w, ok := f.widths[code]; ok {
		return w
	}
	return f.defaultWidth
}

// decode turns raw show-operator bytes into text plus the per-code
// list the interpreter advances by.
func (f *fontInfo) decode(data []byte) (string, []int) {
	step := 1
	if f.twoByte {
		step = 2
	}
	codes := make([]int, 0, len(data)/step)
	for i := 0; i+step <= len(data); i += step {
		code := int(data[i])
		if step == 2 {
			code = code<<8 | int(data[i+1])
		}
		codes = append(codes, code)
	}
	if f.cmap != nil {
		return f.cmap.decode(data), codes
	}
	if f.twoByte {
		// No ToUnicode and raw CIDs: nothing meaningful to decode.
		runes := make([]rune, len(codes))
		for i := range codes {
			runes[i] = '�'
		}
		return string(runes), codes
	}
	return decodeWinAnsi(data), codes
}

// decodeWinAnsi maps single-byte codes through cp1252, the encoding
// simple Latin fonts overwhelmingly use.
func decodeWinAnsi(data []byte) string {
	runes := make([]rune, 0, len(data))
	for _, b := range data {
		runes = append(runes, winAnsiRunes[b])
	}
	return string(runes)
}

// builtinWidths supplies advances for non-embedded base-14 fonts.
func builtinWidths(baseName string) (map[int]float64, bool) {
	if fontkit.FamilyOf(baseName) != "Helvetica" && baseName != "Arial" {
		return nil, false
	}
	helv := fontkit.Helvetica()
	out := make(map[int]float64, 256)
	for b := 0; b < 256; b++ {
		r := winAnsiRunes[b]
		out[b] = helv.Measure(string(r), 1000)
	}
	return out, true
}
