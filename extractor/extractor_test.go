package extractor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/go-pdf/fpdf"

	"github.com/RodrigoAbrao/editor-pdf/pdf"
)

// buildPDF assembles a classic one-xref document whose pages show the
// given content streams with a non-embedded Helvetica as /F1.
func buildPDF(t *testing.T, contents ...pdf.Object) []byte {
	t.Helper()
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")

	font := pdf.Dict{"Type": pdf.Name("Font"), "Subtype": pdf.Name("Type1"), "BaseFont": pdf.Name("Helvetica")}
	fontNum := 3 + 2*len(contents)
	var kids pdf.Array
	var objects []struct {
		ref pdf.ObjectRef
		obj pdf.Object
	}
	add := func(ref pdf.ObjectRef, obj pdf.Object) {
		objects = append(objects, struct {
			ref pdf.ObjectRef
			obj pdf.Object
		}{ref, obj})
	}
	add(pdf.ObjectRef{Num: 1}, pdf.Dict{"Type": pdf.Name("Catalog"), "Pages": pdf.Ref{Num: 2}})
	for i, content := range contents {
		pageNum, contentNum := 3+2*i, 4+2*i
		kids = append(kids, pdf.Ref{Num: pageNum})
		page := pdf.Dict{
			"Type":      pdf.Name("Page"),
			"Parent":    pdf.Ref{Num: 2},
			"MediaBox":  pdf.Array{pdf.Integer(0), pdf.Integer(0), pdf.Integer(612), pdf.Integer(792)},
			"Resources": pdf.Dict{"Font": pdf.Dict{"F1": pdf.Ref{Num: fontNum}}},
		}
		switch c := content.(type) {
		case pdf.Ref:
			// Caller wired the contents to a dangling reference.
			page["Contents"] = c
		default:
			page["Contents"] = pdf.Ref{Num: contentNum}
			add(pdf.ObjectRef{Num: contentNum}, content)
		}
		add(pdf.ObjectRef{Num: pageNum}, page)
	}
	add(pdf.ObjectRef{Num: 2}, pdf.Dict{"Type": pdf.Name("Pages"), "Kids": kids, "Count": pdf.Integer(len(contents))})
	add(pdf.ObjectRef{Num: fontNum}, font)

	offsets := make(map[int]int64)
	maxNum := 0
	for _, o := range objects {
		offsets[o.ref.Num] = int64(buf.Len())
		buf.Write(pdf.SerializeIndirect(o.ref, o.obj))
		if o.ref.Num > maxNum {
			maxNum = o.ref.Num
		}
	}

	xrefOffset := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", maxNum+1)
	buf.WriteString("0000000000 65535 f \n")
	for n := 1; n <= maxNum; n++ {
		fmt.Fprintf(&buf, "%010d 00000 n \n", offsets[n])
	}
	fmt.Fprintf(&buf, "trailer\n<</Root 1 0 R/Size %d>>\n", maxNum+1)
	fmt.Fprintf(&buf, "startxref\n%d\n%%%%EOF\n", xrefOffset)
	return buf.Bytes()
}

func contentStream(s string) pdf.Object {
	return &pdf.Stream{Dict: pdf.Dict{}, Raw: []byte(s)}
}

func extractorFor(t *testing.T, data []byte) *Extractor {
	t.Helper()
	doc, err := pdf.Parse(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	ex, err := New(doc)
	if err != nil {
		t.Fatalf("new extractor: %v", err)
	}
	return ex
}

func TestPage_SingleSpan(t *testing.T) {
	data := buildPDF(t, contentStream("BT /F1 12 Tf 100 700 Td (Hello World) Tj ET"))
	ex := extractorFor(t, data)

	pt, err := ex.Page(context.Background(), 0)
	if err != nil {
		t.Fatalf("page: %v", err)
	}
	if pt.Width != 612 || pt.Height != 792 {
		t.Fatalf("unexpected page size: %v x %v", pt.Width, pt.Height)
	}
	if len(pt.Spans) != 1 {
		t.Fatalf("expected one span, got %d: %+v", len(pt.Spans), pt.Spans)
	}
	sp := pt.Spans[0]
	if sp.Text != "Hello World" {
		t.Fatalf("unexpected text: %q", sp.Text)
	}
	if sp.Font != "Helvetica" {
		t.Fatalf("unexpected font: %q", sp.Font)
	}
	if sp.Size != 12 {
		t.Fatalf("unexpected size: %v", sp.Size)
	}
	if sp.Color != "#000000" {
		t.Fatalf("unexpected color: %q", sp.Color)
	}
	if math.Abs(sp.Rect.X0-100) > 0.01 {
		t.Fatalf("unexpected x0: %v", sp.Rect.X0)
	}
	// Baseline 700 in bottom-up space with 800/-200 default metrics.
	if math.Abs(sp.Rect.Y0-82.4) > 0.01 || math.Abs(sp.Rect.Y1-94.4) > 0.01 {
		t.Fatalf("unexpected vertical extent: %v .. %v", sp.Rect.Y0, sp.Rect.Y1)
	}
	if sp.Rect.X1 <= sp.Rect.X0 || !sp.Rect.Within(pt.Width, pt.Height) {
		t.Fatalf("rect out of page: %+v", sp.Rect)
	}
}

func TestPage_FillColor(t *testing.T) {
	data := buildPDF(t, contentStream("BT /F1 10 Tf 1 0 0 rg 50 500 Td (Red) Tj ET"))
	ex := extractorFor(t, data)

	pt, err := ex.Page(context.Background(), 0)
	if err != nil {
		t.Fatalf("page: %v", err)
	}
	if len(pt.Spans) != 1 || pt.Spans[0].Color != "#FF0000" {
		t.Fatalf("unexpected spans: %+v", pt.Spans)
	}
}

func TestPage_KernedTJMergesRun(t *testing.T) {
	data := buildPDF(t, contentStream("BT /F1 12 Tf 100 700 Td [(He) -20 (llo)] TJ ET"))
	ex := extractorFor(t, data)

	pt, err := ex.Page(context.Background(), 0)
	if err != nil {
		t.Fatalf("page: %v", err)
	}
	if len(pt.Spans) != 1 {
		t.Fatalf("expected one merged span, got %d: %+v", len(pt.Spans), pt.Spans)
	}
	if pt.Spans[0].Text != "Hello" {
		t.Fatalf("unexpected text: %q", pt.Spans[0].Text)
	}
}

func TestPage_LineBreaksSplitSpans(t *testing.T) {
	data := buildPDF(t, contentStream("BT /F1 12 Tf 100 700 Td (One) Tj 0 -14 Td (Two) Tj ET"))
	ex := extractorFor(t, data)

	pt, err := ex.Page(context.Background(), 0)
	if err != nil {
		t.Fatalf("page: %v", err)
	}
	if len(pt.Spans) != 2 {
		t.Fatalf("expected two spans, got %d: %+v", len(pt.Spans), pt.Spans)
	}
	if pt.Spans[0].Text != "One" || pt.Spans[1].Text != "Two" {
		t.Fatalf("unexpected texts: %+v", pt.Spans)
	}
	if pt.Spans[1].Rect.Y0 <= pt.Spans[0].Rect.Y0 {
		t.Fatalf("second line should sit lower on the page: %+v", pt.Spans)
	}
}

func TestAll_DegradesBrokenPage(t *testing.T) {
	data := buildPDF(t,
		contentStream("BT /F1 12 Tf 100 700 Td (Fine) Tj ET"),
		pdf.Ref{Num: 99}, // dangling contents reference
	)
	ex := extractorFor(t, data)

	pages, pageErrs, err := ex.All(context.Background())
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(pages) != 2 {
		t.Fatalf("expected two page results, got %d", len(pages))
	}
	if len(pages[0].Spans) != 1 || pages[0].Spans[0].Text != "Fine" {
		t.Fatalf("healthy page not extracted: %+v", pages[0])
	}
	if len(pageErrs) != 1 || pageErrs[0].Page != 1 {
		t.Fatalf("expected one failure on page 1, got %+v", pageErrs)
	}
	if pages[1].Width != 612 {
		t.Fatalf("broken page should still report dimensions: %+v", pages[1])
	}
}

func TestAll_Cancelled(t *testing.T) {
	data := buildPDF(t, contentStream("BT /F1 12 Tf 100 700 Td (Hi) Tj ET"))
	ex := extractorFor(t, data)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := ex.All(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

// Eight pages sharing one font object push All's fan-out through the
// shared document and font caches; run with -race to check the locking.
func TestAll_ParallelPages(t *testing.T) {
	gen := fpdf.New("P", "pt", "Letter", "")
	for i := 0; i < 8; i++ {
		gen.AddPage()
		gen.SetFont("Helvetica", "", 12)
		gen.Text(72, 100, fmt.Sprintf("Page %d", i))
	}
	var buf bytes.Buffer
	if err := gen.Output(&buf); err != nil {
		t.Fatalf("generate: %v", err)
	}

	ex := extractorFor(t, buf.Bytes())
	pages, pageErrs, err := ex.All(context.Background())
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(pageErrs) != 0 {
		t.Fatalf("unexpected page errors: %+v", pageErrs)
	}
	if len(pages) != 8 {
		t.Fatalf("expected eight pages, got %d", len(pages))
	}
	for i, pt := range pages {
		want := fmt.Sprintf("Page %d", i)
		if len(pt.Spans) != 1 || pt.Spans[0].Text != want {
			t.Fatalf("page %d: expected %q, got %+v", i, want, pt.Spans)
		}
	}
}

func TestPage_OutOfRange(t *testing.T) {
	data := buildPDF(t, contentStream("BT ET"))
	ex := extractorFor(t, data)

	_, err := ex.Page(context.Background(), 5)
	var xerr *ExtractionError
	if !errors.As(err, &xerr) || xerr.Page != 5 {
		t.Fatalf("expected ExtractionError for page 5, got %v", err)
	}
}

func TestFonts_StripsSubsetPrefix(t *testing.T) {
	data := buildPDF(t, contentStream("BT ET"))
	ex := extractorFor(t, data)

	fonts := ex.Fonts()
	if len(fonts) != 1 || fonts[0] != "Helvetica" {
		t.Fatalf("unexpected fonts: %v", fonts)
	}
}

func TestExtract_FpdfDocument(t *testing.T) {
	gen := fpdf.New("P", "pt", "Letter", "")
	gen.AddPage()
	gen.SetFont("Helvetica", "", 14)
	gen.Text(72, 100, "Invoice 2024-001")
	gen.Text(72, 130, "Total: 99.00")
	var buf bytes.Buffer
	if err := gen.Output(&buf); err != nil {
		t.Fatalf("generate: %v", err)
	}

	ex := extractorFor(t, buf.Bytes())
	if ex.PageCount() != 1 {
		t.Fatalf("expected one page, got %d", ex.PageCount())
	}
	pt, err := ex.Page(context.Background(), 0)
	if err != nil {
		t.Fatalf("page: %v", err)
	}
	var joined []string
	for _, sp := range pt.Spans {
		joined = append(joined, sp.Text)
		if !sp.Rect.Within(pt.Width, pt.Height) {
			t.Fatalf("span outside page: %+v", sp)
		}
	}
	all := strings.Join(joined, "\n")
	if !strings.Contains(all, "Invoice 2024-001") || !strings.Contains(all, "Total: 99.00") {
		t.Fatalf("expected generated text, got %q", all)
	}
}

func TestFontFlags(t *testing.T) {
	data := buildPDF(t, contentStream("BT ET"))
	doc, err := pdf.Parse(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	info := newFontInfo(doc, pdf.Dict{"BaseFont": pdf.Name("ABCDEF+Arial-BoldItalicMT")})
	if info.baseName != "Arial-BoldItalicMT" {
		t.Fatalf("subset prefix not stripped: %q", info.baseName)
	}
	if info.flags != FlagBold|FlagItalic {
		t.Fatalf("unexpected flags: %#x", info.flags)
	}
}

func TestParseToUnicodeCMap(t *testing.T) {
	cmap := []byte(`/CIDInit /ProcSet findresource begin
12 dict begin
begincmap
1 begincodespacerange
<0000> <FFFF>
endcodespacerange
2 beginbfchar
<0001> <0048>
<0002> <0065>
endbfchar
1 beginbfrange
<0003> <0005> <006C>
endbfrange
endcmap
`)
	m := parseToUnicodeCMap(cmap)
	if m == nil {
		t.Fatal("nil cmap")
	}
	got := m.decode([]byte{0x00, 0x01, 0x00, 0x02, 0x00, 0x03, 0x00, 0x03, 0x00, 0x05})
	if got != "Helln" {
		t.Fatalf("unexpected decode: %q", got)
	}
}
