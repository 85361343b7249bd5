// Package export composes overlay edits onto a document and serializes
// the result as an incremental update. An export is a pure function of
// the document bytes, the edit set and the font registry snapshot.
package export

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/RodrigoAbrao/editor-pdf/extractor"
	"github.com/RodrigoAbrao/editor-pdf/fontkit"
	"github.com/RodrigoAbrao/editor-pdf/geo"
	"github.com/RodrigoAbrao/editor-pdf/overlay"
	"github.com/RodrigoAbrao/editor-pdf/pdf"
)

// Config carries the pipeline's tuning knobs.
type Config struct {
	Layout    overlay.Config
	Tolerance float64 // geometric key tolerance in points
}

// DefaultConfig returns the stock pipeline parameters.
func DefaultConfig() Config {
	return Config{Layout: overlay.DefaultConfig(), Tolerance: 1}
}

// EditAudit records how one edit was resolved, for callers that warn
// about fallback fonts or unmatched regions. It never affects output.
type EditAudit struct {
	Edit       overlay.EditOperation
	Span       *extractor.TextSpan // nil when no span matched the region
	FontMatch  fontkit.MatchKind
	FittedSize float64
	Truncated  bool
}

// Result is a successful export.
type Result struct {
	Bytes    []byte
	Audits   []EditAudit
	Degraded []int // pages whose text layer could not be extracted
}

// Pipeline drives Validate, Extract, Resolve, Render, Compose and
// Serialize for one export request.
type Pipeline struct {
	fonts    *fontkit.Registry
	renderer *overlay.Renderer
	cfg      Config
}

// New builds a pipeline over the given registry.
func New(fonts *fontkit.Registry, cfg Config) *Pipeline {
	if cfg.Tolerance <= 0 {
		cfg.Tolerance = 1
	}
	return &Pipeline{
		fonts:    fonts,
		renderer: overlay.NewRenderer(cfg.Layout),
		cfg:      cfg,
	}
}

// fontEnc is the per-export encoding state of one resolved font.
type fontEnc struct {
	font     *fontkit.Font
	embedder *fontkit.Embedder
	resName  pdf.Name
	ref      pdf.ObjectRef
}

// Export applies the edits to the document and returns the final bytes.
// Validation is exhaustive; any violation fails the whole request with
// a *ValidationError. Zero edits return the original bytes unchanged.
func (p *Pipeline) Export(ctx context.Context, data []byte, edits []overlay.EditOperation) (*Result, error) {
	doc, err := pdf.Parse(data)
	if err != nil {
		return nil, &ExportError{Stage: "parse", Err: err}
	}
	pages, err := doc.Pages()
	if err != nil {
		return nil, &ExportError{Stage: "parse", Err: err}
	}

	if verr := validate(edits, pages); verr != nil {
		return nil, verr
	}

	set := overlay.NewEditSet(p.cfg.Tolerance)
	for _, e := range edits {
		if e.Color == "" {
			e.Color = "#000000"
		}
		set.Put(e)
	}
	if set.Len() == 0 {
		return &Result{Bytes: doc.Bytes()}, nil
	}

	result := &Result{}
	spansByPage := p.extract(ctx, doc, set, result)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	u := pdf.NewUpdater(doc)
	var encs []*fontEnc
	byFont := make(map[*fontkit.Font]*fontEnc)
	enc := func(f *fontkit.Font) *fontEnc {
		if e, ok := byFont[f]; ok {
			return e
		}
		e := &fontEnc{
			font:     f,
			embedder: fontkit.NewEmbedder(f),
			resName:  pdf.Name(fmt.Sprintf("OVF%d", len(encs)+1)),
		}
		byFont[f] = e
		encs = append(encs, e)
		return e
	}

	// Render and compose page by page in ascending page order; edits
	// within a page keep their last-put order.
	byPage := set.ByPage()
	pageIdx := make([]int, 0, len(byPage))
	for idx := range byPage {
		pageIdx = append(pageIdx, idx)
	}
	sort.Ints(pageIdx)

	type pageOut struct {
		page    pdf.Page
		content []byte
		fonts   map[pdf.Name]*fontEnc
	}
	outs := make([]pageOut, 0, len(pageIdx))
	for _, idx := range pageIdx {
		page := pages[idx]
		var buf bytes.Buffer
		usedFonts := make(map[pdf.Name]*fontEnc)
		for _, op := range byPage[idx] {
			res := p.fonts.Resolve(op.Font)
			fe := enc(res.Font)
			usedFonts[fe.resName] = fe

			ov := p.renderer.Layout(op, res.Font)
			appendOverlay(&buf, ov, fe, page.Height)

			result.Audits = append(result.Audits, EditAudit{
				Edit:       op,
				Span:       matchSpan(spansByPage[idx], op, p.cfg.Tolerance),
				FontMatch:  res.Match,
				FittedSize: ov.Block.Size,
				Truncated:  ov.Block.Truncated,
			})
		}
		outs = append(outs, pageOut{page: page, content: buf.Bytes(), fonts: usedFonts})
	}

	// Subset streams are written only after every page encoded its text.
	for _, fe := range encs {
		fe.ref = fe.embedder.Finish(u)
	}

	saveRef := u.Add(&pdf.Stream{Dict: pdf.Dict{}, Raw: []byte("q\n")})
	for _, out := range outs {
		overlayRef := u.Add(pdf.FlateStream(nil, append([]byte("Q\n"), out.content...)))
		pageDict, err := composePage(doc, out.page, saveRef, overlayRef, out.fonts)
		if err != nil {
			return nil, &ExportError{Stage: "compose", Err: err}
		}
		u.Put(out.page.Ref, pageDict)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	final, err := u.Bytes()
	if err != nil {
		return nil, &ExportError{Stage: "serialize", Err: err}
	}
	result.Bytes = final
	return result, nil
}

func validate(edits []overlay.EditOperation, pages []pdf.Page) *ValidationError {
	var verr ValidationError
	add := func(i int, e overlay.EditOperation, reason string) {
		verr.Violations = append(verr.Violations, Violation{Index: i, Page: e.Page, Reason: reason})
	}
	for i, e := range edits {
		if e.Page < 0 || e.Page >= len(pages) {
			add(i, e, fmt.Sprintf("page out of range [0, %d)", len(pages)))
			continue
		}
		page := pages[e.Page]
		if !e.Rect.Valid() {
			add(i, e, "empty or inverted rect")
		} else if !e.Rect.Within(page.Width, page.Height) {
			add(i, e, fmt.Sprintf("rect outside page bounds %gx%g", page.Width, page.Height))
		}
		if e.FontSize < 0 {
			add(i, e, "negative font size")
		}
		if e.Color != "" {
			if _, _, _, err := parseHexColor(e.Color); err != nil {
				add(i, e, "invalid color, want #RRGGBB")
			}
		}
		switch e.Align {
		case "", overlay.AlignLeft, overlay.AlignCenter, overlay.AlignRight:
		default:
			add(i, e, "invalid align, want left, center or right")
		}
	}
	if len(verr.Violations) > 0 {
		return &verr
	}
	return nil
}

// extract reads spans from the edited pages. Extraction is best-effort:
// a failing page is recorded as degraded and its edits simply carry no
// span match in the audit.
func (p *Pipeline) extract(ctx context.Context, doc *pdf.Document, set *overlay.EditSet, result *Result) map[int][]extractor.TextSpan {
	out := make(map[int][]extractor.TextSpan)
	ex, err := extractor.New(doc)
	if err != nil {
		return out
	}
	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for idx := range set.ByPage() {
		g.Go(func() error {
			pt, err := ex.Page(ctx, idx)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Degraded = append(result.Degraded, idx)
				return nil
			}
			out[idx] = pt.Spans
			return nil
		})
	}
	g.Wait()
	sort.Ints(result.Degraded)
	return out
}

func matchSpan(spans []extractor.TextSpan, op overlay.EditOperation, tol float64) *extractor.TextSpan {
	for i := range spans {
		if geo.SameRegion(spans[i].Rect, op.Rect, tol) {
			return &spans[i]
		}
	}
	return nil
}

// appendOverlay emits the cover rect and text block for one edit.
// Layout coordinates are top-down page points; content streams use
// bottom-up user space, so the vertical axis flips here and only here.
func appendOverlay(buf *bytes.Buffer, ov overlay.Overlay, fe *fontEnc, pageHeight float64) {
	fr, fg, fb, _ := parseHexColor(ov.Fill)
	fmt.Fprintf(buf, "q\n%s %s %s rg\n", pdf.FormatNumber(fr), pdf.FormatNumber(fg), pdf.FormatNumber(fb))
	fmt.Fprintf(buf, "%s %s %s %s re\nf\nQ\n",
		pdf.FormatNumber(ov.Cover.X0),
		pdf.FormatNumber(pageHeight-ov.Cover.Y1),
		pdf.FormatNumber(ov.Cover.Width()),
		pdf.FormatNumber(ov.Cover.Height()))

	tr, tg, tb, _ := parseHexColor(ov.Color)
	for _, line := range ov.Block.Lines {
		if line.Text == "" {
			continue
		}
		fmt.Fprintf(buf, "BT\n/%s %s Tf\n%s %s %s rg\n%s %s Td\n",
			fe.resName, pdf.FormatNumber(ov.Block.Size),
			pdf.FormatNumber(tr), pdf.FormatNumber(tg), pdf.FormatNumber(tb),
			pdf.FormatNumber(line.X), pdf.FormatNumber(pageHeight-line.Baseline))
		pdf.AppendObject(buf, fe.embedder.Encode(line.Text))
		buf.WriteString(" Tj\nET\n")
	}
}

// composePage rebuilds the page dictionary: overlay font resources are
// merged in and the content becomes [save, original..., overlay] so the
// original stream cannot leak graphics state into the overlay.
func composePage(doc *pdf.Document, page pdf.Page, saveRef, overlayRef pdf.ObjectRef, fonts map[pdf.Name]*fontEnc) (pdf.Dict, error) {
	dict := page.Dict.Clone()

	resources := pdf.Dict{}
	if page.Resources != nil {
		resources = page.Resources.Clone()
	}
	fontDict := pdf.Dict{}
	if existing, err := doc.ResolveDict(resources["Font"]); err == nil {
		fontDict = existing.Clone()
	}
	names := make([]pdf.Name, 0, len(fonts))
	for name := range fonts {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	for _, name := range names {
		fontDict[name] = pdf.Ref(fonts[name].ref)
	}
	resources["Font"] = fontDict
	dict["Resources"] = resources

	contents := pdf.Array{pdf.Ref(saveRef)}
	switch v := dict["Contents"].(type) {
	case nil:
	case pdf.Array:
		contents = append(contents, v...)
	case pdf.Ref:
		resolved, err := doc.Resolve(v)
		if err != nil {
			return nil, fmt.Errorf("page contents: %w", err)
		}
		if arr, ok := resolved.(pdf.Array); ok {
			contents = append(contents, arr...)
		} else {
			contents = append(contents, v)
		}
	default:
		return nil, fmt.Errorf("unsupported contents entry %T", v)
	}
	contents = append(contents, pdf.Ref(overlayRef))
	dict["Contents"] = contents
	return dict, nil
}

func parseHexColor(s string) (r, g, b float64, err error) {
	if len(s) != 7 || s[0] != '#' {
		return 0, 0, 0, fmt.Errorf("invalid color %q", s)
	}
	var c [3]float64
	for i := 0; i < 3; i++ {
		v, err := strconv.ParseUint(s[1+2*i:3+2*i], 16, 8)
		if err != nil {
			return 0, 0, 0, fmt.Errorf("invalid color %q", s)
		}
		c[i] = float64(v) / 255
	}
	return c[0], c[1], c[2], nil
}
