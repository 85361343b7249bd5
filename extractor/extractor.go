// Package extractor pulls positioned text spans out of PDF pages.
// Coordinates are reported in top-down page points, matching the
// geometry the edit matcher and overlay renderer work in.
package extractor

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/RodrigoAbrao/editor-pdf/fontkit"
	"github.com/RodrigoAbrao/editor-pdf/geo"
	"github.com/RodrigoAbrao/editor-pdf/pdf"
)

// Style flag bits reported on spans, matching the usual viewer
// convention.
const (
	FlagItalic = 1 << 1
	FlagBold   = 1 << 4
)

// TextSpan is one run of text with uniform font, size and color.
type TextSpan struct {
	Text  string   `json:"text"`
	Font  string   `json:"font"`
	Size  float64  `json:"size"`
	Color string   `json:"color"` // "#RRGGBB"
	Rect  geo.Rect `json:"rect"`
	Flags int      `json:"flags"`
}

// PageText is the extraction result for one page.
type PageText struct {
	Page   int        `json:"page"`
	Width  float64    `json:"width"`
	Height float64    `json:"height"`
	Spans  []TextSpan `json:"spans"`
}

// ExtractionError reports a page whose content could not be read.
// Other pages of the same document are unaffected.
type ExtractionError struct {
	Page int
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract page %d: %v", e.Page, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// Extractor reads text spans from a parsed document.
type Extractor struct {
	doc   *pdf.Document
	pages []pdf.Page

	// mu guards fonts; pages extracted in parallel share the cache.
	mu    sync.Mutex
	fonts map[pdf.ObjectRef]*fontInfo
}

// New prepares an extractor. The page tree is walked once up front;
// a document whose pages cannot be enumerated is not extractable at all.
func New(doc *pdf.Document) (*Extractor, error) {
	pages, err := doc.Pages()
	if err != nil {
		return nil, err
	}
	return &Extractor{
		doc:   doc,
		pages: pages,
		fonts: make(map[pdf.ObjectRef]*fontInfo),
	}, nil
}

// PageCount returns the number of pages in the document.
func (e *Extractor) PageCount() int { return len(e.pages) }

// Dimensions returns the size of every page in points.
func (e *Extractor) Dimensions() []PageText {
	out := make([]PageText, len(e.pages))
	for i, p := range e.pages {
		out[i] = PageText{Page: i, Width: p.Width, Height: p.Height}
	}
	return out
}

// Page extracts the spans of one zero-based page.
func (e *Extractor) Page(ctx context.Context, index int) (PageText, error) {
	if index < 0 || index >= len(e.pages) {
		return PageText{}, &ExtractionError{Page: index, Err: fmt.Errorf("page out of range (document has %d)", len(e.pages))}
	}
	if err := ctx.Err(); err != nil {
		return PageText{}, err
	}
	page := e.pages[index]
	result := PageText{Page: index, Width: page.Width, Height: page.Height}

	content, err := page.Contents(e.doc)
	if err != nil {
		return result, &ExtractionError{Page: index, Err: err}
	}
	if len(content) == 0 {
		return result, nil
	}
	fonts, err := e.pageFonts(page)
	if err != nil {
		return result, &ExtractionError{Page: index, Err: err}
	}
	spans, err := interpret(content, page, fonts)
	if err != nil {
		return result, &ExtractionError{Page: index, Err: err}
	}
	result.Spans = spans
	return result, nil
}

// All extracts every page concurrently. A failing page degrades to an
// entry in the returned error list; the remaining pages still come
// back populated. The only hard failure is context cancellation.
func (e *Extractor) All(ctx context.Context) ([]PageText, []*ExtractionError, error) {
	results := make([]PageText, len(e.pages))
	pageErrs := make([]*ExtractionError, len(e.pages))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i := range e.pages {
		g.Go(func() error {
			pt, err := e.Page(ctx, i)
			results[i] = pt
			if err != nil {
				var xerr *ExtractionError
				if !errors.As(err, &xerr) {
					return err
				}
				pageErrs[i] = xerr
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	var failed []*ExtractionError
	for _, pe := range pageErrs {
		if pe != nil {
			failed = append(failed, pe)
		}
	}
	return results, failed, nil
}

// pageFonts resolves every font in the page resources to decoding and
// metric info, cached per font object across pages.
func (e *Extractor) pageFonts(page pdf.Page) (map[pdf.Name]*fontInfo, error) {
	fonts := make(map[pdf.Name]*fontInfo)
	if page.Resources == nil {
		return fonts, nil
	}
	dict, err := e.doc.ResolveDict(page.Resources["Font"])
	if err != nil {
		// Pages with no text need no font resources.
		return fonts, nil
	}
	for name, obj := range dict {
		var ref pdf.ObjectRef
		if r, ok := obj.(pdf.Ref); ok {
			ref = pdf.ObjectRef(r)
			e.mu.Lock()
			cached, ok := e.fonts[ref]
			e.mu.Unlock()
			if ok {
				fonts[name] = cached
				continue
			}
		}
		fontDict, err := e.doc.ResolveDict(obj)
		if err != nil {
			continue
		}
		info := newFontInfo(e.doc, fontDict)
		fonts[name] = info
		if ref.Num != 0 {
			e.mu.Lock()
			e.fonts[ref] = info
			e.mu.Unlock()
		}
	}
	return fonts, nil
}

// Fonts lists the distinct base font names used by the document, with
// subset prefixes stripped.
func (e *Extractor) Fonts() []string {
	seen := make(map[string]bool)
	var out []string
	for _, page := range e.pages {
		if page.Resources == nil {
			continue
		}
		dict, err := e.doc.ResolveDict(page.Resources["Font"])
		if err != nil {
			continue
		}
		for _, obj := range dict {
			fontDict, err := e.doc.ResolveDict(obj)
			if err != nil {
				continue
			}
			base, _ := fontDict.Name("BaseFont")
			name := fontkit.StripSubsetPrefix(string(base))
			if name == "" || seen[name] {
				continue
			}
			seen[name] = true
			out = append(out, name)
		}
	}
	return out
}
