package overlay

import (
	"strings"

	"github.com/RodrigoAbrao/editor-pdf/geo"
)

const ellipsis = "…"

// FontMetrics is the measuring surface the layout needs from a resolved
// font. Sizes are in points, widths in points at the given size.
type FontMetrics interface {
	Measure(text string, size float64) float64
	LineHeight(size float64) float64
	Ascent(size float64) float64
}

// Config bounds the auto-fit search.
type Config struct {
	Step       float64 // size decrement per iteration
	Floor      float64 // smallest size tried before truncating
	Background string  // cover fill, "#RRGGBB"
}

// DefaultConfig returns the stock auto-fit parameters.
func DefaultConfig() Config {
	return Config{Step: 0.5, Floor: 6, Background: "#FFFFFF"}
}

// Line is one laid-out row of text. X and Baseline are top-down page
// points; Baseline is the distance from the page top to the baseline.
type Line struct {
	Text     string
	X        float64
	Baseline float64
}

// TextBlock is the fitted rendering of an edit's replacement text.
type TextBlock struct {
	Lines     []Line
	Size      float64
	Truncated bool
}

// Overlay pairs the opaque cover rect with the text drawn over it.
type Overlay struct {
	Page  int
	Cover geo.Rect
	Fill  string
	Color string
	Font  string
	Block TextBlock
}

// Renderer lays replacement text into edit rects.
type Renderer struct {
	cfg Config
}

func NewRenderer(cfg Config) *Renderer {
	if cfg.Step <= 0 {
		cfg.Step = 0.5
	}
	if cfg.Floor <= 0 {
		cfg.Floor = 6
	}
	if cfg.Background == "" {
		cfg.Background = "#FFFFFF"
	}
	return &Renderer{cfg: cfg}
}

// Layout fits op.NewText into op.Rect with the resolved font, shrinking
// from the requested size down to the floor and truncating with an
// ellipsis when even the floor overflows. The result depends only on
// the inputs.
func (r *Renderer) Layout(op EditOperation, font FontMetrics) Overlay {
	size := op.FontSize
	if size <= 0 {
		size = 11
	}
	if size < r.cfg.Floor {
		size = r.cfg.Floor
	}

	var block TextBlock
	if op.Wrap {
		block = r.fitWrapped(op.NewText, font, op.Rect, size)
	} else {
		block = r.fitSingle(op.NewText, font, op.Rect, size)
	}
	r.place(&block, font, op.Rect, op.Align)

	color := op.Color
	if color == "" {
		color = "#000000"
	}
	return Overlay{
		Page:  op.Page,
		Cover: op.Rect,
		Fill:  r.cfg.Background,
		Color: color,
		Font:  op.Font,
		Block: block,
	}
}

// fitSingle shrinks a single line until it fits the rect in both
// dimensions, then truncates at the floor. The height bound keeps the
// line inside the cover rect.
func (r *Renderer) fitSingle(text string, font FontMetrics, rect geo.Rect, size float64) TextBlock {
	width, height := rect.Width(), rect.Height()
	for size > r.cfg.Floor && (font.Measure(text, size) > width || font.LineHeight(size) > height) {
		size -= r.cfg.Step
	}
	if size < r.cfg.Floor {
		size = r.cfg.Floor
	}
	truncated := false
	if font.Measure(text, size) > width {
		text = truncate(text, font, size, width)
		truncated = true
	}
	return TextBlock{
		Lines: []Line{{Text: text}},
		Size:  size, Truncated: truncated,
	}
}

// fitWrapped re-wraps at each size until the stacked lines fit both
// dimensions, then drops trailing lines at the floor.
func (r *Renderer) fitWrapped(text string, font FontMetrics, rect geo.Rect, size float64) TextBlock {
	width, height := rect.Width(), rect.Height()
	var lines []string
	for {
		lines = wrapWords(text, font, size, width)
		if r.wrappedFits(lines, font, size, width, height) || size <= r.cfg.Floor {
			break
		}
		size -= r.cfg.Step
		if size < r.cfg.Floor {
			size = r.cfg.Floor
		}
	}

	truncated := false
	maxLines := int(height / font.LineHeight(size))
	if maxLines < 1 {
		maxLines = 1
	}
	if len(lines) > maxLines {
		lines = lines[:maxLines]
		truncated = true
	}
	out := make([]Line, 0, len(lines))
	for i, line := range lines {
		if font.Measure(line, size) > width {
			line = truncate(line, font, size, width)
			truncated = true
		}
		last := i == len(lines)-1
		if truncated && last && !strings.HasSuffix(line, ellipsis) {
			line = truncate(line, font, size, width)
		}
		out = append(out, Line{Text: line})
	}
	return TextBlock{Lines: out, Size: size, Truncated: truncated}
}

func (r *Renderer) wrappedFits(lines []string, font FontMetrics, size, width, height float64) bool {
	if float64(len(lines))*font.LineHeight(size) > height {
		return false
	}
	for _, line := range lines {
		if font.Measure(line, size) > width {
			return false
		}
	}
	return true
}

// place assigns coordinates: the first baseline sits one ascent below
// the rect top, lines stack by line height, and each line is aligned
// horizontally inside the rect.
func (r *Renderer) place(block *TextBlock, font FontMetrics, rect geo.Rect, align Align) {
	baseline := rect.Y0 + font.Ascent(block.Size)
	lh := font.LineHeight(block.Size)
	for i := range block.Lines {
		line := &block.Lines[i]
		line.Baseline = baseline + float64(i)*lh
		switch align {
		case AlignCenter:
			line.X = rect.X0 + (rect.Width()-font.Measure(line.Text, block.Size))/2
		case AlignRight:
			line.X = rect.X1 - font.Measure(line.Text, block.Size)
		default:
			line.X = rect.X0
		}
		if line.X < rect.X0 {
			line.X = rect.X0
		}
	}
}

// wrapWords packs words greedily, breaking before the word that would
// overflow. A single word wider than the rect gets its own line.
func wrapWords(text string, font FontMetrics, size, width float64) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	var lines []string
	current := words[0]
	for _, word := range words[1:] {
		candidate := current + " " + word
		if font.Measure(candidate, size) > width {
			lines = append(lines, current)
			current = word
			continue
		}
		current = candidate
	}
	return append(lines, current)
}

// truncate returns the longest rune prefix that fits the width with an
// ellipsis appended.
func truncate(text string, font FontMetrics, size, width float64) string {
	runes := []rune(text)
	for n := len(runes); n > 0; n-- {
		candidate := strings.TrimRight(string(runes[:n]), " ") + ellipsis
		if font.Measure(candidate, size) <= width {
			return candidate
		}
	}
	return ellipsis
}
