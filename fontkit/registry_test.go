package fontkit

import (
	"errors"
	"math"
	"sync"
	"testing"

	"golang.org/x/image/font/gofont/goregular"
)

func TestResolve_FallbackNeverFails(t *testing.T) {
	reg := NewRegistry()
	res := reg.Resolve("Foo-Bold")
	if res.Font == nil {
		t.Fatal("resolution must always return a font")
	}
	if res.Match != MatchFallback {
		t.Fatalf("expected fallback match, got %v", res.Match)
	}
	if !res.Font.Builtin || res.Font.Name != "Helvetica" {
		t.Fatalf("unexpected fallback font: %+v", res.Font)
	}
}

func TestResolve_BuiltinNameIsExact(t *testing.T) {
	reg := NewRegistry()
	res := reg.Resolve("Helvetica")
	if res.Match != MatchExact {
		t.Fatalf("naming the builtin exactly should be an exact match, got %v", res.Match)
	}
	if !res.Font.Builtin {
		t.Fatalf("expected the builtin font, got %+v", res.Font)
	}
}

func TestRegister_ExactAndFamilyResolution(t *testing.T) {
	reg := NewRegistry()
	font, err := reg.Register("CustomSans", goregular.TTF)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if font.Family == "" || font.PostScript == "" {
		t.Fatalf("expected parsed names, got %+v", font)
	}

	res := reg.Resolve("CustomSans")
	if res.Match != MatchExact || res.Font != font {
		t.Fatalf("exact resolution failed: %v", res.Match)
	}

	res = reg.Resolve(font.Family)
	if res.Match != MatchFamily || res.Font != font {
		t.Fatalf("family resolution failed: %v via %q", res.Match, font.Family)
	}

	res = reg.Resolve("Unrelated-Black")
	if res.Match != MatchFallback {
		t.Fatalf("expected fallback, got %v", res.Match)
	}
}

func TestRegister_Replaces(t *testing.T) {
	reg := NewRegistry()
	first, err := reg.Register("Body", goregular.TTF)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	second, err := reg.Register("Body", goregular.TTF)
	if err != nil {
		t.Fatalf("re-register: %v", err)
	}
	if first == second {
		t.Fatal("re-registration should load a fresh font")
	}
	if got := reg.Resolve("Body").Font; got != second {
		t.Fatal("resolution should see the replacement")
	}
	if n := len(reg.List()); n != 2 { // Body + fallback
		t.Fatalf("expected 2 listed fonts, got %d", n)
	}
}

func TestRegister_InvalidData(t *testing.T) {
	reg := NewRegistry()
	_, err := reg.Register("Broken", []byte("this is not a font"))
	if err == nil {
		t.Fatal("expected load error")
	}
	var loadErr *FontLoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("expected *FontLoadError, got %T", err)
	}
	if _, err := reg.Register("", goregular.TTF); err == nil {
		t.Fatal("empty name must be rejected")
	}
	if res := reg.Resolve("Broken"); res.Match != MatchFallback {
		t.Fatal("failed registration must not be resolvable")
	}
}

func TestStripSubsetPrefix(t *testing.T) {
	cases := map[string]string{
		"ABCDEF+Foo-Bold": "Foo-Bold",
		"Foo-Bold":        "Foo-Bold",
		"abcdef+Foo":      "abcdef+Foo", // prefix must be uppercase
		"ABCDE+Foo":       "ABCDE+Foo",  // and exactly six letters
	}
	for in, want := range cases {
		if got := StripSubsetPrefix(in); got != want {
			t.Errorf("StripSubsetPrefix(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFamilyOf(t *testing.T) {
	cases := map[string]string{
		"Roboto-Bold":     "Roboto",
		"ABCDEF+Arial-MT": "Arial",
		"Open Sans Bold":  "Open Sans",
		"Helvetica":       "Helvetica",
	}
	for in, want := range cases {
		if got := FamilyOf(in); got != want {
			t.Errorf("FamilyOf(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMeasure_Fallback(t *testing.T) {
	f := Helvetica()
	// H=722 e=556 l=222 l=222 o=556 thousandths.
	want := 2278.0 * 10 / 1000
	if got := f.Measure("Hello", 10); math.Abs(got-want) > 1e-9 {
		t.Fatalf("Measure = %v, want %v", got, want)
	}
	if f.Measure("", 10) != 0 {
		t.Fatal("empty text must measure zero")
	}
	// Unknown runes fall back to the question mark width.
	if f.Measure("你", 10) != f.Measure("?", 10) {
		t.Fatal("unmappable rune width mismatch")
	}
}

func TestMeasure_EmbeddedMonotonic(t *testing.T) {
	f, err := Load("Go", goregular.TTF)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	w8 := f.Measure("Bonjour Monde", 8)
	w12 := f.Measure("Bonjour Monde", 12)
	if w8 <= 0 || w12 <= w8 {
		t.Fatalf("widths not monotonic in size: %v vs %v", w8, w12)
	}
	if f.LineHeight(12) <= 0 || f.Ascent(12) <= 0 {
		t.Fatalf("bad vertical metrics: %+v", f.Metrics)
	}
}

func TestEmbedder_EncodeWinAnsi(t *testing.T) {
	e := NewEmbedder(Helvetica())
	s := e.Encode("Héllo €你")
	if s.Hex {
		t.Fatal("fallback encoding must be a literal string")
	}
	want := []byte{'H', 0xe9, 'l', 'l', 'o', ' ', 0x80, '?'}
	if string(s.Val) != string(want) {
		t.Fatalf("encoded %v, want %v", s.Val, want)
	}
}

func TestEmbedder_EncodeGlyphs(t *testing.T) {
	f, err := Load("Go", goregular.TTF)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	e := NewEmbedder(f)
	s := e.Encode("Salut")
	if !s.Hex {
		t.Fatal("embedded encoding must be hex")
	}
	if len(s.Val) == 0 || len(s.Val)%2 != 0 {
		t.Fatalf("expected 2-byte glyph ids, got %d bytes", len(s.Val))
	}
	if len(e.used) == 0 {
		t.Fatal("glyph usage must be recorded")
	}
}

func TestRegistry_ConcurrentResolve(t *testing.T) {
	reg := NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if reg.Resolve("CustomSans").Font == nil {
					t.Error("nil resolution")
					return
				}
			}
		}()
	}
	if _, err := reg.Register("CustomSans", goregular.TTF); err != nil {
		t.Errorf("register: %v", err)
	}
	wg.Wait()
}
