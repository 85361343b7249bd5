package fontkit

import (
	"regexp"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
)

// MatchKind describes how a requested font name was satisfied.
type MatchKind int

const (
	MatchExact MatchKind = iota
	MatchFamily
	MatchFallback
)

func (m MatchKind) String() string {
	switch m {
	case MatchExact:
		return "exact"
	case MatchFamily:
		return "family"
	default:
		return "fallback"
	}
}

// Resolution pairs a resolved font with how it matched.
type Resolution struct {
	Font  *Font
	Match MatchKind
}

// Registry resolves font names to loaded fonts. Lookups read an
// immutable snapshot through an atomic pointer, so resolution during
// export never blocks on concurrent registration; writers are
// serialized by a mutex and publish a fresh snapshot.
type Registry struct {
	mu   sync.Mutex
	snap atomic.Pointer[snapshot]
}

type snapshot struct {
	exact    map[string]*Font
	family   map[string][]*Font
	fallback *Font
}

// NewRegistry returns a registry holding only the built-in fallback.
func NewRegistry() *Registry {
	r := &Registry{}
	r.snap.Store(&snapshot{
		exact:    map[string]*Font{},
		family:   map[string][]*Font{},
		fallback: Helvetica(),
	})
	return r
}

// Register loads data under name and publishes it. Re-registering a
// name replaces the previous font. The error is always a *FontLoadError.
func (r *Registry) Register(name string, data []byte) (*Font, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &FontLoadError{Name: name, Reason: "font name is empty"}
	}
	font, err := Load(name, data)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	old := r.snap.Load()
	next := &snapshot{
		exact:    make(map[string]*Font, len(old.exact)+1),
		family:   make(map[string][]*Font, len(old.family)+1),
		fallback: old.fallback,
	}
	for k, v := range old.exact {
		next.exact[k] = v
	}
	next.exact[name] = font
	for _, f := range next.exact {
		key := familyKey(f.Family)
		next.family[key] = append(next.family[key], f)
	}
	for _, fonts := range next.family {
		sort.Slice(fonts, func(i, j int) bool { return fonts[i].Name < fonts[j].Name })
	}
	r.snap.Store(next)
	return font, nil
}

// Resolve maps a requested name to a usable font. The chain is exact
// name, then family, then the built-in fallback; it cannot fail.
func (r *Registry) Resolve(name string) Resolution {
	snap := r.snap.Load()
	name = StripSubsetPrefix(strings.TrimSpace(name))
	if f, ok := snap.exact[name]; ok {
		return Resolution{Font: f, Match: MatchExact}
	}
	if name == snap.fallback.Name {
		return Resolution{Font: snap.fallback, Match: MatchExact}
	}
	if fonts := snap.family[familyKey(FamilyOf(name))]; len(fonts) > 0 {
		return Resolution{Font: fonts[0], Match: MatchFamily}
	}
	return Resolution{Font: snap.fallback, Match: MatchFallback}
}

// Fallback returns the built-in fallback font.
func (r *Registry) Fallback() *Font { return r.snap.Load().fallback }

// Info describes one registered font for listings.
type Info struct {
	Name       string `json:"name"`
	Family     string `json:"family"`
	PostScript string `json:"postscript_name"`
	Builtin    bool   `json:"builtin"`
}

// List returns the registered fonts plus the fallback, sorted by name.
func (r *Registry) List() []Info {
	snap := r.snap.Load()
	out := make([]Info, 0, len(snap.exact)+1)
	out = append(out, Info{
		Name:       snap.fallback.Name,
		Family:     snap.fallback.Family,
		PostScript: snap.fallback.PostScript,
		Builtin:    true,
	})
	for _, f := range snap.exact {
		out = append(out, Info{
			Name:       f.Name,
			Family:     f.Family,
			PostScript: f.PostScript,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

var subsetPrefix = regexp.MustCompile(`^[A-Z]{6}\+`)

// StripSubsetPrefix removes the "ABCDEF+" tag embedded subset fonts
// carry in front of their base name.
func StripSubsetPrefix(name string) string {
	return subsetPrefix.ReplaceAllString(name, "")
}

func familyKey(family string) string {
	return strings.ToLower(strings.TrimSpace(family))
}
