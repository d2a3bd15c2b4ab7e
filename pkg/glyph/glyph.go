// Package glyph provides the named glyphs drawn at glyph set points. Solid
// glyphs are built through the geometry kernel on first use and cached.
// Every glyph is unit sized with its primary axis along +X.
package glyph

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/chazu/fieldviz/pkg/kernel"
)

// ErrUnknownGlyph is returned for names the library does not define.
var ErrUnknownGlyph = errors.New("unknown glyph")

// Glyph is a renderable glyph shape. Point glyphs have neither a mesh nor
// segments.
type Glyph struct {
	Name     string
	Mesh     *kernel.Mesh
	Segments [][2][3]float32
}

type builder func(k kernel.Kernel) (kernel.Solid, error)

var solids = map[string]builder{
	"sphere": func(k kernel.Kernel) (kernel.Solid, error) {
		return k.Sphere(0.5)
	},
	"cube": func(k kernel.Kernel) (kernel.Solid, error) {
		return k.Box(1, 1, 1)
	},
	"cylinder": func(k kernel.Kernel) (kernel.Solid, error) {
		s, err := k.Cylinder(1, 0.5)
		if err != nil {
			return nil, err
		}
		return k.Translate(k.Rotate(s, 0, 90, 0), 0.5, 0, 0), nil
	},
	"cone": func(k kernel.Kernel) (kernel.Solid, error) {
		s, err := k.Cone(1, 0.5, 0)
		if err != nil {
			return nil, err
		}
		return k.Translate(k.Rotate(s, 0, 90, 0), 0.5, 0, 0), nil
	},
	"arrow": func(k kernel.Kernel) (kernel.Solid, error) {
		shaft, err := k.Cylinder(0.8, 0.05)
		if err != nil {
			return nil, err
		}
		head, err := k.Cone(0.2, 0.1, 0)
		if err != nil {
			return nil, err
		}
		shaft = k.Translate(k.Rotate(shaft, 0, 90, 0), 0.4, 0, 0)
		head = k.Translate(k.Rotate(head, 0, 90, 0), 0.9, 0, 0)
		return k.Union(shaft, head), nil
	},
}

var outlines = map[string][][2][3]float32{
	"point": nil,
	"line":  {{{0, 0, 0}, {1, 0, 0}}},
	"axes":  {{{0, 0, 0}, {1, 0, 0}}, {{0, 0, 0}, {0, 1, 0}}, {{0, 0, 0}, {0, 0, 1}}},
}

// Names returns every glyph name in sorted order.
func Names() []string {
	names := make([]string, 0, len(solids)+len(outlines))
	for name := range solids {
		names = append(names, name)
	}
	for name := range outlines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Known reports whether name is a glyph of the library. The empty name
// means no glyph.
func Known(name string) bool {
	if name == "" {
		return true
	}
	_, solid := solids[name]
	_, outline := outlines[name]
	return solid || outline
}

// Library caches glyph meshes built through a kernel.
type Library struct {
	kernel kernel.Kernel
	cells  int

	mu    sync.Mutex
	cache map[string]*Glyph
}

// NewLibrary returns a library tessellating solid glyphs with cells
// marching cubes cells.
func NewLibrary(k kernel.Kernel, cells int) *Library {
	return &Library{kernel: k, cells: cells, cache: make(map[string]*Glyph)}
}

// Get returns the named glyph, building it on first use.
func (l *Library) Get(name string) (*Glyph, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if g, ok := l.cache[name]; ok {
		return g, nil
	}
	var g *Glyph
	if segs, ok := outlines[name]; ok {
		g = &Glyph{Name: name, Segments: segs}
	} else if build, ok := solids[name]; ok {
		if l.kernel == nil {
			return nil, fmt.Errorf("glyph %q: no geometry kernel", name)
		}
		s, err := build(l.kernel)
		if err != nil {
			return nil, fmt.Errorf("glyph %q: %w", name, err)
		}
		m, err := l.kernel.ToMesh(s, l.cells)
		if err != nil {
			return nil, fmt.Errorf("glyph %q: %w", name, err)
		}
		m.Name = name
		g = &Glyph{Name: name, Mesh: m}
	} else {
		return nil, fmt.Errorf("glyph %q: %w", name, ErrUnknownGlyph)
	}
	l.cache[name] = g
	return g, nil
}
