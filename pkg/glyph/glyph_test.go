package glyph

import (
	"errors"
	"testing"

	"github.com/chazu/fieldviz/pkg/kernel/sdfx"
)

func TestLibraryBuildsAndCaches(t *testing.T) {
	lib := NewLibrary(sdfx.New(), 16)

	for _, name := range []string{"sphere", "cube", "cylinder", "cone", "arrow"} {
		t.Run(name, func(t *testing.T) {
			g, err := lib.Get(name)
			if err != nil {
				t.Fatalf("Get(%q) error = %v", name, err)
			}
			if g.Mesh == nil || g.Mesh.TriangleCount() == 0 {
				t.Fatalf("Get(%q) returned an empty mesh", name)
			}
			again, _ := lib.Get(name)
			if again != g {
				t.Errorf("Get(%q) rebuilt a cached glyph", name)
			}
		})
	}
}

func TestOutlineGlyphs(t *testing.T) {
	lib := NewLibrary(nil, 0)
	tests := []struct {
		name     string
		segments int
	}{
		{"point", 0},
		{"line", 1},
		{"axes", 3},
	}
	for _, tt := range tests {
		g, err := lib.Get(tt.name)
		if err != nil {
			t.Fatalf("Get(%q) error = %v", tt.name, err)
		}
		if g.Mesh != nil {
			t.Errorf("Get(%q) has a mesh", tt.name)
		}
		if len(g.Segments) != tt.segments {
			t.Errorf("Get(%q) segments = %d, want %d", tt.name, len(g.Segments), tt.segments)
		}
	}
}

func TestUnknownGlyph(t *testing.T) {
	lib := NewLibrary(sdfx.New(), 8)
	_, err := lib.Get("teapot")
	if !errors.Is(err, ErrUnknownGlyph) {
		t.Errorf("Get(teapot) error = %v, want ErrUnknownGlyph", err)
	}
	if Known("teapot") {
		t.Error("Known(teapot) = true")
	}
	if !Known("") || !Known("arrow") {
		t.Error("Known rejected a valid name")
	}
	if len(Names()) != 8 {
		t.Errorf("Names() = %v, want 8 glyphs", Names())
	}
}

func TestRepeatModes(t *testing.T) {
	tests := []struct {
		name   string
		count  int
		labels int
	}{
		{"none", 1, 1},
		{"axes_2d", 2, 2},
		{"axes_3d", 3, 3},
		{"mirror", 2, 1},
	}
	axes := [3][3]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := ParseRepeatMode(tt.name)
			if err != nil {
				t.Fatal(err)
			}
			if m.String() != tt.name {
				t.Errorf("String() = %q", m.String())
			}
			if m.Count() != tt.count {
				t.Errorf("Count() = %d, want %d", m.Count(), tt.count)
			}
			if m.LabelSlots() != tt.labels {
				t.Errorf("LabelSlots() = %d, want %d", m.LabelSlots(), tt.labels)
			}
			if got := len(m.Axes(axes)); got != tt.count {
				t.Errorf("len(Axes()) = %d, want %d", got, tt.count)
			}
		})
	}
	if _, err := ParseRepeatMode("spiral"); err == nil {
		t.Error("ParseRepeatMode(spiral) should fail")
	}
	mirrored := RepeatMirror.Axes(axes)[1]
	if mirrored[0] != [3]float64{-1, 0, 0} {
		t.Errorf("mirror first axis = %v", mirrored[0])
	}
}
