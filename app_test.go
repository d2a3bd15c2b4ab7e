package main

import (
	"os"
	"testing"
)

// loadPlate loads examples/plate.hcl into a fresh app.
func loadPlate(t *testing.T) *App {
	t.Helper()
	app := NewApp()
	t.Cleanup(app.closeScene)

	source, err := os.ReadFile("examples/plate.hcl")
	if err != nil {
		t.Fatalf("failed to read plate.hcl: %v", err)
	}
	result := app.LoadScene(string(source))
	if len(result.Errors) > 0 {
		for _, e := range result.Errors {
			t.Errorf("load error: %s", e.Message)
		}
		t.FailNow()
	}
	return app
}

// meshesOf returns the meshes built for one graphic.
func meshesOf(result BuildResult, name string) []MeshData {
	var out []MeshData
	for _, m := range result.Meshes {
		if m.Graphic == name {
			out = append(out, m)
		}
	}
	return out
}

// TestE2EPlateExample exercises the full pipeline: HCL source → scene →
// build → tessellate → meshes. This is the path the Wails bindings take,
// without the Wails runtime.
func TestE2EPlateExample(t *testing.T) {
	app := loadPlate(t)

	graphics := app.Graphics()
	if len(graphics) != 4 {
		t.Fatalf("expected 4 graphics, got %d", len(graphics))
	}
	for _, g := range graphics {
		if g.Pending != "full_rebuild" {
			t.Errorf("graphic %q: expected full_rebuild pending, got %q", g.Name, g.Pending)
		}
	}

	result := app.Build()
	if len(result.Errors) > 0 {
		for _, e := range result.Errors {
			t.Errorf("build error (%s): %s", e.Graphic, e.Message)
		}
		t.FailNow()
	}

	expected := map[string]string{
		"skin":    "triangles",
		"edges":   "lines",
		"iso":     "lines",
		"markers": "triangles",
	}
	for name, mode := range expected {
		meshes := meshesOf(result, name)
		if len(meshes) != 1 {
			t.Errorf("graphic %q: expected 1 mesh, got %d", name, len(meshes))
			continue
		}
		m := meshes[0]
		if m.Mode != mode {
			t.Errorf("graphic %q: expected mode %s, got %s", name, mode, m.Mode)
		}
		if len(m.Vertices) == 0 || len(m.Indices) == 0 {
			t.Errorf("graphic %q: empty geometry", name)
		}
		if m.Color == "" {
			t.Errorf("graphic %q: no color assigned", name)
		}
	}

	skin := meshesOf(result, "skin")[0]
	if len(skin.Values) != len(skin.Vertices)/3 {
		t.Errorf("skin: expected a value per vertex, got %d for %d vertices", len(skin.Values), len(skin.Vertices)/3)
	}
	if len(skin.Normals) != len(skin.Vertices) {
		t.Errorf("skin: expected a normal per vertex")
	}
	if skin.Spectrum != "rainbow" {
		t.Errorf("skin: expected spectrum rainbow, got %q", skin.Spectrum)
	}
	if edges := meshesOf(result, "edges")[0]; edges.Width != 2 {
		t.Errorf("edges: expected line width 2, got %v", edges.Width)
	}
	if iso := meshesOf(result, "iso")[0]; iso.Color != "#000000" {
		t.Errorf("iso: expected the black material, got %q", iso.Color)
	}

	for _, g := range app.Graphics() {
		if g.Pending != "clean" {
			t.Errorf("graphic %q: expected clean after build, got %q", g.Name, g.Pending)
		}
	}
}

// TestE2EEmptySource ensures the pipeline handles empty input gracefully.
func TestE2EEmptySource(t *testing.T) {
	app := NewApp()
	loaded := app.LoadScene("")
	if len(loaded.Errors) > 0 {
		t.Errorf("unexpected errors for empty source: %v", loaded.Errors)
	}

	result := app.Build()
	if len(result.Meshes) != 0 {
		t.Errorf("expected 0 meshes for empty source, got %d", len(result.Meshes))
	}
}

// TestE2ESyntaxError verifies malformed HCL produces errors, not a scene.
func TestE2ESyntaxError(t *testing.T) {
	app := NewApp()
	loaded := app.LoadScene("region {")

	if len(loaded.Errors) == 0 {
		t.Error("expected errors for malformed source")
	}
	if len(loaded.Graphics) != 0 {
		t.Errorf("expected 0 graphics on syntax error, got %d", len(loaded.Graphics))
	}
	if result := app.Build(); len(result.Meshes) != 0 {
		t.Errorf("expected 0 meshes on syntax error, got %d", len(result.Meshes))
	}
}

// TestE2ESingleGraphic verifies a minimal scene with one graphic.
func TestE2ESingleGraphic(t *testing.T) {
	app := NewApp()
	defer app.closeScene()
	source := "region {\n  counts = [2, 2]\n}\n\ngraphics \"surfaces\" \"skin\" {}\n"

	if loaded := app.LoadScene(source); len(loaded.Errors) > 0 {
		t.Fatalf("unexpected errors: %v", loaded.Errors)
	}
	result := app.Build()
	if len(result.Errors) > 0 {
		t.Fatalf("unexpected build errors: %v", result.Errors)
	}
	if len(result.Meshes) != 1 {
		t.Fatalf("expected 1 mesh, got %d", len(result.Meshes))
	}
	m := result.Meshes[0]
	if m.Graphic != "skin" {
		t.Errorf("expected graphic %q, got %q", "skin", m.Graphic)
	}
	if m.Values != nil {
		t.Errorf("expected no values without a data field, got %d", len(m.Values))
	}
	if m.Color != colorPalette[0] {
		t.Errorf("expected palette color %s, got %s", colorPalette[0], m.Color)
	}
}
