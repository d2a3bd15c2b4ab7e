package main

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/wailsapp/wails/v2/pkg/runtime"
	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"

	"github.com/chazu/fieldviz/pkg/domain"
	"github.com/chazu/fieldviz/pkg/graphic"
	"github.com/chazu/fieldviz/pkg/invalidate"
	"github.com/chazu/fieldviz/pkg/kernel"
	"github.com/chazu/fieldviz/pkg/kernel/sdfx"
	"github.com/chazu/fieldviz/pkg/scene"
	"github.com/chazu/fieldviz/pkg/sceneconfig"
	"github.com/chazu/fieldviz/pkg/tessellate"
)

// colorPalette assigns distinct colors to graphics drawn with the default
// material.
var colorPalette = []string{
	"#4A90D9", "#E67E22", "#2ECC71", "#9B59B6",
	"#E74C3C", "#1ABC9C", "#F39C12", "#3498DB",
}

// materials maps the named materials a scene may use to colors.
var materials = map[string]string{
	"red":    "#E74C3C",
	"green":  "#2ECC71",
	"blue":   "#4A90D9",
	"orange": "#E67E22",
	"purple": "#9B59B6",
	"gold":   "#F1C40F",
	"white":  "#FFFFFF",
	"black":  "#000000",
}

// selectedColor is used for selected entities when the graphic names no
// selected material.
const selectedColor = "#F1C40F"

// primitivesEvent is emitted to the frontend when a graphic's primitives
// change. The payload is the graphic name.
const primitivesEvent = "primitives-changed"

// App is the Wails backend. It exposes methods to the frontend via bindings.
type App struct {
	ctx    context.Context
	log    *logrus.Logger
	kernel kernel.Kernel
	scene  *scene.Scene
}

// MeshData is the JSON-serializable mesh format sent to the frontend.
type MeshData struct {
	Graphic  string      `json:"graphic"`
	Mode     string      `json:"mode"`
	Vertices []float32   `json:"vertices"`
	Normals  []float32   `json:"normals"`
	Indices  []uint32    `json:"indices"`
	Values   []float32   `json:"values"`
	Labels   []LabelData `json:"labels"`
	Color    string      `json:"color"`
	Spectrum string      `json:"spectrum"`
	Width    float64     `json:"lineWidth"`
	Selected bool        `json:"selected"`
}

// LabelData is a text label placed in the scene.
type LabelData struct {
	Text     string     `json:"text"`
	Position [3]float32 `json:"position"`
}

// ErrorData is a JSON-serializable error or diagnostic for the frontend.
type ErrorData struct {
	Graphic   string `json:"graphic"`
	Attribute string `json:"attribute"`
	Message   string `json:"message"`
}

// GraphicData describes one graphic of the scene.
type GraphicData struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Kind        string      `json:"kind"`
	Visible     bool        `json:"visible"`
	Pending     string      `json:"pending"`
	Diagnostics []ErrorData `json:"diagnostics"`
}

// SceneResult is returned after loading a scene.
type SceneResult struct {
	Graphics []GraphicData `json:"graphics"`
	Errors   []ErrorData   `json:"errors"`
}

// BuildResult is the full result of a rebuild returned to the frontend.
type BuildResult struct {
	Meshes   []MeshData  `json:"meshes"`
	Errors   []ErrorData `json:"errors"`
	Warnings []ErrorData `json:"warnings"`
}

// AttributeData names a graphic attribute and the rebuild a change needs.
type AttributeData struct {
	Name     string `json:"name"`
	OnChange string `json:"onChange"`
}

// NewApp creates a new App with the sdfx kernel and no scene.
func NewApp() *App {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return &App{
		log:    log,
		kernel: sdfx.New(),
	}
}

// startup is called by Wails on app startup. The context is saved
// so we can call Wails runtime methods later.
func (a *App) startup(ctx context.Context) {
	a.ctx = ctx
}

// shutdown releases the open scene.
func (a *App) shutdown(ctx context.Context) {
	a.closeScene()
}

func (a *App) closeScene() {
	if a.scene != nil {
		a.scene.Close()
		a.scene = nil
	}
}

func newErrors() []ErrorData { return []ErrorData{} }

// errorData converts err, keeping the attribute of a validation error.
func errorData(name string, err error) ErrorData {
	d := ErrorData{Graphic: name, Message: err.Error()}
	var verr *graphic.ValidationError
	if errors.As(err, &verr) {
		d.Attribute = verr.Attribute
		d.Message = verr.Message
	}
	return d
}

// LoadScene replaces the current scene with the one described by the HCL
// source. Blank source clears the scene.
func (a *App) LoadScene(source string) SceneResult {
	result := SceneResult{Graphics: []GraphicData{}, Errors: newErrors()}
	a.closeScene()
	if strings.TrimSpace(source) == "" {
		return result
	}

	sc, err := sceneconfig.LoadSource(scene.Options{Log: a.log, Kernel: a.kernel}, "scene.hcl", []byte(source))
	if err != nil {
		a.log.WithError(err).Warn("scene load failed")
		result.Errors = append(result.Errors, errorData("", err))
		return result
	}
	sc.OnPrimitivesChanged(a.primitivesChanged)
	a.scene = sc
	result.Graphics = a.Graphics()
	return result
}

func (a *App) primitivesChanged(s *graphic.Specification) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, primitivesEvent, s.Name())
}

// Graphics lists the graphics of the scene in drawing order.
func (a *App) Graphics() []GraphicData {
	out := []GraphicData{}
	if a.scene == nil {
		return out
	}
	for _, s := range a.scene.Graphics() {
		out = append(out, graphicData(s))
	}
	return out
}

func graphicData(s *graphic.Specification) GraphicData {
	g := GraphicData{
		ID:          s.ID().String(),
		Name:        s.Name(),
		Kind:        s.Kind().String(),
		Visible:     s.Visible(),
		Pending:     s.State().Severity().String(),
		Diagnostics: newErrors(),
	}
	for _, d := range s.Diagnostics() {
		g.Diagnostics = append(g.Diagnostics, ErrorData{Graphic: s.Name(), Attribute: d.Level.String(), Message: d.Message})
	}
	return g
}

// Attributes lists every graphic attribute.
func (a *App) Attributes() []AttributeData {
	names := graphic.Attributes()
	out := make([]AttributeData, 0, len(names))
	for _, name := range names {
		out = append(out, AttributeData{Name: name, OnChange: invalidate.ForAttribute(name).String()})
	}
	return out
}

// lookup finds a graphic by id or by name.
func (a *App) lookup(ref string) (*graphic.Specification, error) {
	if a.scene == nil {
		return nil, errors.New("no scene loaded")
	}
	if id, err := uuid.Parse(ref); err == nil {
		if s, ok := a.scene.Graphic(id); ok {
			return s, nil
		}
	}
	if s, ok := a.scene.Lookup(ref); ok {
		return s, nil
	}
	return nil, scene.ErrNotFound
}

// attributeValue parses a frontend value. JSON is decoded as such; any
// other text is taken as a string.
func attributeValue(value string) cty.Value {
	buf := []byte(value)
	if t, err := ctyjson.ImpliedType(buf); err == nil {
		if v, err := ctyjson.Unmarshal(buf, t); err == nil {
			return v
		}
	}
	return cty.StringVal(value)
}

// SetAttribute sets one attribute of a graphic, or of its open edit.
// The graphic is named by id or name.
func (a *App) SetAttribute(ref, attribute, value string) []ErrorData {
	errs := newErrors()
	s, err := a.lookup(ref)
	if err != nil {
		return append(errs, ErrorData{Graphic: ref, Attribute: attribute, Message: err.Error()})
	}
	if err := a.scene.SetAttribute(s.ID(), attribute, attributeValue(value)); err != nil {
		a.log.WithFields(logrus.Fields{"graphic": s.Name(), "attribute": attribute}).WithError(err).Debug("attribute rejected")
		d := errorData(s.Name(), err)
		if d.Attribute == "" {
			d.Attribute = attribute
		}
		return append(errs, d)
	}
	return errs
}

// Edit opens an edit of a graphic. Attribute changes then go to the edit
// until Commit or Revert.
func (a *App) Edit(ref string) []ErrorData {
	s, err := a.lookup(ref)
	if err == nil {
		_, err = a.scene.Edit(s.ID())
	}
	if err != nil {
		return []ErrorData{{Graphic: ref, Message: err.Error()}}
	}
	return newErrors()
}

// Commit applies the open edit of a graphic and returns the graphic now
// in the scene.
func (a *App) Commit(ref string) (GraphicData, error) {
	s, err := a.lookup(ref)
	if err != nil {
		return GraphicData{}, err
	}
	fresh, err := a.scene.Commit(s.ID())
	if err != nil {
		return GraphicData{}, err
	}
	return graphicData(fresh), nil
}

// Revert discards the open edit of a graphic.
func (a *App) Revert(ref string) bool {
	s, err := a.lookup(ref)
	if err != nil {
		return false
	}
	return a.scene.Revert(s.ID())
}

// Remove deletes a graphic from the scene.
func (a *App) Remove(ref string) error {
	s, err := a.lookup(ref)
	if err != nil {
		return err
	}
	return a.scene.Remove(s.ID())
}

// Select highlights elements of the highest dimension of the region. An
// empty list clears the selection.
func (a *App) Select(elements []int) error {
	if a.scene == nil {
		return errors.New("no scene loaded")
	}
	if len(elements) == 0 {
		a.scene.SetSelection(nil)
		return nil
	}
	region := a.scene.Region()
	dim := region.HighestDimension()
	g := domain.NewGroup("selection")
	for _, id := range elements {
		g.AddElement(dim, domain.ID(id))
	}
	a.scene.SetSelection(g)
	return nil
}

// SetTime moves the scene to time t.
func (a *App) SetTime(t float64) {
	if a.scene != nil {
		a.scene.SetTime(t)
	}
}

// Build rebuilds every stale graphic and returns the meshes of the
// visible ones. Graphics that fail keep their previous meshes out of the
// result and report an error instead.
func (a *App) Build() BuildResult {
	result := BuildResult{
		Meshes:   []MeshData{},
		Errors:   newErrors(),
		Warnings: newErrors(),
	}
	if a.scene == nil {
		return result
	}

	if _, err := a.scene.Rebuild(); err != nil {
		a.log.WithError(err).Warn("rebuild failed")
	}
	for i, s := range a.scene.Graphics() {
		for _, d := range s.Diagnostics() {
			e := ErrorData{Graphic: s.Name(), Message: d.String()}
			if d.Level == graphic.LevelError {
				result.Errors = append(result.Errors, e)
			} else {
				result.Warnings = append(result.Warnings, e)
			}
		}
		if !s.Visible() || !s.State().IsClean() {
			continue
		}
		meshes, err := tessellate.Tessellate(s.Name(), s.Store(), a.scene.Glyphs())
		if err != nil {
			a.log.WithField("graphic", s.Name()).WithError(err).Warn("tessellate failed")
			result.Errors = append(result.Errors, errorData(s.Name(), err))
			continue
		}
		for _, m := range meshes {
			result.Meshes = append(result.Meshes, meshData(s, m, i))
		}
	}
	return result
}

func meshData(s *graphic.Specification, m *tessellate.Mesh, i int) MeshData {
	ap := s.Appearance()
	d := MeshData{
		Graphic:  s.Name(),
		Mode:     m.Mode.String(),
		Vertices: m.Vertices,
		Normals:  m.Normals,
		Indices:  m.Indices,
		Values:   m.Values,
		Labels:   []LabelData{},
		Color:    colorFor(ap.Material, i),
		Spectrum: ap.Spectrum,
		Width:    ap.LineWidth,
		Selected: m.Selected,
	}
	if m.Selected {
		d.Color = selectedColor
		if ap.SelectedMaterial != "" {
			d.Color = colorFor(ap.SelectedMaterial, i)
		}
	}
	for _, l := range m.Labels {
		d.Labels = append(d.Labels, LabelData{Text: l.Text, Position: l.Position})
	}
	return d
}

// colorFor resolves a material to a color. Hex colors pass through;
// unnamed materials take the palette color of the graphic's position.
func colorFor(material string, i int) string {
	if strings.HasPrefix(material, "#") {
		return material
	}
	if c, ok := materials[material]; ok {
		return c
	}
	return colorPalette[i%len(colorPalette)]
}
