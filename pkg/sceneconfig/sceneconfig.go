// Package sceneconfig loads scenes from HCL files. A scene file declares
// one structured box region, the fields and groups defined over it and
// the graphics drawn from them:
//
//	region {
//	  counts = [4, 4]
//	  size   = [1, 1]
//	}
//
//	field "temperature" {
//	  expression = "(+ x y)"
//	}
//
//	group "left" {
//	  dimension = 2
//	  elements  = [1, 5, 9, 13]
//	}
//
//	graphics "surfaces" "skin" {
//	  data_field = "temperature"
//	  spectrum   = "rainbow"
//	}
//
// Graphics attributes are the names accepted by graphic.Specification.Set
// and are applied in the order they appear.
package sceneconfig

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/chazu/fieldviz/pkg/domain"
	"github.com/chazu/fieldviz/pkg/field"
	"github.com/chazu/fieldviz/pkg/graphic"
	"github.com/chazu/fieldviz/pkg/scene"
)

// ErrNoRegion is returned when no file declares a region.
var ErrNoRegion = errors.New("sceneconfig: no region block")

// fileRoot decodes every top-level block of one file.
type fileRoot struct {
	Regions  []*regionBlock   `hcl:"region,block"`
	Fields   []*fieldBlock    `hcl:"field,block"`
	Groups   []*groupBlock    `hcl:"group,block"`
	Graphics []*graphicsBlock `hcl:"graphics,block"`
	Time     *float64         `hcl:"time,optional"`
}

type regionBlock struct {
	Counts []int     `hcl:"counts"`
	Size   []float64 `hcl:"size,optional"`
}

type fieldBlock struct {
	Name       string    `hcl:"name,label"`
	Expression *string   `hcl:"expression,optional"`
	Components *int      `hcl:"components,optional"`
	Inputs     []string  `hcl:"inputs,optional"`
	Constant   []float64 `hcl:"constant,optional"`
}

type groupBlock struct {
	Name      string `hcl:"name,label"`
	Dimension *int   `hcl:"dimension,optional"`
	Elements  []int  `hcl:"elements,optional"`
	Nodes     []int  `hcl:"nodes,optional"`
}

type graphicsBlock struct {
	Kind string   `hcl:"kind,label"`
	Name string   `hcl:"name,label"`
	Body hcl.Body `hcl:",remain"`
}

// document is the merged content of every loaded file.
type document struct {
	region   *regionBlock
	fields   []*fieldBlock
	groups   []*groupBlock
	graphics []*graphicsBlock
	time     float64
}

func (d *document) merge(file string, root *fileRoot) error {
	for _, r := range root.Regions {
		if d.region != nil {
			return fmt.Errorf("sceneconfig: %s: a scene has one region", file)
		}
		d.region = r
	}
	d.fields = append(d.fields, root.Fields...)
	d.groups = append(d.groups, root.Groups...)
	d.graphics = append(d.graphics, root.Graphics...)
	if root.Time != nil {
		d.time = *root.Time
	}
	return nil
}

// Load reads every .hcl file under the given paths, in lexical order,
// and builds the scene they describe. Missing paths are skipped.
func Load(opts scene.Options, paths ...string) (*scene.Scene, error) {
	files, err := findHCLFiles(paths)
	if err != nil {
		return nil, err
	}
	parser := hclparse.NewParser()
	doc := &document{}
	for _, file := range files {
		f, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("sceneconfig: failed to parse %s: %w", file, diags)
		}
		if err := decode(file, f, doc); err != nil {
			return nil, err
		}
	}
	return doc.scene(opts)
}

// LoadSource builds a scene from the text of one file. filename is used
// in diagnostics only.
func LoadSource(opts scene.Options, filename string, src []byte) (*scene.Scene, error) {
	parser := hclparse.NewParser()
	f, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("sceneconfig: failed to parse %s: %w", filename, diags)
	}
	doc := &document{}
	if err := decode(filename, f, doc); err != nil {
		return nil, err
	}
	return doc.scene(opts)
}

func decode(file string, f *hcl.File, doc *document) error {
	var root fileRoot
	if diags := gohcl.DecodeBody(f.Body, nil, &root); diags.HasErrors() {
		return fmt.Errorf("sceneconfig: failed to decode %s: %w", file, diags)
	}
	return doc.merge(file, &root)
}

func (d *document) scene(opts scene.Options) (*scene.Scene, error) {
	if d.region == nil {
		return nil, ErrNoRegion
	}
	region, err := d.region.build()
	if err != nil {
		return nil, err
	}
	fields := field.NewManager()
	coords := field.NewCoordinates(scene.DefaultCoordinates, region)
	if err := fields.Add(coords); err != nil {
		return nil, err
	}
	for _, g := range d.groups {
		group, err := g.build(region)
		if err != nil {
			return nil, err
		}
		region.AddGroup(group)
		if err := fields.Add(field.NewGroup(group)); err != nil {
			return nil, fmt.Errorf("sceneconfig: group %q: %w", g.Name, err)
		}
	}
	for _, fb := range d.fields {
		f, err := fb.build(fields, coords)
		if err != nil {
			return nil, err
		}
		if err := fields.Add(f); err != nil {
			return nil, fmt.Errorf("sceneconfig: field %q: %w", fb.Name, err)
		}
	}

	sc := scene.New(region, fields, opts)
	sc.SetTime(d.time)
	for _, gb := range d.graphics {
		if err := gb.apply(sc); err != nil {
			sc.Close()
			return nil, err
		}
	}
	return sc, nil
}

func (r *regionBlock) build() (*domain.Region, error) {
	if len(r.Counts) == 0 || len(r.Counts) > 3 {
		return nil, fmt.Errorf("sceneconfig: region counts need 1 to 3 entries, got %d", len(r.Counts))
	}
	if r.Size != nil && len(r.Size) != len(r.Counts) {
		return nil, fmt.Errorf("sceneconfig: region size has %d entries, counts has %d", len(r.Size), len(r.Counts))
	}
	var counts [3]int
	var size [3]float64
	for i, n := range r.Counts {
		counts[i] = n
		size[i] = float64(n)
		if r.Size != nil {
			size[i] = r.Size[i]
		}
	}
	region, err := domain.NewBox(counts, size)
	if err != nil {
		return nil, fmt.Errorf("sceneconfig: region: %w", err)
	}
	return region, nil
}

func (g *groupBlock) build(region *domain.Region) (*domain.Group, error) {
	group := domain.NewGroup(g.Name)
	for _, id := range g.Nodes {
		if _, ok := region.NodePosition(domain.ID(id)); !ok {
			return nil, fmt.Errorf("sceneconfig: group %q: no node %d", g.Name, id)
		}
		group.AddNode(domain.ID(id))
	}
	if len(g.Elements) == 0 {
		return group, nil
	}
	dim := region.HighestDimension()
	if g.Dimension != nil {
		dim = *g.Dimension
	}
	for _, id := range g.Elements {
		if _, ok := region.Element(dim, domain.ID(id)); !ok {
			return nil, fmt.Errorf("sceneconfig: group %q: no %d-D element %d", g.Name, dim, id)
		}
		group.AddElement(dim, domain.ID(id))
	}
	return group, nil
}

func (fb *fieldBlock) build(fields *field.Manager, coords field.Field) (field.Field, error) {
	switch {
	case fb.Expression != nil && fb.Constant != nil:
		return nil, fmt.Errorf("sceneconfig: field %q has both an expression and a constant", fb.Name)
	case fb.Constant != nil:
		if len(fb.Constant) == 0 {
			return nil, fmt.Errorf("sceneconfig: field %q: empty constant", fb.Name)
		}
		return field.NewConstant(fb.Name, fb.Constant...), nil
	case fb.Expression != nil:
		components := 1
		if fb.Components != nil {
			components = *fb.Components
		}
		if components < 1 {
			return nil, fmt.Errorf("sceneconfig: field %q: components must be positive", fb.Name)
		}
		expr := field.NewExpression(fb.Name, components, *fb.Expression, coords)
		for _, name := range fb.Inputs {
			in, err := fields.Lookup(name)
			if err != nil {
				return nil, fmt.Errorf("sceneconfig: field %q input: %w", fb.Name, err)
			}
			expr.Bind(in)
		}
		if errs := expr.Check(); len(errs) > 0 {
			return nil, fmt.Errorf("sceneconfig: field %q: %s", fb.Name, errs[0].Message)
		}
		return expr, nil
	default:
		return nil, fmt.Errorf("sceneconfig: field %q needs an expression or a constant", fb.Name)
	}
}

// apply creates the graphic and sets its attributes in source order.
func (gb *graphicsBlock) apply(sc *scene.Scene) error {
	kind, err := graphic.ParseKind(gb.Kind)
	if err != nil {
		return fmt.Errorf("sceneconfig: graphics %q: %w", gb.Name, err)
	}
	attrs, diags := gb.Body.JustAttributes()
	if diags.HasErrors() {
		return fmt.Errorf("sceneconfig: graphics %q: %w", gb.Name, diags)
	}
	ordered := make([]*hcl.Attribute, 0, len(attrs))
	for _, a := range attrs {
		ordered = append(ordered, a)
	}
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].Range.Start.Byte < ordered[j].Range.Start.Byte
	})

	s, err := sc.CreateSpecification(kind, gb.Name)
	if err != nil {
		return fmt.Errorf("sceneconfig: graphics %q: %w", gb.Name, err)
	}
	for _, a := range ordered {
		v, diags := a.Expr.Value(nil)
		if diags.HasErrors() {
			return fmt.Errorf("sceneconfig: %s: %w", a.Range, diags)
		}
		if err := sc.SetAttribute(s.ID(), a.Name, v); err != nil {
			return fmt.Errorf("sceneconfig: %s: graphics %q: %w", a.Range, gb.Name, err)
		}
	}
	return nil
}

// findHCLFiles walks the given paths and returns every .hcl file found,
// sorted. Paths that do not exist are skipped.
func findHCLFiles(paths []string) ([]string, error) {
	seen := make(map[string]struct{})
	var files []string
	add := func(p string) {
		if _, ok := seen[p]; !ok {
			seen[p] = struct{}{}
			files = append(files, p)
		}
	}
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("sceneconfig: error accessing path %s: %w", path, err)
		}
		if !info.IsDir() {
			if filepath.Ext(path) == ".hcl" {
				add(path)
			}
			continue
		}
		err = filepath.Walk(path, func(p string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if !info.IsDir() && filepath.Ext(p) == ".hcl" {
				add(p)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	sort.Strings(files)
	return files, nil
}
