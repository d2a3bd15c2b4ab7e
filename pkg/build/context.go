// Package build runs the build pipeline: it brings the primitive store of
// a graphic specification up to date with the least work its pending
// severity allows.
package build

import (
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/chazu/fieldviz/pkg/domain"
	"github.com/chazu/fieldviz/pkg/field"
	"github.com/chazu/fieldviz/pkg/glyph"
	"github.com/chazu/fieldviz/pkg/graphic"
	"github.com/chazu/fieldviz/pkg/invalidate"
	"github.com/chazu/fieldviz/pkg/kernel"
)

// ErrBuildInProgress is returned when Build is re-entered for a
// specification it is already building.
var ErrBuildInProgress = errors.New("build: specification is already being built")

// ErrNoRegion is returned when the context has no region to iterate.
var ErrNoRegion = errors.New("build: no region")

// Context carries what a build reads. It is owned by the caller and not
// retained after Build returns.
type Context struct {
	Region *domain.Region
	Glyphs *glyph.Library
	Kernel kernel.Kernel
	// Selection is the selected group, or nil when nothing is selected.
	Selection field.GroupView
	Time      float64
	// Filter decides which graphics are built; nil builds all.
	Filter func(*graphic.Specification) bool
	// Notify is called after a build changed a graphic's primitives.
	Notify func(*graphic.Specification)
	Log    logrus.FieldLogger
	Policy invalidate.Policy
}

func (c *Context) logger() logrus.FieldLogger {
	if c.Log == nil {
		return logrus.StandardLogger()
	}
	return c.Log
}

// Report summarises one build.
type Report struct {
	Graphic string
	// Performed is the severity of the work done; Clean when nothing ran.
	Performed invalidate.Severity
	Filtered  bool
	Entities  int
	Batches   int
	Skipped   int
	// Errors aggregates the entity errors that were skipped.
	Errors      error
	Diagnostics []graphic.Diagnostic
}
