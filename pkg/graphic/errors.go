package graphic

import (
	"fmt"
	"strings"

	"github.com/chazu/fieldviz/pkg/domain"
)

// ValidationError reports an attribute value that violates its
// constraint. The graphic is left unchanged.
type ValidationError struct {
	Attribute string
	Message   string
}

func (e *ValidationError) Error() string {
	if e.Attribute == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Attribute, e.Message)
}

func invalid(attr, format string, args ...any) error {
	return &ValidationError{Attribute: attr, Message: fmt.Sprintf(format, args...)}
}

// InvalidConfigurationError reports a graphic that cannot be built as
// configured.
type InvalidConfigurationError struct {
	Graphic  string
	Problems []string
}

func (e *InvalidConfigurationError) Error() string {
	return fmt.Sprintf("graphic %s: invalid configuration: %s", e.Graphic, strings.Join(e.Problems, "; "))
}

// Level grades a finding or diagnostic.
type Level int

const (
	LevelError Level = iota
	LevelWarning
	LevelInfo
)

func (l Level) String() string {
	switch l {
	case LevelError:
		return "error"
	case LevelWarning:
		return "warning"
	case LevelInfo:
		return "info"
	default:
		return fmt.Sprintf("Level(%d)", int(l))
	}
}

// Diagnostic is a message recorded while validating or building a
// graphic. Entity is zero when the message concerns the whole graphic.
type Diagnostic struct {
	Level   Level
	Entity  domain.ID
	Message string
}

func (d Diagnostic) String() string {
	if d.Entity == 0 {
		return fmt.Sprintf("[%s] %s", d.Level, d.Message)
	}
	return fmt.Sprintf("[%s] entity %d: %s", d.Level, d.Entity, d.Message)
}
