package layout

import (
	"io"
	"math"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/cursograph/pkg/errors"
)

// Layout defaults.
const (
	DefaultMinSpacingX     = 220.0
	DefaultVerticalSpacing = 180.0
	DefaultCanvasCenterX   = 600.0
	DefaultMaxDepth        = 50
)

// Centering selects how a parent is placed over its children.
type Centering string

const (
	// CenterFirstLast places a parent at the midpoint of its first and last
	// child. Adding a middle child never moves the parent.
	CenterFirstLast Centering = "first-last"
	// CenterMean places a parent at the arithmetic mean of all child centers.
	CenterMean Centering = "mean"
)

// Centerings lists the accepted centering modes.
var Centerings = []Centering{CenterFirstLast, CenterMean}

// ParseCentering converts a string into a Centering. The empty string
// selects CenterFirstLast.
func ParseCentering(s string) (Centering, error) {
	switch Centering(s) {
	case "", CenterFirstLast:
		return CenterFirstLast, nil
	case CenterMean:
		return CenterMean, nil
	}
	return "", errors.New(errors.ErrCodeInvalidConfig, "unknown centering %q (want first-last or mean)", s)
}

// Config holds the layout constants. Zero fields take the package defaults,
// so Config{} is a valid configuration.
type Config struct {
	// MinSpacingX is the width of a leaf and the gap between sibling subtrees.
	MinSpacingX float64

	// VerticalSpacing is the distance between depth layers.
	VerticalSpacing float64

	// CanvasCenterX is where the horizontal middle of the graph ends up.
	CanvasCenterX float64

	// MaxDepth bounds recursion. Deeper input is rejected as malformed.
	MaxDepth int

	// Centering selects the parent placement rule.
	Centering Centering

	// Relations labels and styles edges by parent/child kind.
	Relations RelationTable

	// Logger receives unknown-kind warnings. Defaults to a discard logger.
	Logger *log.Logger
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() Config {
	return Config{}.WithDefaults()
}

// WithDefaults returns a copy of c with zero fields filled in.
func (c Config) WithDefaults() Config {
	if c.MinSpacingX == 0 {
		c.MinSpacingX = DefaultMinSpacingX
	}
	if c.VerticalSpacing == 0 {
		c.VerticalSpacing = DefaultVerticalSpacing
	}
	if c.CanvasCenterX == 0 {
		c.CanvasCenterX = DefaultCanvasCenterX
	}
	if c.MaxDepth == 0 {
		c.MaxDepth = DefaultMaxDepth
	}
	if c.Centering == "" {
		c.Centering = CenterFirstLast
	}
	if c.Relations == nil {
		c.Relations = DefaultRelations()
	}
	if c.Logger == nil {
		c.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return c
}

// Validate rejects configurations the engine cannot lay out with. Call it
// after WithDefaults.
func (c Config) Validate() error {
	if !finite(c.MinSpacingX) || c.MinSpacingX <= 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "min spacing must be positive, got %v", c.MinSpacingX)
	}
	if !finite(c.VerticalSpacing) || c.VerticalSpacing <= 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "vertical spacing must be positive, got %v", c.VerticalSpacing)
	}
	if !finite(c.CanvasCenterX) {
		return errors.New(errors.ErrCodeInvalidConfig, "canvas center must be finite, got %v", c.CanvasCenterX)
	}
	if c.MaxDepth < 1 {
		return errors.New(errors.ErrCodeInvalidConfig, "max depth must be at least 1, got %d", c.MaxDepth)
	}
	if _, err := ParseCentering(string(c.Centering)); err != nil {
		return err
	}
	return nil
}

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }
