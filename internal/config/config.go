// Package config loads engine limits and per-mode defaults from CUE.
//
// A configuration directory holds one CUE package, for example:
//
//	package pickflow
//
//	engine: {
//		max_ticks:     2000
//		tick_interval: "16ms"
//	}
//	mode: create_point: {
//		repeating: true
//		scope:     "site"
//	}
//	mode: create_edges: category: "wall"
//
// Values are checked against an embedded #Config definition, so unknown
// fields and out-of-range values are reported with their CUE position.
package config

import (
	_ "embed"
	"fmt"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/pickflow/internal/mode"
	"github.com/roach88/pickflow/internal/scene"
)

//go:embed schema.cue
var schemaSource string

const (
	// DefaultMaxTicks matches the engine's own default.
	DefaultMaxTicks = 10000

	// DefaultTickInterval is one frame at roughly 60Hz.
	DefaultTickInterval = 16 * time.Millisecond
)

// Config is a compiled configuration.
type Config struct {
	MaxTicks     int
	TickInterval time.Duration

	// Modes holds defaults for the kinds that have any.
	Modes map[mode.Kind]Defaults
}

// Defaults are the parameters a mode request falls back to. Set marks the
// fields the configuration actually gave.
type Defaults struct {
	Repeating bool
	Scope     scene.AnchorScope
	Object    string
	Category  string

	Set mode.Field
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		MaxTicks:     DefaultMaxTicks,
		TickInterval: DefaultTickInterval,
		Modes:        map[mode.Kind]Defaults{},
	}
}

// Apply fills the parameters m did not choose from the defaults for its
// kind and marks them explicit. A field counts as chosen when m.Explicit
// marks it; a non-empty Object or Category always counts. Zero values such
// as repeating=false or scope=general are kept when marked.
func (c *Config) Apply(m mode.Mode) mode.Mode {
	d, ok := c.Modes[m.Kind]
	if !ok {
		return m
	}
	if fill(&m, d, mode.FieldRepeating) {
		m.Repeating = d.Repeating
	}
	if fill(&m, d, mode.FieldScope) {
		m.Scope = d.Scope
	}
	if m.Object == "" && fill(&m, d, mode.FieldObject) {
		m.Object = d.Object
	}
	if m.Category == "" && fill(&m, d, mode.FieldCategory) {
		m.Category = d.Category
	}
	return m
}

func fill(m *mode.Mode, d Defaults, f mode.Field) bool {
	if !d.Set.Has(f) || m.Explicit.Has(f) {
		return false
	}
	m.Explicit |= f
	return true
}

// CompileError is a configuration value that does not describe a valid
// Config.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// CompileString compiles CUE source. filename only labels positions.
func CompileString(src, filename string) (*Config, error) {
	v := cuecontext.New().CompileString(src, cue.Filename(filename))
	return Compile(v)
}

// Compile checks v against the schema and extracts a Config.
func Compile(v cue.Value) (*Config, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	schema := v.Context().CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("config schema: %w", err)
	}
	checked := schema.LookupPath(cue.ParsePath("#Config")).Unify(v)
	if err := checked.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	// Values are read from v so positions point into the user's files.

	cfg := Default()
	if err := compileEngine(v.LookupPath(cue.ParsePath("engine")), cfg); err != nil {
		return nil, err
	}
	if err := compileModes(v.LookupPath(cue.ParsePath("mode")), cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func compileEngine(v cue.Value, cfg *Config) error {
	if !v.Exists() {
		return nil
	}
	if mt := v.LookupPath(cue.ParsePath("max_ticks")); mt.Exists() {
		n, err := mt.Int64()
		if err != nil {
			return formatCUEError(err)
		}
		cfg.MaxTicks = int(n)
	}
	if ti := v.LookupPath(cue.ParsePath("tick_interval")); ti.Exists() {
		s, err := ti.String()
		if err != nil {
			return formatCUEError(err)
		}
		d, err := time.ParseDuration(s)
		if err != nil || d <= 0 {
			return &CompileError{
				Field:   "engine.tick_interval",
				Message: fmt.Sprintf("invalid tick interval %q, want a positive duration such as \"16ms\"", s),
				Pos:     ti.Pos(),
			}
		}
		cfg.TickInterval = d
	}
	return nil
}

func compileModes(v cue.Value, cfg *Config) error {
	if !v.Exists() {
		return nil
	}
	iter, err := v.Fields()
	if err != nil {
		return formatCUEError(err)
	}
	for iter.Next() {
		label := iter.Selector().Unquoted()
		kind, err := mode.ParseKind(label)
		if err != nil {
			return &CompileError{Field: "mode." + label, Message: err.Error(), Pos: iter.Value().Pos()}
		}
		d, err := compileDefaults(iter.Value(), "mode."+label)
		if err != nil {
			return err
		}
		cfg.Modes[kind] = d
	}
	return nil
}

func compileDefaults(v cue.Value, field string) (Defaults, error) {
	var d Defaults
	if r := v.LookupPath(cue.ParsePath("repeating")); r.Exists() {
		b, err := r.Bool()
		if err != nil {
			return d, formatCUEError(err)
		}
		d.Repeating = b
		d.Set |= mode.FieldRepeating
	}
	if sc := v.LookupPath(cue.ParsePath("scope")); sc.Exists() {
		s, err := sc.String()
		if err != nil {
			return d, formatCUEError(err)
		}
		scope, err := scene.ParseAnchorScope(s)
		if err != nil {
			return d, &CompileError{Field: field + ".scope", Message: err.Error(), Pos: sc.Pos()}
		}
		d.Scope = scope
		d.Set |= mode.FieldScope
	}
	if o := v.LookupPath(cue.ParsePath("object")); o.Exists() {
		s, err := o.String()
		if err != nil {
			return d, formatCUEError(err)
		}
		d.Object = s
		d.Set |= mode.FieldObject
	}
	if c := v.LookupPath(cue.ParsePath("category")); c.Exists() {
		s, err := c.String()
		if err != nil {
			return d, formatCUEError(err)
		}
		d.Category = s
		d.Set |= mode.FieldCategory
	}
	return d, nil
}

// formatCUEError keeps the first CUE error and its position.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return err
}
