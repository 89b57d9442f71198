package cli

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/pickflow/internal/config"
	"github.com/roach88/pickflow/internal/mode"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Files  int               `json:"files,omitempty"`
	Config *ConfigSummary    `json:"config,omitempty"`
	Errors []ValidationIssue `json:"errors,omitempty"`
}

// ValidationIssue is one problem found in a configuration directory.
type ValidationIssue struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	File    string `json:"file,omitempty"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
}

// ConfigSummary is the effective configuration.
type ConfigSummary struct {
	MaxTicks     int                    `json:"max_ticks"`
	TickInterval string                 `json:"tick_interval"`
	Modes        map[string]ModeDefault `json:"modes,omitempty"`
}

// ModeDefault is the configured defaults of one workflow kind.
type ModeDefault struct {
	Repeating bool   `json:"repeating,omitempty"`
	Scope     string `json:"scope"`
	Object    string `json:"object,omitempty"`
	Category  string `json:"category,omitempty"`
}

func (s *ConfigSummary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "max_ticks: %d\ntick_interval: %s", s.MaxTicks, s.TickInterval)
	kinds := make([]string, 0, len(s.Modes))
	for k := range s.Modes {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		d := s.Modes[k]
		fmt.Fprintf(&b, "\n%s: repeating=%t scope=%s", k, d.Repeating, d.Scope)
		if d.Object != "" {
			fmt.Fprintf(&b, " object=%q", d.Object)
		}
		if d.Category != "" {
			fmt.Fprintf(&b, " category=%q", d.Category)
		}
	}
	return b.String()
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <config-dir>",
		Short: "Validate a CUE configuration directory",
		Long: `Load the CUE package in a directory, check it against the configuration
schema and print the effective engine limits and per-kind defaults.

Examples:
  pickflow validate ./config
  pickflow validate ./config --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runValidate(opts *RootOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	res, err := config.Load(dir)
	if err != nil {
		issue := ValidationIssue{Code: config.ErrCodeGeneric, Message: err.Error()}
		var le *config.LoadError
		if errors.As(err, &le) {
			issue = ValidationIssue{Code: le.Code, Message: le.Message}
			if le.Pos.IsValid() {
				issue.File = le.Pos.Filename()
				issue.Line = le.Pos.Line()
				issue.Column = le.Pos.Column()
			}
		}
		exit := ExitFailure
		if issue.Code == config.ErrCodeNotFound {
			exit = ExitCommandError
		}
		return outputValidationErrors(formatter, exit, issue)
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", res.FileCount, dir)
	summary := summarizeConfig(res.Config)
	if formatter.JSON() {
		return formatter.Success(ValidationResult{Valid: true, Files: res.FileCount, Config: summary})
	}
	fmt.Fprintln(formatter.Writer, "✓ Configuration is valid")
	return formatter.Success(summary)
}

func summarizeConfig(cfg *config.Config) *ConfigSummary {
	s := &ConfigSummary{
		MaxTicks:     cfg.MaxTicks,
		TickInterval: cfg.TickInterval.String(),
		Modes:        make(map[string]ModeDefault, len(cfg.Modes)),
	}
	for _, k := range mode.Kinds() {
		d, ok := cfg.Modes[k]
		if !ok {
			continue
		}
		s.Modes[k.String()] = ModeDefault{
			Repeating: d.Repeating,
			Scope:     d.Scope.String(),
			Object:    d.Object,
			Category:  d.Category,
		}
	}
	return s
}

func outputValidationErrors(f *OutputFormatter, exit int, issues ...ValidationIssue) error {
	if f.JSON() {
		if err := f.Error(issues[0].Code, "validation failed", ValidationResult{Errors: issues}); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(f.Writer, "✗ Validation failed:")
		for _, is := range issues {
			if is.Line > 0 {
				fmt.Fprintf(f.Writer, "  [%s] %s:%d:%d: %s\n", is.Code, is.File, is.Line, is.Column, is.Message)
			} else {
				fmt.Fprintf(f.Writer, "  [%s] %s\n", is.Code, is.Message)
			}
		}
	}
	return NewExitError(exit, "validation failed")
}
