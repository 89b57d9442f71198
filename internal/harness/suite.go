package harness

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// SuiteResult summarises a directory of scenarios.
type SuiteResult struct {
	Total    int
	Passed   int
	Failed   int
	Failures []SuiteFailure
}

// SuiteFailure is one scenario that did not pass, either because it could
// not run (Err) or because assertions failed (Errors).
type SuiteFailure struct {
	Path   string
	Name   string
	Err    error
	Errors []string
}

// Pass reports whether every scenario passed.
func (r *SuiteResult) Pass() bool {
	return r.Failed == 0
}

// FindScenarios lists the .yaml and .yml files directly in dir, sorted.
func FindScenarios(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario directory: %w", err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext == ".yaml" || ext == ".yml" {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// RunSuite runs every scenario in dir. A scenario that fails to load or run
// counts as failed; the rest of the suite still runs.
func RunSuite(dir string, opts ...Option) (*SuiteResult, error) {
	paths, err := FindScenarios(dir)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no scenarios found in %s", dir)
	}

	res := &SuiteResult{Total: len(paths)}
	for _, path := range paths {
		f := SuiteFailure{Path: path}
		s, err := LoadScenario(path)
		if err != nil {
			f.Err = err
			res.Failed++
			res.Failures = append(res.Failures, f)
			continue
		}
		f.Name = s.Name

		r, err := Run(s, opts...)
		switch {
		case err != nil:
			f.Err = err
		case !r.Pass:
			f.Errors = r.Errors
		default:
			res.Passed++
			continue
		}
		res.Failed++
		res.Failures = append(res.Failures, f)
	}
	return res, nil
}
