// Package filter decides whether a raw filesystem event path is
// interesting to the watch session.
//
// A path is interesting when it is a registered target, a direct
// child of a registered directory, or (in recursive mode) any
// descendant of one. Exclusion rules always win: an excluded path is
// never interesting, even when it matches a registered target
// exactly.
//
// The filter is pure. All rules are supplied at construction and the
// decision never touches the filesystem, so it can be tested without
// fixtures.
package filter

import (
	"fmt"
	"path/filepath"
	"regexp"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/0xmhha/when-changed/pkg/logger"
)

// TargetSet is the registered-path lookup the filter matches against.
//
// *registry.Registry satisfies this interface.
type TargetSet interface {
	// Contains reports whether path is a registered canonical path.
	Contains(path string) bool
}

// Config contains filter configuration.
type Config struct {
	// Excludes are regular expressions matched against the raw event
	// path. A path matching any of them is never interesting.
	Excludes []string

	// IgnoreGlobs are doublestar glob patterns (e.g. "**/*.tmp")
	// matched against the raw event path, with the same effect as
	// Excludes.
	IgnoreGlobs []string

	// Recursive enables the ancestor-chain check for descendants of
	// registered directories.
	Recursive bool
}

// Filter applies exclusion rules and target matching to event paths.
type Filter struct {
	excludes  []*regexp.Regexp
	globs     []string
	recursive bool
	targets   TargetSet
	logger    logger.Logger
}

// DefaultExcludes returns the stock exclusion rules: editor swap and
// backup files, vim's create-probe file, .git and __pycache__
// directories.
func DefaultExcludes() []string {
	return []string{
		`\..*\.sw[px]*$`, // vim swap files
		`4913$`,          // vim file-creation probe
		`.~$`,            // backup files
		`\.git/?`,
		`__pycache__/?`,
	}
}

// New creates a filter from the given rules and target set.
//
// Returns an error if any exclude regexp or ignore glob is invalid.
func New(cfg Config, targets TargetSet, log logger.Logger) (*Filter, error) {
	excludes := make([]*regexp.Regexp, 0, len(cfg.Excludes))
	for _, pattern := range cfg.Excludes {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrBadPattern, pattern, err)
		}
		excludes = append(excludes, re)
	}

	for _, pattern := range cfg.IgnoreGlobs {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("%w: %q", ErrBadPattern, pattern)
		}
	}

	return &Filter{
		excludes:  excludes,
		globs:     cfg.IgnoreGlobs,
		recursive: cfg.Recursive,
		targets:   targets,
		logger:    log,
	}, nil
}

// Interested reports whether the given raw event path should trigger
// the command.
//
// Exclusion rules are checked against the raw path string before any
// directory resolution, so a path can be excluded even when its
// parent would otherwise match.
func (f *Filter) Interested(path string) bool {
	if f.excluded(path) {
		f.logger.Debug("path excluded", "path", path)
		return false
	}

	if f.targets.Contains(path) {
		return true
	}

	parent := filepath.Dir(path)
	if f.targets.Contains(parent) {
		return true
	}

	if f.recursive {
		// Walk the ancestor chain. filepath.Dir is a fixed point at
		// the root, which terminates the loop.
		for dir := parent; ; {
			next := filepath.Dir(dir)
			if next == dir {
				break
			}
			if f.targets.Contains(next) {
				return true
			}
			dir = next
		}
	}

	return false
}

// excluded reports whether path matches any exclusion rule.
func (f *Filter) excluded(path string) bool {
	for _, re := range f.excludes {
		if re.MatchString(path) {
			return true
		}
	}
	for _, pattern := range f.globs {
		if ok, _ := doublestar.Match(pattern, path); ok {
			return true
		}
	}
	return false
}
