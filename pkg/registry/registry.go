package registry

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/0xmhha/when-changed/pkg/logger"
)

// Registry holds the canonicalized watch targets for one session.
type Registry struct {
	logger    logger.Logger
	recursive bool

	targets map[string]Target // canonical path -> target
	specs   []Spec
}

// New creates an empty registry.
//
// Parameters:
//   - recursive: Whether directory targets are watched recursively
//   - log: Logger instance
func New(recursive bool, log logger.Logger) *Registry {
	return &Registry{
		logger:    log,
		recursive: recursive,
		targets:   make(map[string]Target),
	}
}

// Register resolves the given paths and records them as watch targets.
//
// Each path is resolved to its canonical absolute form, following
// symlinks. Duplicate inputs that resolve to the same canonical path
// collapse to a single target; the first label wins. A path that does
// not exist is a configuration error: the session refuses to start
// rather than watching a location that can never fire.
//
// Returns ErrNoTargets for an empty input, or an error wrapping
// ErrUnresolvable for the first path that cannot be resolved.
func (r *Registry) Register(paths []string) error {
	if len(paths) == 0 {
		return ErrNoTargets
	}

	specIndex := make(map[string]int)

	for _, p := range paths {
		canonical, err := canonicalize(p)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrUnresolvable, p, err)
		}

		if _, exists := r.targets[canonical]; exists {
			r.logger.Debug("duplicate watch target collapsed",
				"path", p,
				"canonical", canonical)
			continue
		}

		info, err := os.Stat(canonical)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrUnresolvable, p, err)
		}

		target := Target{
			CanonicalPath: canonical,
			Label:         p,
			IsDir:         info.IsDir(),
		}
		r.targets[canonical] = target

		spec := r.specFor(target)
		if i, seen := specIndex[spec.Path]; seen {
			// A recursive subscription subsumes a plain one on the
			// same directory.
			if spec.Recursive {
				r.specs[i].Recursive = true
			}
		} else {
			specIndex[spec.Path] = len(r.specs)
			r.specs = append(r.specs, spec)
		}

		r.logger.Debug("registered watch target",
			"label", p,
			"canonical", canonical,
			"dir", target.IsDir)
	}

	return nil
}

// specFor maps a target to the subscription the backend should hold.
//
// Directories are subscribed directly (recursive when configured).
// Files are subscribed through their parent directory, non-recursive.
func (r *Registry) specFor(t Target) Spec {
	if t.IsDir {
		return Spec{Path: t.CanonicalPath, Recursive: r.recursive}
	}
	return Spec{Path: filepath.Dir(t.CanonicalPath), Recursive: false}
}

// Contains reports whether path is a registered canonical path.
func (r *Registry) Contains(path string) bool {
	_, ok := r.targets[path]
	return ok
}

// Label returns the original user-supplied label for a canonical path.
//
// Returns the canonical path itself if it was never registered.
func (r *Registry) Label(canonical string) string {
	if t, ok := r.targets[canonical]; ok {
		return t.Label
	}
	return canonical
}

// Targets returns the registered targets.
func (r *Registry) Targets() []Target {
	out := make([]Target, 0, len(r.targets))
	for _, t := range r.targets {
		out = append(out, t)
	}
	return out
}

// Specs returns the subscription requests for the notification
// backend, de-duplicated by directory.
func (r *Registry) Specs() []Spec {
	return r.specs
}

// canonicalize resolves a path to its absolute, symlink-free form.
func canonicalize(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(abs)
}
