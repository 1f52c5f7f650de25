// Package registry normalizes user-supplied watch targets.
//
// Each target (a file or a directory) is resolved to its canonical
// real path, which becomes the stable identity used for event
// matching. The registry also decides what the notification backend
// should actually subscribe to: directories are watched directly,
// single files are watched through their parent directory, since most
// notification backends cannot watch a lone file.
//
// Example usage:
//
//	reg := registry.New(true, logger.Default())
//	if err := reg.Register([]string{".", "Makefile"}); err != nil {
//	    log.Fatal(err)
//	}
//	for _, spec := range reg.Specs() {
//	    fmt.Printf("subscribe: %s recursive=%v\n", spec.Path, spec.Recursive)
//	}
package registry

// Target is a single watch target after canonicalization.
//
// Targets are created once at registration and immutable thereafter.
type Target struct {
	// CanonicalPath is the fully resolved, symlink-free absolute path.
	CanonicalPath string

	// Label is the path exactly as the user supplied it.
	Label string

	// IsDir reports whether the target is a directory.
	IsDir bool
}

// Spec is a subscription request for the notification backend.
type Spec struct {
	// Path is the directory to subscribe to.
	Path string

	// Recursive requests that subdirectories be watched as well.
	Recursive bool
}
