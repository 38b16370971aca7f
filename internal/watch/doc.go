// Package watch provides real-time file system watching with automatic
// debouncing and gitignore-aware filtering, feeding detected changes into
// the incremental indexing path.
//
// The package implements a hybrid watching strategy:
//   - Primary: fsnotify for efficient event-based watching
//   - Fallback: Polling for environments where fsnotify fails (network mounts, Docker volumes)
//
// Events are debounced to coalesce rapid changes from IDEs and git operations,
// and filtered against .gitignore patterns to skip irrelevant files.
//
// Usage:
//
//	opts := watch.DefaultOptions()
//	w, err := watch.NewHybridWatcher(opts)
//	if err != nil {
//	    return err
//	}
//	defer w.Stop()
//
//	if err := w.Start(ctx, "/path/to/project"); err != nil {
//	    return err
//	}
//
//	for batch := range w.Events() {
//	    for _, event := range batch {
//	        switch event.Operation {
//	        case watch.OpCreate:
//	            // Handle file creation
//	        case watch.OpModify:
//	            // Handle file modification
//	        case watch.OpDelete:
//	            // Handle file deletion
//	        }
//	    }
//	}
package watch
