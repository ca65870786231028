// Package watcher re-runs the pipeline when its input files change.
//
// The Watcher subscribes to the directories holding the lifecycle and
// listing files through fsnotify, so editors that replace files by rename
// are seen too. Bursts of events are debounced into a single callback with
// the changed paths.
//
// A watcher can also run detached: StartDaemon re-executes the binary in a
// new session and records its PID; StopDaemon signals it.
//
// Example usage:
//
//	w, err := watcher.New([]string{"lifecycle.csv", "cran2015.csv"}, time.Second,
//		func(changed []string) error {
//			return reload(changed)
//		})
//	if err != nil {
//		log.Fatal(err)
//	}
//	if err := w.Start(); err != nil {
//		log.Fatal(err)
//	}
//	defer w.Stop()
package watcher
