// Package notesd is the composition root for the notes service.
//
// It wires the JSON file document store, the notes repository and the
// single-threaded polling server together.
//
// The store keeps every table in one JSON file. Each operation reloads the
// file before acting and each mutation rewrites it whole, so edits made by
// other processes between calls are picked up. With versioning enabled every
// mutation is also committed to git.
//
// Usage:
//
//	notes, err := notesd.New("db.json",
//		notesd.WithAutoInit(true),
//		notesd.WithLogger(logger),
//	)
//
//	srv := notesd.NewServer(notes, notesd.ServerConfig{Port: 8001}, "")
//	err = srv.ListenAndServe(ctx)
package notesd
