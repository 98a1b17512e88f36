package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/aretw0/notesd/pkg/adapters/fs"
	"github.com/aretw0/notesd/pkg/core"
)

func main() {
	count := flag.Int("count", 1000, "Number of notes to generate")
	keep := flag.Bool("keep", false, "Keep the benchmark store after running")
	flag.Parse()

	benchDir, err := os.MkdirTemp("", "notesd_bench_")
	if err != nil {
		panic(err)
	}
	defer func() {
		if !*keep {
			os.RemoveAll(benchDir)
		} else {
			fmt.Printf("Keeping bench dir: %s\n", benchDir)
		}
	}()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	store := fs.NewStore(fs.Config{
		Path:   filepath.Join(benchDir, "db.json"),
		Logger: logger,
	})
	ctx := context.Background()
	if err := store.Initialize(ctx); err != nil {
		panic(err)
	}

	// 1. Populate with a single rewrite
	fmt.Printf("Generating %d notes in %s...\n", *count, benchDir)
	startGen := time.Now()
	tx, err := store.Begin(ctx)
	if err != nil {
		panic(err)
	}
	if err := tx.EnsureTable(core.NotesTable); err != nil {
		panic(err)
	}
	for i := 0; i < *count; i++ {
		fields := core.Record{
			"title":   fmt.Sprintf("Note %d", i),
			"content": fmt.Sprintf("This is benchmark note %d.", i),
		}
		if err := tx.CreateRecord(core.NotesTable, fields); err != nil {
			panic(err)
		}
	}
	if err := tx.Commit(ctx, "generate"); err != nil {
		panic(err)
	}
	fmt.Printf("Generation took: %v\n", time.Since(startGen))

	notes, err := core.NewNoteRepository(ctx, store)
	if err != nil {
		panic(err)
	}

	// 2. Every call reloads the whole file
	list := measure("List", func() int {
		all, err := notes.ListNotes(ctx)
		if err != nil {
			panic(err)
		}
		return len(all)
	})
	search := measure("Search", func() int {
		found, err := notes.SearchNotes(ctx, "note 7")
		if err != nil {
			panic(err)
		}
		return len(found)
	})
	create := measure("Create", func() int {
		if _, err := notes.CreateNote(ctx, "one more", "reload, mutate, rewrite"); err != nil {
			panic(err)
		}
		return 1
	})

	fmt.Printf("--------------------------------------------------\n")
	fmt.Printf("Benchmark Result (%d notes):\n", *count)
	fmt.Printf("  List:   %v\n", list)
	fmt.Printf("  Search: %v\n", search)
	fmt.Printf("  Create: %v\n", create)
	fmt.Printf("--------------------------------------------------\n")
}

func measure(name string, fn func() int) time.Duration {
	fmt.Printf("Running %s...\n", name)
	start := time.Now()
	n := fn()
	d := time.Since(start)
	fmt.Printf("%s Result: %v (Items: %d)\n", name, d, n)
	return d
}
