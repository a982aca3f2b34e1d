package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/aretw0/tabnotes/internal/platform"
	"github.com/aretw0/tabnotes/pkg/core"
)

func main() {
	count := flag.Int("count", 1000, "Number of notes to generate")
	tabCount := flag.Int("tabs", 10, "Number of tabs to spread the notes over")
	remoteURI := flag.String("remote", "memory://", "Remote store URI")
	keep := flag.Bool("keep", false, "Keep the benchmark data dir after running")
	verbose := flag.Bool("v", false, "Log remote writes")
	flag.Parse()

	dataDir, err := os.MkdirTemp("", "tabnotes_bench_")
	if err != nil {
		panic(err)
	}
	defer func() {
		if !*keep {
			os.RemoveAll(dataDir)
		} else {
			fmt.Printf("Keeping bench dir: %s\n", dataDir)
		}
	}()

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	ctx := context.Background()

	// The same remote store must survive both sessions, so it is opened once.
	store, err := platform.OpenRemote(ctx, *remoteURI)
	if err != nil {
		panic(err)
	}
	user := fmt.Sprintf("bench-%d", time.Now().UnixNano())

	ws, err := platform.Open(ctx,
		platform.WithDataDir(dataDir),
		platform.WithRemoteStore(store),
		platform.WithLogger(logger),
	)
	if err != nil {
		panic(err)
	}

	// Run 1: anonymous edits, every one written through to the local store
	fmt.Printf("Adding %d notes over %d tabs (anonymous)...\n", *count, *tabCount)
	tabIDs := []string{core.DefaultTabID}
	for len(tabIDs) < *tabCount {
		tabIDs = append(tabIDs, ws.Tabs.AddTab())
	}
	startAdd := time.Now()
	for i := 0; i < *count; i++ {
		if _, err := ws.Tabs.AddNote(ctx, tabIDs[i%len(tabIDs)], fmt.Sprintf("Note %d", i)); err != nil {
			panic(err)
		}
	}
	addDuration := time.Since(startAdd)

	// Run 2: first login, migrating everything
	fmt.Println("Logging in (migration)...")
	startMigrate := time.Now()
	result, err := ws.Sync.Login(ctx, user)
	if err != nil {
		panic(err)
	}
	migrateDuration := time.Since(startMigrate)
	if err := ws.Close(); err != nil {
		panic(err)
	}

	// Run 3: a new session; the remembered identity triggers the remote load
	fmt.Println("Reopening (remote load)...")
	startLoad := time.Now()
	ws2, err := platform.Open(ctx,
		platform.WithDataDir(dataDir),
		platform.WithRemoteStore(store),
		platform.WithLogger(logger),
	)
	if err != nil {
		panic(err)
	}
	loadDuration := time.Since(startLoad)
	loaded := ws2.Tabs.Snapshot().Tabs.Count()
	if err := ws2.Close(); err != nil {
		panic(err)
	}
	if c, ok := store.(interface{ Close() error }); ok {
		_ = c.Close()
	}

	fmt.Printf("--------------------------------------------------\n")
	fmt.Printf("Benchmark Result (%d notes, %s):\n", *count, *remoteURI)
	fmt.Printf("  Add (local):   %v\n", addDuration)
	fmt.Printf("  Migrate:       %v (notes: %d, failed: %d)\n", migrateDuration, result.Notes, result.Failed)
	fmt.Printf("  Remote load:   %v (notes: %d)\n", loadDuration, loaded)
	fmt.Printf("--------------------------------------------------\n")
}
