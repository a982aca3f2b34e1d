package tabnotes_test

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/aretw0/tabnotes"
)

// Example_basic opens an anonymous workspace, adds notes and reads them back.
func Example_basic() {
	dir, err := os.MkdirTemp("", "tabnotes-example-*")
	if err != nil {
		log.Fatal(err)
	}
	defer os.RemoveAll(dir)

	ctx := context.Background()
	ws, err := tabnotes.Open(ctx, tabnotes.WithDataDir(dir), tabnotes.WithRemoteURI(""))
	if err != nil {
		log.Fatal(err)
	}
	defer ws.Close()

	for _, title := range []string{"Call mom", "Buy milk"} {
		if _, err := ws.Tabs.AddNote(ctx, tabnotes.DefaultTabID, title); err != nil {
			log.Fatal(err)
		}
	}

	for _, note := range ws.Tabs.Snapshot().Tabs[tabnotes.DefaultTabID].Items {
		fmt.Println(note.Title)
	}
	// Output:
	// Buy milk
	// Call mom
}

// Example_login migrates anonymous notes to the remote store on first login.
func Example_login() {
	dir, err := os.MkdirTemp("", "tabnotes-example-*")
	if err != nil {
		log.Fatal(err)
	}
	defer os.RemoveAll(dir)

	ctx := context.Background()
	ws, err := tabnotes.Open(ctx, tabnotes.WithDataDir(dir), tabnotes.WithRemoteURI("memory://"))
	if err != nil {
		log.Fatal(err)
	}
	defer ws.Close()

	if _, err := ws.Tabs.AddNote(ctx, tabnotes.DefaultTabID, "Buy milk"); err != nil {
		log.Fatal(err)
	}
	result, err := ws.Sync.Login(ctx, "alice")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("migrated=%v notes=%d\n", result.Migrated, result.Notes)
	// Output:
	// migrated=true notes=1
}

// ExampleSearch finds notes by any word of the query.
func ExampleSearch() {
	tabs := tabnotes.TabCollection{
		"0": {Name: "Home", Items: []tabnotes.Note{
			{Title: "Buy milk"},
			{Title: "Call mom", Description: "about the milk order"},
			{Title: "Water plants"},
		}},
	}

	results, err := tabnotes.Search(tabs, "MILK")
	if err != nil {
		log.Fatal(err)
	}
	for _, r := range results {
		for _, m := range r.Matches {
			fmt.Printf("%s: %s\n", r.TabName, m.Note.Title)
		}
	}
	// Output:
	// Home: Buy milk
	// Home: Call mom
}
