// Package tabnotes is the composition root of the TabNotes note keeper.
//
// Notes are grouped into named tabs. An anonymous session keeps its tabs in
// a local store (a directory of JSON files by default); once a user signs
// in, every change is also propagated to a remote document store and the
// local tabs are migrated there on the first login.
//
// Features:
//
//   - Tabs with ordered notes, rename, move and reorder.
//   - Optimistic updates: memory first, remote writes in the background.
//   - First-login migration of anonymous data.
//   - Remote stores over Redis, SQLite or PostgreSQL.
//   - Search across every tab.
//
// Usage:
//
//	ws, err := tabnotes.Open(ctx,
//		tabnotes.WithDataDir("./.tabnotes"),
//		tabnotes.WithRemoteURI("sqlite://./remote.db"),
//	)
//	if err != nil {
//		return err
//	}
//	defer ws.Close()
//
//	_, err = ws.Tabs.AddNote(ctx, tabnotes.DefaultTabID, "Buy milk")
package tabnotes
