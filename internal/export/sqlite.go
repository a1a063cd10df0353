package export

import (
	"fmt"
	"log/slog"

	"github.com/zheng/ctb/internal/graph"
	"github.com/zheng/ctb/internal/storage"
)

// SQLite writes the graph into the database at path, replacing its contents.
// The write happens in one transaction; on error the old contents remain.
func (e *Exporter) SQLite(path string) error {
	db, err := storage.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Begin(); err != nil {
		return err
	}
	if err := e.writeSQLite(db); err != nil {
		_ = db.Rollback()
		return err
	}
	if err := db.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	classes, methods, edges, _ := db.GetStats()
	slog.Info("export.sqlite", "path", path, "classes", classes, "methods", methods, "edges", edges)
	return nil
}

func (e *Exporter) writeSQLite(db *storage.DB) error {
	if err := db.Clear(); err != nil {
		return fmt.Errorf("failed to clear database: %w", err)
	}

	entryRank := make(map[graph.MethodRef]int)
	for i, ref := range e.store.ListEntrypoints() {
		entryRank[ref] = i
	}

	classIDs := make(map[string]int64)
	for _, cls := range e.store.ListClasses() {
		id, err := db.InsertClass(cls)
		if err != nil {
			return fmt.Errorf("insert class %s: %w", cls, err)
		}
		classIDs[cls] = id
	}

	methodIDs := make(map[graph.MethodRef]int64)
	for _, ref := range e.store.Methods() {
		rank, entry := entryRank[ref]
		id, err := db.InsertMethod(classIDs[ref.Class], ref.Signature, entry, rank)
		if err != nil {
			return fmt.Errorf("insert method %s: %w", ref, err)
		}
		methodIDs[ref] = id
	}

	for seq, c := range e.store.Calls() {
		if err := db.InsertEdge(methodIDs[c.Caller], methodIDs[c.Callee], c.Type, seq); err != nil {
			return fmt.Errorf("insert edge %s -> %s: %w", c.Caller, c.Callee, err)
		}
	}

	src := e.store.Source()
	return db.SetSource(storage.Source{
		Path:      src.Path,
		Checksum:  src.Checksum,
		Lines:     src.Lines,
		Malformed: src.Malformed,
		LoadedAt:  src.LoadedAt,
	})
}
