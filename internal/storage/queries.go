package storage

import (
	"context"
	"database/sql"
	"strconv"
	"time"
)

// Method is a stored method row
type Method struct {
	ID         int64
	Class      string
	Signature  string
	Entrypoint bool
}

// Edge is a stored call edge seen from one end: Other is the method on the
// far side.
type Edge struct {
	Type  string
	Other Method
}

// Source records which trace a database was exported from
type Source struct {
	Path      string
	Checksum  uint64
	Lines     int
	Malformed int
	LoadedAt  time.Time
}

// InsertClass inserts a class and returns its ID
func (db *DB) InsertClass(name string) (int64, error) {
	result, err := db.q().ExecContext(context.Background(),
		`INSERT INTO classes (name) VALUES (?)`,
		name,
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// InsertMethod inserts a method of a class and returns its ID.
// entryRank orders entry points; it is ignored for other methods.
func (db *DB) InsertMethod(classID int64, signature string, entrypoint bool, entryRank int) (int64, error) {
	var rank sql.NullInt64
	if entrypoint {
		rank = sql.NullInt64{Int64: int64(entryRank), Valid: true}
	}
	result, err := db.q().ExecContext(context.Background(),
		`INSERT INTO methods (class_id, signature, entrypoint, entry_rank) VALUES (?, ?, ?, ?)`,
		classID, signature, entrypoint, rank,
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// InsertEdge inserts a call edge; seq preserves insertion order
func (db *DB) InsertEdge(callerID, calleeID int64, callType string, seq int) error {
	_, err := db.q().ExecContext(context.Background(),
		`INSERT INTO edges (caller_id, callee_id, type, seq) VALUES (?, ?, ?, ?)`,
		callerID, calleeID, callType, seq,
	)
	return err
}

// SetSource replaces the stored source description
func (db *DB) SetSource(src Source) error {
	ctx := context.Background()
	if _, err := db.q().ExecContext(ctx, `DELETE FROM source`); err != nil {
		return err
	}
	// uint64 checksums do not fit SQLite integers; store them as text.
	_, err := db.q().ExecContext(ctx,
		`INSERT INTO source (path, checksum, lines, malformed, loaded_at) VALUES (?, ?, ?, ?, ?)`,
		src.Path, strconv.FormatUint(src.Checksum, 16), src.Lines, src.Malformed, src.LoadedAt.UTC().Format(time.RFC3339Nano),
	)
	return err
}

// GetSource returns the stored source description, or nil if none
func (db *DB) GetSource() (*Source, error) {
	var src Source
	var path sql.NullString
	var checksum, loadedAt string
	err := db.q().QueryRowContext(context.Background(),
		`SELECT path, checksum, lines, malformed, loaded_at FROM source LIMIT 1`,
	).Scan(&path, &checksum, &src.Lines, &src.Malformed, &loadedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	src.Path = path.String
	if src.Checksum, err = strconv.ParseUint(checksum, 16, 64); err != nil {
		return nil, err
	}
	if src.LoadedAt, err = time.Parse(time.RFC3339Nano, loadedAt); err != nil {
		return nil, err
	}
	return &src, nil
}

// GetStats returns database statistics
func (db *DB) GetStats() (classCount, methodCount, edgeCount int64, err error) {
	ctx := context.Background()
	if err = db.q().QueryRowContext(ctx, `SELECT COUNT(*) FROM classes`).Scan(&classCount); err != nil {
		return
	}
	if err = db.q().QueryRowContext(ctx, `SELECT COUNT(*) FROM methods`).Scan(&methodCount); err != nil {
		return
	}
	err = db.q().QueryRowContext(ctx, `SELECT COUNT(*) FROM edges`).Scan(&edgeCount)
	return
}

// GetClassNames returns all class names in ascending order
func (db *DB) GetClassNames() ([]string, error) {
	rows, err := db.q().QueryContext(context.Background(), `SELECT name FROM classes ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// GetMethod returns a method by class and signature, or nil if absent
func (db *DB) GetMethod(class, signature string) (*Method, error) {
	row := db.q().QueryRowContext(context.Background(),
		`SELECT m.id, c.name, m.signature, m.entrypoint
		 FROM methods m JOIN classes c ON c.id = m.class_id
		 WHERE c.name = ? AND m.signature = ?`,
		class, signature,
	)
	var m Method
	if err := row.Scan(&m.ID, &m.Class, &m.Signature, &m.Entrypoint); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

// GetEntrypoints returns entry points in trace order
func (db *DB) GetEntrypoints() ([]Method, error) {
	rows, err := db.q().QueryContext(context.Background(),
		`SELECT m.id, c.name, m.signature, m.entrypoint
		 FROM methods m JOIN classes c ON c.id = m.class_id
		 WHERE m.entrypoint = 1
		 ORDER BY m.entry_rank`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMethods(rows)
}

// GetCallees returns the forward edges of a method in insertion order
func (db *DB) GetCallees(methodID int64) ([]Edge, error) {
	return db.edges(`SELECT e.type, m.id, c.name, m.signature, m.entrypoint
		 FROM edges e
		 JOIN methods m ON m.id = e.callee_id
		 JOIN classes c ON c.id = m.class_id
		 WHERE e.caller_id = ?
		 ORDER BY e.seq`, methodID)
}

// GetCallers returns the reverse edges of a method in insertion order.
// Type is the forward phrase as stored.
func (db *DB) GetCallers(methodID int64) ([]Edge, error) {
	return db.edges(`SELECT e.type, m.id, c.name, m.signature, m.entrypoint
		 FROM edges e
		 JOIN methods m ON m.id = e.caller_id
		 JOIN classes c ON c.id = m.class_id
		 WHERE e.callee_id = ?
		 ORDER BY e.seq`, methodID)
}

func (db *DB) edges(query string, methodID int64) ([]Edge, error) {
	rows, err := db.q().QueryContext(context.Background(), query, methodID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var edges []Edge
	for rows.Next() {
		var e Edge
		if err := rows.Scan(&e.Type, &e.Other.ID, &e.Other.Class, &e.Other.Signature, &e.Other.Entrypoint); err != nil {
			return nil, err
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

func scanMethods(rows *sql.Rows) ([]Method, error) {
	var methods []Method
	for rows.Next() {
		var m Method
		if err := rows.Scan(&m.ID, &m.Class, &m.Signature, &m.Entrypoint); err != nil {
			return nil, err
		}
		methods = append(methods, m)
	}
	return methods, rows.Err()
}
