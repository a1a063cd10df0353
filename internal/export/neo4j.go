package export

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/zheng/ctb/internal/config"
	"github.com/zheng/ctb/internal/graph"
)

// neo4jBatchSize bounds the rows sent per UNWIND statement.
const neo4jBatchSize = 5000

// neo4jLoader loads the call graph into Neo4j using batch UNWIND queries.
type neo4jLoader struct {
	driver neo4j.DriverWithContext
	db     string
}

// Neo4j replaces the JavaClass/JavaMethod subgraph in the configured database
// with the current graph.
func (e *Exporter) Neo4j(ctx context.Context, cfg config.Neo4jConfig) error {
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.User, cfg.Password, ""))
	if err != nil {
		return fmt.Errorf("failed to create neo4j driver: %w", err)
	}
	defer driver.Close(ctx)

	if err := driver.VerifyConnectivity(ctx); err != nil {
		return fmt.Errorf("neo4j %s: %w", cfg.URI, err)
	}

	l := &neo4jLoader{driver: driver, db: cfg.Database}
	steps := []struct {
		name string
		run  func(context.Context) error
	}{
		{"clean", l.cleanGraph},
		{"indexes", l.createIndexes},
		{"classes", func(ctx context.Context) error { return l.load(ctx, cypherClasses, classRows(e.store)) }},
		{"methods", func(ctx context.Context) error { return l.load(ctx, cypherMethods, methodRows(e.store)) }},
		{"calls", func(ctx context.Context) error { return l.load(ctx, cypherCalls, callRows(e.store)) }},
	}
	for _, step := range steps {
		if err := step.run(ctx); err != nil {
			return fmt.Errorf("neo4j %s: %w", step.name, err)
		}
	}

	stats := e.store.Stats()
	slog.Info("export.neo4j", "uri", cfg.URI, "classes", stats.Classes, "methods", stats.Methods, "edges", stats.Edges)
	return nil
}

const (
	cypherClasses = `UNWIND $batch AS row
		 MERGE (c:JavaClass {name: row.name})`

	cypherMethods = `UNWIND $batch AS row
		 MERGE (m:JavaMethod {key: row.key})
		 SET m.class = row.class, m.signature = row.signature,
		     m.entrypoint = row.entrypoint, m.entry_rank = row.entry_rank
		 WITH m, row
		 MATCH (c:JavaClass {name: row.class})
		 MERGE (c)-[:HAS_METHOD]->(m)`

	cypherCalls = `UNWIND $batch AS row
		 MATCH (caller:JavaMethod {key: row.caller}), (callee:JavaMethod {key: row.callee})
		 MERGE (caller)-[r:CALLS {type: row.type}]->(callee)
		 SET r.seq = row.seq`
)

// runCypher runs a single Cypher statement with optional parameters.
func (l *neo4jLoader) runCypher(ctx context.Context, cypher string, params map[string]any) error {
	_, err := neo4j.ExecuteQuery(ctx, l.driver, cypher, params, neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(l.db))
	return err
}

// cleanGraph removes previously loaded call-graph nodes and relationships.
func (l *neo4jLoader) cleanGraph(ctx context.Context) error {
	queries := []string{
		"MATCH ()-[r:CALLS]->() DELETE r",
		"MATCH (n:JavaMethod) DETACH DELETE n",
		"MATCH (n:JavaClass) DETACH DELETE n",
	}
	for _, q := range queries {
		if err := l.runCypher(ctx, q, nil); err != nil {
			return err
		}
	}
	return nil
}

// createIndexes ensures the lookup indexes exist.
func (l *neo4jLoader) createIndexes(ctx context.Context) error {
	indexes := []string{
		"CREATE INDEX java_class_name IF NOT EXISTS FOR (n:JavaClass) ON (n.name)",
		"CREATE INDEX java_method_key IF NOT EXISTS FOR (n:JavaMethod) ON (n.key)",
	}
	for _, q := range indexes {
		if err := l.runCypher(ctx, q, nil); err != nil {
			return err
		}
	}
	return nil
}

// load sends rows in batches through an UNWIND statement.
func (l *neo4jLoader) load(ctx context.Context, cypher string, rows []map[string]any) error {
	for _, batch := range batches(rows, neo4jBatchSize) {
		if err := l.runCypher(ctx, cypher, map[string]any{"batch": batch}); err != nil {
			return err
		}
	}
	return nil
}

func batches(rows []map[string]any, size int) [][]map[string]any {
	var out [][]map[string]any
	for len(rows) > size {
		out = append(out, rows[:size])
		rows = rows[size:]
	}
	if len(rows) > 0 {
		out = append(out, rows)
	}
	return out
}

// methodKey identifies a method node; signatures are unique within a class.
func methodKey(ref graph.MethodRef) string {
	return ref.String()
}

func classRows(store *graph.Store) []map[string]any {
	classes := store.ListClasses()
	rows := make([]map[string]any, 0, len(classes))
	for _, cls := range classes {
		rows = append(rows, map[string]any{"name": cls})
	}
	return rows
}

func methodRows(store *graph.Store) []map[string]any {
	rank := make(map[graph.MethodRef]int)
	for i, ref := range store.ListEntrypoints() {
		rank[ref] = i
	}

	methods := store.Methods()
	rows := make([]map[string]any, 0, len(methods))
	for _, ref := range methods {
		row := map[string]any{
			"key":        methodKey(ref),
			"class":      ref.Class,
			"signature":  ref.Signature,
			"entrypoint": false,
			"entry_rank": nil,
		}
		if r, ok := rank[ref]; ok {
			row["entrypoint"] = true
			row["entry_rank"] = r
		}
		rows = append(rows, row)
	}
	return rows
}

func callRows(store *graph.Store) []map[string]any {
	calls := store.Calls()
	rows := make([]map[string]any, 0, len(calls))
	for seq, c := range calls {
		rows = append(rows, map[string]any{
			"caller": methodKey(c.Caller),
			"callee": methodKey(c.Callee),
			"type":   c.Type,
			"seq":    seq,
		})
	}
	return rows
}
