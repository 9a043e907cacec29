package spatialdb

import (
	"database/sql"
	"fmt"

	"github.com/paulmach/orb/encoding/wkb"

	_ "modernc.org/sqlite" // SQLite driver
)

// SQLiteSink is the concrete output: a four-layer spatial SQLite database
// with WKB-blob geometry columns, written in a schema-on-open,
// batched-transaction-on-flush shape. There is no SpatiaLite extension
// available to a pure-Go sqlite driver, so geometry is stored as a plain
// BLOB column holding WKB, with a metadata row recording the SRID the
// geometry was produced in (always 4326, WGS84).
type SQLiteSink struct {
	db        *sql.DB
	batch     []func(*sql.Tx) error
	batchSize int
}

// DefaultBatchSize bounds how many rows accumulate before an automatic flush.
const DefaultBatchSize = 200

// OpenSQLiteSink opens the output database at path, creating the four
// layer tables if they do not exist, and returns a ready-to-use Sink. Rows
// already present in an existing file are kept; only the metadata table
// is rewritten.
func OpenSQLiteSink(path string) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("spatialdb: opening database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA cache_size = 50000",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("spatialdb: setting pragma %q: %w", pragma, err)
		}
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteSink{db: db, batchSize: DefaultBatchSize}, nil
}

func createSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS metadata (
			name TEXT NOT NULL,
			value TEXT
		);

		CREATE TABLE IF NOT EXISTS polygons (
			way_id INTEGER NOT NULL,
			relation_id INTEGER NOT NULL,
			type TEXT,
			name TEXT,
			lastchange TEXT,
			error TEXT,
			geom BLOB
		);

		CREATE TABLE IF NOT EXISTS relations (
			relation_id INTEGER NOT NULL,
			type TEXT,
			name TEXT,
			lastchange TEXT,
			nowaterway_error TEXT,
			tagging_error TEXT,
			geom BLOB
		);

		CREATE TABLE IF NOT EXISTS ways (
			way_id INTEGER NOT NULL,
			type TEXT,
			name TEXT,
			firstnode TEXT,
			lastnode TEXT,
			relation_id INTEGER NOT NULL,
			width TEXT,
			lastchange TEXT,
			construction TEXT,
			width_error TEXT,
			tagging_error TEXT,
			geom BLOB
		);

		CREATE TABLE IF NOT EXISTS nodes (
			node_id TEXT,
			specific TEXT,
			direction_error TEXT,
			name_error TEXT,
			type_error TEXT,
			spring_error TEXT,
			end_error TEXT,
			way_error TEXT,
			geom BLOB
		);
	`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("spatialdb: creating schema: %w", err)
	}
	if _, err := db.Exec(`DELETE FROM metadata`); err != nil {
		return fmt.Errorf("spatialdb: clearing metadata: %w", err)
	}
	if _, err := db.Exec(`INSERT INTO metadata (name, value) VALUES ('srid', '4326'), ('format', 'wkb')`); err != nil {
		return fmt.Errorf("spatialdb: writing metadata: %w", err)
	}
	return nil
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func (s *SQLiteSink) queue(fn func(*sql.Tx) error) error {
	s.batch = append(s.batch, fn)
	if len(s.batch) >= s.batchSize {
		return s.Flush()
	}
	return nil
}

func (s *SQLiteSink) InsertPolygonFeature(f PolygonFeature) error {
	geom, err := wkb.Marshal(f.Geometry)
	if err != nil {
		return fmt.Errorf("spatialdb: marshaling polygon geometry: %w", err)
	}
	return s.queue(func(tx *sql.Tx) error {
		_, err := tx.Exec(
			`INSERT INTO polygons (way_id, relation_id, type, name, lastchange, error, geom) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			f.WayID, f.RelationID, f.Type, f.Name, f.LastChange, "false", geom,
		)
		return err
	})
}

func (s *SQLiteSink) InsertRelationFeature(f RelationFeature) error {
	geom, err := wkb.Marshal(f.Geometry)
	if err != nil {
		return fmt.Errorf("spatialdb: marshaling relation geometry: %w", err)
	}
	return s.queue(func(tx *sql.Tx) error {
		_, err := tx.Exec(
			`INSERT INTO relations (relation_id, type, name, lastchange, nowaterway_error, tagging_error, geom) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			f.RelationID, f.Type, f.Name, f.LastChange, boolLabel(f.NowaterwayError), boolLabel(f.TaggingError), geom,
		)
		return err
	})
}

func (s *SQLiteSink) InsertWayFeature(f WayFeature) error {
	geom, err := wkb.Marshal(f.Geometry)
	if err != nil {
		return fmt.Errorf("spatialdb: marshaling way geometry: %w", err)
	}
	return s.queue(func(tx *sql.Tx) error {
		_, err := tx.Exec(
			`INSERT INTO ways (way_id, type, name, firstnode, lastnode, relation_id, width, lastchange, construction, width_error, tagging_error, geom)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			f.WayID, f.Type, f.Name, f.FirstNode, f.LastNode, f.RelationID, f.Width, f.LastChange, f.Construction,
			boolLabel(f.WidthError), boolLabel(f.TaggingError), geom,
		)
		return err
	})
}

func (s *SQLiteSink) InsertNodeFeature(f NodeFeature) error {
	geom, err := wkb.Marshal(f.Geometry)
	if err != nil {
		return fmt.Errorf("spatialdb: marshaling node geometry: %w", err)
	}
	return s.queue(func(tx *sql.Tx) error {
		_, err := tx.Exec(
			`INSERT INTO nodes (node_id, specific, direction_error, name_error, type_error, spring_error, end_error, way_error, geom)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			f.NodeID, f.Specific, boolLabel(f.DirectionError), boolLabel(f.NameError), boolLabel(f.TypeError),
			boolLabel(f.SpringError), boolLabel(f.EndError), boolLabel(f.WayError), geom,
		)
		return err
	})
}

// Flush writes any queued rows to the database in a single transaction.
func (s *SQLiteSink) Flush() error {
	if len(s.batch) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("spatialdb: beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, fn := range s.batch {
		if err := fn(tx); err != nil {
			return fmt.Errorf("spatialdb: inserting row: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("spatialdb: committing transaction: %w", err)
	}
	s.batch = s.batch[:0]
	return nil
}

// Close flushes any buffered rows and closes the database.
func (s *SQLiteSink) Close() error {
	if err := s.Flush(); err != nil {
		s.db.Close()
		return err
	}
	return s.db.Close()
}
