package graphstore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"molgraph/internal/core/errors"
	"molgraph/internal/shared/util"

	_ "modernc.org/sqlite"
)

const sqliteDriverName = "sqlite"

// Store is one container file. It is owned by a single worker at a time.
type Store struct {
	db   *sql.DB
	path string
}

// Create starts a new container at path, replacing any existing file.
// The rollback journal is used so a closed store is one self-contained file
// that can be renamed atomically.
func Create(path string) (*Store, error) {
	for _, p := range []string{path, path + "-journal"} {
		if err := util.RemoveIfExists(p); err != nil {
			return nil, errors.Wrapf(err, errors.CodeSerialization, "remove stale graph store %q", p)
		}
	}
	return open(path, false)
}

// Open opens an existing container for reading.
func Open(path string) (*Store, error) {
	if info, err := os.Stat(path); err != nil || info.IsDir() {
		if err == nil {
			err = fmt.Errorf("%q is a directory", path)
		}
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeNotFound, "open graph store"), errors.CtxPath, path)
	}
	return open(path, true)
}

func open(path string, readOnly bool) (*Store, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, errors.New(errors.CodeValidationError, "graph store path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, errors.Newf(errors.CodeValidationError, "graph store path %q is a directory", cleanPath)
	}

	dir := filepath.Dir(cleanPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrapf(err, errors.CodeSerialization, "create graph store directory %q", dir)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)", cleanPath)
	if readOnly {
		dsn += "&mode=ro"
	} else {
		dsn += "&_pragma=journal_mode(DELETE)"
	}
	db, err := sql.Open(sqliteDriverName, dsn)
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeSerialization, "open graph store %q", cleanPath)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, errors.Wrapf(err, errors.CodeSerialization, "ping graph store %q", cleanPath)
	}
	if !readOnly {
		if err := migrateStoreSchema(db); err != nil {
			_ = db.Close()
			return nil, errors.Wrap(err, errors.CodeSerialization, "prepare graph store")
		}
	}
	return &Store{db: db, path: cleanPath}, nil
}

func (s *Store) Path() string { return s.path }

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// Put writes e, replacing any entry with the same name. It reports whether
// an entry was replaced.
func (s *Store) Put(ctx context.Context, e *Entry) (bool, error) {
	var replaced bool
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		replaced, err = putTx(ctx, tx, e)
		return err
	})
	return replaced, err
}

// PutBatch writes entries in one transaction and returns the names that
// replaced existing entries.
func (s *Store) PutBatch(ctx context.Context, entries []*Entry) ([]string, error) {
	var replaced []string
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		for _, e := range entries {
			r, err := putTx(ctx, tx, e)
			if err != nil {
				return err
			}
			if r {
				replaced = append(replaced, e.Name)
			}
		}
		return nil
	})
	return replaced, err
}

func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	if s == nil || s.db == nil {
		return errors.New(errors.CodeSerialization, "graph store not initialized")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, errors.CodeSerialization, "begin graph store tx")
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		if !errors.IsCode(err, errors.CodeSerialization) {
			err = errors.Wrap(err, errors.CodeSerialization, "write graph entries")
		}
		return errors.AddContext(err, errors.CtxPath, s.path)
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, errors.CodeSerialization, "commit graph store tx")
	}
	return nil
}

func putTx(ctx context.Context, tx *sql.Tx, e *Entry) (bool, error) {
	if e == nil || e.Name == "" {
		return false, errors.New(errors.CodeSerialization, "entry has no name")
	}
	for _, p := range e.EdgeIndex {
		if p[0] < 0 || p[1] < 0 || p[0] >= int64(e.NumNodes) || p[1] >= int64(e.NumNodes) || p[0] == p[1] {
			return false, errors.Newf(errors.CodeSerialization, "entry %s: edge (%d,%d) invalid for %d nodes", e.Name, p[0], p[1], e.NumNodes)
		}
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM entries WHERE name = ?`, e.Name)
	if err != nil {
		return false, fmt.Errorf("delete entry %q: %w", e.Name, err)
	}
	n, _ := res.RowsAffected()
	replaced := n > 0

	var ord int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(ord), -1) + 1 FROM entries`).Scan(&ord); err != nil {
		return false, fmt.Errorf("next entry order: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
INSERT INTO entries (name, ord, kind, fingerprint, num_nodes, num_edges, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
`, e.Name, ord, e.Kind, e.Fingerprint, e.NumNodes, len(e.EdgeIndex), time.Now().UTC().UnixMilli()); err != nil {
		return false, fmt.Errorf("insert entry %q: %w", e.Name, err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO tables (entry, grp, name, ord, num_rows, width, data) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return false, fmt.Errorf("prepare table insert: %w", err)
	}
	defer stmt.Close()
	for _, group := range []struct {
		name string
		rows int
		cols []Column
	}{{GroupNode, e.NumNodes, e.NodeData}, {GroupEdge, len(e.EdgeIndex), e.EdgeData}} {
		for i, c := range group.cols {
			if c.Rows != group.rows || len(c.Data) != c.Rows*c.RowWidth() {
				return false, errors.Newf(errors.CodeSerialization, "entry %s: %s/%s has %d values for %d rows", e.Name, group.name, c.Name, len(c.Data), group.rows)
			}
			if _, err := stmt.ExecContext(ctx, e.Name, group.name, c.Name, i, c.Rows, c.Width, encodeFloats(c.Data)); err != nil {
				return false, fmt.Errorf("insert %s/%s: %w", group.name, c.Name, err)
			}
		}
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO edge_index (entry, num_rows, data) VALUES (?, ?, ?)`,
		e.Name, len(e.EdgeIndex), encodePairs(e.EdgeIndex)); err != nil {
		return false, fmt.Errorf("insert edge index: %w", err)
	}
	for k, v := range e.Targets {
		if _, err := tx.ExecContext(ctx, `INSERT INTO targets (entry, name, value) VALUES (?, ?, ?)`, e.Name, k, v); err != nil {
			return false, fmt.Errorf("insert target %q: %w", k, err)
		}
	}
	for k, v := range e.Metadata {
		if _, err := tx.ExecContext(ctx, `INSERT INTO metadata (entry, key, value) VALUES (?, ?, ?)`, e.Name, k, v); err != nil {
			return false, fmt.Errorf("insert metadata %q: %w", k, err)
		}
	}
	return replaced, nil
}

// Keys lists entry names in write order.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	if s == nil || s.db == nil {
		return nil, errors.New(errors.CodeSerialization, "graph store not initialized")
	}
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM entries ORDER BY ord ASC`)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeSerialization, "list entries")
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, errors.Wrap(err, errors.CodeSerialization, "scan entry name")
		}
		out = append(out, name)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.CodeSerialization, "iterate entries")
	}
	return out, nil
}

func (s *Store) Len(ctx context.Context) (int, error) {
	if s == nil || s.db == nil {
		return 0, errors.New(errors.CodeSerialization, "graph store not initialized")
	}
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM entries`).Scan(&n); err != nil {
		return 0, errors.Wrap(err, errors.CodeSerialization, "count entries")
	}
	return n, nil
}

// Get reads one entry.
func (s *Store) Get(ctx context.Context, name string) (*Entry, error) {
	if s == nil || s.db == nil {
		return nil, errors.New(errors.CodeSerialization, "graph store not initialized")
	}
	e := &Entry{Name: name, Targets: map[string]float64{}, Metadata: map[string]string{}}
	var numEdges int
	err := s.db.QueryRowContext(ctx, `SELECT kind, fingerprint, num_nodes, num_edges FROM entries WHERE name = ?`, name).
		Scan(&e.Kind, &e.Fingerprint, &e.NumNodes, &numEdges)
	if err == sql.ErrNoRows {
		return nil, errors.AddContext(errors.Newf(errors.CodeNotFound, "entry %q not found", name), errors.CtxPath, s.path)
	}
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeSerialization, "read entry %q", name)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT grp, name, num_rows, width, data FROM tables WHERE entry = ? ORDER BY grp, ord`, name)
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeSerialization, "read tables of %q", name)
	}
	for rows.Next() {
		var (
			grp  string
			c    Column
			blob []byte
		)
		if err := rows.Scan(&grp, &c.Name, &c.Rows, &c.Width, &blob); err != nil {
			rows.Close()
			return nil, errors.Wrap(err, errors.CodeSerialization, "scan table")
		}
		if c.Data, err = decodeFloats(blob); err != nil {
			rows.Close()
			return nil, errors.Wrapf(err, errors.CodeSerialization, "decode %s/%s", grp, c.Name)
		}
		if grp == GroupNode {
			e.NodeData = append(e.NodeData, c)
		} else {
			e.EdgeData = append(e.EdgeData, c)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.CodeSerialization, "iterate tables")
	}

	var blob []byte
	if err := s.db.QueryRowContext(ctx, `SELECT data FROM edge_index WHERE entry = ?`, name).Scan(&blob); err != nil {
		return nil, errors.Wrapf(err, errors.CodeSerialization, "read edge index of %q", name)
	}
	if e.EdgeIndex, err = decodePairs(blob); err != nil {
		return nil, errors.Wrap(err, errors.CodeSerialization, "decode edge index")
	}
	if len(e.EdgeIndex) != numEdges {
		return nil, errors.Newf(errors.CodeSerialization, "entry %q: edge index has %d rows, expected %d", name, len(e.EdgeIndex), numEdges)
	}

	if err := s.readPairs(ctx, `SELECT name, value FROM targets WHERE entry = ?`, name, func(k string, v sql.NullFloat64, _ sql.NullString) {
		e.Targets[k] = v.Float64
	}, true); err != nil {
		return nil, err
	}
	if err := s.readPairs(ctx, `SELECT key, value FROM metadata WHERE entry = ?`, name, func(k string, _ sql.NullFloat64, v sql.NullString) {
		e.Metadata[k] = v.String
	}, false); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *Store) readPairs(ctx context.Context, query, name string, set func(string, sql.NullFloat64, sql.NullString), numeric bool) error {
	rows, err := s.db.QueryContext(ctx, query, name)
	if err != nil {
		return errors.Wrap(err, errors.CodeSerialization, "read entry attributes")
	}
	defer rows.Close()
	for rows.Next() {
		var (
			k string
			f sql.NullFloat64
			v sql.NullString
		)
		if numeric {
			err = rows.Scan(&k, &f)
		} else {
			err = rows.Scan(&k, &v)
		}
		if err != nil {
			return errors.Wrap(err, errors.CodeSerialization, "scan entry attribute")
		}
		set(k, f, v)
	}
	if err := rows.Err(); err != nil {
		return errors.Wrap(err, errors.CodeSerialization, "iterate entry attributes")
	}
	return nil
}
