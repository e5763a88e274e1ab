package sqliteblob

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"kcourse/internal/gateway/objectstore"

	_ "modernc.org/sqlite"
)

// Store keeps objects as blobs in a local SQLite file and builds public URLs
// under baseURL, which the HTTP server answers from Get.
type Store struct {
	db      *sql.DB
	bucket  string
	baseURL string
}

var (
	_ objectstore.Store  = (*Store)(nil)
	_ objectstore.Getter = (*Store)(nil)
)

// Open creates the database at path. baseURL is the public prefix objects are
// served under, e.g. http://localhost:3000/objects.
func Open(path, bucket, baseURL string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("sqliteblob: path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if err := ensureSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db, bucket: bucket, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

func ensureSchema(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS objects (
		bucket       TEXT    NOT NULL,
		key          TEXT    NOT NULL,
		content_type TEXT    NOT NULL,
		data         BLOB    NOT NULL,
		created_at   INTEGER NOT NULL,
		PRIMARY KEY (bucket, key)
	)`)
	if err != nil {
		return fmt.Errorf("sqliteblob: ensure schema: %w", err)
	}
	return nil
}

// Upload refuses to overwrite an existing key.
func (s *Store) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("sqliteblob: empty key")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO objects (bucket, key, content_type, data, created_at) VALUES (?, ?, ?, ?, ?)`,
		s.bucket, key, contentType, data, time.Now().UnixMilli())
	if err != nil {
		return "", fmt.Errorf("sqliteblob: upload %s: %w", key, err)
	}
	return s.PublicURL(key), nil
}

func (s *Store) PublicURL(key string) string {
	return s.baseURL + "/" + url.PathEscape(key)
}

func (s *Store) Remove(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM objects WHERE bucket = ? AND key = ?`, s.bucket, key)
	if err != nil {
		return fmt.Errorf("sqliteblob: remove %s: %w", key, err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, key string) (objectstore.Object, error) {
	var (
		obj     = objectstore.Object{Key: key}
		created int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT content_type, data, created_at FROM objects WHERE bucket = ? AND key = ?`, s.bucket, key).
		Scan(&obj.ContentType, &obj.Data, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return objectstore.Object{}, objectstore.ErrNotFound
	}
	if err != nil {
		return objectstore.Object{}, fmt.Errorf("sqliteblob: get %s: %w", key, err)
	}
	obj.CreatedAt = time.UnixMilli(created)
	return obj, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
