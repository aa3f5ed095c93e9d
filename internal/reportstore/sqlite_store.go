package reportstore

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"crawshaw.io/sqlite"
	"github.com/klauspost/compress/zstd"

	"github.com/localrivet/githubsentinel/internal/errortypes"
	"github.com/localrivet/githubsentinel/internal/util"
)

// DefaultListLimit caps List when no limit is given.
const DefaultListLimit = 50

// SQLiteReportStore is an implementation of ReportStore that uses SQLite.
// Raw sources are stored zstd-compressed.
type SQLiteReportStore struct {
	conn    *sqlite.Conn
	dbPath  string
	encoder *zstd.Encoder
	decoder *zstd.Decoder
	logger  *slog.Logger
	mu      sync.Mutex
}

// Open opens (creating if needed) the archive at dbPath.
func Open(dbPath string, logger *slog.Logger) (*SQLiteReportStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, errortypes.DatabaseError(err, "failed to create archive directory").WithField("path", dir)
		}
	}

	conn, err := sqlite.OpenConn(dbPath, sqlite.SQLITE_OPEN_CREATE|sqlite.SQLITE_OPEN_READWRITE)
	if err != nil {
		return nil, errortypes.DatabaseError(err, "failed to open SQLite database").WithField("path", dbPath)
	}

	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		conn.Close()
		return nil, errortypes.InternalError(err, "failed to create zstd encoder")
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		encoder.Close()
		conn.Close()
		return nil, errortypes.InternalError(err, "failed to create zstd decoder")
	}

	s := &SQLiteReportStore{
		conn:    conn,
		dbPath:  dbPath,
		encoder: encoder,
		decoder: decoder,
		logger:  logger.WithGroup("archive"),
	}

	if err := s.createTables(); err != nil {
		s.Close()
		return nil, err
	}

	s.logger.Debug("Report archive opened", "path", dbPath)
	return s, nil
}

func (s *SQLiteReportStore) createTables() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS reports (
			id TEXT PRIMARY KEY,
			repository TEXT NOT NULL,
			kind TEXT NOT NULL,
			provider TEXT NOT NULL,
			report TEXT NOT NULL,
			source BLOB,
			source_path TEXT NOT NULL DEFAULT '',
			report_path TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_reports_repository ON reports (repository, created_at);`,
	}

	for _, sql := range statements {
		if err := s.exec(sql); err != nil {
			return errortypes.DatabaseError(err, "failed to create tables")
		}
	}
	return nil
}

func (s *SQLiteReportStore) exec(sql string) error {
	stmt, err := s.conn.Prepare(sql)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Reset()

	if _, err := stmt.Step(); err != nil {
		return fmt.Errorf("step: %w", err)
	}
	return nil
}

// Close closes the store and releases any resources.
func (s *SQLiteReportStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.encoder != nil {
		s.encoder.Close()
		s.encoder = nil
	}
	if s.decoder != nil {
		s.decoder.Close()
		s.decoder = nil
	}
	if s.conn != nil {
		err := s.conn.Close()
		s.conn = nil
		return err
	}
	return nil
}

// Store archives r. CreatedAt defaults to now and ID to a hash of the
// repository, text and creation time.
func (s *SQLiteReportStore) Store(r *Report) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return "", errortypes.DatabaseError(fmt.Errorf("store closed"), "report archive is closed")
	}

	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	if r.ID == "" {
		r.ID = util.GenerateHash(r.Repository, r.Text, r.CreatedAt)
	}

	insertSQL := `
	INSERT OR REPLACE INTO reports (id, repository, kind, provider, report, source, source_path, report_path, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?);`

	stmt, err := s.conn.Prepare(insertSQL)
	if err != nil {
		return "", errortypes.DatabaseError(err, "failed to prepare insert statement")
	}
	defer stmt.Reset()

	// Bind parameters - indices in sqlite are 1-based
	stmt.BindText(1, r.ID)
	stmt.BindText(2, r.Repository)
	stmt.BindText(3, r.Kind)
	stmt.BindText(4, r.Provider)
	stmt.BindText(5, r.Text)
	stmt.BindBytes(6, s.encoder.EncodeAll([]byte(r.Source), nil))
	stmt.BindText(7, r.SourcePath)
	stmt.BindText(8, r.ReportPath)
	stmt.BindInt64(9, r.CreatedAt.UnixNano())

	if _, err := stmt.Step(); err != nil {
		return "", errortypes.DatabaseError(err, "failed to insert report").WithField("repository", r.Repository)
	}

	s.logger.Debug("Report archived", "id", r.ID, "repository", r.Repository, "kind", r.Kind)
	return r.ID, nil
}

// Get returns the report with id, including its decompressed raw source.
func (s *SQLiteReportStore) Get(id string) (*Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return nil, errortypes.DatabaseError(fmt.Errorf("store closed"), "report archive is closed")
	}

	stmt, err := s.conn.Prepare(`
	SELECT id, repository, kind, provider, report, source_path, report_path, created_at, source
	FROM reports WHERE id = ?;`)
	if err != nil {
		return nil, errortypes.DatabaseError(err, "failed to prepare select statement")
	}
	defer stmt.Reset()

	stmt.BindText(1, id)

	hasRow, err := stmt.Step()
	if err != nil {
		return nil, errortypes.DatabaseError(err, "failed to query report").WithField("id", id)
	}
	if !hasRow {
		return nil, errortypes.ResourceNotFound(fmt.Errorf("report %q not found", id), "report not found").
			WithField("id", id)
	}

	r := scanReport(stmt)

	// For binary data, we need to create a buffer and use ColumnBytes to fill it
	compressed := make([]byte, stmt.ColumnLen(8))
	stmt.ColumnBytes(8, compressed)
	if len(compressed) > 0 {
		source, err := s.decoder.DecodeAll(compressed, nil)
		if err != nil {
			return nil, errortypes.DatabaseError(err, "failed to decompress report source").WithField("id", id)
		}
		r.Source = string(source)
	}

	return &r, nil
}

// List returns up to limit reports, newest first.
func (s *SQLiteReportStore) List(repository string, limit int) ([]Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return nil, errortypes.DatabaseError(fmt.Errorf("store closed"), "report archive is closed")
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}

	stmt, err := s.conn.Prepare(`
	SELECT id, repository, kind, provider, report, source_path, report_path, created_at
	FROM reports
	WHERE (?1 = '' OR repository = ?1)
	ORDER BY created_at DESC
	LIMIT ?2;`)
	if err != nil {
		return nil, errortypes.DatabaseError(err, "failed to prepare list statement")
	}
	defer stmt.Reset()

	stmt.BindText(1, repository)
	stmt.BindInt64(2, int64(limit))

	reports := []Report{}
	for {
		hasRow, err := stmt.Step()
		if err != nil {
			return nil, errortypes.DatabaseError(err, "failed to list reports")
		}
		if !hasRow {
			break
		}
		reports = append(reports, scanReport(stmt))
	}
	return reports, nil
}

// scanReport reads the leading columns shared by Get and List.
func scanReport(stmt *sqlite.Stmt) Report {
	return Report{
		ID:         stmt.ColumnText(0),
		Repository: stmt.ColumnText(1),
		Kind:       stmt.ColumnText(2),
		Provider:   stmt.ColumnText(3),
		Text:       stmt.ColumnText(4),
		SourcePath: stmt.ColumnText(5),
		ReportPath: stmt.ColumnText(6),
		CreatedAt:  time.Unix(0, stmt.ColumnInt64(7)),
	}
}
