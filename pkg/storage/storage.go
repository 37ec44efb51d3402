// Package storage keeps the local chip library: SPI flash identities the
// user has detected or entered by hand, persisted in a SQLite database so
// they survive between sessions.
package storage

import (
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"github.com/genregod/ChipWhisperer/pkg/chips"
)

const (
	// EnvDBPath overrides the default library location.
	EnvDBPath = "CHIPWHISPERER_DB_PATH"

	defaultDBDirName  = ".chipwhisperer"
	defaultDBFileName = "chips.sqlite"
	chipTable         = "chips"
)

// Record is one stored chip identity.
type Record struct {
	ID             int64
	ManufacturerID string
	DeviceID       string
	Name           string
	Capacity       string
	BlockSize      int
	PageSize       int
	Notes          string
	CreatedAt      time.Time
}

// Library is the persistent chip table. It shares a single database
// connection and is safe for concurrent use.
type Library struct {
	db   *sql.DB
	path string
}

// Open opens the library at path, creating the database and schema when
// missing. An empty path resolves to $CHIPWHISPERER_DB_PATH, falling back to
// ~/.chipwhisperer/chips.sqlite. The built-in chip identities are seeded
// idempotently, never overwriting user edits.
func Open(path string) (*Library, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", resolved)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "storage: open sqlite database failed")
	}
	if err := configureSQLite(db); err != nil {
		db.Close()
		return nil, err
	}
	if err := prepareSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	lib := &Library{db: db, path: resolved}
	if err := lib.seedBuiltins(); err != nil {
		db.Close()
		return nil, err
	}
	log.Debug().Str("path", resolved).Msg("storage: chip library ready")
	return lib, nil
}

// Path returns the database file backing the library.
func (l *Library) Path() string {
	return l.path
}

// Close releases the underlying database.
func (l *Library) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	if err := l.db.Close(); err != nil {
		return pkgerrors.Wrap(err, "storage: close chip library failed")
	}
	return nil
}

// SaveChip inserts or updates the identity stored for the chip's id pair.
func (l *Library) SaveChip(c chips.Chip, notes string) error {
	mfr := normalizeID(c.ManufacturerID)
	dev := normalizeID(c.DeviceID)
	if mfr == "" || dev == "" {
		return pkgerrors.New("storage: chip id pair is required")
	}
	name := strings.TrimSpace(c.Name)
	if name == "" {
		return pkgerrors.New("storage: chip name is required")
	}
	_, err := l.db.Exec(`INSERT INTO chips
			(manufacturer_id, device_id, name, capacity, block_size, page_size, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(manufacturer_id, device_id) DO UPDATE SET
			name=excluded.name,
			capacity=excluded.capacity,
			block_size=excluded.block_size,
			page_size=excluded.page_size,
			notes=excluded.notes`,
		mfr, dev, name, c.Capacity, c.BlockSize, c.PageSize, notes, time.Now().Unix())
	if err != nil {
		return pkgerrors.Wrap(err, "storage: save chip failed")
	}
	return nil
}

// FindChip looks up the identity stored for an id pair. Ids match
// case-insensitively. The second return reports whether a row was found.
func (l *Library) FindChip(manufacturerID, deviceID string) (Record, bool, error) {
	row := l.db.QueryRow(selectColumns+` WHERE manufacturer_id = ? AND device_id = ?`,
		normalizeID(manufacturerID), normalizeID(deviceID))
	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, pkgerrors.Wrap(err, "storage: find chip failed")
	}
	return rec, true, nil
}

// ListChips returns every stored identity ordered by id pair.
func (l *Library) ListChips() ([]Record, error) {
	rows, err := l.db.Query(selectColumns + ` ORDER BY manufacturer_id, device_id`)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "storage: list chips failed")
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, pkgerrors.Wrap(err, "storage: scan chip row failed")
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, pkgerrors.Wrap(err, "storage: iterate chip rows failed")
	}
	return records, nil
}

// RemoveChip deletes the identity stored for an id pair, reporting whether a
// row was removed.
func (l *Library) RemoveChip(manufacturerID, deviceID string) (bool, error) {
	res, err := l.db.Exec(`DELETE FROM chips WHERE manufacturer_id = ? AND device_id = ?`,
		normalizeID(manufacturerID), normalizeID(deviceID))
	if err != nil {
		return false, pkgerrors.Wrap(err, "storage: remove chip failed")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, pkgerrors.Wrap(err, "storage: remove chip failed")
	}
	return n > 0, nil
}

func (l *Library) seedBuiltins() error {
	for _, c := range chips.Known() {
		_, err := l.db.Exec(`INSERT INTO chips
				(manufacturer_id, device_id, name, capacity, block_size, page_size, notes, created_at)
			VALUES (?, ?, ?, ?, ?, ?, '', ?)
			ON CONFLICT(manufacturer_id, device_id) DO NOTHING`,
			c.ManufacturerID, c.DeviceID, c.Name, c.Capacity, c.BlockSize, c.PageSize, time.Now().Unix())
		if err != nil {
			return pkgerrors.Wrapf(err, "storage: seed chip %s/%s failed", c.ManufacturerID, c.DeviceID)
		}
	}
	return nil
}

const selectColumns = `SELECT id, manufacturer_id, device_id, name, capacity, block_size, page_size, notes, created_at FROM chips`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (Record, error) {
	var (
		rec       Record
		capacity  sql.NullString
		blockSize sql.NullInt64
		pageSize  sql.NullInt64
		notes     sql.NullString
		createdAt sql.NullInt64
	)
	if err := row.Scan(&rec.ID, &rec.ManufacturerID, &rec.DeviceID, &rec.Name,
		&capacity, &blockSize, &pageSize, &notes, &createdAt); err != nil {
		return Record{}, err
	}
	rec.Capacity = capacity.String
	rec.BlockSize = int(blockSize.Int64)
	rec.PageSize = int(pageSize.Int64)
	rec.Notes = notes.String
	if createdAt.Valid {
		rec.CreatedAt = time.Unix(createdAt.Int64, 0)
	}
	return rec, nil
}

func normalizeID(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}

func resolvePath(path string) (string, error) {
	if custom := strings.TrimSpace(path); custom != "" {
		if err := ensureDirExists(filepath.Dir(custom)); err != nil {
			return "", err
		}
		return custom, nil
	}
	if custom := strings.TrimSpace(os.Getenv(EnvDBPath)); custom != "" {
		if err := ensureDirExists(filepath.Dir(custom)); err != nil {
			return "", err
		}
		return custom, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", pkgerrors.Wrap(err, "storage: locate user home failed")
	}
	dir := filepath.Join(home, defaultDBDirName)
	if err := ensureDirExists(dir); err != nil {
		return "", err
	}
	return filepath.Join(dir, defaultDBFileName), nil
}

func ensureDirExists(path string) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return pkgerrors.Wrapf(err, "storage: create dir %s failed", path)
	}
	return nil
}

func configureSQLite(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA temp_store=MEMORY;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return pkgerrors.Wrapf(err, "storage: execute %s failed", pragma)
		}
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	return nil
}

func prepareSchema(db *sql.DB) error {
	createTable := `CREATE TABLE IF NOT EXISTS chips (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			manufacturer_id TEXT NOT NULL,
			device_id TEXT NOT NULL,
			name TEXT NOT NULL,
			capacity TEXT,
			block_size INTEGER,
			page_size INTEGER,
			notes TEXT,
			created_at INTEGER
		);`
	if _, err := db.Exec(createTable); err != nil {
		return pkgerrors.Wrap(err, "storage: init sqlite schema failed")
	}
	// Databases from earlier builds may predate these columns.
	for _, col := range []struct {
		name string
		typ  string
	}{
		{"notes", "TEXT"},
		{"created_at", "INTEGER"},
	} {
		if err := ensureSQLiteColumn(db, chipTable, col.name, col.typ); err != nil {
			return err
		}
	}
	if _, err := db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_chips_identity ON chips(manufacturer_id, device_id);`); err != nil {
		return pkgerrors.Wrap(err, "storage: init sqlite indexes failed")
	}
	return nil
}

func ensureSQLiteColumn(db *sql.DB, table, column, columnType string) error {
	query := "PRAGMA table_info(" + table + ");"
	rows, err := db.Query(query)
	if err != nil {
		return pkgerrors.Wrapf(err, "storage: describe %s schema failed", table)
	}
	defer rows.Close()
	exists := false
	for rows.Next() {
		var (
			cid     int
			name    string
			ctype   string
			notnull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return pkgerrors.Wrap(err, "storage: scan sqlite table info failed")
		}
		if strings.EqualFold(name, column) {
			exists = true
			break
		}
	}
	if err := rows.Err(); err != nil {
		return pkgerrors.Wrap(err, "storage: iterate sqlite table info failed")
	}
	if exists {
		return nil
	}
	stmt := "ALTER TABLE " + table + " ADD COLUMN " + column + " " + columnType + ";"
	if _, err := db.Exec(stmt); err != nil {
		return pkgerrors.Wrapf(err, "storage: add column %s to %s failed", column, table)
	}
	return nil
}
