package storage

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"sync"
	"time"

	"fxrate_go/internal/domain"
	"fxrate_go/internal/infra"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	observationTable = "twd_exchange_rates"
	backupTable      = observationTable + "_backup"

	// timeLayout is how timestamps are written. Rows written by older versions may
	// use other layouts; parseTimestamp accepts those too.
	timeLayout = "2006-01-02 15:04:05"
	dateLayout = "2006-01-02"
)

const createObservationTable = `
	CREATE TABLE IF NOT EXISTS ` + observationTable + ` (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		currency TEXT,
		rate REAL,
		volume REAL DEFAULT 0,
		timestamp DATETIME,
		UNIQUE(currency, timestamp)
	)`

// observationRow is the table as gorm sees it. Used for column introspection and
// the in-place column addition.
type observationRow struct {
	ID        uint     `gorm:"primaryKey;autoIncrement"`
	Currency  string   `gorm:"type:text"`
	Rate      float64  `gorm:"type:real"`
	Volume    *float64 `gorm:"type:real;default:0"`
	Timestamp string   `gorm:"type:datetime"`
}

func (observationRow) TableName() string { return observationTable }

// scanRow is one query result. The timestamp is cast to text so the driver never
// converts it to time.Time on its own.
type scanRow struct {
	TS     string   `gorm:"column:ts"`
	Rate   float64  `gorm:"column:rate"`
	Volume *float64 `gorm:"column:volume"`
}

// Store persists rate observations in a local SQLite file.
// Each Save or SaveSeries call commits as one transaction over a single pooled
// connection, so concurrent callers queue instead of failing on a locked file.
// Concurrent upserts of the same (currency, timestamp) resolve as last write wins.
type Store struct {
	path    string
	mu      sync.RWMutex // guards db across Reset
	db      *gorm.DB
	metrics *infra.Metrics
	clock   func() time.Time

	migrationErr error

	// Migration steps, swappable so tests can force the fallback paths.
	addVolumeColumn func(db *gorm.DB) error
	rebuildTable    func(db *gorm.DB) error
}

// NewStore opens (creating if needed) the database at path and initializes the
// schema. An empty path resolves to the per-user default location.
func NewStore(path string) (*Store, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve DB path: %w", err)
		}
		path = p
	}

	s := &Store{
		path:    path,
		metrics: infra.GlobalMetrics,
		clock:   time.Now,
	}
	s.addVolumeColumn = s.addColumnInPlace
	s.rebuildTable = s.rebuildWithVolume

	db, err := open(path)
	if err != nil {
		return nil, err
	}
	s.db = db

	if err := s.Initialize(); err != nil {
		return nil, err
	}
	return s, nil
}

func open(path string) (*gorm.DB, error) {
	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create DB directory: %w", err)
	}

	// Connect to SQLite (Pure Go)
	db, err := gorm.Open(sqlite.Open(path+"?_pragma=busy_timeout(5000)"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get connection pool: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

// DefaultPath resolves the database file path based on OS
func DefaultPath() (string, error) {
	var configDir string
	var err error

	if runtime.GOOS == "windows" {
		configDir = os.Getenv("LOCALAPPDATA")
		if configDir == "" {
			configDir, err = os.UserConfigDir()
		}
	} else {
		configDir, err = os.UserConfigDir()
	}

	if err != nil {
		return "", err
	}

	return filepath.Join(configDir, "FXRate", "data", "fxrate.db"), nil
}

// WithMetrics redirects counters away from infra.GlobalMetrics.
func (s *Store) WithMetrics(m *infra.Metrics) *Store {
	s.metrics = m
	return s
}

// WithClock overrides the instant used by Save.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.clock = now
	return s
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) conn() *gorm.DB {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.db
}

// ======================================================================================
// Schema
// ======================================================================================

// Initialize creates the observation table when absent and adds the volume column
// to tables created without it. A failed upgrade is not returned: the store keeps
// working without volume and the failure is available from MigrationWarning.
func (s *Store) Initialize() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initialize(s.db)
}

func (s *Store) initialize(db *gorm.DB) error {
	if err := db.AutoMigrate(&domain.SchemaMeta{}); err != nil {
		return fmt.Errorf("failed to migrate schema marker: %w", err)
	}
	if err := db.Exec(createObservationTable).Error; err != nil {
		return fmt.Errorf("failed to create observation table: %w", err)
	}

	s.migrationErr = nil
	if !hasVolumeColumn(db) {
		if err := s.upgrade(db); err != nil {
			s.migrationErr = err
			s.metrics.RecordMigrationFailure()
			slog.Warn("Database upgrade failed, continuing without volume", slog.Any("error", err))
		}
	}

	version := domain.SchemaVersionReduced
	if hasVolumeColumn(db) {
		version = domain.SchemaVersionFull
	}
	if err := db.Save(&domain.SchemaMeta{Key: domain.SchemaVersionKey, Value: strconv.Itoa(version)}).Error; err != nil {
		slog.Warn("Failed to record schema version", slog.Any("error", err))
	}
	return nil
}

func (s *Store) upgrade(db *gorm.DB) error {
	inPlaceErr := s.addVolumeColumn(db)
	if inPlaceErr == nil {
		s.metrics.RecordMigration()
		slog.Info("Database upgraded with volume column")
		return nil
	}
	slog.Warn("In-place volume column failed, rebuilding table", slog.Any("error", inPlaceErr))

	if err := s.rebuildTable(db); err != nil {
		return &domain.SchemaMigrationError{InPlace: inPlaceErr, Rebuild: err}
	}
	s.metrics.RecordMigration()
	slog.Info("Database structure rebuilt with historical data preserved")
	return nil
}

func (s *Store) addColumnInPlace(db *gorm.DB) error {
	return db.Migrator().AddColumn(&observationRow{}, "Volume")
}

// rebuildWithVolume copies every row into a holding table, recreates the table with
// the full schema and copies the rows back with volume 0. It runs in a single
// transaction and checks row counts, so a failure leaves the reduced table intact.
func (s *Store) rebuildWithVolume(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		before, err := countRows(tx, observationTable)
		if err != nil {
			return err
		}

		steps := []string{
			"DROP TABLE IF EXISTS " + backupTable,
			"CREATE TABLE " + backupTable + " AS SELECT * FROM " + observationTable,
		}
		for _, stmt := range steps {
			if err := tx.Exec(stmt).Error; err != nil {
				return err
			}
		}
		if n, err := countRows(tx, backupTable); err != nil {
			return err
		} else if n != before {
			return fmt.Errorf("backup holds %d rows, expected %d", n, before)
		}

		steps = []string{
			"DROP TABLE " + observationTable,
			createObservationTable,
			"INSERT INTO " + observationTable + " (currency, rate, volume, timestamp) " +
				"SELECT currency, rate, 0, timestamp FROM " + backupTable,
		}
		for _, stmt := range steps {
			if err := tx.Exec(stmt).Error; err != nil {
				return err
			}
		}
		if n, err := countRows(tx, observationTable); err != nil {
			return err
		} else if n != before {
			return fmt.Errorf("rebuilt table holds %d rows, expected %d", n, before)
		}

		return tx.Exec("DROP TABLE " + backupTable).Error
	})
}

func hasVolumeColumn(db *gorm.DB) bool {
	return db.Migrator().HasColumn(&observationRow{}, "volume")
}

func countRows(db *gorm.DB, table string) (int64, error) {
	var n int64
	err := db.Table(table).Count(&n).Error
	return n, err
}

// HasVolume reports whether the table currently has a volume column.
func (s *Store) HasVolume() bool {
	return hasVolumeColumn(s.conn())
}

// MigrationWarning returns the last upgrade failure, or nil.
func (s *Store) MigrationWarning() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.migrationErr
}

// SchemaVersion returns the recorded schema marker (0 when missing).
func (s *Store) SchemaVersion() int {
	var meta domain.SchemaMeta
	err := s.conn().Where(&domain.SchemaMeta{Key: domain.SchemaVersionKey}).First(&meta).Error
	if err != nil {
		return 0
	}
	v, _ := strconv.Atoi(meta.Value)
	return v
}

// ======================================================================================
// Observation Operations
// ======================================================================================

// Save upserts one row per supported currency in rates, stamped with the current
// instant. Volumes missing from the map are stored as 0. Rows that fail are
// logged and skipped. Returns the number of rows written.
func (s *Store) Save(rates map[string]float64, volumes map[string]float64) int {
	if len(rates) == 0 {
		return 0
	}

	db := s.conn()
	withVolume := hasVolumeColumn(db)
	ts := s.clock()

	codes := make([]string, 0, len(rates))
	for code := range rates {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	written := 0
	committed := s.batch(db, func(tx *gorm.DB) {
		for _, code := range codes {
			if !domain.IsSupported(code) {
				continue
			}
			obs := domain.RateObservation{
				Currency:  code,
				Rate:      rates[code],
				Volume:    domain.Float(volumes[code]),
				Timestamp: ts,
			}
			if s.upsert(tx, obs, withVolume) {
				written++
			}
		}
	})
	if !committed {
		return 0
	}
	return written
}

// SaveSeries upserts every point of series at its own timestamp.
func (s *Store) SaveSeries(series domain.Series) int {
	if !domain.IsSupported(series.Currency) {
		return 0
	}

	db := s.conn()
	withVolume := hasVolumeColumn(db)

	written := 0
	committed := s.batch(db, func(tx *gorm.DB) {
		for _, p := range series.Points {
			p.Currency = series.Currency
			if s.upsert(tx, p, withVolume) {
				written++
			}
		}
	})
	if !committed {
		return 0
	}
	return written
}

// batch runs fn in one transaction. A failed row only skips that row; the
// statements that succeeded are committed together. Reports whether the
// commit went through.
func (s *Store) batch(db *gorm.DB, fn func(tx *gorm.DB)) bool {
	err := db.Transaction(func(tx *gorm.DB) error {
		fn(tx)
		return nil
	})
	if err != nil {
		s.metrics.RecordRowFailure()
		slog.Warn("Batch commit failed", slog.Any("error", err))
		return false
	}
	return true
}

func (s *Store) upsert(db *gorm.DB, obs domain.RateObservation, withVolume bool) bool {
	var err error
	switch {
	case !(obs.Rate > 0):
		err = fmt.Errorf("rate must be positive, got %v", obs.Rate)
	case obs.VolumeOrZero() < 0 || math.IsNaN(obs.VolumeOrZero()):
		err = fmt.Errorf("volume must not be negative, got %v", obs.VolumeOrZero())
	case withVolume:
		err = db.Exec(
			"INSERT OR REPLACE INTO "+observationTable+" (currency, rate, volume, timestamp) VALUES (?, ?, ?, ?)",
			obs.Currency, obs.Rate, obs.VolumeOrZero(), formatTimestamp(obs.Timestamp),
		).Error
	default:
		err = db.Exec(
			"INSERT OR REPLACE INTO "+observationTable+" (currency, rate, timestamp) VALUES (?, ?, ?)",
			obs.Currency, obs.Rate, formatTimestamp(obs.Timestamp),
		).Error
	}

	if err != nil {
		s.metrics.RecordRowFailure()
		slog.Warn("Skipping observation", slog.Any("error", &domain.RowWriteError{Currency: obs.Currency, Err: err}))
		return false
	}
	s.metrics.RecordRowWritten()
	return true
}

// Query returns the observations for currency with start <= timestamp <= end,
// oldest first. When the table has no volume column the points carry nil volume.
// SQLite narrows by calendar date with a day of slack on each side; the exact
// bounds are applied after parsing so rows stored in other layouts or offsets
// are compared as instants.
func (s *Store) Query(currency string, start, end time.Time) (domain.Series, error) {
	series := domain.Series{Currency: currency}
	db := s.conn()

	columns := "CAST(timestamp AS TEXT) AS ts, rate"
	if hasVolumeColumn(db) {
		columns += ", volume"
	}

	var rows []scanRow
	err := db.Table(observationTable).
		Select(columns).
		Where("currency = ? AND substr(timestamp, 1, 10) BETWEEN ? AND ?",
			currency, start.AddDate(0, 0, -1).In(time.Local).Format(dateLayout), end.AddDate(0, 0, 1).In(time.Local).Format(dateLayout)).
		Order("timestamp").
		Scan(&rows).Error
	if err != nil {
		s.metrics.RecordQueryFailure()
		return series, &domain.QueryError{Currency: currency, Err: err}
	}

	series.Points = make([]domain.RateObservation, 0, len(rows))
	for _, r := range rows {
		ts, err := parseTimestamp(r.TS)
		if err != nil {
			slog.Warn("Skipping row with unreadable timestamp", slog.String("currency", currency), slog.String("timestamp", r.TS))
			continue
		}
		if ts.Before(start) || ts.After(end) {
			continue
		}
		series.Points = append(series.Points, domain.RateObservation{
			Currency:  currency,
			Rate:      r.Rate,
			Volume:    r.Volume,
			Timestamp: ts,
		})
	}
	series.SortByTime()
	return series, nil
}

// Count returns the number of stored rows for currency, or all rows when empty.
func (s *Store) Count(currency string) (int64, error) {
	var n int64
	q := s.conn().Table(observationTable)
	if currency != "" {
		q = q.Where("currency = ?", currency)
	}
	err := q.Count(&n).Error
	return n, err
}

// Reset deletes the database file and initializes an empty store in its place.
// Safe to call when the file is already gone.
func (s *Store) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		if sqlDB, err := s.db.DB(); err == nil {
			sqlDB.Close()
		}
	}

	for _, suffix := range []string{"", "-wal", "-shm", "-journal"} {
		if err := os.Remove(s.path + suffix); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to remove database: %w", err)
		}
	}

	db, err := open(s.path)
	if err != nil {
		return err
	}
	s.db = db
	slog.Info("Database reset", slog.String("path", s.path))
	return s.initialize(db)
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ======================================================================================
// Timestamps
// ======================================================================================

var readLayouts = []string{
	timeLayout,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05.999999999-07:00",
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

func formatTimestamp(t time.Time) string {
	return t.In(time.Local).Format(timeLayout)
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range readLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
