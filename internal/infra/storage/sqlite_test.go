package storage

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"fxrate_go/internal/domain"
	"fxrate_go/internal/infra"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var fixedNow = time.Date(2024, 3, 15, 10, 30, 0, 0, time.Local)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	s.WithMetrics(&infra.Metrics{}).WithClock(func() time.Time { return fixedNow })
	t.Cleanup(func() { s.Close() })
	return s
}

// seedLegacy creates a database whose observation table predates the volume column.
func seedLegacy(t *testing.T, path string, rows int) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("failed to open legacy db: %v", err)
	}
	err = db.Exec(`CREATE TABLE twd_exchange_rates (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		currency TEXT,
		rate REAL,
		timestamp DATETIME,
		UNIQUE(currency, timestamp)
	)`).Error
	if err != nil {
		t.Fatalf("failed to create legacy table: %v", err)
	}
	for i := 0; i < rows; i++ {
		ts := fixedNow.AddDate(0, 0, -i).Format(timeLayout)
		if err := db.Exec("INSERT INTO twd_exchange_rates (currency, rate, timestamp) VALUES (?, ?, ?)", "USD", 30.0+float64(i)/10, ts).Error; err != nil {
			t.Fatalf("failed to seed legacy row: %v", err)
		}
	}
	sqlDB, _ := db.DB()
	sqlDB.Close()
}

func TestSaveAndQuery(t *testing.T) {
	s := setupTestStore(t)

	n := s.Save(map[string]float64{"USD": 31.2, "JPY": 0.21}, map[string]float64{"USD": 15000})
	if n != 2 {
		t.Fatalf("expected 2 rows written, got %d", n)
	}

	got, err := s.Query("USD", fixedNow.Add(-time.Hour), fixedNow.Add(time.Hour))
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if got.Len() != 1 {
		t.Fatalf("expected 1 USD row, got %d", got.Len())
	}
	p := got.Last()
	if p.Rate != 31.2 || p.VolumeOrZero() != 15000 {
		t.Errorf("unexpected row: rate=%f volume=%f", p.Rate, p.VolumeOrZero())
	}
	if !p.Timestamp.Equal(fixedNow) {
		t.Errorf("timestamp = %v, want %v", p.Timestamp, fixedNow)
	}

	// Volume missing from the map is stored as 0.
	jpy, _ := s.Query("JPY", fixedNow, fixedNow)
	if jpy.Len() != 1 || !jpy.Last().HasVolume() || jpy.Last().VolumeOrZero() != 0 {
		t.Errorf("JPY volume should default to 0, got %+v", jpy.Points)
	}
}

func TestSave_Upsert(t *testing.T) {
	s := setupTestStore(t)

	s.Save(map[string]float64{"USD": 31.0}, map[string]float64{"USD": 100})
	s.Save(map[string]float64{"USD": 31.5}, map[string]float64{"USD": 200})

	n, err := s.Count("USD")
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("replayed save should leave 1 row, got %d", n)
	}

	got, _ := s.Query("USD", fixedNow, fixedNow)
	if got.Last().Rate != 31.5 || got.Last().VolumeOrZero() != 200 {
		t.Errorf("last write should win, got %+v", got.Last())
	}
}

func TestSave_SkipsInvalidRows(t *testing.T) {
	s := setupTestStore(t)
	m := &infra.Metrics{}
	s.WithMetrics(m)

	n := s.Save(map[string]float64{"USD": 31.0, "XXX": 1.0, "EUR": -1}, nil)
	if n != 1 {
		t.Fatalf("expected only USD written, got %d", n)
	}
	if snap := m.Snapshot(); snap.RowWriteFailures != 1 || snap.RowsWritten != 1 {
		t.Errorf("unexpected counters: %+v", snap)
	}
}

func TestSaveSeries(t *testing.T) {
	s := setupTestStore(t)

	series := domain.Series{Currency: "EUR"}
	for i := 0; i < 5; i++ {
		series.Points = append(series.Points, domain.RateObservation{
			Rate:      33 + float64(i)/10,
			Volume:    domain.Float(8000),
			Timestamp: fixedNow.AddDate(0, 0, i-4),
		})
	}

	if n := s.SaveSeries(series); n != 5 {
		t.Fatalf("expected 5 rows written, got %d", n)
	}

	got, err := s.Query("EUR", fixedNow.AddDate(0, 0, -2), fixedNow)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if got.Len() != 3 {
		t.Fatalf("expected 3 rows in range, got %d", got.Len())
	}
	for i := 1; i < got.Len(); i++ {
		if got.Points[i].Timestamp.Before(got.Points[i-1].Timestamp) {
			t.Fatal("query result should be ascending")
		}
	}

	if s.SaveSeries(domain.Series{Currency: "XXX", Points: series.Points}) != 0 {
		t.Error("unsupported currency series should not be written")
	}
}

func TestQuery_UnknownCurrency(t *testing.T) {
	s := setupTestStore(t)

	got, err := s.Query("XXX", fixedNow.AddDate(-1, 0, 0), fixedNow)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if !got.Empty() {
		t.Errorf("expected no rows, got %d", got.Len())
	}
}

func TestReset(t *testing.T) {
	s := setupTestStore(t)
	s.Save(map[string]float64{"USD": 31.0, "EUR": 33.0}, nil)

	if err := s.Reset(); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}

	n, err := s.Count("")
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if n != 0 {
		t.Errorf("expected empty store after reset, got %d rows", n)
	}
	if !s.HasVolume() {
		t.Error("reset store should have the full schema")
	}

	// Reset again with nothing stored.
	if err := s.Reset(); err != nil {
		t.Fatalf("second Reset failed: %v", err)
	}
}

func TestMigration_InPlace(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.db")
	seedLegacy(t, path, 10)

	s, err := NewStore(path)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	defer s.Close()

	if s.MigrationWarning() != nil {
		t.Fatalf("unexpected migration warning: %v", s.MigrationWarning())
	}
	if !s.HasVolume() {
		t.Fatal("expected volume column after migration")
	}
	if v := s.SchemaVersion(); v != domain.SchemaVersionFull {
		t.Errorf("schema version = %d, want %d", v, domain.SchemaVersionFull)
	}

	got, err := s.Query("USD", fixedNow.AddDate(0, 0, -30), fixedNow)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if got.Len() != 10 {
		t.Fatalf("expected 10 rows preserved, got %d", got.Len())
	}
	for _, p := range got.Points {
		if p.VolumeOrZero() != 0 {
			t.Errorf("migrated row should have volume 0, got %f", p.VolumeOrZero())
		}
	}
}

func TestMigration_Rebuild(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.db")
	seedLegacy(t, path, 7)

	db, err := open(path)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	s := &Store{path: path, db: db, metrics: &infra.Metrics{}, clock: time.Now}
	s.addVolumeColumn = func(*gorm.DB) error { return errors.New("alter table not supported") }
	s.rebuildTable = s.rebuildWithVolume
	defer s.Close()

	if err := s.Initialize(); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if s.MigrationWarning() != nil {
		t.Fatalf("rebuild should succeed, got %v", s.MigrationWarning())
	}
	if !s.HasVolume() {
		t.Fatal("expected volume column after rebuild")
	}
	if n, _ := s.Count("USD"); n != 7 {
		t.Errorf("expected 7 rows preserved, got %d", n)
	}
	if s.conn().Migrator().HasTable(backupTable) {
		t.Error("backup table should be dropped after rebuild")
	}
	if snap := s.metrics.Snapshot(); snap.Migrations != 1 {
		t.Errorf("expected 1 migration recorded, got %d", snap.Migrations)
	}
}

func TestMigration_FailureKeepsReducedSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.db")
	seedLegacy(t, path, 3)

	db, err := open(path)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	m := &infra.Metrics{}
	s := &Store{path: path, db: db, metrics: m, clock: func() time.Time { return fixedNow.Add(time.Minute) }}
	s.addVolumeColumn = func(*gorm.DB) error { return errors.New("alter table not supported") }
	s.rebuildTable = func(*gorm.DB) error { return errors.New("disk full") }
	defer s.Close()

	if err := s.Initialize(); err != nil {
		t.Fatalf("Initialize should not fail on migration errors: %v", err)
	}

	var migErr *domain.SchemaMigrationError
	if !errors.As(s.MigrationWarning(), &migErr) {
		t.Fatalf("expected SchemaMigrationError, got %v", s.MigrationWarning())
	}
	if s.HasVolume() {
		t.Fatal("volume column should still be missing")
	}
	if v := s.SchemaVersion(); v != domain.SchemaVersionReduced {
		t.Errorf("schema version = %d, want %d", v, domain.SchemaVersionReduced)
	}
	if m.Snapshot().MigrationFailures != 1 {
		t.Error("expected migration failure to be counted")
	}

	// Writes and reads continue without volume.
	if n := s.Save(map[string]float64{"USD": 31.0}, map[string]float64{"USD": 500}); n != 1 {
		t.Fatalf("save on reduced schema should succeed, got %d", n)
	}
	got, err := s.Query("USD", fixedNow.AddDate(0, 0, -10), fixedNow.Add(time.Hour))
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if got.Len() != 4 {
		t.Fatalf("expected 4 rows, got %d", got.Len())
	}
	if got.HasAnyVolume() {
		t.Error("reduced schema rows should carry no volume")
	}
}

func TestParseTimestamp(t *testing.T) {
	want := time.Date(2024, 3, 15, 10, 30, 0, 0, time.Local)
	for _, in := range []string{"2024-03-15 10:30:00", "2024-03-15T10:30:00", "2024-03-15 10:30:00.000"} {
		got, err := parseTimestamp(in)
		if err != nil {
			t.Errorf("parseTimestamp(%q) failed: %v", in, err)
			continue
		}
		if !got.Equal(want) {
			t.Errorf("parseTimestamp(%q) = %v, want %v", in, got, want)
		}
	}

	if _, err := parseTimestamp("yesterday"); err == nil {
		t.Error("expected error for garbage timestamp")
	}
}

func TestSave_RejectsNegativeVolume(t *testing.T) {
	s := setupTestStore(t)
	m := &infra.Metrics{}
	s.WithMetrics(m)

	n := s.Save(map[string]float64{"USD": 31.0, "EUR": 33.4}, map[string]float64{"USD": 500, "EUR": -10})
	if n != 1 {
		t.Fatalf("expected only USD written, got %d", n)
	}
	if c, _ := s.Count("EUR"); c != 0 {
		t.Errorf("negative volume row should not be stored, found %d", c)
	}
	if snap := m.Snapshot(); snap.RowWriteFailures != 1 {
		t.Errorf("expected 1 row failure, got %d", snap.RowWriteFailures)
	}
}

func TestSaveSeries_Concurrent(t *testing.T) {
	s := setupTestStore(t)
	m := &infra.Metrics{}
	s.WithMetrics(m)

	codes := []string{"USD", "EUR", "JPY", "GBP", "AUD", "CAD", "CHF", "HKD"}
	const points = 200

	var wg sync.WaitGroup
	for _, code := range codes {
		series := domain.Series{Currency: code}
		for i := 0; i < points; i++ {
			series.Points = append(series.Points, domain.RateObservation{
				Rate:      10 + float64(i)/100,
				Volume:    domain.Float(float64(i)),
				Timestamp: fixedNow.AddDate(0, 0, -i),
			})
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if n := s.SaveSeries(series); n != points {
				t.Errorf("%s: wrote %d of %d rows", series.Currency, n, points)
			}
		}()
	}
	wg.Wait()

	total, err := s.Count("")
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if want := int64(len(codes) * points); total != want {
		t.Errorf("expected %d rows, got %d", want, total)
	}
	if f := m.Snapshot().RowWriteFailures; f != 0 {
		t.Errorf("expected no row failures, got %d", f)
	}
}

func TestQuery_MixedTimestampLayouts(t *testing.T) {
	s := setupTestStore(t)
	start := fixedNow.AddDate(0, 0, -1)
	end := fixedNow

	// Wall clock reads inside the window but the instant is an hour before start.
	_, off := start.Zone()
	early := start.Add(-time.Hour).In(time.FixedZone("ahead", off+8*3600)).Format(time.RFC3339)

	inside := []string{
		fixedNow.Add(-90 * time.Minute).Format("2006-01-02T15:04:05"),
		start.Add(90 * time.Minute).Format(timeLayout),
		fixedNow.Add(-time.Hour).Format("2006-01-02 15:04:05.000000"),
	}
	outside := []string{early, fixedNow.Add(time.Hour).Format(timeLayout)}

	for i, ts := range append(inside, outside...) {
		err := s.conn().Exec("INSERT INTO twd_exchange_rates (currency, rate, volume, timestamp) VALUES (?, ?, ?, ?)",
			"USD", 30.0+float64(i), 0, ts).Error
		if err != nil {
			t.Fatalf("failed to insert %q: %v", ts, err)
		}
	}

	got, err := s.Query("USD", start, end)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if got.Len() != len(inside) {
		t.Fatalf("expected %d rows in window, got %d: %+v", len(inside), got.Len(), got.Points)
	}
	for _, p := range got.Points {
		if p.Timestamp.Before(start) || p.Timestamp.After(end) {
			t.Errorf("row %v outside [%v, %v]", p.Timestamp, start, end)
		}
	}
	for i := 1; i < got.Len(); i++ {
		if got.Points[i].Timestamp.Before(got.Points[i-1].Timestamp) {
			t.Fatal("rows should be oldest first")
		}
	}
}
