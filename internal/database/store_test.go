package database

import (
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := Migrate(db); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	return NewStore(db)
}

func TestInsertIfAbsent(t *testing.T) {
	store := setupTestStore(t)

	c := &Case{ID: "case-1", Court: "Supreme Court", DecisionDate: "1990-01-01", CaseType: "general"}

	inserted, err := store.InsertIfAbsent(c)
	if err != nil {
		t.Fatalf("InsertIfAbsent() error = %v", err)
	}
	if !inserted {
		t.Error("first insert should report inserted")
	}

	// Re-inserting the same id must be a silent no-op, not an error.
	dup := &Case{ID: "case-1", Court: "Some Other Court"}
	inserted, err = store.InsertIfAbsent(dup)
	if err != nil {
		t.Fatalf("duplicate InsertIfAbsent() error = %v", err)
	}
	if inserted {
		t.Error("duplicate insert should report not inserted")
	}

	// The original row must be untouched.
	var got Case
	if err := store.db.First(&got, "id = ?", "case-1").Error; err != nil {
		t.Fatal(err)
	}
	if got.Court != "Supreme Court" {
		t.Errorf("duplicate insert overwrote row: court = %q", got.Court)
	}

	stats, err := store.Stats()
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalCases != 1 {
		t.Errorf("TotalCases = %d, want 1", stats.TotalCases)
	}
}

func TestStats(t *testing.T) {
	store := setupTestStore(t)

	seed := []Case{
		{ID: "a1", Court: "Court A", DecisionDate: "1950-03-01"},
		{ID: "a2", Court: "Court A", DecisionDate: "1960-07-12"},
		{ID: "a3", Court: "Court A"},
		{ID: "b1", Court: "Court B", DecisionDate: "1999-12-31"},
		{ID: "b2", Court: "Court B", DecisionDate: "1970-01-01"},
		{ID: "c1", Court: "Court C", DecisionDate: "1980-06-15"},
		{ID: "d1", DecisionDate: "2005-01-01"},
	}
	for i := range seed {
		if _, err := store.InsertIfAbsent(&seed[i]); err != nil {
			t.Fatal(err)
		}
	}

	stats, err := store.Stats()
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}

	if stats.TotalCases != 7 {
		t.Errorf("TotalCases = %d, want 7", stats.TotalCases)
	}
	if len(stats.TopCourts) != 3 {
		t.Fatalf("TopCourts = %d entries, want 3", len(stats.TopCourts))
	}
	if stats.TopCourts[0].Court != "Court A" || stats.TopCourts[0].Count != 3 {
		t.Errorf("top court = %+v, want Court A with 3", stats.TopCourts[0])
	}
	if stats.TopCourts[1].Court != "Court B" || stats.TopCourts[1].Count != 2 {
		t.Errorf("second court = %+v, want Court B with 2", stats.TopCourts[1])
	}
	if stats.EarliestDate != "1950-03-01" {
		t.Errorf("EarliestDate = %q, want 1950-03-01", stats.EarliestDate)
	}
	if stats.LatestDate != "2005-01-01" {
		t.Errorf("LatestDate = %q, want 2005-01-01", stats.LatestDate)
	}
}

func TestStatsEmptyStore(t *testing.T) {
	store := setupTestStore(t)

	stats, err := store.Stats()
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.TotalCases != 0 {
		t.Errorf("TotalCases = %d, want 0", stats.TotalCases)
	}
	if len(stats.TopCourts) != 0 {
		t.Errorf("TopCourts should be empty, got %v", stats.TopCourts)
	}
	if stats.EarliestDate != "" || stats.LatestDate != "" {
		t.Errorf("date range should be empty, got %q..%q", stats.EarliestDate, stats.LatestDate)
	}
}

func TestList(t *testing.T) {
	store := setupTestStore(t)

	for _, id := range []string{"x1", "x2", "x3"} {
		if _, err := store.InsertIfAbsent(&Case{ID: id, Title: "Case " + id}); err != nil {
			t.Fatal(err)
		}
	}

	cases, total, err := store.List(0, 2)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if total != 3 {
		t.Errorf("total = %d, want 3", total)
	}
	if len(cases) != 2 {
		t.Errorf("page size = %d, want 2", len(cases))
	}
}

func TestTransactionCommits(t *testing.T) {
	store := setupTestStore(t)

	err := store.Transaction(func(tx *Store) error {
		for _, id := range []string{"t1", "t2"} {
			if _, err := tx.InsertIfAbsent(&Case{ID: id}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Transaction() error = %v", err)
	}

	stats, err := store.Stats()
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalCases != 2 {
		t.Errorf("TotalCases = %d, want 2", stats.TotalCases)
	}
}
