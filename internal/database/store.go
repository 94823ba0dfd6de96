package database

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store wraps keyed access to the cases table. Duplicate inserts are an
// expected, common case during bulk ingestion, not an error.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Transaction runs fn against a store bound to a single database transaction.
// The bulk pipeline uses this as its commit boundary: a crash mid-run loses at
// most the records since the last completed call.
func (s *Store) Transaction(fn func(tx *Store) error) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

// InsertIfAbsent inserts the record unless a record with the same id already
// exists. The conflict handling happens in a single statement, so concurrent
// writers cannot race a read-then-write gap. Returns whether a row was
// actually inserted.
func (s *Store) InsertIfAbsent(c *Case) (bool, error) {
	result := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(c)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// CourtCount is one row of the top-courts ranking.
type CourtCount struct {
	Court string `json:"court"`
	Count int64  `json:"count"`
}

// Stats summarizes the corpus.
type Stats struct {
	TotalCases   int64        `json:"total_cases"`
	TopCourts    []CourtCount `json:"top_courts"`
	EarliestDate string       `json:"earliest_date"`
	LatestDate   string       `json:"latest_date"`
}

// Stats returns the total record count, the top-5 courts by record count, and
// the decision-date range over records that carry a date.
func (s *Store) Stats() (*Stats, error) {
	stats := &Stats{}

	if err := s.db.Model(&Case{}).Count(&stats.TotalCases).Error; err != nil {
		return nil, err
	}

	// Ties break on court name so the ranking is deterministic.
	err := s.db.Model(&Case{}).
		Select("court, COUNT(*) as count").
		Where("court <> ''").
		Group("court").
		Order("count DESC, court ASC").
		Limit(5).
		Find(&stats.TopCourts).Error
	if err != nil {
		return nil, err
	}

	row := s.db.Model(&Case{}).
		Select("MIN(decision_date), MAX(decision_date)").
		Where("decision_date <> ''").
		Row()
	var minDate, maxDate *string
	if err := row.Scan(&minDate, &maxDate); err != nil {
		return nil, err
	}
	if minDate != nil {
		stats.EarliestDate = *minDate
	}
	if maxDate != nil {
		stats.LatestDate = *maxDate
	}

	return stats, nil
}

// List returns one page of cases in insertion order plus the total count.
func (s *Store) List(offset, limit int) ([]Case, int64, error) {
	var total int64
	if err := s.db.Model(&Case{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var cases []Case
	err := s.db.Order("inserted_at DESC, id ASC").
		Offset(offset).
		Limit(limit).
		Find(&cases).Error
	if err != nil {
		return nil, 0, err
	}

	return cases, total, nil
}

// Ping reports whether the underlying database answers queries.
func (s *Store) Ping() bool {
	var count int64
	return s.db.Model(&Case{}).Count(&count).Error == nil
}
