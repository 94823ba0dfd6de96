package database

import (
	"time"

	"github.com/verdictlabs/verdict/internal/normalize"
)

// Case is one normalized court opinion. The string primary key is the
// source-derived identifier, so re-ingesting the same record is a no-op.
type Case struct {
	ID           string    `json:"id" gorm:"primaryKey"`
	Court        string    `json:"court" gorm:"index"`
	Citation     string    `json:"citation" gorm:"index"`
	DecisionDate string    `json:"decision_date" gorm:"index"`
	Title        string    `json:"title"`
	Jurisdiction string    `json:"jurisdiction" gorm:"index"`
	Reporter     string    `json:"reporter"`
	CaseType     string    `json:"case_type" gorm:"index"`
	SourcePath   string    `json:"source_path"`
	HasFullText  bool      `json:"has_full_text"`
	InsertedAt   time.Time `json:"inserted_at" gorm:"autoCreateTime"`
}

func (Case) TableName() string {
	return "cases"
}

// FromRecord maps the normalizer's canonical record onto the storage model.
func FromRecord(rec normalize.CaseRecord) Case {
	return Case{
		ID:           rec.ID,
		Court:        rec.Court,
		Citation:     rec.Citation,
		DecisionDate: rec.DecisionDate,
		Title:        rec.Title,
		Jurisdiction: rec.Jurisdiction,
		Reporter:     rec.Reporter,
		CaseType:     rec.CaseType,
		SourcePath:   rec.SourcePath,
		HasFullText:  rec.HasFullText,
	}
}
