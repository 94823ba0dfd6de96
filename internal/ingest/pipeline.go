package ingest

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/verdictlabs/verdict/internal/archive"
	"github.com/verdictlabs/verdict/internal/database"
	"github.com/verdictlabs/verdict/internal/normalize"
	"github.com/verdictlabs/verdict/pkg/logger"
)

// maxLineBytes bounds a single .jsonl line. Full-text opinions get large.
const maxLineBytes = 16 * 1024 * 1024

// Pipeline runs the bulk ETL job: extract raw archives, discover JSON
// artifacts, normalize every record, and insert them idempotently. It is a
// best-effort batch job: a bad archive, file, or record is logged and skipped,
// never aborts the run.
type Pipeline struct {
	store       *database.Store
	logger      *logger.Logger
	rawDir      string
	procDir     string
	commitEvery int
}

// Report holds the final counters for one run.
type Report struct {
	Files      int           `json:"files"`
	Archives   int           `json:"archives"`
	Inserted   int           `json:"inserted"`
	Duplicates int           `json:"duplicates"`
	Errors     int           `json:"errors"`
	Elapsed    time.Duration `json:"elapsed"`
}

func New(store *database.Store, log *logger.Logger, rawDir, procDir string, commitEvery int) *Pipeline {
	if commitEvery < 1 {
		commitEvery = 10
	}
	return &Pipeline{
		store:       store,
		logger:      log,
		rawDir:      rawDir,
		procDir:     procDir,
		commitEvery: commitEvery,
	}
}

// Run executes the pipeline to completion. It returns an error only when the
// raw directory itself cannot be read; an empty input set is reported, not
// treated as failure.
func (p *Pipeline) Run() (*Report, error) {
	start := time.Now()
	report := &Report{}

	entries, err := os.ReadDir(p.rawDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read raw directory %s: %w", p.rawDir, err)
	}

	if err := os.MkdirAll(p.procDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create processing directory: %w", err)
	}

	// Phase 1: extract archives from the raw directory (non-recursive).
	// Raw JSON artifacts that are not archives are ingested directly below.
	var rawJSON []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(p.rawDir, entry.Name())

		extracted, err := archive.Extract(path, p.procDir)
		if err != nil {
			report.Errors++
			p.logger.Warn("Archive extraction failed", "path", path, "error", err)
			continue
		}
		if extracted {
			report.Archives++
			p.logger.Info("Extracted archive", "path", path)
		} else if isJSONFile(path) {
			rawJSON = append(rawJSON, path)
		}
	}

	// Phase 2: discover every JSON artifact under the processing directory.
	files := rawJSON
	walkErr := filepath.WalkDir(p.procDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			p.logger.Warn("Skipping unreadable path", "path", path, "error", err)
			return nil
		}
		if !d.IsDir() && isJSONFile(path) {
			files = append(files, path)
		}
		return nil
	})
	if walkErr != nil {
		p.logger.Warn("Processing directory walk incomplete", "error", walkErr)
	}

	report.Files = len(files)
	if len(files) == 0 {
		p.logger.Warn("No JSON/JSONL files found", "raw_dir", p.rawDir, "proc_dir", p.procDir)
		report.Elapsed = time.Since(start)
		return report, nil
	}

	p.logger.Info("Ingesting case data", "files", len(files), "archives", report.Archives)

	// Phase 3: ingest in batches so progress commits periodically; a crash
	// loses at most one batch.
	for batchStart := 0; batchStart < len(files); batchStart += p.commitEvery {
		batchEnd := batchStart + p.commitEvery
		if batchEnd > len(files) {
			batchEnd = len(files)
		}
		batch := files[batchStart:batchEnd]

		err := p.store.Transaction(func(tx *database.Store) error {
			for _, path := range batch {
				p.ingestFile(tx, path, report)
			}
			return nil
		})
		if err != nil {
			report.Errors += len(batch)
			p.logger.Error("Batch commit failed", "files", len(batch), "error", err)
		}
	}

	report.Elapsed = time.Since(start)
	p.logger.Info("Ingestion complete",
		"inserted", report.Inserted,
		"duplicates", report.Duplicates,
		"errors", report.Errors,
		"elapsed", report.Elapsed.String(),
	)

	return report, nil
}

func (p *Pipeline) ingestFile(tx *database.Store, path string, report *Report) {
	err := p.iterRecords(path, func(rec normalize.Record) {
		c := database.FromRecord(normalize.Normalize(rec, path))
		inserted, err := tx.InsertIfAbsent(&c)
		if err != nil {
			report.Errors++
			p.logger.Warn("Record insert failed", "path", path, "id", c.ID, "error", err)
			return
		}
		if inserted {
			report.Inserted++
		} else {
			report.Duplicates++
		}
	})
	if err != nil {
		report.Errors++
		p.logger.Warn("Skipping file", "path", path, "error", err)
	}
}

// iterRecords streams every raw record in the file to fn. For .jsonl a
// malformed line is logged and skipped without aborting the file; for .json a
// top-level parse failure skips the whole file.
func (p *Pipeline) iterRecords(path string, fn func(normalize.Record)) error {
	if strings.HasSuffix(strings.ToLower(path), ".jsonl") {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()

		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

		lineNum := 0
		for scanner.Scan() {
			lineNum++
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			var rec normalize.Record
			if err := json.Unmarshal([]byte(line), &rec); err != nil {
				p.logger.Warn("Malformed JSONL line", "path", path, "line", lineNum, "error", err)
				continue
			}
			fn(rec)
		}
		return scanner.Err()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var top interface{}
	if err := json.Unmarshal(data, &top); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}

	switch v := top.(type) {
	case []interface{}:
		for _, item := range v {
			if rec, ok := item.(map[string]interface{}); ok {
				fn(normalize.Record(rec))
			}
		}
	case map[string]interface{}:
		if results, ok := v["results"].([]interface{}); ok {
			for _, item := range results {
				if rec, ok := item.(map[string]interface{}); ok {
					fn(normalize.Record(rec))
				}
			}
			return nil
		}
		fn(normalize.Record(v))
	}

	return nil
}

func isJSONFile(path string) bool {
	lower := strings.ToLower(path)
	return strings.HasSuffix(lower, ".json") || strings.HasSuffix(lower, ".jsonl")
}
