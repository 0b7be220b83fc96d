// Package anonymize applies a confirmed column-to-category assignment
// across a dataset, replacing every designated cell through the
// mapping store.
package anonymize

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/safeshare/safeshare/internal/dataset"
	"github.com/safeshare/safeshare/internal/detect"
	"github.com/safeshare/safeshare/internal/mapping"
	"github.com/safeshare/safeshare/internal/pii"
)

// Assignment maps column names to confirmed PII categories.
type Assignment map[string]pii.Category

// ResidualWarning reports a column that still detects as PII after
// anonymization. It is data for the caller to act on, not an error.
type ResidualWarning struct {
	Column   string       `json:"column"`
	Category pii.Category `json:"category"`
	Ratio    float64      `json:"ratio"`
}

// Anonymizer orchestrates the mapping store over datasets. It holds no
// per-run state; every run gets a fresh store so independent runs can
// never cross-contaminate pseudonym assignments.
type Anonymizer struct {
	detector *detect.Detector
	padding  int
	logger   *zap.Logger
}

// Option tunes an Anonymizer.
type Option func(*Anonymizer)

// WithPadding overrides the pseudonym sequence width.
func WithPadding(padding int) Option {
	return func(a *Anonymizer) { a.padding = padding }
}

// New creates an Anonymizer. The detector is used for the optional
// post-anonymization validation pass.
func New(detector *detect.Detector, logger *zap.Logger, opts ...Option) *Anonymizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &Anonymizer{
		detector: detector,
		padding:  mapping.DefaultPadding,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Anonymize produces a new dataset of identical shape with every
// assigned column rewritten through a fresh mapping store. The input
// dataset is never mutated; missing and empty cells pass through
// untouched. Columns absent from the assignment are copied verbatim.
func (a *Anonymizer) Anonymize(ds *dataset.Dataset, assignment Assignment) (*dataset.Dataset, *mapping.Store, error) {
	for column, category := range assignment {
		if !pii.Valid(category) {
			return nil, nil, fmt.Errorf("column %q: %w: %q", column, pii.ErrUnknownCategory, string(category))
		}
	}

	out := ds.Clone()
	store := mapping.NewStoreWithPadding(a.padding)

	for i := range out.Columns {
		col := &out.Columns[i]
		category, ok := assignment[col.Name]
		if !ok {
			continue
		}
		replaced := 0
		for j, cell := range col.Cells {
			if cell.Missing || strings.TrimSpace(cell.Value) == "" {
				continue
			}
			pseudonym, err := store.GetOrCreate(category, cell.Value)
			if err != nil {
				return nil, nil, fmt.Errorf("column %q: %w", col.Name, err)
			}
			col.Cells[j] = dataset.Cell{Value: pseudonym}
			replaced++
		}
		a.logger.Info("column anonymized",
			zap.String("column", col.Name),
			zap.String("category", string(category)),
			zap.Int("cells_replaced", replaced),
			zap.Int("unique_values", store.Len(category)),
		)
	}

	a.logger.Info("anonymization complete",
		zap.Int("columns_assigned", len(assignment)),
		zap.Int("values_mapped", store.Size()),
	)
	return out, store, nil
}

// Validate re-scans a transformed dataset and reports every column
// whose residual PII ratio still clears the detection threshold.
// Issued pseudonyms are masked out first so the email decoration does
// not flag our own output.
func (a *Anonymizer) Validate(ds *dataset.Dataset) []ResidualWarning {
	scan := ds.Clone()
	for i := range scan.Columns {
		for j, cell := range scan.Columns[i].Cells {
			if !cell.Missing && pii.IsPseudonym(cell.Value) {
				scan.Columns[i].Cells[j] = dataset.Missing
			}
		}
	}

	var warnings []ResidualWarning
	for _, profile := range a.detector.ScanDataset(scan) {
		if profile.Category == pii.CategoryOther {
			continue
		}
		warnings = append(warnings, ResidualWarning{
			Column:   profile.Column,
			Category: profile.Category,
			Ratio:    profile.Ratios[profile.Category],
		})
		a.logger.Warn("residual PII detected after anonymization",
			zap.String("column", profile.Column),
			zap.String("category", string(profile.Category)),
			zap.Float64("ratio", profile.Ratios[profile.Category]),
		)
	}
	return warnings
}
