// Package detect scans dataset columns and recommends a PII category
// per column based on content hit ratios, with column-name keywords as
// a tie-break signal only.
package detect

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/safeshare/safeshare/internal/dataset"
	"github.com/safeshare/safeshare/internal/pii"
)

const (
	DefaultSampleSize  = 100
	DefaultThreshold   = 0.10
	DefaultHintEpsilon = 0.01
)

var (
	// ErrInvalidSampleSize flags a misconfigured (negative) sample size.
	ErrInvalidSampleSize = errors.New("sample size must be positive")
	// ErrInvalidThreshold flags a detection threshold outside (0, 1].
	ErrInvalidThreshold = errors.New("detection threshold must be in (0, 1]")
)

// Options tunes a Detector. Zero values fall back to the defaults.
type Options struct {
	SampleSize  int
	Threshold   float64
	HintEpsilon float64
}

// ColumnProfile is the detection result for one column.
type ColumnProfile struct {
	Column   string                   `json:"column"`
	Sampled  int                      `json:"sampled"`
	Hits     map[pii.Category]int     `json:"hits"`
	Ratios   map[pii.Category]float64 `json:"ratios"`
	Category pii.Category             `json:"category"`
	Hint     pii.Category             `json:"hint,omitempty"`
}

// Detector samples column values, runs the category validators and
// picks the dominant category per column. Scanning is read-only and
// idempotent: the same column always yields the same profile.
type Detector struct {
	opts   Options
	logger *zap.Logger
}

// New validates options and creates a detector.
func New(opts Options, logger *zap.Logger) (*Detector, error) {
	if opts.SampleSize == 0 {
		opts.SampleSize = DefaultSampleSize
	}
	if opts.SampleSize < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSampleSize, opts.SampleSize)
	}
	if opts.Threshold == 0 {
		opts.Threshold = DefaultThreshold
	}
	if opts.Threshold < 0 || opts.Threshold > 1 {
		return nil, fmt.Errorf("%w: %g", ErrInvalidThreshold, opts.Threshold)
	}
	if opts.HintEpsilon == 0 {
		opts.HintEpsilon = DefaultHintEpsilon
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Detector{opts: opts, logger: logger}, nil
}

// Threshold returns the configured detection threshold.
func (d *Detector) Threshold() float64 {
	return d.opts.Threshold
}

// ScanColumn profiles a single column. The sample is the order-
// preserving prefix of non-missing, non-placeholder values, so
// repeated scans are reproducible.
func (d *Detector) ScanColumn(col dataset.Column) ColumnProfile {
	profile := ColumnProfile{
		Column:   col.Name,
		Hits:     make(map[pii.Category]int),
		Ratios:   make(map[pii.Category]float64),
		Category: pii.CategoryOther,
		Hint:     columnNameHint(col.Name),
	}

	for _, cell := range col.Cells {
		if profile.Sampled >= d.opts.SampleSize {
			break
		}
		if cell.Missing || isPlaceholder(cell.Value) {
			continue
		}
		profile.Sampled++
		for _, cat := range pii.Categories() {
			entry, _ := pii.Lookup(cat)
			if entry.Validator != nil && entry.Validator(cell.Value) {
				profile.Hits[cat]++
			}
		}
	}

	if profile.Sampled == 0 {
		return profile
	}
	for cat, hits := range profile.Hits {
		profile.Ratios[cat] = float64(hits) / float64(profile.Sampled)
	}
	profile.Category = d.choose(profile)

	d.logger.Debug("column scanned",
		zap.String("column", col.Name),
		zap.Int("sampled", profile.Sampled),
		zap.String("category", string(profile.Category)),
	)
	return profile
}

// ScanDataset profiles every column.
func (d *Detector) ScanDataset(ds *dataset.Dataset) []ColumnProfile {
	profiles := make([]ColumnProfile, 0, len(ds.Columns))
	flagged := 0
	for _, col := range ds.Columns {
		p := d.ScanColumn(col)
		if p.Category != pii.CategoryOther {
			flagged++
		}
		profiles = append(profiles, p)
	}
	d.logger.Info("dataset scanned",
		zap.Int("columns", len(profiles)),
		zap.Int("flagged", flagged),
	)
	return profiles
}

// choose picks the highest-ratio category clearing the threshold,
// breaking exact ties by the fixed priority order. The column-name
// hint only decides between near-tied above-threshold candidates;
// content ratio dominates whenever it is unambiguous.
func (d *Detector) choose(profile ColumnProfile) pii.Category {
	best := pii.CategoryOther
	bestRatio := 0.0
	for _, cat := range pii.Categories() {
		ratio := profile.Ratios[cat]
		if ratio < d.opts.Threshold {
			continue
		}
		if ratio > bestRatio {
			best = cat
			bestRatio = ratio
		}
	}
	if best == pii.CategoryOther || profile.Hint == "" || profile.Hint == best {
		return best
	}
	hintRatio := profile.Ratios[profile.Hint]
	if hintRatio >= d.opts.Threshold && bestRatio-hintRatio <= d.opts.HintEpsilon {
		return profile.Hint
	}
	return best
}

// hintKeywords maps column-name substrings to a category. Hebrew and
// English headers are both supported.
var hintKeywords = map[pii.Category][]string{
	pii.CategoryIdentifier: {"id", "תז", "ת.ז", "זהות"},
	pii.CategoryEmail:      {"mail", "אימייל", "מייל", "דואר"},
	pii.CategoryPhone:      {"phone", "tel", "mobile", "טלפון", "נייד", "פלאפון"},
	pii.CategoryPersonName: {"name", "שם"},
	pii.CategoryAddress:    {"address", "street", "city", "כתובת", "רחוב", "עיר"},
	pii.CategoryAccount:    {"account", "iban", "bank", "חשבון", "בנק"},
}

// columnNameHint returns the single category whose keywords match the
// normalized column name, or empty when no category or more than one
// matches.
func columnNameHint(name string) pii.Category {
	normalized := strings.ToLower(strings.TrimSpace(name))
	if normalized == "" {
		return ""
	}
	hint := pii.Category("")
	for _, cat := range pii.Categories() {
		for _, keyword := range hintKeywords[cat] {
			if strings.Contains(normalized, keyword) {
				if hint != "" && hint != cat {
					return ""
				}
				hint = cat
				break
			}
		}
	}
	return hint
}

// placeholderMarkers are treated like missing values and excluded from
// the sample denominator.
var placeholderMarkers = map[string]bool{
	"na": true, "n/a": true, "nan": true, "null": true,
	"none": true, "-": true, "--": true,
}

func isPlaceholder(value string) bool {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return true
	}
	return placeholderMarkers[strings.ToLower(trimmed)]
}
