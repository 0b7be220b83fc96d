package detect

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/safeshare/safeshare/internal/dataset"
	"github.com/safeshare/safeshare/internal/pii"
)

func newTestDetector(t *testing.T, opts Options) *Detector {
	t.Helper()
	d, err := New(opts, nil)
	if err != nil {
		t.Fatalf("failed to create detector: %v", err)
	}
	return d
}

func column(name string, values ...dataset.Cell) dataset.Column {
	return dataset.Column{Name: name, Cells: values}
}

func cell(v string) dataset.Cell {
	return dataset.Cell{Value: v}
}

func TestNewValidation(t *testing.T) {
	if _, err := New(Options{SampleSize: -1}, nil); err == nil {
		t.Error("negative sample size should be rejected")
	}
	if _, err := New(Options{Threshold: 1.5}, nil); err == nil {
		t.Error("threshold above 1 should be rejected")
	}
	if _, err := New(Options{Threshold: -0.2}, nil); err == nil {
		t.Error("negative threshold should be rejected")
	}

	d, err := New(Options{}, nil)
	if err != nil {
		t.Fatalf("zero options should fall back to defaults: %v", err)
	}
	if d.Threshold() != DefaultThreshold {
		t.Errorf("expected default threshold, got %g", d.Threshold())
	}
}

func TestScanColumn(t *testing.T) {
	d := newTestDetector(t, Options{})

	t.Run("EmailColumn", func(t *testing.T) {
		col := column("contact",
			cell("alice@example.com"),
			cell("bob@example.org"),
			cell("carol@test.co.il"),
		)
		profile := d.ScanColumn(col)
		if profile.Category != pii.CategoryEmail {
			t.Errorf("expected email, got %s", profile.Category)
		}
		if profile.Sampled != 3 {
			t.Errorf("expected 3 sampled, got %d", profile.Sampled)
		}
		if profile.Ratios[pii.CategoryEmail] != 1.0 {
			t.Errorf("expected ratio 1.0, got %g", profile.Ratios[pii.CategoryEmail])
		}
	})

	t.Run("EmptyColumn", func(t *testing.T) {
		profile := d.ScanColumn(column("empty"))
		if profile.Category != pii.CategoryOther {
			t.Errorf("expected other, got %s", profile.Category)
		}
		if profile.Sampled != 0 {
			t.Errorf("expected 0 sampled, got %d", profile.Sampled)
		}
	})

	t.Run("PlaceholdersExcludedFromDenominator", func(t *testing.T) {
		col := column("contact",
			dataset.Missing,
			cell("N/A"),
			cell(""),
			cell("alice@example.com"),
			dataset.Missing,
		)
		profile := d.ScanColumn(col)
		if profile.Sampled != 1 {
			t.Errorf("expected 1 sampled, got %d", profile.Sampled)
		}
		if profile.Category != pii.CategoryEmail {
			t.Errorf("expected email, got %s", profile.Category)
		}
	})

	t.Run("PlaceholderOnlyColumn", func(t *testing.T) {
		profile := d.ScanColumn(column("blank", cell("NA"), cell("-"), dataset.Missing))
		if profile.Sampled != 0 || profile.Category != pii.CategoryOther {
			t.Errorf("placeholder-only column should stay other, got %s (%d sampled)", profile.Category, profile.Sampled)
		}
	})

	t.Run("SampleSizeLimitsScan", func(t *testing.T) {
		d := newTestDetector(t, Options{SampleSize: 5})
		var cells []dataset.Cell
		for i := 0; i < 5; i++ {
			cells = append(cells, cell("alice@example.com"))
		}
		for i := 0; i < 100; i++ {
			cells = append(cells, cell(fmt.Sprintf("row %d", i)))
		}
		profile := d.ScanColumn(column("contact", cells...))
		if profile.Sampled != 5 {
			t.Errorf("expected 5 sampled, got %d", profile.Sampled)
		}
		if profile.Category != pii.CategoryEmail {
			t.Errorf("prefix sample should see only emails, got %s", profile.Category)
		}
	})
}

func TestThresholdBoundary(t *testing.T) {
	d := newTestDetector(t, Options{Threshold: 0.10})

	t.Run("ExactlyAtThresholdSelected", func(t *testing.T) {
		cells := []dataset.Cell{cell("alice@example.com")}
		for i := 0; i < 9; i++ {
			cells = append(cells, cell(fmt.Sprintf("widget %d", i)))
		}
		profile := d.ScanColumn(column("contact", cells...))
		if profile.Category != pii.CategoryEmail {
			t.Errorf("ratio equal to threshold should select: got %s", profile.Category)
		}
	})

	t.Run("JustBelowThresholdExcluded", func(t *testing.T) {
		cells := []dataset.Cell{cell("alice@example.com")}
		for i := 0; i < 10; i++ {
			cells = append(cells, cell(fmt.Sprintf("widget %d", i)))
		}
		profile := d.ScanColumn(column("contact", cells...))
		if profile.Category != pii.CategoryOther {
			t.Errorf("ratio below threshold should stay other: got %s", profile.Category)
		}
	})
}

func TestTieBreaking(t *testing.T) {
	d := newTestDetector(t, Options{})

	// 020000006 passes both the identity checksum and the landline
	// shape, so identifier and phone tie at ratio 1.0.
	ambiguous := []dataset.Cell{cell("020000006"), cell("020000006"), cell("020000006")}

	t.Run("PriorityOrderWithoutHint", func(t *testing.T) {
		profile := d.ScanColumn(column("data", ambiguous...))
		if profile.Category != pii.CategoryIdentifier {
			t.Errorf("priority order should pick identifier, got %s", profile.Category)
		}
	})

	t.Run("NameHintBreaksTie", func(t *testing.T) {
		profile := d.ScanColumn(column("טלפון", ambiguous...))
		if profile.Hint != pii.CategoryPhone {
			t.Fatalf("expected phone hint, got %q", profile.Hint)
		}
		if profile.Category != pii.CategoryPhone {
			t.Errorf("hint should break the tie toward phone, got %s", profile.Category)
		}
	})

	t.Run("ContentDominatesUnambiguousRatio", func(t *testing.T) {
		// All cells are emails; a phone-suggesting header must not win.
		profile := d.ScanColumn(column("phone_list",
			cell("a@example.com"), cell("b@example.com"), cell("c@example.com")))
		if profile.Category != pii.CategoryEmail {
			t.Errorf("content ratio should dominate the name hint, got %s", profile.Category)
		}
	})

	t.Run("AmbiguousHeaderGivesNoHint", func(t *testing.T) {
		profile := d.ScanColumn(column("phone_or_email", ambiguous...))
		if profile.Hint != "" {
			t.Errorf("header matching two categories should give no hint, got %q", profile.Hint)
		}
	})
}

func TestIdempotentRescan(t *testing.T) {
	d := newTestDetector(t, Options{})
	col := column("mixed",
		cell("alice@example.com"),
		cell("0501234567"),
		dataset.Missing,
		cell("123456782"),
		cell("hello"),
	)
	first := d.ScanColumn(col)
	second := d.ScanColumn(col)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("repeated scans should be identical:\n%+v\n%+v", first, second)
	}
}

func TestScanDataset(t *testing.T) {
	d := newTestDetector(t, Options{})
	ds := dataset.FromRows(
		[]string{"ID", "Email", "Notes"},
		[][]string{
			{"123456782", "alice@example.com", "first"},
			{"987654324", "bob@example.com", "second"},
		},
	)
	profiles := d.ScanDataset(ds)
	if len(profiles) != 3 {
		t.Fatalf("expected 3 profiles, got %d", len(profiles))
	}
	if profiles[0].Category != pii.CategoryIdentifier {
		t.Errorf("ID column: expected identifier, got %s", profiles[0].Category)
	}
	if profiles[1].Category != pii.CategoryEmail {
		t.Errorf("Email column: expected email, got %s", profiles[1].Category)
	}
	if profiles[2].Category != pii.CategoryOther {
		t.Errorf("Notes column: expected other, got %s", profiles[2].Category)
	}
}
