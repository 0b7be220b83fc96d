package anonymize

import (
	"errors"
	"strings"
	"testing"

	"github.com/safeshare/safeshare/internal/dataset"
	"github.com/safeshare/safeshare/internal/detect"
	"github.com/safeshare/safeshare/internal/pii"
)

func newTestAnonymizer(t *testing.T) *Anonymizer {
	t.Helper()
	detector, err := detect.New(detect.Options{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	return New(detector, nil)
}

func TestAnonymizeEndToEnd(t *testing.T) {
	a := newTestAnonymizer(t)
	ds := dataset.FromRows(
		[]string{"ID", "City"},
		[][]string{
			{"123456782", "Haifa"},
			{"987654324", "Eilat"},
			{"123456782", "Haifa"},
		},
	)

	out, store, err := a.Anonymize(ds, Assignment{"ID": pii.CategoryIdentifier})
	if err != nil {
		t.Fatal(err)
	}

	col, ok := out.Column("ID")
	if !ok {
		t.Fatal("ID column missing from output")
	}
	want := []string{"ID-001", "ID-002", "ID-001"}
	for i, w := range want {
		if col.Cells[i].Value != w {
			t.Errorf("row %d: expected %s, got %s", i, w, col.Cells[i].Value)
		}
	}
	if store.Len(pii.CategoryIdentifier) != 2 {
		t.Errorf("expected exactly 2 mapped identifiers, got %d", store.Len(pii.CategoryIdentifier))
	}

	t.Run("UnassignedColumnCopiedVerbatim", func(t *testing.T) {
		city, _ := out.Column("City")
		if city.Cells[0].Value != "Haifa" || city.Cells[1].Value != "Eilat" {
			t.Error("unassigned column should be copied verbatim")
		}
	})

	t.Run("InputNeverMutated", func(t *testing.T) {
		original, _ := ds.Column("ID")
		if original.Cells[0].Value != "123456782" {
			t.Error("input dataset was mutated")
		}
	})

	t.Run("ShapePreserved", func(t *testing.T) {
		if out.Rows() != ds.Rows() || len(out.Columns) != len(ds.Columns) {
			t.Error("output shape differs from input")
		}
		for i := range ds.Columns {
			if out.Columns[i].Name != ds.Columns[i].Name {
				t.Error("column order or names changed")
			}
		}
	})
}

func TestMissingValuesPassThrough(t *testing.T) {
	a := newTestAnonymizer(t)
	ds := &dataset.Dataset{Columns: []dataset.Column{{
		Name: "Email",
		Cells: []dataset.Cell{
			{Value: "alice@example.com"},
			dataset.Missing,
			{Value: "   "},
			{Value: "bob@example.com"},
		},
	}}}

	out, store, err := a.Anonymize(ds, Assignment{"Email": pii.CategoryEmail})
	if err != nil {
		t.Fatal(err)
	}

	col, _ := out.Column("Email")
	if !col.Cells[1].Missing {
		t.Error("missing cell should remain missing")
	}
	if col.Cells[2].Value != "   " {
		t.Error("blank cell should pass through unchanged")
	}
	if store.Len(pii.CategoryEmail) != 2 {
		t.Errorf("expected 2 mapped emails, got %d", store.Len(pii.CategoryEmail))
	}
	if !strings.HasSuffix(col.Cells[0].Value, pii.AnonymousEmailDomain) {
		t.Errorf("email pseudonym should carry the anonymous domain: %s", col.Cells[0].Value)
	}
}

func TestUnknownCategoryFailsWithColumnContext(t *testing.T) {
	a := newTestAnonymizer(t)
	ds := dataset.FromRows([]string{"SSN"}, [][]string{{"x"}})

	_, _, err := a.Anonymize(ds, Assignment{"SSN": pii.Category("ssn")})
	if err == nil {
		t.Fatal("expected error for unknown category")
	}
	if !errors.Is(err, pii.ErrUnknownCategory) {
		t.Errorf("error should wrap ErrUnknownCategory: %v", err)
	}
	if !strings.Contains(err.Error(), "SSN") {
		t.Errorf("error should name the column: %v", err)
	}
	if strings.Contains(err.Error(), "x\"") {
		t.Errorf("error must not echo cell values: %v", err)
	}
}

func TestValidateReportsResidualPii(t *testing.T) {
	a := newTestAnonymizer(t)
	ds := dataset.FromRows(
		[]string{"Primary", "Secondary"},
		[][]string{
			{"alice@example.com", "alice.backup@example.com"},
			{"bob@example.com", "bob.backup@example.com"},
		},
	)

	// Anonymize only one of the two email columns.
	out, _, err := a.Anonymize(ds, Assignment{"Primary": pii.CategoryEmail})
	if err != nil {
		t.Fatal(err)
	}

	warnings := a.Validate(out)
	if len(warnings) != 1 {
		t.Fatalf("expected exactly 1 warning, got %d: %+v", len(warnings), warnings)
	}
	if warnings[0].Column != "Secondary" || warnings[0].Category != pii.CategoryEmail {
		t.Errorf("unexpected warning: %+v", warnings[0])
	}
	if warnings[0].Ratio < 1.0 {
		t.Errorf("expected ratio 1.0, got %g", warnings[0].Ratio)
	}
}

func TestValidateIgnoresOwnPseudonyms(t *testing.T) {
	a := newTestAnonymizer(t)
	ds := dataset.FromRows(
		[]string{"Email"},
		[][]string{{"alice@example.com"}, {"bob@example.com"}},
	)

	out, _, err := a.Anonymize(ds, Assignment{"Email": pii.CategoryEmail})
	if err != nil {
		t.Fatal(err)
	}

	if warnings := a.Validate(out); len(warnings) != 0 {
		t.Errorf("decorated email pseudonyms must not trigger warnings: %+v", warnings)
	}
}
