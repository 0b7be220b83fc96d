// Package dataset holds the in-memory tabular form exchanged between
// the file collaborators and the anonymization core: ordered named
// columns of text cells with an explicit missing-value sentinel.
package dataset

// Cell is a single scalar value. Comparisons, detection and mapping all
// operate on the canonical text form, so numeric identifiers keep their
// leading zeros.
type Cell struct {
	Value   string
	Missing bool
}

// Missing is the sentinel for an absent value.
var Missing = Cell{Missing: true}

// String returns the canonical text form of the cell; missing cells
// render empty.
func (c Cell) String() string {
	if c.Missing {
		return ""
	}
	return c.Value
}

// Column is an ordered sequence of cells under one name.
type Column struct {
	Name  string
	Cells []Cell
}

// Dataset is an ordered collection of columns of equal length.
type Dataset struct {
	Columns []Column
}

// FromRows builds a Dataset from a header and row-major string values.
// Short rows are padded with missing cells; empty strings become
// missing cells.
func FromRows(header []string, rows [][]string) *Dataset {
	ds := &Dataset{Columns: make([]Column, len(header))}
	for i, name := range header {
		ds.Columns[i] = Column{Name: name, Cells: make([]Cell, len(rows))}
	}
	for r, row := range rows {
		for i := range header {
			if i < len(row) && row[i] != "" {
				ds.Columns[i].Cells[r] = Cell{Value: row[i]}
			} else {
				ds.Columns[i].Cells[r] = Missing
			}
		}
	}
	return ds
}

// Clone returns a deep copy; mutating the copy never touches the
// original.
func (d *Dataset) Clone() *Dataset {
	out := &Dataset{Columns: make([]Column, len(d.Columns))}
	for i, col := range d.Columns {
		cells := make([]Cell, len(col.Cells))
		copy(cells, col.Cells)
		out.Columns[i] = Column{Name: col.Name, Cells: cells}
	}
	return out
}

// Column returns the named column, if present.
func (d *Dataset) Column(name string) (*Column, bool) {
	for i := range d.Columns {
		if d.Columns[i].Name == name {
			return &d.Columns[i], true
		}
	}
	return nil, false
}

// Names returns the column names in order.
func (d *Dataset) Names() []string {
	names := make([]string, len(d.Columns))
	for i, col := range d.Columns {
		names[i] = col.Name
	}
	return names
}

// Rows returns the row count.
func (d *Dataset) Rows() int {
	if len(d.Columns) == 0 {
		return 0
	}
	return len(d.Columns[0].Cells)
}

// Row materializes one row as text values, missing cells as empty
// strings.
func (d *Dataset) Row(r int) []string {
	row := make([]string, len(d.Columns))
	for i, col := range d.Columns {
		if r < len(col.Cells) {
			row[i] = col.Cells[r].String()
		}
	}
	return row
}
