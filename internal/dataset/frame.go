package dataset

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

type ColumnType int

const (
	Numeric ColumnType = iota
	Categorical
)

// Column is a single named column. Numeric columns mark missing values with
// NaN, categorical columns carry an explicit missing mask (nil when every
// value is present).
type Column struct {
	Name    string
	Type    ColumnType
	Floats  []float64
	Strings []string
	Missing []bool
}

func (c *Column) len() int {
	if c.Type == Numeric {
		return len(c.Floats)
	}
	return len(c.Strings)
}

func (c *Column) missingAt(i int) bool {
	if c.Type == Numeric {
		return math.IsNaN(c.Floats[i])
	}
	return c.Missing != nil && c.Missing[i]
}

// Frame is the tabular record set passed between pipeline stages. Columns are
// ordered; all operations that reference a column by name fail if it is
// absent.
type Frame struct {
	columns []*Column
}

func New() *Frame {
	return &Frame{}
}

func (f *Frame) NumRows() int {
	if len(f.columns) == 0 {
		return 0
	}
	return f.columns[0].len()
}

func (f *Frame) NumColumns() int {
	return len(f.columns)
}

func (f *Frame) Names() []string {
	names := make([]string, len(f.columns))
	for i, c := range f.columns {
		names[i] = c.Name
	}
	return names
}

func (f *Frame) HasColumn(name string) bool {
	for _, c := range f.columns {
		if c.Name == name {
			return true
		}
	}
	return false
}

func (f *Frame) Column(name string) (*Column, error) {
	for _, c := range f.columns {
		if c.Name == name {
			return c, nil
		}
	}
	return nil, fmt.Errorf("frame has no column %q", name)
}

func (f *Frame) checkLen(name string, n int) error {
	if len(f.columns) > 0 && n != f.NumRows() {
		return fmt.Errorf("column %q has %d rows, frame has %d", name, n, f.NumRows())
	}
	if f.HasColumn(name) {
		return fmt.Errorf("frame already has column %q", name)
	}
	return nil
}

func (f *Frame) AddNumeric(name string, values []float64) error {
	if err := f.checkLen(name, len(values)); err != nil {
		return err
	}
	f.columns = append(f.columns, &Column{Name: name, Type: Numeric, Floats: values})
	return nil
}

func (f *Frame) AddCategorical(name string, values []string, missing []bool) error {
	if err := f.checkLen(name, len(values)); err != nil {
		return err
	}
	f.columns = append(f.columns, &Column{Name: name, Type: Categorical, Strings: values, Missing: missing})
	return nil
}

func (f *Frame) DropColumns(names ...string) error {
	for _, name := range names {
		if !f.HasColumn(name) {
			return fmt.Errorf("cannot drop column %q: not present", name)
		}
		kept := f.columns[:0]
		for _, c := range f.columns {
			if c.Name != name {
				kept = append(kept, c)
			}
		}
		f.columns = f.columns[:len(kept)]
	}
	return nil
}

// DropMissingRows removes every row containing at least one missing value.
func (f *Frame) DropMissingRows() {
	n := f.NumRows()
	keep := make([]int, 0, n)
	for i := 0; i < n; i++ {
		missing := false
		for _, c := range f.columns {
			if c.missingAt(i) {
				missing = true
				break
			}
		}
		if !missing {
			keep = append(keep, i)
		}
	}
	f.retain(keep)
}

// DropDuplicateRows removes exact duplicate rows, keeping the first
// occurrence and preserving order.
func (f *Frame) DropDuplicateRows() {
	n := f.NumRows()
	seen := make(map[string]struct{}, n)
	keep := make([]int, 0, n)
	for i := 0; i < n; i++ {
		key := f.rowKey(i)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		keep = append(keep, i)
	}
	f.retain(keep)
}

func (f *Frame) rowKey(i int) string {
	var b strings.Builder
	for _, c := range f.columns {
		if c.Type == Numeric {
			b.WriteString(strconv.FormatFloat(c.Floats[i], 'g', -1, 64))
		} else if c.missingAt(i) {
			b.WriteString("\x00?")
		} else {
			b.WriteString(c.Strings[i])
		}
		b.WriteByte('\x1f')
	}
	return b.String()
}

func (f *Frame) retain(idx []int) {
	for _, c := range f.columns {
		if c.Type == Numeric {
			out := make([]float64, len(idx))
			for j, i := range idx {
				out[j] = c.Floats[i]
			}
			c.Floats = out
			continue
		}
		out := make([]string, len(idx))
		for j, i := range idx {
			out[j] = c.Strings[i]
		}
		c.Strings = out
		if c.Missing != nil {
			miss := make([]bool, len(idx))
			for j, i := range idx {
				miss[j] = c.Missing[i]
			}
			c.Missing = miss
		}
	}
}

// SelectRows returns a new frame containing the given rows in the given
// order.
func (f *Frame) SelectRows(idx []int) *Frame {
	out := New()
	for _, c := range f.columns {
		if c.Type == Numeric {
			vals := make([]float64, len(idx))
			for j, i := range idx {
				vals[j] = c.Floats[i]
			}
			out.AddNumeric(c.Name, vals) //nolint:errcheck
			continue
		}
		vals := make([]string, len(idx))
		for j, i := range idx {
			vals[j] = c.Strings[i]
		}
		var miss []bool
		if c.Missing != nil {
			miss = make([]bool, len(idx))
			for j, i := range idx {
				miss[j] = c.Missing[i]
			}
		}
		out.AddCategorical(c.Name, vals, miss) //nolint:errcheck
	}
	return out
}

// TrimStrings strips leading and trailing whitespace from every categorical
// cell.
func (f *Frame) TrimStrings() {
	for _, c := range f.columns {
		if c.Type != Categorical {
			continue
		}
		for i, v := range c.Strings {
			c.Strings[i] = strings.TrimSpace(v)
		}
	}
}

// Replace substitutes old with new in the named categorical column.
func (f *Frame) Replace(name, old, new string) error {
	c, err := f.Column(name)
	if err != nil {
		return err
	}
	if c.Type != Categorical {
		return fmt.Errorf("column %q is not categorical", name)
	}
	for i, v := range c.Strings {
		if v == old {
			c.Strings[i] = new
		}
	}
	return nil
}

// OneHot replaces the named categorical column with one indicator column per
// distinct value, named <col>_<value>. Indicator columns are appended at the
// end of the frame in sorted value order so the expansion is deterministic.
func (f *Frame) OneHot(name string) error {
	c, err := f.Column(name)
	if err != nil {
		return err
	}
	if c.Type != Categorical {
		return fmt.Errorf("column %q is not categorical", name)
	}

	distinct := make(map[string]struct{})
	for i, v := range c.Strings {
		if !c.missingAt(i) {
			distinct[v] = struct{}{}
		}
	}
	values := make([]string, 0, len(distinct))
	for v := range distinct {
		values = append(values, v)
	}
	sort.Strings(values)

	indicators := make([]*Column, len(values))
	for j, v := range values {
		hot := make([]float64, len(c.Strings))
		for i, s := range c.Strings {
			if s == v && !c.missingAt(i) {
				hot[i] = 1
			}
		}
		col := name + "_" + v
		if f.HasColumn(col) {
			return fmt.Errorf("one-hot column %q collides with existing column", col)
		}
		indicators[j] = &Column{Name: col, Type: Numeric, Floats: hot}
	}

	if err := f.DropColumns(name); err != nil {
		return err
	}
	f.columns = append(f.columns, indicators...)
	return nil
}

// Bin maps the named numeric column into integer buckets 1..len(edges)-1
// using right-closed intervals. The lowest edge is included in the first
// bucket; values outside [edges[0], edges[last]] are left unmapped (NaN).
func (f *Frame) Bin(name string, edges []float64, dst string) error {
	c, err := f.Column(name)
	if err != nil {
		return err
	}
	if c.Type != Numeric {
		return fmt.Errorf("column %q is not numeric", name)
	}
	if len(edges) < 2 {
		return fmt.Errorf("binning %q requires at least two edges", name)
	}

	bins := make([]float64, len(c.Floats))
	for i, v := range c.Floats {
		bins[i] = math.NaN()
		if math.IsNaN(v) {
			continue
		}
		if v == edges[0] {
			bins[i] = 1
			continue
		}
		for b := 0; b+1 < len(edges); b++ {
			if v > edges[b] && v <= edges[b+1] {
				bins[i] = float64(b + 1)
				break
			}
		}
	}
	return f.AddNumeric(dst, bins)
}

// DeriveBinary adds a numeric column set to 1 where the named categorical
// column equals match, else 0.
func (f *Frame) DeriveBinary(name, dst, match string) error {
	c, err := f.Column(name)
	if err != nil {
		return err
	}
	if c.Type != Categorical {
		return fmt.Errorf("column %q is not categorical", name)
	}
	out := make([]float64, len(c.Strings))
	for i, v := range c.Strings {
		if v == match && !c.missingAt(i) {
			out[i] = 1
		}
	}
	return f.AddNumeric(dst, out)
}

// Matrix returns the frame as a dense feature matrix along with the ordered
// feature names, skipping the excluded columns. Remaining categorical
// columns are a schema error: every feature must be numeric by the time the
// trainer sees the frame.
func (f *Frame) Matrix(exclude ...string) ([][]float64, []string, error) {
	skip := make(map[string]struct{}, len(exclude))
	for _, name := range exclude {
		skip[name] = struct{}{}
	}

	var cols []*Column
	var names []string
	for _, c := range f.columns {
		if _, ok := skip[c.Name]; ok {
			continue
		}
		if c.Type != Numeric {
			return nil, nil, fmt.Errorf("column %q is categorical, cannot build feature matrix", c.Name)
		}
		cols = append(cols, c)
		names = append(names, c.Name)
	}

	rows := make([][]float64, f.NumRows())
	for i := range rows {
		row := make([]float64, len(cols))
		for j, c := range cols {
			row[j] = c.Floats[i]
		}
		rows[i] = row
	}
	return rows, names, nil
}

// Clone returns a deep copy of the frame.
func (f *Frame) Clone() *Frame {
	out := New()
	for _, c := range f.columns {
		cp := &Column{Name: c.Name, Type: c.Type}
		if c.Type == Numeric {
			cp.Floats = append([]float64(nil), c.Floats...)
		} else {
			cp.Strings = append([]string(nil), c.Strings...)
			if c.Missing != nil {
				cp.Missing = append([]bool(nil), c.Missing...)
			}
		}
		out.columns = append(out.columns, cp)
	}
	return out
}
