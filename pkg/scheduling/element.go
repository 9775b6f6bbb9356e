package scheduling

import "github.com/gitrdm/gosched/pkg/fd"

// ValueSpec is either one value shared by every row or one value per row.
type ValueSpec struct {
	scalar int
	perRow []int
}

// Scalar is a ValueSpec with the same value for every row.
func Scalar(v int) ValueSpec { return ValueSpec{scalar: v} }

// PerRow is a ValueSpec with one value per row.
func PerRow(vs ...int) ValueSpec { return ValueSpec{perRow: append([]int{}, vs...)} }

func (v ValueSpec) at(row int) int {
	if v.perRow != nil {
		return v.perRow[row]
	}
	return v.scalar
}

// ElementMatrix is a constant matrix indexed by expressions, extended by
// two virtual columns: LastType for "no successor" and AbsentType for
// "interval absent". It pairs with TypeOfNext:
//
//	next, _ := m.TypeOfNext(seq, iv, mat.LastType(), mat.AbsentType())
//	cost, _ := mat.At(fd.Const(typeOfIv), next)
type ElementMatrix struct {
	rows   int
	cols   int
	values []int // rows x (cols+2), row-major
}

// NewElementMatrix builds an ElementMatrix. last and absent give the
// values of the two virtual columns.
func NewElementMatrix(rows [][]int, last, absent ValueSpec) (*ElementMatrix, error) {
	const op = "NewElementMatrix"
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, valueErrorf(op, "matrix must be non-empty")
	}
	cols := len(rows[0])
	for i, r := range rows {
		if len(r) != cols {
			return nil, valueErrorf(op, "row %d has %d columns, want %d", i, len(r), cols)
		}
	}
	for _, spec := range []struct {
		what string
		v    ValueSpec
	}{{"last", last}, {"absent", absent}} {
		if spec.v.perRow != nil && len(spec.v.perRow) != len(rows) {
			return nil, valueErrorf(op, "%s values: got %d, want one per row (%d)", spec.what, len(spec.v.perRow), len(rows))
		}
	}
	total := cols + 2
	em := &ElementMatrix{rows: len(rows), cols: cols, values: make([]int, len(rows)*total)}
	for i, r := range rows {
		copy(em.values[i*total:], r)
		em.values[i*total+cols] = last.at(i)
		em.values[i*total+cols+1] = absent.at(i)
	}
	return em, nil
}

// Rows returns the number of rows.
func (em *ElementMatrix) Rows() int { return em.rows }

// Cols returns the number of real columns.
func (em *ElementMatrix) Cols() int { return em.cols }

// LastType is the column index used for "no next interval".
func (em *ElementMatrix) LastType() int { return em.cols }

// AbsentType is the column index used for "interval absent".
func (em *ElementMatrix) AbsentType() int { return em.cols + 1 }

// TotalCols counts the real columns plus the two virtual ones.
func (em *ElementMatrix) TotalCols() int { return em.cols + 2 }

// GetValue returns the entry at (row, col); col may name a virtual
// column.
func (em *ElementMatrix) GetValue(row, col int) (int, error) {
	if row < 0 || row >= em.rows || col < 0 || col >= em.TotalCols() {
		return 0, valueErrorf("ElementMatrix.GetValue", "index (%d, %d) outside %dx%d", row, col, em.rows, em.TotalCols())
	}
	return em.values[row*em.TotalCols()+col], nil
}

// At returns the entry selected by two expressions. Constant indices
// resolve to a constant without involving the solver.
func (em *ElementMatrix) At(row, col fd.Node) (fd.Node, error) {
	if row.IsConst() && col.IsConst() {
		v, err := em.GetValue(row.Value(), col.Value())
		if err != nil {
			return fd.Node{}, err
		}
		return fd.Const(v), nil
	}
	total := em.TotalCols()
	if (row.IsConst() && (row.Value() < 0 || row.Value() >= em.rows)) ||
		(col.IsConst() && (col.Value() < 0 || col.Value() >= total)) {
		return fd.Node{}, valueErrorf("ElementMatrix.At", "constant index outside %dx%d", em.rows, total)
	}
	grid := make([][]int, em.rows)
	for i := range grid {
		grid[i] = em.values[i*total : (i+1)*total]
	}
	return element2D(grid, row, col), nil
}

// element2D selects grid[row][col]. Nesting one Element per row keeps an
// out-of-range column from spilling into the next row.
func element2D(grid [][]int, row, col fd.Node) fd.Node {
	if row.IsConst() {
		return fd.Element(col, fd.ConstArray(grid[row.Value()])...)
	}
	if col.IsConst() {
		column := make([]int, len(grid))
		for i, r := range grid {
			column[i] = r[col.Value()]
		}
		return fd.Element(row, fd.ConstArray(column)...)
	}
	rows := make([]fd.Node, len(grid))
	for i, r := range grid {
		rows[i] = fd.Element(col, fd.ConstArray(r)...)
	}
	return fd.Element(row, rows...)
}

// ElementArray is a constant array indexed by an expression.
type ElementArray struct {
	values []int
}

// NewElementArray builds an ElementArray.
func NewElementArray(values []int) (*ElementArray, error) {
	if len(values) == 0 {
		return nil, valueErrorf("NewElementArray", "array must be non-empty")
	}
	return &ElementArray{values: append([]int(nil), values...)}, nil
}

// Len returns the array length.
func (a *ElementArray) Len() int { return len(a.values) }

// At returns the entry selected by idx.
func (a *ElementArray) At(idx fd.Node) (fd.Node, error) {
	if idx.IsConst() {
		i := idx.Value()
		if i < 0 || i >= len(a.values) {
			return fd.Node{}, valueErrorf("ElementArray.At", "index %d outside [0, %d)", i, len(a.values))
		}
		return fd.Const(a.values[i]), nil
	}
	return fd.Element(idx, fd.ConstArray(a.values)...), nil
}

// Element indexes a constant array with an expression.
func Element(values []int, idx fd.Node) (fd.Node, error) {
	a, err := NewElementArray(values)
	if err != nil {
		return fd.Node{}, err
	}
	return a.At(idx)
}

// Element2D indexes a constant rectangular matrix with two expressions.
func Element2D(matrix [][]int, row, col fd.Node) (fd.Node, error) {
	const op = "Element2D"
	if len(matrix) == 0 || len(matrix[0]) == 0 {
		return fd.Node{}, valueErrorf(op, "matrix must be non-empty")
	}
	cols := len(matrix[0])
	for i, r := range matrix {
		if len(r) != cols {
			return fd.Node{}, valueErrorf(op, "row %d has %d columns, want %d", i, len(r), cols)
		}
	}
	if row.IsConst() && col.IsConst() {
		r, c := row.Value(), col.Value()
		if r < 0 || r >= len(matrix) || c < 0 || c >= cols {
			return fd.Node{}, valueErrorf(op, "index (%d, %d) outside %dx%d", r, c, len(matrix), cols)
		}
		return fd.Const(matrix[r][c]), nil
	}
	if (row.IsConst() && (row.Value() < 0 || row.Value() >= len(matrix))) ||
		(col.IsConst() && (col.Value() < 0 || col.Value() >= cols)) {
		return fd.Node{}, valueErrorf(op, "constant index outside %dx%d", len(matrix), cols)
	}
	return element2D(matrix, row, col), nil
}
