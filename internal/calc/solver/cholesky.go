// Package solver factors the symmetric positive definite stiffness matrix
// and reports mechanisms as degenerate degrees of freedom.
package solver

import (
	"fmt"
	"math"
)

// DefaultPivotTolerance is the fraction of a DOF's original diagonal below
// which its pivot counts as zero.
const DefaultPivotTolerance = 1e-8

// SingularError lists the equation numbers whose pivots collapsed. The
// structure is a mechanism or unsupported in those directions.
type SingularError struct {
	DOFs []int
}

func (e *SingularError) Error() string {
	return fmt.Sprintf("solver: stiffness matrix is singular at %d degree(s) of freedom %v", len(e.DOFs), e.DOFs)
}

// Cholesky holds the lower triangular factor L with K = L·Lᵀ.
type Cholesky struct {
	n          int
	l          []float64
	degenerate []int
}

// Factor decomposes the n×n row-major matrix a, which is left unchanged.
// A pivot is degenerate when it falls to tol times its original diagonal
// or below. Factoring continues past degenerate pivots so every one is
// reported; the returned factor is then usable for mechanism analysis but
// not for solving, and err is a *SingularError.
func Factor(n int, a []float64, tol float64) (*Cholesky, error) {
	if len(a) != n*n {
		return nil, fmt.Errorf("solver: matrix has %d entries, want %d", len(a), n*n)
	}
	if tol <= 0 {
		tol = DefaultPivotTolerance
	}
	c := &Cholesky{n: n, l: make([]float64, n*n)}
	l := c.l
	for j := 0; j < n; j++ {
		rj := l[j*n : j*n+j]
		d := a[j*n+j]
		for _, v := range rj {
			d -= v * v
		}
		orig := a[j*n+j]
		if orig <= 0 || d <= tol*orig || math.IsNaN(d) {
			c.degenerate = append(c.degenerate, j)
			continue
		}
		ljj := math.Sqrt(d)
		l[j*n+j] = ljj
		for i := j + 1; i < n; i++ {
			ri := l[i*n : i*n+j]
			v := a[i*n+j]
			for k, x := range ri {
				v -= x * rj[k]
			}
			l[i*n+j] = v / ljj
		}
	}
	if len(c.degenerate) > 0 {
		return c, &SingularError{DOFs: append([]int(nil), c.degenerate...)}
	}
	return c, nil
}

// N is the matrix order.
func (c *Cholesky) N() int { return c.n }

// Degenerate returns the collapsed pivots.
func (c *Cholesky) Degenerate() []int { return c.degenerate }

// Solve computes x with K·x = b. x and b may be the same slice.
func (c *Cholesky) Solve(b, x []float64) error {
	if len(c.degenerate) > 0 {
		return &SingularError{DOFs: append([]int(nil), c.degenerate...)}
	}
	n, l := c.n, c.l
	if len(b) != n || len(x) != n {
		return fmt.Errorf("solver: vector length %d/%d, want %d", len(b), len(x), n)
	}
	if n == 0 {
		return nil
	}
	if &x[0] != &b[0] {
		copy(x, b)
	}
	for i := 0; i < n; i++ {
		v := x[i]
		for k := 0; k < i; k++ {
			v -= l[i*n+k] * x[k]
		}
		x[i] = v / l[i*n+i]
	}
	for i := n - 1; i >= 0; i-- {
		v := x[i]
		for k := i + 1; k < n; k++ {
			v -= l[k*n+i] * x[k]
		}
		x[i] = v / l[i*n+i]
	}
	return nil
}

// Mode returns the mechanism shape belonging to degenerate pivot dof: the
// vector v with v[dof] = 1, zero at the other degenerate pivots, and K·v
// vanishing in the rows before dof. The result is scaled so its largest
// component has magnitude one.
func (c *Cholesky) Mode(dof int) []float64 {
	n, l := c.n, c.l
	v := make([]float64, n)
	v[dof] = 1
	skip := make([]bool, n)
	for _, d := range c.degenerate {
		skip[d] = true
	}
	// Row dof of L holds y with L·y = K[:dof, dof] over the pivots before
	// it, so the leading block gives Lᵀ·v = -y.
	for i := dof - 1; i >= 0; i-- {
		if skip[i] {
			continue
		}
		s := -l[dof*n+i]
		for k := i + 1; k < dof; k++ {
			s -= l[k*n+i] * v[k]
		}
		v[i] = s / l[i*n+i]
	}
	big := 0.0
	for _, x := range v {
		if math.Abs(x) > big {
			big = math.Abs(x)
		}
	}
	for i := range v {
		v[i] /= big
	}
	return v
}
