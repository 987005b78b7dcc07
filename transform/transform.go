// Package transform implements the linear transform chain the
// Pre-transform index variant prepends to an inner index (spec.md
// §4.8): "train trains each un-trained transform then the inner
// index; add applies the chain to the input before forwarding; search
// applies the chain to the query and delegates merging to the inner
// index."
//
// No pack repo implements PCA or linear projection; PCATrain follows
// the textbook power-iteration-with-deflation algorithm, written in
// the teacher's explicit-loop, no-reflection style rather than
// reaching for a numerical-linear-algebra dependency the pack does
// not carry.
package transform

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/ascendfaiss/vectorengine/verrors"
)

// Transform maps DimIn()-wide rows to DimOut()-wide rows after a
// one-time Train call.
type Transform interface {
	DimIn() int
	DimOut() int
	Trained() bool
	Train(x []float32, n int) error
	Apply(x []float32, n int) []float32
}

// LinearTransform is `out = (row - mean) * matrix^T`, matrix stored
// DimOut × DimIn row-major. Train fits mean and matrix via PCA; a
// LinearTransform can also be constructed with a pre-supplied matrix
// (e.g. a rotation) and marked trained directly via SetMatrix.
type LinearTransform struct {
	dimIn, dimOut int
	mean          []float32
	matrix        []float32
	trained       bool
}

// NewLinearTransform creates an untrained transform for the given
// input/output dimensions.
func NewLinearTransform(dimIn, dimOut int) *LinearTransform {
	return &LinearTransform{dimIn: dimIn, dimOut: dimOut}
}

func (t *LinearTransform) DimIn() int    { return t.dimIn }
func (t *LinearTransform) DimOut() int   { return t.dimOut }
func (t *LinearTransform) Trained() bool { return t.trained }

// SetMatrix installs an explicit mean/matrix pair and marks the
// transform trained, bypassing PCA fitting — used for a fixed
// (non-learned) linear transform such as a random rotation.
func (t *LinearTransform) SetMatrix(mean, matrix []float32) error {
	if len(mean) != t.dimIn {
		return verrors.New(verrors.InvalidArgument, "transform.LinearTransform.SetMatrix", "mean width mismatch")
	}
	if len(matrix) != t.dimOut*t.dimIn {
		return verrors.New(verrors.InvalidArgument, "transform.LinearTransform.SetMatrix", "matrix shape mismatch")
	}
	t.mean = mean
	t.matrix = matrix
	t.trained = true
	return nil
}

// Train fits mean and a DimOut×DimIn projection matrix via PCA: the
// top DimOut principal components (by variance) of x, computed with
// power iteration and deflation.
func (t *LinearTransform) Train(x []float32, n int) error {
	if t.dimOut > t.dimIn {
		return verrors.New(verrors.UnsupportedConfiguration, "transform.LinearTransform.Train",
			"PCA output dimension cannot exceed input dimension")
	}
	mean, matrix, err := PCATrain(x, n, t.dimIn, t.dimOut, 1234)
	if err != nil {
		return err
	}
	t.mean = mean
	t.matrix = matrix
	t.trained = true
	return nil
}

// Apply projects n rows of width DimIn into n rows of width DimOut.
func (t *LinearTransform) Apply(x []float32, n int) []float32 {
	out := make([]float32, n*t.dimOut)
	centered := make([]float32, t.dimIn)
	for i := 0; i < n; i++ {
		row := x[i*t.dimIn : (i+1)*t.dimIn]
		for d := 0; d < t.dimIn; d++ {
			centered[d] = row[d] - t.mean[d]
		}
		for j := 0; j < t.dimOut; j++ {
			var sum float32
			basis := t.matrix[j*t.dimIn : (j+1)*t.dimIn]
			for d := 0; d < t.dimIn; d++ {
				sum += centered[d] * basis[d]
			}
			out[i*t.dimOut+j] = sum
		}
	}
	return out
}

// PCATrain computes the mean of x (n rows of width dimIn) and the top
// dimOut principal components of its covariance, via power iteration
// with deflation. Returns (mean, matrix) where matrix is
// dimOut × dimIn row-major, rows orthonormal.
func PCATrain(x []float32, n, dimIn, dimOut int, seed int64) ([]float32, []float32, error) {
	if n < 2 {
		return nil, nil, verrors.New(verrors.InvalidArgument, "transform.PCATrain", "need at least 2 rows to fit PCA")
	}

	mean := make([]float32, dimIn)
	for i := 0; i < n; i++ {
		row := x[i*dimIn : (i+1)*dimIn]
		for d := 0; d < dimIn; d++ {
			mean[d] += row[d]
		}
	}
	inv := 1.0 / float32(n)
	for d := range mean {
		mean[d] *= inv
	}

	centered := make([]float32, n*dimIn)
	for i := 0; i < n; i++ {
		row := x[i*dimIn : (i+1)*dimIn]
		out := centered[i*dimIn : (i+1)*dimIn]
		for d := 0; d < dimIn; d++ {
			out[d] = row[d] - mean[d]
		}
	}

	rng := rand.New(rand.NewSource(seed))
	matrix := make([]float32, dimOut*dimIn)
	components := make([][]float32, 0, dimOut)

	for c := 0; c < dimOut; c++ {
		v := make([]float32, dimIn)
		for d := range v {
			v[d] = float32(rng.NormFloat64())
		}
		normalize(v)

		const iterations = 64
		for it := 0; it < iterations; it++ {
			w := covarianceApply(centered, n, dimIn, v)
			deflateAgainst(w, components)
			if normSq(w) < 1e-20 {
				break
			}
			normalize(w)
			v = w
		}
		components = append(components, v)
		copy(matrix[c*dimIn:(c+1)*dimIn], v)
	}

	return mean, matrix, nil
}

func covarianceApply(centered []float32, n, dim int, v []float32) []float32 {
	// (X^T X) v without materializing the dim×dim covariance matrix.
	proj := make([]float32, n)
	for i := 0; i < n; i++ {
		row := centered[i*dim : (i+1)*dim]
		var s float32
		for d := 0; d < dim; d++ {
			s += row[d] * v[d]
		}
		proj[i] = s
	}
	out := make([]float32, dim)
	for i := 0; i < n; i++ {
		row := centered[i*dim : (i+1)*dim]
		p := proj[i]
		for d := 0; d < dim; d++ {
			out[d] += row[d] * p
		}
	}
	return out
}

func deflateAgainst(v []float32, components [][]float32) {
	for _, c := range components {
		var dot float32
		for d := range v {
			dot += v[d] * c[d]
		}
		for d := range v {
			v[d] -= dot * c[d]
		}
	}
}

func normSq(v []float32) float32 {
	var s float32
	for _, x := range v {
		s += x * x
	}
	return s
}

func normalize(v []float32) {
	n := float32(math.Sqrt(float64(normSq(v))))
	if n == 0 {
		return
	}
	for i := range v {
		v[i] /= n
	}
}

// Chain is an ordered sequence of transforms applied front-to-back.
type Chain struct {
	stages []Transform
}

// NewChain wraps transforms in application order.
func NewChain(transforms ...Transform) *Chain {
	return &Chain{stages: transforms}
}

// Prepend inserts t at the front of the chain (pre_transform.prepend_transform, spec.md §6).
func (c *Chain) Prepend(t Transform) {
	c.stages = append([]Transform{t}, c.stages...)
}

// Stages returns the chain's transforms in application order.
func (c *Chain) Stages() []Transform { return c.stages }

// AllTrained reports whether every stage has been trained.
func (c *Chain) AllTrained() bool {
	for _, t := range c.stages {
		if !t.Trained() {
			return false
		}
	}
	return true
}

// Apply runs n rows through every stage in sequence.
func (c *Chain) Apply(x []float32, n int) []float32 {
	cur := x
	for _, t := range c.stages {
		cur = t.Apply(cur, n)
	}
	return cur
}

// TrainRemaining trains every not-yet-trained stage in order, each on
// the output of the previously trained stages applied to x, and
// returns the final stage's output — ready to hand to the wrapped
// index's own Train, per spec.md §4.8 ("train trains each un-trained
// transform then the inner index").
func (c *Chain) TrainRemaining(x []float32, n int) ([]float32, error) {
	cur := x
	for i, t := range c.stages {
		if !t.Trained() {
			if err := t.Train(cur, n); err != nil {
				return nil, fmt.Errorf("training transform stage %d: %w", i, err)
			}
		}
		cur = t.Apply(cur, n)
	}
	return cur, nil
}

// OutputDim is the dimension a vector has after passing through every
// stage, i.e. the dimension the wrapped index operates on.
func (c *Chain) OutputDim(dimIn int) int {
	d := dimIn
	for _, t := range c.stages {
		d = t.DimOut()
	}
	return d
}
