// Package weights holds the model weight representation exchanged between
// facilities and aggregators.
//
// All arithmetic is done in float64. Conversion to float32 happens only at the
// trainer boundary.
package weights

import (
	"errors"
	"fmt"
	"slices"

	"github.com/fxamacker/cbor/v2"
	"gonum.org/v1/gonum/floats"
)

var (
	ErrShapeMismatch = errors.New("weight sets have different shapes")
	ErrEmpty         = errors.New("empty weight set")
	ErrInvalidLayer  = errors.New("layer data does not match its shape")
)

// Layer is one tensor of a model, stored flat in row-major order.
type Layer struct {
	Shape []int     `cbor:"1,keyasint" json:"shape"`
	Data  []float64 `cbor:"2,keyasint" json:"data"`
}

// Set is the ordered sequence of layers of a model.
type Set []Layer

func NewLayer(shape ...int) Layer {
	return Layer{
		Shape: slices.Clone(shape),
		Data:  make([]float64, size(shape)),
	}
}

func (l Layer) Size() int {
	return size(l.Shape)
}

func (l Layer) Clone() Layer {
	return Layer{
		Shape: slices.Clone(l.Shape),
		Data:  slices.Clone(l.Data),
	}
}

func (l Layer) Validate() error {
	if len(l.Data) != l.Size() {
		return fmt.Errorf("%w: shape %v holds %d values, got %d", ErrInvalidLayer, l.Shape, l.Size(), len(l.Data))
	}

	return nil
}

// ZerosLike returns a set with the shape of s and every value set to zero.
func ZerosLike(s Set) Set {
	out := make(Set, len(s))
	for i, l := range s {
		out[i] = NewLayer(l.Shape...)
	}

	return out
}

func (s Set) Clone() Set {
	out := make(Set, len(s))
	for i, l := range s {
		out[i] = l.Clone()
	}

	return out
}

func (s Set) Validate() error {
	if len(s) == 0 {
		return ErrEmpty
	}
	for i, l := range s {
		if err := l.Validate(); err != nil {
			return fmt.Errorf("layer %d: %w", i, err)
		}
	}

	return nil
}

// SameShape reports whether s and o have the same layer count and layer shapes.
func (s Set) SameShape(o Set) bool {
	if len(s) != len(o) {
		return false
	}
	for i := range s {
		if !slices.Equal(s[i].Shape, o[i].Shape) || len(s[i].Data) != len(o[i].Data) {
			return false
		}
	}

	return true
}

func (s Set) NumParams() int {
	n := 0
	for _, l := range s {
		n += len(l.Data)
	}

	return n
}

// AddInPlace adds o to s elementwise.
func (s Set) AddInPlace(o Set) error {
	if !s.SameShape(o) {
		return ErrShapeMismatch
	}
	for i := range s {
		floats.Add(s[i].Data, o[i].Data)
	}

	return nil
}

// AddScaledInPlace adds alpha*o to s elementwise.
func (s Set) AddScaledInPlace(alpha float64, o Set) error {
	if !s.SameShape(o) {
		return ErrShapeMismatch
	}
	for i := range s {
		floats.AddScaled(s[i].Data, alpha, o[i].Data)
	}

	return nil
}

// SubInPlace subtracts o from s elementwise.
func (s Set) SubInPlace(o Set) error {
	if !s.SameShape(o) {
		return ErrShapeMismatch
	}
	for i := range s {
		floats.Sub(s[i].Data, o[i].Data)
	}

	return nil
}

func (s Set) ScaleInPlace(c float64) {
	for i := range s {
		floats.Scale(c, s[i].Data)
	}
}

// Sum returns the elementwise sum of sets.
func Sum(sets ...Set) (Set, error) {
	if len(sets) == 0 {
		return nil, ErrEmpty
	}
	out := sets[0].Clone()
	for _, s := range sets[1:] {
		if err := out.AddInPlace(s); err != nil {
			return nil, err
		}
	}

	return out, nil
}

// EqualApprox reports whether s and o match elementwise within tol.
func (s Set) EqualApprox(o Set, tol float64) bool {
	if !s.SameShape(o) {
		return false
	}
	for i := range s {
		if !floats.EqualApprox(s[i].Data, o[i].Data, tol) {
			return false
		}
	}

	return true
}

// Float32 converts every layer to float32 for trainers that work in single precision.
func (s Set) Float32() [][]float32 {
	out := make([][]float32, len(s))
	for i, l := range s {
		out[i] = make([]float32, len(l.Data))
		for j, v := range l.Data {
			out[i][j] = float32(v)
		}
	}

	return out
}

// FromFloat32 builds a set from single precision layers using the shapes of like.
func FromFloat32(like Set, data [][]float32) (Set, error) {
	if len(like) != len(data) {
		return nil, ErrShapeMismatch
	}
	out := make(Set, len(data))
	for i, d := range data {
		if len(d) != like[i].Size() {
			return nil, ErrShapeMismatch
		}
		l := NewLayer(like[i].Shape...)
		for j, v := range d {
			l.Data[j] = float64(v)
		}
		out[i] = l
	}

	return out, nil
}

func Marshal(s Set) ([]byte, error) {
	return cbor.Marshal(s)
}

func Unmarshal(data []byte) (Set, error) {
	var s Set
	if err := cbor.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to decode weight set: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}

	return s, nil
}

func size(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}

	return n
}
