// SPDX-License-Identifier: MIT
package filter

import (
	"errors"
	"fmt"
	"math"
	"sync/atomic"
)

// ErrOutOfRange is returned when a parameter write falls outside its bounds
// or an integer parameter receives a fractional value.
var ErrOutOfRange = errors.New("filter: parameter out of range")

// Parameter bounds.
const (
	StepMin      = 1
	StepMax      = 32
	XorValueMin  = 0
	XorValueMax  = 0xFFFF
	AmplitudeMin = 0
	AmplitudeMax = 2000
	FormantMin   = -12.0
	FormantMax   = 12.0
	WarpMin      = 0.0
	WarpMax      = 1.0
	IntensityMin = 0.0
	IntensityMax = 1.0
	HoleWidthMin = 1
	HoleWidthMax = 128
	DepthMin     = 0.0
	DepthMax     = 1.0
)

// Kind distinguishes integer from real-valued parameters.
type Kind int

const (
	KindInt Kind = iota
	KindFloat
)

func (k Kind) String() string {
	if k == KindInt {
		return "int"
	}
	return "float"
}

// Param describes one tunable value of a filter. Value and Set go through
// the filter's atomic storage.
type Param struct {
	Name string
	Kind Kind
	Min  float64
	Max  float64

	get func() float64
	set func(float64) error
}

// Value returns the current value.
func (p Param) Value() float64 { return p.get() }

// Set validates and stores v.
func (p Param) Set(v float64) error { return p.set(v) }

// Check reports whether Set would accept v, without storing it.
func (p Param) Check(v float64) error {
	return checkValue(p.Name, p.Kind, p.Min, p.Max, v)
}

// atomicFloat stores a float64 as its IEEE-754 bits.
type atomicFloat struct {
	bits atomic.Uint64
}

func newAtomicFloat(v float64) *atomicFloat {
	f := &atomicFloat{}
	f.Store(v)
	return f
}

func (f *atomicFloat) Load() float64 { return math.Float64frombits(f.bits.Load()) }

func (f *atomicFloat) Store(v float64) { f.bits.Store(math.Float64bits(v)) }

func checkFloat(filter, param string, v, lo, hi float64) error {
	if math.IsNaN(v) || v < lo || v > hi {
		return fmt.Errorf("%w: %s.%s=%g not in [%g, %g]", ErrOutOfRange, filter, param, v, lo, hi)
	}
	return nil
}

func checkInt(filter, param string, v, lo, hi int) error {
	if v < lo || v > hi {
		return fmt.Errorf("%w: %s.%s=%d not in [%d, %d]", ErrOutOfRange, filter, param, v, lo, hi)
	}
	return nil
}

func checkValue(name string, kind Kind, lo, hi, v float64) error {
	if kind == KindInt && (v != math.Trunc(v) || math.IsInf(v, 0)) {
		return fmt.Errorf("%w: %s=%g is not an integer", ErrOutOfRange, name, v)
	}
	if math.IsNaN(v) || v < lo || v > hi {
		return fmt.Errorf("%w: %s=%g not in [%g, %g]", ErrOutOfRange, name, v, lo, hi)
	}
	return nil
}

func intParam(name string, lo, hi int, get func() int, set func(int) error) Param {
	return Param{
		Name: name,
		Kind: KindInt,
		Min:  float64(lo),
		Max:  float64(hi),
		get:  func() float64 { return float64(get()) },
		set: func(v float64) error {
			if err := checkValue(name, KindInt, float64(lo), float64(hi), v); err != nil {
				return err
			}
			return set(int(v))
		},
	}
}

func floatParam(name string, lo, hi float64, get func() float64, set func(float64) error) Param {
	return Param{
		Name: name,
		Kind: KindFloat,
		Min:  lo,
		Max:  hi,
		get:  get,
		set:  set,
	}
}
