// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package couplings holds the engine's coupling configuration: fixed-shape
// numeric arrays with a static registry of named slots.
// Implements: prd003-couplings (R1-R4);
//
//	docs/ARCHITECTURE § Couplings.
package couplings

import (
	"errors"
	"fmt"
	"sort"
)

// Array dimensions, matching the engine's coupling blocks.
const (
	NHiggs        = 2  // resonances the engine supports
	SizeHQQ       = 2
	SizeHGG       = 3
	SizeHVV       = 39
	SizeHVVLambda = 4
	SizeHVVCqsq   = 3
	SizeZQQ       = 2
	SizeZVV       = 2
	SizeGQQ       = 2
	SizeGGG       = 5
	SizeGVV       = 10
)

// q^2 channels for the Lambda form-factor blocks.
const (
	ChannelQ1Sq  = 0
	ChannelQ2Sq  = 1
	ChannelQ12Sq = 2
)

// Set is one complete coupling configuration. The zero value is the
// all-couplings-off state the engine starts from. Named slots (the
// registry) address the first resonance; the second resonance and the
// unnamed blocks are reached by direct field indexing.
type Set struct {
	// Spin-0 couplings to gluons, quarks and vector bosons.
	HGG   [NHiggs][SizeHGG]complex128
	HG4G4 [NHiggs][SizeHGG]complex128
	HQQ   [NHiggs][SizeHQQ]complex128
	HBB   [NHiggs][SizeHQQ]complex128
	HTT   [NHiggs][SizeHQQ]complex128
	HB4B4 [NHiggs][SizeHQQ]complex128
	HT4T4 [NHiggs][SizeHQQ]complex128
	HZZ   [NHiggs][SizeHVV]complex128
	HWW   [NHiggs][SizeHVV]complex128

	// q^2-dependent form-factor scales and switches, indexed
	// [resonance][channel][lambda index] and [resonance][channel].
	LambdaZ  [NHiggs][SizeHVVCqsq][SizeHVVLambda]float64
	LambdaW  [NHiggs][SizeHVVCqsq][SizeHVVLambda]float64
	CLambdaZ [NHiggs][SizeHVVCqsq]int
	CLambdaW [NHiggs][SizeHVVCqsq]int

	// Spin-1 and spin-2 resonance couplings.
	ZQQ [SizeZQQ]complex128
	ZVV [SizeZVV]complex128
	GQQ [SizeGQQ]complex128
	GGG [SizeGGG]complex128
	GVV [SizeGVV]complex128
}

// Block identifies which array of a Set a named slot addresses.
type Block string

const (
	BlockHGG      Block = "hgg"
	BlockHQQ      Block = "hqq"
	BlockHZZ      Block = "hzz"
	BlockHWW      Block = "hww"
	BlockLambdaZ  Block = "lambda_z"
	BlockLambdaW  Block = "lambda_w"
	BlockCLambdaZ Block = "clambda_z"
	BlockCLambdaW Block = "clambda_w"
	BlockZQQ      Block = "zqq"
	BlockZVV      Block = "zvv"
	BlockGQQ      Block = "gqq"
	BlockGGG      Block = "ggg"
	BlockGVV      Block = "gvv"
)

// Kind is the value domain of a slot.
type Kind int

const (
	KindComplex Kind = iota
	KindReal
	KindInt
)

func (k Kind) String() string {
	switch k {
	case KindComplex:
		return "complex"
	case KindReal:
		return "real"
	case KindInt:
		return "integer"
	default:
		return "unknown"
	}
}

// Slot locates a named coupling inside a Set: the block, the index within
// it, and for the Lambda blocks the q^2 channel.
type Slot struct {
	Block   Block
	Index   int
	Channel int
	Kind    Kind
}

// ErrUnknown marks a coupling name absent from the registry.
var ErrUnknown = errors.New("unknown coupling")

// Lookup returns the slot metadata for a registered coupling name.
func Lookup(name string) (Slot, bool) {
	s, ok := registry[name]
	return s, ok
}

// Names returns every registered coupling name, sorted.
func Names() []string {
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Get reads a named slot. Real- and integer-valued slots come back with a
// zero imaginary part.
func (s *Set) Get(name string) (complex128, error) {
	slot, ok := registry[name]
	if !ok {
		return 0, fmt.Errorf("%q: %w", name, ErrUnknown)
	}
	switch slot.Kind {
	case KindReal:
		return complex(*s.realSlot(slot), 0), nil
	case KindInt:
		return complex(float64(*s.intSlot(slot)), 0), nil
	default:
		return *s.complexSlot(slot), nil
	}
}

// Set writes a named slot. Real-valued slots reject a nonzero imaginary
// part; integer-valued slots additionally require an integral real part.
func (s *Set) Set(name string, v complex128) error {
	slot, ok := registry[name]
	if !ok {
		return fmt.Errorf("%q: %w", name, ErrUnknown)
	}
	switch slot.Kind {
	case KindReal:
		if imag(v) != 0 {
			return fmt.Errorf("%s is real-valued, got imaginary part %v", name, imag(v))
		}
		*s.realSlot(slot) = real(v)
	case KindInt:
		if imag(v) != 0 {
			return fmt.Errorf("%s is integer-valued, got imaginary part %v", name, imag(v))
		}
		if real(v) != float64(int(real(v))) {
			return fmt.Errorf("%s is integer-valued, got %v", name, real(v))
		}
		*s.intSlot(slot) = int(real(v))
	default:
		*s.complexSlot(slot) = v
	}
	return nil
}

func (s *Set) complexSlot(slot Slot) *complex128 {
	switch slot.Block {
	case BlockHGG:
		return &s.HGG[0][slot.Index]
	case BlockHQQ:
		return &s.HQQ[0][slot.Index]
	case BlockHZZ:
		return &s.HZZ[0][slot.Index]
	case BlockHWW:
		return &s.HWW[0][slot.Index]
	case BlockZQQ:
		return &s.ZQQ[slot.Index]
	case BlockZVV:
		return &s.ZVV[slot.Index]
	case BlockGQQ:
		return &s.GQQ[slot.Index]
	case BlockGGG:
		return &s.GGG[slot.Index]
	case BlockGVV:
		return &s.GVV[slot.Index]
	}
	return nil
}

func (s *Set) realSlot(slot Slot) *float64 {
	switch slot.Block {
	case BlockLambdaZ:
		return &s.LambdaZ[0][slot.Channel][slot.Index]
	case BlockLambdaW:
		return &s.LambdaW[0][slot.Channel][slot.Index]
	}
	return nil
}

func (s *Set) intSlot(slot Slot) *int {
	switch slot.Block {
	case BlockCLambdaZ:
		return &s.CLambdaZ[0][slot.Channel]
	case BlockCLambdaW:
		return &s.CLambdaW[0][slot.Channel]
	}
	return nil
}
