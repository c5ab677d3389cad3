// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package classify partitions an event's particle records into Higgs decay
// daughters, associated production particles, and incoming beams by walking
// ancestry chains.
// Implements: prd002-classification (R1-R5);
//
//	docs/ARCHITECTURE § Classification.
package classify

import (
	"fmt"

	"github.com/mvasilev/mescan/pkg/types"
)

// ResonanceID is the particle code whose decay products become daughters:
// the Higgs boson.
const ResonanceID = 25

// Species ranges accepted into the daughters and associated groups.
// Final-state records outside these ranges are dropped.
const (
	quarkMin  = 1
	quarkMax  = 6
	leptonMin = 11
	leptonMax = 16
	photonID  = 22
)

// OfInterest reports whether a species is classified at all: quarks,
// charged leptons and neutrinos, or the photon.
func OfInterest(id int) bool {
	if id < 0 {
		id = -id
	}
	return (id >= quarkMin && id <= quarkMax) ||
		(id >= leptonMin && id <= leptonMax) ||
		id == photonID
}

// CountError reports a mismatch between the declared particle count and the
// records supplied.
type CountError struct {
	Declared int
	Got      int
}

func (e *CountError) Error() string {
	return fmt.Sprintf("declared %d particles, got %d records", e.Declared, e.Got)
}

// LinkError reports a mother index pointing outside the event.
type LinkError struct {
	Index  int // 1-based record whose link is broken
	Mother int // offending mother index
}

func (e *LinkError) Error() string {
	return fmt.Sprintf("record %d: mother index %d outside event", e.Index, e.Mother)
}

// ChainCycleError reports an ancestry walk that failed to terminate within
// the event's record count: the mother links form a cycle.
type ChainCycleError struct {
	Index int // 1-based record whose walk cycled
}

func (e *ChainCycleError) Error() string {
	return fmt.Sprintf("record %d: ancestry chain does not terminate", e.Index)
}

// Classify partitions the records of one event. declared is the particle
// count from the event header and must match len(particles). The returned
// groups preserve input order; the input is never mutated, so concurrent
// calls on separate events need no coordination.
func Classify(particles []types.ParticleRecord, declared int) (types.ClassifiedEvent, error) {
	var out types.ClassifiedEvent
	if declared != len(particles) {
		return out, &CountError{Declared: declared, Got: len(particles)}
	}

	n := len(particles)
	// 1-based lookup tables; index 0 stays zeroed and is never a valid link.
	idOf := make([]int, n+1)
	mother1Of := make([]int, n+1)
	mother2Of := make([]int, n+1)
	for i, p := range particles {
		idOf[i+1] = p.ID
		mother1Of[i+1] = p.Mother1
		mother2Of[i+1] = p.Mother2
	}

	for i, p := range particles {
		switch {
		case p.Incoming():
			out.Mothers = append(out.Mothers, p)
		case p.FinalState() && OfInterest(p.ID):
			daughter, err := fromResonance(i+1, p.Mother1, p.Mother2, idOf, mother1Of, mother2Of)
			if err != nil {
				return types.ClassifiedEvent{}, err
			}
			if daughter {
				out.Daughters = append(out.Daughters, p)
			} else {
				out.Associated = append(out.Associated, p)
			}
		}
	}
	return out, nil
}

// ClassifyEvent partitions a decoded event, validating its record count
// against the header.
func ClassifyEvent(ev types.Event) (types.ClassifiedEvent, error) {
	return Classify(ev.Particles, ev.Header.NParticles)
}

// fromResonance walks the ancestry of record idx and reports whether it
// descends from the resonance. A shared single parent carrying the
// resonance id ends the walk true; a production vertex (distinct or absent
// parents) ends it false. The walk is capped at the record count, so cyclic
// links fail instead of spinning.
func fromResonance(idx, m1, m2 int, idOf, mother1Of, mother2Of []int) (bool, error) {
	limit := len(idOf) - 1
	for hop := 0; hop <= limit; hop++ {
		if m1 != m2 || m1 == 0 {
			return false, nil
		}
		if m1 < 0 || m1 > limit {
			return false, &LinkError{Index: idx, Mother: m1}
		}
		if idOf[m1] == ResonanceID {
			return true, nil
		}
		m1, m2 = mother1Of[m1], mother2Of[m1]
	}
	return false, &ChainCycleError{Index: idx}
}
