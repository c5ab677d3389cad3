package classify

import (
	"errors"
	"reflect"
	"testing"

	"github.com/mvasilev/mescan/pkg/types"
)

// rec builds a minimal extended-form record; momentum is irrelevant to
// classification.
func rec(id, status, m1, m2 int) types.ParticleRecord {
	return types.ParticleRecord{ID: id, Status: status, Mother1: m1, Mother2: m2, Extended: true}
}

// higgsPlusZ is the reference topology: two beams, a Higgs and a Z each
// decaying to a lepton pair, and a tau pair produced at the primary vertex.
func higgsPlusZ() []types.ParticleRecord {
	return []types.ParticleRecord{
		rec(2, -1, 0, 0),    // 1: beam
		rec(-2, -1, 0, 0),   // 2: beam
		rec(25, 2, 1, 2),    // 3: Higgs
		rec(23, 2, 1, 2),    // 4: Z
		rec(11, 1, 3, 3),    // 5: e- from Higgs
		rec(-11, 1, 3, 3),   // 6: e+ from Higgs
		rec(13, 1, 4, 4),    // 7: mu- from Z
		rec(-13, 1, 4, 4),   // 8: mu+ from Z
		rec(15, 1, 1, 2),    // 9: tau- from the primary vertex
		rec(-15, 1, 1, 2),   // 10: tau+ from the primary vertex
	}
}

func ids(group []types.ParticleRecord) []int {
	out := make([]int, len(group))
	for i, p := range group {
		out[i] = p.ID
	}
	return out
}

// --- OfInterest ---

func TestOfInterest(t *testing.T) {
	tests := []struct {
		id   int
		want bool
	}{
		{1, true}, {6, true}, {-4, true},
		{11, true}, {16, true}, {-13, true},
		{22, true}, {-22, true},
		{7, false}, {10, false}, {17, false},
		{21, false},   // gluon
		{23, false},   // Z
		{25, false},   // Higgs itself
		{2212, false}, // proton
		{0, false},
	}
	for _, tt := range tests {
		if got := OfInterest(tt.id); got != tt.want {
			t.Errorf("OfInterest(%d) = %v, want %v", tt.id, got, tt.want)
		}
	}
}

// --- Classify ---

func TestClassifyHiggsPlusZ(t *testing.T) {
	out, err := Classify(higgsPlusZ(), 10)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}

	if got, want := ids(out.Mothers), []int{2, -2}; !reflect.DeepEqual(got, want) {
		t.Errorf("mothers = %v, want %v", got, want)
	}
	if got, want := ids(out.Daughters), []int{11, -11}; !reflect.DeepEqual(got, want) {
		t.Errorf("daughters = %v, want %v", got, want)
	}
	if got, want := ids(out.Associated), []int{13, -13, 15, -15}; !reflect.DeepEqual(got, want) {
		t.Errorf("associated = %v, want %v", got, want)
	}
}

func TestClassifyResonanceIDDecides(t *testing.T) {
	// Flipping the Higgs record to a Z moves its leptons to associated.
	particles := higgsPlusZ()
	particles[2].ID = 23
	out, err := Classify(particles, 10)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if len(out.Daughters) != 0 {
		t.Errorf("daughters = %v, want none", ids(out.Daughters))
	}
	if len(out.Associated) != 6 {
		t.Errorf("associated = %v, want all six leptons", ids(out.Associated))
	}
}

func TestClassifyDeepChain(t *testing.T) {
	// Higgs -> Z -> leptons: the walk crosses the intermediate Z.
	particles := []types.ParticleRecord{
		rec(2, -1, 0, 0),
		rec(-2, -1, 0, 0),
		rec(25, 2, 1, 2),
		rec(23, 2, 3, 3),
		rec(13, 1, 4, 4),
		rec(-13, 1, 4, 4),
	}
	out, err := Classify(particles, 6)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if got, want := ids(out.Daughters), []int{13, -13}; !reflect.DeepEqual(got, want) {
		t.Errorf("daughters = %v, want %v", got, want)
	}
}

func TestClassifyChainEndsWithoutResonance(t *testing.T) {
	// Z -> leptons with the Z itself produced from a chain ending at the
	// beams: every lepton stays associated.
	particles := []types.ParticleRecord{
		rec(1, -1, 0, 0),
		rec(-1, -1, 0, 0),
		rec(23, 2, 1, 2),
		rec(11, 1, 3, 3),
		rec(-11, 1, 3, 3),
	}
	out, err := Classify(particles, 5)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if len(out.Daughters) != 0 {
		t.Errorf("daughters = %v, want none", ids(out.Daughters))
	}
	if got, want := ids(out.Associated), []int{11, -11}; !reflect.DeepEqual(got, want) {
		t.Errorf("associated = %v, want %v", got, want)
	}
}

func TestClassifySpeciesFilter(t *testing.T) {
	// Final-state gluon and proton never reach any group.
	particles := []types.ParticleRecord{
		rec(2, -1, 0, 0),
		rec(-2, -1, 0, 0),
		rec(25, 2, 1, 2),
		rec(21, 1, 3, 3),   // gluon, would be a daughter if it counted
		rec(2212, 1, 1, 2), // proton
		rec(22, 1, 3, 3),   // photon, does count
	}
	out, err := Classify(particles, 6)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if got, want := ids(out.Daughters), []int{22}; !reflect.DeepEqual(got, want) {
		t.Errorf("daughters = %v, want %v", got, want)
	}
	if len(out.Associated) != 0 {
		t.Errorf("associated = %v, want none", ids(out.Associated))
	}
	total := len(out.Daughters) + len(out.Associated) + len(out.Mothers)
	if total != 3 {
		t.Errorf("grouped records = %d, want 3 (two beams + photon)", total)
	}
}

func TestClassifyMomentumOnlyRecords(t *testing.T) {
	// 5-field records carry no status or ancestry: nothing is incoming,
	// nothing is final state, so every group stays empty.
	particles := []types.ParticleRecord{
		{ID: 11}, {ID: -11}, {ID: 13}, {ID: -13},
	}
	out, err := Classify(particles, 4)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if len(out.Daughters)+len(out.Associated)+len(out.Mothers) != 0 {
		t.Errorf("groups not empty: %d/%d/%d", len(out.Daughters), len(out.Associated), len(out.Mothers))
	}
}

func TestClassifyPartition(t *testing.T) {
	// Every of-interest final-state record lands in exactly one of
	// daughters/associated; every beam lands in mothers.
	particles := higgsPlusZ()
	out, err := Classify(particles, len(particles))
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}

	interest := 0
	beams := 0
	for _, p := range particles {
		if p.Incoming() {
			beams++
		}
		if p.FinalState() && OfInterest(p.ID) {
			interest++
		}
	}
	if got := len(out.Daughters) + len(out.Associated); got != interest {
		t.Errorf("daughters+associated = %d, want %d", got, interest)
	}
	if len(out.Mothers) != beams {
		t.Errorf("mothers = %d, want %d", len(out.Mothers), beams)
	}
}

func TestClassifyIdempotent(t *testing.T) {
	particles := higgsPlusZ()
	first, err := Classify(particles, 10)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	second, err := Classify(particles, 10)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("repeated classification differs")
	}
}

// --- errors ---

func TestClassifyCountMismatch(t *testing.T) {
	tests := []struct {
		name     string
		declared int
	}{
		{"declared high", 11},
		{"declared low", 9},
		{"declared zero", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Classify(higgsPlusZ(), tt.declared)
			var cerr *CountError
			if !errors.As(err, &cerr) {
				t.Fatalf("err = %v, want *CountError", err)
			}
			if cerr.Declared != tt.declared || cerr.Got != 10 {
				t.Errorf("CountError = %+v", cerr)
			}
		})
	}
}

func TestClassifyCyclicChain(t *testing.T) {
	particles := []types.ParticleRecord{
		rec(2, -1, 0, 0),
		rec(23, 2, 3, 3), // 2 and 3 point at each other
		rec(24, 2, 2, 2),
		rec(13, 1, 2, 2),
	}
	_, err := Classify(particles, 4)
	var cerr *ChainCycleError
	if !errors.As(err, &cerr) {
		t.Fatalf("err = %v, want *ChainCycleError", err)
	}
	if cerr.Index != 4 {
		t.Errorf("cycle reported for record %d, want 4", cerr.Index)
	}
}

func TestClassifySelfMother(t *testing.T) {
	particles := []types.ParticleRecord{
		rec(23, 2, 1, 1), // its own mother
		rec(13, 1, 1, 1),
	}
	_, err := Classify(particles, 2)
	var cerr *ChainCycleError
	if !errors.As(err, &cerr) {
		t.Fatalf("err = %v, want *ChainCycleError", err)
	}
}

func TestClassifyMotherOutsideEvent(t *testing.T) {
	particles := []types.ParticleRecord{
		rec(2, -1, 0, 0),
		rec(13, 1, 7, 7),
	}
	_, err := Classify(particles, 2)
	var lerr *LinkError
	if !errors.As(err, &lerr) {
		t.Fatalf("err = %v, want *LinkError", err)
	}
	if lerr.Index != 2 || lerr.Mother != 7 {
		t.Errorf("LinkError = %+v", lerr)
	}
}

// --- ClassifyEvent ---

func TestClassifyEvent(t *testing.T) {
	ev := types.Event{
		Header:    types.EventHeader{NParticles: 10},
		Particles: higgsPlusZ(),
	}
	out, err := ClassifyEvent(ev)
	if err != nil {
		t.Fatalf("ClassifyEvent: %v", err)
	}
	if len(out.Daughters) != 2 {
		t.Errorf("daughters = %v", ids(out.Daughters))
	}

	ev.Header.NParticles = 3
	if _, err := ClassifyEvent(ev); err == nil {
		t.Error("header mismatch not detected")
	}
}
