// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package lhe decodes the one-line-per-particle event text format written
// by parton-level generators.
// Implements: prd001-ingest (R1-R4);
//
//	docs/ARCHITECTURE § Ingest.
package lhe

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go-hep.org/x/hep/fmom"

	"github.com/mvasilev/mescan/pkg/types"
)

// Field counts for the two accepted record forms.
const (
	fullFields  = 13 // id status mother1 mother2 color1 color2 px py pz e m lifetime spin
	shortFields = 5  // id px py pz e
)

// Event block delimiters. Optional, stripped before parsing.
const (
	openTag  = "<event>"
	closeTag = "</event>"
)

// FormatError reports malformed input with its 1-based line number.
type FormatError struct {
	Line int // 1-based input line, 0 when unknown
	Msg  string
}

func (e *FormatError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
	}
	return e.Msg
}

func formatErrf(line int, format string, args ...any) *FormatError {
	return &FormatError{Line: line, Msg: fmt.Sprintf(format, args...)}
}

// at stamps the input line onto a FormatError produced by a line-agnostic
// parse helper.
func at(err error, line int) error {
	var ferr *FormatError
	if errors.As(err, &ferr) && ferr.Line == 0 {
		ferr.Line = line
	}
	return err
}

// ParseRecord parses one particle line in either accepted form: the
// 13-field full form or the 5-field momentum-only form. Any other field
// count is malformed.
func ParseRecord(line string) (types.ParticleRecord, error) {
	fields := strings.Fields(line)
	switch len(fields) {
	case fullFields:
		return parseFull(fields)
	case shortFields:
		return parseShort(fields)
	default:
		return types.ParticleRecord{}, formatErrf(0,
			"particle line has %d fields, want %d or %d", len(fields), shortFields, fullFields)
	}
}

func parseFull(fields []string) (types.ParticleRecord, error) {
	var ints [6]int
	for i := range ints {
		v, err := strconv.Atoi(fields[i])
		if err != nil {
			return types.ParticleRecord{}, formatErrf(0, "field %d %q: not an integer", i+1, fields[i])
		}
		ints[i] = v
	}
	var floats [7]float64
	for i := range floats {
		v, err := strconv.ParseFloat(fields[6+i], 64)
		if err != nil {
			return types.ParticleRecord{}, formatErrf(0, "field %d %q: not a number", 7+i, fields[6+i])
		}
		floats[i] = v
	}
	return types.ParticleRecord{
		ID:       ints[0],
		Status:   ints[1],
		Mother1:  ints[2],
		Mother2:  ints[3],
		Color1:   ints[4],
		Color2:   ints[5],
		P:        fmom.NewPxPyPzE(floats[0], floats[1], floats[2], floats[3]),
		Mass:     floats[4],
		Lifetime: floats[5],
		Spin:     floats[6],
		Extended: true,
	}, nil
}

func parseShort(fields []string) (types.ParticleRecord, error) {
	id, err := strconv.Atoi(fields[0])
	if err != nil {
		return types.ParticleRecord{}, formatErrf(0, "field 1 %q: not an integer", fields[0])
	}
	var floats [4]float64
	for i := range floats {
		v, err := strconv.ParseFloat(fields[1+i], 64)
		if err != nil {
			return types.ParticleRecord{}, formatErrf(0, "field %d %q: not a number", 2+i, fields[1+i])
		}
		floats[i] = v
	}
	return types.ParticleRecord{
		ID: id,
		P:  fmom.NewPxPyPzE(floats[0], floats[1], floats[2], floats[3]),
	}, nil
}

// ParseHeader parses an event header line. The first token is the declared
// particle count; the remaining generator metadata fills the standard
// six-field layout when it matches and is carried verbatim in Extra
// otherwise.
func ParseHeader(line string) (types.EventHeader, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return types.EventHeader{}, formatErrf(0, "empty event header")
	}
	n, err := strconv.Atoi(fields[0])
	if err != nil || n < 0 {
		return types.EventHeader{}, formatErrf(0, "header particle count %q: not a non-negative integer", fields[0])
	}
	h := types.EventHeader{NParticles: n}
	rest := fields[1:]
	if len(rest) == 5 && parseStdHeader(rest, &h) {
		return h, nil
	}
	if len(rest) > 0 {
		h.Extra = rest
	}
	return h, nil
}

// parseStdHeader fills the IDPRUP/XWGTUP/SCALUP/AQEDUP/AQCDUP fields; it
// reports false when any token does not parse, leaving h untouched for the
// verbatim fallback.
func parseStdHeader(fields []string, h *types.EventHeader) bool {
	pid, err := strconv.Atoi(fields[0])
	if err != nil {
		return false
	}
	var vals [4]float64
	for i := range vals {
		v, err := strconv.ParseFloat(fields[1+i], 64)
		if err != nil {
			return false
		}
		vals[i] = v
	}
	h.ProcessID = pid
	h.Weight = vals[0]
	h.Scale = vals[1]
	h.AlphaQED = vals[2]
	h.AlphaQCD = vals[3]
	return true
}

// Decoder reads event blocks from a stream. Blank lines, '#' comment lines
// and the <event>/</event> delimiters are skipped wherever they appear.
type Decoder struct {
	sc   *bufio.Scanner
	line int // 1-based number of the last raw line read
}

// NewDecoder returns a Decoder over r.
func NewDecoder(r io.Reader) *Decoder {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &Decoder{sc: sc}
}

// next returns the next meaningful line.
func (d *Decoder) next() (string, bool, error) {
	for d.sc.Scan() {
		d.line++
		text := strings.TrimSpace(d.sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		if text == openTag || text == closeTag {
			continue
		}
		return text, true, nil
	}
	return "", false, d.sc.Err()
}

// Next decodes the next event block: a header line followed by exactly the
// declared number of particle lines. It returns io.EOF once the stream is
// exhausted.
func (d *Decoder) Next() (types.Event, error) {
	var ev types.Event

	text, ok, err := d.next()
	if err != nil {
		return ev, fmt.Errorf("reading event: %w", err)
	}
	if !ok {
		return ev, io.EOF
	}

	header, err := ParseHeader(text)
	if err != nil {
		return ev, at(err, d.line)
	}
	ev.Header = header
	ev.Line = d.line

	ev.Particles = make([]types.ParticleRecord, 0, header.NParticles)
	for i := 0; i < header.NParticles; i++ {
		text, ok, err = d.next()
		if err != nil {
			return ev, fmt.Errorf("reading event: %w", err)
		}
		if !ok {
			return ev, formatErrf(d.line,
				"event at line %d declares %d particles, input ends after %d", ev.Line, header.NParticles, i)
		}
		rec, err := ParseRecord(text)
		if err != nil {
			return ev, at(err, d.line)
		}
		ev.Particles = append(ev.Particles, rec)
	}
	return ev, nil
}

// ReadAll decodes every event block in the stream.
func ReadAll(r io.Reader) ([]types.Event, error) {
	d := NewDecoder(r)
	var events []types.Event
	for {
		ev, err := d.Next()
		if err == io.EOF {
			return events, nil
		}
		if err != nil {
			return events, err
		}
		events = append(events, ev)
	}
}
