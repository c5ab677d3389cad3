// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package engine

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/mvasilev/mescan/internal/couplings"
	"github.com/mvasilev/mescan/pkg/types"
)

const (
	defaultStartupTimeout = 30 * time.Second

	// stderrTail bounds how much worker stderr is kept for error reports.
	stderrTail = 2048

	// maxResponseLine bounds a single worker response.
	maxResponseLine = 1 << 20
)

// executor abstracts worker process startup for testing.
type executor interface {
	Start(name string, args []string, stderr io.Writer) (conn, error)
}

// conn is a started worker: one JSON request line in, one response line
// out, then shutdown.
type conn interface {
	Send(line []byte) error
	Recv() ([]byte, error)
	Close() error
}

// osExecutor is the production executor backed by os/exec.
type osExecutor struct{}

func (o *osExecutor) Start(name string, args []string, stderr io.Writer) (conn, error) {
	cmd := exec.Command(name, args...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return nil, err
	}

	sc := bufio.NewScanner(stdout)
	sc.Buffer(make([]byte, 64*1024), maxResponseLine)
	return &osConn{cmd: cmd, in: stdin, out: sc}, nil
}

type osConn struct {
	cmd *exec.Cmd
	in  io.WriteCloser
	out *bufio.Scanner
}

func (c *osConn) Send(line []byte) error {
	_, err := c.in.Write(append(line, '\n'))
	return err
}

func (c *osConn) Recv() ([]byte, error) {
	if !c.out.Scan() {
		if err := c.out.Err(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	}
	return c.out.Bytes(), nil
}

// Close signals the worker by closing its stdin and waits for it to
// exit. Workers are required to exit on stdin EOF.
func (c *osConn) Close() error {
	c.in.Close()
	return c.cmd.Wait()
}

var defaultExec executor = &osExecutor{}

// tailBuffer keeps the trailing bytes of the worker's stderr.
type tailBuffer struct {
	mu  sync.Mutex
	buf []byte
	max int
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	if len(b.buf) > b.max {
		b.buf = b.buf[len(b.buf)-b.max:]
	}
	return len(p), nil
}

func (b *tailBuffer) Tail() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.TrimSpace(string(b.buf))
}

// --- wire protocol ---

// wireRequest is one request line. Op is always set; the other fields
// carry the payload of the op that uses them.
type wireRequest struct {
	Op        string         `json:"op"`
	Process   *ProcessConfig `json:"process,omitempty"`
	Name      string         `json:"name,omitempty"`
	Value     *[2]float64    `json:"value,omitempty"`
	Couplings *wireCouplings `json:"couplings,omitempty"`
	Event     *wireEvent     `json:"event,omitempty"`
	Compute   *Request       `json:"compute,omitempty"`
}

// wireResponse is one response line from the worker.
type wireResponse struct {
	OK     bool     `json:"ok"`
	Value  *float64 `json:"value,omitempty"`
	Angles *Angles  `json:"angles,omitempty"`
	Error  string   `json:"error,omitempty"`
}

// WorkerError is a failure the worker itself reported. The connection
// stays usable after one; transport failures do not produce WorkerError.
type WorkerError struct {
	Op  string
	Msg string
}

func (e *WorkerError) Error() string {
	return e.Op + ": worker: " + e.Msg
}

// wireParticle is one particle as the worker sees it: species and
// four-momentum, px py pz e.
type wireParticle struct {
	ID int        `json:"id"`
	P  [4]float64 `json:"p"`
}

// wireEvent carries the classified groups plus the truth-level flag.
type wireEvent struct {
	Daughters  []wireParticle `json:"daughters"`
	Associated []wireParticle `json:"associated,omitempty"`
	Mothers    []wireParticle `json:"mothers,omitempty"`
	GenLevel   bool           `json:"gen_level"`
}

// wireCouplings mirrors the coupling arrays with complex values split
// into [re, im] pairs. Shapes follow the couplings package.
type wireCouplings struct {
	HGG   [][][2]float64 `json:"hgg"`
	HG4G4 [][][2]float64 `json:"hg4g4"`
	HQQ   [][][2]float64 `json:"hqq"`
	HBB   [][][2]float64 `json:"hbb"`
	HTT   [][][2]float64 `json:"htt"`
	HB4B4 [][][2]float64 `json:"hb4b4"`
	HT4T4 [][][2]float64 `json:"ht4t4"`
	HZZ   [][][2]float64 `json:"hzz"`
	HWW   [][][2]float64 `json:"hww"`

	LambdaZ  [][][]float64 `json:"lambda_z"`
	LambdaW  [][][]float64 `json:"lambda_w"`
	CLambdaZ [][]int       `json:"clambda_z"`
	CLambdaW [][]int       `json:"clambda_w"`

	ZQQ [][2]float64 `json:"zqq"`
	ZVV [][2]float64 `json:"zvv"`
	GQQ [][2]float64 `json:"gqq"`
	GGG [][2]float64 `json:"ggg"`
	GVV [][2]float64 `json:"gvv"`
}

func pairs(src []complex128) [][2]float64 {
	out := make([][2]float64, len(src))
	for i, c := range src {
		out[i] = [2]float64{real(c), imag(c)}
	}
	return out
}

// resPairs builds one [re, im] pair block per resonance.
func resPairs(row func(h int) []complex128) [][][2]float64 {
	out := make([][][2]float64, couplings.NHiggs)
	for h := range out {
		out[h] = pairs(row(h))
	}
	return out
}

func encodeSet(s *couplings.Set) wireCouplings {
	w := wireCouplings{
		HGG:   resPairs(func(h int) []complex128 { return s.HGG[h][:] }),
		HG4G4: resPairs(func(h int) []complex128 { return s.HG4G4[h][:] }),
		HQQ:   resPairs(func(h int) []complex128 { return s.HQQ[h][:] }),
		HBB:   resPairs(func(h int) []complex128 { return s.HBB[h][:] }),
		HTT:   resPairs(func(h int) []complex128 { return s.HTT[h][:] }),
		HB4B4: resPairs(func(h int) []complex128 { return s.HB4B4[h][:] }),
		HT4T4: resPairs(func(h int) []complex128 { return s.HT4T4[h][:] }),
		HZZ:   resPairs(func(h int) []complex128 { return s.HZZ[h][:] }),
		HWW:   resPairs(func(h int) []complex128 { return s.HWW[h][:] }),
		ZQQ:   pairs(s.ZQQ[:]),
		ZVV:   pairs(s.ZVV[:]),
		GQQ:   pairs(s.GQQ[:]),
		GGG:   pairs(s.GGG[:]),
		GVV:   pairs(s.GVV[:]),
	}

	w.LambdaZ = make([][][]float64, couplings.NHiggs)
	w.LambdaW = make([][][]float64, couplings.NHiggs)
	w.CLambdaZ = make([][]int, couplings.NHiggs)
	w.CLambdaW = make([][]int, couplings.NHiggs)
	for h := 0; h < couplings.NHiggs; h++ {
		w.LambdaZ[h] = make([][]float64, couplings.SizeHVVCqsq)
		w.LambdaW[h] = make([][]float64, couplings.SizeHVVCqsq)
		for ch := 0; ch < couplings.SizeHVVCqsq; ch++ {
			w.LambdaZ[h][ch] = append([]float64(nil), s.LambdaZ[h][ch][:]...)
			w.LambdaW[h][ch] = append([]float64(nil), s.LambdaW[h][ch][:]...)
		}
		w.CLambdaZ[h] = append([]int(nil), s.CLambdaZ[h][:]...)
		w.CLambdaW[h] = append([]int(nil), s.CLambdaW[h][:]...)
	}
	return w
}

func encodeParticles(recs []types.ParticleRecord) []wireParticle {
	out := make([]wireParticle, len(recs))
	for i, rec := range recs {
		out[i] = wireParticle{
			ID: rec.ID,
			P:  [4]float64{rec.P.Px(), rec.P.Py(), rec.P.Pz(), rec.P.E()},
		}
	}
	return out
}

func encodeEvent(ev types.ClassifiedEvent, genLevel bool) wireEvent {
	return wireEvent{
		Daughters:  encodeParticles(ev.Daughters),
		Associated: encodeParticles(ev.Associated),
		Mothers:    encodeParticles(ev.Mothers),
		GenLevel:   genLevel,
	}
}

// --- remote engine ---

// Remote drives a worker subprocess over newline-delimited JSON. One
// request line yields exactly one response line. Remote is single-caller;
// concurrent scans use one Remote per worker goroutine.
type Remote struct {
	conn   conn
	stderr *tailBuffer
}

// NewRemote launches the configured worker command and waits for it to
// answer a ping.
func NewRemote(cfg types.EngineConfig) (*Remote, error) {
	return newRemote(cfg, defaultExec)
}

func newRemote(cfg types.EngineConfig, ex executor) (*Remote, error) {
	if cfg.WorkerCmd == "" {
		return nil, fmt.Errorf("engine worker command not configured")
	}

	stderr := &tailBuffer{max: stderrTail}
	c, err := ex.Start(cfg.WorkerCmd, cfg.WorkerArgs, stderr)
	if err != nil {
		return nil, fmt.Errorf("starting engine worker %s: %w", cfg.WorkerCmd, err)
	}
	r := &Remote{conn: c, stderr: stderr}

	timeout := cfg.StartupTimeout
	if timeout <= 0 {
		timeout = defaultStartupTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if _, err := r.roundTrip(ctx, "ping", wireRequest{Op: "ping"}); err != nil {
		r.Close()
		return nil, fmt.Errorf("engine worker %s not ready: %w", cfg.WorkerCmd, err)
	}
	return r, nil
}

// SetProcess implements Engine.
func (r *Remote) SetProcess(ctx context.Context, cfg ProcessConfig) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("set_process: %w", err)
	}
	_, err := r.roundTrip(ctx, "set_process", wireRequest{Op: "set_process", Process: &cfg})
	return err
}

// SetCoupling implements Engine. The name is validated against the
// coupling registry before it is sent.
func (r *Remote) SetCoupling(ctx context.Context, name string, value complex128) error {
	if _, ok := couplings.Lookup(name); !ok {
		return fmt.Errorf("set_coupling: %q: %w", name, couplings.ErrUnknown)
	}
	v := [2]float64{real(value), imag(value)}
	_, err := r.roundTrip(ctx, "set_coupling", wireRequest{Op: "set_coupling", Name: name, Value: &v})
	return err
}

// ApplyCouplings implements Engine.
func (r *Remote) ApplyCouplings(ctx context.Context, set *couplings.Set) error {
	w := encodeSet(set)
	_, err := r.roundTrip(ctx, "apply_couplings", wireRequest{Op: "apply_couplings", Couplings: &w})
	return err
}

// SetEvent implements Engine. Events without daughters cannot be
// computed on and are rejected here rather than inside the worker.
func (r *Remote) SetEvent(ctx context.Context, ev types.ClassifiedEvent, genLevel bool) error {
	if len(ev.Daughters) == 0 {
		return fmt.Errorf("set_event: classified event has no daughters")
	}
	w := encodeEvent(ev, genLevel)
	_, err := r.roundTrip(ctx, "set_event", wireRequest{Op: "set_event", Event: &w})
	return err
}

// Compute implements Engine.
func (r *Remote) Compute(ctx context.Context, req Request) (float64, error) {
	if err := req.Validate(); err != nil {
		return 0, fmt.Errorf("compute: %w", err)
	}
	resp, err := r.roundTrip(ctx, "compute", wireRequest{Op: "compute", Compute: &req})
	if err != nil {
		return 0, err
	}
	if resp.Value == nil {
		return 0, fmt.Errorf("compute: worker returned no value")
	}
	return *resp.Value, nil
}

// DecayAngles implements Engine.
func (r *Remote) DecayAngles(ctx context.Context) (Angles, error) {
	resp, err := r.roundTrip(ctx, "decay_angles", wireRequest{Op: "decay_angles"})
	if err != nil {
		return Angles{}, err
	}
	if resp.Angles == nil {
		return Angles{}, fmt.Errorf("decay_angles: worker returned no angles")
	}
	return *resp.Angles, nil
}

// Close implements Engine.
func (r *Remote) Close() error {
	if r.conn == nil {
		return nil
	}
	err := r.conn.Close()
	r.conn = nil
	return err
}

// roundTrip sends one request and reads one response. A context
// cancellation mid-read tears the connection down; the worker cannot be
// resynchronized after an abandoned response.
func (r *Remote) roundTrip(ctx context.Context, op string, req wireRequest) (*wireResponse, error) {
	if r.conn == nil {
		return nil, fmt.Errorf("%s: engine closed", op)
	}
	if err := ctx.Err(); err != nil {
		return nil, r.opErr(op, err)
	}

	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("%s: encoding request: %w", op, err)
	}
	if err := r.conn.Send(data); err != nil {
		return nil, r.opErr(op, err)
	}

	type recv struct {
		line []byte
		err  error
	}
	ch := make(chan recv, 1)
	go func() {
		line, err := r.conn.Recv()
		ch <- recv{line, err}
	}()

	select {
	case <-ctx.Done():
		r.conn.Close()
		r.conn = nil
		return nil, r.opErr(op, ctx.Err())
	case got := <-ch:
		if got.err != nil {
			return nil, r.opErr(op, got.err)
		}
		var resp wireResponse
		if err := json.Unmarshal(got.line, &resp); err != nil {
			return nil, r.opErr(op, fmt.Errorf("bad response: %w", err))
		}
		if !resp.OK {
			return nil, &WorkerError{Op: op, Msg: resp.Error}
		}
		return &resp, nil
	}
}

// opErr wraps a transport failure with the op name and whatever the
// worker last wrote to stderr.
func (r *Remote) opErr(op string, err error) error {
	if tail := r.stderr.Tail(); tail != "" {
		return fmt.Errorf("%s: %w (worker stderr: %s)", op, err, tail)
	}
	return fmt.Errorf("%s: %w", op, err)
}
