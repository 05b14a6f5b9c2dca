package app

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bft-labs/clusterbus/internal/adapters/codec"
	"github.com/bft-labs/clusterbus/internal/domain"
	"github.com/bft-labs/clusterbus/internal/ports"
)

const (
	clusterID uint32 = 0x100
	bodyID    uint32 = 0x200
)

func f64(v float64) *float64 { return &v }

// testCatalog builds frame 0x100 with A (0..100) and B (-50..50), and
// frame 0x200 with C (0..255 from its bit width).
func testCatalog(t *testing.T) *domain.Catalog {
	t.Helper()
	c, err := domain.NewCatalog([]domain.FrameSpec{
		{
			ID: clusterID, Name: "Cluster", Length: 2,
			Signals: []domain.SignalSpec{
				{Name: "A", StartBit: 0, BitLength: 8, Scale: 1, DeclaredMin: f64(0), DeclaredMax: f64(100)},
				{Name: "B", StartBit: 8, BitLength: 8, Signed: true, Scale: 1, DeclaredMin: f64(-50), DeclaredMax: f64(50)},
			},
		},
		{
			ID: bodyID, Name: "Body", Length: 1,
			Signals: []domain.SignalSpec{
				{Name: "C", StartBit: 0, BitLength: 8, Scale: 1},
			},
		},
	})
	if err != nil {
		t.Fatalf("NewCatalog() error = %v", err)
	}
	return c
}

type sentFrame struct {
	id       uint32
	payload  []byte
	extended bool
}

// recordingTransport captures every frame and can be told to fail or block.
type recordingTransport struct {
	mu      sync.Mutex
	frames  []sentFrame
	fail    error
	block   chan struct{}
	entered chan struct{}
}

func (r *recordingTransport) Send(frameID uint32, payload []byte, isExtended bool) error {
	r.mu.Lock()
	block, entered, fail := r.block, r.entered, r.fail
	r.mu.Unlock()

	if block != nil {
		if entered != nil {
			select {
			case entered <- struct{}{}:
			default:
			}
		}
		<-block
	}
	if fail != nil {
		return fail
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, sentFrame{id: frameID, payload: append([]byte(nil), payload...), extended: isExtended})
	return nil
}

func (r *recordingTransport) setFail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fail = err
}

func (r *recordingTransport) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.frames)
}

// values decodes every recorded frame of id, starting at index from.
func (r *recordingTransport) values(t *testing.T, f *domain.Frame, from int) []map[string]float64 {
	t.Helper()
	r.mu.Lock()
	frames := append([]sentFrame(nil), r.frames...)
	r.mu.Unlock()

	var out []map[string]float64
	for _, sf := range frames[from:] {
		if sf.id != f.ID {
			continue
		}
		v, err := codec.Decode(f, sf.payload)
		if err != nil {
			t.Fatalf("Decode(0x%X) error = %v", sf.id, err)
		}
		out = append(out, v)
	}
	return out
}

type encoderFunc func(*domain.Frame, map[string]float64) ([]byte, error)

func (fn encoderFunc) Encode(f *domain.Frame, v map[string]float64) ([]byte, error) { return fn(f, v) }

func newTestEngine(t *testing.T, tr *recordingTransport, opts ...Option) *Engine {
	t.Helper()
	opts = append([]Option{WithCycleTime(time.Millisecond)}, opts...)
	e, err := New(testCatalog(t), tr, codec.NewEncoder(), opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = e.Shutdown() })
	return e
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func frameOf(t *testing.T, e *Engine, id uint32) *domain.Frame {
	t.Helper()
	f, ok := e.Catalog().Frame(id)
	if !ok {
		t.Fatalf("frame 0x%X not in catalog", id)
	}
	return f
}

func TestNew_InvalidConfig(t *testing.T) {
	cat := testCatalog(t)
	tr := &recordingTransport{}
	enc := codec.NewEncoder()

	tests := []struct {
		name string
		fn   func() (*Engine, error)
	}{
		{"nil catalog", func() (*Engine, error) { return New(nil, tr, enc) }},
		{"nil transport", func() (*Engine, error) { return New(cat, nil, enc) }},
		{"nil encoder", func() (*Engine, error) { return New(cat, tr, nil) }},
		{"sub-millisecond cycle", func() (*Engine, error) { return New(cat, tr, enc, WithCycleTime(time.Microsecond)) }},
		{"zero grace", func() (*Engine, error) { return New(cat, tr, enc, WithGraceTimeout(0)) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.fn()
			if !errors.Is(err, domain.ErrInvalidConfig) {
				t.Errorf("New() error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestEngine_AutoRampsAndHoldsAtMax(t *testing.T) {
	tr := &recordingTransport{}
	e := newTestEngine(t, tr)
	f := frameOf(t, e, clusterID)

	if err := e.Activate("A", domain.Auto()); err != nil {
		t.Fatalf("Activate() error = %v", err)
	}
	waitFor(t, "105 frames", func() bool { return tr.count() >= 105 })

	vals := tr.values(t, f, 0)
	for i, v := range vals {
		want := float64(i + 1)
		if want > 100 {
			want = 100
		}
		if v["A"] != want {
			t.Fatalf("frame %d: A = %v, want %v", i, v["A"], want)
		}
		if v["B"] != 0 {
			t.Fatalf("frame %d: inactive B = %v, want neutral 0", i, v["B"])
		}
	}
}

func TestEngine_FixedClampsIntoRange(t *testing.T) {
	tests := []struct {
		name  string
		value float64
		want  float64
	}{
		{"in range", 30, 30},
		{"above max", 9999, 50},
		{"below min", -9999, -50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := &recordingTransport{}
			e := newTestEngine(t, tr)
			f := frameOf(t, e, clusterID)

			if err := e.Activate("B", domain.Fixed(tt.value)); err != nil {
				t.Fatalf("Activate() error = %v", err)
			}
			waitFor(t, "3 frames", func() bool { return tr.count() >= 3 })

			for i, v := range tr.values(t, f, 0) {
				if v["B"] != tt.want {
					t.Fatalf("frame %d: B = %v, want %v", i, v["B"], tt.want)
				}
			}
		})
	}
}

func TestEngine_DeactivateLastSignalSendsOneNeutralFrameAndStops(t *testing.T) {
	tr := &recordingTransport{}
	handler := &mockHandler{}
	e := newTestEngine(t, tr, WithEventHandler(handler))
	f := frameOf(t, e, clusterID)

	if err := e.Activate("A", domain.Auto()); err != nil {
		t.Fatalf("Activate() error = %v", err)
	}
	waitFor(t, "5 frames", func() bool { return tr.count() >= 5 })

	if err := e.Deactivate("A"); err != nil {
		t.Fatalf("Deactivate() error = %v", err)
	}
	if got := e.WorkerState(clusterID); got != domain.WorkerIdle {
		t.Errorf("WorkerState() = %v, want Idle", got)
	}

	n := tr.count()
	vals := tr.values(t, f, 0)
	if last := vals[len(vals)-1]; last["A"] != 0 {
		t.Errorf("last frame A = %v, want neutral 0", last["A"])
	}

	time.Sleep(20 * time.Millisecond)
	if got := tr.count(); got != n {
		t.Errorf("frames after stop = %d, want none", got-n)
	}

	var seen []domain.WorkerState
	for _, ev := range handler.Events() {
		if ev.frameID == clusterID {
			seen = append(seen, ev.current)
		}
	}
	want := []domain.WorkerState{domain.WorkerRunning, domain.WorkerStopping, domain.WorkerIdle}
	if len(seen) != len(want) {
		t.Fatalf("state changes = %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("state change %d = %v, want %v", i, seen[i], want[i])
		}
	}
}

func TestEngine_DeactivatePreservesActiveSibling(t *testing.T) {
	tr := &recordingTransport{}
	e := newTestEngine(t, tr)
	f := frameOf(t, e, clusterID)

	if err := e.Activate("B", domain.Fixed(30)); err != nil {
		t.Fatalf("Activate(B) error = %v", err)
	}
	if err := e.Activate("A", domain.Auto()); err != nil {
		t.Fatalf("Activate(A) error = %v", err)
	}
	waitFor(t, "A to ramp", func() bool {
		vals := tr.values(t, f, 0)
		return len(vals) > 0 && vals[len(vals)-1]["A"] >= 3
	})

	from := tr.count()
	if err := e.Deactivate("A"); err != nil {
		t.Fatalf("Deactivate(A) error = %v", err)
	}
	if got := e.WorkerState(clusterID); got != domain.WorkerRunning {
		t.Errorf("WorkerState() = %v, want Running while B is active", got)
	}
	waitFor(t, "5 more frames", func() bool { return tr.count() >= from+5 })

	off := false
	for i, v := range tr.values(t, f, from) {
		if v["B"] != 30 {
			t.Errorf("frame %d: B = %v, want 30", i, v["B"])
		}
		if v["A"] == 0 {
			off = true
		} else if off {
			t.Errorf("frame %d: A = %v after force-off, want 0", i, v["A"])
		}
	}
	if !off {
		t.Error("no force-off frame observed")
	}
}

func TestEngine_DeactivateWithoutWorkerSendsSeededFrame(t *testing.T) {
	tr := &recordingTransport{}
	e := newTestEngine(t, tr)
	f := frameOf(t, e, clusterID)

	if _, ok := e.Snapshot(clusterID); ok {
		t.Fatal("Snapshot() ok before any transmission")
	}
	if err := e.Deactivate("A"); err != nil {
		t.Fatalf("Deactivate() error = %v", err)
	}

	vals := tr.values(t, f, 0)
	if len(vals) != 1 {
		t.Fatalf("sent %d frames, want 1", len(vals))
	}
	if vals[0]["A"] != 0 || vals[0]["B"] != -50 {
		t.Errorf("frame = %v, want A=0 B=-50", vals[0])
	}
	if snap, ok := e.Snapshot(clusterID); !ok || snap["B"] != -50 {
		t.Errorf("Snapshot() = %v, %v", snap, ok)
	}
	if len(e.LiveWorkers()) != 0 {
		t.Errorf("LiveWorkers() = %v, want none", e.LiveWorkers())
	}
}

func TestEngine_ReactivateResumesFromNeutral(t *testing.T) {
	tr := &recordingTransport{}
	e := newTestEngine(t, tr)
	f := frameOf(t, e, clusterID)

	if err := e.Activate("A", domain.Auto()); err != nil {
		t.Fatalf("Activate() error = %v", err)
	}
	waitFor(t, "A to ramp", func() bool { return tr.count() >= 10 })
	if err := e.Deactivate("A"); err != nil {
		t.Fatalf("Deactivate() error = %v", err)
	}

	from := tr.count()
	if err := e.Activate("A", domain.Auto()); err != nil {
		t.Fatalf("Activate() again error = %v", err)
	}
	waitFor(t, "new frames", func() bool { return tr.count() >= from+3 })

	vals := tr.values(t, f, from)
	for i, v := range vals[:3] {
		if want := float64(i + 1); v["A"] != want {
			t.Errorf("frame %d after restart: A = %v, want %v", i, v["A"], want)
		}
	}
}

func TestEngine_ModeChangeWhileActive(t *testing.T) {
	tr := &recordingTransport{}
	e := newTestEngine(t, tr)
	f := frameOf(t, e, clusterID)

	if err := e.Activate("A", domain.Fixed(10)); err != nil {
		t.Fatalf("Activate() error = %v", err)
	}
	waitFor(t, "frames", func() bool { return tr.count() >= 2 })
	if err := e.Activate("A", domain.Auto()); err != nil {
		t.Fatalf("Activate() mode change error = %v", err)
	}
	waitFor(t, "A to pass 10", func() bool {
		vals := tr.values(t, f, 0)
		return vals[len(vals)-1]["A"] > 12
	})

	if got := e.LiveWorkers(); len(got) != 1 || got[0] != clusterID {
		t.Errorf("LiveWorkers() = %v, want [0x100]", got)
	}
	st, ok := e.SignalState("A")
	if !ok || !st.Active || st.Mode.Kind != domain.ModeAuto {
		t.Errorf("SignalState(A) = %+v, %v", st, ok)
	}
}

func TestEngine_TransportFailureAbortsWorker(t *testing.T) {
	tr := &recordingTransport{}
	handler := &mockHandler{}
	e := newTestEngine(t, tr, WithEventHandler(handler))
	sendErr := errors.New("bus off")
	tr.setFail(sendErr)

	if err := e.Activate("A", domain.Auto()); err != nil {
		t.Fatalf("Activate() error = %v", err)
	}
	waitFor(t, "worker error", func() bool { return len(handler.Errors()) == 1 })
	waitFor(t, "worker idle", func() bool { return e.WorkerState(clusterID) == domain.WorkerIdle })

	werr := handler.Errors()[0]
	var te *domain.TransportError
	if !errors.As(werr.err, &te) || te.FrameID != clusterID {
		t.Errorf("worker error = %v, want TransportError for 0x100", werr.err)
	}
	if !errors.Is(werr.err, sendErr) {
		t.Errorf("worker error does not wrap the send failure: %v", werr.err)
	}

	// Other frames are unaffected and the failed frame can be restarted.
	tr.setFail(nil)
	if err := e.Activate("C", domain.Fixed(7)); err != nil {
		t.Fatalf("Activate(C) error = %v", err)
	}
	if err := e.Activate("A", domain.Auto()); err != nil {
		t.Fatalf("Activate(A) restart error = %v", err)
	}
	waitFor(t, "both frames on the bus", func() bool {
		return len(tr.values(t, frameOf(t, e, clusterID), 0)) > 0 && len(tr.values(t, frameOf(t, e, bodyID), 0)) > 0
	})
	if len(handler.Errors()) != 1 {
		t.Errorf("worker errors = %d, want 1", len(handler.Errors()))
	}
}

func TestEngine_EncodeFailureAbortsWorker(t *testing.T) {
	tr := &recordingTransport{}
	handler := &mockHandler{}
	encErr := errors.New("layout broken")
	enc := encoderFunc(func(*domain.Frame, map[string]float64) ([]byte, error) { return nil, encErr })

	e, err := New(testCatalog(t), tr, enc, WithCycleTime(time.Millisecond), WithEventHandler(handler))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer e.Shutdown()

	if err := e.Activate("A", domain.Auto()); err != nil {
		t.Fatalf("Activate() error = %v", err)
	}
	waitFor(t, "worker error", func() bool { return len(handler.Errors()) == 1 })

	var ee *domain.EncodeError
	if err := handler.Errors()[0].err; !errors.As(err, &ee) || !errors.Is(err, encErr) {
		t.Errorf("worker error = %v, want EncodeError", err)
	}
	if tr.count() != 0 {
		t.Errorf("transport received %d frames, want 0", tr.count())
	}

	// Force-off failures are returned to the caller.
	err = e.Deactivate("A")
	if !errors.As(err, &ee) {
		t.Errorf("Deactivate() error = %v, want EncodeError", err)
	}
}

func TestEngine_ShutdownReportsLeakedWorker(t *testing.T) {
	tr := &recordingTransport{block: make(chan struct{}), entered: make(chan struct{}, 1)}
	e, err := New(testCatalog(t), tr, codec.NewEncoder(),
		WithCycleTime(time.Millisecond),
		WithGraceTimeout(20*time.Millisecond),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := e.Activate("A", domain.Auto()); err != nil {
		t.Fatalf("Activate() error = %v", err)
	}
	select {
	case <-tr.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("worker never reached the transport")
	}

	err = e.Shutdown()
	var se *domain.SupervisionError
	if !errors.As(err, &se) || se.FrameID != clusterID {
		t.Errorf("Shutdown() error = %v, want SupervisionError for 0x100", err)
	}

	close(tr.block)
	waitFor(t, "leaked worker to finish", func() bool { return e.WorkerState(clusterID) == domain.WorkerIdle })
}

func TestEngine_Shutdown(t *testing.T) {
	tr := &recordingTransport{}
	e := newTestEngine(t, tr)

	if err := e.ActivateAll(domain.Fixed(5)); err != nil {
		t.Fatalf("ActivateAll() error = %v", err)
	}
	if got := e.LiveWorkers(); len(got) != 2 || got[0] != clusterID || got[1] != bodyID {
		t.Errorf("LiveWorkers() = %v, want [0x100 0x200]", got)
	}

	if err := e.Shutdown(); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if got := e.LiveWorkers(); len(got) != 0 {
		t.Errorf("LiveWorkers() after Shutdown = %v", got)
	}
	if err := e.Shutdown(); err != nil {
		t.Errorf("second Shutdown() error = %v", err)
	}
	if err := e.Activate("A", domain.Auto()); !errors.Is(err, domain.ErrEngineClosed) {
		t.Errorf("Activate() after Shutdown = %v, want ErrEngineClosed", err)
	}
	if err := e.Deactivate("A"); !errors.Is(err, domain.ErrEngineClosed) {
		t.Errorf("Deactivate() after Shutdown = %v, want ErrEngineClosed", err)
	}
}

func TestEngine_DeactivateAll(t *testing.T) {
	tr := &recordingTransport{}
	e := newTestEngine(t, tr)

	if err := e.ActivateAll(domain.Fixed(5)); err != nil {
		t.Fatalf("ActivateAll() error = %v", err)
	}
	waitFor(t, "frames", func() bool { return tr.count() >= 4 })

	if err := e.DeactivateAll(); err != nil {
		t.Fatalf("DeactivateAll() error = %v", err)
	}
	if got := e.LiveWorkers(); len(got) != 0 {
		t.Errorf("LiveWorkers() = %v, want none", got)
	}

	cluster := tr.values(t, frameOf(t, e, clusterID), 0)
	if last := cluster[len(cluster)-1]; last["A"] != 0 || last["B"] != 0 {
		t.Errorf("last cluster frame = %v, want all neutral", last)
	}
	body := tr.values(t, frameOf(t, e, bodyID), 0)
	if last := body[len(body)-1]; last["C"] != 0 {
		t.Errorf("last body frame = %v, want C=0", last)
	}
	for _, name := range e.Catalog().SignalNames() {
		if st, _ := e.SignalState(name); st.Active {
			t.Errorf("%s still active", name)
		}
	}
}

func TestEngine_ControlValidation(t *testing.T) {
	tr := &recordingTransport{}
	e := newTestEngine(t, tr)

	if err := e.Activate("Nope", domain.Auto()); !errors.Is(err, domain.ErrUnknownSignal) {
		t.Errorf("Activate(unknown) = %v, want ErrUnknownSignal", err)
	}
	if err := e.Deactivate("Nope"); !errors.Is(err, domain.ErrUnknownSignal) {
		t.Errorf("Deactivate(unknown) = %v, want ErrUnknownSignal", err)
	}

	var ve *domain.ValidationError
	for _, ms := range []int{0, -5} {
		if err := e.SetCycleTime(ms); !errors.As(err, &ve) {
			t.Errorf("SetCycleTime(%d) = %v, want ValidationError", ms, err)
		}
	}
	if got := e.CycleTime(); got != time.Millisecond {
		t.Errorf("CycleTime() after rejected change = %v", got)
	}
	if err := e.SetCycleTime(50); err != nil {
		t.Fatalf("SetCycleTime(50) error = %v", err)
	}
	if got := e.CycleTime(); got != 50*time.Millisecond {
		t.Errorf("CycleTime() = %v, want 50ms", got)
	}

	if _, ok := e.SignalState("Nope"); ok {
		t.Error("SignalState(unknown) ok")
	}
	if tr.count() != 0 {
		t.Errorf("rejected calls sent %d frames", tr.count())
	}
}

// overlapTransport fails the test run if two sends for the same frame id
// are ever in flight at once.
type overlapTransport struct {
	mu       sync.Mutex
	inFlight map[uint32]int
	sends    map[uint32]int
	overlaps int
}

func newOverlapTransport() *overlapTransport {
	return &overlapTransport{inFlight: map[uint32]int{}, sends: map[uint32]int{}}
}

func (o *overlapTransport) Send(frameID uint32, payload []byte, isExtended bool) error {
	o.mu.Lock()
	o.inFlight[frameID]++
	if o.inFlight[frameID] > 1 {
		o.overlaps++
	}
	o.sends[frameID]++
	o.mu.Unlock()

	time.Sleep(50 * time.Microsecond)

	o.mu.Lock()
	o.inFlight[frameID]--
	o.mu.Unlock()
	return nil
}

func (o *overlapTransport) result() (overlaps int, sends map[uint32]int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	sends = make(map[uint32]int, len(o.sends))
	for k, v := range o.sends {
		sends[k] = v
	}
	return o.overlaps, sends
}

func TestEngine_ConcurrentControlNeverOverlapsSends(t *testing.T) {
	tr := newOverlapTransport()
	e, err := New(testCatalog(t), tr, codec.NewEncoder(), WithCycleTime(time.Millisecond))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = e.Shutdown() })

	stop := make(chan struct{})
	var maxLive int
	var watch sync.WaitGroup
	watch.Add(1)
	go func() {
		defer watch.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			live := e.LiveWorkers()
			seen := map[uint32]bool{}
			for _, id := range live {
				if seen[id] {
					t.Errorf("frame 0x%X listed twice in LiveWorkers() = %v", id, live)
				}
				seen[id] = true
			}
			if len(live) > maxLive {
				maxLive = len(live)
			}
			time.Sleep(100 * time.Microsecond)
		}
	}()

	var wg sync.WaitGroup
	for _, name := range []string{"A", "B", "C"} {
		for g := 0; g < 3; g++ {
			wg.Add(1)
			go func(name string) {
				defer wg.Done()
				for i := 0; i < 50; i++ {
					switch i % 3 {
					case 0:
						_ = e.Activate(name, domain.Auto())
					case 1:
						_ = e.Activate(name, domain.Fixed(float64(i)))
					default:
						_ = e.Deactivate(name)
					}
				}
			}(name)
		}
	}
	wg.Wait()
	close(stop)
	watch.Wait()

	if err := e.DeactivateAll(); err != nil {
		t.Fatalf("DeactivateAll() error = %v", err)
	}
	overlaps, sends := tr.result()
	if overlaps != 0 {
		t.Errorf("%d overlapping sends for the same frame", overlaps)
	}
	if sends[clusterID] == 0 || sends[bodyID] == 0 {
		t.Errorf("sends = %v, want traffic on both frames", sends)
	}
	if maxLive > 2 {
		t.Errorf("saw %d live workers for a two-frame catalog", maxLive)
	}
}

func TestEngine_ConcurrentControl(t *testing.T) {
	tr := &recordingTransport{}
	e := newTestEngine(t, tr)

	var wg sync.WaitGroup
	for _, name := range []string{"A", "B", "C"} {
		for g := 0; g < 3; g++ {
			wg.Add(1)
			go func(name string) {
				defer wg.Done()
				for i := 0; i < 30; i++ {
					if i%2 == 0 {
						_ = e.Activate(name, domain.Auto())
					} else {
						_ = e.Deactivate(name)
					}
				}
			}(name)
		}
	}
	wg.Wait()

	if err := e.DeactivateAll(); err != nil {
		t.Fatalf("DeactivateAll() error = %v", err)
	}
	if got := e.LiveWorkers(); len(got) != 0 {
		t.Errorf("LiveWorkers() = %v, want none", got)
	}
	if err := e.Shutdown(); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}

func TestEngine_CycleTimeAppliesToRunningWorker(t *testing.T) {
	tr := &recordingTransport{}
	e := newTestEngine(t, tr)

	if err := e.Activate("C", domain.Auto()); err != nil {
		t.Fatalf("Activate() error = %v", err)
	}
	waitFor(t, "fast ticks", func() bool { return tr.count() >= 10 })

	if err := e.SetCycleTime(200); err != nil {
		t.Fatalf("SetCycleTime() error = %v", err)
	}
	// Let the tick already scheduled at the old interval go out.
	time.Sleep(20 * time.Millisecond)
	before := tr.count()
	time.Sleep(100 * time.Millisecond)

	if got := tr.count() - before; got > 1 {
		t.Errorf("%d frames in 100ms after switching to 200ms cycle", got)
	}
	if got := e.WorkerState(bodyID); got != domain.WorkerRunning {
		t.Errorf("WorkerState() = %v, want Running", got)
	}
}

// capturingLogger records Info messages with their fields.
type capturingLogger struct {
	mockLogger
	mu    sync.Mutex
	infos map[string][]ports.Field
}

func (c *capturingLogger) Info(msg string, fields ...ports.Field) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.infos == nil {
		c.infos = map[string][]ports.Field{}
	}
	c.infos[msg] = fields
}

func (c *capturingLogger) fields(msg string) map[string]interface{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := map[string]interface{}{}
	for _, f := range c.infos[msg] {
		out[f.Key] = f.Value
	}
	return out
}

func TestEngine_ActivateLogsFrameAddressing(t *testing.T) {
	log := &capturingLogger{}
	e := newTestEngine(t, &recordingTransport{}, WithLogger(log))

	if err := e.Activate("C", domain.Fixed(7)); err != nil {
		t.Fatalf("Activate() error = %v", err)
	}
	got := log.fields("signal activated")
	if got["signal"] != "C" || got["frame_id"] != bodyID || got["extended"] != false || got["mode"] != "7" {
		t.Errorf("signal activated fields = %v", got)
	}
}
