// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/ManuGH/kioskd/internal/config"
	"github.com/ManuGH/kioskd/internal/persistence/sqlite"
	"github.com/ManuGH/kioskd/internal/platform/cmdrun"
	"github.com/ManuGH/kioskd/internal/relay"
	"github.com/ManuGH/kioskd/internal/stream"
	"github.com/ManuGH/kioskd/internal/sysinfo"
)

// journal records calls across fakes in order.
type journal struct {
	mu    sync.Mutex
	calls []string
}

func (j *journal) add(s string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.calls = append(j.calls, s)
}

func (j *journal) list() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.calls...)
}

type fakeRelay struct {
	j         *journal
	mu        sync.Mutex
	mode      relay.Mode
	status    string
	lastHooks relay.Hooks
	lastDur   time.Duration
	remaining int
}

func (r *fakeRelay) TurnOff() {
	r.j.add("relay.off")
	r.mu.Lock()
	r.mode = relay.Idle
	r.mu.Unlock()
}

func (r *fakeRelay) Status() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status == "" {
		return "OFF"
	}
	return r.status
}

func (r *fakeRelay) ActivateFor(d time.Duration, hooks relay.Hooks) {
	r.j.add("relay.activate")
	r.mu.Lock()
	r.lastHooks, r.lastDur, r.mode = hooks, d, relay.TimedOn
	r.mu.Unlock()
	if hooks.Enter != nil {
		hooks.Enter()
	}
}

func (r *fakeRelay) OnPermanent(enter func()) {
	r.j.add("relay.permanent")
	if enter != nil {
		enter()
	}
	r.mu.Lock()
	r.mode = relay.PermanentOn
	r.mu.Unlock()
}

func (r *fakeRelay) CancelTimer() { r.j.add("relay.cancel") }

func (r *fakeRelay) RemainingSeconds() (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.remaining, r.mode == relay.TimedOn
}

func (r *fakeRelay) Mode() relay.Mode {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mode
}

type fakeOverlay struct {
	j       *journal
	mu      sync.Mutex
	running bool
}

func (o *fakeOverlay) EnsureAsset() error { o.j.add("overlay.asset"); return nil }

func (o *fakeOverlay) Show() error {
	o.j.add("overlay.show")
	o.mu.Lock()
	o.running = true
	o.mu.Unlock()
	return nil
}

func (o *fakeOverlay) Hide() {
	o.j.add("overlay.hide")
	o.mu.Lock()
	o.running = false
	o.mu.Unlock()
}

func (o *fakeOverlay) Running() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.running
}

type startCall struct {
	URL     string
	Seconds int
	Mode    string
}

type fakeStream struct {
	j         *journal
	mu        sync.Mutex
	starts    []startCall
	afterDone func()
	err       error
}

func (s *fakeStream) Start(_ context.Context, url string, seconds int, mode string, afterDone func()) error {
	s.j.add("stream.start")
	s.mu.Lock()
	defer s.mu.Unlock()
	s.starts = append(s.starts, startCall{URL: url, Seconds: seconds, Mode: mode})
	s.afterDone = afterDone
	return s.err
}

func (s *fakeStream) StopOnly() { s.j.add("stream.stop") }

func (s *fakeStream) Info() stream.Info { return stream.Info{Mode: stream.Normal} }

type fakeTouch struct {
	mu               sync.Mutex
	disabled, locked bool
}

func (t *fakeTouch) Disable() { t.mu.Lock(); t.disabled = true; t.mu.Unlock() }
func (t *fakeTouch) Enable()  { t.mu.Lock(); t.disabled = false; t.mu.Unlock() }
func (t *fakeTouch) Lock()    { t.mu.Lock(); t.locked = true; t.mu.Unlock() }
func (t *fakeTouch) Unlock()  { t.mu.Lock(); t.locked = false; t.mu.Unlock() }

func (t *fakeTouch) State() (bool, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.disabled, t.locked
}

type fakeToggle struct {
	mu     sync.Mutex
	active bool
	err    error
}

func (t *fakeToggle) SetEnabled(_ context.Context, desired bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.err != nil {
		return t.err
	}
	t.active = desired
	return nil
}

func (t *fakeToggle) Active(context.Context) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active
}

type fakeDisplay struct{ j *journal }

func (d *fakeDisplay) Wake(context.Context) cmdrun.Result {
	d.j.add("display.wake")
	return cmdrun.Result{Kind: cmdrun.Success}
}

func (d *fakeDisplay) Display() string    { return ":0" }
func (d *fakeDisplay) XAuthority() string { return "/home/kiosk/.Xauthority" }

type fakeHost struct{}

func (fakeHost) Collect() sysinfo.Stats { return sysinfo.Stats{Hostname: "kiosk"} }

type fakePresets struct {
	mu    sync.Mutex
	saved []sqlite.Preset
	load  *sqlite.Preset
}

func (p *fakePresets) Load(context.Context) (sqlite.Preset, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.load == nil {
		return sqlite.Preset{}, false, nil
	}
	return *p.load, true, nil
}

func (p *fakePresets) Save(_ context.Context, rec sqlite.Preset) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.saved = append(p.saved, rec)
	return nil
}

type fakeRunner struct {
	mu    sync.Mutex
	calls [][]string
}

func (r *fakeRunner) Run(_ context.Context, name string, args ...string) cmdrun.Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, append([]string{name}, args...))
	return cmdrun.Result{Kind: cmdrun.Success}
}

type rig struct {
	j       *journal
	relay   *fakeRelay
	overlay *fakeOverlay
	stream  *fakeStream
	touch   *fakeTouch
	toggle  *fakeToggle
	presets *fakePresets
	runner  *fakeRunner
	cfg     config.AppConfig
}

func newRig() *rig {
	j := &journal{}
	cfg := config.Defaults()
	cfg.Relay.OnTimeSeconds = 30
	cfg.RTSP.DefaultURL = "rtsp://cam.local/stream"
	cfg.RTSP.DefaultSeconds = 120
	return &rig{
		j:       j,
		relay:   &fakeRelay{j: j},
		overlay: &fakeOverlay{j: j},
		stream:  &fakeStream{j: j},
		touch:   &fakeTouch{},
		toggle:  &fakeToggle{},
		presets: &fakePresets{},
		runner:  &fakeRunner{},
		cfg:     cfg,
	}
}

func (r *rig) deps() Deps {
	return Deps{
		Relay:   r.relay,
		Overlay: r.overlay,
		Stream:  r.stream,
		Touch:   r.touch,
		Toggle:  r.toggle,
		Display: &fakeDisplay{j: r.j},
		Host:    fakeHost{},
		Presets: r.presets,
		Runner:  r.runner,
	}
}
