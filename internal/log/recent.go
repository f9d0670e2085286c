// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

import (
	"bytes"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultRecentCapacity = 400
	maxPartialBytes       = 64 * 1024
	maxLineBytes          = 16 * 1024
)

// Ring is an append-only, bounded buffer of rendered log lines.
// Oldest lines are overwritten once capacity is reached.
type Ring struct {
	mu    sync.Mutex
	lines []string
	next  int
	full  bool
}

// NewRing returns an empty ring holding at most capacity lines.
func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = defaultRecentCapacity
	}
	return &Ring{lines: make([]string, capacity)}
}

// Add appends one line.
func (r *Ring) Add(line string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines[r.next] = line
	r.next = (r.next + 1) % len(r.lines)
	if r.next == 0 {
		r.full = true
	}
}

// Tail returns up to n lines, newest first. n <= 0 returns everything.
func (r *Ring) Tail(n int) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	size := r.next
	if r.full {
		size = len(r.lines)
	}
	if n <= 0 || n > size {
		n = size
	}
	out := make([]string, 0, n)
	idx := r.next
	for i := 0; i < n; i++ {
		idx = (idx - 1 + len(r.lines)) % len(r.lines)
		out = append(out, r.lines[idx])
	}
	return out
}

// Len reports the number of stored lines.
func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.full {
		return len(r.lines)
	}
	return r.next
}

func (r *Ring) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = make([]string, len(r.lines))
	r.next = 0
	r.full = false
}

func (r *Ring) resize(capacity int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if capacity == len(r.lines) {
		return
	}
	r.lines = make([]string, capacity)
	r.next = 0
	r.full = false
}

var recent = NewRing(defaultRecentCapacity)

// Recent returns up to n event log lines, newest first.
func Recent(n int) []string {
	return recent.Tail(n)
}

// ClearRecent empties the event log.
func ClearRecent() {
	recent.reset()
}

// recentWriter frames zerolog's JSON output into lines and renders each into
// the "HH:MM:SS - component: message (error)" form kept in the ring.
type recentWriter struct {
	ring    *Ring
	mu      sync.Mutex
	partial bytes.Buffer
	out     bytes.Buffer
	console zerolog.ConsoleWriter
}

var errSkipEntry = errors.New("entry not kept in event log")

var recentParts = []string{zerolog.TimestampFieldName, FieldComponent, zerolog.MessageFieldName}

func newRecentWriter(ring *Ring) *recentWriter {
	w := &recentWriter{ring: ring}
	w.console = zerolog.ConsoleWriter{
		Out:           &w.out,
		NoColor:       true,
		TimeFormat:    "15:04:05 -",
		TimeLocation:  time.Local,
		PartsOrder:    recentParts,
		FieldsExclude: []string{FieldComponent},
		FormatPrepare: func(evt map[string]any) error {
			switch evt[zerolog.LevelFieldName] {
			case zerolog.LevelDebugValue, zerolog.LevelTraceValue:
				return errSkipEntry
			}
			if _, ok := evt[zerolog.TimestampFieldName]; !ok {
				evt[zerolog.TimestampFieldName] = time.Now().Format(zerolog.TimeFieldFormat)
			}
			if errText, ok := evt[zerolog.ErrorFieldName].(string); ok && errText != "" {
				msg, _ := evt[zerolog.MessageFieldName].(string)
				evt[zerolog.MessageFieldName] = strings.TrimSpace(fmt.Sprintf("%s (%s)", msg, errText))
			}
			for k := range evt {
				if !slices.Contains(recentParts, k) {
					delete(evt, k)
				}
			}
			return nil
		},
		FormatPartValueByName: func(v any, name string) string {
			if s, ok := v.(string); ok && s != "" && name == FieldComponent {
				return s + ":"
			}
			return ""
		},
	}
	return w
}

func (w *recentWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	n := len(p)
	for len(p) > 0 {
		i := bytes.IndexByte(p, '\n')
		if i < 0 {
			if w.partial.Len()+len(p) > maxPartialBytes {
				w.partial.Reset()
				return n, nil
			}
			w.partial.Write(p)
			return n, nil
		}
		w.partial.Write(p[:i])
		p = p[i+1:]
		if w.partial.Len() <= maxLineBytes {
			if line, ok := w.render(w.partial.Bytes()); ok {
				w.ring.Add(line)
			}
		}
		w.partial.Reset()
	}
	return n, nil
}

// render runs one JSON entry through the console writer. Debug entries and
// undecodable lines are dropped.
func (w *recentWriter) render(raw []byte) (string, bool) {
	w.out.Reset()
	if _, err := w.console.Write(raw); err != nil {
		return "", false
	}
	line := strings.TrimSpace(w.out.String())
	return line, line != ""
}
