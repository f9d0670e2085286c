// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package api is the local HTTP control surface of the kiosk.
package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/ManuGH/kioskd/internal/api/middleware"
	"github.com/ManuGH/kioskd/internal/config"
	"github.com/ManuGH/kioskd/internal/log"
	"github.com/ManuGH/kioskd/internal/orchestrator"
	"github.com/ManuGH/kioskd/internal/stream"
)

// Controller is the set of orchestrator actions reachable over HTTP.
type Controller interface {
	Status(ctx context.Context) orchestrator.Snapshot
	RelayStatus() string
	RelayForceOn() bool
	RelayOn()
	RelayOff()
	RelaySwitch(on bool)
	OverlayOn() error
	OverlayOff()
	OverlayRunning() bool
	TouchDisable()
	TouchEnable()
	TouchLock()
	TouchUnlock()
	TouchState() (disabled, locked bool)
	RTSPStart(ctx context.Context, url string, seconds int, mode string) error
	RTSPStop()
	RTSPInfo() stream.Info
	StreamingSet(ctx context.Context, on bool) error
	StreamingActive(ctx context.Context) bool
	PowerActionsAllowed() bool
	Reboot(ctx context.Context) error
	PowerOff(ctx context.Context) error
}

// Notifier republishes state after a mutating request.
type Notifier interface {
	PublishNow()
}

type nopNotifier struct{}

func (nopNotifier) PublishNow() {}

// Server serves the control API, the debug pages and the control UI.
type Server struct {
	ctrl     Controller
	notifier Notifier
	logger   zerolog.Logger

	hostname       string
	defaultURL     string
	defaultSeconds int
	rtspLogPath    string
	service        string
	rateLimit      int
}

// New creates the API server. notifier may be nil.
func New(cfg config.AppConfig, ctrl Controller, notifier Notifier) *Server {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &Server{
		ctrl:           ctrl,
		notifier:       notifier,
		logger:         log.WithComponent("api"),
		hostname:       cfg.Hostname,
		defaultURL:     cfg.RTSP.DefaultURL,
		defaultSeconds: cfg.RTSP.DefaultSeconds,
		rtspLogPath:    cfg.RTSP.LogPath,
		service:        cfg.Streaming.Service,
		rateLimit:      cfg.Server.RateLimitPerMin,
	}
}

// Handler returns the routed handler with the ingress middleware stack.
func (s *Server) Handler() http.Handler {
	r := middleware.NewRouter(middleware.StackConfig{
		EnableMetrics:   true,
		TracingService:  "kioskd-api",
		EnableLogging:   true,
		RateLimitPerMin: s.rateLimit,
	})
	s.routes(r)
	return r
}

func (s *Server) routes(r chi.Router) {
	r.Get("/", s.handleUI)
	r.Get("/debug", s.handleDebug)
	r.Post("/debug/clear", s.handleDebugClear)
	r.Get("/status", s.handleStatus)

	r.Get("/relay/status", s.handleRelayStatus)
	r.Get("/overlay/status", s.handleOverlayStatus)
	r.Get("/rtsp/log", s.handleRTSPLog)
	r.Get("/streaming/status", s.handleStreamingStatus)

	r.Group(func(r chi.Router) {
		r.Use(s.republish)

		r.Post("/relay/on", s.handleRelayOn)
		r.Post("/relay/off", s.handleRelayOff)
		r.Post("/relay", s.handleRelaySwitch)

		r.Post("/touch/disable", s.touchAction(s.ctrl.TouchDisable))
		r.Post("/touch/enable", s.touchAction(s.ctrl.TouchEnable))
		r.Post("/touch/lock", s.touchAction(s.ctrl.TouchLock))
		r.Post("/touch/unlock", s.touchAction(s.ctrl.TouchUnlock))

		r.Post("/rtsp/start", s.handleRTSPStart)
		r.Post("/rtsp/stop", s.handleRTSPStop)

		r.Post("/overlay/on", s.handleOverlayOn)
		r.Post("/overlay/off", s.handleOverlayOff)

		r.Post("/streaming", s.handleStreaming)

		r.Post("/system/reboot", s.powerAction("reboot", s.ctrl.Reboot))
		r.Post("/system/shutdown", s.powerAction("shutdown", s.ctrl.PowerOff))
	})
}

// republish pushes a state snapshot to the bus after the handler ran.
func (s *Server) republish(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r)
		s.notifier.PublishNow()
	})
}
