// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/ManuGH/kioskd/internal/orchestrator"
	"github.com/ManuGH/kioskd/internal/svctoggle"
)

type stateRequest struct {
	State string `json:"state"`
}

func (r stateRequest) parse() (bool, error) {
	switch strings.ToLower(strings.TrimSpace(r.State)) {
	case "on":
		return true, nil
	case "off":
		return false, nil
	}
	return false, errBadState
}

type rtspRequest struct {
	URL     *string `json:"url"`
	Seconds *int    `json:"seconds"`
	Mode    *string `json:"mode"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, struct {
		OK bool `json:"ok"`
		orchestrator.Snapshot
	}{OK: true, Snapshot: s.ctrl.Status(r.Context())})
}

func (s *Server) relayBody(ok bool) map[string]any {
	return map[string]any{
		"ok":             ok,
		"relay":          s.ctrl.RelayStatus(),
		"overlay_black":  s.ctrl.OverlayRunning(),
		"relay_force_on": s.ctrl.RelayForceOn(),
	}
}

func (s *Server) handleRelayStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"relay":          s.ctrl.RelayStatus(),
		"relay_force_on": s.ctrl.RelayForceOn(),
	})
}

func (s *Server) handleRelayOn(w http.ResponseWriter, _ *http.Request) {
	s.logger.Info().Msg("API: relay/on (permanent)")
	s.ctrl.RelayOn()
	writeJSON(w, http.StatusOK, s.relayBody(true))
}

func (s *Server) handleRelayOff(w http.ResponseWriter, _ *http.Request) {
	s.logger.Info().Msg("API: relay/off")
	s.ctrl.RelayOff()
	writeJSON(w, http.StatusOK, s.relayBody(true))
}

func (s *Server) handleRelaySwitch(w http.ResponseWriter, r *http.Request) {
	var req stateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	on, err := req.parse()
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.ctrl.RelaySwitch(on)
	writeJSON(w, http.StatusOK, map[string]any{
		"relay":          s.ctrl.RelayStatus(),
		"relay_force_on": s.ctrl.RelayForceOn(),
	})
}

func (s *Server) touchAction(action func()) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		action()
		disabled, locked := s.ctrl.TouchState()
		writeJSON(w, http.StatusOK, map[string]any{
			"touch_disabled": disabled,
			"touch_locked":   locked,
		})
	}
}

func (s *Server) handleRTSPStart(w http.ResponseWriter, r *http.Request) {
	var req rtspRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	url, seconds, mode := s.defaultURL, s.defaultSeconds, "normal"
	if req.URL != nil {
		url = strings.TrimSpace(*req.URL)
	}
	if req.Seconds != nil {
		seconds = *req.Seconds
	}
	if req.Mode != nil {
		mode = *req.Mode
	}
	if seconds < orchestrator.MinStreamSeconds || seconds > orchestrator.MaxStreamSeconds {
		writeError(w, http.StatusUnprocessableEntity, errBadSeconds)
		return
	}

	s.logger.Info().Str("url", url).Int("seconds", seconds).Str("mode", mode).Msgf("API: rtsp/start %s %ds mode=%s", url, seconds, mode)
	err := s.ctrl.RTSPStart(r.Context(), url, seconds, mode)
	if errors.Is(err, orchestrator.ErrInvalidURL) {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	body := map[string]any{"ok": err == nil, "rtsp": s.ctrl.RTSPInfo(), "mode": mode}
	if err != nil {
		body["error"] = err.Error()
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleRTSPStop(w http.ResponseWriter, _ *http.Request) {
	s.logger.Info().Msg("API: rtsp/stop (stream only)")
	s.ctrl.RTSPStop()
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "rtsp": s.ctrl.RTSPInfo()})
}

func (s *Server) overlayBody(ok bool) map[string]any {
	return map[string]any{
		"ok":            ok,
		"overlay_black": s.ctrl.OverlayRunning(),
		"relay":         s.ctrl.RelayStatus(),
	}
}

func (s *Server) handleOverlayOn(w http.ResponseWriter, _ *http.Request) {
	s.logger.Info().Msg("API: overlay/on (relay unchanged)")
	if err := s.ctrl.OverlayOn(); err != nil {
		body := s.overlayBody(false)
		body["error"] = err.Error()
		writeJSON(w, http.StatusServiceUnavailable, body)
		return
	}
	writeJSON(w, http.StatusOK, s.overlayBody(true))
}

func (s *Server) handleOverlayOff(w http.ResponseWriter, _ *http.Request) {
	s.logger.Info().Msg("API: overlay/off (relay unchanged)")
	s.ctrl.OverlayOff()
	writeJSON(w, http.StatusOK, s.overlayBody(true))
}

func (s *Server) handleOverlayStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"overlay_black": s.ctrl.OverlayRunning(),
		"relay":         s.ctrl.RelayStatus(),
	})
}

func (s *Server) handleStreaming(w http.ResponseWriter, r *http.Request) {
	var req stateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	on, err := req.parse()
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	err = s.ctrl.StreamingSet(r.Context(), on)
	switch {
	case errors.Is(err, svctoggle.ErrDebounced):
		writeError(w, http.StatusTooManyRequests, err)
	case err != nil:
		writeError(w, http.StatusServiceUnavailable, err)
	default:
		writeJSON(w, http.StatusOK, map[string]any{
			"ok":      true,
			"service": s.service,
			"active":  s.ctrl.StreamingActive(r.Context()),
		})
	}
}

func (s *Server) handleStreamingStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service": s.service,
		"active":  s.ctrl.StreamingActive(r.Context()),
	})
}

func (s *Server) powerAction(name string, action func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.logger.Warn().Msgf("API: system/%s", name)
		err := action(r.Context())
		if err != nil && !errors.Is(err, orchestrator.ErrPowerActionsDisabled) {
			writeJSON(w, http.StatusInternalServerError, map[string]any{
				"ok":      false,
				"allowed": s.ctrl.PowerActionsAllowed(),
				"error":   err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "allowed": s.ctrl.PowerActionsAllowed()})
	}
}
