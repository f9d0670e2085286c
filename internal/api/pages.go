// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"embed"
	"errors"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"os"

	"github.com/ManuGH/kioskd/internal/log"
)

const (
	debugTailLines = 250
	rtspLogTail    = 20000
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = template.Must(template.ParseFS(templateFS, "templates/*.html"))

type uiData struct {
	Title          string
	DefaultURL     string
	DefaultSeconds int
}

type debugData struct {
	Title string
	Lines []string
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := pages.ExecuteTemplate(w, name, data); err != nil {
		s.logger.Error().Err(err).Str("template", name).Msg("render failed")
	}
}

func (s *Server) handleUI(w http.ResponseWriter, _ *http.Request) {
	s.render(w, "ui.html", uiData{
		Title:          s.hostname,
		DefaultURL:     s.defaultURL,
		DefaultSeconds: s.defaultSeconds,
	})
}

func (s *Server) handleDebug(w http.ResponseWriter, _ *http.Request) {
	s.render(w, "debug.html", debugData{
		Title: s.hostname,
		Lines: log.Recent(debugTailLines),
	})
}

// handleDebugClear empties the event log and returns to the debug page.
func (s *Server) handleDebugClear(w http.ResponseWriter, r *http.Request) {
	log.ClearRecent()
	s.logger.Info().Msg("API: debug/clear (event log cleared)")
	http.Redirect(w, r, "/debug", http.StatusSeeOther)
}

// handleRTSPLog shows the tail of the player log.
func (s *Server) handleRTSPLog(w http.ResponseWriter, _ *http.Request) {
	text, err := tailFile(s.rtspLogPath, rtspLogTail)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		text = "No RTSP log yet."
	case err != nil:
		s.logger.Warn().Err(err).Str(log.FieldPath, s.rtspLogPath).Msg("rtsp log unreadable")
		text = "RTSP log unreadable: " + err.Error()
	}
	s.render(w, "log.html", debugData{Title: s.hostname, Lines: []string{text}})
}

// tailFile returns at most the last n bytes of path.
func tailFile(path string, n int64) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return "", err
	}
	if info.Size() > n {
		if _, err := f.Seek(info.Size()-n, io.SeekStart); err != nil {
			return "", err
		}
	}
	data, err := io.ReadAll(io.LimitReader(f, n))
	if err != nil {
		return "", err
	}
	return string(data), nil
}
