package streamserver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/xiaonanln/streamgraph/explorer"
	"github.com/xiaonanln/streamgraph/util/callcontext"
)

// eventTimeout bounds a UI event that arrives without its own deadline.
const eventTimeout = 5 * time.Second

// httpStatus maps explorer errors to HTTP status codes.
func httpStatus(err error) int {
	switch {
	case errors.Is(err, explorer.ErrInvalidPercent):
		return http.StatusBadRequest
	case errors.Is(err, explorer.ErrRejected):
		return http.StatusForbidden
	case errors.Is(err, explorer.ErrStopped):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout
	}
	return http.StatusInternalServerError
}

// ParsePercent converts a slider value in [0, 100] to a fraction.
func ParsePercent(raw string) (float64, error) {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", explorer.ErrInvalidPercent, raw)
	}
	if v < 0 || v > 100 {
		return 0, fmt.Errorf("%w: %v is outside [0, 100]", explorer.ErrInvalidPercent, v)
	}
	return v / 100, nil
}

// handlePage handles GET / with the interactive page
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "Only GET method is allowed", http.StatusMethodNotAllowed)
		return
	}

	var buf bytes.Buffer
	if err := s.renderer.Page(&buf, s.ex.State()); err != nil {
		log.Errorf("Failed to render page: %v", err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

// handleSVG handles GET /svg with the diagram of the latest state
func (s *Server) handleSVG(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Only GET method is allowed", http.StatusMethodNotAllowed)
		return
	}

	var buf bytes.Buffer
	if err := s.renderer.SVG(&buf, s.ex.State()); err != nil {
		log.Errorf("Failed to render svg: %v", err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write(buf.Bytes())
}

// handleState handles GET /state with the latest render state as JSON
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Only GET method is allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, http.StatusOK, s.ex.State())
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	s.handleEvent(w, r, func(ctx context.Context) (uint64, error) {
		return s.ex.Connect(ctx, TransportHTTP)
	})
}

func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	s.handleEvent(w, r, func(ctx context.Context) (uint64, error) {
		return s.ex.Disconnect(ctx, TransportHTTP)
	})
}

// handleRange handles POST /range?value=<0..100>
func (s *Server) handleRange(w http.ResponseWriter, r *http.Request) {
	s.handleEvent(w, r, func(ctx context.Context) (uint64, error) {
		percent, err := ParsePercent(r.URL.Query().Get("value"))
		if err != nil {
			return 0, err
		}
		return s.ex.SetRange(ctx, TransportHTTP, percent)
	})
}

// handleEvent runs a UI event and replies with the version it published.
func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request, event func(ctx context.Context) (uint64, error)) {
	if r.Method != http.MethodPost {
		http.Error(w, "Only POST method is allowed", http.StatusMethodNotAllowed)
		return
	}
	ctx := callcontext.WithClientID(r.Context(), TransportHTTP+"/"+r.RemoteAddr)
	ctx, cancel := callcontext.WithDefaultTimeout(ctx, eventTimeout)
	defer cancel()
	version, err := event(ctx)
	if err != nil {
		log.Warnf("Event %s failed: %v", r.URL.Path, err)
		http.Error(w, err.Error(), httpStatus(err))
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]uint64{"version": version})
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Errorf("Failed to encode response: %v", err)
		http.Error(w, "encode failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(data)
}
