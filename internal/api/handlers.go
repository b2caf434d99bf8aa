package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/juststeveking/sentinel/internal/monitor"
	"github.com/juststeveking/sentinel/internal/source"
)

type handlers struct {
	status   StatusReader
	enricher Enricher
	logger   *slog.Logger
}

type targetList struct {
	Targets  []monitor.Target `json:"targets"`
	Sweeping bool             `json:"sweeping"`
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (h *handlers) listTargets(w http.ResponseWriter, r *http.Request) {
	targets := h.status.ListTargets()
	monitor.SortByStatus(targets)

	writeJSON(w, targetList{Targets: targets, Sweeping: h.status.Sweeping()}, http.StatusOK)
}

func (h *handlers) getTarget(w http.ResponseWriter, r *http.Request) {
	t, ok := h.lookup(r)
	if !ok {
		writeError(w, "target not found", http.StatusNotFound)
		return
	}
	writeJSON(w, t, http.StatusOK)
}

func (h *handlers) targetDetails(w http.ResponseWriter, r *http.Request) {
	t, ok := h.lookup(r)
	if !ok {
		writeError(w, "target not found", http.StatusNotFound)
		return
	}
	if h.enricher == nil {
		writeError(w, "enrichment not configured", http.StatusNotImplemented)
		return
	}

	details, err := h.enricher.Enrich(r.Context(), t)
	if err != nil {
		h.logger.Warn("enrichment failed", "url", t.URL, "error", err)
		writeError(w, err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, details, http.StatusOK)
}

// lookup finds the target for the {domain} path parameter
func (h *handlers) lookup(r *http.Request) (monitor.Target, bool) {
	domain, err := source.NormalizeDomain(chi.URLParam(r, "domain"))
	if err != nil {
		return monitor.Target{}, false
	}
	for _, t := range h.status.ListTargets() {
		if t.Domain == domain {
			return t, true
		}
	}
	return monitor.Target{}, false
}

func writeJSON(w http.ResponseWriter, data any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, message string, statusCode int) {
	writeJSON(w, map[string]string{"error": message}, statusCode)
}
