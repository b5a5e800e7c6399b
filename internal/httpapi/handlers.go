package httpapi

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"auditgraph/internal/diagram"
	"auditgraph/internal/fingerprint"
	"auditgraph/internal/llm"
	"auditgraph/internal/model"
	"auditgraph/internal/store"
	"auditgraph/internal/validate"
)

type scenarioRequest struct {
	Scenario string `json:"scenario"`
}

type analyzeRequest struct {
	Scenario string      `json:"scenario"`
	Graph    model.Graph `json:"rel_map"`
}

type chatRequest struct {
	Messages []llm.Message `json:"messages"`
	// Stream is accepted for compatibility; replies are always returned whole.
	Stream bool `json:"stream"`
}

type reportRequest struct {
	Scenario string               `json:"scenario"`
	Graph    model.Graph          `json:"rel_map"`
	Analysis model.AnalysisResult `json:"analysis"`
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"service": "auditgraph",
		"version": s.version,
		"health":  "/health",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	connected := false
	if st := s.reviews.Store(); st != nil {
		connected = st.Ping(r.Context()) == nil
	}
	entries := 0
	if s.laws != nil {
		entries = s.laws.Len()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":           "ok",
		"store_connected":  connected,
		"registry_entries": entries,
	})
}

func (s *Server) handleReview(w http.ResponseWriter, r *http.Request) {
	var req scenarioRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	report, err := s.reviews.Run(r.Context(), req.Scenario)
	if err != nil {
		s.writeReviewError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	var req scenarioRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	extraction, err := s.reviews.Extract(r.Context(), req.Scenario)
	if err != nil {
		s.writeReviewError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, extraction)
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	analysis, err := s.reviews.Analyze(r.Context(), req.Scenario, req.Graph)
	if err != nil {
		s.writeReviewError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"analysis": analysis})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	var req reportRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	report, err := s.reviews.Report(r.Context(), req.Scenario, req.Graph, req.Analysis)
	if err != nil {
		s.writeReviewError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleListGraphs(w http.ResponseWriter, r *http.Request) {
	st := s.reviews.Store()
	if st == nil {
		writeJSON(w, http.StatusOK, map[string]any{"graphs": []store.FingerprintSummary{}})
		return
	}
	summaries, err := st.ListFingerprints(r.Context())
	if err != nil {
		s.logger.Warn("http: listing graphs failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "graph store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"graphs": summaries})
}

func (s *Server) handleGetGraph(w http.ResponseWriter, r *http.Request) {
	fp := strings.ToUpper(chi.URLParam(r, "fingerprint"))
	if !fingerprint.Valid(fp) {
		writeError(w, http.StatusBadRequest, "fingerprint must be 8 hexadecimal characters")
		return
	}

	var g *model.Graph
	if st := s.reviews.Store(); st != nil {
		loaded, err := st.LoadGraph(r.Context(), fp)
		if err != nil {
			s.logger.Warn("http: loading graph failed", "fingerprint", fp, "error", err)
			writeError(w, http.StatusServiceUnavailable, "graph store unavailable")
			return
		}
		g = loaded
	}
	if g == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"detail":       "no stored graph for fingerprint",
			"fingerprint":  fp,
			"diagram_code": diagram.Placeholder(),
		})
		return
	}

	code, err := diagram.RenderChecked(*g, nil)
	if err != nil {
		s.logger.Warn("http: stored graph is invalid", "fingerprint", fp, "error", err)
		writeJSON(w, http.StatusOK, map[string]any{
			"fingerprint":  fp,
			"rel_map":      g,
			"diagram_code": code,
			"issues":       validate.Graph(fp, *g, nil),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"fingerprint":  fp,
		"rel_map":      g,
		"diagram_code": code,
	})
}

func (s *Server) handleResolveLaw(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeError(w, http.StatusBadRequest, "query parameter q is required")
		return
	}
	url, _ := s.laws.Resolve(q)
	resp := map[string]any{
		"name":  q,
		"valid": s.laws.IsValid(q),
		"url":   nil,
	}
	if url != "" {
		resp["url"] = url
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if s.chat == nil {
		writeError(w, http.StatusServiceUnavailable, "chat is not configured")
		return
	}
	var req chatRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	reply, err := s.chat.Reply(r.Context(), req.Messages)
	if err != nil {
		s.writeReviewError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": llm.Message{Role: "assistant", Content: reply},
	})
}
