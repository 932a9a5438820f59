package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ethicalfinder/esg-api/internal/apperr"
	"github.com/ethicalfinder/esg-api/internal/company"
	"github.com/ethicalfinder/esg-api/internal/lookup"
)

func (s *Server) handleLookup(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := lookup.Request{
		UPC:  q.Get("upc"),
		EAN:  q.Get("ean"),
		GTIN: q.Get("gtin"),
		Q:    q.Get("q"),
	}

	p, err := s.lookup.Lookup(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// handleBarcode serves the path-parameter variant of lookup; the code
// substitutes for upc.
func (s *Server) handleBarcode(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	p, err := s.lookup.Lookup(r.Context(), lookup.Request{UPC: code})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleCompany(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := company.Query{
		ID:     q.Get("id"),
		Ticker: q.Get("ticker"),
		Q:      q.Get("q"),
	}

	result, err := s.directory.Resolve(r.Context(), query)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleCompanyByID(w http.ResponseWriter, r *http.Request) {
	c, err := s.directory.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	c, err := s.directory.GetByID(r.Context(), chi.URLParam(r, "companyId"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	report, err := s.engine.ComputeScore(c)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if err := s.pinger.Ping(r.Context()); err != nil {
		writeError(w, r, apperr.Wrap(apperr.KindInternal, err, "httpapi: store unreachable"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
