// Package httpapi exposes the service over HTTP.
package httpapi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ethicalfinder/esg-api/internal/company"
	"github.com/ethicalfinder/esg-api/internal/esg"
	"github.com/ethicalfinder/esg-api/internal/lookup"
)

// Pinger is the store health probe the server needs.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server wires the domain services into HTTP handlers.
type Server struct {
	lookup    *lookup.Service
	directory *company.Directory
	engine    *esg.Engine
	pinger    Pinger
}

// NewServer creates an HTTP server over the given services.
func NewServer(lk *lookup.Service, dir *company.Directory, engine *esg.Engine, pinger Pinger) *Server {
	return &Server{lookup: lk, directory: dir, engine: engine, pinger: pinger}
}

// Routes builds the router with the middleware stack and all endpoints.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(logRequests)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/healthz", s.handleHealthz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Get("/lookup", s.handleLookup)
		r.Get("/products/barcode/{code}", s.handleBarcode)
		r.Get("/company", s.handleCompany)
		r.Get("/company/{id}", s.handleCompanyByID)
		r.Get("/score/{companyId}", s.handleScore)
	})

	return r
}
