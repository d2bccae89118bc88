// Package httpapi exposes the SecureMatch protocol over a JSON HTTP API:
// document upload, internal and external search, and auditor administration.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/securematch/securematch/internal/logging"
	"github.com/securematch/securematch/internal/server/models"
	"github.com/securematch/securematch/internal/server/services"
)

// Service contracts consumed by the handlers. The concrete implementations
// live in the services package; tests substitute fakes.

type Ingestor interface {
	Ingest(ctx context.Context, doc map[string]any) (string, error)
}

type InternalSearcher interface {
	Search(ctx context.Context, query map[string]string) (*services.InternalSearchResult, error)
}

type ExternalSearcher interface {
	Search(ctx context.Context, req services.ExternalSearchRequest) (*services.ExternalSearchResult, error)
}

type AuditorAdmin interface {
	Create(ctx context.Context, name string) (*models.Auditor, string, error)
	RotateKey(ctx context.Context, id string) (*models.Auditor, string, error)
	ListAudits(ctx context.Context, id string, limit int) ([]*models.ExternalSearchAudit, error)
}

type DocumentAdmin interface {
	ListRecent(ctx context.Context, limit int) ([]*models.EncryptedDocument, error)
	Delete(ctx context.Context, id string) error
}

// Server hosts the HTTP API.
type Server struct {
	address   string
	logger    logging.Logger
	ingest    Ingestor
	internal  InternalSearcher
	external  ExternalSearcher
	auditors  AuditorAdmin
	documents DocumentAdmin
}

// NewServer wires the handlers to their services.
func NewServer(address string, l logging.Logger, ingest Ingestor, internal InternalSearcher,
	external ExternalSearcher, auditors AuditorAdmin, documents DocumentAdmin) *Server {
	return &Server{
		address:   address,
		logger:    l.With("module", "httpapi"),
		ingest:    ingest,
		internal:  internal,
		external:  external,
		auditors:  auditors,
		documents: documents,
	}
}

// Router builds the API route table.
func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()
	router.Use(s.loggingMiddleware)

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/documents/upload/", s.handleUpload).Methods("POST")
	api.HandleFunc("/documents/", s.handleListDocuments).Methods("GET")
	api.HandleFunc("/documents/{id}", s.handleDeleteDocument).Methods("DELETE")
	api.HandleFunc("/search/internal/", s.handleInternalSearch).Methods("POST")
	api.HandleFunc("/search/external/", s.handleExternalSearch).Methods("POST")
	api.HandleFunc("/auditor/create/", s.handleCreateAuditor).Methods("POST")
	api.HandleFunc("/auditor/{id}/rotate/", s.handleRotateKey).Methods("POST")
	api.HandleFunc("/auditor/{id}/audits/", s.handleListAudits).Methods("GET")

	return router
}

// Run starts the HTTP server and shuts it down gracefully when ctx is
// cancelled.
func (s *Server) Run(ctx context.Context) error {

	srv := &http.Server{
		Addr:    s.address,
		Handler: s.Router(),
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Info(r.Context(), "request handled",
			"method", r.Method, "path", r.URL.Path, "duration", time.Since(start).String())
	})
}
