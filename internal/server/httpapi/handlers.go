package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/securematch/securematch/internal/common"
	"github.com/securematch/securematch/internal/server/services"
)

const defaultListLimit = 50

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {

	var doc map[string]any
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid JSON object")
		return
	}

	id, err := s.ingest.Ingest(r.Context(), doc)
	if err != nil {
		if errors.Is(err, common.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid JSON object")
			return
		}
		s.logger.Error(r.Context(), err.Error())
		writeError(w, http.StatusBadRequest, "UPLOAD_FAILED", "Upload failed")
		return
	}

	writeSuccess(w, http.StatusCreated, map[string]any{
		"message":     "Document encrypted and indexed",
		"document_id": id,
	}, nil)
}

func (s *Server) handleInternalSearch(w http.ResponseWriter, r *http.Request) {

	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_QUERY", "Invalid search query")
		return
	}

	query := make(map[string]string, len(body))
	for field, value := range body {
		query[field] = fmt.Sprint(value)
	}

	result, err := s.internal.Search(r.Context(), query)
	if err != nil {
		if errors.Is(err, common.ErrInvalidQuery) {
			writeError(w, http.StatusBadRequest, "INVALID_QUERY", "Invalid search query")
			return
		}
		s.logger.Error(r.Context(), err.Error())
		writeError(w, http.StatusBadRequest, "INTERNAL_SEARCH_FAILED", "Search failed")
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{
		"results": result.Results,
	}, map[string]any{
		"total_matches":     result.TotalMatches,
		"returned_count":    result.ReturnedCount,
		"truncated":         result.Truncated,
		"execution_time_ms": result.ExecutionTimeMs,
	})
}

type externalSearchBody struct {
	AuditorID   string `json:"auditor_id"`
	KeywordHash string `json:"keyword_hash"`
	Signature   string `json:"signature"`
}

func (s *Server) handleExternalSearch(w http.ResponseWriter, r *http.Request) {

	var body externalSearchBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "MISSING_FIELDS", "Required fields missing")
		return
	}

	result, err := s.external.Search(r.Context(), services.ExternalSearchRequest{
		AuditorID:   body.AuditorID,
		KeywordHash: body.KeywordHash,
		Signature:   body.Signature,
		ClientIP:    clientIP(r),
	})
	if err != nil {
		switch {
		case errors.Is(err, common.ErrMissingFields):
			writeError(w, http.StatusBadRequest, "MISSING_FIELDS", "Required fields missing")
		case errors.Is(err, common.ErrAuditorNotFound):
			writeError(w, http.StatusNotFound, "AUDITOR_NOT_FOUND", "Auditor not found")
		case errors.Is(err, common.ErrInvalidSignature):
			writeError(w, http.StatusForbidden, "INVALID_SIGNATURE", "Signature verification failed")
		default:
			s.logger.Error(r.Context(), err.Error())
			writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal error")
		}
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{
		"results": result.Results,
	}, map[string]any{
		"total_matches":             result.TotalMatches,
		"returned_count":            result.ReturnedCount,
		"truncated":                 result.Truncated,
		"execution_time_ms":         result.ExecutionTimeMs,
		"signature_verification_ms": result.SignatureVerificationMs,
		"audit_log_id":              result.AuditLogID,
		"searches_last_hour":        result.SearchesLastHour,
		"key_version_used":          result.KeyVersionUsed,
		"response_padded":           result.ResponsePadded,
	})
}

type createAuditorBody struct {
	Name string `json:"name"`
}

func (s *Server) handleCreateAuditor(w http.ResponseWriter, r *http.Request) {

	var body createAuditorBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid JSON object")
		return
	}

	auditor, privateKey, err := s.auditors.Create(r.Context(), body.Name)
	if err != nil {
		if errors.Is(err, common.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, "INVALID_JSON", "Auditor name is required")
			return
		}
		s.logger.Error(r.Context(), err.Error())
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal error")
		return
	}

	writeSuccess(w, http.StatusCreated, map[string]any{
		"auditor_id":  auditor.ID,
		"name":        auditor.Name,
		"public_key":  auditor.PublicKey,
		"key_version": auditor.KeyVersion,
		"private_key": privateKey,
	}, nil)
}

func (s *Server) handleRotateKey(w http.ResponseWriter, r *http.Request) {

	id := mux.Vars(r)["id"]

	auditor, privateKey, err := s.auditors.RotateKey(r.Context(), id)
	if err != nil {
		if errors.Is(err, common.ErrAuditorNotFound) {
			writeError(w, http.StatusNotFound, "AUDITOR_NOT_FOUND", "Auditor not found")
			return
		}
		s.logger.Error(r.Context(), err.Error())
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal error")
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{
		"auditor_id":  auditor.ID,
		"public_key":  auditor.PublicKey,
		"key_version": auditor.KeyVersion,
		"private_key": privateKey,
	}, nil)
}

type auditView struct {
	ID              string  `json:"id"`
	KeywordHash     string  `json:"keyword_hash"`
	TotalMatches    int     `json:"total_matches"`
	ReturnedCount   int     `json:"returned_count"`
	Truncated       bool    `json:"truncated"`
	ExecutionTimeMs float64 `json:"execution_time_ms"`
	Success         bool    `json:"success"`
	FailureReason   string  `json:"failure_reason,omitempty"`
	KeyVersion      int     `json:"key_version"`
	IPAddress       string  `json:"ip_address,omitempty"`
	CreatedAt       string  `json:"created_at"`
}

func (s *Server) handleListAudits(w http.ResponseWriter, r *http.Request) {

	id := mux.Vars(r)["id"]
	limit := queryLimit(r, defaultListLimit)

	records, err := s.auditors.ListAudits(r.Context(), id, limit)
	if err != nil {
		if errors.Is(err, common.ErrAuditorNotFound) {
			writeError(w, http.StatusNotFound, "AUDITOR_NOT_FOUND", "Auditor not found")
			return
		}
		s.logger.Error(r.Context(), err.Error())
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal error")
		return
	}

	views := make([]auditView, 0, len(records))
	for _, rec := range records {
		views = append(views, auditView{
			ID:              rec.ID,
			KeywordHash:     rec.KeywordHash,
			TotalMatches:    rec.TotalMatches,
			ReturnedCount:   rec.ReturnedCount,
			Truncated:       rec.Truncated,
			ExecutionTimeMs: rec.ExecutionTimeMs,
			Success:         rec.Success,
			FailureReason:   rec.FailureReason,
			KeyVersion:      rec.KeyVersion,
			IPAddress:       rec.IPAddress,
			CreatedAt:       rec.CreatedAt.Format(time.RFC3339),
		})
	}

	writeSuccess(w, http.StatusOK, map[string]any{"audits": views}, map[string]any{"count": len(views)})
}

type documentView struct {
	ID        string `json:"id"`
	Nonce     string `json:"nonce"`
	CreatedAt string `json:"created_at"`
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {

	limit := queryLimit(r, defaultListLimit)

	docs, err := s.documents.ListRecent(r.Context(), limit)
	if err != nil {
		s.logger.Error(r.Context(), err.Error())
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal error")
		return
	}

	views := make([]documentView, 0, len(docs))
	for _, doc := range docs {
		views = append(views, documentView{
			ID:        doc.ID,
			Nonce:     doc.Nonce,
			CreatedAt: doc.CreatedAt.Format(time.RFC3339),
		})
	}

	writeSuccess(w, http.StatusOK, map[string]any{"documents": views}, map[string]any{"count": len(views)})
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {

	id := mux.Vars(r)["id"]

	if err := s.documents.Delete(r.Context(), id); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Document not found")
			return
		}
		s.logger.Error(r.Context(), err.Error())
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal error")
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"message": "Document deleted"}, nil)
}

func queryLimit(r *http.Request, fallback int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

// clientIP prefers the first X-Forwarded-For hop, falling back to the
// connection's remote address.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		parts := strings.Split(fwd, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
