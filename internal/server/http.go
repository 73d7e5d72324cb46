package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"

	"hurracloud.io/jadwal/internal/backend"
	"hurracloud.io/jadwal/internal/indexer"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type httpHandler struct {
	indexer *indexer.Indexer
}

// NewHTTPHandler routes:
//
//	POST /index   {"file_path": ...}  202, 403 unsupported, 404 missing
//	POST /reindex {"dir_path": ...}   202, 400 invalid directory
//	GET  /search  ?q=&query_type=&page=&per_page=
//	GET  /status  ?file_path=
func NewHTTPHandler(idx *indexer.Indexer) http.Handler {
	h := &httpHandler{indexer: idx}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /index", h.handleIndex)
	mux.HandleFunc("POST /reindex", h.handleReindex)
	mux.HandleFunc("GET /search", h.handleSearch)
	mux.HandleFunc("GET /status", h.handleStatus)
	return logRequests(mux)
}

func (h *httpHandler) handleIndex(w http.ResponseWriter, r *http.Request) {
	var req IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.FilePath == "" {
		jsonResponse(w, http.StatusBadRequest, ErrorResponse{Error: "file_path is required"})
		return
	}

	log.Infof("Received index request for %s", req.FilePath)
	err := h.indexer.Ingest(req.FilePath)
	switch indexer.OutcomeOf(err) {
	case indexer.OutcomeAccepted:
		jsonResponse(w, http.StatusAccepted, indexer.DispatchResult{FilePath: req.FilePath, Outcome: indexer.OutcomeAccepted})
	case indexer.OutcomeUnsupported:
		log.Errorf("%s not yet supported", req.FilePath)
		jsonResponse(w, http.StatusForbidden, ErrorResponse{Error: err.Error()})
	case indexer.OutcomeNotFound:
		jsonResponse(w, http.StatusNotFound, ErrorResponse{Error: err.Error()})
	default:
		jsonResponse(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
	}
}

func (h *httpHandler) handleReindex(w http.ResponseWriter, r *http.Request) {
	var req ReindexRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.DirPath == "" {
		jsonResponse(w, http.StatusBadRequest, ErrorResponse{Error: "dir_path is required"})
		return
	}

	results, err := h.indexer.Reindex(r.Context(), req.DirPath)
	if errors.Is(err, indexer.InvalidDirectoryError) {
		jsonResponse(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	if err != nil {
		log.Errorf("Reindex of %s failed: %v", req.DirPath, err)
		jsonResponse(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	jsonResponse(w, http.StatusAccepted, ReindexResponse{Results: results})
}

func (h *httpHandler) handleSearch(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	if !params.Has("q") {
		jsonResponse(w, http.StatusBadRequest, ErrorResponse{Error: "Query 'q' is required"})
		return
	}

	queryType, err := backend.ParseQueryType(params.Get("query_type"))
	if err != nil {
		jsonResponse(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	page, err := intParam(params.Get("page"), "page")
	if err != nil {
		jsonResponse(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	perPage, err := intParam(params.Get("per_page"), "per_page")
	if err != nil {
		jsonResponse(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	docs, err := h.indexer.Search(r.Context(), params.Get("q"), queryType, page, perPage)
	switch {
	case errors.Is(err, backend.InvalidQueryError), errors.Is(err, indexer.InvalidPageError):
		jsonResponse(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case err != nil:
		log.Errorf("Error while searching: %v", err)
		jsonResponse(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
	default:
		jsonResponse(w, http.StatusOK, docs)
	}
}

func (h *httpHandler) handleStatus(w http.ResponseWriter, r *http.Request) {
	filePath := r.URL.Query().Get("file_path")
	if filePath == "" {
		jsonResponse(w, http.StatusOK, h.indexer.Status.List())
		return
	}

	st, ok := h.indexer.Status.Get(filePath)
	if !ok {
		jsonResponse(w, http.StatusNotFound, ErrorResponse{Error: fmt.Sprintf("No status for %s", filePath)})
		return
	}
	jsonResponse(w, http.StatusOK, st)
}

func intParam(value, name string) (int, error) {
	if value == "" {
		return 0, fmt.Errorf("Query '%s' is required", name)
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("Query '%s' must be an integer", name)
	}
	return n, nil
}

func jsonResponse(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Warningf("Failed to write response: %v", err)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		log.WithFields(log.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": time.Since(start),
		}).Info("Handled request")
	})
}
