package httpadapter

import (
	"encoding/json"
	"math"
	"net/http"
	"strings"

	"github.com/kirillkom/ragqa/internal/core/domain"
	"github.com/kirillkom/ragqa/internal/core/ports"
	"github.com/kirillkom/ragqa/internal/observability/metrics"
)

type RouterConfig struct {
	ServiceName      string
	DefaultTopK      int
	DefaultThreshold float64
	RateLimitRPS     float64
	RateLimitBurst   int
}

type Router struct {
	answerUC ports.AnswerService
	corpusUC ports.CorpusAdmin
	repo     ports.DocumentRepository
	metrics  *metrics.HTTPServerMetrics
	cfg      RouterConfig
}

func NewRouter(
	answerUC ports.AnswerService,
	corpusUC ports.CorpusAdmin,
	repo ports.DocumentRepository,
	m *metrics.HTTPServerMetrics,
	cfg RouterConfig,
) *Router {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "ragqa-api"
	}
	if cfg.DefaultTopK <= 0 {
		cfg.DefaultTopK = 3
	}
	if cfg.DefaultThreshold == 0 {
		cfg.DefaultThreshold = 0.3
	}
	return &Router{
		answerUC: answerUC,
		corpusUC: corpusUC,
		repo:     repo,
		metrics:  m,
		cfg:      cfg,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/query", rt.query)
	mux.HandleFunc("/v1/documents", rt.documents)
	mux.HandleFunc("/v1/documents/", rt.documentBySource)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	handler = rateLimitMiddleware(handler, rt.cfg.RateLimitRPS, rt.cfg.RateLimitBurst)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(rt.cfg.ServiceName, handler)
	}
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) query(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		Question  string   `json:"question"`
		TopK      int      `json:"top_k"`
		Threshold *float64 `json:"threshold"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "question is required"})
		return
	}

	topK := req.TopK
	if topK <= 0 {
		topK = rt.cfg.DefaultTopK
	}
	threshold := rt.cfg.DefaultThreshold
	if req.Threshold != nil {
		threshold = *req.Threshold
	}
	if math.IsNaN(threshold) || threshold < 0 || threshold > 1 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "threshold must be within [0, 1]"})
		return
	}

	result, err := rt.answerUC.Answer(r.Context(), req.Question, topK, threshold)
	if err != nil {
		if rt.metrics != nil {
			rt.metrics.RecordQueryError(rt.cfg.ServiceName)
		}
		rt.writeError(w, err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordQuery(rt.cfg.ServiceName, result)
	}

	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) documents(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		rt.listDocuments(w, r)
	case http.MethodPost:
		rt.uploadDocument(w, r)
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	}
}

func (rt *Router) listDocuments(w http.ResponseWriter, r *http.Request) {
	sources, err := rt.corpusUC.ListSources(r.Context())
	if err != nil {
		rt.writeError(w, err)
		return
	}

	var records []domain.DocumentRecord
	if rt.repo != nil {
		records, err = rt.repo.ListRecords(r.Context())
		if err != nil {
			rt.writeError(w, err)
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"sources": sources,
		"records": records,
	})
}

func (rt *Router) uploadDocument(w http.ResponseWriter, r *http.Request) {
	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	rec, err := rt.corpusUC.Upload(
		r.Context(),
		fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"),
		file,
	)
	if err != nil {
		rt.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, rec)
}

func (rt *Router) documentBySource(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	source := strings.TrimPrefix(r.URL.Path, "/v1/documents/")
	if source == "" || strings.Contains(source, "/") {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "document source is required"})
		return
	}

	if err := rt.corpusUC.Delete(r.Context(), source); err != nil {
		rt.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted", "source": source})
}

func (rt *Router) writeError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
