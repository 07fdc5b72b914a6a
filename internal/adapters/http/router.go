package httpadapter

import (
	"encoding/json"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/plumclaims/opd-adjudicator/internal/config"
	"github.com/plumclaims/opd-adjudicator/internal/core/domain"
	"github.com/plumclaims/opd-adjudicator/internal/core/policy"
	"github.com/plumclaims/opd-adjudicator/internal/core/ports"
	"github.com/plumclaims/opd-adjudicator/internal/observability/metrics"
)

type Router struct {
	cfg       config.Config
	submitter ports.ClaimSubmitter
	processor ports.ClaimProcessor
	reader    ports.ClaimReader
	policy    *policy.Configuration
	metrics   *metrics.HTTPServerMetrics
}

func NewRouter(
	cfg config.Config,
	submitter ports.ClaimSubmitter,
	processor ports.ClaimProcessor,
	reader ports.ClaimReader,
	pol *policy.Configuration,
) *Router {
	return &Router{
		cfg:       cfg,
		submitter: submitter,
		processor: processor,
		reader:    reader,
		policy:    pol,
	}
}

// WithMetrics attaches request and intake counters. Nil-safe handlers make
// it optional so tests can build a bare router.
func (rt *Router) WithMetrics(m *metrics.HTTPServerMetrics) *Router {
	rt.metrics = m
	return rt
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/claims", rt.claims)
	mux.HandleFunc("/v1/claims/", rt.claimByID)
	mux.HandleFunc("/v1/policy", rt.policyTerms)
	mux.HandleFunc("/v1/stats", rt.stats)

	var handler http.Handler = mux
	if rt.cfg.APIMaxInFlight > 0 {
		handler = backpressureMiddleware(handler, rt.cfg.APIMaxInFlight, defaultQueueWait)
	}
	if rt.cfg.APIRateLimitRPS > 0 {
		handler = rateLimitMiddleware(handler, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst)
	}
	if rt.metrics != nil {
		handler = rt.metrics.Middleware("api", handler)
	}
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// claims dispatches /v1/claims: POST submits, GET lists.
func (rt *Router) claims(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		rt.submitClaim(w, r)
	case http.MethodGet:
		rt.listClaims(w, r)
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	}
}

func (rt *Router) submitClaim(w http.ResponseWriter, r *http.Request) {
	maxBytes := int64(rt.cfg.MaxUploadMB) << 20
	if maxBytes <= 0 {
		maxBytes = 25 << 20
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	if err := r.ParseMultipartForm(maxBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid multipart form"})
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	amount, err := strconv.ParseFloat(strings.TrimSpace(r.FormValue("claim_amount")), 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "claim_amount must be a number"})
		return
	}
	preAuth, _ := strconv.ParseBool(r.FormValue("pre_auth_obtained"))

	sub := ports.ClaimSubmission{
		EmployeeID:      strings.TrimSpace(r.FormValue("employee_id")),
		PolicyID:        strings.TrimSpace(r.FormValue("policy_id")),
		Category:        strings.TrimSpace(r.FormValue("claim_category")),
		PatientName:     strings.TrimSpace(r.FormValue("patient_name")),
		ClaimAmount:     amount,
		TreatmentDate:   strings.TrimSpace(r.FormValue("treatment_date")),
		HospitalName:    strings.TrimSpace(r.FormValue("hospital_name")),
		PreAuthObtained: preAuth,
	}

	uploads, closers, err := openUploads(r.MultipartForm)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	defer func() {
		for _, c := range closers {
			_ = c.Close()
		}
	}()

	claim, err := rt.submitter.Submit(r.Context(), sub, uploads)
	if err != nil {
		writeError(w, err)
		return
	}

	if rt.metrics != nil {
		rt.metrics.RecordClaimSubmitted("api", string(claim.Category), len(uploads))
	}
	writeJSON(w, http.StatusAccepted, claim)
}

func openUploads(form *multipart.Form) ([]ports.ClaimUpload, []multipart.File, error) {
	if form == nil {
		return nil, nil, nil
	}
	var uploads []ports.ClaimUpload
	var closers []multipart.File
	for _, header := range form.File["documents"] {
		file, err := header.Open()
		if err != nil {
			for _, c := range closers {
				_ = c.Close()
			}
			return nil, nil, err
		}
		closers = append(closers, file)
		uploads = append(uploads, ports.ClaimUpload{
			Filename: header.Filename,
			MimeType: header.Header.Get("Content-Type"),
			Body:     file,
		})
	}
	return uploads, closers, nil
}

func (rt *Router) listClaims(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := domain.ClaimFilter{
		EmployeeID: strings.TrimSpace(query.Get("employee_id")),
		Status:     domain.ClaimStatus(strings.ToUpper(strings.TrimSpace(query.Get("status")))),
	}
	if v := query.Get("limit"); v != "" {
		filter.Limit, _ = strconv.Atoi(v)
	}
	if v := query.Get("offset"); v != "" {
		filter.Offset, _ = strconv.Atoi(v)
	}

	claims, err := rt.reader.List(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	if claims == nil {
		claims = []domain.Claim{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"claims": claims, "count": len(claims)})
}

// claimByID dispatches /v1/claims/{id} and /v1/claims/{id}/process.
func (rt *Router) claimByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/claims/")
	if rest == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "claim id is required"})
		return
	}

	if id, ok := strings.CutSuffix(rest, "/process"); ok {
		if r.Method != http.MethodPost {
			writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
			return
		}
		rt.processClaim(w, r, id)
		return
	}

	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	if strings.Contains(rest, "/") {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}

	claim, err := rt.reader.GetByClaimID(r.Context(), rest)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, claim)
}

func (rt *Router) processClaim(w http.ResponseWriter, r *http.Request, claimID string) {
	if claimID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "claim id is required"})
		return
	}
	if err := rt.processor.ProcessByID(r.Context(), claimID); err != nil {
		writeError(w, err)
		return
	}

	claim, err := rt.reader.GetByClaimID(r.Context(), claimID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, claim)
}

func (rt *Router) policyTerms(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	writeJSON(w, http.StatusOK, rt.policy.Doc())
}

func (rt *Router) stats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	stats, err := rt.reader.Stats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
}
