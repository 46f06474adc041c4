package admin

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dmitrymomot/tenantkit/pkg/audit"
	"github.com/dmitrymomot/tenantkit/pkg/directory"
	"github.com/dmitrymomot/tenantkit/pkg/quota"
	"github.com/dmitrymomot/tenantkit/pkg/tenant"
)

// AuditReader lists recorded events for a tenant. Optional; the audit
// routes are mounted only when one is provided.
type AuditReader interface {
	Query(ctx context.Context, c audit.Criteria) ([]audit.Event, error)
}

// Deps wires the administrative surface. Directory is required; quota and
// audit are optional read-only views.
//
// Authentication is deliberately absent: this router must be mounted
// behind the deployment's operator authentication, never exposed to
// tenant traffic.
type Deps struct {
	Directory *directory.Service
	Quota     *quota.Service
	Audit     AuditReader
	Logger    *slog.Logger
}

type handlers struct {
	dir   *directory.Service
	quota *quota.Service
	audit AuditReader
	log   *slog.Logger
}

// Router builds the administrative API for the tenant directory.
func Router(deps Deps) chi.Router {
	if deps.Directory == nil {
		panic("admin: directory service is required")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	h := &handlers{
		dir:   deps.Directory,
		quota: deps.Quota,
		audit: deps.Audit,
		log:   deps.Logger,
	}

	r := chi.NewRouter()
	r.Route("/tenants", func(r chi.Router) {
		r.Post("/", h.provision)
		r.Route("/{tenantID}", func(r chi.Router) {
			r.Get("/", h.get)
			r.Delete("/", h.remove)
			r.Post("/suspend", h.suspend)
			r.Post("/resume", h.resume)
			r.Post("/rotate-key", h.rotateKey)
			if h.quota != nil {
				r.Get("/usage", h.usage)
			}
			if h.audit != nil {
				r.Get("/audit", h.auditTrail)
			}
		})
	})
	return r
}

func (h *handlers) provision(w http.ResponseWriter, r *http.Request) {
	var req ProvisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "invalid_json", err)
		return
	}

	rec, rawKey, err := h.dir.Provision(r.Context(), directory.ProvisionInput{
		Name:         req.Name,
		Subdomain:    req.Subdomain,
		CustomDomain: req.CustomDomain,
		PlanID:       req.PlanID,
	})
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, ProvisionResponse{
		Tenant: tenantResponse(rec),
		APIKey: rawKey,
	})
}

func (h *handlers) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.tenantID(w, r)
	if !ok {
		return
	}

	rec, err := h.dir.Get(r.Context(), id)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, tenantResponse(rec))
}

func (h *handlers) suspend(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.dir.Suspend)
}

func (h *handlers) resume(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.dir.Resume)
}

func (h *handlers) remove(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.dir.Delete)
}

func (h *handlers) transition(w http.ResponseWriter, r *http.Request, op func(context.Context, uuid.UUID) error) {
	id, ok := h.tenantID(w, r)
	if !ok {
		return
	}

	if err := op(r.Context(), id); err != nil {
		h.writeFailure(w, r, err)
		return
	}

	rec, err := h.dir.Get(r.Context(), id)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, tenantResponse(rec))
}

func (h *handlers) rotateKey(w http.ResponseWriter, r *http.Request) {
	id, ok := h.tenantID(w, r)
	if !ok {
		return
	}

	rawKey, err := h.dir.RotateAPIKey(r.Context(), id)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, RotateKeyResponse{APIKey: rawKey})
}

func (h *handlers) usage(w http.ResponseWriter, r *http.Request) {
	id, ok := h.tenantID(w, r)
	if !ok {
		return
	}

	// 404 for unknown tenants before consulting counters.
	if _, err := h.dir.Get(r.Context(), id); err != nil {
		h.writeFailure(w, r, err)
		return
	}

	usage, err := h.quota.AllUsage(r.Context(), id)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, usage)
}

func (h *handlers) auditTrail(w http.ResponseWriter, r *http.Request) {
	id, ok := h.tenantID(w, r)
	if !ok {
		return
	}

	criteria := audit.Criteria{TenantID: id, Limit: 100}
	if action := r.URL.Query().Get("action"); action != "" {
		criteria.Action = action
	}

	events, err := h.audit.Query(r.Context(), criteria)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	if events == nil {
		events = []audit.Event{}
	}
	h.writeJSON(w, http.StatusOK, events)
}

func (h *handlers) tenantID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "tenantID"))
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, "invalid_tenant_id", err)
		return uuid.Nil, false
	}
	return id, true
}

// writeFailure maps domain errors onto administrative status codes. Unlike
// the tenant-facing surface, this API is explicit about what went wrong;
// it only ever speaks to operators.
func (h *handlers) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, tenant.ErrNotFound):
		h.writeError(w, r, http.StatusNotFound, "tenant_not_found", err)
	case errors.Is(err, tenant.ErrMalformedSignal), errors.Is(err, directory.ErrInvalidRecord):
		h.writeError(w, r, http.StatusUnprocessableEntity, "invalid_record", err)
	case errors.Is(err, directory.ErrKeyTaken):
		h.writeError(w, r, http.StatusConflict, "key_taken", err)
	case errors.Is(err, directory.ErrInvalidTransition):
		h.writeError(w, r, http.StatusConflict, "invalid_transition", err)
	case errors.Is(err, quota.ErrUnknownPlan):
		h.writeError(w, r, http.StatusConflict, "unknown_plan", err)
	default:
		h.writeError(w, r, http.StatusInternalServerError, "internal_error", err)
	}
}

func (h *handlers) writeError(w http.ResponseWriter, r *http.Request, status int, code string, err error) {
	if status >= http.StatusInternalServerError {
		h.log.ErrorContext(r.Context(), "admin request failed",
			slog.String("path", r.URL.Path),
			slog.Any("error", err),
		)
	}
	h.writeJSON(w, status, map[string]string{"error": code})
}

func (h *handlers) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
