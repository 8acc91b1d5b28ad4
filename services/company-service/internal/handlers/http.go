package handlers

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/staffsync/staffsync/libs/httpx"
	"github.com/staffsync/staffsync/libs/lookup"
	"github.com/staffsync/staffsync/libs/syncerr"
	"github.com/staffsync/staffsync/services/company-service/companysync"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// EmployeeLookup resolves member ids for ?extraInfo=true. Entries are nil when a lookup failed.
type EmployeeLookup interface {
	Employees(ctx context.Context, ids []uuid.UUID) []*lookup.EmployeeSummary
}

type Handler struct {
	store     companysync.Store
	producer  *companysync.Producer
	employees EmployeeLookup
	logger    *slog.Logger
}

// New wires the handler. employees may be nil, in which case enriched responses carry no employees.
func New(store companysync.Store, producer *companysync.Producer, employees EmployeeLookup, logger *slog.Logger) *Handler {
	return &Handler{store: store, producer: producer, employees: employees, logger: logger}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /companies", h.Create)
	mux.HandleFunc("GET /companies/all", h.List)
	mux.HandleFunc("GET /companies/{id}", h.Get)
	mux.HandleFunc("PUT /companies/{id}", h.Update)
	mux.HandleFunc("DELETE /companies/{id}", h.Delete)
}

type companyRequest struct {
	Name        string      `json:"name"`
	Budget      string      `json:"budget"`
	EmployeeIDs []uuid.UUID `json:"employeeIds"`
}

type companyResponse struct {
	ID          uuid.UUID   `json:"id"`
	Name        string      `json:"name"`
	Budget      string      `json:"budget"`
	EmployeeIDs []uuid.UUID `json:"employeeIds"`
}

type companyFullResponse struct {
	ID        uuid.UUID                `json:"id"`
	Name      string                   `json:"name"`
	Budget    string                   `json:"budget"`
	Employees []lookup.EmployeeSummary `json:"employees"`
}

type pageResponse struct {
	Content       any `json:"content"`
	Page          int `json:"page"`
	Size          int `json:"size"`
	TotalElements int `json:"totalElements"`
	TotalPages    int `json:"totalPages"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRequest(w, r)
	if !ok {
		return
	}

	c, err := h.producer.Create(r.Context(), companysync.Input{
		Name:      req.Name,
		Budget:    req.Budget,
		MemberIDs: req.EmployeeIDs,
	})
	if err != nil {
		h.writeError(w, r, "failed to create company", err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, map[string]any{
		"id": c.ID,
	})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	c, err := h.store.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, r, "failed to load company", err)
		return
	}

	if extraInfo(r) {
		httpx.WriteJSON(w, http.StatusOK, h.enrich(r.Context(), []companysync.Company{c})[0])
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toResponse(c))
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	req, ok := decodeRequest(w, r)
	if !ok {
		return
	}

	if _, err := h.producer.Update(r.Context(), id, companysync.Input{
		Name:      req.Name,
		Budget:    req.Budget,
		MemberIDs: req.EmployeeIDs,
	}); err != nil {
		h.writeError(w, r, "failed to update company", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.producer.Delete(r.Context(), id); err != nil {
		h.writeError(w, r, "failed to delete company", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page, size, ok := pagination(w, r)
	if !ok {
		return
	}

	companies, total, err := h.store.List(r.Context(), page*size, size)
	if err != nil {
		h.writeError(w, r, "failed to list companies", err)
		return
	}

	var content any
	if extraInfo(r) {
		content = h.enrich(r.Context(), companies)
	} else {
		out := make([]companyResponse, 0, len(companies))
		for _, c := range companies {
			out = append(out, toResponse(c))
		}
		content = out
	}

	httpx.WriteJSON(w, http.StatusOK, pageResponse{
		Content:       content,
		Page:          page,
		Size:          size,
		TotalElements: total,
		TotalPages:    (total + size - 1) / size,
	})
}

// enrich keeps only the members whose lookup succeeded.
func (h *Handler) enrich(ctx context.Context, companies []companysync.Company) []companyFullResponse {
	out := make([]companyFullResponse, 0, len(companies))
	for _, c := range companies {
		full := companyFullResponse{ID: c.ID, Name: c.Name, Budget: c.Budget, Employees: []lookup.EmployeeSummary{}}
		if h.employees != nil {
			for _, emp := range h.employees.Employees(ctx, c.MemberIDs) {
				if emp != nil {
					full.Employees = append(full.Employees, *emp)
				}
			}
		}
		out = append(out, full)
	}
	return out
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	switch {
	case errors.Is(err, syncerr.ErrNotFound):
		http.Error(w, "company not found", http.StatusNotFound)
	case errors.Is(err, syncerr.ErrAlreadyExists):
		http.Error(w, "company already registered", http.StatusConflict)
	default:
		h.logger.Error(msg, "request_id", httpx.RequestIDFromContext(r.Context()), "err", err)
		http.Error(w, msg, http.StatusInternalServerError)
	}
}

func decodeRequest(w http.ResponseWriter, r *http.Request) (companyRequest, bool) {
	var req companyRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return req, false
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Budget = strings.TrimSpace(req.Budget)
	if req.Name == "" || req.Budget == "" {
		http.Error(w, "name and budget required", http.StatusBadRequest)
		return req, false
	}
	for _, id := range req.EmployeeIDs {
		if id == uuid.Nil {
			http.Error(w, "invalid employeeIds", http.StatusBadRequest)
			return req, false
		}
	}
	return req, true
}

func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid company id", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

func pagination(w http.ResponseWriter, r *http.Request) (page, size int, ok bool) {
	page, size = 0, defaultPageSize
	q := r.URL.Query()
	if v := q.Get("page"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil || p < 0 {
			http.Error(w, "invalid page", http.StatusBadRequest)
			return 0, 0, false
		}
		page = p
	}
	if v := q.Get("size"); v != "" {
		s, err := strconv.Atoi(v)
		if err != nil || s <= 0 {
			http.Error(w, "invalid size", http.StatusBadRequest)
			return 0, 0, false
		}
		size = min(s, maxPageSize)
	}
	if page > math.MaxInt/size {
		http.Error(w, "invalid page", http.StatusBadRequest)
		return 0, 0, false
	}
	return page, size, true
}

func extraInfo(r *http.Request) bool {
	v, _ := strconv.ParseBool(r.URL.Query().Get("extraInfo"))
	return v
}

func toResponse(c companysync.Company) companyResponse {
	ids := c.MemberIDs
	if ids == nil {
		ids = []uuid.UUID{}
	}
	return companyResponse{ID: c.ID, Name: c.Name, Budget: c.Budget, EmployeeIDs: ids}
}
