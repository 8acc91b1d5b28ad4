package handlers

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/staffsync/staffsync/libs/httpx"
	"github.com/staffsync/staffsync/libs/lookup"
	"github.com/staffsync/staffsync/libs/syncerr"
	"github.com/staffsync/staffsync/services/employee-service/employeesync"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// phonePattern accepts international numbers such as "+7 (900) 123-45-67".
var phonePattern = regexp.MustCompile(`^\+\d{1,3}\s?(\(\d+\))?[\d\s\-]{4,}$`)

// CompanyLookup resolves employers for ?extraInfo=true. Entries are nil when
// the employee has no employer or the lookup failed.
type CompanyLookup interface {
	Companies(ctx context.Context, ids []uuid.NullUUID) []*lookup.CompanySummary
}

type Handler struct {
	store     employeesync.Store
	producer  *employeesync.Producer
	companies CompanyLookup
	logger    *slog.Logger
}

// New wires the handler. companies may be nil, in which case enriched responses carry no company.
func New(store employeesync.Store, producer *employeesync.Producer, companies CompanyLookup, logger *slog.Logger) *Handler {
	return &Handler{store: store, producer: producer, companies: companies, logger: logger}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /employees", h.Create)
	mux.HandleFunc("GET /employees/all", h.List)
	mux.HandleFunc("GET /employees/{id}", h.Get)
	mux.HandleFunc("PUT /employees/{id}", h.Update)
	mux.HandleFunc("DELETE /employees/{id}", h.Delete)
}

type employeeRequest struct {
	FirstName string     `json:"firstName"`
	LastName  string     `json:"lastName"`
	Phone     string     `json:"phone"`
	CompanyID *uuid.UUID `json:"companyId"`
}

type employeeResponse struct {
	ID        uuid.UUID  `json:"id"`
	FirstName string     `json:"firstName"`
	LastName  string     `json:"lastName"`
	Phone     string     `json:"phone"`
	CompanyID *uuid.UUID `json:"companyId"`
}

type companyBrief struct {
	ID     uuid.UUID `json:"id"`
	Name   string    `json:"name"`
	Budget string    `json:"budget"`
}

type employeeFullResponse struct {
	ID        uuid.UUID     `json:"id"`
	FirstName string        `json:"firstName"`
	LastName  string        `json:"lastName"`
	Phone     string        `json:"phone"`
	Company   *companyBrief `json:"company"`
}

type pageResponse struct {
	Content       any `json:"content"`
	Page          int `json:"page"`
	Size          int `json:"size"`
	TotalElements int `json:"totalElements"`
	TotalPages    int `json:"totalPages"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	in, ok := decodeRequest(w, r)
	if !ok {
		return
	}

	e, err := h.producer.Create(r.Context(), in)
	if err != nil {
		h.writeError(w, r, "failed to create employee", err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, map[string]any{
		"id": e.ID,
	})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	e, err := h.store.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, r, "failed to load employee", err)
		return
	}

	if extraInfo(r) {
		httpx.WriteJSON(w, http.StatusOK, h.enrich(r.Context(), []employeesync.Employee{e})[0])
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toResponse(e))
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	in, ok := decodeRequest(w, r)
	if !ok {
		return
	}

	if _, err := h.producer.Update(r.Context(), id, in); err != nil {
		h.writeError(w, r, "failed to update employee", err)
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
		h.writeError(w, r, "failed to delete employee", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page, size, ok := pagination(w, r)
	if !ok {
		return
	}

	employees, total, err := h.store.List(r.Context(), page*size, size)
	if err != nil {
		h.writeError(w, r, "failed to list employees", err)
		return
	}

	var content any
	if extraInfo(r) {
		content = h.enrich(r.Context(), employees)
	} else {
		out := make([]employeeResponse, 0, len(employees))
		for _, e := range employees {
			out = append(out, toResponse(e))
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

func (h *Handler) enrich(ctx context.Context, employees []employeesync.Employee) []employeeFullResponse {
	var companies []*lookup.CompanySummary
	if h.companies != nil {
		ids := make([]uuid.NullUUID, len(employees))
		for i, e := range employees {
			ids[i] = e.EmployerID
		}
		companies = h.companies.Companies(ctx, ids)
	}

	out := make([]employeeFullResponse, 0, len(employees))
	for i, e := range employees {
		full := employeeFullResponse{ID: e.ID, FirstName: e.FirstName, LastName: e.LastName, Phone: e.Phone}
		if i < len(companies) && companies[i] != nil {
			full.Company = &companyBrief{ID: companies[i].ID, Name: companies[i].Name, Budget: companies[i].Budget}
		}
		out = append(out, full)
	}
	return out
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	switch {
	case errors.Is(err, syncerr.ErrNotFound):
		http.Error(w, "employee not found", http.StatusNotFound)
	case errors.Is(err, syncerr.ErrAlreadyExists):
		http.Error(w, "employee already exists", http.StatusConflict)
	default:
		h.logger.Error(msg, "request_id", httpx.RequestIDFromContext(r.Context()), "err", err)
		http.Error(w, msg, http.StatusInternalServerError)
	}
}

func decodeRequest(w http.ResponseWriter, r *http.Request) (employeesync.Input, bool) {
	var req employeeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return employeesync.Input{}, false
	}
	in := employeesync.Input{
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Phone:     strings.TrimSpace(req.Phone),
	}
	if in.FirstName == "" || in.LastName == "" {
		http.Error(w, "firstName and lastName required", http.StatusBadRequest)
		return employeesync.Input{}, false
	}
	if !phonePattern.MatchString(in.Phone) {
		http.Error(w, "phone must be a valid number", http.StatusBadRequest)
		return employeesync.Input{}, false
	}
	if req.CompanyID != nil && *req.CompanyID != uuid.Nil {
		in.EmployerID = uuid.NullUUID{UUID: *req.CompanyID, Valid: true}
	}
	return in, true
}

func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid employee id", http.StatusBadRequest)
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

func toResponse(e employeesync.Employee) employeeResponse {
	resp := employeeResponse{ID: e.ID, FirstName: e.FirstName, LastName: e.LastName, Phone: e.Phone}
	if e.EmployerID.Valid {
		id := e.EmployerID.UUID
		resp.CompanyID = &id
	}
	return resp
}
