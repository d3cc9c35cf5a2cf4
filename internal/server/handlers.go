package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/vanshika/docstore/internal/domain"
	"github.com/vanshika/docstore/internal/files"
	"github.com/vanshika/docstore/internal/service"
	"github.com/vanshika/docstore/internal/storage"
)

// multipartMemoryLimit bounds how much of a multipart body is held in
// memory before spilling to temporary files.
const multipartMemoryLimit = 32 << 20

// APIHandlers exposes HTTP handlers for the REST API.
type APIHandlers struct {
	logger  *slog.Logger
	records *service.RecordService
	files   *service.FileService
}

// NewAPIHandlers constructs an APIHandlers instance.
func NewAPIHandlers(logger *slog.Logger, records *service.RecordService, fileSvc *service.FileService) *APIHandlers {
	return &APIHandlers{
		logger:  logger,
		records: records,
		files:   fileSvc,
	}
}

func (h *APIHandlers) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	respondJSON(w, http.StatusOK, apiResponse{
		Status:  "success",
		Message: "DocStore API is running",
	})
}

func (h *APIHandlers) handleConfigPath(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.getRootPath(w, r)
	case http.MethodPost:
		h.setRootPath(w, r)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

func (h *APIHandlers) getRootPath(w http.ResponseWriter, _ *http.Request) {
	path, ok := h.files.RootPath()
	if !ok {
		respondJSON(w, http.StatusOK, apiResponse{
			Status:  "not_set",
			Message: "Root path has not been set",
		})
		return
	}
	respondJSON(w, http.StatusOK, apiResponse{
		Status:  "success",
		Message: path,
	})
}

func (h *APIHandlers) setRootPath(w http.ResponseWriter, r *http.Request) {
	var payload setRootPathRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if payload.Path == "" {
		writeError(w, http.StatusBadRequest, "path is required")
		return
	}

	canonical, err := h.files.SetRootPath(payload.Path)
	if err != nil {
		if errors.Is(err, files.ErrInvalidPath) {
			writeError(w, http.StatusBadRequest, "Invalid path: directory does not exist")
			return
		}
		h.logger.Error("failed to set root path", "error", err, "path", payload.Path)
		writeError(w, http.StatusInternalServerError, "failed to set root path")
		return
	}

	respondJSON(w, http.StatusOK, apiResponse{
		Status:  "success",
		Message: "Root path set to: " + canonical,
	})
}

func (h *APIHandlers) handleFile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	relPath := strings.TrimPrefix(r.URL.Path, "/files/")
	full, err := h.files.ResolveFile(relPath)
	if err != nil {
		if errors.Is(err, files.ErrRootNotConfigured) {
			writeError(w, http.StatusServiceUnavailable, "Root path not configured")
			return
		}
		// Invalid and missing paths look the same to the caller.
		writeError(w, http.StatusNotFound, "file not found")
		return
	}

	f, err := os.Open(full)
	if err != nil {
		h.logger.Error("failed to open resolved file", "error", err, "path", full)
		writeError(w, http.StatusNotFound, "file not found")
		return
	}
	defer f.Close()

	contentType := mime.TypeByExtension(filepath.Ext(full))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, f); err != nil {
		h.logger.Warn("failed to stream file", "error", err, "path", full)
	}
}

func (h *APIHandlers) handleUpload(w http.ResponseWriter, r *http.Request) {
	// The mux prefers this longer pattern, so a GET for a stored file
	// whose relative path begins with "upload/" lands here. Hand it to
	// the file handler instead of answering 405.
	if r.Method == http.MethodGet {
		h.handleFile(w, r)
		return
	}
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
		return
	}

	idStr := strings.Trim(strings.TrimPrefix(r.URL.Path, "/files/upload/"), "/")
	clientID, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || clientID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid client id")
		return
	}

	if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
		writeError(w, http.StatusBadRequest, "failed to parse multipart form data")
		return
	}

	var (
		incoming []files.Incoming
		parts    []multipart.File
	)
	if r.MultipartForm != nil {
		for _, header := range r.MultipartForm.File["files"] {
			f, err := header.Open()
			if err != nil {
				h.logger.Warn("failed to open multipart file", "error", err, "name", header.Filename)
				continue
			}
			parts = append(parts, f)
			incoming = append(incoming, files.Incoming{
				Name:   header.Filename,
				Reader: f,
				Size:   header.Size,
			})
		}
	}

	saved, err := h.files.SaveUploads(clientID, incoming)
	closeParts(parts)
	if err != nil {
		if errors.Is(err, files.ErrRootNotConfigured) {
			writeError(w, http.StatusServiceUnavailable, "Root path not configured")
			return
		}
		h.logger.Error("upload failed", "error", err, "client_id", clientID)
		writeError(w, http.StatusInternalServerError, "Failed to create client directory")
		return
	}

	respondJSON(w, http.StatusOK, fileListResponse{Files: saved})
}

func (h *APIHandlers) handleClients(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listClients(w, r)
	case http.MethodPost:
		h.createClient(w, r)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

func (h *APIHandlers) listClients(w http.ResponseWriter, r *http.Request) {
	clients, err := h.records.ListClients(r.Context())
	if err != nil {
		h.logger.Error("failed to list clients", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list clients")
		return
	}

	resp := make([]clientResponse, 0, len(clients))
	for _, c := range clients {
		resp = append(resp, toClientResponse(c))
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *APIHandlers) createClient(w http.ResponseWriter, r *http.Request) {
	var payload clientRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	id, err := h.records.CreateClient(r.Context(), domain.ClientInput{
		FirstName:            payload.FirstName,
		LastName:             payload.LastName,
		SocialSecurityNumber: payload.SocialSecurityNumber,
		Address:              payload.Address,
		PhoneNumber:          payload.PhoneNumber,
		Email:                payload.Email,
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("failed to create client", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to persist client")
		return
	}

	respondJSON(w, http.StatusCreated, statusResponse{Status: "success", ID: id})
}

func (h *APIHandlers) handleClientSubtree(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/clients/"), "/")
	parts := strings.Split(rest, "/")
	clientID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || clientID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid client id")
		return
	}

	switch {
	case len(parts) == 1:
		h.getClient(w, r, clientID)
	case len(parts) == 2 && parts[1] == "files":
		h.listClientFiles(w, clientID)
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (h *APIHandlers) getClient(w http.ResponseWriter, r *http.Request, clientID int64) {
	client, err := h.records.GetClient(r.Context(), clientID)
	if err != nil {
		h.logger.Error("failed to fetch client", "error", err, "client_id", clientID)
		writeError(w, http.StatusInternalServerError, "failed to fetch client")
		return
	}
	if client == nil {
		writeError(w, http.StatusNotFound, "client not found")
		return
	}
	respondJSON(w, http.StatusOK, toClientResponse(*client))
}

func (h *APIHandlers) listClientFiles(w http.ResponseWriter, clientID int64) {
	names, err := h.files.ListClientFiles(clientID)
	if err != nil {
		if errors.Is(err, files.ErrRootNotConfigured) {
			writeError(w, http.StatusServiceUnavailable, "Root path not configured")
			return
		}
		h.logger.Error("failed to list client files", "error", err, "client_id", clientID)
		writeError(w, http.StatusInternalServerError, "failed to list client files")
		return
	}
	respondJSON(w, http.StatusOK, names)
}

func (h *APIHandlers) handleReturns(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listReturns(w, r)
	case http.MethodPost:
		h.createReturn(w, r)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

func (h *APIHandlers) listReturns(w http.ResponseWriter, r *http.Request) {
	var clientID *int64
	if v := r.URL.Query().Get("client_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid client_id")
			return
		}
		clientID = &id
	}

	returns, err := h.records.ListTaxReturns(r.Context(), clientID)
	if err != nil {
		h.logger.Error("failed to list tax returns", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list tax returns")
		return
	}

	resp := make([]taxReturnResponse, 0, len(returns))
	for _, ret := range returns {
		resp = append(resp, toTaxReturnResponse(ret))
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *APIHandlers) createReturn(w http.ResponseWriter, r *http.Request) {
	var payload taxReturnRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	id, err := h.records.CreateTaxReturn(r.Context(), domain.TaxReturnInput{
		ClientID:          payload.ClientID,
		TaxYear:           payload.TaxYear,
		FilingStatus:      payload.FilingStatus,
		IncomeSources:     payload.IncomeSources,
		Deductions:        payload.Deductions,
		Credits:           payload.Credits,
		TaxesPaid:         payload.TaxesPaid,
		TaxLiability:      payload.TaxLiability,
		RefundOrAmountDue: payload.RefundOrAmountDue,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, storage.ErrClientNotFound):
			writeError(w, http.StatusUnprocessableEntity, "client does not exist")
		default:
			h.logger.Error("failed to create tax return", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to persist tax return")
		}
		return
	}

	respondJSON(w, http.StatusCreated, statusResponse{Status: "success", ID: id})
}

func (h *APIHandlers) handleReturnByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	idStr := strings.Trim(strings.TrimPrefix(r.URL.Path, "/returns/"), "/")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid tax return id")
		return
	}

	ret, err := h.records.GetTaxReturn(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to fetch tax return", "error", err, "tax_return_id", id)
		writeError(w, http.StatusInternalServerError, "failed to fetch tax return")
		return
	}
	if ret == nil {
		writeError(w, http.StatusNotFound, "tax return not found")
		return
	}
	respondJSON(w, http.StatusOK, toTaxReturnResponse(*ret))
}

// --- Request & Response DTOs ---

type apiResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type statusResponse struct {
	Status string `json:"status"`
	ID     int64  `json:"id"`
}

type setRootPathRequest struct {
	Path string `json:"path"`
}

type fileListResponse struct {
	Files []string `json:"files"`
}

type clientRequest struct {
	FirstName            string `json:"first_name"`
	LastName             string `json:"last_name"`
	SocialSecurityNumber string `json:"social_security_number"`
	Address              string `json:"address"`
	PhoneNumber          string `json:"phone_number"`
	Email                string `json:"email"`
}

type clientResponse struct {
	ClientID             int64  `json:"client_id"`
	FirstName            string `json:"first_name"`
	LastName             string `json:"last_name"`
	SocialSecurityNumber string `json:"social_security_number"`
	Address              string `json:"address"`
	PhoneNumber          string `json:"phone_number"`
	Email                string `json:"email"`
	CreatedAt            string `json:"created_at"`
	UpdatedAt            string `json:"updated_at"`
}

type taxReturnRequest struct {
	ClientID          int64              `json:"client_id"`
	TaxYear           int                `json:"tax_year"`
	FilingStatus      string             `json:"filing_status"`
	IncomeSources     map[string]float64 `json:"income_sources"`
	Deductions        map[string]float64 `json:"deductions"`
	Credits           map[string]float64 `json:"credits"`
	TaxesPaid         float64            `json:"taxes_paid"`
	TaxLiability      float64            `json:"tax_liability"`
	RefundOrAmountDue float64            `json:"refund_or_amount_due"`
}

type taxReturnResponse struct {
	TaxReturnID       int64              `json:"tax_return_id"`
	ClientID          int64              `json:"client_id"`
	TaxYear           int                `json:"tax_year"`
	FilingStatus      string             `json:"filing_status"`
	IncomeSources     map[string]float64 `json:"income_sources"`
	Deductions        map[string]float64 `json:"deductions"`
	Credits           map[string]float64 `json:"credits"`
	TaxesPaid         float64            `json:"taxes_paid"`
	TaxLiability      float64            `json:"tax_liability"`
	RefundOrAmountDue float64            `json:"refund_or_amount_due"`
	CreatedAt         string             `json:"created_at"`
	UpdatedAt         string             `json:"updated_at"`
}

// --- Helpers ---

func toClientResponse(c domain.Client) clientResponse {
	return clientResponse{
		ClientID:             c.ID,
		FirstName:            c.FirstName,
		LastName:             c.LastName,
		SocialSecurityNumber: c.SocialSecurityNumber,
		Address:              c.Address,
		PhoneNumber:          c.PhoneNumber,
		Email:                c.Email,
		CreatedAt:            formatTime(c.CreatedAt),
		UpdatedAt:            formatTime(c.UpdatedAt),
	}
}

func toTaxReturnResponse(ret domain.TaxReturn) taxReturnResponse {
	return taxReturnResponse{
		TaxReturnID:       ret.ID,
		ClientID:          ret.ClientID,
		TaxYear:           ret.TaxYear,
		FilingStatus:      ret.FilingStatus,
		IncomeSources:     ret.IncomeSources,
		Deductions:        ret.Deductions,
		Credits:           ret.Credits,
		TaxesPaid:         ret.TaxesPaid,
		TaxLiability:      ret.TaxLiability,
		RefundOrAmountDue: ret.RefundOrAmountDue,
		CreatedAt:         formatTime(ret.CreatedAt),
		UpdatedAt:         formatTime(ret.UpdatedAt),
	}
}

func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return errors.New("request body is required")
	}
	defer r.Body.Close()

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, apiResponse{
		Status:  "error",
		Message: msg,
	})
}

// closeParts releases multipart file handles once their contents have
// been consumed; they must not stay open for the rest of the request.
func closeParts(parts []multipart.File) {
	for _, p := range parts {
		p.Close()
	}
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}
