package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/check-vero/apiserver/internal/services"
	"github.com/check-vero/apiserver/internal/store"
	"github.com/check-vero/apiserver/types"
	"github.com/go-chi/chi/v5"
)

// Reports shorter than this are rejected as too thin to score.
const minDescriptionLength = 10

// ReportHandler provides HTTP handlers for fraud reports.
type ReportHandler struct {
	reportService *services.ReportService
}

func NewReportHandler(reportService *services.ReportService) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

// ReportRouter registers report routes on the given router.
func ReportRouter(r chi.Router, reportService *services.ReportService, authMiddleware func(http.Handler) http.Handler) {
	handler := NewReportHandler(reportService)
	requireCitizen := RequireRole("Only citizens can submit reports", types.RoleCitizen)
	requireAdmin := RequireRole("Admin access required", types.RoleAdmin)

	r.Route("/reports", func(r chi.Router) {
		r.With(authMiddleware, requireCitizen).Post("/submit", handler.Submit)
		r.With(authMiddleware).Get("/my-reports", handler.MyReports)
		r.With(authMiddleware, requireAdmin).Get("/all", handler.AllReports)
		r.With(authMiddleware).Get("/{reportID}/screenshot", handler.Screenshot)
	})
}

type SubmitReportRequest struct {
	ReportType   string `json:"report_type"`
	PhoneNumber  string `json:"phone_number"`
	EmailAddress string `json:"email_address"`
	Description  string `json:"description"`
	Screenshot   string `json:"screenshot"`
}

type SubmitReportResponse struct {
	ReportID string            `json:"report_id"`
	Message  string            `json:"message"`
	Analysis types.RiskVerdict `json:"ai_analysis"`
}

// Submit scores and stores a fraud report for the calling citizen.
func (h *ReportHandler) Submit(w http.ResponseWriter, r *http.Request) {
	claims, err := claimsFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Invalid authentication credentials")
		return
	}

	var req SubmitReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	if !types.ValidReportType(req.ReportType) {
		writeError(w, http.StatusBadRequest, "invalid report_type")
		return
	}
	req.Description = strings.TrimSpace(req.Description)
	if utf8.RuneCountInString(req.Description) < minDescriptionLength {
		writeError(w, http.StatusBadRequest,
			"description must be at least "+strconv.Itoa(minDescriptionLength)+" characters")
		return
	}

	report, err := h.reportService.Submit(r.Context(), services.SubmitReportInput{
		UserID:       claims.UserID,
		ReportType:   req.ReportType,
		PhoneNumber:  strings.TrimSpace(req.PhoneNumber),
		EmailAddress: strings.TrimSpace(req.EmailAddress),
		Description:  req.Description,
		Screenshot:   req.Screenshot,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to submit report")
		return
	}

	writeJSON(w, http.StatusOK, SubmitReportResponse{
		ReportID: report.ID,
		Message:  "Report submitted and analyzed successfully",
		Analysis: report.Analysis,
	})
}

// MyReports lists the caller's own reports, newest first.
func (h *ReportHandler) MyReports(w http.ResponseWriter, r *http.Request) {
	claims, err := claimsFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Invalid authentication credentials")
		return
	}

	reports, err := h.reportService.ListByUser(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list reports")
		return
	}
	writeJSON(w, http.StatusOK, reports)
}

// AllReports lists every report, newest first. Admin only.
func (h *ReportHandler) AllReports(w http.ResponseWriter, r *http.Request) {
	reports, err := h.reportService.ListAll(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list reports")
		return
	}
	writeJSON(w, http.StatusOK, reports)
}

// Screenshot serves the stored screenshot of a report to its owner or an
// admin.
func (h *ReportHandler) Screenshot(w http.ResponseWriter, r *http.Request) {
	claims, err := claimsFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Invalid authentication credentials")
		return
	}

	reportID := chi.URLParam(r, "reportID")
	report, err := h.reportService.GetByID(r.Context(), reportID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Report not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load report")
		return
	}

	if report.UserID != claims.UserID && claims.Role != types.RoleAdmin {
		writeError(w, http.StatusForbidden, "Access denied")
		return
	}

	data, contentType, err := h.reportService.Screenshot(r.Context(), report)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Report has no screenshot")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load screenshot")
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
