package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/check-vero/apiserver/internal/services"
	"github.com/check-vero/apiserver/internal/store"
	"github.com/check-vero/apiserver/types"
	"github.com/go-chi/chi/v5"
)

// PhoneHandler provides HTTP handlers for the phone-number registry.
type PhoneHandler struct {
	phoneService *services.PhoneService
}

func NewPhoneHandler(phoneService *services.PhoneService) *PhoneHandler {
	return &PhoneHandler{phoneService: phoneService}
}

// PhoneRouter registers phone-number routes on the given router. The
// verification lookup is public; registration and listing require a
// business or admin token.
func PhoneRouter(r chi.Router, phoneService *services.PhoneService, authMiddleware func(http.Handler) http.Handler) {
	handler := NewPhoneHandler(phoneService)
	requireBusiness := RequireRole(
		"Only businesses and admins can register phone numbers",
		types.RoleBusiness, types.RoleAdmin,
	)

	r.Post("/verify-phone", handler.VerifyNumber)
	r.Route("/phone-numbers", func(r chi.Router) {
		r.With(authMiddleware, requireBusiness).Post("/register", handler.RegisterNumber)
		r.With(authMiddleware, requireBusiness).Get("/my-numbers", handler.MyNumbers)
	})
}

type RegisterPhoneRequest struct {
	PhoneNumber string `json:"phone_number"`
	CompanyName string `json:"company_name"`
	Description string `json:"description"`
}

type RegisterPhoneResponse struct {
	Message string `json:"message"`
	PhoneID string `json:"phone_id"`
}

// VerifyPhoneRequest is the public verification lookup payload.
type VerifyPhoneRequest struct {
	PhoneNumber string `json:"phone_number"`
}

// VerifyPhoneResponse conveys found/not-found; the lookup itself always
// succeeds with 200.
type VerifyPhoneResponse struct {
	IsVerified        bool   `json:"is_verified"`
	CompanyName       string `json:"company_name,omitempty"`
	Description       string `json:"description,omitempty"`
	VerifiedSince     string `json:"verified_since,omitempty"`
	VerificationCount int    `json:"verification_count,omitempty"`
	Message           string `json:"message"`
	Warning           string `json:"warning,omitempty"`
}

// RegisterNumber registers a phone number for the calling business.
func (h *PhoneHandler) RegisterNumber(w http.ResponseWriter, r *http.Request) {
	claims, err := claimsFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Invalid authentication credentials")
		return
	}

	var req RegisterPhoneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	req.PhoneNumber = strings.TrimSpace(req.PhoneNumber)
	req.CompanyName = strings.TrimSpace(req.CompanyName)
	if req.PhoneNumber == "" || req.CompanyName == "" {
		writeError(w, http.StatusBadRequest, "phone_number and company_name are required")
		return
	}

	phone, err := h.phoneService.Register(r.Context(), services.RegisterPhoneInput{
		Number:       req.PhoneNumber,
		CompanyName:  req.CompanyName,
		Description:  strings.TrimSpace(req.Description),
		RegisteredBy: claims.UserID,
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			writeError(w, http.StatusBadRequest, "Phone number already registered")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to register phone number")
		return
	}

	writeJSON(w, http.StatusOK, RegisterPhoneResponse{
		Message: "Phone number registered successfully",
		PhoneID: phone.ID,
	})
}

// VerifyNumber looks up a phone number against the registry.
func (h *PhoneHandler) VerifyNumber(w http.ResponseWriter, r *http.Request) {
	var req VerifyPhoneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if strings.TrimSpace(req.PhoneNumber) == "" {
		writeError(w, http.StatusBadRequest, "phone_number is required")
		return
	}

	result, err := h.phoneService.Verify(r.Context(), req.PhoneNumber)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to verify phone number")
		return
	}

	if !result.Found {
		writeJSON(w, http.StatusOK, VerifyPhoneResponse{
			IsVerified: false,
			Message:    "This number is not registered. Proceed with caution.",
			Warning:    "Unregistered numbers may be legitimate businesses not yet in our database, or potential scammers.",
		})
		return
	}

	phone := result.Phone
	writeJSON(w, http.StatusOK, VerifyPhoneResponse{
		IsVerified:        true,
		CompanyName:       phone.CompanyName,
		Description:       phone.Description,
		VerifiedSince:     phone.CreatedAt.Format(time.RFC3339),
		VerificationCount: phone.VerificationCount,
		Message:           "This number is verified and belongs to " + phone.CompanyName,
	})
}

// MyNumbers lists the caller's registered numbers; admins see all.
func (h *PhoneHandler) MyNumbers(w http.ResponseWriter, r *http.Request) {
	claims, err := claimsFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Invalid authentication credentials")
		return
	}

	phones, err := h.phoneService.ListForUser(r.Context(), claims.UserID, claims.Role)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list phone numbers")
		return
	}
	writeJSON(w, http.StatusOK, phones)
}
