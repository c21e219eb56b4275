package handlers

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"time"

	"github.com/prudhvinik1/authcore/internal/logging"
	"github.com/prudhvinik1/authcore/internal/models"
	"github.com/prudhvinik1/authcore/internal/services"
)

const maxBodyBytes = 1 << 20

type AuthHandler struct {
	auth   *services.AuthService
	logger logging.Logger
}

func NewAuthHandler(auth *services.AuthService, logger logging.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, logger: logger}
}

type registerResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type accountResponse struct {
	ID         string     `json:"id"`
	Username   string     `json:"username"`
	Email      string     `json:"email"`
	FullName   *string    `json:"full_name"`
	ProfileBio *string    `json:"profile_bio"`
	CreatedAt  time.Time  `json:"created_at"`
	LastLogin  *time.Time `json:"last_login"`
	IsVerified bool       `json:"is_verified"`
}

func newAccountResponse(a *models.Account) accountResponse {
	return accountResponse{
		ID:         a.ID,
		Username:   a.Username,
		Email:      a.Email,
		FullName:   a.FullName,
		ProfileBio: a.ProfileBio,
		CreatedAt:  a.CreatedAt,
		LastLogin:  a.LastLogin,
		IsVerified: a.IsVerified,
	}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	account, err := h.auth.Register(r.Context(), req.Username, req.Email, req.Password)
	if errors.Is(err, services.ErrDuplicateEmail) {
		writeError(w, http.StatusBadRequest, "Email already registered")
		return
	}
	if err != nil {
		h.internalError(w, r, "register failed", err)
		return
	}

	writeJSON(w, http.StatusOK, registerResponse{
		ID:       account.ID,
		Username: account.Username,
		Email:    account.Email,
	})
}

// Login accepts the OAuth2 password form (username, password) as well as a
// JSON body (username_or_email, password).
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if isJSON(r) {
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
	} else {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		if err := r.ParseForm(); err != nil {
			writeError(w, http.StatusUnprocessableEntity, "invalid form body")
			return
		}
		req.UsernameOrEmail = r.PostForm.Get("username")
		req.Password = r.PostForm.Get("password")
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	res, err := h.auth.Login(r.Context(), req.UsernameOrEmail, req.Password)
	if errors.Is(err, services.ErrInvalidCredentials) {
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeError(w, http.StatusUnauthorized, "Incorrect email or password")
		return
	}
	if err != nil {
		h.internalError(w, r, "login failed", err)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		AccessToken: res.AccessToken,
		TokenType:   res.TokenType,
	})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	account, err := h.auth.GetAccount(r.Context(), AccountIDFromContext(r.Context()))
	if errors.Is(err, services.ErrAccountNotFound) {
		writeError(w, http.StatusUnauthorized, "Account not found")
		return
	}
	if err != nil {
		h.internalError(w, r, "get account failed", err)
		return
	}

	writeJSON(w, http.StatusOK, newAccountResponse(account))
}

func (h *AuthHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var req profileUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	account, err := h.auth.UpdateProfile(r.Context(), AccountIDFromContext(r.Context()), models.ProfileUpdate{
		FullName:   req.FullName,
		ProfileBio: req.ProfileBio,
	})
	if errors.Is(err, services.ErrAccountNotFound) {
		writeError(w, http.StatusUnauthorized, "Account not found")
		return
	}
	if err != nil {
		h.internalError(w, r, "update profile failed", err)
		return
	}

	writeJSON(w, http.StatusOK, newAccountResponse(account))
}

func (h *AuthHandler) internalError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	h.logger.Error(r.Context(), msg, "error", err, "path", r.URL.Path)
	writeError(w, http.StatusInternalServerError, "internal server error")
}

func isJSON(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "application/json"
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.New("invalid JSON body")
	}
	return nil
}
