package api

import (
	"errors"
	"net/http"

	"github.com/FlaxHawk/Anxiety-Ally/internal/core"
)

type APIHandler struct {
	users    *core.UserService
	journals *core.JournalService
	moods    *core.MoodService
	chat     *core.ChatService
	analyzer core.SentimentAnalyzer
}

func NewAPIHandler(users *core.UserService, journals *core.JournalService, moods *core.MoodService, chat *core.ChatService, analyzer core.SentimentAnalyzer) *APIHandler {
	return &APIHandler{
		users:    users,
		journals: journals,
		moods:    moods,
		chat:     chat,
		analyzer: analyzer,
	}
}

func (h *APIHandler) RootHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Welcome to Anxiety Ally API", "status": "active"})
}

func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

type userResponse struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

func (h *APIHandler) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req core.Registration
	if !decodeAndValidate(w, r, &req) {
		return
	}

	user, err := h.users.Register(r.Context(), req)
	if err != nil {
		serviceError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, userResponse{ID: user.ID, Email: user.Email, FullName: user.FullName})
}

type tokenForm struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// TokenHandler serves the OAuth2 password flow: form-encoded username (the
// email) and password.
func (h *APIHandler) TokenHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, detailInvalidBody)
		return
	}
	form := tokenForm{Username: r.PostForm.Get("username"), Password: r.PostForm.Get("password")}
	if !validate(w, &form) {
		return
	}
	h.issueToken(w, r, form.Username, form.Password)
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (h *APIHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	h.issueToken(w, r, req.Email, req.Password)
}

func (h *APIHandler) issueToken(w http.ResponseWriter, r *http.Request, email, password string) {
	token, err := h.users.Authenticate(r.Context(), email, password)
	if err != nil {
		if errors.Is(err, core.ErrInvalidCredentials) {
			writeUnauthorized(w, detailBadCredentials)
			return
		}
		serviceError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{AccessToken: token, TokenType: "bearer"})
}

func (h *APIHandler) MeHandler(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	writeJSON(w, http.StatusOK, userResponse{ID: user.ID, Email: user.Email, FullName: user.FullName})
}
