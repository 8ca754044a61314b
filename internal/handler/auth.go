package handler

import (
	"log/slog"
	"net/http"

	"github.com/rs/xid"

	"github.com/snipmart/snipmart/internal/apperror"
	"github.com/snipmart/snipmart/internal/auth"
	"github.com/snipmart/snipmart/internal/model"
	"github.com/snipmart/snipmart/internal/service"
)

// AuthHandler covers account endpoints: email/password register and
// login, the GitHub OAuth flow, logout, and the current-user lookup.
type AuthHandler struct {
	authSvc *service.AuthService
	github  *auth.GitHubProvider
	logger  *slog.Logger
}

func NewAuthHandler(authSvc *service.AuthService, github *auth.GitHubProvider, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{authSvc: authSvc, github: github, logger: logger}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// userView is the account shape returned to clients. The password hash
// never leaves the server.
type userView struct {
	ID        string   `json:"id"`
	Email     string   `json:"email,omitempty"`
	Login     string   `json:"login,omitempty"`
	AvatarURL string   `json:"avatarUrl,omitempty"`
	Role      string   `json:"role,omitempty"`
	Purchases []string `json:"purchases"`
}

func toUserView(u *model.User) userView {
	purchases := u.Purchases
	if purchases == nil {
		purchases = []string{}
	}
	return userView{
		ID:        u.ID,
		Email:     u.Email,
		Login:     u.Login,
		AvatarURL: u.AvatarURL,
		Role:      u.Role,
		Purchases: purchases,
	}
}

// HandleRegister creates an email/password account.
//
// HTTP: POST /api/auth/register {"email","password"}
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(h.logger, w, err)
		return
	}

	result, err := h.authSvc.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(h.logger, w, err)
		return
	}

	setTokenCookie(w, result.Token)
	writeJSON(h.logger, w, http.StatusCreated, toUserView(result.User))
}

// HandleLogin verifies credentials and issues the session cookie.
//
// HTTP: POST /api/auth/login {"email","password"}
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(h.logger, w, err)
		return
	}

	result, err := h.authSvc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(h.logger, w, err)
		return
	}

	setTokenCookie(w, result.Token)
	writeJSON(h.logger, w, http.StatusOK, toUserView(result.User))
}

// HandleLogout clears the session cookie. The token itself stays valid
// until expiry; without the cookie the browser cannot send it.
//
// HTTP: POST /api/auth/logout
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.TokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(h.logger, w, http.StatusOK, map[string]string{"message": "logged out"})
}

// HandleMe returns the authenticated caller's profile.
//
// HTTP: GET /api/auth/me
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(h.logger, w, apperror.Unauthorized("authentication required"))
		return
	}

	user, err := h.authSvc.Me(r.Context(), userID)
	if err != nil {
		writeError(h.logger, w, err)
		return
	}
	writeJSON(h.logger, w, http.StatusOK, toUserView(user))
}

// HandleGitHubLogin redirects the browser to GitHub's authorization
// page, with a state cookie for CSRF verification on callback.
//
// HTTP: GET /auth/github/login
func (h *AuthHandler) HandleGitHubLogin(w http.ResponseWriter, r *http.Request) {
	state := xid.New().String()

	http.SetCookie(w, &http.Cookie{
		Name:     "oauth_state",
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.github.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGitHubCallback completes the OAuth flow: state check, code
// exchange, account upsert, session cookie, redirect home.
//
// HTTP: GET /auth/github/callback?code=xxx&state=yyy
func (h *AuthHandler) HandleGitHubCallback(w http.ResponseWriter, r *http.Request) {
	stateCookie, err := r.Cookie("oauth_state")
	if err != nil || stateCookie.Value == "" || r.URL.Query().Get("state") != stateCookie.Value {
		h.logger.Warn("auth callback: state mismatch or missing state cookie")
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}

	// The state is single-use.
	http.SetCookie(w, &http.Cookie{
		Name:   "oauth_state",
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("auth callback: user denied authorization", slog.String("error", errParam))
		http.Redirect(w, r, "/?auth=denied", http.StatusSeeOther)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "missing OAuth code", http.StatusBadRequest)
		return
	}

	ghUser, err := h.github.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("auth callback: GitHub exchange failed", slog.String("error", err.Error()))
		http.Error(w, "authentication failed", http.StatusInternalServerError)
		return
	}

	result, err := h.authSvc.LoginOrRegisterGitHub(r.Context(), ghUser)
	if err != nil {
		h.logger.Error("auth callback: sign-in failed",
			slog.Int64("githubID", ghUser.ID),
			slog.String("error", err.Error()),
		)
		http.Error(w, "authentication failed", http.StatusInternalServerError)
		return
	}

	setTokenCookie(w, result.Token)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func setTokenCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.TokenCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(auth.DefaultTokenTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
