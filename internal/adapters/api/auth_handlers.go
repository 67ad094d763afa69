package api

import (
	"encoding/json"
	"io"
	"net/http"

	appsession "flowboard/internal/application/session"
	"flowboard/internal/domain/session"

	"github.com/gin-gonic/gin"
)

// maxAuthBody caps credential payloads read from clients
const maxAuthBody = 64 << 10

// LoginRequest contains user credentials
type LoginRequest struct {
	Email    string `json:"email" example:"a@b.com"`
	Password string `json:"password" example:"pw"`
}

// MagicLinkRequest contains the address a sign-in link is sent to
type MagicLinkRequest struct {
	Email string `json:"email" example:"a@b.com"`
}

// UserResponse wraps the user profile returned by upstream
type UserResponse struct {
	User map[string]any `json:"user"`
}

// MessageResponse is a plain acknowledgement
type MessageResponse struct {
	Message string `json:"message"`
}

// Login godoc
// @Summary      Log in with email and password
// @Description  Forwards credentials upstream and sets the access_token and refresh_token cookies on success. Upstream rejections are relayed unchanged.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body LoginRequest true "Credentials"
// @Success      200 {object} UserResponse
// @Failure      400 {object} map[string]string
// @Failure      401 {object} map[string]any
// @Failure      429 {object} map[string]string
// @Failure      500 {object} map[string]string
// @Router       /auth/login [post]
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, session.NewValidationError("body", "request body must be a JSON object"))
		return
	}

	out, err := h.sessions.Login(c.Request.Context(), appsession.LoginRequest{Email: req.Email, Password: req.Password})
	h.respond(c, out, err)
}

// Register godoc
// @Summary      Create an account
// @Description  Forwards the registration payload upstream. When upstream answers with a token pair the session cookies are set as on login.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body map[string]any true "Registration payload"
// @Success      201 {object} UserResponse
// @Failure      400 {object} map[string]string
// @Failure      409 {object} map[string]any
// @Failure      429 {object} map[string]string
// @Failure      500 {object} map[string]string
// @Router       /auth/register [post]
func (h *Handler) Register(c *gin.Context) {
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxAuthBody))
	if err != nil || !isJSONObject(raw) {
		h.writeError(c, session.NewValidationError("body", "request body must be a JSON object"))
		return
	}

	out, err := h.sessions.Register(c.Request.Context(), raw)
	h.respond(c, out, err)
}

// Refresh godoc
// @Summary      Refresh the session
// @Description  Exchanges the refresh_token cookie for a new token pair. Any failure clears both session cookies.
// @Tags         auth
// @Produce      json
// @Success      200 {object} MessageResponse
// @Failure      401 {object} map[string]string
// @Failure      500 {object} map[string]string
// @Router       /auth/refresh [post]
func (h *Handler) Refresh(c *gin.Context) {
	out, err := h.sessions.Refresh(c.Request.Context(), h.store.Tokens(c))
	h.respond(c, out, err)
}

// Logout godoc
// @Summary      Log out
// @Description  Clears both session cookies. Upstream is notified on a best-effort basis; its answer never changes the result.
// @Tags         auth
// @Produce      json
// @Success      200 {object} MessageResponse
// @Router       /auth/logout [post]
func (h *Handler) Logout(c *gin.Context) {
	h.respond(c, h.sessions.Logout(c.Request.Context(), h.store.Tokens(c)), nil)
}

// Me godoc
// @Summary      Current identity
// @Description  Returns the identity carried by the access_token cookie
// @Tags         auth
// @Produce      json
// @Success      200 {object} map[string]session.Identity
// @Failure      401 {object} map[string]string
// @Router       /auth/me [get]
func (h *Handler) Me(c *gin.Context) {
	identity, err := h.sessions.WhoAmI(h.store.Tokens(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": identity})
}

// RequestMagicLink godoc
// @Summary      Request a magic sign-in link
// @Description  Forwards the request upstream and relays its answer verbatim, whether or not the account exists
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body MagicLinkRequest true "Email address"
// @Success      200 {object} map[string]any
// @Failure      400 {object} map[string]string
// @Failure      429 {object} map[string]string
// @Failure      500 {object} map[string]string
// @Router       /auth/magic-link/request [post]
func (h *Handler) RequestMagicLink(c *gin.Context) {
	var req MagicLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, session.NewValidationError("body", "request body must be a JSON object"))
		return
	}

	out, err := h.sessions.RequestMagicLink(c.Request.Context(), req.Email)
	h.respond(c, out, err)
}

// VerifyMagicLink godoc
// @Summary      Verify a magic sign-in link
// @Description  Exchanges the link token for a session and sets the session cookies as on login
// @Tags         auth
// @Produce      json
// @Param        token query string true "Magic-link token"
// @Success      200 {object} UserResponse
// @Failure      400 {object} map[string]string
// @Failure      401 {object} map[string]any
// @Failure      429 {object} map[string]string
// @Failure      500 {object} map[string]string
// @Router       /auth/magic-link/verify [get]
func (h *Handler) VerifyMagicLink(c *gin.Context) {
	out, err := h.sessions.VerifyMagicLink(c.Request.Context(), c.Query("token"))
	h.respond(c, out, err)
}

func isJSONObject(raw []byte) bool {
	var obj map[string]json.RawMessage
	return json.Unmarshal(raw, &obj) == nil && obj != nil
}
