package api

import (
	"errors"
	"net/http"
	"strings"

	"flowboard/internal/adapters/api/middleware"
	"flowboard/internal/domain/session"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// LandingPage renders the public home page
func (h *Handler) LandingPage(c *gin.Context) {
	c.HTML(http.StatusOK, "landing.html", gin.H{
		"Title":         "Flowboard",
		"Authenticated": middleware.StateFrom(c) == session.StateAuthenticated,
	})
}

// LoginPage renders the login form. next is only honoured for local paths.
func (h *Handler) LoginPage(c *gin.Context) {
	c.HTML(http.StatusOK, "login.html", gin.H{
		"Title": "Log in",
		"Next":  localPath(c.Query(middleware.NextParam), "/dashboard"),
	})
}

// RegisterPage renders the sign-up form
func (h *Handler) RegisterPage(c *gin.Context) {
	c.HTML(http.StatusOK, "register.html", gin.H{"Title": "Create account"})
}

// DashboardPage lists the caller's projects
func (h *Handler) DashboardPage(c *gin.Context) {
	access, ok := h.requireAccess(c)
	if !ok {
		return
	}

	projects, err := h.boards.ListProjects(c.Request.Context(), access)
	if err != nil {
		h.pageError(c, err)
		return
	}
	c.HTML(http.StatusOK, "dashboard.html", gin.H{
		"Title":    "Projects",
		"Projects": projects,
	})
}

// BoardPage renders a project's kanban board
func (h *Handler) BoardPage(c *gin.Context) {
	access, ok := h.requireAccess(c)
	if !ok {
		return
	}

	board, err := h.boards.GetBoard(c.Request.Context(), access, c.Param("projectId"))
	if err != nil {
		h.pageError(c, err)
		return
	}
	c.HTML(http.StatusOK, "board.html", gin.H{
		"Title": board.Project.Name,
		"Board": board,
	})
}

// WorkflowsPage renders a project's workflow graphs as node and edge lists
func (h *Handler) WorkflowsPage(c *gin.Context) {
	access, ok := h.requireAccess(c)
	if !ok {
		return
	}

	project, workflows, err := h.boards.ListWorkflows(c.Request.Context(), access, c.Param("projectId"))
	if err != nil {
		h.pageError(c, err)
		return
	}
	c.HTML(http.StatusOK, "workflows.html", gin.H{
		"Title":     project.Name + " workflows",
		"Project":   project,
		"Workflows": workflows,
	})
}

// requireAccess re-checks the access cookie independently of the guard
func (h *Handler) requireAccess(c *gin.Context) (string, bool) {
	access, ok := h.store.Get(c, session.AccessTokenCookie)
	if !ok {
		c.Redirect(http.StatusFound, h.policy.LoginRedirect(c.Request.URL.RequestURI()))
		return "", false
	}
	return access, true
}

// pageError sends the user back to login when upstream no longer accepts the
// token, and renders an error page otherwise
func (h *Handler) pageError(c *gin.Context, err error) {
	var rejection *session.UpstreamRejection
	status := http.StatusInternalServerError
	message := transportFailureMessage

	if errors.As(err, &rejection) {
		if rejection.Status == http.StatusUnauthorized {
			c.Redirect(http.StatusFound, h.policy.LoginRedirect(c.Request.URL.RequestURI()))
			return
		}
		status = rejection.Status
		message = http.StatusText(status)
	} else {
		log.Ctx(c.Request.Context()).Error().Err(err).Str("path", c.FullPath()).Msg("failed to load page data")
	}

	c.HTML(status, "error.html", gin.H{
		"Title":   "Error",
		"Status":  status,
		"Message": message,
	})
}

// localPath returns p when it is a same-site absolute path, fallback otherwise
func localPath(p, fallback string) string {
	if !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") || strings.HasPrefix(p, "/\\") {
		return fallback
	}
	return p
}
