package api

import (
	"context"
	"embed"
	"html/template"
	"io/fs"
	"net/http"

	"flowboard/internal/adapters/api/middleware"
	appboard "flowboard/internal/application/board"
	appsession "flowboard/internal/application/session"
	"flowboard/internal/infrastructure/cookies"
	"flowboard/internal/infrastructure/metrics"
	"flowboard/internal/infrastructure/upstream"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"     // swagger embed files
	ginSwagger "github.com/swaggo/gin-swagger" // gin-swagger middleware

	_ "flowboard/docs" // swagger docs
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Gateway performs calls against the upstream API
type Gateway interface {
	Call(ctx context.Context, method, path string, body any, bearer string) (*upstream.Response, error)
}

// Handler serves the auth endpoints, the resource proxy and the pages
type Handler struct {
	sessions *appsession.Service
	boards   *appboard.Service
	gateway  Gateway
	store    *cookies.Store
	policy   *middleware.PathPolicy
	metrics  *metrics.Metrics
}

// NewHandler creates a new API handler
func NewHandler(sessions *appsession.Service, boards *appboard.Service, gateway Gateway, store *cookies.Store, policy *middleware.PathPolicy, m *metrics.Metrics) *Handler {
	return &Handler{
		sessions: sessions,
		boards:   boards,
		gateway:  gateway,
		store:    store,
		policy:   policy,
		metrics:  m,
	}
}

// RegisterRoutes registers all routes. limit guards the credential
// endpoints and may be nil.
func (h *Handler) RegisterRoutes(r *gin.Engine, limit gin.HandlerFunc) {
	r.SetHTMLTemplate(template.Must(template.ParseFS(templateFS, "templates/*.html")))
	static, _ := fs.Sub(staticFS, "static")
	r.StaticFS("/static", http.FS(static))

	limited := []gin.HandlerFunc{}
	if limit != nil {
		limited = append(limited, limit)
	}
	with := func(handler gin.HandlerFunc) []gin.HandlerFunc {
		return append(append([]gin.HandlerFunc{}, limited...), handler)
	}

	auth := r.Group("/auth")
	{
		auth.POST("/login", with(h.Login)...)
		auth.POST("/register", with(h.Register)...)
		auth.POST("/refresh", h.Refresh)
		auth.POST("/logout", h.Logout)
		auth.GET("/me", h.Me)
		auth.POST("/magic-link/request", with(h.RequestMagicLink)...)
		auth.GET("/magic-link/verify", with(h.VerifyMagicLink)...)
	}

	api := r.Group("/api", middleware.ValidateParams())
	{
		projects := api.Group("/projects")
		{
			projects.GET("", h.ListProjects)
			projects.POST("", h.CreateProject)
			projects.GET("/:projectId", h.GetProject)
			projects.PUT("/:projectId", h.UpdateProject)
			projects.DELETE("/:projectId", h.DeleteProject)

			workflows := projects.Group("/:projectId/workflows")
			{
				workflows.GET("", h.ListWorkflows)
				workflows.POST("", h.CreateWorkflow)
				workflows.PUT("/:workflowId", h.UpdateWorkflow)
			}
		}

		tasks := api.Group("/tasks")
		{
			tasks.GET("", h.ListTasks)
			tasks.POST("", h.CreateTask)
			tasks.GET("/:taskId", h.GetTask)
			tasks.PATCH("/:taskId", h.UpdateTask)
			tasks.DELETE("/:taskId", h.DeleteTask)
		}
	}

	r.GET("/", h.LandingPage)
	r.GET("/login", h.LoginPage)
	r.GET("/register", h.RegisterPage)
	dashboard := r.Group("/dashboard", middleware.ValidateParams())
	{
		dashboard.GET("", h.DashboardPage)
		dashboard.GET("/projects/:projectId/board", h.BoardPage)
		dashboard.GET("/projects/:projectId/workflows", h.WorkflowsPage)
	}

	r.GET("/healthz", h.Health)
	if h.metrics != nil {
		r.GET("/metrics", gin.WrapH(h.metrics.Handler()))
	}
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}

// Health godoc
// @Summary      Health check
// @Description  Liveness probe; does not contact upstream
// @Tags         health
// @Produce      json
// @Success      200 {object} map[string]string
// @Router       /healthz [get]
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
