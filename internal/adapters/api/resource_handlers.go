package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"

	"flowboard/internal/domain/session"

	"github.com/gin-gonic/gin"
)

// maxProxyBody caps request bodies forwarded to upstream
const maxProxyBody = 1 << 20

// forward relays the request to upstream path with the caller's access token.
// The query string is passed on; status and body come back untouched.
func (h *Handler) forward(c *gin.Context, path string) {
	access, _ := h.store.Get(c, session.AccessTokenCookie)

	var body any
	if c.Request.Body != nil && c.Request.Method != http.MethodGet && c.Request.Method != http.MethodDelete {
		raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxProxyBody))
		if err != nil {
			h.writeError(c, session.NewValidationError("body", "failed to read request body"))
			return
		}
		if len(raw) > 0 {
			if !json.Valid(raw) {
				h.writeError(c, session.NewValidationError("body", "request body must be valid JSON"))
				return
			}
			body = json.RawMessage(raw)
		}
	}

	if query := c.Request.URL.RawQuery; query != "" {
		path += "?" + query
	}

	resp, err := h.gateway.Call(c.Request.Context(), c.Request.Method, path, body, access)
	if err != nil {
		h.writeError(c, &session.TransportFailure{Op: "proxy " + c.FullPath(), Err: err})
		return
	}
	c.Data(resp.Status, jsonContentType, resp.Body)
}

func projectPath(c *gin.Context) string {
	return "/projects/" + url.PathEscape(c.Param("projectId"))
}

func taskPath(c *gin.Context) string {
	return "/tasks/" + url.PathEscape(c.Param("taskId"))
}

// ListProjects godoc
// @Summary      List projects
// @Tags         projects
// @Produce      json
// @Success      200 {array} board.Project
// @Failure      401 {object} map[string]string
// @Failure      500 {object} map[string]string
// @Router       /api/projects [get]
func (h *Handler) ListProjects(c *gin.Context) {
	h.forward(c, "/projects")
}

// CreateProject godoc
// @Summary      Create a project
// @Tags         projects
// @Accept       json
// @Produce      json
// @Param        project body map[string]any true "Project"
// @Success      201 {object} board.Project
// @Failure      400 {object} map[string]any
// @Failure      401 {object} map[string]string
// @Failure      500 {object} map[string]string
// @Router       /api/projects [post]
func (h *Handler) CreateProject(c *gin.Context) {
	h.forward(c, "/projects")
}

// GetProject godoc
// @Summary      Get a project
// @Tags         projects
// @Produce      json
// @Param        projectId path string true "Project ID"
// @Success      200 {object} board.Project
// @Failure      401 {object} map[string]string
// @Failure      404 {object} map[string]any
// @Failure      500 {object} map[string]string
// @Router       /api/projects/{projectId} [get]
func (h *Handler) GetProject(c *gin.Context) {
	h.forward(c, projectPath(c))
}

// UpdateProject godoc
// @Summary      Update a project
// @Tags         projects
// @Accept       json
// @Produce      json
// @Param        projectId path string true "Project ID"
// @Param        project body map[string]any true "Project fields"
// @Success      200 {object} board.Project
// @Failure      400 {object} map[string]any
// @Failure      401 {object} map[string]string
// @Failure      500 {object} map[string]string
// @Router       /api/projects/{projectId} [put]
func (h *Handler) UpdateProject(c *gin.Context) {
	h.forward(c, projectPath(c))
}

// DeleteProject godoc
// @Summary      Delete a project
// @Tags         projects
// @Param        projectId path string true "Project ID"
// @Success      200 {object} map[string]any
// @Failure      401 {object} map[string]string
// @Failure      500 {object} map[string]string
// @Router       /api/projects/{projectId} [delete]
func (h *Handler) DeleteProject(c *gin.Context) {
	h.forward(c, projectPath(c))
}

// ListWorkflows godoc
// @Summary      List a project's workflows
// @Tags         workflows
// @Produce      json
// @Param        projectId path string true "Project ID"
// @Success      200 {array} board.Workflow
// @Failure      401 {object} map[string]string
// @Failure      500 {object} map[string]string
// @Router       /api/projects/{projectId}/workflows [get]
func (h *Handler) ListWorkflows(c *gin.Context) {
	h.forward(c, projectPath(c)+"/workflows")
}

// CreateWorkflow godoc
// @Summary      Create a workflow
// @Tags         workflows
// @Accept       json
// @Produce      json
// @Param        projectId path string true "Project ID"
// @Param        workflow body board.Workflow true "Workflow graph"
// @Success      201 {object} board.Workflow
// @Failure      400 {object} map[string]any
// @Failure      401 {object} map[string]string
// @Failure      500 {object} map[string]string
// @Router       /api/projects/{projectId}/workflows [post]
func (h *Handler) CreateWorkflow(c *gin.Context) {
	h.forward(c, projectPath(c)+"/workflows")
}

// UpdateWorkflow godoc
// @Summary      Replace a workflow graph
// @Tags         workflows
// @Accept       json
// @Produce      json
// @Param        projectId  path string true "Project ID"
// @Param        workflowId path string true "Workflow ID"
// @Param        workflow body board.Workflow true "Workflow graph"
// @Success      200 {object} board.Workflow
// @Failure      400 {object} map[string]any
// @Failure      401 {object} map[string]string
// @Failure      500 {object} map[string]string
// @Router       /api/projects/{projectId}/workflows/{workflowId} [put]
func (h *Handler) UpdateWorkflow(c *gin.Context) {
	h.forward(c, projectPath(c)+"/workflows/"+url.PathEscape(c.Param("workflowId")))
}

// ListTasks godoc
// @Summary      List tasks
// @Tags         tasks
// @Produce      json
// @Param        projectId query string false "Only tasks of this project"
// @Success      200 {array} board.Task
// @Failure      401 {object} map[string]string
// @Failure      500 {object} map[string]string
// @Router       /api/tasks [get]
func (h *Handler) ListTasks(c *gin.Context) {
	h.forward(c, "/tasks")
}

// CreateTask godoc
// @Summary      Create a task
// @Tags         tasks
// @Accept       json
// @Produce      json
// @Param        task body board.Task true "Task"
// @Success      201 {object} board.Task
// @Failure      400 {object} map[string]any
// @Failure      401 {object} map[string]string
// @Failure      500 {object} map[string]string
// @Router       /api/tasks [post]
func (h *Handler) CreateTask(c *gin.Context) {
	h.forward(c, "/tasks")
}

// GetTask godoc
// @Summary      Get a task
// @Tags         tasks
// @Produce      json
// @Param        taskId path string true "Task ID"
// @Success      200 {object} board.Task
// @Failure      401 {object} map[string]string
// @Failure      404 {object} map[string]any
// @Failure      500 {object} map[string]string
// @Router       /api/tasks/{taskId} [get]
func (h *Handler) GetTask(c *gin.Context) {
	h.forward(c, taskPath(c))
}

// UpdateTask godoc
// @Summary      Update a task
// @Description  Used by the kanban board to move a task between columns
// @Tags         tasks
// @Accept       json
// @Produce      json
// @Param        taskId path string true "Task ID"
// @Param        task body map[string]any true "Changed fields, e.g. {\"status\":\"done\"}"
// @Success      200 {object} board.Task
// @Failure      400 {object} map[string]any
// @Failure      401 {object} map[string]string
// @Failure      500 {object} map[string]string
// @Router       /api/tasks/{taskId} [patch]
func (h *Handler) UpdateTask(c *gin.Context) {
	h.forward(c, taskPath(c))
}

// DeleteTask godoc
// @Summary      Delete a task
// @Tags         tasks
// @Param        taskId path string true "Task ID"
// @Success      200 {object} map[string]any
// @Failure      401 {object} map[string]string
// @Failure      500 {object} map[string]string
// @Router       /api/tasks/{taskId} [delete]
func (h *Handler) DeleteTask(c *gin.Context) {
	h.forward(c, taskPath(c))
}
