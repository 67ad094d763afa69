package board

import (
	"context"
	"net/http"
	"net/url"

	"flowboard/internal/domain/board"
	"flowboard/internal/domain/session"
	"flowboard/internal/infrastructure/upstream"

	"golang.org/x/sync/errgroup"
)

// Gateway performs calls against the upstream API
type Gateway interface {
	Call(ctx context.Context, method, path string, body any, bearer string) (*upstream.Response, error)
}

// Service fetches the data behind the dashboard pages
type Service struct {
	gateway Gateway
}

// NewService creates a new board service
func NewService(gateway Gateway) *Service {
	return &Service{gateway: gateway}
}

// ListProjects returns every project visible to the bearer
func (s *Service) ListProjects(ctx context.Context, bearer string) ([]board.Project, error) {
	var projects []board.Project
	if err := s.get(ctx, "/projects", bearer, "list projects", &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

// GetBoard returns a project with its tasks grouped into kanban columns
func (s *Service) GetBoard(ctx context.Context, bearer, projectID string) (*board.Board, error) {
	var (
		project board.Project
		tasks   []board.Task
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.get(gctx, "/projects/"+url.PathEscape(projectID), bearer, "get project", &project)
	})
	g.Go(func() error {
		query := url.Values{"projectId": {projectID}}
		return s.get(gctx, "/tasks?"+query.Encode(), bearer, "list tasks", &tasks)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return board.Group(project, tasks), nil
}

// ListWorkflows returns a project and its workflow graphs
func (s *Service) ListWorkflows(ctx context.Context, bearer, projectID string) (*board.Project, []board.Workflow, error) {
	var (
		project   board.Project
		workflows []board.Workflow
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.get(gctx, "/projects/"+url.PathEscape(projectID), bearer, "get project", &project)
	})
	g.Go(func() error {
		return s.get(gctx, "/projects/"+url.PathEscape(projectID)+"/workflows", bearer, "list workflows", &workflows)
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	return &project, workflows, nil
}

func (s *Service) get(ctx context.Context, path, bearer, op string, v any) error {
	resp, err := s.gateway.Call(ctx, http.MethodGet, path, nil, bearer)
	if err != nil {
		return &session.TransportFailure{Op: op, Err: err}
	}
	if !resp.OK() {
		return resp.Rejection()
	}
	if err := resp.Decode(v); err != nil {
		return &session.TransportFailure{Op: op, Err: err}
	}
	return nil
}
