package board

// Project is a project as returned by the upstream API
type Project struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Task is a unit of work shown on the kanban board
type Task struct {
	ID          string `json:"id"`
	ProjectID   string `json:"projectId"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status"`
	Assignee    string `json:"assignee,omitempty"`
}

// Column is one kanban lane
type Column struct {
	Status string `json:"status"`
	Title  string `json:"title"`
	Tasks  []Task `json:"tasks"`
}

// Board groups a project's tasks into ordered columns
type Board struct {
	Project Project  `json:"project"`
	Columns []Column `json:"columns"`
}

// Workflow is a directed graph of steps attached to a project
type Workflow struct {
	ID        string         `json:"id"`
	ProjectID string         `json:"projectId"`
	Name      string         `json:"name"`
	Nodes     []WorkflowNode `json:"nodes"`
	Edges     []WorkflowEdge `json:"edges"`
}

// WorkflowNode is a single step in a workflow graph
type WorkflowNode struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Type  string `json:"type,omitempty"`
}

// WorkflowEdge connects two workflow nodes
type WorkflowEdge struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
}

// DefaultColumns is the lane order of a new board
var DefaultColumns = []Column{
	{Status: "todo", Title: "To Do"},
	{Status: "in_progress", Title: "In Progress"},
	{Status: "review", Title: "Review"},
	{Status: "done", Title: "Done"},
}

// Group lays tasks out in DefaultColumns order. Tasks whose status has no
// default lane get an extra column, appended in first-seen order. A task
// without a status lands in the first lane.
func Group(project Project, tasks []Task) *Board {
	columns := make([]Column, len(DefaultColumns))
	index := make(map[string]int, len(DefaultColumns))
	for i, col := range DefaultColumns {
		columns[i] = Column{Status: col.Status, Title: col.Title, Tasks: []Task{}}
		index[col.Status] = i
	}

	for _, task := range tasks {
		status := task.Status
		if status == "" {
			status = DefaultColumns[0].Status
		}
		i, ok := index[status]
		if !ok {
			i = len(columns)
			index[status] = i
			columns = append(columns, Column{Status: status, Title: status, Tasks: []Task{}})
		}
		columns[i].Tasks = append(columns[i].Tasks, task)
	}

	return &Board{Project: project, Columns: columns}
}
