package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Project is the persisted form of a high-level work item.
type Project struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Status      string `json:"status"`
	Priority    int    `json:"priority"`
	Color       string `json:"color"`
}

func (db *DB) CreateProject(ctx context.Context, p *Project) (int, error) {
	result, err := db.ExecContext(ctx,
		`INSERT INTO projects (name, description, status, priority, color)
		 VALUES (?, ?, ?, ?, ?)`,
		p.Name, p.Description, p.Status, p.Priority, p.Color,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting project: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}
	p.ID = int(id)
	return p.ID, nil
}

func (db *DB) UpdateProject(ctx context.Context, p *Project) error {
	result, err := db.ExecContext(ctx,
		`UPDATE projects SET name = ?, description = ?, status = ?, priority = ?, color = ?
		 WHERE id = ?`,
		p.Name, p.Description, p.Status, p.Priority, p.Color, p.ID,
	)
	if err != nil {
		return fmt.Errorf("updating project: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (db *DB) DeleteProject(ctx context.Context, id int) error {
	_, err := db.ExecContext(ctx, "DELETE FROM projects WHERE id = ?", id)
	return err
}

func (db *DB) GetProject(ctx context.Context, id int) (*Project, error) {
	projects, err := db.queryProjects(ctx,
		"SELECT id, name, description, status, priority, color FROM projects WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(projects) == 0 {
		return nil, nil
	}
	return &projects[0], nil
}

func (db *DB) ListProjects(ctx context.Context) ([]Project, error) {
	return db.queryProjects(ctx,
		"SELECT id, name, description, status, priority, color FROM projects ORDER BY id ASC")
}

func (db *DB) queryProjects(ctx context.Context, query string, args ...any) ([]Project, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying projects: %w", err)
	}
	defer rows.Close()

	var projects []Project
	for rows.Next() {
		var p Project
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Status, &p.Priority, &p.Color); err != nil {
			return nil, fmt.Errorf("scanning project: %w", err)
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// ProjectProgress summarizes task completion for one project.
type ProjectProgress struct {
	ProjectName    string  `json:"project_name"`
	TotalTasks     int     `json:"total_tasks"`
	CompletedTasks int     `json:"completed_tasks"`
	Progress       float64 `json:"progress"`
}

// ProjectStatus returns per-project completion counts.
func (db *DB) ProjectStatus(ctx context.Context) ([]ProjectProgress, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT p.name,
		        COUNT(t.id),
		        COALESCE(SUM(CASE WHEN t.status = 'Completed' THEN 1 ELSE 0 END), 0)
		 FROM projects p
		 LEFT JOIN tasks t ON t.project_id = p.id
		 GROUP BY p.id
		 ORDER BY p.id`)
	if err != nil {
		return nil, fmt.Errorf("querying project status: %w", err)
	}
	defer rows.Close()

	var out []ProjectProgress
	for rows.Next() {
		var pp ProjectProgress
		if err := rows.Scan(&pp.ProjectName, &pp.TotalTasks, &pp.CompletedTasks); err != nil {
			return nil, fmt.Errorf("scanning project status: %w", err)
		}
		if pp.TotalTasks > 0 {
			pp.Progress = float64(pp.CompletedTasks) / float64(pp.TotalTasks) * 100
		}
		out = append(out, pp)
	}
	return out, rows.Err()
}
