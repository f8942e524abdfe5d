package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/waynehead99/SmartSchedular/internal/schedule"
)

// Snapshot returns every task (with dependencies) and project as read-only
// engine input. It satisfies schedule.TaskSource.
func (db *DB) Snapshot(ctx context.Context) ([]schedule.Task, []schedule.Project, error) {
	tasks, err := db.ListTasks(ctx)
	if err != nil {
		return nil, nil, err
	}
	projects, err := db.ListProjects(ctx)
	if err != nil {
		return nil, nil, err
	}

	sp := make([]schedule.Project, len(projects))
	for i, p := range projects {
		sp[i] = schedule.Project{ID: p.ID, Name: p.Name, Priority: p.Priority}
	}
	st := make([]schedule.Task, len(tasks))
	for i, t := range tasks {
		st[i] = schedule.Task{
			ID:               t.ID,
			Title:            t.Title,
			Priority:         t.Priority,
			EstimatedMinutes: t.EstimatedMinutes,
			Status:           schedule.Status(t.Status),
			ProjectID:        t.ProjectID,
			DependsOn:        t.DependsOn,
		}
	}
	return st, sp, nil
}

// Task is the persisted form of a work item.
type Task struct {
	ID               int    `json:"id"`
	ProjectID        int    `json:"project_id,omitempty"`
	Title            string `json:"title"`
	Description      string `json:"description"`
	EstimatedMinutes int    `json:"estimated_minutes"`
	Status           string `json:"status"`
	Priority         int    `json:"priority"`
	DependsOn        []int  `json:"depends_on,omitempty"`
}

func (db *DB) CreateTask(ctx context.Context, t *Task) (int, error) {
	var projectID any
	if t.ProjectID != 0 {
		projectID = t.ProjectID
	}
	result, err := db.ExecContext(ctx,
		`INSERT INTO tasks (project_id, title, description, estimated_minutes, status, priority)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		projectID, t.Title, t.Description, t.EstimatedMinutes, t.Status, t.Priority,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting task: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}
	t.ID = int(id)
	if err := db.SetTaskDependencies(ctx, t.ID, t.DependsOn); err != nil {
		return 0, err
	}
	return t.ID, nil
}

func (db *DB) UpdateTask(ctx context.Context, t *Task) error {
	var projectID any
	if t.ProjectID != 0 {
		projectID = t.ProjectID
	}
	result, err := db.ExecContext(ctx,
		`UPDATE tasks SET project_id = ?, title = ?, description = ?, estimated_minutes = ?, status = ?, priority = ?
		 WHERE id = ?`,
		projectID, t.Title, t.Description, t.EstimatedMinutes, t.Status, t.Priority, t.ID,
	)
	if err != nil {
		return fmt.Errorf("updating task: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return db.SetTaskDependencies(ctx, t.ID, t.DependsOn)
}

func (db *DB) DeleteTask(ctx context.Context, id int) error {
	_, err := db.ExecContext(ctx, "DELETE FROM tasks WHERE id = ?", id)
	return err
}

// SetTaskDependencies replaces the dependency set for a task.
func (db *DB) SetTaskDependencies(ctx context.Context, taskID int, deps []int) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM task_dependencies WHERE task_id = ?", taskID); err != nil {
		return fmt.Errorf("clearing dependencies: %w", err)
	}
	for _, dep := range deps {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO task_dependencies (task_id, depends_on_id) VALUES (?, ?)", taskID, dep); err != nil {
			return fmt.Errorf("inserting dependency: %w", err)
		}
	}
	return tx.Commit()
}

func (db *DB) GetTask(ctx context.Context, id int) (*Task, error) {
	tasks, err := db.queryTasks(ctx,
		`SELECT id, project_id, title, description, estimated_minutes, status, priority
		 FROM tasks WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		return nil, nil
	}
	return &tasks[0], nil
}

func (db *DB) ListTasks(ctx context.Context) ([]Task, error) {
	return db.queryTasks(ctx,
		`SELECT id, project_id, title, description, estimated_minutes, status, priority
		 FROM tasks ORDER BY id ASC`)
}

func (db *DB) queryTasks(ctx context.Context, query string, args ...any) ([]Task, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying tasks: %w", err)
	}
	defer rows.Close()

	var tasks []Task
	for rows.Next() {
		var t Task
		var projectID sql.NullInt64
		if err := rows.Scan(&t.ID, &projectID, &t.Title, &t.Description,
			&t.EstimatedMinutes, &t.Status, &t.Priority); err != nil {
			return nil, fmt.Errorf("scanning task: %w", err)
		}
		t.ProjectID = int(projectID.Int64)
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range tasks {
		deps, err := db.taskDependencies(ctx, tasks[i].ID)
		if err != nil {
			return nil, err
		}
		tasks[i].DependsOn = deps
	}
	return tasks, nil
}

func (db *DB) taskDependencies(ctx context.Context, taskID int) ([]int, error) {
	rows, err := db.QueryContext(ctx,
		"SELECT depends_on_id FROM task_dependencies WHERE task_id = ? ORDER BY depends_on_id", taskID)
	if err != nil {
		return nil, fmt.Errorf("querying dependencies: %w", err)
	}
	defer rows.Close()

	var deps []int
	for rows.Next() {
		var dep int
		if err := rows.Scan(&dep); err != nil {
			return nil, fmt.Errorf("scanning dependency: %w", err)
		}
		deps = append(deps, dep)
	}
	return deps, rows.Err()
}
