package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/magabrotheeeer/contractor-assistant/internal/models"
)

// ProjectFilter параметры выборки проектов.
type ProjectFilter struct {
	Status   string
	ClientID *int64
	Limit    int
}

// CreateProject сохраняет новый проект.
func (s *Storage) CreateProject(ctx context.Context, p models.Project) (*models.Project, error) {
	const op = "storage.CreateProject"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	if p.Status == "" {
		p.Status = "planned"
	}

	query := `INSERT INTO projects (user_id, client_id, client_name, name, address, status, budget, start_date)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			  RETURNING id, created_at`
	err := s.DB.QueryRowContext(ctx, query,
		p.UserID, p.ClientID, p.ClientName, p.Name, p.Address, p.Status, p.Budget, p.StartDate).
		Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &p, nil
}

// ListProjects возвращает проекты пользователя по фильтру.
func (s *Storage) ListProjects(ctx context.Context, userID string, f ProjectFilter) ([]models.Project, error) {
	const op = "storage.ListProjects"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	if f.Limit <= 0 {
		f.Limit = 20
	}

	b := psql.Select("id", "user_id", "client_id", "client_name", "name", "address",
		"status", "budget::float8", "start_date", "created_at").
		From("projects").
		Where(sq.Eq{"user_id": userID}).
		OrderBy("created_at DESC").
		Limit(uint64(f.Limit))
	if f.Status != "" {
		b = b.Where(sq.Eq{"status": f.Status})
	}
	if f.ClientID != nil {
		b = b.Where(sq.Eq{"client_id": *f.ClientID})
	}

	sqlStr, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	rows, err := s.DB.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var result []models.Project
	for rows.Next() {
		var (
			p        models.Project
			clientID sql.NullInt64
			start    sql.NullTime
		)
		if err := rows.Scan(&p.ID, &p.UserID, &clientID, &p.ClientName, &p.Name, &p.Address,
			&p.Status, &p.Budget, &start, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if clientID.Valid {
			p.ClientID = &clientID.Int64
		}
		if start.Valid {
			p.StartDate = &start.Time
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// UpdateProjectStatus меняет статус проекта пользователя.
func (s *Storage) UpdateProjectStatus(ctx context.Context, userID string, projectID int64, status string) error {
	const op = "storage.UpdateProjectStatus"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}

	res, err := s.DB.ExecContext(ctx,
		`UPDATE projects SET status = $1 WHERE id = $2 AND user_id = $3`, status, projectID, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return nil
}

// CreateTask добавляет задачу в проект пользователя.
func (s *Storage) CreateTask(ctx context.Context, t models.Task) (*models.Task, error) {
	const op = "storage.CreateTask"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	query := `INSERT INTO tasks (user_id, project_id, title, due_date)
			  SELECT $1, id, $3, $4 FROM projects WHERE id = $2 AND user_id = $1
			  RETURNING id, done, created_at`
	err := s.DB.QueryRowContext(ctx, query, t.UserID, t.ProjectID, t.Title, t.DueDate).
		Scan(&t.ID, &t.Done, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &t, nil
}

// ListTasks возвращает задачи проекта; includeDone добавляет выполненные.
func (s *Storage) ListTasks(ctx context.Context, userID string, projectID int64, includeDone bool) ([]models.Task, error) {
	const op = "storage.ListTasks"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	b := psql.Select("id", "user_id", "project_id", "title", "due_date", "done", "created_at").
		From("tasks").
		Where(sq.Eq{"user_id": userID, "project_id": projectID}).
		OrderBy("due_date NULLS LAST", "id")
	if !includeDone {
		b = b.Where(sq.Eq{"done": false})
	}

	sqlStr, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	rows, err := s.DB.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var result []models.Task
	for rows.Next() {
		var (
			t   models.Task
			due sql.NullTime
		)
		if err := rows.Scan(&t.ID, &t.UserID, &t.ProjectID, &t.Title, &due, &t.Done, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if due.Valid {
			t.DueDate = &due.Time
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
