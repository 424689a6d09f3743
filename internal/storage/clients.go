package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/magabrotheeeer/contractor-assistant/internal/models"
)

// CreateClient сохраняет нового заказчика пользователя.
func (s *Storage) CreateClient(ctx context.Context, c models.Client) (*models.Client, error) {
	const op = "storage.CreateClient"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	query := `INSERT INTO clients (user_id, name, email, phone, address)
			  VALUES ($1, $2, $3, $4, $5)
			  RETURNING id, created_at`
	err := s.DB.QueryRowContext(ctx, query, c.UserID, c.Name, c.Email, c.Phone, c.Address).
		Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &c, nil
}

// FindClients ищет заказчиков по подстроке имени, email или телефона.
// Пустой запрос возвращает последних заказчиков.
func (s *Storage) FindClients(ctx context.Context, userID, query string, limit int) ([]models.Client, error) {
	const op = "storage.FindClients"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 10
	}

	b := psql.Select("id", "user_id", "name", "email", "phone", "address", "created_at").
		From("clients").
		Where(sq.Eq{"user_id": userID}).
		OrderBy("created_at DESC").
		Limit(uint64(limit))
	if q := strings.TrimSpace(query); q != "" {
		pattern := "%" + q + "%"
		b = b.Where(sq.Or{
			sq.ILike{"name": pattern},
			sq.ILike{"email": pattern},
			sq.ILike{"phone": pattern},
		})
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

	var result []models.Client
	for rows.Next() {
		var c models.Client
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.Email, &c.Phone, &c.Address, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// FindClientByName возвращает заказчика с точным (без учёта регистра) именем,
// а при его отсутствии единственное совпадение по подстроке. ErrNotFound, если
// совпадений нет или их несколько.
func (s *Storage) FindClientByName(ctx context.Context, userID, name string) (*models.Client, error) {
	const op = "storage.FindClientByName"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
	}

	var c models.Client
	err := s.DB.QueryRowContext(ctx,
		`SELECT id, user_id, name, email, phone, address, created_at
		 FROM clients WHERE user_id = $1 AND lower(name) = lower($2)
		 ORDER BY id LIMIT 1`, userID, name).
		Scan(&c.ID, &c.UserID, &c.Name, &c.Email, &c.Phone, &c.Address, &c.CreatedAt)
	if err == nil {
		return &c, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	candidates, err := s.FindClients(ctx, userID, name, 2)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if len(candidates) != 1 {
		return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return &candidates[0], nil
}

// AddClientNote добавляет заметку к заказчику пользователя.
func (s *Storage) AddClientNote(ctx context.Context, n models.ClientNote) (*models.ClientNote, error) {
	const op = "storage.AddClientNote"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	query := `INSERT INTO client_notes (user_id, client_id, body)
			  SELECT $1, id, $3 FROM clients WHERE id = $2 AND user_id = $1
			  RETURNING id, created_at`
	err := s.DB.QueryRowContext(ctx, query, n.UserID, n.ClientID, n.Body).Scan(&n.ID, &n.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &n, nil
}
