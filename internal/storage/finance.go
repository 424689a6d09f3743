package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/magabrotheeeer/contractor-assistant/internal/models"
)

// ownedBy условие: ссылка param пуста или указывает на строку table пользователя $1.
func ownedBy(table, param string) string {
	return "(" + param + "::bigint IS NULL OR EXISTS (SELECT 1 FROM " + table +
		" WHERE id = " + param + "::bigint AND user_id = $1))"
}

// CreateEstimate сохраняет смету.
func (s *Storage) CreateEstimate(ctx context.Context, e models.Estimate) (*models.Estimate, error) {
	const op = "storage.CreateEstimate"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	if e.Status == "" {
		e.Status = "draft"
	}

	// Клиент и проект, если заданы, должны принадлежать тому же пользователю.
	query := `INSERT INTO estimates (user_id, client_id, client_name, project_id, title, amount, notes, status)
			  SELECT $1, $2, $3, $4, $5, $6, $7, $8
			  WHERE ` + ownedBy("clients", "$2") + ` AND ` + ownedBy("projects", "$4") + `
			  RETURNING id, created_at`
	err := s.DB.QueryRowContext(ctx, query,
		e.UserID, e.ClientID, e.ClientName, e.ProjectID, e.Title, e.Amount, e.Notes, e.Status).
		Scan(&e.ID, &e.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &e, nil
}

// ListEstimates возвращает сметы пользователя, опционально с фильтром по статусу.
func (s *Storage) ListEstimates(ctx context.Context, userID, status string, limit int) ([]models.Estimate, error) {
	const op = "storage.ListEstimates"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}

	b := psql.Select("id", "user_id", "client_id", "client_name", "project_id", "title",
		"amount::float8", "notes", "status", "created_at").
		From("estimates").
		Where(sq.Eq{"user_id": userID}).
		OrderBy("created_at DESC").
		Limit(uint64(limit))
	if status != "" {
		b = b.Where(sq.Eq{"status": status})
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

	var result []models.Estimate
	for rows.Next() {
		var (
			e         models.Estimate
			clientID  sql.NullInt64
			projectID sql.NullInt64
		)
		if err := rows.Scan(&e.ID, &e.UserID, &clientID, &e.ClientName, &projectID, &e.Title,
			&e.Amount, &e.Notes, &e.Status, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if clientID.Valid {
			e.ClientID = &clientID.Int64
		}
		if projectID.Valid {
			e.ProjectID = &projectID.Int64
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// CreateInvoice сохраняет счёт.
func (s *Storage) CreateInvoice(ctx context.Context, inv models.Invoice) (*models.Invoice, error) {
	const op = "storage.CreateInvoice"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	if inv.Status == "" {
		inv.Status = "open"
	}

	query := `INSERT INTO invoices (user_id, client_id, client_name, amount, status, due_date)
			  SELECT $1, $2, $3, $4, $5, $6
			  WHERE ` + ownedBy("clients", "$2") + `
			  RETURNING id, created_at`
	err := s.DB.QueryRowContext(ctx, query,
		inv.UserID, inv.ClientID, inv.ClientName, inv.Amount, inv.Status, inv.DueDate).
		Scan(&inv.ID, &inv.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &inv, nil
}

// ListInvoices возвращает счета пользователя, опционально с фильтром по статусу.
func (s *Storage) ListInvoices(ctx context.Context, userID, status string, limit int) ([]models.Invoice, error) {
	const op = "storage.ListInvoices"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}

	b := psql.Select("id", "user_id", "client_id", "client_name", "amount::float8", "status", "due_date", "created_at").
		From("invoices").
		Where(sq.Eq{"user_id": userID}).
		OrderBy("created_at DESC").
		Limit(uint64(limit))
	if status != "" {
		b = b.Where(sq.Eq{"status": status})
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

	var result []models.Invoice
	for rows.Next() {
		var (
			inv      models.Invoice
			clientID sql.NullInt64
			due      sql.NullTime
		)
		if err := rows.Scan(&inv.ID, &inv.UserID, &clientID, &inv.ClientName, &inv.Amount,
			&inv.Status, &due, &inv.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if clientID.Valid {
			inv.ClientID = &clientID.Int64
		}
		if due.Valid {
			inv.DueDate = &due.Time
		}
		result = append(result, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// CreateExpense сохраняет расход. Нулевой SpentAt означает сегодня.
func (s *Storage) CreateExpense(ctx context.Context, e models.Expense) (*models.Expense, error) {
	const op = "storage.CreateExpense"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	if e.SpentAt.IsZero() {
		e.SpentAt = time.Now().UTC().Truncate(24 * time.Hour)
	}

	query := `INSERT INTO expenses (user_id, project_id, category, amount, note, spent_at)
			  SELECT $1, $2, $3, $4, $5, $6
			  WHERE ` + ownedBy("projects", "$2") + `
			  RETURNING id, created_at`
	err := s.DB.QueryRowContext(ctx, query,
		e.UserID, e.ProjectID, e.Category, e.Amount, e.Note, e.SpentAt).
		Scan(&e.ID, &e.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &e, nil
}

// FinancialSummary считает выставленное, оплаченное, неоплаченное и расходы
// за полуинтервал [from, to).
func (s *Storage) FinancialSummary(ctx context.Context, userID string, from, to time.Time) (*models.FinancialSummary, error) {
	const op = "storage.FinancialSummary"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	sum := models.FinancialSummary{From: from, To: to}
	err := s.DB.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(amount), 0)::float8,
			COALESCE(SUM(amount) FILTER (WHERE status = 'paid'), 0)::float8,
			COALESCE(SUM(amount) FILTER (WHERE status <> 'paid'), 0)::float8,
			COUNT(*) FILTER (WHERE status <> 'paid')
		FROM invoices
		WHERE user_id = $1 AND created_at >= $2 AND created_at < $3`,
		userID, from, to).Scan(&sum.Invoiced, &sum.Paid, &sum.Outstanding, &sum.OpenInvoiceCnt)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	err = s.DB.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount), 0)::float8
		FROM expenses
		WHERE user_id = $1 AND spent_at >= $2 AND spent_at < $3`,
		userID, from, to).Scan(&sum.Expenses)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	sum.NetCashflow = sum.Paid - sum.Expenses
	return &sum, nil
}
