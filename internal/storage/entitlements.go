package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/magabrotheeeer/contractor-assistant/internal/models"
)

const entitlementColumns = `user_id, platform, is_active, product_id, entitlement_id,
	expires_at, will_renew, linked_from_platform, updated_at`

// UpsertEntitlement создаёт или заменяет запись (user_id, platform).
// Возвращает запись в том виде, в котором она сохранена.
func (s *Storage) UpsertEntitlement(ctx context.Context, rec models.EntitlementRecord) (*models.EntitlementRecord, error) {
	const op = "storage.UpsertEntitlement"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	var linked *string
	if rec.LinkedFromPlatform != nil {
		v := string(*rec.LinkedFromPlatform)
		linked = &v
	}

	query := `INSERT INTO entitlements (user_id, platform, is_active, product_id, entitlement_id,
				expires_at, will_renew, linked_from_platform, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
			  ON CONFLICT (user_id, platform) DO UPDATE SET
				is_active = EXCLUDED.is_active,
				product_id = EXCLUDED.product_id,
				entitlement_id = EXCLUDED.entitlement_id,
				expires_at = EXCLUDED.expires_at,
				will_renew = EXCLUDED.will_renew,
				linked_from_platform = EXCLUDED.linked_from_platform,
				updated_at = NOW()
			  RETURNING ` + entitlementColumns

	row := s.DB.QueryRowContext(ctx, query,
		rec.UserID, string(rec.Platform), rec.IsActive, rec.ProductID, rec.EntitlementID,
		rec.ExpiresAt, rec.WillRenew, linked)
	saved, err := scanEntitlement(row)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return saved, nil
}

// ListEntitlementsByUser возвращает все записи пользователя (не более одной на платформу).
func (s *Storage) ListEntitlementsByUser(ctx context.Context, userID string) ([]models.EntitlementRecord, error) {
	const op = "storage.ListEntitlementsByUser"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	rows, err := s.DB.QueryContext(ctx,
		`SELECT `+entitlementColumns+` FROM entitlements WHERE user_id = $1 ORDER BY platform`, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var result []models.EntitlementRecord
	for rows.Next() {
		rec, err := scanEntitlement(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// ListExpiredEntitlements возвращает собственные (не связанные) записи,
// которые ещё помечены активными, хотя срок истёк раньше before.
func (s *Storage) ListExpiredEntitlements(ctx context.Context, before time.Time, limit int) ([]models.EntitlementRecord, error) {
	const op = "storage.ListExpiredEntitlements"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 100
	}

	sqlStr, args, err := psql.Select(entitlementColumns).
		From("entitlements").
		Where(sq.Eq{"is_active": true, "linked_from_platform": nil}).
		Where(sq.Lt{"expires_at": before}).
		OrderBy("expires_at").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	rows, err := s.DB.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var result []models.EntitlementRecord
	for rows.Next() {
		rec, err := scanEntitlement(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntitlement(row scanner) (*models.EntitlementRecord, error) {
	var (
		rec      models.EntitlementRecord
		platform string
		product  sql.NullString
		entID    sql.NullString
		expires  sql.NullTime
		linked   sql.NullString
	)
	if err := row.Scan(&rec.UserID, &platform, &rec.IsActive, &product, &entID,
		&expires, &rec.WillRenew, &linked, &rec.UpdatedAt); err != nil {
		return nil, err
	}
	rec.Platform = models.Platform(platform)
	if product.Valid {
		rec.ProductID = &product.String
	}
	if entID.Valid {
		rec.EntitlementID = &entID.String
	}
	if expires.Valid {
		t := expires.Time
		rec.ExpiresAt = &t
	}
	if linked.Valid {
		p := models.Platform(linked.String)
		rec.LinkedFromPlatform = &p
	}
	return &rec, nil
}
