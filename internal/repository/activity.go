package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/velstore/settlement-service/internal/logger"
)

type ActivityRepo interface {
	Record(ctx context.Context, title, typ string, userID uuid.UUID) error
}

type ActivityRepository struct {
	pool *pgxpool.Pool
}

func NewActivityRepository(p *pgxpool.Pool) *ActivityRepository {
	return &ActivityRepository{pool: p}
}

func (r *ActivityRepository) Record(ctx context.Context, title, typ string, userID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO shop.activities (id, title, type, user_id)
		VALUES ($1, $2, $3, $4)
	`, uuid.New(), title, typ, userID)
	if err != nil {
		logger.Warn("activity: insert failed", "user", userID, "err", err)
	}
	return err
}
