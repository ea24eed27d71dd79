package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/velstore/settlement-service/internal/logger"
)

type CartRepo interface {
	// ClearForUser сносит корзину целиком: всё, что пользователь собирался
	// купить, либо уже оплачено, либо брошено.
	ClearForUser(ctx context.Context, userID uuid.UUID) error
}

type CartRepository struct {
	pool *pgxpool.Pool
}

func NewCartRepository(p *pgxpool.Pool) *CartRepository {
	return &CartRepository{pool: p}
}

func (r *CartRepository) ClearForUser(ctx context.Context, userID uuid.UUID) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		logger.Warn("cart: begin tx failed", "user", userID, "err", err)
		return err
	}
	defer func() {
		if tx != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	_, err = tx.Exec(ctx, `
		DELETE FROM shop.cart_items
		WHERE cart_id IN (SELECT id FROM shop.carts WHERE user_id = $1)
	`, userID)
	if err != nil {
		logger.Warn("cart: delete items failed", "user", userID, "err", err)
		return err
	}

	_, err = tx.Exec(ctx, `DELETE FROM shop.carts WHERE user_id = $1`, userID)
	if err != nil {
		logger.Warn("cart: delete cart failed", "user", userID, "err", err)
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		logger.Warn("cart: commit failed", "user", userID, "err", err)
		return err
	}
	tx = nil
	return nil
}
