package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/velstore/settlement-service/internal/domain"
	"github.com/velstore/settlement-service/internal/logger"
)

type InventoryRepo interface {
	// Decrement атомарно уменьшает счётчик размера и возвращает новое значение.
	Decrement(ctx context.Context, productID uuid.UUID, size domain.Size, qty int) (int, error)
}

type InventoryRepository struct {
	pool *pgxpool.Pool
}

func NewInventoryRepository(p *pgxpool.Pool) *InventoryRepository {
	return &InventoryRepository{pool: p}
}

// колонка подставляется только из этого списка, не из пользовательского ввода
var sizeColumn = map[domain.Size]string{
	domain.SizeSM:       "sm",
	domain.SizeMD:       "md",
	domain.SizeLG:       "lg",
	domain.SizeXL:       "xl",
	domain.SizeDoubleXL: "doublexl",
}

var ErrUnknownSize = fmt.Errorf("unknown size")

// Списание выражено одной серверной арифметической операцией, а не
// read-then-write в приложении: конкурентные писатели той же строки
// (админская правка остатков, параллельный сеттлмент) не теряют апдейты.
// Пола по нулю нет намеренно — ушедший в минус счётчик логирует вызывающий.
func (r *InventoryRepository) Decrement(ctx context.Context, productID uuid.UUID, size domain.Size, qty int) (int, error) {
	col, ok := sizeColumn[size]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownSize, size)
	}

	var left int
	err := r.pool.QueryRow(ctx, fmt.Sprintf(`
		UPDATE shop.quantities
		SET %s = %s - $1, updated_at = now()
		WHERE product_id = $2
		RETURNING %s
	`, col, col, col), qty, productID).Scan(&left)
	if err != nil {
		logger.Warn("inventory: decrement failed", "product", productID, "size", size, "err", err)
		return 0, err
	}
	return left, nil
}
