package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/velstore/settlement-service/internal/domain"
	"github.com/velstore/settlement-service/internal/logger"
)

type OrderRepo interface {
	// MarkPaidAndFetch переводит все позиции заказа в paid и возвращает
	// батч с джойнами — в одной транзакции. Пустой батч без ошибки =
	// заказ уже рассчитан (повторная доставка вебхука).
	MarkPaidAndFetch(ctx context.Context, orderRef, paymentID string) ([]domain.SettledOrder, error)
	// nil-аргумент оставляет соответствующую колонку как есть null —
	// фулфилмент может деградировать частично.
	SetShipment(ctx context.Context, orderRef string, costPerOrder *float64, waybill *string, ttd *time.Time) error
}

type OrderRepository struct {
	pool *pgxpool.Pool
}

func NewOrderRepository(p *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: p}
}

// Условие payment_success = false и есть весь идемпотентный гейт:
// из двух конкурентных доставок одного события строки захватит ровно одна.
// UPDATE и перечитывание живут в одной транзакции: если перечитать не
// удалось, переход в paid откатывается и редоставка вебхука начнёт с нуля.
func (r *OrderRepository) MarkPaidAndFetch(ctx context.Context, orderRef, paymentID string) ([]domain.SettledOrder, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		logger.Warn("orders: begin tx failed", "ref", orderRef, "err", err)
		return nil, err
	}
	defer func() {
		if tx != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	rows, err := tx.Query(ctx, `
		UPDATE shop.orders
		SET payment_id = $1, payment_success = true, updated_at = now()
		WHERE order_ref = $2 AND payment_success = false
		RETURNING id
	`, paymentID, orderRef)
	if err != nil {
		logger.Warn("orders: mark paid failed", "ref", orderRef, "err", err)
		return nil, err
	}

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(ids) == 0 {
		return nil, nil
	}

	batch, err := settledBatchTx(ctx, tx, orderRef)
	if err != nil {
		logger.Warn("orders: settled batch query failed, rolling transition back", "ref", orderRef, "err", err)
		return nil, err
	}

	if err = tx.Commit(ctx); err != nil {
		logger.Warn("orders: commit failed", "ref", orderRef, "err", err)
		return nil, err
	}
	tx = nil
	return batch, nil
}

func settledBatchTx(ctx context.Context, tx pgx.Tx, orderRef string) ([]domain.SettledOrder, error) {
	rows, err := tx.Query(ctx, `
		SELECT o.id, o.order_ref, o.price_paise, o.size, o.qty,
		       o.payment_id, o.payment_success, o.time_to_deliver, o.shipment_cost, o.waybill,
		       o.user_id, o.product_id, o.address_id, o.created_at, o.updated_at,
		       u.name, u.email, u.phone,
		       p.title, p.image_url, p.weight_kg, p.length_cm, p.breadth_cm, p.height_cm,
		       a.line, a.city, a.state, a.pincode, a.phone
		FROM shop.orders o
		JOIN shop.users u     ON u.id = o.user_id
		JOIN shop.products p  ON p.id = o.product_id
		JOIN shop.addresses a ON a.id = o.address_id
		WHERE o.order_ref = $1 AND o.payment_success = true
		ORDER BY o.created_at, o.id
	`, orderRef)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var batch []domain.SettledOrder
	for rows.Next() {
		var so domain.SettledOrder
		if err := rows.Scan(
			&so.ID, &so.OrderRef, &so.Price, &so.Size, &so.Qty,
			&so.PaymentID, &so.PaymentSuccess, &so.TimeToDeliver, &so.ShipmentCost, &so.Waybill,
			&so.UserID, &so.ProductID, &so.AddressID, &so.CreatedAt, &so.UpdatedAt,
			&so.UserName, &so.UserEmail, &so.UserPhone,
			&so.ProductTitle, &so.ProductImage, &so.UnitWeightKg, &so.UnitLengthCm, &so.UnitBreadthCm, &so.UnitHeightCm,
			&so.AddrLine, &so.AddrCity, &so.AddrState, &so.AddrPincode, &so.AddrPhone,
		); err != nil {
			return nil, err
		}
		batch = append(batch, so)
	}
	return batch, rows.Err()
}

func (r *OrderRepository) SetShipment(ctx context.Context, orderRef string, costPerOrder *float64, waybill *string, ttd *time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE shop.orders
		SET shipment_cost   = COALESCE($1, shipment_cost),
		    waybill         = COALESCE($2, waybill),
		    time_to_deliver = COALESCE($3, time_to_deliver),
		    updated_at      = now()
		WHERE order_ref = $4
	`, costPerOrder, waybill, ttd, orderRef)
	if err != nil {
		logger.Warn("orders: set shipment failed", "ref", orderRef, "err", err)
	}
	return err
}
