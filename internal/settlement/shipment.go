package settlement

import (
	"math"
	"time"

	"github.com/velstore/settlement-service/internal/domain"
)

// запас к сроку перевозчика, чтобы не обещать впритык
const deliveryBufferDays = 2

// Aggregate считает параметры посылки по всем позициям одного заказа:
// вес и высота суммируются, длина и ширина берутся максимальные,
// объявленная ценность — сумма цен. Чистая функция: батч один и тот же —
// агрегат один и тот же, нигде не хранится.
func Aggregate(batch []domain.SettledOrder) domain.ShipmentAggregate {
	var agg domain.ShipmentAggregate
	for _, o := range batch {
		q := float64(o.Qty)
		agg.WeightKg += o.UnitWeightKg * q
		agg.HeightCm += o.UnitHeightCm * q
		if o.UnitLengthCm > agg.MaxLengthCm {
			agg.MaxLengthCm = o.UnitLengthCm
		}
		if o.UnitBreadthCm > agg.MaxBreadthCm {
			agg.MaxBreadthCm = o.UnitBreadthCm
		}
		agg.DeclaredValue += o.Price * int64(o.Qty)
	}
	return agg
}

// SplitCost делит котировку поровну между позициями, с округлением
// ВНИЗ до пайсы: floor после деления, не round. Сумма долей из-за этого
// может быть чуть меньше котировки, но никогда не больше.
func SplitCost(total float64, n int) float64 {
	if n <= 0 {
		return 0
	}
	return math.Floor(total/float64(n)*100) / 100
}

// DeliveryEstimate — ожидаемая дата доставки: сейчас + срок перевозчика +
// буфер, в таймзоне сервиса (UTC здесь сдвигал бы дату через полночь).
func DeliveryEstimate(now time.Time, transitDays int, loc *time.Location) time.Time {
	return now.In(loc).AddDate(0, 0, transitDays+deliveryBufferDays)
}
