package kafka

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/segmentio/kafka-go"

	"github.com/velstore/settlement-service/internal/domain"
)

// Producer публикует события завершённого сеттлмента. Даунстрим
// (переотправка фулфилмента, аналитика) читает этот топик и не зависит
// от редоставки вебхука провайдером.
type Producer struct {
	w *kafka.Writer
}

func NewProducer(brokersSTR, topic string) *Producer {
	brokers := strings.Split(brokersSTR, ",")

	return &Producer{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireAll,
			Async:        false,
		},
	}
}

func (p *Producer) Close() error {
	return p.w.Close()
}

// Ключ = order_ref: все события одного заказа попадают в одну партицию
// и сохраняют порядок.
func (p *Producer) PublishSettlement(ctx context.Context, ev domain.SettlementEvent) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	return p.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ev.OrderRef),
		Value: b,
		Headers: []kafka.Header{
			{Key: "content-type", Value: []byte("application/json")},
		},
	})
}
