package settlement

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/velstore/settlement-service/internal/carrier"
	"github.com/velstore/settlement-service/internal/domain"
	"github.com/velstore/settlement-service/internal/logger"
	"github.com/velstore/settlement-service/internal/notify"
	"github.com/velstore/settlement-service/internal/repository"
)

type CarrierAPI interface {
	RateQuote(ctx context.Context, req carrier.RateRequest) (float64, error)
	CreateShipment(ctx context.Context, req carrier.ShipmentRequest) (string, error)
	TransitDays(ctx context.Context, pincode string) (int, error)
}

type ReceiptMailer interface {
	SendReceipt(ctx context.Context, r notify.Receipt) error
}

type TemplateSender interface {
	SendTemplate(ctx context.Context, msg notify.TemplateMessage) error
}

type EventPublisher interface {
	PublishSettlement(ctx context.Context, ev domain.SettlementEvent) error
}

type Options struct {
	PickupPincode  string
	PickupLocation string
	OpsPhone       string
	Location       *time.Location
}

// Service проводит сеттлмент заказа по событию об успешной оплате:
// переход в paid -> списание остатков -> фулфилмент -> нотификации.
type Service struct {
	orders    repository.OrderRepo
	inventory repository.InventoryRepo
	activity  repository.ActivityRepo
	carts     repository.CartRepo

	carrier  CarrierAPI
	mailer   ReceiptMailer
	whatsapp TemplateSender
	events   EventPublisher

	opts Options
	now  func() time.Time
}

func NewService(
	orders repository.OrderRepo,
	inventory repository.InventoryRepo,
	activity repository.ActivityRepo,
	carts repository.CartRepo,
	carrierAPI CarrierAPI,
	mailer ReceiptMailer,
	whatsapp TemplateSender,
	events EventPublisher,
	opts Options,
) *Service {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &Service{
		orders:    orders,
		inventory: inventory,
		activity:  activity,
		carts:     carts,
		carrier:   carrierAPI,
		mailer:    mailer,
		whatsapp:  whatsapp,
		events:    events,
		opts:      opts,
		now:       time.Now,
	}
}

// что удалось добыть у перевозчика; nil = вызов деградировал
type shipmentInfo struct {
	PerOrderCost *float64
	Waybill      *string
	TTD          *time.Time
}

// Settle — вся сага по одному событию оплаты. Ошибку возвращает только
// переход в paid: транзакция откатилась целиком, редоставка вебхука
// начнёт с нуля — единственный случай, где это корректное восстановление.
func (s *Service) Settle(ctx context.Context, paymentID, orderRef string) error {
	batch, err := s.orders.MarkPaidAndFetch(ctx, orderRef, paymentID)
	if err != nil {
		return fmt.Errorf("settlement: mark paid %s: %w", orderRef, err)
	}
	if len(batch) == 0 {
		// повторная доставка: заказ уже рассчитан, все эффекты уже применены
		logger.Info("settlement: already settled, skipping", "ref", orderRef)
		return nil
	}
	logger.Info("settlement: batch settled", "ref", orderRef, "orders", len(batch), "payment", paymentID)

	s.applyInventory(ctx, batch)
	s.recordActivities(ctx, batch)
	if err := s.carts.ClearForUser(ctx, batch[0].UserID); err != nil {
		logger.Warn("settlement: cart clear failed", "user", batch[0].UserID, "err", err)
	}

	info := s.fulfil(ctx, batch)

	s.notifyAll(ctx, batch, info)

	s.publishEvent(ctx, paymentID, batch, info)
	return nil
}

// списания независимы по строкам, гоним параллельно
func (s *Service) applyInventory(ctx context.Context, batch []domain.SettledOrder) {
	g, gctx := errgroup.WithContext(ctx)
	for _, o := range batch {
		o := o
		g.Go(func() error {
			left, err := s.inventory.Decrement(gctx, o.ProductID, o.Size, o.Qty)
			if err != nil {
				// оплата уже прошла — сагу не валим
				logger.Error("settlement: inventory decrement failed", "order", o.ID, "product", o.ProductID, "size", o.Size, "err", err)
				return nil
			}
			if left < 0 {
				// на чекауте резерва не было; оверселл разруливается руками
				logger.Warn("settlement: stock went negative", "product", o.ProductID, "size", o.Size, "left", left)
			}
			return nil
		})
	}
	_ = g.Wait()
}

func (s *Service) recordActivities(ctx context.Context, batch []domain.SettledOrder) {
	for _, o := range batch {
		title := fmt.Sprintf("Order placed: %s (%s) x%d", o.ProductTitle, o.Size, o.Qty)
		if err := s.activity.Record(ctx, title, "order", o.UserID); err != nil {
			logger.Warn("settlement: activity record failed", "order", o.ID, "err", err)
		}
	}
}

// fulfil ходит к перевозчику за сроком, тарифом и накладной. Каждый
// вызов деградирует независимо: чего не добыли — останется null.
func (s *Service) fulfil(ctx context.Context, batch []domain.SettledOrder) shipmentInfo {
	var info shipmentInfo
	first := batch[0]
	agg := Aggregate(batch)

	if days, err := s.carrier.TransitDays(ctx, first.AddrPincode); err != nil {
		logger.Warn("settlement: transit lookup failed, no delivery estimate", "ref", first.OrderRef, "pincode", first.AddrPincode, "err", err)
	} else {
		ttd := DeliveryEstimate(s.now(), days, s.opts.Location)
		info.TTD = &ttd
	}

	if quote, err := s.carrier.RateQuote(ctx, carrier.RateRequest{
		PickupPincode: s.opts.PickupPincode,
		DropPincode:   first.AddrPincode,
		WeightKg:      agg.WeightKg,
	}); err != nil {
		logger.Warn("settlement: rate quote failed, no shipment cost", "ref", first.OrderRef, "err", err)
	} else {
		cost := SplitCost(quote, len(batch))
		info.PerOrderCost = &cost
	}

	if waybill, err := s.carrier.CreateShipment(ctx, carrier.ShipmentRequest{
		OrderRef:       first.OrderRef,
		Name:           first.UserName,
		Phone:          first.AddrPhone,
		Address:        first.AddrLine,
		City:           first.AddrCity,
		State:          first.AddrState,
		Pincode:        first.AddrPincode,
		WeightKg:       agg.WeightKg,
		LengthCm:       agg.MaxLengthCm,
		BreadthCm:      agg.MaxBreadthCm,
		HeightCm:       agg.HeightCm,
		DeclaredValue:  agg.DeclaredValue,
		PickupLocation: s.opts.PickupLocation,
	}); err != nil {
		logger.Warn("settlement: create shipment failed, no waybill", "ref", first.OrderRef, "err", err)
	} else {
		info.Waybill = &waybill
	}

	if info.PerOrderCost == nil && info.Waybill == nil && info.TTD == nil {
		return info
	}
	if err := s.orders.SetShipment(ctx, first.OrderRef, info.PerOrderCost, info.Waybill, info.TTD); err != nil {
		logger.Warn("settlement: set shipment fields failed", "ref", first.OrderRef, "err", err)
	}
	return info
}

// одно письмо-чек на батч + по два шаблонных сообщения на позицию
// (клиент и опс); всё best-effort, ронять ответ вебхука нельзя
func (s *Service) notifyAll(ctx context.Context, batch []domain.SettledOrder, info shipmentInfo) {
	first := batch[0]

	var g errgroup.Group
	g.Go(func() error {
		if err := s.mailer.SendReceipt(ctx, buildReceipt(batch, info)); err != nil {
			logger.Warn("settlement: receipt email failed", "ref", first.OrderRef, "to", first.UserEmail, "err", err)
		}
		return nil
	})

	for _, o := range batch {
		o := o
		customer := templateMessage("order-confirmed", o.UserPhone, o, info)
		ops := templateMessage("new-order", s.opts.OpsPhone, o, info)
		g.Go(func() error {
			if err := s.whatsapp.SendTemplate(ctx, customer); err != nil {
				logger.Warn("settlement: customer whatsapp failed", "order", o.ID, "err", err)
			}
			return nil
		})
		g.Go(func() error {
			if err := s.whatsapp.SendTemplate(ctx, ops); err != nil {
				logger.Warn("settlement: ops whatsapp failed", "order", o.ID, "err", err)
			}
			return nil
		})
	}
	_ = g.Wait()
}

func (s *Service) publishEvent(ctx context.Context, paymentID string, batch []domain.SettledOrder, info shipmentInfo) {
	if s.events == nil {
		return
	}
	ev := domain.SettlementEvent{
		OrderRef:  batch[0].OrderRef,
		PaymentID: paymentID,
		UserID:    batch[0].UserID,
		SettledAt: s.now().UTC(),
	}
	for _, o := range batch {
		ev.OrderIDs = append(ev.OrderIDs, o.ID)
		ev.Amount += o.Price * int64(o.Qty)
	}
	if info.Waybill != nil {
		ev.Waybill = *info.Waybill
	}
	if err := s.events.PublishSettlement(ctx, ev); err != nil {
		logger.Warn("settlement: publish event failed", "ref", ev.OrderRef, "err", err)
	}
}

func buildReceipt(batch []domain.SettledOrder, info shipmentInfo) notify.Receipt {
	first := batch[0]
	r := notify.Receipt{
		To:         first.UserEmail,
		Name:       first.UserName,
		OrderRef:   first.OrderRef,
		Address:    fmt.Sprintf("%s, %s, %s %s", first.AddrLine, first.AddrCity, first.AddrState, first.AddrPincode),
		DeliveryBy: info.TTD,
	}
	for _, o := range batch {
		r.Lines = append(r.Lines, notify.ReceiptLine{
			Product: o.ProductTitle,
			Size:    string(o.Size),
			Qty:     o.Qty,
			Price:   o.Price,
		})
		r.Total += o.Price * int64(o.Qty)
	}
	if info.Waybill != nil {
		r.Waybill = *info.Waybill
	}
	return r
}

// порядок параметров фиксирован шаблоном: картинка, имя, заказ, цена,
// дата доставки, накладная
func templateMessage(tpl, to string, o domain.SettledOrder, info shipmentInfo) notify.TemplateMessage {
	date, waybill := "-", "-"
	if info.TTD != nil {
		date = info.TTD.Format("02 Jan 2006")
	}
	if info.Waybill != nil {
		waybill = *info.Waybill
	}
	return notify.TemplateMessage{
		Template: tpl,
		To:       to,
		Params: []string{
			o.ProductImage,
			o.UserName,
			o.ID.String(),
			fmt.Sprintf("%.2f", float64(o.Price)/100),
			date,
			waybill,
		},
	}
}
