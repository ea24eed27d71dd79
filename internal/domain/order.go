package domain

import (
	"time"

	"github.com/google/uuid"
)

// Size — размерная сетка магазина; колонки в quantities один-в-один.
type Size string

const (
	SizeSM       Size = "sm"
	SizeMD       Size = "md"
	SizeLG       Size = "lg"
	SizeXL       Size = "xl"
	SizeDoubleXL Size = "doublexl"
)

func (s Size) Valid() bool {
	switch s {
	case SizeSM, SizeMD, SizeLG, SizeXL, SizeDoubleXL:
		return true
	}
	return false
}

// Order — одна позиция чекаута. Несколько позиций одного чекаута делят
// общий OrderRef (идентификатор заказа на стороне платёжного провайдера).
type Order struct {
	ID             uuid.UUID  `json:"id"`
	OrderRef       string     `json:"order_ref"`
	Price          int64      `json:"price_paise"`
	Size           Size       `json:"size"`
	Qty            int        `json:"qty"`
	PaymentID      *string    `json:"payment_id,omitempty"`
	PaymentSuccess bool       `json:"payment_success"`
	TimeToDeliver  *time.Time `json:"time_to_deliver,omitempty"`
	ShipmentCost   *float64   `json:"shipment_cost,omitempty"`
	Waybill        *string    `json:"waybill,omitempty"`
	UserID         uuid.UUID  `json:"user_id"`
	ProductID      uuid.UUID  `json:"product_id"`
	AddressID      uuid.UUID  `json:"address_id"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// SettledOrder — позиция после перевода в paid, с джойном на
// пользователя, товар и адрес. Единственный источник данных для
// инвентаря, фулфилмента и нотификаций.
type SettledOrder struct {
	Order

	UserName  string `json:"user_name"`
	UserEmail string `json:"user_email"`
	UserPhone string `json:"user_phone"`

	ProductTitle string `json:"product_title"`
	ProductImage string `json:"product_image"`
	// габариты единицы товара
	UnitWeightKg  float64 `json:"unit_weight_kg"`
	UnitLengthCm  float64 `json:"unit_length_cm"`
	UnitBreadthCm float64 `json:"unit_breadth_cm"`
	UnitHeightCm  float64 `json:"unit_height_cm"`

	AddrLine    string `json:"addr_line"`
	AddrCity    string `json:"addr_city"`
	AddrState   string `json:"addr_state"`
	AddrPincode string `json:"addr_pincode"`
	AddrPhone   string `json:"addr_phone"`
}

// Quantity — складские остатки товара по размерам.
type Quantity struct {
	ProductID uuid.UUID `json:"product_id"`
	SM        int       `json:"sm"`
	MD        int       `json:"md"`
	LG        int       `json:"lg"`
	XL        int       `json:"xl"`
	DoubleXL  int       `json:"doublexl"`
}

// Activity — запись в пользовательской ленте событий, только insert.
type Activity struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Type      string    `json:"type"`
	UserID    uuid.UUID `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// ShipmentAggregate — параметры посылки, пересчитываются из батча
// детерминированно и нигде не хранятся.
type ShipmentAggregate struct {
	WeightKg      float64 `json:"weight_kg"`
	HeightCm      float64 `json:"height_cm"`
	MaxLengthCm   float64 `json:"max_length_cm"`
	MaxBreadthCm  float64 `json:"max_breadth_cm"`
	DeclaredValue int64   `json:"declared_value"`
}

// SettlementEvent публикуется в Kafka после завершения сеттлмента,
// чтобы даунстрим мог дослать фулфилмент/нотификации без редоставки вебхука.
type SettlementEvent struct {
	OrderRef  string      `json:"order_ref"`
	PaymentID string      `json:"payment_id"`
	OrderIDs  []uuid.UUID `json:"order_ids"`
	UserID    uuid.UUID   `json:"user_id"`
	Amount    int64       `json:"amount_paise"`
	Waybill   string      `json:"waybill,omitempty"`
	SettledAt time.Time   `json:"settled_at"`
}
