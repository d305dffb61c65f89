package services

import (
	"context"
	"fmt"
	"strings"

	"synergyfoods/internal/domain"
	"synergyfoods/internal/events"
	"synergyfoods/internal/repos"
)

type OrderService struct {
	Orders *repos.OrderRepo
	Events events.Publisher
}

func NewOrderService(orders *repos.OrderRepo, pub events.Publisher) *OrderService {
	if pub == nil {
		pub = events.Noop{}
	}
	return &OrderService{Orders: orders, Events: pub}
}

// Payment webhook event types.
const (
	PaymentSessionCompleted = "checkout.session.completed"
	PaymentSessionExpired   = "checkout.session.expired"
	PaymentFailed           = "payment.failed"
)

type StatusInput struct {
	Status         string `json:"status" form:"status" validate:"required,oneof=PAID PAYMENT_FAILED PROCESSING SHIPPED DELIVERED CANCELLED"`
	TrackingNumber string `json:"trackingNumber" form:"trackingNumber" validate:"max=64"`
	Note           string `json:"note" form:"note" validate:"max=200"`
}

func (s *OrderService) List(ctx context.Context, status string, page, pageSize int) (domain.Page[domain.Order], error) {
	page, pageSize = domain.NormalizePage(page, pageSize)
	return s.Orders.List(ctx, status, page, pageSize)
}

func (s *OrderService) Get(ctx context.Context, id string) (domain.OrderDetail, error) {
	o, err := s.Orders.Get(ctx, id)
	if err != nil {
		return domain.OrderDetail{}, lookup(err, "order")
	}
	return orderDetail(ctx, s.Orders, o)
}

// UpdateStatus applies a dashboard transition. Transitions outside the table
// fail with ErrConflict; SHIPPED needs a tracking number.
func (s *OrderService) UpdateStatus(ctx context.Context, id string, in StatusInput) (domain.OrderDetail, error) {
	in.TrackingNumber = strings.TrimSpace(in.TrackingNumber)
	if err := check(in); err != nil {
		return domain.OrderDetail{}, err
	}
	o, err := s.Orders.Get(ctx, id)
	if err != nil {
		return domain.OrderDetail{}, lookup(err, "order")
	}
	if !domain.CanTransition(o.Status, in.Status) {
		return domain.OrderDetail{}, fmt.Errorf("%s -> %s not allowed: %w", o.Status, in.Status, ErrConflict)
	}
	if in.Status == domain.OrderShipped && in.TrackingNumber == "" {
		return domain.OrderDetail{}, invalid("trackingNumber", "is required when shipping")
	}
	if err := s.transition(ctx, o, in.Status, in.TrackingNumber, in.Note); err != nil {
		return domain.OrderDetail{}, err
	}
	return s.Get(ctx, id)
}

func (s *OrderService) transition(ctx context.Context, o domain.Order, to, tracking, note string) error {
	ok, err := s.Orders.Transition(ctx, o.ID, o.Status, to, tracking, note)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("order %s changed concurrently: %w", o.ID, ErrConflict)
	}
	publish(ctx, s.Events, events.NewOrderEvent(events.OrderStatusChanged, o.ID, to, o.Total))
	return nil
}

// HandlePaymentEvent applies a provider webhook to the order holding the
// payment session. Redelivered or out-of-date events are ignored, so it
// reports whether anything changed.
func (s *OrderService) HandlePaymentEvent(ctx context.Context, eventType, paymentSessionID string) (bool, error) {
	var to, note string
	switch eventType {
	case PaymentSessionCompleted:
		to, note = domain.OrderPaid, "Payment received"
	case PaymentSessionExpired, PaymentFailed:
		to, note = domain.OrderPaymentFailed, "Payment was not completed"
	default:
		return false, nil
	}
	o, err := s.Orders.GetByPaymentSession(ctx, paymentSessionID)
	if err != nil {
		return false, lookup(err, "order")
	}
	if o.Status != domain.OrderPendingPayment {
		return false, nil
	}
	ok, err := s.Orders.Transition(ctx, o.ID, o.Status, to, "", note)
	if err != nil || !ok {
		return false, err
	}
	publish(ctx, s.Events, events.NewOrderEvent(events.OrderStatusChanged, o.ID, to, o.Total))
	return true, nil
}
