package orders

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/odyssey-commerce/storefront/internal/platform/httpx"
	"github.com/odyssey-commerce/storefront/internal/pricing"
	"github.com/odyssey-commerce/storefront/internal/shared"
)

// ErrEmptyCart is returned when checking out without cart lines.
var ErrEmptyCart = fmt.Errorf("%w: cart is empty", httpx.ErrValidation)

// TransitionObserver is notified after a status change commits.
type TransitionObserver interface {
	ObserveOrderTransition(from, to string)
}

// StockNotifier is told when checkout or cancellation changed product stock.
type StockNotifier interface {
	Invalidate(ctx context.Context)
}

type Service struct {
	repo     Repository
	observer TransitionObserver
	stock    StockNotifier
	logger   *slog.Logger
}

func NewService(repo Repository, observer TransitionObserver, stock StockNotifier, logger *slog.Logger) *Service {
	return &Service{repo: repo, observer: observer, stock: stock, logger: logger}
}

// Checkout turns the customer's cart into a PENDING order in one transaction.
func (s *Service) Checkout(ctx context.Context, customerID int64, in CheckoutInput) (*Order, error) {
	if err := httpx.Validate(in); err != nil {
		return nil, err
	}
	var orderID int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		lines, err := tx.LockCart(ctx, customerID)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return ErrEmptyCart
		}
		ship, err := tx.Shipping(ctx, customerID, in.AddressID)
		if err != nil {
			return err
		}
		promo, err := s.choosePromo(ctx, tx, customerID, in.PromoCode)
		if err != nil {
			return err
		}
		pct := promo.PercentOff()

		order := Order{CustomerID: customerID, Status: StatusPending, Shipping: *ship}
		if promo != nil {
			order.PromoCodeID = &promo.ID
		}
		items := make([]Item, 0, len(lines))
		for _, l := range lines {
			if !l.IsActive {
				return fmt.Errorf("%w: %s is no longer available", httpx.ErrConflict, l.Name)
			}
			if l.Quantity > l.Stock {
				return fmt.Errorf("%w: insufficient stock for %s", httpx.ErrConflict, l.Name)
			}
			unit := pricing.Discounted(l.PriceCents, pct)
			items = append(items, Item{
				ProductID:      l.ProductID,
				Name:           l.Name,
				UnitPriceCents: unit,
				Quantity:       l.Quantity,
				LineTotalCents: pricing.LineTotal(unit, l.Quantity),
			})
			order.SubtotalCents += pricing.LineTotal(l.PriceCents, l.Quantity)
			order.TotalCents += pricing.LineTotal(unit, l.Quantity)
		}
		order.DiscountCents = order.SubtotalCents - order.TotalCents

		orderID, err = tx.Insert(ctx, order)
		if err != nil {
			return err
		}
		for _, it := range items {
			it.OrderID = orderID
			if err := tx.InsertItem(ctx, it); err != nil {
				return err
			}
			if err := tx.DecrementStock(ctx, it.ProductID, it.Quantity); err != nil {
				return err
			}
		}
		return tx.ClearCart(ctx, customerID)
	})
	if err != nil {
		return nil, err
	}
	s.notifyStock(ctx)
	s.logger.Info("order placed", slog.Int64("order_id", orderID), slog.Int64("customer_id", customerID))
	return s.repo.Get(ctx, orderID)
}

func (s *Service) choosePromo(ctx context.Context, tx Repository, customerID int64, code string) (*pricing.ActivePromo, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return tx.BestPromo(ctx, customerID)
	}
	promo, err := tx.PromoByCode(ctx, customerID, code)
	if err != nil {
		return nil, err
	}
	if promo == nil {
		return nil, fmt.Errorf("%w: promo code is not active for this account", httpx.ErrValidation)
	}
	return promo, nil
}

// ListMine lists the customer's own orders.
func (s *Service) ListMine(ctx context.Context, customerID int64, page shared.PageRequest) (*OrderPage, error) {
	return s.list(ctx, ListFilter{CustomerID: &customerID}, page)
}

// GetMine loads an order owned by customerID. Orders of other customers are reported missing.
func (s *Service) GetMine(ctx context.Context, customerID, orderID int64) (*Order, error) {
	o, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.CustomerID != customerID {
		return nil, fmt.Errorf("%w: order", httpx.ErrNotFound)
	}
	return o, nil
}

// ListAll lists orders for the back office, optionally by status.
func (s *Service) ListAll(ctx context.Context, status string, page shared.PageRequest) (*OrderPage, error) {
	filter := ListFilter{}
	if status != "" {
		st, err := ParseStatus(status)
		if err != nil {
			return nil, err
		}
		filter.Status = &st
	}
	return s.list(ctx, filter, page)
}

func (s *Service) list(ctx context.Context, filter ListFilter, page shared.PageRequest) (*OrderPage, error) {
	filter.Limit = page.PerPage
	filter.Offset = page.Offset()
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &OrderPage{Items: items, Pagination: shared.NewPagination(page.Page, page.PerPage, total)}, nil
}

// Get loads any order.
func (s *Service) Get(ctx context.Context, orderID int64) (*Order, error) {
	return s.repo.Get(ctx, orderID)
}

// Cancel cancels the customer's own order. Only PENDING and PROCESSING orders can be cancelled.
func (s *Service) Cancel(ctx context.Context, customerID, orderID int64) (*Order, error) {
	return s.transition(ctx, orderID, StatusCancelled, func(o *Order) error {
		if o.CustomerID != customerID {
			return fmt.Errorf("%w: order", httpx.ErrNotFound)
		}
		return nil
	}, nil)
}

// UpdateStatus moves an order on behalf of a back-office user and records an audit entry.
func (s *Service) UpdateStatus(ctx context.Context, actorID, orderID int64, to Status) (*Order, error) {
	return s.transition(ctx, orderID, to, nil, func(ctx context.Context, tx Repository, from Status) error {
		return tx.Audit(ctx, shared.AuditLog{
			ActorID:  actorID,
			Action:   "order.status",
			Entity:   "order",
			EntityID: strconv.FormatInt(orderID, 10),
			Meta:     map[string]any{"from": string(from), "to": string(to)},
		})
	})
}

// transition is the only writer of order status. It locks the row and writes only if the status
// read is still current.
func (s *Service) transition(
	ctx context.Context,
	orderID int64,
	to Status,
	check func(*Order) error,
	after func(context.Context, Repository, Status) error,
) (*Order, error) {
	var from Status
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		o, err := tx.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if check != nil {
			if err := check(o); err != nil {
				return err
			}
		}
		from = o.Status
		if err := ValidateTransition(from, to); err != nil {
			return err
		}
		changed, err := tx.TransitionStatus(ctx, orderID, from, to)
		if err != nil {
			return err
		}
		if !changed {
			return fmt.Errorf("%w: order status changed concurrently", httpx.ErrValidation)
		}
		if to == StatusCancelled {
			if err := tx.Restock(ctx, orderID); err != nil {
				return err
			}
		}
		if after != nil {
			return after(ctx, tx, from)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if s.observer != nil {
		s.observer.ObserveOrderTransition(string(from), string(to))
	}
	if to == StatusCancelled {
		s.notifyStock(ctx)
	}
	s.logger.Info("order status changed", slog.Int64("order_id", orderID), slog.String("from", string(from)), slog.String("to", string(to)))
	return s.repo.Get(ctx, orderID)
}

func (s *Service) notifyStock(ctx context.Context) {
	if s.stock != nil {
		s.stock.Invalidate(ctx)
	}
}
