package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/haroonshop/storefront-backend/internal/cart"
	"github.com/haroonshop/storefront-backend/internal/catalog"
	"github.com/haroonshop/storefront-backend/pkg/db/models"
	"github.com/haroonshop/storefront-backend/pkg/enums"
	pkgerrors "github.com/haroonshop/storefront-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type stockMover interface {
	DebitStockBulk(ctx context.Context, tx *gorm.DB, lines []catalog.StockLine) error
	RestockBulk(ctx context.Context, tx *gorm.DB, lines []catalog.StockLine) error
}

// Service exposes checkout and the order ledger.
type Service interface {
	Checkout(ctx context.Context, userID uuid.UUID, input CheckoutInput) (*models.Order, error)
	GetOrderForUser(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error)
	GetOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	ListUserOrders(ctx context.Context, userID uuid.UUID) ([]models.Order, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, next enums.OrderStatus) (*models.Order, error)
}

type service struct {
	repo    *Repository
	tx      txRunner
	carts   *cart.Repository
	catalog stockMover
	now     func() time.Time
}

// NewService builds an order service backed by the provided stack.
func NewService(repo *Repository, tx txRunner, carts *cart.Repository, catalogSvc stockMover) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if carts == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if catalogSvc == nil {
		return nil, fmt.Errorf("catalog service required")
	}
	return &service{
		repo:    repo,
		tx:      tx,
		carts:   carts,
		catalog: catalogSvc,
		now:     time.Now,
	}, nil
}

// CheckoutInput captures the payload to turn a cart into an order.
type CheckoutInput struct {
	ShippingAddress models.ShippingAddress
	PaymentMethod   enums.PaymentMethod
}

// Checkout converts the user's cart into an order inside one transaction:
// the cart is loaded and locked, its lines are copied onto a pending order at
// the cart's effective total, stock is debited with the no-oversell guard,
// and the cart is deleted. Any failure rolls the whole thing back, leaving
// cart and stock untouched.
func (s *service) Checkout(ctx context.Context, userID uuid.UUID, input CheckoutInput) (*models.Order, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if err := validateShippingAddress(input.ShippingAddress); err != nil {
		return nil, err
	}
	method := input.PaymentMethod
	if method == "" {
		method = enums.PaymentMethodOnline
	}
	if !method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}

	var created *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		cartRepo := s.carts.WithTx(tx)

		userCart, err := cartRepo.FindByUserIDForUpdate(ctx, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
			}
			return err
		}
		if len(userCart.Items) == 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "cart is empty")
		}

		order := &models.Order{
			UserID:          userID,
			ShippingAddress: input.ShippingAddress,
			TotalPriceCents: userCart.EffectiveTotalCents(),
			Status:          enums.OrderStatusPending,
			PaymentMethod:   method,
			IsPaid:          false,
			Items:           make([]models.OrderItem, 0, len(userCart.Items)),
		}
		lines := make([]catalog.StockLine, 0, len(userCart.Items))
		for _, item := range userCart.Items {
			order.Items = append(order.Items, models.OrderItem{
				ProductID:      item.ProductID,
				Quantity:       item.Quantity,
				UnitPriceCents: item.UnitPriceCents,
			})
			lines = append(lines, catalog.StockLine{ProductID: item.ProductID, Qty: item.Quantity})
		}

		created, err = s.repo.WithTx(tx).Create(ctx, order)
		if err != nil {
			return err
		}

		if err := s.catalog.DebitStockBulk(ctx, tx, lines); err != nil {
			return err
		}

		return cartRepo.DeleteByID(ctx, userCart.ID)
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "checkout")
	}
	return created, nil
}

// GetOrderForUser returns the order only when it belongs to the user. A
// foreign order reads as not-found so order ids cannot be probed.
func (s *service) GetOrderForUser(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

// GetOrder returns any order by id. Admin surface.
func (s *service) GetOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

// ListUserOrders returns the user's ledger, newest first.
func (s *service) ListUserOrders(ctx context.Context, userID uuid.UUID) ([]models.Order, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	orders, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return orders, nil
}

// UpdateStatus advances the order through its state machine. Marking an order
// paid stamps the payment time; cancelling returns the reserved units to
// stock in the same transaction.
func (s *service) UpdateStatus(ctx context.Context, orderID uuid.UUID, next enums.OrderStatus) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	if !next.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}

	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		order, err := txRepo.FindByIDForUpdate(ctx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return err
		}

		if !order.Status.CanTransitionTo(next) {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("cannot move order from %s to %s", order.Status, next))
		}

		switch next {
		case enums.OrderStatusPaid:
			now := s.now()
			order.IsPaid = true
			order.PaidAt = &now
		case enums.OrderStatusCancelled:
			lines := make([]catalog.StockLine, 0, len(order.Items))
			for _, item := range order.Items {
				lines = append(lines, catalog.StockLine{ProductID: item.ProductID, Qty: item.Quantity})
			}
			if err := s.catalog.RestockBulk(ctx, tx, lines); err != nil {
				return err
			}
		}

		order.Status = next
		if err := txRepo.Save(ctx, order); err != nil {
			return err
		}
		updated = order
		return nil
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
	}
	return updated, nil
}

func validateShippingAddress(addr models.ShippingAddress) error {
	missing := []string{}
	if strings.TrimSpace(addr.City) == "" {
		missing = append(missing, "city")
	}
	if strings.TrimSpace(addr.Street) == "" {
		missing = append(missing, "street")
	}
	if strings.TrimSpace(addr.PostalCode) == "" {
		missing = append(missing, "postal_code")
	}
	if strings.TrimSpace(addr.Phone) == "" {
		missing = append(missing, "phone")
	}
	if len(missing) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation,
			"shipping address missing "+strings.Join(missing, ", "))
	}
	return nil
}
