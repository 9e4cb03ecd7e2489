package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/haroonshop/storefront-backend/api/responses"
	"github.com/haroonshop/storefront-backend/api/validators"
	ordersvc "github.com/haroonshop/storefront-backend/internal/orders"
	"github.com/haroonshop/storefront-backend/pkg/db/models"
	"github.com/haroonshop/storefront-backend/pkg/enums"
	"github.com/haroonshop/storefront-backend/pkg/logger"
	"github.com/haroonshop/storefront-backend/pkg/metrics"
)

type checkoutRequest struct {
	ShippingAddress shippingAddressPayload `json:"shipping_address" validate:"required"`
	PaymentMethod   string                 `json:"payment_method"`
}

type shippingAddressPayload struct {
	City       string `json:"city" validate:"required"`
	Street     string `json:"street" validate:"required"`
	PostalCode string `json:"postal_code" validate:"required"`
	Phone      string `json:"phone" validate:"required"`
}

// OrdersCheckout converts the user's cart into a pending order.
func OrdersCheckout(svc ordersvc.Service, logg *logger.Logger, m *metrics.HTTPMetrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Checkout(r.Context(), userID, ordersvc.CheckoutInput{
			ShippingAddress: models.ShippingAddress{
				City:       payload.ShippingAddress.City,
				Street:     payload.ShippingAddress.Street,
				PostalCode: payload.ShippingAddress.PostalCode,
				Phone:      payload.ShippingAddress.Phone,
			},
			PaymentMethod: enums.PaymentMethod(payload.PaymentMethod),
		})
		if err != nil {
			m.IncCheckout("aborted")
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		m.IncCheckout("committed")
		responses.WriteSuccessStatus(w, http.StatusCreated, newOrderResponse(order))
	}
}

// OrdersListMine returns the user's order ledger.
func OrdersListMine(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orders, err := svc.ListUserOrders(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]orderResponse, 0, len(orders))
		for i := range orders {
			out = append(out, newOrderResponse(&orders[i]))
		}
		responses.WriteSuccess(w, out)
	}
}

// OrdersGetMine returns one of the user's orders.
func OrdersGetMine(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := validators.PathUUID(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.GetOrderForUser(r.Context(), userID, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

// AdminOrderGet returns any order by id.
func AdminOrderGet(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.PathUUID(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.GetOrder(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// AdminOrderUpdateStatus advances an order through its state machine.
func AdminOrderUpdateStatus(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.PathUUID(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateStatusRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.UpdateStatus(r.Context(), orderID, enums.OrderStatus(payload.Status))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

type orderResponse struct {
	ID              uuid.UUID               `json:"id"`
	UserID          uuid.UUID               `json:"user_id"`
	ShippingAddress shippingAddressPayload  `json:"shipping_address"`
	TotalPriceCents int                     `json:"total_price_cents"`
	Status          string                  `json:"status"`
	PaymentMethod   string                  `json:"payment_method"`
	IsPaid          bool                    `json:"is_paid"`
	PaidAt          *time.Time              `json:"paid_at,omitempty"`
	Items           []orderItemResponse     `json:"items"`
	CreatedAt       time.Time               `json:"created_at"`
}

type orderItemResponse struct {
	ID             uuid.UUID `json:"id"`
	ProductID      uuid.UUID `json:"product_id"`
	Quantity       int       `json:"quantity"`
	UnitPriceCents int       `json:"unit_price_cents"`
}

func newOrderResponse(order *models.Order) orderResponse {
	if order == nil {
		return orderResponse{}
	}
	items := make([]orderItemResponse, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, orderItemResponse{
			ID:             item.ID,
			ProductID:      item.ProductID,
			Quantity:       item.Quantity,
			UnitPriceCents: item.UnitPriceCents,
		})
	}
	return orderResponse{
		ID:     order.ID,
		UserID: order.UserID,
		ShippingAddress: shippingAddressPayload{
			City:       order.ShippingAddress.City,
			Street:     order.ShippingAddress.Street,
			PostalCode: order.ShippingAddress.PostalCode,
			Phone:      order.ShippingAddress.Phone,
		},
		TotalPriceCents: order.TotalPriceCents,
		Status:          string(order.Status),
		PaymentMethod:   string(order.PaymentMethod),
		IsPaid:          order.IsPaid,
		PaidAt:          order.PaidAt,
		Items:           items,
		CreatedAt:       order.CreatedAt,
	}
}
