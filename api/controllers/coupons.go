package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/haroonshop/storefront-backend/api/responses"
	"github.com/haroonshop/storefront-backend/api/validators"
	couponsvc "github.com/haroonshop/storefront-backend/internal/coupons"
	"github.com/haroonshop/storefront-backend/pkg/db/models"
	"github.com/haroonshop/storefront-backend/pkg/logger"
)

type createCouponRequest struct {
	Name            string    `json:"name" validate:"required"`
	DiscountPercent int       `json:"discount_percent" validate:"required,min=10,max=50"`
	ExpiresAt       time.Time `json:"expires_at" validate:"required"`
}

// AdminCouponCreate inserts a new coupon.
func AdminCouponCreate(svc couponsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload createCouponRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		coupon, err := svc.Create(r.Context(), couponsvc.CreateInput{
			Name:            payload.Name,
			DiscountPercent: payload.DiscountPercent,
			ExpiresAt:       payload.ExpiresAt,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newCouponResponse(coupon))
	}
}

// AdminCouponList returns every coupon.
func AdminCouponList(svc couponsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		coupons, err := svc.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]couponResponse, 0, len(coupons))
		for i := range coupons {
			out = append(out, newCouponResponse(&coupons[i]))
		}
		responses.WriteSuccess(w, out)
	}
}

// AdminCouponGet returns one coupon.
func AdminCouponGet(svc couponsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		couponID, err := validators.PathUUID(r, "couponID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		coupon, err := svc.Get(r.Context(), couponID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newCouponResponse(coupon))
	}
}

type updateCouponRequest struct {
	DiscountPercent *int       `json:"discount_percent"`
	ExpiresAt       *time.Time `json:"expires_at"`
}

// AdminCouponUpdate applies partial changes to a coupon.
func AdminCouponUpdate(svc couponsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		couponID, err := validators.PathUUID(r, "couponID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateCouponRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		coupon, err := svc.Update(r.Context(), couponID, couponsvc.UpdateInput{
			DiscountPercent: payload.DiscountPercent,
			ExpiresAt:       payload.ExpiresAt,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newCouponResponse(coupon))
	}
}

// AdminCouponDelete removes a coupon.
func AdminCouponDelete(svc couponsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		couponID, err := validators.PathUUID(r, "couponID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), couponID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteNoContent(w)
	}
}

type couponResponse struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	DiscountPercent int       `json:"discount_percent"`
	ExpiresAt       time.Time `json:"expires_at"`
	CreatedAt       time.Time `json:"created_at"`
}

func newCouponResponse(coupon *models.Coupon) couponResponse {
	if coupon == nil {
		return couponResponse{}
	}
	return couponResponse{
		ID:              coupon.ID,
		Name:            coupon.Name,
		DiscountPercent: coupon.DiscountPercent,
		ExpiresAt:       coupon.ExpiresAt,
		CreatedAt:       coupon.CreatedAt,
	}
}
