package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/haroonshop/storefront-backend/api/controllers"
	"github.com/haroonshop/storefront-backend/api/middleware"
	cartsvc "github.com/haroonshop/storefront-backend/internal/cart"
	catalogsvc "github.com/haroonshop/storefront-backend/internal/catalog"
	couponsvc "github.com/haroonshop/storefront-backend/internal/coupons"
	ordersvc "github.com/haroonshop/storefront-backend/internal/orders"
	"github.com/haroonshop/storefront-backend/pkg/config"
	"github.com/haroonshop/storefront-backend/pkg/logger"
	"github.com/haroonshop/storefront-backend/pkg/metrics"
	pkgredis "github.com/haroonshop/storefront-backend/pkg/redis"
)

type dbPinger interface {
	Ping(ctx context.Context) error
}

type cacheClient interface {
	pkgredis.IdempotencyStore
	Ping(ctx context.Context) error
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	httpMetrics *metrics.HTTPMetrics,
	database dbPinger,
	cache cacheClient,
	catalogService catalogsvc.Service,
	couponService couponsvc.Service,
	cartService cartsvc.Service,
	orderService ordersvc.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.CORS(),
		middleware.Logging(logg, httpMetrics),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, database, cache, logg))
	})
	r.Method(http.MethodGet, "/metrics", httpMetrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/products", controllers.ProductsList(catalogService, logg))
		r.Get("/products/{productID}", controllers.ProductGet(catalogService, logg))
		r.Get("/categories", controllers.CategoriesList(catalogService, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", controllers.CartGet(cartService, logg))
				r.Delete("/", controllers.CartClear(cartService, logg))
				r.Post("/items", controllers.CartAddItem(cartService, logg))
				r.Put("/items/{itemID}", controllers.CartUpdateItem(cartService, logg))
				r.Delete("/items/{itemID}", controllers.CartRemoveItem(cartService, logg))
				r.Post("/coupon", controllers.CartApplyCoupon(cartService, logg))
				r.Delete("/coupon", controllers.CartRemoveCoupon(cartService, logg))
			})

			r.With(middleware.Idempotency(cache, logg)).Post("/orders", controllers.OrdersCheckout(orderService, logg, httpMetrics))
			r.Get("/orders", controllers.OrdersListMine(orderService, logg))
			r.Get("/orders/{orderID}", controllers.OrdersGetMine(orderService, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAdmin(logg))

				r.Post("/products", controllers.AdminProductCreate(catalogService, logg))
				r.Put("/products/{productID}", controllers.AdminProductUpdate(catalogService, logg))
				r.Delete("/products/{productID}", controllers.AdminProductDelete(catalogService, logg))
				r.Post("/categories", controllers.AdminCategoryCreate(catalogService, logg))

				r.With(middleware.Idempotency(cache, logg)).Post("/coupons", controllers.AdminCouponCreate(couponService, logg))
				r.Get("/coupons", controllers.AdminCouponList(couponService, logg))
				r.Get("/coupons/{couponID}", controllers.AdminCouponGet(couponService, logg))
				r.Put("/coupons/{couponID}", controllers.AdminCouponUpdate(couponService, logg))
				r.Delete("/coupons/{couponID}", controllers.AdminCouponDelete(couponService, logg))

				r.Route("/admin/orders", func(r chi.Router) {
					r.Get("/{orderID}", controllers.AdminOrderGet(orderService, logg))
					r.Patch("/{orderID}/status", controllers.AdminOrderUpdateStatus(orderService, logg))
				})
			})
		})
	})

	return r
}
