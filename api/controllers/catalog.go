package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/haroonshop/storefront-backend/api/responses"
	"github.com/haroonshop/storefront-backend/api/validators"
	catalogsvc "github.com/haroonshop/storefront-backend/internal/catalog"
	"github.com/haroonshop/storefront-backend/pkg/db/models"
	"github.com/haroonshop/storefront-backend/pkg/logger"
	"github.com/haroonshop/storefront-backend/pkg/pagination"
)

// ProductsList returns a page of active products.
func ProductsList(svc catalogsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", 0, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		categoryID, err := validators.ParseQueryUUID(r, "category_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.ListProducts(r.Context(), catalogsvc.ListProductsInput{
			CategoryID: categoryID,
			Pagination: pagination.Params{
				Limit:  limit,
				Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
			},
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := productPageResponse{
			Products:   make([]productResponse, 0, len(page.Products)),
			NextCursor: page.NextCursor,
		}
		for i := range page.Products {
			out.Products = append(out.Products, newProductResponse(&page.Products[i]))
		}
		responses.WriteSuccess(w, out)
	}
}

// ProductGet returns one product.
func ProductGet(svc catalogsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := validators.PathUUID(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.GetProduct(r.Context(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newProductResponse(product))
	}
}

type createProductRequest struct {
	Title       string  `json:"title" validate:"required"`
	Description string  `json:"description"`
	PriceCents  int     `json:"price_cents" validate:"required,min=1"`
	Stock       int     `json:"stock" validate:"min=0"`
	Image       *string `json:"image"`
	CategoryID  string  `json:"category_id" validate:"required,uuid"`
}

// AdminProductCreate inserts a new catalog listing.
func AdminProductCreate(svc catalogsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.CreateProduct(r.Context(), catalogsvc.CreateProductInput{
			Title:       payload.Title,
			Description: payload.Description,
			PriceCents:  payload.PriceCents,
			Stock:       payload.Stock,
			Image:       payload.Image,
			CategoryID:  uuid.MustParse(payload.CategoryID),
			OwnerID:     userID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newProductResponse(product))
	}
}

type updateProductRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	PriceCents  *int    `json:"price_cents"`
	Stock       *int    `json:"stock"`
	Image       *string `json:"image"`
	CategoryID  *string `json:"category_id"`
	IsActive    *bool   `json:"is_active"`
}

// AdminProductUpdate applies partial changes to a listing.
func AdminProductUpdate(svc catalogsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := validators.PathUUID(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := catalogsvc.UpdateProductInput{
			Title:       payload.Title,
			Description: payload.Description,
			PriceCents:  payload.PriceCents,
			Stock:       payload.Stock,
			Image:       payload.Image,
			IsActive:    payload.IsActive,
		}
		if payload.CategoryID != nil {
			categoryID, parseErr := uuid.Parse(*payload.CategoryID)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, validators.InvalidField("category_id"))
				return
			}
			input.CategoryID = &categoryID
		}

		product, err := svc.UpdateProduct(r.Context(), productID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newProductResponse(product))
	}
}

// AdminProductDelete removes a listing.
func AdminProductDelete(svc catalogsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := validators.PathUUID(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeleteProduct(r.Context(), productID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteNoContent(w)
	}
}

// CategoriesList returns every category.
func CategoriesList(svc catalogsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		categories, err := svc.ListCategories(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]categoryResponse, 0, len(categories))
		for _, category := range categories {
			out = append(out, newCategoryResponse(category))
		}
		responses.WriteSuccess(w, out)
	}
}

type createCategoryRequest struct {
	Name string `json:"name" validate:"required"`
	Slug string `json:"slug"`
}

// AdminCategoryCreate inserts a new category.
func AdminCategoryCreate(svc catalogsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload createCategoryRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		category, err := svc.CreateCategory(r.Context(), catalogsvc.CreateCategoryInput{
			Name: payload.Name,
			Slug: payload.Slug,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newCategoryResponse(*category))
	}
}

type productPageResponse struct {
	Products   []productResponse `json:"products"`
	NextCursor string            `json:"next_cursor,omitempty"`
}

type productResponse struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	PriceCents  int       `json:"price_cents"`
	Stock       int       `json:"stock"`
	Sold        int       `json:"sold"`
	Image       *string   `json:"image,omitempty"`
	Rating      *float64  `json:"rating,omitempty"`
	CategoryID  uuid.UUID `json:"category_id"`
	Category    *string   `json:"category,omitempty"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

type categoryResponse struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Slug string    `json:"slug"`
}

func newProductResponse(product *models.Product) productResponse {
	if product == nil {
		return productResponse{}
	}
	out := productResponse{
		ID:          product.ID,
		Title:       product.Title,
		Description: product.Description,
		PriceCents:  product.PriceCents,
		Stock:       product.Stock,
		Sold:        product.Sold,
		Image:       product.Image,
		Rating:      product.Rating,
		CategoryID:  product.CategoryID,
		IsActive:    product.IsActive,
		CreatedAt:   product.CreatedAt,
	}
	if product.Category != nil {
		out.Category = &product.Category.Name
	}
	return out
}

func newCategoryResponse(category models.Category) categoryResponse {
	return categoryResponse{
		ID:   category.ID,
		Name: category.Name,
		Slug: category.Slug,
	}
}
