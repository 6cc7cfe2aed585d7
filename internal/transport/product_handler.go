package transport

import (
	"net/http"
	"strconv"
	"strings"

	"storefront/internal/middleware"
	"storefront/internal/repository"
	"storefront/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ProductHandler serves the public catalog
type ProductHandler struct {
	productService service.ProductService
	logger         *zap.Logger
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(productService service.ProductService, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{
		productService: productService,
		logger:         logger,
	}
}

// RegisterRoutes registers the catalog routes
func (h *ProductHandler) RegisterRoutes(r chi.Router) {
	r.Get("/api/products", h.ListProducts)
	r.Get("/api/products/{id}", h.GetProduct)
	r.Get("/api/categories", h.ListCategories)
}

// filterFromQuery reads ?category=&search=&model=&page=&page_size=&sort_by=&sort_order=
func filterFromQuery(r *http.Request) repository.ProductFilter {
	q := r.URL.Query()
	filter := repository.ProductFilter{
		Category: q.Get("category"),
		Search:   q.Get("search"),
		Model:    q.Get("model"),
		SortBy:   q.Get("sort_by"),
	}
	filter.Page, _ = strconv.Atoi(q.Get("page"))
	filter.PageSize, _ = strconv.Atoi(q.Get("page_size"))

	switch strings.ToLower(q.Get("sort_order")) {
	case "asc":
		filter.SortOrder = repository.SortOrderAsc
	case "desc":
		filter.SortOrder = repository.SortOrderDesc
	}
	return filter
}

// ListProducts handles the product listing with filters and paging
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	page, err := h.productService.List(r.Context(), filterFromQuery(r))
	if err != nil {
		respondWithServiceError(w, h.logger, err, "failed to load products")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, page)
}

// GetProduct returns one product with its review summary
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := productIDParam(w, r)
	if !ok {
		return
	}

	product, err := h.productService.Get(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, h.logger, err, "failed to load product")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, product)
}

// ListCategories returns the distinct categories with product counts
func (h *ProductHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.productService.Categories(r.Context())
	if err != nil {
		respondWithServiceError(w, h.logger, err, "failed to load categories")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, map[string]interface{}{"categories": categories})
}

func productIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product ID")
		return uuid.Nil, false
	}
	return id, true
}
