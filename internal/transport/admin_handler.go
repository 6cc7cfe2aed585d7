package transport

import (
	"net/http"
	"time"

	"storefront/internal/middleware"
	"storefront/internal/service"
	"storefront/internal/storage"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const maxImportBytes = 10 << 20

// ProductRequest is the admin product form
type ProductRequest struct {
	Name          string          `json:"name" validate:"required,max=200"`
	Description   string          `json:"description" validate:"max=5000"`
	Price         decimal.Decimal `json:"price"`
	Category      string          `json:"category" validate:"required,max=100"`
	ImageURL      string          `json:"image_url" validate:"omitempty,url"`
	GalleryImages []string        `json:"gallery_images" validate:"dive,url"`
	Sizes         []string        `json:"sizes" validate:"dive,required,max=10"`
	WeightGrams   int             `json:"weight_grams" validate:"gte=0,lte=100000"`
}

func (req ProductRequest) input() service.ProductInput {
	return service.ProductInput{
		Name:          req.Name,
		Description:   req.Description,
		Price:         req.Price,
		Category:      req.Category,
		ImageURL:      req.ImageURL,
		GalleryImages: req.GalleryImages,
		Sizes:         req.Sizes,
		WeightGrams:   req.WeightGrams,
	}
}

// AdminHandler serves catalog maintenance and the order list to admins
type AdminHandler struct {
	productService service.ProductService
	orders         *OrderHandler
	logger         *zap.Logger
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(productService service.ProductService, orders *OrderHandler, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		productService: productService,
		orders:         orders,
		logger:         logger,
	}
}

// RegisterRoutes registers the admin routes. Every route requires an admin.
func (h *AdminHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/admin", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Use(middleware.RequireAdmin(h.logger))

		r.Post("/products", h.CreateProduct)
		r.Put("/products/{id}", h.UpdateProduct)
		r.Delete("/products/{id}", h.DeleteProduct)
		r.Post("/products/{id}/images", h.UploadImage)
		r.Get("/products/export", h.ExportProducts)
		r.Post("/products/import", h.ImportProducts)
		r.Get("/orders", h.orders.ListAllOrders)
	})
}

// CreateProduct adds a product to the catalog
func (h *AdminHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req ProductRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithDecodeError(w, err)
		return
	}

	product, err := h.productService.Create(r.Context(), req.input())
	if err != nil {
		respondWithServiceError(w, h.logger, err, "failed to create product")
		return
	}
	middleware.RespondWithJSON(w, http.StatusCreated, product)
}

// UpdateProduct replaces the editable fields of a product
func (h *AdminHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := productIDParam(w, r)
	if !ok {
		return
	}

	var req ProductRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithDecodeError(w, err)
		return
	}

	product, err := h.productService.Update(r.Context(), id, req.input())
	if err != nil {
		respondWithServiceError(w, h.logger, err, "failed to update product")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, product)
}

// DeleteProduct removes a product and, through the schema, its reviews
func (h *AdminHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := productIDParam(w, r)
	if !ok {
		return
	}

	if err := h.productService.Delete(r.Context(), id); err != nil {
		respondWithServiceError(w, h.logger, err, "failed to delete product")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UploadImage takes a multipart "image" field and adds it to the gallery
func (h *AdminHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	id, ok := productIDParam(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, storage.MaxImageBytes+1<<20)
	file, _, err := r.FormFile("image")
	if err != nil {
		h.logger.Debug("Image upload without a file", zap.Error(err))
		middleware.RespondWithError(w, http.StatusBadRequest, "multipart field \"image\" is required")
		return
	}
	defer file.Close()

	product, err := h.productService.UploadImage(r.Context(), id, file)
	if err != nil {
		respondWithServiceError(w, h.logger, err, "failed to upload image")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, product)
}

// ExportProducts streams the catalog as an xlsx download
func (h *AdminHandler) ExportProducts(w http.ResponseWriter, r *http.Request) {
	filename := "products-" + time.Now().UTC().Format("20060102") + ".xlsx"
	w.Header().Set("Content-Disposition", "attachment; filename="+filename)
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")

	if err := h.productService.ExportCatalog(r.Context(), w); err != nil {
		// a failure while streaming leaves a truncated download behind
		h.logger.Error("Catalog export failed", zap.Error(err))
		w.Header().Del("Content-Disposition")
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to export products")
	}
}

// ImportProducts reads a multipart "file" workbook laid out like the export
func (h *AdminHandler) ImportProducts(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		h.logger.Debug("Catalog import without a file", zap.Error(err))
		middleware.RespondWithError(w, http.StatusBadRequest, "multipart field \"file\" is required")
		return
	}
	defer file.Close()

	result, err := h.productService.ImportCatalog(r.Context(), file, header.Size)
	if err != nil {
		respondWithServiceError(w, h.logger, err, "failed to import products")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, result)
}
