package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"storefront/internal/config"
	"storefront/internal/domain"
	"storefront/internal/repository"
	"storefront/internal/storage"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"github.com/shopspring/decimal"
	"github.com/tealeg/xlsx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	ErrInvalidProduct     = errors.New("invalid product")
	ErrInvalidSpreadsheet = errors.New("spreadsheet is empty or missing the header row")
)

// ProductInput is the admin editable part of a product
type ProductInput struct {
	Name          string
	Description   string
	Price         decimal.Decimal
	Category      string
	ImageURL      string
	GalleryImages []string
	Sizes         []string
	WeightGrams   int
}

// ProductPage is one page of a product listing
type ProductPage struct {
	Products []*domain.Product `json:"products"`
	Total    int               `json:"total"`
	Page     int               `json:"page"`
	PageSize int               `json:"page_size"`
}

// ProductDetail is a product with its review summary
type ProductDetail struct {
	*domain.Product
	Reviews *domain.ReviewSummary `json:"reviews"`
}

// ImportResult counts what a spreadsheet import did
type ImportResult struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
}

// ProductService defines catalog reads and admin maintenance
type ProductService interface {
	List(ctx context.Context, filter repository.ProductFilter) (*ProductPage, error)
	Get(ctx context.Context, id uuid.UUID) (*ProductDetail, error)
	Categories(ctx context.Context) ([]*domain.CategorySummary, error)
	Create(ctx context.Context, input ProductInput) (*domain.Product, error)
	Update(ctx context.Context, id uuid.UUID, input ProductInput) (*domain.Product, error)
	Delete(ctx context.Context, id uuid.UUID) error
	UploadImage(ctx context.Context, id uuid.UUID, r io.Reader) (*domain.Product, error)
	ExportCatalog(ctx context.Context, w io.Writer) error
	ImportCatalog(ctx context.Context, r io.ReaderAt, size int64) (*ImportResult, error)
}

type productService struct {
	products   repository.ProductRepository
	categories repository.CategoryRepository
	reviews    repository.ReviewRepository
	images     storage.ImageStore
	retry      config.CatalogConfig
	logger     *zap.Logger
}

// NewProductService creates a new instance of ProductService
func NewProductService(
	products repository.ProductRepository,
	categories repository.CategoryRepository,
	reviews repository.ReviewRepository,
	images storage.ImageStore,
	retryCfg config.CatalogConfig,
	logger *zap.Logger,
) ProductService {
	return &productService{
		products:   products,
		categories: categories,
		reviews:    reviews,
		images:     images,
		retry:      retryCfg,
		logger:     logger,
	}
}

// List loads a page of products. Failed loads are retried a fixed number of
// times with a fixed delay before the error is returned.
func (s *productService) List(ctx context.Context, filter repository.ProductFilter) (*ProductPage, error) {
	var (
		products []*domain.Product
		total    int
		attempt  int
	)

	retries := s.retry.RetryCount
	if retries < 0 {
		retries = 0
	}
	// retry.NewConstant panics on a non-positive delay
	delay := s.retry.RetryDelay
	if delay <= 0 {
		delay = time.Millisecond
	}
	backoff := retry.WithMaxRetries(uint64(retries), retry.NewConstant(delay))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		var err error
		products, total, err = s.products.List(ctx, filter)
		if err == nil {
			return nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		s.logger.Warn("Product listing failed",
			zap.Int("attempt", attempt),
			zap.Int("max_retries", retries),
			zap.Error(err),
		)
		return retry.RetryableError(err)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	page, pageSize := filter.Page, filter.PageSize
	if page < 1 {
		page = 1
	}
	switch {
	case pageSize < 1:
		pageSize = 20
	case pageSize > 100:
		pageSize = 100
	}

	return &ProductPage{Products: products, Total: total, Page: page, PageSize: pageSize}, nil
}

// Get loads a product and its review summary concurrently
func (s *productService) Get(ctx context.Context, id uuid.UUID) (*ProductDetail, error) {
	var (
		product *domain.Product
		summary *domain.ReviewSummary
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		product, err = s.products.FindByID(gctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		summary, err = s.reviews.Summary(gctx, id)
		return err
	})

	if err := g.Wait(); err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, repository.ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to load product: %w", err)
	}

	return &ProductDetail{Product: product, Reviews: summary}, nil
}

func (s *productService) Categories(ctx context.Context) ([]*domain.CategorySummary, error) {
	categories, err := s.categories.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

func (in ProductInput) validate() error {
	var problems []error
	if strings.TrimSpace(in.Name) == "" {
		problems = append(problems, errors.New("name is required"))
	}
	if strings.TrimSpace(in.Category) == "" {
		problems = append(problems, errors.New("category is required"))
	}
	if in.Price.IsNegative() {
		problems = append(problems, errors.New("price must not be negative"))
	}
	if in.WeightGrams < 0 {
		problems = append(problems, errors.New("weight must not be negative"))
	}
	if len(problems) > 0 {
		return errors.Join(append([]error{ErrInvalidProduct}, problems...)...)
	}
	return nil
}

func normalizeSizes(sizes []string) []string {
	out := make([]string, 0, len(sizes))
	seen := make(map[string]bool, len(sizes))
	for _, s := range sizes {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

func (in ProductInput) apply(p *domain.Product) {
	p.Name = strings.TrimSpace(in.Name)
	p.Description = strings.TrimSpace(in.Description)
	p.Price = in.Price.Round(2)
	p.Category = strings.TrimSpace(in.Category)
	p.ImageURL = strings.TrimSpace(in.ImageURL)
	p.GalleryImages = in.GalleryImages
	if p.GalleryImages == nil {
		p.GalleryImages = []string{}
	}
	p.Sizes = normalizeSizes(in.Sizes)
	p.WeightGrams = in.WeightGrams
}

func (s *productService) Create(ctx context.Context, input ProductInput) (*domain.Product, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	product := &domain.Product{ID: uuid.New(), CreatedAt: now, UpdatedAt: now}
	input.apply(product)

	if err := s.products.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	s.logger.Info("Product created", zap.String("product_id", product.ID.String()), zap.String("name", product.Name))
	return product, nil
}

func (s *productService) Update(ctx context.Context, id uuid.UUID, input ProductInput) (*domain.Product, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	input.apply(product)
	product.UpdatedAt = time.Now().UTC()

	if err := s.products.Update(ctx, product); err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update product: %w", err)
	}

	s.logger.Info("Product updated", zap.String("product_id", id.String()))
	return product, nil
}

func (s *productService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.products.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return err
		}
		return fmt.Errorf("failed to delete product: %w", err)
	}
	s.logger.Info("Product deleted", zap.String("product_id", id.String()))
	return nil
}

// UploadImage stores an image and appends its URL to the product gallery
func (s *productService) UploadImage(ctx context.Context, id uuid.UUID, r io.Reader) (*domain.Product, error) {
	if _, err := s.products.FindByID(ctx, id); err != nil {
		return nil, err
	}

	url, err := s.images.Save(ctx, id, r)
	if err != nil {
		return nil, err
	}

	product, err := s.products.AddGalleryImage(ctx, id, url)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to attach image: %w", err)
	}

	s.logger.Info("Product image uploaded", zap.String("product_id", id.String()), zap.String("url", url))
	return product, nil
}

var catalogColumns = []string{
	"ID", "Name", "Description", "Price", "Category", "ImageURL", "GalleryImages", "Sizes", "WeightGrams", "CreatedAt", "UpdatedAt",
}

// ExportCatalog writes the whole catalog as an xlsx workbook
func (s *productService) ExportCatalog(ctx context.Context, w io.Writer) error {
	products, err := s.products.All(ctx)
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}

	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Products")
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}

	header := sheet.AddRow()
	for _, h := range catalogColumns {
		header.AddCell().SetString(h)
	}

	for _, p := range products {
		row := sheet.AddRow()
		row.AddCell().SetString(p.ID.String())
		row.AddCell().SetString(p.Name)
		row.AddCell().SetString(p.Description)
		row.AddCell().SetString(p.Price.StringFixed(2))
		row.AddCell().SetString(p.Category)
		row.AddCell().SetString(p.ImageURL)
		row.AddCell().SetString(strings.Join(p.GalleryImages, ","))
		row.AddCell().SetString(strings.Join(p.Sizes, ","))
		row.AddCell().SetInt(p.WeightGrams)
		row.AddCell().SetString(p.CreatedAt.Format(time.RFC3339))
		row.AddCell().SetString(p.UpdatedAt.Format(time.RFC3339))
	}

	if err := file.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// ImportCatalog creates or updates products from a workbook laid out like
// the export. Rows with an ID that exists are updated, rows without one are
// created, rows that do not parse are skipped.
func (s *productService) ImportCatalog(ctx context.Context, r io.ReaderAt, size int64) (*ImportResult, error) {
	file, err := xlsx.OpenReaderAt(r, size)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSpreadsheet, err)
	}
	if len(file.Sheets) == 0 || file.Sheets[0].MaxRow < 2 {
		return nil, ErrInvalidSpreadsheet
	}

	sheet := file.Sheets[0]
	result := &ImportResult{}

	for i := 1; i < len(sheet.Rows); i++ {
		row := sheet.Rows[i]
		get := func(index int) string {
			if row != nil && index < len(row.Cells) {
				return strings.TrimSpace(row.Cells[index].String())
			}
			return ""
		}

		input, ok := inputFromRow(get)
		if !ok || input.validate() != nil {
			result.Skipped++
			continue
		}

		if id, err := uuid.Parse(get(0)); err == nil {
			_, err := s.Update(ctx, id, input)
			switch {
			case err == nil:
				result.Updated++
				continue
			case !errors.Is(err, repository.ErrProductNotFound):
				return result, err
			}
		}

		if _, err := s.Create(ctx, input); err != nil {
			return result, err
		}
		result.Created++
	}

	s.logger.Info("Catalog imported",
		zap.Int("created", result.Created),
		zap.Int("updated", result.Updated),
		zap.Int("skipped", result.Skipped),
	)
	return result, nil
}

func inputFromRow(get func(int) string) (ProductInput, bool) {
	price, err := decimal.NewFromString(get(3))
	if err != nil {
		return ProductInput{}, false
	}
	weight := 0
	if raw := get(8); raw != "" {
		if weight, err = strconv.Atoi(raw); err != nil {
			return ProductInput{}, false
		}
	}
	return ProductInput{
		Name:          get(1),
		Description:   get(2),
		Price:         price,
		Category:      get(4),
		ImageURL:      get(5),
		GalleryImages: splitCell(get(6)),
		Sizes:         splitCell(get(7)),
		WeightGrams:   weight,
	}, true
}

func splitCell(raw string) []string {
	out := []string{}
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
