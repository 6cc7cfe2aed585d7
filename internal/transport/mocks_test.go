package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"storefront/internal/config"
	"storefront/internal/domain"
	"storefront/internal/middleware"
	"storefront/internal/payment"
	"storefront/internal/pricing"
	"storefront/internal/repository"
	"storefront/internal/service"
	"storefront/internal/storage"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	testJWTSecret     = "test-secret"
	testGatewaySecret = "gateway-secret"
)

type mockUserRepository struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{
		users: make(map[string]*domain.User),
	}
}

func (m *mockUserRepository) Create(ctx context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.users[user.Email]; exists {
		return repository.ErrUserAlreadyExists
	}
	m.users[user.Email] = user
	return nil
}

func (m *mockUserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, exists := m.users[email]
	if !exists {
		return nil, repository.ErrUserNotFound
	}
	return user, nil
}

func (m *mockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (m *mockUserRepository) SetRole(ctx context.Context, email, role string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, exists := m.users[email]
	if !exists {
		return repository.ErrUserNotFound
	}
	user.Role = role
	return nil
}

type mockRefreshTokenRepository struct {
	mu     sync.Mutex
	tokens map[string]*domain.RefreshToken
}

func newMockRefreshTokenRepository() *mockRefreshTokenRepository {
	return &mockRefreshTokenRepository{
		tokens: make(map[string]*domain.RefreshToken),
	}
}

func (m *mockRefreshTokenRepository) Create(ctx context.Context, token *domain.RefreshToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[token.Token] = token
	return nil
}

func (m *mockRefreshTokenRepository) FindByToken(ctx context.Context, token string) (*domain.RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	refreshToken, exists := m.tokens[token]
	if !exists {
		return nil, repository.ErrRefreshTokenNotFound
	}
	if refreshToken.Revoked {
		return nil, repository.ErrRefreshTokenRevoked
	}
	return refreshToken, nil
}

func (m *mockRefreshTokenRepository) Revoke(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	refreshToken, exists := m.tokens[token]
	if !exists {
		return repository.ErrRefreshTokenNotFound
	}
	refreshToken.Revoked = true
	return nil
}

func (m *mockRefreshTokenRepository) RevokeAllForUser(ctx context.Context, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, token := range m.tokens {
		if token.UserID == userID {
			token.Revoked = true
		}
	}
	return nil
}

type memProductRepository struct {
	mu       sync.Mutex
	products map[uuid.UUID]*domain.Product
}

func (m *memProductRepository) Create(ctx context.Context, product *domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *product
	m.products[product.ID] = &cp
	return nil
}

func (m *memProductRepository) Update(ctx context.Context, product *domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[product.ID]; !ok {
		return repository.ErrProductNotFound
	}
	cp := *product
	m.products[product.ID] = &cp
	return nil
}

func (m *memProductRepository) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[id]; !ok {
		return repository.ErrProductNotFound
	}
	delete(m.products, id)
	return nil
}

func (m *memProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memProductRepository) List(ctx context.Context, filter repository.ProductFilter) ([]*domain.Product, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*domain.Product{}
	for _, p := range m.products {
		if filter.Category != "" && !strings.EqualFold(p.Category, filter.Category) {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(filter.Search)) {
			continue
		}
		out = append(out, p)
	}
	return out, len(out), nil
}

func (m *memProductRepository) All(ctx context.Context) ([]*domain.Product, error) {
	products, _, err := m.List(ctx, repository.ProductFilter{})
	return products, err
}

func (m *memProductRepository) AddGalleryImage(ctx context.Context, id uuid.UUID, url string) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	p.GalleryImages = append(p.GalleryImages, url)
	if p.ImageURL == "" {
		p.ImageURL = url
	}
	cp := *p
	return &cp, nil
}

type memCategoryRepository struct {
	products *memProductRepository
}

func (m *memCategoryRepository) List(ctx context.Context) ([]*domain.CategorySummary, error) {
	m.products.mu.Lock()
	defer m.products.mu.Unlock()
	counts := map[string]int{}
	for _, p := range m.products.products {
		counts[p.Category]++
	}
	out := []*domain.CategorySummary{}
	for name, n := range counts {
		out = append(out, &domain.CategorySummary{Name: name, ProductCount: n})
	}
	return out, nil
}

type memReviewRepository struct {
	mu       sync.Mutex
	reviews  []*domain.Review
	products *memProductRepository
}

func (m *memReviewRepository) Create(ctx context.Context, review *domain.Review) error {
	if _, err := m.products.FindByID(ctx, review.ProductID); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reviews = append(m.reviews, review)
	return nil
}

func (m *memReviewRepository) ListByProduct(ctx context.Context, productID uuid.UUID) ([]*domain.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*domain.Review{}
	for i := len(m.reviews) - 1; i >= 0; i-- {
		if m.reviews[i].ProductID == productID {
			out = append(out, m.reviews[i])
		}
	}
	return out, nil
}

func (m *memReviewRepository) Summary(ctx context.Context, productID uuid.UUID) (*domain.ReviewSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	summary := &domain.ReviewSummary{}
	sum := 0
	for _, r := range m.reviews {
		if r.ProductID == productID {
			summary.Count++
			sum += r.Rating
		}
	}
	if summary.Count > 0 {
		summary.AverageRating = float64(sum) / float64(summary.Count)
	}
	return summary, nil
}

type memOrderRepository struct {
	mu     sync.Mutex
	orders []*domain.Order
}

func (m *memOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if o.PaymentID == order.PaymentID {
			return repository.ErrOrderAlreadyExists
		}
	}
	m.orders = append(m.orders, order)
	return nil
}

func (m *memOrderRepository) FindByPaymentID(ctx context.Context, paymentID string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if o.PaymentID == paymentID {
			return o, nil
		}
	}
	return nil, repository.ErrOrderNotFound
}

func (m *memOrderRepository) ListByCustomer(ctx context.Context, email string) ([]*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*domain.Order{}
	for i := len(m.orders) - 1; i >= 0; i-- {
		if m.orders[i].CustomerEmail == email {
			out = append(out, m.orders[i])
		}
	}
	return out, nil
}

func (m *memOrderRepository) List(ctx context.Context, page, pageSize int) ([]*domain.Order, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.Order, 0, len(m.orders))
	for i := len(m.orders) - 1; i >= 0; i-- {
		out = append(out, m.orders[i])
	}
	return out, len(out), nil
}

type fakeGateway struct {
	fail bool
}

func (g *fakeGateway) CreateOrder(ctx context.Context, amount decimal.Decimal, receipt string) (*payment.GatewayOrder, error) {
	if g.fail {
		return nil, payment.ErrGatewayRejected
	}
	return &payment.GatewayOrder{
		ID:       "order_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:14],
		Amount:   payment.ToSubunits(amount),
		Currency: "INR",
		Receipt:  receipt,
		Status:   "created",
	}, nil
}

func (g *fakeGateway) VerifySignature(orderID, paymentID, signature string) error {
	if payment.Sign(testGatewaySecret, orderID, paymentID) != signature {
		return payment.ErrInvalidSignature
	}
	return nil
}

func (g *fakeGateway) KeyID() string {
	return "rzp_test_key"
}

// fakeGoogleVerifier treats "google:<email>" as a verified token for that email
type fakeGoogleVerifier struct{}

func (fakeGoogleVerifier) Verify(ctx context.Context, idToken string) (*service.GoogleIdentity, error) {
	email, ok := strings.CutPrefix(idToken, "google:")
	if !ok {
		return nil, service.ErrInvalidGoogleToken
	}
	return &service.GoogleIdentity{Subject: "g-" + email, Email: email, EmailVerified: true, FirstName: "Google", LastName: "User"}, nil
}

// testEnv is the whole API over in-memory repositories and miniredis
type testEnv struct {
	router   chi.Router
	users    *mockUserRepository
	products *memProductRepository
	orders   *memOrderRepository
	gateway  *fakeGateway
	userSvc  service.UserService
	redis    *miniredis.Miniredis
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	logger := zap.NewNop()
	env := &testEnv{
		users:    newMockUserRepository(),
		products: &memProductRepository{products: map[uuid.UUID]*domain.Product{}},
		orders:   &memOrderRepository{},
		gateway:  &fakeGateway{},
		redis:    mr,
	}

	rules := pricing.DefaultRules()
	carts := repository.NewCartRepository(client, time.Hour)
	sessions := repository.NewCheckoutSessionRepository(client, time.Hour)
	reviews := &memReviewRepository{products: env.products}
	images := storage.New(afero.NewMemMapFs(), "http://localhost:8080/uploads")

	env.userSvc = service.NewUserService(env.users, newMockRefreshTokenRepository(), config.JWTConfig{Secret: testJWTSecret, AccessExpiry: 15, RefreshExpiry: 7},
		service.WithGoogleVerifier(fakeGoogleVerifier{}))
	productSvc := service.NewProductService(env.products, &memCategoryRepository{products: env.products}, reviews, images,
		config.CatalogConfig{RetryCount: 0}, logger)
	cartSvc := service.NewCartService(carts, env.products, rules, logger)
	checkoutSvc := service.NewCheckoutService(carts, sessions, env.orders, env.gateway, rules,
		config.StoreConfig{Name: "Nighty Corner", WhatsAppPhone: "919876543210"}, "INR", logger)
	orderSvc := service.NewOrderService(env.orders)
	reviewSvc := service.NewReviewService(reviews, env.products, logger)

	auth := middleware.AuthMiddleware(testJWTSecret, logger)
	optionalAuth := middleware.OptionalAuthMiddleware(testJWTSecret, logger)
	reviewLimit := middleware.RateLimitMiddleware(client, middleware.RateLimitConfig{
		RequestsPerWindow: 3,
		Window:            time.Minute,
		KeyPrefix:         "ratelimit:reviews",
	}, logger)

	router := chi.NewRouter()
	router.Use(middleware.ErrorHandlingMiddleware(logger))
	orderHandler := NewOrderHandler(orderSvc, logger)
	NewUserHandler(env.userSvc, cartSvc, logger).RegisterRoutes(router, auth)
	NewProductHandler(productSvc, logger).RegisterRoutes(router)
	NewReviewHandler(reviewSvc, logger).RegisterRoutes(router, reviewLimit)
	NewCartHandler(cartSvc, logger).RegisterRoutes(router, optionalAuth)
	NewCheckoutHandler(checkoutSvc, logger).RegisterRoutes(router, auth)
	orderHandler.RegisterRoutes(router, auth)
	NewAdminHandler(productSvc, orderHandler, logger).RegisterRoutes(router, auth)
	env.router = router

	return env
}

func (env *testEnv) addProduct(name, category string, price int64, sizes ...string) *domain.Product {
	now := time.Now().UTC()
	p := &domain.Product{
		ID:            uuid.New(),
		Name:          name,
		Price:         decimal.NewFromInt(price),
		Category:      category,
		GalleryImages: []string{},
		Sizes:         sizes,
		WeightGrams:   250,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	env.products.Create(context.Background(), p)
	return p
}

// login registers an account with role and returns its access token
func (env *testEnv) login(t *testing.T, email, role string) string {
	t.Helper()
	ctx := context.Background()
	_, err := env.userSvc.Register(ctx, email, "password123", "Test", "User")
	require.NoError(t, err)
	if role != domain.RoleUser {
		require.NoError(t, env.userSvc.PromoteToAdmin(ctx, email))
	}
	token, _, _, err := env.userSvc.Login(ctx, email, "password123")
	require.NoError(t, err)
	return token
}

type requestOption func(*http.Request)

func withToken(token string) requestOption {
	return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }
}

func withCart(cartID string) requestOption {
	return func(r *http.Request) { r.Header.Set(middleware.CartIDHeader, cartID) }
}

func (env *testEnv) do(method, path string, body interface{}, opts ...requestOption) *httptest.ResponseRecorder {
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case io.Reader:
		reader = b
	default:
		raw, _ := json.Marshal(b)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if _, ok := body.(io.Reader); !ok && body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, opt := range opts {
		opt(req)
	}

	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(w.Body).Decode(v), w.Body.String())
}
