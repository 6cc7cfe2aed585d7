package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"storefront/internal/domain"
	"storefront/internal/payment"
	"storefront/internal/repository"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

type mockUserRepository struct {
	users map[string]*domain.User
}

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{
		users: make(map[string]*domain.User),
	}
}

func (m *mockUserRepository) Create(ctx context.Context, user *domain.User) error {
	if _, exists := m.users[user.Email]; exists {
		return repository.ErrUserAlreadyExists
	}
	m.users[user.Email] = user
	return nil
}

func (m *mockUserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	user, exists := m.users[email]
	if !exists {
		return nil, repository.ErrUserNotFound
	}
	return user, nil
}

func (m *mockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	for _, user := range m.users {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (m *mockUserRepository) SetRole(ctx context.Context, email, role string) error {
	user, exists := m.users[email]
	if !exists {
		return repository.ErrUserNotFound
	}
	user.Role = role
	return nil
}

type mockRefreshTokenRepository struct {
	tokens map[string]*domain.RefreshToken
}

func newMockRefreshTokenRepository() *mockRefreshTokenRepository {
	return &mockRefreshTokenRepository{
		tokens: make(map[string]*domain.RefreshToken),
	}
}

func (m *mockRefreshTokenRepository) Create(ctx context.Context, token *domain.RefreshToken) error {
	m.tokens[token.Token] = token
	return nil
}

func (m *mockRefreshTokenRepository) FindByToken(ctx context.Context, token string) (*domain.RefreshToken, error) {
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
	refreshToken, exists := m.tokens[token]
	if !exists {
		return repository.ErrRefreshTokenNotFound
	}
	refreshToken.Revoked = true
	return nil
}

func (m *mockRefreshTokenRepository) RevokeAllForUser(ctx context.Context, userID uuid.UUID) error {
	for _, token := range m.tokens {
		if token.UserID == userID {
			token.Revoked = true
		}
	}
	return nil
}

type mockProductRepository struct {
	mu       sync.Mutex
	products map[uuid.UUID]*domain.Product
	// listFailures makes the next n List calls fail with listErr
	listFailures int
	listErr      error
	listCalls    int
}

func newMockProductRepository(products ...*domain.Product) *mockProductRepository {
	m := &mockProductRepository{products: make(map[uuid.UUID]*domain.Product)}
	for _, p := range products {
		m.products[p.ID] = p
	}
	return m
}

func (m *mockProductRepository) Create(ctx context.Context, product *domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *product
	m.products[product.ID] = &cp
	return nil
}

func (m *mockProductRepository) Update(ctx context.Context, product *domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[product.ID]; !ok {
		return repository.ErrProductNotFound
	}
	cp := *product
	m.products[product.ID] = &cp
	return nil
}

func (m *mockProductRepository) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[id]; !ok {
		return repository.ErrProductNotFound
	}
	delete(m.products, id)
	return nil
}

func (m *mockProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockProductRepository) List(ctx context.Context, filter repository.ProductFilter) ([]*domain.Product, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++
	if m.listFailures > 0 {
		m.listFailures--
		return nil, 0, m.listErr
	}

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
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, len(out), nil
}

func (m *mockProductRepository) All(ctx context.Context) ([]*domain.Product, error) {
	products, _, err := m.List(ctx, repository.ProductFilter{})
	return products, err
}

func (m *mockProductRepository) AddGalleryImage(ctx context.Context, id uuid.UUID, url string) (*domain.Product, error) {
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

type mockCategoryRepository struct {
	categories []*domain.CategorySummary
}

func (m *mockCategoryRepository) List(ctx context.Context) ([]*domain.CategorySummary, error) {
	return m.categories, nil
}

type mockReviewRepository struct {
	mu      sync.Mutex
	reviews []*domain.Review
	known   func(uuid.UUID) bool
}

func (m *mockReviewRepository) Create(ctx context.Context, review *domain.Review) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.known != nil && !m.known(review.ProductID) {
		return repository.ErrProductNotFound
	}
	m.reviews = append(m.reviews, review)
	return nil
}

func (m *mockReviewRepository) ListByProduct(ctx context.Context, productID uuid.UUID) ([]*domain.Review, error) {
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

func (m *mockReviewRepository) Summary(ctx context.Context, productID uuid.UUID) (*domain.ReviewSummary, error) {
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

type mockOrderRepository struct {
	mu        sync.Mutex
	orders    []*domain.Order
	createErr error
}

func (m *mockOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	for _, o := range m.orders {
		if o.PaymentID == order.PaymentID {
			return repository.ErrOrderAlreadyExists
		}
	}
	m.orders = append(m.orders, order)
	return nil
}

func (m *mockOrderRepository) FindByPaymentID(ctx context.Context, paymentID string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if o.PaymentID == paymentID {
			return o, nil
		}
	}
	return nil, repository.ErrOrderNotFound
}

func (m *mockOrderRepository) ListByCustomer(ctx context.Context, email string) ([]*domain.Order, error) {
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

func (m *mockOrderRepository) List(ctx context.Context, page, pageSize int) ([]*domain.Order, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*domain.Order{}
	for i := len(m.orders) - 1; i >= 0; i-- {
		out = append(out, m.orders[i])
	}
	start := (page - 1) * pageSize
	if start > len(out) {
		start = len(out)
	}
	end := start + pageSize
	if end > len(out) {
		end = len(out)
	}
	return out[start:end], len(out), nil
}

const testGatewaySecret = "gateway-secret"

type mockGateway struct {
	mu        sync.Mutex
	created   []decimal.Decimal
	createErr error
}

func (m *mockGateway) CreateOrder(ctx context.Context, amount decimal.Decimal, receipt string) (*payment.GatewayOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return nil, m.createErr
	}
	m.created = append(m.created, amount)
	return &payment.GatewayOrder{
		ID:       "order_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:14],
		Amount:   payment.ToSubunits(amount),
		Currency: "INR",
		Receipt:  receipt,
		Status:   "created",
	}, nil
}

func (m *mockGateway) VerifySignature(orderID, paymentID, signature string) error {
	if payment.Sign(testGatewaySecret, orderID, paymentID) != signature {
		return payment.ErrInvalidSignature
	}
	return nil
}

func (m *mockGateway) KeyID() string {
	return "rzp_test_key"
}

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client
}

func nighty(name string, price int64, sizes ...string) *domain.Product {
	now := time.Now().UTC()
	return &domain.Product{
		ID:            uuid.New(),
		Name:          name,
		Price:         decimal.NewFromInt(price),
		Category:      "Nighties",
		GalleryImages: []string{},
		Sizes:         sizes,
		WeightGrams:   250,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// fakeGoogleVerifier accepts the tokens it was seeded with
type fakeGoogleVerifier struct {
	identities map[string]*GoogleIdentity
}

func (f *fakeGoogleVerifier) Verify(ctx context.Context, idToken string) (*GoogleIdentity, error) {
	identity, ok := f.identities[idToken]
	if !ok {
		return nil, ErrInvalidGoogleToken
	}
	return identity, nil
}
