package service

import (
	"context"
	"fmt"

	"storefront/internal/domain"
	"storefront/internal/repository"
)

// OrderPage is one page of the admin order list
type OrderPage struct {
	Orders   []*domain.Order `json:"orders"`
	Total    int             `json:"total"`
	Page     int             `json:"page"`
	PageSize int             `json:"page_size"`
}

// OrderService reads order history. Orders are only written by checkout.
type OrderService interface {
	ListForCustomer(ctx context.Context, email string) ([]*domain.Order, error)
	List(ctx context.Context, page, pageSize int) (*OrderPage, error)
}

type orderService struct {
	orders repository.OrderRepository
}

// NewOrderService creates a new instance of OrderService
func NewOrderService(orders repository.OrderRepository) OrderService {
	return &orderService{orders: orders}
}

func (s *orderService) ListForCustomer(ctx context.Context, email string) ([]*domain.Order, error) {
	orders, err := s.orders.ListByCustomer(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

func (s *orderService) List(ctx context.Context, page, pageSize int) (*OrderPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	orders, total, err := s.orders.List(ctx, page, pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return &OrderPage{Orders: orders, Total: total, Page: page, PageSize: pageSize}, nil
}
