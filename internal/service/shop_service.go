package service

import (
	"context"
	"fmt"
	"strings"

	"boutique/internal/domain"
	"boutique/internal/repository"
)

// ShopService defines the store locator operations
type ShopService interface {
	List(ctx context.Context) ([]*domain.Shop, error)
	Create(ctx context.Context, shop *domain.Shop) error
}

type shopService struct {
	shopRepo repository.ShopRepository
}

// NewShopService creates a new instance of ShopService
func NewShopService(shopRepo repository.ShopRepository) ShopService {
	return &shopService{shopRepo: shopRepo}
}

func (s *shopService) List(ctx context.Context) ([]*domain.Shop, error) {
	shops, err := s.shopRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list shops: %w", err)
	}
	return shops, nil
}

func (s *shopService) Create(ctx context.Context, shop *domain.Shop) error {
	shop.Address = strings.TrimSpace(shop.Address)
	if shop.Address == "" {
		return invalid("address", "address is required")
	}
	if shop.Latitude != nil && (*shop.Latitude < -90 || *shop.Latitude > 90) {
		return invalid("latitude", "latitude must be between -90 and 90")
	}
	if shop.Longitude != nil && (*shop.Longitude < -180 || *shop.Longitude > 180) {
		return invalid("longitude", "longitude must be between -180 and 180")
	}

	if err := s.shopRepo.Create(ctx, shop); err != nil {
		return fmt.Errorf("failed to create shop: %w", err)
	}
	return nil
}
