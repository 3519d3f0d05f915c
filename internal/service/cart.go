package service

import (
	"context"
	"errors"

	"golang.org/x/sync/singleflight"

	"rentai-booking-backend/internal/cache"
	"rentai-booking-backend/internal/domain"
	"rentai-booking-backend/internal/logger"
	"rentai-booking-backend/internal/repository"
)

type cartService struct {
	rentals repository.RentalRepository
	cache   cache.CartCache
	sfg     singleflight.Group
}

// NewCartService builds the cart projection. With a nil cache every call reads storage.
func NewCartService(rentals repository.RentalRepository, c cache.CartCache) CartService {
	return &cartService{rentals: rentals, cache: c}
}

func (s *cartService) ListDraftRentals(ctx context.Context, renterID string) (*domain.CartView, error) {
	if s.cache == nil {
		return s.loadDrafts(ctx, renterID)
	}

	v, err, _ := s.sfg.Do(renterID, func() (interface{}, error) {
		cart, err := s.cache.Get(ctx, renterID)
		if err == nil {
			return cart, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			logger.Warn("Cart cache read failed", "renter_id", renterID, "error", err)
		}

		// The version is read before storage; a write committed after this point
		// bumps it and the fill below is discarded.
		version, verr := s.cache.Version(ctx, renterID)
		if verr != nil {
			logger.Warn("Cart cache version read failed", "renter_id", renterID, "error", verr)
		}

		cart, err = s.loadDrafts(ctx, renterID)
		if err != nil {
			return nil, err
		}
		if verr != nil {
			return cart, nil
		}
		switch err := s.cache.Set(ctx, renterID, version, cart); {
		case errors.Is(err, cache.ErrStaleFill):
			logger.Debug("Cart changed during load, skipping cache fill", "renter_id", renterID)
		case err != nil:
			logger.Warn("Cart cache write failed", "renter_id", renterID, "error", err)
		}
		return cart, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.CartView), nil
}

func (s *cartService) loadDrafts(ctx context.Context, renterID string) (*domain.CartView, error) {
	drafts, err := s.rentals.ListByRenter(ctx, renterID, repository.RentalFilter{
		Include: domain.NewStatusSet(domain.RentalStatusDraft),
	})
	if err != nil {
		return nil, err
	}
	return domain.NewCartView(renterID, drafts), nil
}

func (s *cartService) ListActiveRentals(ctx context.Context, renterID string) ([]domain.RentalTransaction, error) {
	return s.rentals.ListByRenter(ctx, renterID, repository.RentalFilter{
		Exclude: domain.NewStatusSet(domain.RentalStatusDraft),
	})
}

func (s *cartService) Invalidate(ctx context.Context, renterID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, renterID); err != nil {
		logger.Warn("Cart cache invalidation failed", "renter_id", renterID, "error", err)
	}
}
