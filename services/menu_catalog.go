package services

import (
	"context"
	"fmt"

	"github.com/yeremiapane/restaurant-pos/models"
	"gorm.io/gorm"
)

// MenuCatalog supplies menu items as read-only reference data.
type MenuCatalog interface {
	MenusByID(ctx context.Context, restaurantID uint, ids []uint) (map[uint]models.Menu, error)
	ListMenus(ctx context.Context, restaurantID uint) ([]models.Menu, error)
}

type GormMenuCatalog struct {
	DB *gorm.DB
}

func NewGormMenuCatalog(db *gorm.DB) *GormMenuCatalog {
	return &GormMenuCatalog{DB: db}
}

func (c *GormMenuCatalog) MenusByID(ctx context.Context, restaurantID uint, ids []uint) (map[uint]models.Menu, error) {
	var menus []models.Menu
	if err := c.DB.WithContext(ctx).
		Where("restaurant_id = ? AND id IN ?", restaurantID, ids).
		Find(&menus).Error; err != nil {
		return nil, fmt.Errorf("failed to load menus: %w", err)
	}

	byID := make(map[uint]models.Menu, len(menus))
	for _, m := range menus {
		byID[m.ID] = m
	}
	return byID, nil
}

func (c *GormMenuCatalog) ListMenus(ctx context.Context, restaurantID uint) ([]models.Menu, error) {
	var menus []models.Menu
	if err := c.DB.WithContext(ctx).
		Where("restaurant_id = ?", restaurantID).
		Order("id asc").
		Find(&menus).Error; err != nil {
		return nil, fmt.Errorf("failed to list menus: %w", err)
	}
	return menus, nil
}
