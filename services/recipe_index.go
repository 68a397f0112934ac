package services

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/yeremiapane/restaurant-pos/models"
	"gorm.io/gorm"
)

// RecipeLine is one ingredient consumed by one unit of a menu item.
type RecipeLine struct {
	IngredientID    uint
	QuantityPerUnit decimal.Decimal
}

// RecipeIndex maps a menu item to the ingredients it consumes. It is built once per
// request and never mutated afterwards.
type RecipeIndex map[uint][]RecipeLine

// LoadRecipeIndex reads the recipe links of the given menu items, scoped to the
// restaurant through the ingredient.
func LoadRecipeIndex(ctx context.Context, db *gorm.DB, restaurantID uint, menuIDs []uint) (RecipeIndex, error) {
	var links []models.RecipeLink
	err := db.WithContext(ctx).
		Joins("JOIN ingredients ON ingredients.id = recipe_links.ingredient_id").
		Where("ingredients.restaurant_id = ? AND recipe_links.menu_id IN ?", restaurantID, menuIDs).
		Find(&links).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load recipe links: %w", err)
	}

	index := make(RecipeIndex, len(menuIDs))
	for _, l := range links {
		index[l.MenuID] = append(index[l.MenuID], RecipeLine{
			IngredientID:    l.IngredientID,
			QuantityPerUnit: l.QuantityPerUnit,
		})
	}
	return index, nil
}

// Lookup returns the recipe of a menu item and whether it has one.
func (r RecipeIndex) Lookup(menuID uint) ([]RecipeLine, bool) {
	lines, ok := r[menuID]
	return lines, ok && len(lines) > 0
}

// Requirements aggregates Σ(quantityPerUnit × quantity) per ingredient over all lines
// of one order. Menu items without a recipe are returned separately.
func (r RecipeIndex) Requirements(items []models.OrderItem) (map[uint]decimal.Decimal, []models.OrderItem) {
	required := make(map[uint]decimal.Decimal)
	var missing []models.OrderItem
	for _, item := range items {
		lines, ok := r.Lookup(item.MenuID)
		if !ok {
			missing = append(missing, item)
			continue
		}
		qty := decimal.NewFromInt(int64(item.Quantity))
		for _, line := range lines {
			required[line.IngredientID] = required[line.IngredientID].Add(line.QuantityPerUnit.Mul(qty))
		}
	}
	return required, missing
}
