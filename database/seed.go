package database

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/utils"
	"gorm.io/gorm"
)

const DemoRestaurantName = "Demo Burger Bar"

// Demo holds the ids created by Seed.
type Demo struct {
	Restaurant  models.Restaurant
	Tables      []models.Table
	Burger      models.Menu
	Fries       models.Menu
	Soda        models.Menu
	Bun         models.Ingredient
	Patty       models.Ingredient
	Potato      models.Ingredient
	Ingredients []models.Ingredient
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// Seed creates a small burger restaurant: a burger uses one bun and one patty, fries
// use 0.2 kg of potatoes, soda has no recipe. Running it twice returns the existing data.
func Seed(db *gorm.DB) (*Demo, error) {
	var demo Demo

	err := db.Where("name = ?", DemoRestaurantName).First(&demo.Restaurant).Error
	if err == nil {
		return loadDemo(db, &demo)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		demo.Restaurant = models.Restaurant{Name: DemoRestaurantName}
		if err := tx.Create(&demo.Restaurant).Error; err != nil {
			return fmt.Errorf("failed to seed restaurant: %w", err)
		}
		rid := demo.Restaurant.ID

		for _, name := range []string{"T1", "T2", "T3", "T4"} {
			demo.Tables = append(demo.Tables, models.Table{RestaurantID: rid, Name: name, Status: models.TableStatusAvailable})
		}
		if err := tx.Create(&demo.Tables).Error; err != nil {
			return fmt.Errorf("failed to seed tables: %w", err)
		}

		category := models.MenuCategory{RestaurantID: rid, Name: "Mains"}
		if err := tx.Create(&category).Error; err != nil {
			return fmt.Errorf("failed to seed category: %w", err)
		}

		demo.Bun = models.Ingredient{RestaurantID: rid, Name: "Bun", Unit: "pcs", Stock: d("100"), LowStockThreshold: d("10")}
		demo.Patty = models.Ingredient{RestaurantID: rid, Name: "Patty", Unit: "pcs", Stock: d("50"), LowStockThreshold: d("10")}
		demo.Potato = models.Ingredient{RestaurantID: rid, Name: "Potato", Unit: "kg", Stock: d("5"), LowStockThreshold: d("1")}
		for _, ing := range []*models.Ingredient{&demo.Bun, &demo.Patty, &demo.Potato} {
			if err := tx.Create(ing).Error; err != nil {
				return fmt.Errorf("failed to seed ingredient %s: %w", ing.Name, err)
			}
		}

		demo.Burger = models.Menu{RestaurantID: rid, CategoryID: &category.ID, Name: "Burger", Price: d("8.50"), Available: true,
			Recipe: []models.RecipeLink{
				{IngredientID: demo.Bun.ID, QuantityPerUnit: d("1")},
				{IngredientID: demo.Patty.ID, QuantityPerUnit: d("1")},
			}}
		demo.Fries = models.Menu{RestaurantID: rid, CategoryID: &category.ID, Name: "Fries", Price: d("3.00"), Available: true,
			Recipe: []models.RecipeLink{
				{IngredientID: demo.Potato.ID, QuantityPerUnit: d("0.2")},
			}}
		demo.Soda = models.Menu{RestaurantID: rid, CategoryID: &category.ID, Name: "Soda", Price: d("2.00"), Available: true}
		for _, m := range []*models.Menu{&demo.Burger, &demo.Fries, &demo.Soda} {
			if err := tx.Create(m).Error; err != nil {
				return fmt.Errorf("failed to seed menu %s: %w", m.Name, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	demo.Ingredients = []models.Ingredient{demo.Bun, demo.Patty, demo.Potato}
	utils.WithRestaurant(demo.Restaurant.ID).Info("demo restaurant seeded")
	return &demo, nil
}

func loadDemo(db *gorm.DB, demo *Demo) (*Demo, error) {
	rid := demo.Restaurant.ID
	if err := db.Where("restaurant_id = ?", rid).Order("id asc").Find(&demo.Tables).Error; err != nil {
		return nil, err
	}
	if err := db.Where("restaurant_id = ?", rid).Order("id asc").Find(&demo.Ingredients).Error; err != nil {
		return nil, err
	}
	for _, ing := range demo.Ingredients {
		switch ing.Name {
		case "Bun":
			demo.Bun = ing
		case "Patty":
			demo.Patty = ing
		case "Potato":
			demo.Potato = ing
		}
	}

	var menus []models.Menu
	if err := db.Preload("Recipe").Where("restaurant_id = ?", rid).Find(&menus).Error; err != nil {
		return nil, err
	}
	for _, m := range menus {
		switch m.Name {
		case "Burger":
			demo.Burger = m
		case "Fries":
			demo.Fries = m
		case "Soda":
			demo.Soda = m
		}
	}
	return demo, nil
}
