package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-pos/middlewares"
	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/services"
	"github.com/yeremiapane/restaurant-pos/utils"
)

// MenuController serves the read-only reference data: menu and ingredient stock.
type MenuController struct {
	Engine *services.Engine
}

func NewMenuController(engine *services.Engine) *MenuController {
	return &MenuController{Engine: engine}
}

// GetAllMenus
func (mc *MenuController) GetAllMenus(c *gin.Context) {
	menus, err := mc.Engine.Menu.ListMenus(c.Request.Context(), middlewares.RestaurantID(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of menus", menus)
}

type ingredientView struct {
	models.Ingredient
	Low bool `json:"low"`
}

// GetInventory -> stok bahan, ?low=true hanya yang menipis
func (mc *MenuController) GetInventory(c *gin.Context) {
	var ingredients []models.Ingredient
	if err := mc.Engine.DB.WithContext(c.Request.Context()).
		Where("restaurant_id = ?", middlewares.RestaurantID(c)).
		Order("name asc").
		Find(&ingredients).Error; err != nil {
		respondServiceError(c, err)
		return
	}

	onlyLow := c.Query("low") == "true"
	views := make([]ingredientView, 0, len(ingredients))
	for _, ing := range ingredients {
		if onlyLow && !ing.IsLow() {
			continue
		}
		views = append(views, ingredientView{Ingredient: ing, Low: ing.IsLow()})
	}
	utils.RespondJSON(c, http.StatusOK, "Inventory", views)
}
