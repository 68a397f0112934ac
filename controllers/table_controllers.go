package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-pos/middlewares"
	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/services"
	"github.com/yeremiapane/restaurant-pos/utils"
)

type TableController struct {
	Engine *services.Engine
}

func NewTableController(engine *services.Engine) *TableController {
	return &TableController{Engine: engine}
}

// GetAllTables -> menampilkan seluruh meja restaurant
func (tc *TableController) GetAllTables(c *gin.Context) {
	var tables []models.Table
	if err := tc.Engine.DB.WithContext(c.Request.Context()).
		Where("restaurant_id = ?", middlewares.RestaurantID(c)).
		Order("id asc").
		Find(&tables).Error; err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of tables", tables)
}

// GetTable -> meja beserta order yang belum dibayar
func (tc *TableController) GetTable(c *gin.Context) {
	id, ok := paramID(c, "table_id")
	if !ok {
		return
	}
	snap, err := tc.Engine.Orders.TableSnapshot(c.Request.Context(), middlewares.RestaurantID(c), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Table detail", snap)
}

// ResetTable -> paksa meja kembali available (override operator)
func (tc *TableController) ResetTable(c *gin.Context) {
	id, ok := paramID(c, "table_id")
	if !ok {
		return
	}
	var body struct {
		Reason string `json:"reason"`
	}
	// body opsional
	_ = c.ShouldBindJSON(&body)

	table, err := tc.Engine.Orders.ResetTable(c.Request.Context(), middlewares.RestaurantID(c), id, body.Reason)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Table reset", table)
}
