package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/yeremiapane/restaurant-pos/middlewares"
	"github.com/yeremiapane/restaurant-pos/services"
	"github.com/yeremiapane/restaurant-pos/utils"
)

type OrderController struct {
	Engine *services.Engine
}

func NewOrderController(engine *services.Engine) *OrderController {
	return &OrderController{Engine: engine}
}

// PlaceOrder -> submit cart
func (oc *OrderController) PlaceOrder(c *gin.Context) {
	var req services.PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	req.RestaurantID = middlewares.RestaurantID(c)

	order, err := oc.Engine.Deduction.PlaceOrder(c.Request.Context(), req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Order created", gin.H{
		"order":    order,
		"subtotal": order.Subtotal(),
		"total":    order.Total(),
	})
}

// GetOrderByID -> detail 1 order
func (oc *OrderController) GetOrderByID(c *gin.Context) {
	id, ok := paramID(c, "order_id")
	if !ok {
		return
	}
	order, err := oc.Engine.Orders.OrderByID(c.Request.Context(), middlewares.RestaurantID(c), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order detail", gin.H{
		"order":    order,
		"subtotal": order.Subtotal(),
		"total":    order.Total(),
	})
}

// UpdateOrderStatus -> transisi eksplisit oleh operator
func (oc *OrderController) UpdateOrderStatus(c *gin.Context) {
	id, ok := paramID(c, "order_id")
	if !ok {
		return
	}
	var body struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	result, err := oc.Engine.Orders.UpdateOrderStatus(c.Request.Context(), middlewares.RestaurantID(c), id, body.Status)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order status updated", result)
}

// UpdateItemStatus -> toggle item dari dapur
func (oc *OrderController) UpdateItemStatus(c *gin.Context) {
	id, ok := paramID(c, "item_id")
	if !ok {
		return
	}
	var body struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	result, err := oc.Engine.Orders.UpdateItemStatus(c.Request.Context(), middlewares.RestaurantID(c), id, body.Status)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Item status updated", result)
}

// ApplyDiscount -> set discount order
func (oc *OrderController) ApplyDiscount(c *gin.Context) {
	id, ok := paramID(c, "order_id")
	if !ok {
		return
	}
	var body struct {
		Amount decimal.Decimal `json:"amount"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	result, err := oc.Engine.Orders.ApplyDiscount(c.Request.Context(), middlewares.RestaurantID(c), id, body.Amount)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Discount applied", result)
}

// ServeReady -> semua item ready diantar
func (oc *OrderController) ServeReady(c *gin.Context) {
	id, ok := paramID(c, "order_id")
	if !ok {
		return
	}
	result, err := oc.Engine.Orders.ServeReady(c.Request.Context(), middlewares.RestaurantID(c), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order served", result)
}

// Snapshot -> load everything untuk client
func (oc *OrderController) Snapshot(c *gin.Context) {
	snap, err := oc.Engine.Orders.Snapshot(c.Request.Context(), middlewares.RestaurantID(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Snapshot", snap)
}
