package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-pos/middlewares"
	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/services"
	"github.com/yeremiapane/restaurant-pos/utils"
)

type PaymentController struct {
	Engine *services.Engine
}

func NewPaymentController(engine *services.Engine) *PaymentController {
	return &PaymentController{Engine: engine}
}

type payRequest struct {
	Method string `json:"method"`
}

func respondOutcome(c *gin.Context, outcome *services.PaymentOutcome) {
	if outcome.Noop {
		utils.RespondJSON(c, http.StatusOK, "Nothing left to pay", outcome)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Payment successful", outcome)
}

// PayTable -> bayar semua order di meja
func (pc *PaymentController) PayTable(c *gin.Context) {
	id, ok := paramID(c, "table_id")
	if !ok {
		return
	}
	var body payRequest
	_ = c.ShouldBindJSON(&body)

	outcome, err := pc.Engine.Payments.PayTable(c.Request.Context(), middlewares.RestaurantID(c), id, body.Method)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOutcome(c, outcome)
}

// PayOrder -> bayar satu order (dine-in ikut membayar mejanya)
func (pc *PaymentController) PayOrder(c *gin.Context) {
	id, ok := paramID(c, "order_id")
	if !ok {
		return
	}
	var body payRequest
	_ = c.ShouldBindJSON(&body)

	outcome, err := pc.Engine.Payments.PayOrder(c.Request.Context(), middlewares.RestaurantID(c), id, body.Method)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOutcome(c, outcome)
}

// GetAllPayments -> riwayat pembayaran restaurant
func (pc *PaymentController) GetAllPayments(c *gin.Context) {
	var payments []models.Payment
	if err := pc.Engine.DB.WithContext(c.Request.Context()).
		Where("restaurant_id = ?", middlewares.RestaurantID(c)).
		Order("id desc").
		Limit(200).
		Find(&payments).Error; err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "All payments", payments)
}

// GetMetrics -> metrik payment service
func (pc *PaymentController) GetMetrics(c *gin.Context) {
	utils.RespondJSON(c, http.StatusOK, "Payment metrics", pc.Engine.Payments.GetMetrics())
}
