package handler

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strings"

	"lipa/config"
	"lipa/internal/domain"
	"lipa/internal/repository"
	"lipa/internal/service"
	"lipa/pkg/payment"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type IntentHandler struct {
	cfg    *config.MpesaConfig
	svc    *service.IntentService
	logger *zap.Logger
}

func NewIntentHandler(cfg *config.MpesaConfig, svc *service.IntentService, logger *zap.Logger) *IntentHandler {
	return &IntentHandler{cfg: cfg, svc: svc, logger: logger}
}

type createIntentRequest struct {
	Amount           any    `json:"amount" binding:"required"`
	Phone            string `json:"phone" binding:"required"`
	AccountReference string `json:"account_reference" binding:"max=64"`
	Description      string `json:"description"`
	CallbackURL      string `json:"callback_url" binding:"omitempty,url"`
	IdempotencyKey   string `json:"idempotency_key" binding:"max=191"`
	TransactionType  string `json:"transaction_type" binding:"omitempty,oneof=CustomerPayBillOnline CustomerBuyGoodsOnline"`
}

// Create sends an STK push and returns the new intent. The idempotency key
// comes from the body or, failing that, the Idempotency-Key header.
func (h *IntentHandler) Create(c *gin.Context) {
	var req createIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	amount := service.NormalizeAmount(req.Amount)
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be a positive number"})
		return
	}
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = strings.TrimSpace(c.GetHeader("Idempotency-Key"))
	}
	if req.CallbackURL == "" {
		req.CallbackURL = strings.TrimRight(h.cfg.CallbackBaseURL, "/") + domain.MpesaWebhookPath
	}

	intent, err := h.svc.CreateIntent(c.Request.Context(), service.CreateIntentParams{
		Amount:           req.Amount,
		Phone:            req.Phone,
		AccountReference: req.AccountReference,
		Description:      req.Description,
		CallbackURL:      req.CallbackURL,
		IdempotencyKey:   req.IdempotencyKey,
		TransactionType:  req.TransactionType,
	})
	if err != nil {
		h.logger.Warn("create payment intent", zap.String("phone", req.Phone), zap.Error(err))
		status := http.StatusBadGateway
		if errors.Is(err, context.DeadlineExceeded) {
			status = http.StatusGatewayTimeout
		}
		body := gin.H{"error": "payment initiation failed"}
		var apiErr *payment.APIError
		if errors.As(err, &apiErr) {
			body["gateway_code"] = apiErr.Code
			body["gateway_message"] = apiErr.Message
		}
		c.JSON(status, body)
		return
	}
	c.JSON(http.StatusCreated, intent)
}

func (h *IntentHandler) Get(c *gin.Context) {
	intent, err := h.svc.GetIntent(c.Param("id"))
	if errors.Is(err, repository.ErrIntentNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "payment intent not found"})
		return
	}
	if err != nil {
		h.logger.Error("get payment intent", zap.String("intent_id", c.Param("id")), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, intent)
}
