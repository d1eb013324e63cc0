package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"lipa/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// maxCallbackBytes caps the webhook body read.
const maxCallbackBytes = 1 << 20

type MpesaWebhookHandler struct {
	svc    *service.IntentService
	logger *zap.Logger
}

func NewMpesaWebhookHandler(svc *service.IntentService, logger *zap.Logger) *MpesaWebhookHandler {
	return &MpesaWebhookHandler{svc: svc, logger: logger}
}

// Handle receives Daraja STK callbacks. Any JSON body is acknowledged with
// ResultCode 0, matched or not, so the gateway stops retrying; only a failed
// store write answers 500.
func (h *MpesaWebhookHandler) Handle(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxCallbackBytes))
	if err != nil {
		h.logger.Warn("mpesa callback: read body", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"ResultCode": 1, "ResultDesc": "invalid body"})
		return
	}
	h.logger.Debug("mpesa callback received", zap.ByteString("body", body))
	if !json.Valid(body) {
		c.JSON(http.StatusBadRequest, gin.H{"ResultCode": 1, "ResultDesc": "invalid json"})
		return
	}
	intent, err := h.svc.ApplyCallback(body)
	if err != nil {
		h.logger.Error("mpesa callback: apply", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"ResultCode": 1, "ResultDesc": "temporarily unavailable"})
		return
	}
	if intent == nil {
		h.logger.Info("mpesa callback acknowledged without a matching intent")
	}
	c.JSON(http.StatusOK, gin.H{"ResultCode": 0, "ResultDesc": "Accepted"})
}
