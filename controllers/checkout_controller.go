package controllers

import (
	"net/http"
	"time"

	apperrors "github.com/ehson1111/chocoberry-bot/common/errors"
	"github.com/ehson1111/chocoberry-bot/models"
	"github.com/ehson1111/chocoberry-bot/services"
	"github.com/gin-gonic/gin"
)

type CheckoutController struct {
	checkout   services.CheckoutService
	notifyWait time.Duration
}

// NewCheckoutController builds the controller. notifyWait is how long a
// commit response waits for the staff notification before returning
// without a warning.
func NewCheckoutController(checkout services.CheckoutService, notifyWait time.Duration) *CheckoutController {
	return &CheckoutController{checkout: checkout, notifyWait: notifyWait}
}

// Start handles POST /checkout/start.
func (cc *CheckoutController) Start(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	view, err := cc.checkout.Start(c.Request.Context(), uid)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

// ChooseCashback handles POST /checkout/cashback.
func (cc *CheckoutController) ChooseCashback(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	var req models.CashbackChoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, apperrors.BadRequest("Invalid request", err))
		return
	}
	view, err := cc.checkout.ChooseCashback(c.Request.Context(), uid, req.Choice)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// ChoosePaymentMethod handles POST /checkout/payment and commits the order.
func (cc *CheckoutController) ChoosePaymentMethod(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	var req models.PaymentMethodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, apperrors.BadRequest("Invalid request", err))
		return
	}
	result, err := cc.checkout.ChoosePaymentMethod(c.Request.Context(), uid, req.Method)
	if err != nil {
		fail(c, err)
		return
	}
	services.AwaitDelivery(result, cc.notifyWait)
	c.JSON(http.StatusCreated, result)
}

// Current handles GET /checkout.
func (cc *CheckoutController) Current(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	view, err := cc.checkout.Current(c.Request.Context(), uid)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// Cancel handles POST /checkout/cancel.
func (cc *CheckoutController) Cancel(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	if err := cc.checkout.Cancel(c.Request.Context(), uid); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Checkout cancelled"})
}
