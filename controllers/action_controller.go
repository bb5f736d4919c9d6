package controllers

import (
	"context"
	"net/http"
	"time"

	apperrors "github.com/ehson1111/chocoberry-bot/common/errors"
	"github.com/ehson1111/chocoberry-bot/models"
	"github.com/ehson1111/chocoberry-bot/services"
	"github.com/gin-gonic/gin"
)

// Stable action identifiers sent by chat buttons.
const (
	ActionCartAdd         = "cart.add"
	ActionCartIncrease    = "cart.increase"
	ActionCartDecrease    = "cart.decrease"
	ActionCartRemove      = "cart.remove"
	ActionCartSet         = "cart.set"
	ActionCartClear       = "cart.clear"
	ActionCheckoutConfirm = "checkout.confirm"
	ActionCashbackBalance = "cashback.balance"
)

type actionHandler func(ctx context.Context, userID int64, req models.ActionRequest) (*models.ActionResponse, error)

// ActionController dispatches button presses to the cart, checkout and
// ledger services.
type ActionController struct {
	cart       services.CartService
	checkout   services.CheckoutService
	ledger     services.LedgerService
	notifyWait time.Duration
	handlers   map[string]actionHandler
}

func NewActionController(cart services.CartService, checkout services.CheckoutService, ledger services.LedgerService, notifyWait time.Duration) *ActionController {
	ac := &ActionController{cart: cart, checkout: checkout, ledger: ledger, notifyWait: notifyWait}
	ac.handlers = map[string]actionHandler{
		ActionCartAdd: ac.cartView(func(ctx context.Context, uid int64, req models.ActionRequest) (*models.CartView, error) {
			return ac.cart.Add(ctx, uid, req.ProductID, req.Quantity)
		}),
		ActionCartIncrease: ac.cartView(func(ctx context.Context, uid int64, req models.ActionRequest) (*models.CartView, error) {
			return ac.cart.Adjust(ctx, uid, req.ProductID, 1)
		}),
		ActionCartDecrease: ac.cartView(func(ctx context.Context, uid int64, req models.ActionRequest) (*models.CartView, error) {
			return ac.cart.Adjust(ctx, uid, req.ProductID, -1)
		}),
		ActionCartRemove: ac.cartView(func(ctx context.Context, uid int64, req models.ActionRequest) (*models.CartView, error) {
			return ac.cart.Remove(ctx, uid, req.ProductID)
		}),
		ActionCartSet: ac.cartView(func(ctx context.Context, uid int64, req models.ActionRequest) (*models.CartView, error) {
			return ac.cart.SetQuantity(ctx, uid, req.ProductID, req.Quantity)
		}),
		ActionCartClear: ac.cartView(func(ctx context.Context, uid int64, _ models.ActionRequest) (*models.CartView, error) {
			if err := ac.cart.Clear(ctx, uid); err != nil {
				return nil, err
			}
			return ac.cart.View(ctx, uid)
		}),
		ActionCheckoutConfirm: ac.sessionView(func(ctx context.Context, uid int64) (*models.SessionView, error) {
			return ac.checkout.Start(ctx, uid)
		}),
		services.ActionCashbackApply: ac.sessionView(func(ctx context.Context, uid int64) (*models.SessionView, error) {
			return ac.checkout.ChooseCashback(ctx, uid, string(models.CashbackApply))
		}),
		services.ActionCashbackSkip: ac.sessionView(func(ctx context.Context, uid int64) (*models.SessionView, error) {
			return ac.checkout.ChooseCashback(ctx, uid, string(models.CashbackSkip))
		}),
		services.ActionPaymentCash: ac.commit(models.PaymentCash),
		services.ActionPaymentCard: ac.commit(models.PaymentCard),
		services.ActionCancel: func(ctx context.Context, uid int64, req models.ActionRequest) (*models.ActionResponse, error) {
			if err := ac.checkout.Cancel(ctx, uid); err != nil {
				return nil, err
			}
			return &models.ActionResponse{Action: req.Action}, nil
		},
		ActionCashbackBalance: func(ctx context.Context, uid int64, req models.ActionRequest) (*models.ActionResponse, error) {
			view, err := ac.ledger.Overview(ctx, uid, 10)
			if err != nil {
				return nil, err
			}
			return &models.ActionResponse{Action: req.Action, Balance: view}, nil
		},
	}
	return ac
}

// Handle handles POST /actions.
func (ac *ActionController) Handle(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	var req models.ActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, apperrors.BadRequest("Invalid request", err))
		return
	}
	handler, found := ac.handlers[req.Action]
	if !found {
		fail(c, apperrors.NewKind(http.StatusBadRequest, "unknown_action", "Unknown action "+req.Action, nil))
		return
	}

	resp, err := handler(c.Request.Context(), uid, req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (ac *ActionController) cartView(fn func(context.Context, int64, models.ActionRequest) (*models.CartView, error)) actionHandler {
	return func(ctx context.Context, uid int64, req models.ActionRequest) (*models.ActionResponse, error) {
		view, err := fn(ctx, uid, req)
		if err != nil {
			return nil, err
		}
		return &models.ActionResponse{Action: req.Action, Cart: view}, nil
	}
}

func (ac *ActionController) sessionView(fn func(context.Context, int64) (*models.SessionView, error)) actionHandler {
	return func(ctx context.Context, uid int64, req models.ActionRequest) (*models.ActionResponse, error) {
		view, err := fn(ctx, uid)
		if err != nil {
			return nil, err
		}
		return &models.ActionResponse{Action: req.Action, Session: view}, nil
	}
}

func (ac *ActionController) commit(method models.PaymentMethod) actionHandler {
	return func(ctx context.Context, uid int64, req models.ActionRequest) (*models.ActionResponse, error) {
		result, err := ac.checkout.ChoosePaymentMethod(ctx, uid, string(method))
		if err != nil {
			return nil, err
		}
		services.AwaitDelivery(result, ac.notifyWait)
		return &models.ActionResponse{Action: req.Action, Result: result}, nil
	}
}
