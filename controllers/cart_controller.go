package controllers

import (
	"net/http"

	apperrors "github.com/ehson1111/chocoberry-bot/common/errors"
	"github.com/ehson1111/chocoberry-bot/models"
	"github.com/ehson1111/chocoberry-bot/services"
	"github.com/gin-gonic/gin"
)

type CartController struct {
	cart services.CartService
}

func NewCartController(cart services.CartService) *CartController {
	return &CartController{cart: cart}
}

// GetCart handles GET /cart.
func (cc *CartController) GetCart(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	view, err := cc.cart.View(c.Request.Context(), uid)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// AddItem handles POST /cart/items.
func (cc *CartController) AddItem(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	var req models.AddCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, apperrors.BadRequest("Invalid request", err))
		return
	}
	view, err := cc.cart.Add(c.Request.Context(), uid, req.ProductID, req.Quantity)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// SetQuantity handles PUT /cart/items/:product_id. Zero removes the line.
func (cc *CartController) SetQuantity(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	productID, ok := productIDParam(c)
	if !ok {
		return
	}
	var req models.SetQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, apperrors.BadRequest("Invalid request", err))
		return
	}
	view, err := cc.cart.SetQuantity(c.Request.Context(), uid, productID, *req.Quantity)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// RemoveItem handles DELETE /cart/items/:product_id.
func (cc *CartController) RemoveItem(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	productID, ok := productIDParam(c)
	if !ok {
		return
	}
	view, err := cc.cart.Remove(c.Request.Context(), uid, productID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// ClearCart handles DELETE /cart.
func (cc *CartController) ClearCart(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	if err := cc.cart.Clear(c.Request.Context(), uid); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Cart cleared"})
}
