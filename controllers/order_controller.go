package controllers

import (
	"net/http"
	"strconv"

	"github.com/ehson1111/chocoberry-bot/services"
	"github.com/gin-gonic/gin"
)

type OrderController struct {
	orders services.OrderService
}

func NewOrderController(orders services.OrderService) *OrderController {
	return &OrderController{orders: orders}
}

// ListOrders handles GET /orders?page&limit.
func (oc *OrderController) ListOrders(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	page, limit := parsePaginationParams(c)
	history, err := oc.orders.History(c.Request.Context(), uid, page, limit)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, history)
}

func parsePaginationParams(c *gin.Context) (int, int) {
	const (
		defaultPage  = 1
		defaultLimit = 10
		maxLimit     = 100
	)

	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = defaultPage
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil || limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return page, limit
}
