package controllers

import (
	"net/http"
	"strconv"

	"github.com/ehson1111/chocoberry-bot/services"
	"github.com/gin-gonic/gin"
)

type CashbackController struct {
	ledger services.LedgerService
}

func NewCashbackController(ledger services.LedgerService) *CashbackController {
	return &CashbackController{ledger: ledger}
}

// GetBalance handles GET /cashback?limit=N.
func (cc *CashbackController) GetBalance(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	view, err := cc.ledger.Overview(c.Request.Context(), uid, limit)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}
