package routes

import (
	"github.com/ehson1111/chocoberry-bot/common/middleware"
	"github.com/ehson1111/chocoberry-bot/controllers"
	authmw "github.com/ehson1111/chocoberry-bot/middleware"
	"github.com/ehson1111/chocoberry-bot/services"
	"github.com/gin-gonic/gin"
)

type Controllers struct {
	Cart     *controllers.CartController
	Checkout *controllers.CheckoutController
	Cashback *controllers.CashbackController
	Orders   *controllers.OrderController
	Profile  *controllers.ProfileController
	Actions  *controllers.ActionController
}

// RegisterRoutes mounts the authenticated API. limiter may be nil.
func RegisterRoutes(r *gin.Engine, ctrl Controllers, profiles services.ProfileService, limiter *middleware.KeyedRateLimiter) {
	api := r.Group("/")
	api.Use(authmw.AuthMiddleware())
	if limiter != nil {
		api.Use(middleware.RateLimitMiddleware(limiter, authmw.RateLimitKey))
	}
	api.Use(authmw.RegisterUser(profiles))

	cart := api.Group("/cart")
	{
		cart.GET("", ctrl.Cart.GetCart)
		cart.POST("/items", ctrl.Cart.AddItem)
		cart.PUT("/items/:product_id", ctrl.Cart.SetQuantity)
		cart.DELETE("/items/:product_id", ctrl.Cart.RemoveItem)
		cart.DELETE("", ctrl.Cart.ClearCart)
	}

	checkout := api.Group("/checkout")
	{
		checkout.GET("", ctrl.Checkout.Current)
		checkout.POST("/start", ctrl.Checkout.Start)
		checkout.POST("/cashback", ctrl.Checkout.ChooseCashback)
		checkout.POST("/payment", ctrl.Checkout.ChoosePaymentMethod)
		checkout.POST("/cancel", ctrl.Checkout.Cancel)
	}

	api.GET("/cashback", ctrl.Cashback.GetBalance)
	api.GET("/orders", ctrl.Orders.ListOrders)
	api.GET("/profile", ctrl.Profile.GetProfile)
	api.PUT("/profile", ctrl.Profile.UpdateProfile)
	api.POST("/actions", ctrl.Actions.Handle)
}
