package api

import (
	stdhttp "net/http"

	intconfig "seatledger/internal/config"
	h "seatledger/internal/http/handlers"
	"seatledger/internal/http/middleware"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// NewRouter mounts every route. rdb may be nil, which disables idempotent replay.
func NewRouter(env intconfig.Env, hd *h.Handler, rdb *redis.Client) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Logger(), gin.Recovery(), middleware.CORS(env.CORSAllowedOrigins))

	if err := r.SetTrustedProxies(nil); err != nil {
		logrus.WithError(err).Warn("failed to set trusted proxies")
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(stdhttp.StatusNotFound, gin.H{
			"status":  false,
			"message": "route not found",
			"code":    stdhttp.StatusNotFound,
			"body":    gin.H{"path": c.Request.URL.Path, "method": c.Request.Method},
		})
	})

	api := r.Group("/api")
	{
		api.GET("/health", h.Health)
		api.GET("/db-check", hd.DBCheck)
		api.GET("/routes", h.Routes)
		api.GET("/tiers/configs", hd.GetTierConfigs)

		secured := api.Group("")
		secured.Use(middleware.Identity(env.JWTSecret), middleware.Idempotency(rdb, env.IdempotencyTTL))

		// Bookings
		bookings := secured.Group("/bookings")
		bookings.POST("", hd.CreateBooking)
		bookings.POST("/group", hd.CreateGroupBooking)
		bookings.GET("/group/:groupId", hd.GetGroup)
		bookings.PATCH("/group/:groupId/cancel", hd.CancelGroup)
		bookings.GET("/:id", hd.GetBooking)
		bookings.PATCH("/:id/cancel", hd.CancelBooking)
		bookings.PATCH("/:id/modify", hd.ModifyBooking)
		bookings.GET("/:id/e-ticket", hd.GetBookingETicket)

		secured.GET("/customers/:customerId/bookings", hd.ListCustomerBookings)

		// Wallet
		wallet := secured.Group("/wallet/:customerId")
		wallet.GET("/balance", hd.GetWalletBalance)
		wallet.POST("/top-up", hd.TopUpWallet)
		wallet.GET("/transactions", hd.ListWalletTransactions)
		wallet.GET("/statement", hd.GetWalletStatement)

		// Seats
		trips := secured.Group("/trips/:id")
		trips.GET("/seats", hd.ListTripSeats)
		trips.GET("/seats/:seatId/availability", hd.SeatAvailability)

		// Admin
		admin := secured.Group("/admin")
		admin.Use(middleware.RequireAdmin(env.AdminKeyHash))
		admin.POST("/trips/:id/seats/:seatId/block", hd.BlockSeat)
		admin.POST("/trips/:id/seats/:seatId/unblock", hd.UnblockSeat)
		admin.POST("/trips/:id/complete", hd.CompleteTrip)
		admin.DELETE("/bookings/:id", hd.SoftDeleteBooking)
		admin.POST("/bookings/purge", hd.PurgeTombstones)
		admin.POST("/customers/:id/recalculate-tier", hd.RecalculateTier)
		admin.POST("/customers/:id/loyalty", hd.AddLoyaltyPoints)
		admin.POST("/tiers/recalculate", hd.RecalculateAllTiers)
		admin.POST("/wallet/:customerId/payments", hd.RecordWalletPayment)
	}

	h.SetRouter(r)
	return r
}
