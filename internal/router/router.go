// Package router registers the HTTP routes.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/iliyamo/auction-engine/internal/config"
	"github.com/iliyamo/auction-engine/internal/handler"
	"github.com/iliyamo/auction-engine/internal/middleware"
)

// Deps is everything the routes need.  Redis may be nil, which disables
// rate limiting and response caching.
type Deps struct {
	DB        handler.Pinger
	Auctions  *handler.AuctionHandler
	Payments  *handler.PaymentHandler
	WS        *handler.WSHandler
	JWTSecret string
	Redis     *redis.Client
	RateLimit config.RateLimitConfig
	Cache     config.CacheConfig
	Log       zerolog.Logger
}

// Register mounts every route.  Authenticated routes carry JWTAuth
// individually so unknown /v1 paths still 404.
func Register(e *echo.Echo, d Deps) {
	e.GET("/healthz", handler.Health(d.DB))

	v1 := e.Group("/v1")
	v1.GET("/auctions/:id", d.Auctions.GetAuction)
	v1.GET("/auctions/:id/bids", d.Auctions.ListBids)
	// Results never change once an auction has ended.
	v1.GET("/auctions/:id/result", d.Auctions.Result, middleware.NewRedisCache(d.Cache, d.Redis))
	v1.GET("/auctions/:id/ws", d.WS.Subscribe)

	auth := middleware.JWTAuth(d.JWTSecret)
	// The limiter runs after auth so buckets are keyed by user.
	v1.POST("/auctions/:id/bids", d.Auctions.PlaceBid, auth, middleware.NewTokenBucket(d.RateLimit, d.Redis, d.Log))
	v1.GET("/me/bids", d.Auctions.MyBids, auth)
	v1.POST("/auctions/:id/payments", d.Payments.PlacePayment, auth)
	v1.GET("/payments/:id/receipt", d.Payments.Receipt, auth)
}
