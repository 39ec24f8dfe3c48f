package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"

	"novasport-checker/internal/mw"
)

// NewRouter creates the relay router. Every route is rate limited per client
// IP and answers CORS preflights; the userscript is cached for cacheTTL.
func NewRouter(handler *Handler, limiter *mw.IPRateLimiter, cacheTTL time.Duration) *gin.Engine {
	r := gin.Default()
	r.Use(mw.CORS(), mw.RateLimiter(limiter))

	r.GET("/token", handler.GetToken)
	r.POST("/token", handler.PostToken)

	caching := mw.Cache(cache.New(cacheTTL, 2*cacheTTL), cacheTTL)
	for _, path := range UserscriptPaths {
		r.GET(path, caching, handler.GetUserscript)
	}

	api := r.Group("/api")
	{
		api.GET("/subscriptions", handler.GetSubscription)
		api.PUT("/subscriptions", handler.PutSubscription)
		api.DELETE("/subscriptions", handler.DeleteSubscription)
		api.GET("/vapid_public_key", handler.GetVAPIDPublicKey)
	}

	return r
}
