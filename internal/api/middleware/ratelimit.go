package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/d60-Lab/persona-graph/pkg/response"
)

// RateLimit 按客户端 IP 令牌桶限流；rps <= 0 时不限流。
// 长时间不活跃的 IP 对应的 limiter 会随缓存过期回收。
func RateLimit(rps float64, burst int) gin.HandlerFunc {
	if rps <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	if burst < 1 {
		burst = 1
	}
	limiters := gocache.New(10*time.Minute, 20*time.Minute)

	return func(c *gin.Context) {
		ip := c.ClientIP()
		var l *rate.Limiter
		if v, ok := limiters.Get(ip); ok {
			l = v.(*rate.Limiter)
		} else {
			l = rate.NewLimiter(rate.Limit(rps), burst)
			if err := limiters.Add(ip, l, gocache.DefaultExpiration); err != nil {
				// 并发下其他请求已创建
				if v, ok := limiters.Get(ip); ok {
					l = v.(*rate.Limiter)
				}
			}
		}
		limiters.SetDefault(ip, l)

		if !l.Allow() {
			response.TooManyRequests(c)
			return
		}
		c.Next()
	}
}
