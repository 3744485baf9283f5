package middleware

import (
	"net/netip"
	"strings"

	"github.com/gin-gonic/gin"
)

// CtxRealIPKey holds the resolved client address.
const CtxRealIPKey = "real_ip"

func parseAddr(s string) (netip.Addr, bool) {
	a, err := netip.ParseAddr(strings.TrimSpace(s))
	if err != nil {
		return netip.Addr{}, false
	}
	return a.Unmap(), true
}

// RealIP resolves the client address once per request.
// Order: CF-Connecting-IP, left-most X-Forwarded-For, then c.ClientIP().
func RealIP() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if a, ok := parseAddr(c.GetHeader("CF-Connecting-IP")); ok {
			ip = a.String()
		} else if xff := c.GetHeader("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if a, ok := parseAddr(first); ok {
				ip = a.String()
			}
		}
		c.Set(CtxRealIPKey, ip)
		c.Next()
	}
}

// ClientIP returns the address set by RealIP, or gin's view of it.
func ClientIP(c *gin.Context) string {
	if ip := c.GetString(CtxRealIPKey); ip != "" {
		return ip
	}
	if ip := c.ClientIP(); ip != "" {
		return ip
	}
	return "unknown"
}

// AllowPrivateIP lets loopback and private-network callers skip a limiter.
func AllowPrivateIP() AllowFunc {
	return func(c *gin.Context) bool {
		a, ok := parseAddr(ClientIP(c))
		return ok && (a.IsLoopback() || a.IsPrivate())
	}
}
