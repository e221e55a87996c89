package middleware

import (
	"net"
	"strings"

	"github.com/gin-gonic/gin"
)

// RealIP stores the client IP under "real_ip". Sources in order:
// CF-Connecting-IP, the left-most valid X-Forwarded-For entry, X-Real-IP, then c.ClientIP().
func RealIP() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := parseIP(c.GetHeader("CF-Connecting-IP"))
		if ip == "" {
			ip = firstForwarded(c.GetHeader("X-Forwarded-For"))
		}
		if ip == "" {
			ip = parseIP(c.GetHeader("X-Real-IP"))
		}
		if ip == "" {
			ip = c.ClientIP()
		}
		c.Set("real_ip", ip)
		c.Next()
	}
}

func firstForwarded(xff string) string {
	for _, part := range strings.Split(xff, ",") {
		if ip := parseIP(part); ip != "" {
			return ip
		}
	}
	return ""
}

func parseIP(s string) string {
	ip := net.ParseIP(strings.TrimSpace(s))
	if ip == nil {
		return ""
	}
	return ip.String()
}
