package middleware

import (
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/erp/commercesync/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// NetworkAllowlist holds the clients allowed to reach a route group
type NetworkAllowlist struct {
	ips  []net.IP
	nets []*net.IPNet
}

// ParseNetworkAllowlist parses single IPs and CIDR ranges.
// An invalid entry is an error so a typo cannot silently open or close the API.
func ParseNetworkAllowlist(entries []string) (*NetworkAllowlist, error) {
	list := &NetworkAllowlist{}
	for _, raw := range entries {
		entry := strings.TrimSpace(raw)
		if entry == "" {
			continue
		}
		if strings.Contains(entry, "/") {
			_, network, err := net.ParseCIDR(entry)
			if err != nil {
				return nil, fmt.Errorf("invalid network %q: %w", entry, err)
			}
			list.nets = append(list.nets, network)
			continue
		}
		ip := net.ParseIP(entry)
		if ip == nil {
			return nil, fmt.Errorf("invalid IP %q", entry)
		}
		list.ips = append(list.ips, ip)
	}
	if len(list.ips) == 0 && len(list.nets) == 0 {
		return nil, fmt.Errorf("network allowlist is empty")
	}
	return list, nil
}

// Allows reports whether ip is listed
func (l *NetworkAllowlist) Allows(ip net.IP) bool {
	if ip == nil {
		return false
	}
	for _, allowed := range l.ips {
		if allowed.Equal(ip) {
			return true
		}
	}
	for _, network := range l.nets {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// InternalOnly rejects clients outside the allowlist with 403. The client IP
// honors the engine's trusted proxies.
func InternalOnly(list *NetworkAllowlist) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !list.Allows(clientIP(c)) {
			c.AbortWithStatusJSON(http.StatusForbidden, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeForbidden, "endpoint is restricted to internal networks", c.GetString(RequestIDKey),
			))
			return
		}
		c.Next()
	}
}

func clientIP(c *gin.Context) net.IP {
	if ip := net.ParseIP(c.ClientIP()); ip != nil {
		return ip
	}
	host, _, err := net.SplitHostPort(c.Request.RemoteAddr)
	if err != nil {
		host = c.Request.RemoteAddr
	}
	return net.ParseIP(host)
}
