// Package v1 holds the public HTTP surface: the beacon pixel, the stats API
// and the health check.
package v1

import (
	"net"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// getClientIP extracts the originating client IP, preferring proxy headers
// over the socket address. Private and loopback addresses are skipped so a
// reverse-proxy hop never masquerades as the visitor.
func getClientIP(c *fiber.Ctx) string {
	if ip := selectPreferredIP(strings.Split(c.Get("X-Forwarded-For"), ",")); ip != "" {
		return ip
	}

	for _, header := range []string{
		"X-Real-IP",
		"CF-Connecting-IP",
		"True-Client-IP",
	} {
		if value := c.Get(header); value != "" {
			if ip := selectPreferredIP([]string{value}); ip != "" {
				return ip
			}
		}
	}

	remoteAddr := c.Context().RemoteAddr().String()
	if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
		if parsed := net.ParseIP(host); parsed != nil && !isPrivateIP(parsed) {
			return host
		}
	}

	if ip := c.IP(); ip != "" && ip != "0.0.0.0" && ip != "::" {
		if parsed := net.ParseIP(strings.TrimSpace(ip)); parsed != nil && !isPrivateIP(parsed) {
			return ip
		}
	}

	return "127.0.0.1"
}

// selectPreferredIP returns the first public IP from a list of candidates,
// falling back to the first valid private one.
func selectPreferredIP(candidates []string) string {
	var private string
	for _, candidate := range candidates {
		value := strings.TrimSpace(candidate)
		parsed := net.ParseIP(value)
		if parsed == nil {
			continue
		}
		if !isPrivateIP(parsed) {
			return value
		}
		if private == "" {
			private = value
		}
	}
	return private
}

var privateIPBlocks = func() []*net.IPNet {
	blocks := make([]*net.IPNet, 0, 7)
	for _, cidr := range []string{
		"10.0.0.0/8",
		"172.16.0.0/12",
		"192.168.0.0/16",
		"fc00::/7",
		"fe80::/10",
		"::1/128",
		"127.0.0.0/8",
	} {
		_, block, err := net.ParseCIDR(cidr)
		if err != nil {
			panic(err)
		}
		blocks = append(blocks, block)
	}
	return blocks
}()

func isPrivateIP(ip net.IP) bool {
	for _, block := range privateIPBlocks {
		if block.Contains(ip) {
			return true
		}
	}
	return false
}
