// Package geoip resolves client IPs to ISO country codes as a fallback for
// beacons that arrive without an edge-supplied country header. The GeoLite2
// database is optional; without it every lookup returns the empty string.
package geoip

import (
	"log/slog"
	"net"
	"os"
	"sync"

	"github.com/oschwald/geoip2-golang"
)

var (
	mu     sync.RWMutex
	reader *geoip2.Reader
	logger = slog.Default()
)

// Init opens the GeoLite2 country database at path. A missing or unreadable
// database disables geo lookups rather than failing startup.
func Init(path string, log *slog.Logger) {
	mu.Lock()
	defer mu.Unlock()

	if log != nil {
		logger = log
	}

	if path == "" {
		logger.Debug("GeoIP database path not configured, geo lookups disabled")
		return
	}
	if _, err := os.Stat(path); err != nil {
		logger.Info("GeoLite2 database not found, geo lookups disabled",
			slog.String("path", path),
			slog.Any("error", err))
		return
	}

	db, err := geoip2.Open(path)
	if err != nil {
		logger.Error("Failed to open GeoLite2 database",
			slog.String("path", path),
			slog.Any("error", err))
		return
	}

	if reader != nil {
		reader.Close()
	}
	reader = db
	logger.Info("GeoLite2 database initialized", slog.String("path", path))
}

// CountryCode returns the uppercase ISO alpha-2 code for an IP, or "" when
// the database is unavailable, the IP is unparseable or the lookup misses.
func CountryCode(ipAddress string) string {
	mu.RLock()
	db := reader
	mu.RUnlock()
	if db == nil {
		return ""
	}

	ip := net.ParseIP(ipAddress)
	if ip == nil {
		return ""
	}

	record, err := db.Country(ip)
	if err != nil {
		logger.Debug("GeoIP lookup failed",
			slog.String("ip", ipAddress),
			slog.Any("error", err))
		return ""
	}
	if record.Country.IsoCode == "--" {
		return ""
	}
	return record.Country.IsoCode
}

// Close releases the database reader.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	if reader != nil {
		reader.Close()
		reader = nil
	}
}
