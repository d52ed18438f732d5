package useragent_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/benvinegar/counterscale-sub000/internal/pkg/useragent"
)

const (
	chromeMac     = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
	firefoxWin    = "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:125.0) Gecko/20100101 Firefox/125.0"
	safariIPhone  = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_4 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Mobile/15E148 Safari/604.1"
	edgeWin       = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36 Edg/124.0.2478.51"
	chromeAndroid = "Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.6367.54 Mobile Safari/537.36"
	safariIPad    = "Mozilla/5.0 (iPad; CPU OS 17_4 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Mobile/15E148 Safari/604.1"
	googlebot     = "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)"
)

func TestParseBrowsers(t *testing.T) {
	t.Run("chrome on mac", func(t *testing.T) {
		ua := useragent.Parse(chromeMac)
		assert.Equal(t, "Chrome", ua.Browser)
		assert.Equal(t, "124.0.0.0", ua.BrowserVersion)
		assert.Equal(t, "Macintosh", ua.DeviceModel)
		assert.Equal(t, "desktop", ua.DeviceType)
		assert.False(t, ua.Bot)
	})

	t.Run("firefox on windows", func(t *testing.T) {
		ua := useragent.Parse(firefoxWin)
		assert.Equal(t, "Firefox", ua.Browser)
		assert.Equal(t, "125.0", ua.BrowserVersion)
		assert.Equal(t, "PC", ua.DeviceModel)
		assert.Equal(t, "desktop", ua.DeviceType)
	})

	t.Run("edge wins over its chrome token", func(t *testing.T) {
		ua := useragent.Parse(edgeWin)
		assert.Equal(t, "Edge", ua.Browser)
		assert.Equal(t, "124.0.2478.51", ua.BrowserVersion)
	})

	t.Run("safari on iphone", func(t *testing.T) {
		ua := useragent.Parse(safariIPhone)
		assert.Equal(t, "Safari", ua.Browser)
		assert.Equal(t, "17.4", ua.BrowserVersion)
		assert.Equal(t, "iPhone", ua.DeviceModel)
		assert.Equal(t, "mobile", ua.DeviceType)
	})
}

func TestParseDevices(t *testing.T) {
	t.Run("android phone is mobile", func(t *testing.T) {
		ua := useragent.Parse(chromeAndroid)
		assert.Equal(t, "Android", ua.DeviceModel)
		assert.Equal(t, "mobile", ua.DeviceType)
	})

	t.Run("ipad is tablet", func(t *testing.T) {
		ua := useragent.Parse(safariIPad)
		assert.Equal(t, "iPad", ua.DeviceModel)
		assert.Equal(t, "tablet", ua.DeviceType)
	})
}

func TestParseBots(t *testing.T) {
	assert.True(t, useragent.Parse(googlebot).Bot)
	assert.True(t, useragent.Parse("curl/8.4.0").Bot)
	assert.False(t, useragent.Parse(chromeMac).Bot)
}

func TestParseDegradesGracefully(t *testing.T) {
	t.Run("empty input", func(t *testing.T) {
		assert.Equal(t, useragent.UserAgent{}, useragent.Parse(""))
	})

	t.Run("unrecognized input keeps fields empty", func(t *testing.T) {
		ua := useragent.Parse("TotallyUnknownAgent/1.0")
		assert.Empty(t, ua.Browser)
		assert.Empty(t, ua.DeviceType)
		assert.False(t, ua.Bot)
	})
}
