package controllers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/text/language"

	"github.com/ManuelReschke/JobFox/internal/pkg/geo"
)

// GetClientIP determines the client address considering Cloudflare and the
// usual proxy headers. The first X-Forwarded-For entry is the original client.
func GetClientIP(c *fiber.Ctx) string {
	if cfIP := strings.TrimSpace(c.Get("CF-Connecting-IP")); cfIP != "" {
		return cfIP
	}
	if xff := c.Get("X-Forwarded-For"); xff != "" {
		if first := strings.TrimSpace(strings.Split(xff, ",")[0]); first != "" {
			return first
		}
	}
	if realIP := strings.TrimSpace(c.Get("X-Real-IP")); realIP != "" {
		return realIP
	}
	return strings.TrimPrefix(c.IP(), "::ffff:")
}

// preferredLocale returns the locale query parameter or the highest ranked
// Accept-Language tag.
func preferredLocale(c *fiber.Ctx) string {
	if loc := strings.TrimSpace(c.Query("locale")); loc != "" {
		return loc
	}
	tags, _, err := language.ParseAcceptLanguage(c.Get(fiber.HeaderAcceptLanguage))
	if err != nil || len(tags) == 0 {
		return ""
	}
	return tags[0].String()
}

// detectionSignals collects what the request tells us about the visitor.
// Browsers forward their IANA zone in X-Timezone and a position fix as
// lat/lon query parameters.
func detectionSignals(c *fiber.Ctx) geo.Signals {
	sig := geo.Signals{
		ClientIP: GetClientIP(c),
		Timezone: strings.TrimSpace(c.Get("X-Timezone", c.Query("tz"))),
		Locale:   preferredLocale(c),
	}

	lat, latErr := strconv.ParseFloat(c.Query("lat"), 64)
	lon, lonErr := strconv.ParseFloat(c.Query("lon"), 64)
	if latErr == nil && lonErr == nil {
		sig.Coordinates = geo.StaticCoordinates(geo.Coordinates{Latitude: lat, Longitude: lon})
	}
	return sig
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func errorJSON(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{"error": code, "message": message})
}
