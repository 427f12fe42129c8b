package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminTokenMiddleware(t *testing.T) {
	newApp := func(token string) *fiber.App {
		app := fiber.New()
		app.Post("/admin", AdminTokenMiddleware(token), func(c *fiber.Ctx) error {
			return c.SendStatus(fiber.StatusNoContent)
		})
		return app
	}

	cases := []struct {
		name   string
		token  string
		header string
		value  string
		want   int
	}{
		{"disabled", "", "Authorization", "Bearer x", fiber.StatusServiceUnavailable},
		{"missing", "secret", "", "", fiber.StatusUnauthorized},
		{"wrong", "secret", "Authorization", "Bearer nope", fiber.StatusForbidden},
		{"bearer", "secret", "Authorization", "Bearer secret", fiber.StatusNoContent},
		{"header", "secret", "X-Admin-Token", "secret", fiber.StatusNoContent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/admin", nil)
			if tc.header != "" {
				req.Header.Set(tc.header, tc.value)
			}
			resp, err := newApp(tc.token).Test(req)
			require.NoError(t, err)
			assert.Equal(t, tc.want, resp.StatusCode)
		})
	}
}
