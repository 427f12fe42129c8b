package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/JobFox/internal/pkg/engine"
	"github.com/ManuelReschke/JobFox/internal/pkg/session"
)

type Router interface {
	InstallRouter(app *fiber.App)
}

func InstallRouter(app *fiber.App, e *engine.Engine) {
	// Visitor sessions back the currency override and location cache, so
	// the store must exist before any pricing route runs.
	if session.GetSessionStore() == nil {
		session.NewSessionStore()
	}
	setup(app, NewApiRouter(e))
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}
