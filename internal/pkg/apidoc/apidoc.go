// Package apidoc serves the OpenAPI document of the /api/v1 surface.
package apidoc

import (
	"context"
	"fmt"
	"log"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
)

const (
	DefaultPath = "public/docs/v1/openapi.yml"
	BasePath    = "/docs/api/"
	UIPath      = "v1"
)

// Load reads the document at path and validates it against the OpenAPI 3
// schema.
func Load(ctx context.Context, path string) (*openapi3.T, error) {
	doc, err := openapi3.NewLoader().LoadFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("load openapi document %s: %w", path, err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("invalid openapi document %s: %w", path, err)
	}
	return doc, nil
}

// Install mounts the swagger UI under BasePath+UIPath. A missing or invalid
// document is logged and nothing is mounted.
func Install(app *fiber.App, path string) bool {
	if _, err := Load(context.Background(), path); err != nil {
		log.Printf("Warning: [Docs] API docs disabled: %v", err)
		return false
	}
	app.Use(swagger.New(swagger.Config{
		BasePath: BasePath,
		FilePath: path,
		Path:     UIPath,
		Title:    "JobFox Pricing API",
	}))
	return true
}
