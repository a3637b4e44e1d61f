// file: internals/route/index.go
package route

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"schoolkit_backend/internals/features/school/storage"
	"schoolkit_backend/internals/features/school/workflow"
	"schoolkit_backend/internals/middlewares"
	"schoolkit_backend/internals/registry"
)

// SetupRoutes wires the store layer and the registry client factory into one
// workflow.Deps bundle and mounts the tenant-scoped API behind the JWT gate.
func SetupRoutes(app *fiber.App, db *gorm.DB) {
	deps := workflow.NewDeps(storage.NewGormStores(db), registry.NewHTTPFactory())

	log.Println("[INFO] Setting up school group (/api/s/:school_id)...")
	school := app.Group("/api/s/:school_id", middlewares.AuthJWT())
	SchoolRoutes(school, deps)
}
