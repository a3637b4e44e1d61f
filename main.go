package main

import (
	"context"
	"log"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/etag"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/utils"

	"schoolkit_backend/internals/configs"
	classModel "schoolkit_backend/internals/features/school/classes/model"
	instanceModel "schoolkit_backend/internals/features/school/instance/model"
	rpModel "schoolkit_backend/internals/features/school/relatedpersons/model"
	studentModel "schoolkit_backend/internals/features/school/students/model"
	subjectModel "schoolkit_backend/internals/features/school/subjects/model"
	teacherModel "schoolkit_backend/internals/features/school/teachers/model"
	yearModel "schoolkit_backend/internals/features/school/years/model"
	database "schoolkit_backend/internals/databases"
	route "schoolkit_backend/internals/route"
)

func main() {
	configs.LoadEnv()

	app := fiber.New(fiber.Config{
		JSONEncoder:           sonic.Marshal,
		JSONDecoder:           sonic.Unmarshal,
		DisableStartupMessage: true,
		ProxyHeader:           fiber.HeaderXForwardedFor,
	})

	app.Use(recover.New())
	app.Use(compress.New(compress.Config{Level: compress.LevelDefault}))
	app.Use(etag.New())

	// Request-ID + timing + per-request timeout guard (aligned with the DB
	// statement_timeout).
	app.Use(func(c *fiber.Ctx) error {
		id := c.Get("X-Request-ID")
		if id == "" {
			id = utils.UUID()
		}
		c.Set("X-Request-ID", id)
		c.Locals("reqid", id)
		start := time.Now()
		ctx, cancel := context.WithTimeout(c.Context(), 30*time.Second)
		defer cancel()
		c.SetUserContext(ctx)
		err := c.Next()
		log.Printf("[REQ] id=%s %s %s status=%d dur=%s", id, c.Method(), c.OriginalURL(), c.Response().StatusCode(), time.Since(start))
		return err
	})

	// 🔌 DB connect + pool
	database.ConnectDB()
	database.TunePool()

	log.Println("📦 Running migrations...")
	if err := database.DB.AutoMigrate(
		&instanceModel.SchoolInstanceModel{},
		&yearModel.SchoolYearModel{},
		&classModel.ClassModel{},
		&subjectModel.SubjectModel{},
		&studentModel.StudentModel{},
		&teacherModel.TeacherModel{},
		&rpModel.RelatedPersonModel{},
	); err != nil {
		log.Fatalf("❌ Migration failed: %v", err)
	}
	log.Println("✅ Migrations done.")

	// ❤️ Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})

	route.SetupRoutes(app, database.DB)

	port := configs.GetEnv("PORT", "3000")
	log.Printf("🚀 Listening on :%s", port)
	if err := app.Listen(":" + port); err != nil {
		log.Fatalf("❌ Server stopped: %v", err)
	}
}
