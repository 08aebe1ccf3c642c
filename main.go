package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"schooldesk_backend/internals/configs"
	database "schooldesk_backend/internals/databases"
	subjectService "schooldesk_backend/internals/features/school/academics/subjects/service"
	activityService "schooldesk_backend/internals/features/school/activity_logs/service"
	attendanceService "schooldesk_backend/internals/features/school/attendance/service"
	classModel "schooldesk_backend/internals/features/school/classes/classes/model"
	classService "schooldesk_backend/internals/features/school/classes/classes/service"
	examModel "schooldesk_backend/internals/features/school/exams/model"
	examService "schooldesk_backend/internals/features/school/exams/service"
	reportCache "schooldesk_backend/internals/features/school/reports/cache"
	reportService "schooldesk_backend/internals/features/school/reports/service"
	"schooldesk_backend/internals/features/school/store"
	"schooldesk_backend/internals/features/school/store/memstore"
	"schooldesk_backend/internals/helpers/dbtime"
	helperOSS "schooldesk_backend/internals/helpers/oss"
	middlewares "schooldesk_backend/internals/middlewares"
	routes "schooldesk_backend/internals/route"
	routeDetails "schooldesk_backend/internals/route/details"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

func main() {
	configs.LoadEnv()

	app := fiber.New(fiber.Config{
		JSONEncoder:             sonic.Marshal,
		JSONDecoder:             sonic.Unmarshal,
		DisableStartupMessage:   true,
		BodyLimit:               int(helperOSS.MaxSheetUploadSize) + 1024*1024,
		ProxyHeader:             fiber.HeaderXForwardedFor,
		EnableTrustedProxyCheck: true,
		TrustedProxies:          []string{"0.0.0.0/0"},
	})

	middlewares.SetupMiddlewares(app, middlewares.Options{
		AllowOrigins:   configs.CorsAllowOrigins,
		TimeZone:       configs.AppTimezone,
		RequestTimeout: configs.GetEnvDuration("REQUEST_TIMEOUT", 30*time.Second),
	})
	app.Use(dbtime.UseSchoolLocation(dbtime.LoadLocation(configs.AppTimezone)))

	// store
	var (
		st   store.Store
		ping func() error
	)
	if configs.StoreDriver == "memory" {
		mem := memstore.New()
		seedMemory(mem)
		st = mem
		log.Println("[WARN] STORE_DRIVER=memory, data is lost on restart")
	} else {
		database.ConnectDB()
		database.TunePool()
		if configs.GetEnvBool("DB_AUTO_MIGRATE", true) {
			if err := database.Migrate(); err != nil {
				log.Fatalf("[ERROR] migrate: %v", err)
			}
		}
		if err := database.SeedExamTypes(); err != nil {
			log.Printf("[WARN] seed exam types: %v", err)
		}
		st = store.NewGormStore(database.DB)
		ping = database.Ping
	}

	// redis: report cache + import previews
	cache := reportCache.NewNoopCache()
	if configs.StoreDriver == "memory" {
		// single process, so an in-process cache cannot go stale elsewhere
		cache = reportCache.NewMemoryCache(configs.ReportCacheTTL)
	}
	previews := examService.NewMemoryPreviewStore()
	if rdb := configs.ConnectRedis(); rdb != nil {
		cache = reportCache.NewRedisCache(rdb, configs.ReportCacheTTL)
		previews = examService.NewRedisPreviewStore(rdb)
		defer rdb.Close()
	}

	// OSS archive of uploads and generated reports
	archivePrefix := configs.GetEnv("ARCHIVE_PREFIX", "schooldesk")
	var archiver helperOSS.Archiver = helperOSS.NoopArchiver{}
	archive, err := helperOSS.NewArchiveServiceFromEnv(archivePrefix)
	switch {
	case err == nil:
		archiver = archive
	case errors.Is(err, helperOSS.ErrArchiveDisabled):
		log.Println("[INFO] archive disabled")
	default:
		log.Printf("[ERROR] archive init failed, continuing without it: %v", err)
	}

	reaper, err := helperOSS.StartReaperCron(helperOSS.ReaperConfig{
		Prefix:        archivePrefix,
		RetentionDays: configs.GetEnvInt("ARCHIVE_RETENTION_DAYS", 90),
		CronSchedule:  configs.GetEnv("REAPER_CRON_SCHEDULE"),
		DryRun:        configs.GetEnvBool("REAPER_DRY_RUN", false),
	}, archive, previews)
	if err != nil {
		log.Fatalf("[ERROR] reaper: %v", err)
	}

	activity := activityService.NewActivityLogService(st)
	services := routeDetails.Services{
		Roster:     classService.NewRosterService(st, activity, cache),
		Subjects:   subjectService.NewSubjectService(st, activity),
		ExamSetup:  examService.NewExamSetupService(st, activity, cache),
		Marks:      examService.NewMarksService(st, activity, cache),
		Imports:    examService.NewImportService(st, activity, cache, previews, archiver, configs.ImportPreviewTTL),
		Attendance: attendanceService.NewAttendanceService(st, activity, cache),
		Reports:    reportService.NewReportService(st, activity, cache, archiver, configs.SchoolName),
		Activity:   activity,
	}

	routes.SetupRoutes(app, services, routes.Options{
		JWTSecret: configs.SupabaseJWTSecret,
		Ping:      ping,
	})

	app.Server().ReadTimeout = 15 * time.Second
	app.Server().WriteTimeout = 60 * time.Second
	app.Server().IdleTimeout = 90 * time.Second

	go func() {
		log.Printf("[INFO] listening on :%s", configs.Port)
		if err := app.Listen("0.0.0.0:" + configs.Port); err != nil {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("[INFO] shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = app.ShutdownWithContext(ctx)

	<-reaper.Stop().Done()
	activity.Wait()

	if database.DB != nil {
		if sqlDB, err := database.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}

// seedMemory loads the default exam types and, when DEMO_CLASS_LEVEL is set,
// one class so the API is usable without a database.
func seedMemory(mem *memstore.Store) {
	for _, t := range examModel.DefaultExamTypes() {
		if _, err := mem.AddExamType(t); err != nil {
			log.Printf("[WARN] seed exam type %q: %v", t.ExamTypeName, err)
		}
	}

	level := configs.GetEnv("DEMO_CLASS_LEVEL")
	if level == "" {
		return
	}
	c := classModel.ClassModel{
		ClassLevel:        level,
		ClassAcademicYear: configs.GetEnv("DEMO_ACADEMIC_YEAR", "2025-26"),
	}
	if sec := configs.GetEnv("DEMO_CLASS_SECTION"); sec != "" {
		c.ClassSection = &sec
	}
	if raw := configs.GetEnv("DEMO_TEACHER_ID"); raw != "" {
		if id, err := uuid.Parse(raw); err == nil {
			c.ClassTeacherID = &id
		} else {
			log.Printf("[WARN] DEMO_TEACHER_ID is not a uuid: %v", err)
		}
	}
	c = mem.AddClass(c)
	log.Printf("[INFO] demo class %s (%s) seeded", c.DisplayName(), c.ClassID)
}
