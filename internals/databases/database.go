package database

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"time"

	"schooldesk_backend/internals/configs"
	subjectModel "schooldesk_backend/internals/features/school/academics/subjects/model"
	activityModel "schooldesk_backend/internals/features/school/activity_logs/model"
	attendanceModel "schooldesk_backend/internals/features/school/attendance/model"
	classModel "schooldesk_backend/internals/features/school/classes/classes/model"
	examModel "schooldesk_backend/internals/features/school/exams/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var DB *gorm.DB

func ConnectDB() {
	log.Println("[INFO] connecting to PostgreSQL...")

	// keep PreferSimpleProtocol when going through PgBouncer
	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s&application_name=schooldesk&options=%s",
		url.QueryEscape(configs.GetEnv("DB_USER")),
		url.QueryEscape(configs.GetEnv("DB_PASSWORD")),
		configs.GetEnv("DB_HOST", "localhost"),
		configs.GetEnv("DB_PORT", "5432"),
		configs.GetEnv("DB_NAME"),
		configs.GetEnv("DB_SSLMODE", "require"),
		url.QueryEscape("-c statement_timeout=5000"),
	)

	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true,
	}), &gorm.Config{Logger: configs.NewGormLogger()})
	if err != nil {
		log.Fatalf("[ERROR] database connection failed: %v", err)
	}
	DB = db
	log.Println("[INFO] DB connected.")
}

func TunePool() {
	sqlDB, err := DB.DB()
	if err != nil {
		log.Printf("[WARN] pool tune err: %v", err)
		return
	}
	sqlDB.SetMaxOpenConns(configs.GetEnvInt("DB_MAX_OPEN_CONNS", 20))
	sqlDB.SetMaxIdleConns(configs.GetEnvInt("DB_MAX_IDLE_CONNS", 10))
	sqlDB.SetConnMaxIdleTime(60 * time.Second)
	sqlDB.SetConnMaxLifetime(10 * time.Minute)
}

func Ping() error {
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return sqlDB.PingContext(ctx)
}

// Migrate creates or updates every table the report pipeline reads.
func Migrate() error {
	return DB.AutoMigrate(
		&classModel.ClassModel{},
		&classModel.StudentModel{},
		&subjectModel.SubjectModel{},
		&examModel.ExamTypeModel{},
		&examModel.ExamConfigurationModel{},
		&examModel.StudentMarkModel{},
		&examModel.NonScholasticActivityModel{},
		&examModel.StudentNonScholasticModel{},
		&examModel.ReportRemarkModel{},
		&attendanceModel.AttendanceRecordModel{},
		&activityModel.ActivityLogModel{},
	)
}

// SeedExamTypes inserts the defaults; existing names are left untouched.
func SeedExamTypes() error {
	rows := examModel.DefaultExamTypes()
	res := DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "exam_type_name"}},
		DoNothing: true,
	}).Create(&rows)
	if res.Error != nil {
		return res.Error
	}
	log.Printf("[INFO] exam types seeded, %d new", res.RowsAffected)
	return nil
}
