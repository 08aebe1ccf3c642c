package store_test

import (
	"os"
	"testing"

	subjectModel "schooldesk_backend/internals/features/school/academics/subjects/model"
	attendanceModel "schooldesk_backend/internals/features/school/attendance/model"
	classModel "schooldesk_backend/internals/features/school/classes/classes/model"
	examModel "schooldesk_backend/internals/features/school/exams/model"
	"schooldesk_backend/internals/features/school/store"
	"schooldesk_backend/internals/features/school/store/storetest"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Runs only against a throwaway database named by TEST_DATABASE_DSN.
func TestGormStoreContract(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("TEST_DATABASE_DSN not set")
	}
	db, err := gorm.Open(postgres.New(postgres.Config{DSN: dsn, PreferSimpleProtocol: true}),
		&gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
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
	))

	storetest.Run(t, func(t *testing.T) storetest.Fixture {
		create := func(t *testing.T, v any) {
			t.Helper()
			require.NoError(t, db.Create(v).Error)
		}
		return storetest.Fixture{
			Store: store.NewGormStore(db),
			AddClass: func(t *testing.T, c classModel.ClassModel) classModel.ClassModel {
				create(t, &c)
				return c
			},
			AddExamType: func(t *testing.T, e examModel.ExamTypeModel) examModel.ExamTypeModel {
				create(t, &e)
				return e
			},
			AddActivity: func(t *testing.T, a examModel.NonScholasticActivityModel) examModel.NonScholasticActivityModel {
				create(t, &a)
				return a
			},
		}
	})
}
