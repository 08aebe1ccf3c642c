// file: internals/features/school/store/gorm_store.go
package store

import (
	"context"
	"fmt"
	"time"

	subjectModel "schooldesk_backend/internals/features/school/academics/subjects/model"
	activityModel "schooldesk_backend/internals/features/school/activity_logs/model"
	attendanceModel "schooldesk_backend/internals/features/school/attendance/model"
	classModel "schooldesk_backend/internals/features/school/classes/classes/model"
	examModel "schooldesk_backend/internals/features/school/exams/model"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// upsert batches stay well below the postgres bind-parameter limit
const upsertBatchSize = 500

type GormStore struct {
	DB *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{DB: db}
}

var _ Store = (*GormStore)(nil)

func (s *GormStore) db(ctx context.Context) *gorm.DB { return s.DB.WithContext(ctx) }

func (s *GormStore) WithinTx(ctx context.Context, fn func(tx Store) error) error {
	return s.db(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{DB: tx})
	})
}

/* ============================================
   CLASSES & ROSTER
============================================ */

func (s *GormStore) ListClasses(ctx context.Context, f ClassFilter) ([]classModel.ClassModel, error) {
	q := s.db(ctx).Model(&classModel.ClassModel{})
	if f.TeacherID != nil {
		q = q.Where("class_teacher_id = ?", *f.TeacherID)
	}
	if f.AcademicYear != "" {
		q = q.Where("class_academic_year = ?", f.AcademicYear)
	}
	var out []classModel.ClassModel
	err := q.Order("class_academic_year DESC, class_level ASC, class_section ASC NULLS FIRST").Find(&out).Error
	return out, wrap("list classes", err)
}

func (s *GormStore) GetClass(ctx context.Context, classID uuid.UUID) (*classModel.ClassModel, error) {
	var m classModel.ClassModel
	if err := s.db(ctx).First(&m, "class_id = ?", classID).Error; err != nil {
		return nil, wrap("get class", err)
	}
	return &m, nil
}

func (s *GormStore) ListStudents(ctx context.Context, classID uuid.UUID) ([]classModel.StudentModel, error) {
	var out []classModel.StudentModel
	err := s.db(ctx).
		Where("student_class_id = ?", classID).
		Order("student_roll_number ASC, student_scholar_number ASC").
		Find(&out).Error
	return out, wrap("list students", err)
}

func (s *GormStore) GetStudent(ctx context.Context, studentID uuid.UUID) (*classModel.StudentModel, error) {
	var m classModel.StudentModel
	if err := s.db(ctx).First(&m, "student_id = ?", studentID).Error; err != nil {
		return nil, wrap("get student", err)
	}
	return &m, nil
}

func (s *GormStore) CreateStudent(ctx context.Context, st *classModel.StudentModel) error {
	return s.db(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(st).Error; err != nil {
			return wrap("create student", err)
		}
		if err := renumber(tx, st.StudentClassID); err != nil {
			return err
		}
		return wrap("reload student", tx.First(st, "student_id = ?", st.StudentID).Error)
	})
}

func (s *GormStore) UpdateStudent(ctx context.Context, st *classModel.StudentModel) error {
	return s.db(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&classModel.StudentModel{}).
			Where("student_id = ?", st.StudentID).
			Select("student_scholar_number", "student_name", "student_father_name", "student_mother_name",
				"student_date_of_birth", "student_admission_no", "student_admission_date", "student_address").
			Updates(st)
		if res.Error != nil {
			return wrap("update student", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		// a rename can move the student in the alphabetical order
		if err := renumber(tx, st.StudentClassID); err != nil {
			return err
		}
		return wrap("reload student", tx.First(st, "student_id = ?", st.StudentID).Error)
	})
}

func (s *GormStore) DeleteStudent(ctx context.Context, studentID uuid.UUID) error {
	return s.db(ctx).Transaction(func(tx *gorm.DB) error {
		var st classModel.StudentModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&st, "student_id = ?", studentID).Error; err != nil {
			return wrap("delete student", err)
		}
		cascade := []struct {
			model  any
			column string
		}{
			{&attendanceModel.AttendanceRecordModel{}, "attendance_record_student_id"},
			{&examModel.StudentMarkModel{}, "student_mark_student_id"},
			{&examModel.StudentNonScholasticModel{}, "student_non_scholastic_student_id"},
			{&examModel.ReportRemarkModel{}, "report_remark_student_id"},
		}
		for _, c := range cascade {
			if err := tx.Where(c.column+" = ?", studentID).Delete(c.model).Error; err != nil {
				return wrap("delete student cascade", err)
			}
		}
		if err := tx.Delete(&classModel.StudentModel{}, "student_id = ?", studentID).Error; err != nil {
			return wrap("delete student", err)
		}
		return renumber(tx, st.StudentClassID)
	})
}

func (s *GormStore) RenumberRollNumbers(ctx context.Context, classID uuid.UUID) error {
	return s.db(ctx).Transaction(func(tx *gorm.DB) error {
		return renumber(tx, classID)
	})
}

func renumber(tx *gorm.DB, classID uuid.UUID) error {
	var roster []classModel.StudentModel
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("student_class_id = ?", classID).
		Find(&roster).Error; err != nil {
		return wrap("renumber", err)
	}
	for _, st := range classModel.AssignRollNumbers(roster) {
		if err := tx.Model(&classModel.StudentModel{}).
			Where("student_id = ?", st.StudentID).
			UpdateColumn("student_roll_number", st.StudentRollNumber).Error; err != nil {
			return wrap("renumber", err)
		}
	}
	return nil
}

/* ============================================
   SUBJECTS & EXAM SETUP
============================================ */

func (s *GormStore) ListSubjects(ctx context.Context, classLevel string) ([]subjectModel.SubjectModel, error) {
	var out []subjectModel.SubjectModel
	err := s.db(ctx).
		Where("subject_class_level = ?", classLevel).
		Order("subject_display_order ASC, subject_created_at ASC").
		Find(&out).Error
	return out, wrap("list subjects", err)
}

func (s *GormStore) GetSubject(ctx context.Context, subjectID uuid.UUID) (*subjectModel.SubjectModel, error) {
	var m subjectModel.SubjectModel
	if err := s.db(ctx).First(&m, "subject_id = ?", subjectID).Error; err != nil {
		return nil, wrap("get subject", err)
	}
	return &m, nil
}

func (s *GormStore) CreateSubject(ctx context.Context, sub *subjectModel.SubjectModel) error {
	return wrap("create subject", s.db(ctx).Create(sub).Error)
}

func (s *GormStore) ListExamTypes(ctx context.Context) ([]examModel.ExamTypeModel, error) {
	var out []examModel.ExamTypeModel
	err := s.db(ctx).Order("exam_type_display_order ASC, exam_type_name ASC").Find(&out).Error
	return out, wrap("list exam types", err)
}

func (s *GormStore) GetExamType(ctx context.Context, examTypeID uuid.UUID) (*examModel.ExamTypeModel, error) {
	var m examModel.ExamTypeModel
	if err := s.db(ctx).First(&m, "exam_type_id = ?", examTypeID).Error; err != nil {
		return nil, wrap("get exam type", err)
	}
	return &m, nil
}

func (s *GormStore) GetExamConfiguration(ctx context.Context, key examModel.ExamConfigurationKey) (*examModel.ExamConfigurationModel, error) {
	var m examModel.ExamConfigurationModel
	err := s.db(ctx).
		Where("exam_configuration_class_level = ? AND exam_configuration_subject_id = ? AND exam_configuration_exam_type_id = ? AND exam_configuration_academic_year = ?",
			key.ClassLevel, key.SubjectID, key.ExamTypeID, key.AcademicYear).
		First(&m).Error
	if err != nil {
		return nil, wrap("get exam configuration", err)
	}
	return &m, nil
}

func (s *GormStore) GetExamConfigurationByID(ctx context.Context, configID uuid.UUID) (*examModel.ExamConfigurationModel, error) {
	var m examModel.ExamConfigurationModel
	if err := s.db(ctx).First(&m, "exam_configuration_id = ?", configID).Error; err != nil {
		return nil, wrap("get exam configuration", err)
	}
	return &m, nil
}

func (s *GormStore) ListExamConfigurations(ctx context.Context, classLevel, academicYear string) ([]examModel.ExamConfigurationModel, error) {
	var out []examModel.ExamConfigurationModel
	err := s.db(ctx).
		Where("exam_configuration_class_level = ? AND exam_configuration_academic_year = ?", classLevel, academicYear).
		Order("exam_configuration_created_at ASC").
		Find(&out).Error
	return out, wrap("list exam configurations", err)
}

func (s *GormStore) UpsertExamConfiguration(ctx context.Context, c *examModel.ExamConfigurationModel) error {
	err := s.db(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "exam_configuration_class_level"},
			{Name: "exam_configuration_subject_id"},
			{Name: "exam_configuration_exam_type_id"},
			{Name: "exam_configuration_academic_year"},
		},
		DoUpdates: clause.Assignments(map[string]any{
			"exam_configuration_max_marks":  c.ExamConfigurationMaxMarks,
			"exam_configuration_updated_at": time.Now(),
		}),
	}).Create(c).Error
	if err != nil {
		return wrap("upsert exam configuration", err)
	}
	// on conflict the generated id is not the stored one
	stored, err := s.GetExamConfiguration(ctx, c.Key())
	if err != nil {
		return err
	}
	*c = *stored
	return nil
}

/* ============================================
   MARKS
============================================ */

func (s *GormStore) ListStudentMarks(ctx context.Context, configIDs []uuid.UUID) ([]examModel.StudentMarkModel, error) {
	if len(configIDs) == 0 {
		return nil, nil
	}
	var out []examModel.StudentMarkModel
	err := s.db(ctx).
		Where("student_mark_exam_configuration_id IN ?", configIDs).
		Order("student_mark_created_at ASC").
		Find(&out).Error
	return out, wrap("list student marks", err)
}

func (s *GormStore) UpsertStudentMarks(ctx context.Context, rows []examModel.StudentMarkModel) error {
	if len(rows) == 0 {
		return nil
	}
	students := make([]uuid.UUID, len(rows))
	configs := make([]uuid.UUID, len(rows))
	for i, r := range rows {
		students[i], configs[i] = r.StudentMarkStudentID, r.StudentMarkExamConfigurationID
	}
	return s.db(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireRefs(tx, "upsert student marks", "student", &classModel.StudentModel{}, "student_id", students); err != nil {
			return err
		}
		if err := requireRefs(tx, "upsert student marks", "exam configuration", &examModel.ExamConfigurationModel{}, "exam_configuration_id", configs); err != nil {
			return err
		}
		return upsertMarks(tx, rows)
	})
}

func upsertMarks(tx *gorm.DB, rows []examModel.StudentMarkModel) error {
	err := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "student_mark_student_id"},
			{Name: "student_mark_exam_configuration_id"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"student_mark_marks_obtained",
			"student_mark_is_absent",
			"student_mark_updated_at",
		}),
	}).CreateInBatches(&rows, upsertBatchSize).Error
	return wrap("upsert student marks", err)
}

func (s *GormStore) ListNonScholasticActivities(ctx context.Context, classLevel string) ([]examModel.NonScholasticActivityModel, error) {
	var out []examModel.NonScholasticActivityModel
	err := s.db(ctx).
		Where("non_scholastic_activity_class_level = ?", classLevel).
		Order("non_scholastic_activity_display_order ASC, non_scholastic_activity_category ASC, non_scholastic_activity_name ASC").
		Find(&out).Error
	return out, wrap("list non-scholastic activities", err)
}

func (s *GormStore) ListStudentNonScholastic(ctx context.Context, studentIDs []uuid.UUID, academicYear string) ([]examModel.StudentNonScholasticModel, error) {
	if len(studentIDs) == 0 {
		return nil, nil
	}
	var out []examModel.StudentNonScholasticModel
	err := s.db(ctx).
		Where("student_non_scholastic_student_id IN ? AND student_non_scholastic_academic_year = ?", studentIDs, academicYear).
		Order("student_non_scholastic_created_at ASC").
		Find(&out).Error
	return out, wrap("list student non-scholastic", err)
}

func (s *GormStore) UpsertStudentNonScholastic(ctx context.Context, rows []examModel.StudentNonScholasticModel) error {
	if len(rows) == 0 {
		return nil
	}
	students := make([]uuid.UUID, len(rows))
	activities := make([]uuid.UUID, len(rows))
	examTypes := make([]uuid.UUID, len(rows))
	for i, r := range rows {
		students[i] = r.StudentNonScholasticStudentID
		activities[i] = r.StudentNonScholasticActivityID
		examTypes[i] = r.StudentNonScholasticExamTypeID
	}
	const op = "upsert student non-scholastic"
	return s.db(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireRefs(tx, op, "student", &classModel.StudentModel{}, "student_id", students); err != nil {
			return err
		}
		if err := requireRefs(tx, op, "activity", &examModel.NonScholasticActivityModel{}, "non_scholastic_activity_id", activities); err != nil {
			return err
		}
		if err := requireRefs(tx, op, "exam type", &examModel.ExamTypeModel{}, "exam_type_id", examTypes); err != nil {
			return err
		}
		return upsertNonScholastic(tx, rows)
	})
}

func upsertNonScholastic(tx *gorm.DB, rows []examModel.StudentNonScholasticModel) error {
	err := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "student_non_scholastic_student_id"},
			{Name: "student_non_scholastic_activity_id"},
			{Name: "student_non_scholastic_academic_year"},
			{Name: "student_non_scholastic_exam_type_id"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"student_non_scholastic_grade",
			"student_non_scholastic_numeric_value",
			"student_non_scholastic_is_absent",
			"student_non_scholastic_updated_at",
		}),
	}).CreateInBatches(&rows, upsertBatchSize).Error
	return wrap("upsert student non-scholastic", err)
}

func (s *GormStore) GetReportRemark(ctx context.Context, studentID uuid.UUID, academicYear string) (*examModel.ReportRemarkModel, error) {
	var m examModel.ReportRemarkModel
	err := s.db(ctx).
		Where("report_remark_student_id = ? AND report_remark_academic_year = ?", studentID, academicYear).
		First(&m).Error
	if err != nil {
		return nil, wrap("get report remark", err)
	}
	return &m, nil
}

func (s *GormStore) UpsertReportRemark(ctx context.Context, r *examModel.ReportRemarkModel) error {
	err := s.db(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "report_remark_student_id"},
			{Name: "report_remark_academic_year"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"report_remark_height",
			"report_remark_weight",
			"report_remark_attendance_text",
			"report_remark_remarks",
			"report_remark_updated_at",
		}),
	}).Create(r).Error
	if err != nil {
		return wrap("upsert report remark", err)
	}
	stored, err := s.GetReportRemark(ctx, r.ReportRemarkStudentID, r.ReportRemarkAcademicYear)
	if err != nil {
		return err
	}
	*r = *stored
	return nil
}

/* ============================================
   ATTENDANCE
============================================ */

func (s *GormStore) ListAttendance(ctx context.Context, classID uuid.UUID, from, to time.Time) ([]attendanceModel.AttendanceRecordModel, error) {
	var out []attendanceModel.AttendanceRecordModel
	err := s.db(ctx).
		Where("attendance_record_class_id = ? AND attendance_record_date BETWEEN ? AND ?",
			classID, datatypes.Date(attendanceModel.DateOnly(from)), datatypes.Date(attendanceModel.DateOnly(to))).
		Order("attendance_record_date ASC, attendance_record_created_at ASC").
		Find(&out).Error
	return out, wrap("list attendance", err)
}

func (s *GormStore) ReplaceAttendanceForDate(ctx context.Context, classID uuid.UUID, date time.Time, rows []attendanceModel.AttendanceRecordModel) error {
	day := datatypes.Date(attendanceModel.DateOnly(date))
	students := make([]uuid.UUID, len(rows))
	for i, r := range rows {
		students[i] = r.AttendanceRecordStudentID
	}
	return s.db(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireRefs(tx, "replace attendance", "class", &classModel.ClassModel{}, "class_id", []uuid.UUID{classID}); err != nil {
			return err
		}
		if err := requireRefs(tx, "replace attendance", "student", &classModel.StudentModel{}, "student_id", students); err != nil {
			return err
		}
		if err := tx.
			Where("attendance_record_class_id = ? AND attendance_record_date = ?", classID, day).
			Delete(&attendanceModel.AttendanceRecordModel{}).Error; err != nil {
			return wrap("replace attendance", err)
		}
		if len(rows) == 0 {
			return nil
		}
		for i := range rows {
			rows[i].AttendanceRecordClassID = classID
			rows[i].AttendanceRecordDate = day
		}
		return wrap("replace attendance", tx.CreateInBatches(&rows, upsertBatchSize).Error)
	})
}

// requireRefs fails with ErrNotFound naming the first id that has no row,
// before an insert would trip the foreign key.
func requireRefs(tx *gorm.DB, op, what string, model any, column string, ids []uuid.UUID) error {
	want := make([]uuid.UUID, 0, len(ids))
	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; !dup {
			seen[id] = struct{}{}
			want = append(want, id)
		}
	}
	if len(want) == 0 {
		return nil
	}

	var found []uuid.UUID
	if err := tx.Model(model).Where(column+" IN ?", want).Pluck(column, &found).Error; err != nil {
		return wrap(op, err)
	}
	have := make(map[uuid.UUID]struct{}, len(found))
	for _, id := range found {
		have[id] = struct{}{}
	}
	for _, id := range want {
		if _, ok := have[id]; !ok {
			return &StoreError{Op: op, Err: fmt.Errorf("%w: %s %s", ErrNotFound, what, id)}
		}
	}
	return nil
}

/* ============================================
   ACTIVITY LOG
============================================ */

func (s *GormStore) AppendActivityLog(ctx context.Context, e *activityModel.ActivityLogModel) error {
	return wrap("append activity log", s.db(ctx).Create(e).Error)
}

func (s *GormStore) ListActivityLogs(ctx context.Context, f ActivityLogFilter) ([]activityModel.ActivityLogModel, int64, error) {
	q := s.db(ctx).Model(&activityModel.ActivityLogModel{})
	if f.ActorID != nil {
		q = q.Where("activity_log_actor_id = ?", *f.ActorID)
	}
	if f.Action != "" {
		q = q.Where("activity_log_action = ?", f.Action)
	}
	if f.EntityType != "" {
		q = q.Where("activity_log_entity_type = ?", f.EntityType)
	}
	if f.Since != nil {
		q = q.Where("activity_log_created_at >= ?", *f.Since)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, wrap("count activity logs", err)
	}
	var out []activityModel.ActivityLogModel
	if f.Limit > 0 {
		q = q.Limit(f.Limit).Offset(f.Offset)
	}
	err := q.Order("activity_log_created_at DESC").Find(&out).Error
	return out, total, wrap("list activity logs", err)
}
