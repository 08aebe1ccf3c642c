// file: internals/features/school/store/memstore/memstore.go
package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	subjectModel "schooldesk_backend/internals/features/school/academics/subjects/model"
	activityModel "schooldesk_backend/internals/features/school/activity_logs/model"
	attendanceModel "schooldesk_backend/internals/features/school/attendance/model"
	classModel "schooldesk_backend/internals/features/school/classes/classes/model"
	examModel "schooldesk_backend/internals/features/school/exams/model"
	"schooldesk_backend/internals/features/school/store"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type markKey struct {
	StudentID uuid.UUID
	ConfigID  uuid.UUID
}

type nonScholasticKey struct {
	StudentID    uuid.UUID
	ActivityID   uuid.UUID
	AcademicYear string
	ExamTypeID   uuid.UUID
}

type remarkKey struct {
	StudentID    uuid.UUID
	AcademicYear string
}

type state struct {
	classes       map[uuid.UUID]classModel.ClassModel
	students      map[uuid.UUID]classModel.StudentModel
	subjects      map[uuid.UUID]subjectModel.SubjectModel
	examTypes     map[uuid.UUID]examModel.ExamTypeModel
	configs       map[uuid.UUID]examModel.ExamConfigurationModel
	marks         map[markKey]examModel.StudentMarkModel
	activities    map[uuid.UUID]examModel.NonScholasticActivityModel
	nonScholastic map[nonScholasticKey]examModel.StudentNonScholasticModel
	remarks       map[remarkKey]examModel.ReportRemarkModel
	attendance    map[uuid.UUID]attendanceModel.AttendanceRecordModel
	logs          []activityModel.ActivityLogModel

	last time.Time
}

func newState() *state {
	return &state{
		classes:       map[uuid.UUID]classModel.ClassModel{},
		students:      map[uuid.UUID]classModel.StudentModel{},
		subjects:      map[uuid.UUID]subjectModel.SubjectModel{},
		examTypes:     map[uuid.UUID]examModel.ExamTypeModel{},
		configs:       map[uuid.UUID]examModel.ExamConfigurationModel{},
		marks:         map[markKey]examModel.StudentMarkModel{},
		activities:    map[uuid.UUID]examModel.NonScholasticActivityModel{},
		nonScholastic: map[nonScholasticKey]examModel.StudentNonScholasticModel{},
		remarks:       map[remarkKey]examModel.ReportRemarkModel{},
		attendance:    map[uuid.UUID]attendanceModel.AttendanceRecordModel{},
	}
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (st *state) clone() *state {
	return &state{
		classes:       cloneMap(st.classes),
		students:      cloneMap(st.students),
		subjects:      cloneMap(st.subjects),
		examTypes:     cloneMap(st.examTypes),
		configs:       cloneMap(st.configs),
		marks:         cloneMap(st.marks),
		activities:    cloneMap(st.activities),
		nonScholastic: cloneMap(st.nonScholastic),
		remarks:       cloneMap(st.remarks),
		attendance:    cloneMap(st.attendance),
		logs:          append([]activityModel.ActivityLogModel(nil), st.logs...),
		last:          st.last,
	}
}

// tick hands out strictly increasing timestamps so creation order is stable.
func (st *state) tick() time.Time {
	t := time.Now().UTC()
	if !t.After(st.last) {
		t = st.last.Add(time.Microsecond)
	}
	st.last = t
	return t
}

// Store keeps everything in process memory. It honours the same uniqueness
// and reference rules as the postgres schema.
type Store struct {
	mu   *sync.RWMutex
	st   *state
	held bool // inside WithinTx; the lock is already taken
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{mu: &sync.RWMutex{}, st: newState()}
}

func (s *Store) lock() func() {
	if s.held {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Store) rlock() func() {
	if s.held {
		return func() {}
	}
	s.mu.RLock()
	return s.mu.RUnlock
}

func conflict(op, format string, args ...any) error {
	return &store.StoreError{Op: op, Err: fmt.Errorf("%w: "+format, append([]any{store.ErrConflict}, args...)...)}
}

func missingRef(op, format string, args ...any) error {
	return &store.StoreError{Op: op, Err: fmt.Errorf("%w: "+format, append([]any{store.ErrNotFound}, args...)...)}
}

func invalid(op string, err error) error {
	return &store.StoreError{Op: op, Err: err}
}

// WithinTx runs fn on a copy of the state and swaps it in only when fn
// succeeds. Nested calls join the outer transaction.
func (s *Store) WithinTx(ctx context.Context, fn func(tx store.Store) error) error {
	if s.held {
		return fn(s)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &Store{mu: s.mu, st: s.st.clone(), held: true}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	*s.st = *tx.st
	return nil
}

/* ============================================
   SEEDING (no API creates these rows)
============================================ */

func (s *Store) AddClass(c classModel.ClassModel) classModel.ClassModel {
	defer s.lock()()
	if c.ClassID == uuid.Nil {
		c.ClassID = uuid.New()
	}
	_ = c.BeforeSave(nil)
	now := s.st.tick()
	c.ClassCreatedAt, c.ClassUpdatedAt = now, now
	s.st.classes[c.ClassID] = c
	return c
}

func (s *Store) AddExamType(t examModel.ExamTypeModel) (examModel.ExamTypeModel, error) {
	defer s.lock()()
	if err := t.BeforeSave(nil); err != nil {
		return t, invalid("add exam type", err)
	}
	for _, it := range s.st.examTypes {
		if strings.EqualFold(it.ExamTypeName, t.ExamTypeName) {
			return it, conflict("add exam type", "exam type %q exists", t.ExamTypeName)
		}
	}
	if t.ExamTypeID == uuid.Nil {
		t.ExamTypeID = uuid.New()
	}
	now := s.st.tick()
	t.ExamTypeCreatedAt, t.ExamTypeUpdatedAt = now, now
	s.st.examTypes[t.ExamTypeID] = t
	return t, nil
}

func (s *Store) AddNonScholasticActivity(a examModel.NonScholasticActivityModel) examModel.NonScholasticActivityModel {
	defer s.lock()()
	if a.NonScholasticActivityID == uuid.Nil {
		a.NonScholasticActivityID = uuid.New()
	}
	a.NonScholasticActivityClassLevel = classModel.NormalizeClassLevel(a.NonScholasticActivityClassLevel)
	a.NonScholasticActivityCreatedAt = s.st.tick()
	s.st.activities[a.NonScholasticActivityID] = a
	return a
}

/* ============================================
   CLASSES & ROSTER
============================================ */

func (s *Store) ListClasses(ctx context.Context, f store.ClassFilter) ([]classModel.ClassModel, error) {
	defer s.rlock()()
	var out []classModel.ClassModel
	for _, c := range s.st.classes {
		if f.TeacherID != nil && (c.ClassTeacherID == nil || *c.ClassTeacherID != *f.TeacherID) {
			continue
		}
		if f.AcademicYear != "" && c.ClassAcademicYear != f.AcademicYear {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.ClassAcademicYear != b.ClassAcademicYear {
			return a.ClassAcademicYear > b.ClassAcademicYear
		}
		if a.ClassLevel != b.ClassLevel {
			return a.ClassLevel < b.ClassLevel
		}
		return sectionOf(a) < sectionOf(b)
	})
	return out, nil
}

func sectionOf(c classModel.ClassModel) string {
	if c.ClassSection == nil {
		return ""
	}
	return *c.ClassSection
}

func (s *Store) GetClass(ctx context.Context, classID uuid.UUID) (*classModel.ClassModel, error) {
	defer s.rlock()()
	c, ok := s.st.classes[classID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &c, nil
}

func (st *state) roster(classID uuid.UUID) []classModel.StudentModel {
	var out []classModel.StudentModel
	for _, it := range st.students {
		if it.StudentClassID == classID {
			out = append(out, it)
		}
	}
	return out
}

func (s *Store) ListStudents(ctx context.Context, classID uuid.UUID) ([]classModel.StudentModel, error) {
	defer s.rlock()()
	out := s.st.roster(classID)
	sort.Slice(out, func(i, j int) bool {
		if out[i].StudentRollNumber != out[j].StudentRollNumber {
			return out[i].StudentRollNumber < out[j].StudentRollNumber
		}
		return out[i].StudentScholarNumber < out[j].StudentScholarNumber
	})
	return out, nil
}

func (s *Store) GetStudent(ctx context.Context, studentID uuid.UUID) (*classModel.StudentModel, error) {
	defer s.rlock()()
	it, ok := s.st.students[studentID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &it, nil
}

func (st *state) scholarTaken(classID uuid.UUID, scholar string, except uuid.UUID) bool {
	for _, it := range st.students {
		if it.StudentClassID == classID && it.StudentID != except && it.StudentScholarNumber == scholar {
			return true
		}
	}
	return false
}

func (st *state) renumber(classID uuid.UUID) {
	roster := st.roster(classID)
	for _, it := range classModel.AssignRollNumbers(roster) {
		st.students[it.StudentID] = it
	}
}

func (s *Store) CreateStudent(ctx context.Context, it *classModel.StudentModel) error {
	defer s.lock()()
	if err := it.BeforeSave(nil); err != nil {
		return invalid("create student", err)
	}
	if _, ok := s.st.classes[it.StudentClassID]; !ok {
		return missingRef("create student", "class %s", it.StudentClassID)
	}
	if s.st.scholarTaken(it.StudentClassID, it.StudentScholarNumber, uuid.Nil) {
		return conflict("create student", "scholar number %q already in class", it.StudentScholarNumber)
	}
	if it.StudentID == uuid.Nil {
		it.StudentID = uuid.New()
	}
	now := s.st.tick()
	it.StudentCreatedAt, it.StudentUpdatedAt = now, now
	s.st.students[it.StudentID] = *it
	s.st.renumber(it.StudentClassID)
	*it = s.st.students[it.StudentID]
	return nil
}

func (s *Store) UpdateStudent(ctx context.Context, it *classModel.StudentModel) error {
	defer s.lock()()
	cur, ok := s.st.students[it.StudentID]
	if !ok {
		return store.ErrNotFound
	}
	if err := it.BeforeSave(nil); err != nil {
		return invalid("update student", err)
	}
	if s.st.scholarTaken(cur.StudentClassID, it.StudentScholarNumber, it.StudentID) {
		return conflict("update student", "scholar number %q already in class", it.StudentScholarNumber)
	}
	// class, roll number and created_at are not editable here
	it.StudentClassID = cur.StudentClassID
	it.StudentRollNumber = cur.StudentRollNumber
	it.StudentCreatedAt = cur.StudentCreatedAt
	it.StudentUpdatedAt = s.st.tick()
	s.st.students[it.StudentID] = *it
	s.st.renumber(it.StudentClassID)
	*it = s.st.students[it.StudentID]
	return nil
}

func (s *Store) DeleteStudent(ctx context.Context, studentID uuid.UUID) error {
	defer s.lock()()
	it, ok := s.st.students[studentID]
	if !ok {
		return store.ErrNotFound
	}
	for id, a := range s.st.attendance {
		if a.AttendanceRecordStudentID == studentID {
			delete(s.st.attendance, id)
		}
	}
	for k := range s.st.marks {
		if k.StudentID == studentID {
			delete(s.st.marks, k)
		}
	}
	for k := range s.st.nonScholastic {
		if k.StudentID == studentID {
			delete(s.st.nonScholastic, k)
		}
	}
	for k := range s.st.remarks {
		if k.StudentID == studentID {
			delete(s.st.remarks, k)
		}
	}
	delete(s.st.students, studentID)
	s.st.renumber(it.StudentClassID)
	return nil
}

func (s *Store) RenumberRollNumbers(ctx context.Context, classID uuid.UUID) error {
	defer s.lock()()
	s.st.renumber(classID)
	return nil
}

/* ============================================
   SUBJECTS & EXAM SETUP
============================================ */

func (s *Store) ListSubjects(ctx context.Context, classLevel string) ([]subjectModel.SubjectModel, error) {
	defer s.rlock()()
	var out []subjectModel.SubjectModel
	for _, it := range s.st.subjects {
		if it.SubjectClassLevel == classLevel {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SubjectDisplayOrder != out[j].SubjectDisplayOrder {
			return out[i].SubjectDisplayOrder < out[j].SubjectDisplayOrder
		}
		return out[i].SubjectCreatedAt.Before(out[j].SubjectCreatedAt)
	})
	return out, nil
}

func (s *Store) GetSubject(ctx context.Context, subjectID uuid.UUID) (*subjectModel.SubjectModel, error) {
	defer s.rlock()()
	it, ok := s.st.subjects[subjectID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &it, nil
}

func (s *Store) CreateSubject(ctx context.Context, it *subjectModel.SubjectModel) error {
	defer s.lock()()
	if err := it.BeforeSave(nil); err != nil {
		return invalid("create subject", err)
	}
	for _, other := range s.st.subjects {
		if other.SubjectClassLevel == it.SubjectClassLevel && other.SubjectName == it.SubjectName {
			return conflict("create subject", "subject %q exists for %s", it.SubjectName, it.SubjectClassLevel)
		}
	}
	if it.SubjectID == uuid.Nil {
		it.SubjectID = uuid.New()
	}
	now := s.st.tick()
	it.SubjectCreatedAt, it.SubjectUpdatedAt = now, now
	s.st.subjects[it.SubjectID] = *it
	return nil
}

func (s *Store) ListExamTypes(ctx context.Context) ([]examModel.ExamTypeModel, error) {
	defer s.rlock()()
	out := make([]examModel.ExamTypeModel, 0, len(s.st.examTypes))
	for _, it := range s.st.examTypes {
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ExamTypeDisplayOrder != out[j].ExamTypeDisplayOrder {
			return out[i].ExamTypeDisplayOrder < out[j].ExamTypeDisplayOrder
		}
		return out[i].ExamTypeName < out[j].ExamTypeName
	})
	return out, nil
}

func (s *Store) GetExamType(ctx context.Context, examTypeID uuid.UUID) (*examModel.ExamTypeModel, error) {
	defer s.rlock()()
	it, ok := s.st.examTypes[examTypeID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &it, nil
}

func (st *state) configByKey(key examModel.ExamConfigurationKey) (examModel.ExamConfigurationModel, bool) {
	for _, it := range st.configs {
		if it.Key() == key {
			return it, true
		}
	}
	return examModel.ExamConfigurationModel{}, false
}

func (s *Store) GetExamConfiguration(ctx context.Context, key examModel.ExamConfigurationKey) (*examModel.ExamConfigurationModel, error) {
	defer s.rlock()()
	it, ok := s.st.configByKey(key)
	if !ok {
		return nil, store.ErrNotFound
	}
	return &it, nil
}

func (s *Store) GetExamConfigurationByID(ctx context.Context, configID uuid.UUID) (*examModel.ExamConfigurationModel, error) {
	defer s.rlock()()
	it, ok := s.st.configs[configID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &it, nil
}

func (s *Store) ListExamConfigurations(ctx context.Context, classLevel, academicYear string) ([]examModel.ExamConfigurationModel, error) {
	defer s.rlock()()
	var out []examModel.ExamConfigurationModel
	for _, it := range s.st.configs {
		if it.ExamConfigurationClassLevel == classLevel && it.ExamConfigurationAcademicYear == academicYear {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ExamConfigurationCreatedAt.Before(out[j].ExamConfigurationCreatedAt)
	})
	return out, nil
}

func (s *Store) UpsertExamConfiguration(ctx context.Context, c *examModel.ExamConfigurationModel) error {
	defer s.lock()()
	if err := c.BeforeSave(nil); err != nil {
		return invalid("upsert exam configuration", err)
	}
	if _, ok := s.st.subjects[c.ExamConfigurationSubjectID]; !ok {
		return missingRef("upsert exam configuration", "subject %s", c.ExamConfigurationSubjectID)
	}
	if _, ok := s.st.examTypes[c.ExamConfigurationExamTypeID]; !ok {
		return missingRef("upsert exam configuration", "exam type %s", c.ExamConfigurationExamTypeID)
	}
	now := s.st.tick()
	if cur, ok := s.st.configByKey(c.Key()); ok {
		cur.ExamConfigurationMaxMarks = c.ExamConfigurationMaxMarks
		cur.ExamConfigurationUpdatedAt = now
		s.st.configs[cur.ExamConfigurationID] = cur
		*c = cur
		return nil
	}
	if c.ExamConfigurationID == uuid.Nil {
		c.ExamConfigurationID = uuid.New()
	}
	c.ExamConfigurationCreatedAt, c.ExamConfigurationUpdatedAt = now, now
	s.st.configs[c.ExamConfigurationID] = *c
	return nil
}

/* ============================================
   MARKS
============================================ */

func (s *Store) ListStudentMarks(ctx context.Context, configIDs []uuid.UUID) ([]examModel.StudentMarkModel, error) {
	defer s.rlock()()
	want := make(map[uuid.UUID]struct{}, len(configIDs))
	for _, id := range configIDs {
		want[id] = struct{}{}
	}
	var out []examModel.StudentMarkModel
	for k, it := range s.st.marks {
		if _, ok := want[k.ConfigID]; ok {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StudentMarkCreatedAt.Before(out[j].StudentMarkCreatedAt)
	})
	return out, nil
}

func (s *Store) UpsertStudentMarks(ctx context.Context, rows []examModel.StudentMarkModel) error {
	defer s.lock()()
	// validate everything first so a bad row leaves nothing behind
	for i := range rows {
		if err := rows[i].Validate(); err != nil {
			return invalid("upsert student marks", err)
		}
		if _, ok := s.st.students[rows[i].StudentMarkStudentID]; !ok {
			return missingRef("upsert student marks", "student %s", rows[i].StudentMarkStudentID)
		}
		if _, ok := s.st.configs[rows[i].StudentMarkExamConfigurationID]; !ok {
			return missingRef("upsert student marks", "exam configuration %s", rows[i].StudentMarkExamConfigurationID)
		}
	}
	for _, r := range rows {
		k := markKey{StudentID: r.StudentMarkStudentID, ConfigID: r.StudentMarkExamConfigurationID}
		now := s.st.tick()
		if cur, ok := s.st.marks[k]; ok {
			cur.StudentMarkMarksObtained = r.StudentMarkMarksObtained
			cur.StudentMarkIsAbsent = r.StudentMarkIsAbsent
			cur.StudentMarkUpdatedAt = now
			s.st.marks[k] = cur
			continue
		}
		if r.StudentMarkID == uuid.Nil {
			r.StudentMarkID = uuid.New()
		}
		r.StudentMarkCreatedAt, r.StudentMarkUpdatedAt = now, now
		s.st.marks[k] = r
	}
	return nil
}

func (s *Store) ListNonScholasticActivities(ctx context.Context, classLevel string) ([]examModel.NonScholasticActivityModel, error) {
	defer s.rlock()()
	var out []examModel.NonScholasticActivityModel
	for _, it := range s.st.activities {
		if it.NonScholasticActivityClassLevel == classLevel {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.NonScholasticActivityDisplayOrder != b.NonScholasticActivityDisplayOrder {
			return a.NonScholasticActivityDisplayOrder < b.NonScholasticActivityDisplayOrder
		}
		if a.NonScholasticActivityCategory != b.NonScholasticActivityCategory {
			return a.NonScholasticActivityCategory < b.NonScholasticActivityCategory
		}
		return a.NonScholasticActivityName < b.NonScholasticActivityName
	})
	return out, nil
}

func (s *Store) ListStudentNonScholastic(ctx context.Context, studentIDs []uuid.UUID, academicYear string) ([]examModel.StudentNonScholasticModel, error) {
	defer s.rlock()()
	want := make(map[uuid.UUID]struct{}, len(studentIDs))
	for _, id := range studentIDs {
		want[id] = struct{}{}
	}
	var out []examModel.StudentNonScholasticModel
	for k, it := range s.st.nonScholastic {
		if _, ok := want[k.StudentID]; ok && k.AcademicYear == academicYear {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StudentNonScholasticCreatedAt.Before(out[j].StudentNonScholasticCreatedAt)
	})
	return out, nil
}

func (s *Store) UpsertStudentNonScholastic(ctx context.Context, rows []examModel.StudentNonScholasticModel) error {
	defer s.lock()()
	for i := range rows {
		if err := rows[i].BeforeSave(nil); err != nil {
			return invalid("upsert student non-scholastic", err)
		}
		if _, ok := s.st.students[rows[i].StudentNonScholasticStudentID]; !ok {
			return missingRef("upsert student non-scholastic", "student %s", rows[i].StudentNonScholasticStudentID)
		}
		if _, ok := s.st.activities[rows[i].StudentNonScholasticActivityID]; !ok {
			return missingRef("upsert student non-scholastic", "activity %s", rows[i].StudentNonScholasticActivityID)
		}
		if _, ok := s.st.examTypes[rows[i].StudentNonScholasticExamTypeID]; !ok {
			return missingRef("upsert student non-scholastic", "exam type %s", rows[i].StudentNonScholasticExamTypeID)
		}
	}
	for _, r := range rows {
		k := nonScholasticKey{
			StudentID:    r.StudentNonScholasticStudentID,
			ActivityID:   r.StudentNonScholasticActivityID,
			AcademicYear: r.StudentNonScholasticAcademicYear,
			ExamTypeID:   r.StudentNonScholasticExamTypeID,
		}
		now := s.st.tick()
		if cur, ok := s.st.nonScholastic[k]; ok {
			cur.StudentNonScholasticGrade = r.StudentNonScholasticGrade
			cur.StudentNonScholasticNumericValue = r.StudentNonScholasticNumericValue
			cur.StudentNonScholasticIsAbsent = r.StudentNonScholasticIsAbsent
			cur.StudentNonScholasticUpdatedAt = now
			s.st.nonScholastic[k] = cur
			continue
		}
		if r.StudentNonScholasticID == uuid.Nil {
			r.StudentNonScholasticID = uuid.New()
		}
		r.StudentNonScholasticCreatedAt, r.StudentNonScholasticUpdatedAt = now, now
		s.st.nonScholastic[k] = r
	}
	return nil
}

func (s *Store) GetReportRemark(ctx context.Context, studentID uuid.UUID, academicYear string) (*examModel.ReportRemarkModel, error) {
	defer s.rlock()()
	it, ok := s.st.remarks[remarkKey{StudentID: studentID, AcademicYear: academicYear}]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &it, nil
}

func (s *Store) UpsertReportRemark(ctx context.Context, r *examModel.ReportRemarkModel) error {
	defer s.lock()()
	if _, ok := s.st.students[r.ReportRemarkStudentID]; !ok {
		return missingRef("upsert report remark", "student %s", r.ReportRemarkStudentID)
	}
	k := remarkKey{StudentID: r.ReportRemarkStudentID, AcademicYear: r.ReportRemarkAcademicYear}
	if cur, ok := s.st.remarks[k]; ok {
		r.ReportRemarkID = cur.ReportRemarkID
	} else if r.ReportRemarkID == uuid.Nil {
		r.ReportRemarkID = uuid.New()
	}
	r.ReportRemarkUpdatedAt = s.st.tick()
	s.st.remarks[k] = *r
	return nil
}

/* ============================================
   ATTENDANCE
============================================ */

func (s *Store) ListAttendance(ctx context.Context, classID uuid.UUID, from, to time.Time) ([]attendanceModel.AttendanceRecordModel, error) {
	defer s.rlock()()
	lo, hi := attendanceModel.DateOnly(from), attendanceModel.DateOnly(to)
	var out []attendanceModel.AttendanceRecordModel
	for _, it := range s.st.attendance {
		if it.AttendanceRecordClassID != classID {
			continue
		}
		d := it.Day()
		if d.Before(lo) || d.After(hi) {
			continue
		}
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool {
		di, dj := out[i].Day(), out[j].Day()
		if !di.Equal(dj) {
			return di.Before(dj)
		}
		return out[i].AttendanceRecordCreatedAt.Before(out[j].AttendanceRecordCreatedAt)
	})
	return out, nil
}

func (s *Store) ReplaceAttendanceForDate(ctx context.Context, classID uuid.UUID, date time.Time, rows []attendanceModel.AttendanceRecordModel) error {
	defer s.lock()()
	day := attendanceModel.DateOnly(date)
	if _, ok := s.st.classes[classID]; !ok {
		return missingRef("replace attendance", "class %s", classID)
	}
	seen := make(map[uuid.UUID]struct{}, len(rows))
	for i := range rows {
		if err := rows[i].BeforeSave(nil); err != nil {
			return invalid("replace attendance", err)
		}
		if _, ok := s.st.students[rows[i].AttendanceRecordStudentID]; !ok {
			return missingRef("replace attendance", "student %s", rows[i].AttendanceRecordStudentID)
		}
		if _, dup := seen[rows[i].AttendanceRecordStudentID]; dup {
			return conflict("replace attendance", "student %s listed twice", rows[i].AttendanceRecordStudentID)
		}
		seen[rows[i].AttendanceRecordStudentID] = struct{}{}
	}
	for id, it := range s.st.attendance {
		if it.AttendanceRecordClassID == classID && it.Day().Equal(day) {
			delete(s.st.attendance, id)
		}
	}
	for i := range rows {
		r := rows[i]
		r.AttendanceRecordID = uuid.New()
		r.AttendanceRecordClassID = classID
		r.AttendanceRecordDate = datatypes.Date(day)
		r.AttendanceRecordCreatedAt = s.st.tick()
		s.st.attendance[r.AttendanceRecordID] = r
		rows[i] = r
	}
	return nil
}

/* ============================================
   ACTIVITY LOG
============================================ */

func (s *Store) AppendActivityLog(ctx context.Context, e *activityModel.ActivityLogModel) error {
	defer s.lock()()
	if e.ActivityLogID == uuid.Nil {
		e.ActivityLogID = uuid.New()
	}
	e.ActivityLogCreatedAt = s.st.tick()
	s.st.logs = append(s.st.logs, *e)
	return nil
}

func (s *Store) ListActivityLogs(ctx context.Context, f store.ActivityLogFilter) ([]activityModel.ActivityLogModel, int64, error) {
	defer s.rlock()()
	var matched []activityModel.ActivityLogModel
	// newest first
	for i := len(s.st.logs) - 1; i >= 0; i-- {
		e := s.st.logs[i]
		if f.ActorID != nil && (e.ActivityLogActorID == nil || *e.ActivityLogActorID != *f.ActorID) {
			continue
		}
		if f.Action != "" && e.ActivityLogAction != f.Action {
			continue
		}
		if f.EntityType != "" && e.ActivityLogEntityType != f.EntityType {
			continue
		}
		if f.Since != nil && e.ActivityLogCreatedAt.Before(*f.Since) {
			continue
		}
		matched = append(matched, e)
	}
	total := int64(len(matched))
	if f.Limit > 0 {
		lo := f.Offset
		if lo > len(matched) {
			lo = len(matched)
		}
		hi := lo + f.Limit
		if hi > len(matched) {
			hi = len(matched)
		}
		matched = matched[lo:hi]
	}
	return matched, total, nil
}
