// file: internals/features/school/exams/service/import_service.go
package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	activityModel "schooldesk_backend/internals/features/school/activity_logs/model"
	activityService "schooldesk_backend/internals/features/school/activity_logs/service"
	classModel "schooldesk_backend/internals/features/school/classes/classes/model"
	classService "schooldesk_backend/internals/features/school/classes/classes/service"
	examModel "schooldesk_backend/internals/features/school/exams/model"
	"schooldesk_backend/internals/features/school/exams/reconcile"
	reportCache "schooldesk_backend/internals/features/school/reports/cache"
	"schooldesk_backend/internals/features/school/store"
	helperAuth "schooldesk_backend/internals/helpers/auth"
	helperOSS "schooldesk_backend/internals/helpers/oss"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const DefaultPreviewTTL = 30 * time.Minute

type ImportRequest struct {
	ExamTypeID   uuid.UUID
	AcademicYear string
	FileName     string
	Body         []byte
}

type ConfirmResult struct {
	PreviewID      uuid.UUID  `json:"preview_id"`
	Kind           ImportKind `json:"kind"`
	ClassID        uuid.UUID  `json:"class_id"`
	ConfigsCreated int        `json:"configurations_created"`
	Rows           int        `json:"rows"`
}

// ImportService runs the two-step spreadsheet import: a preview validates
// the whole file without writing, confirm applies it in one transaction.
type ImportService interface {
	PreviewMarks(ctx context.Context, actor helperAuth.Actor, classID uuid.UUID, req ImportRequest) (*Preview, error)
	PreviewNonScholastic(ctx context.Context, actor helperAuth.Actor, classID uuid.UUID, req ImportRequest) (*Preview, error)
	GetPreview(ctx context.Context, actor helperAuth.Actor, previewID uuid.UUID) (*Preview, error)
	Confirm(ctx context.Context, actor helperAuth.Actor, previewID uuid.UUID) (*ConfirmResult, error)
	Discard(ctx context.Context, actor helperAuth.Actor, previewID uuid.UUID) error

	// Templates are pre-filled with the roster and any values already stored.
	MarksTemplate(ctx context.Context, actor helperAuth.Actor, classID, examTypeID uuid.UUID, academicYear string) (*reconcile.Template, string, error)
	NonScholasticTemplate(ctx context.Context, actor helperAuth.Actor, classID, examTypeID uuid.UUID, academicYear string) (*reconcile.Template, string, error)
}

type importSvc struct {
	st       store.Store
	activity activityService.ActivityLogService
	cache    reportCache.ReportCache
	previews PreviewStore
	archive  helperOSS.Archiver
	ttl      time.Duration
	now      func() time.Time
}

func NewImportService(
	st store.Store,
	activity activityService.ActivityLogService,
	cache reportCache.ReportCache,
	previews PreviewStore,
	archive helperOSS.Archiver,
	ttl time.Duration,
) ImportService {
	if ttl <= 0 {
		ttl = DefaultPreviewTTL
	}
	if archive == nil {
		archive = helperOSS.NoopArchiver{}
	}
	return &importSvc{
		st:       st,
		activity: activity,
		cache:    cache,
		previews: previews,
		archive:  archive,
		ttl:      ttl,
		now:      time.Now,
	}
}

/* ============================================
   Preview
============================================ */

type importContext struct {
	class    *classModel.ClassModel
	examType *examModel.ExamTypeModel
	year     string
	students []classModel.StudentModel
	sheet    *reconcile.Sheet
}

func (s *importSvc) load(ctx context.Context, actor helperAuth.Actor, classID uuid.UUID, req ImportRequest) (*importContext, error) {
	class, err := classService.ClassForActor(ctx, s.st, actor, classID)
	if err != nil {
		return nil, err
	}
	examType, err := examTypeByID(ctx, s.st, req.ExamTypeID)
	if err != nil {
		return nil, err
	}
	sheet, err := reconcile.ReadSheet(req.FileName, bytes.NewReader(req.Body))
	if errors.Is(err, reconcile.ErrUnsupportedFormat) {
		return nil, fiber.NewError(fiber.StatusUnsupportedMediaType, err.Error())
	}
	if err != nil {
		return nil, err
	}
	students, err := s.st.ListStudents(ctx, class.ClassID)
	if err != nil {
		return nil, err
	}
	return &importContext{
		class:    class,
		examType: examType,
		year:     academicYearFor(class, req.AcademicYear),
		students: students,
		sheet:    sheet,
	}, nil
}

func studentRefs(students []classModel.StudentModel) []reconcile.StudentRef {
	out := make([]reconcile.StudentRef, 0, len(students))
	for _, st := range students {
		out = append(out, reconcile.StudentRef{ID: st.StudentID, ScholarNumber: st.StudentScholarNumber, Name: st.StudentName})
	}
	return out
}

func (s *importSvc) PreviewMarks(ctx context.Context, actor helperAuth.Actor, classID uuid.UUID, req ImportRequest) (*Preview, error) {
	ic, err := s.load(ctx, actor, classID, req)
	if err != nil {
		return nil, err
	}
	subjects, err := s.st.ListSubjects(ctx, ic.class.ClassLevel)
	if err != nil {
		return nil, err
	}
	configs, err := s.st.ListExamConfigurations(ctx, ic.class.ClassLevel, ic.year)
	if err != nil {
		return nil, err
	}

	in := reconcile.MarksInput{
		ClassLevel:   ic.class.ClassLevel,
		AcademicYear: ic.year,
		ExamTypeID:   ic.examType.ExamTypeID,
		Students:     studentRefs(ic.students),
		Sheet:        ic.sheet,
	}
	for _, sub := range subjects {
		in.Subjects = append(in.Subjects, reconcile.SubjectRef{ID: sub.SubjectID, Name: sub.SubjectName})
	}
	for _, c := range configsForExamType(configs, ic.examType.ExamTypeID) {
		in.Configs = append(in.Configs, reconcile.ConfigRef{ID: c.ExamConfigurationID, SubjectID: c.ExamConfigurationSubjectID, MaxMarks: c.ExamConfigurationMaxMarks})
	}

	mp, err := reconcile.ReconcileMarks(in)
	if err != nil {
		log.Printf("[IMPORT] marks rejected class=%s file=%q err=%v", classID, req.FileName, err)
		return nil, err
	}
	p := s.newPreview(ctx, actor, ImportMarks, ic.class.ClassID, req)
	p.Marks = mp
	if err := s.previews.Put(ctx, p); err != nil {
		return nil, err
	}
	log.Printf("[IMPORT] marks preview=%s class=%s rows=%d proposals=%d warnings=%d",
		p.ID, classID, len(mp.Rows), len(mp.Proposals), len(mp.Warnings))
	return p, nil
}

func (s *importSvc) PreviewNonScholastic(ctx context.Context, actor helperAuth.Actor, classID uuid.UUID, req ImportRequest) (*Preview, error) {
	ic, err := s.load(ctx, actor, classID, req)
	if err != nil {
		return nil, err
	}
	activities, err := s.st.ListNonScholasticActivities(ctx, ic.class.ClassLevel)
	if err != nil {
		return nil, err
	}

	in := reconcile.NonScholasticInput{
		ClassLevel:   ic.class.ClassLevel,
		AcademicYear: ic.year,
		ExamTypeID:   ic.examType.ExamTypeID,
		Students:     studentRefs(ic.students),
		Sheet:        ic.sheet,
	}
	for _, a := range activities {
		in.Activities = append(in.Activities, reconcile.ActivityRef{
			ID:        a.NonScholasticActivityID,
			Category:  a.NonScholasticActivityCategory,
			Name:      a.NonScholasticActivityName,
			IsNumeric: a.NonScholasticActivityIsNumeric,
			MaxValue:  a.NonScholasticActivityMaxValue,
		})
	}

	np, err := reconcile.ReconcileNonScholastic(in)
	if err != nil {
		log.Printf("[IMPORT] non-scholastic rejected class=%s file=%q err=%v", classID, req.FileName, err)
		return nil, err
	}
	p := s.newPreview(ctx, actor, ImportNonScholastic, ic.class.ClassID, req)
	p.NonScholastic = np
	if err := s.previews.Put(ctx, p); err != nil {
		return nil, err
	}
	log.Printf("[IMPORT] non-scholastic preview=%s class=%s rows=%d warnings=%d", p.ID, classID, len(np.Rows), len(np.Warnings))
	return p, nil
}

func (s *importSvc) newPreview(ctx context.Context, actor helperAuth.Actor, kind ImportKind, classID uuid.UUID, req ImportRequest) *Preview {
	now := s.now()
	p := &Preview{
		ID:        uuid.New(),
		Kind:      kind,
		ClassID:   classID,
		CreatedBy: actor.UserID,
		FileName:  req.FileName,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	key, err := s.archive.Archive(ctx, "imports/"+string(kind), req.FileName, req.Body)
	if err != nil {
		log.Printf("[IMPORT] WARN archive %q failed: %v", req.FileName, err)
	}
	p.ArchiveKey = key
	return p
}

/* ============================================
   Preview lifecycle
============================================ */

func (s *importSvc) previewForActor(ctx context.Context, actor helperAuth.Actor, previewID uuid.UUID) (*Preview, *classModel.ClassModel, error) {
	p, err := s.previews.Get(ctx, previewID)
	if errors.Is(err, ErrPreviewNotFound) {
		return nil, nil, fiber.NewError(fiber.StatusNotFound, err.Error())
	}
	if err != nil {
		return nil, nil, err
	}
	class, err := classService.ClassForActor(ctx, s.st, actor, p.ClassID)
	if err != nil {
		return nil, nil, err
	}
	return p, class, nil
}

func (s *importSvc) GetPreview(ctx context.Context, actor helperAuth.Actor, previewID uuid.UUID) (*Preview, error) {
	p, _, err := s.previewForActor(ctx, actor, previewID)
	return p, err
}

func (s *importSvc) Discard(ctx context.Context, actor helperAuth.Actor, previewID uuid.UUID) error {
	if _, _, err := s.previewForActor(ctx, actor, previewID); err != nil {
		return err
	}
	log.Printf("[IMPORT] discarded preview=%s", previewID)
	return s.previews.Delete(ctx, previewID)
}

func (s *importSvc) Confirm(ctx context.Context, actor helperAuth.Actor, previewID uuid.UUID) (*ConfirmResult, error) {
	p, class, err := s.previewForActor(ctx, actor, previewID)
	if err != nil {
		return nil, err
	}

	res := &ConfirmResult{PreviewID: p.ID, Kind: p.Kind, ClassID: p.ClassID}
	var (
		action, year string
		examTypeID   uuid.UUID
	)
	switch {
	case p.Kind == ImportMarks && p.Marks != nil:
		action, year, examTypeID = activityModel.ActionMarksImport, p.Marks.AcademicYear, p.Marks.ExamTypeID
		err = s.st.WithinTx(ctx, func(tx store.Store) error {
			return applyMarks(ctx, tx, p.Marks, res)
		})
	case p.Kind == ImportNonScholastic && p.NonScholastic != nil:
		action, year, examTypeID = activityModel.ActionNonScholastic, p.NonScholastic.AcademicYear, p.NonScholastic.ExamTypeID
		err = s.st.WithinTx(ctx, func(tx store.Store) error {
			return applyNonScholastic(ctx, tx, p.NonScholastic, res)
		})
	default:
		return nil, fiber.NewError(fiber.StatusUnprocessableEntity, "preview is empty")
	}
	if errors.Is(err, store.ErrNotFound) {
		// a student or subject went away after the preview was built
		return nil, fiber.NewError(fiber.StatusConflict, "the class changed since the preview was made; upload the file again")
	}
	if err != nil {
		log.Printf("[IMPORT] ERROR confirm preview=%s err=%v", p.ID, err)
		return nil, err
	}

	if err := s.previews.Delete(ctx, p.ID); err != nil {
		log.Printf("[IMPORT] WARN drop preview=%s: %v", p.ID, err)
	}
	log.Printf("[IMPORT] confirmed preview=%s kind=%s class=%s rows=%d configs_created=%d",
		p.ID, p.Kind, p.ClassID, res.Rows, res.ConfigsCreated)

	if res.ConfigsCreated > 0 {
		reportCache.InvalidateLevel(ctx, s.cache, s.st, class.ClassLevel, year)
	} else if err := s.cache.InvalidateClass(ctx, class.ClassID); err != nil {
		log.Printf("[CACHE] WARN invalidate class=%s: %v", class.ClassID, err)
	}

	s.activity.Record(ctx, actor, activityService.Entry{
		Action:      action,
		EntityType:  "class",
		EntityID:    &class.ClassID,
		Description: fmt.Sprintf("Imported %s (%d rows) for %s", p.FileName, res.Rows, class.DisplayName()),
		Metadata: map[string]any{
			"preview_id":             p.ID,
			"exam_type_id":           examTypeID,
			"configurations_created": res.ConfigsCreated,
			"archive_key":            p.ArchiveKey,
		},
	})
	return res, nil
}

// applyMarks creates proposed configurations first, then upserts the marks.
// A configuration created or edited by someone else since the preview is
// honoured; if a mark no longer fits its max the confirm is refused.
func applyMarks(ctx context.Context, tx store.Store, mp *reconcile.MarksPreview, res *ConfirmResult) error {
	maxBySubject := map[uuid.UUID]float64{}
	configBySubject := map[uuid.UUID]uuid.UUID{}

	for _, prop := range mp.Proposals {
		cfg := examModel.ExamConfigurationModel{
			ExamConfigurationClassLevel:   mp.ClassLevel,
			ExamConfigurationSubjectID:    prop.SubjectID,
			ExamConfigurationExamTypeID:   mp.ExamTypeID,
			ExamConfigurationAcademicYear: mp.AcademicYear,
			ExamConfigurationMaxMarks:     prop.MaxMarks,
		}
		cur, err := tx.GetExamConfiguration(ctx, cfg.Key())
		switch {
		case err == nil:
			cfg = *cur
		case errors.Is(err, store.ErrNotFound):
			if err := tx.UpsertExamConfiguration(ctx, &cfg); err != nil {
				return err
			}
			res.ConfigsCreated++
		default:
			return err
		}
		configBySubject[prop.SubjectID] = cfg.ExamConfigurationID
		maxBySubject[prop.SubjectID] = cfg.ExamConfigurationMaxMarks
	}

	rows := make([]examModel.StudentMarkModel, 0, len(mp.Rows))
	for _, r := range mp.Rows {
		cid := r.ConfigID
		if cid == uuid.Nil {
			cid = configBySubject[r.SubjectID]
		}
		if cid == uuid.Nil {
			return fiber.NewError(fiber.StatusConflict, fmt.Sprintf("row %d has no exam configuration; upload the file again", r.Row))
		}
		limit, ok := maxBySubject[r.SubjectID]
		if !ok {
			cfg, err := tx.GetExamConfigurationByID(ctx, cid)
			if err != nil {
				return err
			}
			limit = cfg.ExamConfigurationMaxMarks
			maxBySubject[r.SubjectID] = limit
		}
		if r.MarksObtained != nil && *r.MarksObtained > limit {
			return fiber.NewError(fiber.StatusConflict, fmt.Sprintf(
				"row %d: %s now exceeds the configured maximum %s; upload the file again", r.Row, fmtNum(*r.MarksObtained), fmtNum(limit)))
		}
		rows = append(rows, examModel.StudentMarkModel{
			StudentMarkStudentID:           r.StudentID,
			StudentMarkExamConfigurationID: cid,
			StudentMarkMarksObtained:       r.MarksObtained,
			StudentMarkIsAbsent:            r.IsAbsent,
		})
	}
	if err := tx.UpsertStudentMarks(ctx, rows); err != nil {
		return err
	}
	res.Rows = len(rows)
	return nil
}

func applyNonScholastic(ctx context.Context, tx store.Store, np *reconcile.NonScholasticPreview, res *ConfirmResult) error {
	rows := make([]examModel.StudentNonScholasticModel, 0, len(np.Rows))
	for _, r := range np.Rows {
		rows = append(rows, examModel.StudentNonScholasticModel{
			StudentNonScholasticStudentID:    r.StudentID,
			StudentNonScholasticActivityID:   r.ActivityID,
			StudentNonScholasticAcademicYear: np.AcademicYear,
			StudentNonScholasticExamTypeID:   np.ExamTypeID,
			StudentNonScholasticGrade:        r.Grade,
			StudentNonScholasticNumericValue: r.NumericValue,
			StudentNonScholasticIsAbsent:     r.IsAbsent,
		})
	}
	if err := tx.UpsertStudentNonScholastic(ctx, rows); err != nil {
		return err
	}
	res.Rows = len(rows)
	return nil
}

/* ============================================
   Templates
============================================ */

func templateStudents(students []classModel.StudentModel) []reconcile.TemplateStudent {
	out := make([]reconcile.TemplateStudent, 0, len(students))
	for _, st := range students {
		out = append(out, reconcile.TemplateStudent{ScholarNumber: st.StudentScholarNumber, Name: st.StudentName})
	}
	return out
}

func templateFileName(kind string, class *classModel.ClassModel, examType *examModel.ExamTypeModel, year string) string {
	parts := []string{kind, class.ClassLevel}
	if class.ClassSection != nil {
		parts = append(parts, *class.ClassSection)
	}
	parts = append(parts, examType.ExamTypeName, year)
	name := strings.Join(parts, "_")
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r == ' ':
			return '-'
		}
		return -1
	}, name)
	return name + ".xlsx"
}

func (s *importSvc) MarksTemplate(ctx context.Context, actor helperAuth.Actor, classID, examTypeID uuid.UUID, academicYear string) (*reconcile.Template, string, error) {
	class, err := classService.ClassForActor(ctx, s.st, actor, classID)
	if err != nil {
		return nil, "", err
	}
	examType, err := examTypeByID(ctx, s.st, examTypeID)
	if err != nil {
		return nil, "", err
	}
	year := academicYearFor(class, academicYear)

	students, err := s.st.ListStudents(ctx, class.ClassID)
	if err != nil {
		return nil, "", err
	}
	subjects, err := s.st.ListSubjects(ctx, class.ClassLevel)
	if err != nil {
		return nil, "", err
	}
	configs, err := s.st.ListExamConfigurations(ctx, class.ClassLevel, year)
	if err != nil {
		return nil, "", err
	}
	bySubject := configsForExamType(configs, examType.ExamTypeID)

	subjectByConfig := make(map[uuid.UUID]uuid.UUID, len(bySubject))
	configIDs := make([]uuid.UUID, 0, len(bySubject))
	for sid, c := range bySubject {
		subjectByConfig[c.ExamConfigurationID] = sid
		configIDs = append(configIDs, c.ExamConfigurationID)
	}
	marks, err := s.st.ListStudentMarks(ctx, configIDs)
	if err != nil {
		return nil, "", err
	}

	scholarOf := make(map[uuid.UUID]string, len(students))
	for _, st := range students {
		scholarOf[st.StudentID] = st.StudentScholarNumber
	}
	existing := map[string]map[string]reconcile.MarksCell{}
	for _, m := range marks {
		scholar, ok := scholarOf[m.StudentMarkStudentID]
		if !ok {
			continue
		}
		if existing[scholar] == nil {
			existing[scholar] = map[string]reconcile.MarksCell{}
		}
		existing[scholar][subjectByConfig[m.StudentMarkExamConfigurationID].String()] = reconcile.MarksCell{
			MarksObtained: m.StudentMarkMarksObtained,
			IsAbsent:      m.StudentMarkIsAbsent,
		}
	}

	tsubs := make([]reconcile.TemplateSubject, 0, len(subjects))
	for _, sub := range subjects {
		ts := reconcile.TemplateSubject{ID: sub.SubjectID.String(), Name: sub.SubjectName}
		if c, ok := bySubject[sub.SubjectID]; ok {
			limit := c.ExamConfigurationMaxMarks
			ts.MaxMarks = &limit
		}
		tsubs = append(tsubs, ts)
	}

	t := reconcile.NewMarksTemplate(templateStudents(students), tsubs, existing)
	return t, templateFileName("marks", class, examType, year), nil
}

func (s *importSvc) NonScholasticTemplate(ctx context.Context, actor helperAuth.Actor, classID, examTypeID uuid.UUID, academicYear string) (*reconcile.Template, string, error) {
	class, err := classService.ClassForActor(ctx, s.st, actor, classID)
	if err != nil {
		return nil, "", err
	}
	examType, err := examTypeByID(ctx, s.st, examTypeID)
	if err != nil {
		return nil, "", err
	}
	year := academicYearFor(class, academicYear)

	students, err := s.st.ListStudents(ctx, class.ClassID)
	if err != nil {
		return nil, "", err
	}
	activities, err := s.st.ListNonScholasticActivities(ctx, class.ClassLevel)
	if err != nil {
		return nil, "", err
	}
	values, err := s.st.ListStudentNonScholastic(ctx, studentIDs(students), year)
	if err != nil {
		return nil, "", err
	}

	scholarOf := make(map[uuid.UUID]string, len(students))
	for _, st := range students {
		scholarOf[st.StudentID] = st.StudentScholarNumber
	}
	existing := map[string]map[string]reconcile.NonScholasticCell{}
	for _, v := range values {
		if v.StudentNonScholasticExamTypeID != examType.ExamTypeID {
			continue
		}
		scholar := scholarOf[v.StudentNonScholasticStudentID]
		if existing[scholar] == nil {
			existing[scholar] = map[string]reconcile.NonScholasticCell{}
		}
		existing[scholar][v.StudentNonScholasticActivityID.String()] = reconcile.NonScholasticCell{
			Grade:        v.StudentNonScholasticGrade,
			NumericValue: v.StudentNonScholasticNumericValue,
			IsAbsent:     v.StudentNonScholasticIsAbsent,
		}
	}

	tacts := make([]reconcile.TemplateActivity, 0, len(activities))
	for _, a := range activities {
		tacts = append(tacts, reconcile.TemplateActivity{
			ID:        a.NonScholasticActivityID.String(),
			Category:  a.NonScholasticActivityCategory,
			Name:      a.NonScholasticActivityName,
			IsNumeric: a.NonScholasticActivityIsNumeric,
		})
	}

	t := reconcile.NewNonScholasticTemplate(templateStudents(students), tacts, existing)
	return t, templateFileName("non-scholastic", class, examType, year), nil
}
