package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyanguru/gyanguru-backend/apperrors"
	"github.com/gyanguru/gyanguru-backend/events"
	"github.com/gyanguru/gyanguru-backend/models"
)

type fakeAssignmentRepo struct {
	mu          sync.Mutex
	assignments map[uuid.UUID]models.Assignment
	submissions map[uuid.UUID]models.Submission
	saves       int
}

func newFakeAssignmentRepo() *fakeAssignmentRepo {
	return &fakeAssignmentRepo{
		assignments: map[uuid.UUID]models.Assignment{},
		submissions: map[uuid.UUID]models.Submission{},
	}
}

func (r *fakeAssignmentRepo) Create(_ context.Context, a *models.Assignment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a.ID = uuid.New()
	r.assignments[a.ID] = *a
	return nil
}

func (r *fakeAssignmentRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Assignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.assignments[id]
	if !ok {
		return nil, apperrors.NotFound("assignment not found")
	}
	return &a, nil
}

func (r *fakeAssignmentRepo) FindSubmission(_ context.Context, assignmentID, studentID uuid.UUID) (*models.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.submissions {
		if s.AssignmentID == assignmentID && s.StudentID == studentID {
			copied := s
			return &copied, nil
		}
	}
	return nil, apperrors.NotFound("submission not found")
}

func (r *fakeAssignmentRepo) GetSubmission(_ context.Context, id uuid.UUID) (*models.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.submissions[id]
	if !ok {
		return nil, apperrors.NotFound("submission not found")
	}
	return &s, nil
}

func (r *fakeAssignmentRepo) SaveSubmission(_ context.Context, s *models.Submission) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	r.submissions[s.ID] = *s
	r.saves++
	return nil
}

func (r *fakeAssignmentRepo) ListSubmissions(_ context.Context, assignmentID uuid.UUID) ([]models.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Submission
	for _, s := range r.submissions {
		if s.AssignmentID == assignmentID {
			out = append(out, s)
		}
	}
	return out, nil
}

type fakeStorage struct {
	saved map[string][]byte
	err   error
}

func (s *fakeStorage) Save(_ context.Context, folder, name string, data []byte, _ string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	if s.saved == nil {
		s.saved = map[string][]byte{}
	}
	location := folder + "/" + name
	s.saved[location] = data
	return location, nil
}

func (s *fakeStorage) Delete(_ context.Context, location string) error {
	delete(s.saved, location)
	return nil
}

type fakeAnalyzer struct {
	text string
	err  error
}

func (a *fakeAnalyzer) AnalyzeEssay(_ context.Context, text, _ string, _ EssayMode) (Analysis, error) {
	a.text = text
	if a.err != nil {
		return nil, a.err
	}
	return Analysis{"estimated_grade": 88.0}, nil
}

type assignmentFixture struct {
	repo      *fakeAssignmentRepo
	storage   *fakeStorage
	analyzer  *fakeAnalyzer
	publisher *events.RecordingPublisher
	svc       *AssignmentService
	teacher   uuid.UUID
	student   uuid.UUID
}

func newAssignmentFixture(t *testing.T) *assignmentFixture {
	t.Helper()
	f := &assignmentFixture{
		repo:      newFakeAssignmentRepo(),
		storage:   &fakeStorage{},
		analyzer:  &fakeAnalyzer{},
		publisher: events.NewRecordingPublisher(),
		teacher:   uuid.New(),
		student:   uuid.New(),
	}
	f.svc = NewAssignmentService(f.repo, f.storage, f.analyzer, f.publisher, testLogger()).WithClock(newFakeClock().Now)
	return f
}

func (f *assignmentFixture) create(t *testing.T) *models.Assignment {
	t.Helper()
	a, err := f.svc.Create(context.Background(), f.teacher, CreateAssignmentRequest{
		Title:  " Essay on rivers ",
		Rubric: map[string]interface{}{"clarity": 40, "content": 60},
	})
	require.NoError(t, err)
	return a
}

func TestCreateAssignmentDefaults(t *testing.T) {
	f := newAssignmentFixture(t)
	a := f.create(t)

	assert.Equal(t, "Essay on rivers", a.Title)
	assert.Equal(t, "essay", a.AssignmentType)
	assert.Equal(t, 100.0, a.MaxPoints)
	assert.JSONEq(t, `{"clarity":40,"content":60}`, string(a.Rubric))

	_, err := f.svc.Create(context.Background(), f.teacher, CreateAssignmentRequest{})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestSubmitTextWithFeedback(t *testing.T) {
	f := newAssignmentFixture(t)
	a := f.create(t)

	res, err := f.svc.Submit(context.Background(), f.student, a.ID, SubmitAssignmentRequest{Text: "Rivers carve valleys."})
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionSubmitted, res.Submission.Status)
	require.NotNil(t, res.Submission.SubmittedAt)
	assert.Equal(t, 88.0, res.AIFeedback["estimated_grade"])
	assert.Equal(t, "Rivers carve valleys.", f.analyzer.text)

	stored, err := f.repo.GetSubmission(context.Background(), res.Submission.ID)
	require.NoError(t, err)
	assert.JSONEq(t, `{"estimated_grade":88}`, string(stored.AIFeedback))
}

func TestSubmitFileIsStoredAndExtracted(t *testing.T) {
	f := newAssignmentFixture(t)
	a := f.create(t)

	res, err := f.svc.Submit(context.Background(), f.student, a.ID, SubmitAssignmentRequest{
		File: &Upload{Filename: "my essay.txt", ContentType: "text/plain", Data: []byte("Deltas form at river mouths.")},
	})
	require.NoError(t, err)
	want := "submissions/" + a.ID.String() + "/" + f.student.String() + "_my_essay.txt"
	assert.Equal(t, want, res.Submission.FilePath)
	assert.Contains(t, f.storage.saved, want)
	assert.Equal(t, "Deltas form at river mouths.", f.analyzer.text)
}

func TestSubmitRejectsSecondSubmission(t *testing.T) {
	f := newAssignmentFixture(t)
	a := f.create(t)
	ctx := context.Background()

	_, err := f.svc.Submit(ctx, f.student, a.ID, SubmitAssignmentRequest{Text: "first"})
	require.NoError(t, err)
	_, err = f.svc.Submit(ctx, f.student, a.ID, SubmitAssignmentRequest{Text: "second"})
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestSubmitRewritesDraft(t *testing.T) {
	f := newAssignmentFixture(t)
	a := f.create(t)
	draft := models.Submission{AssignmentID: a.ID, StudentID: f.student, Status: models.SubmissionDraft, SubmissionText: "wip"}
	require.NoError(t, f.repo.SaveSubmission(context.Background(), &draft))

	res, err := f.svc.Submit(context.Background(), f.student, a.ID, SubmitAssignmentRequest{Text: "final"})
	require.NoError(t, err)
	assert.Equal(t, draft.ID, res.Submission.ID)
	assert.Equal(t, "final", res.Submission.SubmissionText)
}

func TestSubmitValidation(t *testing.T) {
	f := newAssignmentFixture(t)
	a := f.create(t)
	ctx := context.Background()

	_, err := f.svc.Submit(ctx, f.student, a.ID, SubmitAssignmentRequest{Text: "  "})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = f.svc.Submit(ctx, f.student, a.ID, SubmitAssignmentRequest{File: &Upload{Filename: "virus.exe", Data: []byte("x")}})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = f.svc.Submit(ctx, f.student, uuid.New(), SubmitAssignmentRequest{Text: "x"})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestSubmitSurvivesAnalysisFailure(t *testing.T) {
	f := newAssignmentFixture(t)
	f.analyzer.err = apperrors.Dependency("ai analysis failed", errors.New("timeout"))
	a := f.create(t)

	res, err := f.svc.Submit(context.Background(), f.student, a.ID, SubmitAssignmentRequest{Text: "content"})
	require.NoError(t, err)
	assert.Nil(t, res.AIFeedback)
	assert.Equal(t, models.SubmissionSubmitted, res.Submission.Status)
}

func TestSubmitStorageFailure(t *testing.T) {
	f := newAssignmentFixture(t)
	f.storage.err = errors.New("bucket unavailable")
	a := f.create(t)

	_, err := f.svc.Submit(context.Background(), f.student, a.ID, SubmitAssignmentRequest{
		File: &Upload{Filename: "e.txt", Data: []byte("x")},
	})
	require.Error(t, err)
	assert.Zero(t, f.repo.saves)
}

func TestGradeSubmission(t *testing.T) {
	f := newAssignmentFixture(t)
	a := f.create(t)
	ctx := context.Background()
	res, err := f.svc.Submit(ctx, f.student, a.ID, SubmitAssignmentRequest{Text: "content"})
	require.NoError(t, err)

	grade := 92.0
	graded, err := f.svc.Grade(ctx, Actor{ID: f.teacher, Role: models.RoleTeacher}, res.Submission.ID, GradeSubmissionRequest{Grade: &grade, Feedback: "Well argued"})
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionGraded, graded.Status)
	assert.Equal(t, 92.0, *graded.Grade)
	assert.Equal(t, f.teacher, *graded.GradedBy)

	evs := f.publisher.Events()
	require.Len(t, evs, 1)
	assert.Equal(t, events.SubmissionGraded, evs[0].Type)
	assert.Equal(t, f.student.String(), evs[0].UserID)
}

func TestGradeSubmissionGuards(t *testing.T) {
	f := newAssignmentFixture(t)
	a := f.create(t)
	ctx := context.Background()
	res, err := f.svc.Submit(ctx, f.student, a.ID, SubmitAssignmentRequest{Text: "content"})
	require.NoError(t, err)
	owner := Actor{ID: f.teacher, Role: models.RoleTeacher}

	tooHigh := 101.0
	_, err = f.svc.Grade(ctx, owner, res.Submission.ID, GradeSubmissionRequest{Grade: &tooHigh})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	negative := -1.0
	_, err = f.svc.Grade(ctx, owner, res.Submission.ID, GradeSubmissionRequest{Grade: &negative})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	ok := 50.0
	_, err = f.svc.Grade(ctx, Actor{ID: uuid.New(), Role: models.RoleTeacher}, res.Submission.ID, GradeSubmissionRequest{Grade: &ok})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	draft := models.Submission{AssignmentID: a.ID, StudentID: uuid.New(), Status: models.SubmissionDraft}
	require.NoError(t, f.repo.SaveSubmission(ctx, &draft))
	_, err = f.svc.Grade(ctx, owner, draft.ID, GradeSubmissionRequest{Grade: &ok})
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	assert.Empty(t, f.publisher.Events())
}

func TestListSubmissionsOwnerOnly(t *testing.T) {
	f := newAssignmentFixture(t)
	a := f.create(t)
	ctx := context.Background()
	_, err := f.svc.Submit(ctx, f.student, a.ID, SubmitAssignmentRequest{Text: "content"})
	require.NoError(t, err)

	subs, err := f.svc.ListSubmissions(ctx, Actor{ID: f.teacher, Role: models.RoleTeacher}, a.ID)
	require.NoError(t, err)
	assert.Len(t, subs, 1)

	_, err = f.svc.ListSubmissions(ctx, Actor{ID: uuid.New(), Role: models.RoleTeacher}, a.ID)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}
