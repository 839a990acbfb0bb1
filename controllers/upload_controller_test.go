package controllers

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyanguru/gyanguru-backend/apperrors"
	"github.com/gyanguru/gyanguru-backend/models"
	"github.com/gyanguru/gyanguru-backend/services"
)

type stubAnalyzer struct {
	essayText string
	essayMode services.EssayMode
	audioMIME string
	imageFmt  string
	err       error
}

func (s *stubAnalyzer) AnalyzeEssay(_ context.Context, text, _ string, mode services.EssayMode) (services.Analysis, error) {
	s.essayText, s.essayMode = text, mode
	return services.Analysis{"estimated_grade": 78}, s.err
}

func (s *stubAnalyzer) ReviewCode(context.Context, string) (services.Analysis, error) {
	return services.Analysis{"syntax_errors": []string{}}, s.err
}

func (s *stubAnalyzer) AnalyzeAudio(_ context.Context, _ []byte, mimeType string) (services.Analysis, error) {
	s.audioMIME = mimeType
	return services.Analysis{"transcription": "hello"}, s.err
}

func (s *stubAnalyzer) AnalyzeImage(_ context.Context, _ []byte, format string) (services.Analysis, error) {
	s.imageFmt = format
	return services.Analysis{"extracted_text": "E=mc2"}, s.err
}

func (s *stubAnalyzer) DefineWord(_ context.Context, word, _ string) (services.Analysis, error) {
	return services.Analysis{"word": word, "definition": "a greeting"}, s.err
}

func (s *stubAnalyzer) GenerateLessonPlan(_ context.Context, topic, _ string) (services.Analysis, error) {
	return services.Analysis{"topic": topic}, s.err
}

type stubSynthesizer struct{}

func (stubSynthesizer) Synthesize(context.Context, string, string, float64) ([]byte, error) {
	return []byte("ID3"), nil
}

type stubSubmitter struct {
	got services.SubmitAssignmentRequest
}

func (s *stubSubmitter) Submit(_ context.Context, studentID, assignmentID uuid.UUID, req services.SubmitAssignmentRequest) (*services.SubmissionResult, error) {
	s.got = req
	if req.File == nil && strings.TrimSpace(req.Text) == "" {
		return nil, apperrors.Validation("file", "no content provided")
	}
	return &services.SubmissionResult{Submission: &models.Submission{AssignmentID: assignmentID, StudentID: studentID}}, nil
}

func uploadRouter(uc *UploadController) *gin.Engine {
	r := gin.New()
	g := r.Group("/upload", as(uuid.New(), models.RoleStudent))
	g.POST("/essay", uc.AnalyzeEssay)
	g.POST("/code", uc.ReviewCode)
	g.POST("/audio", uc.AnalyzeAudio)
	g.POST("/image", uc.AnalyzeImage)
	g.POST("/word-definition", uc.DefineWord)
	g.POST("/tts", uc.TextToSpeech)
	g.POST("/submission/:assignment_id", uc.SubmitAssignment)
	return r
}

func TestAnalyzeEssay(t *testing.T) {
	analyzer := &stubAnalyzer{}
	r := uploadRouter(NewUploadController(analyzer, nil, &stubSubmitter{}, 1<<20))

	w := doMultipart(t, r, "/upload/essay", map[string]string{"mode": "parent"}, "essay.txt", []byte("Rivers shape valleys.\n\n\n\nThey carry silt."))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.EqualValues(t, 6, body["word_count"])
	assert.Equal(t, services.EssayModeParent, analyzer.essayMode)
	assert.Equal(t, "Rivers shape valleys.\n\nThey carry silt.", analyzer.essayText)

	w = doMultipart(t, r, "/upload/essay", nil, "essay.exe", []byte("MZ"))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doMultipart(t, r, "/upload/essay", map[string]string{"mode": "principal"}, "essay.txt", []byte("text"))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doMultipart(t, r, "/upload/essay", nil, "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUploadSizeLimit(t *testing.T) {
	r := uploadRouter(NewUploadController(&stubAnalyzer{}, nil, &stubSubmitter{}, 8))
	w := doMultipart(t, r, "/upload/code", nil, "main.py", []byte("print('a long line')"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "file is too large", decode(t, w)["error"])
}

func TestMediaUploadsMapFormats(t *testing.T) {
	analyzer := &stubAnalyzer{}
	r := uploadRouter(NewUploadController(analyzer, nil, &stubSubmitter{}, 1<<20))

	w := doMultipart(t, r, "/upload/audio", nil, "speech.MP3", []byte{0xff, 0xfb})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "audio/mpeg", analyzer.audioMIME)

	w = doMultipart(t, r, "/upload/image", nil, "board.jpg", []byte{0xff, 0xd8})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "jpeg", analyzer.imageFmt)

	w = doMultipart(t, r, "/upload/image", nil, "board.bmp", []byte("BM"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w)["error"], "gif, jpeg, jpg, png")
}

func TestAnalyzerFailureSurfacesCause(t *testing.T) {
	analyzer := &stubAnalyzer{err: apperrors.Dependency("ai analysis failed", errors.New("quota exceeded"))}
	r := uploadRouter(NewUploadController(analyzer, nil, &stubSubmitter{}, 1<<20))

	w := doMultipart(t, r, "/upload/code", map[string]string{"code": "print(1)"}, "", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "ai analysis failed: quota exceeded", decode(t, w)["error"])
}

func TestSpeechEndpoints(t *testing.T) {
	r := uploadRouter(NewUploadController(&stubAnalyzer{}, nil, &stubSubmitter{}, 1<<20))
	w := doJSON(r, http.MethodPost, "/upload/tts", map[string]string{"text": "hello"})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "text to speech is not configured", decode(t, w)["error"])

	// without a synthesizer the definition is still returned, just silent
	w = doJSON(r, http.MethodPost, "/upload/word-definition", map[string]interface{}{"word": "hello", "speak": true})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, decode(t, w), "audio_content")

	r = uploadRouter(NewUploadController(&stubAnalyzer{}, stubSynthesizer{}, &stubSubmitter{}, 1<<20))
	w = doJSON(r, http.MethodPost, "/upload/word-definition", map[string]interface{}{"word": "hello", "speak": true})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("ID3")), decode(t, w)["audio_content"])
}

func TestSubmitAssignmentForms(t *testing.T) {
	submitter := &stubSubmitter{}
	r := uploadRouter(NewUploadController(&stubAnalyzer{}, nil, submitter, 1<<20))
	assignmentID := uuid.New()

	w := doMultipart(t, r, "/upload/submission/"+assignmentID.String(), map[string]string{"text": "my answer"}, "work.pdf", []byte("%PDF"))
	assert.Equal(t, http.StatusCreated, w.Code)
	require.NotNil(t, submitter.got.File)
	assert.Equal(t, "work.pdf", submitter.got.File.Filename)
	assert.Equal(t, "my answer", submitter.got.Text)

	form := url.Values{"text": {"typed only"}}
	req, _ := http.NewRequest(http.MethodPost, "/upload/submission/"+assignmentID.String(), strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w = serve(r, req)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Nil(t, submitter.got.File)
	assert.Equal(t, "typed only", submitter.got.Text)

	w = doMultipart(t, r, "/upload/submission/"+assignmentID.String(), nil, "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
