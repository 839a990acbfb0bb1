package controllers

import (
	"context"
	"encoding/base64"
	"net/http"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/gyanguru/gyanguru-backend/apperrors"
	"github.com/gyanguru/gyanguru-backend/services"
	"github.com/gyanguru/gyanguru-backend/utils"
)

type Analyzer interface {
	AnalyzeEssay(ctx context.Context, text, author string, mode services.EssayMode) (services.Analysis, error)
	ReviewCode(ctx context.Context, code string) (services.Analysis, error)
	AnalyzeAudio(ctx context.Context, data []byte, mimeType string) (services.Analysis, error)
	AnalyzeImage(ctx context.Context, data []byte, format string) (services.Analysis, error)
	DefineWord(ctx context.Context, word, usage string) (services.Analysis, error)
	GenerateLessonPlan(ctx context.Context, topic, level string) (services.Analysis, error)
}

type Submitter interface {
	Submit(ctx context.Context, studentID, assignmentID uuid.UUID, req services.SubmitAssignmentRequest) (*services.SubmissionResult, error)
}

var (
	essayExtensions = []string{"pdf", "docx", "txt"}
	codeExtensions  = []string{"py"}
	pdfExtensions   = []string{"pdf"}

	audioTypes = map[string]string{
		".mp3": "audio/mpeg",
		".wav": "audio/wav",
		".m4a": "audio/mp4",
	}
	imageFormats = map[string]string{
		".jpg":  "jpeg",
		".jpeg": "jpeg",
		".png":  "png",
		".gif":  "gif",
	}
)

// UploadController turns uploaded files into AI feedback.
type UploadController struct {
	analyzer    Analyzer
	synthesizer services.Synthesizer
	submissions Submitter
	maxBytes    int64
}

// NewUploadController accepts a nil synthesizer; speech endpoints then
// answer with a dependency error.
func NewUploadController(analyzer Analyzer, synthesizer services.Synthesizer, submissions Submitter, maxBytes int64) *UploadController {
	return &UploadController{
		analyzer:    analyzer,
		synthesizer: synthesizer,
		submissions: submissions,
		maxBytes:    maxBytes,
	}
}

type wordDefinitionInput struct {
	Word    string `json:"word" binding:"required"`
	Context string `json:"context"`
	Speak   bool   `json:"speak"`
	Voice   string `json:"voice"`
}

type ttsInput struct {
	Text         string  `json:"text" binding:"required"`
	Voice        string  `json:"voice"`
	SpeakingRate float64 `json:"speaking_rate" binding:"omitempty,gte=0.25,lte=4"`
}

type lessonPlanInput struct {
	Topic string `json:"topic" binding:"required"`
	Level string `json:"level" binding:"omitempty,oneof=beginner intermediate advanced"`
}

// POST /api/upload/essay, multipart: file (pdf/docx/txt) or text, mode, author.
func (uc *UploadController) AnalyzeEssay(c *gin.Context) {
	mode, err := services.ParseEssayMode(c.PostForm("mode"))
	if err != nil {
		respondError(c, err)
		return
	}

	text := c.PostForm("text")
	filename := ""
	if strings.TrimSpace(text) == "" {
		upload, err := uc.upload(c, essayExtensions)
		if err != nil {
			respondError(c, err)
			return
		}
		inputType, _ := services.InputTypeFromFilename(upload.Filename)
		text, err = services.NormalizeInput(services.InputSource{Type: inputType, Filename: upload.Filename, Data: upload.Data})
		if err != nil {
			respondError(c, err)
			return
		}
		filename = upload.Filename
	}

	analysis, err := uc.analyzer.AnalyzeEssay(c.Request.Context(), text, c.PostForm("author"), mode)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"filename":   filename,
		"mode":       mode,
		"word_count": len(strings.Fields(text)),
		"analysis":   analysis,
	})
}

// POST /api/upload/code, multipart: file (.py) or code.
func (uc *UploadController) ReviewCode(c *gin.Context) {
	code := c.PostForm("code")
	filename := ""
	if strings.TrimSpace(code) == "" {
		upload, err := uc.upload(c, codeExtensions)
		if err != nil {
			respondError(c, err)
			return
		}
		code, err = services.NormalizeInput(services.InputSource{Type: services.InputCode, Filename: upload.Filename, Data: upload.Data})
		if err != nil {
			respondError(c, err)
			return
		}
		filename = upload.Filename
	}

	analysis, err := uc.analyzer.ReviewCode(c.Request.Context(), code)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"filename":   filename,
		"line_count": strings.Count(code, "\n") + 1,
		"analysis":   analysis,
	})
}

func (uc *UploadController) AnalyzeAudio(c *gin.Context) {
	upload, err := uc.upload(c, extensionsOf(audioTypes))
	if err != nil {
		respondError(c, err)
		return
	}
	mimeType := audioTypes[strings.ToLower(filepath.Ext(upload.Filename))]
	analysis, err := uc.analyzer.AnalyzeAudio(c.Request.Context(), upload.Data, mimeType)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"filename": upload.Filename, "analysis": analysis})
}

func (uc *UploadController) AnalyzeImage(c *gin.Context) {
	upload, err := uc.upload(c, extensionsOf(imageFormats))
	if err != nil {
		respondError(c, err)
		return
	}
	format := imageFormats[strings.ToLower(filepath.Ext(upload.Filename))]
	analysis, err := uc.analyzer.AnalyzeImage(c.Request.Context(), upload.Data, format)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"filename": upload.Filename, "analysis": analysis})
}

// POST /api/upload/pdf/read returns the text of every page with its word count.
func (uc *UploadController) ReadPDF(c *gin.Context) {
	upload, err := uc.upload(c, pdfExtensions)
	if err != nil {
		respondError(c, err)
		return
	}
	content, err := services.ExtractPDFContent(upload.Data)
	if err != nil {
		respondError(c, apperrors.Dependency("could not read pdf", err))
		return
	}
	var words int
	for _, p := range content.Pages {
		words += p.WordCount
	}
	c.JSON(http.StatusOK, gin.H{
		"filename":    upload.Filename,
		"total_pages": content.TotalPages,
		"total_words": words,
		"pages":       content.Pages,
	})
}

// POST /api/upload/word-definition. With "speak" set the pronunciation is
// returned as base64 MP3 under "audio_content".
func (uc *UploadController) DefineWord(c *gin.Context) {
	var in wordDefinitionInput
	if !bindJSON(c, &in) {
		return
	}
	definition, err := uc.analyzer.DefineWord(c.Request.Context(), in.Word, in.Context)
	if err != nil {
		respondError(c, err)
		return
	}
	resp := gin.H{"word": strings.TrimSpace(in.Word), "definition": definition}
	if in.Speak {
		audio, err := uc.synthesize(c.Request.Context(), strings.TrimSpace(in.Word), in.Voice, 0)
		if err != nil {
			utils.GetLoggerFromContext(c).Warn("Pronunciation audio unavailable", "word", in.Word, "error", err)
		} else {
			resp["audio_content"] = base64.StdEncoding.EncodeToString(audio)
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (uc *UploadController) TextToSpeech(c *gin.Context) {
	var in ttsInput
	if !bindJSON(c, &in) {
		return
	}
	audio, err := uc.synthesize(c.Request.Context(), in.Text, in.Voice, in.SpeakingRate)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"voice_used":    in.Voice,
		"audio_content": base64.StdEncoding.EncodeToString(audio),
		"message":       "Text converted to speech successfully",
	})
}

func (uc *UploadController) LessonPlan(c *gin.Context) {
	var in lessonPlanInput
	if !bindJSON(c, &in) {
		return
	}
	plan, err := uc.analyzer.GenerateLessonPlan(c.Request.Context(), in.Topic, in.Level)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"lesson_plan": plan})
}

// POST /api/upload/submission/:assignment_id, multipart: file and/or text.
func (uc *UploadController) SubmitAssignment(c *gin.Context) {
	me, ok := actor(c)
	if !ok {
		return
	}
	assignmentID, ok := uuidParam(c, "assignment_id")
	if !ok {
		return
	}
	upload, err := optionalUpload(c, "file", uc.maxBytes)
	if err != nil {
		respondError(c, err)
		return
	}
	result, err := uc.submissions.Submit(c.Request.Context(), me.ID, assignmentID, services.SubmitAssignmentRequest{
		Text: c.PostForm("text"),
		File: upload,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (uc *UploadController) upload(c *gin.Context, allowed []string) (*services.Upload, error) {
	upload, err := readUpload(c, "file", uc.maxBytes)
	if err != nil {
		return nil, err
	}
	if !utils.AllowedExtension(upload.Filename, allowed) {
		return nil, apperrors.Validation("file", "file type not allowed, expected one of: "+strings.Join(allowed, ", "))
	}
	return upload, nil
}

func (uc *UploadController) synthesize(ctx context.Context, text, voice string, rate float64) ([]byte, error) {
	if uc.synthesizer == nil {
		return nil, apperrors.Dependency("text to speech is not configured", nil)
	}
	audio, err := uc.synthesizer.Synthesize(ctx, text, voice, rate)
	if err != nil {
		return nil, apperrors.Dependency("text to speech failed", err)
	}
	return audio, nil
}

func extensionsOf(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for ext := range m {
		out = append(out, strings.TrimPrefix(ext, "."))
	}
	sort.Strings(out)
	return out
}
