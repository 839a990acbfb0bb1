package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/generative-ai-go/genai"

	"github.com/gyanguru/gyanguru-backend/apperrors"
)

// Analysis is the structured feedback returned by the AI collaborator. Its
// keys depend on the prompt and are passed through to the caller untouched.
type Analysis map[string]interface{}

type EssayMode string

const (
	EssayModeStudent EssayMode = "student"
	EssayModeTeacher EssayMode = "teacher"
	EssayModeParent  EssayMode = "parent"
)

func ParseEssayMode(raw string) (EssayMode, error) {
	switch EssayMode(strings.ToLower(strings.TrimSpace(raw))) {
	case "", EssayModeStudent:
		return EssayModeStudent, nil
	case EssayModeTeacher:
		return EssayModeTeacher, nil
	case EssayModeParent:
		return EssayModeParent, nil
	}
	return "", apperrors.Validation("mode", "mode must be student, teacher or parent")
}

type AnalysisService struct {
	generator Generator
	logger    *slog.Logger
}

// NewAnalysisService accepts a nil generator; every call then fails with a
// dependency error instead of panicking.
func NewAnalysisService(generator Generator, logger *slog.Logger) *AnalysisService {
	return &AnalysisService{generator: generator, logger: logger}
}

func (s *AnalysisService) AnalyzeEssay(ctx context.Context, text, author string, mode EssayMode) (Analysis, error) {
	if strings.TrimSpace(text) == "" {
		return nil, apperrors.Validation("file", "essay has no readable text")
	}
	if author == "" {
		author = "Student"
	}

	var prompt string
	switch mode {
	case EssayModeTeacher:
		prompt = fmt.Sprintf(`As an experienced teacher, analyze this student essay and provide detailed feedback:

%s

Provide:
1. Subject matter accuracy
2. Argument strength
3. Evidence support
4. Writing quality
5. Grade recommendation (A-F)
6. Detailed rubric score
7. Comments for parent communication

Format as JSON with keys: accuracy, argument_strength, evidence, writing_quality, grade, rubric_scores, parent_comments`, text)
	case EssayModeParent:
		prompt = fmt.Sprintf(`Analyze this essay in simple, non-technical language for a parent to understand:

%s

Explain:
1. What the essay is about
2. Strengths demonstrated
3. Areas for improvement
4. Simple grade/level explanation
5. How parents can help

Format as JSON with keys: summary, strengths, improvements, grade_explanation, parent_suggestions`, text)
	default:
		prompt = fmt.Sprintf(`Analyze this essay written by %s and provide constructive feedback:

%s

Please provide:
1. Grammar and spelling corrections
2. Structural improvements
3. Clarity and coherence suggestions
4. Tone analysis
5. Estimated grade/score (out of 100)
6. Specific improvement recommendations

Format as JSON with keys: grammar_errors, structure_feedback, clarity_feedback, tone_analysis, estimated_grade, recommendations`, author, text)
	}

	return s.run(ctx, "essay", Analysis{}, "raw_feedback", genai.Text(prompt))
}

func (s *AnalysisService) ReviewCode(ctx context.Context, code string) (Analysis, error) {
	if strings.TrimSpace(code) == "" {
		return nil, apperrors.Validation("file", "code file is empty")
	}
	prompt := fmt.Sprintf("Analyze this Python code for errors, bugs, and improvements:\n\n```python\n%s\n```\n\n"+
		`Provide:
1. Syntax errors found
2. Logic bugs
3. Performance issues
4. Security concerns
5. Code style improvements
6. Refactoring suggestions
7. Corrected code version
8. Line-by-line explanations for errors

Format as JSON with keys: syntax_errors, logic_bugs, performance_issues, security_concerns, style_improvements, refactoring, corrected_code, explanations`, code)

	return s.run(ctx, "code", Analysis{}, "raw_analysis", genai.Text(prompt))
}

// AnalyzeAudio sends the recording inline; the model transcribes it and
// rates the speech in one pass. MP3 uploads also report their duration.
func (s *AnalysisService) AnalyzeAudio(ctx context.Context, data []byte, mimeType string) (Analysis, error) {
	if len(data) == 0 {
		return nil, apperrors.Validation("file", "audio file is empty")
	}
	prompt := `Transcribe this audio recording, then analyze the speech for communication quality.

Provide:
1. Full transcription
2. Clarity assessment
3. Grammar analysis
4. Pronunciation feedback
5. Communication effectiveness
6. Suggestions for improvement
7. Confidence level

Format as JSON with keys: transcription, clarity, grammar, pronunciation, effectiveness, suggestions, confidence`

	extra := Analysis{}
	if mimeType == "audio/mpeg" {
		duration, err := MP3Duration(bytes.NewReader(data))
		if err != nil {
			s.logger.Warn("Could not read mp3 duration", "error", err)
		} else {
			extra["duration_seconds"] = duration
		}
	}

	return s.run(ctx, "audio", extra, "raw_analysis",
		genai.Text(prompt),
		genai.Blob{MIMEType: mimeType, Data: data},
	)
}

// AnalyzeImage asks the vision model for both the text printed in the image
// and a description of its content. format is "jpeg", "png" or "gif".
func (s *AnalysisService) AnalyzeImage(ctx context.Context, data []byte, format string) (Analysis, error) {
	if len(data) == 0 {
		return nil, apperrors.Validation("file", "image file is empty")
	}
	prompt := `Analyze this image. First extract any text visible in it.

Provide:
1. Extracted text
2. Content description
3. Concepts identified
4. Potential misconceptions
5. Educational value
6. Suggested explanations

Format as JSON with keys: extracted_text, description, concepts, misconceptions, educational_value, explanations`

	return s.run(ctx, "image", Analysis{}, "raw_analysis",
		genai.Text(prompt),
		genai.ImageData(format, data),
	)
}

func (s *AnalysisService) DefineWord(ctx context.Context, word, usage string) (Analysis, error) {
	word = strings.TrimSpace(word)
	if word == "" {
		return nil, apperrors.Validation("word", "word is required")
	}
	contextLine := ""
	if usage != "" {
		contextLine = " Context: " + usage
	}
	prompt := fmt.Sprintf(`Define the word "%s".%s

Provide:
1. Definition
2. Part of speech
3. Pronunciation guide
4. Example usage
5. Synonyms
6. Etymology if interesting

Format as JSON with keys: definition, part_of_speech, pronunciation, examples, synonyms, etymology`, word, contextLine)

	return s.run(ctx, "definition", Analysis{"word": word}, "definition", genai.Text(prompt))
}

func (s *AnalysisService) GenerateLessonPlan(ctx context.Context, topic, level string) (Analysis, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, apperrors.Validation("topic", "topic is required")
	}
	if level == "" {
		level = "beginner"
	}
	prompt := fmt.Sprintf(`Create a detailed lesson plan for teaching "%s" at %s level:

Include:
1. Learning objectives
2. Prerequisites
3. Content outline
4. Examples and use cases
5. Practice problems
6. Assessment methods
7. Resources needed

Format as JSON with keys: objectives, prerequisites, outline, examples, problems, assessment, resources`, topic, level)

	return s.run(ctx, "lesson_plan", Analysis{"topic": topic}, "lesson_plan", genai.Text(prompt))
}

func (s *AnalysisService) SuggestImprovements(ctx context.Context, name string, weak, strong []string) (Analysis, error) {
	prompt := fmt.Sprintf(`Based on %s's learning profile:

Strong concepts: %s
Weak concepts: %s

Provide:
1. Personalized study plan
2. Resources for weak areas
3. Practice problems
4. Motivation tips
5. Learning strategy recommendations

Format as JSON with keys: study_plan, resources, practice_problems, motivation, strategy`,
		name, strings.Join(strong, ", "), strings.Join(weak, ", "))

	return s.run(ctx, "suggestions", Analysis{}, "recommendations", genai.Text(prompt))
}

// run calls the generator and decodes its answer. When the answer is not a
// JSON object the raw text is kept under fallbackKey. Keys in extra are
// added to the result unless the model already set them.
func (s *AnalysisService) run(ctx context.Context, kind string, extra Analysis, fallbackKey string, parts ...genai.Part) (Analysis, error) {
	if s.generator == nil {
		return nil, apperrors.Dependency("ai analysis is not configured", nil)
	}
	text, err := s.generator.Generate(ctx, parts...)
	if err != nil {
		s.logger.Error("AI analysis failed", "kind", kind, "error", err)
		return nil, apperrors.Dependency("ai analysis failed", err)
	}

	result := parseAnalysis(text, fallbackKey)
	for k, v := range extra {
		if _, ok := result[k]; !ok {
			result[k] = v
		}
	}
	return result, nil
}

func parseAnalysis(text, fallbackKey string) Analysis {
	var out Analysis
	if err := json.Unmarshal([]byte(stripCodeFence(text)), &out); err == nil && out != nil {
		return out
	}
	return Analysis{fallbackKey: strings.TrimSpace(text)}
}

// stripCodeFence removes a surrounding ```json ... ``` block.
func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if nl := strings.IndexByte(text, '\n'); nl != -1 {
		text = text[nl+1:]
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}
