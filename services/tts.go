package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	texttospeechpb "cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"google.golang.org/api/option"
)

const (
	defaultVoice = "en-US-Neural2-C"
	// Google rejects inputs above 5000 bytes per request.
	maxSynthesisBytes = 4500
)

// Synthesizer reads text aloud and returns MP3 audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voice string, rate float64) ([]byte, error)
}

type GoogleSynthesizer struct {
	client *texttospeech.Client
	logger *slog.Logger
}

func NewGoogleSynthesizer(ctx context.Context, credentialsFile string, logger *slog.Logger) (*GoogleSynthesizer, error) {
	if credentialsFile == "" {
		return nil, errors.New("GOOGLE_CREDENTIALS_JSON is not set")
	}
	client, err := texttospeech.NewClient(ctx, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, err
	}
	return &GoogleSynthesizer{client: client, logger: logger}, nil
}

func (g *GoogleSynthesizer) Synthesize(ctx context.Context, text, voice string, rate float64) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("text is empty")
	}
	if voice == "" {
		voice = defaultVoice
	}
	if rate <= 0 {
		rate = 1.0
	}

	chunks := splitTextToChunksByByte(text, maxSynthesisBytes)
	var allAudio []byte
	for idx, chunk := range chunks {
		g.logger.Debug("Synthesizing chunk", "chunk", idx+1, "total", len(chunks), "bytes", len(chunk))

		req := &texttospeechpb.SynthesizeSpeechRequest{
			Input: &texttospeechpb.SynthesisInput{
				InputSource: &texttospeechpb.SynthesisInput_Text{Text: chunk},
			},
			Voice: &texttospeechpb.VoiceSelectionParams{
				LanguageCode: voiceLanguage(voice),
				Name:         voice,
			},
			AudioConfig: &texttospeechpb.AudioConfig{
				AudioEncoding: texttospeechpb.AudioEncoding_MP3,
				SpeakingRate:  rate,
			},
		}

		resp, err := g.client.SynthesizeSpeech(ctx, req)
		if err != nil {
			return nil, err
		}
		allAudio = append(allAudio, resp.AudioContent...)
	}

	return allAudio, nil
}

func (g *GoogleSynthesizer) Close() error {
	return g.client.Close()
}

// voiceLanguage derives "en-US" from a voice name such as "en-US-Neural2-C".
func voiceLanguage(voice string) string {
	parts := strings.SplitN(voice, "-", 3)
	if len(parts) < 2 {
		return "en-US"
	}
	return parts[0] + "-" + parts[1]
}

// splitTextToChunksByByte cuts text into pieces of at most maxBytes, preferring
// to end each piece after sentence punctuation and never splitting a UTF-8 rune.
func splitTextToChunksByByte(text string, maxBytes int) []string {
	var chunks []string
	remaining := text

	for len(remaining) > 0 {
		if len(remaining) <= maxBytes {
			chunks = append(chunks, remaining)
			break
		}

		cutPos := maxBytes
		for i := cutPos; i > 0; i-- {
			if remaining[i-1] == '.' || remaining[i-1] == '!' || remaining[i-1] == '?' || remaining[i-1] == '\n' {
				cutPos = i
				break
			}
		}

		for cutPos > 0 && cutPos < len(remaining) && (remaining[cutPos]&0xC0) == 0x80 {
			cutPos--
		}
		if cutPos == 0 {
			// a single rune wider than maxBytes
			cutPos = maxBytes
			for cutPos < len(remaining) && (remaining[cutPos]&0xC0) == 0x80 {
				cutPos++
			}
		}

		chunks = append(chunks, remaining[:cutPos])
		remaining = remaining[cutPos:]
	}

	return chunks
}
