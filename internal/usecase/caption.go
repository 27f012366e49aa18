package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"

	"github.com/totegamma/crtv-studio"
	"github.com/totegamma/crtv-studio/internal/domain"
)

var tracer = otel.Tracer("usecase")

const (
	transcriptionFailed = "failed to generate text from audio"
	translationFailed   = "translation failed"
)

type TranslationRequest struct {
	Text   string `json:"text"`
	Source string `json:"source"`
	Target string `json:"target"`
}

type CaptionUsecase struct {
	transcriber Transcriber
	llm         LanguageModel
}

func NewCaptionUsecase(transcriber Transcriber, llm LanguageModel) *CaptionUsecase {
	return &CaptionUsecase{
		transcriber: transcriber,
		llm:         llm,
	}
}

// Transcribe forwards an audio or video blob to the speech backend.
func (uc *CaptionUsecase) Transcribe(ctx context.Context, input domain.AudioInput) (crtv.TextResponse, error) {
	ctx, span := tracer.Start(ctx, "Caption.Transcribe")
	defer span.End()

	contentType := strings.ToLower(strings.TrimSpace(strings.Split(input.ContentType, ";")[0]))
	if !strings.HasPrefix(contentType, "audio/") && !strings.HasPrefix(contentType, "video/") {
		return crtv.TextResponse{}, domain.Invalid("audio", "Invalid file type. Please upload an audio or video file.")
	}
	if input.Body == nil || input.Size == 0 {
		return crtv.TextResponse{}, domain.Invalid("audio", "No audio file provided")
	}

	res, err := uc.transcriber.Transcribe(ctx, input)
	if err != nil {
		span.RecordError(err)
		slog.ErrorContext(
			ctx, "transcription failed",
			slog.String("error", err.Error()),
			slog.String("module", "caption"),
		)
		return crtv.TextResponse{}, domain.Upstream("transcriber", transcriptionFailed, err)
	}
	if strings.TrimSpace(res.Text) == "" {
		return crtv.TextResponse{}, domain.Upstream("transcriber", transcriptionFailed, fmt.Errorf("empty transcription"))
	}

	return res, nil
}

func translationPrompt(text, source, target string) string {
	return fmt.Sprintf(
		"Translate '%s' from %s to %s. Do not include any other words than the exact, grammatically correct translation.",
		text, source, target,
	)
}

// Translate asks the language model for a translation and returns its raw answer.
func (uc *CaptionUsecase) Translate(ctx context.Context, req TranslationRequest) (string, error) {
	ctx, span := tracer.Start(ctx, "Caption.Translate")
	defer span.End()

	if req.Text == "" || req.Source == "" || req.Target == "" {
		return "", domain.Invalid("text", "Missing required fields")
	}

	res, err := uc.llm.Complete(ctx, translationPrompt(req.Text, req.Source, req.Target))
	if err != nil {
		span.RecordError(err)
		slog.ErrorContext(
			ctx, "translation failed",
			slog.String("source", req.Source),
			slog.String("target", req.Target),
			slog.String("error", err.Error()),
			slog.String("module", "caption"),
		)
		return "", domain.Upstream("llm", translationFailed, err)
	}

	return res, nil
}

// TranslateSubtitles adds one entry per target language to subs, translating
// the chunks of source one by one. Timestamps are kept as is.
func (uc *CaptionUsecase) TranslateSubtitles(ctx context.Context, subs crtv.Subtitles, source string, targets []string) (crtv.Subtitles, error) {
	chunks, ok := subs[source]
	if !ok {
		return nil, domain.Invalid("source", "no subtitles for source language")
	}

	out := crtv.Subtitles{}
	for lang, c := range subs {
		out[lang] = c
	}

	for _, target := range targets {
		if target == "" || target == source {
			continue
		}
		translated := make([]crtv.Chunk, 0, len(chunks))
		for _, chunk := range chunks {
			text, err := uc.Translate(ctx, TranslationRequest{Text: chunk.Text, Source: source, Target: target})
			if err != nil {
				return nil, err
			}
			translated = append(translated, crtv.Chunk{
				Text:      strings.TrimSpace(text),
				Timestamp: chunk.Timestamp,
			})
		}
		out[target] = translated
	}

	return out, nil
}
