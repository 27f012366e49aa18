package gateway

import (
	"context"
	"io"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"

	"github.com/totegamma/crtv-studio"
	"github.com/totegamma/crtv-studio/internal/config"
	"github.com/totegamma/crtv-studio/internal/domain"
)

// Speech transcribes with Google Cloud Speech-to-Text. One chunk is produced
// per recognition result, spanning its first to last word.
type Speech struct {
	client       *speech.Client
	languageCode string
}

func NewSpeech(ctx context.Context, conf config.Speech) (*Speech, error) {
	client, err := speech.NewClient(ctx)
	if err != nil {
		return nil, err
	}

	lang := conf.LanguageCode
	if lang == "" {
		lang = "en-US"
	}

	return &Speech{
		client:       client,
		languageCode: lang,
	}, nil
}

func (s *Speech) Close() error {
	return s.client.Close()
}

func (s *Speech) Transcribe(ctx context.Context, input domain.AudioInput) (crtv.TextResponse, error) {
	ctx, span := tracer.Start(ctx, "Gateway.Speech.Transcribe")
	defer span.End()

	audio, err := io.ReadAll(input.Body)
	if err != nil {
		return crtv.TextResponse{}, err
	}

	op, err := s.client.LongRunningRecognize(ctx, &speechpb.LongRunningRecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			LanguageCode:               s.languageCode,
			Encoding:                   inferEncoding(input.ContentType),
			EnableAutomaticPunctuation: true,
			EnableWordTimeOffsets:      true,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: audio},
		},
	})
	if err != nil {
		span.RecordError(err)
		return crtv.TextResponse{}, err
	}

	resp, err := op.Wait(ctx)
	if err != nil {
		span.RecordError(err)
		return crtv.TextResponse{}, err
	}

	return toTextResponse(resp.GetResults()), nil
}

func toTextResponse(results []*speechpb.SpeechRecognitionResult) crtv.TextResponse {
	var full strings.Builder
	chunks := []crtv.Chunk{}

	for _, r := range results {
		if len(r.GetAlternatives()) == 0 {
			continue
		}
		alt := r.GetAlternatives()[0]
		text := strings.TrimSpace(alt.GetTranscript())
		if text == "" {
			continue
		}
		if full.Len() > 0 {
			full.WriteString(" ")
		}
		full.WriteString(text)

		words := alt.GetWords()
		if len(words) == 0 {
			continue
		}
		start := words[0].GetStartTime().AsDuration().Seconds()
		end := words[len(words)-1].GetEndTime().AsDuration().Seconds()
		chunks = append(chunks, crtv.Chunk{
			Text:      text,
			Timestamp: []float64{start, end},
		})
	}

	return crtv.TextResponse{
		Text:   full.String(),
		Chunks: chunks,
	}
}

func inferEncoding(mimeType string) speechpb.RecognitionConfig_AudioEncoding {
	m := strings.ToLower(mimeType)
	switch {
	case strings.Contains(m, "wav"):
		return speechpb.RecognitionConfig_LINEAR16
	case strings.Contains(m, "flac"):
		return speechpb.RecognitionConfig_FLAC
	case strings.Contains(m, "mpeg"), strings.Contains(m, "mp3"):
		return speechpb.RecognitionConfig_MP3
	case strings.Contains(m, "ogg"), strings.Contains(m, "opus"):
		return speechpb.RecognitionConfig_OGG_OPUS
	case strings.Contains(m, "webm"):
		return speechpb.RecognitionConfig_WEBM_OPUS
	default:
		return speechpb.RecognitionConfig_ENCODING_UNSPECIFIED
	}
}
