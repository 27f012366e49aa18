package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/totegamma/crtv-studio"
	"github.com/totegamma/crtv-studio/client"
	"github.com/totegamma/crtv-studio/internal/config"
	"github.com/totegamma/crtv-studio/internal/domain"
)

var tracer = otel.Tracer("gateway")

const (
	defaultLLMModel   = "meta-llama/Meta-Llama-3.1-8B-Instruct"
	defaultImageModel = "SG161222/RealVisXL_V4.0_Lightning"
	llmMaxTokens      = "256"
	playbackCacheTTL  = 5 * time.Minute
)

// Livepeer wraps the studio REST api (assets, playback) and the AI gateway
// (audio-to-text, llm, text-to-image).
type Livepeer struct {
	api  *client.Client
	ai   *client.Client
	conf config.Livepeer
}

func NewLivepeer(api, ai *client.Client, conf config.Livepeer) *Livepeer {
	return &Livepeer{
		api:  api,
		ai:   ai,
		conf: conf,
	}
}

type livepeerAsset struct {
	ID          string `json:"id"`
	PlaybackID  string `json:"playbackId"`
	PlaybackURL string `json:"playbackUrl"`
	Name        string `json:"name"`
	Status      struct {
		Phase string `json:"phase"`
	} `json:"status"`
}

func (a livepeerAsset) toDomain() domain.VideoAsset {
	return domain.VideoAsset{
		ID:          a.ID,
		PlaybackID:  a.PlaybackID,
		PlaybackURL: a.PlaybackURL,
		Name:        a.Name,
		Phase:       a.Status.Phase,
	}
}

type creatorID struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type webhookContext struct {
	AssetID string `json:"assetId"`
	Address string `json:"address"`
}

type playbackPolicy struct {
	Type           string         `json:"type"`
	WebhookID      string         `json:"webhookId"`
	WebhookContext webhookContext `json:"webhookContext"`
}

type requestUploadBody struct {
	Name    string `json:"name"`
	Storage struct {
		IPFS bool `json:"ipfs"`
	} `json:"storage"`
	CreatorID      creatorID       `json:"creatorId"`
	PlaybackPolicy *playbackPolicy `json:"playbackPolicy,omitempty"`
}

type requestUploadResponse struct {
	URL         string        `json:"url"`
	TusEndpoint string        `json:"tusEndpoint"`
	Asset       livepeerAsset `json:"asset"`
}

func (l *Livepeer) RequestUpload(ctx context.Context, req domain.UploadRequest) (domain.UploadTarget, error) {
	ctx, span := tracer.Start(ctx, "Gateway.Livepeer.RequestUpload")
	defer span.End()

	body := requestUploadBody{
		Name: req.Name,
		CreatorID: creatorID{
			Type:  "unverified",
			Value: req.Creator,
		},
	}
	body.Storage.IPFS = true

	if req.Gated {
		body.PlaybackPolicy = &playbackPolicy{
			Type:      "webhook",
			WebhookID: l.conf.WebhookID,
			WebhookContext: webhookContext{
				AssetID: req.AssetRef,
				Address: req.Creator,
			},
		}
	}

	var res requestUploadResponse
	err := l.api.HttpRequest(ctx, http.MethodPost, "/asset/request-upload", body, &res)
	if err != nil {
		span.RecordError(err)
		return domain.UploadTarget{}, err
	}

	return domain.UploadTarget{
		URL:         res.URL,
		TusEndpoint: res.TusEndpoint,
		Asset:       res.Asset.toDomain(),
	}, nil
}

func (l *Livepeer) UploadFile(ctx context.Context, target domain.UploadTarget, file domain.VideoUpload) error {
	ctx, span := tracer.Start(ctx, "Gateway.Livepeer.UploadFile")
	defer span.End()

	if target.URL == "" {
		return fmt.Errorf("upload target has no url")
	}

	err := l.api.Upload(ctx, http.MethodPut, target.URL, file.ContentType, file.Body, file.Size)
	if err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

func (l *Livepeer) GetAsset(ctx context.Context, assetID string) (domain.VideoAsset, error) {
	ctx, span := tracer.Start(ctx, "Gateway.Livepeer.GetAsset")
	defer span.End()

	var asset livepeerAsset
	err := l.api.HttpRequest(ctx, http.MethodGet, "/asset/"+url.PathEscape(assetID), nil, &asset)
	if err != nil {
		span.RecordError(err)
		return domain.VideoAsset{}, notFoundOr(err, "asset")
	}
	return asset.toDomain(), nil
}

func (l *Livepeer) ListAssets(ctx context.Context) ([]domain.VideoAsset, error) {
	ctx, span := tracer.Start(ctx, "Gateway.Livepeer.ListAssets")
	defer span.End()

	var assets []livepeerAsset
	err := l.api.HttpRequest(ctx, http.MethodGet, "/asset", nil, &assets)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	result := make([]domain.VideoAsset, 0, len(assets))
	for _, asset := range assets {
		result = append(result, asset.toDomain())
	}
	return result, nil
}

func (l *Livepeer) GetPlaybackInfo(ctx context.Context, playbackID string) (domain.PlaybackInfo, error) {
	ctx, span := tracer.Start(ctx, "Gateway.Livepeer.GetPlaybackInfo")
	defer span.End()

	var info domain.PlaybackInfo
	err := l.api.CachedRequest(ctx, "playback:"+playbackID, "/playback/"+url.PathEscape(playbackID), playbackCacheTTL, &info)
	if err != nil {
		span.RecordError(err)
		return domain.PlaybackInfo{}, notFoundOr(err, "playback")
	}
	return info, nil
}

type textToImageRequest struct {
	ModelID string `json:"model_id,omitempty"`
	Prompt  string `json:"prompt"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
}

type textToImageResponse struct {
	Images []struct {
		URL  string `json:"url"`
		Seed int64  `json:"seed"`
		NSFW bool   `json:"nsfw"`
	} `json:"images"`
}

// GenerateImage returns the url of a 16:9 thumbnail generated from prompt.
func (l *Livepeer) GenerateImage(ctx context.Context, prompt string) (string, error) {
	ctx, span := tracer.Start(ctx, "Gateway.Livepeer.GenerateImage")
	defer span.End()

	model := l.conf.ImageModel
	if model == "" {
		model = defaultImageModel
	}

	var res textToImageResponse
	err := l.ai.HttpRequest(ctx, http.MethodPost, "/text-to-image", textToImageRequest{
		ModelID: model,
		Prompt:  prompt,
		Width:   1280,
		Height:  720,
	}, &res)
	if err != nil {
		span.RecordError(err)
		return "", err
	}

	if len(res.Images) == 0 || res.Images[0].URL == "" {
		return "", fmt.Errorf("no image generated")
	}
	return res.Images[0].URL, nil
}

// Transcribe implements the speech backend on /audio-to-text.
func (l *Livepeer) Transcribe(ctx context.Context, input domain.AudioInput) (crtv.TextResponse, error) {
	ctx, span := tracer.Start(ctx, "Gateway.Livepeer.Transcribe")
	defer span.End()

	fields := map[string]string{}
	if l.conf.AudioModel != "" {
		fields["model_id"] = l.conf.AudioModel
	}

	name := input.Name
	if name == "" {
		name = "audio"
	}

	var res crtv.TextResponse
	err := l.ai.Multipart(ctx, "/audio-to-text", fields, []client.File{{
		Field:       "audio",
		Name:        name,
		ContentType: input.ContentType,
		Body:        input.Body,
	}}, &res)
	if err != nil {
		span.RecordError(err)
		return crtv.TextResponse{}, err
	}
	return res, nil
}

type llmResponse struct {
	Response string `json:"response"`
}

// Complete implements the language model on /llm.
func (l *Livepeer) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, span := tracer.Start(ctx, "Gateway.Livepeer.Complete")
	defer span.End()

	model := l.conf.LLMModel
	if model == "" {
		model = defaultLLMModel
	}

	var res llmResponse
	err := l.ai.Multipart(ctx, "/llm", map[string]string{
		"text":       prompt,
		"model_id":   model,
		"max_tokens": llmMaxTokens,
	}, nil, &res)
	if err != nil {
		span.RecordError(err)
		return "", err
	}

	return strings.TrimPrefix(res.Response, "assistant\n\n"), nil
}
