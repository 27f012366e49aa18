package usecase

import (
	"context"
	"log/slog"
	"maps"
	"time"

	"github.com/pkg/errors"

	"github.com/totegamma/crtv-studio"
	"github.com/totegamma/crtv-studio/internal/config"
	"github.com/totegamma/crtv-studio/internal/domain"
	"github.com/totegamma/crtv-studio/schemas"
)

type SubtitlesStatus string

const (
	SubtitlesNone     SubtitlesStatus = "none"
	SubtitlesResolved SubtitlesStatus = "resolved"
	SubtitlesFailed   SubtitlesStatus = "failed"
)

// SubtitlesResult is the outcome of resolving the subtitlesUri of a record.
type SubtitlesResult struct {
	Status SubtitlesStatus `json:"status"`
	Value  crtv.Subtitles  `json:"value,omitempty"`
	Reason string          `json:"reason,omitempty"`
}

type AssetMetadataView struct {
	crtv.AssetMetadata
	Subtitles SubtitlesResult `json:"subtitles"`
}

// AssetMetadataPatch lists the fields a creator may change after upload.
type AssetMetadataPatch struct {
	Title        *string `json:"title,omitempty"`
	Description  *string `json:"description,omitempty"`
	Location     *string `json:"location,omitempty"`
	Category     *string `json:"category,omitempty"`
	ThumbnailURI *string `json:"thumbnailUri,omitempty"`
}

type StoreUsecase struct {
	repo      DocumentStore
	subtitles SubtitlesFetcher
	orbis     config.Orbis
}

func NewStoreUsecase(repo DocumentStore, subtitles SubtitlesFetcher, orbis config.Orbis) *StoreUsecase {
	return &StoreUsecase{
		repo:      repo,
		subtitles: subtitles,
		orbis:     orbis,
	}
}

func (uc *StoreUsecase) scope(model string) (string, string, error) {
	modelID, contextID := uc.orbis.Scope(model)
	if modelID == "" || contextID == "" {
		return "", "", errors.Wrap(domain.ErrStoreNotConfigured, model)
	}
	return modelID, contextID, nil
}

func (uc *StoreUsecase) logRun(ctx context.Context, run crtv.Run) {
	slog.DebugContext(
		ctx, "document store run",
		slog.String("id", run.ID),
		slog.String("model", run.Model),
		slog.String("context", run.Context),
		slog.String("op", run.Op),
		slog.Duration("duration", run.Duration),
		slog.String("module", "store"),
	)
}

// Insert validates value against the schema of model and stores it.
func (uc *StoreUsecase) Insert(ctx context.Context, model, controller string, value any) (crtv.Document, crtv.Run, error) {
	modelID, contextID, err := uc.scope(model)
	if err != nil {
		return crtv.Document{}, crtv.Run{}, err
	}

	err = schemas.Validate(model, value)
	if err != nil {
		return crtv.Document{}, crtv.Run{}, err
	}

	content, err := crtv.ToContent(value)
	if err != nil {
		return crtv.Document{}, crtv.Run{}, err
	}

	start := time.Now()
	doc, err := uc.repo.Insert(ctx, modelID, contextID, controller, content)
	if err != nil {
		return crtv.Document{}, crtv.Run{}, errors.Wrap(err, "insert failed")
	}

	run := crtv.Run{ID: doc.ID, Model: modelID, Context: contextID, Op: "insert", Duration: time.Since(start)}
	uc.logRun(ctx, run)
	return doc, run, nil
}

// Replace overwrites document docID with value.
func (uc *StoreUsecase) Replace(ctx context.Context, model, docID string, value any) (crtv.Document, crtv.Run, error) {
	modelID, contextID, err := uc.scope(model)
	if err != nil {
		return crtv.Document{}, crtv.Run{}, err
	}
	if docID == "" {
		return crtv.Document{}, crtv.Run{}, domain.Invalid("documentId", "document id is required")
	}

	err = schemas.Validate(model, value)
	if err != nil {
		return crtv.Document{}, crtv.Run{}, err
	}

	content, err := crtv.ToContent(value)
	if err != nil {
		return crtv.Document{}, crtv.Run{}, err
	}

	return uc.replace(ctx, modelID, contextID, docID, content)
}

func (uc *StoreUsecase) replace(ctx context.Context, modelID, contextID, docID string, content map[string]any) (crtv.Document, crtv.Run, error) {
	start := time.Now()
	doc, err := uc.repo.Replace(ctx, docID, content)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return crtv.Document{}, crtv.Run{}, err
		}
		return crtv.Document{}, crtv.Run{}, errors.Wrap(err, "replace failed")
	}

	run := crtv.Run{ID: doc.ID, Model: modelID, Context: contextID, Op: "replace", Duration: time.Since(start)}
	uc.logRun(ctx, run)
	return doc, run, nil
}

// Update merges patch into the stored content of docID. The merged document
// must still satisfy the schema of model.
func (uc *StoreUsecase) Update(ctx context.Context, model, docID string, patch map[string]any) (crtv.Document, crtv.Run, error) {
	modelID, contextID, err := uc.scope(model)
	if err != nil {
		return crtv.Document{}, crtv.Run{}, err
	}
	if docID == "" {
		return crtv.Document{}, crtv.Run{}, domain.Invalid("documentId", "document id is required")
	}
	if len(patch) == 0 {
		return crtv.Document{}, crtv.Run{}, domain.Invalid("value", "patch is empty")
	}

	current, err := uc.repo.Get(ctx, docID)
	if err != nil {
		return crtv.Document{}, crtv.Run{}, err
	}
	if current.Model != modelID || current.Context != contextID {
		return crtv.Document{}, crtv.Run{}, domain.NotFoundError{Resource: model}
	}

	merged := maps.Clone(current.Content)
	if merged == nil {
		merged = map[string]any{}
	}
	maps.Copy(merged, patch)

	value, err := schemas.ValidateContent(model, merged)
	if err != nil {
		return crtv.Document{}, crtv.Run{}, err
	}

	content, err := crtv.ToContent(value)
	if err != nil {
		return crtv.Document{}, crtv.Run{}, err
	}

	doc, run, err := uc.replace(ctx, modelID, contextID, docID, content)
	run.Op = "update"
	return doc, run, err
}

// Select returns the first document of model matching every filter field.
func (uc *StoreUsecase) Select(ctx context.Context, model string, filter map[string]string) (crtv.Document, error) {
	modelID, contextID, err := uc.scope(model)
	if err != nil {
		return crtv.Document{}, err
	}
	if len(filter) == 0 {
		return crtv.Document{}, domain.Invalid("filter", "filter is required")
	}
	for key, value := range filter {
		if value == "" {
			return crtv.Document{}, domain.Invalid(key, "filter value is required")
		}
	}

	return uc.repo.SelectFirst(ctx, modelID, contextID, filter)
}

func (uc *StoreUsecase) findAssetMetadata(ctx context.Context, assetID string) (crtv.Document, crtv.AssetMetadata, error) {
	if assetID == "" {
		return crtv.Document{}, crtv.AssetMetadata{}, domain.Invalid("assetId", "asset id is required")
	}

	doc, err := uc.Select(ctx, crtv.ModelAssetMetadata, map[string]string{"assetId": assetID})
	if err != nil {
		return crtv.Document{}, crtv.AssetMetadata{}, err
	}

	var meta crtv.AssetMetadata
	err = crtv.FromContent(doc.Content, &meta)
	if err != nil {
		return crtv.Document{}, crtv.AssetMetadata{}, err
	}
	return doc, meta, nil
}

// FindAssetMetadata returns the stored record without resolving subtitles.
func (uc *StoreUsecase) FindAssetMetadata(ctx context.Context, assetID string) (crtv.AssetMetadata, error) {
	_, meta, err := uc.findAssetMetadata(ctx, assetID)
	return meta, err
}

// GetAssetMetadata returns the record with its subtitles resolved. A failed
// subtitles lookup is reported in the result, never as an error.
func (uc *StoreUsecase) GetAssetMetadata(ctx context.Context, assetID string) (AssetMetadataView, error) {
	_, meta, err := uc.findAssetMetadata(ctx, assetID)
	if err != nil {
		return AssetMetadataView{}, err
	}

	view := AssetMetadataView{
		AssetMetadata: meta,
		Subtitles:     SubtitlesResult{Status: SubtitlesNone},
	}

	if meta.SubtitlesURI == "" || uc.subtitles == nil {
		return view, nil
	}

	subtitles, err := uc.subtitles.Fetch(ctx, meta.SubtitlesURI)
	if err != nil {
		slog.WarnContext(
			ctx, "failed to resolve subtitles",
			slog.String("assetId", assetID),
			slog.String("uri", meta.SubtitlesURI),
			slog.String("error", err.Error()),
			slog.String("module", "store"),
		)
		view.Subtitles = SubtitlesResult{Status: SubtitlesFailed, Reason: err.Error()}
		return view, nil
	}

	view.Subtitles = SubtitlesResult{Status: SubtitlesResolved, Value: subtitles}
	return view, nil
}

// UpdateAssetMetadata changes descriptive fields on behalf of the creator
// that owns the record.
func (uc *StoreUsecase) UpdateAssetMetadata(ctx context.Context, assetID, requester string, patch AssetMetadataPatch) (crtv.AssetMetadata, error) {
	doc, meta, err := uc.findAssetMetadata(ctx, assetID)
	if err != nil {
		return crtv.AssetMetadata{}, err
	}

	if meta.CreatorAddress == "" || !crtv.SameAddress(meta.CreatorAddress, requester) {
		return crtv.AssetMetadata{}, domain.AccessDeniedError{Reason: "only the creator can edit this asset"}
	}

	if patch.Title != nil {
		meta.Title = *patch.Title
	}
	if patch.Description != nil {
		meta.Description = *patch.Description
	}
	if patch.Location != nil {
		meta.Location = *patch.Location
	}
	if patch.Category != nil {
		meta.Category = *patch.Category
	}
	if patch.ThumbnailURI != nil {
		meta.ThumbnailURI = *patch.ThumbnailURI
	}

	_, _, err = uc.Replace(ctx, crtv.ModelAssetMetadata, doc.ID, meta)
	if err != nil {
		return crtv.AssetMetadata{}, err
	}
	return meta, nil
}
