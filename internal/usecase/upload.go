package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/zeebo/xxh3"

	"github.com/totegamma/crtv-studio"
	"github.com/totegamma/crtv-studio/internal/config"
	"github.com/totegamma/crtv-studio/internal/domain"
)

const maxThumbnailSize = 10 << 20

var thumbnailTypes = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// ThumbnailInput is either an uploaded image or a prompt for the image
// generator. Both empty skips the thumbnail.
type ThumbnailInput struct {
	Image  *ThumbnailImage
	Prompt string
}

type ThumbnailImage struct {
	ContentType string
	Size        int64
	Body        io.Reader
}

type UploadUsecase struct {
	sessions SessionStore
	events   EventPublisher
	store    *StoreUsecase
	captions *CaptionUsecase
	video    VideoBackend
	chain    TokenContract
	blob     BlobStore
	conf     config.Upload
	now      func() time.Time
}

func NewUploadUsecase(
	sessions SessionStore,
	events EventPublisher,
	store *StoreUsecase,
	captions *CaptionUsecase,
	video VideoBackend,
	chain TokenContract,
	blob BlobStore,
	conf config.Upload,
) *UploadUsecase {
	return &UploadUsecase{
		sessions: sessions,
		events:   events,
		store:    store,
		captions: captions,
		video:    video,
		chain:    chain,
		blob:     blob,
		conf:     conf,
		now:      time.Now,
	}
}

func (uc *UploadUsecase) publish(ctx context.Context, s domain.UploadSession, eventType string, cause error) {
	if uc.events == nil {
		return
	}
	event := crtv.UploadEvent{
		Type:      eventType,
		SessionID: s.ID,
		Creator:   s.Creator,
		Step:      string(s.Step),
		TokenID:   s.TokenID,
		Timestamp: uc.now(),
	}
	if s.Asset != nil {
		event.AssetID = s.Asset.ID
	}
	if cause != nil {
		event.Error = cause.Error()
	}
	err := uc.events.PublishUpload(ctx, event)
	if err != nil {
		slog.WarnContext(
			ctx, "failed to publish upload event",
			slog.String("type", eventType),
			slog.String("session", s.ID),
			slog.String("error", err.Error()),
			slog.String("module", "upload"),
		)
	}
}

func (uc *UploadUsecase) save(ctx context.Context, s domain.UploadSession) (domain.UploadSession, error) {
	s.UpdatedAt = uc.now()
	err := uc.sessions.Save(ctx, s)
	if err != nil {
		return s, errors.Wrap(err, "failed to save upload session")
	}
	return s, nil
}

// fail publishes the failure of a step and passes err through.
func (uc *UploadUsecase) fail(ctx context.Context, s domain.UploadSession, err error) error {
	uc.publish(ctx, s, domain.EventUploadStepFailed, err)
	return err
}

// Start opens a new wizard session for creator.
func (uc *UploadUsecase) Start(ctx context.Context, creator string) (domain.UploadSession, error) {
	if !crtv.IsAddress(creator) {
		return domain.UploadSession{}, domain.Invalid("creator", "invalid wallet address")
	}

	s := domain.NewUploadSession(uuid.NewString(), crtv.NormalizeAddress(creator), uc.now())
	s, err := uc.save(ctx, s)
	if err != nil {
		return domain.UploadSession{}, err
	}

	uc.publish(ctx, s, domain.EventUploadStarted, nil)
	return s, nil
}

// Get returns the session id if it belongs to requester.
func (uc *UploadUsecase) Get(ctx context.Context, id, requester string) (domain.UploadSession, error) {
	s, err := uc.sessions.Load(ctx, id)
	if err != nil {
		return domain.UploadSession{}, err
	}
	if !crtv.SameAddress(s.Creator, requester) {
		return domain.UploadSession{}, domain.AccessDeniedError{Reason: "upload belongs to another wallet"}
	}
	return s, nil
}

// SubmitInfo records the form. A gated upload reserves and lazy mints its
// token here, once per session.
func (uc *UploadUsecase) SubmitInfo(ctx context.Context, id, requester string, form domain.AssetForm) (domain.UploadSession, error) {
	ctx, span := tracer.Start(ctx, "Upload.SubmitInfo")
	defer span.End()

	s, err := uc.Get(ctx, id, requester)
	if err != nil {
		return domain.UploadSession{}, err
	}

	next, err := s.SubmitInfo(form)
	if err != nil {
		return s, err
	}

	if next.Gated() {
		tokenID, err := uc.prepareToken(ctx, next)
		if err != nil {
			span.RecordError(err)
			if tokenID != "" && s.TokenID == "" {
				// keep the minted token id so a resubmit does not mint again
				s.TokenID = tokenID
				if _, saveErr := uc.save(ctx, s); saveErr != nil {
					slog.ErrorContext(
						ctx, "failed to keep minted token id on the upload session",
						slog.String("uploadId", s.ID),
						slog.String("tokenId", tokenID),
						slog.String("error", saveErr.Error()),
						slog.String("module", "upload"),
					)
				}
			}
			return s, uc.fail(ctx, s, err)
		}
		next.TokenID = tokenID
	}

	next, err = uc.save(ctx, next)
	if err != nil {
		return s, err
	}

	uc.publish(ctx, next, domain.EventInfoSubmitted, nil)
	return next, nil
}

func (uc *UploadUsecase) tokenKey(tokenID string) string {
	return fmt.Sprintf("tokens/%s/%s", tokenID, tokenID)
}

func (uc *UploadUsecase) putJSON(ctx context.Context, key string, v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return uc.blob.Put(ctx, key, "application/json", bytes.NewReader(b), int64(len(b)))
}

func tokenProperties(s domain.UploadSession) map[string]crtv.TokenProperty {
	props := map[string]crtv.TokenProperty{
		"creatorAddress": crtv.SimpleValue(s.Creator),
	}
	if s.Form.Location != "" {
		props["location"] = crtv.SimpleValue(s.Form.Location)
	}
	if s.Form.Category != "" {
		props["category"] = crtv.SimpleValue(s.Form.Category)
	}
	return props
}

// prepareToken mints the placeholder token of a gated session and returns
// its id. A session that already holds a token id only gets its metadata
// document restored.
func (uc *UploadUsecase) prepareToken(ctx context.Context, s domain.UploadSession) (string, error) {
	if uc.chain == nil || uc.blob == nil {
		return "", domain.Invalid("tokenGated", "token gating is not available")
	}

	placeholder := crtv.VideoTokenMetadata{
		TokenID:         s.TokenID,
		ContractAddress: uc.chain.Address(),
		CreatorAddress:  s.Creator,
		Name:            s.Form.Title,
		Description:     s.Form.Description,
		Properties:      tokenProperties(s),
	}

	if s.TokenID != "" {
		_, _, err := uc.store.GetTokenMetadata(ctx, "", s.TokenID)
		if err == nil {
			return s.TokenID, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return s.TokenID, err
		}
	} else {
		next, err := uc.chain.NextTokenIDToMint(ctx)
		if err != nil {
			return "", domain.Upstream("chain", "failed to read next token id", err)
		}
		placeholder.TokenID = next.String()

		uri, err := uc.putJSON(ctx, uc.tokenKey(placeholder.TokenID), placeholder)
		if err != nil {
			return "", errors.Wrap(err, "failed to store token metadata")
		}
		baseURI := strings.TrimSuffix(uc.blob.PublicURL(uri), placeholder.TokenID)

		tx, err := uc.chain.LazyMint(ctx, big.NewInt(1), baseURI)
		if err != nil {
			return "", domain.Upstream("chain", "failed to mint token", err)
		}

		s.TokenID = placeholder.TokenID
		slog.InfoContext(
			ctx, "token minted",
			slog.String("tokenId", s.TokenID),
			slog.String("tx", tx),
			slog.String("session", s.ID),
			slog.String("module", "upload"),
		)
		uc.publish(ctx, s, domain.EventTokenMinted, nil)
	}

	_, err := uc.store.CreateTokenMetadata(ctx, s.Creator, placeholder)
	if err != nil {
		slog.ErrorContext(
			ctx, "token minted but metadata was not stored",
			slog.String("tokenId", s.TokenID),
			slog.String("session", s.ID),
			slog.String("error", err.Error()),
			slog.String("module", "upload"),
		)
		return s.TokenID, err
	}

	return s.TokenID, nil
}

// SubmitFile streams the video to the backend and, when enabled, stores the
// subtitles generated from it.
func (uc *UploadUsecase) SubmitFile(ctx context.Context, id, requester string, file domain.VideoUpload) (domain.UploadSession, error) {
	ctx, span := tracer.Start(ctx, "Upload.SubmitFile")
	defer span.End()

	s, err := uc.Get(ctx, id, requester)
	if err != nil {
		return domain.UploadSession{}, err
	}
	if err := s.Expect(domain.StepFile); err != nil {
		return s, err
	}
	if err := domain.ValidateVideoFile(file.VideoFile); err != nil {
		return s, err
	}
	if file.Body == nil {
		return s, domain.Invalid("file", "file is empty")
	}

	target, err := uc.video.RequestUpload(ctx, domain.UploadRequest{
		Name:     file.Name,
		Creator:  s.Creator,
		Gated:    s.Gated(),
		AssetRef: s.TokenID,
	})
	if err != nil {
		span.RecordError(err)
		return s, uc.fail(ctx, s, err)
	}

	body := file.Body
	var spool *os.File
	if uc.conf.Transcribe && uc.captions != nil && uc.blob != nil {
		spool, err = os.CreateTemp("", "crtv-upload-*")
		if err != nil {
			return s, errors.Wrap(err, "failed to create spool file")
		}
		defer func() {
			spool.Close()
			os.Remove(spool.Name())
		}()
		body = io.TeeReader(file.Body, spool)
	}

	err = uc.video.UploadFile(ctx, target, domain.VideoUpload{VideoFile: file.VideoFile, Body: body})
	if err != nil {
		span.RecordError(err)
		return s, uc.fail(ctx, s, err)
	}

	progress := s
	progress.Asset = &target.Asset
	uc.publish(ctx, progress, domain.EventAssetCreated, nil)

	subtitlesURI := ""
	if spool != nil {
		subtitlesURI, err = uc.storeSubtitles(ctx, target.Asset, file.VideoFile, spool)
		if err != nil {
			// captions are optional, the upload goes on without them
			slog.WarnContext(
				ctx, "failed to generate subtitles",
				slog.String("assetId", target.Asset.ID),
				slog.String("error", err.Error()),
				slog.String("module", "upload"),
			)
		} else {
			uc.publish(ctx, progress, domain.EventSubtitlesStored, nil)
		}
	}

	next, err := s.SubmitFile(target.Asset, subtitlesURI)
	if err != nil {
		return s, err
	}

	return uc.save(ctx, next)
}

func (uc *UploadUsecase) storeSubtitles(ctx context.Context, asset domain.VideoAsset, file domain.VideoFile, spool *os.File) (string, error) {
	_, err := spool.Seek(0, io.SeekStart)
	if err != nil {
		return "", err
	}

	res, err := uc.captions.Transcribe(ctx, domain.AudioInput{
		Name:        file.Name,
		ContentType: file.ContentType,
		Size:        file.Size,
		Body:        spool,
	})
	if err != nil {
		return "", err
	}

	source := uc.conf.SourceLanguage
	chunks := res.Chunks
	if len(chunks) == 0 {
		chunks = []crtv.Chunk{{Text: res.Text, Timestamp: []float64{0, 0}}}
	}

	subtitles, err := uc.captions.TranslateSubtitles(ctx, crtv.Subtitles{source: chunks}, source, uc.conf.TranslateTo)
	if err != nil {
		return "", err
	}

	return uc.putJSON(ctx, "subtitles/"+asset.ID+".json", subtitles)
}

func (uc *UploadUsecase) storeThumbnail(ctx context.Context, image *ThumbnailImage) (string, error) {
	if uc.blob == nil {
		return "", domain.Invalid("thumbnail", "thumbnail storage is not available")
	}

	contentType := strings.ToLower(strings.TrimSpace(strings.Split(image.ContentType, ";")[0]))
	ext, ok := thumbnailTypes[contentType]
	if !ok {
		return "", domain.Invalid("thumbnail", "unsupported image type")
	}
	if image.Body == nil || image.Size == 0 {
		return "", domain.Invalid("thumbnail", "image is empty")
	}
	if image.Size > maxThumbnailSize {
		return "", domain.Invalid("thumbnail", "image exceeds 10MB")
	}

	b, err := io.ReadAll(io.LimitReader(image.Body, maxThumbnailSize+1))
	if err != nil {
		return "", err
	}
	if len(b) > maxThumbnailSize {
		return "", domain.Invalid("thumbnail", "image exceeds 10MB")
	}

	key := fmt.Sprintf("thumbnails/%016x%s", xxh3.Hash(b), ext)
	return uc.blob.Put(ctx, key, contentType, bytes.NewReader(b), int64(len(b)))
}

// SubmitThumbnail stores the asset record and finishes the wizard. A gated
// upload then receives its final token metadata.
func (uc *UploadUsecase) SubmitThumbnail(ctx context.Context, id, requester string, in ThumbnailInput) (domain.UploadSession, error) {
	ctx, span := tracer.Start(ctx, "Upload.SubmitThumbnail")
	defer span.End()

	s, err := uc.Get(ctx, id, requester)
	if err != nil {
		return domain.UploadSession{}, err
	}
	if err := s.Expect(domain.StepThumbnail); err != nil {
		return s, err
	}
	if s.Form == nil || s.Asset == nil {
		return s, domain.Invalid("session", "session is missing info or asset")
	}

	remote, err := uc.video.GetAsset(ctx, s.Asset.ID)
	if err != nil {
		span.RecordError(err)
		return s, uc.fail(ctx, s, err)
	}
	if remote.Phase == domain.AssetPhaseFailed {
		return s, uc.fail(ctx, s, domain.Invalid("asset", "video processing failed"))
	}

	asset := *s.Asset
	asset.Phase = remote.Phase
	if remote.PlaybackURL != "" {
		asset.PlaybackURL = remote.PlaybackURL
	}

	thumbnailURI := ""
	switch {
	case in.Image != nil:
		thumbnailURI, err = uc.storeThumbnail(ctx, in.Image)
	case strings.TrimSpace(in.Prompt) != "":
		thumbnailURI, err = uc.video.GenerateImage(ctx, in.Prompt)
	}
	if err != nil {
		return s, uc.fail(ctx, s, err)
	}

	opts := BuildOptions{
		ThumbnailURI: thumbnailURI,
		SubtitlesURI: s.SubtitlesURI,
	}
	if s.Gated() && uc.chain != nil {
		opts.TokenID = s.TokenID
		opts.TokenContractAddress = uc.chain.Address()
	}

	meta, err := BuildAssetMetadata(asset, s.Creator, *s.Form, opts)
	if err != nil {
		return s, err
	}

	doc, _, err := uc.store.Insert(ctx, crtv.ModelAssetMetadata, s.Creator, meta)
	if err != nil {
		span.RecordError(err)
		return s, uc.fail(ctx, s, err)
	}

	next, err := s.SubmitThumbnail(thumbnailURI)
	if err != nil {
		return s, err
	}
	next.Asset = &asset
	next.MetadataID = doc.ID

	next, err = uc.save(ctx, next)
	if err != nil {
		return next, err
	}
	uc.publish(ctx, next, domain.EventMetadataStored, nil)

	if next.Gated() && next.TokenID != "" {
		err = uc.finalizeToken(ctx, next, meta)
		if err != nil {
			span.RecordError(err)
			slog.ErrorContext(
				ctx, "asset stored but token metadata was not updated",
				slog.String("tokenId", next.TokenID),
				slog.String("assetId", meta.AssetID),
				slog.String("error", err.Error()),
				slog.String("module", "upload"),
			)
			return next, uc.fail(ctx, next, err)
		}
		uc.publish(ctx, next, domain.EventTokenUpdated, nil)
	}

	return next, nil
}

func (uc *UploadUsecase) publicURL(uri string) string {
	if strings.HasPrefix(uri, "s3://") && uc.blob != nil {
		return uc.blob.PublicURL(uri)
	}
	return uri
}

func (uc *UploadUsecase) finalizeToken(ctx context.Context, s domain.UploadSession, meta crtv.AssetMetadata) error {
	tokenID, ok := new(big.Int).SetString(s.TokenID, 10)
	if !ok {
		return domain.Invalid("tokenId", "invalid token id")
	}

	props := tokenProperties(s)
	props["assetId"] = crtv.SimpleValue(meta.AssetID)
	if s.Asset.PlaybackURL != "" {
		props["playbackUrl"] = crtv.SimpleValue(s.Asset.PlaybackURL)
	}
	if meta.SubtitlesURI != "" {
		props["subtitlesUri"] = crtv.SimpleValue(meta.SubtitlesURI)
	}

	final := crtv.VideoTokenMetadata{
		TokenID:         s.TokenID,
		AssetID:         meta.AssetID,
		ContractAddress: uc.chain.Address(),
		CreatorAddress:  s.Creator,
		Name:            meta.Title,
		Description:     meta.Description,
		Image:           uc.publicURL(meta.ThumbnailURI),
		Properties:      props,
	}

	uri, err := uc.putJSON(ctx, uc.tokenKey(s.TokenID), final)
	if err != nil {
		return errors.Wrap(err, "failed to store token metadata")
	}

	tx, err := uc.chain.SetTokenURI(ctx, tokenID, uc.blob.PublicURL(uri))
	if err != nil {
		return domain.Upstream("chain", "failed to update token uri", err)
	}
	slog.InfoContext(
		ctx, "token uri updated",
		slog.String("tokenId", s.TokenID),
		slog.String("tx", tx),
		slog.String("module", "upload"),
	)

	content, err := crtv.ToContent(final)
	if err != nil {
		return err
	}
	_, err = uc.store.UpdateTokenMetadata(ctx, s.Creator, s.TokenID, content)
	return err
}

// Back moves the session one step backward.
func (uc *UploadUsecase) Back(ctx context.Context, id, requester string) (domain.UploadSession, error) {
	s, err := uc.Get(ctx, id, requester)
	if err != nil {
		return domain.UploadSession{}, err
	}

	next, err := s.Back()
	if err != nil {
		return s, err
	}

	next, err = uc.save(ctx, next)
	if err != nil {
		return s, err
	}

	uc.publish(ctx, next, domain.EventUploadStepBack, nil)
	return next, nil
}
