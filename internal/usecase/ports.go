package usecase

import (
	"context"
	"io"
	"math/big"

	"github.com/totegamma/crtv-studio"
	"github.com/totegamma/crtv-studio/internal/domain"
)

// DocumentStore defines persistence of model scoped documents.
type DocumentStore interface {
	Insert(ctx context.Context, model, contextID, controller string, content map[string]any) (crtv.Document, error)
	Replace(ctx context.Context, id string, content map[string]any) (crtv.Document, error)
	Get(ctx context.Context, id string) (crtv.Document, error)
	SelectFirst(ctx context.Context, model, contextID string, filter map[string]string) (crtv.Document, error)
}

// SessionStore keeps upload wizard sessions between requests.
type SessionStore interface {
	Save(ctx context.Context, session domain.UploadSession) error
	Load(ctx context.Context, id string) (domain.UploadSession, error)
}

// EventPublisher fans upload progress out to listeners.
type EventPublisher interface {
	PublishUpload(ctx context.Context, event crtv.UploadEvent) error
}

// VideoBackend is the hosted transcoding and playback service.
type VideoBackend interface {
	RequestUpload(ctx context.Context, req domain.UploadRequest) (domain.UploadTarget, error)
	UploadFile(ctx context.Context, target domain.UploadTarget, file domain.VideoUpload) error
	GetAsset(ctx context.Context, assetID string) (domain.VideoAsset, error)
	ListAssets(ctx context.Context) ([]domain.VideoAsset, error)
	GetPlaybackInfo(ctx context.Context, playbackID string) (domain.PlaybackInfo, error)
	GenerateImage(ctx context.Context, prompt string) (string, error)
}

// Transcriber turns speech into timestamped text.
type Transcriber interface {
	Transcribe(ctx context.Context, input domain.AudioInput) (crtv.TextResponse, error)
}

// LanguageModel completes a text prompt.
type LanguageModel interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// TokenContract is the ERC1155 contract used for gating.
type TokenContract interface {
	Address() string
	BalanceOf(ctx context.Context, contract, owner string, tokenID *big.Int) (*big.Int, error)
	NextTokenIDToMint(ctx context.Context) (*big.Int, error)
	LazyMint(ctx context.Context, amount *big.Int, baseURI string) (string, error)
	SetTokenURI(ctx context.Context, tokenID *big.Int, uri string) (string, error)
}

// BlobStore holds thumbnails, subtitles and token metadata json.
type BlobStore interface {
	Put(ctx context.Context, key, contentType string, body io.Reader, size int64) (string, error)
	PublicURL(uri string) string
}

// SubtitlesFetcher resolves a subtitles uri into its document.
type SubtitlesFetcher interface {
	Fetch(ctx context.Context, uri string) (crtv.Subtitles, error)
}
