package domain

import (
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode/utf8"
)

type UploadStep string

const (
	StepInfo      UploadStep = "info"
	StepFile      UploadStep = "file"
	StepThumbnail UploadStep = "thumbnail"
	StepDone      UploadStep = "done"
)

// AssetForm is what the creator types in on the first step.
type AssetForm struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Location    string `json:"location,omitempty"`
	Category    string `json:"category,omitempty"`
	TokenGated  bool   `json:"tokenGated,omitempty"`
}

// VideoAsset is the remote asset record returned by the video backend.
type VideoAsset struct {
	ID          string `json:"id"`
	PlaybackID  string `json:"playbackId"`
	PlaybackURL string `json:"playbackUrl,omitempty"`
	Name        string `json:"name,omitempty"`
	Phase       string `json:"phase,omitempty"`
}

type VideoFile struct {
	Name        string
	ContentType string
	Size        int64
}

type UploadSession struct {
	ID           string      `json:"id"`
	Creator      string      `json:"creator"`
	Step         UploadStep  `json:"step"`
	Form         *AssetForm  `json:"form,omitempty"`
	Asset        *VideoAsset `json:"asset,omitempty"`
	SubtitlesURI string      `json:"subtitlesUri,omitempty"`
	ThumbnailURI string      `json:"thumbnailUri,omitempty"`
	TokenID      string      `json:"tokenId,omitempty"`
	MetadataID   string      `json:"metadataId,omitempty"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
}

func NewUploadSession(id, creator string, now time.Time) UploadSession {
	return UploadSession{
		ID:        id,
		Creator:   creator,
		Step:      StepInfo,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func ValidateAssetForm(form AssetForm) error {
	if strings.TrimSpace(form.Title) == "" {
		return Invalid("title", "title is required")
	}
	if utf8.RuneCountInString(form.Title) > MaxTitleLength {
		return Invalid("title", fmt.Sprintf("title must be at most %d characters", MaxTitleLength))
	}
	if strings.TrimSpace(form.Description) == "" {
		return Invalid("description", "description is required")
	}
	if utf8.RuneCountInString(form.Description) > MaxDescriptionSize {
		return Invalid("description", fmt.Sprintf("description must be at most %d characters", MaxDescriptionSize))
	}
	return nil
}

func ValidateVideoFile(file VideoFile) error {
	contentType := strings.ToLower(strings.TrimSpace(strings.Split(file.ContentType, ";")[0]))
	if !slices.Contains(AcceptedVideoTypes, contentType) {
		return Invalid("file", "unsupported video type")
	}
	if file.Size <= 0 {
		return Invalid("file", "file is empty")
	}
	if file.Size > MaxVideoFileSize {
		return Invalid("file", "file exceeds 1GB")
	}
	return nil
}

// Expect fails unless the session is at step.
func (s UploadSession) Expect(step UploadStep) error {
	if s.Step != step {
		return Invalid("step", fmt.Sprintf("session is at step %s, not %s", s.Step, step))
	}
	return nil
}

// SubmitInfo moves info -> file.
func (s UploadSession) SubmitInfo(form AssetForm) (UploadSession, error) {
	if err := s.Expect(StepInfo); err != nil {
		return s, err
	}
	if err := ValidateAssetForm(form); err != nil {
		return s, err
	}
	next := s
	next.Form = &form
	next.Step = StepFile
	return next, nil
}

// SubmitFile moves file -> thumbnail. The asset must already exist remotely.
func (s UploadSession) SubmitFile(asset VideoAsset, subtitlesURI string) (UploadSession, error) {
	if err := s.Expect(StepFile); err != nil {
		return s, err
	}
	if asset.ID == "" || asset.PlaybackID == "" {
		return s, Invalid("asset", "asset id and playback id are required")
	}
	next := s
	next.Asset = &asset
	next.SubtitlesURI = subtitlesURI
	next.Step = StepThumbnail
	return next, nil
}

// SubmitThumbnail moves thumbnail -> done. An empty uri skips the thumbnail.
func (s UploadSession) SubmitThumbnail(thumbnailURI string) (UploadSession, error) {
	if err := s.Expect(StepThumbnail); err != nil {
		return s, err
	}
	if s.Form == nil || s.Asset == nil {
		return s, Invalid("session", "session is missing info or asset")
	}
	next := s
	next.ThumbnailURI = thumbnailURI
	next.Step = StepDone
	return next, nil
}

// Back returns to the previous step. Data collected on the left step is kept
// so the creator can resubmit it.
func (s UploadSession) Back() (UploadSession, error) {
	next := s
	switch s.Step {
	case StepFile:
		next.Step = StepInfo
	case StepThumbnail:
		next.Step = StepFile
	case StepInfo:
		return s, Invalid("step", "already at the first step")
	default:
		return s, Invalid("step", "upload is already finished")
	}
	return next, nil
}

func (s UploadSession) Gated() bool {
	return s.Form != nil && s.Form.TokenGated
}
