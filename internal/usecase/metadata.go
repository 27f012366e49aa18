package usecase

import (
	"strings"

	"github.com/totegamma/crtv-studio"
	"github.com/totegamma/crtv-studio/internal/domain"
)

// BuildOptions carries the optional links of an asset record.
type BuildOptions struct {
	ThumbnailURI         string
	SubtitlesURI         string
	TokenID              string
	TokenContractAddress string
}

// BuildAssetMetadata assembles the record persisted for an uploaded video.
// It never returns a partially filled record.
func BuildAssetMetadata(asset domain.VideoAsset, creator string, form domain.AssetForm, opts BuildOptions) (crtv.AssetMetadata, error) {
	if asset.ID == "" {
		return crtv.AssetMetadata{}, domain.Invalid("assetId", "video asset has no id")
	}
	if asset.PlaybackID == "" {
		return crtv.AssetMetadata{}, domain.Invalid("playbackId", "video asset has no playback id")
	}
	if strings.TrimSpace(form.Title) == "" {
		return crtv.AssetMetadata{}, domain.Invalid("title", "title is required")
	}
	if strings.TrimSpace(form.Description) == "" {
		return crtv.AssetMetadata{}, domain.Invalid("description", "description is required")
	}

	meta := crtv.AssetMetadata{
		AssetID:     asset.ID,
		PlaybackID:  asset.PlaybackID,
		Title:       form.Title,
		Description: form.Description,
	}

	if creator != "" {
		meta.CreatorAddress = crtv.NormalizeAddress(creator)
	}
	if form.Location != "" {
		meta.Location = form.Location
	}
	if form.Category != "" {
		meta.Category = form.Category
	}
	if form.TokenGated {
		meta.TokenGated = true
	}
	if opts.TokenID != "" {
		meta.TokenID = opts.TokenID
	}
	if opts.TokenContractAddress != "" {
		meta.TokenContractAddress = opts.TokenContractAddress
	}
	if opts.ThumbnailURI != "" {
		meta.ThumbnailURI = opts.ThumbnailURI
	}
	if opts.SubtitlesURI != "" {
		meta.SubtitlesURI = opts.SubtitlesURI
	}

	return meta, nil
}
