package usecase

import (
	"errors"
	"testing"

	"github.com/totegamma/crtv-studio"
	"github.com/totegamma/crtv-studio/internal/domain"
)

func TestBuildAssetMetadata(t *testing.T) {
	asset := domain.VideoAsset{ID: "a1", PlaybackID: "p1"}
	form := domain.AssetForm{Title: "t", Description: "d", Category: "music", TokenGated: true}

	meta, err := BuildAssetMetadata(asset, "0x00000000000000000000000000000000000000aa", form, BuildOptions{
		TokenID:              "5",
		TokenContractAddress: "0x00000000000000000000000000000000000000bb",
		SubtitlesURI:         "s3://crtv/subtitles/a1.json",
	})
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	want := crtv.AssetMetadata{
		AssetID:              "a1",
		PlaybackID:           "p1",
		CreatorAddress:       crtv.NormalizeAddress("0x00000000000000000000000000000000000000aa"),
		Title:                "t",
		Description:          "d",
		Category:             "music",
		TokenGated:           true,
		TokenID:              "5",
		TokenContractAddress: "0x00000000000000000000000000000000000000bb",
		SubtitlesURI:         "s3://crtv/subtitles/a1.json",
	}
	if meta != want {
		t.Fatalf("unexpected metadata:\n got %+v\nwant %+v", meta, want)
	}
}

func TestBuildAssetMetadataOmitsEmptyOptionals(t *testing.T) {
	meta, err := BuildAssetMetadata(domain.VideoAsset{ID: "a1", PlaybackID: "p1"}, "", domain.AssetForm{Title: "t", Description: "d"}, BuildOptions{})
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	content, err := crtv.ToContent(meta)
	if err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"tokenGated", "tokenId", "location", "category", "thumbnailUri", "subtitlesUri", "creatorAddress"} {
		if _, ok := content[key]; ok {
			t.Fatalf("expected %s to be omitted, content %v", key, content)
		}
	}
}

func TestBuildAssetMetadataRefuses(t *testing.T) {
	form := domain.AssetForm{Title: "t", Description: "d"}
	cases := map[string]struct {
		asset domain.VideoAsset
		form  domain.AssetForm
	}{
		"no asset id":    {domain.VideoAsset{PlaybackID: "p"}, form},
		"no playback id": {domain.VideoAsset{ID: "a"}, form},
		"no title":       {domain.VideoAsset{ID: "a", PlaybackID: "p"}, domain.AssetForm{Description: "d"}},
		"no description": {domain.VideoAsset{ID: "a", PlaybackID: "p"}, domain.AssetForm{Title: "t"}},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			meta, err := BuildAssetMetadata(tc.asset, "", tc.form, BuildOptions{})
			if !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("expected validation error got %v", err)
			}
			if meta != (crtv.AssetMetadata{}) {
				t.Fatalf("expected zero record, got %+v", meta)
			}
		})
	}
}
