package domain

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func validForm() AssetForm {
	return AssetForm{Title: "My video", Description: "about things"}
}

func TestUploadSessionHappyPath(t *testing.T) {
	s := NewUploadSession("s1", "0xabc", time.Now())
	if s.Step != StepInfo {
		t.Fatalf("expected info got %s", s.Step)
	}

	s, err := s.SubmitInfo(validForm())
	if err != nil {
		t.Fatalf("submit info failed: %v", err)
	}
	if s.Step != StepFile || s.Form == nil {
		t.Fatalf("expected file step with form, got %s", s.Step)
	}

	s, err = s.SubmitFile(VideoAsset{ID: "a1", PlaybackID: "p1"}, "s3://bucket/subs.json")
	if err != nil {
		t.Fatalf("submit file failed: %v", err)
	}
	if s.Step != StepThumbnail || s.SubtitlesURI == "" {
		t.Fatalf("unexpected session after file: %+v", s)
	}

	s, err = s.SubmitThumbnail("s3://bucket/thumb.png")
	if err != nil {
		t.Fatalf("submit thumbnail failed: %v", err)
	}
	if s.Step != StepDone {
		t.Fatalf("expected done got %s", s.Step)
	}

	if _, err := s.Back(); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected done to be terminal, got %v", err)
	}
}

func TestUploadSessionSubmitInfoValidation(t *testing.T) {
	cases := map[string]AssetForm{
		"missing title":       {Description: "d"},
		"missing description": {Title: "t"},
		"long title":          {Title: strings.Repeat("a", 101), Description: "d"},
		"long description":    {Title: "t", Description: strings.Repeat("a", 1001)},
	}

	for name, form := range cases {
		t.Run(name, func(t *testing.T) {
			s := NewUploadSession("s1", "0xabc", time.Now())
			next, err := s.SubmitInfo(form)
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("expected validation error got %v", err)
			}
			if next.Step != StepInfo {
				t.Fatalf("step must not advance on error")
			}
		})
	}
}

func TestUploadSessionRejectsOutOfOrder(t *testing.T) {
	s := NewUploadSession("s1", "0xabc", time.Now())
	if _, err := s.SubmitFile(VideoAsset{ID: "a", PlaybackID: "p"}, ""); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected step error got %v", err)
	}
	if _, err := s.SubmitThumbnail(""); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected step error got %v", err)
	}
}

func TestUploadSessionSubmitFileRequiresIdentifiers(t *testing.T) {
	s, _ := NewUploadSession("s1", "0xabc", time.Now()).SubmitInfo(validForm())

	if _, err := s.SubmitFile(VideoAsset{ID: "a1"}, ""); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for missing playback id, got %v", err)
	}
	if _, err := s.SubmitFile(VideoAsset{PlaybackID: "p1"}, ""); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for missing asset id, got %v", err)
	}
}

func TestUploadSessionBack(t *testing.T) {
	s := NewUploadSession("s1", "0xabc", time.Now())
	if _, err := s.Back(); err == nil {
		t.Fatalf("expected error going back from info")
	}

	s, _ = s.SubmitInfo(validForm())
	s, _ = s.SubmitFile(VideoAsset{ID: "a1", PlaybackID: "p1"}, "")

	back, err := s.Back()
	if err != nil {
		t.Fatalf("back failed: %v", err)
	}
	if back.Step != StepFile {
		t.Fatalf("expected file got %s", back.Step)
	}
	if back.Form == nil || back.Form.Title != "My video" {
		t.Fatalf("form must survive going back")
	}

	back, err = back.Back()
	if err != nil {
		t.Fatalf("back failed: %v", err)
	}
	if back.Step != StepInfo {
		t.Fatalf("expected info got %s", back.Step)
	}
}

func TestValidateVideoFile(t *testing.T) {
	ok := []VideoFile{
		{ContentType: "video/mp4", Size: 10},
		{ContentType: "video/webm; codecs=vp9", Size: 10},
		{ContentType: "video/quicktime", Size: MaxVideoFileSize},
	}
	for _, f := range ok {
		if err := ValidateVideoFile(f); err != nil {
			t.Fatalf("expected %s to be accepted: %v", f.ContentType, err)
		}
	}

	bad := []VideoFile{
		{ContentType: "image/png", Size: 10},
		{ContentType: "video/mp4", Size: 0},
		{ContentType: "video/mp4", Size: MaxVideoFileSize + 1},
	}
	for _, f := range bad {
		if err := ValidateVideoFile(f); !errors.Is(err, ErrValidation) {
			t.Fatalf("expected %s/%d to be rejected, got %v", f.ContentType, f.Size, err)
		}
	}
}
