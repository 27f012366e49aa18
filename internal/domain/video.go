package domain

import (
	"io"
)

const AssetPhaseFailed = "failed"

// UploadRequest asks the video backend for an upload url.
type UploadRequest struct {
	Name    string
	Creator string
	// Gated attaches the webhook playback policy. AssetRef and Creator are
	// sent back to the webhook as its context.
	Gated    bool
	AssetRef string
}

// UploadTarget is the answer of the video backend to an upload request.
type UploadTarget struct {
	URL         string     `json:"url"`
	TusEndpoint string     `json:"tusEndpoint"`
	Asset       VideoAsset `json:"asset"`
}

// VideoUpload is a video file body to be streamed to an UploadTarget.
type VideoUpload struct {
	VideoFile
	Body io.Reader
}

type PlaybackSource struct {
	HRN  string `json:"hrn"`
	Type string `json:"type"`
	URL  string `json:"url"`
}

type PlaybackInfo struct {
	Type string `json:"type"`
	Meta struct {
		Live           *int             `json:"live,omitempty"`
		PlaybackPolicy map[string]any   `json:"playbackPolicy,omitempty"`
		Source         []PlaybackSource `json:"source"`
	} `json:"meta"`
}

// AudioInput is an audio or video blob to transcribe.
type AudioInput struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// AccessDecision is the outcome of a token gate check.
type AccessDecision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason"`
}
