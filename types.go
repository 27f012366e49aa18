package crtv

import (
	"time"
)

const (
	ModelAssetMetadata            string = "CRTVAssetMetadata"
	ModelVideoTokenMetadata       string = "CRTVVideoTokenMetadata"
	ModelVideoTokenSimpleProperty string = "CRTVVideoTokenSimpleProperty"
	ModelCreatorProfile           string = "CRTVCreatorProfile"
)

// AssetMetadata is the document persisted once per uploaded video.
// AssetID and PlaybackID are assigned by the video backend and never change.
type AssetMetadata struct {
	AssetID              string `json:"assetId" validate:"required"`
	PlaybackID           string `json:"playbackId" validate:"required"`
	CreatorAddress       string `json:"creatorAddress,omitempty" validate:"omitempty,eth_addr"`
	Title                string `json:"title" validate:"required,max=100"`
	Description          string `json:"description" validate:"required,max=1000"`
	Location             string `json:"location,omitempty"`
	Category             string `json:"category,omitempty"`
	TokenGated           bool   `json:"tokenGated,omitempty"`
	TokenID              string `json:"tokenId,omitempty" validate:"omitempty,numeric"`
	TokenContractAddress string `json:"tokenContractAddress,omitempty" validate:"omitempty,eth_addr"`
	ThumbnailURI         string `json:"thumbnailUri,omitempty"`
	SubtitlesURI         string `json:"subtitlesUri,omitempty"`
}

// Subtitles maps a language code to its ordered caption chunks.
type Subtitles map[string][]Chunk

type Chunk struct {
	Text      string    `json:"text"`
	Timestamp []float64 `json:"timestamp"`
}

// TextResponse is the speech-to-text answer forwarded to callers.
type TextResponse struct {
	Text   string  `json:"text"`
	Chunks []Chunk `json:"chunks,omitempty"`
}

type VideoTokenMetadata struct {
	TokenID         string                   `json:"tokenId" validate:"required,numeric"`
	AssetID         string                   `json:"assetId,omitempty"`
	ContractAddress string                   `json:"contractAddress,omitempty" validate:"omitempty,eth_addr"`
	CreatorAddress  string                   `json:"creatorAddress,omitempty" validate:"omitempty,eth_addr"`
	Name            string                   `json:"name" validate:"required"`
	Description     string                   `json:"description"`
	Image           string                   `json:"image,omitempty"`
	Properties      map[string]TokenProperty `json:"properties,omitempty" validate:"-"`
}

// TokenProperty holds one of the three property shapes. Exactly one of
// Simple, Array or Rich is set.
type TokenProperty struct {
	Simple *string
	Array  *ArrayProperty
	Rich   *RichProperty
}

type ArrayProperty struct {
	PropertyID string `json:"propertyId,omitempty"`
	Name       string `json:"name"`
	Value      []any  `json:"value"`
}

type RichProperty struct {
	PropertyID   string            `json:"propertyId,omitempty"`
	Name         string            `json:"name"`
	Value        string            `json:"value"`
	DisplayValue string            `json:"display_value"`
	Class        string            `json:"class"`
	CSS          map[string]string `json:"css,omitempty"`
}

// SimpleProperty is the row stored per simple property key.
type SimpleProperty struct {
	TokenID string `json:"tokenId" validate:"required"`
	Key     string `json:"key" validate:"required"`
	Value   string `json:"value"`
}

type CreatorProfile struct {
	Address   string          `json:"address" validate:"required,eth_addr"`
	DID       string          `json:"did,omitempty" validate:"omitempty,startswith=did:,max=100"`
	Name      string          `json:"name,omitempty"`
	Username  string          `json:"username,omitempty"`
	Email     string          `json:"email,omitempty" validate:"omitempty,email"`
	Bio       string          `json:"bio,omitempty"`
	AvatarURI string          `json:"avatarUri,omitempty"`
	MeToken   *CreatorMeToken `json:"meToken,omitempty"`
}

type CreatorMeToken struct {
	Name            string `json:"name" validate:"required"`
	Symbol          string `json:"symbol" validate:"required"`
	ContractAddress string `json:"contractAddress" validate:"required,eth_addr"`
	CreatorAddress  string `json:"creatorAddress,omitempty" validate:"omitempty,eth_addr"`
}

// Run describes a single write issued against the document store.
type Run struct {
	ID       string        `json:"id"`
	Model    string        `json:"model"`
	Context  string        `json:"context"`
	Op       string        `json:"op"`
	Duration time.Duration `json:"duration"`
}

// Document is a stored row: its stream id plus the raw content.
type Document struct {
	ID         string         `json:"id"`
	Model      string         `json:"model"`
	Context    string         `json:"context"`
	Controller string         `json:"controller,omitempty"`
	Content    map[string]any `json:"content"`
	CreatedAt  time.Time      `json:"createdAt"`
	UpdatedAt  time.Time      `json:"updatedAt"`
}

type Response struct {
	Success  bool   `json:"success"`
	Data     any    `json:"data,omitempty"`
	Body     any    `json:"body,omitempty"`
	Response any    `json:"response,omitempty"`
	Message  string `json:"message,omitempty"`
}

type UploadEvent struct {
	Type      string    `json:"type"`
	SessionID string    `json:"sessionId"`
	Creator   string    `json:"creator"`
	Step      string    `json:"step"`
	AssetID   string    `json:"assetId,omitempty"`
	TokenID   string    `json:"tokenId,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type PaywallLock struct {
	Name              string `json:"name" yaml:"name"`
	Order             int    `json:"order" yaml:"order"`
	Network           int64  `json:"network" yaml:"network"`
	EmailRequired     bool   `json:"emailRequired" yaml:"emailRequired"`
	MaxRecipients     int    `json:"maxRecipients" yaml:"maxRecipients"`
	SkipRecipient     bool   `json:"skipRecipient" yaml:"skipRecipient"`
	RecurringPayments string `json:"recurringPayments,omitempty" yaml:"recurringPayments"`
}

type PaywallConfig struct {
	Title              string                 `json:"title" yaml:"title"`
	Icon               string                 `json:"icon" yaml:"icon"`
	Referrer           string                 `json:"referrer" yaml:"referrer"`
	RedirectURI        string                 `json:"redirectUri" yaml:"redirectUri"`
	MessageToSign      string                 `json:"messageToSign,omitempty" yaml:"messageToSign"`
	Pessimistic        bool                   `json:"pessimistic" yaml:"pessimistic"`
	EndingCallToAction string                 `json:"endingCallToAction,omitempty" yaml:"endingCallToAction"`
	Locks              map[string]PaywallLock `json:"locks" yaml:"locks"`
}
