package domain

const (
	RequesterAddressCtxKey = "crtv-requesterAddress"
	RequesterDIDCtxKey     = "crtv-requesterDID"
)

const (
	RequesterAddressHeader = "crtv-requester-address"
)

// browsers cannot set headers on websocket requests, so the session token
// travels as the subprotocol following this one, or as the token query.
const (
	WebSocketTokenProtocol = "crtv.jwt"
	WebSocketTokenQuery    = "token"
)

const (
	MaxVideoFileSize   int64 = 1 << 30
	MaxTitleLength           = 100
	MaxDescriptionSize       = 1000
)

var AcceptedVideoTypes = []string{
	"video/mp4",
	"video/webm",
	"video/ogg",
	"video/mov",
	"video/quicktime",
	"video/flv",
	"video/avi",
}

const (
	EventUploadStarted    = "upload.started"
	EventInfoSubmitted    = "upload.info"
	EventTokenMinted      = "upload.token_minted"
	EventAssetCreated     = "upload.asset_created"
	EventSubtitlesStored  = "upload.subtitles_stored"
	EventMetadataStored   = "upload.metadata_stored"
	EventTokenUpdated     = "upload.token_updated"
	EventUploadStepBack   = "upload.back"
	EventUploadStepFailed = "upload.failed"
)

const (
	AccessReasonNotGated         = "not_gated"
	AccessReasonHoldsToken       = "holds_token"
	AccessReasonNoBalance        = "no_balance"
	AccessReasonNoViewer         = "no_viewer"
	AccessReasonMisconfigured    = "token_misconfigured"
	AccessReasonChainUnavailable = "chain_unavailable"
)
