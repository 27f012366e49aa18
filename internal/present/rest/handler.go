package rest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/totegamma/crtv-studio"
	"github.com/totegamma/crtv-studio/internal/config"
	"github.com/totegamma/crtv-studio/internal/domain"
	"github.com/totegamma/crtv-studio/internal/present/rest/middleware"
	"github.com/totegamma/crtv-studio/internal/present/rest/presenter"
	"github.com/totegamma/crtv-studio/internal/service"
	"github.com/totegamma/crtv-studio/internal/usecase"
)

type Handler struct {
	config  config.Config
	caption *usecase.CaptionUsecase
	store   *usecase.StoreUsecase
	gate    *usecase.TokenGateUsecase
	upload  *usecase.UploadUsecase
	video   usecase.VideoBackend
	signal  *service.SignalService
}

func NewHandler(
	config config.Config,
	caption *usecase.CaptionUsecase,
	store *usecase.StoreUsecase,
	gate *usecase.TokenGateUsecase,
	upload *usecase.UploadUsecase,
	video usecase.VideoBackend,
	signal *service.SignalService,
) *Handler {
	return &Handler{
		config:  config,
		caption: caption,
		store:   store,
		gate:    gate,
		upload:  upload,
		video:   video,
		signal:  signal,
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.HTTPErrorHandler = HTTPErrorHandler(e)

	e.POST("/api/livepeer/subtitles/audio-to-text", h.handleAudioToText)
	e.OPTIONS("/api/livepeer/subtitles/audio-to-text", h.handlePreflight)
	e.POST("/api/livepeer/subtitles/translation", h.handleTranslation)
	e.OPTIONS("/api/livepeer/subtitles/translation", h.handlePreflight)
	e.GET("/api/livepeer/assets", h.handleListAssets)
	e.POST("/api/livepeer/token-gate", h.handleTokenGate)

	e.GET("/api/token-metadata", h.handleGetTokenMetadata)
	e.POST("/api/token-metadata", h.handleCreateTokenMetadata, middleware.RequireWallet)
	e.PUT("/api/token-metadata", h.handleUpdateTokenMetadata, middleware.RequireWallet)

	e.GET("/api/assets/:assetId/metadata", h.handleGetAssetMetadata)
	e.PATCH("/api/assets/:assetId/metadata", h.handleUpdateAssetMetadata, middleware.RequireWallet)
	e.GET("/api/assets/:assetId/access", h.handleAccess)
	e.GET("/api/assets/:assetId/playback", h.handlePlayback)

	uploads := e.Group("/api/uploads", middleware.RequireWallet)
	uploads.POST("", h.handleStartUpload)
	uploads.GET("/:id", h.handleGetUpload)
	uploads.POST("/:id/info", h.handleUploadInfo)
	uploads.POST("/:id/file", h.handleUploadFile)
	uploads.POST("/:id/thumbnail", h.handleUploadThumbnail)
	uploads.POST("/:id/back", h.handleUploadBack)

	e.GET("/api/profiles/:address", h.handleGetProfile)
	e.PUT("/api/profiles/:address", h.handleSaveProfile, middleware.RequireWallet)

	e.GET("/api/paywall/config", h.handlePaywallConfig)
	e.GET("/realtime", h.handleRealtime, middleware.RequireWallet)
}

// HTTPErrorHandler answers routing errors in the common response shape.
func HTTPErrorHandler(e *echo.Echo) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		var he *echo.HTTPError
		if errors.As(err, &he) {
			switch he.Code {
			case http.StatusMethodNotAllowed:
				_ = presenter.MethodNotAllowed(c)
				return
			case http.StatusNotFound:
				_ = presenter.NotFound(c, "Not found")
				return
			}
		}
		e.DefaultHTTPErrorHandler(err, c)
	}
}

func (h *Handler) handlePreflight(c echo.Context) error {
	header := c.Response().Header()
	origin := "*"
	if len(h.config.Server.AllowOrigins) > 0 {
		origin = strings.Join(h.config.Server.AllowOrigins, ",")
	}
	header.Set(echo.HeaderAccessControlAllowOrigin, origin)
	header.Set(echo.HeaderAccessControlAllowMethods, "POST, OPTIONS")
	header.Set(echo.HeaderAccessControlAllowHeaders, "Content-Type, Authorization")
	return c.NoContent(http.StatusNoContent)
}

func requester(c echo.Context) string {
	address, _ := middleware.Requester(c.Request().Context())
	return address
}

func (h *Handler) handleAudioToText(c echo.Context) error {
	ctx := c.Request().Context()

	fh, err := c.FormFile("audio")
	if err != nil {
		return presenter.BadRequestMessage(c, "Audio file is required")
	}

	file, err := fh.Open()
	if err != nil {
		return presenter.InternalError(c, err)
	}
	defer file.Close()

	data, err := h.caption.Transcribe(ctx, domain.AudioInput{
		Name:        fh.Filename,
		ContentType: fh.Header.Get(echo.HeaderContentType),
		Size:        fh.Size,
		Body:        file,
	})
	if err != nil {
		return presenter.Error(c, err)
	}

	return presenter.OK(c, data)
}

func (h *Handler) handleTranslation(c echo.Context) error {
	ctx := c.Request().Context()

	var req usecase.TranslationRequest
	err := c.Bind(&req)
	if err != nil {
		return presenter.BadRequest(c, err)
	}

	res, err := h.caption.Translate(ctx, req)
	if err != nil {
		return presenter.Error(c, err)
	}

	return presenter.Raw(c, res)
}

func (h *Handler) handleListAssets(c echo.Context) error {
	ctx := c.Request().Context()

	assets, err := h.video.ListAssets(ctx)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, assets)
}

func (h *Handler) handleTokenGate(c echo.Context) error {
	ctx := c.Request().Context()

	var hook usecase.PlaybackWebhook
	err := c.Bind(&hook)
	if err != nil {
		return presenter.BadRequest(c, err)
	}

	decision := h.gate.Authorize(ctx, hook)
	if !decision.Allowed {
		return presenter.Forbidden(c, decision.Reason)
	}
	return presenter.OK(c, decision)
}

func (h *Handler) handleGetTokenMetadata(c echo.Context) error {
	ctx := c.Request().Context()

	_, meta, err := h.store.GetTokenMetadata(ctx, c.QueryParam("assetId"), c.QueryParam("tokenId"))
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.Body(c, meta)
}

type createTokenMetadataRequest struct {
	TokenMetadata crtv.VideoTokenMetadata `json:"tokenMetadata"`
}

func (h *Handler) handleCreateTokenMetadata(c echo.Context) error {
	ctx := c.Request().Context()

	var req createTokenMetadataRequest
	err := c.Bind(&req)
	if err != nil {
		return presenter.BadRequest(c, err)
	}

	doc, err := h.store.CreateTokenMetadata(ctx, requester(c), req.TokenMetadata)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.Body(c, doc)
}

type updateTokenMetadataRequest struct {
	TokenID       string         `json:"tokenId"`
	TokenMetadata map[string]any `json:"tokenMetadata"`
}

func (h *Handler) handleUpdateTokenMetadata(c echo.Context) error {
	ctx := c.Request().Context()

	var req updateTokenMetadataRequest
	err := c.Bind(&req)
	if err != nil {
		return presenter.BadRequest(c, err)
	}

	meta, err := h.store.UpdateTokenMetadata(ctx, requester(c), req.TokenID, req.TokenMetadata)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.Body(c, meta)
}

func (h *Handler) handleGetAssetMetadata(c echo.Context) error {
	ctx := c.Request().Context()

	view, err := h.store.GetAssetMetadata(ctx, c.Param("assetId"))
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, view)
}

func (h *Handler) handleUpdateAssetMetadata(c echo.Context) error {
	ctx := c.Request().Context()

	var patch usecase.AssetMetadataPatch
	err := c.Bind(&patch)
	if err != nil {
		return presenter.BadRequest(c, err)
	}

	meta, err := h.store.UpdateAssetMetadata(ctx, c.Param("assetId"), requester(c), patch)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, meta)
}

// viewer prefers the wallet session over the viewer query parameter.
func viewer(c echo.Context) string {
	if address := requester(c); address != "" {
		return address
	}
	return c.QueryParam("viewer")
}

func (h *Handler) handleAccess(c echo.Context) error {
	ctx := c.Request().Context()

	decision, err := h.gate.CheckAsset(ctx, viewer(c), c.Param("assetId"))
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, decision)
}

func (h *Handler) handlePlayback(c echo.Context) error {
	ctx := c.Request().Context()

	info, err := h.gate.Playback(ctx, viewer(c), c.Param("assetId"))
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, info)
}

func (h *Handler) handleStartUpload(c echo.Context) error {
	ctx := c.Request().Context()

	session, err := h.upload.Start(ctx, requester(c))
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, session)
}

func (h *Handler) handleGetUpload(c echo.Context) error {
	ctx := c.Request().Context()

	session, err := h.upload.Get(ctx, c.Param("id"), requester(c))
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, session)
}

func (h *Handler) handleUploadInfo(c echo.Context) error {
	ctx := c.Request().Context()

	var form domain.AssetForm
	err := c.Bind(&form)
	if err != nil {
		return presenter.BadRequest(c, err)
	}

	session, err := h.upload.SubmitInfo(ctx, c.Param("id"), requester(c), form)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, session)
}

func (h *Handler) handleUploadFile(c echo.Context) error {
	ctx := c.Request().Context()

	c.Request().Body = http.MaxBytesReader(c.Response(), c.Request().Body, domain.MaxVideoFileSize+(1<<20))

	fh, err := c.FormFile("file")
	if err != nil {
		return presenter.BadRequestMessage(c, "video file is required")
	}

	file, err := fh.Open()
	if err != nil {
		return presenter.InternalError(c, err)
	}
	defer file.Close()

	session, err := h.upload.SubmitFile(ctx, c.Param("id"), requester(c), domain.VideoUpload{
		VideoFile: domain.VideoFile{
			Name:        fh.Filename,
			ContentType: fh.Header.Get(echo.HeaderContentType),
			Size:        fh.Size,
		},
		Body: file,
	})
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, session)
}

func (h *Handler) handleUploadThumbnail(c echo.Context) error {
	ctx := c.Request().Context()

	var in usecase.ThumbnailInput
	in.Prompt = c.FormValue("prompt")

	fh, err := c.FormFile("image")
	if err == nil {
		file, err := fh.Open()
		if err != nil {
			return presenter.InternalError(c, err)
		}
		defer file.Close()

		in.Image = &usecase.ThumbnailImage{
			ContentType: fh.Header.Get(echo.HeaderContentType),
			Size:        fh.Size,
			Body:        file,
		}
	} else if !errors.Is(err, http.ErrMissingFile) && !errors.Is(err, http.ErrNotMultipart) {
		return presenter.BadRequest(c, err)
	}

	session, err := h.upload.SubmitThumbnail(ctx, c.Param("id"), requester(c), in)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, session)
}

func (h *Handler) handleUploadBack(c echo.Context) error {
	ctx := c.Request().Context()

	session, err := h.upload.Back(ctx, c.Param("id"), requester(c))
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, session)
}

func (h *Handler) handleGetProfile(c echo.Context) error {
	ctx := c.Request().Context()

	profile, err := h.store.GetProfile(ctx, c.Param("address"))
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, profile)
}

func (h *Handler) handleSaveProfile(c echo.Context) error {
	ctx := c.Request().Context()

	var profile crtv.CreatorProfile
	err := c.Bind(&profile)
	if err != nil {
		return presenter.BadRequest(c, err)
	}
	if profile.Address == "" {
		profile.Address = c.Param("address")
	}
	if !crtv.SameAddress(profile.Address, c.Param("address")) {
		return presenter.BadRequestMessage(c, "address mismatch")
	}

	saved, err := h.store.SaveProfile(ctx, requester(c), profile)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, saved)
}

func (h *Handler) handlePaywallConfig(c echo.Context) error {
	return presenter.OK(c, h.config.Paywall)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	Subprotocols:    []string{domain.WebSocketTokenProtocol},
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type Request struct {
	Type string `json:"type"`
}

// handleRealtime streams the upload events of the session wallet.
func (h *Handler) handleRealtime(c echo.Context) error {
	creator := requester(c)

	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		slog.Error(
			"Failed to upgrade WebSocket",
			slog.String("error", err.Error()),
			slog.String("module", "socket"),
		)
		return err
	}
	defer func() {
		ws.Close()
	}()

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	output := h.signal.SubscribeUploads(ctx, creator)

	quit := make(chan struct{})

	go func() {
		defer close(quit)
		for {
			var req Request
			err := ws.ReadJSON(&req)
			if err != nil {

				wsErr, ok := err.(*websocket.CloseError)
				if ok {
					if !(wsErr.Code == websocket.CloseNormalClosure || wsErr.Code == websocket.CloseGoingAway) {
						slog.DebugContext(
							ctx, "WebSocket closed",
							slog.String("error", wsErr.Error()),
							slog.String("module", "socket"),
						)
					}
				} else {
					slog.ErrorContext(
						ctx, "Error reading message",
						slog.String("error", err.Error()),
						slog.String("module", "socket"),
					)
				}
				return
			}

			switch req.Type {
			case "h": // heartbeat
				// do nothing
			default:
				slog.InfoContext(
					ctx, fmt.Sprintf("Unknown request type: %s", req.Type),
					slog.String("module", "socket"),
				)
			}
		}
	}()

	for {
		select {
		case <-quit:
			return nil
		case event, ok := <-output:
			if !ok {
				return nil
			}
			err := ws.WriteJSON(event)
			if err != nil {
				slog.ErrorContext(
					ctx, "Error writing message",
					slog.String("error", err.Error()),
					slog.String("module", "socket"),
				)
				return nil
			}
		}
	}
}
