package usecase

import (
	"context"
	"log/slog"
	"math/big"

	"github.com/totegamma/crtv-studio"
	"github.com/totegamma/crtv-studio/internal/domain"
	"github.com/totegamma/crtv-studio/jwt"
)

// AssetMetadataFinder loads the stored record of an asset.
type AssetMetadataFinder interface {
	FindAssetMetadata(ctx context.Context, assetID string) (crtv.AssetMetadata, error)
}

// PlaybackWebhook is the body the video backend posts before serving a
// playback with a webhook policy.
type PlaybackWebhook struct {
	AccessKey string `json:"accessKey"`
	Context   struct {
		AssetID string `json:"assetId"`
		Address string `json:"address"`
	} `json:"context"`
	Timestamp int64 `json:"timestamp,omitempty"`
}

type TokenGateUsecase struct {
	finder AssetMetadataFinder
	chain  TokenContract
	video  VideoBackend
}

func NewTokenGateUsecase(finder AssetMetadataFinder, chain TokenContract, video VideoBackend) *TokenGateUsecase {
	return &TokenGateUsecase{
		finder: finder,
		chain:  chain,
		video:  video,
	}
}

func deny(reason string) domain.AccessDecision {
	return domain.AccessDecision{Allowed: false, Reason: reason}
}

// Check decides whether viewer may play the asset described by meta.
// Any failure to read the chain denies access.
func (uc *TokenGateUsecase) Check(ctx context.Context, viewer string, meta crtv.AssetMetadata) domain.AccessDecision {
	ctx, span := tracer.Start(ctx, "TokenGate.Check")
	defer span.End()

	if !meta.TokenGated {
		return domain.AccessDecision{Allowed: true, Reason: domain.AccessReasonNotGated}
	}

	tokenID, ok := new(big.Int).SetString(meta.TokenID, 10)
	if !ok || tokenID.Sign() < 0 || !crtv.IsAddress(meta.TokenContractAddress) {
		return deny(domain.AccessReasonMisconfigured)
	}
	if !crtv.IsAddress(viewer) {
		return deny(domain.AccessReasonNoViewer)
	}
	if uc.chain == nil {
		return deny(domain.AccessReasonChainUnavailable)
	}

	balance, err := uc.chain.BalanceOf(ctx, meta.TokenContractAddress, viewer, tokenID)
	if err != nil {
		span.RecordError(err)
		slog.WarnContext(
			ctx, "failed to read token balance",
			slog.String("assetId", meta.AssetID),
			slog.String("tokenId", meta.TokenID),
			slog.String("error", err.Error()),
			slog.String("module", "tokengate"),
		)
		return deny(domain.AccessReasonChainUnavailable)
	}

	if balance == nil || balance.Sign() <= 0 {
		return deny(domain.AccessReasonNoBalance)
	}
	return domain.AccessDecision{Allowed: true, Reason: domain.AccessReasonHoldsToken}
}

func (uc *TokenGateUsecase) CheckAsset(ctx context.Context, viewer, assetID string) (domain.AccessDecision, error) {
	meta, err := uc.finder.FindAssetMetadata(ctx, assetID)
	if err != nil {
		return domain.AccessDecision{}, err
	}
	return uc.Check(ctx, viewer, meta), nil
}

// Playback returns the playback info of an asset once the viewer passed the gate.
func (uc *TokenGateUsecase) Playback(ctx context.Context, viewer, assetID string) (domain.PlaybackInfo, error) {
	meta, err := uc.finder.FindAssetMetadata(ctx, assetID)
	if err != nil {
		return domain.PlaybackInfo{}, err
	}

	decision := uc.Check(ctx, viewer, meta)
	if !decision.Allowed {
		return domain.PlaybackInfo{}, domain.AccessDeniedError{Reason: decision.Reason}
	}

	if uc.video == nil {
		return domain.PlaybackInfo{}, domain.Upstream("video", "playback is not available", nil)
	}
	return uc.video.GetPlaybackInfo(ctx, meta.PlaybackID)
}

// Authorize answers the playback policy webhook. The access key is a wallet
// JWT of the viewer. The webhook context carries either the asset id or the
// token id the asset was registered with.
func (uc *TokenGateUsecase) Authorize(ctx context.Context, hook PlaybackWebhook) domain.AccessDecision {
	if hook.AccessKey == "" {
		return deny(domain.AccessReasonNoViewer)
	}
	_, claims, err := jwt.Validate(hook.AccessKey)
	if err != nil {
		slog.InfoContext(
			ctx, "invalid access key",
			slog.String("error", err.Error()),
			slog.String("module", "tokengate"),
		)
		return deny(domain.AccessReasonNoViewer)
	}

	ref := hook.Context.AssetID
	if ref == "" {
		return deny(domain.AccessReasonMisconfigured)
	}

	if _, ok := new(big.Int).SetString(ref, 10); ok {
		if uc.chain == nil {
			return deny(domain.AccessReasonChainUnavailable)
		}
		return uc.Check(ctx, claims.Issuer, crtv.AssetMetadata{
			AssetID:              ref,
			TokenGated:           true,
			TokenID:              ref,
			TokenContractAddress: uc.chain.Address(),
		})
	}

	meta, err := uc.finder.FindAssetMetadata(ctx, ref)
	if err != nil {
		return deny(domain.AccessReasonMisconfigured)
	}
	return uc.Check(ctx, claims.Issuer, meta)
}
