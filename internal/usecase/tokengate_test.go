package usecase

import (
	"context"
	"encoding/hex"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/totegamma/crtv-studio"
	"github.com/totegamma/crtv-studio/internal/domain"
	"github.com/totegamma/crtv-studio/jwt"
)

type mockFinder struct {
	records map[string]crtv.AssetMetadata
}

func (m *mockFinder) FindAssetMetadata(ctx context.Context, assetID string) (crtv.AssetMetadata, error) {
	meta, ok := m.records[assetID]
	if !ok {
		return crtv.AssetMetadata{}, domain.NotFoundError{Resource: "asset metadata"}
	}
	return meta, nil
}

func gatedMetadata() crtv.AssetMetadata {
	meta := sampleMetadata()
	meta.TokenGated = true
	meta.TokenID = "7"
	meta.TokenContractAddress = contractHex
	return meta
}

func TestTokenGateCheck(t *testing.T) {
	testCases := []struct {
		name    string
		meta    func() crtv.AssetMetadata
		viewer  string
		chain   *mockTokenContract
		allowed bool
		reason  string
	}{
		{
			name:    "not gated",
			meta:    sampleMetadata,
			viewer:  "",
			chain:   &mockTokenContract{},
			allowed: true,
			reason:  domain.AccessReasonNotGated,
		},
		{
			name:    "holds token",
			meta:    gatedMetadata,
			viewer:  viewerAddr,
			chain:   &mockTokenContract{balance: big.NewInt(2)},
			allowed: true,
			reason:  domain.AccessReasonHoldsToken,
		},
		{
			name:   "zero balance",
			meta:   gatedMetadata,
			viewer: viewerAddr,
			chain:  &mockTokenContract{balance: big.NewInt(0)},
			reason: domain.AccessReasonNoBalance,
		},
		{
			name:   "chain error",
			meta:   gatedMetadata,
			viewer: viewerAddr,
			chain:  &mockTokenContract{balanceErr: errors.New("rpc down")},
			reason: domain.AccessReasonChainUnavailable,
		},
		{
			name:   "no viewer",
			meta:   gatedMetadata,
			viewer: "",
			chain:  &mockTokenContract{balance: big.NewInt(1)},
			reason: domain.AccessReasonNoViewer,
		},
		{
			name: "missing token id",
			meta: func() crtv.AssetMetadata {
				m := gatedMetadata()
				m.TokenID = ""
				return m
			},
			viewer: viewerAddr,
			chain:  &mockTokenContract{balance: big.NewInt(1)},
			reason: domain.AccessReasonMisconfigured,
		},
		{
			name: "missing contract",
			meta: func() crtv.AssetMetadata {
				m := gatedMetadata()
				m.TokenContractAddress = ""
				return m
			},
			viewer: viewerAddr,
			chain:  &mockTokenContract{balance: big.NewInt(1)},
			reason: domain.AccessReasonMisconfigured,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			uc := NewTokenGateUsecase(nil, tc.chain, nil)
			decision := uc.Check(context.Background(), tc.viewer, tc.meta())
			if decision.Allowed != tc.allowed || decision.Reason != tc.reason {
				t.Fatalf("expected %v/%s got %+v", tc.allowed, tc.reason, decision)
			}
		})
	}
}

func TestTokenGateCheckReadsBalanceOfViewer(t *testing.T) {
	chain := &mockTokenContract{balance: big.NewInt(1)}
	uc := NewTokenGateUsecase(nil, chain, nil)

	uc.Check(context.Background(), viewerAddr, gatedMetadata())

	if chain.owner != viewerAddr || chain.contract != contractHex || chain.tokenID.Int64() != 7 {
		t.Fatalf("unexpected balanceOf call %s %s %v", chain.owner, chain.contract, chain.tokenID)
	}
}

func TestTokenGatePlayback(t *testing.T) {
	finder := &mockFinder{records: map[string]crtv.AssetMetadata{"a1": gatedMetadata()}}
	video := &mockVideoBackend{}
	video.playback.Type = "vod"

	t.Run("denied before fetching", func(t *testing.T) {
		video.calls = 0
		uc := NewTokenGateUsecase(finder, &mockTokenContract{balance: big.NewInt(0)}, video)

		_, err := uc.Playback(context.Background(), viewerAddr, "a1")
		if !errors.Is(err, domain.ErrAccessDenied) {
			t.Fatalf("expected access denied got %v", err)
		}
		if video.calls != 0 {
			t.Fatalf("playback info must not be fetched")
		}
	})

	t.Run("allowed", func(t *testing.T) {
		video.calls = 0
		uc := NewTokenGateUsecase(finder, &mockTokenContract{balance: big.NewInt(1)}, video)

		info, err := uc.Playback(context.Background(), viewerAddr, "a1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if info.Type != "vod" || video.calls != 1 {
			t.Fatalf("unexpected playback %+v (%d calls)", info, video.calls)
		}
	})

	t.Run("unknown asset", func(t *testing.T) {
		uc := NewTokenGateUsecase(finder, &mockTokenContract{}, video)
		_, err := uc.CheckAsset(context.Background(), viewerAddr, "missing")
		if !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected not found got %v", err)
		}
	})
}

func TestTokenGateAuthorizeWebhook(t *testing.T) {
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	viewer := crypto.PubkeyToAddress(key.PublicKey).Hex()
	accessKey, err := jwt.Create(jwt.Claims{Subject: "playback"}, hex.EncodeToString(crypto.FromECDSA(key)))
	if err != nil {
		t.Fatal(err)
	}

	chain := &mockTokenContract{balance: big.NewInt(1)}
	finder := &mockFinder{records: map[string]crtv.AssetMetadata{"a1": gatedMetadata()}}
	uc := NewTokenGateUsecase(finder, chain, nil)

	var hook PlaybackWebhook
	hook.AccessKey = accessKey
	hook.Context.AssetID = "7"
	hook.Context.Address = creatorAddr

	decision := uc.Authorize(context.Background(), hook)
	if !decision.Allowed {
		t.Fatalf("expected access, got %+v", decision)
	}
	if chain.owner != viewer || chain.tokenID.Int64() != 7 {
		t.Fatalf("expected balance of %s for token 7, got %s %v", viewer, chain.owner, chain.tokenID)
	}

	hook.Context.AssetID = "a1"
	if decision := uc.Authorize(context.Background(), hook); !decision.Allowed {
		t.Fatalf("expected access by asset id, got %+v", decision)
	}

	hook.AccessKey = "garbage"
	if decision := uc.Authorize(context.Background(), hook); decision.Allowed {
		t.Fatalf("invalid access key must be denied")
	}
}
