package usecase

import (
	"context"
	"errors"

	"github.com/totegamma/crtv-studio"
	"github.com/totegamma/crtv-studio/internal/domain"
)

func (uc *StoreUsecase) GetProfile(ctx context.Context, address string) (crtv.CreatorProfile, error) {
	if !crtv.IsAddress(address) {
		return crtv.CreatorProfile{}, domain.Invalid("address", "invalid address")
	}

	doc, err := uc.Select(ctx, crtv.ModelCreatorProfile, map[string]string{"address": crtv.NormalizeAddress(address)})
	if err != nil {
		return crtv.CreatorProfile{}, err
	}

	var profile crtv.CreatorProfile
	err = crtv.FromContent(doc.Content, &profile)
	if err != nil {
		return crtv.CreatorProfile{}, err
	}
	return profile, nil
}

// SaveProfile inserts the profile on first write and replaces it afterwards.
// Only the wallet named by the profile can write it.
func (uc *StoreUsecase) SaveProfile(ctx context.Context, requester string, profile crtv.CreatorProfile) (crtv.CreatorProfile, error) {
	if !crtv.SameAddress(requester, profile.Address) {
		return crtv.CreatorProfile{}, domain.AccessDeniedError{Reason: "profile belongs to another wallet"}
	}

	profile.Address = crtv.NormalizeAddress(profile.Address)
	if profile.MeToken != nil && profile.MeToken.CreatorAddress == "" {
		profile.MeToken.CreatorAddress = profile.Address
	}

	existing, err := uc.Select(ctx, crtv.ModelCreatorProfile, map[string]string{"address": profile.Address})
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return crtv.CreatorProfile{}, err
	}

	if err == nil {
		_, _, err = uc.Replace(ctx, crtv.ModelCreatorProfile, existing.ID, profile)
	} else {
		_, _, err = uc.Insert(ctx, crtv.ModelCreatorProfile, profile.Address, profile)
	}
	if err != nil {
		return crtv.CreatorProfile{}, err
	}

	return profile, nil
}
