package usecase

import (
	"context"
	"errors"

	"github.com/totegamma/crtv-studio"
	"github.com/totegamma/crtv-studio/internal/domain"
)

// CreateTokenMetadata stores the token document followed by one simple
// property document per property key. The controller becomes the creator
// when the document names none.
func (uc *StoreUsecase) CreateTokenMetadata(ctx context.Context, controller string, meta crtv.VideoTokenMetadata) (crtv.Document, error) {
	if meta.CreatorAddress == "" && crtv.IsAddress(controller) {
		meta.CreatorAddress = crtv.NormalizeAddress(controller)
	}

	doc, _, err := uc.Insert(ctx, crtv.ModelVideoTokenMetadata, controller, meta)
	if err != nil {
		return crtv.Document{}, err
	}

	err = uc.storeSimpleProperties(ctx, controller, meta.TokenID, meta.Properties)
	if err != nil {
		return doc, err
	}

	return doc, nil
}

func (uc *StoreUsecase) storeSimpleProperties(ctx context.Context, controller, tokenID string, properties map[string]crtv.TokenProperty) error {
	for key, prop := range properties {
		row := crtv.SimpleProperty{
			TokenID: tokenID,
			Key:     key,
			Value:   prop.String(),
		}

		existing, err := uc.Select(ctx, crtv.ModelVideoTokenSimpleProperty, map[string]string{"tokenId": tokenID, "key": key})
		switch {
		case err == nil:
			_, _, err = uc.Replace(ctx, crtv.ModelVideoTokenSimpleProperty, existing.ID, row)
		case errors.Is(err, domain.ErrNotFound):
			_, _, err = uc.Insert(ctx, crtv.ModelVideoTokenSimpleProperty, controller, row)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// GetTokenMetadata looks a token document up by asset id, or by token id when
// assetID is empty.
func (uc *StoreUsecase) GetTokenMetadata(ctx context.Context, assetID, tokenID string) (crtv.Document, crtv.VideoTokenMetadata, error) {
	filter := map[string]string{}
	switch {
	case assetID != "":
		filter["assetId"] = assetID
	case tokenID != "":
		filter["tokenId"] = tokenID
	default:
		return crtv.Document{}, crtv.VideoTokenMetadata{}, domain.Invalid("assetId", "asset id or token id is required")
	}

	doc, err := uc.Select(ctx, crtv.ModelVideoTokenMetadata, filter)
	if err != nil {
		return crtv.Document{}, crtv.VideoTokenMetadata{}, err
	}

	var meta crtv.VideoTokenMetadata
	err = crtv.FromContent(doc.Content, &meta)
	if err != nil {
		return crtv.Document{}, crtv.VideoTokenMetadata{}, err
	}
	return doc, meta, nil
}

// UpdateTokenMetadata merges patch into the token document of tokenID and
// refreshes the simple properties it touches. Only the creator may edit.
func (uc *StoreUsecase) UpdateTokenMetadata(ctx context.Context, controller, tokenID string, patch map[string]any) (crtv.VideoTokenMetadata, error) {
	if tokenID == "" {
		return crtv.VideoTokenMetadata{}, domain.Invalid("tokenId", "token id is required")
	}
	delete(patch, "tokenId")
	delete(patch, "creatorAddress")

	current, existing, err := uc.GetTokenMetadata(ctx, "", tokenID)
	if err != nil {
		return crtv.VideoTokenMetadata{}, err
	}
	if existing.CreatorAddress == "" || !crtv.SameAddress(existing.CreatorAddress, controller) {
		return crtv.VideoTokenMetadata{}, domain.AccessDeniedError{Reason: "only the creator can edit this token"}
	}

	doc, _, err := uc.Update(ctx, crtv.ModelVideoTokenMetadata, current.ID, patch)
	if err != nil {
		return crtv.VideoTokenMetadata{}, err
	}

	var meta crtv.VideoTokenMetadata
	err = crtv.FromContent(doc.Content, &meta)
	if err != nil {
		return crtv.VideoTokenMetadata{}, err
	}

	if _, ok := patch["properties"]; ok {
		err = uc.storeSimpleProperties(ctx, controller, meta.TokenID, meta.Properties)
		if err != nil {
			return meta, err
		}
	}

	return meta, nil
}
