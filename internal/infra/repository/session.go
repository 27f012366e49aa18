package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/totegamma/crtv-studio/internal/domain"
)

const sessionTTL = 24 * time.Hour

type SessionRepository struct {
	rdb *redis.Client
}

func NewSessionRepository(rdb *redis.Client) *SessionRepository {
	return &SessionRepository{rdb: rdb}
}

func sessionKey(id string) string {
	return "crtv:upload:" + id
}

func (r *SessionRepository) Save(ctx context.Context, session domain.UploadSession) error {
	body, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return r.rdb.Set(ctx, sessionKey(session.ID), body, sessionTTL).Err()
}

func (r *SessionRepository) Load(ctx context.Context, id string) (domain.UploadSession, error) {
	body, err := r.rdb.Get(ctx, sessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.UploadSession{}, domain.NotFoundError{Resource: "upload session"}
		}
		return domain.UploadSession{}, err
	}

	var session domain.UploadSession
	err = json.Unmarshal(body, &session)
	if err != nil {
		return domain.UploadSession{}, err
	}
	return session, nil
}
