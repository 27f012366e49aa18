package service

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/totegamma/crtv-studio"
)

type SignalService struct {
	rdb *redis.Client
}

func NewSignalService(redisClient *redis.Client) *SignalService {
	return &SignalService{
		rdb: redisClient,
	}
}

func UploadChannel(creator string) string {
	return "crtv:uploads:" + crtv.NormalizeAddress(creator)
}

func (s *SignalService) Publish(ctx context.Context, channel string, event any) error {

	jsonstr, err := json.Marshal(event)
	if err != nil {
		return err
	}

	err = s.rdb.Publish(ctx, channel, jsonstr).Err()
	if err != nil {
		return err

	}

	return nil
}

// PublishUpload sends event to the channel of its creator.
func (s *SignalService) PublishUpload(ctx context.Context, event crtv.UploadEvent) error {
	return s.Publish(ctx, UploadChannel(event.Creator), event)
}

// SubscribeUploads streams the upload events of creator until ctx is done.
func (s *SignalService) SubscribeUploads(ctx context.Context, creator string) <-chan crtv.UploadEvent {
	out := make(chan crtv.UploadEvent)
	pubsub := s.rdb.Subscribe(ctx, UploadChannel(creator))

	go func() {
		defer close(out)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var event crtv.UploadEvent
				err := json.Unmarshal([]byte(msg.Payload), &event)
				if err != nil {
					slog.WarnContext(
						ctx, "invalid upload event",
						slog.String("error", err.Error()),
						slog.String("module", "signal"),
					)
					continue
				}
				select {
				case out <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out
}
