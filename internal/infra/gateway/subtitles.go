package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/zeebo/xxh3"

	"github.com/totegamma/crtv-studio"
	"github.com/totegamma/crtv-studio/client"
)

const (
	subtitlesCacheSeconds = 60 * 60
	ipfsGateway           = "https://ipfs.io/ipfs/"
)

type objectReader interface {
	Get(ctx context.Context, uri string) ([]byte, error)
}

// Subtitles resolves subtitles uris. Subtitles documents are write-once, so
// parsed bodies are kept in memcache keyed by the hash of the uri.
type Subtitles struct {
	mc    *memcache.Client
	blob  objectReader
	fetch *client.Client
}

func NewSubtitles(mc *memcache.Client, blob objectReader, fetch *client.Client) *Subtitles {
	return &Subtitles{
		mc:    mc,
		blob:  blob,
		fetch: fetch,
	}
}

func subtitlesKey(uri string) string {
	return "crtv:subtitles:" + strconv.FormatUint(xxh3.HashString(uri), 16)
}

func (s *Subtitles) Fetch(ctx context.Context, uri string) (crtv.Subtitles, error) {
	ctx, span := tracer.Start(ctx, "Gateway.Subtitles.Fetch")
	defer span.End()

	key := subtitlesKey(uri)

	if s.mc != nil {
		item, err := s.mc.Get(key)
		if err == nil {
			var cached crtv.Subtitles
			if err := json.Unmarshal(item.Value, &cached); err == nil {
				return cached, nil
			}
		} else if !errors.Is(err, memcache.ErrCacheMiss) {
			slog.DebugContext(
				ctx, "memcache get failed",
				slog.String("error", err.Error()),
				slog.String("module", "subtitles"),
			)
		}
	}

	body, err := s.download(ctx, uri)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	var subtitles crtv.Subtitles
	err = json.Unmarshal(body, &subtitles)
	if err != nil {
		return nil, fmt.Errorf("invalid subtitles document: %w", err)
	}

	if s.mc != nil {
		err = s.mc.Set(&memcache.Item{Key: key, Value: body, Expiration: subtitlesCacheSeconds})
		if err != nil {
			slog.DebugContext(
				ctx, "memcache set failed",
				slog.String("error", err.Error()),
				slog.String("module", "subtitles"),
			)
		}
	}

	return subtitles, nil
}

func (s *Subtitles) download(ctx context.Context, uri string) ([]byte, error) {
	scheme, host, key, err := crtv.ParseStorageURI(uri)
	if err != nil {
		return nil, err
	}

	switch scheme {
	case "s3":
		if s.blob == nil {
			return nil, fmt.Errorf("blob storage is not configured")
		}
		return s.blob.Get(ctx, uri)
	case "ipfs":
		target := ipfsGateway + host
		if key != "" {
			target += "/" + key
		}
		return s.fetch.Fetch(ctx, target)
	default:
		return s.fetch.Fetch(ctx, uri)
	}
}
