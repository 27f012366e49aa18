package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/totegamma/crtv-studio/client"
	"github.com/totegamma/crtv-studio/internal/config"
	"github.com/totegamma/crtv-studio/internal/domain"
)

func newTestLivepeer(t *testing.T, handler http.Handler) *Livepeer {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	api, err := client.New("livepeer", srv.URL+"/api", "key")
	if err != nil {
		t.Fatal(err)
	}
	ai, err := client.New("livepeer-ai", srv.URL+"/ai", "key")
	if err != nil {
		t.Fatal(err)
	}
	return NewLivepeer(api, ai, config.Livepeer{WebhookID: "hook-1"})
}

func TestLivepeerRequestUploadGated(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/asset/request-upload", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode failed: %v", err)
		}
		creator := body["creatorId"].(map[string]any)
		if creator["type"] != "unverified" || creator["value"] != "0xabc" {
			t.Errorf("unexpected creator %v", creator)
		}
		storage := body["storage"].(map[string]any)
		if storage["ipfs"] != true {
			t.Errorf("expected ipfs storage")
		}
		policy, ok := body["playbackPolicy"].(map[string]any)
		if !ok || policy["type"] != "webhook" || policy["webhookId"] != "hook-1" {
			t.Errorf("unexpected playback policy %v", body["playbackPolicy"])
		}
		w.Write([]byte(`{"url":"https://up.example/1","tusEndpoint":"https://tus.example","asset":{"id":"a1","playbackId":"p1","status":{"phase":"waiting"}}}`))
	})

	lp := newTestLivepeer(t, mux)
	target, err := lp.RequestUpload(context.Background(), domain.UploadRequest{
		Name:     "clip.mp4",
		Creator:  "0xabc",
		Gated:    true,
		AssetRef: "42",
	})
	if err != nil {
		t.Fatalf("request upload failed: %v", err)
	}
	if target.Asset.ID != "a1" || target.Asset.PlaybackID != "p1" || target.Asset.Phase != "waiting" {
		t.Fatalf("unexpected target %+v", target)
	}
}

func TestLivepeerGetAssetNotFound(t *testing.T) {
	lp := newTestLivepeer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))

	_, err := lp.GetAsset(context.Background(), "missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found got %v", err)
	}
}

func TestLivepeerComplete(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/ai/llm", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse failed: %v", err)
		}
		if r.FormValue("model_id") != defaultLLMModel || r.FormValue("max_tokens") != "256" {
			t.Errorf("unexpected form %v", r.MultipartForm.Value)
		}
		if !strings.HasPrefix(r.FormValue("text"), "Translate 'hello'") {
			t.Errorf("unexpected prompt %q", r.FormValue("text"))
		}
		w.Write([]byte(`{"response":"assistant\n\nhola"}`))
	})

	lp := newTestLivepeer(t, mux)
	out, err := lp.Complete(context.Background(), "Translate 'hello' from en to es.")
	if err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	if out != "hola" {
		t.Fatalf("expected hola got %q", out)
	}
}

func TestLivepeerTranscribe(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/ai/audio-to-text", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse failed: %v", err)
		}
		if _, _, err := r.FormFile("audio"); err != nil {
			t.Errorf("missing audio part: %v", err)
		}
		w.Write([]byte(`{"text":"hello world","chunks":[{"text":"hello world","timestamp":[0,1.5]}]}`))
	})

	lp := newTestLivepeer(t, mux)
	res, err := lp.Transcribe(context.Background(), domain.AudioInput{
		Name:        "a.mp4",
		ContentType: "video/mp4",
		Size:        4,
		Body:        strings.NewReader("data"),
	})
	if err != nil {
		t.Fatalf("transcribe failed: %v", err)
	}
	if res.Text != "hello world" || len(res.Chunks) != 1 || res.Chunks[0].Timestamp[1] != 1.5 {
		t.Fatalf("unexpected response %+v", res)
	}
}

func TestLivepeerGenerateImage(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/ai/text-to-image", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"images":[{"url":"https://img.example/1.png","seed":1,"nsfw":false}]}`))
	})

	lp := newTestLivepeer(t, mux)
	uri, err := lp.GenerateImage(context.Background(), "a cat on stage")
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if uri != "https://img.example/1.png" {
		t.Fatalf("unexpected uri %s", uri)
	}
}
