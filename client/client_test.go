package client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestHttpRequestSetsHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			t.Errorf("missing bearer token: %q", r.Header.Get("Authorization"))
		}
		if r.Header.Get("User-Agent") != userAgent {
			t.Errorf("unexpected user agent %q", r.Header.Get("User-Agent"))
		}
		body, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(body), `"name":"clip"`) {
			t.Errorf("unexpected body %s", body)
		}
		w.Write([]byte(`{"id":"a1"}`))
	}))
	defer srv.Close()

	c, err := New("test", srv.URL+"/api", "secret")
	if err != nil {
		t.Fatal(err)
	}

	var res struct {
		ID string `json:"id"`
	}
	err = c.HttpRequest(context.Background(), http.MethodPost, "/asset", map[string]string{"name": "clip"}, &res)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if res.ID != "a1" {
		t.Fatalf("unexpected response %+v", res)
	}
}

func TestHttpRequestStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("boom"))
	}))
	defer srv.Close()

	c, _ := New("test", srv.URL, "")
	err := c.HttpRequest(context.Background(), http.MethodGet, "/x", nil, nil)

	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected status error got %v", err)
	}
	if statusErr.Code != http.StatusInternalServerError || statusErr.Body != "boom" {
		t.Fatalf("unexpected status error %+v", statusErr)
	}
}

func TestCachedRequest(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Write([]byte(`{"type":"vod"}`))
	}))
	defer srv.Close()

	c, _ := New("test", srv.URL, "")

	for i := 0; i < 3; i++ {
		var res map[string]string
		if err := c.CachedRequest(context.Background(), "playback:p1", "/playback/p1", time.Minute, &res); err != nil {
			t.Fatalf("request failed: %v", err)
		}
		if res["type"] != "vod" {
			t.Fatalf("unexpected response %v", res)
		}
	}

	if atomic.LoadInt32(&hits) != 1 {
		t.Fatalf("expected one upstream call, got %d", hits)
	}
}

func TestMultipart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse failed: %v", err)
		}
		if r.FormValue("model_id") != "whisper" {
			t.Errorf("unexpected model %q", r.FormValue("model_id"))
		}
		file, header, err := r.FormFile("audio")
		if err != nil {
			t.Errorf("missing file: %v", err)
			return
		}
		defer file.Close()
		if header.Header.Get("Content-Type") != "audio/mpeg" {
			t.Errorf("unexpected content type %q", header.Header.Get("Content-Type"))
		}
		w.Write([]byte(`{"text":"hi"}`))
	}))
	defer srv.Close()

	c, _ := New("test", srv.URL, "")

	var res map[string]string
	err := c.Multipart(context.Background(), "/audio-to-text",
		map[string]string{"model_id": "whisper"},
		[]File{{Field: "audio", Name: "a.mp3", ContentType: "audio/mpeg", Body: strings.NewReader("data")}},
		&res,
	)
	if err != nil {
		t.Fatalf("multipart failed: %v", err)
	}
	if res["text"] != "hi" {
		t.Fatalf("unexpected response %v", res)
	}
}

// stalledReader hands out head bytes, then blocks until started is closed.
type stalledReader struct {
	head    int64
	size    int64
	read    int64
	started <-chan struct{}
}

func (r *stalledReader) Read(p []byte) (int, error) {
	if r.read >= r.size {
		return 0, io.EOF
	}
	if r.read >= r.head {
		select {
		case <-r.started:
		case <-time.After(5 * time.Second):
			return 0, errors.New("request was not sent before the file was consumed")
		}
	}
	n := int64(len(p))
	if remaining := r.size - r.read; n > remaining {
		n = remaining
	}
	r.read += n
	return int(n), nil
}

func TestMultipartStreamsFiles(t *testing.T) {
	const size = 8 << 20
	started := make(chan struct{})

	var received atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		n, _ := io.Copy(io.Discard, r.Body)
		received.Store(n)
		w.Write([]byte(`{"text":"ok"}`))
	}))
	defer srv.Close()

	c, _ := New("test", srv.URL, "")

	body := &stalledReader{head: 1 << 20, size: size, started: started}
	var res map[string]string
	err := c.Multipart(context.Background(), "/audio-to-text", nil,
		[]File{{Field: "audio", Name: "clip.mp4", ContentType: "video/mp4", Body: body}},
		&res,
	)
	if err != nil {
		t.Fatalf("multipart failed: %v", err)
	}
	if res["text"] != "ok" {
		t.Fatalf("unexpected response %v", res)
	}
	if received.Load() < size {
		t.Fatalf("expected at least %d bytes on the wire, got %d", size, received.Load())
	}
}

func TestUploadDoesNotLeakCredentials(t *testing.T) {
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			t.Errorf("credentials must not be sent to upload targets")
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer target.Close()

	c, _ := New("test", "https://livepeer.example.com/api", "secret")
	err := c.Upload(context.Background(), http.MethodPut, target.URL+"/upload/abc", "video/mp4", strings.NewReader("video"), 5)
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}
}
