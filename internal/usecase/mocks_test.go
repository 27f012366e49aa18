package usecase

import (
	"context"
	"fmt"
	"io"
	"math/big"
	"sync"
	"time"

	"github.com/totegamma/crtv-studio"
	"github.com/totegamma/crtv-studio/internal/config"
	"github.com/totegamma/crtv-studio/internal/domain"
)

var testOrbis = config.Orbis{
	Models: config.Models{
		AssetMetadata:            "m-asset",
		VideoTokenMetadata:       "m-token",
		VideoTokenSimpleProperty: "m-prop",
		CreatorProfile:           "m-profile",
	},
	Contexts: config.Models{
		AssetMetadata:            "ctx",
		VideoTokenMetadata:       "ctx",
		VideoTokenSimpleProperty: "ctx",
		CreatorProfile:           "ctx",
	},
}

const (
	creatorAddr = "0x00000000000000000000000000000000000000aa"
	viewerAddr  = "0x00000000000000000000000000000000000000cc"
	contractHex = "0x00000000000000000000000000000000000000bb"
)

// --- document store ---

type mockDocumentStore struct {
	mu    sync.Mutex
	docs  []crtv.Document
	seq   int
	calls int
	err   error
}

func (m *mockDocumentStore) Insert(ctx context.Context, model, contextID, controller string, content map[string]any) (crtv.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return crtv.Document{}, m.err
	}
	m.seq++
	doc := crtv.Document{
		ID:         fmt.Sprintf("doc-%d", m.seq),
		Model:      model,
		Context:    contextID,
		Controller: controller,
		Content:    content,
		CreatedAt:  time.Now(),
	}
	m.docs = append(m.docs, doc)
	return doc, nil
}

func (m *mockDocumentStore) Replace(ctx context.Context, id string, content map[string]any) (crtv.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return crtv.Document{}, m.err
	}
	for i, doc := range m.docs {
		if doc.ID == id {
			m.docs[i].Content = content
			return m.docs[i], nil
		}
	}
	return crtv.Document{}, domain.NotFoundError{Resource: "document"}
}

func (m *mockDocumentStore) Get(ctx context.Context, id string) (crtv.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	for _, doc := range m.docs {
		if doc.ID == id {
			return doc, nil
		}
	}
	return crtv.Document{}, domain.NotFoundError{Resource: "document"}
}

func (m *mockDocumentStore) SelectFirst(ctx context.Context, model, contextID string, filter map[string]string) (crtv.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return crtv.Document{}, m.err
	}
outer:
	for _, doc := range m.docs {
		if doc.Model != model || doc.Context != contextID {
			continue
		}
		for key, value := range filter {
			if fmt.Sprint(doc.Content[key]) != value {
				continue outer
			}
		}
		return doc, nil
	}
	return crtv.Document{}, domain.NotFoundError{Resource: model}
}

func (m *mockDocumentStore) byModel(model string) []crtv.Document {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []crtv.Document
	for _, doc := range m.docs {
		if doc.Model == model {
			out = append(out, doc)
		}
	}
	return out
}

// --- subtitles ---

type mockSubtitles struct {
	value crtv.Subtitles
	err   error
}

func (m *mockSubtitles) Fetch(ctx context.Context, uri string) (crtv.Subtitles, error) {
	return m.value, m.err
}

// --- chain ---

type mockTokenContract struct {
	balance    *big.Int
	balanceErr error
	nextID     int64
	minted     []string
	tokenURIs  map[int64]string
	owner      string
	tokenID    *big.Int
	contract   string
}

func (m *mockTokenContract) Address() string { return contractHex }

func (m *mockTokenContract) BalanceOf(ctx context.Context, contract, owner string, tokenID *big.Int) (*big.Int, error) {
	m.contract = contract
	m.owner = owner
	m.tokenID = tokenID
	if m.balanceErr != nil {
		return nil, m.balanceErr
	}
	return m.balance, nil
}

func (m *mockTokenContract) NextTokenIDToMint(ctx context.Context) (*big.Int, error) {
	return big.NewInt(m.nextID), nil
}

func (m *mockTokenContract) LazyMint(ctx context.Context, amount *big.Int, baseURI string) (string, error) {
	m.minted = append(m.minted, baseURI)
	m.nextID += amount.Int64()
	return "0xmint", nil
}

func (m *mockTokenContract) SetTokenURI(ctx context.Context, tokenID *big.Int, uri string) (string, error) {
	if m.tokenURIs == nil {
		m.tokenURIs = map[int64]string{}
	}
	m.tokenURIs[tokenID.Int64()] = uri
	return "0xset", nil
}

// --- blob ---

type mockBlob struct {
	objects map[string][]byte
}

func (m *mockBlob) Put(ctx context.Context, key, contentType string, body io.Reader, size int64) (string, error) {
	if m.objects == nil {
		m.objects = map[string][]byte{}
	}
	b, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	m.objects[key] = b
	return crtv.ComposeStorageURI("crtv", key), nil
}

func (m *mockBlob) PublicURL(uri string) string {
	return "https://cdn.example/" + uri
}

// --- video backend ---

type mockVideoBackend struct {
	requests []domain.UploadRequest
	uploaded int
	asset    domain.VideoAsset
	playback domain.PlaybackInfo
	image    string
	err      error
	calls    int
}

func (m *mockVideoBackend) RequestUpload(ctx context.Context, req domain.UploadRequest) (domain.UploadTarget, error) {
	m.calls++
	m.requests = append(m.requests, req)
	if m.err != nil {
		return domain.UploadTarget{}, m.err
	}
	return domain.UploadTarget{URL: "https://upload.example/1", Asset: m.asset}, nil
}

func (m *mockVideoBackend) UploadFile(ctx context.Context, target domain.UploadTarget, file domain.VideoUpload) error {
	m.calls++
	m.uploaded++
	if file.Body != nil {
		_, _ = io.Copy(io.Discard, file.Body)
	}
	return m.err
}

func (m *mockVideoBackend) GetAsset(ctx context.Context, assetID string) (domain.VideoAsset, error) {
	m.calls++
	return m.asset, m.err
}

func (m *mockVideoBackend) ListAssets(ctx context.Context) ([]domain.VideoAsset, error) {
	m.calls++
	return []domain.VideoAsset{m.asset}, m.err
}

func (m *mockVideoBackend) GetPlaybackInfo(ctx context.Context, playbackID string) (domain.PlaybackInfo, error) {
	m.calls++
	return m.playback, m.err
}

func (m *mockVideoBackend) GenerateImage(ctx context.Context, prompt string) (string, error) {
	m.calls++
	return m.image, m.err
}

// --- caption backends ---

type mockTranscriber struct {
	res   crtv.TextResponse
	err   error
	calls int
}

func (m *mockTranscriber) Transcribe(ctx context.Context, input domain.AudioInput) (crtv.TextResponse, error) {
	m.calls++
	return m.res, m.err
}

type mockLanguageModel struct {
	prompts []string
	reply   func(prompt string) string
	err     error
}

func (m *mockLanguageModel) Complete(ctx context.Context, prompt string) (string, error) {
	m.prompts = append(m.prompts, prompt)
	if m.err != nil {
		return "", m.err
	}
	if m.reply != nil {
		return m.reply(prompt), nil
	}
	return "hola", nil
}

// --- sessions and events ---

type mockSessionStore struct {
	sessions map[string]domain.UploadSession
	saveErr  error
}

func (m *mockSessionStore) Save(ctx context.Context, session domain.UploadSession) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	if m.sessions == nil {
		m.sessions = map[string]domain.UploadSession{}
	}
	m.sessions[session.ID] = session
	return nil
}

func (m *mockSessionStore) Load(ctx context.Context, id string) (domain.UploadSession, error) {
	s, ok := m.sessions[id]
	if !ok {
		return domain.UploadSession{}, domain.NotFoundError{Resource: "upload session"}
	}
	return s, nil
}

type mockPublisher struct {
	events []crtv.UploadEvent
}

func (m *mockPublisher) PublishUpload(ctx context.Context, event crtv.UploadEvent) error {
	m.events = append(m.events, event)
	return nil
}

func (m *mockPublisher) types() []string {
	out := make([]string, 0, len(m.events))
	for _, e := range m.events {
		out = append(out, e.Type)
	}
	return out
}
