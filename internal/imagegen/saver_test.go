package imagegen

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"reelsmith/internal/imagefetch"
	"reelsmith/internal/llm"
	"reelsmith/internal/storage"
)

type fakeBackend struct {
	urls  []string
	err   error
	specs []Spec
}

func (b *fakeBackend) Generate(ctx context.Context, spec Spec) ([]string, error) {
	b.specs = append(b.specs, spec)
	return b.urls, b.err
}

type fakeMirror struct {
	uploaded []string
	err      error
}

func (m *fakeMirror) Upload(ctx context.Context, localPath string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.uploaded = append(m.uploaded, localPath)
	return "gs://bucket/" + filepath.Base(localPath), nil
}

func imageServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/missing") {
			http.NotFound(w, r)
			return
		}
		if strings.HasPrefix(r.URL.Path, "/empty") {
			w.WriteHeader(http.StatusOK)
			return
		}
		_, _ = w.Write([]byte("image bytes for " + r.URL.Path))
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestSaver(t *testing.T, backend Backend, opts ...Option) (*Saver, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "resource")
	return NewSaver("tongyi", backend, imagefetch.New(), storage.NewLocalStorage(dir), opts...), dir
}

func TestSaveScenarios(t *testing.T) {
	server := imageServer(t)

	tests := []struct {
		name       string
		urls       []string
		err        error
		count      int
		wantPaths  int
		wantFailed int
		wantOK     bool
	}{
		{
			name:      "allDownloadsSucceed",
			urls:      []string{server.URL + "/a.jpg", server.URL + "/b.jpg"},
			count:     2,
			wantPaths: 2,
			wantOK:    true,
		},
		{
			name:       "secondDownloadNotFound",
			urls:       []string{server.URL + "/a.jpg", server.URL + "/missing.jpg"},
			count:      2,
			wantPaths:  1,
			wantFailed: 1,
			wantOK:     true,
		},
		{
			name:  "remoteError",
			err:   &RemoteError{Provider: "tongyi", Code: "InvalidParameter", Message: "bad size"},
			count: 2,
		},
		{
			name:  "transportError",
			err:   errors.New("dial tcp: connection refused"),
			count: 1,
		},
		{
			name:  "nominalButEmpty",
			urls:  []string{},
			count: 1,
		},
		{
			name:       "everyDownloadFails",
			urls:       []string{server.URL + "/missing-1.jpg", server.URL + "/missing-2.jpg"},
			count:      2,
			wantFailed: 2,
		},
		{
			name:       "emptyBody",
			urls:       []string{server.URL + "/empty.jpg"},
			count:      1,
			wantFailed: 1,
		},
		{
			name:       "emptyBodyBesideGoodImage",
			urls:       []string{server.URL + "/empty.jpg", server.URL + "/b.jpg"},
			count:      2,
			wantPaths:  1,
			wantFailed: 1,
			wantOK:     true,
		},
		{
			name:      "moreURLsThanRequested",
			urls:      []string{server.URL + "/a.jpg", server.URL + "/b.jpg", server.URL + "/c.jpg"},
			count:     2,
			wantPaths: 2,
			wantOK:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			saver, dir := newTestSaver(t, &fakeBackend{urls: tt.urls, err: tt.err})

			outcome, err := saver.Save(context.Background(), llm.ImageRequest{
				Topic:  "sunset over mountains",
				Width:  1024,
				Height: 1024,
				Count:  tt.count,
			})
			if err != nil {
				t.Fatalf("Save() error = %v", err)
			}

			if outcome.OK() != tt.wantOK {
				t.Fatalf("OK() = %v, want %v (reason %q)", outcome.OK(), tt.wantOK, outcome.Reason)
			}
			if len(outcome.Paths) != tt.wantPaths {
				t.Errorf("Paths = %v, want %d", outcome.Paths, tt.wantPaths)
			}
			if len(outcome.Failed) != tt.wantFailed {
				t.Errorf("Failed = %d, want %d", len(outcome.Failed), tt.wantFailed)
			}
			if !tt.wantOK && outcome.Reason == "" {
				t.Error("failed outcome has no reason")
			}
			if len(outcome.Paths) > tt.count {
				t.Errorf("got %d paths for count %d", len(outcome.Paths), tt.count)
			}

			seen := map[string]bool{}
			for _, p := range outcome.Paths {
				info, err := os.Stat(p)
				if err != nil || info.Size() == 0 {
					t.Errorf("path %s missing or empty: %v", p, err)
				}
				if seen[p] {
					t.Errorf("duplicate path %s", p)
				}
				seen[p] = true
			}

			if !tt.wantOK {
				entries, _ := os.ReadDir(dir)
				if len(entries) != 0 {
					t.Errorf("failed generation wrote %d files", len(entries))
				}
			}
		})
	}
}

func TestSaveFirstPathKeepsOrder(t *testing.T) {
	server := imageServer(t)
	saver, _ := newTestSaver(t, &fakeBackend{urls: []string{server.URL + "/a.jpg", server.URL + "/missing.jpg"}})

	outcome, err := saver.Save(context.Background(), llm.ImageRequest{Topic: "sunset over mountains", Count: 2})
	if err != nil {
		t.Fatal(err)
	}
	if got := filepath.Base(outcome.Paths[0]); got != "tongyi-image-sunset+over+mountains-0.jpg" {
		t.Errorf("first path = %s", got)
	}
	if outcome.Failed[0].URL != server.URL+"/missing.jpg" {
		t.Errorf("failed URL = %s", outcome.Failed[0].URL)
	}
}

func TestSaveStopOnFailure(t *testing.T) {
	server := imageServer(t)
	backend := &fakeBackend{urls: []string{server.URL + "/missing.jpg", server.URL + "/b.jpg"}}
	saver, _ := newTestSaver(t, backend, WithPolicy(StopOnFailure))

	outcome, err := saver.Save(context.Background(), llm.ImageRequest{Topic: "x", Count: 2})
	if err != nil {
		t.Fatal(err)
	}
	if outcome.OK() || len(outcome.Failed) != 1 {
		t.Errorf("outcome = %+v, want one failure and no paths", outcome)
	}
}

func TestSaveRejectsEmptyTopic(t *testing.T) {
	backend := &fakeBackend{}
	saver, _ := newTestSaver(t, backend)

	if _, err := saver.Save(context.Background(), llm.ImageRequest{Topic: " "}); err == nil {
		t.Error("Save() should reject an empty topic")
	}
	if len(backend.specs) != 0 {
		t.Error("backend called for an invalid request")
	}
}

func TestSaveCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	saver, _ := newTestSaver(t, &fakeBackend{err: context.Canceled})
	if _, err := saver.Save(ctx, llm.ImageRequest{Topic: "x"}); !errors.Is(err, context.Canceled) {
		t.Errorf("Save() error = %v, want context.Canceled", err)
	}
}

func TestSaveBuildsSpec(t *testing.T) {
	server := imageServer(t)

	tests := []struct {
		name   string
		req    llm.ImageRequest
		opts   []Option
		expect Spec
	}{
		{
			name: "textToImageDefaults",
			req:  llm.ImageRequest{Topic: "cat"},
			expect: Spec{
				Mode: llm.ModeTextToImage, Prompt: "cat",
				Width: 1024, Height: 1024, Count: 1, Scale: 0.5,
			},
		},
		{
			name: "imageToImageRandomSeed",
			req:  llm.ImageRequest{Topic: "cat", SourceImage: "upload.png", Width: 512, Height: 768},
			opts: []Option{
				WithSourceBaseURL("http://uploads.local:8502/"),
				WithSeedSource(func() int64 { return 42 }),
			},
			expect: Spec{
				Mode: llm.ModeImageToImage, Prompt: "cat",
				Width: 512, Height: 768, Count: 1, Scale: 0.5, Seed: 42,
				SourceURL: "http://uploads.local:8502/upload.png",
			},
		},
		{
			name: "imageToImageKeepsSeedAndURL",
			req:  llm.ImageRequest{Topic: "cat", SourceImage: "https://cdn/x.png", Seed: 7, Scale: 0.8},
			opts: []Option{WithSourceBaseURL("http://uploads.local")},
			expect: Spec{
				Mode: llm.ModeImageToImage, Prompt: "cat",
				Width: 1024, Height: 1024, Count: 1, Scale: 0.8, Seed: 7,
				SourceURL: "https://cdn/x.png",
			},
		},
		{
			name: "derivedPrompt",
			req:  llm.ImageRequest{Topic: "cat", UsePreLLM: true},
			opts: []Option{WithPrompt(func(ctx context.Context, topic string) (string, error) {
				return "a fluffy " + topic + " in soft light", nil
			})},
			expect: Spec{
				Mode: llm.ModeTextToImage, Prompt: "a fluffy cat in soft light",
				Width: 1024, Height: 1024, Count: 1, Scale: 0.5, UsePreLLM: true,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := &fakeBackend{urls: []string{server.URL + "/a.jpg"}}
			saver, _ := newTestSaver(t, backend, tt.opts...)

			if _, err := saver.Save(context.Background(), tt.req); err != nil {
				t.Fatal(err)
			}
			if len(backend.specs) != 1 {
				t.Fatalf("backend called %d times", len(backend.specs))
			}
			if got := backend.specs[0]; got != tt.expect {
				t.Errorf("spec = %+v, want %+v", got, tt.expect)
			}
		})
	}
}

func TestSavePromptFailure(t *testing.T) {
	backend := &fakeBackend{}
	saver, _ := newTestSaver(t, backend, WithPrompt(func(ctx context.Context, topic string) (string, error) {
		return "", errors.New("quota exceeded")
	}))

	outcome, err := saver.Save(context.Background(), llm.ImageRequest{Topic: "x"})
	if err != nil {
		t.Fatal(err)
	}
	if outcome.OK() || !strings.Contains(outcome.Reason, "quota exceeded") {
		t.Errorf("outcome = %+v", outcome)
	}
	if len(backend.specs) != 0 {
		t.Error("backend called after prompt failure")
	}
}

func TestSaveMirrorsFiles(t *testing.T) {
	server := imageServer(t)

	mirror := &fakeMirror{}
	saver, _ := newTestSaver(t, &fakeBackend{urls: []string{server.URL + "/a.jpg"}}, WithMirror(mirror))
	outcome, _ := saver.Save(context.Background(), llm.ImageRequest{Topic: "x"})
	if len(mirror.uploaded) != 1 || mirror.uploaded[0] != outcome.Paths[0] {
		t.Errorf("uploaded = %v", mirror.uploaded)
	}

	failing := &fakeMirror{err: errors.New("permission denied")}
	saver, _ = newTestSaver(t, &fakeBackend{urls: []string{server.URL + "/a.jpg"}}, WithMirror(failing))
	outcome, _ = saver.Save(context.Background(), llm.ImageRequest{Topic: "x"})
	if !outcome.OK() {
		t.Error("mirror failure should not fail the outcome")
	}
}

func TestRemoteErrorMessage(t *testing.T) {
	err := &RemoteError{Provider: "volcengine", Code: "50411", Message: "risk control"}
	if got := err.Error(); got != "volcengine api error: code 50411: risk control" {
		t.Errorf("Error() = %q", got)
	}
}
