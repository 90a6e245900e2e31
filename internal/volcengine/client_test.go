package volcengine

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/volcengine/volc-sdk-golang/service/visual"

	"reelsmith/internal/imagefetch"
	"reelsmith/internal/imagegen"
	"reelsmith/internal/llm"
	"reelsmith/internal/storage"
	"reelsmith/pkg/prompts"
)

type fakeProcessor struct {
	resp     map[string]interface{}
	status   int
	err      error
	requests []map[string]interface{}
}

func (f *fakeProcessor) CVProcess(req interface{}) (map[string]interface{}, int, error) {
	body, ok := req.(map[string]interface{})
	if !ok {
		return nil, 0, fmt.Errorf("unexpected request type %T", req)
	}
	f.requests = append(f.requests, body)
	return f.resp, f.status, f.err
}

func success(urls ...string) map[string]interface{} {
	list := make([]interface{}, len(urls))
	for i, u := range urls {
		list[i] = u
	}
	return map[string]interface{}{
		"code":    float64(10000),
		"message": "Success",
		"data":    map[string]interface{}{"image_urls": list},
	}
}

func imageServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "missing") {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("jpeg"))
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestClient(t *testing.T, proc *fakeProcessor, opts Options) (*Client, string) {
	t.Helper()
	opts.AccessKeyID = "ak"
	opts.SecretAccessKey = "sk"
	if opts.Model == "" {
		opts.Model = DefaultTextToImageKey
	}
	opts.Processor = proc

	dir := filepath.Join(t.TempDir(), "resource")
	client, err := New(opts, imagegen.Deps{Fetcher: imagefetch.New(), Store: storage.NewLocalStorage(dir)})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return client, dir
}

func TestNewRequiresSettings(t *testing.T) {
	proc := &fakeProcessor{}
	_, err := New(Options{Model: DefaultTextToImageKey, Processor: proc}, imagegen.Deps{})

	if !errors.Is(err, llm.ErrMissingSetting) {
		t.Fatalf("New() error = %v, want ErrMissingSetting", err)
	}
	want := `volcengine: missing setting "VOLCENGINE_ACCESS_KEY_ID"; volcengine: missing setting "VOLCENGINE_SECRET_ACCESS_KEY"`
	if err.Error() != want {
		t.Errorf("error = %q, want %q", err, want)
	}
	if len(proc.requests) != 0 {
		t.Error("remote called during failed construction")
	}
}

func TestNewUsesSDKProcessor(t *testing.T) {
	client, err := New(Options{
		AccessKeyID:     "ak",
		SecretAccessKey: "sk",
		Model:           DefaultTextToImageKey,
	}, imagegen.Deps{Fetcher: imagefetch.New(), Store: storage.NewLocalStorage(t.TempDir())})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if _, ok := client.processor.(*visual.Visual); !ok {
		t.Errorf("processor = %T, want *visual.Visual", client.processor)
	}
}

func TestGenerateContentNotSupported(t *testing.T) {
	proc := &fakeProcessor{}
	client, _ := newTestClient(t, proc, Options{})

	if llm.Supports(client, llm.CapText) {
		t.Error("volcengine reports text capability")
	}

	_, err := client.GenerateContent(context.Background(), llm.ContentRequest{
		Topic: "sunset", Template: prompts.MustNew("{{.topic}}"),
	})
	if !errors.Is(err, llm.ErrNotSupported) {
		t.Errorf("GenerateContent() error = %v, want ErrNotSupported", err)
	}
	if len(proc.requests) != 0 {
		t.Error("GenerateContent() reached the network")
	}
}

func TestGenerateAndSaveImage(t *testing.T) {
	server := imageServer(t)

	tests := []struct {
		name      string
		proc      *fakeProcessor
		wantPaths int
		wantOK    bool
		reason    string
	}{
		{
			name:      "bothDownloaded",
			proc:      &fakeProcessor{resp: success(server.URL+"/a.jpg", server.URL+"/b.jpg"), status: 200},
			wantPaths: 2,
			wantOK:    true,
		},
		{
			name:      "secondMissing",
			proc:      &fakeProcessor{resp: success(server.URL+"/a.jpg", server.URL+"/missing.jpg"), status: 200},
			wantPaths: 1,
			wantOK:    true,
		},
		{
			name: "nonNominalCode",
			proc: &fakeProcessor{
				resp:   map[string]interface{}{"code": float64(50411), "message": "Pre Img Risk Not Pass"},
				status: 400,
				err:    errors.New("bad request"),
			},
			reason: "50411",
		},
		{
			name:   "nominalEmptyList",
			proc:   &fakeProcessor{resp: success(), status: 200},
			reason: "no images returned",
		},
		{
			name:   "transportError",
			proc:   &fakeProcessor{err: errors.New("dial tcp: i/o timeout")},
			reason: "i/o timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, dir := newTestClient(t, tt.proc, Options{})

			outcome, err := client.GenerateAndSaveImage(context.Background(), llm.ImageRequest{
				Topic: "sunset over mountains", Width: 1024, Height: 1024, Count: 2,
			})
			if err != nil {
				t.Fatalf("GenerateAndSaveImage() error = %v", err)
			}
			if outcome.OK() != tt.wantOK {
				t.Fatalf("OK() = %v, want %v (%q)", outcome.OK(), tt.wantOK, outcome.Reason)
			}
			if len(outcome.Paths) != tt.wantPaths {
				t.Errorf("Paths = %v, want %d", outcome.Paths, tt.wantPaths)
			}
			if tt.reason != "" && !strings.Contains(outcome.Reason, tt.reason) {
				t.Errorf("Reason = %q, want it to contain %q", outcome.Reason, tt.reason)
			}
			if !tt.wantOK {
				if entries, _ := os.ReadDir(dir); len(entries) != 0 {
					t.Errorf("wrote %d files on failure", len(entries))
				}
			}
			for _, p := range outcome.Paths {
				if !strings.HasPrefix(filepath.Base(p), "volcengine-image-sunset+over+mountains-") {
					t.Errorf("unexpected file name %s", p)
				}
			}
		})
	}
}

func TestTextToImageRequest(t *testing.T) {
	server := imageServer(t)
	proc := &fakeProcessor{resp: success(server.URL + "/a.jpg"), status: 200}
	client, _ := newTestClient(t, proc, Options{})

	_, err := client.GenerateAndSaveImage(context.Background(), llm.ImageRequest{
		Topic: "cat", Width: 768, Height: 512, UsePreLLM: true,
	})
	if err != nil {
		t.Fatal(err)
	}

	req := proc.requests[0]
	checks := map[string]interface{}{
		"req_key":     DefaultTextToImageKey,
		"prompt":      "cat",
		"use_pre_llm": true,
		"width":       768,
		"height":      512,
		"n":           1,
		"return_url":  true,
	}
	for k, want := range checks {
		if req[k] != want {
			t.Errorf("req[%s] = %v, want %v", k, req[k], want)
		}
	}
	if _, ok := req["image_urls"]; ok {
		t.Error("text-to-image request carries image_urls")
	}
}

func TestImageToImageRequest(t *testing.T) {
	server := imageServer(t)
	proc := &fakeProcessor{resp: success(server.URL + "/a.jpg"), status: 200}
	client, _ := newTestClient(t, proc, Options{SourceBaseURL: "http://uploads.local:8502"})

	_, err := client.GenerateAndSaveImage(context.Background(), llm.ImageRequest{
		Topic: "cat", SourceImage: "upload.png", Scale: 0.6, Seed: 1234,
	})
	if err != nil {
		t.Fatal(err)
	}

	req := proc.requests[0]
	if req["req_key"] != DefaultImageToImageKey {
		t.Errorf("req_key = %v", req["req_key"])
	}
	urls, _ := req["image_urls"].([]string)
	if len(urls) != 1 || urls[0] != "http://uploads.local:8502/upload.png" {
		t.Errorf("image_urls = %v", req["image_urls"])
	}
	if req["seed"] != int64(1234) || req["scale"] != 0.6 {
		t.Errorf("seed/scale = %v/%v", req["seed"], req["scale"])
	}
}

type fakeText struct {
	llm.Unsupported
}

func (fakeText) Name() string                 { return "writer" }
func (fakeText) Capabilities() llm.Capability { return llm.CapText }

func (fakeText) GenerateContent(ctx context.Context, req llm.ContentRequest) (string, error) {
	return "oil painting of " + req.Topic, nil
}

func TestPromptWriterDerivesPrompt(t *testing.T) {
	server := imageServer(t)
	writer, err := llm.NewPromptWriter(fakeText{}, prompts.MustNew("{{.topic}}"))
	if err != nil {
		t.Fatal(err)
	}

	proc := &fakeProcessor{resp: success(server.URL + "/a.jpg"), status: 200}
	client, _ := newTestClient(t, proc, Options{PromptWriter: writer})

	if _, err := client.GenerateAndSaveImage(context.Background(), llm.ImageRequest{Topic: "harbor"}); err != nil {
		t.Fatal(err)
	}
	if proc.requests[0]["prompt"] != "oil painting of harbor" {
		t.Errorf("prompt = %v", proc.requests[0]["prompt"])
	}
}

func TestResponseCode(t *testing.T) {
	tests := []struct {
		name   string
		resp   map[string]interface{}
		want   int64
		wantOK bool
	}{
		{"float", map[string]interface{}{"code": float64(10000)}, 10000, true},
		{"int", map[string]interface{}{"code": 50411}, 50411, true},
		{"missing", map[string]interface{}{}, 0, false},
		{"nil", nil, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := responseCode(tt.resp)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("responseCode() = (%d, %v), want (%d, %v)", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}
