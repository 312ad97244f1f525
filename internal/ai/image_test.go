package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestImageClient_Generate(t *testing.T) {
	var gotBody map[string]any
	var gotAuth string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != imagesPath {
			t.Errorf("path = %q, want %q", r.URL.Path, imagesPath)
		}
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"created":1,"data":[{"url":"https://img.example/a.png","revised_prompt":"a red mug"}]}`))
	}))
	defer srv.Close()

	c := NewImageClient(srv.URL+"/", "sk-test", "img-model", srv.Client(), NewLimiter(0, 0))
	res, err := c.Generate(context.Background(), ImageRequest{Prompt: "red mug"})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if res.URL != "https://img.example/a.png" {
		t.Errorf("URL = %q", res.URL)
	}
	if res.RevisedPrompt != "a red mug" {
		t.Errorf("RevisedPrompt = %q", res.RevisedPrompt)
	}
	if gotAuth != "Bearer sk-test" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotBody["size"] != defaultImageSize {
		t.Errorf("size = %v, want default %q", gotBody["size"], defaultImageSize)
	}
	if gotBody["model"] != "img-model" {
		t.Errorf("model = %v", gotBody["model"])
	}
}

func TestImageClient_Base64(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"b64_json":"aGVsbG8="}]}`))
	}))
	defer srv.Close()

	c := NewImageClient(srv.URL, "k", "", srv.Client(), nil)
	res, err := c.Generate(context.Background(), ImageRequest{Prompt: "p", Size: "512x512"})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if res.B64JSON != "aGVsbG8=" {
		t.Errorf("B64JSON = %q", res.B64JSON)
	}
}

func TestImageClient_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"quota exceeded"}}`))
	}))
	defer srv.Close()

	c := NewImageClient(srv.URL, "k", "", srv.Client(), nil)
	_, err := c.Generate(context.Background(), ImageRequest{Prompt: "p"})

	var perr *ProviderError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ProviderError, got %v", err)
	}
	if perr.StatusCode != http.StatusTooManyRequests || perr.Message != "quota exceeded" {
		t.Errorf("got %+v", perr)
	}
}

func TestImageClient_EmptyData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	c := NewImageClient(srv.URL, "k", "", srv.Client(), nil)
	if _, err := c.Generate(context.Background(), ImageRequest{Prompt: "p"}); !errors.Is(err, ErrEmptyResponse) {
		t.Errorf("expected ErrEmptyResponse, got %v", err)
	}
}

func TestImageClient_NotConfigured(t *testing.T) {
	c := NewImageClient("", "", "", nil, nil)
	if _, err := c.Generate(context.Background(), ImageRequest{Prompt: "p"}); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}
}

func TestNormalizeSize(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr error
	}{
		{"", defaultImageSize, nil},
		{"512X512", "512x512", nil},
		{" 256x256 ", "256x256", nil},
		{"4096x4096", "", ErrInvalidSize},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NormalizeSize(tt.in)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
