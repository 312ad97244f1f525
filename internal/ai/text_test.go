package ai

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/generative-ai-go/genai"
)

func TestBuildTextPrompt(t *testing.T) {
	got := BuildTextPrompt(TextRequest{
		Product:  "  Ceramic pour-over set ",
		Tone:     "warm",
		Keywords: []string{"handmade", " ", "small batch"},
	})

	for _, want := range []string{
		"Write a product description for: Ceramic pour-over set.",
		"Tone: warm.",
		"Work in these keywords naturally: handmade, small batch.",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("prompt missing %q:\n%s", want, got)
		}
	}
}

func TestBuildTextPrompt_OmitsEmptyParts(t *testing.T) {
	got := BuildTextPrompt(TextRequest{Product: "Lamp"})
	if strings.Contains(got, "Tone:") || strings.Contains(got, "keywords") {
		t.Errorf("unexpected optional sections:\n%s", got)
	}
}

func TestBuildTextPrompt_CapsKeywords(t *testing.T) {
	kw := make([]string, 30)
	for i := range kw {
		kw[i] = "k"
	}
	got := BuildTextPrompt(TextRequest{Product: "x", Keywords: kw})
	if n := strings.Count(got, "k,") + 1; n != maxKeywords {
		t.Errorf("keyword count = %d, want %d", n, maxKeywords)
	}
}

func TestResponseText(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{genai.Text("Hello "), genai.Text("shop.")}},
		}},
	}
	if got := responseText(resp); got != "Hello shop." {
		t.Errorf("responseText = %q", got)
	}
	if got := responseText(&genai.GenerateContentResponse{}); got != "" {
		t.Errorf("empty response = %q", got)
	}
	if got := responseText(nil); got != "" {
		t.Errorf("nil response = %q", got)
	}
}

func TestNewGeminiText_RequiresKey(t *testing.T) {
	if _, err := NewGeminiText(context.Background(), "", "", nil); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}
}

func TestNewLimiter(t *testing.T) {
	unlimited := NewLimiter(0, 0)
	for i := 0; i < 100; i++ {
		if !unlimited.Allow() {
			t.Fatal("disabled limiter should always allow")
		}
	}

	limited := NewLimiter(0.001, 1)
	if !limited.Allow() {
		t.Fatal("first call should use the burst token")
	}
	if limited.Allow() {
		t.Error("second call should be limited")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := wait(ctx, limited); err == nil {
		t.Error("wait should fail when the deadline is shorter than the refill")
	}
}
