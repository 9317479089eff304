package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCompleteSendsTextAndImageParts(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Fatalf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Fatalf("Authorization = %q", got)
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &captured); err != nil {
			t.Fatalf("unmarshal request: %v", err)
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer server.Close()

	client, err := NewOpenAIClient(OpenAIConfig{BaseURL: server.URL, APIKey: "test-key", Model: "test-model"})
	if err != nil {
		t.Fatalf("NewOpenAIClient() error = %v", err)
	}

	got, err := client.Complete(context.Background(), Request{
		System: "be helpful",
		Parts: []Part{
			TextPart("Filename: receipt.png"),
			ImagePart("image/png", []byte{0x89, 0x50}),
		},
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if got != "ok" {
		t.Fatalf("Complete() = %q", got)
	}

	messages, ok := captured["messages"].([]any)
	if !ok || len(messages) != 2 {
		t.Fatalf("messages = %#v", captured["messages"])
	}
	system := messages[0].(map[string]any)
	if system["role"] != "system" || system["content"] != "be helpful" {
		t.Fatalf("system message = %#v", system)
	}
	user := messages[1].(map[string]any)
	content := user["content"].([]any)
	if len(content) != 2 {
		t.Fatalf("content parts = %d", len(content))
	}
	image := content[1].(map[string]any)
	if image["type"] != "image_url" {
		t.Fatalf("second part type = %v", image["type"])
	}
	url := image["image_url"].(map[string]any)["url"].(string)
	if !strings.HasPrefix(url, "data:image/png;base64,") {
		t.Fatalf("image url = %q", url)
	}
}

func TestCompleteErrorsOnHTTPFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"overloaded"}`, http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client, err := NewOpenAIClient(OpenAIConfig{BaseURL: server.URL, APIKey: "k"})
	if err != nil {
		t.Fatalf("NewOpenAIClient() error = %v", err)
	}
	if _, err := client.Complete(context.Background(), Request{Parts: []Part{TextPart("hi")}}); err == nil {
		t.Fatal("expected error for 503 response")
	}
}

func TestCompleteErrorsOnEmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	client, err := NewOpenAIClient(OpenAIConfig{BaseURL: server.URL, APIKey: "k"})
	if err != nil {
		t.Fatalf("NewOpenAIClient() error = %v", err)
	}
	if _, err := client.Complete(context.Background(), Request{Parts: []Part{TextPart("hi")}}); err == nil {
		t.Fatal("expected error for empty choices")
	}
}

func TestNewOpenAIClientValidatesConfig(t *testing.T) {
	if _, err := NewOpenAIClient(OpenAIConfig{APIKey: "k"}); err == nil {
		t.Fatal("expected error for missing base URL")
	}
	if _, err := NewOpenAIClient(OpenAIConfig{BaseURL: "https://api.example.com"}); err == nil {
		t.Fatal("expected error for missing api key")
	}
}

func TestBuildChatPayloadRejectsEmptyParts(t *testing.T) {
	if _, err := buildChatPayload("m", 0, Request{}); err == nil {
		t.Fatal("expected error for empty parts")
	}
	if _, err := buildChatPayload("m", 0, Request{Parts: []Part{{ImageData: []byte{1}}}}); err == nil {
		t.Fatal("expected error for image part without MIME type")
	}
}
