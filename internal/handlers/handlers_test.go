package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"gatherly/internal/models"
	"gatherly/internal/services"

	"github.com/gofiber/fiber/v2"
)

// stubAgent always answers with the same lines
type stubAgent struct {
	domain models.RouteType
	lines  []string
}

func (a *stubAgent) Domain() models.RouteType { return a.domain }

func (a *stubAgent) QueryDocuments(ctx context.Context, query string, topK int) (*models.RAGAnswer, error) {
	return &models.RAGAnswer{Answer: a.lines, SourcesUsed: len(a.lines)}, nil
}

// stubLLM returns canned routing and synthesis responses
type stubLLM struct{}

func (s *stubLLM) Complete(ctx context.Context, messages []services.ChatMessage) (string, error) {
	last := messages[len(messages)-1].Content
	if bytes.Contains([]byte(last), []byte(`"primary"`)) {
		return `{"primary":"event","secondary":"post","confidence":"high","reasoning":"stub"}`, nil
	}
	return "synthesized answer", nil
}

func (s *stubLLM) Embed(ctx context.Context, text string) ([]float64, error) {
	return nil, errors.New("no embeddings in tests")
}

// fakeAuth injects a fixed user into locals, standing in for JWT middleware
func fakeAuth(userID string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if userID != "" {
			c.Locals("user_id", userID)
		}
		return c.Next()
	}
}

func newAssistantApp(userID string) *fiber.App {
	memory := services.NewLongTermMemory(nil)
	superAgent := services.NewSuperAgentService(
		&stubLLM{},
		memory,
		&stubAgent{domain: models.RouteEvent, lines: []string{"the summit is friday"}},
		&stubAgent{domain: models.RoutePost, lines: nil},
	)
	handler := NewAssistantHandler(superAgent)

	app := fiber.New()
	app.Post("/api/assistant/query", fakeAuth(userID), handler.Query)
	return app
}

func postJSON(t *testing.T, app *fiber.App, path string, body interface{}) (int, map[string]interface{}) {
	t.Helper()

	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}

	req := httptest.NewRequest("POST", path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	var decoded map[string]interface{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &decoded); err != nil {
			t.Fatalf("unmarshal response %q: %v", raw, err)
		}
	}
	return resp.StatusCode, decoded
}

func TestAssistantQueryHappyPath(t *testing.T) {
	app := newAssistantApp("user-1")

	status, body := postJSON(t, app, "/api/assistant/query", QueryRequest{Query: "When is the summit?"})
	if status != fiber.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %v)", status, body)
	}
	if body["answer"] == "" {
		t.Error("expected a non-empty answer")
	}
	if body["source"] != "pipeline" {
		t.Errorf("source = %v, want pipeline", body["source"])
	}
}

func TestAssistantQueryTooShort(t *testing.T) {
	app := newAssistantApp("user-1")

	status, body := postJSON(t, app, "/api/assistant/query", QueryRequest{Query: "x"})
	if status != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400 (body: %v)", status, body)
	}
	if body["error"] == nil {
		t.Error("expected an error message")
	}
}

func TestAssistantQueryRequiresAuth(t *testing.T) {
	app := newAssistantApp("")

	status, body := postJSON(t, app, "/api/assistant/query", QueryRequest{Query: "When is the summit?"})
	if status != fiber.StatusUnauthorized {
		t.Fatalf("status = %d, want 401 (body: %v)", status, body)
	}
}

func TestAssistantQueryBadBody(t *testing.T) {
	app := newAssistantApp("user-1")

	req := httptest.NewRequest("POST", "/api/assistant/query", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestRespondErrorMapping(t *testing.T) {
	app := fiber.New()
	app.Get("/validation", func(c *fiber.Ctx) error {
		return respondError(c, services.ErrValidation)
	})
	app.Get("/notfound", func(c *fiber.Ctx) error {
		return respondError(c, services.ErrNotFound)
	})
	app.Get("/other", func(c *fiber.Ctx) error {
		return respondError(c, errors.New("boom"))
	})

	tests := []struct {
		path string
		want int
	}{
		{"/validation", fiber.StatusBadRequest},
		{"/notfound", fiber.StatusNotFound},
		{"/other", fiber.StatusInternalServerError},
	}

	for _, tt := range tests {
		req := httptest.NewRequest("GET", tt.path, nil)
		resp, err := app.Test(req, -1)
		if err != nil {
			t.Fatalf("%s: request failed: %v", tt.path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != tt.want {
			t.Errorf("%s: status = %d, want %d", tt.path, resp.StatusCode, tt.want)
		}
	}
}
