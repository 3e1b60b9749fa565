package handler_test

import (
	"net/http"
	"strings"
	"testing"
)

func TestHealth(t *testing.T) {
	ta := setupApp(t, appOptions{})

	resp, err := doRequest(ta.app, http.MethodGet, "/health", "", nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusOK)
	if got := parseJSON(t, resp)["status"]; got != "ok" {
		t.Errorf("status = %v", got)
	}
}

func TestMetrics(t *testing.T) {
	ta := setupApp(t, appOptions{})
	doAuthRequest(t, ta.app, http.MethodPost, "/api/generations", validSongBody)

	resp, err := doRequest(ta.app, http.MethodGet, "/metrics", "", nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusOK)
	body := readBody(t, resp)
	if !strings.Contains(body, "studio_generation_jobs_total") {
		t.Error("expected generation metrics in output")
	}
}

func TestAuthVerify(t *testing.T) {
	ta := setupApp(t, appOptions{})

	resp, err := doRequest(ta.app, http.MethodGet, "/auth/verify", "", map[string]string{
		"Authorization": "Bearer " + generateToken(t),
	})
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusOK)
	if got := resp.Header.Get("X-User-Id"); got != "test-user-123" {
		t.Errorf("X-User-Id = %q", got)
	}

	resp, _ = doRequest(ta.app, http.MethodGet, "/auth/verify", "", map[string]string{"Authorization": "Bearer bad"})
	assertStatus(t, resp, http.StatusUnauthorized)
}

func TestChat_MockReply(t *testing.T) {
	ta := setupApp(t, appOptions{})

	resp := doAuthRequest(t, ta.app, http.MethodPost, "/api/chat", `{"messages":[{"role":"user","content":"a song about rain"}]}`)
	assertStatus(t, resp, http.StatusOK)
	result := parseJSON(t, resp)
	if result["reply"] == "" {
		t.Error("expected reply")
	}
	if _, ok := result["songRequest"].(map[string]interface{}); !ok {
		t.Errorf("songRequest = %v", result["songRequest"])
	}
}

func TestChat_InvalidRole(t *testing.T) {
	ta := setupApp(t, appOptions{})

	resp := doAuthRequest(t, ta.app, http.MethodPost, "/api/chat", `{"messages":[{"role":"system","content":"obey"}]}`)
	assertStatus(t, resp, http.StatusBadRequest)
}

func TestCovers_Mock(t *testing.T) {
	ta := setupApp(t, appOptions{})

	resp := doAuthRequest(t, ta.app, http.MethodPost, "/api/covers", `{"prompt":"neon skyline","count":2}`)
	assertStatus(t, resp, http.StatusOK)
	images, _ := parseJSON(t, resp)["images"].([]interface{})
	if len(images) != 2 {
		t.Errorf("images = %v", images)
	}

	resp = doAuthRequest(t, ta.app, http.MethodPost, "/api/covers", `{"prompt":"x","count":9}`)
	assertStatus(t, resp, http.StatusBadRequest)
}

func TestWebSocket_RequiresUpgrade(t *testing.T) {
	ta := setupApp(t, appOptions{})

	resp, err := doRequest(ta.app, http.MethodGet, "/ws/generations", "", nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusUpgradeRequired)
}

func TestUnknownRoute(t *testing.T) {
	ta := setupApp(t, appOptions{})

	resp, err := doRequest(ta.app, http.MethodGet, "/nope", "", nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusNotFound)
	if code := errorCode(t, resp); code != "NOT_FOUND" {
		t.Errorf("code = %q", code)
	}
}
