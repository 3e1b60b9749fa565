package handler_test

import (
	"encoding/json"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/makeasinger/studio/internal/auth"
	"github.com/makeasinger/studio/internal/client"
	"github.com/makeasinger/studio/internal/config"
	"github.com/makeasinger/studio/internal/generation"
	"github.com/makeasinger/studio/internal/handler"
	"github.com/makeasinger/studio/internal/middleware"
	"github.com/makeasinger/studio/internal/service"
	"github.com/makeasinger/studio/internal/storage"
	ws "github.com/makeasinger/studio/internal/websocket"
)

const testJWTSecret = "test-secret-for-handlers"

// testApp holds all components needed for testing
type testApp struct {
	app     *fiber.App
	manager *generation.Manager
	store   *storage.Store
	tracks  *service.TrackService
}

type appOptions struct {
	maxConcurrent int
	pollsPerPhase int
	pollInterval  time.Duration
}

// setupApp builds the same router as the server with a mock provider and
// unconfigured AI clients, so every service uses its local fallback.
func setupApp(t *testing.T, opts appOptions) *testApp {
	t.Helper()
	logger := zerolog.Nop()

	if opts.pollsPerPhase == 0 {
		opts.pollsPerPhase = 1
	}
	if opts.pollInterval == 0 {
		opts.pollInterval = 5 * time.Millisecond
	}

	store, err := storage.New("sqlite", filepath.Join(t.TempDir(), "handlers.db"), false)
	if err != nil {
		t.Fatalf("storage.New: %v", err)
	}
	if err := store.Start(testContext(t)); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := store.Migrate(testContext(t)); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	hub := ws.NewHub(logger)
	go hub.Run(testContext(t))

	provider := client.NewMockSunoClient()
	provider.PollsPerPhase = opts.pollsPerPhase

	covers := service.NewCoverService(nil, nil, nil, logger)
	tracks := service.NewTrackService(store, nil, hub, provider, covers, logger)

	est := generation.NewEstimator(0)
	est.Jitter = func() float64 { return 0.5 }
	manager := generation.New(provider, generation.Config{
		MaxConcurrent: opts.maxConcurrent,
		PollInterval:  opts.pollInterval,
		RemovalDelay:  time.Minute,
		Estimator:     est,
		Publisher:     hub,
		OnComplete:    tracks.OnComplete,
	})
	t.Cleanup(manager.Close)

	validate := validator.New()
	authenticator := auth.NewAuthenticator(nil, testJWTSecret)

	router := &handler.Router{
		Generations: handler.NewGenerationHandler(manager, validate),
		Chat:        handler.NewChatHandler(service.NewChatService(nil, logger), validate),
		Tracks:      handler.NewTrackHandler(tracks, validate),
		Covers:      handler.NewCoverHandler(covers, validate),
		Auth:        handler.NewAuthHandler(authenticator),
		Hub:         hub,
		APIAuth:     middleware.NewAuthMiddleware(authenticator).Authenticate(),
		RateLimiter: middleware.NewRateLimiter(nil, logger),
		Limits:      config.RateLimitConfig{GeneratePerHour: 10000, ChatPerMin: 10000, CoverPerHour: 10000},
		Services: func() fiber.Map {
			return fiber.Map{"suno": false, "groq": false, "openai": false, "r2": false, "auth": true}
		},
	}

	app := fiber.New(fiber.Config{ErrorHandler: handler.ErrorHandler})
	router.Mount(app)

	return &testApp{app: app, manager: manager, store: store, tracks: tracks}
}

// generateToken creates a legacy HMAC JWT token for test requests.
func generateToken(t *testing.T) string {
	t.Helper()
	signed, err := auth.IssueLegacyToken("test-user-123", "test@example.com", testJWTSecret, time.Hour)
	if err != nil {
		t.Fatalf("failed to generate test token: %v", err)
	}
	return signed
}

// doRequest is a helper to perform HTTP requests against the test app.
func doRequest(app *fiber.App, method, path string, body string, headers map[string]string) (*http.Response, error) {
	var bodyReader io.Reader
	if body != "" {
		bodyReader = strings.NewReader(body)
	}

	req, err := http.NewRequest(method, path, bodyReader)
	if err != nil {
		return nil, err
	}

	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return app.Test(req, -1)
}

// doAuthRequest performs an authenticated request.
func doAuthRequest(t *testing.T, app *fiber.App, method, path, body string) *http.Response {
	t.Helper()
	resp, err := doRequest(app, method, path, body, map[string]string{
		"Authorization": "Bearer " + generateToken(t),
	})
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp
}

// readBody reads and returns the response body as a string.
func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	return string(b)
}

// parseJSON parses response body into a map.
func parseJSON(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	body := readBody(t, resp)
	var result map[string]interface{}
	if err := json.Unmarshal([]byte(body), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, body)
	}
	return result
}

// assertStatus checks the HTTP status code.
func assertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("expected status %d, got %d", expected, resp.StatusCode)
	}
}

// errorCode extracts error.code from an error envelope.
func errorCode(t *testing.T, resp *http.Response) string {
	t.Helper()
	result := parseJSON(t, resp)
	e, ok := result["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected error envelope, got %v", result)
	}
	code, _ := e["code"].(string)
	return code
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}
