package e2e

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/raglegal/api/internal/auth"
	"github.com/raglegal/api/internal/config"
	"github.com/raglegal/api/internal/handler"
	"github.com/raglegal/api/internal/middleware"
	"github.com/raglegal/api/internal/model"
	"github.com/raglegal/api/internal/service"
	"github.com/raglegal/api/internal/store"
)

const testJWTSecret = "test-secret-for-e2e"

// testApp holds the components needed for transport-level tests.
type testApp struct {
	app   *fiber.App
	tasks *service.TaskService
}

// memoryUserFinder backs the auth middleware without Postgres.
type memoryUserFinder struct {
	users map[string]*model.User
}

func (f *memoryUserFinder) GetByUsername(_ context.Context, username string) (*model.User, error) {
	u, ok := f.users[username]
	if !ok {
		return nil, store.ErrNotFound
	}
	return u, nil
}

// setupApp builds a Fiber app wired like main.go but without Postgres.
// Redis must be running on localhost; DB 15 avoids collisions with a
// development instance.
func setupApp(t *testing.T) *testApp {
	t.Helper()

	redisOpt := asynq.RedisClientOpt{Addr: "localhost:6379", DB: 15}

	redisClient := redis.NewClient(&redis.Options{Addr: "localhost:6379", DB: 15})
	t.Cleanup(func() { redisClient.Close() })

	asynqClient := asynq.NewClient(redisOpt)
	t.Cleanup(func() { asynqClient.Close() })
	inspector := asynq.NewInspector(redisOpt)
	t.Cleanup(func() { inspector.Close() })

	taskService := service.NewTaskService(asynqClient, inspector, &config.TasksConfig{
		MaxRetry:  3,
		BaseDelay: 5,
		ResultTTL: 60,
	})
	tasksHandler := handler.NewTasksHandler(taskService)

	finder := &memoryUserFinder{users: map[string]*model.User{
		"e2e-user": {ID: 1, Username: "e2e-user", Role: model.RoleReviewer, IsActive: true},
	}}
	authMiddleware := middleware.NewAuthMiddleware(testJWTSecret, finder)
	rateLimiter := middleware.NewRateLimiter(redisClient)

	app := fiber.New()

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"services": fiber.Map{
				"redis": redisClient.Ping(c.Context()).Err() == nil,
			},
		})
	})

	api := app.Group("/api", authMiddleware.Authenticate())
	api.Get("/tasks/:taskId", tasksHandler.Status)

	// Unique limiter prefix per run so fixed windows from an earlier run
	// cannot bleed into this one.
	limited := rateLimiter.Limit("e2e-"+uuid.New().String(), 2, time.Minute)
	api.Post("/limited", limited, func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})

	return &testApp{app: app, tasks: taskService}
}

// generateToken creates an HS256 token for test requests.
func generateToken(t *testing.T) string {
	t.Helper()
	token, err := auth.IssueToken(testJWTSecret, "e2e-user", model.RoleReviewer, time.Hour)
	if err != nil {
		t.Fatalf("failed to generate test token: %v", err)
	}
	return token
}

// doRequest performs an HTTP request against the test app.
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
func doAuthRequest(t *testing.T, app *fiber.App, method, path, body string) (*http.Response, error) {
	t.Helper()
	return doRequest(app, method, path, body, map[string]string{
		"Authorization": "Bearer " + generateToken(t),
	})
}

// parseJSON parses the response body into a map.
func parseJSON(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	var result map[string]interface{}
	if err := json.Unmarshal(b, &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, b)
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
