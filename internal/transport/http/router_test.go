package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"dsa-tracker/internal/app"
	"dsa-tracker/internal/auth"
	"dsa-tracker/internal/domain"
	"dsa-tracker/internal/infra/memory"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testAPI struct {
	router http.Handler
	tokens *auth.Manager
}

func newTestAPI(t *testing.T, limit RateLimit) *testAPI {
	t.Helper()
	tokens, err := auth.NewManager("router-test-secret-key", time.Hour)
	require.NoError(t, err)
	catalog := memory.NewCatalogRepository(memory.NewStaticCatalogLoader(sampleTopics()), time.Minute)
	service := app.NewAccountService(memory.NewAccountRepository(), catalog, tokens)
	return &testAPI{router: NewRouter(service, tokens, limit), tokens: tokens}
}

func (a *testAPI) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func (a *testAPI) signup(t *testing.T, email string) string {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/auth/signup", "", map[string]string{
		"name": "Ada", "email": email, "password": "abc1@",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func errorOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["error"]
}

func TestSignupLoginAndMe(t *testing.T) {
	api := newTestAPI(t, RateLimit{})
	token := api.signup(t, "ada@example.com")

	rec := api.do(t, http.MethodGet, "/auth/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"name":"Ada","email":"ada@example.com","completedTopics":[]}`, rec.Body.String())

	rec = api.do(t, http.MethodPost, "/auth/signup", "", map[string]string{
		"name": "Ada", "email": "ada@example.com", "password": "abc1@",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "User already exists", errorOf(t, rec))

	rec = api.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": "ada@example.com", "password": "nope1@"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid credentials", errorOf(t, rec))

	rec = api.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": "ada@example.com", "password": "abc1@"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSignupRejectsEmptyFields(t *testing.T) {
	api := newTestAPI(t, RateLimit{})
	rec := api.do(t, http.MethodPost, "/auth/signup", "", map[string]string{"email": "ada@example.com"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NotEmpty(t, errorOf(t, rec))
}

func TestAuthMiddlewareRejectsBadTokens(t *testing.T) {
	api := newTestAPI(t, RateLimit{})

	rec := api.do(t, http.MethodGet, "/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Authorization header required", errorOf(t, rec))

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("Authorization", "Token abc")
	raw := httptest.NewRecorder()
	api.router.ServeHTTP(raw, req)
	assert.Equal(t, http.StatusUnauthorized, raw.Code)
	assert.Equal(t, "Invalid authorization header format", errorOf(t, raw))

	rec = api.do(t, http.MethodPost, "/completed/mark", "garbage", map[string]any{"topicId": "arrays", "subtopicId": 1, "isComplete": true})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid token", errorOf(t, rec))
}

func TestTopicsIsPublic(t *testing.T) {
	api := newTestAPI(t, RateLimit{})
	rec := api.do(t, http.MethodGet, "/topics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var topics []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &topics))
	require.Len(t, topics, 1)
	assert.Equal(t, "arrays", topics[0]["_id"])
}

func TestMarkCompletion(t *testing.T) {
	api := newTestAPI(t, RateLimit{})
	token := api.signup(t, "ada@example.com")

	rec := api.do(t, http.MethodPost, "/completed/mark", token, map[string]any{"topicId": "arrays", "subtopicId": 2, "isComplete": true})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"message":"Topic marked as completed"}`, rec.Body.String())

	rec = api.do(t, http.MethodGet, "/auth/me", token, nil)
	assert.JSONEq(t, `{"name":"Ada","email":"ada@example.com","completedTopics":[{"topicId":"arrays","subtopicIds":[2]}]}`, rec.Body.String())

	// explicit false is a valid value, not a missing field
	rec = api.do(t, http.MethodPost, "/completed/mark", token, map[string]any{"topicId": "arrays", "subtopicId": 2, "isComplete": false})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = api.do(t, http.MethodGet, "/auth/me", token, nil)
	assert.JSONEq(t, `{"name":"Ada","email":"ada@example.com","completedTopics":[]}`, rec.Body.String())

	rec = api.do(t, http.MethodPost, "/completed/mark", token, map[string]any{"topicId": "graphs", "subtopicId": 1, "isComplete": true})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Topic not found", errorOf(t, rec))

	rec = api.do(t, http.MethodPost, "/completed/mark", token, map[string]any{"topicId": "arrays", "subtopicId": 99, "isComplete": true})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Subtopic not found", errorOf(t, rec))

	rec = api.do(t, http.MethodPost, "/completed/mark", token, map[string]any{"topicId": "arrays"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthRoutesAreRateLimited(t *testing.T) {
	api := newTestAPI(t, RateLimit{Every: time.Hour, Burst: 2, Expire: time.Minute})

	for i := 0; i < 2; i++ {
		rec := api.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": "x@example.com", "password": "y"})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	}
	rec := api.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": "x@example.com", "password": "y"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// other routes are not limited
	rec = api.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestCORSAllowsAuthorizationHeader(t *testing.T) {
	api := newTestAPI(t, RateLimit{})
	req := httptest.NewRequest(http.MethodOptions, "/auth/me", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	req.Header.Set("Access-Control-Request-Headers", "Authorization")
	rec := httptest.NewRecorder()
	api.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "Authorization")
}

func sampleTopics() []domain.Topic {
	return []domain.Topic{
		{
			ID:    "arrays",
			Title: "Arrays",
			Subtopics: []domain.Subtopic{
				{ID: 1, Title: "Two Sum", Difficulty: domain.Easy},
				{ID: 2, Title: "3Sum", Difficulty: domain.Medium},
			},
		},
	}
}
