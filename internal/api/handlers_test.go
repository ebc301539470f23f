package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/zapponejosh/parish-api/internal/auth"
	"github.com/zapponejosh/parish-api/internal/backup"
	"github.com/zapponejosh/parish-api/internal/calendar"
	"github.com/zapponejosh/parish-api/internal/config"
	"github.com/zapponejosh/parish-api/internal/database"
	"github.com/zapponejosh/parish-api/internal/logger"
	"github.com/zapponejosh/parish-api/internal/treba"
	"github.com/zapponejosh/parish-api/internal/upload"
)

// =============================================================================
// TEST SETUP HELPERS
// =============================================================================

// testEnv is a complete router backed by a file database in a temp dir.
type testEnv struct {
	db     *database.DB
	cfg    *config.Config
	auth   *auth.Service
	router http.Handler
}

// setupTest creates a fresh test environment
func setupTest(t *testing.T) *testEnv {
	t.Helper()
	return setupTestWithLimits(t, Limiters{})
}

func setupTestWithLimits(t *testing.T, limits Limiters) *testEnv {
	t.Helper()
	root := t.TempDir()
	log := logger.Discard()

	db, err := database.Open(database.DefaultConfig(filepath.Join(root, "parish.db")), log)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	_, err = db.Migrate(context.Background())
	require.NoError(t, err)

	cfg := &config.Config{
		Env:             config.EnvDevelopment,
		CORSOrigin:      "*",
		Timezone:        "Europe/Moscow",
		JWTSecret:       "test-secret-test-secret-test-secret",
		JWTTTL:          time.Hour,
		UploadDir:       filepath.Join(root, "uploads"),
		UploadMaxMB:     1,
		PublicURLPrefix: "/uploads",
		BackupDir:       filepath.Join(root, "backups"),
		BackupKeep:      3,
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	require.NoError(t, err)

	authSvc := auth.NewService(db, cfg.JWTSecret, cfg.JWTTTL, log)
	store, err := upload.NewStore(cfg.UploadDir, cfg.PublicURLPrefix, cfg.UploadMaxBytes(), log)
	require.NoError(t, err)
	backups, err := backup.NewService(db, cfg.BackupDir, cfg.UploadDir, cfg.BackupKeep, log)
	require.NoError(t, err)

	h := NewHandlers(Deps{
		DB:       db,
		Calendar: calendar.NewService(db, loc, log),
		Auth:     authSvc,
		Treby:    treba.NewService(db, log),
		Uploads:  store,
		Backups:  backups,
	}, cfg, log)

	return &testEnv{
		db:     db,
		cfg:    cfg,
		auth:   authSvc,
		router: NewRouter(h, cfg, log, limits),
	}
}

// createUser stores a user with role and returns a bearer token for it.
func (env *testEnv) createUser(t *testing.T, email string, role database.Role) (*database.User, string) {
	t.Helper()
	u, err := env.auth.CreateUser(context.Background(), auth.NewUser{
		Email:    email,
		Name:     "Test " + string(role),
		Password: "correct horse",
		Role:     role,
	})
	require.NoError(t, err)
	token, _, err := env.auth.IssueToken(u)
	require.NoError(t, err)
	return u, token
}

// do sends a JSON request through the router.
func (env *testEnv) do(method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	var bodyReader io.Reader
	if body != nil {
		jsonData, _ := json.Marshal(body)
		bodyReader = bytes.NewReader(jsonData)
	}

	req := httptest.NewRequest(method, path, bodyReader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)
	return rr
}

func parseResponse(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), v), "body: %s", rr.Body.String())
}

func errorMessage(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var resp ErrorResponse
	parseResponse(t, rr, &resp)
	return resp.Error
}

// =============================================================================
// INFRASTRUCTURE
// =============================================================================

func TestHealthCheck(t *testing.T) {
	env := setupTest(t)

	rr := env.do(http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, rr.Code)

	var resp map[string]string
	parseResponse(t, rr, &resp)
	assert.Equal(t, "healthy", resp["status"])
}

func TestRequestIDHeader(t *testing.T) {
	env := setupTest(t)

	rr := env.do(http.MethodGet, "/health", nil, "")
	assert.Len(t, rr.Header().Get("X-Request-ID"), 36)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "6f1c1d5e-3a43-4b8e-9d0a-0d4f5a2b7c11")
	rr = httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)
	assert.Equal(t, "6f1c1d5e-3a43-4b8e-9d0a-0d4f5a2b7c11", rr.Header().Get("X-Request-ID"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "not a uuid\nX-Injected: 1")
	rr = httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)
	assert.NotContains(t, rr.Header().Get("X-Request-ID"), "Injected")
}

func TestCORSPreflight(t *testing.T) {
	env := setupTest(t)

	rr := env.do(http.MethodOptions, "/api/news", nil, "")
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestRecoveryMiddleware(t *testing.T) {
	handler := RecoveryMiddleware(logger.Discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "Internal server error", errorMessage(t, rr))
}

func TestNotFoundIsJSON(t *testing.T) {
	env := setupTest(t)

	rr := env.do(http.MethodGet, "/api/nope", nil, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "Not found", errorMessage(t, rr))
}

func TestRateLimit(t *testing.T) {
	env := setupTestWithLimits(t, Limiters{Login: NewIPRateLimiter(rate.Every(time.Hour), 2)})

	body := map[string]string{"email": "nobody@example.com", "password": "whatever1"}
	for i := 0; i < 2; i++ {
		rr := env.do(http.MethodPost, "/api/auth/login", body, "")
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	}

	rr := env.do(http.MethodPost, "/api/auth/login", body, "")
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("Retry-After"))
}

// =============================================================================
// AUTH
// =============================================================================

func TestLogin(t *testing.T) {
	env := setupTest(t)
	env.createUser(t, "admin@example.com", database.RoleAdmin)

	rr := env.do(http.MethodPost, "/api/auth/login",
		map[string]string{"email": "Admin@Example.com", "password": "correct horse"}, "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp struct {
		Token string        `json:"token"`
		User  database.User `json:"user"`
	}
	parseResponse(t, rr, &resp)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, database.RoleAdmin, resp.User.Role)
	assert.NotContains(t, rr.Body.String(), "password")

	rr = env.do(http.MethodGet, "/api/auth/me", nil, resp.Token)
	require.Equal(t, http.StatusOK, rr.Code)
	var me database.User
	parseResponse(t, rr, &me)
	assert.Equal(t, "admin@example.com", me.Email)
}

func TestLogin_WrongPassword(t *testing.T) {
	env := setupTest(t)
	env.createUser(t, "admin@example.com", database.RoleAdmin)

	rr := env.do(http.MethodPost, "/api/auth/login",
		map[string]string{"email": "admin@example.com", "password": "wrong password"}, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "Invalid email or password", errorMessage(t, rr))
}

func TestAuthMiddleware(t *testing.T) {
	env := setupTest(t)
	_, userToken := env.createUser(t, "user@example.com", database.RoleUser)
	_, editorToken := env.createUser(t, "editor@example.com", database.RoleEditor)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		want   int
	}{
		{"no token", http.MethodGet, "/api/auth/me", "", http.StatusUnauthorized},
		{"garbage token", http.MethodGet, "/api/auth/me", "garbage", http.StatusUnauthorized},
		{"user on staff route", http.MethodGet, "/api/menu/all", userToken, http.StatusForbidden},
		{"editor on staff route", http.MethodGet, "/api/menu/all", editorToken, http.StatusOK},
		{"editor on admin route", http.MethodGet, "/api/users", editorToken, http.StatusForbidden},
		{"anonymous write", http.MethodPost, "/api/news", "", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.do(tt.method, tt.path, nil, tt.token)
			assert.Equal(t, tt.want, rr.Code, rr.Body.String())
		})
	}
}

func TestUsers(t *testing.T) {
	env := setupTest(t)
	admin, token := env.createUser(t, "admin@example.com", database.RoleAdmin)

	rr := env.do(http.MethodPost, "/api/users", map[string]string{
		"email": "editor@example.com", "name": "Editor", "password": "long enough", "role": "EDITOR",
	}, token)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var created database.User
	parseResponse(t, rr, &created)

	rr = env.do(http.MethodPost, "/api/users", map[string]string{
		"email": "editor@example.com", "name": "Again", "password": "long enough", "role": "EDITOR",
	}, token)
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = env.do(http.MethodPost, "/api/users", map[string]string{
		"email": "short@example.com", "name": "Short", "password": "short", "role": "EDITOR",
	}, token)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = env.do(http.MethodGet, "/api/users", nil, token)
	require.Equal(t, http.StatusOK, rr.Code)
	var users []database.User
	parseResponse(t, rr, &users)
	assert.Len(t, users, 2)

	rr = env.do(http.MethodDelete, fmt.Sprintf("/api/users/%d", admin.ID), nil, token)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = env.do(http.MethodDelete, fmt.Sprintf("/api/users/%d", created.ID), nil, token)
	assert.Equal(t, http.StatusOK, rr.Code)
}

// =============================================================================
// CALENDAR
// =============================================================================

func TestGetDay_InvalidDate(t *testing.T) {
	env := setupTest(t)

	for _, date := range []string{"2024-13-01", "2024-02-30", "not-a-date", "2024-1-1"} {
		rr := env.do(http.MethodGet, "/api/calendar/"+date, nil, "")
		assert.Equal(t, http.StatusBadRequest, rr.Code, date)
		assert.Equal(t, "Invalid date format, expected YYYY-MM-DD", errorMessage(t, rr), date)
	}
}

func TestGetDay_CreatesMissingDay(t *testing.T) {
	env := setupTest(t)

	rr := env.do(http.MethodGet, "/api/calendar/2024-04-05", nil, "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var day database.CalendarDay
	parseResponse(t, rr, &day)
	assert.Equal(t, "2024-04-05", day.Date)
	assert.NotZero(t, day.ID)
	assert.NotNil(t, day.Saints)

	// A second read returns the same stored row.
	rr = env.do(http.MethodGet, "/api/calendar/2024-04-05", nil, "")
	var again database.CalendarDay
	parseResponse(t, rr, &again)
	assert.Equal(t, day.ID, again.ID)
}

func TestCalendarEditing(t *testing.T) {
	env := setupTest(t)
	_, token := env.createUser(t, "editor@example.com", database.RoleEditor)

	rr := env.do(http.MethodPut, "/api/calendar/2024-01-07", map[string]interface{}{
		"priority": "TWELVE_FEAST", "fastingType": "NONE", "isHoliday": true,
	}, token)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = env.do(http.MethodPost, "/api/calendar/2024-01-07/saints", map[string]interface{}{
		"name": "Nativity of Christ", "priority": "GREAT_SAINT",
	}, token)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var saint database.Saint
	parseResponse(t, rr, &saint)

	rr = env.do(http.MethodPost, "/api/calendar/2024-01-07/readings", map[string]interface{}{
		"type": "GOSPEL", "reference": "Mt 2:1-12",
	}, token)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = env.do(http.MethodGet, "/api/calendar/2024-01-07", nil, "")
	var day database.CalendarDay
	parseResponse(t, rr, &day)
	assert.True(t, day.IsHoliday)
	assert.Equal(t, database.DayPriorityTwelveFeast, day.Priority)
	require.Len(t, day.Saints, 1)
	assert.Equal(t, "Nativity of Christ", day.Saints[0].Name)
	assert.Len(t, day.Readings, 1)

	// Attach the same saint to another day, then detach it.
	rr = env.do(http.MethodPost, fmt.Sprintf("/api/calendar/2024-01-08/saints/%d", saint.ID), nil, token)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	rr = env.do(http.MethodDelete, fmt.Sprintf("/api/calendar/2024-01-08/saints/%d", saint.ID), nil, token)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = env.do(http.MethodGet, "/api/calendar/2024-01-08", nil, "")
	parseResponse(t, rr, &day)
	assert.Empty(t, day.Saints)

	rr = env.do(http.MethodPost, "/api/calendar/2024-01-08/saints/99999", nil, token)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = env.do(http.MethodDelete, "/api/calendar/saints/abc", nil, token)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestGetMonth(t *testing.T) {
	env := setupTest(t)
	_, token := env.createUser(t, "editor@example.com", database.RoleEditor)

	for _, date := range []string{"2024-02-01", "2024-02-29", "2024-03-01"} {
		rr := env.do(http.MethodPut, "/api/calendar/"+date, map[string]interface{}{"priority": "NORMAL"}, token)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	}

	rr := env.do(http.MethodGet, "/api/calendar/month/2024/2", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var days []database.CalendarDay
	parseResponse(t, rr, &days)
	require.Len(t, days, 2)
	assert.Equal(t, "2024-02-01", days[0].Date)
	assert.Equal(t, "2024-02-29", days[1].Date)

	rr = env.do(http.MethodGet, "/api/calendar/month/2024/13", nil, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestGetPaschalion(t *testing.T) {
	env := setupTest(t)

	rr := env.do(http.MethodGet, "/api/calendar/paschalion/2024", nil, "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Contains(t, rr.Body.String(), "2024-05-05")

	rr = env.do(http.MethodGet, "/api/calendar/paschalion/abc", nil, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

// =============================================================================
// SCHEDULE
// =============================================================================

func TestSchedule(t *testing.T) {
	env := setupTest(t)
	_, token := env.createUser(t, "editor@example.com", database.RoleEditor)

	rr := env.do(http.MethodPost, "/api/schedule", map[string]interface{}{
		"date": "2024-04-05", "time": "09:00", "title": "Divine Liturgy", "type": "LITURGY",
	}, token)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = env.do(http.MethodPost, "/api/schedule", map[string]interface{}{
		"date": "2024-04-05", "time": "17:00", "title": "Hidden rehearsal", "isVisible": false,
	}, token)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var hidden database.Schedule
	parseResponse(t, rr, &hidden)

	var entries []database.Schedule
	rr = env.do(http.MethodGet, "/api/schedule?date=2024-04-05", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	parseResponse(t, rr, &entries)
	require.Len(t, entries, 1)
	assert.Equal(t, "Divine Liturgy", entries[0].Title)

	rr = env.do(http.MethodGet, "/api/schedule?date=2024-04-05", nil, token)
	parseResponse(t, rr, &entries)
	assert.Len(t, entries, 2)

	rr = env.do(http.MethodGet, fmt.Sprintf("/api/schedule/%d", hidden.ID), nil, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = env.do(http.MethodGet, "/api/schedule/month/2024/4", nil, "")
	parseResponse(t, rr, &entries)
	assert.Len(t, entries, 1)

	rr = env.do(http.MethodPost, "/api/schedule", map[string]interface{}{
		"date": "2024-04-05", "time": "25:00", "title": "Bad",
	}, token)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = env.do(http.MethodGet, "/api/schedule?date=2024-04-31", nil, "")
	assert.Equal(t, "Invalid date format, expected YYYY-MM-DD", errorMessage(t, rr))

	rr = env.do(http.MethodDelete, fmt.Sprintf("/api/schedule/%d", hidden.ID), nil, token)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestScheduleICal(t *testing.T) {
	env := setupTest(t)
	_, token := env.createUser(t, "editor@example.com", database.RoleEditor)

	rr := env.do(http.MethodPost, "/api/schedule", map[string]interface{}{
		"date": "2024-04-05", "time": "09:00", "title": "Divine Liturgy",
	}, token)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = env.do(http.MethodGet, "/api/schedule/ical?from=2024-04-01&to=2024-04-30", nil, "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Contains(t, rr.Header().Get("Content-Type"), "text/calendar")
	assert.Contains(t, rr.Body.String(), "BEGIN:VCALENDAR")
	assert.Contains(t, rr.Body.String(), "Divine Liturgy")

	rr = env.do(http.MethodGet, "/api/schedule/ical?from=2024-01-01&to=2026-01-01", nil, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

// =============================================================================
// CONTENT
// =============================================================================

func TestNews(t *testing.T) {
	env := setupTest(t)
	editor, token := env.createUser(t, "editor@example.com", database.RoleEditor)

	rr := env.do(http.MethodPost, "/api/news", map[string]interface{}{
		"title": "Воскресное богослужение", "content": "...", "published": true,
	}, token)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var first database.News
	parseResponse(t, rr, &first)
	assert.Equal(t, "voskresnoe-bogosluzhenie", first.Slug)
	require.NotNil(t, first.AuthorID)
	assert.Equal(t, editor.ID, *first.AuthorID)
	assert.NotNil(t, first.PublishedAt)

	rr = env.do(http.MethodPost, "/api/news", map[string]interface{}{
		"title": "Воскресное богослужение", "content": "draft",
	}, token)
	require.Equal(t, http.StatusCreated, rr.Code)
	var draft database.News
	parseResponse(t, rr, &draft)
	assert.Equal(t, "voskresnoe-bogosluzhenie-2", draft.Slug)

	rr = env.do(http.MethodGet, "/api/news/slug/"+draft.Slug, nil, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	rr = env.do(http.MethodGet, "/api/news/slug/"+draft.Slug, nil, token)
	assert.Equal(t, http.StatusOK, rr.Code)

	var page NewsPage
	rr = env.do(http.MethodGet, "/api/news?page=1&limit=10", nil, "")
	parseResponse(t, rr, &page)
	assert.Equal(t, 1, page.Total)
	assert.Len(t, page.Items, 1)

	rr = env.do(http.MethodGet, "/api/news", nil, token)
	parseResponse(t, rr, &page)
	assert.Equal(t, 2, page.Total)

	rr = env.do(http.MethodPost, "/api/news", map[string]interface{}{"title": "  "}, token)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = env.do(http.MethodDelete, fmt.Sprintf("/api/news/%d", draft.ID), nil, token)
	assert.Equal(t, http.StatusOK, rr.Code)
	rr = env.do(http.MethodDelete, fmt.Sprintf("/api/news/%d", draft.ID), nil, token)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestPagesAndSitemap(t *testing.T) {
	env := setupTest(t)
	_, token := env.createUser(t, "editor@example.com", database.RoleEditor)

	rr := env.do(http.MethodPost, "/api/pages", map[string]interface{}{
		"title": "About", "slug": "about", "content": "Our parish", "published": true,
	}, token)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = env.do(http.MethodPost, "/api/pages", map[string]interface{}{
		"title": "Secret", "content": "wip",
	}, token)
	require.Equal(t, http.StatusCreated, rr.Code)
	var secret database.Page
	parseResponse(t, rr, &secret)

	rr = env.do(http.MethodGet, "/api/pages/about", nil, "")
	assert.Equal(t, http.StatusOK, rr.Code)
	rr = env.do(http.MethodGet, "/api/pages/secret", nil, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = env.do(http.MethodGet, "/api/sitemap", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var entries []database.SitemapEntry
	parseResponse(t, rr, &entries)
	require.Len(t, entries, 1)
	assert.Equal(t, "about", entries[0].Slug)

	rr = env.do(http.MethodPut, fmt.Sprintf("/api/pages/id/%d", secret.ID), map[string]interface{}{
		"title": "Secret", "slug": "about", "content": "done", "published": true,
	}, token)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	parseResponse(t, rr, &secret)
	assert.Equal(t, "about-2", secret.Slug)
}

func TestMenuTree(t *testing.T) {
	env := setupTest(t)
	_, token := env.createUser(t, "editor@example.com", database.RoleEditor)

	create := func(body map[string]interface{}) database.MenuItem {
		rr := env.do(http.MethodPost, "/api/menu", body, token)
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
		var m database.MenuItem
		parseResponse(t, rr, &m)
		return m
	}

	parent := create(map[string]interface{}{"title": "Parish", "order": 1})
	create(map[string]interface{}{"title": "History", "url": "/history", "parentId": parent.ID})
	create(map[string]interface{}{"title": "Hidden", "url": "/x", "parentId": parent.ID, "isVisible": false})
	other := create(map[string]interface{}{"title": "Contacts", "url": "/contacts", "order": 0})

	rr := env.do(http.MethodGet, "/api/menu", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var tree []database.MenuItem
	parseResponse(t, rr, &tree)
	require.Len(t, tree, 2)
	assert.Equal(t, "Contacts", tree[0].Title)
	require.Len(t, tree[1].Children, 1)
	assert.Equal(t, "History", tree[1].Children[0].Title)

	rr = env.do(http.MethodPut, "/api/menu/reorder", map[string]interface{}{
		"items": []map[string]interface{}{
			{"id": parent.ID, "order": 0},
			{"id": other.ID, "order": 1},
		},
	}, token)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = env.do(http.MethodGet, "/api/menu", nil, "")
	parseResponse(t, rr, &tree)
	assert.Equal(t, "Parish", tree[0].Title)

	rr = env.do(http.MethodPut, "/api/menu/reorder", map[string]interface{}{
		"items": []map[string]interface{}{{"id": 9999, "order": 0}},
	}, token)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestCarousel(t *testing.T) {
	env := setupTest(t)
	_, token := env.createUser(t, "editor@example.com", database.RoleEditor)

	rr := env.do(http.MethodPost, "/api/carousel", map[string]interface{}{"imageUrl": "/uploads/a.png"}, token)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	rr = env.do(http.MethodPost, "/api/carousel", map[string]interface{}{"imageUrl": "/uploads/b.png", "isActive": false}, token)
	require.Equal(t, http.StatusCreated, rr.Code)
	rr = env.do(http.MethodPost, "/api/carousel", map[string]interface{}{"title": "no image"}, token)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	var slides []database.CarouselSlide
	rr = env.do(http.MethodGet, "/api/carousel", nil, "")
	parseResponse(t, rr, &slides)
	assert.Len(t, slides, 1)

	rr = env.do(http.MethodGet, "/api/carousel/all", nil, token)
	parseResponse(t, rr, &slides)
	assert.Len(t, slides, 2)
}

// =============================================================================
// MEDIA
// =============================================================================

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00\x1f\x15\xc4\x89")

func multipartBody(t *testing.T, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "icon.png")
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestUploadAndServe(t *testing.T) {
	env := setupTest(t)
	_, token := env.createUser(t, "editor@example.com", database.RoleEditor)

	body, contentType := multipartBody(t, pngHeader)
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var file upload.File
	parseResponse(t, rr, &file)
	assert.Equal(t, "image/png", file.MimeType)
	assert.True(t, strings.HasPrefix(file.URL, "/uploads/"))

	rr = env.do(http.MethodGet, file.URL, nil, "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, pngHeader, rr.Body.Bytes())

	rr = env.do(http.MethodGet, "/uploads/", nil, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestUpload_Rejects(t *testing.T) {
	env := setupTest(t)
	_, token := env.createUser(t, "editor@example.com", database.RoleEditor)

	send := func(content []byte) *httptest.ResponseRecorder {
		body, contentType := multipartBody(t, content)
		req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
		req.Header.Set("Content-Type", contentType)
		req.Header.Set("Authorization", "Bearer "+token)
		rr := httptest.NewRecorder()
		env.router.ServeHTTP(rr, req)
		return rr
	}

	rr := send([]byte("#!/bin/sh\necho hi\n"))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	big := append(append([]byte{}, pngHeader...), bytes.Repeat([]byte{0}, 2<<20)...)
	rr = send(big)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
}

// =============================================================================
// TREBY
// =============================================================================

func TestTrebaFlow(t *testing.T) {
	env := setupTest(t)
	_, token := env.createUser(t, "editor@example.com", database.RoleEditor)

	rr := env.do(http.MethodGet, "/api/treby/price?type=HEALTH&period=WEEK&names=2", nil, "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var price map[string]int64
	parseResponse(t, rr, &price)
	assert.Equal(t, int64(600), price["price"])

	rr = env.do(http.MethodGet, "/api/treby/price?type=MOLEBEN&period=YEAR", nil, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = env.do(http.MethodPost, "/api/treby", map[string]interface{}{
		"type": "HEALTH", "period": "ONCE", "names": []string{"Иоанн", "  Мария "},
	}, "")
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var order database.Treba
	parseResponse(t, rr, &order)
	assert.Equal(t, database.TrebaPending, order.Status)
	assert.Equal(t, []string{"Иоанн", "Мария"}, order.Names)

	rr = env.do(http.MethodGet, "/api/treby/order/"+strings.ToLower(order.OrderNumber), nil, "")
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = env.do(http.MethodGet, "/api/treby", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = env.do(http.MethodPatch, fmt.Sprintf("/api/treby/%d/status", order.ID),
		map[string]string{"status": "PAID"}, token)
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = env.do(http.MethodPost, fmt.Sprintf("/api/treby/%d/payment", order.ID),
		map[string]string{"paymentId": "pay-1"}, token)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	parseResponse(t, rr, &order)
	assert.Equal(t, database.TrebaPaid, order.Status)

	rr = env.do(http.MethodPatch, fmt.Sprintf("/api/treby/%d/status", order.ID),
		map[string]string{"status": "IN_PROGRESS"}, token)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = env.do(http.MethodPatch, fmt.Sprintf("/api/treby/%d/status", order.ID),
		map[string]string{"status": "PENDING"}, token)
	assert.Equal(t, http.StatusConflict, rr.Code)

	var list []database.Treba
	rr = env.do(http.MethodGet, "/api/treby?status=in_progress", nil, token)
	require.Equal(t, http.StatusOK, rr.Code)
	parseResponse(t, rr, &list)
	assert.Len(t, list, 1)

	rr = env.do(http.MethodGet, "/api/treby?status=bogus", nil, token)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

// =============================================================================
// BACKUPS
// =============================================================================

func TestBackups(t *testing.T) {
	env := setupTest(t)
	_, token := env.createUser(t, "admin@example.com", database.RoleAdmin)
	_, editorToken := env.createUser(t, "editor@example.com", database.RoleEditor)

	rr := env.do(http.MethodPost, "/api/backups", nil, editorToken)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = env.do(http.MethodPost, "/api/backups", nil, token)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var info backup.Info
	parseResponse(t, rr, &info)
	assert.Equal(t, backup.TypeManual, info.Type)

	rr = env.do(http.MethodGet, "/api/backups", nil, token)
	var list []backup.Info
	parseResponse(t, rr, &list)
	require.Len(t, list, 1)

	rr = env.do(http.MethodGet, "/api/backups/"+info.Filename, nil, token)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/zip", rr.Header().Get("Content-Type"))
	assert.Equal(t, "PK", rr.Body.String()[:2])

	rr = env.do(http.MethodGet, "/api/backups/..%2Fparish.db", nil, token)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = env.do(http.MethodPost, "/api/backups/"+info.Filename+"/restore", nil, token)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Contains(t, rr.Body.String(), `"restartRequired":true`)

	rr = env.do(http.MethodDelete, "/api/backups/"+info.Filename, nil, token)
	assert.Equal(t, http.StatusOK, rr.Code)
	rr = env.do(http.MethodDelete, "/api/backups/"+info.Filename, nil, token)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
