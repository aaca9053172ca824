package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	authrepo "github.com/smallbiznis/streamhub/internal/auth/repository"
	authservice "github.com/smallbiznis/streamhub/internal/auth/service"
	"github.com/smallbiznis/streamhub/internal/auth/session"
	"github.com/smallbiznis/streamhub/internal/cache"
	catalogdomain "github.com/smallbiznis/streamhub/internal/catalog/domain"
	catalogrepo "github.com/smallbiznis/streamhub/internal/catalog/repository"
	catalogservice "github.com/smallbiznis/streamhub/internal/catalog/service"
	"github.com/smallbiznis/streamhub/internal/clock"
	"github.com/smallbiznis/streamhub/internal/config"
	entitlementrepo "github.com/smallbiznis/streamhub/internal/entitlement/repository"
	entitlementservice "github.com/smallbiznis/streamhub/internal/entitlement/service"
	"github.com/smallbiznis/streamhub/internal/migration"
	"github.com/smallbiznis/streamhub/internal/observability"
	obsmetrics "github.com/smallbiznis/streamhub/internal/observability/metrics"
	organizationrepo "github.com/smallbiznis/streamhub/internal/organization/repository"
	planrepo "github.com/smallbiznis/streamhub/internal/plan/repository"
	planservice "github.com/smallbiznis/streamhub/internal/plan/service"
	"github.com/smallbiznis/streamhub/internal/ratelimit"
	"github.com/smallbiznis/streamhub/internal/realtime"
	"github.com/smallbiznis/streamhub/internal/signup"
	subscriptionrepo "github.com/smallbiznis/streamhub/internal/subscription/repository"
	subscriptionservice "github.com/smallbiznis/streamhub/internal/subscription/service"
	taskrepo "github.com/smallbiznis/streamhub/internal/task/repository"
	taskservice "github.com/smallbiznis/streamhub/internal/task/service"
	userdomain "github.com/smallbiznis/streamhub/internal/user/domain"
	userrepo "github.com/smallbiznis/streamhub/internal/user/repository"
	userservice "github.com/smallbiznis/streamhub/internal/user/service"
	"github.com/smallbiznis/streamhub/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type harness struct {
	db     *gorm.DB
	node   *snowflake.Node
	server *Server
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, migration.AutoMigrate(conn))

	node, err := snowflake.NewNode(7)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	log := zap.NewNop()
	hub := realtime.NewHub()
	metrics := obsmetrics.NewNoop()
	cfg := config.Config{Bootstrap: config.BootstrapConfig{
		OrgSlug: config.DefaultOrgSlug,
		OrgName: config.DefaultOrgName,
	}}
	plans := config.NewStaticPlanCatalogHolder(config.DefaultPlanCatalog())

	accounts, sessions := authrepo.New(conn)
	auth := authservice.New(authservice.ServiceParam{
		Log:         log,
		Repo:        accounts,
		SessionRepo: sessions,
		GenID:       node,
		Clock:       clk,
	})

	users := userrepo.New(conn)
	subs := subscriptionrepo.Provide()
	provisioner := signup.NewProvisioner(signup.ProvisionerParam{
		DB:       conn,
		Log:      log,
		Config:   cfg,
		Plans:    plans,
		GenID:    node,
		Clock:    clk,
		OrgRepo:  organizationrepo.NewRepository(conn),
		PlanRepo: planrepo.Provide(),
		UserRepo: users,
		SubRepo:  subs,
		Metrics:  metrics,
	})

	catalogCache, err := cache.NewCatalogCache()
	require.NoError(t, err)
	catalogRepo := catalogrepo.New(conn)

	srv := NewServer(ServerParams{
		Gin:       NewEngine(observability.Config{}, nil),
		Cfg:       cfg,
		Log:       log,
		Authsvc:   auth,
		Sessions:  session.NewManager(cfg),
		Signupsvc: signup.NewService(log, auth, plans, provisioner),
		UserSvc:   userservice.NewService(log, users, clk),
		SubscriptionSvc: subscriptionservice.NewService(subscriptionservice.ServiceParam{
			DB: conn, Log: log, Repo: subs,
		}),
		PlanSvc: planservice.NewService(conn, planrepo.Provide()),
		CatalogSvc: catalogservice.NewService(catalogservice.ServiceParam{
			Log: log, Repo: catalogRepo, GenID: node, Clock: clk, Cache: catalogCache, Publisher: hub,
		}),
		EntitlementSvc: entitlementservice.NewService(entitlementservice.ServiceParam{
			DB:          conn,
			Log:         log,
			GenID:       node,
			Clock:       clk,
			Repo:        entitlementrepo.Provide(),
			SubRepo:     subs,
			CatalogRepo: catalogRepo,
			Metrics:     metrics,
			Publisher:   hub,
		}),
		TaskSvc: taskservice.New(taskservice.Params{
			Log: log, GenID: node, Clock: clk, Repo: taskrepo.New(conn), Publisher: hub,
		}),
		Changes:    hub,
		ObsMetrics: metrics,
	})
	srv.heartbeatInterval = 50 * time.Millisecond
	srv.RegisterAuthRoutes()
	srv.RegisterAPIRoutes()
	srv.RegisterAdminRoutes()
	srv.RegisterFallback()

	return &harness{db: conn, node: node, server: srv}
}

func (h *harness) do(t *testing.T, method, path, token string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var payload bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&payload).Encode(body))
	}
	req := httptest.NewRequest(method, path, &payload)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	h.server.Engine().ServeHTTP(w, req)
	return w
}

// signup registers a viewer and returns the session token and user id.
func (h *harness) signup(t *testing.T, email, plan string) (string, snowflake.ID) {
	t.Helper()
	w := h.do(t, http.MethodPost, "/auth/signup", "", SignupRequest{
		Email:    email,
		Password: "correct-horse",
		FullName: "Viewer",
		Plan:     plan,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		Token string `json:"token"`
		User  struct {
			ID snowflake.ID `json:"id"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token, resp.User.ID
}

func (h *harness) makeAdmin(t *testing.T, id snowflake.ID) {
	t.Helper()
	require.NoError(t, h.db.Model(&userdomain.User{}).Where("id = ?", id).Update("is_admin", true).Error)
}

func (h *harness) channel(t *testing.T, name string, cost int64) snowflake.ID {
	t.Helper()
	ch := catalogdomain.Channel{
		ID:             h.node.Generate(),
		OrganizationID: 1,
		Name:           name,
		CreditsCost:    cost,
		IsActive:       true,
	}
	require.NoError(t, h.db.Create(&ch).Error)
	return ch.ID
}

func (h *harness) content(t *testing.T, title string, cost int64) snowflake.ID {
	t.Helper()
	item := catalogdomain.ContentItem{
		ID:             h.node.Generate(),
		OrganizationID: 1,
		Title:          title,
		Type:           catalogdomain.ContentTypeMovie,
		CreditsCost:    cost,
		IsActive:       true,
	}
	require.NoError(t, h.db.Create(&item).Error)
	return item.ID
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorPayload {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp.Error
}

func TestSignupThenReadSubscription(t *testing.T) {
	h := newHarness(t)
	token, _ := h.signup(t, "viewer@example.com", "basic")

	w := h.do(t, http.MethodGet, "/api/me/subscription", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var sub struct {
		CurrentCredits      int64  `json:"current_credits"`
		MonthlyCreditsLimit int64  `json:"monthly_credits_limit"`
		Status              string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sub))
	assert.Equal(t, int64(50), sub.CurrentCredits)
	assert.Equal(t, int64(50), sub.MonthlyCreditsLimit)
	assert.Equal(t, "active", sub.Status)

	w = h.do(t, http.MethodGet, "/auth/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "viewer@example.com")
}

func TestSignupErrors(t *testing.T) {
	h := newHarness(t)
	h.signup(t, "taken@example.com", "")

	w := h.do(t, http.MethodPost, "/auth/signup", "", SignupRequest{Email: "taken@example.com", Password: "other-password"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "conflict", decodeError(t, w).Type)

	w = h.do(t, http.MethodPost, "/auth/signup", "", SignupRequest{Email: "new@example.com", Password: "correct-horse", Plan: "gold"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	payload := decodeError(t, w)
	assert.Equal(t, "validation_error", payload.Type)
	require.Len(t, payload.Errors, 1)
	assert.Equal(t, "plan", payload.Errors[0].Field)
}

func TestLoginLogout(t *testing.T) {
	h := newHarness(t)
	h.signup(t, "login@example.com", "free")

	w := h.do(t, http.MethodPost, "/auth/login", "", LoginRequest{Email: "login@example.com", Password: "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = h.do(t, http.MethodPost, "/auth/login", "", LoginRequest{Email: "login@example.com", Password: "correct-horse"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Set-Cookie"), session.DefaultCookieName+"=")

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	w = h.do(t, http.MethodPost, "/auth/logout", resp.Token, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = h.do(t, http.MethodGet, "/api/channels", resp.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAPIRequiresSession(t *testing.T) {
	h := newHarness(t)

	w := h.do(t, http.MethodGet, "/api/channels", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "unauthorized", decodeError(t, w).Type)

	w = h.do(t, http.MethodGet, "/api/channels", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestWatchFlow(t *testing.T) {
	h := newHarness(t)
	token, _ := h.signup(t, "watcher@example.com", "basic")
	news := h.channel(t, "News", 20)
	movie := h.content(t, "Long Movie", 35)

	w := h.do(t, http.MethodPost, "/api/watch/channels/"+news.String(), token, nil, HeaderIdempotencyKey, "play-1")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var result struct {
		Status  string `json:"status"`
		Balance int64  `json:"balance"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, "accepted", result.Status)
	assert.Equal(t, int64(30), result.Balance)

	w = h.do(t, http.MethodPost, "/api/watch/channels/"+news.String(), token, nil, HeaderIdempotencyKey, "play-1")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, "deduplicated", result.Status)
	assert.Equal(t, int64(30), result.Balance)

	w = h.do(t, http.MethodPost, "/api/watch/content/"+movie.String(), token, nil, HeaderIdempotencyKey, "play-1")
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "conflict", decodeError(t, w).Type)

	w = h.do(t, http.MethodPost, "/api/watch/content/"+movie.String(), token, nil)
	require.Equal(t, http.StatusPaymentRequired, w.Code)
	payload := decodeError(t, w)
	assert.Equal(t, "insufficient_credits", payload.Type)
	require.NotNil(t, payload.Balance)
	assert.Equal(t, int64(30), *payload.Balance)

	w = h.do(t, http.MethodPost, "/api/watch/content/"+h.node.Generate().String(), token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = h.do(t, http.MethodPost, "/api/watch/channels/not-an-id", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = h.do(t, http.MethodGet, "/api/me/history", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var history struct {
		History []struct {
			CreditsSpent int64 `json:"credits_spent"`
		} `json:"history"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &history))
	require.Len(t, history.History, 1)
	assert.Equal(t, int64(20), history.History[0].CreditsSpent)
}

func TestWatchWithoutSubscription(t *testing.T) {
	h := newHarness(t)
	token, userID := h.signup(t, "lapsed@example.com", "basic")
	require.NoError(t, h.db.Exec("UPDATE user_subscriptions SET status = 'inactive' WHERE user_id = ?", userID).Error)
	ch := h.channel(t, "Sports", 5)

	w := h.do(t, http.MethodPost, "/api/watch/channels/"+ch.String(), token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "no_active_subscription", decodeError(t, w).Type)
}

type fakeLimiter struct {
	allowed bool
	calls   int
}

func (f *fakeLimiter) Enabled() bool { return true }

func (f *fakeLimiter) AllowUser(context.Context, snowflake.ID) (*ratelimit.Result, error) {
	f.calls++
	return &ratelimit.Result{Allowed: f.allowed, Limit: 5, RetryAfter: 1500 * time.Millisecond}, nil
}

func TestWatchRateLimited(t *testing.T) {
	h := newHarness(t)
	limiter := &fakeLimiter{}
	h.server.watchLimiter = limiter
	token, _ := h.signup(t, "fast@example.com", "basic")
	ch := h.channel(t, "News", 1)

	w := h.do(t, http.MethodPost, "/api/watch/channels/"+ch.String(), token, nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "rate_limited", decodeError(t, w).Type)
	assert.Equal(t, "2", w.Header().Get("Retry-After"))

	var sub struct {
		CurrentCredits int64 `json:"current_credits"`
	}
	w = h.do(t, http.MethodGet, "/api/me/subscription", token, nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sub))
	assert.Equal(t, int64(50), sub.CurrentCredits)

	limiter.allowed = true
	w = h.do(t, http.MethodPost, "/api/watch/channels/"+ch.String(), token, nil)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, 2, limiter.calls)
}

func TestCatalogListing(t *testing.T) {
	h := newHarness(t)
	token, _ := h.signup(t, "browse@example.com", "")
	h.channel(t, "World News", 1)
	h.channel(t, "Cartoons", 1)

	w := h.do(t, http.MethodGet, "/api/channels?q=news", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp channelListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Channels, 1)
	assert.Equal(t, "World News", resp.Channels[0].Name)

	w = h.do(t, http.MethodGet, "/api/content?type=podcast", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	h := newHarness(t)
	token, userID := h.signup(t, "staff@example.com", "")

	w := h.do(t, http.MethodGet, "/admin/users", token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "forbidden", decodeError(t, w).Type)

	h.makeAdmin(t, userID)
	w = h.do(t, http.MethodGet, "/admin/users", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "staff@example.com")

	w = h.do(t, http.MethodGet, "/admin/plans", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var plans planListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &plans))
	assert.Len(t, plans.Plans, 3)

	w = h.do(t, http.MethodDelete, "/admin/users/"+userID.String(), token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAdminChannelLifecycle(t *testing.T) {
	h := newHarness(t)
	token, userID := h.signup(t, "ops@example.com", "")
	h.makeAdmin(t, userID)

	w := h.do(t, http.MethodPost, "/admin/channels", token, map[string]any{"name": " ", "credits_cost": -1})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Len(t, decodeError(t, w).Errors, 2)

	w = h.do(t, http.MethodPost, "/admin/channels", token, map[string]any{"name": "Docs", "credits_cost": 3})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created catalogdomain.Channel
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.True(t, created.IsActive)

	w = h.do(t, http.MethodPatch, "/admin/channels/"+created.ID.String(), token, map[string]any{"is_active": false})
	require.Equal(t, http.StatusOK, w.Code)

	w = h.do(t, http.MethodGet, "/api/channels", token, nil)
	var listed channelListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listed))
	assert.Empty(t, listed.Channels)

	w = h.do(t, http.MethodGet, "/admin/channels", token, nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listed))
	assert.Len(t, listed.Channels, 1)

	w = h.do(t, http.MethodDelete, "/admin/channels/"+created.ID.String(), token, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = h.do(t, http.MethodDelete, "/admin/channels/"+created.ID.String(), token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTasksAreScopedToCaller(t *testing.T) {
	h := newHarness(t)
	alice, _ := h.signup(t, "alice@example.com", "")
	bob, _ := h.signup(t, "bob@example.com", "")

	w := h.do(t, http.MethodPost, "/api/tasks", alice, map[string]any{"title": "Finish season 2"})
	require.Equal(t, http.StatusCreated, w.Code)
	var task struct {
		ID snowflake.ID `json:"id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &task))

	w = h.do(t, http.MethodPatch, "/api/tasks/"+task.ID.String(), bob, map[string]any{"completed": true})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = h.do(t, http.MethodGet, "/api/tasks", bob, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"tasks":[]}`, w.Body.String())

	w = h.do(t, http.MethodPatch, "/api/tasks/"+task.ID.String(), alice, map[string]any{"completed": true})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"completed":true`)

	w = h.do(t, http.MethodPost, "/api/tasks", alice, map[string]any{"title": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRealtimeRejectsUnknownTable(t *testing.T) {
	h := newHarness(t)
	token, _ := h.signup(t, "rt@example.com", "")

	w := h.do(t, http.MethodGet, "/api/realtime/accounts", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "table", decodeError(t, w).Errors[0].Field)
}

func TestRealtimeStreamsOwnTaskChanges(t *testing.T) {
	h := newHarness(t)
	alice, _ := h.signup(t, "stream@example.com", "")
	bob, _ := h.signup(t, "other@example.com", "")

	ts := httptest.NewServer(h.server.Engine())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/realtime/tasks", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+alice)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "retry: 2000\n", line)

	// bob's task must not reach alice's stream
	w := h.do(t, http.MethodPost, "/api/tasks", bob, map[string]any{"title": "bob"})
	require.Equal(t, http.StatusCreated, w.Code)
	w = h.do(t, http.MethodPost, "/api/tasks", alice, map[string]any{"title": "alice"})
	require.Equal(t, http.StatusCreated, w.Code)

	var data string
	for data == "" {
		line, err = reader.ReadString('\n')
		require.NoError(t, err)
		if strings.HasPrefix(line, "data: ") {
			data = strings.TrimPrefix(strings.TrimSpace(line), "data: ")
		}
	}

	var change realtime.Change
	require.NoError(t, json.Unmarshal([]byte(data), &change))
	assert.Equal(t, realtime.TableTasks, change.Table)
	assert.Equal(t, realtime.OpInsert, change.Op)

	var created struct {
		ID snowflake.ID `json:"id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, created.ID, change.RecordID)
}

func TestUnknownRouteUsesEnvelope(t *testing.T) {
	h := newHarness(t)
	w := h.do(t, http.MethodGet, "/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", decodeError(t, w).Type)
}
