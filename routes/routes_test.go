package routes

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"launchpad/command"
	"launchpad/directory"
	"launchpad/models"
	"launchpad/oracle"
	"launchpad/realtime"
	"launchpad/session"
	"launchpad/store"
	"launchpad/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "routes-test-secret-0123"

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

type testApp struct {
	app *fiber.App
	mem *store.MemoryStore
	hub *realtime.Hub
}

func strPtr(s string) *string { return &s }

func newTestApp(t *testing.T, rateLimit int) *testApp {
	t.Helper()
	l := logrus.New()
	l.SetOutput(io.Discard)
	logger := logrus.NewEntry(l)

	mem := store.NewMemoryStore()
	mem.PutTeam(models.Team{ID: "T1", Name: "Rocket", Stage: models.StagePrototype})
	mem.PutProfile(models.Profile{ID: "u-alice", Name: "Alice", Role: models.RoleBuilder, TeamID: strPtr("T1")})
	mem.PutProfile(models.Profile{ID: "u-carol", Name: "Carol", Role: models.RoleMentor})
	mem.PutProfile(models.Profile{ID: "u-mia", Name: "Mia", Role: models.RoleMentor})
	mem.PutProfile(models.Profile{ID: "u-gina", Name: "Gina", Role: models.RoleGuest})

	hub := realtime.NewHub()
	t.Cleanup(hub.Close)
	feed := store.WithFeed(mem, realtime.FeedPublisher{Transport: hub}, logger)
	dir := directory.New(mem, time.Minute)
	d := command.NewDispatcher(command.Builtins(), feed, dir, oracle.Offline{}, logger)

	app := fiber.New()
	SetupRoutes(app, Deps{
		Store:      feed,
		Dispatcher: d,
		Session: session.Deps{
			Dispatcher: d,
			Layer:      realtime.NewLayer(hub, logger),
			Directory:  dir,
			Logger:     logger,
		},
		JWTSecret:        secret,
		CommandRateLimit: rateLimit,
		Logger:           logger,
	})
	return &testApp{app: app, mem: mem, hub: hub}
}

func (ta *testApp) do(t *testing.T, method, path, actorID, body string) (int, envelope) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if actorID != "" {
		token, err := utils.GenerateToken(actorID, secret, time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := ta.app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 && strings.Contains(resp.Header.Get("Content-Type"), "json") {
		require.NoError(t, json.Unmarshal(raw, &env), string(raw))
	}
	return resp.StatusCode, env
}

func TestCommandEndpoint(t *testing.T) {
	ta := newTestApp(t, 100)

	code, env := ta.do(t, "POST", "/api/v1/oracle/command", "u-alice", `{"input":"/update \"Completed login flow\""}`)
	require.Equal(t, http.StatusOK, code)
	var res command.Result
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.True(t, res.Success)
	assert.Equal(t, "update", res.Command)
	assert.Len(t, ta.mem.Updates(), 1)

	code, env = ta.do(t, "POST", "/api/v1/oracle/command", "u-gina", `{"input":"/broadcast \"hello\""}`)
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.False(t, res.Success)
	assert.Equal(t, command.AuthorizationFailure, res.Kind)
	assert.Contains(t, res.Message, "permission")
	assert.Empty(t, ta.mem.Messages())

	code, _ = ta.do(t, "POST", "/api/v1/oracle/command", "u-alice", `{"input":""}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = ta.do(t, "POST", "/api/v1/oracle/command", "", `{"input":"/help"}`)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestCommandEndpointRateLimit(t *testing.T) {
	ta := newTestApp(t, 2)
	var codes []int
	for i := 0; i < 3; i++ {
		code, _ := ta.do(t, "POST", "/api/v1/oracle/command", "u-alice", `{"input":"/help"}`)
		codes = append(codes, code)
	}
	assert.Equal(t, []int{200, 200, 429}, codes)

	code, _ := ta.do(t, "POST", "/api/v1/oracle/command", "u-carol", `{"input":"/help"}`)
	assert.Equal(t, http.StatusOK, code, "limits are per actor")
}

func TestListCommands(t *testing.T) {
	ta := newTestApp(t, 100)
	code, env := ta.do(t, "GET", "/api/v1/oracle/commands", "u-gina", "")
	require.Equal(t, http.StatusOK, code)

	var cmds []struct {
		Name string `json:"name"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &cmds))
	var names []string
	for _, c := range cmds {
		names = append(names, c.Name)
	}
	assert.ElementsMatch(t, []string{"help", "status", "find", "connect", "resources", "progress"}, names)
}

func TestInboxAndMarkRead(t *testing.T) {
	ta := newTestApp(t, 100)
	code, _ := ta.do(t, "POST", "/api/v1/oracle/command", "u-carol", `{"input":"/message @alice ping"}`)
	require.Equal(t, http.StatusOK, code)

	code, env := ta.do(t, "GET", "/api/v1/messages?unread=true", "u-alice", "")
	require.Equal(t, http.StatusOK, code)
	var msgs []models.Message
	require.NoError(t, json.Unmarshal(env.Data, &msgs))
	require.Len(t, msgs, 1)
	assert.Equal(t, "ping", msgs[0].Content)

	path := "/api/v1/messages/" + msgs[0].ID + "/read"
	var marked struct {
		Changed bool `json:"changed"`
	}
	code, env = ta.do(t, "PUT", path, "u-alice", "")
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(env.Data, &marked))
	assert.True(t, marked.Changed)

	code, env = ta.do(t, "PUT", path, "u-alice", "")
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(env.Data, &marked))
	assert.False(t, marked.Changed)

	code, _ = ta.do(t, "PUT", path, "u-gina", "")
	assert.Equal(t, http.StatusNotFound, code, "only recipients can mark a message read")

	code, env = ta.do(t, "GET", "/api/v1/messages?unread=true", "u-alice", "")
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(env.Data, &msgs))
	assert.Empty(t, msgs)
}

func TestSharedRoleMessageCannotBeMarkedRead(t *testing.T) {
	ta := newTestApp(t, 100)
	code, env := ta.do(t, "POST", "/api/v1/oracle/command", "u-alice", `{"input":"/message mentors review our deck"}`)
	require.Equal(t, http.StatusOK, code)
	var res command.Result
	require.NoError(t, json.Unmarshal(env.Data, &res))
	require.True(t, res.Success, res.Message)

	unread := func(actorID string) []models.Message {
		code, env := ta.do(t, "GET", "/api/v1/messages?unread=true", actorID, "")
		require.Equal(t, http.StatusOK, code)
		var msgs []models.Message
		require.NoError(t, json.Unmarshal(env.Data, &msgs))
		return msgs
	}

	carolInbox := unread("u-carol")
	require.Len(t, carolInbox, 1)
	assert.False(t, carolInbox[0].Directed())

	code, _ = ta.do(t, "PUT", "/api/v1/messages/"+carolInbox[0].ID+"/read", "u-carol", "")
	assert.Equal(t, http.StatusConflict, code)

	miaInbox := unread("u-mia")
	require.Len(t, miaInbox, 1, "one mentor reading must not hide the row from another")
	assert.Equal(t, carolInbox[0].ID, miaInbox[0].ID)
	assert.Nil(t, ta.mem.Messages()[0].ReadAt)
}

func TestTeamHealthDashboard(t *testing.T) {
	ta := newTestApp(t, 100)

	code, _ := ta.do(t, "GET", "/api/v1/dashboard/teams", "u-alice", "")
	assert.Equal(t, http.StatusForbidden, code)

	code, env := ta.do(t, "GET", "/api/v1/dashboard/teams", "u-carol", "")
	require.Equal(t, http.StatusOK, code)
	var summary struct {
		TeamCount int `json:"team_count"`
		AtRisk    int `json:"at_risk"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &summary))
	assert.Equal(t, 1, summary.TeamCount)
	assert.Equal(t, 1, summary.AtRisk)
}

func TestWebsocketRequiresUpgrade(t *testing.T) {
	ta := newTestApp(t, 100)
	code, _ := ta.do(t, "GET", "/ws/oracle", "u-alice", "")
	assert.Equal(t, http.StatusUpgradeRequired, code)
}
