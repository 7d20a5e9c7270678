package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	serverrepo "github.com/smallbiznis/clanbot/internal/chatserver/repository"
	serverservice "github.com/smallbiznis/clanbot/internal/chatserver/service"
	clanrepo "github.com/smallbiznis/clanbot/internal/clan/repository"
	clanservice "github.com/smallbiznis/clanbot/internal/clan/service"
	"github.com/smallbiznis/clanbot/internal/clock"
	"github.com/smallbiznis/clanbot/internal/command"
	"github.com/smallbiznis/clanbot/internal/config"
	"github.com/smallbiznis/clanbot/internal/lock"
	"github.com/smallbiznis/clanbot/internal/member/directory"
	memberrepo "github.com/smallbiznis/clanbot/internal/member/repository"
	memberservice "github.com/smallbiznis/clanbot/internal/member/service"
	"github.com/smallbiznis/clanbot/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestServer(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	_, gw := dbtest.New(t)
	node, err := snowflake.NewNode(3)
	require.NoError(t, err)
	log := zap.NewNop()

	servers := serverservice.New(serverservice.Params{Gateway: gw, Log: log, Repo: serverrepo.Provide()})
	members := memberservice.New(memberservice.Params{Gateway: gw, Log: log, Repo: memberrepo.Provide(), Directory: directory.NewHinted()})
	bot := config.NewStaticBotConfigHolder(config.BotConfig{Status: "Registrando clãs", AdminIDs: []string{"999"}})
	clans := clanservice.New(clanservice.Params{
		Gateway: gw,
		Log:     log,
		Clock:   clock.NewFakeClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)),
		GenID:   node,
		Repo:    clanrepo.Provide(),
		Servers: servers,
		Members: members,
		Locker:  lock.NewLocal(time.Second),
		Bot:     bot,
	})

	engine := gin.New()
	engine.Use(ErrorHandlingMiddleware())
	NewServer(ServerParams{
		Gin:      engine,
		Cfg:      config.Config{AppName: "clanbot", AppVersion: "test"},
		Commands: command.NewRegistry(command.Params{Log: log, Clan: clans}),
		Bot:      bot,
	})
	return engine
}

func post(t *testing.T, engine *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	engine.ServeHTTP(resp, req)
	return resp
}

type replyEnvelope struct {
	Data command.Reply `json:"data"`
}

func decodeReply(t *testing.T, resp *httptest.ResponseRecorder) command.Reply {
	t.Helper()
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	var env replyEnvelope
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &env))
	return env.Data
}

func TestInvokeCommandCreateThenStatus(t *testing.T) {
	engine := newTestServer(t)

	resp := post(t, engine, "/v1/commands/clan.create", gin.H{
		"caller":  gin.H{"ref": "100", "name": "Ana"},
		"server":  gin.H{"ref": "900", "name": "Guilda"},
		"args":    gin.H{"name": "Lobos", "tag": "LBS", "members": "<@101> <@102>"},
		"members": gin.H{"101": "Bruno"},
	})
	reply := decodeReply(t, resp)
	assert.Equal(t, "ok", reply.Outcome)
	require.Len(t, reply.Messages, 1)
	assert.Equal(t,
		"Clã 'Lobos' criado com sucesso com 2 membros!\nOs seguintes membros não foram encontrados no servidor:\n- <@102>",
		reply.Messages[0],
	)

	resp = post(t, engine, "/v1/commands/clan.status", gin.H{
		"caller": gin.H{"ref": "101"},
		"server": gin.H{"ref": "900"},
	})
	reply = decodeReply(t, resp)
	assert.Equal(t, "ok", reply.Outcome)
	require.NotEmpty(t, reply.Messages)
	assert.Contains(t, reply.Messages[0], "**Nome do Clã:** Lobos")
	assert.Contains(t, reply.Messages[0], "**Líder:** <@100>")
}

func TestInvokeCommandRendersDomainErrors(t *testing.T) {
	engine := newTestServer(t)

	reply := decodeReply(t, post(t, engine, "/v1/commands/clan.status", gin.H{
		"caller": gin.H{"ref": "100"},
		"server": gin.H{"ref": "900"},
	}))
	assert.Equal(t, "caller_not_in_clan", reply.Outcome)
	assert.Equal(t, []string{"Você não está em nenhum clã."}, reply.Messages)

	reply = decodeReply(t, post(t, engine, "/v1/commands/clan.list", gin.H{
		"caller": gin.H{"ref": "100"},
		"server": gin.H{"ref": "900"},
	}))
	assert.Equal(t, "not_admin", reply.Outcome)

	reply = decodeReply(t, post(t, engine, "/v1/commands/clan.list", gin.H{
		"caller": gin.H{"ref": "999"},
		"server": gin.H{"ref": "900"},
	}))
	assert.Equal(t, "ok", reply.Outcome)
	assert.Equal(t, []string{"Não há clãs cadastrados."}, reply.Messages)
}

func TestInvokeCommandRejectsBadRequests(t *testing.T) {
	engine := newTestServer(t)

	resp := post(t, engine, "/v1/commands/clan.delete", gin.H{
		"caller": gin.H{"ref": "100"},
		"server": gin.H{"ref": "900"},
	})
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp = post(t, engine, "/v1/commands/clan.status", gin.H{
		"server": gin.H{"ref": "900"},
	})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Contains(t, resp.Body.String(), "caller.ref")

	req := httptest.NewRequest(http.MethodPost, "/v1/commands/clan.status", bytes.NewBufferString("{"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthAndCommandNames(t *testing.T) {
	engine := newTestServer(t)

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"bot_status":"Registrando clãs"`)

	rec = httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/commands", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":["clan.create","clan.edit","clan.list","clan.status"]}`, rec.Body.String())
}
