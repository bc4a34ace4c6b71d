package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"testing"
	"time"

	"launchpad/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"
)

func serve(t *testing.T, handler fasthttp.RequestHandler) *HTTPClient {
	t.Helper()
	ln := fasthttputil.NewInmemoryListener()
	srv := &fasthttp.Server{Handler: handler}
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() { _ = srv.Shutdown() })

	c := NewHTTPClient("http://oracle.test/answer", "secret", time.Second)
	c.client.Dial = func(addr string) (net.Conn, error) { return ln.Dial() }
	return c
}

func TestHTTPClientAnswer(t *testing.T) {
	c := serve(t, func(ctx *fasthttp.RequestCtx) {
		var req answerRequest
		if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
			ctx.SetStatusCode(fasthttp.StatusBadRequest)
			return
		}
		if string(ctx.Request.Header.Peek("Authorization")) != "Bearer secret" {
			ctx.SetStatusCode(fasthttp.StatusUnauthorized)
			return
		}
		ctx.SetContentType("application/json")
		_ = json.NewEncoder(ctx).Encode(Answer{
			Text:      "Talk to users about " + req.Query + " as a " + string(req.Role),
			Resources: []Resource{{Title: "Guide", URL: "https://example.com"}},
		})
	})

	ans, err := c.Answer(context.Background(), "pricing", models.RoleBuilder, Context{TeamID: "T1"})
	require.NoError(t, err)
	assert.Equal(t, "Talk to users about pricing as a builder", ans.Text)
	require.Len(t, ans.Resources, 1)
}

func TestHTTPClientFailuresAreUnavailable(t *testing.T) {
	c := serve(t, func(ctx *fasthttp.RequestCtx) {
		ctx.SetStatusCode(fasthttp.StatusBadGateway)
	})
	_, err := c.Answer(context.Background(), "q", models.RoleGuest, Context{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnavailable))

	empty := serve(t, func(ctx *fasthttp.RequestCtx) {
		ctx.SetContentType("application/json")
		ctx.SetBodyString(`{"text":"  "}`)
	})
	_, err = empty.Answer(context.Background(), "q", models.RoleGuest, Context{})
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestCuratedFor(t *testing.T) {
	res := CuratedFor("validation")
	require.NotEmpty(t, res)
	for _, r := range res {
		assert.Equal(t, "validation", r.Kind)
	}
	assert.Len(t, CuratedFor("underwater basket weaving"), len(Curated))
}

func TestOfflineAlwaysAnswers(t *testing.T) {
	ans, err := Offline{}.Answer(context.Background(), "growth", models.RoleMentor, Context{})
	require.NoError(t, err)
	assert.NotEmpty(t, ans.Text)
	assert.NotEmpty(t, ans.Resources)
}
