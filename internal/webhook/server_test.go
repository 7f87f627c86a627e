package webhook

import (
	"testing"

	"github.com/valyala/fasthttp"
)

func runRequest(t *testing.T, s *Server, method, uri string, body []byte) *fasthttp.RequestCtx {
	t.Helper()
	var req fasthttp.Request
	req.Header.SetMethod(method)
	req.SetRequestURI(uri)
	if body != nil {
		req.SetBody(body)
	}
	ctx := &fasthttp.RequestCtx{}
	ctx.Init(&req, nil, nil)
	s.handle(ctx)
	return ctx
}

func TestVerifyHandshake(t *testing.T) {
	s := New("sekrit", nil, nil)

	ctx := runRequest(t, s, fasthttp.MethodGet,
		"http://bot/webhook?hub.mode=subscribe&hub.verify_token=sekrit&hub.challenge=424242", nil)
	if ctx.Response.StatusCode() != fasthttp.StatusOK {
		t.Fatalf("status = %d, want 200", ctx.Response.StatusCode())
	}
	if string(ctx.Response.Body()) != "424242" {
		t.Fatalf("body = %q, want the challenge echoed", ctx.Response.Body())
	}
}

func TestVerifyRejectsBadToken(t *testing.T) {
	s := New("sekrit", nil, nil)

	ctx := runRequest(t, s, fasthttp.MethodGet,
		"http://bot/webhook?hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=424242", nil)
	if ctx.Response.StatusCode() != fasthttp.StatusForbidden {
		t.Fatalf("status = %d, want 403", ctx.Response.StatusCode())
	}
}

func TestEventsRejectGarbage(t *testing.T) {
	s := New("sekrit", nil, nil)

	ctx := runRequest(t, s, fasthttp.MethodPost, "http://bot/webhook", []byte("{not json"))
	if ctx.Response.StatusCode() != fasthttp.StatusBadRequest {
		t.Fatalf("status = %d, want 400", ctx.Response.StatusCode())
	}
}

func TestEventsAckReceiptsWithoutText(t *testing.T) {
	s := New("sekrit", nil, nil)

	// Delivery receipts carry no message and must be acked and ignored.
	body := []byte(`{"object":"page","entry":[{"id":"1","messaging":[{"sender":{"id":"5"},"recipient":{"id":"9"}}]}]}`)
	ctx := runRequest(t, s, fasthttp.MethodPost, "http://bot/webhook", body)
	if ctx.Response.StatusCode() != fasthttp.StatusOK {
		t.Fatalf("status = %d, want 200", ctx.Response.StatusCode())
	}
}

func TestUnknownPath(t *testing.T) {
	s := New("sekrit", nil, nil)
	ctx := runRequest(t, s, fasthttp.MethodGet, "http://bot/other", nil)
	if ctx.Response.StatusCode() != fasthttp.StatusNotFound {
		t.Fatalf("status = %d, want 404", ctx.Response.StatusCode())
	}
}
