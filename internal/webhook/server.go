// Package webhook is the inbound half of the platform integration: the
// verification handshake and the message-event receiver.
package webhook

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/kapu/messenger-chess-bot/internal/dedup"
	"github.com/kapu/messenger-chess-bot/internal/obslog"
	"github.com/kapu/messenger-chess-bot/internal/router"
	"github.com/kapu/messenger-chess-bot/pkg/botdto"
)

const handleTimeout = 25 * time.Second

// Server accepts platform callbacks and feeds message events to the router.
type Server struct {
	verifyToken string
	router      *router.Router
	deduper     *dedup.Deduper
	srv         *fasthttp.Server
}

func New(verifyToken string, r *router.Router, d *dedup.Deduper) *Server {
	s := &Server{verifyToken: verifyToken, router: r, deduper: d}
	s.srv = &fasthttp.Server{
		Handler:            s.handle,
		ReadTimeout:        10 * time.Second,
		WriteTimeout:       10 * time.Second,
		MaxRequestBodySize: 1 << 20,
	}
	return s
}

// ListenAndServe runs the server until the context ends, then shuts down.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.srv.ListenAndServe(addr)
	}()
	obslog.L().Info("webhook listening", zap.String("addr", addr))
	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
		return s.srv.Shutdown()
	}
}

func (s *Server) handle(ctx *fasthttp.RequestCtx) {
	if string(ctx.Path()) != "/webhook" {
		ctx.SetStatusCode(fasthttp.StatusNotFound)
		return
	}
	switch string(ctx.Method()) {
	case fasthttp.MethodGet:
		s.handleVerify(ctx)
	case fasthttp.MethodPost:
		s.handleEvents(ctx)
	default:
		ctx.SetStatusCode(fasthttp.StatusMethodNotAllowed)
	}
}

// handleVerify answers the platform's subscription handshake: echo the
// challenge when the token matches, reject otherwise.
func (s *Server) handleVerify(ctx *fasthttp.RequestCtx) {
	args := ctx.QueryArgs()
	if string(args.Peek("hub.mode")) == "subscribe" &&
		string(args.Peek("hub.verify_token")) == s.verifyToken {
		ctx.SetStatusCode(fasthttp.StatusOK)
		ctx.SetBody(args.Peek("hub.challenge"))
		return
	}
	obslog.L().Warn("webhook verification rejected")
	ctx.SetStatusCode(fasthttp.StatusForbidden)
}

// handleEvents acks the batch immediately and processes each message in the
// background. The platform redelivers on slow acks, so duplicates are
// filtered by message id before dispatch.
func (s *Server) handleEvents(ctx *fasthttp.RequestCtx) {
	var event botdto.WebhookEvent
	if err := json.Unmarshal(ctx.PostBody(), &event); err != nil {
		obslog.L().Warn("bad webhook payload", zap.Error(err))
		ctx.SetStatusCode(fasthttp.StatusBadRequest)
		return
	}
	ctx.SetStatusCode(fasthttp.StatusOK)

	for _, entry := range event.Entry {
		for _, msg := range entry.Messaging {
			if msg.Message == nil || msg.Message.Text == "" {
				continue
			}
			go s.dispatch(msg)
		}
	}
}

func (s *Server) dispatch(msg botdto.Messaging) {
	ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
	defer cancel()

	// Not every platform event carries a message id; synthesize one so log
	// lines from concurrent handlers can still be correlated.
	eventID := msg.Message.MID
	if eventID == "" {
		eventID = uuid.NewString()
	}
	obslog.L().Debug("message event",
		zap.String("event_id", eventID), zap.String("sender", msg.Sender.ID))

	seen, err := s.deduper.Claim(ctx, msg.Message.MID)
	if err != nil {
		// Processing a duplicate beats dropping a real message.
		obslog.L().Warn("dedup unavailable", zap.Error(err))
	} else if !seen {
		obslog.L().Debug("duplicate event dropped", zap.String("mid", msg.Message.MID))
		return
	}

	senderID, err := strconv.ParseInt(msg.Sender.ID, 10, 64)
	if err != nil {
		obslog.L().Warn("unparsable sender id", zap.String("sender", msg.Sender.ID))
		return
	}
	s.router.HandleIncomingText(ctx, senderID, msg.Message.Text)
}
