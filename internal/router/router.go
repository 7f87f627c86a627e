// Package router turns inbound messenger text into bot actions. Commands
// live in an ordered table of anchored regexps; the first match wins and
// anything that matches nothing is treated as a move attempt.
package router

import (
	"context"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/kapu/messenger-chess-bot/internal/domain"
	"github.com/kapu/messenger-chess-bot/internal/game"
	"github.com/kapu/messenger-chess-bot/internal/msgcat"
	"github.com/kapu/messenger-chess-bot/internal/obslog"
	"github.com/kapu/messenger-chess-bot/internal/social"
)

// Sink delivers replies back to the messenger platform.
type Sink interface {
	SendText(ctx context.Context, playerID int64, text string) error
	SendBoardImage(ctx context.Context, playerID int64, fen string, perspective domain.Color) error
	SendPGN(ctx context.Context, playerID int64, pgn string) error
}

// command is one table entry. The capability flags drive what the
// dispatcher loads and checks before the handler runs, so handlers only see
// requests whose prerequisites hold.
type command struct {
	name    string
	pattern *regexp.Regexp

	allowedAnonymously bool // runs without registration
	needsNamedOther    bool // pattern captures another player's nickname
	acceptsFreeform    bool // pattern captures an uninterpreted argument
	needsGameContext   bool // requires opponent context and an active game

	// Replies used when needsGameContext fails; the move fallback words
	// the missing-context case differently from the rest.
	missingContextKey string
	missingGameKey    string

	handler func(r *Router, req *request) error
}

// request is the per-message context handed to a handler. Fields beyond the
// flags' guarantees are nil.
type request struct {
	ctx      context.Context
	senderID int64
	text     string
	arg      string // first capture group, or the whole text for the fallback
	player   *domain.Player
	other    *domain.Player // resolved for needsNamedOther commands
	sess     game.Session
}

// Router dispatches inbound messages against the command table.
type Router struct {
	social   *social.Service
	games    *game.Manager
	cat      *msgcat.Catalog
	sink     Sink
	commands []command
}

func New(socialSvc *social.Service, games *game.Manager, cat *msgcat.Catalog, sink Sink) *Router {
	r := &Router{social: socialSvc, games: games, cat: cat, sink: sink}
	r.commands = commandTable()
	return r
}

func commandTable() []command {
	return []command{
		{
			name:               "help",
			pattern:            regexp.MustCompile(`(?i)^help$`),
			allowedAnonymously: true,
			handler:            (*Router).handleHelp,
		},
		{
			name:               "register",
			pattern:            regexp.MustCompile(`(?i)^my\s+name\s+is\s+(.+?)$`),
			allowedAnonymously: true,
			acceptsFreeform:    true,
			handler:            (*Router).handleRegister,
		},
		{
			name:            "play-against",
			pattern:         regexp.MustCompile(`(?i)^play\s+against\s+(\S+)$`),
			needsNamedOther: true,
			handler:         (*Router).handlePlayAgainst,
		},
		{
			name:            "new-game",
			pattern:         regexp.MustCompile(`(?i)^new\s+game(?:\s+(\S+))?$`),
			acceptsFreeform: true,
			handler:         (*Router).handleNewGame,
		},
		{
			name:              "show",
			pattern:           regexp.MustCompile(`(?i)^show$`),
			needsGameContext:  true,
			missingContextKey: "game.noactive",
			handler:           (*Router).handleShow,
		},
		{
			name:              "undo",
			pattern:           regexp.MustCompile(`(?i)^undo$`),
			needsGameContext:  true,
			missingContextKey: "game.noactive",
			handler:           (*Router).handleUndo,
		},
		{
			name:              "resign",
			pattern:           regexp.MustCompile(`(?i)^resign$`),
			needsGameContext:  true,
			missingContextKey: "game.noactive",
			handler:           (*Router).handleResign,
		},
		{
			name:              "ping",
			pattern:           regexp.MustCompile(`(?i)^ping$`),
			needsGameContext:  true,
			missingContextKey: "game.noactive",
			handler:           (*Router).handlePing,
		},
		{
			name:              "pgn",
			pattern:           regexp.MustCompile(`(?i)^pgn$`),
			needsGameContext:  true,
			missingContextKey: "game.noactive",
			handler:           (*Router).handlePGN,
		},
		{
			name:            "block",
			pattern:         regexp.MustCompile(`(?i)^block\s+(\S+)$`),
			needsNamedOther: true,
			handler:         (*Router).handleBlock,
		},
		{
			name:            "unblock",
			pattern:         regexp.MustCompile(`(?i)^unblock\s+(\S+)$`),
			needsNamedOther: true,
			handler:         (*Router).handleUnblock,
		},
		{
			name:    "deactivate",
			pattern: regexp.MustCompile(`(?i)^deactivate$`),
			handler: (*Router).handleDeactivate,
		},
		{
			name:    "activate",
			pattern: regexp.MustCompile(`(?i)^activate$`),
			handler: (*Router).handleActivate,
		},
		{
			name:            "reminders",
			pattern:         regexp.MustCompile(`(?i)^reminders?\s+(on|off)$`),
			acceptsFreeform: true,
			handler:         (*Router).handleReminders,
		},
	}
}

// moveFallback is dispatched when no table entry matches.
var moveFallback = command{
	name:             "move",
	acceptsFreeform:  true,
	needsGameContext: true,
	handler:          (*Router).handleMove,
}

// HandleIncomingText processes one inbound message end to end. Handler
// panics and errors are contained here: the sender gets a generic failure
// reply and the incident is logged.
func (r *Router) HandleIncomingText(ctx context.Context, senderID int64, text string) {
	defer func() {
		if rec := recover(); rec != nil {
			obslog.L().Error("handler panic",
				zap.Int64("sender_id", senderID), zap.Any("panic", rec))
			r.say(ctx, senderID, "error.generic", nil)
		}
	}()

	text = strings.TrimSpace(text)
	cmd, arg := r.match(text)
	req := &request{ctx: ctx, senderID: senderID, text: text, arg: arg}

	player, err := r.social.Player(ctx, senderID)
	if err != nil {
		obslog.L().Error("player lookup failed", zap.Int64("sender_id", senderID), zap.Error(err))
		r.say(ctx, senderID, "error.generic", nil)
		return
	}
	if player == nil && !cmd.allowedAnonymously {
		r.say(ctx, senderID, "intro", nil)
		return
	}
	req.player = player

	if cmd.needsNamedOther && !r.resolveNamedOther(req) {
		return
	}
	if !cmd.needsNamedOther && !cmd.acceptsFreeform {
		req.arg = ""
	}

	if cmd.needsGameContext && !r.loadGameContext(req, cmd) {
		return
	}

	if err := cmd.handler(r, req); err != nil {
		obslog.L().Error("command failed",
			zap.String("command", cmd.name), zap.Int64("sender_id", senderID), zap.Error(err))
		r.say(ctx, senderID, "error.generic", nil)
	}
}

// match finds the first table entry whose pattern accepts the text and
// extracts its argument. Unmatched text falls through to move handling with
// the whole message as the argument.
func (r *Router) match(text string) (command, string) {
	for _, cmd := range r.commands {
		m := cmd.pattern.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		arg := ""
		if len(m) > 1 {
			arg = m[1]
		}
		return cmd, arg
	}
	return moveFallback, text
}

// resolveNamedOther validates the captured nickname and loads the player it
// names, replying on its own when nobody matches.
func (r *Router) resolveNamedOther(req *request) bool {
	if !social.WellFormedNickname(req.arg) {
		r.say(req.ctx, req.senderID, "context.unknown", map[string]any{"Name": req.arg})
		return false
	}
	other, err := r.social.Resolve(req.ctx, req.arg)
	if err != nil {
		obslog.L().Error("nickname lookup failed", zap.String("nickname", req.arg), zap.Error(err))
		r.say(req.ctx, req.senderID, "error.generic", nil)
		return false
	}
	if other == nil {
		r.say(req.ctx, req.senderID, "context.unknown", map[string]any{"Name": req.arg})
		return false
	}
	req.other = other
	return true
}

// loadGameContext fills req.sess and enforces the context requirement,
// replying on its own when the requirement fails.
func (r *Router) loadGameContext(req *request, cmd command) bool {
	sess, err := r.games.Session(req.ctx, req.senderID)
	if err != nil {
		obslog.L().Error("session load failed", zap.Int64("sender_id", req.senderID), zap.Error(err))
		r.say(req.ctx, req.senderID, "error.generic", nil)
		return false
	}
	if sess.Opponent == nil {
		key := cmd.missingContextKey
		if key == "" {
			key = "game.nocontext"
		}
		r.say(req.ctx, req.senderID, key, nil)
		return false
	}
	if !sess.Opponent.Active {
		r.say(req.ctx, req.senderID, "context.left", map[string]any{"Name": sess.Opponent.Nickname})
		return false
	}
	if sess.Game == nil {
		key := cmd.missingGameKey
		if key == "" {
			key = "game.noactivewith"
		}
		r.say(req.ctx, req.senderID, key, map[string]any{"Name": sess.Opponent.Nickname})
		return false
	}
	req.sess = sess
	return true
}

// say renders a catalog line and sends it, logging delivery failures.
func (r *Router) say(ctx context.Context, playerID int64, key string, data map[string]any) {
	if err := r.sink.SendText(ctx, playerID, r.cat.Line(key, data)); err != nil {
		obslog.L().Warn("send failed",
			zap.Int64("player_id", playerID), zap.String("key", key), zap.Error(err))
	}
}

// sendBoards pushes the current position to both participants, each from
// their own perspective.
func (r *Router) sendBoards(ctx context.Context, g *domain.Game) {
	fen, err := game.CurrentFEN(g)
	if err != nil {
		obslog.L().Error("board decode failed", zap.Int64("game_id", g.ID), zap.Error(err))
		return
	}
	if err := r.sink.SendBoardImage(ctx, g.WhitePlayer, fen, domain.White); err != nil {
		obslog.L().Warn("board send failed", zap.Int64("player_id", g.WhitePlayer), zap.Error(err))
	}
	if err := r.sink.SendBoardImage(ctx, g.BlackPlayer, fen, domain.Black); err != nil {
		obslog.L().Warn("board send failed", zap.Int64("player_id", g.BlackPlayer), zap.Error(err))
	}
}
