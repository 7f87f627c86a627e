package router

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kapu/messenger-chess-bot/internal/domain"
	"github.com/kapu/messenger-chess-bot/internal/game"
	"github.com/kapu/messenger-chess-bot/internal/rules"
	"github.com/kapu/messenger-chess-bot/internal/social"
)

func (r *Router) handleHelp(req *request) error {
	r.say(req.ctx, req.senderID, "help", nil)
	return nil
}

func (r *Router) handleRegister(req *request) error {
	status, err := r.social.Register(req.ctx, req.senderID, req.arg)
	if err != nil {
		return err
	}
	key := map[social.RegisterStatus]string{
		social.RegisterWelcome:   "register.welcome",
		social.RegisterRenamed:   "register.renamed",
		social.RegisterUnchanged: "register.unchanged",
		social.RegisterTaken:     "register.taken",
		social.RegisterBadFormat: "register.badformat",
		social.RegisterTooLong:   "register.toolong",
	}[status]
	r.say(req.ctx, req.senderID, key, map[string]any{"Name": req.arg})
	return nil
}

func (r *Router) handlePlayAgainst(req *request) error {
	res, err := r.social.SetOpponent(req.ctx, req.senderID, req.other.Nickname)
	if err != nil {
		return err
	}
	switch res.Status {
	case social.OpponentUnknown:
		r.say(req.ctx, req.senderID, "context.unknown", map[string]any{"Name": req.arg})
	case social.OpponentLeft:
		r.say(req.ctx, req.senderID, "context.left", map[string]any{"Name": res.Target.Nickname})
	case social.OpponentBlocked:
		r.say(req.ctx, req.senderID, "block.blocked", map[string]any{"Name": res.Target.Nickname})
	case social.OpponentBlockedBy:
		r.say(req.ctx, req.senderID, "block.blockedby", map[string]any{"Name": res.Target.Nickname})
	case social.OpponentAlready:
		r.say(req.ctx, req.senderID, "context.already", map[string]any{"Name": res.Target.Nickname})
	case social.OpponentSet:
		r.say(req.ctx, req.senderID, "context.set", map[string]any{"Name": res.Target.Nickname})
		if res.AutoLinked {
			r.say(req.ctx, res.Target.ID, "context.set", map[string]any{"Name": req.player.Nickname})
		}
	}
	return nil
}

func (r *Router) handleNewGame(req *request) error {
	var color domain.Color
	switch strings.ToLower(req.arg) {
	case "white":
		color = domain.White
	case "black":
		color = domain.Black
	case "random":
		color = game.RandomColor()
	default:
		r.say(req.ctx, req.senderID, "game.badcolor", nil)
		return nil
	}

	sess, err := r.games.Session(req.ctx, req.senderID)
	if err != nil {
		return err
	}
	if sess.Opponent == nil {
		r.say(req.ctx, req.senderID, "game.nocontext", nil)
		return nil
	}
	if !sess.Opponent.Active {
		r.say(req.ctx, req.senderID, "context.left", map[string]any{"Name": sess.Opponent.Nickname})
		return nil
	}
	g, err := r.games.NewGame(req.ctx, sess, color)
	if errors.Is(err, game.ErrGameExists) {
		r.say(req.ctx, req.senderID, "game.alreadyactive", map[string]any{"Name": sess.Opponent.Nickname})
		return nil
	}
	if err != nil {
		return err
	}
	r.say(req.ctx, sess.Opponent.ID, "game.started", map[string]any{"Name": req.player.Nickname})
	r.sendBoards(req.ctx, g)
	return nil
}

func (r *Router) handleMove(req *request) error {
	out, err := r.games.Move(req.ctx, req.sess, req.arg)
	switch {
	case errors.Is(err, game.ErrNotYourTurn):
		r.say(req.ctx, req.senderID, "move.notyourturn", nil)
		return nil
	case errors.Is(err, rules.ErrInvalidMove):
		r.say(req.ctx, req.senderID, "move.invalid", nil)
		return nil
	case errors.Is(err, rules.ErrAmbiguousMove):
		r.say(req.ctx, req.senderID, "move.ambiguous", nil)
		return nil
	case err != nil:
		return err
	}

	opponent := req.sess.Opponent
	r.say(req.ctx, opponent.ID, "move.played", map[string]any{
		"Name": req.player.Nickname, "Move": out.SAN,
	})
	r.sendBoards(req.ctx, out.Game)
	if out.Checkmate {
		data := map[string]any{"Name": req.player.Nickname}
		r.say(req.ctx, req.senderID, "move.checkmate", data)
		r.say(req.ctx, opponent.ID, "move.checkmate", data)
	} else if out.Check {
		r.say(req.ctx, req.senderID, "move.check", nil)
		r.say(req.ctx, opponent.ID, "move.check", nil)
	}
	return nil
}

func (r *Router) handleShow(req *request) error {
	key := "game.blacktomove"
	if req.sess.Game.WhiteToPlay {
		key = "game.whitetomove"
	}
	r.say(req.ctx, req.senderID, key, nil)

	fen, err := game.CurrentFEN(req.sess.Game)
	if err != nil {
		return err
	}
	color := req.sess.Game.PlayerColor(req.senderID)
	if err := r.sink.SendBoardImage(req.ctx, req.senderID, fen, color); err != nil {
		return fmt.Errorf("send board: %w", err)
	}
	return nil
}

func (r *Router) handleUndo(req *request) error {
	status, err := r.games.Undo(req.ctx, req.sess)
	if err != nil {
		return err
	}
	switch status {
	case game.UndoRequested:
		r.say(req.ctx, req.sess.Opponent.ID, "undo.requested", map[string]any{"Name": req.player.Nickname})
	case game.UndoAccepted:
		r.say(req.ctx, req.sess.Opponent.ID, "undo.accepted", map[string]any{"Name": req.player.Nickname})
		r.sendBoards(req.ctx, req.sess.Game)
	case game.UndoYourTurn:
		r.say(req.ctx, req.senderID, "undo.yourturn", nil)
	case game.UndoNoMoves:
		r.say(req.ctx, req.senderID, "undo.nomoves", nil)
	case game.UndoAlreadyAsked:
		r.say(req.ctx, req.senderID, "undo.redundant", nil)
	}
	return nil
}

func (r *Router) handleResign(req *request) error {
	if _, err := r.games.Resign(req.ctx, req.sess); err != nil {
		return err
	}
	data := map[string]any{
		"Name":   req.player.Nickname,
		"Winner": req.sess.Opponent.Nickname,
	}
	r.say(req.ctx, req.senderID, "move.resigned", data)
	r.say(req.ctx, req.sess.Opponent.ID, "move.resigned", data)
	return nil
}

func (r *Router) handlePing(req *request) error {
	color := req.sess.Game.PlayerColor(req.senderID)
	toMove := (color == domain.White) == req.sess.Game.WhiteToPlay
	if toMove {
		r.say(req.ctx, req.senderID, "ping.yourturn", map[string]any{"Name": req.sess.Opponent.Nickname})
		return nil
	}
	r.say(req.ctx, req.sess.Opponent.ID, "ping.sent", map[string]any{"Name": req.player.Nickname})
	return nil
}

func (r *Router) handlePGN(req *request) error {
	pgn, err := game.PGN(req.sess.Game)
	if err != nil {
		return err
	}
	if err := r.sink.SendPGN(req.ctx, req.senderID, pgn); err != nil {
		return fmt.Errorf("send pgn: %w", err)
	}
	return nil
}

func (r *Router) handleBlock(req *request) error {
	res, err := r.social.Block(req.ctx, req.senderID, req.other.Nickname)
	if err != nil {
		return err
	}
	switch res.Status {
	case social.BlockUnknown:
		r.say(req.ctx, req.senderID, "context.unknown", map[string]any{"Name": req.arg})
	case social.BlockAlready:
		r.say(req.ctx, req.senderID, "block.already", map[string]any{"Name": res.Target.Nickname})
	case social.BlockDone:
		r.say(req.ctx, req.senderID, "block.blocked", map[string]any{"Name": res.Target.Nickname})
	}
	return nil
}

func (r *Router) handleUnblock(req *request) error {
	res, err := r.social.Unblock(req.ctx, req.senderID, req.other.Nickname)
	if err != nil {
		return err
	}
	switch res.Status {
	case social.BlockUnknown:
		r.say(req.ctx, req.senderID, "context.unknown", map[string]any{"Name": req.arg})
	case social.BlockDone:
		r.say(req.ctx, req.senderID, "block.unblocked", map[string]any{"Name": res.Target.Nickname})
	}
	return nil
}

func (r *Router) handleDeactivate(req *request) error {
	if err := r.social.SetActivation(req.ctx, req.senderID, false); err != nil {
		return err
	}
	r.say(req.ctx, req.senderID, "activation.deactivated", nil)
	return nil
}

func (r *Router) handleActivate(req *request) error {
	if err := r.social.SetActivation(req.ctx, req.senderID, true); err != nil {
		return err
	}
	r.say(req.ctx, req.senderID, "activation.activated", nil)
	return nil
}

func (r *Router) handleReminders(req *request) error {
	on := strings.EqualFold(req.arg, "on")
	if err := r.social.SetReminders(req.ctx, req.senderID, on); err != nil {
		return err
	}
	key := "reminders.off"
	if on {
		key = "reminders.on"
	}
	r.say(req.ctx, req.senderID, key, nil)
	return nil
}
