// Package handlers runs the interactive game loop for one player: it reads
// lines, resolves them to commands or free-form intents, drives the
// exploration engine, and writes the results back.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/cory-johannsen/hinterland/internal/frontend/telnet"
	"github.com/cory-johannsen/hinterland/internal/game/command"
	"github.com/cory-johannsen/hinterland/internal/game/explore"
	"github.com/cory-johannsen/hinterland/internal/game/session"
)

// Player-facing texts.
const (
	WelcomeText       = "Welcome to the Hinterland."
	NamePrompt        = "By what name are you known? "
	NameTakenText     = "Someone by that name is already here. Choose another."
	CannotGoText      = "You can't go there."
	GoWhereText       = "Go where?"
	SayWhatText       = "Say what?"
	AloneText         = "You are alone here."
	NoExitsText       = "There is no way onward from here."
	LookFailedText    = "The surroundings are hard to make out right now. Try looking again."
	NotUnderstoodText = "I don't understand that. Type 'help' for a list of commands."
	FarewellText      = "Farewell, traveller."
	InternalErrorText = "Something went wrong."
)

// LineConn is a line-oriented player connection. telnet.Conn satisfies it.
// WriteLine and WritePrompt must be safe for concurrent use.
type LineConn interface {
	ReadLine() (string, error)
	WriteLine(text string) error
	WritePrompt(prompt string) error
}

// GameHandler runs game sessions against one exploration engine.
type GameHandler struct {
	engine   *explore.Engine
	sessions *session.Manager
	registry *command.Registry
	render   Renderer
	logger   *zap.Logger
}

// NewGameHandler creates a handler. color enables ANSI styling.
//
// Precondition: engine, sessions, and logger must be non-nil.
func NewGameHandler(engine *explore.Engine, sessions *session.Manager, logger *zap.Logger, color bool) *GameHandler {
	return &GameHandler{
		engine:   engine,
		sessions: sessions,
		registry: command.DefaultRegistry(),
		render:   Renderer{Color: color},
		logger:   logger,
	}
}

// HandleSession implements telnet.SessionHandler.
func (h *GameHandler) HandleSession(ctx context.Context, conn *telnet.Conn) error {
	return h.Serve(ctx, conn)
}

// Serve runs one player's session: it asks for a name, places the player at
// the world's start location, and processes commands until the player quits,
// the connection fails, or ctx is cancelled.
//
// Postcondition: The player's session and occupancy are removed on return.
// Returns nil on a clean quit or end of input.
func (h *GameHandler) Serve(ctx context.Context, conn LineConn) error {
	if err := conn.WriteLine(WelcomeText); err != nil {
		return err
	}
	sess, err := h.join(conn)
	if err != nil {
		return ignoreEOF(err)
	}
	defer func() {
		if err := h.sessions.Remove(sess.UID); err != nil {
			h.logger.Warn("removing session", zap.Error(err))
		}
	}()

	cur, err := h.engine.Spawn(sess.CharacterID)
	if err != nil {
		_ = conn.WriteLine(h.render.Failure(InternalErrorText))
		return fmt.Errorf("spawning %s: %w", sess.Name, err)
	}
	logger := h.logger.With(zap.String("uid", sess.UID), zap.String("name", sess.Name))
	logger.Info("player joined", zap.Int64("location_id", int64(cur.Location)))
	h.announce(cur, fmt.Sprintf("%s arrives.", sess.Name))

	defer func() {
		h.announce(cur, fmt.Sprintf("%s leaves.", sess.Name))
		if err := h.engine.Leave(cur); err != nil {
			logger.Warn("leaving world", zap.Error(err))
		}
		logger.Info("player left")
	}()

	var wg sync.WaitGroup
	done := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		h.forward(sess, conn, done)
	}()
	defer func() {
		close(done)
		wg.Wait()
	}()

	if err := conn.WriteLine(h.render.Location(h.engine.DescribeCurrent(cur))); err != nil {
		return err
	}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := conn.WritePrompt(h.render.Prompt(sess.Name)); err != nil {
			return err
		}
		line, err := conn.ReadLine()
		if err != nil {
			return ignoreEOF(err)
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		reply, quit := h.Dispatch(ctx, sess, &cur, line)
		if reply != "" {
			if err := conn.WriteLine(reply); err != nil {
				return err
			}
		}
		if quit {
			return nil
		}
	}
}

// join asks for a name until the session manager accepts one.
func (h *GameHandler) join(conn LineConn) (*session.Session, error) {
	for {
		if err := conn.WritePrompt(NamePrompt); err != nil {
			return nil, err
		}
		name, err := conn.ReadLine()
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(name) == "" {
			continue
		}
		sess, err := h.sessions.Add(name)
		if errors.Is(err, session.ErrNameTaken) {
			if err := conn.WriteLine(NameTakenText); err != nil {
				return nil, err
			}
			continue
		}
		return sess, err
	}
}

// forward writes lines pushed by other players until done is closed.
func (h *GameHandler) forward(sess *session.Session, conn LineConn, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case line, ok := <-sess.Outbox.Lines():
			if !ok {
				return
			}
			if err := conn.WriteLine(line); err != nil {
				return
			}
		}
	}
}

// announce tells everyone else at the cursor's location about text.
func (h *GameHandler) announce(cur explore.Cursor, text string) {
	h.sessions.Broadcast(h.engine.Occupants(cur), h.render.Notice(text))
}

// Dispatch executes one input line for a player and returns the reply and
// whether the player asked to quit. Registered command words take
// precedence; anything else is read as a free-form sentence.
func (h *GameHandler) Dispatch(ctx context.Context, sess *session.Session, cur *explore.Cursor, line string) (string, bool) {
	parsed := command.Parse(line)
	if cmd, ok := h.registry.Resolve(parsed.Command); ok {
		switch cmd.Handler {
		case command.HandlerMove:
			return h.move(ctx, sess, cur, command.MoveTarget(parsed.RawArgs)), false
		case command.HandlerLook:
			return h.look(ctx, *cur), false
		case command.HandlerDescribe:
			return h.render.Location(h.engine.DescribeCurrent(*cur)), false
		case command.HandlerExits:
			return h.exits(*cur), false
		case command.HandlerSay:
			message := parsed.RawArgs
			// "talk to the guard 'hello'" says only the quoted part.
			if intent := command.ParseIntent(line); intent.Verb == command.VerbTalk {
				message = intent.Message
			}
			return h.say(sess, *cur, message), false
		case command.HandlerWho:
			return h.who(*cur), false
		case command.HandlerHelp:
			return h.registry.HelpText(), false
		case command.HandlerQuit:
			return FarewellText, true
		}
	}

	intent := command.ParseIntent(line)
	switch intent.Verb {
	case command.VerbMove:
		return h.move(ctx, sess, cur, intent.Target), false
	case command.VerbLook:
		return h.look(ctx, *cur), false
	case command.VerbTalk:
		return h.say(sess, *cur, intent.Message), false
	default:
		return NotUnderstoodText, false
	}
}

func (h *GameHandler) move(ctx context.Context, sess *session.Session, cur *explore.Cursor, target string) string {
	if target == "" {
		return GoWhereText
	}
	from := *cur
	moved, err := h.engine.AttemptMove(ctx, cur, target)
	if err != nil {
		h.logger.Error("moving", zap.String("uid", sess.UID), zap.String("target", target), zap.Error(err))
		return h.render.Failure(InternalErrorText)
	}
	if !moved {
		return h.render.Failure(CannotGoText)
	}
	h.announce(from, fmt.Sprintf("%s leaves.", sess.Name))
	h.announce(*cur, fmt.Sprintf("%s arrives.", sess.Name))

	typ, _ := h.engine.LocationType(*cur)
	return h.render.Travel(typ) + "\n" + h.render.Location(h.engine.DescribeCurrent(*cur))
}

func (h *GameHandler) look(ctx context.Context, cur explore.Cursor) string {
	text, err := h.engine.LookAround(ctx, cur)
	if err != nil {
		h.logger.Warn("looking around", zap.Int64("location_id", int64(cur.Location)), zap.Error(err))
		if text != "" {
			return h.render.Look(text) + "\n" + h.render.Failure(LookFailedText)
		}
		return h.render.Failure(LookFailedText)
	}
	return h.render.Look(text)
}

func (h *GameHandler) exits(cur explore.Cursor) string {
	exits := h.engine.Exits(cur)
	if len(exits) == 0 {
		return NoExitsText
	}
	return "Exits: " + strings.Join(exits, ", ")
}

func (h *GameHandler) say(sess *session.Session, cur explore.Cursor, message string) string {
	message = strings.TrimSpace(message)
	if message == "" {
		return SayWhatText
	}
	h.sessions.Broadcast(h.engine.Occupants(cur), h.render.Speech(sess.Name, message))
	return fmt.Sprintf("You say: %s", message)
}

func (h *GameHandler) who(cur explore.Cursor) string {
	names := h.sessions.Names(h.engine.Occupants(cur))
	if len(names) == 0 {
		return AloneText
	}
	return "Also here: " + strings.Join(names, ", ")
}

func ignoreEOF(err error) error {
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
