// Package command maps chat-style commands onto a running watcher.
package command

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"nftwatch/internal/watcher"
)

const DefaultAbout = "Hi, this bot will send live transaction receipts of the NFT collection it watches"

const (
	replyStarted        = "Bot Started"
	replyAlreadyRunning = "Bot already running"
	replyStopped        = "Bot Stopped"
	replyNotRunning     = "Bot is not running"
)

// Controller is the part of a watcher the dispatcher drives.
type Controller interface {
	Start(ctx context.Context) error
	Stop() error
	State() watcher.State
}

// Dispatcher answers /about, /start, /stop and /status.
type Dispatcher struct {
	controller Controller
	about      string
	logger     *zap.Logger
}

// NewDispatcher builds a Dispatcher. An empty about text falls back to
// DefaultAbout.
func NewDispatcher(controller Controller, about string, logger *zap.Logger) *Dispatcher {
	if about == "" {
		about = DefaultAbout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{controller: controller, about: about, logger: logger}
}

// Handle runs one command line. handled is false for anything that is not a
// known command; such lines get no reply.
func (d *Dispatcher) Handle(ctx context.Context, line string) (reply string, handled bool) {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "/about":
		return d.about, true
	case "/start":
		return d.start(ctx), true
	case "/stop":
		return d.stop(), true
	case "/status":
		return d.controller.State().String(), true
	default:
		return "", false
	}
}

func (d *Dispatcher) start(ctx context.Context) string {
	err := d.controller.Start(ctx)
	switch {
	case err == nil:
		return replyStarted
	case errors.Is(err, watcher.ErrAlreadyPolling):
		return replyAlreadyRunning
	default:
		d.logger.Error("start watcher", zap.Error(err))
		return "Bot failed to start: " + err.Error()
	}
}

func (d *Dispatcher) stop() string {
	err := d.controller.Stop()
	switch {
	case err == nil:
		return replyStopped
	case errors.Is(err, watcher.ErrNotPolling):
		return replyNotRunning
	default:
		d.logger.Error("stop watcher", zap.Error(err))
		return "Bot failed to stop: " + err.Error()
	}
}
