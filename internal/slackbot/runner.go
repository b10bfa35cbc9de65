package slackbot

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/socketmode"

	"github.com/zerollpaper/presence-bot/internal/bot"
	"github.com/zerollpaper/presence-bot/internal/logging"
	"github.com/zerollpaper/presence-bot/internal/schedule"
)

// Runner consumes Socket Mode events and dispatches slash commands to the
// presence service.
type Runner struct {
	socket  *socketmode.Client
	service *bot.Service
	logger  *slog.Logger
}

// NewRunner builds a runner. logger defaults to slog.Default when nil.
func NewRunner(socket *socketmode.Client, service *bot.Service, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{socket: socket, service: service, logger: logger}
}

// Run starts the Socket Mode connection and the event loop, blocking until
// the context is canceled or the connection fails.
func (r *Runner) Run(ctx context.Context) error {
	go r.consume(ctx)
	return r.socket.RunContext(ctx)
}

func (r *Runner) consume(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-r.socket.Events:
			if !ok {
				return
			}
			r.handleEvent(ctx, evt)
		}
	}
}

func (r *Runner) handleEvent(ctx context.Context, evt socketmode.Event) {
	switch evt.Type {
	case socketmode.EventTypeConnecting:
		r.logger.Info("connecting to slack")
	case socketmode.EventTypeConnected:
		r.logger.Info("connected to slack")
	case socketmode.EventTypeConnectionError:
		r.logger.Error("slack connection error")
	case socketmode.EventTypeSlashCommand:
		cmd, ok := evt.Data.(slack.SlashCommand)
		if !ok {
			r.logger.Warn("unexpected slash command payload")
			return
		}
		if evt.Request == nil {
			return
		}
		reply := r.dispatch(ctx, cmd)
		if reply == "" {
			r.socket.Ack(*evt.Request)
			return
		}
		r.socket.Ack(*evt.Request, map[string]any{
			"response_type": "ephemeral",
			"text":          reply,
		})
	}
}

// dispatch routes one slash command and maps errors to user-facing replies.
// An empty reply means the handler already responded through another channel.
func (r *Runner) dispatch(ctx context.Context, cmd slack.SlashCommand) string {
	requestID := uuid.NewString()
	logger := r.logger.With(
		"request_id", requestID,
		"command", cmd.Command,
		"user_id", cmd.UserID,
	)
	ctx = logging.ContextWithLogger(ctx, logger)

	name := strings.TrimPrefix(cmd.Command, "/")

	var (
		reply string
		err   error
	)
	switch {
	case schedule.Known(schedule.Status(name)):
		reply, err = r.service.SetStatus(ctx, cmd.UserID, cmd.ChannelID, name, cmd.Text)
	case name == "note":
		reply, err = r.service.UpdateNote(ctx, cmd.UserID, cmd.ChannelID, cmd.Text)
	case name == "clear":
		reply, err = r.service.Clear(ctx, cmd.UserID, cmd.ChannelID, cmd.Text)
	case name == "board":
		reply, err = r.service.BoardQuery(ctx, cmd.UserID, cmd.ChannelID, cmd.Text)
	case name == "setup":
		reply, err = r.service.Setup(ctx, cmd.UserID, cmd.ChannelID)
	case name == "purge":
		reply, err = r.service.Purge(ctx, cmd.UserID, cmd.ChannelID)
	default:
		logger.Warn("unknown command")
		return "⚠️ unknown command"
	}

	if err == nil {
		return reply
	}

	var usage *bot.UsageError
	switch {
	case errors.As(err, &usage):
		return "⚠️ " + usage.Message
	case errors.Is(err, bot.ErrNotAdmin):
		return "⚠️ admin only"
	default:
		logger.Error("command failed", "error", err)
		return "⚠️ something went wrong, please try again"
	}
}
