package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/mdp/qrterminal/v3"
	"github.com/rs/zerolog"
	"go.mau.fi/whatsmeow"
	waProto "go.mau.fi/whatsmeow/binary/proto"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types/events"

	"bwm-bot/internal/bio"
	"bwm-bot/internal/config"
	"bwm-bot/internal/logging"
)

//////////////////////////////////////////////////////////////
// STATUS PUBLISHER
//////////////////////////////////////////////////////////////

// statusPublisher pushes bios to the WhatsApp "about" text once the client
// is connected and paired.
type statusPublisher struct {
	client *whatsmeow.Client
}

func (p *statusPublisher) SetStatusMessage(ctx context.Context, msg string) error {
	if p.client == nil || !p.client.IsConnected() || !p.client.IsLoggedIn() {
		return bio.ErrPublisherUnavailable
	}
	return p.client.SetStatusMessage(ctx, msg)
}

//////////////////////////////////////////////////////////////
// EVENTS
//////////////////////////////////////////////////////////////

type bot struct {
	// ctx is the run context; work started from event callbacks ends with it.
	ctx    context.Context
	app    *App
	client *whatsmeow.Client
	log    zerolog.Logger
}

func (b *bot) eventHandler(evt interface{}) {
	switch v := evt.(type) {
	case *events.Connected:
		b.log.Info().Str("name", b.app.Config.BotName).Msg("client is ready")
		go func() {
			if err := b.app.PushStatus(b.ctx); err != nil {
				b.log.Warn().Err(err).Msg("pushing bio after connect")
			}
		}()
	case *events.LoggedOut:
		b.log.Warn().Bool("on_connect", v.OnConnect).Int("reason", int(v.Reason)).
			Msg("logged out, remove the session database and pair again")
	case *events.Message:
		b.handleIncomingMessage(v)
	}
}

func (b *bot) handleIncomingMessage(v *events.Message) {
	var text string
	if v.Message.GetConversation() != "" {
		text = v.Message.GetConversation()
	} else if v.Message.GetExtendedTextMessage() != nil {
		text = v.Message.GetExtendedTextMessage().GetText()
	}
	if text == "" || v.Info.Chat.User == "status" {
		return
	}

	b.log.Debug().
		Str("chat", v.Info.Chat.String()).
		Str("sender", v.Info.Sender.User).
		Bool("from_me", v.Info.IsFromMe).
		Str("text", text).
		Msg("message received")

	// Only the account owner can drive the bot.
	if !v.Info.IsFromMe {
		return
	}
	reply, ok := b.app.handleCommand(strings.TrimSpace(text))
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(b.ctx, 30*time.Second)
	defer cancel()
	if _, err := b.client.SendMessage(ctx, v.Info.Chat, &waProto.Message{
		Conversation: &reply,
	}); err != nil {
		b.log.Error().Err(err).Str("chat", v.Info.Chat.String()).Msg("sending command reply")
	}
}

//////////////////////////////////////////////////////////////
// RUN
//////////////////////////////////////////////////////////////

// runBot starts the settings store and bio rotation, then connects the
// WhatsApp client and blocks until ctx is cancelled.
func runBot(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	container, err := sqlstore.New(ctx, "sqlite3", cfg.SessionDB, logging.WhatsApp(log, "Database"))
	if err != nil {
		return fmt.Errorf("opening session store: %w", err)
	}
	deviceStore, err := container.GetFirstDevice(ctx)
	if err != nil {
		return fmt.Errorf("loading device: %w", err)
	}
	client := whatsmeow.NewClient(deviceStore, logging.WhatsApp(log, "Client"))

	app, err := NewApp(cfg, log, &statusPublisher{client: client})
	if err != nil {
		return err
	}
	app.Start(ctx)

	b := &bot{ctx: ctx, app: app, client: client, log: logging.Component(log, "bot")}
	client.AddEventHandler(b.eventHandler)

	if err := connect(ctx, client, b.log); err != nil {
		app.Shutdown()
		return err
	}
	b.log.Info().Str("bio", app.CurrentStatus()).Msg("online")

	<-ctx.Done()
	b.log.Info().Msg("shutting down")
	app.Shutdown()
	client.Disconnect()
	return nil
}

// connect opens the websocket, pairing through a terminal QR code when no
// device is stored yet.
func connect(ctx context.Context, client *whatsmeow.Client, log zerolog.Logger) error {
	if client.Store.ID != nil {
		if err := client.Connect(); err != nil {
			return fmt.Errorf("connecting: %w", err)
		}
		return nil
	}

	qrChan, err := client.GetQRChannel(ctx)
	if err != nil {
		return fmt.Errorf("requesting QR channel: %w", err)
	}
	if err := client.Connect(); err != nil {
		return fmt.Errorf("connecting: %w", err)
	}
	for evt := range qrChan {
		switch evt.Event {
		case "code":
			log.Info().Msg("scan the QR code with WhatsApp > Linked devices")
			qrterminal.GenerateHalfBlock(evt.Code, qrterminal.L, os.Stdout)
		case "success":
			log.Info().Msg("paired")
			return nil
		default:
			log.Warn().Str("event", evt.Event).Msg("pairing")
		}
	}
	if client.Store.ID == nil {
		return errors.New("pairing did not complete")
	}
	return nil
}
