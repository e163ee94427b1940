// Command converse is a terminal client for exercising the conversation
// engine against a live backend: it prints incoming messages and activities,
// sends stdin lines as messages, and paginates on demand.
package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/mindbehind/converse-go/internal/config"
	"github.com/mindbehind/converse-go/internal/models"
	"github.com/mindbehind/converse-go/internal/service"
	"github.com/mindbehind/converse-go/internal/transport"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	userID := os.Getenv("CONVERSE_USER_ID")
	token := os.Getenv("CONVERSE_SESSION_TOKEN")
	if userID == "" || token == "" {
		log.Fatal("CONVERSE_USER_ID and CONVERSE_SESSION_TOKEN must be set")
	}

	logger := zerolog.New(os.Stderr).With().Timestamp().Logger().Level(zerolog.WarnLevel)

	tpCfg := transport.Config{
		BaseURL:      cfg.APIBaseURL,
		AppID:        cfg.AppID,
		UserID:       userID,
		SessionToken: token,
		HTTPTimeout:  cfg.HTTPTimeout,
	}
	client := transport.NewClient(tpCfg, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	realtime := transport.DialRealtime(ctx, cfg.RealtimeURL, tpCfg, cfg.PingInterval, logger)

	validate := validator.New(validator.WithRequiredStructEnabled())
	session := service.NewConversationSession(client, realtime, service.SessionConfig{
		UserID:            userID,
		HistoryPageSize:   cfg.HistoryPageSize,
		TypingIdleTimeout: cfg.TypingIdleTimeout,
		UploadMaxSizeMB:   cfg.UploadMaxSizeMB,
	}, validate, logger)
	defer session.Close()

	session.SetDelegate(&service.Delegate{
		MessagesReceived: func(messages []models.Message) {
			for _, m := range messages {
				printMessage(m)
			}
		},
		PreviousMessagesReceived: func(messages []models.Message) {
			fmt.Printf("-- loaded %d older messages --\n", len(messages))
		},
		ActivityReceived: func(activity models.ConversationActivity) {
			fmt.Printf("-- activity: %s --\n", activity.Type)
		},
		UploadCompleted: func(message models.Message) {
			fmt.Printf("-- sent: %s --\n", message.ServerID)
		},
		UploadFailed: func(message models.Message, err error) {
			fmt.Printf("-- send failed (%v); /retry %s --\n", err, message.LocalID)
		},
	})

	if err := session.Refresh(ctx); err != nil {
		log.Printf("conversation refresh failed: %v", err)
	}
	for _, m := range session.Messages() {
		printMessage(m)
	}
	session.Start(ctx)

	go readInput(ctx, session)
	<-ctx.Done()
}

func readInput(ctx context.Context, session service.ConversationSession) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case line == "/prev":
			session.LoadPreviousMessages()
		case line == "/read":
			session.MarkAllAsRead()
		case strings.HasPrefix(line, "/retry "):
			if _, err := session.RetryMessage(strings.TrimPrefix(line, "/retry ")); err != nil {
				fmt.Printf("retry failed: %v\n", err)
			}
		default:
			session.StartTyping()
			if _, err := session.SendMessage(models.NewTextMessage(line)); err != nil {
				fmt.Printf("send failed: %v\n", err)
			}
			session.StopTyping()
		}
	}
}

func printMessage(m models.Message) {
	author := m.Author.Name
	if author == "" {
		if m.Author.IsCurrentUser {
			author = "me"
		} else {
			author = m.Author.Role
		}
	}
	body := m.Text
	if body == "" && m.MediaURL != "" {
		body = m.MediaURL
	}
	if body == "" && m.TextFallback != "" {
		body = m.TextFallback
	}
	fmt.Printf("[%s] %s: %s\n", m.Received.Format("15:04"), author, body)
}
