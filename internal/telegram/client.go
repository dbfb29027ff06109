// Package telegram provides a client for sending seller alerts via Telegram Bot API.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rewired-gh/merchscore/internal/logger"
	"github.com/rewired-gh/merchscore/internal/models"
	"github.com/rewired-gh/merchscore/internal/refresh"
	"github.com/rewired-gh/merchscore/internal/storage"
)

// Client handles Telegram notifications.
type Client struct {
	bot            *tgbotapi.BotAPI
	chatID         int64
	maxRetries     int
	retryDelayBase time.Duration
}

// Commands holds the callbacks behind bot commands. A nil callback disables its command.
type Commands struct {
	Stats   func() (*storage.StatsSnapshot, error)
	Refresh func(ctx context.Context) (*refresh.Report, error)
}

// NewClient creates a new Telegram client.
func NewClient(botToken, chatID string, maxRetries int, retryDelayBase time.Duration) (*Client, error) {
	chatIDInt, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid chat ID: %w", err)
	}

	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	if maxRetries <= 0 {
		maxRetries = 3
	}
	if retryDelayBase <= 0 {
		retryDelayBase = time.Second
	}

	return &Client{
		bot:            bot,
		chatID:         chatIDInt,
		maxRetries:     maxRetries,
		retryDelayBase: retryDelayBase,
	}, nil
}

// ListenForCommands starts a goroutine that polls for Telegram updates and handles bot commands.
// It returns immediately; the goroutine stops when ctx is cancelled.
func (c *Client) ListenForCommands(ctx context.Context, cmds Commands) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := c.bot.GetUpdatesChan(u)

	go func() {
		for {
			select {
			case <-ctx.Done():
				c.bot.StopReceivingUpdates()
				return
			case update, ok := <-updates:
				if !ok {
					return
				}
				if update.Message != nil && update.Message.IsCommand() {
					c.handleCommand(ctx, update.Message, cmds)
				}
			}
		}
	}()
}

func (c *Client) handleCommand(ctx context.Context, msg *tgbotapi.Message, cmds Commands) {
	var text string
	switch msg.Command() {
	case "ping":
		c.bot.Send(tgbotapi.NewMessage(msg.Chat.ID, "Pong")) //nolint:errcheck
		return
	case "stats":
		if cmds.Stats == nil {
			return
		}
		snap, err := cmds.Stats()
		switch {
		case errors.Is(err, storage.ErrNotFound):
			text = escapeMarkdownV2("No statistics yet. Run a refresh first.")
		case err != nil:
			text = fmt.Sprintf("⚠️ `%s`", escapeMarkdownV2(err.Error()))
		default:
			text = formatStats(snap)
		}
	case "refresh":
		if cmds.Refresh == nil {
			return
		}
		report, err := cmds.Refresh(ctx)
		switch {
		case errors.Is(err, refresh.ErrRefreshInProgress):
			text = escapeMarkdownV2("A refresh is already running.")
		case err != nil:
			text = fmt.Sprintf("⚠️ *Refresh failed*\n`%s`", escapeMarkdownV2(err.Error()))
		default:
			text = formatReport(report)
		}
	default:
		return
	}

	reply := tgbotapi.NewMessage(msg.Chat.ID, text)
	reply.ParseMode = "MarkdownV2"
	if _, err := c.bot.Send(reply); err != nil {
		logger.Warn("Failed to answer /%s: %v", msg.Command(), err)
	}
}

// sendMarkdownV2 sends a MarkdownV2 message with linear-backoff retry.
func (c *Client) sendMarkdownV2(text string) error {
	msg := tgbotapi.NewMessage(c.chatID, text)
	msg.ParseMode = "MarkdownV2"

	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		if _, err := c.bot.Send(msg); err == nil {
			return nil
		} else {
			lastErr = err
		}
		time.Sleep(c.retryDelayBase * time.Duration(i+1))
	}
	return fmt.Errorf("failed after %d retries: %w", c.maxRetries, lastErr)
}

// SendError sends a refresh error notification.
// Call this only on the first occurrence of a consecutive error sequence.
func (c *Client) SendError(refreshErr error) error {
	text := fmt.Sprintf("⚠️ *Analytics refresh error*\n`%s`", escapeMarkdownV2(refreshErr.Error()))
	return c.sendMarkdownV2(text)
}

// SendRecovery sends a recovery notification after consecutive failures.
func (c *Client) SendRecovery(failureCount int) error {
	text := fmt.Sprintf("✅ *Analytics refresh recovered* after %d consecutive failure\\(s\\)", failureCount)
	return c.sendMarkdownV2(text)
}

// SendAlerts sends one message listing the seller alerts.
func (c *Client) SendAlerts(alerts []models.SellerAlert) error {
	if len(alerts) == 0 {
		return nil
	}
	return c.sendMarkdownV2(formatAlerts(alerts))
}
