// Package notifier pushes alerts about malicious verdicts to Telegram.
package notifier

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/cl0udz1/cyber-guard-platfrom/internal/config"
	"github.com/cl0udz1/cyber-guard-platfrom/internal/models"
)

// Sender is the part of tgbotapi.BotAPI the notifier uses.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram queues alerts and sends them from a single goroutine so that a
// slow Telegram API never delays a scan response.
type Telegram struct {
	sender Sender
	chatID int64
	queue  chan models.ScanRecord
	logger *zap.Logger
}

// NewTelegram returns nil, nil when notifications are disabled.
func NewTelegram(cfg *config.Config, logger *zap.Logger) (*Telegram, error) {
	if !cfg.Notifier.Enabled || cfg.Notifier.TelegramBotToken == "" {
		logger.Info("Telegram notifier is disabled (notifier.enabled=false or token is empty)")
		return nil, nil
	}

	botAPI, err := tgbotapi.NewBotAPI(cfg.Notifier.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot API: %w", err)
	}
	logger.Info("Telegram bot authorized", zap.String("username", botAPI.Self.UserName))

	return New(botAPI, cfg.Notifier.ChatID, cfg.Notifier.QueueSize, logger), nil
}

func New(sender Sender, chatID int64, queueSize int, logger *zap.Logger) *Telegram {
	if queueSize <= 0 {
		queueSize = 64
	}
	return &Telegram{
		sender: sender,
		chatID: chatID,
		queue:  make(chan models.ScanRecord, queueSize),
		logger: logger,
	}
}

// NotifyMalicious enqueues an alert. A full queue drops the alert.
func (t *Telegram) NotifyMalicious(scan models.ScanRecord) {
	select {
	case t.queue <- scan:
	default:
		t.logger.Warn("Notification queue is full, dropping alert", zap.String("scan_id", scan.ID))
	}
}

// Run sends queued alerts until ctx is cancelled.
func (t *Telegram) Run(ctx context.Context) {
	t.logger.Info("Telegram notifier started")
	for {
		select {
		case <-ctx.Done():
			t.logger.Info("Telegram notifier shutting down...")
			return
		case scan := <-t.queue:
			msg := tgbotapi.NewMessage(t.chatID, formatAlert(scan))
			if _, err := t.sender.Send(msg); err != nil {
				t.logger.Error("Failed to send Telegram alert", zap.String("scan_id", scan.ID), zap.Error(err))
			}
		}
	}
}

func formatAlert(scan models.ScanRecord) string {
	var b strings.Builder
	b.WriteString("⚠️ Malicious verdict\n")
	fmt.Fprintf(&b, "Scan ID: %s\n", scan.ID)
	fmt.Fprintf(&b, "Input: %s\n", scan.InputKind)
	// File scans only carry the content digest, never the upload itself.
	if target, ok := strings.CutPrefix(scan.ScanKey, string(scan.InputKind)+":"); ok && target != "" {
		fmt.Fprintf(&b, "Target: %s\n", target)
	}
	fmt.Fprintf(&b, "Score: %d/100\n", scan.Score)
	b.WriteString(scan.Summary)
	return b.String()
}
