// Package notify delivers chat notices about new tickets.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/stanachoad2-cyber/MaintenanceApp/internal/config"
)

// ErrNotConfigured is returned when the bot token or chat ID is missing.
var ErrNotConfigured = errors.New("telegram notifier not configured")

// TicketNotice is what a new-ticket message shows.
type TicketNotice struct {
	TicketID          string
	Department        string
	MachineName       string
	IssueItem         string
	RequesterFullname string
}

// Telegram posts messages through the Bot API sendMessage method.
type Telegram struct {
	token   string
	chatID  string
	baseURL string
	timeout time.Duration
}

// NewTelegram builds a notifier from config.
func NewTelegram(cfg config.NotificationConfig) *Telegram {
	return &Telegram{
		token:   strings.TrimSpace(cfg.TelegramToken),
		chatID:  strings.TrimSpace(cfg.TelegramChatID),
		baseURL: strings.TrimRight(cfg.TelegramBaseURL, "/"),
		timeout: cfg.Timeout(),
	}
}

// Enabled reports whether both token and chat ID are set.
func (t *Telegram) Enabled() bool {
	return t != nil && t.token != "" && t.chatID != ""
}

type sendMessageRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

type sendMessageResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// NotifyTicketCreated sends the new-ticket message.
func (t *Telegram) NotifyTicketCreated(ctx context.Context, notice TicketNotice) error {
	if !t.Enabled() {
		return ErrNotConfigured
	}

	timeout := t.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	if timeout <= 0 {
		return context.DeadlineExceeded
	}

	agent := fiber.Post(t.baseURL + "/bot" + t.token + "/sendMessage")
	agent.Timeout(timeout)
	agent.JSON(sendMessageRequest{
		ChatID:    t.chatID,
		Text:      FormatTicketCreated(notice),
		ParseMode: "HTML",
	})
	if err := agent.Parse(); err != nil {
		return fmt.Errorf("telegram request: %w", err)
	}

	code, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return fmt.Errorf("telegram send: %w", errors.Join(errs...))
	}
	if code != fiber.StatusOK {
		var resp sendMessageResponse
		if json.Unmarshal(body, &resp) == nil && resp.Description != "" {
			return fmt.Errorf("telegram send: status %d: %s", code, resp.Description)
		}
		return fmt.Errorf("telegram send: status %d", code)
	}
	return nil
}

// FormatTicketCreated renders the HTML message body. Field values are escaped.
func FormatTicketCreated(n TicketNotice) string {
	var b strings.Builder
	b.WriteString("🆕<b>แจ้งซ่อมใหม่:</b> ")
	b.WriteString(html.EscapeString(n.TicketID))
	b.WriteString("\n🏢<b>แผนก:</b> ")
	b.WriteString(html.EscapeString(orDash(n.Department)))
	b.WriteString("\n⚙️<b>เครื่อง:</b> ")
	b.WriteString(html.EscapeString(orDash(n.MachineName)))
	b.WriteString("\n⚠️<b>อาการ:</b> ")
	b.WriteString(html.EscapeString(orDash(n.IssueItem)))
	b.WriteString("\n👤<b>ผู้แจ้ง:</b> ")
	b.WriteString(html.EscapeString(orDash(n.RequesterFullname)))
	return b.String()
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
