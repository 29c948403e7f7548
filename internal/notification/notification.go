// Package notification delivers signal alerts to external channels.
// Delivery failures are logged by callers, never fatal.
package notification

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"signal-analyzer/internal/strategy"
)

// Type classifies a notification
type Type string

const (
	NotifySignal Type = "signal"
	NotifyError  Type = "error"
	NotifyInfo   Type = "info"
)

// Notification is one outbound message
type Notification struct {
	Type      Type
	Title     string
	Message   string
	Symbol    string
	Price     float64
	ChatID    string // overrides the provider default when set
	Timestamp time.Time
}

// Notifier is one delivery channel
type Notifier interface {
	Send(n *Notification) error
	Name() string
	IsEnabled() bool
}

// Manager fans a notification out to every enabled provider
type Manager struct {
	notifiers []Notifier
}

// NewManager creates an empty notification manager
func NewManager() *Manager {
	return &Manager{notifiers: make([]Notifier, 0)}
}

// AddNotifier registers a delivery channel
func (m *Manager) AddNotifier(n Notifier) {
	m.notifiers = append(m.notifiers, n)
}

// Send delivers to all enabled providers, returning the last error
func (m *Manager) Send(n *Notification) error {
	var lastErr error
	for _, notifier := range m.notifiers {
		if notifier.IsEnabled() {
			if err := notifier.Send(n); err != nil {
				lastErr = fmt.Errorf("%s: %w", notifier.Name(), err)
			}
		}
	}
	return lastErr
}

// SignalAlert carries the fields rendered into a signal notification
type SignalAlert struct {
	Symbol      string
	Strategy    string
	Direction   strategy.Direction
	Price       float64
	Entry       float64
	StopLoss    float64
	TakeProfit  float64
	RiskReward  float64
	Reliability float64
	Confidence  float64
	ChatID      string
}

// SendSignal formats and delivers a signal alert
func (m *Manager) SendSignal(a SignalAlert) error {
	arrow := "LONG"
	if a.Direction == strategy.DirectionShort {
		arrow = "SHORT"
	}

	return m.Send(&Notification{
		Type:   NotifySignal,
		Title:  fmt.Sprintf("%s signal: %s (%s)", arrow, a.Symbol, a.Strategy),
		Symbol: a.Symbol,
		Price:  a.Price,
		ChatID: a.ChatID,
		Message: fmt.Sprintf(
			"Price: %.4f\nEntry: %.4f\nSL: %.4f | TP: %.4f (R:R %.2f)\nReliability: %.0f%% | Confidence: %.0f%%",
			a.Price, a.Entry, a.StopLoss, a.TakeProfit, a.RiskReward, a.Reliability, a.Confidence,
		),
		Timestamp: time.Now(),
	})
}

// SendError delivers an error notice
func (m *Manager) SendError(title, message string) error {
	return m.Send(&Notification{
		Type:      NotifyError,
		Title:     title,
		Message:   message,
		Timestamp: time.Now(),
	})
}

// TelegramNotifier sends notifications through the Telegram bot API
type TelegramNotifier struct {
	botToken string
	chatID   string
	enabled  bool
	client   *http.Client
}

// TelegramConfig holds Telegram credentials
type TelegramConfig struct {
	BotToken string
	ChatID   string
	Enabled  bool
}

// NewTelegramNotifier creates a Telegram notifier. Missing credentials
// leave it disabled.
func NewTelegramNotifier(cfg TelegramConfig) *TelegramNotifier {
	return &TelegramNotifier{
		botToken: cfg.BotToken,
		chatID:   cfg.ChatID,
		enabled:  cfg.Enabled && cfg.BotToken != "",
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (t *TelegramNotifier) Name() string { return "telegram" }

func (t *TelegramNotifier) IsEnabled() bool { return t.enabled }

func (t *TelegramNotifier) Send(n *Notification) error {
	if !t.enabled {
		return nil
	}

	chatID := t.chatID
	if n.ChatID != "" {
		chatID = n.ChatID
	}
	if chatID == "" {
		return fmt.Errorf("no telegram chat id configured")
	}

	payload := map[string]interface{}{
		"chat_id":    chatID,
		"text":       fmt.Sprintf("*%s*\n\n%s", n.Title, n.Message),
		"parse_mode": "Markdown",
	}
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", t.botToken)
	resp, err := t.client.Post(url, "application/json", bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram API returned status %d", resp.StatusCode)
	}
	return nil
}

// DiscordNotifier sends notifications through a Discord webhook
type DiscordNotifier struct {
	webhookURL string
	enabled    bool
	client     *http.Client
}

// DiscordConfig holds the webhook settings
type DiscordConfig struct {
	WebhookURL string
	Enabled    bool
}

// NewDiscordNotifier creates a Discord notifier
func NewDiscordNotifier(cfg DiscordConfig) *DiscordNotifier {
	return &DiscordNotifier{
		webhookURL: cfg.WebhookURL,
		enabled:    cfg.Enabled && cfg.WebhookURL != "",
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

func (d *DiscordNotifier) Name() string { return "discord" }

func (d *DiscordNotifier) IsEnabled() bool { return d.enabled }

func (d *DiscordNotifier) Send(n *Notification) error {
	if !d.enabled {
		return nil
	}

	color := 0x2ECC71
	if n.Type == NotifyError {
		color = 0xE74C3C
	}

	payload := map[string]interface{}{
		"embeds": []map[string]interface{}{{
			"title":       n.Title,
			"description": n.Message,
			"color":       color,
			"timestamp":   n.Timestamp.UTC().Format(time.RFC3339),
		}},
	}
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal discord payload: %w", err)
	}

	resp, err := d.client.Post(d.webhookURL, "application/json", bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to send discord message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("discord webhook returned status %d", resp.StatusCode)
	}
	return nil
}
