package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"signal-scanner/internal/gate"
	"signal-scanner/internal/market"
)

// Notification 封装单个信号的告警上下文。
type Notification struct {
	Asset       market.Asset
	Price       decimal.Decimal
	Probability float64
	Threshold   float64
	Conditions  []gate.ConditionResult
	At          time.Time
}

// Notifier 定义告警输送接口。
type Notifier interface {
	Notify(ctx context.Context, notification Notification) error
	NotifyText(ctx context.Context, text string) error
}

// TelegramNotifier 通过 Telegram Bot API 推送消息。
type TelegramNotifier struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
	logger   zerolog.Logger
}

// NewTelegramNotifier 构造 Telegram 告警器。
func NewTelegramNotifier(botToken, chatID, baseURL string, timeout time.Duration, logger zerolog.Logger) *TelegramNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}

	return &TelegramNotifier{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: timeout},
		logger:   logger.With().Str("component", "alert_telegram").Logger(),
	}
}

// Notify renders the signal and pushes it through sendMessage.
func (n *TelegramNotifier) Notify(ctx context.Context, note Notification) error {
	if err := n.send(ctx, renderMessage(note)); err != nil {
		return err
	}

	n.logger.Info().
		Str("symbol", note.Asset.Symbol).
		Float64("probability", note.Probability).
		Msg("signal alert delivered")
	return nil
}

// NotifyText pushes a raw text message (startup announcements and the like).
func (n *TelegramNotifier) NotifyText(ctx context.Context, text string) error {
	return n.send(ctx, text)
}

func (n *TelegramNotifier) send(ctx context.Context, text string) error {
	payload := map[string]string{
		"chat_id":    n.chatID,
		"text":       text,
		"parse_mode": "Markdown",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send telegram request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("telegram 响应码异常: %d", resp.StatusCode)
	}

	var result struct {
		OK bool `json:"ok"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err == nil {
		if !result.OK {
			return fmt.Errorf("telegram 返回 ok=false")
		}
	}
	return nil
}

func renderMessage(note Notification) string {
	builder := strings.Builder{}
	builder.WriteString("*HIGH PROBABILITY SIGNAL*\n")
	builder.WriteString(fmt.Sprintf("Asset: `%s`\n", note.Asset.Symbol))
	builder.WriteString(fmt.Sprintf("Name: %s\n", note.Asset.Name))
	builder.WriteString(fmt.Sprintf("Class: %s\n", note.Asset.Class))
	builder.WriteString(fmt.Sprintf("Price: $%s\n\n", note.Price.StringFixed(2)))
	builder.WriteString(fmt.Sprintf("Probability: %.1f%% (threshold %.0f%%)\n\n", note.Probability*100, note.Threshold*100))
	builder.WriteString("Conditions:\n")
	for _, cond := range note.Conditions {
		mark := "❌"
		if cond.Met {
			mark = "✅"
		}
		suffix := ""
		if cond.Advisory {
			suffix = " (advisory)"
		}
		builder.WriteString(fmt.Sprintf("%s %s%s\n", mark, cond.Detail, suffix))
	}
	builder.WriteString(fmt.Sprintf("\nTime: %s UTC", note.At.UTC().Format("15:04:05")))
	return builder.String()
}

var _ Notifier = (*TelegramNotifier)(nil)
