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
)

// Notification describes a model that failed its quality gate.
type Notification struct {
	RunID               string
	HorizonMs           int
	CalibrationKind     string
	EvaluatedAt         time.Time
	ROCAUC              decimal.Decimal
	CalibrationError    decimal.Decimal
	MinROCAUC           decimal.Decimal
	MaxCalibrationError decimal.Decimal
	Violations          []string
	AdditionalMsg       string
}

// Notifier delivers quality-gate notifications.
type Notifier interface {
	Notify(ctx context.Context, notification Notification) error
}

// TelegramNotifier posts messages through the Telegram Bot API.
type TelegramNotifier struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
	logger   zerolog.Logger
}

// NewTelegramNotifier constructs a Telegram notifier.
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

// Notify sends the rendered notification with sendMessage.
func (n *TelegramNotifier) Notify(ctx context.Context, note Notification) error {
	payload := map[string]string{
		"chat_id": n.chatID,
		"text":    renderMessage(note),
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
		return fmt.Errorf("telegram unexpected status: %d", resp.StatusCode)
	}

	var result struct {
		OK bool `json:"ok"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err == nil {
		if !result.OK {
			return fmt.Errorf("telegram returned ok=false")
		}
	}

	n.logger.Info().Str("run_id", note.RunID).
		Int("horizon_ms", note.HorizonMs).
		Strs("violations", note.Violations).
		Msg("quality gate notification sent (telegram)")
	return nil
}

func renderMessage(note Notification) string {
	builder := strings.Builder{}
	builder.WriteString("[FusionGuard Model Quality]\n")
	builder.WriteString(fmt.Sprintf("Run: %s\n", note.RunID))
	builder.WriteString(fmt.Sprintf("Horizon: %dms (calibration %s)\n", note.HorizonMs, note.CalibrationKind))
	if !note.EvaluatedAt.IsZero() {
		builder.WriteString(fmt.Sprintf("Evaluated: %s UTC\n", note.EvaluatedAt.UTC().Format(time.RFC3339)))
	}
	builder.WriteString(fmt.Sprintf("ROC AUC: %s (min %s)\n", note.ROCAUC.StringFixed(3), note.MinROCAUC.StringFixed(3)))
	builder.WriteString(fmt.Sprintf("ECE: %s (max %s)\n", note.CalibrationError.StringFixed(3), note.MaxCalibrationError.StringFixed(3)))
	if len(note.Violations) > 0 {
		builder.WriteString(fmt.Sprintf("Violations: %s\n", strings.Join(note.Violations, ", ")))
	}
	if note.AdditionalMsg != "" {
		builder.WriteString(note.AdditionalMsg)
	}
	return builder.String()
}

var _ Notifier = (*TelegramNotifier)(nil)
