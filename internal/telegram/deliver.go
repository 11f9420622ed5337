package telegram

import (
	"fmt"
	"log/slog"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"historial-tg-bot/internal/botapi"
	"historial-tg-bot/internal/correlation"
	apperrors "historial-tg-bot/internal/errors"
	"historial-tg-bot/internal/payload"
	"historial-tg-bot/internal/report"
)

// PreviewLimit is the character budget for the raw-result preview message,
// under Telegram's 4096-character message cap.
const PreviewLimit = 3500

// Deliverer routes provider callback results to chats.
type Deliverer struct {
	bot         botapi.Sender
	tracker     *correlation.Tracker
	defaultChat int64
	logger      *slog.Logger
}

// NewDeliverer creates a deliverer. defaultChat receives results whose
// correlation cannot be resolved.
func NewDeliverer(bot botapi.Sender, tracker *correlation.Tracker, defaultChat int64, logger *slog.Logger) *Deliverer {
	return &Deliverer{
		bot:         bot,
		tracker:     tracker,
		defaultChat: defaultChat,
		logger:      logger,
	}
}

// DeliverResult dispatches a provider callback body: a truncated JSON
// preview always, then either the embedded document verbatim or a
// synthesized fallback report. The correlation entry is released whether or
// not delivery succeeds.
func (d *Deliverer) DeliverResult(body []byte) error {
	requestID := payload.RequestID(body)

	chatID, found := d.tracker.Resolve(requestID)
	if !found {
		// Failure-open: deliver to the default recipient rather than
		// silently losing a result.
		chatID = d.defaultChat
		d.logger.Warn("callback without resolvable correlation, using default recipient",
			"request_id", requestID, "chat_id", chatID)
	}
	if requestID != "" {
		defer d.tracker.Release(requestID)
	}

	preview := truncate(string(body), PreviewLimit)
	if _, err := d.bot.Send(tgbotapi.NewMessage(chatID, preview)); err != nil {
		return fmt.Errorf("send preview: %w", err)
	}

	docName := "historial_" + requestID + ".pdf"
	if requestID == "" {
		docName = "historial.pdf"
	}

	if doc, ok := payload.Document(body); ok {
		docMsg := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{
			Name:  docName,
			Bytes: doc,
		})
		if _, err := d.bot.Send(docMsg); err != nil {
			return fmt.Errorf("send document: %w", err)
		}
		d.logger.Info("result delivered with embedded document",
			"request_id", requestID, "chat_id", chatID, "document_size", len(doc))
		return nil
	}

	fallback, err := report.Generate(payload.Summarize(body))
	if err != nil {
		return fmt.Errorf("generate fallback report: %w", err)
	}
	docMsg := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{
		Name:  docName,
		Bytes: fallback,
	})
	docMsg.Caption = "Reporte generado automáticamente (el proveedor no adjuntó documento)."
	if _, err := d.bot.Send(docMsg); err != nil {
		return fmt.Errorf("send fallback report: %w", err)
	}
	d.logger.Info("result delivered with fallback report", "request_id", requestID, "chat_id", chatID)
	return nil
}

// NotifyExpiry tells a chat its lookup timed out awaiting the provider's
// callback. Used as the correlation tracker's sweep callback.
func (d *Deliverer) NotifyExpiry(requestID string, chatID int64) {
	text := fmt.Sprintf("%s (folio %s)", apperrors.ErrLookupTimeout.UserMsg, requestID)
	if _, err := d.bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		d.logger.Error("failed to send expiry notice", "error", err, "chat_id", chatID)
	}
}

// truncate shortens s to at most maxLen bytes without splitting a UTF-8
// rune; the payloads carry accented Spanish text.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen - 3
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
