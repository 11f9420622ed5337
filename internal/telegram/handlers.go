package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"historial-tg-bot/internal/botapi"
	"historial-tg-bot/internal/correlation"
	apperrors "historial-tg-bot/internal/errors"
	"historial-tg-bot/internal/ledger"
)

// LookupSubmitter submits a lookup to the Records Provider and returns its
// correlation identifier.
type LookupSubmitter interface {
	SubmitLookup(ctx context.Context, curp, nss string) (string, error)
}

// Handler processes Telegram updates
type Handler struct {
	bot        botapi.Sender
	ledger     *ledger.Store
	tracker    *correlation.Tracker
	provider   LookupSubmitter
	adminID    int64
	lookupCost int
	logger     *slog.Logger
}

// NewHandler creates a new update handler
func NewHandler(
	bot botapi.Sender,
	ledgerStore *ledger.Store,
	tracker *correlation.Tracker,
	provider LookupSubmitter,
	adminID int64,
	lookupCost int,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		bot:        bot,
		ledger:     ledgerStore,
		tracker:    tracker,
		provider:   provider,
		adminID:    adminID,
		lookupCost: lookupCost,
		logger:     logger,
	}
}

// HandleUpdate processes a single update
func (h *Handler) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}

	msg := update.Message
	if !msg.IsCommand() {
		return
	}
	h.handleCommand(ctx, msg)
}

func (h *Handler) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.From.ID

	switch msg.Command() {
	case "start":
		h.sendText(msg.Chat.ID,
			"Bot de consulta de semanas cotizadas.\n\n"+
				"Comandos:\n"+
				"/historial <CURP> <NSS> - Consultar historial laboral (cuesta "+
				strconv.Itoa(h.lookupCost)+" crédito(s))\n"+
				"/saldo - Ver tu saldo de créditos\n"+
				"/id - Ver tu identificador")

	case "id":
		h.sendText(msg.Chat.ID, fmt.Sprintf("Tu ID: %d", userID))

	case "saldo":
		balance := h.ledger.Credits(key(userID))
		h.sendText(msg.Chat.ID, fmt.Sprintf("Saldo: %d crédito(s)", balance))

	case "historial":
		h.handleHistorial(ctx, msg)

	case "grant":
		h.adminOnly(msg, func(args []string) {
			target, ok := h.oneUserArg(msg.Chat.ID, args)
			if !ok {
				return
			}
			h.ledger.Grant(target)
			h.sendText(msg.Chat.ID, fmt.Sprintf("Usuario %s autorizado.", target))
		})

	case "revoke":
		h.adminOnly(msg, func(args []string) {
			target, ok := h.oneUserArg(msg.Chat.ID, args)
			if !ok {
				return
			}
			h.ledger.Revoke(target)
			h.sendText(msg.Chat.ID, fmt.Sprintf("Autorización de %s retirada.", target))
		})

	case "addcredits":
		h.adminOnly(msg, func(args []string) {
			target, amount, ok := h.userAmountArgs(msg.Chat.ID, args)
			if !ok {
				return
			}
			balance := h.ledger.AddCredits(target, amount)
			h.sendText(msg.Chat.ID, fmt.Sprintf("Nuevo saldo de %s: %d", target, balance))
		})

	case "setcredits":
		h.adminOnly(msg, func(args []string) {
			target, amount, ok := h.userAmountArgs(msg.Chat.ID, args)
			if !ok {
				return
			}
			balance := h.ledger.SetCredits(target, amount)
			h.sendText(msg.Chat.ID, fmt.Sprintf("Nuevo saldo de %s: %d", target, balance))
		})

	case "credits":
		h.adminOnly(msg, func(args []string) {
			target, ok := h.oneUserArg(msg.Chat.ID, args)
			if !ok {
				return
			}
			h.sendText(msg.Chat.ID, fmt.Sprintf("Saldo de %s: %d", target, h.ledger.Credits(target)))
		})

	case "users":
		h.adminOnly(msg, func([]string) {
			users := h.ledger.AllowedUsers()
			if len(users) == 0 {
				h.sendText(msg.Chat.ID, "No hay usuarios autorizados.")
				return
			}
			var sb strings.Builder
			sb.WriteString("Usuarios autorizados:\n")
			for _, u := range users {
				fmt.Fprintf(&sb, "%s — %d crédito(s)\n", u.UserID, u.Credits)
			}
			h.sendText(msg.Chat.ID, sb.String())
		})

	default:
		h.sendText(msg.Chat.ID, "Comando desconocido. Usa /start para ver los comandos disponibles.")
	}
}

// handleHistorial runs the lookup submission flow: authorization, pessimistic
// charge, provider call, refund on failure, correlation registration.
func (h *Handler) handleHistorial(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.From.ID
	isAdmin := userID == h.adminID

	if !isAdmin && !h.ledger.IsAllowed(key(userID)) {
		h.logger.Warn("unauthorized lookup attempt", "user_id", userID, "username", msg.From.UserName)
		h.sendText(msg.Chat.ID, apperrors.ErrUnauthorized.UserMsg)
		return
	}

	args := strings.Fields(msg.CommandArguments())
	if len(args) != 2 {
		h.sendText(msg.Chat.ID, "Uso: /historial <CURP> <NSS>")
		return
	}
	curp, nss := args[0], args[1]

	// The admin is never charged. Everyone else is debited before the
	// outbound call and refunded if the submission fails.
	charged := false
	if !isAdmin {
		ok, remaining := h.ledger.ConsumeCredits(key(userID), h.lookupCost)
		if !ok {
			h.sendText(msg.Chat.ID, fmt.Sprintf("%s Saldo actual: %d, costo: %d.",
				apperrors.ErrInsufficientCredits.UserMsg, remaining, h.lookupCost))
			return
		}
		charged = true
	}

	requestID, err := h.provider.SubmitLookup(ctx, curp, nss)
	if err != nil {
		if charged {
			h.ledger.AddCredits(key(userID), h.lookupCost)
		}
		h.logger.Error("lookup submission failed", "error", err, "user_id", userID)
		h.sendText(msg.Chat.ID, apperrors.GetUserMessage(err))
		return
	}

	h.tracker.Register(requestID, msg.Chat.ID)
	h.logger.Info("lookup submitted", "request_id", requestID, "user_id", userID)

	reply := fmt.Sprintf("Consulta enviada (folio %s). Recibirás el resultado en este chat.", requestID)
	if charged {
		reply += fmt.Sprintf("\nSaldo restante: %d", h.ledger.Credits(key(userID)))
	}
	h.sendText(msg.Chat.ID, reply)
}

// adminOnly runs fn with the command's arguments when the caller is the
// configured administrator, answering a denial otherwise.
func (h *Handler) adminOnly(msg *tgbotapi.Message, fn func(args []string)) {
	if msg.From.ID != h.adminID {
		h.sendText(msg.Chat.ID, apperrors.ErrAdminOnly.UserMsg)
		return
	}
	fn(strings.Fields(msg.CommandArguments()))
}

func (h *Handler) oneUserArg(chatID int64, args []string) (string, bool) {
	if len(args) != 1 {
		h.sendText(chatID, "Uso: /<comando> <userId>")
		return "", false
	}
	return args[0], true
}

func (h *Handler) userAmountArgs(chatID int64, args []string) (string, int, bool) {
	if len(args) != 2 {
		h.sendText(chatID, "Uso: /<comando> <userId> <cantidad>")
		return "", 0, false
	}
	amount, err := strconv.Atoi(args[1])
	if err != nil {
		h.sendText(chatID, "La cantidad debe ser un número entero.")
		return "", 0, false
	}
	return args[0], amount, true
}

func (h *Handler) sendText(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := h.bot.Send(msg); err != nil {
		h.logger.Error("failed to send message", "error", err, "chat_id", chatID)
	}
}

// key converts a Telegram numeric identifier to the string form the ledger
// file uses.
func key(userID int64) string {
	return strconv.FormatInt(userID, 10)
}
