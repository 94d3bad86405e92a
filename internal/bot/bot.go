// Package bot serves the chat assistant over Telegram.
package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/xaenox/terrenos-bot/internal/models"
	"github.com/xaenox/terrenos-bot/internal/responder"
	"github.com/xaenox/terrenos-bot/internal/service"
)

const channel = "telegram"

// Quick action labels. Tapping one sends its label as a normal message,
// which the keyword rules route to the matching topic.
const (
	actionListings = "🏠 Ver Propiedades"
	actionPrices   = "💰 Consultar Precios"
	actionVisit    = "📅 Agendar Visita"
)

// sender is the part of *tgbotapi.BotAPI used to reply.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type Bot struct {
	api          *tgbotapi.BotAPI
	sender       sender
	chat         *service.ChatService
	historyLimit int
	timeout      int
	logger       *zap.Logger
}

type Config struct {
	Token        string
	Debug        bool
	Timeout      int
	HistoryLimit int
}

func New(cfg Config, chat *service.ChatService, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	api.Debug = cfg.Debug

	b := newBot(api, chat, cfg.HistoryLimit, logger)
	b.api = api
	if cfg.Timeout > 0 {
		b.timeout = cfg.Timeout
	}

	logger.Info("Authorized on Telegram", zap.String("username", api.Self.UserName))
	return b, nil
}

func newBot(s sender, chat *service.ChatService, historyLimit int, logger *zap.Logger) *Bot {
	if historyLimit <= 0 {
		historyLimit = 10
	}
	return &Bot{
		sender:       s,
		chat:         chat,
		historyLimit: historyLimit,
		timeout:      60,
		logger:       logger,
	}
}

// Start long-polls for updates until ctx is cancelled. It returns once every
// message already received has been answered.
func (b *Bot) Start(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.timeout

	updates := b.api.GetUpdatesChan(u)
	defer b.api.StopReceivingUpdates()

	b.serve(ctx, updates)
	return nil
}

func (b *Bot) serve(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	// Messages already accepted are answered even after shutdown begins.
	handlerCtx := context.WithoutCancel(ctx)

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message == nil {
				continue
			}
			wg.Add(1)
			go func(message *tgbotapi.Message) {
				defer wg.Done()
				b.handleMessage(handlerCtx, message)
			}(update.Message)
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID

	content := message.Text
	if message.Caption != "" {
		content = message.Caption
	}
	if !message.IsCommand() && strings.TrimSpace(content) == "" {
		b.sendMessage(chatID, "Por ahora solo puedo leer mensajes de texto. ¿En qué puedo ayudarte?")
		return
	}

	session, created, err := b.chat.SessionFor(ctx, channel, strconv.FormatInt(chatID, 10))
	if err != nil {
		b.logger.Error("Failed to get session",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
		b.sendErrorMessage(chatID, "Lo siento, no pude iniciar la conversación. Intenta de nuevo.")
		return
	}

	if message.IsCommand() {
		b.handleCommand(ctx, session, message)
		return
	}

	if created {
		b.sendWelcome(chatID)
	}

	reply, err := b.chat.Send(ctx, session.ID, content)
	if err != nil {
		b.logger.Error("Failed to answer message",
			zap.Error(err),
			zap.String("session_id", session.ID),
			zap.Int64("chat_id", chatID))
		b.sendErrorMessage(chatID, "Lo siento, no pude procesar tu mensaje. Intenta de nuevo.")
		return
	}

	b.sendReply(chatID, message.MessageID, reply.Text)
}

func (b *Bot) handleCommand(ctx context.Context, session *models.Session, message *tgbotapi.Message) {
	switch message.Command() {
	case "start":
		b.sendWelcome(message.Chat.ID)
	case "help":
		b.handleHelp(message)
	case "propiedades":
		b.handleQuick(ctx, session, message, models.TopicProperty)
	case "precios":
		b.handleQuick(ctx, session, message, models.TopicPricing)
	case "visita":
		b.handleQuick(ctx, session, message, models.TopicVisit)
	case "contacto":
		b.handleQuick(ctx, session, message, models.TopicContact)
	case "historial":
		b.handleHistory(ctx, session, message)
	default:
		b.sendMessage(message.Chat.ID, "Comando desconocido. Usa /help para ver los comandos disponibles.")
	}
}

func (b *Bot) sendWelcome(chatID int64) {
	text := responder.WelcomeText(b.chat.KnowledgeBase()) +
		"\n\nEscríbeme tu pregunta o usa los botones de abajo. /help muestra los comandos."

	msg := tgbotapi.NewMessage(chatID, escapeMarkdown(text))
	msg.ParseMode = tgbotapi.ModeMarkdownV2
	msg.ReplyMarkup = tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(actionListings),
			tgbotapi.NewKeyboardButton(actionPrices),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(actionVisit),
		),
	)
	b.send(msg)
}

func (b *Bot) handleHelp(message *tgbotapi.Message) {
	help := `Comandos disponibles:
/start - Iniciar la conversación
/propiedades - Ver propiedades disponibles
/precios - Consultar precios
/visita - Agendar una visita
/contacto - Datos de contacto
/historial - Tus últimos mensajes
/help - Mostrar esta ayuda

También puedes escribirme con tus propias palabras, por ejemplo: "¿tienen terrenos comerciales?"`

	b.sendMessage(message.Chat.ID, help)
}

func (b *Bot) handleQuick(ctx context.Context, session *models.Session, message *tgbotapi.Message, topic models.Topic) {
	reply, err := b.chat.Quick(ctx, session.ID, topic, message.Text)
	if err != nil {
		b.logger.Error("Failed to answer quick action",
			zap.Error(err),
			zap.String("topic", string(topic)),
			zap.Int64("chat_id", message.Chat.ID))
		b.sendErrorMessage(message.Chat.ID, "Lo siento, no pude procesar tu solicitud.")
		return
	}
	b.sendReply(message.Chat.ID, 0, reply.Text)
}

func (b *Bot) handleHistory(ctx context.Context, session *models.Session, message *tgbotapi.Message) {
	turns, err := b.chat.History(ctx, session.ID, b.historyLimit)
	if err != nil {
		b.logger.Error("Failed to get history",
			zap.Error(err),
			zap.String("session_id", session.ID))
		b.sendErrorMessage(message.Chat.ID, "Lo siento, no pude recuperar tu historial.")
		return
	}

	var user []*models.Turn
	for _, t := range turns {
		if t.Role == models.RoleUser {
			user = append(user, t)
		}
	}
	if len(user) == 0 {
		b.sendMessage(message.Chat.ID, "Todavía no tienes mensajes.")
		return
	}

	var sb strings.Builder
	sb.WriteString("*Tus mensajes recientes:*\n\n")
	for _, t := range user {
		sb.WriteString(fmt.Sprintf("_%s_ %s\n",
			escapeMarkdown(t.CreatedAt.Format("02/01 15:04")),
			escapeMarkdown(truncate(t.Text, 120))))
	}

	msg := tgbotapi.NewMessage(message.Chat.ID, sb.String())
	msg.ParseMode = tgbotapi.ModeMarkdownV2
	b.send(msg)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}

// sendReply sends a formatted reply, retrying as plain text when Telegram
// rejects the markup.
func (b *Bot) sendReply(chatID int64, replyToID int, text string) {
	msg := tgbotapi.NewMessage(chatID, renderMarkdown(text))
	msg.ParseMode = tgbotapi.ModeMarkdownV2
	msg.ReplyToMessageID = replyToID
	msg.DisableWebPagePreview = true

	if _, err := b.sender.Send(msg); err != nil {
		b.logger.Warn("Failed to send formatted reply, retrying as plain text",
			zap.Error(err),
			zap.Int64("chat_id", chatID))

		plain := tgbotapi.NewMessage(chatID, strings.ReplaceAll(text, "**", ""))
		plain.ReplyToMessageID = replyToID
		b.send(plain)
	}
}

func (b *Bot) sendMessage(chatID int64, text string) {
	b.send(tgbotapi.NewMessage(chatID, text))
}

func (b *Bot) sendErrorMessage(chatID int64, text string) {
	b.send(tgbotapi.NewMessage(chatID, "⚠️ "+text))
}

func (b *Bot) send(msg tgbotapi.MessageConfig) {
	if _, err := b.sender.Send(msg); err != nil {
		b.logger.Error("Failed to send message",
			zap.Error(err),
			zap.Int64("chat_id", msg.ChatID))
	}
}
