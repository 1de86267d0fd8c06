package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"notice_board/internal/board"
	"notice_board/internal/config"
	"notice_board/internal/fetcher"
	"notice_board/internal/model"
	"notice_board/internal/storage"
)

type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Importer publishes the unseen items of a source on demand.
type Importer interface {
	Import(ctx context.Context, src model.Source) int
}

// Bot is the Telegram front end of the notice board.
type Bot struct {
	api      telegramAPI
	svc      *board.Service
	store    storage.Storage
	cfg      *config.Config
	fetcher  *fetcher.Fetcher
	importer Importer
	log      *slog.Logger
}

// New creates a Bot with the given Telegram token, service, storage, and config.
func New(token string, svc *board.Service, store storage.Storage, importer Importer, cfg *config.Config, log *slog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	return &Bot{
		api:      api,
		svc:      svc,
		store:    store,
		cfg:      cfg,
		fetcher:  fetcher.New(http.DefaultClient),
		importer: importer,
		log:      log,
	}, nil
}

// Run starts the bot's long-polling loop, blocking until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update := <-updates:
			if update.CallbackQuery != nil {
				b.handleCallback(ctx, update.CallbackQuery)
				continue
			}
			if update.Message == nil || !update.Message.IsCommand() || update.Message.From == nil {
				continue
			}
			b.handleCommand(ctx, update.Message)
		}
	}
}

// SendMessage sends a text message to the given chat.
func (b *Bot) SendMessage(chatID int64, text string) {
	b.send(tgbotapi.NewMessage(chatID, text))
}

func (b *Bot) send(msg tgbotapi.MessageConfig) {
	msg.DisableWebPagePreview = true
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send message", "chat_id", msg.ChatID, "error", err)
	}
}

func (b *Bot) reply(chatID int64, text string) {
	b.SendMessage(chatID, text)
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	cmd := msg.Command()
	args := strings.TrimSpace(msg.CommandArguments())
	chatID := msg.Chat.ID

	b.log.Debug("command", "cmd", cmd, "args", args, "chat_id", chatID, "from", msg.From.ID)

	switch cmd {
	case "start":
		b.handleStart(chatID)
		return
	case "help":
		b.handleHelp(chatID)
		return
	case "register":
		b.handleRegister(ctx, chatID, msg.From, args)
		return
	}

	u, ok := b.currentUser(ctx, chatID, msg.From)
	if !ok {
		return
	}

	switch cmd {
	case "profile":
		b.handleProfile(ctx, chatID, u, args)
	case "feed":
		b.handleFeed(ctx, chatID, u, args)
	case "search":
		b.handleSearch(ctx, chatID, u, args)
	case "favs":
		b.handleFavs(ctx, chatID, u)
	case cmdOpen:
		b.handleOpen(ctx, chatID, u, args)
	case cmdFav:
		b.handleFav(ctx, chatID, u, args)
	case "report":
		b.handleReport(ctx, chatID, u, args)
	case "reports":
		b.handleReports(ctx, chatID, u, args)
	case "post":
		b.handlePost(ctx, chatID, u, args)
	case "edit":
		b.handleEdit(ctx, chatID, u, args)
	case "pin":
		b.handlePin(ctx, chatID, u, args, true)
	case "unpin":
		b.handlePin(ctx, chatID, u, args, false)
	case "delete":
		b.handleDelete(ctx, chatID, u, args)
	case "invite":
		b.handleInvite(ctx, chatID, u, args)
	case "sources":
		b.handleSources(ctx, chatID, u)
	case "addsource":
		b.handleAddSource(ctx, chatID, u, args)
	case "rmsource":
		b.handleRmSource(ctx, chatID, u, args)
	case "import":
		b.handleImport(ctx, chatID, u, args)
	default:
		b.reply(chatID, "Unknown command. Use /help for a list of commands.")
	}
}

// currentUser resolves the board account of a Telegram user. Configured
// admins are provisioned on first contact.
func (b *Bot) currentUser(ctx context.Context, chatID int64, from *tgbotapi.User) (*model.User, bool) {
	var (
		u   *model.User
		err error
	)
	if b.cfg.IsAdmin(from.ID) {
		u, err = b.svc.EnsureAdmin(ctx, from.ID, displayName(from))
	} else {
		u, err = b.svc.UserByTelegramID(ctx, from.ID)
	}
	switch {
	case errors.Is(err, board.ErrNotFound):
		b.reply(chatID, "You are not registered yet. Ask an admin for a code and use /register <code> <name>.")
		return nil, false
	case err != nil:
		b.log.Error("resolve user", "telegram_id", from.ID, "error", err)
		b.reply(chatID, "Something went wrong. Please try again later.")
		return nil, false
	}
	return u, true
}

func (b *Bot) requireAdmin(chatID int64, u *model.User) bool {
	if u.Role != model.RoleAdmin {
		b.reply(chatID, "Only admins can do that.")
		return false
	}
	return true
}

// replyError maps service errors to user-facing replies.
func (b *Bot) replyError(chatID int64, err error) {
	switch {
	case errors.Is(err, board.ErrNotFound):
		b.reply(chatID, "Notice not found.")
	case errors.Is(err, board.ErrForbidden):
		b.reply(chatID, "You are not allowed to do that.")
	case errors.Is(err, board.ErrInvalid):
		b.reply(chatID, "Invalid input: "+strings.TrimPrefix(err.Error(), board.ErrInvalid.Error()+": "))
	default:
		b.log.Error("command failed", "chat_id", chatID, "error", err)
		b.reply(chatID, "Something went wrong. Please try again later.")
	}
}

func displayName(u *tgbotapi.User) string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		name = u.UserName
	}
	if name == "" {
		name = fmt.Sprintf("user %d", u.ID)
	}
	return name
}
