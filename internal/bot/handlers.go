package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"notice_board/internal/feed"
	"notice_board/internal/model"
	"notice_board/internal/storage"
)

func (b *Bot) handleStart(chatID int64) {
	b.reply(chatID, `Welcome to the Campus Notice Board!

Notices from your faculty and administration, filtered to your course and class.

Quick start:
1. /register <code> <name> — join with the code you were given
2. /profile -course <course> -dept <dept> -year <year> ... — tell us your class
3. /feed — read the notices meant for you

Use /help for the full command reference.`)
}

func (b *Bot) handleHelp(chatID int64) {
	b.reply(chatID, `Reading:
/feed [category] — your notices, pinned first
/search <text> — search titles and descriptions
/favs — your favourite notices
/open <id> — show a notice and mark it read
/fav <id> — add or remove a favourite
/report <id> <reason> — report a notice to the admins

Account:
/register <code> <name> — join the board
/profile — show your profile
/profile -course X -dept X -year X -sem X -sec X -group X -roll X — update it

Publishing (faculty and admins):
/post [flags] <title> | <description>
  -cat <category>  -pin  -at YYYY-MM-DD [HH:MM]  -file <url>
  -course -dept -year -sem -sec -group -roll <comma-separated values>
/edit <id> [flags] <title> | <description> — replace a notice (pin is kept)
/pin <id>, /unpin <id>, /delete <id>

Admin:
/invite <admin|faculty|student> — issue a registration code
/reports <id> — reports filed against a notice
/sources — RSS import sources
/addsource <url> [category] — import an RSS feed as notices
/rmsource <id> — stop importing a source
/import <id> — import a source now

Categories: Academic, Exam, Holiday, Placement, Cultural, Important`)
}

func (b *Bot) handleRegister(ctx context.Context, chatID int64, from *tgbotapi.User, args string) {
	code, name, err := ParseRegisterArgs(args)
	if err != nil {
		b.reply(chatID, err.Error())
		return
	}

	u, err := b.svc.Register(ctx, code, from.ID, name)
	if err != nil {
		b.replyError(chatID, err)
		return
	}

	text := fmt.Sprintf("Welcome, %s! You are registered as %s.", u.Name, u.Role)
	if u.Role == model.RoleStudent {
		text += "\n\nSet your class with /profile so you see the notices meant for you."
	}
	b.reply(chatID, text)
}

func (b *Bot) handleProfile(ctx context.Context, chatID int64, u *model.User, args string) {
	if args == "" {
		b.reply(chatID, FormatProfile(u))
		return
	}

	p, err := ParseProfileArgs(args, u.Profile)
	if err != nil {
		b.reply(chatID, err.Error())
		return
	}
	if err := b.svc.UpdateProfile(ctx, u.ID, p); err != nil {
		b.replyError(chatID, err)
		return
	}
	u.Profile = p
	b.reply(chatID, "Profile updated.\n\n"+FormatProfile(u))
}

func (b *Bot) handleFeed(ctx context.Context, chatID int64, u *model.User, args string) {
	header := "Notices"
	var category string
	if args != "" && !strings.EqualFold(args, model.CategoryAll) {
		c, ok := model.ParseCategory(args)
		if !ok {
			b.reply(chatID, unknownCategory(args).Error())
			return
		}
		category = string(c)
		header = "Notices: " + category
	}
	b.sendFeed(ctx, chatID, u, header, feed.Options{Category: category})
}

func (b *Bot) handleSearch(ctx context.Context, chatID int64, u *model.User, args string) {
	if args == "" {
		b.reply(chatID, "Usage: /search <text>")
		return
	}
	b.sendFeed(ctx, chatID, u, fmt.Sprintf("Search %q", args), feed.Options{SearchText: args})
}

func (b *Bot) handleFavs(ctx context.Context, chatID int64, u *model.User) {
	b.sendFeed(ctx, chatID, u, "Favourites", feed.Options{FavouritesOnly: true})
}

func (b *Bot) sendFeed(ctx context.Context, chatID int64, u *model.User, header string, opts feed.Options) {
	items, err := b.svc.Feed(ctx, u.ID, opts)
	if err != nil {
		b.replyError(chatID, err)
		return
	}

	msg := tgbotapi.NewMessage(chatID, FormatFeed(header, items, b.cfg.Location()))
	if kb := feedKeyboard(items); kb != nil {
		msg.ReplyMarkup = *kb
	}
	b.send(msg)
}

func (b *Bot) handleOpen(ctx context.Context, chatID int64, u *model.User, args string) {
	id, err := ParseNoticeArg(args)
	if err != nil {
		b.reply(chatID, "Usage: /open <id>")
		return
	}

	n, err := b.svc.Open(ctx, u.ID, id)
	if err != nil {
		b.replyError(chatID, err)
		return
	}

	msg := tgbotapi.NewMessage(chatID, FormatNotice(*n, b.cfg.Location()))
	msg.ReplyMarkup = noticeKeyboard(*n)
	b.send(msg)
}

func (b *Bot) handleFav(ctx context.Context, chatID int64, u *model.User, args string) {
	id, err := ParseNoticeArg(args)
	if err != nil {
		b.reply(chatID, "Usage: /fav <id>")
		return
	}

	_, added, err := b.svc.ToggleFavourite(ctx, u.ID, id)
	if err != nil {
		b.replyError(chatID, err)
		return
	}
	if added {
		b.reply(chatID, fmt.Sprintf("Notice %s added to favourites.", id))
		return
	}
	b.reply(chatID, fmt.Sprintf("Notice %s removed from favourites.", id))
}

func (b *Bot) handleReport(ctx context.Context, chatID int64, u *model.User, args string) {
	id, reason, err := ParseReportArgs(args)
	if err != nil {
		b.reply(chatID, err.Error())
		return
	}

	if _, err := b.svc.Report(ctx, u.ID, id, reason); err != nil {
		b.replyError(chatID, err)
		return
	}
	b.reply(chatID, "Thanks, the notice has been reported to the admins.")
}

func (b *Bot) handleReports(ctx context.Context, chatID int64, u *model.User, args string) {
	id, err := ParseNoticeArg(args)
	if err != nil {
		b.reply(chatID, "Usage: /reports <id>")
		return
	}

	reports, err := b.svc.Reports(ctx, u.ID, id)
	if err != nil {
		b.replyError(chatID, err)
		return
	}
	b.reply(chatID, FormatReports(id, reports))
}

func (b *Bot) handlePost(ctx context.Context, chatID int64, u *model.User, args string) {
	d, err := ParsePostArgs(args)
	if err != nil {
		b.reply(chatID, err.Error())
		return
	}

	n, err := b.svc.Publish(ctx, u.ID, d)
	if err != nil {
		b.replyError(chatID, err)
		return
	}

	text := fmt.Sprintf("Notice published: %s\nID: %s\nFor: %s", n.Title, n.ID, FormatAudience(n.Target))
	if n.IsScheduled {
		text += fmt.Sprintf("\nStudents will see it from %s.", n.CreatedAt.In(b.cfg.Location()).Format(displayLayout))
	}
	b.reply(chatID, text)
}

func (b *Bot) handleEdit(ctx context.Context, chatID int64, u *model.User, args string) {
	id, rest := nextToken(args)
	if id == "" {
		b.reply(chatID, "Usage: /edit <id> [flags] <title> | <description>")
		return
	}
	d, err := ParsePostArgs(rest)
	if err != nil {
		b.reply(chatID, err.Error())
		return
	}

	n, err := b.svc.Edit(ctx, u.ID, id, d)
	if err != nil {
		b.replyError(chatID, err)
		return
	}
	b.reply(chatID, fmt.Sprintf("Notice updated: %s\nFor: %s", n.Title, FormatAudience(n.Target)))
}

func (b *Bot) handlePin(ctx context.Context, chatID int64, u *model.User, args string, pinned bool) {
	id, err := ParseNoticeArg(args)
	if err != nil {
		if pinned {
			b.reply(chatID, "Usage: /pin <id>")
		} else {
			b.reply(chatID, "Usage: /unpin <id>")
		}
		return
	}

	n, err := b.svc.SetPinned(ctx, u.ID, id, pinned)
	if err != nil {
		b.replyError(chatID, err)
		return
	}
	if pinned {
		b.reply(chatID, fmt.Sprintf("Notice \"%s\" pinned.", n.Title))
		return
	}
	b.reply(chatID, fmt.Sprintf("Notice \"%s\" unpinned.", n.Title))
}

func (b *Bot) handleDelete(ctx context.Context, chatID int64, u *model.User, args string) {
	id, err := ParseNoticeArg(args)
	if err != nil {
		b.reply(chatID, "Usage: /delete <id>")
		return
	}

	n, err := b.svc.Delete(ctx, u.ID, id)
	if err != nil {
		b.replyError(chatID, err)
		return
	}
	b.reply(chatID, fmt.Sprintf("Notice \"%s\" deleted.", n.Title))
}

func (b *Bot) handleInvite(ctx context.Context, chatID int64, u *model.User, args string) {
	role, ok := model.ParseRole(args)
	if !ok {
		b.reply(chatID, "Usage: /invite <admin|faculty|student>")
		return
	}

	c, err := b.svc.IssueCode(ctx, u.ID, role)
	if err != nil {
		b.replyError(chatID, err)
		return
	}
	b.reply(chatID, fmt.Sprintf("Registration code for a new %s (works once):\n\n/register %s <name>", role, c.Code))
}

func (b *Bot) handleSources(ctx context.Context, chatID int64, u *model.User) {
	if !b.requireAdmin(chatID, u) {
		return
	}

	sources, err := b.store.ListSources(ctx)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	b.reply(chatID, FormatSourceList(sources))
}

func (b *Bot) handleAddSource(ctx context.Context, chatID int64, u *model.User, args string) {
	if !b.requireAdmin(chatID, u) {
		return
	}

	url, category, err := ParseAddSourceArgs(args)
	if err != nil {
		b.reply(chatID, err.Error())
		return
	}

	rss, err := b.fetcher.Fetch(ctx, url)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Failed to fetch feed: %v", err))
		return
	}

	name := rss.Title
	if name == "" {
		name = url
	}

	src := &model.Source{
		Name:     name,
		URL:      url,
		Category: category,
		IsActive: true,
	}
	if err := b.store.CreateSource(ctx, src); err != nil {
		b.reply(chatID, fmt.Sprintf("Failed to save source: %v", err))
		return
	}

	b.reply(chatID, fmt.Sprintf("Source added!\n#%d %s [%s]\nURL: %s\nNew items will be published as notices for everyone.",
		src.ID, src.Name, src.Category, src.URL))
}

func (b *Bot) handleRmSource(ctx context.Context, chatID int64, u *model.User, args string) {
	if !b.requireAdmin(chatID, u) {
		return
	}

	id, err := ParseIDArg(args)
	if err != nil {
		b.reply(chatID, "Usage: /rmsource <id>")
		return
	}

	src, err := b.source(ctx, chatID, id)
	if err != nil {
		return
	}
	if err := b.store.DeleteSource(ctx, id); err != nil {
		b.reply(chatID, fmt.Sprintf("Error deleting source: %v", err))
		return
	}
	b.reply(chatID, fmt.Sprintf("Source #%d \"%s\" removed. Notices already imported stay published.", id, src.Name))
}

func (b *Bot) handleImport(ctx context.Context, chatID int64, u *model.User, args string) {
	if !b.requireAdmin(chatID, u) {
		return
	}

	id, err := ParseIDArg(args)
	if err != nil {
		b.reply(chatID, "Usage: /import <id>")
		return
	}

	src, err := b.source(ctx, chatID, id)
	if err != nil {
		return
	}

	count := b.importer.Import(ctx, *src)
	if count == 0 {
		b.reply(chatID, fmt.Sprintf("No new items in #%d \"%s\".", src.ID, src.Name))
		return
	}
	b.reply(chatID, fmt.Sprintf("Imported %d new notice(s) from #%d \"%s\".", count, src.ID, src.Name))
}

func (b *Bot) source(ctx context.Context, chatID, id int64) (*model.Source, error) {
	src, err := b.store.GetSource(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		b.reply(chatID, fmt.Sprintf("Source #%d not found.", id))
		return nil, err
	}
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return nil, err
	}
	return src, nil
}
