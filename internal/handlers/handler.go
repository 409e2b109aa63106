package handlers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/sync/errgroup"

	"affiliate-studio/internal/batch"
	"affiliate-studio/internal/credential"
	"affiliate-studio/internal/fault"
	"affiliate-studio/internal/history"
	"affiliate-studio/internal/media"
	"affiliate-studio/internal/mediagroup"
	"affiliate-studio/internal/prompt"
	"affiliate-studio/internal/session"
	"affiliate-studio/internal/studio"
	"affiliate-studio/internal/telegram"
)

// Messenger is the part of the Telegram client the bot talks through.
type Messenger interface {
	SendText(chatID int64, text string) error
	SendTyping(chatID int64)
	SendUploading(chatID int64)
	SendTextWithKeyboard(chatID int64, text string, kb telegram.Keyboard) (int, error)
	EditTextWithKeyboard(chatID int64, messageID int, text string, kb telegram.Keyboard) error
	AnswerCallback(callbackID, text string, alert bool) error
	SendPhotoDataURL(chatID int64, dataURL, caption string) error
	SendVideo(chatID int64, video, caption string) error
	SendDocument(chatID int64, name string, data []byte, caption string) error
	DownloadFile(ctx context.Context, fileID string) (media.File, error)
}

// Studio is the action boundary the bot drives; *studio.Service implements it.
type Studio interface {
	Catalog() *prompt.Catalog
	History() *history.Store
	Generate(ctx context.Context, in studio.GenerateInput) (studio.Outcome, error)
	Copywrite(ctx context.Context, image media.File, kind string) (studio.Copy, error)
	Trends(ctx context.Context, query string) (studio.TrendReport, error)
	Video(ctx context.Context, in studio.VideoInput) (string, error)
	KeyState() credential.State
	SetKey(key string) error
	ClearKey() error
	OpenKeyPicker(ctx context.Context) (credential.State, error)
	Present(err error) fault.Notice
}

type Options struct {
	Telegram Messenger
	Studio   Studio
	Sessions *session.Store
	Logger   *slog.Logger
}

type Handler struct {
	tg         Messenger
	studio     Studio
	sessions   *session.Store
	logger     *slog.Logger
	aggregator *mediagroup.Aggregator
}

func New(opts Options) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	sessions := opts.Sessions
	if sessions == nil {
		sessions = session.NewStore(session.Options{})
	}

	return &Handler{
		tg:       opts.Telegram,
		studio:   opts.Studio,
		sessions: sessions,
		logger:   logger,
	}
}

func (h *Handler) SetMediaGroupAggregator(ag *mediagroup.Aggregator) {
	h.aggregator = ag
}

func (h *Handler) HandleUpdate(ctx context.Context, update telegram.Update) error {
	if update.CallbackQuery != nil {
		return h.handleCallback(ctx, update.CallbackQuery)
	}
	if update.Message == nil || update.Message.Chat == nil {
		return nil
	}

	msg := update.Message
	chatID := msg.Chat.ID
	username := ""
	if msg.From != nil {
		username = msg.From.UserName
	}

	if msg.IsCommand() {
		return h.handleCommand(ctx, chatID, username, msg)
	}
	if len(msg.Photo) > 0 {
		return h.handlePhoto(ctx, chatID, username, msg)
	}
	if text := strings.TrimSpace(msg.Text); text != "" {
		h.sessions.Update(chatID, username, func(f *session.Form) { f.Prompt = text })
		return h.tg.SendText(chatID, "✍️ Prompt saved. Send /generate when ready.")
	}
	return nil
}

// HandleAlbum replaces the chat's product images with a flushed album.
func (h *Handler) HandleAlbum(ctx context.Context, album mediagroup.Album) {
	files, err := h.download(ctx, album.FileIDs)
	if err != nil {
		h.logger.Error("album download failed", "chat_id", album.ChatID, "error", err)
		_ = h.tg.SendText(album.ChatID, "❌ Could not download the album. Please send it again.")
		return
	}

	uploaded := h.sessions.Subjects(album.ChatID, album.Username).Replace(files...)
	if caption := strings.TrimSpace(album.Caption); caption != "" {
		h.sessions.Update(album.ChatID, album.Username, func(f *session.Form) { f.Prompt = caption })
	}

	text := fmt.Sprintf("📷 Product images: %d/%d", len(uploaded), studio.MaxSubjects)
	if album.Dropped > 0 {
		text += fmt.Sprintf(" (%d extra ignored)", album.Dropped)
	}
	_ = h.tg.SendText(album.ChatID, text)
}

func (h *Handler) handleCommand(ctx context.Context, chatID int64, username string, msg *tgbotapi.Message) error {
	args := strings.TrimSpace(msg.CommandArguments())

	switch msg.Command() {
	case "start", "help":
		return h.tg.SendText(chatID, helpText)
	case "settings":
		return h.openSettings(chatID, msg.From, menuMain)
	case "generate":
		return h.generate(ctx, chatID, username, args)
	case "quality":
		return h.setQuality(chatID, username, msg.From, args)
	case "ratio":
		return h.setRatio(chatID, username, msg.From, args)
	case "category":
		return h.setCategory(chatID, username, msg.From, args)
	case "mode":
		return h.setMode(chatID, username, msg.From, args)
	case "style":
		return h.setStyle(chatID, username, msg.From, args)
	case "angle":
		return h.setAngles(chatID, username, msg.From, args)
	case "batch":
		return h.setBatch(chatID, username, args)
	case "prompt":
		h.sessions.Update(chatID, username, func(f *session.Form) { f.Prompt = args })
		if args == "" {
			return h.tg.SendText(chatID, "✍️ Custom prompt cleared.")
		}
		return h.tg.SendText(chatID, "✍️ Prompt saved.")
	case "clear":
		h.sessions.Clear(chatID)
		return h.tg.SendText(chatID, "✅ Form and uploaded images cleared.")
	case "history":
		return h.history(chatID, args)
	case "key":
		return h.key(ctx, chatID, args)
	case "trends":
		return h.trends(ctx, chatID, args)
	case "copy":
		return h.copywrite(ctx, chatID, username, args)
	case "video":
		return h.video(ctx, chatID, username, args)
	default:
		return h.tg.SendText(chatID, "❌ Unknown command. Use /help.")
	}
}

func (h *Handler) handlePhoto(ctx context.Context, chatID int64, username string, msg *tgbotapi.Message) error {
	fileID := msg.Photo[len(msg.Photo)-1].FileID

	if msg.MediaGroupID != "" && h.aggregator != nil {
		h.aggregator.Add(mediagroup.Photo{
			ChatID:       chatID,
			Username:     username,
			MediaGroupID: msg.MediaGroupID,
			Caption:      msg.Caption,
			FileID:       fileID,
		})
		return nil
	}

	files, err := h.download(ctx, []string{fileID})
	if err != nil {
		h.logger.Error("photo download failed", "chat_id", chatID, "error", err)
		return h.tg.SendText(chatID, "❌ Could not download the photo.")
	}

	if isReferenceCaption(msg.Caption) {
		h.sessions.SetReference(chatID, username, &files[0])
		return h.tg.SendText(chatID, "🎨 Style reference saved.")
	}

	holder := h.sessions.Subjects(chatID, username)
	if _, err := holder.Add(files[0].Name, files[0].MIMEType, files[0].Data); err != nil {
		return h.tg.SendText(chatID, fmt.Sprintf("❌ %v. Use /clear to start over.", err))
	}
	if caption := strings.TrimSpace(msg.Caption); caption != "" {
		h.sessions.Update(chatID, username, func(f *session.Form) { f.Prompt = caption })
	}
	return h.tg.SendText(chatID, fmt.Sprintf("📷 Product images: %d/%d", holder.Len(), holder.MaxFiles()))
}

func (h *Handler) download(ctx context.Context, fileIDs []string) ([]media.File, error) {
	files := make([]media.File, len(fileIDs))
	eg, egCtx := errgroup.WithContext(ctx)
	for i, fileID := range fileIDs {
		eg.Go(func() error {
			f, err := h.tg.DownloadFile(egCtx, fileID)
			if err != nil {
				return err
			}
			files[i] = f
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return files, nil
}

func (h *Handler) generate(ctx context.Context, chatID int64, username, args string) error {
	form := h.sessions.Form(chatID, username)

	angles := form.Angles
	if tokens := splitList(args); len(tokens) > 0 {
		labels, unknown := resolveAngles(h.studio.Catalog(), tokens)
		if len(unknown) > 0 {
			return h.tg.SendText(chatID, "❌ Unknown angle(s): "+strings.Join(unknown, ", ")+"\nSee /angle for the list.")
		}
		angles = labels
	}

	var mode *batch.Mode
	if form.BatchMode != "" {
		if m, err := batch.ParseMode(form.BatchMode); err == nil {
			mode = &m
		}
	}

	count := len(angles)
	if count == 0 {
		count = 1
	}
	h.tg.SendUploading(chatID)
	_ = h.tg.SendText(chatID, fmt.Sprintf("🎨 Generating %d image(s), please wait...", count))

	start := time.Now()
	out, err := h.studio.Generate(ctx, studio.GenerateInput{
		Subjects:    h.sessions.Subjects(chatID, username).Files(),
		Reference:   h.sessions.Reference(chatID),
		Category:    form.Category,
		Mode:        form.Mode,
		Style:       form.Style,
		Angle:       form.Angle,
		Angles:      angles,
		Prompt:      form.Prompt,
		Quality:     form.Quality,
		AspectRatio: form.AspectRatio,
		BatchMode:   mode,
		OnResult: func(r batch.Result) {
			if err := h.tg.SendPhotoDataURL(chatID, r.Value, r.Label); err != nil {
				h.logger.Warn("send result failed", "chat_id", chatID, "angle", r.Label, "error", err)
			}
		},
	})
	if err != nil {
		return h.sendNotice(chatID, err)
	}

	h.logger.Info("telegram generate done", "chat_id", chatID, "images", len(out.Items), "took", time.Since(start))
	return h.tg.SendText(chatID, fmt.Sprintf("✅ Done! %d image(s) saved to /history.", len(out.Items)))
}

func (h *Handler) history(chatID int64, args string) error {
	store := h.studio.History()
	fields := strings.Fields(args)
	sub := "list"
	if len(fields) > 0 {
		sub = strings.ToLower(fields[0])
	}

	switch sub {
	case "list":
		return h.tg.SendText(chatID, historyText(store.List()))
	case "show", "delete":
		if len(fields) < 2 {
			return h.tg.SendText(chatID, fmt.Sprintf("Usage: /history %s <number|id>", sub))
		}
		item, ok := lookupHistory(store, fields[1])
		if !ok {
			return h.tg.SendText(chatID, "❌ No such history entry.")
		}
		if sub == "delete" {
			store.Delete(item.ID)
			return h.tg.SendText(chatID, "🗑 Deleted.")
		}
		caption := item.Angle + " · " + item.Category + "/" + item.Mode
		if item.Angle == "Video" {
			return h.tg.SendVideo(chatID, item.URL, caption)
		}
		return h.tg.SendPhotoDataURL(chatID, item.URL, caption)
	case "clear":
		store.Clear()
		return h.tg.SendText(chatID, "🗑 History cleared.")
	case "export":
		format := history.FormatJSON
		if len(fields) > 1 {
			f, err := history.ParseFormat(fields[1])
			if err != nil {
				return h.tg.SendText(chatID, "❌ "+err.Error())
			}
			format = f
		}
		var buf bytes.Buffer
		if err := store.Export(&buf, format); err != nil {
			h.logger.Error("history export failed", "error", err)
			return h.tg.SendText(chatID, "❌ Export failed.")
		}
		return h.tg.SendDocument(chatID, "history."+string(format), buf.Bytes(), fmt.Sprintf("%d entries", store.Len()))
	default:
		return h.tg.SendText(chatID, "Usage: /history [list|show N|delete N|clear|export json|yaml|parquet]")
	}
}

func lookupHistory(store *history.Store, ref string) (history.Item, bool) {
	if n, err := strconv.Atoi(ref); err == nil {
		items := store.List()
		if n < 1 || n > len(items) {
			return history.Item{}, false
		}
		return items[n-1], true
	}
	return store.Get(ref)
}

func historyText(items []history.Item) string {
	if len(items) == 0 {
		return "🗂 History is empty."
	}

	const maxShown = 20
	var b strings.Builder
	fmt.Fprintf(&b, "🗂 History (%d, newest first)\n\n", len(items))
	for i, it := range items {
		if i == maxShown {
			fmt.Fprintf(&b, "... and %d more\n", len(items)-maxShown)
			break
		}
		fmt.Fprintf(&b, "%d. %s · %s/%s · %s\n", i+1, it.Angle, it.Category, it.Mode, it.Time().Format("2006-01-02 15:04"))
	}
	b.WriteString("\n/history show N · /history delete N")
	return b.String()
}

func (h *Handler) key(ctx context.Context, chatID int64, args string) error {
	switch arg := firstArg(args); strings.ToLower(arg) {
	case "", "status":
		return h.tg.SendText(chatID, keyStateText(h.studio.KeyState()))
	case "clear":
		if err := h.studio.ClearKey(); err != nil {
			return h.sendNotice(chatID, err)
		}
		return h.tg.SendText(chatID, "🔑 Manual key cleared.\n"+keyStateText(h.studio.KeyState()))
	case "pick":
		st, err := h.studio.OpenKeyPicker(ctx)
		if err != nil {
			return h.sendNotice(chatID, err)
		}
		return h.tg.SendText(chatID, keyStateText(st))
	default:
		if err := h.studio.SetKey(arg); err != nil {
			return h.sendNotice(chatID, err)
		}
		return h.tg.SendText(chatID, "🔑 Key saved. Delete your message with the key.\n"+keyStateText(h.studio.KeyState()))
	}
}

func keyStateText(st credential.State) string {
	if !st.Connected {
		text := "🔴 Not connected. Send /key <api-key>"
		if st.HasPicker {
			text += " or /key pick"
		}
		return text + "."
	}
	return fmt.Sprintf("🟢 Connected via %s key %s", st.Source, st.Masked)
}

func (h *Handler) trends(ctx context.Context, chatID int64, query string) error {
	h.tg.SendTyping(chatID)
	report, err := h.studio.Trends(ctx, query)
	if err != nil {
		return h.sendNotice(chatID, err)
	}

	var b strings.Builder
	b.WriteString("📈 ")
	b.WriteString(strings.TrimSpace(report.Text))
	if len(report.Sources) > 0 {
		b.WriteString("\n\nSources:\n")
		for i, s := range report.Sources {
			fmt.Fprintf(&b, "%d. %s\n%s\n", i+1, s.Title, s.URI)
		}
	}
	return h.tg.SendText(chatID, b.String())
}

func (h *Handler) copywrite(ctx context.Context, chatID int64, username, kind string) error {
	files := h.sessions.Subjects(chatID, username).Files()
	if len(files) == 0 {
		return h.tg.SendText(chatID, "📷 Send a product photo first.")
	}

	h.tg.SendTyping(chatID)
	c, err := h.studio.Copywrite(ctx, files[0], firstArg(kind))
	if err != nil {
		return h.sendNotice(chatID, err)
	}
	return h.tg.SendText(chatID, c.Text)
}

func (h *Handler) video(ctx context.Context, chatID int64, username, text string) error {
	form := h.sessions.Form(chatID, username)
	in := studio.VideoInput{
		Category:    form.Category,
		Mode:        form.Mode,
		Style:       form.Style,
		Prompt:      form.Prompt,
		AspectRatio: form.AspectRatio,
	}
	if text != "" {
		in.Prompt = text
	}
	if files := h.sessions.Subjects(chatID, username).Files(); len(files) > 0 {
		in.Image = &files[0]
	}

	_ = h.tg.SendText(chatID, "🎬 Rendering video, this can take a few minutes...")
	url, err := h.studio.Video(ctx, in)
	if err != nil {
		return h.sendNotice(chatID, err)
	}
	return h.tg.SendVideo(chatID, url, "✅ Video ready")
}

func (h *Handler) sendNotice(chatID int64, err error) error {
	n := h.studio.Present(err)
	text := "❌ " + n.Message
	switch n.Remedy {
	case fault.RemedyOpenPicker:
		text += "\n🔑 /key <api-key>"
	case fault.RemedyLowerQuality:
		text += "\n⚙️ /quality 1K"
	}
	return h.tg.SendText(chatID, text)
}

const helpText = "🛍 Affiliate Studio\n\n" +
	"Send up to 4 product photos (single or album). Caption a photo with \"ref\" to use it as the style reference.\n\n" +
	"/generate [angles] - generate images (e.g. /generate front, top, pov)\n" +
	"/settings - form settings keyboard\n" +
	"/category, /mode, /style, /angle - pick the scene\n" +
	"/quality 1K|2K|4K, /ratio 1:1|16:9|9:16\n" +
	"/batch sequential|concurrent\n" +
	"/prompt <text> - extra instructions\n" +
	"/copy [caption|description|hook|script] - marketing copy\n" +
	"/trends <niche> - market trends with sources\n" +
	"/video [prompt] - short product video\n" +
	"/history - saved results\n" +
	"/key - API key status\n" +
	"/clear - reset form and photos"
