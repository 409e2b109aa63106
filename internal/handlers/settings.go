package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"affiliate-studio/internal/batch"
	"affiliate-studio/internal/gemini"
	"affiliate-studio/internal/prompt"
	"affiliate-studio/internal/session"
	"affiliate-studio/internal/telegram"
)

const settingsCallbackPrefix = "st"

const (
	menuMain     = "main"
	menuCategory = "category"
	menuMode     = "mode"
	menuStyle    = "style"
	menuAngle    = "angle"
	menuQuality  = "quality"
	menuRatio    = "ratio"
	menuBatch    = "batch"
)

var (
	qualities  = []gemini.Quality{gemini.Standard, gemini.HD2K, gemini.UltraHD4K}
	ratios     = []gemini.AspectRatio{gemini.Square, gemini.Landscape, gemini.Portrait}
	batchModes = []batch.Mode{batch.Sequential, batch.Concurrent}
)

func ownerOf(chatID int64, from *tgbotapi.User) int64 {
	if from != nil {
		return from.ID
	}
	return chatID
}

func (h *Handler) openSettings(chatID int64, from *tgbotapi.User, menu string) error {
	username := ""
	if from != nil {
		username = from.UserName
	}
	form := h.sessions.Form(chatID, username)
	_, err := h.tg.SendTextWithKeyboard(chatID, h.settingsText(form), h.settingsKeyboard(ownerOf(chatID, from), menu, form))
	return err
}

func (h *Handler) setQuality(chatID int64, username string, from *tgbotapi.User, args string) error {
	if args == "" {
		return h.openSettings(chatID, from, menuQuality)
	}
	q, err := gemini.ParseQuality(args)
	if err != nil {
		return h.tg.SendText(chatID, "❌ Quality must be 1K, 2K or 4K.")
	}
	h.sessions.Update(chatID, username, func(f *session.Form) { f.Quality = string(q) })
	text := "⚙️ Quality: " + string(q)
	if q.IsPro() {
		text += " (needs a billing-enabled key)"
	}
	return h.tg.SendText(chatID, text)
}

func (h *Handler) setRatio(chatID int64, username string, from *tgbotapi.User, args string) error {
	if args == "" {
		return h.openSettings(chatID, from, menuRatio)
	}
	r, err := gemini.ParseAspectRatio(args)
	if err != nil {
		return h.tg.SendText(chatID, "❌ Ratio must be 1:1, 16:9 or 9:16.")
	}
	h.sessions.Update(chatID, username, func(f *session.Form) { f.AspectRatio = string(r) })
	return h.tg.SendText(chatID, "⚙️ Aspect ratio: "+string(r))
}

func (h *Handler) setCategory(chatID int64, username string, from *tgbotapi.User, args string) error {
	if args == "" {
		return h.openSettings(chatID, from, menuCategory)
	}
	cat, ok := findCategory(h.studio.Catalog(), args)
	if !ok {
		return h.tg.SendText(chatID, "❌ Unknown category. Use /category to pick one.")
	}
	h.sessions.Update(chatID, username, func(f *session.Form) {
		f.Category = cat.ID
		f.Mode = cat.DefaultMode
	})
	return h.tg.SendText(chatID, "⚙️ Category: "+cat.Label)
}

func (h *Handler) setMode(chatID int64, username string, from *tgbotapi.User, args string) error {
	if args == "" {
		return h.openSettings(chatID, from, menuMode)
	}
	form := h.sessions.Form(chatID, username)
	cat, ok := h.studio.Catalog().Category(form.Category)
	if !ok {
		return h.tg.SendText(chatID, "❌ Pick a /category first.")
	}
	for _, m := range cat.Modes {
		if strings.EqualFold(m.ID, args) || strings.EqualFold(m.Label, args) {
			h.sessions.Update(chatID, username, func(f *session.Form) { f.Mode = m.ID })
			return h.tg.SendText(chatID, "⚙️ Mode: "+m.Label)
		}
	}
	return h.tg.SendText(chatID, "❌ Unknown mode for "+cat.Label+". Use /mode to pick one.")
}

func (h *Handler) setStyle(chatID int64, username string, from *tgbotapi.User, args string) error {
	if args == "" {
		return h.openSettings(chatID, from, menuStyle)
	}
	s, ok := h.studio.Catalog().Style(args)
	if !ok {
		return h.tg.SendText(chatID, "❌ Unknown style. Use /style to pick one.")
	}
	h.sessions.Update(chatID, username, func(f *session.Form) { f.Style = s.ID })
	return h.tg.SendText(chatID, "⚙️ Style: "+s.Label)
}

func (h *Handler) setAngles(chatID int64, username string, from *tgbotapi.User, args string) error {
	if args == "" {
		return h.openSettings(chatID, from, menuAngle)
	}
	labels, unknown := resolveAngles(h.studio.Catalog(), splitList(args))
	if len(unknown) > 0 {
		return h.tg.SendText(chatID, "❌ Unknown angle(s): "+strings.Join(unknown, ", "))
	}
	h.sessions.Update(chatID, username, func(f *session.Form) {
		f.Angles = labels
		f.Angle = labels[0]
	})
	return h.tg.SendText(chatID, "⚙️ Angles: "+strings.Join(labels, ", "))
}

func (h *Handler) setBatch(chatID int64, username, args string) error {
	m, err := batch.ParseMode(strings.ToLower(args))
	if err != nil || args == "" {
		return h.tg.SendText(chatID, "Usage: /batch sequential|concurrent")
	}
	h.sessions.Update(chatID, username, func(f *session.Form) { f.BatchMode = m.String() })
	return h.tg.SendText(chatID, "⚙️ Batch: "+m.String())
}

func findCategory(cat *prompt.Catalog, key string) (prompt.Category, bool) {
	key = strings.TrimSpace(key)
	for _, c := range cat.Categories() {
		if strings.EqualFold(c.ID, key) || strings.EqualFold(c.Label, key) {
			return c, true
		}
	}
	return prompt.Category{}, false
}

func (h *Handler) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) error {
	if q == nil || q.Message == nil || q.Message.Chat == nil || q.From == nil {
		return nil
	}
	data := strings.TrimSpace(q.Data)
	if !strings.HasPrefix(data, settingsCallbackPrefix+":") {
		return nil
	}

	parts := strings.Split(data, ":")
	if len(parts) < 3 {
		return nil
	}

	ownerID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return nil
	}
	if ownerID != q.From.ID {
		_ = h.tg.AnswerCallback(q.ID, "This menu belongs to someone else.", true)
		return nil
	}

	action := parts[2]
	arg := ""
	if len(parts) > 3 {
		arg = parts[3]
	}
	chatID := q.Message.Chat.ID
	msgID := q.Message.MessageID
	username := q.From.UserName
	catalog := h.studio.Catalog()

	menu := menuMain
	form := h.sessions.Update(chatID, username, func(f *session.Form) {
		idx, idxErr := strconv.Atoi(arg)
		valid := func(n int) bool { return idxErr == nil && idx >= 0 && idx < n }

		switch action {
		case "menu":
			menu = arg
		case "cat":
			cats := catalog.Categories()
			if arg == "-" {
				f.Category, f.Mode = "", ""
			} else if valid(len(cats)) {
				f.Category = cats[idx].ID
				f.Mode = cats[idx].DefaultMode
			}
		case "mode":
			if cat, ok := catalog.Category(f.Category); ok && valid(len(cat.Modes)) {
				f.Mode = cat.Modes[idx].ID
			}
		case "style":
			styles := catalog.Styles()
			if arg == "-" {
				f.Style = ""
			} else if valid(len(styles)) {
				f.Style = styles[idx].ID
			}
		case "angle":
			angles := catalog.Angles()
			if valid(len(angles)) {
				f.Angles = toggle(f.Angles, angles[idx].Label)
				if len(f.Angles) > 0 {
					f.Angle = f.Angles[0]
				}
			}
			menu = menuAngle
		case "angles_reset":
			f.Angles = nil
			menu = menuAngle
		case "q":
			if valid(len(qualities)) {
				f.Quality = string(qualities[idx])
			}
		case "ar":
			if valid(len(ratios)) {
				f.AspectRatio = string(ratios[idx])
			}
		case "batch":
			if valid(len(batchModes)) {
				f.BatchMode = batchModes[idx].String()
			}
		}
	})

	switch action {
	case "gen":
		_ = h.tg.AnswerCallback(q.ID, "Generating…", false)
		return h.generate(ctx, chatID, username, "")
	case "close":
		_ = h.tg.AnswerCallback(q.ID, "OK", false)
		return h.tg.EditTextWithKeyboard(chatID, msgID, h.settingsText(form), nil)
	default:
		_ = h.tg.AnswerCallback(q.ID, "OK", false)
	}

	text := h.settingsText(form)
	kb := h.settingsKeyboard(ownerID, menu, form)
	if err := h.tg.EditTextWithKeyboard(chatID, msgID, text, kb); err == nil {
		return nil
	}
	_, err = h.tg.SendTextWithKeyboard(chatID, text, kb)
	return err
}

func toggle(list []string, value string) []string {
	for i, v := range list {
		if v == value {
			return append(append([]string(nil), list[:i]...), list[i+1:]...)
		}
	}
	return append(list, value)
}

func (h *Handler) settingsText(f session.Form) string {
	catalog := h.studio.Catalog()

	category, mode := "Auto", "Auto"
	if cat, ok := catalog.Category(f.Category); ok {
		category = cat.Label
		for _, m := range cat.Modes {
			if m.ID == f.Mode {
				mode = m.Label
			}
		}
	}
	style := "Auto"
	if s, ok := catalog.Style(f.Style); ok {
		style = s.Label
	}
	angles := f.Angle
	if len(f.Angles) > 0 {
		angles = strings.Join(f.Angles, ", ")
	}
	if angles == "" {
		angles = prompt.FallbackAngle
	}

	var b strings.Builder
	b.WriteString("⚙️ Studio settings\n\n")
	fmt.Fprintf(&b, "Category: %s\n", category)
	fmt.Fprintf(&b, "Mode: %s\n", mode)
	fmt.Fprintf(&b, "Style: %s\n", style)
	fmt.Fprintf(&b, "Angles: %s\n", angles)
	fmt.Fprintf(&b, "Quality: %s, AR: %s\n", orDefault(f.Quality, string(gemini.Standard)), orDefault(f.AspectRatio, string(gemini.Square)))
	fmt.Fprintf(&b, "Batch: %s\n", orDefault(f.BatchMode, "default"))
	if p := strings.TrimSpace(f.Prompt); p != "" {
		b.WriteString("Prompt: " + truncateLine(p, 80) + "\n")
	}
	return strings.TrimSpace(b.String())
}

func (h *Handler) settingsKeyboard(ownerID int64, menu string, f session.Form) telegram.Keyboard {
	catalog := h.studio.Catalog()
	back := []telegram.Button{{Text: "⬅ Back", Data: cb(ownerID, "menu", menuMain)}}

	switch menu {
	case menuCategory:
		var opts []telegram.Button
		for i, c := range catalog.Categories() {
			opts = append(opts, telegram.Button{Text: checked(c.Label, c.ID == f.Category), Data: cb(ownerID, "cat", strconv.Itoa(i))})
		}
		opts = append(opts, telegram.Button{Text: checked("Auto", f.Category == ""), Data: cb(ownerID, "cat", "-")})
		return append(grid(opts, 2), back)
	case menuMode:
		cat, ok := catalog.Category(f.Category)
		if !ok {
			return telegram.Keyboard{
				{{Text: "Pick a category", Data: cb(ownerID, "menu", menuCategory)}},
				back,
			}
		}
		var opts []telegram.Button
		for i, m := range cat.Modes {
			opts = append(opts, telegram.Button{Text: checked(m.Label, m.ID == f.Mode), Data: cb(ownerID, "mode", strconv.Itoa(i))})
		}
		return append(grid(opts, 2), back)
	case menuStyle:
		var opts []telegram.Button
		for i, s := range catalog.Styles() {
			opts = append(opts, telegram.Button{Text: checked(s.Label, s.ID == f.Style), Data: cb(ownerID, "style", strconv.Itoa(i))})
		}
		opts = append(opts, telegram.Button{Text: checked("Auto", f.Style == ""), Data: cb(ownerID, "style", "-")})
		return append(grid(opts, 2), back)
	case menuAngle:
		var opts []telegram.Button
		for i, a := range catalog.Angles() {
			opts = append(opts, telegram.Button{Text: checked(a.Label, contains(f.Angles, a.Label)), Data: cb(ownerID, "angle", strconv.Itoa(i))})
		}
		kb := grid(opts, 2)
		return append(kb, []telegram.Button{
			{Text: "Reset angles", Data: cb(ownerID, "angles_reset")},
			back[0],
		})
	case menuQuality:
		var opts []telegram.Button
		for i, q := range qualities {
			opts = append(opts, telegram.Button{Text: checked(string(q), string(q) == orDefault(f.Quality, string(gemini.Standard))), Data: cb(ownerID, "q", strconv.Itoa(i))})
		}
		return telegram.Keyboard{opts, back}
	case menuRatio:
		var opts []telegram.Button
		for i, r := range ratios {
			opts = append(opts, telegram.Button{Text: checked(string(r), string(r) == orDefault(f.AspectRatio, string(gemini.Square))), Data: cb(ownerID, "ar", strconv.Itoa(i))})
		}
		return telegram.Keyboard{opts, back}
	case menuBatch:
		var opts []telegram.Button
		for i, m := range batchModes {
			opts = append(opts, telegram.Button{Text: checked(m.String(), m.String() == f.BatchMode), Data: cb(ownerID, "batch", strconv.Itoa(i))})
		}
		return telegram.Keyboard{opts, back}
	}

	return telegram.Keyboard{
		{
			{Text: "Category", Data: cb(ownerID, "menu", menuCategory)},
			{Text: "Mode", Data: cb(ownerID, "menu", menuMode)},
		},
		{
			{Text: "Style", Data: cb(ownerID, "menu", menuStyle)},
			{Text: "Angles", Data: cb(ownerID, "menu", menuAngle)},
		},
		{
			{Text: "Quality", Data: cb(ownerID, "menu", menuQuality)},
			{Text: "Ratio", Data: cb(ownerID, "menu", menuRatio)},
			{Text: "Batch", Data: cb(ownerID, "menu", menuBatch)},
		},
		{
			{Text: "🎨 Generate", Data: cb(ownerID, "gen")},
			{Text: "Close", Data: cb(ownerID, "close")},
		},
	}
}

func grid(buttons []telegram.Button, perRow int) telegram.Keyboard {
	var kb telegram.Keyboard
	var row []telegram.Button
	for _, b := range buttons {
		row = append(row, b)
		if len(row) == perRow {
			kb = append(kb, row)
			row = nil
		}
	}
	if len(row) > 0 {
		kb = append(kb, row)
	}
	return kb
}

func cb(ownerID int64, parts ...string) string {
	return fmt.Sprintf("%s:%d:%s", settingsCallbackPrefix, ownerID, strings.Join(parts, ":"))
}

func checked(label string, on bool) string {
	if on {
		return "✅ " + label
	}
	return label
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func orDefault(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}

func truncateLine(s string, max int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if max <= 0 || len(runes) <= max {
		return s
	}
	return strings.TrimSpace(string(runes[:max])) + "…"
}
