// Package prompt turns console selections into the system and user
// instruction strings sent to the generation client.
package prompt

import (
	"fmt"
	"strings"
)

type Selection struct {
	Category string
	Mode     string
	Style    string
	Angle    string
	Text     string
}

type Composition struct {
	System     string
	User       string
	AngleLabel string
	AngleDesc  string
	Category   string
	Mode       string
}

// Compose maps a selection to prompt strings. It never fails: unknown ids
// fall back to defaults so the request still goes out.
func (c *Catalog) Compose(sel Selection) Composition {
	if c == nil {
		c = builtin
	}
	angleLabel, angleDesc := FallbackAngle, FallbackAngle
	if a, ok := c.Angle(sel.Angle); ok {
		angleLabel, angleDesc = a.Label, a.Desc
	}

	styleDesc := ""
	if s, ok := c.Style(sel.Style); ok {
		styleDesc = s.Desc
	}

	categoryID := normalizeID(sel.Category)
	mode := defaultMode
	if cat, ok := c.Category(categoryID); ok {
		if m, ok := cat.mode(sel.Mode); ok {
			mode = m
		} else if m, ok := cat.mode(""); ok {
			mode = m
		}
	}

	var b strings.Builder
	b.Grow(512)
	b.WriteString(fmt.Sprintf("ENVIRONMENT: %s. ANGLE: %s. ", styleDesc, angleDesc))
	if tpl := strings.TrimSpace(mode.Template); tpl != "" {
		b.WriteString("MODE: " + mode.Label + ". " + tpl)
	}
	for _, line := range uniq(mode.Guidelines) {
		b.WriteString(" " + line)
	}

	user := strings.TrimSpace(sel.Text)
	if user == "" {
		user = strings.TrimSpace(mode.DefaultUser)
	}
	if user == "" {
		user = defaultMode.DefaultUser
	}

	return Composition{
		System:     strings.TrimSpace(b.String()),
		User:       user,
		AngleLabel: angleLabel,
		AngleDesc:  angleDesc,
		Category:   categoryID,
		Mode:       mode.ID,
	}
}

// Compose uses the built-in catalog.
func Compose(sel Selection) Composition {
	return builtin.Compose(sel)
}

// ComposeAngles composes one prompt per angle, in the given order. An empty
// list composes the selection's own angle.
func (c *Catalog) ComposeAngles(sel Selection, angles []string) []Composition {
	if len(angles) == 0 {
		return []Composition{c.Compose(sel)}
	}
	out := make([]Composition, 0, len(angles))
	for _, a := range angles {
		s := sel
		s.Angle = a
		out = append(out, c.Compose(s))
	}
	return out
}

// CoreInstruction is the final text part of an image request.
func CoreInstruction(system, user, angle string) string {
	var b strings.Builder
	b.WriteString("[TASK: HIGHEST QUALITY PRODUCT RENDERING]\n")
	b.WriteString("STYLE: " + strings.TrimSpace(system) + ".\n")
	b.WriteString("ENVIRONMENT: " + strings.TrimSpace(user) + ".\n")
	b.WriteString("SHOT: " + strings.TrimSpace(angle) + ".\n\n")
	b.WriteString("[GUIDELINES]:\n")
	for _, line := range []string{
		"Keep product shape and branding 100% authentic.",
		"Professional lighting and commercial focus.",
		"Cinematic background integration.",
	} {
		b.WriteString("- " + line + "\n")
	}
	return strings.TrimSpace(b.String())
}

var copyKinds = map[string]string{
	"caption":     "Instagram/TikTok caption",
	"description": "marketplace product description",
	"hook":        "three short video hooks",
	"script":      "30-second video ad script",
}

// CopyInstruction asks for persuasive AIDA copy of the given kind.
func CopyInstruction(kind string) string {
	key := normalizeID(kind)
	name, ok := copyKinds[key]
	if !ok {
		name = strings.TrimSpace(kind)
	}
	if name == "" {
		name = copyKinds["caption"]
	}
	return fmt.Sprintf("Write a highly persuasive %s for this product using the AIDA formula. Use casual Indonesian e-commerce slang.", name)
}

func CopyKinds() []string {
	return []string{"caption", "description", "hook", "script"}
}

func TrendsQuery(query string) string {
	query = strings.TrimSpace(query)
	if query == "" {
		query = "general marketplace"
	}
	return fmt.Sprintf("In-depth analysis of 2025 e-commerce trends: %s. Give viral product insights, the highest-volume search keywords and an affiliate marketing strategy.", query)
}

func VideoInstruction(system, user string) string {
	var b strings.Builder
	b.WriteString("Short product showcase video for social commerce.\n")
	b.WriteString("STYLE: " + strings.TrimSpace(system) + "\n")
	b.WriteString("SCENE: " + strings.TrimSpace(user) + "\n")
	writeSection(&b, "Rules", []string{
		"Product stays recognisable and undistorted in every frame.",
		"Smooth camera motion, no jump cuts.",
		"No on-screen text or watermarks.",
	})
	return strings.TrimSpace(b.String())
}

func uniq(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func writeSection(b *strings.Builder, title string, lines []string) {
	if len(lines) == 0 {
		return
	}
	b.WriteString("- " + title + ":\n")
	for _, line := range lines {
		b.WriteString("  - " + line + "\n")
	}
}
