package prompt

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Catalog is the lookup table behind Compose. The zero value is not usable;
// start from Default().
type Catalog struct {
	styles     []Option
	angles     []Option
	categories []Category
}

type catalogFile struct {
	Styles     []Option   `yaml:"styles"`
	Angles     []Option   `yaml:"angles"`
	Categories []Category `yaml:"categories"`
}

var builtin = Default()

func Default() *Catalog {
	return &Catalog{
		styles:     cloneOptions(builtinStyles),
		angles:     cloneOptions(builtinAngles),
		categories: cloneCategories(builtinCategories),
	}
}

// LoadCatalogFile reads a YAML catalog and merges it over the built-in
// tables. Entries with a known id replace the built-in one; new ids are
// appended in file order.
func LoadCatalogFile(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return ParseCatalog(raw)
}

func ParseCatalog(raw []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	c := Default()
	c.styles = mergeOptions(c.styles, f.Styles)
	c.angles = mergeOptions(c.angles, f.Angles)
	for _, cat := range f.Categories {
		key := normalizeID(cat.ID)
		if key == "" {
			continue
		}
		cat.ID = key
		if idx := c.categoryIndex(key); idx >= 0 {
			c.categories[idx] = mergeCategory(c.categories[idx], cat)
			continue
		}
		c.categories = append(c.categories, cat)
	}
	return c, nil
}

func (c *Catalog) Styles() []Option { return cloneOptions(c.styles) }

func (c *Catalog) Angles() []Option { return cloneOptions(c.angles) }

func (c *Catalog) Categories() []Category { return cloneCategories(c.categories) }

func (c *Catalog) Category(id string) (Category, bool) {
	idx := c.categoryIndex(normalizeID(id))
	if idx < 0 {
		return Category{}, false
	}
	return c.categories[idx], true
}

// Angle looks an angle up by id or label, case-insensitively.
func (c *Catalog) Angle(key string) (Option, bool) {
	return lookupOption(c.angles, key)
}

func (c *Catalog) Style(key string) (Option, bool) {
	return lookupOption(c.styles, key)
}

// RequiresSubject reports whether a category needs an uploaded photo.
// Unknown categories do.
func (c *Catalog) RequiresSubject(category string) bool {
	cat, ok := c.Category(category)
	if !ok {
		return true
	}
	return !cat.NoSubject
}

func (c *Catalog) categoryIndex(id string) int {
	for i, cat := range c.categories {
		if cat.ID == id {
			return i
		}
	}
	return -1
}

func (c Category) mode(id string) (Mode, bool) {
	key := normalizeID(id)
	if key == "" {
		key = c.DefaultMode
	}
	for _, m := range c.Modes {
		if m.ID == key {
			return m, true
		}
	}
	return Mode{}, false
}

func lookupOption(opts []Option, key string) (Option, bool) {
	key = strings.TrimSpace(key)
	if key == "" {
		return Option{}, false
	}
	for _, o := range opts {
		if strings.EqualFold(o.ID, key) || strings.EqualFold(o.Label, key) {
			return o, true
		}
	}
	return Option{}, false
}

func mergeOptions(base, extra []Option) []Option {
	for _, o := range extra {
		o.ID = normalizeID(o.ID)
		if o.ID == "" {
			continue
		}
		replaced := false
		for i := range base {
			if base[i].ID == o.ID {
				base[i] = o
				replaced = true
				break
			}
		}
		if !replaced {
			base = append(base, o)
		}
	}
	return base
}

func mergeCategory(base, over Category) Category {
	if over.Label != "" {
		base.Label = over.Label
	}
	if over.DefaultMode != "" {
		base.DefaultMode = normalizeID(over.DefaultMode)
	}
	base.NoSubject = base.NoSubject || over.NoSubject
	for _, m := range over.Modes {
		m.ID = normalizeID(m.ID)
		if m.ID == "" {
			continue
		}
		replaced := false
		for i := range base.Modes {
			if base.Modes[i].ID == m.ID {
				base.Modes[i] = m
				replaced = true
				break
			}
		}
		if !replaced {
			base.Modes = append(base.Modes, m)
		}
	}
	return base
}

func cloneOptions(in []Option) []Option {
	return append([]Option(nil), in...)
}

func cloneCategories(in []Category) []Category {
	out := make([]Category, len(in))
	for i, c := range in {
		c.Modes = append([]Mode(nil), c.Modes...)
		out[i] = c
	}
	return out
}

func normalizeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}
