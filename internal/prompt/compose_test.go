package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComposeKnownSelection(t *testing.T) {
	got := Compose(Selection{
		Category: "UGC",
		Mode:     "selfie-review",
		Style:    "neutral-home",
		Angle:    "d3q",
		Text:     "  girl holding serum bottle  ",
	})

	assert.True(t, strings.HasPrefix(got.System, "ENVIRONMENT: Soft diffused daylight, real home. ANGLE: Dynamic 3/4 View. "))
	assert.Contains(t, got.System, "MODE: Selfie Review.")
	assert.Contains(t, got.System, "Product label stays readable.")
	assert.Equal(t, "girl holding serum bottle", got.User)
	assert.Equal(t, "D-3Q", got.AngleLabel)
	assert.Equal(t, "ugc", got.Category)
	assert.Equal(t, "selfie-review", got.Mode)
}

func TestComposeFallbacks(t *testing.T) {
	tests := []struct {
		name     string
		sel      Selection
		wantMode string
	}{
		{name: "everything unknown", sel: Selection{Category: "nope", Mode: "nope", Style: "nope", Angle: "nope"}, wantMode: "general"},
		{name: "empty selection", sel: Selection{}, wantMode: "general"},
		{name: "unknown sub-mode uses category default", sel: Selection{Category: "ads", Mode: "billboard"}, wantMode: "banner"},
		{name: "empty sub-mode uses category default", sel: Selection{Category: "commercial"}, wantMode: "product"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Compose(tt.sel)

			assert.NotEmpty(t, got.System)
			assert.NotEmpty(t, got.User)
			assert.Equal(t, tt.wantMode, got.Mode)
			if tt.sel.Angle != "d3q" {
				assert.Equal(t, FallbackAngle, got.AngleDesc)
			}
			if tt.sel.Style == "nope" || tt.sel.Style == "" {
				assert.True(t, strings.HasPrefix(got.System, "ENVIRONMENT: . ANGLE: Eye Level. "))
			}
		})
	}
}

func TestComposeNeverPanicsOnAnyCombination(t *testing.T) {
	c := Default()
	ids := func(opts []Option) []string {
		out := []string{"", "unknown"}
		for _, o := range opts {
			out = append(out, o.ID, o.Label)
		}
		return out
	}

	categories := []string{"", "unknown"}
	for _, cat := range c.Categories() {
		categories = append(categories, cat.ID)
	}

	for _, cat := range categories {
		for _, style := range ids(c.Styles()) {
			for _, angle := range ids(c.Angles()) {
				require.NotPanics(t, func() {
					got := c.Compose(Selection{Category: cat, Style: style, Angle: angle})
					require.NotEmpty(t, got.System)
					require.NotEmpty(t, got.User)
					require.NotEmpty(t, got.AngleLabel)
				})
			}
		}
	}

	var nilCatalog *Catalog
	assert.NotPanics(t, func() { nilCatalog.Compose(Selection{}) })
}

func TestComposeAngleByLabel(t *testing.T) {
	got := Compose(Selection{Angle: "front view"})
	assert.Equal(t, "Front View", got.AngleLabel)
}

func TestComposeAnglesKeepsOrder(t *testing.T) {
	got := Default().ComposeAngles(Selection{Category: "commercial"}, []string{"front", "ecu", "bogus"})

	require.Len(t, got, 3)
	assert.Equal(t, "Front View", got[0].AngleLabel)
	assert.Equal(t, "ECU", got[1].AngleLabel)
	assert.Equal(t, FallbackAngle, got[2].AngleLabel)

	single := Default().ComposeAngles(Selection{Angle: "fs"}, nil)
	require.Len(t, single, 1)
	assert.Equal(t, "FS", single[0].AngleLabel)
}

func TestCoreInstruction(t *testing.T) {
	got := CoreInstruction("ENVIRONMENT: studio", "white sneakers", "Front View")

	assert.True(t, strings.HasPrefix(got, "[TASK: HIGHEST QUALITY PRODUCT RENDERING]"))
	assert.Contains(t, got, "STYLE: ENVIRONMENT: studio.")
	assert.Contains(t, got, "ENVIRONMENT: white sneakers.")
	assert.Contains(t, got, "SHOT: Front View.")
	assert.Contains(t, got, "- Keep product shape and branding 100% authentic.")
}

func TestCopyInstruction(t *testing.T) {
	assert.Contains(t, CopyInstruction("caption"), "Instagram/TikTok caption")
	assert.Contains(t, CopyInstruction("Thread post"), "persuasive Thread post for")
	assert.Contains(t, CopyInstruction(""), "Instagram/TikTok caption")
	assert.Contains(t, TrendsQuery(""), "general marketplace")
}

func TestRequiresSubject(t *testing.T) {
	c := Default()
	assert.False(t, c.RequiresSubject("human"))
	assert.True(t, c.RequiresSubject("commercial"))
	assert.True(t, c.RequiresSubject("whatever"))
}

func TestParseCatalogMergesOverBuiltins(t *testing.T) {
	raw := []byte(`
styles:
  - id: studio
    label: Studio
    desc: Grey seamless paper
  - id: beach
    label: Beach
    desc: Tropical beach at noon
angles:
  - id: macro
    label: Macro
    desc: Macro lens detail
categories:
  - id: ugc
    modes:
      - id: selfie-review
        label: Selfie Review
        template: Mirror selfie in a bedroom.
  - id: live
    label: Live Selling
    no_subject: true
    default_mode: host
    modes:
      - id: host
        label: Host
        template: Live-stream host presenting the product.
`)

	c, err := ParseCatalog(raw)
	require.NoError(t, err)

	studio, ok := c.Style("studio")
	require.True(t, ok)
	assert.Equal(t, "Grey seamless paper", studio.Desc)

	_, ok = c.Style("beach")
	assert.True(t, ok)
	_, ok = c.Angle("macro")
	assert.True(t, ok)

	got := c.Compose(Selection{Category: "ugc", Mode: "selfie-review"})
	assert.Contains(t, got.System, "Mirror selfie in a bedroom.")

	live := c.Compose(Selection{Category: "live"})
	assert.Equal(t, "host", live.Mode)
	assert.False(t, c.RequiresSubject("live"))

	// Built-in catalog is untouched.
	builtinStudio, _ := Default().Style("studio")
	assert.Equal(t, "Clean white high-end lighting", builtinStudio.Desc)
}

func TestParseCatalogRejectsBadYAML(t *testing.T) {
	_, err := ParseCatalog([]byte("styles: [unclosed"))
	assert.Error(t, err)
}
