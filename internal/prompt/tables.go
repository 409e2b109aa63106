package prompt

type Option struct {
	ID    string `yaml:"id" json:"id"`
	Label string `yaml:"label" json:"label"`
	Desc  string `yaml:"desc" json:"desc"`
}

type Mode struct {
	ID          string   `yaml:"id" json:"id"`
	Label       string   `yaml:"label" json:"label"`
	Template    string   `yaml:"template" json:"template"`
	Guidelines  []string `yaml:"guidelines" json:"guidelines,omitempty"`
	DefaultUser string   `yaml:"default_user" json:"default_user,omitempty"`
}

type Category struct {
	ID    string `yaml:"id" json:"id"`
	Label string `yaml:"label" json:"label"`
	// NoSubject categories may run without an uploaded product photo.
	NoSubject   bool   `yaml:"no_subject" json:"no_subject"`
	DefaultMode string `yaml:"default_mode" json:"default_mode"`
	Modes       []Mode `yaml:"modes" json:"modes"`
}

const (
	FallbackAngle = "Eye Level"

	CategoryCommercial = "commercial"
	CategoryAds        = "ads"
	CategoryUGC        = "ugc"
	CategoryHuman      = "human"
	CategoryCreative   = "creative"
	CategoryMagic      = "magic"
	CategoryFaceSwap   = "faceswap"
)

var defaultMode = Mode{
	ID:       "general",
	Label:    "General Product Shot",
	Template: "Commercial product photograph that keeps the product as the hero.",
	Guidelines: []string{
		"Keep product shape and branding 100% authentic.",
	},
	DefaultUser: "Clean, premium presentation of the uploaded product.",
}

var builtinStyles = []Option{
	{ID: "neutral-home", Label: "Neutral Home", Desc: "Soft diffused daylight, real home"},
	{ID: "studio", Label: "Studio", Desc: "Clean white high-end lighting"},
	{ID: "luxury-editorial", Label: "Luxury Editorial", Desc: "Black and gold stage palette, cinematic spotlight beams, subtle gold dust"},
	{ID: "dark-premium", Label: "Dark Premium", Desc: "Low-key studio lighting, controlled rim light, deep gradients"},
	{ID: "high-key", Label: "High-Key Clean", Desc: "Bright ivory backdrop, soft shadow under product, clinical clarity"},
	{ID: "organic", Label: "Organic Sensory", Desc: "Window daylight, linen, matte ceramic and warm wood as set design only"},
	{ID: "glass-light", Label: "Glass & Light", Desc: "Glass and acrylic slabs in the background, refined caustics, no refraction through the product"},
	{ID: "cafe", Label: "Cozy Cafe", Desc: "Warm cafe table, shallow depth of field, morning light"},
	{ID: "outdoor", Label: "Outdoor Natural", Desc: "Open shade outdoors, natural greenery bokeh, golden hour warmth"},
	{ID: "bathroom", Label: "Bathroom Shelf", Desc: "Marble vanity, soft reflections, spa atmosphere"},
	{ID: "kitchen", Label: "Kitchen Counter", Desc: "Clean kitchen counter, natural light, lived-in but tidy"},
	{ID: "car", Label: "Car Interior", Desc: "Modern car interior, dashboard or seat, daylight through windshield"},
}

var builtinAngles = []Option{
	{ID: "ecu", Label: "ECU", Desc: "Extreme Close-Up"},
	{ID: "fs", Label: "FS", Desc: "Full Shot"},
	{ID: "d3q", Label: "D-3Q", Desc: "Dynamic 3/4 View"},
	{ID: "front", Label: "Front View", Desc: "Straight-on front view at product height"},
	{ID: "side", Label: "Side Profile", Desc: "Clean side profile showing depth and silhouette"},
	{ID: "top", Label: "Top Down", Desc: "Top-down flat lay"},
	{ID: "low", Label: "Low Angle Hero", Desc: "Low angle looking up, heroic scale"},
	{ID: "pov", Label: "Hand POV", Desc: "First-person view with the product held in hand"},
}

var builtinCategories = []Category{
	{
		ID:          CategoryCommercial,
		Label:       "Commercial Hub",
		DefaultMode: "product",
		Modes: []Mode{
			{
				ID:       "product",
				Label:    "Product Photo",
				Template: "High-end marketplace product photograph ready for an affiliate listing.",
				Guidelines: []string{
					"Professional lighting and commercial focus.",
					"Cinematic background integration.",
				},
			},
			{
				ID:       "fashion",
				Label:    "Fashion Lookbook",
				Template: "Editorial fashion lookbook shot; silhouette, fabric and fit are the hero.",
				Guidelines: []string{
					"Keep garment colors, prints and stitching exactly as uploaded.",
				},
			},
			{
				ID:       "mockup",
				Label:    "Mockup",
				Template: "Realistic packaging or device mockup placed in a believable scene.",
			},
			{
				ID:       "photographer",
				Label:    "Magic Photographer",
				Template: "Award-winning commercial photographer re-shoots the product with perfect light.",
			},
		},
	},
	{
		ID:          CategoryAds,
		Label:       "Ads Studio",
		DefaultMode: "banner",
		Modes: []Mode{
			{
				ID:       "banner",
				Label:    "Promo Banner",
				Template: "Promotional banner visual with clear negative space reserved for headline text.",
				Guidelines: []string{
					"Do not render any text; leave clean space for overlays.",
				},
			},
			{
				ID:       "thumbnail",
				Label:    "Video Thumbnail",
				Template: "High-contrast, scroll-stopping thumbnail composition with one dominant subject.",
			},
			{
				ID:       "carousel",
				Label:    "Carousel Slide",
				Template: "Consistent carousel slide; same lighting and palette across the series.",
			},
		},
	},
	{
		ID:          CategoryUGC,
		Label:       "UGC Studio",
		DefaultMode: "selfie-review",
		Modes: []Mode{
			{
				ID:       "selfie-review",
				Label:    "Selfie Review",
				Template: "Authentic smartphone selfie of a customer reviewing the product, raw and unpolished.",
				Guidelines: []string{
					"Phone camera look: slight noise, natural skin, no studio polish.",
					"Product label stays readable.",
				},
			},
			{
				ID:       "unboxing",
				Label:    "Unboxing",
				Template: "Hands unboxing the product on a home table, candid phone photo.",
			},
			{
				ID:       "hand-held",
				Label:    "Hand Held",
				Template: "Product held in one hand in an everyday location, casual framing.",
			},
			{
				ID:       "desk-flatlay",
				Label:    "Desk Flatlay",
				Template: "Casual desk flatlay with everyday items around the product.",
			},
		},
	},
	{
		ID:          CategoryHuman,
		Label:       "Human Studio",
		NoSubject:   true,
		DefaultMode: "model",
		Modes: []Mode{
			{
				ID:          "model",
				Label:       "AI Model",
				Template:    "Photorealistic fashion model portrait, natural pose, commercial lighting.",
				DefaultUser: "Friendly Southeast Asian model, natural makeup, neutral outfit.",
			},
			{
				ID:       "prewedding",
				Label:    "Pre-wedding",
				Template: "Romantic pre-wedding couple photograph with cinematic color grading.",
			},
			{
				ID:       "barbershop",
				Label:    "Barbershop",
				Template: "Barbershop style preview with a clean haircut on the subject.",
			},
		},
	},
	{
		ID:          CategoryCreative,
		Label:       "Creative Lab",
		DefaultMode: "art",
		Modes: []Mode{
			{ID: "art", Label: "Art", Template: "Fine-art interpretation of the subject with painterly texture."},
			{ID: "sketch", Label: "Sketch to Photo", Template: "Turn the sketch into a photorealistic render that follows its lines."},
			{ID: "home", Label: "Home Decor", Template: "Interior scene styled around the object as the focal point."},
		},
	},
	{
		ID:          CategoryMagic,
		Label:       "Magic Tools",
		DefaultMode: "edit",
		Modes: []Mode{
			{ID: "edit", Label: "Edit", Template: "Apply the requested edit while keeping everything else unchanged."},
			{ID: "merge", Label: "Merge", Template: "Merge the uploaded images into one coherent photograph."},
			{ID: "expand", Label: "Expand", Template: "Outpaint the canvas to the requested ratio; extend the background naturally."},
		},
	},
	{
		ID:          CategoryFaceSwap,
		Label:       "Face Swap",
		DefaultMode: "swap",
		Modes: []Mode{
			{
				ID:       "swap",
				Label:    "Face Swap",
				Template: "Place the face from the style reference onto the subject, matching light and skin tone.",
			},
		},
	},
}
