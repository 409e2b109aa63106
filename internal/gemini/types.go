package gemini

import (
	"fmt"
	"strings"
)

// Quality is the output tier. It picks both the model and, above Standard,
// the imageSize sent with the request.
type Quality string

const (
	Standard  Quality = "1K"
	HD2K      Quality = "2K"
	UltraHD4K Quality = "4K"
)

const (
	ModelFlashImage = "gemini-2.5-flash-image"
	ModelProImage   = "gemini-3-pro-image-preview"
	ModelText       = "gemini-3-flash-preview"
	ModelVideo      = "veo-3.1-fast-generate-preview"
)

// IsPro reports whether the tier runs on the paid image model.
func (q Quality) IsPro() bool {
	return q == HD2K || q == UltraHD4K
}

// ModelForQuality is total: anything that is not a pro tier maps to the
// flash image model.
func ModelForQuality(q Quality) string {
	if q.IsPro() {
		return ModelProImage
	}
	return ModelFlashImage
}

func ParseQuality(value string) (Quality, error) {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "", "1K", "STANDARD":
		return Standard, nil
	case "2K", "HD_2K", "HD":
		return HD2K, nil
	case "4K", "ULTRA_HD_4K", "ULTRA":
		return UltraHD4K, nil
	}
	return "", fmt.Errorf("unknown quality %q", value)
}

type AspectRatio string

const (
	Square    AspectRatio = "1:1"
	Landscape AspectRatio = "16:9"
	Portrait  AspectRatio = "9:16"
)

func ParseAspectRatio(value string) (AspectRatio, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "1:1", "square":
		return Square, nil
	case "16:9", "landscape":
		return Landscape, nil
	case "9:16", "portrait":
		return Portrait, nil
	}
	return "", fmt.Errorf("unknown aspect ratio %q", value)
}

type ImageInput struct {
	Data     []byte
	MIMEType string
}

type ImageRequest struct {
	Subjects    []ImageInput
	Reference   *ImageInput
	Instruction string
	Quality     Quality
	AspectRatio AspectRatio
}

type TextRequest struct {
	Images []ImageInput
	Prompt string
}

type VideoRequest struct {
	Prompt      string
	Image       *ImageInput
	AspectRatio AspectRatio
}

type Source struct {
	URI   string `json:"uri" yaml:"uri"`
	Title string `json:"title" yaml:"title"`
}

// Grounded is a text answer plus the web sources the model cited.
type Grounded struct {
	Text    string   `json:"text" yaml:"text"`
	Sources []Source `json:"sources" yaml:"sources"`
}
