package cli

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"affiliate-studio/internal/gemini"
	"affiliate-studio/internal/media"
)

func readImage(path string) (media.File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return media.File{}, err
	}
	if len(data) == 0 {
		return media.File{}, fmt.Errorf("%s is empty", path)
	}
	mimeType := media.DetectMIMEType(mime.TypeByExtension(filepath.Ext(path)), data)
	if !strings.HasPrefix(mimeType, "image/") {
		return media.File{}, fmt.Errorf("%s is not an image (%s)", path, mimeType)
	}
	return media.File{Name: filepath.Base(path), MIMEType: mimeType, Data: data}, nil
}

func readImages(paths []string) ([]media.File, error) {
	out := make([]media.File, 0, len(paths))
	for _, p := range paths {
		f, err := readImage(p)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

// writeDataURI decodes uri into dir/base with an extension for its type.
func writeDataURI(dir, base, uri string) (string, error) {
	data, mimeType, err := gemini.DecodeDataURI(uri)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, base+extension(mimeType))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func extension(mimeType string) string {
	switch mimeType {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "video/mp4":
		return ".mp4"
	}
	return ".bin"
}

func slug(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return '-'
	}, strings.TrimSpace(s))
	for strings.Contains(s, "--") {
		s = strings.ReplaceAll(s, "--", "-")
	}
	s = strings.Trim(s, "-")
	if s == "" {
		return "image"
	}
	return s
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
