package credential

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
)

// FilePicker is the host key mechanism for deployments that mount a key
// file (for example a container secret). Selecting re-reads the file.
type FilePicker struct {
	Path string
}

func NewFilePicker(path string) Picker {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}
	return &FilePicker{Path: path}
}

func (p *FilePicker) HasSelectedKey(ctx context.Context) (bool, error) {
	key, err := p.SelectedKey(ctx)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return key != "", nil
}

func (p *FilePicker) SelectedKey(context.Context) (string, error) {
	raw, err := os.ReadFile(p.Path)
	if err != nil {
		return "", fmt.Errorf("read key file: %w", err)
	}
	return strings.TrimSpace(string(raw)), nil
}

func (p *FilePicker) OpenSelectKey(ctx context.Context) error {
	ok, err := p.HasSelectedKey(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("key file %s is missing or empty", p.Path)
	}
	return nil
}
