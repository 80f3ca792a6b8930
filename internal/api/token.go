package api

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// TokenStore keeps the bearer token between runs.
type TokenStore interface {
	Token() (string, error)
	SetToken(token string) error
}

// FileTokens stores the token in a single file readable only by the user.
type FileTokens struct {
	Path string
}

// Token returns the stored token, or "" when none has been saved.
func (f FileTokens) Token() (string, error) {
	b, err := os.ReadFile(f.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read token: %w", err)
	}
	return strings.TrimSpace(string(b)), nil
}

// SetToken saves the token. An empty token removes the file.
func (f FileTokens) SetToken(token string) error {
	if token == "" {
		if err := os.Remove(f.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove token: %w", err)
		}
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o700); err != nil {
		return fmt.Errorf("create token dir: %w", err)
	}
	if err := os.WriteFile(f.Path, []byte(token+"\n"), 0o600); err != nil {
		return fmt.Errorf("write token: %w", err)
	}
	return nil
}

// MemTokens is an in-memory TokenStore.
type MemTokens struct {
	value string
}

func (m *MemTokens) Token() (string, error) { return m.value, nil }

func (m *MemTokens) SetToken(token string) error {
	m.value = token
	return nil
}
