package secret

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Provider resolves secrets by reference.
//
// Implementations must be safe for concurrent use and must not log secret values.
type Provider interface {
	Name() string
	Resolve(ctx context.Context, ref string) (string, error)
	Close() error
}

// EnvProvider resolves references as environment variable names.
type EnvProvider struct{}

// Name returns "env".
func (EnvProvider) Name() string { return "env" }

// Resolve returns the value of the variable ref.
func (EnvProvider) Resolve(_ context.Context, ref string) (string, error) {
	v, ok := os.LookupEnv(ref)
	if !ok {
		return "", fmt.Errorf("%w: env %s", ErrNotFound, ref)
	}
	return v, nil
}

// Close does nothing.
func (EnvProvider) Close() error { return nil }

// FileProvider resolves references as file paths, the layout used by
// mounted container secrets. Trailing newlines are trimmed.
type FileProvider struct {
	// Dir roots relative references. When set, references may not leave it.
	Dir string
}

// Name returns "file".
func (FileProvider) Name() string { return "file" }

// Resolve reads the file named by ref.
func (p FileProvider) Resolve(_ context.Context, ref string) (string, error) {
	path := ref
	if p.Dir != "" {
		if !filepath.IsLocal(ref) {
			return "", fmt.Errorf("%w: %q escapes %s", ErrInvalidRef, ref, p.Dir)
		}
		path = filepath.Join(p.Dir, ref)
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%w: file %s", ErrNotFound, ref)
	}
	if err != nil {
		return "", fmt.Errorf("read secret file: %w", err)
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}

// Close does nothing.
func (FileProvider) Close() error { return nil }

var (
	_ Provider = EnvProvider{}
	_ Provider = FileProvider{}
)
