// Package attachment stores files uploaded alongside leave requests.
package attachment

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/warp/leave-engine/generic"
)

const (
	// Prefix is the first segment of every reference.
	Prefix = "leave-attachments"

	DefaultMaxBytes int64 = 5 << 20
)

var DefaultExtensions = []string{".pdf", ".jpg", ".jpeg", ".png", ".doc", ".docx"}

var unsafeSegment = regexp.MustCompile(`[^A-Za-z0-9_-]`)

// Local keeps attachments on disk under Root. References look like
// "leave-attachments/<user>/<year>/<uuid>.<ext>" and are relative to Root.
type Local struct {
	Root       string
	MaxBytes   int64
	Extensions []string
}

func NewLocal(root string, maxBytes int64) *Local {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Local{Root: root, MaxBytes: maxBytes, Extensions: DefaultExtensions}
}

// Validate checks extension and size before anything is written.
func (l *Local) Validate(filename string, size int64) error {
	ext := strings.ToLower(filepath.Ext(filename))
	allowed := false
	for _, e := range l.Extensions {
		if e == ext {
			allowed = true
			break
		}
	}
	if !allowed {
		names := make([]string, len(l.Extensions))
		for i, e := range l.Extensions {
			names[i] = strings.TrimPrefix(e, ".")
		}
		return generic.NewError(generic.KindInvalidInput, "The attachment must be a file of type: "+strings.Join(names, ", "))
	}
	if size > l.MaxBytes {
		return generic.NewError(generic.KindInvalidInput,
			fmt.Sprintf("The attachment may not be greater than %d kilobytes", l.MaxBytes>>10))
	}
	return nil
}

// Save writes content and returns its reference.
func (l *Local) Save(ctx context.Context, userID string, year int, filename string, content []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := l.Validate(filename, int64(len(content))); err != nil {
		return "", err
	}

	ref := path.Join(Prefix, unsafeSegment.ReplaceAllString(userID, "_"), strconv.Itoa(year),
		uuid.NewString()+strings.ToLower(filepath.Ext(filename)))

	full := filepath.Join(l.Root, filepath.FromSlash(ref))
	if err := os.MkdirAll(filepath.Dir(full), 0o750); err != nil {
		return "", fmt.Errorf("create attachment dir: %w", err)
	}
	if err := os.WriteFile(full, content, 0o640); err != nil {
		return "", fmt.Errorf("write attachment: %w", err)
	}
	return ref, nil
}

// Remove deletes a previously saved file. Missing files are not an error.
func (l *Local) Remove(ctx context.Context, ref string) error {
	full, err := l.resolve(ref)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove attachment: %w", err)
	}
	return nil
}

// Path returns the on-disk location of ref.
func (l *Local) Path(ref string) (string, error) {
	return l.resolve(ref)
}

func (l *Local) resolve(ref string) (string, error) {
	clean := path.Clean("/" + ref)[1:]
	if clean != ref || !strings.HasPrefix(clean, Prefix+"/") {
		return "", generic.NewError(generic.KindInvalidInput, "invalid attachment reference")
	}
	return filepath.Join(l.Root, filepath.FromSlash(clean)), nil
}
