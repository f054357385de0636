// Package assets owns the transcoded audio files referenced by voice
// messages. Messages only ever hold a bare asset name; a Store turns that
// name into bytes and a URLResolver turns it into something a voice device
// can stream.
package assets

import (
	"context"
	"errors"
	"io"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// Extension 目标音频扩展名
const Extension = ".mp3"

// stagingPrefix marks work files; they never match NamePattern.
const stagingPrefix = ".staging-"

// NamePattern matches every committed asset name.
var NamePattern = regexp.MustCompile(`^[0-9a-f-]{36}\.mp3$`)

// ErrAssetExists is returned when a commit would overwrite an existing asset.
var ErrAssetExists = errors.New("assets: asset already exists")

// ErrInvalidName is returned for names that are not committed asset names.
var ErrInvalidName = errors.New("assets: invalid asset name")

// Store persists committed assets. Implementations must be safe for
// concurrent use.
type Store interface {
	// Dir is a local directory where work files may be staged before Commit.
	Dir() string

	// Commit makes the staged file visible under name in one step and
	// removes the staged file. It never overwrites an existing asset.
	Commit(ctx context.Context, name, stagedPath string) error

	// Open opens a committed asset. Missing assets yield an error wrapping
	// os.ErrNotExist.
	Open(ctx context.Context, name string) (io.ReadCloser, error)

	// Exists reports whether name has been committed.
	Exists(ctx context.Context, name string) (bool, error)

	// Delete removes an asset; missing assets are not an error.
	Delete(ctx context.Context, name string) error
}

// URLResolver builds an absolute, streamable URL for an asset name.
type URLResolver interface {
	URL(ctx context.Context, name string) (string, error)
}

// NewName returns a fresh random asset name.
func NewName() string {
	return uuid.NewString() + Extension
}

// StagingName returns the hidden work-file name for an asset name.
func StagingName(name string) string {
	return stagingPrefix + name
}

// ValidName reports whether name is a committed asset name.
func ValidName(name string) bool {
	return NamePattern.MatchString(name)
}

// PublicURLResolver serves assets from <base>/media/<name>.
type PublicURLResolver struct {
	base string
}

// NewPublicURLResolver 创建公网地址解析器
func NewPublicURLResolver(baseURL string) *PublicURLResolver {
	return &PublicURLResolver{base: strings.TrimRight(baseURL, "/")}
}

// URL 返回资源的公网地址
func (r *PublicURLResolver) URL(_ context.Context, name string) (string, error) {
	if !ValidName(name) {
		return "", ErrInvalidName
	}
	return r.base + "/media/" + name, nil
}
