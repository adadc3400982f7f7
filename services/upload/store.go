// Package uploadsvc keeps the avatar images uploaded by users on local disk.
package uploadsvc

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/ukmiverse/ukmiverse/core"
	"github.com/ukmiverse/ukmiverse/core/avatar"
)

const (
	// URLPrefix is the site path the upload dir is served under.
	URLPrefix      = "/static/uploads/avatars/"
	DefaultMaxSize = 5 << 20
	filePrefix     = "avatar_"
)

var (
	ErrNoFile          = errors.New("no file uploaded")
	ErrTooLarge        = errors.New("file is too large")
	ErrExtension       = errors.New("file type not allowed, use png, jpg, jpeg, gif or webp")
	ErrUnsupportedType = errors.New("file is not a png, jpeg, gif or webp image")

	allowedExtensions = map[string]bool{".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".webp": true}

	// stored extension per sniffed content type
	storedTypes = map[string]string{
		"image/png":  ".png",
		"image/jpeg": ".jpg",
		"image/gif":  ".gif",
		"image/webp": ".webp",
	}

	nowFunc = time.Now
)

// Store saves avatar images under dir as `avatar_<user>_<time>_<id>.<ext>` and refers to them
// by their site path. Only raster images are accepted, whatever the client claims.
type Store struct {
	dir     string
	maxSize int64
	logger  core.Logger
}

func NewStore(dir string, maxSize int64, logger core.Logger) (*Store, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "creating upload dir")
	}
	return &Store{dir: dir, maxSize: maxSize, logger: logger}, nil
}

func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) MaxSize() int64 {
	return s.maxSize
}

// Save stores the image read from r for the user and returns its site path.
// filename is the client's file name, only its extension is looked at.
func (s *Store) Save(userID, filename string, r io.Reader) (string, error) {
	if !allowedExtensions[strings.ToLower(filepath.Ext(filename))] {
		return "", ErrExtension
	}

	data, err := io.ReadAll(io.LimitReader(r, s.maxSize+1))
	if err != nil {
		return "", errors.Wrap(err, "reading upload")
	}
	switch {
	case len(data) == 0:
		return "", ErrNoFile
	case int64(len(data)) > s.maxSize:
		return "", ErrTooLarge
	}

	ext, ok := storedTypes[mimetype.Detect(data).String()]
	if !ok {
		return "", ErrUnsupportedType
	}

	name := fmt.Sprintf("%s%s_%s_%s%s",
		filePrefix, userID, nowFunc().UTC().Format("20060102_150405"), uuid.New().String()[:8], ext)
	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0o644); err != nil {
		return "", errors.Wrap(err, "writing upload")
	}
	return URLPrefix + name, nil
}

// SaveDataURI stores the content of a base64 image data URI like an uploaded file.
func (s *Store) SaveDataURI(userID, uri string) (string, error) {
	typ, data, ok := avatar.DecodeDataURI(uri)
	if !ok {
		return "", ErrUnsupportedType
	}
	return s.Save(userID, "avatar."+path.Base(typ), bytes.NewReader(data))
}

// fileName returns the stored file name of a site path ref, if ref points into the store.
func fileName(ref string) (string, bool) {
	if !strings.HasPrefix(ref, URLPrefix) {
		return "", false
	}
	name := strings.TrimPrefix(ref, URLPrefix)
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", false
	}
	return name, true
}

// IsLocal reports whether ref is the site path of a stored upload.
func IsLocal(ref string) bool {
	_, ok := fileName(ref)
	return ok
}

// RemoveAvatar deletes the stored file of ref when it belongs to the user.
// References to other users' files or to other sites are left alone. Failures are logged.
func (s *Store) RemoveAvatar(ctx context.Context, userID, ref string) {
	name, ok := fileName(ref)
	if !ok || !strings.HasPrefix(name, filePrefix+userID+"_") {
		return
	}
	if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("removing avatar file", errors.Wrap(err, name))
	}
}

// Prober checks the stored uploads on disk and hands every other URL to next.
// baseURL is the origin the site paths are resolved against.
func (s *Store) Prober(baseURL string, next avatar.Prober) avatar.Prober {
	prefix := strings.TrimRight(baseURL, "/") + URLPrefix
	return avatar.ProberFunc(func(ctx context.Context, u string) error {
		if baseURL == "" || !strings.HasPrefix(u, prefix) {
			return next.Probe(ctx, u)
		}
		name, ok := fileName(URLPrefix + strings.TrimPrefix(u, prefix))
		if !ok {
			return avatar.NewProbeError(avatar.KindNetworkFailure, "status 404", nil)
		}
		return s.check(name)
	})
}

func (s *Store) check(name string) error {
	mtype, err := mimetype.DetectFile(filepath.Join(s.dir, name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return avatar.NewProbeError(avatar.KindNetworkFailure, "status 404", nil)
		}
		return errors.Wrap(err, "reading avatar file")
	}
	if _, ok := storedTypes[mtype.String()]; !ok {
		return avatar.NewProbeError(avatar.KindInvalidFormat, "not an image: "+mtype.String(), nil)
	}
	return nil
}
