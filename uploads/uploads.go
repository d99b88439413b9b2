// Package uploads validates multipart files and stores them on disk or in
// Cloudinary.
package uploads

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"networked/models"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const DefaultMaxBytes = 50 << 20

var (
	ErrInvalidType = errors.New("invalid file type")
	ErrTooLarge    = errors.New("file too large")
)

var (
	imageExts    = map[string]bool{"jpeg": true, "jpg": true, "png": true, "gif": true}
	videoExts    = map[string]bool{"mp4": true, "webm": true, "avi": true, "mov": true}
	documentExts = map[string]bool{"pdf": true, "doc": true, "docx": true}
)

// Folder is the destination folder for a multipart field.
func Folder(field string) string {
	switch field {
	case "photo", "profilePhoto":
		return "images"
	case "video", "cvVideo":
		return "videos"
	case "postMedia":
		return "posts"
	}
	return "documents"
}

// Check reports what kind of media a file is, or ErrInvalidType if the field
// does not accept it. Images and videos need both a matching extension and a
// matching declared MIME type; documents are checked by extension only.
func Check(field, filename, mimeType string) (models.MediaKind, error) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	isImage := imageExts[ext] && strings.HasPrefix(mimeType, "image/")
	isVideo := videoExts[ext] && strings.HasPrefix(mimeType, "video/")

	switch Folder(field) {
	case "images":
		if isImage {
			return models.MediaImage, nil
		}
	case "videos":
		if isVideo {
			return models.MediaVideo, nil
		}
	case "posts":
		if isImage {
			return models.MediaImage, nil
		}
		if isVideo {
			return models.MediaVideo, nil
		}
	default:
		if documentExts[ext] {
			return models.MediaNone, nil
		}
	}
	return models.MediaNone, ErrInvalidType
}

// FileName builds the stored name <field>-<unixMillis>-<random>.<ext>.
func FileName(field, original string, now time.Time) string {
	return fmt.Sprintf("%s-%d-%d%s", field, now.UnixMilli(), rand.Intn(1e9), strings.ToLower(filepath.Ext(original)))
}

// Storage persists one file and returns the URL it is served from. Remove
// deletes a file written by Save; a missing file is not an error.
type Storage interface {
	Save(ctx context.Context, folder, name string, r io.Reader) (string, error)
	Remove(ctx context.Context, folder, name string, kind models.MediaKind) error
}

type DiskStorage struct {
	Root      string
	URLPrefix string
}

func (d *DiskStorage) Save(_ context.Context, folder, name string, r io.Reader) (string, error) {
	dir := filepath.Join(d.Root, folder)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrap(err, "create upload folder")
	}
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return "", errors.Wrap(err, "create upload file")
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		return "", errors.Wrap(err, "write upload file")
	}
	return path.Join(d.URLPrefix, folder, name), nil
}

func (d *DiskStorage) Remove(_ context.Context, folder, name string, _ models.MediaKind) error {
	err := os.Remove(filepath.Join(d.Root, folder, name))
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "remove upload file")
	}
	return nil
}

type CloudinaryStorage struct {
	cld  *cloudinary.Cloudinary
	root string
}

func NewCloudinaryStorage(url, root string) (*CloudinaryStorage, error) {
	cld, err := cloudinary.NewFromURL(url)
	if err != nil {
		return nil, errors.Wrap(err, "cloudinary configuration")
	}
	return &CloudinaryStorage{cld: cld, root: root}, nil
}

func (s *CloudinaryStorage) Save(ctx context.Context, folder, name string, r io.Reader) (string, error) {
	res, err := s.cld.Upload.Upload(ctx, r, uploader.UploadParams{
		Folder:       s.root + "/" + folder,
		PublicID:     strings.TrimSuffix(name, filepath.Ext(name)),
		ResourceType: "auto",
	})
	if err != nil {
		return "", errors.Wrap(err, "upload to cloudinary")
	}
	if res.Error.Message != "" {
		return "", errors.New("upload to cloudinary: " + res.Error.Message)
	}
	return res.SecureURL, nil
}

func (s *CloudinaryStorage) Remove(ctx context.Context, folder, name string, kind models.MediaKind) error {
	resourceType := "image"
	switch {
	case kind == models.MediaVideo:
		resourceType = "video"
	case kind == models.MediaNone && strings.ToLower(filepath.Ext(name)) != ".pdf":
		resourceType = "raw"
	}
	_, err := s.cld.Upload.Destroy(ctx, uploader.DestroyParams{
		PublicID:     s.root + "/" + folder + "/" + strings.TrimSuffix(name, filepath.Ext(name)),
		ResourceType: resourceType,
	})
	return errors.Wrap(err, "remove from cloudinary")
}

// Stored is an accepted upload.
type Stored struct {
	URL  string
	Kind models.MediaKind

	folder string
	name   string
}

type Uploader struct {
	storage  Storage
	maxBytes int64
}

func New(storage Storage, maxBytes int64) *Uploader {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Uploader{storage: storage, maxBytes: maxBytes}
}

func (u *Uploader) MaxBytes() int64 {
	return u.maxBytes
}

// Save stores the first file of each named field present in form. Every file
// is checked before any is written, so a rejected file stores nothing.
func (u *Uploader) Save(ctx context.Context, form *multipart.Form, fields ...string) (map[string]Stored, error) {
	out := map[string]Stored{}
	if form == nil {
		return out, nil
	}

	type pending struct {
		field string
		fh    *multipart.FileHeader
		kind  models.MediaKind
	}
	var accepted []pending
	for _, field := range fields {
		files := form.File[field]
		if len(files) == 0 {
			continue
		}
		fh := files[0]
		if fh.Size > u.maxBytes {
			return nil, ErrTooLarge
		}
		kind, err := Check(field, fh.Filename, fh.Header.Get("Content-Type"))
		if err != nil {
			return nil, err
		}
		accepted = append(accepted, pending{field, fh, kind})
	}

	now := time.Now()
	for _, p := range accepted {
		stored, err := u.store(ctx, p.field, p.fh, now)
		if err != nil {
			u.Discard(ctx, out)
			return nil, err
		}
		stored.Kind = p.kind
		out[p.field] = stored
	}
	return out, nil
}

func (u *Uploader) store(ctx context.Context, field string, fh *multipart.FileHeader, now time.Time) (Stored, error) {
	f, err := fh.Open()
	if err != nil {
		return Stored{}, errors.Wrap(err, "open upload")
	}
	defer f.Close()
	name := FileName(field, fh.Filename, now)
	url, err := u.storage.Save(ctx, Folder(field), name, f)
	if err != nil {
		zap.S().Errorf("[Upload] %s: %v", name, err)
		return Stored{}, err
	}
	return Stored{URL: url, folder: Folder(field), name: name}, nil
}

// Discard removes files stored by Save whose request then failed. Failures
// are logged, not returned.
func (u *Uploader) Discard(ctx context.Context, stored map[string]Stored) {
	for _, s := range stored {
		if s.name == "" {
			continue
		}
		if err := u.storage.Remove(ctx, s.folder, s.name, s.Kind); err != nil {
			zap.S().Warnf("[Upload] discard %s: %v", s.name, err)
		}
	}
}

// IsRejection reports whether err is a client-side upload rejection.
func IsRejection(err error) bool {
	return errors.Is(err, ErrInvalidType) || errors.Is(err, ErrTooLarge)
}
