package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"strings"

	"github.com/anjiri1684/counsel_hub/apperrors"
	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// Kind describes which uploads are acceptable for a purpose. Entries in
// Allowed ending in "/" match a whole top-level type.
type Kind struct {
	Name     string
	MaxBytes int64
	Allowed  []string
}

var (
	ProfileImage = Kind{Name: "profile picture", MaxBytes: 5 << 20, Allowed: []string{"image/jpeg", "image/png", "image/webp"}}
	Document     = Kind{Name: "document", MaxBytes: 10 << 20, Allowed: []string{"application/pdf", "image/jpeg", "image/png"}}
	Evidence     = Kind{Name: "evidence", MaxBytes: 25 << 20, Allowed: []string{
		"image/", "video/", "audio/", "application/pdf", "application/msword",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	}}
)

func (k Kind) allows(mime *mimetype.MIME) bool {
	for _, a := range k.Allowed {
		if strings.HasSuffix(a, "/") {
			if strings.HasPrefix(mime.String(), a) {
				return true
			}
			continue
		}
		if mime.Is(a) {
			return true
		}
	}
	return false
}

// File is an upload whose content type has been sniffed and accepted.
type File struct {
	Name        string
	ContentType string
	Extension   string
	Data        []byte
}

// ReadFile loads fh and checks its size and sniffed content type against kind.
func ReadFile(fh *multipart.FileHeader, kind Kind) (*File, error) {
	if fh.Size > kind.MaxBytes {
		return nil, apperrors.BadRequest("%s %q exceeds the %d MB limit", kind.Name, fh.Filename, kind.MaxBytes>>20)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, kind.MaxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > kind.MaxBytes {
		return nil, apperrors.BadRequest("%s %q exceeds the %d MB limit", kind.Name, fh.Filename, kind.MaxBytes>>20)
	}
	if len(data) == 0 {
		return nil, apperrors.BadRequest("%s %q is empty", kind.Name, fh.Filename)
	}

	mime := mimetype.Detect(data)
	if !kind.allows(mime) {
		return nil, apperrors.BadRequest("%s %q has unsupported type %s", kind.Name, fh.Filename, mime.String())
	}
	return &File{Name: fh.Filename, ContentType: mime.String(), Extension: mime.Extension(), Data: data}, nil
}

// Put uploads f to the default uploader under folder/owner.
func Put(ctx context.Context, folder string, owner uuid.UUID, f *File) (string, error) {
	key := fmt.Sprintf("%s/%s/%s%s", folder, owner, uuid.NewString(), f.Extension)
	return Default.Upload(ctx, key, f.ContentType, f.Data)
}

// PrepareProfileImage fits an image inside 512x512 and re-encodes it as JPEG.
func PrepareProfileImage(f *File) (*File, error) {
	img, err := imaging.Decode(bytes.NewReader(f.Data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, apperrors.BadRequest("profile picture could not be decoded")
	}
	img = imaging.Fit(img, 512, 512, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return nil, err
	}
	return &File{Name: f.Name, ContentType: "image/jpeg", Extension: ".jpg", Data: buf.Bytes()}, nil
}
