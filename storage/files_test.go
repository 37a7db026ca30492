package storage

import (
	"bytes"
	"context"
	"image"
	"image/color"
	_ "image/jpeg"
	"image/png"
	"mime/multipart"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func fileHeader(t *testing.T, name string, data []byte) *multipart.FileHeader {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	part, err := w.CreateFormFile("file", name)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	part.Write(data)
	w.Close()

	req := httptest.NewRequest("POST", "/", body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	if err := req.ParseMultipartForm(32 << 20); err != nil {
		t.Fatalf("parse multipart: %v", err)
	}
	return req.MultipartForm.File["file"][0]
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestReadFileAcceptsPDFDocument(t *testing.T) {
	fh := fileHeader(t, "license.pdf", []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\n"))
	f, err := ReadFile(fh, Document)
	if err != nil {
		t.Fatalf("expected pdf to be accepted, got %v", err)
	}
	if f.ContentType != "application/pdf" {
		t.Fatalf("expected application/pdf, got %s", f.ContentType)
	}
}

func TestReadFileRejectsSpoofedExtension(t *testing.T) {
	fh := fileHeader(t, "photo.png", []byte("#!/bin/sh\necho hi\n"))
	if _, err := ReadFile(fh, ProfileImage); err == nil {
		t.Fatal("expected script disguised as png to be rejected")
	}
}

func TestReadFileRejectsOversized(t *testing.T) {
	small := Kind{Name: "tiny", MaxBytes: 10, Allowed: []string{"text/"}}
	fh := fileHeader(t, "notes.txt", []byte(strings.Repeat("a", 64)))
	if _, err := ReadFile(fh, small); err == nil {
		t.Fatal("expected oversized file to be rejected")
	}
}

func TestEvidenceAcceptsImagesByPrefix(t *testing.T) {
	fh := fileHeader(t, "screenshot.png", pngBytes(t, 4, 4))
	if _, err := ReadFile(fh, Evidence); err != nil {
		t.Fatalf("expected png evidence to be accepted, got %v", err)
	}
}

func TestPrepareProfileImageFitsBounds(t *testing.T) {
	fh := fileHeader(t, "me.png", pngBytes(t, 1024, 256))
	f, err := ReadFile(fh, ProfileImage)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out, err := PrepareProfileImage(f)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	img, _, err := image.DecodeConfig(bytes.NewReader(out.Data))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if img.Width > 512 || img.Height > 512 {
		t.Fatalf("expected image within 512x512, got %dx%d", img.Width, img.Height)
	}
	if out.ContentType != "image/jpeg" {
		t.Fatalf("expected jpeg output, got %s", out.ContentType)
	}
}

func TestPutStoresInMemory(t *testing.T) {
	mem := NewMemoryUploader()
	Default = mem
	url, err := Put(context.Background(), "evidence", uuid.New(), &File{ContentType: "application/pdf", Extension: ".pdf", Data: []byte("%PDF-")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(url, "memory://evidence/") || mem.Len() != 1 {
		t.Fatalf("unexpected upload result %q (objects=%d)", url, mem.Len())
	}
}
