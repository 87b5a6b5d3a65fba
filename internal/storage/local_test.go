package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLocalUpload(t *testing.T) {
	base := t.TempDir()
	local := NewLocal(base)

	url, err := local.Upload(context.Background(), []byte("video bytes"), "clip.mp4", "videos")
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if !strings.HasPrefix(url, "file://") {
		t.Errorf("url = %q, want file:// scheme", url)
	}

	data, err := os.ReadFile(filepath.Join(base, "videos", "clip.mp4"))
	if err != nil {
		t.Fatalf("read uploaded file: %v", err)
	}
	if string(data) != "video bytes" {
		t.Errorf("content = %q", data)
	}
}

func TestLocalUploadSeparatesCategories(t *testing.T) {
	base := t.TempDir()
	local := NewLocal(base)
	ctx := context.Background()

	if _, err := local.Upload(ctx, []byte("a"), "same.bin", "audio"); err != nil {
		t.Fatal(err)
	}
	if _, err := local.Upload(ctx, []byte("v"), "same.bin", "videos"); err != nil {
		t.Fatal(err)
	}

	audio, _ := os.ReadFile(filepath.Join(base, "audio", "same.bin"))
	videos, _ := os.ReadFile(filepath.Join(base, "videos", "same.bin"))
	if string(audio) != "a" || string(videos) != "v" {
		t.Errorf("categories collided: audio=%q videos=%q", audio, videos)
	}
}
