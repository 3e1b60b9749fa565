package service

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/makeasinger/studio/internal/model"
)

func TestCoverService_Generate(t *testing.T) {
	images := &fakeImages{configured: true, urls: []string{"https://img/1.png", "https://img/2.png"}}
	s := NewCoverService(images, nil, nil, zerolog.Nop())

	resp, err := s.Generate(context.Background(), &model.CoverGenerateRequest{Prompt: "sunset", Count: 2})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(resp.Images) != 2 {
		t.Errorf("images = %v", resp.Images)
	}
}

func TestCoverService_GenerateMock(t *testing.T) {
	s := NewCoverService(&fakeImages{}, nil, nil, zerolog.Nop())
	resp, err := s.Generate(context.Background(), &model.CoverGenerateRequest{Prompt: "night drive"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(resp.Images) != 1 || !strings.Contains(resp.Images[0], "night+drive") {
		t.Errorf("images = %v", resp.Images)
	}
}

func TestCoverService_Persist(t *testing.T) {
	store := newFakeObjectStore()
	s := NewCoverService(nil, fakeDownloader{}, store, zerolog.Nop())

	url, key, err := s.Persist(context.Background(), "trk1", "https://img/1.png")
	if err != nil {
		t.Fatalf("Persist: %v", err)
	}
	if !strings.HasPrefix(key, "covers/trk1/") || !strings.HasSuffix(key, ".png") {
		t.Errorf("key = %q", key)
	}
	if url != "https://cdn.example.com/"+key {
		t.Errorf("url = %q", url)
	}
	if string(store.objects[key]) != "img:https://img/1.png" {
		t.Errorf("stored = %q", store.objects[key])
	}
}

func TestCoverService_PersistWithoutStorage(t *testing.T) {
	s := NewCoverService(nil, nil, nil, zerolog.Nop())
	url, key, err := s.Persist(context.Background(), "trk1", "https://img/1.png")
	if err != nil || url != "https://img/1.png" || key != "" {
		t.Errorf("got %q %q %v", url, key, err)
	}
}

func TestCoverPrompt(t *testing.T) {
	got := CoverPrompt("Rain", "lofi")
	if !strings.Contains(got, `"Rain"`) || !strings.Contains(got, "lofi mood") {
		t.Errorf("prompt = %q", got)
	}
}
