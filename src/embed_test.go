package src

import (
	"context"
	"io/fs"
	"testing"

	"jsacademy/backend/internal/challenge"
	"jsacademy/backend/internal/content"
	"jsacademy/backend/internal/sandbox"
)

func TestEmbeddedContentLoads(t *testing.T) {
	contentFS, err := fs.Sub(FS(), "content")
	if err != nil {
		t.Fatalf("fs.Sub: %v", err)
	}
	cat, err := content.Load(contentFS)
	if err != nil {
		t.Fatalf("content.Load: %v", err)
	}
	if len(cat.Paths) != 7 {
		t.Errorf("len(Paths) = %d, want 7", len(cat.Paths))
	}
	for _, p := range cat.Paths {
		for _, id := range p.Modules {
			if l, ok := cat.Lesson(id); ok && l.Path != p.Key {
				t.Errorf("lesson %q has path %q, listed under %q", id, l.Path, p.Key)
			}
		}
	}
	if cat.Data == nil {
		t.Error("data.json not loaded")
	}
}

func TestEmbeddedChallengeSolutionsPass(t *testing.T) {
	contentFS, err := fs.Sub(FS(), "content")
	if err != nil {
		t.Fatalf("fs.Sub: %v", err)
	}
	cat, err := challenge.LoadCatalog(contentFS)
	if err != nil {
		t.Fatalf("challenge.LoadCatalog: %v", err)
	}
	if cat.Total() != 8 {
		t.Errorf("Total = %d, want 8", cat.Total())
	}
	if err := challenge.NewEvaluator(sandbox.New()).VerifySolutions(context.Background(), cat); err != nil {
		t.Errorf("VerifySolutions: %v", err)
	}
}

func TestEmbeddedStaticIndex(t *testing.T) {
	if _, err := fs.Stat(FS(), "static/index.html"); err != nil {
		t.Errorf("static/index.html: %v", err)
	}
}
