// Seed registers a dev learner in Postgres with some completed lessons and one completed challenge,
// then prints the learner ID, recovery code and a token for local API calls.
// Run after migrate: go run ./cmd/migrate -direction up && go run ./cmd/seed
package main

import (
	"context"
	"fmt"
	"io/fs"
	"time"

	"jsacademy/backend/internal/app"
	"jsacademy/backend/internal/challenge"
	"jsacademy/backend/internal/config"
	"jsacademy/backend/internal/content"
	"jsacademy/backend/internal/db"
	learnerrepo "jsacademy/backend/internal/learner/repository"
	learnerservice "jsacademy/backend/internal/learner/service"
	"jsacademy/backend/internal/logging"
	"jsacademy/backend/internal/security"
	"jsacademy/backend/src"
)

const (
	devLearnerName = "Dev Learner"
	seedLessons    = 3
)

func main() {
	log := logging.Logger()
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	conn, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	contentFS, err := fs.Sub(src.FS(), app.ContentDir)
	if err != nil {
		log.Fatalf("content: %v", err)
	}
	cat, err := content.Load(contentFS)
	if err != nil {
		log.Fatalf("content: %v", err)
	}
	chCat, err := challenge.LoadCatalog(contentFS)
	if err != nil {
		log.Fatalf("challenges: %v", err)
	}

	tokens, err := app.NewTokenProvider(cfg)
	if err != nil {
		log.Fatalf("tokens: %v", err)
	}
	svc := learnerservice.NewLearnerService(
		learnerrepo.NewPostgresRepository(conn),
		security.NewHasher(cfg.BcryptCost),
		tokens,
		content.NewStore(cat),
		challenge.NewStore(chCat),
		nil,
	)

	reg, err := svc.Register(ctx, devLearnerName)
	if err != nil {
		log.Fatalf("register: %v", err)
	}
	id := reg.Learner.ID

	done := 0
	for _, p := range cat.Paths {
		for _, m := range p.Modules {
			if done == seedLessons {
				break
			}
			if _, ok := cat.Lessons[m]; !ok {
				continue
			}
			if err := svc.CompleteLesson(ctx, id, m); err != nil {
				log.Fatalf("complete lesson %s: %v", m, err)
			}
			done++
		}
	}
	if all := chCat.All(); len(all) > 0 {
		if err := svc.CompleteChallenge(ctx, id, all[0].ID); err != nil {
			log.Fatalf("complete challenge %s: %v", all[0].ID, err)
		}
	}

	progress, err := svc.Progress(ctx, id)
	if err != nil {
		log.Fatalf("progress: %v", err)
	}

	fmt.Println("Seed complete.")
	fmt.Printf("  learner_id:    %s\n", id)
	fmt.Printf("  recovery_code: %s\n", reg.RecoveryCode)
	fmt.Printf("  token:         %s\n", reg.Token)
	fmt.Printf("  overall:       %.1f%%\n", progress.Overall)
	if cfg.LearnerTokenPrivateKey == "" {
		fmt.Println("  (token signed with an ephemeral key; recover a session through the API instead)")
	}
}
