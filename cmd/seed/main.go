package main

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/crypto/bcrypt"

	"github.com/stockroom/stockroom-backend/internal/identity/domain"
	identityrepo "github.com/stockroom/stockroom-backend/internal/identity/repository"
	"github.com/stockroom/stockroom-backend/pkg/config"
	"github.com/stockroom/stockroom-backend/pkg/database"
	"github.com/stockroom/stockroom-backend/pkg/logger"
)

// stockroom-seed bootstraps an initial administrator account. It is
// idempotent: an existing admin username is left untouched.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New("stockroom-seed", cfg.Server.Environment)

	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	ctx := context.Background()

	username := os.Getenv("SEED_ADMIN_USERNAME")
	if username == "" {
		username = "admin"
	}

	password := os.Getenv("SEED_ADMIN_PASSWORD")
	if password == "" {
		password = "ChangeMe123!"
		log.Warn().Msg("using default admin password - set SEED_ADMIN_PASSWORD in production")
	}

	users := identityrepo.NewUserRepository(db)

	exists, err := users.ExistsByUsername(ctx, username)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to check for existing admin")
	}
	if exists {
		log.Info().Str("username", username).Msg("admin account already exists, nothing to do")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to hash password")
	}

	admin := &domain.User{
		Username:     username,
		Email:        os.Getenv("SEED_ADMIN_EMAIL"),
		PasswordHash: string(hash),
		IsStaff:      true,
		IsActive:     true,
	}

	if err := users.Create(ctx, admin); err != nil {
		log.Fatal().Err(err).Msg("failed to create admin account")
	}

	log.Info().Int64("user_id", admin.ID).Str("username", username).Msg("admin account created")
}
