package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/stemsi/coursegrade/internal/config"
	"github.com/stemsi/coursegrade/internal/database"
	"github.com/stemsi/coursegrade/internal/logger"
	"github.com/stemsi/coursegrade/internal/model"
	"github.com/stemsi/coursegrade/internal/repository"
	"github.com/stemsi/coursegrade/internal/service"
	"golang.org/x/term"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	ctx := context.Background()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	authService := service.NewAuthService(cfg, repository.NewUserRepository(pool), log)

	// ─── CLI Input ─────────────────────────────────────────────────────
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("=== Create New User ===")

	name := prompt(reader, "Enter Name: ")
	if name == "" {
		fmt.Println("Error: Name is required")
		return
	}

	email := prompt(reader, "Enter Email: ")
	if email == "" {
		fmt.Println("Error: Email is required")
		return
	}

	fmt.Print("Enter Password: ")
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		fmt.Println("Error reading password")
		return
	}
	password := string(bytePassword)
	if len(password) < 6 {
		fmt.Println("Error: Password must be at least 6 characters")
		return
	}

	roleInput := prompt(reader, "Enter Role [student|instructor|admin] (default instructor): ")
	role := model.RoleInstructor
	if roleInput != "" {
		role = model.Role(strings.ToLower(roleInput))
	}

	// ─── Logic ─────────────────────────────────────────────────────────
	user, err := authService.CreateUser(ctx, name, email, password, role)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRole):
			fmt.Printf("Error: unknown role %q\n", role)
			return
		case errors.Is(err, repository.ErrDuplicateEmail):
			fmt.Printf("Error: %s is already registered\n", email)
			return
		}
		log.Fatal().Err(err).Msg("Failed to create user")
	}

	fmt.Printf("\nSuccess! %s '%s' (%s) created with ID: %d\n", user.Role, user.Name, user.Email, user.ID)
}

func prompt(r *bufio.Reader, label string) string {
	fmt.Print(label)
	line, _ := r.ReadString('\n')
	return strings.TrimSpace(line)
}
