// Package main 管理员账号创建 CLI
//
// 用法: create-admin <email> <password> [name]
// 账号已存在时升级为管理员角色并更新密码。
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"regexp"
	"strings"
	"time"

	"vaxcert/internal/apiserver/auth"
	"vaxcert/internal/config"
	"vaxcert/internal/shared/model"
	"vaxcert/internal/shared/storage/mongostore"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

func main() {
	if len(os.Args) < 3 {
		fmt.Fprintln(os.Stderr, "Usage: create-admin <email> <password> [name]")
		os.Exit(2)
	}
	email := strings.ToLower(os.Args[1])
	password := os.Args[2]
	name := "Admin"
	if len(os.Args) > 3 {
		name = os.Args[3]
	}

	if !emailRegex.MatchString(email) {
		log.Fatalf("Invalid email: %s", email)
	}
	if len(password) < 6 {
		log.Fatal("Password must be at least 6 characters")
	}

	cfg := config.Load()
	store, err := mongostore.NewStore(cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		log.Fatalf("Failed to initialize MongoDB client: %v", err)
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := store.Ping(ctx); err != nil {
		log.Fatalf("MongoDB not reachable: %v", err)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		log.Fatalf("Failed to hash password: %v", err)
	}

	existing, err := store.GetUserByEmail(ctx, email)
	if err != nil {
		log.Fatalf("Failed to look up user: %v", err)
	}
	if existing != nil {
		if err := store.PromoteUserToAdmin(ctx, existing.ID, name, hash); err != nil {
			log.Fatalf("Failed to promote user: %v", err)
		}
		fmt.Printf("Promoted existing user %s (%s) to admin\n", email, existing.ID)
		return
	}

	now := time.Now()
	user := &model.User{
		ID:           generateID("usr"),
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		Role:         model.UserRoleAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := store.CreateUser(ctx, user); err != nil {
		log.Fatalf("Failed to create admin user: %v", err)
	}
	fmt.Printf("Created admin user %s (%s)\n", email, user.ID)
}

func generateID(prefix string) string {
	b := make([]byte, 6)
	rand.Read(b)
	return prefix + "-" + hex.EncodeToString(b)
}
