// Package main API Server 入口
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vaxcert/internal/apiserver/auth"
	"vaxcert/internal/apiserver/server"
	"vaxcert/internal/config"
	"vaxcert/internal/shared/objstore"
	"vaxcert/internal/shared/storage/mongostore"
	"vaxcert/pkg/logging"
)

func main() {
	// 加载配置（自动加载 .env，根据 APP_ENV 切换 yaml）
	cfg := config.Load()

	log.Printf("Starting API Server... [env=%s]", cfg.Env)
	log.Printf("Config: %s", cfg.String())

	logger := logging.New(logging.Config{
		Level:     cfg.Log.Level,
		Format:    cfg.Log.Format,
		Output:    "stdout",
		Component: "api-server",
	})

	// JWT 密钥未配置时生成临时密钥，重启后已签发的 token 全部失效
	jwtSecret := cfg.JWTSecret
	if jwtSecret == "" {
		jwtSecret = generateSecret()
		log.Println("WARNING: JWT_SECRET not set, using a generated secret; tokens will not survive restarts")
	}

	// 初始化 MongoDB。连接是惰性的，数据库暂不可用不阻止启动，
	// 驱动会在后台重连，期间请求返回 500。
	store, err := mongostore.NewStore(cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		log.Fatalf("Failed to initialize MongoDB client: %v", err)
	}
	defer store.Close()

	pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	if err := store.Ping(pingCtx); err != nil {
		log.Printf("WARNING: MongoDB not reachable yet: %v", err)
	} else {
		log.Println("Connected to MongoDB")
	}
	cancelPing()

	// 初始化 MinIO 对象存储
	objects, err := objstore.NewClient(cfg.MinIO)
	if err != nil {
		log.Fatalf("Failed to initialize MinIO client: %v", err)
	}
	bucketCtx, cancelBucket := context.WithTimeout(context.Background(), 10*time.Second)
	if err := objects.EnsureBucket(bucketCtx); err != nil {
		log.Printf("WARNING: MinIO bucket check failed: %v", err)
	}
	cancelBucket()

	// 启动时确保管理员账号存在
	authCfg := auth.DefaultConfig(jwtSecret)
	if err := auth.EnsureAdminUser(store, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		log.Printf("WARNING: ensure admin user failed: %v", err)
	}

	h := server.NewHandler(store, objects, authCfg, logger)

	srv := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      h.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// 优雅关闭
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	log.Printf("API Server listening on :%s", cfg.APIPort)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}

	fmt.Println("Server stopped")
}

func generateSecret() string {
	b := make([]byte, 32)
	rand.Read(b)
	return hex.EncodeToString(b)
}
