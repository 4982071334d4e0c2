// Package main 批量积分对账 CLI
//
// 遍历全部用户，将积分覆写为 已验证证书数 × 单张积分。
// 可重复执行，结果幂等。适合 cron 定期跑或数据修复时手工跑。
package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"vaxcert/internal/config"
	"vaxcert/internal/reward"
	"vaxcert/internal/shared/storage/mongostore"
)

func main() {
	cfg := config.Load()

	store, err := mongostore.NewStore(cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		log.Fatalf("Failed to initialize MongoDB client: %v", err)
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	if err := store.Ping(ctx); err != nil {
		log.Fatalf("MongoDB not reachable: %v", err)
	}

	log.Printf("Starting reward reconciliation... [db=%s]", cfg.MongoDB)
	start := time.Now()

	summary, err := reward.NewService(store, nil).ReconcileAll(ctx)
	if err != nil {
		log.Fatalf("Reconciliation failed: %v", err)
	}

	fmt.Printf("Reconciliation complete in %s\n", time.Since(start).Round(time.Millisecond))
	fmt.Printf("  processed:    %d\n", summary.Processed)
	fmt.Printf("  initialized:  %d\n", summary.Initialized)
	fmt.Printf("  recalculated: %d\n", summary.Recalculated)
	fmt.Printf("  unchanged:    %d\n", summary.Unchanged)
}
