package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/tabsight/sheet_go_server/config"
	"github.com/tabsight/sheet_go_server/internal/repository"
)

var (
	dryRun       = flag.Bool("dry-run", true, "Dry run mode, don't actually delete files")
	uploadExpire = flag.Int("upload-expire", 24, "Hours to keep uploaded temp files")
	staleMinutes = flag.Int("stale-minutes", 30, "Minutes before a processing run is considered stuck")
	cleanUploads = flag.Bool("clean-uploads", true, "Clean expired upload temp files")
	reapStale    = flag.Bool("reap-stale", true, "Mark stuck processing datasets as failed")
)

func main() {
	flag.Parse()

	log.Println("🧹 Starting cleanup task...")
	log.Printf("Mode: dry-run=%v", *dryRun)

	// 加载配置
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 连接数据库
	db, err := connectDB(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	uploadDir := cfg.Upload.TempDir
	totalSize := int64(0)
	deletedSize := int64(0)
	totalFiles := 0
	deletedFiles := 0

	// 1. 清理过期的上传临时文件
	if *cleanUploads {
		log.Printf("\n📦 Cleaning expired upload temp files (older than %d hours)...", *uploadExpire)
		size, count := cleanExpiredUploads(uploadDir, *uploadExpire, *dryRun)
		deletedSize += size
		deletedFiles += count
	}

	// 2. 回收卡死的 processing 运行
	if *reapStale {
		log.Printf("\n⏱  Reaping processing runs stuck longer than %d minutes...", *staleMinutes)
		reapStuckRuns(db, *staleMinutes, *dryRun)
	}

	// 3. 统计当前占用
	log.Println("\n📈 Scanning current disk usage...")
	filepath.Walk(uploadDir, func(path string, info os.FileInfo, err error) error {
		if err == nil && !info.IsDir() {
			totalSize += info.Size()
			totalFiles++
		}
		return nil
	})

	// 输出统计
	log.Println("\n" + strings.Repeat("=", 60))
	log.Println("📊 Cleanup Summary")
	log.Println(strings.Repeat("=", 60))
	log.Printf("Total files: %d", totalFiles)
	log.Printf("Total size: %s", formatSize(totalSize))
	log.Printf("Deleted files: %d", deletedFiles)
	log.Printf("Freed space: %s", formatSize(deletedSize))
	if *dryRun {
		log.Println("\n⚠️  DRY RUN MODE - No changes were made")
		log.Println("   Run with -dry-run=false to apply changes")
	} else {
		log.Println("\n✅ Cleanup completed!")
	}
	log.Println(strings.Repeat("=", 60))
}

// cleanExpiredUploads 清理过期的上传临时文件
func cleanExpiredUploads(uploadDir string, expireHours int, dryRun bool) (int64, int) {
	expireTime := time.Now().Add(-time.Duration(expireHours) * time.Hour)
	var totalSize int64
	var count int

	entries, err := os.ReadDir(uploadDir)
	if err != nil {
		log.Printf("Failed to read upload dir: %v", err)
		return 0, 0
	}

	for _, entry := range entries {
		entryPath := filepath.Join(uploadDir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			continue
		}

		// 检查是否过期
		if info.ModTime().Before(expireTime) {
			size := info.Size()
			if entry.IsDir() {
				size = getDirSize(entryPath)
			}
			totalSize += size

			log.Printf("  - %s (%.2f MB, %s old)",
				entry.Name(),
				float64(size)/1024/1024,
				time.Since(info.ModTime()).Round(time.Hour))

			if !dryRun {
				if err := os.RemoveAll(entryPath); err != nil {
					log.Printf("    ❌ Failed to delete: %v", err)
				} else {
					count++
				}
			} else {
				count++
			}
		}
	}

	log.Printf("Found %d expired upload entries (total: %s)",
		count, formatSize(totalSize))

	return totalSize, count
}

// reapStuckRuns 把长时间停留在 processing 的运行判为 failed
func reapStuckRuns(db *gorm.DB, staleMinutes int, dryRun bool) {
	datasetRepo := repository.NewDatasetRepository(db)
	cutoff := time.Now().Add(-time.Duration(staleMinutes) * time.Minute)

	if dryRun {
		var count int64
		db.Table("datasets").
			Where("status = ? AND updated_at < ?", "processing", cutoff).
			Count(&count)
		log.Printf("Would mark %d stuck runs as failed", count)
		return
	}

	affected, err := datasetRepo.FailStaleRuns(cutoff, "分析超时，已被系统回收")
	if err != nil {
		log.Printf("Failed to reap stuck runs: %v", err)
		return
	}
	log.Printf("Marked %d stuck runs as failed", affected)
}

// getDirSize 计算目录大小
func getDirSize(path string) int64 {
	var size int64
	filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err == nil && !info.IsDir() {
			size += info.Size()
		}
		return nil
	})
	return size
}

// formatSize 格式化文件大小
func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.2f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

// connectDB 连接数据库
func connectDB(cfg *config.Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		cfg.Database.Username,
		cfg.Database.Password,
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.Database,
	)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	return db, nil
}
