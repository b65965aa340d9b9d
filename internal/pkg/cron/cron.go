package cron

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/tabsight/sheet_go_server/internal/repository"
)

// Service 进程内定时任务：清理过期上传临时目录，
// 以及把卡死的 processing 运行判为 failed
type Service struct {
	datasetRepo   *repository.DatasetRepository
	uploadTempDir string
	expireHours   int
	staleAfter    time.Duration
	stopChan      chan struct{}
}

func NewService(
	datasetRepo *repository.DatasetRepository,
	uploadTempDir string,
	expireHours int,
	staleAfter time.Duration,
) *Service {
	return &Service{
		datasetRepo:   datasetRepo,
		uploadTempDir: uploadTempDir,
		expireHours:   expireHours,
		staleAfter:    staleAfter,
		stopChan:      make(chan struct{}),
	}
}

// Start 启动定时任务
func (s *Service) Start() {
	go s.runCleanup()
	go s.runStaleRunReaper()
	log.Println("Cron service started (temp cleanup + stale run reaper)")
}

// Stop 停止定时任务
func (s *Service) Stop() {
	close(s.stopChan)
	log.Println("Cron service stopped")
}

// runCleanup 每小时执行一次临时目录清理
func (s *Service) runCleanup() {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			cleaned := s.CleanupUploadDirs()
			if cleaned > 0 {
				log.Printf("Cleanup summary: uploads=%d", cleaned)
			}
		}
	}
}

// runStaleRunReaper 定期回收卡死的运行
func (s *Service) runStaleRunReaper() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.ReapStaleRuns()
		}
	}
}

// ReapStaleRuns 把 processing 超过期限的记录标记为 failed。
// 外部调用保证 worker 崩溃后记录仍能到达终态。
func (s *Service) ReapStaleRuns() int64 {
	if s.datasetRepo == nil || s.staleAfter <= 0 {
		return 0
	}

	cutoff := time.Now().Add(-s.staleAfter)
	message := fmt.Sprintf("analysis timed out after %s", s.staleAfter)

	count, err := s.datasetRepo.FailStaleRuns(cutoff, message)
	if err != nil {
		log.Printf("Stale run reaper failed: %v", err)
		return 0
	}
	if count > 0 {
		log.Printf("Stale run reaper: marked %d stuck runs as failed", count)
	}
	return count
}

// CleanupUploadDirs 清理过期的上传临时目录
func (s *Service) CleanupUploadDirs() int {
	if s.uploadTempDir == "" {
		return 0
	}

	expireHours := s.expireHours
	if expireHours <= 0 {
		expireHours = 1
	}
	expireDuration := time.Duration(expireHours) * time.Hour

	entries, err := os.ReadDir(s.uploadTempDir)
	if err != nil {
		log.Printf("Cleanup uploads: failed to read dir %s: %v", s.uploadTempDir, err)
		return 0
	}

	cleaned := 0
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			continue
		}

		if time.Since(info.ModTime()) > expireDuration {
			path := filepath.Join(s.uploadTempDir, entry.Name())
			if err := os.RemoveAll(path); err != nil {
				log.Printf("Cleanup uploads: failed to remove %s: %v", path, err)
			} else {
				cleaned++
			}
		}
	}
	return cleaned
}
