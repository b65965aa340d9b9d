package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tabsight/sheet_go_server/config"
	"github.com/tabsight/sheet_go_server/internal/api"
	"github.com/tabsight/sheet_go_server/internal/api/handler"
	"github.com/tabsight/sheet_go_server/internal/database"
	"github.com/tabsight/sheet_go_server/internal/pkg/ai"
	"github.com/tabsight/sheet_go_server/internal/pkg/cron"
	"github.com/tabsight/sheet_go_server/internal/pkg/oss"
	"github.com/tabsight/sheet_go_server/internal/pkg/queue"
	"github.com/tabsight/sheet_go_server/internal/repository"
	"github.com/tabsight/sheet_go_server/internal/service"
	"github.com/tabsight/sheet_go_server/internal/synthesis"
	"github.com/tabsight/sheet_go_server/internal/worker"
)

func main() {
	// 加载配置
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化数据库
	db, err := database.NewMySQL(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect database: %v", err)
	}
	log.Println("Database connected")

	// 初始化 Redis
	rdb, err := database.NewRedis(&cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect redis: %v", err)
	}
	log.Println("Redis connected")

	// 初始化 OSS（可选，仅用于归档上传源文件）
	var ossClient *oss.Client
	if cfg.OSS.Endpoint != "" && cfg.OSS.AccessKeyID != "" {
		ossClient, err = oss.NewClient(&cfg.OSS)
		if err != nil {
			log.Printf("Warning: Failed to init OSS client: %v", err)
		} else {
			log.Println("OSS client initialized")
		}
	}

	// 初始化 Queue
	taskQueue := queue.NewQueue(rdb, cfg.Queue.TaskQueue)

	// 初始化 Repository
	datasetRepo := repository.NewDatasetRepository(db)
	insightRepo := repository.NewInsightRepository(db)
	reportRepo := repository.NewReportRepository(db)

	// 初始化 Service
	ingestService := service.NewIngestService(cfg)
	datasetService := service.NewDatasetService(datasetRepo, insightRepo, taskQueue, ossClient, cfg)
	reportService := service.NewReportService(datasetRepo, reportRepo, taskQueue, cfg)

	// 初始化合成器与任务处理器
	aiClient := ai.NewClient(&cfg.OpenAI)
	synth := synthesis.NewSynthesizer(aiClient)
	processor := worker.NewProcessor(datasetRepo, reportRepo, synth, cfg)

	// 创建 context 用于优雅关闭
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 进程内 worker 池消费任务队列
	maxWorkers := cfg.Queue.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = 2
	}
	log.Printf("Starting %d in-process workers", maxWorkers)
	for i := 0; i < maxWorkers; i++ {
		go func(workerID int) {
			for {
				select {
				case <-ctx.Done():
					log.Printf("Worker %d shutting down", workerID)
					return
				default:
					msg, err := taskQueue.Pop(ctx, 5*time.Second)
					if err != nil {
						if ctx.Err() != nil {
							return
						}
						log.Printf("Worker %d: failed to pop task: %v", workerID, err)
						continue
					}

					if msg == nil {
						continue // 超时，继续等待
					}

					log.Printf("Worker %d: processing %s task for dataset %d", workerID, msg.Task, msg.DatasetID)
					if err := processor.Process(ctx, msg); err != nil {
						log.Printf("Worker %d: dataset %d task failed: %v", workerID, msg.DatasetID, err)
					}
				}
			}
		}(i)
	}

	// 定时任务：临时目录清理 + 卡死运行回收
	staleAfter := time.Duration(cfg.Queue.StaleAfterMinutes) * time.Minute
	if staleAfter <= 0 {
		staleAfter = 30 * time.Minute
	}
	expireHours := cfg.Upload.ExpireHours
	if expireHours <= 0 {
		expireHours = 24
	}
	cronService := cron.NewService(datasetRepo, cfg.Upload.TempDir, expireHours, staleAfter)
	cronService.Start()

	// 初始化 Handler 和 Router
	datasetHandler := handler.NewDatasetHandler(datasetService, ingestService, cfg)
	reportHandler := handler.NewReportHandler(reportService)
	templateHandler := handler.NewTemplateHandler()

	router := api.NewRouter(datasetHandler, reportHandler, templateHandler, cfg)
	engine := router.Setup()

	// 监听退出信号
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Println("Received shutdown signal")
		cronService.Stop()
		cancel()
	}()

	// 启动服务器
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Printf("Server starting on %s", addr)
	if err := engine.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
