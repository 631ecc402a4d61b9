/*
 * @module service/init
 * @description 服务初始化模块，负责数据库连接、迁移、服务装配与消息基础设施接入
 * @architecture 分层架构 - 服务层
 * @documentReference ai_docs/quality_engine.md
 * @stateFlow 应用启动时执行初始化流程
 * @rules 数据库不可用时启动失败，Redis/Kafka/MQTT不可用时降级运行并记录日志
 * @dependencies gorm.io/gorm, gorm.io/driver/postgres, gorm.io/driver/sqlite
 * @refs api/routes.go
 */

package service

import (
	"fmt"
	"log"
	"os"

	"dataquality-service/client/connectors"
	"dataquality-service/service/database"
	"dataquality-service/service/dataset"
	"dataquality-service/service/distributed_lock"
	"dataquality-service/service/event"
	"dataquality-service/service/ingest"
	"dataquality-service/service/monitoring"
	"dataquality-service/service/quality_report"
	"dataquality-service/service/quality_task"
	"dataquality-service/service/rate_limiter"
	"dataquality-service/service/sharing"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var (
	DB                       *gorm.DB
	GlobalEventService       *event.EventService
	GlobalDatasetService     *dataset.DatasetService
	GlobalReportService      *quality_report.ReportService
	GlobalQualityTaskService *quality_task.QualityTaskService
	GlobalTemplateService    *quality_task.TemplateService
	GlobalQualityScheduler   *quality_task.QualityScheduler
	GlobalIngestService      *ingest.IngestService
	GlobalSharingService     *sharing.SharingService
	GlobalHealthChecker      *monitoring.HealthChecker
	GlobalRateLimiter        *rate_limiter.RedisRateLimiter
)

func init() {
	initDatabase()
	runMigrations()
	initServices()
	initMessaging()
	startBackgroundServices()
}

// initDatabase 初始化数据库连接，DB_TYPE=sqlite时使用本地文件库
func initDatabase() {
	var err error

	if getEnvWithDefault("DB_TYPE", "postgres") == "sqlite" {
		path := getEnvWithDefault("DB_PATH", "dataquality.db")
		DB, err = gorm.Open(sqlite.Open(path), &gorm.Config{})
		if err != nil {
			log.Fatalf("数据库连接失败: %v", err)
		}
		log.Printf("数据库连接成功(sqlite: %s)", path)
		return
	}

	var dsn string
	// 优先使用DATABASE_URL环境变量
	if databaseURL := os.Getenv("DATABASE_URL"); databaseURL != "" {
		dsn = databaseURL
	} else {
		// 使用分离的环境变量构建连接字符串
		host := getEnvWithDefault("DB_HOST", "localhost")
		port := getEnvWithDefault("DB_PORT", "5432")
		user := getEnvWithDefault("DB_USER", "postgres")
		password := getEnvWithDefault("DB_PASSWORD", "things2024")
		dbname := getEnvWithDefault("DB_NAME", "postgres")
		sslmode := getEnvWithDefault("DB_SSLMODE", "disable")
		schema := getEnvWithDefault("DB_SCHEMA", "public")

		dsn = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s search_path=%s TimeZone=Asia/Shanghai",
			host, port, user, password, dbname, sslmode, schema)
	}

	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("数据库连接失败: %v", err)
	}

	log.Println("数据库连接成功")
}

// getEnvWithDefault 获取环境变量，如果不存在则返回默认值
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// runMigrations 运行数据库迁移
func runMigrations() {
	log.Println("开始运行数据库迁移...")

	if err := database.AutoMigrate(DB); err != nil {
		log.Fatalf("数据库迁移失败: %v", err)
	}
	log.Println("数据库表结构迁移完成")

	if err := database.InitializeData(DB); err != nil {
		log.Fatalf("基础数据初始化失败: %v", err)
	}
	log.Println("基础数据初始化完成")
}

// initServices 初始化业务服务并完成装配
func initServices() {
	GlobalEventService = event.NewEventService(DB)
	GlobalDatasetService = dataset.NewDatasetService(DB)

	GlobalReportService = quality_report.NewReportService(DB)
	GlobalReportService.SetEventPublisher(GlobalEventService)

	GlobalQualityTaskService = quality_task.NewQualityTaskService(DB, GlobalDatasetService, GlobalReportService)
	GlobalQualityTaskService.SetEventPublisher(GlobalEventService)

	GlobalTemplateService = quality_task.NewTemplateService(DB)
	GlobalQualityScheduler = quality_task.NewQualityScheduler(GlobalQualityTaskService)

	GlobalIngestService = ingest.NewIngestService(DB, GlobalDatasetService)
	GlobalSharingService = sharing.NewSharingService(DB)

	GlobalHealthChecker = monitoring.NewHealthChecker(DB)
	monitoring.RegisterBuildInfo()

	log.Println("服务初始化完成")
}

// initMessaging 接入Redis/Kafka/MQTT等可选基础设施，不可用时降级运行
func initMessaging() {
	// Redis报告缓存
	redisCache := connectors.NewRedisConnector(connectors.DefaultRedisConfig())
	if err := redisCache.Connect(); err != nil {
		log.Printf("Redis缓存不可用，报告读取将直连数据库: %v", err)
	} else {
		GlobalReportService.SetCache(redisCache)
		GlobalHealthChecker.SetCachePing(redisCache.Ping)
	}

	// Redis分布式锁，多实例部署时保护调度执行与数据集写入
	if lock, err := distributed_lock.NewRedisLock(); err != nil {
		log.Printf("Redis分布式锁不可用，调度与接入写入将不加锁: %v", err)
	} else {
		GlobalQualityScheduler.SetDistributedLock(lock)
		GlobalIngestService.SetLockExecutor(distributed_lock.NewLockExecutor(lock))
	}

	// Redis限流器，保护共享访问接口
	if limiter, err := rate_limiter.NewRedisRateLimiter(); err != nil {
		log.Printf("Redis限流器不可用，共享接口将不限流: %v", err)
	} else {
		GlobalRateLimiter = limiter
	}

	// Kafka消息源
	kafkaConnector := connectors.NewKafkaConnector(connectors.DefaultKafkaConfig())
	if err := kafkaConnector.Connect(); err != nil {
		log.Printf("Kafka不可用，kafka来源的接入订阅将无法启动: %v", err)
	} else {
		GlobalIngestService.RegisterSource("kafka", ingest.KafkaSource{Connector: kafkaConnector})
	}

	// MQTT消息源
	mqttConnector := connectors.NewMQTTConnector(connectors.DefaultMQTTConfig())
	if err := mqttConnector.Connect(); err != nil {
		log.Printf("MQTT不可用，mqtt来源的接入订阅将无法启动: %v", err)
	} else {
		GlobalIngestService.RegisterSource("mqtt", ingest.MQTTSource{Connector: mqttConnector})
	}
}

// startBackgroundServices 启动调度器与接入消费
func startBackgroundServices() {
	if getEnvWithDefault("ENABLE_SCHEDULER", "true") == "true" {
		if err := GlobalQualityScheduler.StartScheduler(); err != nil {
			log.Printf("启动质量任务调度器失败: %v", err)
		} else {
			log.Println("质量任务调度器已启动")
		}
	}

	GlobalIngestService.Start()
}
