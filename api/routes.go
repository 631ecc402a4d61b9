/*
 * @module api/routes
 * @description API路由配置模块，负责初始化和配置所有HTTP路由
 * @architecture RESTful API架构
 * @documentReference ai_docs/quality_engine.md
 * @stateFlow 无状态HTTP请求处理
 * @rules 遵循RESTful API设计规范，统一错误处理和响应格式
 * @dependencies github.com/go-chi/chi/v5, github.com/go-chi/cors, github.com/go-chi/render
 * @refs api/controllers/
 */

package api

import (
	"dataquality-service/api/controllers"
	apimiddleware "dataquality-service/api/middleware"
	"dataquality-service/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
)

// InitRoute 初始化所有API路由
func InitRoute(r *chi.Mux) {
	// 基础中间件
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(render.SetContentType(render.ContentTypeJSON))

	// CORS配置
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token", "X-Api-Key"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// 健康检查
	healthController := controllers.NewHealthController(service.GlobalHealthChecker)
	r.Get("/health", healthController.Health)
	r.Get("/ready", healthController.Ready)
	r.Get("/health/detail", healthController.Detail)

	// SSE事件订阅
	eventController := controllers.NewEventController(service.GlobalEventService)
	r.Get("/sse/{user_name}", eventController.HandleSSE)

	// 事件管理
	r.Route("/events", func(r chi.Router) {
		r.Post("/send", eventController.SendEvent)
		r.Post("/broadcast", eventController.BroadcastEvent)
		r.Get("/connections", eventController.GetSSEConnectionList)
		r.Get("/history", eventController.GetEventHistoryList)
		r.Post("/mark-read", eventController.MarkEventsRead)
	})

	// 数据集管理
	r.Route("/datasets", func(r chi.Router) {
		datasetController := controllers.NewDatasetController(service.GlobalDatasetService)
		r.Post("/", datasetController.CreateDataset)
		r.Get("/", datasetController.GetDatasets)
		r.Get("/{id}", datasetController.GetDataset)
		r.Put("/{id}", datasetController.UpdateDataset)
		r.Delete("/{id}", datasetController.DeleteDataset)
		r.Get("/{id}/records", datasetController.GetDatasetRecords)
		r.Post("/{id}/records", datasetController.AddRecords)
		r.Post("/{id}/import", datasetController.ImportDataset)
		r.Get("/{id}/export", datasetController.ExportDataset)
	})

	// 质量评估与任务管理
	r.Route("/quality", func(r chi.Router) {
		// 即席质量评估
		qualityController := controllers.NewQualityController(service.GlobalDatasetService, service.GlobalReportService)
		r.Route("/assess", func(r chi.Router) {
			r.Post("/completeness", qualityController.AssessCompleteness)
			r.Post("/formats", qualityController.AssessFormats)
			r.Post("/duplicates", qualityController.DetectDuplicates)
			r.Post("/report", qualityController.GenerateReport)
		})

		// 质量检测任务
		taskController := controllers.NewQualityTaskController(service.GlobalQualityTaskService, service.GlobalQualityScheduler)
		r.Route("/tasks", func(r chi.Router) {
			r.Post("/", taskController.CreateQualityTask)
			r.Get("/", taskController.GetQualityTasks)
			r.Get("/{id}", taskController.GetQualityTask)
			r.Put("/{id}", taskController.UpdateQualityTask)
			r.Delete("/{id}", taskController.DeleteQualityTask)
			r.Post("/{id}/start", taskController.StartQualityTask)
			r.Post("/{id}/stop", taskController.StopQualityTask)
			r.Get("/{id}/executions", taskController.GetTaskExecutions)
		})
		r.Get("/executions/{id}", taskController.GetExecution)
		r.Get("/issues", taskController.GetQualityIssues)

		// 质量报告
		reportController := controllers.NewQualityReportController(service.GlobalReportService)
		r.Route("/reports", func(r chi.Router) {
			r.Get("/", reportController.GetReports)
			r.Get("/latest", reportController.GetLatestReport)
			r.Get("/{id}", reportController.GetReport)
			r.Get("/{id}/data", reportController.GetReportData)
			r.Delete("/{id}", reportController.DeleteReport)
		})

		// 规则模板
		templateController := controllers.NewTemplateController(service.GlobalTemplateService, service.GlobalQualityTaskService)
		r.Route("/templates", func(r chi.Router) {
			r.Post("/", templateController.CreateTemplate)
			r.Get("/", templateController.GetTemplates)
			r.Get("/{id}", templateController.GetTemplate)
			r.Put("/{id}", templateController.UpdateTemplate)
			r.Delete("/{id}", templateController.DeleteTemplate)
			r.Post("/validate-script", templateController.ValidateScript)
			r.Post("/{id}/apply", templateController.ApplyTemplate)
		})
	})

	// 数据接入订阅
	r.Route("/ingest", func(r chi.Router) {
		ingestController := controllers.NewIngestController(service.GlobalIngestService)
		r.Route("/subscriptions", func(r chi.Router) {
			r.Post("/", ingestController.CreateSubscription)
			r.Get("/", ingestController.GetSubscriptions)
			r.Post("/{id}/start", ingestController.StartSubscription)
			r.Post("/{id}/stop", ingestController.StopSubscription)
			r.Delete("/{id}", ingestController.DeleteSubscription)
		})
	})

	// API密钥管理（内部接口）
	r.Route("/sharing", func(r chi.Router) {
		sharingController := controllers.NewSharingController(service.GlobalSharingService)
		r.Route("/api-keys", func(r chi.Router) {
			r.Post("/", sharingController.CreateApiKey)
			r.Get("/", sharingController.GetApiKeys)
			r.Get("/{id}", sharingController.GetApiKey)
			r.Put("/{id}", sharingController.UpdateApiKey)
			r.Post("/{id}/revoke", sharingController.RevokeApiKey)
		})
	})

	// 共享访问（外部接口，密钥认证+限流）
	r.Route("/share", func(r chi.Router) {
		auth := apimiddleware.NewApiKeyAuth(service.GlobalSharingService, service.GlobalRateLimiter)
		shareController := controllers.NewShareController(service.GlobalDatasetService, service.GlobalReportService)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireScope("datasets:read"))
			r.Get("/datasets/{id}/export", shareController.ExportSharedDataset)
		})
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireScope("reports:read"))
			r.Get("/reports/latest", shareController.GetSharedLatestReport)
			r.Get("/reports/{id}/data", shareController.GetSharedReportData)
		})
	})
}
