/*
 * @module api/middleware/apikey_auth
 * @description API密钥认证中间件，对共享访问接口做密钥校验、权限范围检查与分布式限流
 * @architecture 中间件模式 - HTTP请求拦截和处理
 * @documentReference ai_docs/sharing.md
 * @stateFlow 提取X-Api-Key -> 校验密钥 -> 检查权限范围 -> 限流检查 -> 密钥注入请求上下文
 * @rules 限流器不可用时放行请求，认证失败时返回401/403/429
 * @dependencies dataquality-service/service/sharing, dataquality-service/service/rate_limiter
 * @refs api/controllers/share_controller.go
 */

package middleware

import (
	"context"
	"fmt"
	"net/http"

	"dataquality-service/service/models"
	"dataquality-service/service/rate_limiter"
	"dataquality-service/service/sharing"

	"github.com/go-chi/render"
)

type contextKey string

const apiKeyContextKey contextKey = "api_key"

// 共享接口默认限流规则
const (
	globalWindowSeconds = 60
	globalMaxRequests   = 600
	keyWindowSeconds    = 60
	keyMaxRequests      = 120
)

// ApiKeyAuth API密钥认证中间件
type ApiKeyAuth struct {
	sharingService *sharing.SharingService
	rateLimiter    *rate_limiter.RedisRateLimiter
}

// NewApiKeyAuth 创建API密钥认证中间件，rateLimiter可为nil表示不限流
func NewApiKeyAuth(sharingService *sharing.SharingService, rateLimiter *rate_limiter.RedisRateLimiter) *ApiKeyAuth {
	return &ApiKeyAuth{
		sharingService: sharingService,
		rateLimiter:    rateLimiter,
	}
}

// RequireScope 返回要求指定权限范围的认证中间件
func (a *ApiKeyAuth) RequireScope(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			keyValue := r.Header.Get("X-Api-Key")
			if keyValue == "" {
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, map[string]interface{}{
					"status": http.StatusUnauthorized,
					"msg":    "缺少X-Api-Key请求头",
				})
				return
			}

			apiKey, err := a.sharingService.VerifyApiKey(keyValue)
			if err != nil {
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, map[string]interface{}{
					"status": http.StatusUnauthorized,
					"msg":    "API密钥无效",
				})
				return
			}

			if !apiKey.HasScope(scope) {
				render.Status(r, http.StatusForbidden)
				render.JSON(w, r, map[string]interface{}{
					"status": http.StatusForbidden,
					"msg":    fmt.Sprintf("API密钥缺少权限: %s", scope),
				})
				return
			}

			if result := a.checkRateLimit(r.Context(), apiKey); result != nil && !result.Allowed {
				w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", result.Limit))
				w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", result.Remaining))
				render.Status(r, http.StatusTooManyRequests)
				render.JSON(w, r, map[string]interface{}{
					"status": http.StatusTooManyRequests,
					"msg":    result.Message,
				})
				return
			}

			ctx := context.WithValue(r.Context(), apiKeyContextKey, apiKey)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// checkRateLimit 检查全局与密钥两层限流，限流器不可用时放行
func (a *ApiKeyAuth) checkRateLimit(ctx context.Context, apiKey *models.ApiKey) *rate_limiter.RateLimitResult {
	if a.rateLimiter == nil {
		return nil
	}

	rules := []rate_limiter.RateLimitRule{
		{Type: "global", TimeWindow: globalWindowSeconds, MaxRequests: globalMaxRequests},
		{Type: "api_key", TargetID: apiKey.ID, TimeWindow: keyWindowSeconds, MaxRequests: keyMaxRequests},
	}

	result, err := a.rateLimiter.CheckRateLimit(ctx, rules)
	if err != nil {
		return nil
	}
	return result
}

// ApiKeyFromContext 从请求上下文中取出认证通过的API密钥
func ApiKeyFromContext(ctx context.Context) (*models.ApiKey, bool) {
	apiKey, ok := ctx.Value(apiKeyContextKey).(*models.ApiKey)
	return apiKey, ok
}
