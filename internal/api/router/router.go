package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mrexo321/warga-nusa-sub000/config"
	"github.com/mrexo321/warga-nusa-sub000/internal/api/handler"
	"github.com/mrexo321/warga-nusa-sub000/internal/api/middleware"
	"github.com/mrexo321/warga-nusa-sub000/internal/model"
	"github.com/mrexo321/warga-nusa-sub000/pkg/jwt"
	"github.com/mrexo321/warga-nusa-sub000/pkg/redis"
)

// Setup 初始化并返回 Gin 路由引擎
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	// multipart 上限 = 照片上限 + 1MB 表单字段开销
	r.Use(middleware.BodyLimit(cfg.Server.MaxBodyBytes, cfg.Storage.MaxPhotoBytes+1<<20))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// ── 静态文件：二维码与巡逻照片 ──
	r.Static("/uploads", cfg.Storage.BaseDir)

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 认证模块（无需认证；登录限流防爆破）
		auth := v1.Group("/auth")
		{
			auth.POST("/login", middleware.RateLimit(rdb, 10, time.Minute), h.Auth.Login)
			auth.POST("/refresh", h.Auth.Refresh)
		}

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(jwtMgr, rdb))
		{
			adminOnly := middleware.RoleAuth(model.RoleAdmin)

			// 认证模块（需要认证）
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.GET("/auth/me", h.Auth.Me)

			// 班次目录
			shifts := authorized.Group("/shifts")
			{
				shifts.GET("", h.Shift.ListShifts)
				shifts.GET("/:id", h.Shift.GetShift)
				shifts.POST("", adminOnly, h.Shift.CreateShift)
				shifts.PUT("/:id", adminOnly, h.Shift.UpdateShift)
				shifts.DELETE("/:id", adminOnly, h.Shift.DeleteShift)
			}

			// 排班台账
			assignments := authorized.Group("/assignments")
			{
				assignments.POST("", adminOnly, h.Shift.Assign)
				assignments.DELETE("", adminOnly, h.Shift.Unassign)
			}
			authorized.GET("/schedule", h.Shift.MonthlySchedule)

			// 巡逻模块
			patrols := authorized.Group("/patrols")
			{
				patrols.GET("", h.Patrol.ListPatrols)
				patrols.GET("/:id", h.Patrol.GetPatrol)
				patrols.POST("", adminOnly, h.Patrol.CreatePatrol)
				patrols.PUT("/:id", adminOnly, h.Patrol.UpdatePatrol)
				patrols.DELETE("/:id", adminOnly, h.Patrol.DeletePatrol)
				patrols.POST("/:id/checkpoints", adminOnly, h.Patrol.CreateCheckpoint)
				patrols.GET("/:id/logs", adminOnly, h.Patrol.LogsByPatrol)
			}
			authorized.PUT("/checkpoints/:id", adminOnly, h.Patrol.UpdateCheckpoint)
			authorized.POST("/patrol-logs", h.Patrol.Redeem)

			// 课程签到模块
			courses := authorized.Group("/courses")
			{
				courses.GET("", h.Course.ListCourses)
				courses.GET("/:id", h.Course.GetCourse)
				courses.POST("", adminOnly, h.Course.CreateCourse)
				courses.PUT("/:id", adminOnly, h.Course.UpdateCourse)
				courses.DELETE("/:id", adminOnly, h.Course.DeleteCourse)
				courses.POST("/:id/meetings", adminOnly, h.Course.CreateMeeting)
			}
			authorized.PUT("/meetings/:id", adminOnly, h.Course.UpdateMeeting)
			authorized.GET("/meetings/:id/attendances", adminOnly, h.Course.AttendancesByMeeting)
			authorized.POST("/attendances", h.Course.Redeem)

			// 导出模块
			export := authorized.Group("/export")
			{
				export.GET("/schedule", adminOnly, h.Export.ExportMonthlySchedule)
				export.GET("/schedule/me.ics", h.Export.ExportUserScheduleICS)
			}
		}
	}

	return r
}
