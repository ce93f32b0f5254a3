package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrexo321/warga-nusa-sub000/internal/dto"
	"github.com/mrexo321/warga-nusa-sub000/internal/service"
	"github.com/mrexo321/warga-nusa-sub000/pkg/response"
)

// AuthHandler 认证模块 HTTP 处理器
type AuthHandler struct {
	authSvc service.AuthService
}

// NewAuthHandler 创建 AuthHandler
func NewAuthHandler(authSvc service.AuthService) *AuthHandler {
	return &AuthHandler{authSvc: authSvc}
}

// Login 用户登录
// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.authSvc.Login(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			response.Error(c, http.StatusUnauthorized, 11001, "邮箱或密码错误")
			return
		}
		response.InternalError(c)
		return
	}

	response.OK(c, result)
}

// Refresh 刷新 Token
// POST /api/v1/auth/refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req dto.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.authSvc.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, service.ErrInvalidRefresh) {
			response.Error(c, http.StatusUnauthorized, 11002, "refresh token 无效")
			return
		}
		response.InternalError(c)
		return
	}

	response.OK(c, result)
}

// Logout 用户登出，将当前 Access Token 加入黑名单
// POST /api/v1/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	jti, expiresAt := getTokenMeta(c)
	if jti == "" {
		response.Unauthorized(c, 10002, "未认证")
		return
	}

	if err := h.authSvc.Logout(c.Request.Context(), jti, expiresAt); err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, nil)
}

// Me 获取当前登录用户信息
// GET /api/v1/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	user, err := h.authSvc.GetCurrentUser(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			response.NotFound(c, 11003, "用户不存在")
			return
		}
		response.InternalError(c)
		return
	}

	response.OK(c, user)
}
