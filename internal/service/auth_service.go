package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/mrexo321/warga-nusa-sub000/config"
	"github.com/mrexo321/warga-nusa-sub000/internal/dto"
	"github.com/mrexo321/warga-nusa-sub000/internal/model"
	"github.com/mrexo321/warga-nusa-sub000/internal/repository"
	"github.com/mrexo321/warga-nusa-sub000/pkg/jwt"
	"github.com/mrexo321/warga-nusa-sub000/pkg/redis"
)

// ── 认证模块业务错误 ──

var (
	ErrInvalidCredentials = errors.New("邮箱或密码错误")
	ErrUserNotFound       = errors.New("用户不存在")
	ErrInvalidRefresh     = errors.New("refresh token 无效")
)

// AuthService 认证业务接口
type AuthService interface {
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*dto.TokenResponse, error)
	// Logout 将 Access Token 的 jti 加入黑名单；Redis 不可用时降级为空操作
	Logout(ctx context.Context, jti string, expiresAt time.Time) error
	GetCurrentUser(ctx context.Context, userID string) (*dto.UserResponse, error)
}

type authService struct {
	cfg    *config.Config
	repo   *repository.Repository
	jwtMgr *jwt.Manager
	rdb    *redis.Client
	logger *zap.Logger
}

// NewAuthService 创建 AuthService 实例
func NewAuthService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	rdb *redis.Client,
	logger *zap.Logger,
) AuthService {
	return &authService{
		cfg:    cfg,
		repo:   repo,
		jwtMgr: jwtMgr,
		rdb:    rdb,
		logger: logger,
	}
}

func (s *authService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error) {
	// 1. 查询用户
	user, err := s.repo.User.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		s.logger.Error("查询用户失败", zap.Error(err))
		return nil, err
	}

	// 2. 验证密码 (bcrypt)
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.issueTokens(user)
}

func (s *authService) Refresh(ctx context.Context, refreshToken string) (*dto.TokenResponse, error) {
	claims, err := s.jwtMgr.ParseToken(refreshToken)
	if err != nil || claims.TokenType != "refresh" {
		return nil, ErrInvalidRefresh
	}

	user, err := s.repo.User.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidRefresh
		}
		s.logger.Error("查询用户失败", zap.Error(err))
		return nil, err
	}

	return s.issueTokens(user)
}

func (s *authService) Logout(ctx context.Context, jti string, expiresAt time.Time) error {
	if s.rdb == nil {
		s.logger.Warn("Redis 不可用，跳过 Token 黑名单")
		return nil
	}
	return s.rdb.BlacklistToken(ctx, jti, time.Until(expiresAt))
}

func (s *authService) GetCurrentUser(ctx context.Context, userID string) (*dto.UserResponse, error) {
	user, err := s.repo.User.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("查询用户失败", zap.String("id", userID), zap.Error(err))
		return nil, err
	}

	return &dto.UserResponse{
		ID:    user.UserID,
		Name:  user.Name,
		Email: user.Email,
		Role:  user.Role,
	}, nil
}

// ── 内部辅助方法 ──

func (s *authService) issueTokens(user *model.User) (*dto.TokenResponse, error) {
	accessToken, err := s.jwtMgr.GenerateAccessToken(user.UserID, user.Role)
	if err != nil {
		s.logger.Error("生成 AccessToken 失败", zap.Error(err))
		return nil, err
	}

	refreshToken, err := s.jwtMgr.GenerateRefreshToken(user.UserID, user.Role)
	if err != nil {
		s.logger.Error("生成 RefreshToken 失败", zap.Error(err))
		return nil, err
	}

	return &dto.TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int(s.cfg.Auth.AccessTokenTTL.Seconds()),
		User: dto.UserResponse{
			ID:    user.UserID,
			Name:  user.Name,
			Email: user.Email,
			Role:  user.Role,
		},
	}, nil
}
