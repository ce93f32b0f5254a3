package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 应用全局配置结构体
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"db"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Log      LogConfig      `mapstructure:"log"`
	Feature  FeatureConfig  `mapstructure:"feature"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Port         int        `mapstructure:"port"`
	BaseURL      string     `mapstructure:"base_url"`
	MaxBodyBytes int64      `mapstructure:"max_body_bytes"` // 普通 JSON 请求体上限
	CORS         CORSConfig `mapstructure:"cors"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// DatabaseConfig PostgreSQL 数据库配置
type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Name            string `mapstructure:"name"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"sslmode"`
	Timezone        string `mapstructure:"timezone"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`  // 连接最大生命周期（分钟）
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time"` // 空闲连接最大存活时间（分钟）
}

// DSN 生成 PostgreSQL 连接字符串
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode, c.Timezone,
	)
}

// RedisConfig Redis 缓存配置
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig JWT 认证配置
type AuthConfig struct {
	JWTSecret       string        `mapstructure:"jwt_secret"`
	AccessTokenTTL  time.Duration `mapstructure:"access_token_ttl"`
	RefreshTokenTTL time.Duration `mapstructure:"refresh_token_ttl"`
}

// StorageConfig 文件存储配置（巡逻照片、检查点二维码）
type StorageConfig struct {
	BaseDir       string `mapstructure:"base_dir"`        // 本地存储根目录
	BaseURL       string `mapstructure:"base_url"`        // 对外访问 URL 前缀
	MaxPhotoBytes int64  `mapstructure:"max_photo_bytes"` // 巡逻照片上传上限
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// FeatureConfig 功能开关配置
type FeatureConfig struct {
	// ShiftDeleteCascade 删除班次时是否级联删除排班；false 时存在排班则拒绝删除
	ShiftDeleteCascade bool `mapstructure:"shift_delete_cascade"`
	// PatrolDeleteCascade 删除巡逻线路/课程时是否级联删除检查点及其记录
	PatrolDeleteCascade bool `mapstructure:"patrol_delete_cascade"`
	// GeofenceEnabled 打卡坐标是否校验与检查点注册坐标的距离
	GeofenceEnabled bool `mapstructure:"geofence_enabled"`
	// GeofenceRadiusM 地理围栏半径（米），仅 GeofenceEnabled 时生效
	GeofenceRadiusM float64 `mapstructure:"geofence_radius_m"`
}

// Load 从配置文件与环境变量加载配置
// 优先级：环境变量 > 配置文件 > 默认值
func Load(path string) (*Config, error) {
	v := viper.New()

	// ── 默认值 ──
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.base_url", "http://localhost:8080")
	v.SetDefault("server.max_body_bytes", 1<<20) // 1MB
	v.SetDefault("server.cors.allow_origins", []string{"http://localhost:5173"})

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.name", "warga_nusa")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.timezone", "Asia/Jakarta")
	v.SetDefault("db.max_open_conns", 25)
	v.SetDefault("db.max_idle_conns", 10)
	v.SetDefault("db.conn_max_lifetime", 60)  // 60分钟
	v.SetDefault("db.conn_max_idle_time", 30) // 30分钟

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("auth.access_token_ttl", "15m")
	v.SetDefault("auth.refresh_token_ttl", "168h")

	v.SetDefault("storage.base_dir", "./uploads")
	v.SetDefault("storage.base_url", "http://localhost:8080/uploads")
	v.SetDefault("storage.max_photo_bytes", 8<<20) // 8MB

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("feature.shift_delete_cascade", false)
	v.SetDefault("feature.patrol_delete_cascade", false)
	v.SetDefault("feature.geofence_enabled", false)
	v.SetDefault("feature.geofence_radius_m", 100)

	// ── 配置文件 ──
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// ── 环境变量 ──
	v.SetEnvPrefix("WARGANUSA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
		// 配置文件不存在时仅依赖默认值和环境变量
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	// ── 关键配置校验 ──
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate 校验关键配置项
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("配置校验失败: auth.jwt_secret 不能为空")
	}
	if len(c.Auth.JWTSecret) < 16 {
		return fmt.Errorf("配置校验失败: auth.jwt_secret 长度不能少于 16 字符")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("配置校验失败: server.port 必须在 1-65535 之间")
	}
	if c.Feature.GeofenceEnabled && c.Feature.GeofenceRadiusM <= 0 {
		return fmt.Errorf("配置校验失败: feature.geofence_radius_m 必须大于 0")
	}
	return nil
}
