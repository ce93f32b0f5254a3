package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/mrexo321/warga-nusa-sub000/config"
)

// Storage 文件存储抽象（巡逻照片、检查点二维码）
// 写入成功后返回可对外访问的 URL；Delete 用于写行失败后的补偿清理。
type Storage interface {
	Save(ctx context.Context, name string, r io.Reader) (string, error)
	Delete(ctx context.Context, name string) error
}

// Local 本地磁盘存储实现
type Local struct {
	baseDir string
	baseURL string
	logger  *zap.Logger
}

// NewLocal 创建本地存储，确保根目录存在
func NewLocal(cfg *config.StorageConfig, logger *zap.Logger) (*Local, error) {
	if err := os.MkdirAll(cfg.BaseDir, 0o755); err != nil {
		return nil, fmt.Errorf("创建存储目录失败: %w", err)
	}
	return &Local{
		baseDir: cfg.BaseDir,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		logger:  logger,
	}, nil
}

// Save 将数据写入 baseDir/name 并返回访问 URL
// name 允许包含子目录（如 "qr/patrol/ABC123.png"）
func (l *Local) Save(_ context.Context, name string, r io.Reader) (string, error) {
	clean, err := l.cleanName(name)
	if err != nil {
		return "", err
	}

	dst := filepath.Join(l.baseDir, filepath.FromSlash(clean))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("创建子目录失败: %w", err)
	}

	f, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("创建文件失败: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		os.Remove(dst) // 写入半途失败不留残件
		return "", fmt.Errorf("写入文件失败: %w", err)
	}

	return l.baseURL + "/" + clean, nil
}

// Delete 删除 baseDir/name；文件不存在视为成功
func (l *Local) Delete(_ context.Context, name string) error {
	clean, err := l.cleanName(name)
	if err != nil {
		return err
	}
	err = os.Remove(filepath.Join(l.baseDir, filepath.FromSlash(clean)))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("删除文件失败: %w", err)
	}
	return nil
}

// cleanName 归一化并拒绝越出根目录的路径
func (l *Local) cleanName(name string) (string, error) {
	clean := path.Clean("/" + name)
	if clean == "/" {
		return "", fmt.Errorf("非法文件名: %q", name)
	}
	clean = strings.TrimPrefix(clean, "/")
	if strings.HasPrefix(clean, "..") {
		return "", fmt.Errorf("非法文件名: %q", name)
	}
	return clean, nil
}
