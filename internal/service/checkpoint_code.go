package service

import (
	"bytes"
	"context"
	"errors"
	"path"

	qrcode "github.com/skip2/go-qrcode"
	"gorm.io/gorm"

	"github.com/mrexo321/warga-nusa-sub000/pkg/shortcode"
	"github.com/mrexo321/warga-nusa-sub000/pkg/storage"
)

// ── 检查点编码签发 ──
//
// 巡逻检查点与课程会议共用此签发路径，命名空间彼此独立。
// 短码可人工输入，碰撞概率非零：唯一性由数据库唯一约束裁决，
// 撞约束则换码重试（乐观策略，签发不加锁不阻塞）。

var (
	ErrCodeNotFound       = errors.New("编码不存在")
	ErrCodeIssueExhausted = errors.New("编码签发重试次数耗尽")
)

const (
	issueMaxAttempts = 5
	qrImageSize      = 256
)

// issueCode 生成唯一短码并渲染二维码，然后调用 persist 落库。
// persist 返回 gorm.ErrDuplicatedKey 表示短码撞上唯一约束，
// 此时清理已写入的二维码图片并换码重试。
func issueCode(ctx context.Context, store storage.Storage, namespace string, persist func(code, qrURL string) error) error {
	for attempt := 0; attempt < issueMaxAttempts; attempt++ {
		code, err := shortcode.New(shortcode.DefaultLength)
		if err != nil {
			return err
		}

		png, err := qrcode.Encode(code, qrcode.Medium, qrImageSize)
		if err != nil {
			return err
		}

		qrName := path.Join("qr", namespace, code+".png")
		qrURL, err := store.Save(ctx, qrName, bytes.NewReader(png))
		if err != nil {
			return err
		}

		err = persist(code, qrURL)
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			_ = store.Delete(ctx, qrName)
			continue
		}
		if err != nil {
			_ = store.Delete(ctx, qrName)
		}
		return err
	}
	return ErrCodeIssueExhausted
}
