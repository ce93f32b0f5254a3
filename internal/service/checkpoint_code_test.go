package service

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"testing"

	"github.com/makiuchi-d/gozxing"
	zxqrcode "github.com/makiuchi-d/gozxing/qrcode"
	"gorm.io/gorm"
)

// ════════════════════════════════════════════════════════════
// 编码签发 issueCode 测试
// ════════════════════════════════════════════════════════════

func TestIssueCode_QRRoundTrip(t *testing.T) {
	store := newMockStorage()

	var issued string
	err := issueCode(context.Background(), store, "patrol", func(code, qrURL string) error {
		issued = code
		return nil
	})
	if err != nil {
		t.Fatalf("issueCode 应成功: %v", err)
	}

	data, ok := store.files["qr/patrol/"+issued+".png"]
	if !ok {
		t.Fatal("二维码图片应已写入存储")
	}

	// 解码生成的二维码，内容应为签发的短码本身
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("二维码 PNG 解码失败: %v", err)
	}
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		t.Fatalf("构建位图失败: %v", err)
	}
	result, err := zxqrcode.NewQRCodeReader().Decode(bmp, nil)
	if err != nil {
		t.Fatalf("二维码识别失败: %v", err)
	}
	if result.GetText() != issued {
		t.Errorf("二维码内容期望 %q，实际 %q", issued, result.GetText())
	}
}

func TestIssueCode_ExhaustsAfterRepeatedCollisions(t *testing.T) {
	store := newMockStorage()

	attempts := 0
	err := issueCode(context.Background(), store, "patrol", func(code, qrURL string) error {
		attempts++
		return gorm.ErrDuplicatedKey
	})
	if !errors.Is(err, ErrCodeIssueExhausted) {
		t.Errorf("持续撞码期望 ErrCodeIssueExhausted，实际: %v", err)
	}
	if attempts != issueMaxAttempts {
		t.Errorf("期望重试 %d 次，实际=%d", issueMaxAttempts, attempts)
	}
	// 所有被拒绝的二维码都应被清理
	if len(store.files) != 0 {
		t.Errorf("撞码清理后不应残留文件，实际=%d", len(store.files))
	}
}

func TestIssueCode_CleansUpOnPersistError(t *testing.T) {
	store := newMockStorage()

	wantErr := errors.New("db down")
	err := issueCode(context.Background(), store, "course", func(code, qrURL string) error {
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Errorf("落库失败应原样返回，实际: %v", err)
	}
	if len(store.files) != 0 {
		t.Error("落库失败后二维码图片应已清理")
	}
}
