package service

import (
	"errors"
	"math"

	"github.com/mrexo321/warga-nusa-sub000/config"
)

// ErrOutOfGeofence 打卡坐标超出检查点地理围栏
var ErrOutOfGeofence = errors.New("打卡位置超出检查点范围")

// GeofenceValidator 可插拔的地理围栏校验器，默认关闭。
// 关闭时调用方提交的坐标原样入库，不做距离校验；
// 坐标缺失（设备拒绝定位）一律放行，记录降级为空坐标。
type GeofenceValidator struct {
	enabled bool
	radiusM float64
}

// NewGeofenceValidator 从功能开关构建校验器
func NewGeofenceValidator(cfg *config.FeatureConfig) *GeofenceValidator {
	return &GeofenceValidator{
		enabled: cfg.GeofenceEnabled,
		radiusM: cfg.GeofenceRadiusM,
	}
}

// Check 校验提交坐标与检查点注册坐标的距离
func (v *GeofenceValidator) Check(cpLat, cpLon float64, lat, lon *float64) error {
	if !v.enabled || lat == nil || lon == nil {
		return nil
	}
	if haversineMeters(cpLat, cpLon, *lat, *lon) > v.radiusM {
		return ErrOutOfGeofence
	}
	return nil
}

const earthRadiusM = 6371000

// haversineMeters 两点球面距离（米）
func haversineMeters(lat1, lon1, lat2, lon2 float64) float64 {
	rad := func(deg float64) float64 { return deg * math.Pi / 180 }

	dLat := rad(lat2 - lat1)
	dLon := rad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rad(lat1))*math.Cos(rad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusM * math.Asin(math.Sqrt(a))
}
