package service

import (
	"strings"
	"time"

	"github.com/vaultpass/internal/constants"
)

// allowedCertTransitions 证书状态图。
// 备货流程允许从 preparing/ready 回退一步（重新备货会清空 prepared_at），
// 其余边都是前进边；cancelled/expired 可从任意非终态进入。
var allowedCertTransitions = map[string]map[string]bool{
	constants.CertStatusNew: {
		constants.CertStatusAssigned:  true,
		constants.CertStatusCancelled: true,
		constants.CertStatusExpired:   true,
	},
	constants.CertStatusAssigned: {
		constants.CertStatusPending:   true,
		constants.CertStatusCancelled: true,
		constants.CertStatusExpired:   true,
	},
	constants.CertStatusPending: {
		constants.CertStatusPreparing: true,
		constants.CertStatusCancelled: true,
		constants.CertStatusExpired:   true,
	},
	constants.CertStatusPreparing: {
		constants.CertStatusReady:     true,
		constants.CertStatusPending:   true,
		constants.CertStatusCancelled: true,
		constants.CertStatusExpired:   true,
	},
	constants.CertStatusReady: {
		constants.CertStatusPickedUp:  true,
		constants.CertStatusPreparing: true,
		constants.CertStatusCancelled: true,
		constants.CertStatusExpired:   true,
	},
	constants.CertStatusActive: {
		constants.CertStatusRedeemed:  true,
		constants.CertStatusCancelled: true,
		constants.CertStatusExpired:   true,
	},
}

// normalizeCertStatus 容忍大小写与空白差异
func normalizeCertStatus(status string) string {
	return strings.ToLower(strings.TrimSpace(status))
}

// canTransitionCert 判断状态图里是否存在 from→to 的边
func canTransitionCert(from, to string) bool {
	targets, ok := allowedCertTransitions[normalizeCertStatus(from)]
	if !ok {
		return false
	}
	return targets[normalizeCertStatus(to)]
}

// isTerminalCertStatus 判断是否终态
func isTerminalCertStatus(status string) bool {
	normalized := normalizeCertStatus(status)
	for _, s := range constants.CertTerminalStatuses {
		if s == normalized {
			return true
		}
	}
	return false
}

// isSuccessTerminalCertStatus 判断是否成功终态（picked_up / redeemed）
func isSuccessTerminalCertStatus(status string) bool {
	normalized := normalizeCertStatus(status)
	for _, s := range constants.CertSuccessTerminalStatuses {
		if s == normalized {
			return true
		}
	}
	return false
}

// isFailureTerminalCertStatus 判断是否失败终态（cancelled / expired）
func isFailureTerminalCertStatus(status string) bool {
	normalized := normalizeCertStatus(status)
	for _, s := range constants.CertFailureTerminalStatuses {
		if s == normalized {
			return true
		}
	}
	return false
}

// statusTimestampUpdates 返回进入目标状态时要一并写入的时间戳列。
// picked_up 同时盖 picked_up_at 与 redeemed_at（到店取货即视为核销完成）；
// 重新进入 preparing 会清空 prepared_at，进入 ready 时再盖。
func statusTimestampUpdates(target string, now time.Time) map[string]interface{} {
	updates := map[string]interface{}{"updated_at": now}
	switch normalizeCertStatus(target) {
	case constants.CertStatusAssigned:
		updates["admin_assigned_at"] = now
	case constants.CertStatusPreparing:
		updates["prepared_at"] = nil
	case constants.CertStatusReady:
		updates["prepared_at"] = now
	case constants.CertStatusPickedUp:
		updates["picked_up_at"] = now
		updates["redeemed_at"] = now
	case constants.CertStatusRedeemed:
		updates["redeemed_at"] = now
	case constants.CertStatusCancelled, constants.CertStatusExpired:
		updates["cancelled_at"] = now
	}
	return updates
}
