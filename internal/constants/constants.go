package constants

// 核销证书状态常量
const (
	CertStatusNew       = "new"
	CertStatusAssigned  = "assigned"
	CertStatusPending   = "pending"
	CertStatusPreparing = "preparing"
	CertStatusReady     = "ready"
	CertStatusActive    = "active"
	CertStatusPickedUp  = "picked_up"
	CertStatusRedeemed  = "redeemed"
	CertStatusCancelled = "cancelled"
	CertStatusExpired   = "expired"
)

// 证书终态集合（按成功/失败分组；展示层分组不回写存储）
var (
	CertSuccessTerminalStatuses = []string{CertStatusPickedUp, CertStatusRedeemed}
	CertFailureTerminalStatuses = []string{CertStatusCancelled, CertStatusExpired}
	CertTerminalStatuses        = []string{CertStatusPickedUp, CertStatusRedeemed, CertStatusCancelled, CertStatusExpired}
)

// 证书流程形态常量（部署级选择，签发后固定）
const (
	WorkflowPrep   = "prep"
	WorkflowDirect = "direct"
)

// 证书编号格式常量
const (
	CertNumberPrefix       = "VLT"
	CertNumberDateLayout   = "20060102"
	CertNumberSuffixLength = 5
)

// 操作角色常量
const (
	ActorRoleStaff  = "staff"
	ActorRoleAdmin  = "admin"
	ActorRoleSystem = "system"
)

// 审计动作常量
const (
	AuditActionIssued          = "issued"
	AuditActionAssigned        = "assigned"
	AuditActionStatusChanged   = "status_changed"
	AuditActionRedeemed        = "redeemed"
	AuditActionVoided          = "voided"
	AuditActionAutoCancelled   = "auto_cancelled"
	AuditActionInventoryReturn = "inventory_returned"
	AuditActionNotesUpdated    = "notes_updated"
)

// 队列常量
const (
	QueueDefault          = "default"
	TaskCertExpireSweep   = "cert:expire_sweep"
	TaskCertTimeoutCancel = "cert:timeout_cancel"
)

// 缓存默认配置常量
const (
	RedisPrefixDefault = "vp"
)

// 变更事件通道常量
const (
	ChangeEventChannel = "cert_changes"
)

// 缓存键常量
const (
	CacheKeyActiveLocations = "locations:active"
)
