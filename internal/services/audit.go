package services

import (
	"encoding/json"
	"time"

	"github.com/towertrack/backend/internal/models"
	"gorm.io/gorm"
)

var auditDB *gorm.DB

// InitAuditLogger sets the database used by the package-level audit
// helpers. Auditing is best-effort; it never fails a request.
func InitAuditLogger(db *gorm.DB) {
	auditDB = db
}

// Audit writes an info-level audit record.
func Audit(module, action string, entityID, userID *uint, extra interface{}) {
	writeAudit("info", module, action, "", entityID, userID, "", extra)
}

// AuditRequest records an HTTP mutation with its request context.
func AuditRequest(module, action, message string, userID *uint, ip string, extra interface{}) {
	writeAudit("info", module, action, message, nil, userID, ip, extra)
}

// AuditWarn writes a warning-level audit record with a message.
func AuditWarn(module, action, message string, entityID, userID *uint) {
	writeAudit("warning", module, action, message, entityID, userID, "", nil)
}

func writeAudit(level, module, action, message string, entityID, userID *uint, ip string, extra interface{}) {
	if auditDB == nil {
		return
	}

	var extraStr string
	if extra != nil {
		if b, err := json.Marshal(extra); err == nil {
			extraStr = string(b)
		}
	}

	auditDB.Create(&models.AuditLog{
		Level:     level,
		Module:    module,
		Action:    action,
		EntityID:  entityID,
		Message:   message,
		UserID:    userID,
		IP:        ip,
		Extra:     extraStr,
		CreatedAt: time.Now(),
	})
}

type AuditLogService struct {
	db *gorm.DB
}

func NewAuditLogService(db *gorm.DB) *AuditLogService {
	return &AuditLogService{db: db}
}

type AuditLogListRequest struct {
	Page      int    `form:"page" binding:"omitempty,min=1"`
	PageSize  int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	Level     string `form:"level"`
	Module    string `form:"module"`
	Action    string `form:"action"`
	StartDate string `form:"start_date"`
	EndDate   string `form:"end_date"`
}

type AuditLogListResponse struct {
	Total    int64             `json:"total"`
	Page     int               `json:"page"`
	PageSize int               `json:"page_size"`
	Items    []models.AuditLog `json:"items"`
}

func (s *AuditLogService) List(req *AuditLogListRequest) (*AuditLogListResponse, error) {
	if req.Page == 0 {
		req.Page = 1
	}
	if req.PageSize == 0 {
		req.PageSize = 20
	}

	var logs []models.AuditLog
	var total int64

	query := s.db.Model(&models.AuditLog{})
	if req.Level != "" {
		query = query.Where("level = ?", req.Level)
	}
	if req.Module != "" {
		query = query.Where("module = ?", req.Module)
	}
	if req.Action != "" {
		query = query.Where("action = ?", req.Action)
	}
	if req.StartDate != "" {
		if t, err := time.Parse("2006-01-02", req.StartDate); err == nil {
			query = query.Where("created_at >= ?", t)
		}
	}
	if req.EndDate != "" {
		if t, err := time.Parse("2006-01-02", req.EndDate); err == nil {
			query = query.Where("created_at < ?", t.Add(24*time.Hour))
		}
	}

	query.Count(&total)

	offset := (req.Page - 1) * req.PageSize
	if err := query.Offset(offset).Limit(req.PageSize).Order("created_at DESC").Find(&logs).Error; err != nil {
		return nil, err
	}

	return &AuditLogListResponse{
		Total:    total,
		Page:     req.Page,
		PageSize: req.PageSize,
		Items:    logs,
	}, nil
}
