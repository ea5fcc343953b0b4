package services

import (
	"fmt"

	"gorm.io/gorm"
)

// Soft delete is the only delete in this system. The gorm DeletedAt column
// keeps removed rows invisible to every default read and every aggregation
// query; nothing in the recompute path special-cases deletion because it
// simply never receives deleted records. The helpers below are the single
// place that touches deleted_at/deleted_by directly.

// softDelete marks a record deleted and records who removed it.
func softDelete(db *gorm.DB, model interface{}, id, userID uint) error {
	return db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(model).Where("id = ?", id).Update("deleted_by", userID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("id %d: %w", id, ErrNotFound)
		}
		return tx.Delete(model, id).Error
	})
}

// restoreDeleted clears the soft-delete marker. The only code path allowed
// to read past the delete filter besides ListDeleted.
func restoreDeleted(db *gorm.DB, model interface{}, id uint) error {
	res := db.Unscoped().Model(model).
		Where("id = ? AND deleted_at IS NOT NULL", id).
		Updates(map[string]interface{}{"deleted_at": nil, "deleted_by": nil})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("id %d: %w", id, ErrNotFound)
	}
	return nil
}
