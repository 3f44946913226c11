package account

import (
	"errors"
	"os"

	"flowform/authority"
	"flowform/persistence"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
)

// DefaultSecurityConfiguration seeds the initial administrator so a fresh
// deployment can be logged into.
func DefaultSecurityConfiguration() error {
	db := persistence.ActiveDataSourceManager.GormDB()

	return db.Transaction(func(tx *gorm.DB) error {
		admin := User{}
		err := tx.Model(&User{}).Where(&User{ID: 1}).First(&admin).Error
		if err != nil && errors.Is(err, gorm.ErrRecordNotFound) {
			initialAdminPassword := os.ExpandEnv("${INITIAL_ADMIN_PASSWORD}")
			if initialAdminPassword == "" {
				initialAdminPassword = "admin123"
			}
			now := types.CurrentTimestamp()
			return tx.Save(&User{ID: 1, Name: "admin", Nickname: "Administrator",
				Secret: HashSha256(initialAdminPassword), Role: authority.RoleAdministrator,
				CreateTime: now, UpdateTime: now}).Error
		}
		return err
	})
}
