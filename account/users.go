package account

import (
	"crypto/sha256"
	"encoding/hex"

	"flowform/authority"
	"flowform/bizerror"
	"flowform/idgen"
	"flowform/persistence"
	"flowform/session"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
	"github.com/sony/sonyflake"
)

var (
	userIdWorker = sonyflake.NewSonyflake(sonyflake.Settings{})

	QueryUsersFunc            = QueryUsers
	CreateUserFunc            = CreateUser
	UpdateUserFunc            = UpdateUser
	ArchiveUserFunc           = ArchiveUser
	UpdateBasicAuthSecretFunc = UpdateBasicAuthSecret
)

func HashSha256(raw string) string {
	h := sha256.New()
	h.Write([]byte(raw))
	sum := h.Sum(nil)
	return hex.EncodeToString(sum)
}

func QueryUsers(s *session.Session) ([]UserInfo, error) {
	users := []UserInfo{}
	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	if err := db.Model(&User{}).Order("name ASC").Scan(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func CreateUser(c *UserCreation, s *session.Session) (*UserInfo, error) {
	if !s.Identity.Role.IsAdministrator() {
		return nil, bizerror.ErrForbidden
	}
	role, ok := authority.ParseRole(c.Role)
	if !ok {
		return nil, &bizerror.ErrBadParam{}
	}

	now := types.CurrentTimestamp()
	user := User{ID: idgen.NextID(userIdWorker), Name: c.Name, Email: c.Email, Nickname: c.Nickname,
		Secret: HashSha256(c.Secret), Role: role, CreateTime: now, UpdateTime: now}
	if err := persistence.ActiveDataSourceManager.GormDB(s.Context).Create(&user).Error; err != nil {
		return nil, err
	}
	return &UserInfo{ID: user.ID, Name: user.Name, Email: user.Email, Nickname: user.Nickname, Role: user.Role}, nil
}

func UpdateUser(userId types.ID, c *UserUpdation, s *session.Session) error {
	if !s.Identity.Role.IsAdministrator() && userId != s.Identity.ID {
		return bizerror.ErrForbidden
	}

	return persistence.ActiveDataSourceManager.GormDB(s.Context).Transaction(func(tx *gorm.DB) error {
		user := User{ID: userId}
		if err := tx.Where(&user).First(&user).Error; err != nil {
			return err
		}

		changes := map[string]interface{}{"email": c.Email, "nickname": c.Nickname, "update_time": types.CurrentTimestamp()}
		if c.Role != "" {
			// only an administrator may change a role
			if !s.Identity.Role.IsAdministrator() {
				return bizerror.ErrForbidden
			}
			role, ok := authority.ParseRole(c.Role)
			if !ok {
				return &bizerror.ErrBadParam{}
			}
			changes["role"] = role
		}
		return tx.Model(&user).Update(changes).Error
	})
}

func ArchiveUser(userId types.ID, archived bool, s *session.Session) error {
	if !s.Identity.Role.IsAdministrator() {
		return bizerror.ErrForbidden
	}

	return persistence.ActiveDataSourceManager.GormDB(s.Context).Transaction(func(tx *gorm.DB) error {
		user := User{ID: userId}
		if err := tx.Where(&user).First(&user).Error; err != nil {
			return err
		}
		return tx.Model(&user).
			Update(map[string]interface{}{"is_archived": archived, "update_time": types.CurrentTimestamp()}).Error
	})
}

func UpdateBasicAuthSecret(u *BasicAuthUpdating, s *session.Session) error {
	db := persistence.ActiveDataSourceManager.GormDB(s.Context)

	user := User{}
	if err := db.Model(&User{}).Where(&User{ID: s.Identity.ID, Secret: HashSha256(u.OriginalSecret)}).
		Scan(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return bizerror.ErrInvalidPassword
		}
		return err
	}

	return db.Model(&User{}).Where(&User{ID: s.Identity.ID, Secret: HashSha256(u.OriginalSecret)}).
		Update(&User{Secret: HashSha256(u.NewSecret), UpdateTime: types.CurrentTimestamp()}).Error
}

func QueryAccountNames(ids []types.ID, s *session.Session) (map[types.ID]string, error) {
	if len(ids) == 0 {
		return map[types.ID]string{}, nil
	}
	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	var records []UserInfo
	if err := db.Model(&User{}).Where("id IN (?)", ids).Scan(&records).Error; err != nil {
		return nil, err
	}
	result := map[types.ID]string{}
	for _, r := range records {
		u := r
		result[r.ID] = u.DisplayName()
	}
	return result, nil
}
