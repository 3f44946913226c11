package field

import (
	"flowform/bizerror"
	"flowform/idgen"
	"flowform/persistence"
	"flowform/session"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
	"github.com/sony/sonyflake"
)

var (
	fieldIdWorker = sonyflake.NewSonyflake(sonyflake.Settings{})

	QueryFieldsFunc  = QueryFields
	DetailFieldFunc  = DetailField
	CreateFieldFunc  = CreateField
	UpdateFieldFunc  = UpdateField
	ArchiveFieldFunc = ArchiveField
)

type FieldCreation struct {
	Name  string    `json:"name" binding:"required,lte=64"`
	Label string    `json:"label" binding:"required,lte=255"`
	Type  FieldType `json:"type" binding:"required,oneof=text textarea number date time datetime document dropdown checkbox radio boolean"`

	Category        string          `json:"category"`
	ValidationRules ValidationRules `json:"validationRules"`
	IsRequired      bool            `json:"isRequired"`
	DefaultValue    string          `json:"defaultValue"`
	Options         FieldOptions    `json:"options"`
}

type FieldUpdating struct {
	Label string `json:"label" binding:"required,lte=255"`

	Category        string          `json:"category"`
	ValidationRules ValidationRules `json:"validationRules"`
	IsRequired      bool            `json:"isRequired"`
	DefaultValue    string          `json:"defaultValue"`
	Options         FieldOptions    `json:"options"`
}

type FieldQuery struct {
	Category        string `json:"category" form:"category"`
	IncludeArchived bool   `json:"includeArchived" form:"includeArchived"`
}

func QueryFields(q FieldQuery, s *session.Session) ([]DynamicField, error) {
	records := []DynamicField{}
	db := persistence.ActiveDataSourceManager.GormDB(s.Context)

	query := db.Order("name ASC")
	if q.Category != "" {
		query = query.Where("category = ?", q.Category)
	}
	if !q.IncludeArchived {
		query = query.Where("is_archived = ?", false)
	}
	if err := query.Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func DetailField(id types.ID, s *session.Session) (*DynamicField, error) {
	record := DynamicField{ID: id}
	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	if err := db.Where(&record).First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func CreateField(c *FieldCreation, s *session.Session) (*DynamicField, error) {
	if !s.Identity.Role.IsAdministrator() {
		return nil, bizerror.ErrForbidden
	}

	now := types.CurrentTimestamp()
	record := DynamicField{
		ID:    idgen.NextID(fieldIdWorker),
		Name:  c.Name,
		Label: c.Label,
		Type:  c.Type,

		Category:        c.Category,
		ValidationRules: c.ValidationRules,
		IsRequired:      c.IsRequired,
		DefaultValue:    c.DefaultValue,
		Options:         c.Options,

		CreateTime: now,
		UpdateTime: now,
	}
	if err := record.Validate(); err != nil {
		return nil, err
	}

	if err := persistence.ActiveDataSourceManager.GormDB(s.Context).Create(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func UpdateField(id types.ID, u *FieldUpdating, s *session.Session) (*DynamicField, error) {
	if !s.Identity.Role.IsAdministrator() {
		return nil, bizerror.ErrForbidden
	}

	record := DynamicField{}
	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where(&DynamicField{ID: id}).First(&record).Error; err != nil {
			return err
		}

		record.Label = u.Label
		record.Category = u.Category
		record.ValidationRules = u.ValidationRules
		record.IsRequired = u.IsRequired
		record.DefaultValue = u.DefaultValue
		record.Options = u.Options
		record.UpdateTime = types.CurrentTimestamp()
		if err := record.Validate(); err != nil {
			return err
		}

		return tx.Model(&DynamicField{}).Where(&DynamicField{ID: id}).Update(map[string]interface{}{
			"label":            record.Label,
			"category":         record.Category,
			"validation_rules": record.ValidationRules,
			"is_required":      record.IsRequired,
			"default_value":    record.DefaultValue,
			"options":          record.Options,
			"update_time":      record.UpdateTime,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// ArchiveField flips the soft-delete flag only: tables referencing the field
// keep it, the field just stops appearing in composition listings.
func ArchiveField(id types.ID, archived bool, s *session.Session) error {
	if !s.Identity.Role.IsAdministrator() {
		return bizerror.ErrForbidden
	}

	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	return db.Transaction(func(tx *gorm.DB) error {
		record := DynamicField{ID: id}
		if err := tx.Where(&record).First(&record).Error; err != nil {
			return err
		}
		return tx.Model(&record).
			Update(map[string]interface{}{"is_archived": archived, "update_time": types.CurrentTimestamp()}).Error
	})
}

// LoadFieldsByIds resolves field definitions preserving the requested order.
// Archived fields resolve too, for historical display.
func LoadFieldsByIds(ids []types.ID, tx *gorm.DB) ([]DynamicField, error) {
	if len(ids) == 0 {
		return []DynamicField{}, nil
	}

	records := []DynamicField{}
	if err := tx.Where("id IN (?)", []types.ID(ids)).Find(&records).Error; err != nil {
		return nil, err
	}

	index := map[types.ID]DynamicField{}
	for _, r := range records {
		index[r.ID] = r
	}

	ordered := make([]DynamicField, 0, len(ids))
	for _, id := range ids {
		if r, found := index[id]; found {
			ordered = append(ordered, r)
		}
	}
	return ordered, nil
}
