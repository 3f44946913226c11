package table

import (
	"flowform/domain/attachment"
	"flowform/domain/field"
	"flowform/domain/forms"
	"flowform/idgen"
	"flowform/persistence"
	"flowform/session"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
	"github.com/sony/sonyflake"
)

var (
	entryIdWorker = sonyflake.NewSonyflake(sonyflake.Settings{})

	QueryEntriesFunc = QueryEntries
	DetailEntryFunc  = DetailEntry
	CreateEntryFunc  = CreateEntry
	UpdateEntryFunc  = UpdateEntry
	ArchiveEntryFunc = ArchiveEntry
	EntryFileURLFunc = EntryFileURL
)

type EntryQuery struct {
	IncludeArchived bool `json:"includeArchived" form:"includeArchived"`
}

func QueryEntries(tableId types.ID, q EntryQuery, s *session.Session) ([]TableEntry, error) {
	db := persistence.ActiveDataSourceManager.GormDB(s.Context)

	t := DynamicTable{ID: tableId}
	if err := db.Where(&t).First(&t).Error; err != nil {
		return nil, err
	}

	records := []TableEntry{}
	query := db.Where(TableEntry{TableID: tableId}).Order("create_time ASC")
	if !q.IncludeArchived {
		query = query.Where("is_archived = ?", false)
	}
	if err := query.Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func DetailEntry(id types.ID, s *session.Session) (*TableEntry, error) {
	record := TableEntry{ID: id}
	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	if err := db.Where(&record).First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func CreateEntry(tableId types.ID, values map[string]interface{}, s *session.Session) (*TableEntry, error) {
	db := persistence.ActiveDataSourceManager.GormDB(s.Context)

	detail, err := DetailTableFunc(tableId, s)
	if err != nil {
		return nil, err
	}

	validated, err := forms.BuildValidator(detail.Fields).Validate(values)
	if err != nil {
		return nil, err
	}

	now := types.CurrentTimestamp()
	record := TableEntry{ID: idgen.NextID(entryIdWorker), TableID: tableId, CreateTime: now, UpdateTime: now}

	scope := attachment.Scope{Kind: attachment.ScopeKindTableEntry, ID: record.ID}
	data, err := attachment.ReconcileDocumentValuesFunc(scope, detail.Fields, validated, nil, s)
	if err != nil {
		return nil, err
	}
	record.Data = data

	if err := db.Create(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func UpdateEntry(id types.ID, values map[string]interface{}, s *session.Session) (*TableEntry, error) {
	db := persistence.ActiveDataSourceManager.GormDB(s.Context)

	record := TableEntry{ID: id}
	if err := db.Where(&record).First(&record).Error; err != nil {
		return nil, err
	}
	detail, err := DetailTableFunc(record.TableID, s)
	if err != nil {
		return nil, err
	}

	// untouched document fields keep their stored path through validation
	merged := mergeStoredDocuments(detail.Fields, values, record.Data)

	validated, err := forms.BuildValidator(detail.Fields).Validate(merged)
	if err != nil {
		return nil, err
	}

	scope := attachment.Scope{Kind: attachment.ScopeKindTableEntry, ID: record.ID}
	data, err := attachment.ReconcileDocumentValuesFunc(scope, detail.Fields, validated, record.Data, s)
	if err != nil {
		return nil, err
	}

	record.Data = data
	record.UpdateTime = types.CurrentTimestamp()
	if err := db.Model(&TableEntry{}).Where(&TableEntry{ID: id}).
		Update(map[string]interface{}{"data": record.Data, "update_time": record.UpdateTime}).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func ArchiveEntry(id types.ID, archived bool, s *session.Session) error {
	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	return db.Transaction(func(tx *gorm.DB) error {
		record := TableEntry{ID: id}
		if err := tx.Where(&record).First(&record).Error; err != nil {
			return err
		}
		return tx.Model(&record).
			Update(map[string]interface{}{"is_archived": archived, "update_time": types.CurrentTimestamp()}).Error
	})
}

// EntryFileURL resolves the stored document of an entry field to a fetch URL.
func EntryFileURL(id types.ID, fieldName string, s *session.Session) (string, error) {
	record, err := DetailEntryFunc(id, s)
	if err != nil {
		return "", err
	}
	path, _ := record.Data[fieldName].(string)
	return attachment.DownloadURLFunc(path, s)
}

func mergeStoredDocuments(fields []field.DynamicField, values map[string]interface{},
	stored RowData) map[string]interface{} {

	merged := map[string]interface{}{}
	for k, v := range values {
		merged[k] = v
	}
	for _, f := range fields {
		if f.Type != field.TypeDocument {
			continue
		}
		if _, present := merged[f.Name]; !present {
			if path, ok := stored[f.Name].(string); ok && path != "" {
				merged[f.Name] = path
			}
		}
	}
	return merged
}
