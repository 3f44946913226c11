package attachment

import (
	"bytes"
	"fmt"
	"path"

	"flowform/bizerror"
	"flowform/client/s3"
	"flowform/domain/field"
	"flowform/session"

	"github.com/fundwit/go-commons/types"
)

// Scope names the entity a document value belongs to; it namespaces the
// storage paths of that entity's files.
type Scope struct {
	Kind string
	ID   types.ID
}

const (
	ScopeKindTableEntry = "table-entries"
	ScopeKindTask       = "tasks"
)

var (
	ReconcileDocumentValuesFunc = ReconcileDocumentValues
	DownloadURLFunc             = DownloadURL
)

func ObjectPath(scope Scope, fieldName, fileName string) string {
	return path.Join("attachments", scope.Kind, scope.ID.String(), fieldName, fileName)
}

// ReconcileDocumentValues settles the document fields of a validated value
// set against the currently stored one. Fresh payloads are uploaded (the
// superseded object is deleted first), explicit nils delete, unchanged path
// strings pass through, and absent keys preserve the stored path. The
// returned map carries storage paths only, never binary payloads.
func ReconcileDocumentValues(scope Scope, fields []field.DynamicField, newValues map[string]interface{},
	oldValues map[string]interface{}, s *session.Session) (map[string]interface{}, error) {

	result := map[string]interface{}{}
	for k, v := range newValues {
		result[k] = v
	}

	for _, f := range fields {
		if f.Type != field.TypeDocument {
			continue
		}

		oldPath := storedPath(oldValues[f.Name])
		newValue, present := newValues[f.Name]
		if !present {
			if oldPath != "" {
				result[f.Name] = oldPath
			}
			continue
		}

		switch value := newValue.(type) {
		case nil:
			if oldPath != "" {
				if err := deleteIgnoringAbsent(oldPath, s); err != nil {
					return nil, err
				}
			}
			result[f.Name] = nil
		case string:
			// an already-stored path, kept as-is; empty means cleared
			if value == "" {
				if oldPath != "" {
					if err := deleteIgnoringAbsent(oldPath, s); err != nil {
						return nil, err
					}
				}
				result[f.Name] = nil
				continue
			}
			result[f.Name] = value
		case *FilePayload:
			if value == nil || len(value.Content) == 0 {
				result[f.Name] = nil
				continue
			}
			// delete first so a replaced object is never orphaned
			if oldPath != "" {
				if err := deleteIgnoringAbsent(oldPath, s); err != nil {
					return nil, err
				}
			}
			objectPath := ObjectPath(scope, f.Name, value.FileName)
			if err := s3.PutObjectFunc(objectPath, bytes.NewReader(value.Content), s); err != nil {
				return nil, err
			}
			result[f.Name] = objectPath
		default:
			return nil, fmt.Errorf("field %s: value of type %T is not a document", f.Name, newValue)
		}
	}

	return result, nil
}

// DownloadURL resolves a stored path to a time-bounded fetch URL.
func DownloadURL(storagePath string, s *session.Session) (string, error) {
	if storagePath == "" {
		return "", bizerror.ErrNotFound
	}
	exist, err := s3.IsObjectExistFunc(storagePath, s)
	if err != nil {
		return "", err
	}
	if !exist {
		return "", bizerror.ErrNotFound
	}
	return s3.SignFetchURLFunc(storagePath, s)
}

// deletion of an already-absent object counts as success
func deleteIgnoringAbsent(storagePath string, s *session.Session) error {
	if err := s3.DeleteObjectFunc(storagePath, s); err != nil && !s3.IsNoSuchKey(err) {
		return err
	}
	return nil
}

func storedPath(value interface{}) string {
	if str, ok := value.(string); ok {
		return str
	}
	return ""
}
