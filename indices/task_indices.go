package indices

import (
	"fmt"

	"flowform/client/es"
	"flowform/domain/process"
	"flowform/session"

	"github.com/fundwit/go-commons/types"
	"github.com/sirupsen/logrus"
)

var (
	TaskIndexName = "tasks"
)

type TaskDocument struct {
	process.TaskSnapshot
}

type BatchActionError map[types.ID]error

func (e BatchActionError) Error() string {
	return fmt.Sprintf("%v", map[types.ID]error(e))
}

func IndexTasks(tasks []process.TaskSnapshot, s *session.Session) error {
	docs := make([]TaskDocument, 0, len(tasks))
	for _, task := range tasks {
		docs = append(docs, TaskDocument{TaskSnapshot: task})
	}

	if err := saveTaskDocuments(docs, s); err != nil {
		return err
	}
	return nil
}

func saveTaskDocuments(taskDocs []TaskDocument, s *session.Session) BatchActionError {
	errs := BatchActionError{}

	for _, doc := range taskDocs {
		if err := es.IndexFunc(TaskIndexName, doc.ID, doc, s); err != nil {
			errs[doc.ID] = err
			logrus.Warnf("index task %d %s %s\n", doc.ID, doc.Name, err)
		} else {
			logrus.Infof("index task %d %s successfully\n", doc.ID, doc.Name)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}
