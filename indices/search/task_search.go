package search

import (
	"encoding/json"
	"fmt"
	"strings"

	"flowform/client/es"
	"flowform/domain/process"
	"flowform/domain/state"
	"flowform/indices"
	"flowform/session"

	"github.com/fundwit/go-commons/types"
)

type TaskSearchQuery struct {
	Name            string `form:"name"`
	InstanceID      string `form:"instanceId"`
	AssignedTo      string `form:"assignedTo"`
	Status          string `form:"status"`
	IncludeArchived bool   `form:"includeArchived"`
}

var (
	SearchTasksFunc = SearchTasks
)

func SearchTasks(q TaskSearchQuery, s *session.Session) ([]process.TaskSnapshot, error) {
	filters := make([]es.H, 0, 5)

	if q.Name != "" {
		filters = append(filters, es.H{"match": es.H{"name": es.H{"query": q.Name, "operator": "AND"}}})
	}
	if q.InstanceID != "" {
		instanceId, err := types.ParseID(q.InstanceID)
		if err != nil {
			return nil, err
		}
		filters = append(filters, es.H{"term": es.H{"workflowInstanceId": instanceId}})
	}
	if q.AssignedTo != "" {
		userId, err := types.ParseID(q.AssignedTo)
		if err != nil {
			return nil, err
		}
		filters = append(filters, es.H{"term": es.H{"assignedToUserId": userId}})
	}
	if !q.IncludeArchived {
		filters = append(filters, es.H{"term": es.H{"instanceArchived": false}})
	}

	sorts := make([]es.H, 0, 1)
	sorts = append(sorts, es.H{"dueDate": es.H{"order": "asc"}})

	root := es.H{"bool": es.H{"filter": filters}}
	r, err := es.SearchFunc(indices.TaskIndexName, es.H{"size": 10000, "query": root, "sort": sorts}, s)
	if err != nil {
		return nil, err
	}

	snapshots := make([]process.TaskSnapshot, 0, len(r.Hits.Hits))
	now := types.CurrentTimestamp()
	for _, hit := range r.Hits.Hits {
		snapshot := process.TaskSnapshot{}
		if err := json.NewDecoder(strings.NewReader(string(hit.Source))).Decode(&snapshot); err != nil {
			return nil, fmt.Errorf(string(hit.Source))
		}
		// Overdue is never indexed, it is resolved per read
		snapshot.Status = state.ResolveTaskStatus(snapshot.Status, snapshot.DueDate, now)
		if q.Status != "" && string(snapshot.Status) != q.Status {
			continue
		}
		snapshots = append(snapshots, snapshot)
	}
	return snapshots, nil
}
