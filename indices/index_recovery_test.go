package indices_test

import (
	"context"
	"testing"

	"flowform/domain/process"
	"flowform/event"
	"flowform/indices"
	"flowform/indices/indexlog"

	"github.com/fundwit/go-commons/types"
	. "github.com/onsi/gomega"
)

func TestRecoverPendingIndexLogs(t *testing.T) {
	RegisterTestingT(t)

	t.Run("pending logs are replayed until nothing is left", func(t *testing.T) {
		stub := installIndexerStub()
		defer stub.restore()
		origLoadPending := indexlog.LoadPendingIndexLogFunc
		defer func() {
			indexlog.LoadPendingIndexLogFunc = origLoadPending
		}()

		snapshot := snapshotOf(100, "kickoff")
		stub.snapshots[100] = &snapshot
		stub.byInstance[55] = []process.TaskSnapshot{snapshotOf(1, "checklist")}

		pending := []indexlog.IndexLogRecord{
			{ID: 9001, IndexLog: indexlog.IndexLog{SourceType: event.SourceTypeTask, SourceId: 100}},
			{ID: 9002, IndexLog: indexlog.IndexLog{SourceType: event.SourceTypeWorkflowInstance, SourceId: 55}},
		}
		indexlog.LoadPendingIndexLogFunc = func(page, size int) ([]indexlog.IndexLogRecord, error) {
			remaining := []indexlog.IndexLogRecord{}
			for _, r := range pending {
				settled := false
				for _, id := range stub.finished {
					if id == r.ID {
						settled = true
						break
					}
				}
				if !settled {
					remaining = append(remaining, r)
				}
			}
			return remaining, nil
		}

		Expect(indices.RecoverPendingIndexLogs(context.Background())).To(BeNil())
		Expect(stub.indexed).To(Equal([]types.ID{100, 1}))
		Expect(stub.finished).To(Equal([]types.ID{9001, 9002}))
	})

	t.Run("a log of an unknown source type is obsoleted instead of retried forever", func(t *testing.T) {
		stub := installIndexerStub()
		defer stub.restore()
		origLoadPending := indexlog.LoadPendingIndexLogFunc
		origObsolete := indexlog.ObsoleteIndexLogFunc
		defer func() {
			indexlog.LoadPendingIndexLogFunc = origLoadPending
			indexlog.ObsoleteIndexLogFunc = origObsolete
		}()

		obsoleted := []types.ID{}
		indexlog.ObsoleteIndexLogFunc = func(id types.ID) error {
			obsoleted = append(obsoleted, id)
			return nil
		}
		calls := 0
		indexlog.LoadPendingIndexLogFunc = func(page, size int) ([]indexlog.IndexLogRecord, error) {
			calls++
			if calls > 1 {
				return nil, nil
			}
			return []indexlog.IndexLogRecord{
				{ID: 9003, IndexLog: indexlog.IndexLog{SourceType: "USER", SourceId: 1}}}, nil
		}

		Expect(indices.RecoverPendingIndexLogs(context.Background())).To(BeNil())
		Expect(obsoleted).To(Equal([]types.ID{9003}))
		Expect(stub.indexed).To(BeEmpty())
	})
}
