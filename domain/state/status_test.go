package state_test

import (
	"time"

	"flowform/domain/state"

	"github.com/fundwit/go-commons/types"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("TaskStatusMachine", func() {
	Describe("AvailableTransitions", func() {
		It("should return transitions leaving a status", func() {
			Expect(state.TaskStatusMachine.AvailableTransitions(state.TaskPending, "")).To(Equal([]state.Transition{
				{Name: "begin", From: state.TaskPending, To: state.TaskInProgress},
				{Name: "complete", From: state.TaskPending, To: state.TaskCompleted},
				{Name: "skip", From: state.TaskPending, To: state.TaskSkipped},
			}))
			Expect(state.TaskStatusMachine.AvailableTransitions(state.TaskInProgress, "")).To(Equal([]state.Transition{
				{Name: "complete", From: state.TaskInProgress, To: state.TaskCompleted},
				{Name: "skip", From: state.TaskInProgress, To: state.TaskSkipped},
			}))
		})
	})

	Describe("CanTransit", func() {
		It("should permit the linear lifecycle only", func() {
			Expect(state.TaskStatusMachine.CanTransit(state.TaskPending, state.TaskInProgress)).To(BeTrue())
			Expect(state.TaskStatusMachine.CanTransit(state.TaskPending, state.TaskCompleted)).To(BeTrue())
			Expect(state.TaskStatusMachine.CanTransit(state.TaskInProgress, state.TaskCompleted)).To(BeTrue())
			Expect(state.TaskStatusMachine.CanTransit(state.TaskInProgress, state.TaskSkipped)).To(BeTrue())

			Expect(state.TaskStatusMachine.CanTransit(state.TaskCompleted, state.TaskInProgress)).To(BeFalse())
			Expect(state.TaskStatusMachine.CanTransit(state.TaskCompleted, state.TaskPending)).To(BeFalse())
			Expect(state.TaskStatusMachine.CanTransit(state.TaskSkipped, state.TaskCompleted)).To(BeFalse())
			Expect(state.TaskStatusMachine.CanTransit(state.TaskInProgress, state.TaskPending)).To(BeFalse())
		})
	})

	Describe("IsTerminal", func() {
		It("should mark Completed and Skipped as terminal", func() {
			Expect(state.TaskStatusMachine.IsTerminal(state.TaskCompleted)).To(BeTrue())
			Expect(state.TaskStatusMachine.IsTerminal(state.TaskSkipped)).To(BeTrue())
			Expect(state.TaskStatusMachine.IsTerminal(state.TaskPending)).To(BeFalse())
			Expect(state.TaskStatusMachine.IsTerminal(state.TaskInProgress)).To(BeFalse())
		})
	})

	Describe("HasStatus", func() {
		It("should only accept stored statuses", func() {
			Expect(state.TaskStatusMachine.HasStatus(state.TaskPending)).To(BeTrue())
			Expect(state.TaskStatusMachine.HasStatus(state.TaskOverdue)).To(BeFalse())
		})
	})
})

var _ = Describe("ResolveTaskStatus", func() {
	var (
		now    types.Timestamp
		past   types.Timestamp
		future types.Timestamp
		noDue  types.Timestamp
	)

	BeforeEach(func() {
		now = types.TimestampOfDate(2021, 6, 15, 12, 0, 0, 0, time.Local)
		past = types.TimestampOfDate(2021, 6, 14, 12, 0, 0, 0, time.Local)
		future = types.TimestampOfDate(2021, 6, 16, 12, 0, 0, 0, time.Local)
		noDue = types.Timestamp{}
	})

	It("should read unfinished tasks past their due date as Overdue", func() {
		Expect(state.ResolveTaskStatus(state.TaskPending, past, now)).To(Equal(state.TaskOverdue))
		Expect(state.ResolveTaskStatus(state.TaskInProgress, past, now)).To(Equal(state.TaskOverdue))
	})

	It("should keep unfinished tasks before their due date unchanged", func() {
		Expect(state.ResolveTaskStatus(state.TaskPending, future, now)).To(Equal(state.TaskPending))
		Expect(state.ResolveTaskStatus(state.TaskInProgress, future, now)).To(Equal(state.TaskInProgress))
	})

	It("should not resolve tasks without a due date", func() {
		Expect(state.ResolveTaskStatus(state.TaskPending, noDue, now)).To(Equal(state.TaskPending))
		Expect(state.ResolveTaskStatus(state.TaskInProgress, noDue, now)).To(Equal(state.TaskInProgress))
	})

	It("should never resolve terminal statuses", func() {
		Expect(state.ResolveTaskStatus(state.TaskCompleted, past, now)).To(Equal(state.TaskCompleted))
		Expect(state.ResolveTaskStatus(state.TaskSkipped, past, now)).To(Equal(state.TaskSkipped))
	})
})
