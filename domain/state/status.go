package state

import (
	"github.com/fundwit/go-commons/types"
)

type TaskStatus string

const (
	TaskPending    TaskStatus = "Pending"
	TaskInProgress TaskStatus = "InProgress"
	TaskCompleted  TaskStatus = "Completed"
	TaskOverdue    TaskStatus = "Overdue"
	TaskSkipped    TaskStatus = "Skipped"
)

type InstanceStatus string

const (
	InstanceActive    InstanceStatus = "Active"
	InstanceCompleted InstanceStatus = "Completed"
	InstanceCancelled InstanceStatus = "Cancelled"
)

type Transition struct {
	Name string     `json:"name"`
	From TaskStatus `json:"from"`
	To   TaskStatus `json:"to"`
}

// TaskStatusMachine is the linear lifecycle of a task. Overdue is a
// read-time presentation of Pending/InProgress, never a stored status.
var TaskStatusMachine = StatusMachine{
	Statuses: []TaskStatus{TaskPending, TaskInProgress, TaskCompleted, TaskSkipped},
	Transitions: []Transition{
		{Name: "begin", From: TaskPending, To: TaskInProgress},
		{Name: "complete", From: TaskPending, To: TaskCompleted},
		{Name: "complete", From: TaskInProgress, To: TaskCompleted},
		{Name: "skip", From: TaskPending, To: TaskSkipped},
		{Name: "skip", From: TaskInProgress, To: TaskSkipped},
	},
}

type StatusMachine struct {
	Statuses    []TaskStatus `json:"statuses"`
	Transitions []Transition `json:"transitions"`
}

func (sm *StatusMachine) HasStatus(status TaskStatus) bool {
	for _, s := range sm.Statuses {
		if s == status {
			return true
		}
	}
	return false
}

func (sm *StatusMachine) AvailableTransitions(from TaskStatus, to TaskStatus) []Transition {
	r := []Transition{}
	for _, transition := range sm.Transitions {
		if (from == "" || from == transition.From) && (to == "" || to == transition.To) {
			r = append(r, transition)
		}
	}
	return r
}

func (sm *StatusMachine) CanTransit(from, to TaskStatus) bool {
	return len(sm.AvailableTransitions(from, to)) > 0
}

// IsTerminal reports whether no transition leaves the status.
func (sm *StatusMachine) IsTerminal(status TaskStatus) bool {
	return len(sm.AvailableTransitions(status, "")) == 0
}

// ResolveTaskStatus computes the displayed status of a stored one: a not yet
// finished task past its due date reads as Overdue.
func ResolveTaskStatus(stored TaskStatus, dueDate types.Timestamp, now types.Timestamp) TaskStatus {
	if stored != TaskPending && stored != TaskInProgress {
		return stored
	}
	if !dueDate.IsZero() && dueDate.Time().Before(now.Time()) {
		return TaskOverdue
	}
	return stored
}
