package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// エピック・タスク共通のステータス
type WorkItemStatus int

const (
	StatusToDo       WorkItemStatus = 1
	StatusInProgress WorkItemStatus = 2
	StatusReview     WorkItemStatus = 3
	StatusDone       WorkItemStatus = 4
	StatusCancelled  WorkItemStatus = 5
)

var statusNames = map[WorkItemStatus]string{
	StatusToDo:       "ToDo",
	StatusInProgress: "InProgress",
	StatusReview:     "Review",
	StatusDone:       "Done",
	StatusCancelled:  "Cancelled",
}

func (s WorkItemStatus) Valid() bool {
	_, ok := statusNames[s]
	return ok
}

func (s WorkItemStatus) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "WorkItemStatus(" + strconv.Itoa(int(s)) + ")"
}

// ParseWorkItemStatus は名前か数値の文字列を受け付ける。
func ParseWorkItemStatus(s string) (WorkItemStatus, bool) {
	v, ok := parseEnumText(s, func(name string) (int, bool) {
		for st, n := range statusNames {
			if strings.EqualFold(n, name) {
				return int(st), true
			}
		}
		return 0, false
	})
	st := WorkItemStatus(v)
	return st, ok && st.Valid()
}

func (s WorkItemStatus) MarshalJSON() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid status: %d", int(s))
	}
	return json.Marshal(s.String())
}

func (s *WorkItemStatus) UnmarshalJSON(b []byte) error {
	v, err := parseEnumJSON(b, func(name string) (int, bool) {
		st, ok := ParseWorkItemStatus(name)
		return int(st), ok
	})
	if err != nil {
		return fmt.Errorf("status: %w", err)
	}
	st := WorkItemStatus(v)
	if !st.Valid() {
		return fmt.Errorf("status: unknown value %d", v)
	}
	*s = st
	return nil
}

// 優先度
type TaskPriority int

const (
	PriorityLow      TaskPriority = 1
	PriorityMedium   TaskPriority = 2
	PriorityHigh     TaskPriority = 3
	PriorityCritical TaskPriority = 4
)

var priorityNames = map[TaskPriority]string{
	PriorityLow:      "Low",
	PriorityMedium:   "Medium",
	PriorityHigh:     "High",
	PriorityCritical: "Critical",
}

func (p TaskPriority) Valid() bool {
	_, ok := priorityNames[p]
	return ok
}

func (p TaskPriority) String() string {
	if name, ok := priorityNames[p]; ok {
		return name
	}
	return "TaskPriority(" + strconv.Itoa(int(p)) + ")"
}

func ParseTaskPriority(s string) (TaskPriority, bool) {
	v, ok := parseEnumText(s, func(name string) (int, bool) {
		for p, n := range priorityNames {
			if strings.EqualFold(n, name) {
				return int(p), true
			}
		}
		return 0, false
	})
	p := TaskPriority(v)
	return p, ok && p.Valid()
}

func (p TaskPriority) MarshalJSON() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("invalid priority: %d", int(p))
	}
	return json.Marshal(p.String())
}

func (p *TaskPriority) UnmarshalJSON(b []byte) error {
	v, err := parseEnumJSON(b, func(name string) (int, bool) {
		pr, ok := ParseTaskPriority(name)
		return int(pr), ok
	})
	if err != nil {
		return fmt.Errorf("priority: %w", err)
	}
	pr := TaskPriority(v)
	if !pr.Valid() {
		return fmt.Errorf("priority: unknown value %d", v)
	}
	*p = pr
	return nil
}

var errEnumFormat = errors.New("must be a name or an integer")

// "Done" / "4" のどちらでも数値にする
func parseEnumText(s string, byName func(string) (int, bool)) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if i, err := strconv.Atoi(s); err == nil {
		return i, true
	}
	return byName(s)
}

// JSONの文字列・数値どちらも受け付ける
func parseEnumJSON(b []byte, byName func(string) (int, bool)) (int, error) {
	var n int
	if err := json.Unmarshal(b, &n); err == nil {
		return n, nil
	}

	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return 0, errEnumFormat
	}
	v, ok := parseEnumText(s, byName)
	if !ok {
		return 0, fmt.Errorf("unknown value %q", s)
	}
	return v, nil
}
