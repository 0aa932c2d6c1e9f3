package tasks

import (
	"sort"
	"sync"
)

// Manager is a lookup table of tasks for status reporting and manual triggers.
// Scheduling is owned by each task.
type Manager struct {
	tasks sync.Map
}

func NewManager() *Manager {
	return &Manager{}
}

func (m *Manager) Add(task *Task) {
	m.tasks.Store(task.Name, task)
}

func (m *Manager) Get(name string) (*Task, error) {
	t, ok := m.tasks.Load(name)
	if !ok {
		return nil, TaskNotFoundError{Name: name}
	}
	return t.(*Task), nil
}

// Trigger runs the task in the background and returns immediately.
func (m *Manager) Trigger(name string) error {
	task, err := m.Get(name)
	if err != nil {
		return err
	}
	go func() {
		_ = task.Run()
	}()
	return nil
}

func (m *Manager) ListStatus() []TaskStatus {
	var list []TaskStatus
	m.tasks.Range(func(key, value any) bool {
		task := value.(*Task)
		list = append(list, task.Status())
		return true
	})
	sort.Slice(list, func(i, j int) bool {
		return list[i].Name < list[j].Name
	})
	return list
}

func (m *Manager) GetLogs(name string) ([]LogEntry, error) {
	task, err := m.Get(name)
	if err != nil {
		return nil, err
	}
	return task.GetLogs(), nil
}
