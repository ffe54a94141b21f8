package proactive

import (
	"testing"
	"time"

	"jarvis/pkg"

	"github.com/stretchr/testify/assert"
)

var now = time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

func due(d time.Duration) *time.Time {
	t := now.Add(d)
	return &t
}

func pending(title string) pkg.Task {
	return pkg.Task{Title: title, Status: pkg.TaskPending}
}

func completed(n int) []pkg.Task {
	tasks := make([]pkg.Task, n)
	for i := range tasks {
		tasks[i] = pkg.Task{Title: "feito", Status: pkg.TaskCompleted}
	}
	return tasks
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name     string
		tasks    []pkg.Task
		wantOK   bool
		contains []string
	}{
		{
			name:   "no tasks",
			tasks:  nil,
			wantOK: false,
		},
		{
			name: "overdue task is reported with count and title",
			tasks: []pkg.Task{
				{Title: "Relatório", Status: pkg.TaskPending, DueDate: due(-24 * time.Hour)},
			},
			wantOK:   true,
			contains: []string{"ALERTA DE SISTEMA", "1 tarefa(s)", `"Relatório"`},
		},
		{
			name: "overdue wins over backlog",
			tasks: []pkg.Task{
				pending("a"), pending("b"), pending("c"),
				{Title: "Atrasada", Status: pkg.TaskPending, DueDate: due(-time.Minute)},
			},
			wantOK:   true,
			contains: []string{"1 tarefa(s)", `"Atrasada"`},
		},
		{
			name: "completed task past due is not overdue",
			tasks: []pkg.Task{
				{Title: "Velha", Status: pkg.TaskCompleted, DueDate: due(-time.Hour)},
			},
			wantOK: false,
		},
		{
			name: "due exactly now is not overdue",
			tasks: []pkg.Task{
				{Title: "Agora", Status: pkg.TaskPending, DueDate: due(0)},
			},
			wantOK: false,
		},
		{
			name:     "backlog of four names the first pending",
			tasks:    []pkg.Task{pending("A"), pending("B"), pending("C"), pending("D")},
			wantOK:   true,
			contains: []string{"acúmulo de 4 tarefas", `"A"`},
		},
		{
			name:   "three pending is no backlog",
			tasks:  []pkg.Task{pending("A"), pending("B"), pending("C")},
			wantOK: false,
		},
		{
			name:     "six completed and nothing pending suggests rest",
			tasks:    completed(6),
			wantOK:   true,
			contains: []string{"pausa"},
		},
		{
			name:   "five completed is not enough",
			tasks:  completed(5),
			wantOK: false,
		},
		{
			name:   "rest needs an empty backlog",
			tasks:  append(completed(6), pending("A")),
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, ok := Check(tt.tasks, now)
			assert.Equal(t, tt.wantOK, ok)
			if !tt.wantOK {
				assert.Empty(t, msg)
				return
			}
			for _, fragment := range tt.contains {
				assert.Contains(t, msg, fragment)
			}
		})
	}
}
