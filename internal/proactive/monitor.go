// Package proactive turns the current task list into an unprompted advisory.
package proactive

import (
	"fmt"
	"time"

	"jarvis/pkg"
)

const (
	backlogThreshold  = 3
	restDoneThreshold = 5

	overdueMessage = "ALERTA DE SISTEMA: Detetei %d tarefa(s) com o prazo expirado, incluindo \"%s\". Recomendo reavaliação imediata de prioridades para evitar falhas em cascata."
	backlogMessage = "Senhor, a minha análise de produtividade indica um acúmulo de %d tarefas pendentes. Sugiro que priorizemos a tarefa: \"%s\". Deseja que eu inicie o protocolo de foco?"
	restMessage    = "Senhor, notei que concluiu todas as suas tarefas recentes com excelente eficiência. Recomendo uma pausa para otimização de recursos biológicos."
)

// Check returns at most one advisory for tasks as seen at now.
// Overdue work wins over a backlog, which wins over a rest suggestion.
func Check(tasks []pkg.Task, now time.Time) (string, bool) {
	var overdue, pending []pkg.Task
	completed := 0

	for _, task := range tasks {
		switch task.Status {
		case pkg.TaskPending:
			pending = append(pending, task)
			if task.DueDate != nil && task.DueDate.Before(now) {
				overdue = append(overdue, task)
			}
		case pkg.TaskCompleted:
			completed++
		}
	}

	switch {
	case len(overdue) > 0:
		return fmt.Sprintf(overdueMessage, len(overdue), overdue[0].Title), true
	case len(pending) > backlogThreshold:
		return fmt.Sprintf(backlogMessage, len(pending), pending[0].Title), true
	case completed > restDoneThreshold && len(pending) == 0:
		return restMessage, true
	}
	return "", false
}
