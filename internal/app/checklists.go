package app

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"worksafe/internal/domain"
)

// ChecklistGenerator builds a safety checklist for a task.
type ChecklistGenerator interface {
	GenerateChecklist(ctx context.Context, task string) (domain.Checklist, error)
}

type ChecklistService struct {
	generator ChecklistGenerator
	log       *zap.Logger
}

func NewChecklistService(generator ChecklistGenerator, logger *zap.Logger) *ChecklistService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChecklistService{generator: generator, log: logger}
}

// Generate returns a checklist for task, or a single high-priority error item
// when generation fails.
func (s *ChecklistService) Generate(ctx context.Context, task string) (domain.Checklist, error) {
	task = strings.TrimSpace(task)
	if task == "" {
		return domain.Checklist{}, domain.Invalid("task", "Descreva a tarefa.")
	}
	if s.generator != nil {
		list, err := s.generator.GenerateChecklist(ctx, task)
		if err == nil {
			return list, nil
		}
		s.log.Warn("checklist generation failed", zap.String("task", task), zap.Error(err))
	}
	return domain.Checklist{
		Task:  task,
		Items: []domain.ChecklistItem{{Check: domain.FallbackChecklistItem, Priority: domain.PriorityHigh}},
	}, nil
}
