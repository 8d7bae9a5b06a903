package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/shaiso/Dirigent/internal/domain"
	"github.com/shaiso/Dirigent/internal/scheduler"
)

// schedulesFile — корневая структура файла расписаний daemon'а.
type schedulesFile struct {
	Schedules []domain.Schedule `yaml:"schedules"`
}

// LoadSchedules читает расписания групп из YAML-файла.
//
// Формат:
//
//	schedules:
//	  - group: nightly
//	    cron: "0 2 * * *"
//	    timezone: Europe/Berlin
//	    max_parallelism: 4
//	    enabled: true
//
// Cron-выражения валидируются при загрузке: daemon с нечитаемым
// расписанием не стартует.
func LoadSchedules(path string) ([]domain.Schedule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schedules file: %w", err)
	}

	var file schedulesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	for i := range file.Schedules {
		sched := &file.Schedules[i]
		if sched.Group == "" {
			return nil, fmt.Errorf("schedule %d: empty group", i)
		}
		if err := scheduler.ValidateCronExpr(sched.CronExpr); err != nil {
			return nil, fmt.Errorf("schedule for group %s: %w", sched.Group, err)
		}
	}
	return file.Schedules, nil
}
