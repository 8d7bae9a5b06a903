package scheduler

import (
	"time"

	"github.com/shaiso/Dirigent/internal/domain"
)

// Planner отслеживает расписания групп и выдаёт созревшие запуски.
//
// Planner не выполняет ничего сам: daemon опрашивает Due по тикеру
// и сам решает, как запускать группы. Выключенные расписания
// отбрасываются при создании.
type Planner struct {
	schedules []domain.Schedule
}

// NewPlanner создаёт Planner и вычисляет первое время запуска
// каждого включённого расписания.
func NewPlanner(schedules []domain.Schedule, now time.Time) (*Planner, error) {
	p := &Planner{}
	for i := range schedules {
		sched := schedules[i]
		if !sched.Enabled {
			continue
		}
		next, err := NextDue(&sched, now)
		if err != nil {
			return nil, err
		}
		sched.NextDue = next
		p.schedules = append(p.schedules, sched)
	}
	return p, nil
}

// Due возвращает расписания, чьё время пришло, и сдвигает их NextDue.
// Пропущенные интервалы не навёрстываются: после простоя группа
// запускается один раз, а не по разу за каждый пропуск.
func (p *Planner) Due(now time.Time) []domain.Schedule {
	var due []domain.Schedule
	for i := range p.schedules {
		sched := &p.schedules[i]
		if sched.NextDue.After(now) {
			continue
		}
		due = append(due, *sched)

		next, err := NextDue(sched, now)
		if err != nil {
			// Выражение валидировалось при загрузке; сюда не попадаем.
			continue
		}
		sched.NextDue = next
	}
	return due
}

// Len возвращает количество активных расписаний.
func (p *Planner) Len() int {
	return len(p.schedules)
}
