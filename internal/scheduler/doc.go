// Package scheduler — cron-расписания автоматических запусков групп:
// разбор выражений, вычисление следующего срабатывания с учётом
// timezone и Planner, выдающий созревшие запуски daemon'у.
package scheduler
