package domain

import "time"

// Schedule — расписание автоматического запуска группы.
//
// Расписания читаются daemon'ом из YAML-файла; cron-выражение
// интерпретируется с точностью до минуты в указанной timezone.
type Schedule struct {
	// Group — группа, которую запускает расписание.
	Group string `yaml:"group"`

	// CronExpr — cron-выражение (минута час день месяц день-недели).
	CronExpr string `yaml:"cron"`

	// Timezone — IANA-имя зоны ("Europe/Berlin"). Пустое — UTC.
	Timezone string `yaml:"timezone"`

	// MaxParallelism — ограничение параллелизма запуска.
	// 0 — значение по умолчанию оркестратора.
	MaxParallelism int `yaml:"max_parallelism"`

	// Enabled — выключенные расписания игнорируются.
	Enabled bool `yaml:"enabled"`

	// NextDue — вычисленное время следующего запуска (UTC).
	// Не сериализуется: служебное поле планировщика daemon'а.
	NextDue time.Time `yaml:"-"`
}
