package engine

import "errors"

// Ошибки валидации набора определений.
var (
	// ErrEmptyGroup — в группе нет ни одной активной единицы работы.
	ErrEmptyGroup = errors.New("process group has no active units")

	// ErrEmptyName — единица работы без имени.
	ErrEmptyName = errors.New("unit has empty name")

	// ErrEmptyReference — единица работы без ссылки на исполняемый артефакт.
	ErrEmptyReference = errors.New("unit has empty reference")

	// ErrBadTimeout — неположительный таймаут попытки.
	ErrBadTimeout = errors.New("unit timeout must be positive")

	// ErrBadRetryInterval — отрицательный интервал между попытками.
	ErrBadRetryInterval = errors.New("unit retry interval must not be negative")

	// ErrDuplicateUnit — несколько активных единиц с одним именем в группе.
	ErrDuplicateUnit = errors.New("duplicate unit name")

	// ErrUnknownDependency — зависимость на отсутствующую или неактивную
	// единицу. Неактивная зависимость — ошибка, а не тихое удаление ребра:
	// граф, молча выбросивший ребро, переупорядочил бы работу, которую
	// автор конфигурации считал огороженной.
	ErrUnknownDependency = errors.New("dependency on unknown or inactive unit")

	// ErrSelfDependency — единица зависит от самой себя.
	ErrSelfDependency = errors.New("unit depends on itself")

	// ErrDependencyCycle — цикл в отношении зависимостей.
	ErrDependencyCycle = errors.New("dependency cycle detected")
)

// ConfigError — ошибка валидации конфигурации с контекстом.
type ConfigError struct {
	Group   string // группа, в которой найдена ошибка
	Unit    string // имя единицы работы (пустое для ошибок уровня группы)
	Field   string // поле, вызвавшее ошибку
	Message string // описание
	Err     error  // базовая ошибка (sentinel)
}

// Error реализует интерфейс error.
func (e *ConfigError) Error() string {
	switch {
	case e.Unit != "" && e.Group != "":
		return "group " + e.Group + ", unit " + e.Unit + ": " + e.Message
	case e.Group != "":
		return "group " + e.Group + ": " + e.Message
	default:
		return e.Message
	}
}

// Unwrap возвращает базовую ошибку.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError создаёт новую ошибку валидации.
func NewConfigError(group, unit, field, message string, err error) *ConfigError {
	return &ConfigError{
		Group:   group,
		Unit:    unit,
		Field:   field,
		Message: message,
		Err:     err,
	}
}

// CycleError — обнаруженный цикл зависимостей.
// Names содержит имена всех узлов цикла в порядке обхода.
type CycleError struct {
	Group string
	Names []string
}

// Error реализует интерфейс error.
func (e *CycleError) Error() string {
	msg := "group " + e.Group + ": dependency cycle: "
	for i, name := range e.Names {
		if i > 0 {
			msg += " -> "
		}
		msg += name
	}
	if len(e.Names) > 0 {
		msg += " -> " + e.Names[0]
	}
	return msg
}

// Unwrap возвращает ErrDependencyCycle.
func (e *CycleError) Unwrap() error {
	return ErrDependencyCycle
}
