package domain

// WorkUnit — определение единицы работы из конфигурационного хранилища.
//
// WorkUnit описывает ЧТО выполнять (opaque-ссылка + параметры) и КАК
// планировать (зависимости, таймаут, retry-политика). Само содержимое
// работы системе неизвестно — его интерпретирует TaskRunner.
type WorkUnit struct {
	// Name — имя узла, уникальное среди активных единиц группы.
	Name string `json:"node_name" yaml:"name"`

	// Reference — opaque-локатор исполняемого артефакта.
	// Схема ссылки (http://, cmd://, noop://) выбирает runner.
	Reference string `json:"unit_reference" yaml:"reference"`

	// DependsOn — имена единиц, которые должны успешно завершиться
	// до запуска этой. Распарсенное типизированное поле: сериализованный
	// текст из хранилища разбирается один раз на границе.
	DependsOn []string `json:"dependencies" yaml:"depends_on"`

	// Params — упорядоченный словарь скалярных параметров,
	// передаётся runner'у без интерпретации.
	Params Params `json:"parameters" yaml:"params"`

	// TimeoutSec — бюджет одной попытки в секундах (> 0).
	TimeoutSec int `json:"timeout_seconds" yaml:"timeout_sec"`

	// RetryAttempts — суммарное число разрешённых попыток.
	// Значения < 1 нормализуются до 1 при построении графа.
	RetryAttempts int `json:"retry_attempts" yaml:"retry_attempts"`

	// RetryIntervalSec — пауза между попытками в секундах (>= 0).
	RetryIntervalSec int `json:"retry_interval_seconds" yaml:"retry_interval_sec"`

	// Active — неактивные единицы не попадают в граф.
	Active bool `json:"active" yaml:"active"`

	// ProcessGroup — ключ партиционирования: граф строится
	// и выполняется отдельно для каждой группы.
	ProcessGroup string `json:"process_group" yaml:"process_group"`
}
