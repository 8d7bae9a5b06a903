package orchestrator

import "errors"

// Ошибки оркестратора.
var (
	// ErrSchedulingFatal — инфраструктурный сбой, прерывающий запуск:
	// журнал выполнения недоступен, запись в журнал не удалась либо
	// управляющий цикл зашёл в тупик. Узлы, уже достигшие терминального
	// статуса, сохраняют его; остальные помечаются ABORTED.
	ErrSchedulingFatal = errors.New("scheduling fatal error")

	// ErrNoRunner — оркестратор сконфигурирован без TaskRunner.
	ErrNoRunner = errors.New("task runner is not configured")

	// ErrNoLog — оркестратор сконфигурирован без ExecutionLog.
	ErrNoLog = errors.New("execution log is not configured")

	// ErrNoStore — сервису не передан ConfigReader.
	ErrNoStore = errors.New("config store is not configured")

	// ErrGroupFailed — в запуске есть упавшие или пропущенные узлы.
	// Используется CLI для кода возврата, сам Run это ошибкой не считает.
	ErrGroupFailed = errors.New("group finished with failed nodes")
)
