// Package orchestrator — планировщик выполнения графа зависимостей.
//
// Orchestrator ведёт машину состояний каждого узла
// (PENDING → READY → RUNNING → SUCCESS/FAILED, каскадный SKIPPED),
// выполняет попытки через пул воркеров с ограниченным параллелизмом,
// повторяет упавшие попытки с паузой и пишет append-only журнал
// выполнения. Коллабораторы (TaskRunner, ExecutionLog, ConfigReader)
// определены здесь же как узкие интерфейсы потребителя.
package orchestrator
