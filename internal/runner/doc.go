// Package runner — реализации orchestrator.TaskRunner.
//
// Registry выбирает runner по схеме opaque-ссылки единицы работы:
// http/https — POST на URL, cmd — локальная команда, noop — пустышка
// для dry-run. Содержимое работы оркестратору неизвестно — runner'ы
// только транслируют ссылку и параметры во внешний вызов.
package runner
