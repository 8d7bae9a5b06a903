// Package cli реализует команды консольного клиента dirigent:
// проверку конфигурации, просмотр графа, запуск групп и историю
// выполнения.
package cli
