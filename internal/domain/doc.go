// Package domain содержит доменные модели Dirigent: определения единиц
// работы, статусы узлов и запусков, записи журнала выполнения и расписания.
//
// Пакет не зависит от инфраструктуры (БД, очереди, HTTP) и не содержит
// бизнес-логики планирования — только данные и их инварианты.
package domain
