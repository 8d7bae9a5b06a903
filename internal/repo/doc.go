// Package repo — персистентность Dirigent поверх Postgres (pgx v5):
// конфигурация единиц работы, append-only журнал выполнения и реестр
// запусков, плюс in-memory журнал для работы без БД.
package repo
