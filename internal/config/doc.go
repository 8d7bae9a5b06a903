// Package config — загрузка конфигурации из YAML-файлов: определения
// единиц работы (альтернатива Postgres-хранилищу) и расписания групп
// для daemon'а.
package config
