package config

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/shaiso/Dirigent/internal/domain"
	"github.com/shaiso/Dirigent/internal/engine"
)

// unitsFile — корневая структура файла определений.
type unitsFile struct {
	Units []domain.WorkUnit `yaml:"units"`
}

// LoadUnits читает определения единиц работы из YAML-файла.
//
// Формат:
//
//	units:
//	  - name: extract
//	    reference: cmd://scripts/extract.sh
//	    depends_on: []
//	    params:
//	      source: orders
//	    timeout_sec: 600
//	    retry_attempts: 3
//	    retry_interval_sec: 60
//	    active: true
//	    process_group: nightly
//
// Ошибки разбора — ConfigError: формат файла — такая же часть
// конфигурации, как и содержимое строк.
func LoadUnits(path string) ([]domain.WorkUnit, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read definitions file: %w", err)
	}

	var file unitsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, engine.NewConfigError("", "", "file",
			fmt.Sprintf("parse %s: %v", path, err), err)
	}
	return file.Units, nil
}

// FileStore — ConfigReader поверх YAML-файла определений.
//
// Файл перечитывается на каждый ReadGroup: оператор правит его между
// запусками, кэшировать нечего.
type FileStore struct {
	path string
}

// NewFileStore создаёт FileStore.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// ReadGroup возвращает определения группы из файла.
func (s *FileStore) ReadGroup(_ context.Context, group string) ([]domain.WorkUnit, error) {
	units, err := LoadUnits(s.path)
	if err != nil {
		return nil, err
	}

	var filtered []domain.WorkUnit
	for i := range units {
		if units[i].ProcessGroup == group {
			filtered = append(filtered, units[i])
		}
	}
	return filtered, nil
}

// Groups возвращает имена всех групп файла.
func (s *FileStore) Groups() ([]string, error) {
	units, err := LoadUnits(s.path)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var groups []string
	for i := range units {
		group := units[i].ProcessGroup
		if !seen[group] {
			seen[group] = true
			groups = append(groups, group)
		}
	}
	return groups, nil
}
