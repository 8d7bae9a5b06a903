// Package engine строит и валидирует граф зависимостей единиц работы.
//
// Build превращает плоский набор определений одной группы в DAG:
// фильтрует неактивные единицы, проверяет уникальность имён,
// разрешает зависимости, ищет циклы и вычисляет топологический порядок.
// Любое нарушение инвариантов — ошибка построения; частичный граф
// никогда не возвращается.
package engine
