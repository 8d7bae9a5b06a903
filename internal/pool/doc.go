// Package pool — переиспользуемый пул воркеров с ограниченным
// параллелизмом и generic-помощник Collect для формы
// "выполнить N независимых задач, собрать результаты или ошибки".
//
// Оркестратор строит диспетчеризацию попыток на этом же примитиве,
// а не на собственной реализации.
package pool
