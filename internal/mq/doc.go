// Package mq — интеграция с RabbitMQ: reconnect-соединение, топология
// (команды запусков + события выполнения), publisher и consumer,
// а также EventLog — мост из журнала выполнения в события брокера.
package mq
