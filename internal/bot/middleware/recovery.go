// Package middleware — recovery.go перехватывает паники в обработчиках
// событий шлюза: одна сломанная команда не роняет процесс и не обрывает
// войс-учёт остальных участников.
package middleware

import (
	"runtime/debug"

	log "github.com/sirupsen/logrus"
)

// RecoverFromPanic гасит панику и пишет стек в лог.
// Должна вызываться через defer напрямую, иначе recover не сработает.
func RecoverFromPanic() {
	if r := recover(); r != nil {
		log.WithFields(log.Fields{
			"panic": r,
			"stack": string(debug.Stack()),
		}).Error("Паника в обработчике события — процесс продолжает работу")
	}
}
