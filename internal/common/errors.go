// Package common — errors.go определяет пользовательские ошибки,
// которые используются во всех модулях бота.
// Эти ошибки позволяют обработчикам различать типы проблем
// и отправлять пользователю понятные сообщения.
package common

import "errors"

// Ошибки баллов (начисление, списание)
var (
	// ErrInvalidAmount — некорректная сумма (вне допустимого диапазона)
	ErrInvalidAmount = errors.New("сумма баллов вне допустимого диапазона")
	// ErrInsufficientBalance — недостаточно баллов на счёте
	ErrInsufficientBalance = errors.New("недостаточно баллов на счёте")
)

// Ошибки отчётов (заявки на баллы)
var (
	// ErrForbidden — у пользователя нет прав модератора
	ErrForbidden = errors.New("нет прав модератора")
	// ErrAlreadyDecided — заявка уже рассмотрена
	ErrAlreadyDecided = errors.New("заявка уже рассмотрена")
	// ErrSubmissionNotFound — заявка не найдена
	ErrSubmissionNotFound = errors.New("заявка не найдена")
	// ErrUnboundChannel — канал не привязан к этому пользователю
	ErrUnboundChannel = errors.New("канал не является каналом отчётов этого пользователя")
	// ErrChannelAlreadyBound — у пользователя уже есть канал отчётов
	ErrChannelAlreadyBound = errors.New("канал отчётов уже создан")
)

// Ошибки магазина
var (
	// ErrUnknownItem — товар с таким ID отсутствует в каталоге
	ErrUnknownItem = errors.New("такого товара нет в магазине")
)
