// Package common — errors.go определяет ошибки, общие для всех модулей сервиса.
// Обработчики различают типы проблем через errors.Is и отдают клиенту
// понятный код ответа.
package common

import (
	"errors"
	"fmt"
	"net/http"
)

// Ошибки ядра геймификации
var (
	// ErrValidation — некорректные поля запроса, запись не выполнялась
	ErrValidation = errors.New("некорректные данные")
	// ErrDuplicate — запись уже существует (например, ежедневный вход уже засчитан)
	ErrDuplicate = errors.New("запись уже существует")
	// ErrNotFound — пользователь или контент не найден
	ErrNotFound = errors.New("не найдено")
	// ErrPersistence — сбой хранилища
	ErrPersistence = errors.New("ошибка хранилища")
	// ErrConflict — запись изменена параллельно (не совпала версия)
	ErrConflict = errors.New("конкурентное изменение записи")
	// ErrForbidden — операция над чужим контентом
	ErrForbidden = errors.New("нет прав на операцию")
	// ErrCreateFailed — контент не создан: сбой хранилища или стрика (созданное откатано)
	ErrCreateFailed = errors.New("не удалось создать контент")
)

// Ошибки админки
var (
	// ErrWrongAdminKey — неверный ключ администратора
	ErrWrongAdminKey = errors.New("неверный ключ администратора")
	// ErrTooManyAttempts — слишком много неудачных попыток
	ErrTooManyAttempts = errors.New("слишком много попыток, подождите 1 час")
	// ErrAdminDisabled — хеш ключа не задан
	ErrAdminDisabled = errors.New("админка отключена")
)

// Persistence оборачивает ошибку драйвера в ErrPersistence, сохраняя исходную причину.
//
// Пример:
//
//	return common.Persistence("ошибка записи в журнал", err)
func Persistence(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrPersistence, err)
}

// Validation создаёт ошибку валидации с пояснением.
func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// HTTPStatus сопоставляет ошибку с HTTP-статусом и машинным кодом ответа.
// Неизвестные ошибки считаются внутренними.
func HTTPStatus(err error) (int, string) {
	switch {
	case errors.Is(err, ErrCreateFailed):
		return http.StatusInternalServerError, "create_failed"
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, ErrDuplicate):
		return http.StatusConflict, "duplicate"
	case errors.Is(err, ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, ErrWrongAdminKey), errors.Is(err, ErrAdminDisabled):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, ErrTooManyAttempts):
		return http.StatusTooManyRequests, "too_many_attempts"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
