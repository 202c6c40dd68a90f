// Package validation проверяет входные структуры через go-playground/validator.
// Валидатор один на процесс: он кэширует разбор тегов структур и безопасен
// для конкурентного использования.
package validation

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"serotonyl.ru/qa-forum/internal/common"
)

var (
	instance *validator.Validate
	once     sync.Once
)

// Validator возвращает общий экземпляр валидатора.
func Validator() *validator.Validate {
	once.Do(func() {
		instance = validator.New(validator.WithRequiredStructEnabled())
	})
	return instance
}

// Struct проверяет структуру по тегам `validate`.
// Нарушения возвращаются как common.ErrValidation с перечнем полей.
//
// Пример:
//
//	if err := validation.Struct(req); err != nil {
//	    return nil, err // errors.Is(err, common.ErrValidation) == true
//	}
func Struct(s any) error {
	err := Validator().Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return common.Validation("%v", err)
	}

	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, describe(fe))
	}
	return common.Validation("%s", strings.Join(parts, "; "))
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s: обязательное поле", fe.Field())
	case "oneof":
		return fmt.Sprintf("%s: допустимые значения [%s]", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s: не длиннее %s", fe.Field(), fe.Param())
	case "gt":
		return fmt.Sprintf("%s: должно быть больше %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s: нарушено правило %s", fe.Field(), fe.Tag())
	}
}
