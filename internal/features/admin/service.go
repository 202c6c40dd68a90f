// Package admin — service.go проверяет ключ администратора и проводит ручные корректировки.
package admin

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/argon2"

	"serotonyl.ru/qa-forum/internal/common"
	"serotonyl.ru/qa-forum/internal/features/economy"
	"serotonyl.ru/qa-forum/internal/validation"
)

// Защита от перебора: 3 неудачные попытки = блокировка на 1 час.
const (
	maxFailures = 3
	lockout     = time.Hour
)

// Параметры Argon2id для HashKey.
const (
	argonMemory      uint32 = 64 * 1024 // 64 MB
	argonIterations  uint32 = 3
	argonParallelism uint8  = 2
	argonKeyLength   uint32 = 32
	argonSaltLength         = 16
)

// Ledger — журнал, в который пишутся корректировки.
type Ledger interface {
	Append(ctx context.Context, req economy.AppendRequest) (*economy.AppendResult, error)
}

// Service управляет админскими операциями.
type Service struct {
	attempts AttemptStore
	ledger   Ledger
	keyHash  string
	now      func() time.Time
}

// NewService создаёт сервис. Пустой keyHash отключает админку.
func NewService(attempts AttemptStore, ledger Ledger, keyHash string) *Service {
	return &Service{
		attempts: attempts,
		ledger:   ledger,
		keyHash:  keyHash,
		now:      time.Now,
	}
}

// Enabled сообщает, задан ли хеш ключа.
func (s *Service) Enabled() bool {
	return s.keyHash != ""
}

// VerifyKey проверяет ключ, предъявленный с адреса source.
//
// Ошибки:
//   - common.ErrAdminDisabled: хеш не задан
//   - common.ErrTooManyAttempts: источник заблокирован на час
//   - common.ErrWrongAdminKey: ключ не подошёл
func (s *Service) VerifyKey(ctx context.Context, source, key string) error {
	if !s.Enabled() {
		return common.ErrAdminDisabled
	}

	failures, err := s.attempts.RecentFailures(ctx, source, s.now().Add(-lockout))
	if err != nil {
		return err
	}
	if failures >= maxFailures {
		return common.ErrTooManyAttempts
	}

	match := verifyArgon2id(key, s.keyHash)

	if err := s.attempts.LogAttempt(ctx, source, match); err != nil {
		log.WithError(err).Warn("Не удалось записать попытку входа")
	}

	if !match {
		log.WithField("source", source).Warn("Неверный ключ администратора")
		return common.ErrWrongAdminKey
	}
	return nil
}

// Adjust записывает в журнал запись adminAdjust на req.Points баллов.
// Связанная сущность — новый UUID; повтор с тем же IdempotencyKey даёт common.ErrDuplicate.
func (s *Service) Adjust(ctx context.Context, req AdjustRequest) (*AdjustResult, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("ошибка генерации id: %w", err)
	}

	appendReq := economy.AppendRequest{
		UserID:            req.UserID,
		Points:            req.Points,
		Action:            economy.ActionAdminAdjust,
		RelatedEntityID:   id.String(),
		RelatedEntityKind: economy.KindAdjustment,
		OccurredOn:        s.now(),
	}
	if req.IdempotencyKey != "" {
		appendReq.IdempotencyKey = "admin:" + req.IdempotencyKey
	}

	res, err := s.ledger.Append(ctx, appendReq)
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"user_id": req.UserID,
		"amount":  common.FormatPointsAmount(req.Points),
		"reason":  req.Reason,
		"balance": res.Balance,
	}).Info("Ручная корректировка баллов")

	return &AdjustResult{
		UserID:    req.UserID,
		Points:    req.Points,
		RelatedID: id.String(),
		Balance:   res.Balance,
	}, nil
}

// --- Криптографические утилиты ---

// HashKey возвращает хеш Argon2id для ADMIN_KEY_HASH.
// Формат: $argon2id$v=19$m=65536,t=3,p=2$<salt_base64>$<hash_base64>
func HashKey(key string) (string, error) {
	if key == "" {
		return "", common.Validation("пустой ключ")
	}

	salt := make([]byte, argonSaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("ошибка генерации соли: %w", err)
	}

	hash := argon2.IDKey([]byte(key), salt, argonIterations, argonMemory, argonParallelism, argonKeyLength)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, argonMemory, argonIterations, argonParallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash)), nil
}

// verifyArgon2id проверяет ключ по хешу Argon2id.
func verifyArgon2id(key, encodedHash string) bool {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		log.Error("Некорректный формат хеша Argon2id")
		return false
	}

	var memory, iterations uint32
	var parallelism uint8
	_, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &parallelism)
	if err != nil {
		log.WithError(err).Error("Ошибка парсинга параметров Argon2id")
		return false
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		log.WithError(err).Error("Ошибка декодирования соли")
		return false
	}

	expected, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		log.WithError(err).Error("Ошибка декодирования хеша")
		return false
	}

	computed := argon2.IDKey([]byte(key), salt, iterations, memory, parallelism, uint32(len(expected)))

	// Сравнение в постоянном времени
	return subtle.ConstantTimeCompare(computed, expected) == 1
}
