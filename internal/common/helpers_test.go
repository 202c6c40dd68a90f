package common

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLocalDayAppliesOffsetBeforeTruncating(t *testing.T) {
	instant := time.Date(2026, 10, 19, 22, 30, 0, 0, time.UTC)

	assert.Equal(t, time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC), LocalDay(instant, 0))
	assert.Equal(t, time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC), LocalDay(instant, 180))
	assert.Equal(t, time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC), LocalDay(instant, -600))

	early := time.Date(2026, 10, 19, 1, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC), LocalDay(early, -120))
}

func TestDayStartNormalizesToUTC(t *testing.T) {
	moscow := time.FixedZone("MSK", 3*60*60)
	instant := time.Date(2026, 10, 20, 1, 0, 0, 0, moscow)

	assert.Equal(t, time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC), DayStart(instant))
}

func TestClampOffset(t *testing.T) {
	assert.Equal(t, -720, ClampOffset(-5000, -720, 840))
	assert.Equal(t, 840, ClampOffset(100000, -720, 840))
	assert.Equal(t, 180, ClampOffset(180, -720, 840))
}

func TestParseOffsetDefaultsToZero(t *testing.T) {
	assert.Equal(t, 0, ParseOffset(""))
	assert.Equal(t, 0, ParseOffset("abc"))
	assert.Equal(t, 0, ParseOffset("1.5"))
	assert.Equal(t, -300, ParseOffset(" -300 "))
}

func TestISOWeekKey(t *testing.T) {
	assert.Equal(t, "2026-W43", ISOWeekKey(time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2026-W01", ISOWeekKey(time.Date(2025, 12, 29, 0, 0, 0, 0, time.UTC)))
}

func TestPluralize(t *testing.T) {
	cases := map[int64]string{1: "балл", 2: "балла", 5: "баллов", 11: "баллов", 21: "балл", 112: "баллов"}
	for n, want := range cases {
		assert.Equal(t, want, PluralizePoints(n), "n=%d", n)
	}
	assert.Equal(t, "дня", PluralizeDays(3))
	assert.Equal(t, "+3 балла", FormatPointsAmount(3))
	assert.Equal(t, "-1 балл", FormatPointsAmount(-1))
	assert.Equal(t, "2 350", FormatNumber(2350))
	assert.Equal(t, "1 000 000", FormatNumber(1000000))
}

func TestHTTPStatusMapsSentinels(t *testing.T) {
	status, code := HTTPStatus(Validation("points == 0"))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "invalid_request", code)

	status, _ = HTTPStatus(fmt.Errorf("вопрос: %w", ErrNotFound))
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = HTTPStatus(Persistence("insert", errors.New("connection reset")))
	assert.Equal(t, http.StatusInternalServerError, status)

	// Параллельный первый голос того же пользователя
	status, code = HTTPStatus(fmt.Errorf("голос user_id=7 за q1: %w", ErrConflict))
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "conflict", code)

	status, code = HTTPStatus(fmt.Errorf("%w: %w", ErrCreateFailed, Persistence("insert", errors.New("timeout"))))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "create_failed", code)
}

func TestPersistenceKeepsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Persistence("ошибка записи", cause)

	assert.ErrorIs(t, err, ErrPersistence)
	assert.ErrorIs(t, err, cause)
}
