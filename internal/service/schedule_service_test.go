package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slotwise/slotwise/internal/model"
)

func intPtr(v int) *int { return &v }

func TestValidateRule(t *testing.T) {
	valid := func() *model.RecurringRule {
		return &model.RecurringRule{
			OrganizerID:         1,
			Weekday:             1,
			StartMinute:         9 * 60,
			EndMinute:           17 * 60,
			BufferBeforeMinutes: 15,
			BufferAfterMinutes:  15,
			SlotDurationMinutes: 30,
		}
	}

	t.Run("valid rule passes", func(t *testing.T) {
		assert.NoError(t, validateRule(valid()))
	})

	t.Run("weekday out of range", func(t *testing.T) {
		rule := valid()
		rule.Weekday = 7
		err := validateRule(rule)
		v, ok := AsValidation(err)
		require.True(t, ok)
		assert.Contains(t, v.FieldErrors, "weekday")
	})

	t.Run("start after end", func(t *testing.T) {
		rule := valid()
		rule.StartMinute = 18 * 60
		err := validateRule(rule)
		v, ok := AsValidation(err)
		require.True(t, ok)
		assert.Contains(t, v.FieldErrors, "end_minute")
	})

	t.Run("end past midnight", func(t *testing.T) {
		rule := valid()
		rule.EndMinute = 1441
		_, ok := AsValidation(validateRule(rule))
		assert.True(t, ok)
	})

	t.Run("negative buffer", func(t *testing.T) {
		rule := valid()
		rule.BufferBeforeMinutes = -5
		err := validateRule(rule)
		v, ok := AsValidation(err)
		require.True(t, ok)
		assert.Contains(t, v.FieldErrors, "buffers")
	})

	t.Run("window too narrow after buffers", func(t *testing.T) {
		rule := valid()
		rule.StartMinute = 9 * 60
		rule.EndMinute = 9*60 + 45 // 15 usable minutes after buffers
		err := validateRule(rule)
		v, ok := AsValidation(err)
		require.True(t, ok)
		assert.Contains(t, v.FieldErrors, "window")
	})

	t.Run("several problems reported together", func(t *testing.T) {
		rule := valid()
		rule.Weekday = -1
		rule.BufferAfterMinutes = -1
		err := validateRule(rule)
		v, ok := AsValidation(err)
		require.True(t, ok)
		assert.Len(t, v.FieldErrors, 2)
	})
}

func TestValidateException(t *testing.T) {
	date := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	t.Run("blackout with both bounds nil passes", func(t *testing.T) {
		assert.NoError(t, validateException(&model.ExceptionEntry{
			OrganizerID: 1,
			Date:        date,
		}))
	})

	t.Run("override window passes", func(t *testing.T) {
		assert.NoError(t, validateException(&model.ExceptionEntry{
			OrganizerID: 1,
			Date:        date,
			StartMinute: intPtr(10 * 60),
			EndMinute:   intPtr(12 * 60),
		}))
	})

	t.Run("missing date rejected", func(t *testing.T) {
		err := validateException(&model.ExceptionEntry{OrganizerID: 1})
		v, ok := AsValidation(err)
		require.True(t, ok)
		assert.Contains(t, v.FieldErrors, "date")
	})

	t.Run("half-open window rejected", func(t *testing.T) {
		err := validateException(&model.ExceptionEntry{
			OrganizerID: 1,
			Date:        date,
			StartMinute: intPtr(10 * 60),
		})
		v, ok := AsValidation(err)
		require.True(t, ok)
		assert.Contains(t, v.FieldErrors, "window")
	})

	t.Run("inverted window rejected", func(t *testing.T) {
		err := validateException(&model.ExceptionEntry{
			OrganizerID: 1,
			Date:        date,
			StartMinute: intPtr(12 * 60),
			EndMinute:   intPtr(10 * 60),
		})
		v, ok := AsValidation(err)
		require.True(t, ok)
		assert.Contains(t, v.FieldErrors, "end_minute")
	})
}

func TestValidationErrorMessage(t *testing.T) {
	v := &ValidationError{}
	assert.False(t, v.HasErrors())

	v.Add("weekday", "weekday must be between 0 (Sunday) and 6 (Saturday)")
	require.True(t, v.HasErrors())
	assert.Contains(t, v.Error(), "weekday")
}
