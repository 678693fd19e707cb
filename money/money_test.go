package money_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moonlake/settlement-engine/money"
)

func TestParseAmount_RoundTrip(t *testing.T) {
	// GIVEN: a spread of non-negative integers
	// WHEN: formatting then parsing
	// THEN: the original value comes back

	values := []int64{0, 1, 9, 10, 99, 100, 999, 1000, 12345, 999999, 1000000, 1234567890, 98765432109876}
	for _, v := range values {
		got, err := money.ParseAmount(money.FormatAmount(v))
		require.NoError(t, err, "value %d", v)
		assert.Equal(t, v, got, "round trip for %d", v)
	}
}

func TestFormatAmount_Grouping(t *testing.T) {
	assert.Equal(t, "0", money.FormatAmount(0))
	assert.Equal(t, "999", money.FormatAmount(999))
	assert.Equal(t, "1,000", money.FormatAmount(1000))
	assert.Equal(t, "12,345,678", money.FormatAmount(12345678))
	assert.Equal(t, "100,000,000", money.FormatAmount(100000000))
}

func TestFormatAmountOrBlank_ZeroIsBlank(t *testing.T) {
	assert.Equal(t, "", money.FormatAmountOrBlank(0))
	assert.Equal(t, "5,000", money.FormatAmountOrBlank(5000))
}

func TestParseAmount_EmptyIsZero(t *testing.T) {
	got, err := money.ParseAmount("")
	require.NoError(t, err)
	assert.Zero(t, got)

	got, err = money.ParseAmount("   ")
	require.NoError(t, err)
	assert.Zero(t, got)
}

func TestParseAmount_RejectsJunk(t *testing.T) {
	for _, in := range []string{"abc", "12a3", "-5", "1.5", "₩1,000"} {
		_, err := money.ParseAmount(in)
		assert.ErrorIs(t, err, money.ErrInvalidAmount, "input %q", in)
	}
}

func TestParseAmount_StripsCommas(t *testing.T) {
	got, err := money.ParseAmount("1,234,567")
	require.NoError(t, err)
	assert.Equal(t, int64(1234567), got)
}

func TestHours_OneDecimal(t *testing.T) {
	assert.Equal(t, "1.5", money.Hours(90))
	assert.Equal(t, "0.0", money.Hours(0))
	assert.Equal(t, "8.0", money.Hours(480))
	assert.Equal(t, "2.7", money.Hours(160)) // 2.666... rounds to 2.7
}

// =============================================================================
// FIELD TESTS
// =============================================================================

func TestField_TypingInsertsGrouping(t *testing.T) {
	// GIVEN: the user has typed "1234" (cursor after the last digit)
	f := &money.Field{Text: "1234", Cursor: 4}

	// WHEN: the keystroke is applied
	f.Apply(money.KeyCharacter)

	// THEN: the text is regrouped and the cursor shifted by the delta
	assert.Equal(t, "1,234", f.Text)
	assert.Equal(t, 5, f.Cursor)
}

func TestField_ControlKeysPassThrough(t *testing.T) {
	f := &money.Field{Text: "1,23", Cursor: 2}
	for _, k := range []money.Key{money.KeyShift, money.KeyControl, money.KeyArrow, money.KeySelectAll} {
		f.Apply(k)
		assert.Equal(t, "1,23", f.Text, "key %v must not reformat", k)
		assert.Equal(t, 2, f.Cursor)
	}
}

func TestField_NonDigitsRemoved(t *testing.T) {
	f := &money.Field{Text: "12x3", Cursor: 4}
	f.Apply(money.KeyCharacter)
	assert.Equal(t, "123", f.Text)
	assert.Equal(t, 3, f.Cursor)
}

func TestField_DeletionRegroups(t *testing.T) {
	// "1,234" with the 4 deleted leaves "1,23"; regrouping drops the comma.
	f := &money.Field{Text: "1,23", Cursor: 4}
	f.Apply(money.KeyCharacter)
	assert.Equal(t, "123", f.Text)
	assert.Equal(t, 3, f.Cursor)
}

func TestField_Value(t *testing.T) {
	f := &money.Field{Text: "9,999"}
	v, err := f.Value()
	require.NoError(t, err)
	assert.Equal(t, int64(9999), v)
}
