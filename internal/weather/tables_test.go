package weather

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompassDirection(t *testing.T) {
	tests := []struct {
		degree float64
		lang   Language
		want   string
	}{
		{0, LanguageEnglish, "N"},
		{11.24, LanguageEnglish, "N"},
		{11.25, LanguageEnglish, "NNE"},
		{90, LanguageEnglish, "E"},
		{180, LanguageEnglish, "S"},
		{270, LanguageEnglish, "W"},
		{348.75, LanguageEnglish, "N"},
		{359, LanguageEnglish, "N"},
		{360, LanguageEnglish, "N"},
		{450, LanguageEnglish, "E"},
		{-90, LanguageEnglish, "W"},
		{180, LanguageRussian, "Ю"},
		{45, LanguageRussian, "СВ"},
		{90, Language("de"), "E"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, CompassDirection(tt.degree, tt.lang), "degree %v lang %s", tt.degree, tt.lang)
	}
}

func TestIcon(t *testing.T) {
	icon, err := Icon(Sample{IconCode: "01d", ConditionID: 800})
	require.NoError(t, err)
	assert.Equal(t, "☀️", icon)

	icon, err = Icon(Sample{IconCode: "10n", ConditionID: 500})
	require.NoError(t, err)
	assert.Equal(t, "🌧", icon)

	for _, id := range []int{210, 211, 212, 221} {
		icon, err = Icon(Sample{IconCode: "11d", ConditionID: id})
		require.NoError(t, err)
		assert.Equal(t, "🌩", icon, "condition %d", id)
	}

	icon, err = Icon(Sample{IconCode: "11d", ConditionID: 201})
	require.NoError(t, err)
	assert.Equal(t, "⛈", icon)

	_, err = Icon(Sample{IconCode: "99x"})
	assert.ErrorIs(t, err, ErrUnknownIcon)
}

func TestAQIEmoji(t *testing.T) {
	for aqi, want := range map[int]string{1: "😃", 2: "🙂", 3: "😐", 4: "🙁", 5: "😨"} {
		got, ok := AQIEmoji(aqi)
		assert.True(t, ok)
		assert.Equal(t, want, got)
	}

	_, ok := AQIEmoji(0)
	assert.False(t, ok)
	_, ok = AQIEmoji(6)
	assert.False(t, ok)
}
