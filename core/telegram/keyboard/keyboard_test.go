package keyboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInlinePlacesEachButtonOnOwnRow(t *testing.T) {
	markup := Inline(
		InlineBtn{Text: "Записаться", Unique: "reg"},
		InlineBtn{Text: "Оплатить", URL: "https://pay.example"},
	)

	require.Len(t, markup.InlineKeyboard, 2)
	require.Len(t, markup.InlineKeyboard[0], 1)
	assert.Equal(t, "Записаться", markup.InlineKeyboard[0][0].Text)
	assert.Equal(t, "reg", markup.InlineKeyboard[0][0].Unique)
	assert.Equal(t, "https://pay.example", markup.InlineKeyboard[1][0].URL)
}

func TestInlineRowsKeepsRowShape(t *testing.T) {
	markup := InlineRows(
		[]InlineBtn{{Text: "A", Unique: "a"}, {Text: "B", Unique: "b"}},
		[]InlineBtn{{Text: "C", Unique: "c"}},
	)

	require.Len(t, markup.InlineKeyboard, 2)
	assert.Len(t, markup.InlineKeyboard[0], 2)
	assert.Len(t, markup.InlineKeyboard[1], 1)
}
