package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDiscountConfigPercentFor(t *testing.T) {
	cfg := DefaultDiscountConfig()

	cases := []struct {
		game string
		want int
	}{
		{game: "entrega_ya", want: 25},
		{game: "ENTREGA_YA", want: 25},
		{game: "preguntados", want: 20},
		{game: "ahorcado", want: 15},
		{game: "mayor_menor", want: 10},
		{game: "tateti", want: 10},
		{game: "", want: 10},
	}
	for _, tc := range cases {
		t.Run(tc.game, func(t *testing.T) {
			assert.Equal(t, tc.want, cfg.PercentFor(tc.game))
		})
	}
}

func TestValidateDiscountConfigRejectsOutOfRange(t *testing.T) {
	cfg := DefaultDiscountConfig()
	cfg.Games["entrega_ya"] = 120
	assert.Error(t, validateDiscountConfig(cfg))

	cfg = DefaultDiscountConfig()
	cfg.Default = -1
	assert.Error(t, validateDiscountConfig(cfg))

	assert.NoError(t, validateDiscountConfig(DefaultDiscountConfig()))
}

func TestStaticHolderServesConfig(t *testing.T) {
	holder := NewStaticDiscountConfigHolder(DiscountConfig{Default: 5, Games: map[string]int{"entrega_ya": 30}})
	assert.Equal(t, 30, holder.PercentFor("entrega_ya"))
	assert.Equal(t, 5, holder.PercentFor("otro"))
}
