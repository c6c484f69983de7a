package denom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	d, err := Parse("sltn")
	require.NoError(t, err)
	assert.Equal(t, KindNative, d.Kind)
	assert.Equal(t, "sltn", d.String())

	d, err = Parse("factory/sultan1creator/GOLD")
	require.NoError(t, err)
	assert.Equal(t, KindFactory, d.Kind)
	assert.Equal(t, "sultan1creator", d.Creator)
	assert.Equal(t, "GOLD", d.Symbol)
	assert.Equal(t, "factory/sultan1creator/GOLD", d.String())

	d, err = Parse("lp-factory/sultan1creator/GOLD-sltn")
	require.NoError(t, err)
	assert.Equal(t, KindLP, d.Kind)
	assert.Equal(t, "factory/sultan1creator/GOLD-sltn", d.PairID)
}

func TestParseRejectsMalformed(t *testing.T) {
	for _, s := range []string{
		"",
		"SLTN",
		"factory/",
		"factory/creator",
		"factory/creator/",
		"factory//GOLD",
		"factory/creator/GO-LD",
		"factory/creator/GO/LD2/X", // symbol may not contain '/'
		"lp-",
		"gold",
	} {
		_, err := Parse(s)
		assert.Error(t, err, "denom %q", s)
	}
}

func TestValidateSymbol(t *testing.T) {
	assert.NoError(t, ValidateSymbol("GOLD"))
	assert.NoError(t, ValidateSymbol("usdt2"))
	assert.Error(t, ValidateSymbol(""))
	assert.Error(t, ValidateSymbol("TOOLONGSYMBOL12345"))
	assert.Error(t, ValidateSymbol("BAD-DASH"))
	assert.Error(t, ValidateSymbol("BAD/SLASH"))
	assert.Error(t, ValidateSymbol("BAD SPACE"))
}

func TestPairIDCanonicalOrdering(t *testing.T) {
	a := "factory/sultan1creator/GOLD"
	b := "sltn"

	// 'f' < 's', so the factory denom sorts first.
	assert.Equal(t, a+"-"+b, PairID(a, b))
	assert.Equal(t, a+"-"+b, PairID(b, a))

	ta, tb := SortPair(b, a)
	assert.Equal(t, a, ta)
	assert.Equal(t, b, tb)
}

func TestPairIDDeterministic(t *testing.T) {
	x := "factory/sultan1abc/AAA"
	y := "factory/sultan1abc/BBB"
	assert.Equal(t, PairID(x, y), PairID(y, x))
	assert.Equal(t, "lp-"+PairID(x, y), LP(PairID(x, y)))
}
