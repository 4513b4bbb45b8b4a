package grid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ncompRange(from, to, step int) []any {
	var out []any
	for v := from; v <= to; v += step {
		out = append(out, v)
	}
	return out
}

func TestBuildCount(t *testing.T) {
	testCases := []struct {
		name      string
		overrides map[string][]any
		expected  int
	}{
		{
			name:      "all defaults",
			overrides: nil,
			expected:  1,
		},
		{
			name: "20 component counts crossed with both preprocessing flags",
			overrides: map[string][]any{
				"n.comp":      ncompRange(5, 100, 5),
				"center.cols": {true, false},
				"scale.cols":  {true, false},
			},
			expected: 80,
		},
		{
			name: "five seeds crossed with preprocessing flags",
			overrides: map[string][]any{
				"w.init":      {1, 2, 3, 4, 5},
				"center.cols": {true, false},
				"scale.cols":  {true, false},
				"n.comp":      {50},
			},
			expected: 20,
		},
		{
			name: "single-value w.init does not multiply the count",
			overrides: map[string][]any{
				"w.init": {42},
				"n.comp": ncompRange(5, 100, 5),
			},
			expected: 20,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			g, err := Build(tc.overrides)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, g.Size())

			// The size must equal the product of the axis cardinalities.
			product := 1
			for _, r := range g.Radixes() {
				product *= r
			}
			assert.Equal(t, product, g.Size())
		})
	}
}

func TestBuildErrors(t *testing.T) {
	testCases := []struct {
		name      string
		overrides map[string][]any
		wantErr   error
	}{
		{
			name:      "empty value sequence",
			overrides: map[string][]any{"n.comp": {}},
			wantErr:   ErrInvalidAxis,
		},
		{
			name:      "unrecognized parameter",
			overrides: map[string][]any{"n.components": {5}},
			wantErr:   ErrInvalidAxis,
		},
		{
			name:      "wrong value type",
			overrides: map[string][]any{"center.cols": {"yes"}},
			wantErr:   ErrInvalidAxis,
		},
		{
			name:      "enum violation",
			overrides: map[string][]any{"alg.typ": {"speedy"}},
			wantErr:   ErrInvalidAxis,
		},
		{
			name:      "fractional integer",
			overrides: map[string][]any{"n.comp": {2.5}},
			wantErr:   ErrInvalidAxis,
		},
		{
			name:      "non-positive seed",
			overrides: map[string][]any{"w.init": {0}},
			wantErr:   ErrInvalidAxis,
		},
		{
			name: "combinatorial overflow",
			overrides: map[string][]any{
				"n.comp": ncompRange(1, 4000, 1),
				"maxit":  ncompRange(1, 3000, 1),
			},
			wantErr: ErrGridTooLarge,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Build(tc.overrides)
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestBuildFillsDefaults(t *testing.T) {
	g, err := Build(map[string][]any{"n.comp": {5, 10}})
	require.NoError(t, err)

	require.Equal(t, Names(), g.AxisOrder())
	for _, name := range g.AxisOrder() {
		axis, ok := g.Axis(name)
		require.True(t, ok, "axis %q missing", name)
		assert.NotEmpty(t, axis.Values)
		if name != "n.comp" {
			assert.Len(t, axis.Values, 1, "axis %q should be single-valued", name)
		}
	}

	algTyp, _ := g.Axis("alg.typ")
	assert.Equal(t, []any{"parallel"}, algTyp.Values)
	maxit, _ := g.Axis("maxit")
	assert.Equal(t, []any{200}, maxit.Values)
	tol, _ := g.Axis("tol")
	assert.Equal(t, []any{1e-4}, tol.Values)
}

func TestDefaultSeedCapturedAtBuild(t *testing.T) {
	g, err := Build(nil)
	require.NoError(t, err)

	winit, ok := g.Axis("w.init")
	require.True(t, ok)
	require.Len(t, winit.Values, 1)
	seed, isInt64 := winit.Values[0].(int64)
	require.True(t, isInt64)
	assert.Positive(t, seed)

	// Repeated reads of the same grid instance see the same captured seed.
	again, _ := g.Axis("w.init")
	assert.Equal(t, winit.Values, again.Values)

	// Reconstructing from the serialized axes must not redraw the seed.
	reloaded, err := FromAxes(g.Axes())
	require.NoError(t, err)
	reWinit, _ := reloaded.Axis("w.init")
	assert.Equal(t, winit.Values, reWinit.Values)
}

func TestFromAxesRejectsIncompleteOrReordered(t *testing.T) {
	g, err := Build(nil)
	require.NoError(t, err)

	axes := g.Axes()
	_, err = FromAxes(axes[1:])
	assert.ErrorIs(t, err, ErrInvalidAxis)

	swapped := g.Axes()
	swapped[0], swapped[1] = swapped[1], swapped[0]
	_, err = FromAxes(swapped)
	assert.ErrorIs(t, err, ErrInvalidAxis)
}

func TestCombinationDigitsRoundTrip(t *testing.T) {
	g, err := Build(map[string][]any{
		"n.comp":      {5, 10, 15},
		"center.cols": {true, false},
		"w.init":      {7, 11},
	})
	require.NoError(t, err)

	digits := make([]int, len(g.Radixes()))
	digits[0] = 2 // n.comp = 15
	digits[1] = 1 // center.cols = false
	digits[3] = 1 // w.init = 11

	c, err := g.Combination(digits)
	require.NoError(t, err)
	assert.Equal(t, 15, c["n.comp"])
	assert.Equal(t, false, c["center.cols"])
	assert.Equal(t, int64(11), c["w.init"])

	back, err := g.Digits(c)
	require.NoError(t, err)
	assert.Equal(t, digits, back)
}

func TestCombinationSettings(t *testing.T) {
	g, err := Build(map[string][]any{"n.comp": {25}, "w.init": {99}})
	require.NoError(t, err)

	c, err := g.Combination(make([]int, len(g.Radixes())))
	require.NoError(t, err)

	s, err := c.Settings()
	require.NoError(t, err)
	assert.Equal(t, 25, s.NComp)
	assert.Equal(t, int64(99), s.WInit)
	assert.True(t, s.CenterCols)
	assert.True(t, s.ScaleCols)
	assert.False(t, s.RowNorm)
	assert.Equal(t, "parallel", s.AlgTyp)
	assert.Equal(t, "logcosh", s.Fun)
	assert.Equal(t, 1.0, s.Alpha)
	assert.Equal(t, 200, s.MaxIt)
	assert.Equal(t, 1e-4, s.Tol)
	assert.Equal(t, "fixed", s.Partition)
	assert.Equal(t, 3.0, s.Threshold)

	// A combination missing an axis must not decode.
	delete(c, "fun")
	_, err = c.Settings()
	assert.ErrorIs(t, err, ErrBadCombination)
}
