package tensor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShape_NumElements(t *testing.T) {
	tests := []struct {
		shape Shape
		want  int
	}{
		{Shape{2, 3, 4}, 24},
		{Shape{7}, 7},
		{Shape{1, 1, 5}, 5},
		{Shape{}, 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.shape.NumElements(), "shape %v", tt.shape)
	}
}

func TestShape_Validate(t *testing.T) {
	require.NoError(t, Shape{2, 3}.Validate())
	assert.ErrorIs(t, Shape{}.Validate(), ErrInvalidArgument)
	assert.ErrorIs(t, Shape{2, 0}.Validate(), ErrInvalidArgument)
	assert.ErrorIs(t, Shape{-1, 3}.Validate(), ErrInvalidArgument)
}

func TestShape_Equal(t *testing.T) {
	assert.True(t, Shape{2, 3}.Equal(Shape{2, 3}))
	assert.False(t, Shape{2, 3}.Equal(Shape{3, 2}))
	assert.False(t, Shape{6}.Equal(Shape{6, 1}))
}

func TestShape_ComputeStrides(t *testing.T) {
	assert.Equal(t, []int{12, 4, 1}, Shape{2, 3, 4}.ComputeStrides())
	assert.Equal(t, []int{1}, Shape{5}.ComputeStrides())
}

func TestShape_SubShape(t *testing.T) {
	s := Shape{2, 3, 4, 5}
	tests := []struct {
		name       string
		start, end int
		want       Shape
	}{
		{"inclusive range", 1, 2, Shape{3, 4}},
		{"single axis", 0, 0, Shape{2}},
		{"negative end", 1, -1, Shape{3, 4, 5}},
		{"negative both", -2, -1, Shape{4, 5}},
		{"overflow wraps", 4, 5, Shape{2, 3}},
		{"inverted is empty", 3, 1, Shape{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.SubShape(tt.start, tt.end))
		})
	}
}

func TestShape_Reduce(t *testing.T) {
	assert.Equal(t, Shape{3, 4}, Shape{1, 3, 1, 4, 1}.Reduce())
	assert.Equal(t, Shape{2}, Shape{1, 1, 2}.Reduce())
	assert.Equal(t, Shape{1}, Shape{1, 1}.Reduce())
	assert.Equal(t, Shape{5}, Shape{0, 5}.Reduce())
}

func TestShape_Flatten(t *testing.T) {
	assert.Equal(t, Shape{24}, Shape{2, 3, 4}.Flatten())
}

func TestShape_ReshapeRoundTrip(t *testing.T) {
	s1 := Shape{2, 3, 4}

	s2, err := s1.Reshape(6, 4)
	require.NoError(t, err)
	assert.Equal(t, Shape{6, 4}, s2)

	back, err := s2.Reshape(s1...)
	require.NoError(t, err)
	assert.True(t, back.Equal(s1))
}

func TestShape_ReshapeMismatch(t *testing.T) {
	_, err := Shape{2, 3}.Reshape(4, 2)
	assert.ErrorIs(t, err, ErrShapeMismatch)

	_, err = Shape{2, 3}.Reshape(6, 0)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestShape_Append(t *testing.T) {
	out, err := Shape{2, 3}.Append(Shape{2, 5})
	require.NoError(t, err)
	assert.Equal(t, Shape{2, 8}, out)

	_, err = Shape{2, 3}.Append(Shape{3, 3})
	assert.ErrorIs(t, err, ErrShapeMismatch)

	_, err = Shape{2, 3}.Append(Shape{3})
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestShape_CloneIsIndependent(t *testing.T) {
	s := Shape{2, 3}
	c := s.Clone()
	c[0] = 9
	assert.Equal(t, 2, s[0])
}
