package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTypes(t *testing.T) {
	{ // Name maps are case and separator insensitive
		d, err := NewDiscrepancyType("Mean_Squared-Error")
		assert.NoError(t, err)
		assert.Equal(t, MeanSquaredError, d)
		d, err = NewDiscrepancyType("")
		assert.NoError(t, err)
		assert.Equal(t, AverageDistance, d)
		_, err = NewDiscrepancyType("hausdorff")
		assert.Error(t, err)

		k, err := NewKernelType("RBF")
		assert.NoError(t, err)
		assert.Equal(t, Gaussian, k)
		assert.Equal(t, "Gaussian", k.String())

		s, err := NewSamplerType("random surface")
		assert.NoError(t, err)
		assert.Equal(t, RandomSurface, s)
	}
	{ // Structured errors match their sentinels through wrapping
		err := fmt.Errorf("item %q: %w", "a", NewDomainMismatch("vertex count", 10, 9))
		assert.True(t, errors.Is(err, ErrDomainMismatch))
		assert.False(t, errors.Is(err, ErrInsufficientData))
		var dm *DomainMismatchError
		assert.True(t, errors.As(err, &dm))
		assert.Equal(t, 10, dm.Expected)
		assert.Equal(t, 9, dm.Actual)

		err = NewInsufficientData("pca items", 2, 1)
		assert.True(t, errors.Is(err, ErrInsufficientData))
		assert.Contains(t, err.Error(), "need at least 2, got 1")
	}
}
