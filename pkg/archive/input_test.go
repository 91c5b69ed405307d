package archive

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"

	"github.com/lk2023060901/archive-go/pkg/util/merr"
)

// countingDecoder serves endless zero values and counts the reads.
type countingDecoder struct {
	values int
	sizes  int
}

func (d *countingDecoder) BeginGroup(string, GroupKind) error { return nil }

func (d *countingDecoder) EndGroup() error { return nil }

func (d *countingDecoder) ReadValue(_ string, k Kind) (Scalar, error) {
	d.values++
	return IntScalar(k, 0), nil
}

func (d *countingDecoder) ReadSize() (uint64, error) {
	d.sizes++
	return 0, nil
}

func TestPoisonedInputStopsReading(t *testing.T) {
	dec := &countingDecoder{}
	in := NewInput(dec)
	errBroken := merr.WrapErrFormat("int", "string")
	in.fail(errBroken)

	_, err := in.readSize()
	assert.True(t, errors.Is(err, merr.ErrFormat))
	_, err = in.readValue("n", KindInt)
	assert.True(t, errors.Is(err, merr.ErrFormat))
	assert.Zero(t, dec.sizes)
	assert.Zero(t, dec.values)

	var xs []int
	assert.True(t, errors.Is(in.Load(&xs), merr.ErrFormat))
	assert.Zero(t, dec.sizes)
}

func TestCheckCountWithoutProgress(t *testing.T) {
	in := NewInput(&countingDecoder{})
	_, tracked := in.offset()
	assert.False(t, tracked)
	assert.NoError(t, in.checkCount(maxWidthlessElements, 0))
}
