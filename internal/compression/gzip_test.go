package compression

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGzipRoundTrip(t *testing.T) {
	t.Parallel()

	payload := strings.Repeat(`{"expression":"*/5 * * * *"}`, 200)

	var packed bytes.Buffer
	n, err := Gzip(&packed, strings.NewReader(payload))
	require.NoError(t, err)
	assert.Equal(t, int64(len(payload)), n)
	assert.Less(t, packed.Len(), len(payload))

	var out bytes.Buffer
	n, err = Gunzip(&out, &packed)
	require.NoError(t, err)
	assert.Equal(t, int64(len(payload)), n)
	assert.Equal(t, payload, out.String())
}

func TestGunzipRejectsPlainText(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	_, err := Gunzip(&out, strings.NewReader("not gzip"))
	assert.Error(t, err)
}
