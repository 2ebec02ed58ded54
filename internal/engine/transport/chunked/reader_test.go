package chunked

import (
	"bufio"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	cases := map[string]struct {
		in   string
		want string
	}{
		"SingleChunk":   {"5\r\nhello\r\n0\r\n\r\n", "hello"},
		"MultipleChunk": {"3\r\nfoo\r\n3\r\nbar\r\n0\r\n\r\n", "foobar"},
		"HexSizes":      {"a\r\n0123456789\r\nA\r\nabcdefghij\r\n0\r\n\r\n", "0123456789abcdefghij"},
		"Extensions":    {"5;ext=1\r\nhello\r\n0\r\n\r\n", "hello"},
		"EmptyBody":     {"0\r\n\r\n", ""},
	}
	for name, tc := range cases {
		tc := tc
		t.Run(name, func(t *testing.T) {
			out, err := io.ReadAll(NewReader(strings.NewReader(tc.in)))
			require.NoError(t, err)
			assert.Equal(t, tc.want, string(out))
		})
	}
}

func TestTrailersConsumed(t *testing.T) {
	raw := "5\r\nhello\r\n0\r\nX-Trailer: 1\r\n\r\nNEXT"
	br := bufio.NewReader(strings.NewReader(raw))

	out, err := io.ReadAll(NewReader(br))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(out))

	// the reader must stop exactly after the trailer section
	rest, err := io.ReadAll(br)
	require.NoError(t, err)
	assert.Equal(t, "NEXT", string(rest))
}

func TestMalformed(t *testing.T) {
	cases := map[string]string{
		"BadSizeDigit":    "5q\r\nhello\r\n0\r\n\r\n",
		"MissingChunkLF":  "5\r\nhelloXX0\r\n\r\n",
		"TruncatedChunk":  "5\r\nhe",
		"TruncatedSize":   "5",
		"EmptySizeLine":   "\r\nhello\r\n",
		"OversizedLength": "11111111111111111\r\n",
		"SignBitOverflow": "ffffffffffffffff\r\nhello\r\n0\r\n\r\n",
	}
	for name, in := range cases {
		in := in
		t.Run(name, func(t *testing.T) {
			_, err := io.ReadAll(NewReader(strings.NewReader(in)))
			assert.Error(t, err)
		})
	}
}

func TestChunkSizeBounds(t *testing.T) {
	size, err := parseHex([]byte("fffffffffffffff")) // 15 digits, largest accepted
	require.NoError(t, err)
	assert.Equal(t, int64(1)<<60-1, size)

	// one more digit would shift into the sign bit
	_, err = parseHex([]byte("ffffffffffffffff"))
	assert.Error(t, err)
}

func TestReadAfterDoneIsEOF(t *testing.T) {
	r := NewReader(strings.NewReader("2\r\nhi\r\n0\r\n\r\n"))
	buf := make([]byte, 8)
	n, err := r.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "hi", string(buf[:n]))

	_, err = r.Read(buf)
	assert.Equal(t, io.EOF, err)
	_, err = r.Read(buf)
	assert.Equal(t, io.EOF, err)
}
