package session

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeRejectsUnsupportedSchemaVersion(t *testing.T) {
	_, err := Decode([]byte{99})
	require.ErrorIs(t, err, ErrUnsupportedSchema)
}

func TestEncodeRejectsOversizedField(t *testing.T) {
	sess := testSession()
	sess.UserEmail = strings.Repeat("a", 256)

	_, err := Encode(sess)
	require.ErrorIs(t, err, ErrFieldTooLong)
	require.ErrorIs(t, CheckEncodable(sess), ErrFieldTooLong)

	sess.UserEmail = strings.Repeat("a", MaxFieldLength)
	require.NoError(t, CheckEncodable(sess))
}

func TestEncodeKeepsTokenIDsAtFront(t *testing.T) {
	data, err := Encode(testSession())
	require.NoError(t, err)

	require.Equal(t, byte(CurrentSchemaVersion), data[0])
	require.Equal(t, byte(len("at-1")), data[1])
	require.Equal(t, "at-1", string(data[2:6]))
	require.Equal(t, byte(len("rt-1")), data[6])
	require.Equal(t, "rt-1", string(data[7:11]))
}

func TestDecodeRejectsTrailingBytes(t *testing.T) {
	data, err := Encode(testSession())
	require.NoError(t, err)

	_, err = Decode(append(data, 0))
	require.Error(t, err)
}

// FuzzSessionDecode feeds arbitrary bytes to Decode. It must never panic,
// and anything it accepts must survive a re-encode unchanged.
func FuzzSessionDecode(f *testing.F) {
	encoded, err := Encode(testSession())
	if err != nil {
		f.Fatal(err)
	}

	f.Add(encoded)
	f.Add([]byte{})
	f.Add([]byte{0})
	f.Add([]byte{1})
	f.Add([]byte{255, 255, 255})
	f.Add(encoded[:10])

	f.Fuzz(func(t *testing.T, data []byte) {
		s, err := Decode(data)
		if err != nil {
			return
		}
		again, err := Encode(s)
		if err != nil {
			t.Fatalf("re-encode failed: %v", err)
		}
		if string(again) != string(data) {
			t.Fatal("re-encode changed the blob")
		}
	})
}
