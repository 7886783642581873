package checksum_test

import (
	"bytes"
	"strings"
	"testing"

	. "github.com/pseudomuto/sqlchanges/pkg/checksum"
	"github.com/stretchr/testify/require"
)

func TestSum(t *testing.T) {
	t.Run("NewSum creates empty structure", func(t *testing.T) {
		sum := NewSum()
		require.Equal(t, 0, sum.Files())
		require.Empty(t, sum.Total())
	})

	t.Run("Total matches Combine over the file hashes", func(t *testing.T) {
		sum := NewSum()
		h1 := sum.AddFile("001_create_users.sql", []byte("CREATE TABLE users (id INT);"))
		h2 := sum.AddFile("002_create_orders.sql", []byte("CREATE TABLE orders (id INT);"))

		require.Equal(t, 2, sum.Files())
		require.Equal(t, []string{h1, h2}, sum.Hashes())
		require.Equal(t, Combine(h1, h2), sum.Total())
	})

	t.Run("different order produces different totals", func(t *testing.T) {
		s1 := NewSum()
		s1.AddFile("a.sql", []byte("a"))
		s1.AddFile("b.sql", []byte("b"))

		s2 := NewSum()
		s2.AddFile("b.sql", []byte("b"))
		s2.AddFile("a.sql", []byte("a"))

		require.NotEqual(t, s1.Total(), s2.Total())
	})

	t.Run("WriteTo outputs correct format", func(t *testing.T) {
		sum := NewSum()
		sum.AddFile("001_create_users.sql", []byte("CREATE TABLE users;"))
		sum.AddFile("002_create_orders.sql", []byte("CREATE TABLE orders;"))

		var buf bytes.Buffer
		n, err := sum.WriteTo(&buf)
		require.NoError(t, err)
		require.Equal(t, int64(buf.Len()), n)

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		require.Len(t, lines, 3)
		require.Equal(t, sum.Total(), lines[0])
		require.True(t, strings.HasPrefix(lines[1], "001_create_users.sql h1:"))
		require.True(t, strings.HasPrefix(lines[2], "002_create_orders.sql h1:"))
	})

	t.Run("empty sum writes a single newline", func(t *testing.T) {
		var buf bytes.Buffer
		n, err := NewSum().WriteTo(&buf)
		require.NoError(t, err)
		require.Equal(t, int64(1), n)
		require.Equal(t, "\n", buf.String())
	})
}

func TestLoadSum(t *testing.T) {
	t.Run("round trips WriteTo output", func(t *testing.T) {
		sum := NewSum()
		sum.AddFile("001_create users.sql", []byte("CREATE TABLE users;"))
		sum.AddFile("002_create_orders.sql", []byte("CREATE TABLE orders;"))

		var buf bytes.Buffer
		_, err := sum.WriteTo(&buf)
		require.NoError(t, err)

		loaded, err := LoadSum(&buf)
		require.NoError(t, err)
		require.Equal(t, sum.Entries(), loaded.Entries())
		require.Equal(t, sum.Total(), loaded.Total())
	})

	t.Run("empty input", func(t *testing.T) {
		loaded, err := LoadSum(strings.NewReader(""))
		require.NoError(t, err)
		require.Equal(t, 0, loaded.Files())
	})

	tests := []struct {
		name  string
		input string
		err   string
	}{
		{name: "bad total", input: "nope\n", err: "invalid total hash format"},
		{name: "bad entry", input: Bytes([]byte("x")) + "\nonlyname\n", err: "invalid file entry format"},
		{name: "bad entry hash", input: Bytes([]byte("x")) + "\na.sql sha:abc\n", err: "invalid hash format for file a.sql"},
		{name: "tampered total", input: Bytes([]byte("x")) + "\na.sql " + Bytes([]byte("a")) + "\n", err: "total hash mismatch"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadSum(strings.NewReader(tt.input))
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.err)
		})
	}
}
