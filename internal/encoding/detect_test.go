package encoding_test

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elpasofurniture/invoicer/internal/encoding"
)

func readAll(t *testing.T, input []byte) string {
	t.Helper()

	r, err := encoding.NewUTF8Reader(bytes.NewReader(input))
	require.NoError(t, err)

	got, err := io.ReadAll(r)
	require.NoError(t, err)

	return string(got)
}

func TestNewUTF8Reader(t *testing.T) {
	type testCase struct {
		name  string
		input []byte
		want  string
	}

	tests := []testCase{
		{
			name:  "UTF8Passthrough",
			input: []byte(`{"name":"José Peña","city":"Ciudad Juárez"}`),
			want:  `{"name":"José Peña","city":"Ciudad Juárez"}`,
		},
		{
			// ñ = 0xF1 in Windows-1252
			name:  "Windows1252",
			input: []byte{'{', '"', 'n', '"', ':', '"', 'P', 'e', 0xF1, 'a', '"', '}'},
			want:  `{"n":"Peña"}`,
		},
		{
			name:  "UTF8BOMStripped",
			input: append([]byte{0xEF, 0xBB, 0xBF}, []byte(`{"n":"Peña"}`)...),
			want:  `{"n":"Peña"}`,
		},
		{
			name:  "UTF16LE",
			input: []byte{0xFF, 0xFE, '{', 0, '}', 0},
			want:  `{}`,
		},
		{
			name:  "Empty",
			input: nil,
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, readAll(t, tt.input))
		})
	}
}

func TestNewUTF8Reader_LongBody(t *testing.T) {
	body := `{"notes":"` + strings.Repeat("Entrega a domicilio. ", 400) + `"}`

	assert.Equal(t, body, readAll(t, []byte(body)))
}

func TestDecodeJSON(t *testing.T) {
	var got struct {
		Name string `json:"name"`
	}

	input := []byte{'{', '"', 'n', 'a', 'm', 'e', '"', ':', '"', 'M', 'u', 0xF1, 'o', 'z', '"', '}'}

	require.NoError(t, encoding.DecodeJSON(bytes.NewReader(input), &got))
	assert.Equal(t, "Muñoz", got.Name)

	err := encoding.DecodeJSON(strings.NewReader("{not json"), &got)
	assert.Error(t, err)
}
