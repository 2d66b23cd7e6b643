package cli

import (
	"bufio"
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetSimpleText(t *testing.T) {
	in := bufio.NewReader(strings.NewReader("hello world\n"))
	var out bytes.Buffer
	got, err := GetSimpleText(in, "Name?", &out)
	if err != nil || got != "hello world" {
		t.Fatalf("got %q, err=%v", got, err)
	}
}

func TestGetSimpleTextEOF(t *testing.T) {
	in := bufio.NewReader(strings.NewReader("lastline"))
	var out bytes.Buffer
	got, err := GetSimpleText(in, "Name?", &out)
	if err != nil || got != "lastline" {
		t.Fatalf("got %q, err=%v", got, err)
	}
}

func TestGetPassword_Error(t *testing.T) {
	old := readPassword
	defer func() { readPassword = old }()
	readPassword = func(int) ([]byte, error) {
		return nil, errors.New("boom")
	}
	var out bytes.Buffer
	_, err := GetPassword(&out)
	if err == nil {
		t.Fatal("expected error")
	}
}

func rdr(s string) *bufio.Reader {
	return bufio.NewReader(strings.NewReader(s))
}

func TestGetOptionalText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		def   string
		want  string
	}{
		{name: "empty answer takes default", input: "\n", def: "creator", want: "creator"},
		{name: "answer overrides default", input: "subscriber\n", def: "creator", want: "subscriber"},
		{name: "no default", input: "\n", def: "", want: ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var out bytes.Buffer
			got, err := GetOptionalText(rdr(tc.input), "Role", tc.def, &out)
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
			if tc.def != "" {
				require.Contains(t, out.String(), "["+tc.def+"]")
			}
		})
	}
}

func TestGetOptionalText_EOF(t *testing.T) {
	var out bytes.Buffer
	_, err := GetOptionalText(rdr(""), "Role", "creator", &out)
	require.Error(t, err)
}
