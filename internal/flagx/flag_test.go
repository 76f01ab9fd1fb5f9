package flagx

import (
	"flag"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		allowed []string
		want    []string
	}{
		{
			name:    "separate value",
			args:    []string{"-c", "conf.json", "-a", "localhost"},
			allowed: []string{"-c"},
			want:    []string{"-c", "conf.json"},
		},
		{
			name:    "equals form",
			args:    []string{"-config=alt.json", "-a", "localhost"},
			allowed: []string{"-config"},
			want:    []string{"-config=alt.json"},
		},
		{
			name:    "unknown flags ignored",
			args:    []string{"-x", "1", "--y=2", "positional"},
			allowed: []string{"-c"},
			want:    []string{},
		},
		{
			name:    "dash token is not a value",
			args:    []string{"-c", "-d", "dsn"},
			allowed: []string{"-c", "-d"},
			want:    []string{"-c", "-d", "dsn"},
		},
		{
			name:    "trailing flag without value",
			args:    []string{"-h", "0.0.0.0:8080", "-c"},
			allowed: []string{"-c", "-h"},
			want:    []string{"-h", "0.0.0.0:8080", "-c"},
		},
		{
			name:    "repeated flag preserved",
			args:    []string{"-admin", "a@x.io", "-admin", "b@x.io"},
			allowed: []string{"-admin"},
			want:    []string{"-admin", "a@x.io", "-admin", "b@x.io"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FilterArgs(tt.args, tt.allowed))
		})
	}
}

func TestJsonConfigFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	os.Args = []string{"vaultdrop", "-a", ":50051", "-c", "/etc/vaultdrop.json"}
	assert.Equal(t, "/etc/vaultdrop.json", JsonConfigFlags())

	os.Args = []string{"vaultdrop", "-config=/tmp/alt.json"}
	assert.Equal(t, "/tmp/alt.json", JsonConfigFlags())

	os.Args = []string{"vaultdrop", "-x", "1"}
	assert.Empty(t, JsonConfigFlags())
}

func TestStringList(t *testing.T) {
	var l StringList
	fs := flag.NewFlagSet("t", flag.ContinueOnError)
	fs.Var(&l, "admin", "admin emails")

	require.NoError(t, fs.Parse([]string{"-admin", "a@x.io, b@x.io", "-admin", "c@x.io", "-admin", " "}))
	assert.Equal(t, StringList{"a@x.io", "b@x.io", "c@x.io"}, l)
	assert.Equal(t, "a@x.io,b@x.io,c@x.io", l.String())
}
