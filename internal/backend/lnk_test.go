package backend

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandEnvAliases(t *testing.T) {
	t.Setenv("SCOUT_ROOT", `C:\Program Files`)

	assert.Equal(t, `C:\Program Files\App\app.exe`, expandEnvAliases(`%SCOUT_ROOT%\App\app.exe`))
	assert.Equal(t, `C:\Program Files\App\app.exe`, expandEnvAliases(`%scout_root%\App\app.exe`))
}

func TestExpandEnvAliases_UnsetStaysPut(t *testing.T) {
	assert.Equal(t, `%SCOUT_NO_SUCH_VAR%\app.exe`, expandEnvAliases(`%SCOUT_NO_SUCH_VAR%\app.exe`))
}

func TestExpandEnvAliases_NoAliases(t *testing.T) {
	assert.Equal(t, `C:\plain\path.exe`, expandEnvAliases(`C:\plain\path.exe`))
	assert.Equal(t, "", expandEnvAliases(""))
}

func TestSplitIconLocation(t *testing.T) {
	tests := []struct {
		loc      string
		wantPath string
		wantIdx  int
	}{
		{`C:\app\app.exe,0`, `C:\app\app.exe`, 0},
		{`C:\app\shell32.dll,13`, `C:\app\shell32.dll`, 13},
		{`C:\app\app.ico`, `C:\app\app.ico`, 0},
		{`"C:\app\app.exe",2`, `C:\app\app.exe`, 2},
		{`"C:\app\app.exe"`, `C:\app\app.exe`, 0},
		{`C:\app\weird,name.ico,3`, `C:\app\weird,name.ico`, 3},
		{"", "", 0},
	}
	for _, tt := range tests {
		path, idx := splitIconLocation(tt.loc)
		assert.Equal(t, tt.wantPath, path, "loc %q", tt.loc)
		assert.Equal(t, tt.wantIdx, idx, "loc %q", tt.loc)
	}
}

func TestSplitIconLocation_NonNumericIndex(t *testing.T) {
	path, idx := splitIconLocation(`C:\app\odd,file.ico`)
	assert.Equal(t, `C:\app\odd,file.ico`, path)
	assert.Equal(t, 0, idx)
}

func TestStripExtendedPrefix(t *testing.T) {
	assert.Equal(t, `C:\app\app.exe`, stripExtendedPrefix(`\\?\C:\app\app.exe`))
	assert.Equal(t, `C:\app\app.exe`, stripExtendedPrefix(`C:\app\app.exe`))
}

func TestParseShortcut_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.lnk")
	require.NoError(t, os.WriteFile(path, []byte("not a shell link"), 0o644))

	_, err := parseShortcut(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformedSource))
}
