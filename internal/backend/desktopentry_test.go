package backend

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const zedEntry = `[Desktop Entry]
Version=1.0
Type=Application
Name=Zed
GenericName=Text Editor
Comment=A high-performance, multiplayer code editor.
TryExec=zed
StartupNotify=true
Exec=zed %U
Icon=zed
Categories=Utility;TextEditor;Development;IDE;
Name[zh_CN]=Zed 编辑器
Keywords=zed;

[Desktop Action NewWorkspace]
Exec=zed --new %U
Name=Open a new workspace
`

func TestParseDesktopEntry(t *testing.T) {
	entry, err := parseDesktopEntry(zedEntry)
	require.NoError(t, err)

	assert.Equal(t, "Application", entry.Type)
	assert.Equal(t, "Zed", entry.Name)
	assert.Equal(t, "zed %U", entry.Exec)
	assert.Equal(t, "zed", entry.Icon)
	assert.Equal(t, "A high-performance, multiplayer code editor.", entry.Comment)
	assert.Equal(t, "Utility;TextEditor;Development;IDE;", entry.Categories)
	assert.Equal(t, map[string]string{"zh_CN": "Zed 编辑器"}, entry.LocalizedNames)
	assert.True(t, entry.listed())
}

func TestParseDesktopEntry_ActionGroupIgnored(t *testing.T) {
	entry, err := parseDesktopEntry(zedEntry)
	require.NoError(t, err)

	// The action group's Exec must not clobber the main group's.
	assert.Equal(t, "zed %U", entry.Exec)
}

func TestParseDesktopEntry_MissingMainGroup(t *testing.T) {
	_, err := parseDesktopEntry("[Desktop Action Foo]\nName=Foo\n")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformedSource))
}

func TestParseDesktopEntry_GarbageLine(t *testing.T) {
	_, err := parseDesktopEntry("[Desktop Entry]\nName=Ok\nthis is not a key\n")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformedSource))
}

func TestParseDesktopEntry_CommentsAndBlanks(t *testing.T) {
	entry, err := parseDesktopEntry("# header comment\n\n[Desktop Entry]\n# inline\nType=Application\nName=App\nExec=/bin/app\n")
	require.NoError(t, err)
	assert.Equal(t, "App", entry.Name)
}

func TestListed_Exclusions(t *testing.T) {
	tests := []struct {
		name  string
		entry desktopEntry
		want  bool
	}{
		{"visible app", desktopEntry{Type: "Application", Name: "A", Exec: "a"}, true},
		{"no display", desktopEntry{Type: "Application", Name: "A", Exec: "a", NoDisplay: true}, false},
		{"hidden", desktopEntry{Type: "Application", Name: "A", Exec: "a", Hidden: true}, false},
		{"link type", desktopEntry{Type: "Link", Name: "A", Exec: "a"}, false},
		{"missing exec", desktopEntry{Type: "Application", Name: "A"}, false},
		{"missing name", desktopEntry{Type: "Application", Exec: "a"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.entry.listed())
		})
	}
}

func TestExecCommand(t *testing.T) {
	tests := []struct {
		exec string
		want string
	}{
		{"zed %U", "zed"},
		{"/usr/bin/code --no-sandbox %F", "/usr/bin/code"},
		{`"vlc" %f`, "vlc"},
		{`"/opt/My App/run" %U`, "/opt/My App/run"},
		{`"/opt/Odd=Name/run" --flag`, "/opt/Odd=Name/run"},
		{"env FOO=bar vlc", "vlc"},
		{"%U", ""},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, execCommand(tt.exec), "exec %q", tt.exec)
	}
}

func TestResolveExecutable_Absolute(t *testing.T) {
	dir := t.TempDir()
	exe := filepath.Join(dir, "tool")
	require.NoError(t, os.WriteFile(exe, []byte("#!/bin/sh\n"), 0o755))

	assert.Equal(t, exe, resolveExecutable(exe))
	assert.Equal(t, "", resolveExecutable(filepath.Join(dir, "missing")))
}

func TestResolveExecutable_QuotedPathWithSpaces(t *testing.T) {
	dir := t.TempDir()
	exe := filepath.Join(dir, "My App", "run")
	require.NoError(t, os.MkdirAll(filepath.Dir(exe), 0o755))
	require.NoError(t, os.WriteFile(exe, []byte("#!/bin/sh\n"), 0o755))

	assert.Equal(t, exe, resolveExecutable(execCommand(`"`+exe+`" %U`)))
}

func TestResolveExecutable_PathLookup(t *testing.T) {
	dir := t.TempDir()
	exe := filepath.Join(dir, "scout-tool")
	require.NoError(t, os.WriteFile(exe, []byte("#!/bin/sh\n"), 0o755))
	t.Setenv("PATH", dir)

	assert.Equal(t, exe, resolveExecutable("scout-tool"))
	assert.Equal(t, "", resolveExecutable("scout-absent"))
}
