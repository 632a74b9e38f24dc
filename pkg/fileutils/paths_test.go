package fileutils

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestResolve(t *testing.T) {
	t.Parallel()

	base := t.TempDir()

	tests := []struct {
		name     string
		rel      string
		expected string
		unsafe   bool
	}{
		{"plain file", "clip.mp4", filepath.Join(base, "clip.mp4"), false},
		{"nested file", "a/b/clip.mp4", filepath.Join(base, "a", "b", "clip.mp4"), false},
		{"inner dot-dot stays inside", "a/../clip.mp4", filepath.Join(base, "clip.mp4"), false},
		{"parent escape", "../../etc/passwd", "", true},
		{"sibling prefix escape", "../" + filepath.Base(base) + "2/x.mp4", "", true},
		{"absolute path", "/etc/passwd", "", true},
		{"base itself", ".", "", true},
		{"empty", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := Resolve(base, tt.rel)
			if tt.unsafe {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrUnsafePath)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestResolve_RelativeBase(t *testing.T) {
	t.Parallel()

	got, err := Resolve("media/video", "clip.mp4")
	require.NoError(t, err)

	want, err := filepath.Abs(filepath.Join("media", "video", "clip.mp4"))
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = Resolve("media/video", "../audio/song.mp3")
	assert.ErrorIs(t, err, ErrUnsafePath)
}

func TestResolve_FilesystemRootBase(t *testing.T) {
	t.Parallel()

	for _, rel := range []string{"../../etc/passwd", "etc/passwd", "/etc/passwd", "clip.mp4"} {
		_, err := Resolve("/", rel)
		assert.ErrorIs(t, err, ErrUnsafePath, rel)
	}
}

func TestPropertyResolveNeverEscapes(t *testing.T) {
	t.Parallel()
	base := t.TempDir()
	prefix := base + string(filepath.Separator)

	rapid.Check(t, func(t *rapid.T) {
		rel := rapid.StringMatching(`(\.\.|\.|[a-z]{1,4}|/){0,8}`).Draw(t, "rel")

		got, err := Resolve(base, rel)
		if err != nil {
			return
		}
		if !strings.HasPrefix(got, prefix) {
			t.Fatalf("Resolve(%q, %q) = %q escapes the base", base, rel, got)
		}
	})
}

func TestPropertyResolveEscapeAlwaysFails(t *testing.T) {
	t.Parallel()
	rapid.Check(t, func(t *rapid.T) {
		depth := rapid.IntRange(1, 6).Draw(t, "depth")
		base := "/"
		if !rapid.Bool().Draw(t, "rootBase") {
			base += strings.Repeat("d/", rapid.IntRange(0, 4).Draw(t, "baseDepth")) + "root"
		}
		rel := strings.Repeat("../", depth) + "etc/passwd"

		if _, err := Resolve(base, rel); err == nil {
			t.Fatalf("Resolve(%q, %q) should fail", base, rel)
		}
	})
}

func TestRelativeSlashPath(t *testing.T) {
	t.Parallel()

	base := filepath.Join("srv", "media", "video")
	rel, err := RelativeSlashPath(base, filepath.Join(base, "a", "b.mp4"))
	require.NoError(t, err)
	assert.Equal(t, "a/b.mp4", rel)
}
