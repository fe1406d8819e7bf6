package mix

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// audioExtensions is the whitelist of containers accepted for local
// sources and background tracks.
var audioExtensions = []string{".wav", ".mp3", ".m4a", ".aac", ".flac", ".ogg", ".opus"}

func hasAudioExt(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range audioExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// FindBackground locates the background track for a slot by the fixed
// naming convention background_audiofile_0<i>.<ext>. Extensions are tried
// in whitelist order and the first hit wins. A missing background is not
// an error; the slot simply plays without one.
func FindBackground(dir string, index int) (string, bool) {
	base := fmt.Sprintf("background_audiofile_%02d", index)
	for _, ext := range audioExtensions {
		p := filepath.Join(dir, base+ext)
		if st, err := os.Stat(p); err == nil && !st.IsDir() {
			return p, true
		}
	}
	return "", false
}
