package recorder

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// GeneratePath names a recording under dir from its start time, adding
// a numeric suffix while the name is taken.
func GeneratePath(dir string, now time.Time) string {
	base := "Manual_" + now.Format("20060102T150405")
	path := filepath.Join(dir, base+".mp4")
	for n := 1; fileExists(path); n++ {
		path = filepath.Join(dir, fmt.Sprintf("%s_%d.mp4", base, n))
	}
	return path
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
