package engine

import (
	"fmt"
	"path"
	"strings"
	"time"
)

// AddTarSuffix inserts "-<suffix>" before the archive extension of a
// slash-separated name. The suffix "date" expands to now in 20060102 form.
func AddTarSuffix(fileName, suffix string, now time.Time) string {
	if suffix == "" {
		return fileName
	}
	dir, base := path.Split(fileName)
	ext := path.Ext(base)
	// don't add suffix if the file is a hidden name
	if ext == base {
		return fileName
	}
	if strings.HasSuffix(base, ".tar"+ext) {
		ext = ".tar" + ext
	}
	stem := strings.TrimSuffix(base, ext)
	if suffix == "date" {
		suffix = now.Format("20060102")
	}
	return dir + fmt.Sprintf("%s-%s%s", stem, suffix, ext)
}
