package engine

import (
	"maps"
	"strconv"
	"strings"
	"time"

	"github.com/islishude/tarriball"
)

const metadataPrefix = "tarriball-"

// s3MetadataLimit stays below the 2KB S3 user metadata cap to leave room
// for encoding overhead.
const s3MetadataLimit = 1500

// headerToS3Metadata keeps the member attributes S3 has no field for. The
// second result is false when the metadata is likely too large for S3.
func headerToS3Metadata(hdr tarriball.Header) (map[string]string, bool) {
	meta := map[string]string{
		metadataPrefix + "type":  string(hdr.Type()),
		metadataPrefix + "mode":  strconv.FormatInt(hdr.Mode, 8),
		metadataPrefix + "uid":   strconv.FormatInt(hdr.UID, 10),
		metadataPrefix + "gid":   strconv.FormatInt(hdr.GID, 10),
		metadataPrefix + "mtime": strconv.FormatInt(hdr.ModTime, 10),
	}
	if hdr.Linkname != "" {
		meta[metadataPrefix+"linkname"] = hdr.Linkname
	}
	total := 0
	for k, v := range meta {
		total += len(k) + len(v)
	}
	return meta, total <= s3MetadataLimit
}

// entryInfoFromS3Metadata restores member attributes written by
// headerToS3Metadata. Objects without them become 0644 files stamped with
// their last-modified time.
func entryInfoFromS3Metadata(name string, meta map[string]string, lastModified time.Time) tarriball.EntryInfo {
	info := tarriball.EntryInfo{Path: name, Mode: tarriball.DefaultFileMode, ModTime: lastModified}
	if v, ok := lookupMetadata(meta, "mode"); ok {
		if mode, err := strconv.ParseInt(v, 8, 64); err == nil {
			info.Mode = tarriball.DecodeMode(mode)
		}
	}
	if v, ok := lookupMetadata(meta, "uid"); ok {
		if uid, err := strconv.Atoi(v); err == nil {
			info.UID = uid
		}
	}
	if v, ok := lookupMetadata(meta, "gid"); ok {
		if gid, err := strconv.Atoi(v); err == nil {
			info.GID = gid
		}
	}
	if v, ok := lookupMetadata(meta, "mtime"); ok {
		if mt := parseMTime(v); !mt.IsZero() {
			info.ModTime = mt
		}
	}
	return info
}

// lookupMetadata ignores key case; S3 returns user metadata keys lower-cased
// but other stores may not.
func lookupMetadata(meta map[string]string, field string) (string, bool) {
	for k, v := range meta {
		if strings.EqualFold(k, metadataPrefix+field) {
			return v, true
		}
	}
	return "", false
}

func parseMTime(v string) time.Time {
	t, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(t, 0)
}

func mergeMetadata(base, overlay map[string]string) map[string]string {
	if len(base) == 0 && len(overlay) == 0 {
		return nil
	}
	out := make(map[string]string, len(base)+len(overlay))
	maps.Copy(out, base)
	maps.Copy(out, overlay)
	return out
}
