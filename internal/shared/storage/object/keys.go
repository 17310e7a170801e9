package object

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"path"
	"strings"
	"time"
)

const (
	rawPrefix  = "resumes/raw/"
	textPrefix = "resumes/text/"
)

// RawKey builds the storage key for an uploaded resume:
// resumes/raw/<user>_<job>_<unix-nanos>_<rand><ext>.
func RawKey(userID, jobID, fileName string, now time.Time) string {
	return fmt.Sprintf("%s%s_%s_%d_%s%s", rawPrefix, userID, jobID, now.UnixNano(), randomID(), Ext(fileName))
}

// TextKey maps a raw key to the key of its extracted text. It is stable for a
// given raw key so retries find text written by earlier attempts.
func TextKey(rawKey string) string {
	return textPrefix + path.Base(rawKey) + ".txt"
}

// Ext returns the lower-cased extension of fileName, or "" when it has none
// or it is not a plain alphanumeric suffix.
func Ext(fileName string) string {
	ext := strings.ToLower(path.Ext(strings.ReplaceAll(fileName, "\\", "/")))
	if len(ext) < 2 || len(ext) > 10 {
		return ""
	}
	for _, ch := range ext[1:] {
		if !((ch >= 'a' && ch <= 'z') || (ch >= '0' && ch <= '9')) {
			return ""
		}
	}
	return ext
}

func randomID() string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return fmt.Sprintf("%x", time.Now().UnixNano())
	}
	return hex.EncodeToString(b[:])
}
