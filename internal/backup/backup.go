package backup

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	ErrNotFound    = errors.New("backup not found")
	ErrInvalidName = errors.New("invalid backup filename")
)

const (
	filePrefix = "backup_"
	fileExt    = ".db"

	stampLayout = "2006-01-02T15:04:05.000Z"
)

var (
	namePattern = regexp.MustCompile(`^backup_\d{4}-\d{2}-\d{2}T\d{2}-\d{2}-\d{2}-\d{3}Z\.db$`)
	stampToName = strings.NewReplacer(":", "-", ".", "-")
)

// Record describes one snapshot on disk.
type Record struct {
	Filename  string    `json:"filename"`
	SizeBytes int64     `json:"size"`
	CreatedAt time.Time `json:"created"`
}

// Filename names a snapshot taken at t, e.g.
// backup_2024-03-09T16-04-05-123Z.db. Names sort in creation order.
func Filename(t time.Time) string {
	return filePrefix + stampToName.Replace(t.UTC().Format(stampLayout)) + fileExt
}

// ValidName reports whether name is exactly a snapshot filename. Anything
// with a path component fails.
func ValidName(name string) bool {
	return namePattern.MatchString(name)
}

// ParseFilename recovers the creation time embedded in a snapshot name.
func ParseFilename(name string) (time.Time, error) {
	if !ValidName(name) {
		return time.Time{}, ErrInvalidName
	}

	stamp := strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileExt)

	t, err := time.Parse("2006-01-02T15-04-05", stamp[:19])
	if err != nil {
		return time.Time{}, ErrInvalidName
	}

	ms, err := strconv.Atoi(stamp[20:23])
	if err != nil {
		return time.Time{}, ErrInvalidName
	}

	return t.Add(time.Duration(ms) * time.Millisecond), nil
}
