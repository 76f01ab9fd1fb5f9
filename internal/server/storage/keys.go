package storage

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

const maxNameLen = 100

// NewKey returns a fresh object key of the form
// uploads/{owner|anonymous}/YYYY/MM/DD/{uuid}-{name}.
func NewKey(ownerID, filename string, now time.Time) string {
	if ownerID == "" {
		ownerID = "anonymous"
	}
	now = now.UTC()
	return fmt.Sprintf("uploads/%s/%04d/%02d/%02d/%s-%s",
		ownerID, now.Year(), int(now.Month()), now.Day(), uuid.New(), SanitizeName(filename))
}

// SanitizeName keeps [A-Za-z0-9._-], turns whitespace into '-' and drops
// everything else. The result is at most 100 bytes and never empty.
func SanitizeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
		case r == '.' || r == '_' || r == '-':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteByte('-')
		}
		if b.Len() >= maxNameLen {
			break
		}
	}
	s := b.String()
	if len(s) > maxNameLen {
		s = s[:maxNameLen]
	}
	if s == "" {
		s = "file"
	}
	return s
}

// ContentDisposition renders an attachment header value for filename.
func ContentDisposition(filename string) string {
	clean := strings.Map(func(r rune) rune {
		if r == '"' || r == '\\' || r < 0x20 {
			return -1
		}
		return r
	}, filename)
	return fmt.Sprintf("attachment; filename=\"%s\"", clean)
}
