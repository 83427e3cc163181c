// Package fingerprint derives the content-addressed identity of a credential:
// the SHA-256 fingerprint over its immutable payload fields, and the
// human-readable access code handed to the student.
package fingerprint

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"attest/internal/credential/models"
)

const fieldSeparator = "\x1f"

// Compute returns the 64-hex-character SHA-256 digest of the payload's
// identity-bearing fields and the issuance timestamp. The same payload and
// timestamp always produce the same digest; the digest never changes after
// issuance.
func Compute(payload models.AcademicPayload, issuedAt time.Time) string {
	parts := []string{
		payload.StudentName,
		payload.StudentEmail,
		payload.RollNumber,
		payload.Program,
		payload.Department,
		strconv.Itoa(payload.YearOfPassing),
		payload.CGPA,
	}
	for _, g := range payload.Grades {
		parts = append(parts, g.Course, g.Grade, strconv.Itoa(g.Credit))
	}
	parts = append(parts, payload.Skills...)
	parts = append(parts, payload.Achievements...)
	parts = append(parts, strconv.FormatInt(issuedAt.UTC().UnixNano(), 10))

	sum := sha256.Sum256([]byte(strings.Join(parts, fieldSeparator)))
	return hex.EncodeToString(sum[:])
}

const randomCodeLength = 6

var codeAlphabet = []byte("0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ")

// NewAccessCode builds an access code of the form
// <ORG>-<YEAR>-<base36 time component>-<random component>.
// Uniqueness is enforced by the store; on a duplicate the caller regenerates
// with fresh randomness rather than failing.
func NewAccessCode(orgCode string, now time.Time) string {
	timeComponent := strings.ToUpper(strconv.FormatInt(now.UnixMilli(), 36))
	return fmt.Sprintf("%s-%d-%s-%s",
		strings.ToUpper(strings.TrimSpace(orgCode)),
		now.Year(),
		timeComponent,
		randomComponent(),
	)
}

func randomComponent() string {
	buf := make([]byte, randomCodeLength)
	if _, err := rand.Read(buf); err != nil {
		panic("fingerprint: crypto/rand unavailable: " + err.Error())
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(buf)
}
