package fingerprint

import (
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attest/internal/credential/models"
)

func samplePayload() models.AcademicPayload {
	return models.AcademicPayload{
		StudentName:   "Asha Verma",
		StudentEmail:  "asha@example.edu",
		RollNumber:    "CS-2021-042",
		Program:       "B.Tech Computer Science",
		Department:    "CSE",
		YearOfPassing: 2025,
		CGPA:          "9.1",
		Grades: []models.GradeEntry{
			{Course: "Algorithms", Grade: "A", Credit: 4},
			{Course: "Databases", Grade: "A-", Credit: 3},
		},
		Skills:       []string{"Go", "Distributed Systems"},
		Achievements: []string{"Dean's List 2024"},
	}
}

func TestCompute_Deterministic(t *testing.T) {
	issuedAt := time.Date(2025, 6, 1, 10, 30, 0, 0, time.UTC)
	first := Compute(samplePayload(), issuedAt)
	second := Compute(samplePayload(), issuedAt)
	assert.Equal(t, first, second)
}

func TestCompute_Shape(t *testing.T) {
	fp := Compute(samplePayload(), time.Now())
	require.Len(t, fp, 64)
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{64}$`), fp)
}

func TestCompute_SensitiveToPayload(t *testing.T) {
	issuedAt := time.Date(2025, 6, 1, 10, 30, 0, 0, time.UTC)
	base := Compute(samplePayload(), issuedAt)

	changed := samplePayload()
	changed.CGPA = "9.2"
	assert.NotEqual(t, base, Compute(changed, issuedAt))

	reordered := samplePayload()
	reordered.Skills = []string{"Distributed Systems", "Go"}
	assert.NotEqual(t, base, Compute(reordered, issuedAt))
}

func TestCompute_SensitiveToTimestamp(t *testing.T) {
	issuedAt := time.Date(2025, 6, 1, 10, 30, 0, 0, time.UTC)
	assert.NotEqual(t,
		Compute(samplePayload(), issuedAt),
		Compute(samplePayload(), issuedAt.Add(time.Nanosecond)),
	)
}

func TestCompute_FieldBoundaries(t *testing.T) {
	// "ab"+"c" and "a"+"bc" must not collide via naive concatenation.
	issuedAt := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	a := samplePayload()
	a.StudentName = "ab"
	a.StudentEmail = "c"
	b := samplePayload()
	b.StudentName = "a"
	b.StudentEmail = "bc"
	assert.NotEqual(t, Compute(a, issuedAt), Compute(b, issuedAt))
}

func TestNewAccessCode_Shape(t *testing.T) {
	now := time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)
	code := NewAccessCode("miT", now)

	parts := strings.Split(code, "-")
	require.Len(t, parts, 4)
	assert.Equal(t, "MIT", parts[0])
	assert.Equal(t, "2025", parts[1])
	assert.NotEmpty(t, parts[2])
	assert.Len(t, parts[3], randomCodeLength)
	assert.Equal(t, strings.ToUpper(code), code)
}

func TestNewAccessCode_FreshRandomness(t *testing.T) {
	now := time.Now()
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		code := NewAccessCode("MIT", now)
		assert.False(t, seen[code], "access code repeated with fresh randomness: %s", code)
		seen[code] = true
	}
}
