package classroom

import (
	"context"
	"errors"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/educonnectpro/educonnect/core/user"
)

func TestGenerateClassCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		code, err := GenerateClassCode()
		require.NoError(t, err)
		require.Len(t, code, codeLength)
		for _, r := range code {
			assert.True(t, strings.ContainsRune(codeAlphabet, r), "unexpected %q in %s", r, code)
		}
		seen[code] = true
	}
	assert.Greater(t, len(seen), 190)

	randReader = iotest.ErrReader(errors.New("no entropy"))
	defer func() { randReader = defaultRandReader }()
	_, err := GenerateClassCode()
	assert.Error(t, err)
}

func TestNormalizeClassCode(t *testing.T) {
	tests := map[string]string{
		"abc234":    "ABC234",
		" ab c2 34": "ABC234",
		"ABC234\n":  "ABC234",
		"":          "",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeClassCode(in), in)
	}
}

// takenCodes reports every code as already used.
type takenCodes struct {
	Repository
	checks int
}

func (r *takenCodes) ClassCodeExists(context.Context, string) (bool, error) {
	r.checks++
	return true, nil
}

func TestCreateClass_CodeExhaustion(t *testing.T) {
	repo := new(takenCodes)
	svc := NewService(repo, nil)
	teacher := user.User{ID: "t1", Role: user.RoleTeacher, Profile: user.TeacherProfile{}}

	_, err := svc.CreateClass(context.Background(), teacher, NewClass{Name: "Physics", Subject: "Physics"})
	assert.Equal(t, ErrCodeGeneration, err)
	assert.Equal(t, maxCodeAttempts, repo.checks)
}
