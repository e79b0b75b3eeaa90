// Package role maps raw LTI role claims onto the application's closed role set.
package role

import (
	"errors"
	"strings"
)

// Role is one of the three application roles.
type Role string

const (
	Administrator Role = "Administrator"
	Instructor    Role = "Instructor"
	Student       Role = "Student"
)

// ErrUnrecognizedRole means no claim in the launch matched a known role token.
var ErrUnrecognizedRole = errors.New("no recognized role claim")

// Claim URNs as sent by the platform. A single launch can carry several
// at once (an administrator enrolled as a student sends both sets).
var (
	adminClaims = []string{
		"urn:lti:instrole:ims/lis/Administrator",
		"urn:lti:sysrole:ims/lis/Administrator",
		"urn:lti:sysrole:ims/lis/SysAdmin",
	}
	instructorClaims = []string{
		"urn:lti:role:ims/lis/Instructor",
		"urn:lti:instrole:ims/lis/Instructor",
		"urn:lti:role:ims/lis/TeachingAssistant",
	}
	studentClaims = []string{
		"urn:lti:role:ims/lis/Learner",
		"urn:lti:instrole:ims/lis/Student",
		"urn:lti:instrole:ims/lis/Learner",
	}
)

// Resolve picks exactly one Role from a comma-delimited claim string.
// Precedence is fixed: Administrator beats Instructor beats Student,
// regardless of claim order. Unmatched claim sets return ErrUnrecognizedRole.
func Resolve(extRoles string) (Role, error) {
	claims := strings.Split(extRoles, ",")
	for i := range claims {
		claims[i] = strings.TrimSpace(claims[i])
	}

	if containsAny(claims, adminClaims) {
		return Administrator, nil
	}
	if containsAny(claims, instructorClaims) {
		return Instructor, nil
	}
	if containsAny(claims, studentClaims) {
		return Student, nil
	}
	return "", ErrUnrecognizedRole
}

func containsAny(claims, known []string) bool {
	for _, c := range claims {
		for _, k := range known {
			if c == k {
				return true
			}
		}
	}
	return false
}

// Valid reports whether r is one of the three application roles.
func (r Role) Valid() bool {
	switch r {
	case Administrator, Instructor, Student:
		return true
	}
	return false
}
