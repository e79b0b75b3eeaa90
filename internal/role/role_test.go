package role

import (
	"errors"
	"testing"
)

func TestResolveStudent(t *testing.T) {
	claims := "urn:lti:instrole:ims/lis/Student,urn:lti:role:ims/lis/Learner,urn:lti:sysrole:ims/lis/User"
	r, err := Resolve(claims)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if r != Student {
		t.Errorf("expected Student, got %s", r)
	}
}

func TestResolveInstructor(t *testing.T) {
	r, err := Resolve("urn:lti:role:ims/lis/Instructor")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if r != Instructor {
		t.Errorf("expected Instructor, got %s", r)
	}
}

func TestAdministratorBeatsEverything(t *testing.T) {
	// An administrator enrolled as a student carries all three claim
	// kinds at once; precedence must not depend on order.
	claimSets := []string{
		"urn:lti:instrole:ims/lis/Administrator,urn:lti:role:ims/lis/Instructor,urn:lti:role:ims/lis/Learner",
		"urn:lti:role:ims/lis/Learner,urn:lti:instrole:ims/lis/Administrator",
		"urn:lti:role:ims/lis/Instructor,urn:lti:sysrole:ims/lis/SysAdmin",
	}
	for _, claims := range claimSets {
		r, err := Resolve(claims)
		if err != nil {
			t.Fatalf("Resolve(%q) failed: %v", claims, err)
		}
		if r != Administrator {
			t.Errorf("Resolve(%q) = %s, expected Administrator", claims, r)
		}
	}
}

func TestInstructorBeatsStudent(t *testing.T) {
	r, err := Resolve("urn:lti:role:ims/lis/Learner,urn:lti:role:ims/lis/Instructor")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if r != Instructor {
		t.Errorf("expected Instructor, got %s", r)
	}
}

func TestResolveTrimsWhitespace(t *testing.T) {
	r, err := Resolve("urn:lti:sysrole:ims/lis/User, urn:lti:role:ims/lis/Learner")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if r != Student {
		t.Errorf("expected Student, got %s", r)
	}
}

func TestResolveUnrecognized(t *testing.T) {
	for _, claims := range []string{
		"",
		"urn:lti:sysrole:ims/lis/User",
		"urn:lti:role:ims/lis/Mentor",
	} {
		_, err := Resolve(claims)
		if !errors.Is(err, ErrUnrecognizedRole) {
			t.Errorf("Resolve(%q): expected ErrUnrecognizedRole, got %v", claims, err)
		}
	}
}

func TestValid(t *testing.T) {
	for _, r := range []Role{Administrator, Instructor, Student} {
		if !r.Valid() {
			t.Errorf("%s should be valid", r)
		}
	}
	if Role("Mentor").Valid() {
		t.Error("Mentor should not be valid")
	}
}
