package validation

import "testing"

type registerForm struct {
	Name     string `json:"name" validate:"required,max=255"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8"`
}

type patchForm struct {
	UserID      *string `json:"user_id" validate:"omitempty,uuid4"`
	Title       *string `json:"title" validate:"required_without_all=UserID Description,omitempty,max=10"`
	Description *string `json:"description" validate:"required_without_all=UserID Title,omitempty,max=20"`
}

func TestCheckValid(t *testing.T) {
	form := registerForm{Name: "Ann", Email: "ann@x.com", Password: "secret12"}
	if verr := Check(form); verr != nil {
		t.Fatalf("expected valid form, got %v", verr.Fields)
	}
}

func TestCheckReportsFieldsByJSONName(t *testing.T) {
	form := registerForm{Name: "Ann", Email: "not-an-email", Password: "short"}
	verr := Check(form)
	if verr == nil {
		t.Fatalf("expected validation error")
	}
	if _, ok := verr.Fields["email"]; !ok {
		t.Fatalf("expected email error, got %v", verr.Fields)
	}
	if _, ok := verr.Fields["password"]; !ok {
		t.Fatalf("expected password error, got %v", verr.Fields)
	}
}

func TestCheckEmptyPatchRequiresTitleAndDescription(t *testing.T) {
	verr := Check(patchForm{})
	if verr == nil {
		t.Fatalf("expected validation error for empty patch")
	}
	if _, ok := verr.Fields["title"]; !ok {
		t.Fatalf("expected title error, got %v", verr.Fields)
	}
	if _, ok := verr.Fields["description"]; !ok {
		t.Fatalf("expected description error, got %v", verr.Fields)
	}
}

func TestCheckPatchWithOneFieldPasses(t *testing.T) {
	title := "new title"
	if verr := Check(patchForm{Title: &title}); verr != nil {
		t.Fatalf("expected patch with title to pass, got %v", verr.Fields)
	}
}

func TestCheckPatchLengthLimits(t *testing.T) {
	long := "this title is far too long"
	verr := Check(patchForm{Title: &long})
	if verr == nil {
		t.Fatalf("expected max length violation")
	}
	if _, ok := verr.Fields["title"]; !ok {
		t.Fatalf("expected title error, got %v", verr.Fields)
	}
}
