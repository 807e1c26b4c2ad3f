package report

import (
	"testing"

	"github.com/vietddude/dbexec/internal/core/domain"
)

func TestRender_Success(t *testing.T) {
	out := domain.Succeed(map[string]int{"rows": 3})

	res := Render(out)
	if !res.Success {
		t.Fatal("expected success result")
	}
	if res.Data == nil {
		t.Error("expected data to carry the value")
	}
	if res.Error != "" || res.DiagnosticCode != "" || res.Suggestion != "" {
		t.Errorf("success result should have no failure fields: %+v", res)
	}
}

func TestRender_TransientFailure(t *testing.T) {
	out := domain.Fail[string](
		domain.Classification{Class: domain.ClassTransient, Code: "08006"},
		"connection failure", 3,
	)

	res := Render(out)
	if res.Success {
		t.Fatal("expected failure result")
	}
	if res.Error != "connection failure" {
		t.Errorf("error = %q", res.Error)
	}
	if res.DiagnosticCode != "08006" {
		t.Errorf("diagnostic code = %q, want 08006", res.DiagnosticCode)
	}
	if !res.IsTransient {
		t.Error("expected transient flag")
	}
	if res.Suggestion != SuggestionTransient {
		t.Errorf("suggestion = %q, want %q", res.Suggestion, SuggestionTransient)
	}
}

func TestRender_PermanentFailure(t *testing.T) {
	out := domain.Fail[string](
		domain.Classification{Class: domain.ClassPermanent, Code: "23505"},
		"duplicate key", 1,
	)

	res := Render(out)
	if res.Success {
		t.Fatal("expected failure result")
	}
	if res.IsTransient {
		t.Error("expected permanent flag")
	}
	if res.Suggestion != SuggestionPermanent {
		t.Errorf("suggestion = %q, want %q", res.Suggestion, SuggestionPermanent)
	}
}

func TestRender_NetworkFailureWithoutCode(t *testing.T) {
	out := domain.Fail[string](
		domain.Classification{Class: domain.ClassTransient, NetworkLevel: true},
		"i/o timeout", 3,
	)

	res := Render(out)
	if res.DiagnosticCode != "" {
		t.Errorf("diagnostic code = %q, want empty", res.DiagnosticCode)
	}
	if !res.IsTransient {
		t.Error("expected transient flag")
	}
}
