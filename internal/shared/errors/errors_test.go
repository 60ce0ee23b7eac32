package errors

import (
	"errors"
	"testing"
)

func TestDomainError(t *testing.T) {
	t.Run("New", func(t *testing.T) {
		err := New(CodeRegistryNotFound, "no register call in input")
		if err.Error() != "[REGISTRY_NOT_FOUND] no register call in input" {
			t.Errorf("unexpected message: %s", err.Error())
		}
	})

	t.Run("Wrap", func(t *testing.T) {
		original := errors.New("read failed")
		err := Wrap(original, CodeInternal, "load masterlist")
		expected := "[INTERNAL_ERROR] load masterlist: read failed"
		if err.Error() != expected {
			t.Errorf("expected %s, got %s", expected, err.Error())
		}
	})

	t.Run("IsCode", func(t *testing.T) {
		err := New(CodeDuplicateWikiName, "name already claimed")
		if !IsCode(err, CodeDuplicateWikiName) {
			t.Error("expected IsCode to match CodeDuplicateWikiName")
		}
		if IsCode(err, CodeEmptyRegistry) {
			t.Error("expected IsCode to reject CodeEmptyRegistry")
		}
	})

	t.Run("IsCodeWithWrapped", func(t *testing.T) {
		original := errors.New("boom")
		err := Wrap(original, CodeCrossListViolation, "names in both sets")
		if !IsCode(err, CodeCrossListViolation) {
			t.Error("expected IsCode to see through the wrap")
		}
	})

	t.Run("AddContext", func(t *testing.T) {
		err := New(CodeIndexOutOfRange, "dependency index out of range")
		err = AddContext(err, CtxModule, "jquery")
		var de *DomainError
		if !errors.As(err, &de) {
			t.Fatal("expected DomainError")
		}
		if de.Context[CtxModule] != "jquery" {
			t.Errorf("expected context module=jquery, got %v", de.Context)
		}
	})
}
