package errors

import (
	stderrors "errors"
	"io/fs"
	"testing"
)

func TestDomainError(t *testing.T) {
	t.Run("New", func(t *testing.T) {
		err := New(CodeNotFound, "chain not found")
		if err.Error() != "[NOT_FOUND] chain not found" {
			t.Errorf("expected [NOT_FOUND] chain not found, got %s", err.Error())
		}
	})

	t.Run("Wrap", func(t *testing.T) {
		original := stderrors.New("original error")
		err := Wrap(original, CodeStructure, "parse failure")
		expected := "[STRUCTURE_ERROR] parse failure: original error"
		if err.Error() != expected {
			t.Errorf("expected %s, got %s", expected, err.Error())
		}
	})

	t.Run("WrapNil", func(t *testing.T) {
		if Wrap(nil, CodeInternal, "nothing") != nil {
			t.Error("expected Wrap(nil) to return nil")
		}
	})

	t.Run("IsCode", func(t *testing.T) {
		err := New(CodeValidationError, "invalid radius")
		if !IsCode(err, CodeValidationError) {
			t.Error("expected IsCode to return true for CodeValidationError")
		}
		if IsCode(err, CodeNotFound) {
			t.Error("expected IsCode to return false for CodeNotFound")
		}
	})

	t.Run("CauseSurvivesWrap", func(t *testing.T) {
		err := Wrap(fs.ErrNotExist, CodeStructure, "open structure")
		if !Is(err, fs.ErrNotExist) {
			t.Error("expected wrapped cause to match fs.ErrNotExist")
		}
		if CodeOf(err) != CodeStructure {
			t.Errorf("expected STRUCTURE_ERROR, got %s", CodeOf(err))
		}
	})

	t.Run("AddContext", func(t *testing.T) {
		err := AddContext(New(CodeFeature, "missing profile"), CtxChain, "A")
		var de *DomainError
		if !As(err, &de) {
			t.Fatal("expected DomainError")
		}
		if de.Context[CtxChain] != "A" {
			t.Errorf("expected chain context A, got %v", de.Context[CtxChain])
		}

		plain := AddContext(stderrors.New("boom"), CtxPath, "x.pdb")
		if CodeOf(plain) != CodeInternal {
			t.Errorf("expected INTERNAL_ERROR for plain error, got %s", CodeOf(plain))
		}
	})
}
