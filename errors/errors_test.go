package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:  PhaseConfig,
				Kind:   KindInvalidConfig,
				Path:   []string{"instrumentation", "rules", "r1"},
				Unit:   "com.acme.Service",
				Detail: "bad value",
			},
			contains: []string{"[config]", "invalid_config", "instrumentation.rules.r1", "com.acme.Service", "bad value"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseApply,
				Kind:  KindApplyFailed,
			},
			contains: []string{"[apply]", "apply_failed"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseHost,
				Kind:   KindCompileFailed,
				Detail: "compile representation",
				Cause:  errors.New("underlying error"),
			},
			contains: []string{"[host]", "compile_failed", "caused by", "underlying error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := ApplyFailed("com.acme.A", cause)

	if !errors.Is(err, cause) {
		t.Error("errors.Is did not find cause")
	}
	if !errors.Is(errors.Unwrap(err), cause) {
		t.Error("errors.Unwrap did not return cause")
	}
}

func TestError_Is(t *testing.T) {
	err := SensorFailed("com.acme.A", "executor", errors.New("boom"))

	if !err.Is(&Error{Phase: PhaseTransform, Kind: KindSensorFailed}) {
		t.Error("Is should match same phase and kind")
	}
	if err.Is(&Error{Phase: PhaseApply, Kind: KindSensorFailed}) {
		t.Error("Is should not match different phase")
	}
	if err.Is(&Error{Phase: PhaseTransform, Kind: KindApplyFailed}) {
		t.Error("Is should not match different kind")
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("root")
	err := New(PhaseApply, KindApplyFailed).
		Path("batch", "3").
		Unit("com.acme.B").
		Cause(cause).
		Detail("host rejected %d units", 2).
		Build()

	if err.Phase != PhaseApply || err.Kind != KindApplyFailed {
		t.Errorf("Phase/Kind = %v/%v", err.Phase, err.Kind)
	}
	if len(err.Path) != 2 || err.Path[0] != "batch" {
		t.Errorf("Path = %v, want [batch 3]", err.Path)
	}
	if err.Unit != "com.acme.B" {
		t.Errorf("Unit = %v", err.Unit)
	}
	if err.Detail != "host rejected 2 units" {
		t.Errorf("Detail = %v", err.Detail)
	}
	if !errors.Is(err, cause) {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
}

func TestConvenienceConstructors(t *testing.T) {
	t.Run("InvalidConfig", func(t *testing.T) {
		err := InvalidConfig("instrumentation.internal", "must be positive")
		if err.Kind != KindInvalidConfig || len(err.Path) != 2 {
			t.Errorf("got %+v", err)
		}
	})

	t.Run("UnknownScope", func(t *testing.T) {
		err := UnknownScope("r1", "s9")
		if err.Kind != KindUnknownScope || !strings.Contains(err.Error(), `"s9"`) {
			t.Errorf("got %v", err)
		}
	})

	t.Run("NotModifiable", func(t *testing.T) {
		err := NotModifiable(PhaseHost, "java.lang.Object")
		if err.Kind != KindNotModifiable || err.Unit != "java.lang.Object" {
			t.Errorf("got %+v", err)
		}
	})

	t.Run("NotInitialized", func(t *testing.T) {
		err := NotInitialized(PhaseHost, "transformer")
		if !strings.Contains(err.Detail, "transformer not initialized") {
			t.Errorf("Detail = %v", err.Detail)
		}
	})
}

func TestBatchError(t *testing.T) {
	var empty BatchError
	if empty.ErrorOrNil() != nil {
		t.Fatal("empty batch error should be nil")
	}

	cause := errors.New("verify error")
	var be BatchError
	be.Add("com.acme.X", ApplyFailed("com.acme.X", cause))
	be.Add("com.acme.Z", nil)

	err := be.ErrorOrNil()
	if err == nil {
		t.Fatal("expected error")
	}
	if got := be.Units(); len(got) != 2 || got[0] != "com.acme.X" {
		t.Errorf("Units = %v", got)
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is should reach the unit cause")
	}
	if !errors.Is(err, &BatchError{}) {
		t.Error("errors.Is should match BatchError")
	}
	if !strings.Contains(err.Error(), "failed to apply 2 unit(s)") {
		t.Errorf("message = %q", err.Error())
	}
}
