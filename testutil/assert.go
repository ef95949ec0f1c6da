package testutil

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
)

func AssertTrue(t testing.TB, condition bool, msgAndArgs ...any) {
	t.Helper()
	if !condition {
		t.Errorf("Expected condition to be true%s", formatMessage(msgAndArgs...))
	}
}

func AssertFalse(t testing.TB, condition bool, msgAndArgs ...any) {
	t.Helper()
	if condition {
		t.Errorf("Expected condition to be false%s", formatMessage(msgAndArgs...))
	}
}

func AssertEqual(t testing.TB, expected, actual any, msgAndArgs ...any) {
	t.Helper()
	if !reflect.DeepEqual(expected, actual) {
		t.Errorf("Not equal:\nexpected: %v\nactual  : %v%s", expected, actual, formatMessage(msgAndArgs...))
	}
}

func AssertNotEqual(t testing.TB, expected, actual any, msgAndArgs ...any) {
	t.Helper()
	if reflect.DeepEqual(expected, actual) {
		t.Errorf("Expected values to differ, both were: %v%s", actual, formatMessage(msgAndArgs...))
	}
}

func AssertNoError(t testing.TB, err error, msgAndArgs ...any) {
	t.Helper()
	if err != nil {
		t.Errorf("Unexpected error: %v%s", err, formatMessage(msgAndArgs...))
	}
}

func AssertError(t testing.TB, err error, msgAndArgs ...any) {
	t.Helper()
	if err == nil {
		t.Errorf("Expected an error but got nil%s", formatMessage(msgAndArgs...))
	}
}

func AssertErrorIs(t testing.TB, err, target error, msgAndArgs ...any) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Errorf("Expected error %v, got %v%s", target, err, formatMessage(msgAndArgs...))
	}
}

// AssertErrorAs checks that err unwraps to target, which must be a non-nil
// pointer to an error type.
func AssertErrorAs(t testing.TB, err error, target any, msgAndArgs ...any) {
	t.Helper()
	if !errors.As(err, target) {
		t.Errorf("Expected error assignable to %T, got %v%s", target, err, formatMessage(msgAndArgs...))
	}
}

func AssertLen(t testing.TB, object any, length int, msgAndArgs ...any) {
	t.Helper()
	if n := reflect.ValueOf(object).Len(); n != length {
		t.Errorf("Length not equal:\nexpected: %d\nactual  : %d%s", length, n, formatMessage(msgAndArgs...))
	}
}

func AssertEmpty(t testing.TB, object any, msgAndArgs ...any) {
	t.Helper()
	if n := reflect.ValueOf(object).Len(); n != 0 {
		t.Errorf("Expected empty but got length %d%s", n, formatMessage(msgAndArgs...))
	}
}

func AssertNil(t testing.TB, object any, msgAndArgs ...any) {
	t.Helper()
	if !isNil(object) {
		t.Errorf("Expected nil, got %#v%s", object, formatMessage(msgAndArgs...))
	}
}

func AssertNotNil(t testing.TB, object any, msgAndArgs ...any) {
	t.Helper()
	if isNil(object) {
		t.Errorf("Expected not nil%s", formatMessage(msgAndArgs...))
	}
}

func AssertContains(t testing.TB, s, substr string, msgAndArgs ...any) {
	t.Helper()
	if !strings.Contains(s, substr) {
		t.Errorf("Expected %q to contain %q%s", s, substr, formatMessage(msgAndArgs...))
	}
}

// RequireNoError fails the test immediately when err is non-nil.
func RequireNoError(t testing.TB, err error, msgAndArgs ...any) {
	t.Helper()
	if err != nil {
		t.Fatalf("Required no error but got: %v%s", err, formatMessage(msgAndArgs...))
	}
}

// RequireError fails the test immediately when err is nil.
func RequireError(t testing.TB, err error, msgAndArgs ...any) {
	t.Helper()
	if err == nil {
		t.Fatalf("Required an error but got nil%s", formatMessage(msgAndArgs...))
	}
}

// RequireLen fails the test immediately on a length mismatch.
func RequireLen(t testing.TB, object any, length int, msgAndArgs ...any) {
	t.Helper()
	if n := reflect.ValueOf(object).Len(); n != length {
		t.Fatalf("Required length %d, got %d%s", length, n, formatMessage(msgAndArgs...))
	}
}

func isNil(value any) bool {
	if value == nil {
		return true
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Ptr, reflect.Slice:
		return rv.IsNil()
	default:
		return false
	}
}

func formatMessage(msgAndArgs ...any) string {
	if len(msgAndArgs) == 0 || msgAndArgs[0] == nil {
		return ""
	}
	if format, ok := msgAndArgs[0].(string); ok {
		if len(msgAndArgs) == 1 {
			return "\nMessage: " + format
		}
		return "\nMessage: " + fmt.Sprintf(format, msgAndArgs[1:]...)
	}
	return fmt.Sprintf("\nMessage: %v", msgAndArgs)
}

// RequireTrue fails the test immediately when condition is false.
func RequireTrue(t testing.TB, condition bool, msgAndArgs ...any) {
	t.Helper()
	if !condition {
		t.Fatalf("Required condition to be true%s", formatMessage(msgAndArgs...))
	}
}

// RequireNotNil fails the test immediately when object is nil.
func RequireNotNil(t testing.TB, object any, msgAndArgs ...any) {
	t.Helper()
	if isNil(object) {
		t.Fatalf("Required not nil%s", formatMessage(msgAndArgs...))
	}
}
