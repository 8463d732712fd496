package errors_test

import (
	"fmt"
	"testing"

	"github.com/rogestation/psxcore/errors"
	"github.com/rogestation/psxcore/internal/testhelp"
)

const testError = "test error: %s"
const testErrorB = "test error B: %s"

func TestDuplicateErrors(t *testing.T) {

	e := errors.Errorf(testError, "foo")
	testhelp.Equate(t, e.Error(), "test error: foo")

	// packing errors of the same type next to each other causes
	// one of them to be dropped
	f := errors.Errorf(testError, e)
	testhelp.Equate(t, f.Error(), "test error: foo")
}

func TestIs(t *testing.T) {
	e := errors.Errorf(testError, "foo")
	testhelp.ExpectSuccess(t, errors.Is(e, testError))

	// Has() should fail because we haven't included testErrorB anywhere in the error
	testhelp.ExpectFailure(t, errors.Has(e, testErrorB))

	// wrapping an error in a curated error with a different head keeps
	// both of them
	f := errors.Errorf(testErrorB, e)
	testhelp.ExpectFailure(t, errors.Is(f, testError))
	testhelp.ExpectSuccess(t, errors.Is(f, testErrorB))
	testhelp.ExpectSuccess(t, errors.Has(f, testError))
	testhelp.ExpectSuccess(t, errors.Has(f, testErrorB))

	// IsAny should return true for these errors also
	testhelp.ExpectSuccess(t, errors.IsAny(e))
	testhelp.ExpectSuccess(t, errors.IsAny(f))
}

func TestPlainErrors(t *testing.T) {
	// test plain errors that haven't been formatted with our errors package

	e := fmt.Errorf("plain test error")
	testhelp.ExpectFailure(t, errors.IsAny(e))

	const testError = "test error: %s"

	testhelp.ExpectFailure(t, errors.Has(e, testError))
}
