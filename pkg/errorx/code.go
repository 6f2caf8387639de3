package errorx

import (
	"errors"
	"fmt"
	"net/http"
	"sync"
)

// Coder describes an error code with its HTTP status and user-facing message.
type Coder interface {
	// Code returns the code of the coder.
	Code() int
	// HTTPStatus returns the HTTP status associated with the code.
	HTTPStatus() int
	// String returns the external (user facing) error text.
	String() string
	// Reference returns the detail documents for user.
	Reference() string
}

type defaultCoder struct {
	code int
	http int
	msg  string
	ref  string
}

func (c defaultCoder) Code() int         { return c.code }
func (c defaultCoder) String() string    { return c.msg }
func (c defaultCoder) Reference() string { return c.ref }

func (c defaultCoder) HTTPStatus() int {
	if c.http == 0 {
		return http.StatusInternalServerError
	}
	return c.http
}

// ErrUnknown is returned by ParseCoder for errors without a registered code.
const ErrUnknown = 1

var unknownCoder = defaultCoder{
	code: ErrUnknown,
	http: http.StatusInternalServerError,
	msg:  "An internal server error occurred",
}

var (
	codes   = map[int]Coder{}
	codeMux = &sync.Mutex{}
)

// Register registers a user defined error code, overriding an existing one.
func Register(coder Coder) {
	if coder.Code() == 0 {
		panic("code `0` is reserved as ErrUnknown error code")
	}

	codeMux.Lock()
	defer codeMux.Unlock()

	codes[coder.Code()] = coder
}

// MustRegister registers a user defined error code and panics on duplicates.
func MustRegister(coder Coder) {
	if coder.Code() == 0 {
		panic("code '0' is reserved as ErrUnknown error code")
	}

	codeMux.Lock()
	defer codeMux.Unlock()

	if _, ok := codes[coder.Code()]; ok {
		panic(fmt.Sprintf("code: %d already exist", coder.Code()))
	}

	codes[coder.Code()] = coder
}

// ParseCoder returns the Coder registered for err's code.
func ParseCoder(err error) Coder {
	if err == nil {
		return nil
	}

	codeMux.Lock()
	defer codeMux.Unlock()

	if coder, ok := codes[Code(err)]; ok {
		return coder
	}
	return unknownCoder
}

// IsCode reports whether any error in err's chain carries code.
func IsCode(err error, code int) bool {
	var v *withCode
	if !errors.As(err, &v) {
		return false
	}
	if v.code == code {
		return true
	}
	return v.cause != nil && IsCode(v.cause, code)
}

func init() {
	codes[unknownCoder.Code()] = unknownCoder
}
