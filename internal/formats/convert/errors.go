package convert

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/klytics/docconv/internal/archive"
	"github.com/klytics/docconv/internal/formats/pdfdoc"
	"github.com/klytics/docconv/internal/pdfgen"
)

// Kind is the category a conversion failure is reported under.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindUnsupported
	KindUnavailable
	KindParse
	KindEncrypted
	KindResource
	KindTimeout
)

var kindNames = map[Kind]string{
	KindUnknown:     "unknown",
	KindValidation:  "validation",
	KindUnsupported: "unsupported",
	KindUnavailable: "unavailable",
	KindParse:       "parse",
	KindEncrypted:   "encrypted",
	KindResource:    "resource",
	KindTimeout:     "timeout",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// UserFault reports whether the failure is caused by the input rather than
// the environment.
func (k Kind) UserFault() bool {
	switch k {
	case KindValidation, KindUnsupported, KindEncrypted, KindParse:
		return true
	}
	return false
}

// maxMessageLen bounds raw collaborator text shown for unclassified errors.
const maxMessageLen = 200

// Error is a classified conversion failure.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// UserMessage returns the text shown to the person who requested the
// conversion. Validation and unsupported-pair errors carry their own
// specific text; collaborator failures are reported by category.
func (e *Error) UserMessage() string {
	switch e.Kind {
	case KindValidation, KindUnsupported:
		return e.Err.Error()
	case KindUnavailable:
		return "A conversion component is unavailable — check the configuration and retry"
	case KindParse:
		return "The file is corrupted or not a valid document — check the file"
	case KindEncrypted:
		return "The file is encrypted and cannot be converted"
	case KindResource:
		return "The file is too large to convert with the available memory — try a smaller file"
	case KindTimeout:
		return "The conversion timed out — try a smaller file"
	}
	return truncate(e.Error(), maxMessageLen)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func validationf(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Err: fmt.Errorf(format, args...)}
}

// Classify maps any error onto the taxonomy. An *Error already carrying a
// kind is returned unchanged.
func Classify(err error) *Error {
	return classify(err, "", KindUnknown)
}

// KindOf returns the kind Classify assigns to err, or KindUnknown for nil.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	return Classify(err).Kind
}

// classify wraps err with op. Errors no rule recognises get fallback.
func classify(err error, op string, fallback Kind) *Error {
	if err == nil {
		return nil
	}
	var ce *Error
	if errors.As(err, &ce) && ce.Kind != KindUnknown {
		if ce.Op == "" && op != "" {
			return &Error{Kind: ce.Kind, Op: op, Err: ce.Err}
		}
		return ce
	}
	return &Error{Kind: kindFor(err, fallback), Op: op, Err: err}
}

func kindFor(err error, fallback Kind) Kind {
	var unavailable *pdfgen.ErrBrowserUnavailable
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, archive.ErrMemberTooLarge):
		return KindResource
	case errors.Is(err, pdfdoc.ErrEncrypted):
		return KindEncrypted
	case errors.Is(err, pdfdoc.ErrRasterizerUnavailable), errors.As(err, &unavailable):
		return KindUnavailable
	case errors.Is(err, zip.ErrFormat), errors.Is(err, zip.ErrAlgorithm):
		return KindParse
	}

	msg := strings.ToLower(err.Error())
	for _, rule := range messageRules {
		for _, pat := range rule.patterns {
			if strings.Contains(msg, pat) {
				return rule.kind
			}
		}
	}
	return fallback
}

// messageRules are checked in order against lower-cased error text.
var messageRules = []struct {
	kind     Kind
	patterns []string
}{
	{KindEncrypted, []string{"password", "encrypt"}},
	{KindTimeout, []string{"timeout", "timed out", "deadline"}},
	{KindResource, []string{"out of memory", "memory", "quota"}},
	{KindUnavailable, []string{"unavailable", "network", "connection refused", "failed to load"}},
	{KindParse, []string{"corrupt", "invalid", "not a valid", "malformed", "parse", "zip:", "xml", "unexpected eof"}},
	{KindValidation, []string{"empty"}},
}
