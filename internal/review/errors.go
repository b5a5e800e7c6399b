package review

import (
	"errors"
	"strings"
)

// Error kinds. Every error returned by Service wraps exactly one of them.
var (
	ErrInput         = errors.New("invalid input")
	ErrConfiguration = errors.New("configuration error")
	ErrExternalCall  = errors.New("external call failed")
	ErrParse         = errors.New("unparseable model output")
	ErrStore         = errors.New("graph store error")
)

var kinds = []error{ErrInput, ErrConfiguration, ErrParse, ErrExternalCall, ErrStore}

// Error records the review stage that failed alongside the error kind.
type Error struct {
	Kind error
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Op + ": " + e.Kind.Error()
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newError(kind error, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// classify keeps an already classified error and wraps anything else as kind.
func classify(op string, kind error, err error) error {
	if KindOf(err) != nil {
		return &Error{Kind: KindOf(err), Op: op, Err: err}
	}
	return newError(kind, op, err)
}

// KindOf returns the error kind err wraps, or nil when it is unclassified.
func KindOf(err error) error {
	if err == nil {
		return nil
	}
	for _, kind := range kinds {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

// IsClientError reports whether err was caused by the caller's request or
// local configuration rather than by a downstream failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInput) || errors.Is(err, ErrConfiguration)
}

const maxMessageRunes = 500

// UserMessage turns err into a message fit for an end user: credential and
// rate-limit failures get corrective Korean text, anything else is cut to 500
// characters.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.TrimSpace(rootMessage(err))
	if msg == "" {
		return "서버 오류가 발생했습니다."
	}
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(msg, "OPENAI_API_KEY") || strings.Contains(lower, "api_key"):
		return "OPENAI_API_KEY가 .env에 설정되지 않았거나 유효하지 않습니다. .env 파일을 확인하세요."
	case strings.Contains(lower, "authentication") ||
		strings.Contains(lower, "invalid_api_key") ||
		strings.Contains(lower, "incorrect api key"):
		return "OpenAI API 키가 올바르지 않습니다. .env의 OPENAI_API_KEY를 확인하세요."
	case strings.Contains(lower, "rate") || strings.Contains(lower, "limit"):
		return "OpenAI 요청 한도 초과입니다. 잠시 후 다시 시도하세요."
	}
	runes := []rune(msg)
	if len(runes) > maxMessageRunes {
		return string(runes[:maxMessageRunes])
	}
	return msg
}

// rootMessage strips the stage prefix added by Error so users see the
// underlying cause.
func rootMessage(err error) string {
	var reviewErr *Error
	for errors.As(err, &reviewErr) {
		if reviewErr.Err == nil {
			return reviewErr.Kind.Error()
		}
		err = reviewErr.Err
	}
	return err.Error()
}
