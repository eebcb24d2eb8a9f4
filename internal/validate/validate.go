// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package validate checks request payloads before they reach the auth
// service. Validators are pure: they never touch storage.
package validate

import (
	"errors"
	"regexp"
	"sort"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/nyaruka/phonenumbers"
)

// ErrValidation matches every *Error through errors.Is.
var ErrValidation = errors.New("validation failed")

// DefaultRegion is used to parse mobile numbers given without a country code.
const DefaultRegion = "US"

// DateLayout is the accepted date of birth format.
const DateLayout = "2006-01-02"

// Error maps payload fields to their first failure.
type Error struct {
	Fields map[string]string
}

func (e *Error) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return strings.Join(parts, "; ")
}

func (e *Error) Is(target error) bool {
	return target == ErrValidation
}

// Field returns a single field error.
func Field(name, message string) *Error {
	return &Error{Fields: map[string]string{name: message}}
}

// fromOzzo converts ozzo errors to *Error. Internal rule errors pass through.
func fromOzzo(err error) error {
	if err == nil {
		return nil
	}
	var errs validation.Errors
	if !errors.As(err, &errs) {
		return err
	}
	out := &Error{Fields: make(map[string]string, len(errs))}
	for field, fe := range errs {
		var ie validation.InternalError
		if errors.As(fe, &ie) {
			return ie.InternalError()
		}
		out.Fields[field] = fe.Error()
	}
	return out
}

var (
	namePattern = regexp.MustCompile(`^[a-zA-Z]{3,15}( [a-zA-Z]{3,15})?$`)
	codePattern = regexp.MustCompile(`^[0-9]+$`)

	nameRule = validation.Match(namePattern).Error("must be 3 to 15 letters, optionally followed by a second word")
)

const passwordSpecials = "@$!%*"

// MaxPasswordLength is the longest password bcrypt accepts, in bytes.
const MaxPasswordLength = 72

// passwordRule requires 8 to 72 characters from [A-Za-z0-9@$!%*] with at
// least one lowercase letter, one uppercase letter, one digit and one special.
var passwordRule = validation.By(func(value any) error {
	s := str(value)
	if s == "" {
		return nil
	}
	var lower, upper, digit, special bool
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= '0' && r <= '9':
			digit = true
		case strings.ContainsRune(passwordSpecials, r):
			special = true
		default:
			return errors.New("may only contain letters, digits and @$!%*")
		}
	}
	if len(s) > MaxPasswordLength {
		return errors.New("must be at most 72 characters")
	}
	if len(s) < 8 || !lower || !upper || !digit || !special {
		return errors.New("must be at least 8 characters with an uppercase letter, a lowercase letter, a digit and one of @$!%*")
	}
	return nil
})

// mobileRule accepts numbers libphonenumber considers possible.
var mobileRule = validation.By(func(value any) error {
	s := str(value)
	if s == "" {
		return nil
	}
	if _, err := NormalizeMobile(s); err != nil {
		return err
	}
	return nil
})

// NormalizeMobile parses a phone number and formats it as E.164.
func NormalizeMobile(raw string) (string, error) {
	num, err := phonenumbers.Parse(raw, DefaultRegion)
	if err != nil || !phonenumbers.IsPossibleNumber(num) {
		return "", errors.New("must be a valid phone number")
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}

// dateOfBirthRule accepts ISO dates strictly before today.
func dateOfBirthRule(now func() time.Time) validation.Rule {
	return validation.By(func(value any) error {
		s := str(value)
		if s == "" {
			return nil
		}
		d, err := ParseDate(s)
		if err != nil {
			return errors.New("must be a date in YYYY-MM-DD format")
		}
		if !d.Before(now().UTC().Truncate(24 * time.Hour)) {
			return errors.New("must be in the past")
		}
		return nil
	})
}

// ParseDate parses an ISO date. Full RFC 3339 timestamps are accepted too and
// truncated to their date.
func ParseDate(s string) (time.Time, error) {
	if d, err := time.Parse(DateLayout, s); err == nil {
		return d, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}

// str unwraps string and *string rule values.
func str(value any) string {
	v, _ := validation.Indirect(value)
	s, _ := v.(string)
	return s
}

func digitsRule(n int) []validation.Rule {
	return []validation.Rule{
		validation.Length(n, n),
		validation.Match(codePattern).Error("must contain only digits"),
	}
}
