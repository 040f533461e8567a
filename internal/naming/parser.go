// Package naming implements the DKC filename convention:
//
//	DKC-<TYPE>-<COMPANY>-<SERIAL>-<DDMMYYYY>[.ext]
//
// Parsing is pure and never panics; every rejection is a *ParseError.
package naming

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Prefix is the literal token every conforming filename starts with.
const Prefix = "DKC"

// DateLayout is the ISO calendar date layout used for normalized dates.
const DateLayout = "2006-01-02"

const (
	formatMessage    = "Invalid Naming Convention. Expected format: DKC-[Type]-[Company]-[ID]-[Date]"
	dateRangeMessage = "Invalid date in filename. Expected format: DDMMYYYY"
	dateMessage      = "Invalid date in filename"
)

var stemPattern = regexp.MustCompile(`^` + Prefix + `-([A-Z]+)-([A-Za-z0-9]+)-([A-Za-z0-9]+)-([0-9]{8})$`)

var (
	ErrInvalidFormat = errors.New("invalid naming convention")
	ErrInvalidDate   = errors.New("invalid date in filename")
)

// ErrorKind separates grammar failures from semantically invalid dates.
type ErrorKind string

const (
	FormatError ErrorKind = "format"
	DateError   ErrorKind = "date"
)

// ParseError describes why a filename was rejected. Message is safe to show to users.
type ParseError struct {
	Kind     ErrorKind
	Filename string
	Message  string
}

func (e *ParseError) Error() string { return e.Message }

func (e *ParseError) Unwrap() error {
	if e.Kind == DateError {
		return ErrInvalidDate
	}
	return ErrInvalidFormat
}

// ParsedName is the metadata carried by a conforming filename.
type ParsedName struct {
	Prefix  string    `json:"prefix"`
	Type    string    `json:"type"`
	Company string    `json:"company"`
	Serial  string    `json:"serial"`
	RawDate string    `json:"raw_date"`
	Date    time.Time `json:"-"`
}

// ISODate renders the parsed date as YYYY-MM-DD.
func (p ParsedName) ISODate() string {
	return p.Date.Format(DateLayout)
}

// Stem rebuilds the filename without its extension.
func (p ParsedName) Stem() string {
	return strings.Join([]string{p.Prefix, p.Type, p.Company, p.Serial, p.RawDate}, "-")
}

// Parse validates filename against the convention and extracts its metadata.
func Parse(filename string) (ParsedName, error) {
	m := stemPattern.FindStringSubmatch(StripExtension(filename))
	if m == nil {
		return ParsedName{}, &ParseError{Kind: FormatError, Filename: filename, Message: formatMessage}
	}
	typ, company, serial, raw := m[1], m[2], m[3], m[4]

	// The pattern guarantees eight ASCII digits, so Atoi cannot fail here.
	day, _ := strconv.Atoi(raw[0:2])
	month, _ := strconv.Atoi(raw[2:4])
	year, _ := strconv.Atoi(raw[4:8])

	if day < 1 || day > 31 || month < 1 || month > 12 || year < 1900 {
		return ParsedName{}, &ParseError{Kind: DateError, Filename: filename, Message: dateRangeMessage}
	}

	date := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if date.Day() != day || int(date.Month()) != month {
		// time.Date normalizes overflow (31 April becomes 1 May).
		return ParsedName{}, &ParseError{Kind: DateError, Filename: filename, Message: dateMessage}
	}

	return ParsedName{
		Prefix:  Prefix,
		Type:    typ,
		Company: company,
		Serial:  serial,
		RawDate: raw,
		Date:    date,
	}, nil
}

// StripExtension drops the final ".ext" segment. A trailing dot, or a dot
// followed by a path separator, is not an extension.
func StripExtension(filename string) string {
	i := strings.LastIndex(filename, ".")
	if i < 0 || i == len(filename)-1 {
		return filename
	}
	if strings.Contains(filename[i+1:], "/") {
		return filename
	}
	return filename[:i]
}

// Extension returns the final extension including the dot, or "".
func Extension(filename string) string {
	stem := StripExtension(filename)
	return filename[len(stem):]
}
