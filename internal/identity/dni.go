// Package identity parses the customer identity documents scanned at the table.
package identity

import (
	"errors"
	"strings"
	"unicode"
)

var ErrInvalidDNI = errors.New("invalid_dni")

// DNI is the data read from the PDF417 barcode of an Argentine national ID.
type DNI struct {
	Number    string `json:"number"`
	LastName  string `json:"last_name"`
	FirstName string `json:"first_name"`
	Sex       string `json:"sex,omitempty"`
	BirthDate string `json:"birth_date,omitempty"`
}

// FullName is "first last", as printed on the receipt.
func (d DNI) FullName() string {
	return strings.TrimSpace(d.FirstName + " " + d.LastName)
}

// ParseDNI reads both barcode layouts. The current one starts with the
// procedure number:
//
//	00412345678@PEREZ@JUAN CARLOS@M@30123456@A@01/02/1985@15/03/2016
//
// the legacy one starts with a separator and carries the number first:
//
//	@30123456    @A@1@PEREZ@JUAN CARLOS@ARGENTINA@01/02/1985@M@15/03/2010@...
func ParseDNI(raw string) (DNI, error) {
	payload := strings.TrimSpace(raw)
	if payload == "" || !strings.Contains(payload, "@") {
		return DNI{}, ErrInvalidDNI
	}
	fields := strings.Split(payload, "@")
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}

	var d DNI
	if fields[0] == "" {
		if len(fields) < 9 {
			return DNI{}, ErrInvalidDNI
		}
		d = DNI{
			Number:    fields[1],
			LastName:  fields[4],
			FirstName: fields[5],
			BirthDate: fields[7],
			Sex:       fields[8],
		}
	} else {
		if len(fields) < 7 {
			return DNI{}, ErrInvalidDNI
		}
		d = DNI{
			Number:    fields[4],
			LastName:  fields[1],
			FirstName: fields[2],
			Sex:       fields[3],
			BirthDate: fields[6],
		}
	}

	number, ok := normalizeNumber(d.Number)
	if !ok || d.LastName == "" {
		return DNI{}, ErrInvalidDNI
	}
	d.Number = number
	d.LastName = titleCase(d.LastName)
	d.FirstName = titleCase(d.FirstName)
	d.Sex = strings.ToUpper(d.Sex)
	return d, nil
}

// NormalizeDNI returns the document number from either a scanned payload or
// a typed number, and empty when neither can be read.
func NormalizeDNI(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if strings.Contains(raw, "@") {
		d, err := ParseDNI(raw)
		if err != nil {
			return ""
		}
		return d.Number
	}
	number, ok := normalizeNumber(raw)
	if !ok {
		return ""
	}
	return number
}

// normalizeNumber keeps the digits; documents have 7 or 8 of them.
func normalizeNumber(raw string) (string, bool) {
	var b strings.Builder
	for _, r := range raw {
		switch {
		case unicode.IsDigit(r):
			b.WriteRune(r)
		case r == '.' || r == ' ' || r == '-':
		default:
			// Foreign residents carry a letter prefix in some layouts.
			if b.Len() > 0 || !unicode.IsLetter(r) {
				return "", false
			}
		}
	}
	number := strings.TrimLeft(b.String(), "0")
	if len(number) < 7 || len(number) > 8 {
		return "", false
	}
	return number, true
}

func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		runes := []rune(w)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
