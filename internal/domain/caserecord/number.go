package caserecord

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	sequenceDigits = 4
	maxSequence    = 9999
)

// ValidatePrefix checks that prefix is non-empty uppercase alphanumerics.
func ValidatePrefix(prefix string) error {
	if prefix == "" {
		return ErrInvalidPrefix
	}
	for _, r := range prefix {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return fmt.Errorf("%w: %q", ErrInvalidPrefix, prefix)
		}
	}
	return nil
}

// MonthPrefix returns "PREFIX-YYYYMM-" for the UTC month containing at, so
// numbering doesn't depend on the server's time zone.
func MonthPrefix(prefix string, at time.Time) string {
	return fmt.Sprintf("%s-%s-", prefix, at.UTC().Format("200601"))
}

// NextCaseNumber returns the next PREFIX-YYYYMM-NNNN number for the UTC
// month containing at, given the numbers already issued. The sequence restarts
// every month. Numbers from other months are ignored; a number in the same
// month that doesn't parse is an error, since guessing could duplicate a
// legal case number.
func NextCaseNumber(prefix string, at time.Time, existing []string) (string, error) {
	if err := ValidatePrefix(prefix); err != nil {
		return "", err
	}
	month := MonthPrefix(prefix, at)

	highest := 0
	for _, number := range existing {
		suffix, ok := strings.CutPrefix(number, month)
		if !ok {
			continue
		}
		seq, err := parseSequence(suffix)
		if err != nil {
			return "", fmt.Errorf("%w: %q", ErrCorruptCaseNumber, number)
		}
		highest = max(highest, seq)
	}

	if highest >= maxSequence {
		return "", fmt.Errorf("%w: %s", ErrCaseNumberExhausted, strings.TrimSuffix(month, "-"))
	}
	return fmt.Sprintf("%s%0*d", month, sequenceDigits, highest+1), nil
}

func parseSequence(s string) (int, error) {
	if len(s) != sequenceDigits {
		return 0, fmt.Errorf("want %d digits, got %q", sequenceDigits, s)
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("non-digit in %q", s)
		}
	}
	return strconv.Atoi(s)
}
