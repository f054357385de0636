package valueobject

import "strings"

const (
	// PairingCodeLength is the number of decimal digits in a pairing code.
	PairingCodeLength = 6
	// PairingCodeMin and PairingCodeMax bound the code space (900,000 values).
	PairingCodeMin = 100000
	PairingCodeMax = 999999
)

// NormalizePairingCode trims surrounding whitespace and checks the code is
// exactly six decimal digits without a leading zero.
func NormalizePairingCode(raw string) (string, error) {
	code := strings.TrimSpace(raw)
	if len(code) != PairingCodeLength || code[0] == '0' {
		return "", ErrMalformedPairingCode
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return "", ErrMalformedPairingCode
		}
	}
	return code, nil
}
