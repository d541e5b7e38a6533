package validate

import (
	"github.com/ShiraazMoollatjie/goluhn"
)

// IsLuhn reports whether s is a valid Luhn number. Booking numbers and
// manually entered payment references are checked with it.
func IsLuhn(s string) bool {
	err := goluhn.Validate(s)
	return err == nil
}

// GenerateNumber produces a random Luhn-valid number of the given
// length, used for human-readable booking numbers.
func GenerateNumber(length int) (string, error) {
	number := goluhn.Generate(length)
	if err := goluhn.Validate(number); err != nil {
		return "", err
	}
	return number, nil
}
