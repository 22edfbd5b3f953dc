package binder

import (
	"regexp"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
)

var (
	dateRE = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])-(0[1-9]|[12][0-9]|3[01])$`)
)

// dateValidator accepts YYYY-MM-DD or the empty string, so that it can be used
// on optional fields. Pair it with `required` when a value must be given.
func dateValidator(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	return dateRE.MatchString(value)
}

// datetimeValidator accepts anything dateValidator does plus RFC 3339
// timestamps.
func datetimeValidator(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" || dateRE.MatchString(value) {
		return true
	}
	_, err := time.Parse(time.RFC3339, value)
	return err == nil
}

// maxBytesValidator limits the encoded length of a string, for values like
// bcrypt passwords where the limit is in bytes rather than characters.
func maxBytesValidator(fl validator.FieldLevel) bool {
	limit, err := strconv.Atoi(fl.Param())
	if err != nil {
		return false
	}
	return len(fl.Field().String()) <= limit
}
