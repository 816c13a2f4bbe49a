package service

import (
	"strconv"
	"strings"

	"github.com/theplant/luhn"

	"github.com/iurnickita/dealership/internal/model"
)

var cardDigits = strings.NewReplacer(" ", "", "-", "")

const maxReferenceLen = 64

// normalizeReference checks a card number with the Luhn algorithm and keeps only its
// last four digits. References of other methods are stored as given.
func normalizeReference(saleID int64, method model.PaymentMethod, reference string) (string, error) {
	ref := strings.TrimSpace(reference)
	if len(ref) > maxReferenceLen {
		return "", invalid("sale %d: reference longer than %d characters", saleID, maxReferenceLen)
	}
	if ref == "" || !method.IsCard() {
		return ref, nil
	}

	digits := cardDigits.Replace(ref)
	if len(digits) < 12 || len(digits) > 19 {
		return "", invalid("sale %d: card reference must have 12 to 19 digits", saleID)
	}
	number, err := strconv.Atoi(digits)
	if err != nil || number <= 0 {
		return "", invalid("sale %d: card reference is not a number", saleID)
	}
	if !luhn.Valid(number) {
		return "", invalid("sale %d: card reference fails the checksum", saleID)
	}
	return "**** " + digits[len(digits)-4:], nil
}
