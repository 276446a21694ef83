package onion

import (
	"fmt"
	"strconv"

	"github.com/pkg/errors"
)

// AddressWidth is the number of decimal digits every layer uses for its next hop.
const AddressWidth = 10

// FormatAddress renders addr as a zero padded AddressWidth digit string.
func FormatAddress(addr int) (string, error) {
	if addr < 0 {
		return "", errors.Errorf("address %d is negative", addr)
	}
	s := strconv.Itoa(addr)
	if len(s) > AddressWidth {
		return "", errors.Errorf("address %d does not fit in %d digits", addr, AddressWidth)
	}
	return fmt.Sprintf("%0*d", AddressWidth, addr), nil
}

// ParseAddress is the inverse of FormatAddress. It accepts exactly AddressWidth decimal
// digits.
func ParseAddress(s string) (int, error) {
	if len(s) != AddressWidth {
		return 0, errors.Errorf("address %q is not %d characters", s, AddressWidth)
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, errors.Errorf("address %q is not decimal", s)
		}
	}
	addr, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to parse address %q", s)
	}
	if int64(int(addr)) != addr {
		return 0, errors.Errorf("address %q overflows int", s)
	}
	return int(addr), nil
}
