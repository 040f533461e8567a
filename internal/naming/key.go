package naming

import (
	"fmt"
	"strings"
)

// KeyStrategy decides which parsed fields identify a logical document.
type KeyStrategy string

const (
	// KeySerial keys documents on the serial alone.
	KeySerial KeyStrategy = "serial"
	// KeyTypeCompanySerial keys documents on type, company and serial together.
	KeyTypeCompanySerial KeyStrategy = "type_company_serial"
)

func ParseKeyStrategy(s string) (KeyStrategy, error) {
	switch KeyStrategy(strings.ToLower(strings.TrimSpace(s))) {
	case "", KeySerial:
		return KeySerial, nil
	case KeyTypeCompanySerial:
		return KeyTypeCompanySerial, nil
	default:
		return "", fmt.Errorf("unknown dedup key strategy %q", s)
	}
}

// IdentityKey is the value persisted on records and used for duplicate detection.
func (k KeyStrategy) IdentityKey(p ParsedName) string {
	if k == KeyTypeCompanySerial {
		return p.Type + "|" + p.Company + "|" + p.Serial
	}
	return p.Serial
}
