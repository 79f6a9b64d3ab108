package nfc

import (
	"encoding/hex"
	"errors"
	"strings"
)

// Encoder turns a raw tag identifier into its textual form.
type Encoder func(uid []byte) (string, error)

var errEmptyUID = errors.New("empty identifier")

// EncodeUID encodes uid as uppercase hexadecimal, two characters per byte,
// no separators, in the original byte order. [0x04, 0xA3, 0xF1] -> "04A3F1".
// An empty identifier encodes to "".
func EncodeUID(uid []byte) (string, error) {
	return strings.ToUpper(hex.EncodeToString(uid)), nil
}

// DecodeUID is the inverse of EncodeUID. It accepts either letter case and
// the ':', ' ' and '-' separators some readers print.
func DecodeUID(s string) ([]byte, error) {
	cleaned := strings.NewReplacer(":", "", " ", "", "-", "").Replace(s)
	if cleaned == "" {
		return nil, errEmptyUID
	}
	return hex.DecodeString(cleaned)
}
