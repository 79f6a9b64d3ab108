package pcsc

import (
	"github.com/pkg/errors"
)

// APDU status words
const (
	SW1Success = 0x90
	SW2Success = 0x00
)

// PC/SC pseudo-APDU
const (
	CLAPCSC   = 0xFF // reader commands
	INSGetUID = 0xCA
)

// GetUIDAPDU is the PC/SC "GET DATA" command returning the card identifier.
var GetUIDAPDU = []byte{CLAPCSC, INSGetUID, 0x00, 0x00, 0x00}

// APDUResponse is a parsed response APDU.
type APDUResponse struct {
	Data []byte
	SW1  byte
	SW2  byte
}

// IsSuccess returns true if the response indicates success (SW1=90, SW2=00).
func (r APDUResponse) IsSuccess() bool {
	return r.SW1 == SW1Success && r.SW2 == SW2Success
}

// StatusWord returns the 2-byte status word as uint16.
func (r APDUResponse) StatusWord() uint16 {
	return uint16(r.SW1)<<8 | uint16(r.SW2)
}

// Err returns nil for 9000 and a descriptive error otherwise.
func (r APDUResponse) Err() error {
	if r.IsSuccess() {
		return nil
	}
	switch r.StatusWord() {
	case 0x6A81:
		return errors.Errorf("function not supported by card (SW=%04X)", r.StatusWord())
	case 0x6300:
		return errors.Errorf("operation failed (SW=%04X)", r.StatusWord())
	default:
		return errors.Errorf("APDU error: SW1=%02X SW2=%02X", r.SW1, r.SW2)
	}
}

// ParseAPDUResponse splits a raw response into data and status word.
func ParseAPDUResponse(raw []byte) (APDUResponse, error) {
	if len(raw) < 2 {
		return APDUResponse{}, errors.Errorf("response too short (%d bytes)", len(raw))
	}
	return APDUResponse{
		Data: raw[:len(raw)-2],
		SW1:  raw[len(raw)-2],
		SW2:  raw[len(raw)-1],
	}, nil
}
