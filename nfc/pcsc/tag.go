package pcsc

import (
	"github.com/pkg/errors"

	"github.com/dotside-studios/nfc-bridge/nfc"
)

// Tag is a card present in a PC/SC reader. Its identifier is read from the
// card on demand with GET UID.
type Tag struct {
	ctx    CardContext
	reader string
	atr    []byte
}

// ID connects to the card, sends GET UID and disconnects again.
func (t *Tag) ID() (id []byte, err error) {
	card, err := t.ctx.Connect(t.reader)
	if err != nil {
		return nil, errors.Wrapf(err, "connect to card in %s", t.reader)
	}
	defer func() {
		if derr := card.Disconnect(); derr != nil && err == nil {
			err = errors.Wrap(derr, "disconnect")
		}
	}()

	raw, err := card.Transmit(GetUIDAPDU)
	if err != nil {
		return nil, errors.Wrap(err, "GET UID failed")
	}
	resp, err := ParseAPDUResponse(raw)
	if err != nil {
		return nil, err
	}
	if err := resp.Err(); err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, nil
	}
	return resp.Data, nil
}

func (t *Tag) Technology() string {
	return nfc.TechnologyNfcA
}

// ATR returns the answer to reset seen when the card was detected.
func (t *Tag) ATR() []byte {
	return t.atr
}
