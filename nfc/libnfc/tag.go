package libnfc

import (
	"github.com/clausecker/nfc/v2"
	"github.com/pkg/errors"

	bridgenfc "github.com/dotside-studios/nfc-bridge/nfc"
)

// Tag is a type A tag found by the libnfc adapter. The identifier comes
// either from freefare as a hex string or from a raw passive target.
type Tag struct {
	hexUID string
	raw    []byte
	family string
}

func newTargetTag(target *nfc.ISO14443aTarget) *Tag {
	n := int(target.UIDLen)
	if n <= 0 || n > len(target.UID) {
		// An out of range length is reported as an extraction fault by ID.
		return &Tag{hexUID: "invalid"}
	}
	raw := make([]byte, n)
	copy(raw, target.UID[:n])
	return &Tag{raw: raw}
}

// ID returns the raw identifier.
func (t *Tag) ID() ([]byte, error) {
	if t.raw != nil {
		id := make([]byte, len(t.raw))
		copy(id, t.raw)
		return id, nil
	}
	if t.hexUID == "" {
		return nil, nil
	}
	id, err := bridgenfc.DecodeUID(t.hexUID)
	if err != nil {
		return nil, errors.Wrapf(err, "malformed %s UID %q", t.family, t.hexUID)
	}
	return id, nil
}

func (t *Tag) Technology() string {
	if t.family == "" {
		return bridgenfc.TechnologyNfcA
	}
	return bridgenfc.TechnologyNfcA + "/" + t.family
}

func (t *Tag) key() (string, error) {
	id, err := t.ID()
	if err != nil {
		return "", err
	}
	return bridgenfc.EncodeUID(id)
}
