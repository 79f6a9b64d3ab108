package libnfc

import (
	"testing"

	"github.com/clausecker/nfc/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bridgenfc "github.com/dotside-studios/nfc-bridge/nfc"
)

func TestTag_IDFromFreefareHex(t *testing.T) {
	tag := &Tag{hexUID: "04a3f1", family: "MIFARE Ultralight"}

	id, err := tag.ID()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x04, 0xA3, 0xF1}, id)
	assert.Equal(t, bridgenfc.TechnologyNfcA+"/MIFARE Ultralight", tag.Technology())
}

func TestTag_MalformedHexIsExtractionFault(t *testing.T) {
	tag := &Tag{hexUID: "zz", family: "MIFARE Classic"}

	id, err := tag.ID()
	assert.Error(t, err)
	assert.Nil(t, id)
}

func TestNewTargetTag(t *testing.T) {
	target := &nfc.ISO14443aTarget{UIDLen: 4}
	copy(target.UID[:], []byte{0x01, 0x02, 0x03, 0x04})

	tag := newTargetTag(target)
	id, err := tag.ID()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x02, 0x03, 0x04}, id)
	assert.Equal(t, bridgenfc.TechnologyNfcA, tag.Technology())

	key, err := tag.key()
	require.NoError(t, err)
	assert.Equal(t, "01020304", key)
}

func TestNewTargetTag_BadLength(t *testing.T) {
	target := &nfc.ISO14443aTarget{UIDLen: 0}

	_, err := newTargetTag(target).ID()
	assert.Error(t, err)
}
