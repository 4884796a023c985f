package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBtoi64(t *testing.T) {
	ret := Btoi64([]byte{0x04, 0xae, 0x24, 0x07, 0x00, 0x4b, 0x12, 0x00})

	assert.Equal(t, uint64(0x00124b000724ae04), ret)
}

func TestI64tob(t *testing.T) {
	ret := I64tob(0x00124b000724ae04)

	assert.Equal(t, []byte{0x04, 0xae, 0x24, 0x07, 0x00, 0x4b, 0x12, 0x00}, ret)
	assert.Equal(t, uint64(0x00124b000724ae04), Btoi64(ret))
}
