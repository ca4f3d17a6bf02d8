package sink

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/sys/unix"
)

func TestSerialTermiosTakesArbitraryBaud(t *testing.T) {
	tio := serialTermios(12000000)

	assert.Equal(t, uint32(12000000), tio.Ispeed)
	assert.Equal(t, uint32(12000000), tio.Ospeed)
	assert.EqualValues(t, unix.BOTHER|unix.CS8|unix.CREAD|unix.CLOCAL, tio.Cflag)
	// BOTHER, not a B-constant: the literal speed fields are in charge.
	assert.NotZero(t, tio.Cflag&unix.BOTHER)
}
