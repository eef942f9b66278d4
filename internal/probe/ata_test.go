package probe

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeATA scripts responses per opcode and records the commands seen.
type fakeATA struct {
	commands []ATACmd
	rejected map[uint8]bool
	err      error
	response []byte
}

func (f *fakeATA) ATACommand(cmd ATACmd, data []byte) error {
	f.commands = append(f.commands, cmd)
	if f.rejected[cmd.Command] {
		return ErrRejected
	}
	if f.err != nil {
		return f.err
	}
	copy(data, f.response)
	return nil
}

// identifyBlock builds a parameter block whose model and revision
// fields hold the given strings in wire order (byte-swapped words).
func identifyBlock(model, revision string) []byte {
	buf := make([]byte, ataIdentifyLen)
	buf[0] = 0x40 // general configuration word, non-zero
	putSwapped := func(off, n int, s string) {
		field := make([]byte, n)
		for i := range field {
			field[i] = ' '
		}
		copy(field, s)
		for i := 0; i+1 < n; i += 2 {
			field[i], field[i+1] = field[i+1], field[i]
		}
		copy(buf[off:], field)
	}
	putSwapped(ataModelOffset, ataModelLen, model)
	putSwapped(ataRevisionOffset, ataRevisionLen, revision)
	putSwapped(ataSerialOffset, ataSerialLen, "WD-WCC7K1234567")
	return buf
}

func Test_IdentifyATA(t *testing.T) {
	dev := &fakeATA{response: identifyBlock("WDC WD80EFAX-68KNBN0", "81.00A81")}

	out := IdentifyATA(dev)

	require.Equal(t, Identified, out.Status)
	assert.Equal(t, "ATA", out.Vendor)
	assert.Equal(t, "WDC WD80EFAX-68KNBN0", out.Product)
	assert.Equal(t, "81.00A81", out.Revision)
	assert.Empty(t, out.Identity, "serial ownership stays with the transport")

	require.Len(t, dev.commands, 1)
	assert.Equal(t, uint8(ataIdentifyDevice), dev.commands[0].Command)
	assert.False(t, dev.commands[0].Uses48Bit())
}

func Test_IdentifyATA_RetriesWithPacketIdentify(t *testing.T) {
	dev := &fakeATA{
		rejected: map[uint8]bool{ataIdentifyDevice: true},
		response: identifyBlock("ATAPI CD-ROM", "1.0"),
	}

	out := IdentifyATA(dev)

	require.Len(t, dev.commands, 2)
	assert.Equal(t, uint8(ataIdentifyDevice), dev.commands[0].Command)
	assert.Equal(t, uint8(ataIdentifyPacketDevice), dev.commands[1].Command)
	assert.Equal(t, Identified, out.Status)
}

func Test_IdentifyATA_NotApplicableWhenBothRejected(t *testing.T) {
	dev := &fakeATA{
		rejected: map[uint8]bool{ataIdentifyDevice: true, ataIdentifyPacketDevice: true},
	}

	out := IdentifyATA(dev)

	assert.Equal(t, NotApplicable, out.Status)
	assert.Len(t, dev.commands, 2)
}

func Test_IdentifyATA_TransportErrorFails(t *testing.T) {
	cause := errors.New("bus reset")
	dev := &fakeATA{err: cause}

	out := IdentifyATA(dev)

	require.Equal(t, Failed, out.Status)
	assert.ErrorIs(t, out.Err, cause)
	assert.Len(t, dev.commands, 1, "transport errors are not retried")
}

// An all-zero parameter block must be rejected no matter what the
// completion status said.
func Test_IdentifyATA_AllZeroResponseRejected(t *testing.T) {
	dev := &fakeATA{response: make([]byte, ataIdentifyLen)}

	out := IdentifyATA(dev)

	require.Equal(t, Failed, out.Status)
	assert.ErrorContains(t, out.Err, "all-zero")
}

func Test_ATACmd_Uses48Bit(t *testing.T) {
	var testCases = []struct {
		name     string
		cmd      ATACmd
		expected bool
	}{
		{name: "small lba", cmd: ATACmd{LBA: 0}, expected: false},
		{name: "top of 28-bit range", cmd: ATACmd{LBA: maxLBA28}, expected: false},
		{name: "past 28-bit range", cmd: ATACmd{LBA: maxLBA28 + 1}, expected: true},
		{name: "forced", cmd: ATACmd{LBA: 1, Force48Bit: true}, expected: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.cmd.Uses48Bit())
		})
	}
}

func Test_SerialFromIdentify(t *testing.T) {
	buf := identifyBlock("WDC WD80EFAX-68KNBN0", "81.00A81")
	fixupIdentify(buf)
	assert.Equal(t, "WD-WCC7K1234567", SerialFromIdentify(buf))
	assert.Equal(t, "", SerialFromIdentify(nil))
}
