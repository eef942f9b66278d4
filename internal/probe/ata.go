package probe

import (
	"errors"
	"fmt"
	"time"

	"github.com/drvkit/drvlist/internal/strutil"
)

// ATA command opcodes used by the identify probe.
const (
	ataIdentifyDevice       = 0xec
	ataIdentifyPacketDevice = 0xa1
)

// maxLBA28 is the highest LBA addressable with 28-bit commands.
const maxLBA28 = 0x0fffffff

// ataIdentifyLen is the size of the IDENTIFY parameter block.
const ataIdentifyLen = 512

// ataTimeout bounds every passthrough command issued by this probe.
const ataTimeout = 30 * time.Second

// Identify string field offsets within the parameter block. ATA
// strings live in 16-bit words with the two characters byte-swapped
// relative to their reading order.
const (
	ataSerialOffset   = 20 // words 10-19
	ataSerialLen      = 20
	ataRevisionOffset = 46 // words 23-26
	ataRevisionLen    = 8
	ataModelOffset    = 54 // words 27-46
	ataModelLen       = 40
)

// ATACmd describes one ATA taskfile command to be submitted through
// the generic transport. The transport picks the 48-bit register
// layout when Uses48Bit reports true.
type ATACmd struct {
	Command     uint8
	Features    uint16
	LBA         uint64
	SectorCount uint16
	Timeout     time.Duration
	Force48Bit  bool
}

// Uses48Bit reports whether the command needs 48-bit addressing,
// either because the caller forced it or because the LBA does not fit
// in 28 bits. The identify command never needs it; the selection is
// generic so other commands reuse it unchanged.
func (c ATACmd) Uses48Bit() bool {
	return c.Force48Bit || c.LBA > maxLBA28
}

// ATACommander submits one ATA command and fills data with the
// device's response. A device-level refusal is reported as
// ErrRejected; transport trouble as any other error.
type ATACommander interface {
	ATACommand(cmd ATACmd, data []byte) error
}

// IdentifyATA issues an ATA IDENTIFY DEVICE command and extracts the
// model and firmware revision. A device that rejects the opcode is
// retried once with IDENTIFY PACKET DEVICE; rejecting both means the
// device does not speak ATA at all. Some adapters acknowledge the
// command but hand back an all-zero parameter block; that response is
// rejected as invalid regardless of completion status.
//
// The vendor is fixed to the "ATA" placeholder token, as the protocol
// has no vendor field; the fixup pass recovers the brand afterwards.
func IdentifyATA(dev ATACommander) Outcome {
	buf := make([]byte, ataIdentifyLen)
	cmd := ATACmd{
		Command:     ataIdentifyDevice,
		SectorCount: ataIdentifyLen / 512,
		Timeout:     ataTimeout,
	}

	err := dev.ATACommand(cmd, buf)
	if errors.Is(err, ErrRejected) {
		cmd.Command = ataIdentifyPacketDevice
		err = dev.ATACommand(cmd, buf)
	}
	if errors.Is(err, ErrRejected) {
		return Outcome{Status: NotApplicable}
	}
	if err != nil {
		return failed(fmt.Errorf("ata identify: %w", err))
	}

	if allZero(buf) {
		return failed(errors.New("ata identify: all-zero parameter block"))
	}

	fixupIdentify(buf)

	return Outcome{
		Status:   Identified,
		Vendor:   "ATA",
		Product:  strutil.FixedASCII(buf[ataModelOffset : ataModelOffset+ataModelLen]),
		Revision: strutil.FixedASCII(buf[ataRevisionOffset : ataRevisionOffset+ataRevisionLen]),
	}
}

// SerialFromIdentify extracts the serial-number field from an
// already-fixed-up identify block.
func SerialFromIdentify(buf []byte) string {
	if len(buf) < ataSerialOffset+ataSerialLen {
		return ""
	}
	return strutil.FixedASCII(buf[ataSerialOffset : ataSerialOffset+ataSerialLen])
}

// fixupIdentify swaps the bytes of each 16-bit word in the identify
// string fields so they read in natural order.
func fixupIdentify(buf []byte) {
	swapWords(buf, ataSerialOffset, ataSerialLen)
	swapWords(buf, ataRevisionOffset, ataRevisionLen)
	swapWords(buf, ataModelOffset, ataModelLen)
}

func swapWords(buf []byte, off, n int) {
	for i := off; i+1 < off+n; i += 2 {
		buf[i], buf[i+1] = buf[i+1], buf[i]
	}
}

func allZero(buf []byte) bool {
	for _, b := range buf {
		if b != 0 {
			return false
		}
	}
	return true
}
