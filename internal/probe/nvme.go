package probe

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/drvkit/drvlist/internal/strutil"
)

// NVMe admin Identify command, CNS value for controller data.
const (
	nvmeOpcIdentify   = 0x06
	nvmeCNSController = 1
)

// NVMeControllerDataLen is the size of the Identify Controller
// response structure.
const NVMeControllerDataLen = 4096

// Identify Controller field offsets (NVMe base spec, figure
// "Identify Controller Data Structure").
const (
	nvmeVIDOffset    = 0  // PCI vendor id, 2 bytes LE
	nvmeSSVIDOffset  = 2  // PCI subsystem vendor id, 2 bytes LE
	nvmeSerialOffset = 4  // 20 bytes ASCII
	nvmeSerialLen    = 20
	nvmeModelOffset  = 24 // 40 bytes ASCII
	nvmeModelLen     = 40
	nvmeFWRevOffset  = 64 // 8 bytes ASCII
	nvmeFWRevLen     = 8
	nvmeIEEEOffset   = 73 // OUI, 3 bytes
	nvmeCNTLIDOffset = 78 // controller id, 2 bytes LE
)

// NVMeAdmin submits one admin command against an NVMe controller node
// and fills data with the response. A completion status indicating an
// error must be surfaced as a non-nil error.
type NVMeAdmin interface {
	AdminCommand(opcode uint8, cdw10 uint32, data []byte) error
}

// ControllerInfo carries the PCI-level controller identification used
// to synthesize a topology string when the device was not reached
// through the CAM transport.
type ControllerInfo struct {
	VendorID          uint16
	SubsystemVendorID uint16
	IEEE              [3]byte
	ControllerID      uint16
}

// PathString renders the controller's PCI identification in the form
// used for the PATH column when no bus/target/lun addressing exists.
func (ci ControllerInfo) PathString() string {
	return fmt.Sprintf("pci vendor 0x%04x:0x%04x oui %02x:%02x:%02x controller 0x%04x",
		ci.VendorID, ci.SubsystemVendorID,
		ci.IEEE[0], ci.IEEE[1], ci.IEEE[2],
		ci.ControllerID)
}

// IdentifyController issues an NVMe Identify Controller admin command
// and extracts serial, model and firmware revision. NVMe model strings
// conventionally lead with the brand name, so the model is split at
// its first embedded space into vendor and product; a model with no
// space becomes the vendor with an empty product.
func IdentifyController(dev NVMeAdmin) (Outcome, ControllerInfo) {
	data := make([]byte, NVMeControllerDataLen)
	if err := dev.AdminCommand(nvmeOpcIdentify, nvmeCNSController, data); err != nil {
		return failed(fmt.Errorf("nvme identify controller: %w", err)), ControllerInfo{}
	}

	vendor, product := SplitModel(strutil.FixedASCII(data[nvmeModelOffset : nvmeModelOffset+nvmeModelLen]))

	info := ControllerInfo{
		VendorID:          binary.LittleEndian.Uint16(data[nvmeVIDOffset:]),
		SubsystemVendorID: binary.LittleEndian.Uint16(data[nvmeSSVIDOffset:]),
		ControllerID:      binary.LittleEndian.Uint16(data[nvmeCNTLIDOffset:]),
	}
	copy(info.IEEE[:], data[nvmeIEEEOffset:nvmeIEEEOffset+3])

	return Outcome{
		Status:   Identified,
		Identity: strutil.FixedASCII(data[nvmeSerialOffset : nvmeSerialOffset+nvmeSerialLen]),
		Vendor:   vendor,
		Product:  product,
		Revision: strutil.FixedASCII(data[nvmeFWRevOffset : nvmeFWRevOffset+nvmeFWRevLen]),
	}, info
}

// SplitModel splits an NVMe model string at its first interior
// whitespace run into a vendor/product pair.
func SplitModel(model string) (vendor, product string) {
	i := strings.IndexByte(model, ' ')
	if i < 0 {
		return model, ""
	}
	return model[:i], strings.TrimLeft(model[i+1:], " ")
}
