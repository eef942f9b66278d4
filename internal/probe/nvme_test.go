package probe

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNVMe struct {
	opcode uint8
	cdw10  uint32
	err    error
	data   []byte
}

func (f *fakeNVMe) AdminCommand(opcode uint8, cdw10 uint32, data []byte) error {
	f.opcode = opcode
	f.cdw10 = cdw10
	if f.err != nil {
		return f.err
	}
	copy(data, f.data)
	return nil
}

func controllerData(serial, model, firmware string) []byte {
	data := make([]byte, NVMeControllerDataLen)
	pad := func(off, n int, s string) {
		for i := 0; i < n; i++ {
			data[off+i] = ' '
		}
		copy(data[off:], s)
	}
	pad(nvmeSerialOffset, nvmeSerialLen, serial)
	pad(nvmeModelOffset, nvmeModelLen, model)
	pad(nvmeFWRevOffset, nvmeFWRevLen, firmware)
	binary.LittleEndian.PutUint16(data[nvmeVIDOffset:], 0x144d)
	binary.LittleEndian.PutUint16(data[nvmeSSVIDOffset:], 0x144d)
	binary.LittleEndian.PutUint16(data[nvmeCNTLIDOffset:], 0x0006)
	copy(data[nvmeIEEEOffset:], []byte{0x38, 0x25, 0x00})
	return data
}

func Test_IdentifyController(t *testing.T) {
	dev := &fakeNVMe{data: controllerData("S677NF0R123456", "SAMSUNG MZVL21T0HCLR-00B00", "GXA7401Q")}

	out, info := IdentifyController(dev)

	require.Equal(t, Identified, out.Status)
	assert.Equal(t, uint8(nvmeOpcIdentify), dev.opcode)
	assert.Equal(t, uint32(nvmeCNSController), dev.cdw10)

	assert.Equal(t, "S677NF0R123456", out.Identity)
	assert.Equal(t, "SAMSUNG", out.Vendor)
	assert.Equal(t, "MZVL21T0HCLR-00B00", out.Product)
	assert.Equal(t, "GXA7401Q", out.Revision)

	assert.Equal(t, uint16(0x144d), info.VendorID)
	assert.Equal(t, uint16(0x144d), info.SubsystemVendorID)
	assert.Equal(t, uint16(0x0006), info.ControllerID)
	assert.Equal(t, [3]byte{0x38, 0x25, 0x00}, info.IEEE)
}

func Test_IdentifyController_CompletionErrorFails(t *testing.T) {
	cause := errors.New("completion status 0x4002")
	dev := &fakeNVMe{err: cause}

	out, _ := IdentifyController(dev)

	require.Equal(t, Failed, out.Status)
	assert.ErrorIs(t, out.Err, cause)
}

func Test_SplitModel(t *testing.T) {
	var testCases = []struct {
		model   string
		vendor  string
		product string
	}{
		{model: "SAMSUNG MZVL21T0HCLR-00B00", vendor: "SAMSUNG", product: "MZVL21T0HCLR-00B00"},
		{model: "INTEL SSDPEKNW512G8", vendor: "INTEL", product: "SSDPEKNW512G8"},
		{model: "KINGSTON  SA2000M8250G", vendor: "KINGSTON", product: "SA2000M8250G"},
		{model: "Force-MP600", vendor: "Force-MP600", product: ""},
		{model: "", vendor: "", product: ""},
	}

	for _, tc := range testCases {
		t.Run(tc.model, func(t *testing.T) {
			vendor, product := SplitModel(tc.model)
			assert.Equal(t, tc.vendor, vendor)
			assert.Equal(t, tc.product, product)
		})
	}
}

func Test_ControllerInfo_PathString(t *testing.T) {
	info := ControllerInfo{
		VendorID:          0x144d,
		SubsystemVendorID: 0x144d,
		IEEE:              [3]byte{0x38, 0x25, 0x00},
		ControllerID:      6,
	}
	assert.Equal(t, "pci vendor 0x144d:0x144d oui 38:25:00 controller 0x0006", info.PathString())
}
