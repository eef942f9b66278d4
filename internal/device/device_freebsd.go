//go:build freebsd

package device

import (
	"fmt"
	"strconv"
	"strings"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/drvkit/drvlist/internal/probe"
	"github.com/drvkit/drvlist/internal/strutil"
)

// ioctl request code construction, sys/ioccom.h.
const (
	iocOut      = 0x40000000
	iocIn       = 0x80000000
	iocInOut    = iocIn | iocOut
	iocparmMask = 0x1fff
)

func ior(group byte, num uint, size uintptr) uintptr {
	return uintptr(iocOut | (uint(size)&iocparmMask)<<16 | uint(group)<<8 | num)
}

func iowr(group byte, num uint, size uintptr) uintptr {
	return uintptr(iocInOut | (uint(size)&iocparmMask)<<16 | uint(group)<<8 | num)
}

// Generic disk ioctls, sys/disk.h.
const (
	diskIdentSize = 256  // DISK_IDENT_SIZE
	maxPathLen    = 1024 // MAXPATHLEN
)

var (
	diocgMediaSize = ior('d', 129, unsafe.Sizeof(int64(0))) // DIOCGMEDIASIZE
	diocgIdent     = ior('d', 137, diskIdentSize)           // DIOCGIDENT
	diocgPhysPath  = ior('d', 141, maxPathLen)              // DIOCGPHYSPATH
)

// CAM transport, sys/cam/cam_ccb.h and sys/cam/cam.h.
const (
	xptDevice = "/dev/xpt0"

	// ccbLen is sizeof(union ccb) on amd64; the largest member is
	// struct ccb_getdev (header + inquiry data + 512-byte identify
	// block + serial number buffer).
	ccbLen = 1216

	xptGdevType = 0x02  // XPT_GDEV_TYPE
	xptGdevList = 0x03  // XPT_GDEVLIST
	xptPathInq  = 0x04  // XPT_PATH_INQ
	xptATAIO    = 0x918 // XPT_ATA_IO (0x18 | XPT_FC_DEV_QUEUED)

	camDirIn      = 0x00000040 // CAM_DIR_IN
	camDevQfrzdis = 0x00000400 // CAM_DEV_QFRZDIS

	camStatusMask     = 0x3f
	camReqCmp         = 0x01 // CAM_REQ_CMP
	camATAStatusError = 0x3d // CAM_ATA_STATUS_ERROR

	camGdevlistError = 3 // CAM_GDEVLIST_ERROR

	camATAIO48Bit = 0x01 // CAM_ATAIO_48BIT

	ataDevLBA = 0x40

	devIDLen = 16 // DEV_IDLEN
)

var (
	camIOCommand   = iowr(0x15, 2, ccbLen) // CAMIOCOMMAND
	camGetPassthru = iowr(0x15, 3, ccbLen) // CAMGETPASSTHRU
)

func ioctl(fd int, req uintptr, arg unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), req, uintptr(arg))
	if errno != 0 {
		return errno
	}
	return nil
}

// ccbHdr mirrors struct ccb_hdr. The queue linkage and private areas
// are opaque to userland; only their sizes matter.
type ccbHdr struct {
	Priority    uint32
	Generation  uint32
	Index       int32
	_           [4]byte
	XptLinks    [2]uintptr
	SimLinks    [2]uintptr
	PeriphLinks [2]uintptr
	RetryCount  uint32
	_           [4]byte
	Cbfcnp      uintptr
	FuncCode    uint32
	Status      uint32
	Path        uintptr
	PathID      uint32
	TargetID    uint32
	TargetLun   uint64
	Flags       uint32
	Xflags      uint32
	PeriphPriv  [2]uintptr
	SimPriv     [2]uintptr
	Qos         uint64
	Timeout     uint32
	Softtimeout [16]byte // struct timeval
}

// ccbBuf reserves the full union ccb so the kernel's copyin/copyout of
// IOCPARM_LEN bytes stays in bounds; the typed views below overlay it.
type ccbBuf [ccbLen]byte

// struct ccb_getdevlist
type ccbGetDevList struct {
	Header     ccbHdr
	PeriphName [devIDLen]byte
	UnitNumber uint32
	Generation uint32
	Index      uint32
	Status     uint32
}

// struct scsi_inquiry_data, scsi/scsi_all.h
type scsiInquiryData struct {
	Device         uint8
	DevQual2       uint8
	Version        uint8
	ResponseFormat uint8
	AdditionalLen  uint8
	SPC3Flags      uint8
	Flags          uint8
	Flags2         uint8
	Vendor         [8]byte
	Product        [16]byte
	Revision       [4]byte
	_              [220]byte
}

// struct ccb_getdev
type ccbGetDev struct {
	Header    ccbHdr
	Protocol  uint32
	InqData   scsiInquiryData
	IdentData [512]byte
	SerialNum [252]byte
	InqFlags  uint8
	SerialLen uint8
	_         [2]byte
}

// struct ccb_pathinq
type ccbPathInq struct {
	Header            ccbHdr
	VersionNum        uint8
	HBAInquiry        uint8
	TargetSprt        uint16
	HBAMisc           uint32
	HBAEngCnt         uint16
	VuHBAFlags        [14]uint8
	MaxTarget         uint32
	MaxLun            uint32
	AsyncFlags        uint32
	HPathID           uint32
	InitiatorID       uint32
	SimVID            [16]byte
	HBAVID            [16]byte
	DevName           [16]byte
	UnitNumber        uint32
	BusID             uint32
	BaseTransferSpeed uint32
	Protocol          uint32
	ProtocolVersion   uint32
	Transport         uint32
	TransportVersion  uint32
	XportSpecific     [128]byte
	MaxIO             uint32
	HBAVendor         uint16
	HBADevice         uint16
	HBASubVendor      uint16
	HBASubDevice      uint16
}

// struct ata_cmd / struct ata_res, sys/ata.h register images.
type ataTaskfile struct {
	Flags          uint8
	Command        uint8
	Features       uint8
	LBALow         uint8
	LBAMid         uint8
	LBAHigh        uint8
	Device         uint8
	LBALowExp      uint8
	LBAMidExp      uint8
	LBAHighExp     uint8
	FeaturesExp    uint8
	SectorCount    uint8
	SectorCountExp uint8
	Control        uint8
}

type ataResult struct {
	Flags          uint8
	Status         uint8
	Error          uint8
	LBALow         uint8
	LBAMid         uint8
	LBAHigh        uint8
	Device         uint8
	LBALowExp      uint8
	LBAMidExp      uint8
	LBAHighExp     uint8
	SectorCount    uint8
	SectorCountExp uint8
}

// struct ccb_ataio
type ccbATAIO struct {
	Header   ccbHdr
	NextCCB  uintptr
	Cmd      ataTaskfile
	Res      ataResult
	DataPtr  *byte
	DxferLen uint32
	Resid    uint32
	ATAFlags uint8
	_        [3]byte
	Aux      uint32
	Unused   uint32
}

// NVMe passthrough, sys/dev/nvme/nvme.h.
type nvmeSQE struct {
	Opc   uint8
	Fuse  uint8
	CID   uint16
	NSID  uint32
	_     [8]byte
	MPtr  uint64
	PRP1  uint64
	PRP2  uint64
	CDW10 uint32
	CDW11 uint32
	CDW12 uint32
	CDW13 uint32
	CDW14 uint32
	CDW15 uint32
}

type nvmeCQE struct {
	CDW0   uint32
	_      uint32
	SQHead uint16
	SQID   uint16
	CID    uint16
	Status uint16
}

type nvmePassthroughCmd struct {
	Cmd        nvmeSQE
	Cpl        nvmeCQE
	Buf        *byte
	Len        uint32
	IsRead     uint32
	DriverLock uintptr
}

var nvmePassthroughReq = iowr('n', 0, unsafe.Sizeof(nvmePassthroughCmd{})) // NVME_PASSTHROUGH_CMD

// osSystem is the real FreeBSD implementation of System.
type osSystem struct{}

// New returns the native device-access layer.
func New() System { return osSystem{} }

func devPath(name string) string {
	if strings.HasPrefix(name, "/dev/") {
		return name
	}
	return "/dev/" + name
}

// List enumerates disks from the kern.disks sysctl.
func (osSystem) List() ([]string, error) {
	disks, err := unix.Sysctl("kern.disks")
	if err != nil {
		return nil, fmt.Errorf("sysctl kern.disks: %w", err)
	}
	return strings.Fields(disks), nil
}

func (osSystem) MediaSize(name string) (int64, error) {
	fd, err := unix.Open(devPath(name), unix.O_RDONLY, 0)
	if err != nil {
		return 0, err
	}
	defer unix.Close(fd)

	var size int64
	if err := ioctl(fd, diocgMediaSize, unsafe.Pointer(&size)); err != nil {
		return 0, fmt.Errorf("DIOCGMEDIASIZE %s: %w", name, err)
	}
	return size, nil
}

func (osSystem) PhysPath(name string) (string, error) {
	fd, err := unix.Open(devPath(name), unix.O_RDONLY, 0)
	if err != nil {
		return "", err
	}
	defer unix.Close(fd)

	var buf [maxPathLen]byte
	if err := ioctl(fd, diocgPhysPath, unsafe.Pointer(&buf[0])); err != nil {
		return "", nil // devices without a physical path are common
	}
	return strutil.FixedASCII(buf[:]), nil
}

func (osSystem) RawIdent(name string) (string, error) {
	fd, err := unix.Open(devPath(name), unix.O_RDONLY|unix.O_DIRECT, 0)
	if err != nil {
		return "", err
	}
	defer unix.Close(fd)

	var buf [diskIdentSize]byte
	if err := ioctl(fd, diocgIdent, unsafe.Pointer(&buf[0])); err != nil {
		return "", fmt.Errorf("DIOCGIDENT %s: %w", name, err)
	}
	return strutil.FixedASCII(buf[:]), nil
}

// splitUnit splits a device name like "ada12" into its periph name and
// unit number.
func splitUnit(name string) (string, uint32, error) {
	i := len(name)
	for i > 0 && name[i-1] >= '0' && name[i-1] <= '9' {
		i--
	}
	if i == 0 || i == len(name) {
		return "", 0, fmt.Errorf("device name %q has no unit number", name)
	}
	unit, err := strconv.ParseUint(name[i:], 10, 32)
	if err != nil {
		return "", 0, err
	}
	return name[:i], uint32(unit), nil
}

// getPassthru asks the transport layer for the periph list entry
// matching name/unit; on the xpt node this maps a device to its passN
// sibling, on a pass node it fills in the bus/target/lun address.
func getPassthru(fd int, name string, unit uint32) (*ccbGetDevList, error) {
	buf := new(ccbBuf)
	cgdl := (*ccbGetDevList)(unsafe.Pointer(buf))
	cgdl.Header.FuncCode = xptGdevList
	copy(cgdl.PeriphName[:], name)
	cgdl.UnitNumber = unit

	if err := ioctl(fd, camGetPassthru, unsafe.Pointer(buf)); err != nil {
		return nil, fmt.Errorf("CAMGETPASSTHRU %s%d: %w", name, unit, err)
	}
	if s := cgdl.Header.Status & camStatusMask; s != camReqCmp {
		return nil, fmt.Errorf("CAMGETPASSTHRU %s%d: status %#x", name, unit, s)
	}
	if cgdl.Status == camGdevlistError {
		return nil, fmt.Errorf("CAMGETPASSTHRU %s%d: no periph", name, unit)
	}
	return cgdl, nil
}

type camDevice struct {
	fd int

	simName   string
	simUnit   uint32
	busID     uint32
	pathID    uint32
	targetID  uint32
	targetLun uint64

	serial   []byte
	vendor   [8]byte
	product  [16]byte
	revision [4]byte
}

// OpenCAM reproduces the cam_open_device dance: resolve the device to
// its passthrough sibling via the transport node, open the pass
// device, then collect its address, controller identity and inquiry
// data. Any step failing means the device is not CAM-attached.
func (osSystem) OpenCAM(name string) (CAMDevice, error) {
	periph, unit, err := splitUnit(strings.TrimPrefix(name, "/dev/"))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransportUnavailable, err)
	}

	xpt, err := unix.Open(xptDevice, unix.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrTransportUnavailable, xptDevice, err)
	}
	cgdl, err := getPassthru(xpt, periph, unit)
	if err != nil {
		unix.Close(xpt)
		return nil, fmt.Errorf("%w: %v", ErrTransportUnavailable, err)
	}
	passName := strutil.FixedASCII(cgdl.PeriphName[:])
	passUnit := cgdl.UnitNumber
	unix.Close(xpt)

	fd, err := unix.Open(fmt.Sprintf("/dev/%s%d", passName, passUnit), unix.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s%d: %v", ErrTransportUnavailable, passName, passUnit, err)
	}

	dev := &camDevice{fd: fd}
	if err := dev.collect(passName, passUnit); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("%w: %v", ErrTransportUnavailable, err)
	}
	return dev, nil
}

func (d *camDevice) collect(passName string, passUnit uint32) error {
	cgdl, err := getPassthru(d.fd, passName, passUnit)
	if err != nil {
		return err
	}
	d.pathID = cgdl.Header.PathID
	d.targetID = cgdl.Header.TargetID
	d.targetLun = cgdl.Header.TargetLun

	buf := new(ccbBuf)
	cpi := (*ccbPathInq)(unsafe.Pointer(buf))
	cpi.Header.FuncCode = xptPathInq
	cpi.Header.PathID = d.pathID
	if err := ioctl(d.fd, camIOCommand, unsafe.Pointer(buf)); err != nil {
		return fmt.Errorf("XPT_PATH_INQ: %w", err)
	}
	if s := cpi.Header.Status & camStatusMask; s != camReqCmp {
		return fmt.Errorf("XPT_PATH_INQ: status %#x", s)
	}
	d.simName = strutil.FixedASCII(cpi.DevName[:])
	d.simUnit = cpi.UnitNumber
	d.busID = cpi.BusID

	buf = new(ccbBuf)
	cgd := (*ccbGetDev)(unsafe.Pointer(buf))
	cgd.Header.FuncCode = xptGdevType
	cgd.Header.PathID = d.pathID
	cgd.Header.TargetID = d.targetID
	cgd.Header.TargetLun = d.targetLun
	if err := ioctl(d.fd, camIOCommand, unsafe.Pointer(buf)); err != nil {
		return fmt.Errorf("XPT_GDEV_TYPE: %w", err)
	}
	if s := cgd.Header.Status & camStatusMask; s != camReqCmp {
		return fmt.Errorf("XPT_GDEV_TYPE: status %#x", s)
	}
	d.serial = append([]byte(nil), cgd.SerialNum[:cgd.SerialLen]...)
	d.vendor = cgd.InqData.Vendor
	d.product = cgd.InqData.Product
	d.revision = cgd.InqData.Revision
	return nil
}

func (d *camDevice) Serial() []byte { return d.serial }

func (d *camDevice) Inquiry() (vendor, product, revision []byte) {
	return d.vendor[:], d.product[:], d.revision[:]
}

func (d *camDevice) SIM() (string, uint32, uint32) {
	return d.simName, d.simUnit, d.busID
}

func (d *camDevice) Address() (uint32, uint32, uint64) {
	return d.pathID, d.targetID, d.targetLun
}

// ATACommand submits one taskfile through XPT_ATA_IO with the queue
// freeze disabled, the way camcontrol drives passthrough commands. A
// completion carrying device error status maps to probe.ErrRejected so
// the identify probe can retry with its alternate opcode.
func (d *camDevice) ATACommand(cmd probe.ATACmd, data []byte) error {
	buf := new(ccbBuf)
	aio := (*ccbATAIO)(unsafe.Pointer(buf))
	aio.Header.FuncCode = xptATAIO
	aio.Header.Flags = camDirIn | camDevQfrzdis
	aio.Header.RetryCount = 1
	aio.Header.Timeout = uint32(cmd.Timeout.Milliseconds())
	aio.Header.PathID = d.pathID
	aio.Header.TargetID = d.targetID
	aio.Header.TargetLun = d.targetLun

	aio.Cmd.Command = cmd.Command
	aio.Cmd.Features = uint8(cmd.Features)
	aio.Cmd.LBALow = uint8(cmd.LBA)
	aio.Cmd.LBAMid = uint8(cmd.LBA >> 8)
	aio.Cmd.LBAHigh = uint8(cmd.LBA >> 16)
	aio.Cmd.SectorCount = uint8(cmd.SectorCount)
	if cmd.Uses48Bit() {
		aio.Cmd.Flags = camATAIO48Bit
		aio.Cmd.LBALowExp = uint8(cmd.LBA >> 24)
		aio.Cmd.LBAMidExp = uint8(cmd.LBA >> 32)
		aio.Cmd.LBAHighExp = uint8(cmd.LBA >> 40)
		aio.Cmd.FeaturesExp = uint8(cmd.Features >> 8)
		aio.Cmd.SectorCountExp = uint8(cmd.SectorCount >> 8)
		aio.Cmd.Device = ataDevLBA
	} else {
		aio.Cmd.Device = ataDevLBA | uint8(cmd.LBA>>24)&0x0f
	}

	aio.DataPtr = &data[0]
	aio.DxferLen = uint32(len(data))

	if err := ioctl(d.fd, camIOCommand, unsafe.Pointer(buf)); err != nil {
		return fmt.Errorf("XPT_ATA_IO: %w", err)
	}
	switch s := aio.Header.Status & camStatusMask; s {
	case camReqCmp:
		return nil
	case camATAStatusError:
		return probe.ErrRejected
	default:
		return fmt.Errorf("XPT_ATA_IO: status %#x", s)
	}
}

func (d *camDevice) Close() error { return unix.Close(d.fd) }

type nvmeDevice struct {
	fd int
}

func (osSystem) OpenNVMe(name string) (NVMeDevice, error) {
	fd, err := unix.Open(devPath(name), unix.O_RDONLY, 0)
	if err != nil {
		return nil, err
	}
	return &nvmeDevice{fd: fd}, nil
}

func (d *nvmeDevice) AdminCommand(opcode uint8, cdw10 uint32, data []byte) error {
	pt := nvmePassthroughCmd{
		Buf:    &data[0],
		Len:    uint32(len(data)),
		IsRead: 1,
	}
	pt.Cmd.Opc = opcode
	pt.Cmd.CDW10 = cdw10

	if err := ioctl(d.fd, nvmePassthroughReq, unsafe.Pointer(&pt)); err != nil {
		return fmt.Errorf("NVME_PASSTHROUGH_CMD: %w", err)
	}
	// Status bit 0 is the phase tag; the rest holds SC/SCT.
	if code := pt.Cpl.Status >> 1; code != 0 {
		return fmt.Errorf("nvme completion status %#04x", pt.Cpl.Status)
	}
	return nil
}

func (d *nvmeDevice) Close() error { return unix.Close(d.fd) }
