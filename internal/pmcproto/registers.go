// internal/pmcproto/registers.go
package pmcproto

// Register identifies one PMC register by its three-letter code.
// The set is closed: there is no dynamic attribute access anywhere in this
// package, only the named constants below.
type Register string

const (
	RegVersion       Register = "VER"
	RegConfig        Register = "CFG"
	RegStatus        Register = "STA"
	RegInterruptStat Register = "ISR"
	RegInterruptMask Register = "IMR"
	RegEcho          Register = "ECH"
	RegBacklight     Register = "BKL"
	RegLCDLine1      Register = "LN1"
	RegLCDLine2      Register = "LN2"
	RegTemperature   Register = "TMP"
	RegFanDuty       Register = "FAN"
	RegFanRPM        Register = "RPM"
	RegFanTach       Register = "TAC"
	RegLED           Register = "LED"
	RegLEDBlink      Register = "BLK"
	RegPowerLEDPulse Register = "PLS"
	RegDrivePresent  Register = "DP0"
	RegDriveEnable   Register = "DE0"
	RegDriveLEDSet   Register = "DLS"
	RegDriveLEDClear Register = "DLC"
	RegDriveLEDBlink Register = "DLB"
	RegUpdate        Register = "UPD"
)

// access describes whether a register may be read, written, or both.
type access int

const (
	accessRO access = iota
	accessWO
	accessRW
)

// descriptor is metadata about one register. It carries no behavior: the
// Protocol Engine decides how to encode/decode values using descriptors,
// but descriptors themselves never touch the wire.
type descriptor struct {
	access access
}

// descriptors is the closed register table. A register absent from this
// map is unknown to the engine and every operation on it returns
// ErrUnsupported.
var descriptors = map[Register]descriptor{
	RegVersion:       {accessRO},
	RegConfig:        {accessRW},
	RegStatus:        {accessRO},
	RegInterruptStat: {accessRO},
	RegInterruptMask: {accessRW},
	RegEcho:          {accessRW},
	RegBacklight:     {accessRW},
	RegLCDLine1:      {accessWO},
	RegLCDLine2:      {accessWO},
	RegTemperature:   {accessRO},
	RegFanDuty:       {accessRW},
	RegFanRPM:        {accessRO},
	RegFanTach:       {accessRO},
	RegLED:           {accessRW},
	RegLEDBlink:      {accessRW},
	RegPowerLEDPulse: {accessRW},
	RegDrivePresent:  {accessRO},
	RegDriveEnable:   {accessRW},
	RegDriveLEDSet:   {accessWO},
	RegDriveLEDClear: {accessWO},
	RegDriveLEDBlink: {accessRW},
	// RegUpdate is deliberately absent: UPD has no descriptor and is
	// rejected by Get/Set with ErrUnsupported regardless of direction.
}

func lookup(r Register) (descriptor, bool) {
	d, ok := descriptors[r]
	return d, ok
}

// FanDutyToWire clamps a logical 0-100 percent duty cycle to the wire
// encoding the PMC firmware actually accepts. The firmware's own
// "100%" sentinel is 99, not 100 - writing 100 is rejected by some PMC
// firmware revisions, so 100% is always sent as 99.
func FanDutyToWire(percent int) int {
	switch {
	case percent <= 0:
		return 0
	case percent >= 100:
		return 99
	default:
		return percent
	}
}
