package board

// Commands shared by mrm boards, carried in byte 0 of a frame.
const (
	CommandSensorsMeasureContinuous byte = 0x10
	CommandSensorsMeasureOnce       byte = 0x11
	CommandSensorsMeasureStop       byte = 0x12
	CommandSensorsMeasureSending    byte = 0x13
	CommandFPSRequest               byte = 0x30
	CommandFPSSending               byte = 0x31
	CommandNotification             byte = 0x41
	CommandError                    byte = 0xee
	CommandReportAlive              byte = 0xff
)
