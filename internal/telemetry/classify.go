package telemetry

// LowBatteryThreshold is the battery level below which a robot is critical.
const LowBatteryThreshold = 20

// Critical reports whether a robot needs attention: it is offline or its
// battery is below LowBatteryThreshold.
func Critical(r RobotRecord) bool {
	return !r.Online || r.BatteryPercent < LowBatteryThreshold
}
