package telemetry

import "testing"

func TestCritical(t *testing.T) {
	cases := []struct {
		name string
		rec  RobotRecord
		want bool
	}{
		{"offline dominates", RobotRecord{ID: "R1", Online: false, BatteryPercent: 80}, true},
		{"low battery", RobotRecord{ID: "R2", Online: true, BatteryPercent: 15}, true},
		{"healthy", RobotRecord{ID: "R3", Online: true, BatteryPercent: 50}, false},
		{"threshold is exclusive", RobotRecord{ID: "R4", Online: true, BatteryPercent: 20}, false},
		{"just below threshold", RobotRecord{ID: "R5", Online: true, BatteryPercent: 19}, true},
		{"offline and empty", RobotRecord{ID: "R6", Online: false, BatteryPercent: 0}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Critical(tc.rec); got != tc.want {
				t.Errorf("Critical(%+v) = %v, want %v", tc.rec, got, tc.want)
			}
		})
	}
}

func TestCriticalIsPure(t *testing.T) {
	for online := 0; online < 2; online++ {
		for b := 0; b <= 100; b++ {
			r := RobotRecord{ID: "x", Online: online == 1, BatteryPercent: b}
			want := !r.Online || r.BatteryPercent < 20
			first := Critical(r)
			if first != want || Critical(r) != first {
				t.Fatalf("Critical(%+v) not stable or wrong", r)
			}
			if r.BatteryPercent != b {
				t.Fatalf("record mutated")
			}
		}
	}
}
