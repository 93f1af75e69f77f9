package switcher

import "testing"

func TestParseDeviceState(t *testing.T) {
	cases := []struct {
		in      string
		want    DeviceState
		wantErr bool
	}{
		{"ON", StateOn, false},
		{"on", StateOn, false},
		{" Off ", StateOff, false},
		{"standby", StateUnknown, true},
		{"", StateUnknown, true},
	}
	for _, c := range cases {
		got, err := ParseDeviceState(c.in)
		if c.wantErr {
			if err == nil {
				t.Fatalf("expected error for %q", c.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("unexpected error for %q: %v", c.in, err)
		}
		if got != c.want {
			t.Fatalf("unexpected state for %q: got %v want %v", c.in, got, c.want)
		}
	}
}

func TestParseThermostatMode(t *testing.T) {
	cases := []struct {
		in      string
		want    ThermostatMode
		wantErr bool
	}{
		{"AUTO", ModeAuto, false},
		{"dry", ModeDry, false},
		{"Fan", ModeFan, false},
		{"COOL", ModeCool, false},
		{"heat", ModeHeat, false},
		{"turbo", 0, true},
	}
	for _, c := range cases {
		got, err := ParseThermostatMode(c.in)
		if c.wantErr {
			if err == nil {
				t.Fatalf("expected error for %q", c.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("unexpected error for %q: %v", c.in, err)
		}
		if got != c.want {
			t.Fatalf("unexpected mode for %q: got %v want %v", c.in, got, c.want)
		}
	}
}

func TestParseThermostatFanLevel(t *testing.T) {
	cases := []struct {
		in      string
		want    ThermostatFanLevel
		wantErr bool
	}{
		{"AUTO", FanAuto, false},
		{"low", FanLow, false},
		{"Medium", FanMedium, false},
		{"HIGH", FanHigh, false},
		{"max", 0, true},
	}
	for _, c := range cases {
		got, err := ParseThermostatFanLevel(c.in)
		if c.wantErr {
			if err == nil {
				t.Fatalf("expected error for %q", c.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("unexpected error for %q: %v", c.in, err)
		}
		if got != c.want {
			t.Fatalf("unexpected fan level for %q: got %v want %v", c.in, got, c.want)
		}
	}
}

func TestDeviceTypeRoundTrip(t *testing.T) {
	for devType, info := range deviceTypes {
		if got := deviceTypeFromHex(info.hexRep); got != devType {
			t.Fatalf("unexpected type for %s: got %v want %v", info.hexRep, got, devType)
		}
	}
	if got := deviceTypeFromHex("beef"); got != TypeUnknown {
		t.Fatalf("unexpected type for junk id: got %v", got)
	}
}

func TestDeviceTypeGenerations(t *testing.T) {
	gen2 := map[DeviceType]bool{TypeBreeze: true, TypeRunner: true, TypeRunnerMini: true}
	for devType := range deviceTypes {
		want := 1
		if gen2[devType] {
			want = 2
		}
		if got := devType.Generation(); got != want {
			t.Fatalf("unexpected generation for %v: got %d want %d", devType, got, want)
		}
	}
	if got := TypeUnknown.Generation(); got != 0 {
		t.Fatalf("unexpected generation for unknown type: got %d", got)
	}
}

func TestEnumStrings(t *testing.T) {
	if got := StateOn.String(); got != "on" {
		t.Fatalf("unexpected state string: got %q", got)
	}
	if got := ModeCool.String(); got != "cool" {
		t.Fatalf("unexpected mode string: got %q", got)
	}
	if got := FanMedium.String(); got != "medium" {
		t.Fatalf("unexpected fan string: got %q", got)
	}
	if got := SwingOn.String(); got != "on" {
		t.Fatalf("unexpected swing string: got %q", got)
	}
	if got := ModeCool.HexRep(); got != "04" {
		t.Fatalf("unexpected mode hex: got %q", got)
	}
	if got := FanHigh.HexRep(); got != "3" {
		t.Fatalf("unexpected fan hex: got %q", got)
	}
}
