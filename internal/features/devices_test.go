package features

import "testing"

func TestClassifyDevice(t *testing.T) {
	tests := []struct {
		name     string
		entry    string
		wantType DeviceType
		wantOK   bool
	}{
		{name: "タッチスクリーン", entry: "usb-Vendor_Touchscreen-event-if01", wantType: DeviceTypeTouch, wantOK: true},
		{name: "タッチパッド", entry: "usb-Vendor_touchpad-event-mouse", wantType: DeviceTypeTouch, wantOK: true},
		{name: "マウス", entry: "usb-Logitech_USB_Receiver-event-mouse", wantType: DeviceTypeMouse, wantOK: true},
		{name: "キーボード", entry: "usb-Keychron_K2-event-kbd", wantType: DeviceTypeKeyboard, wantOK: true},
		{name: "その他", entry: "usb-Generic_Webcam-event-if00", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotType, gotOK := classifyDevice(tt.entry)
			if gotOK != tt.wantOK {
				t.Fatalf("classifyDevice(%q) ok = %v, want %v", tt.entry, gotOK, tt.wantOK)
			}
			if gotOK && gotType != tt.wantType {
				t.Errorf("classifyDevice(%q) = %v, want %v", tt.entry, gotType, tt.wantType)
			}
		})
	}
}
