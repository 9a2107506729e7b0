package hotkey

import "testing"

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    Binding
		label   string
		wantErr bool
	}{
		{in: "", want: Default, label: "Ctrl+Shift+Space"},
		{in: "ctrl+shift+space", want: Default, label: "Ctrl+Shift+Space"},
		{in: " Shift + Control + SPACE ", want: Default, label: "Ctrl+Shift+Space"},
		{in: "alt+r", want: Binding{Mods: ModAlt, Key: "r"}, label: "Alt+R"},
		{in: "cmd+option+f9", want: Binding{Mods: ModSuper | ModAlt, Key: "f9"}, label: "Alt+Super+F9"},
		{in: "ctrl+5", want: Binding{Mods: ModCtrl, Key: "5"}, label: "Ctrl+5"},
		{in: "space", wantErr: true},
		{in: "ctrl+ctrl+a", wantErr: true},
		{in: "hyper+a", wantErr: true},
		{in: "ctrl+f13", wantErr: true},
		{in: "ctrl+enter", wantErr: true},
		{in: "ctrl+", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got != tt.want {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
			if got.String() != tt.label {
				t.Errorf("String() = %q, want %q", got.String(), tt.label)
			}
		})
	}
}
