package flow

import (
	"testing"

	"tubebot/internal/model"
)

func TestParseCallback(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		want    Callback
		wantErr bool
	}{
		{
			name: "select",
			data: "select:3",
			want: Callback{Kind: CallbackSelect, Index: 3},
		},
		{
			name: "format audio",
			data: "format:audio",
			want: Callback{Kind: CallbackFormat, Format: model.KindAudio},
		},
		{
			name: "format video",
			data: "format:video",
			want: Callback{Kind: CallbackFormat, Format: model.KindVideo},
		},
		{
			name: "quality explicit",
			data: "quality:137:1080p",
			want: Callback{Kind: CallbackQuality, Selector: "137", Label: "1080p"},
		},
		{
			name: "quality best sentinel",
			data: "quality:best:auto",
			want: Callback{Kind: CallbackQuality, Selector: model.FormatBest, Label: "auto"},
		},
		{name: "no separator", data: "select", wantErr: true},
		{name: "bad index", data: "select:abc", wantErr: true},
		{name: "unknown format", data: "format:flac", wantErr: true},
		{name: "quality missing label separator", data: "quality:137", wantErr: true},
		{name: "unknown verb", data: "delete:1", wantErr: true},
		{name: "empty", data: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCallback(tt.data)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseCallback(%q) = %+v, want error", tt.data, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseCallback(%q): %v", tt.data, err)
			}
			if got != tt.want {
				t.Errorf("ParseCallback(%q) = %+v, want %+v", tt.data, got, tt.want)
			}
		})
	}
}

func TestCallbackRoundTrip(t *testing.T) {
	for _, data := range []string{
		SelectData(0),
		SelectData(9),
		FormatData(model.KindAudio),
		FormatData(model.KindVideo),
		QualityData("22", "720p"),
		QualityData(model.FormatBest, "auto"),
	} {
		if _, err := ParseCallback(data); err != nil {
			t.Errorf("encoded data %q does not parse: %v", data, err)
		}
	}
}
