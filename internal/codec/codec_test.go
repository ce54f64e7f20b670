package codec

import "testing"

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"jpeg", FormatJPEG, false},
		{"JPG", FormatJPEG, false},
		{".png", FormatPNG, false},
		{" webp ", FormatWebP, false},
		{"avif", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseFormat(%q) expected error", tt.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseFormat(%q): %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeMIME(t *testing.T) {
	tests := map[string]string{
		"image/jpeg":               MIMEJPEG,
		"image/jpg":                MIMEJPEG,
		"IMAGE/PJPEG":              MIMEJPEG,
		"image/png; charset=utf-8": MIMEPNG,
		"image/webp":               MIMEWebP,
		"application/pdf":          "application/pdf",
	}
	for in, want := range tests {
		if got := NormalizeMIME(in); got != want {
			t.Errorf("NormalizeMIME(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatMIMEType(t *testing.T) {
	for _, f := range Formats {
		if f.MIMEType() == "" {
			t.Errorf("%s has no MIME type", f)
		}
		if !f.Valid() {
			t.Errorf("%s reported invalid", f)
		}
	}
	if Format("gif").Valid() {
		t.Error("gif must not be a valid output format")
	}
}
