package convert

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLaptime(t *testing.T) {
	tests := []struct {
		name    string
		arg     string
		want    int
		wantErr bool
	}{
		{name: "minutes", arg: "1:32.45", want: 92450},
		{name: "seconds only", arg: "33.12", want: 33120},
		{name: "single digit seconds", arg: "9.05", want: 9050},
		{name: "long lap", arg: "12:00.01", want: 720010},
		{name: "three digit fraction rejected", arg: "1:32.456", wantErr: true},
		{name: "one digit fraction rejected", arg: "33.1", wantErr: true},
		{name: "empty", arg: "", wantErr: true},
		{name: "garbage", arg: "no time", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLaptime(tt.arg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// every valid input must survive a parse/format round trip unchanged
func TestLaptimeRoundTrip(t *testing.T) {
	for _, s := range []string{"33.12", "1:32.45", "0.01", "59.99", "2:00.00"} {
		ms, err := ParseLaptime(s)
		assert.NoError(t, err)
		assert.Equal(t, s, FormatLaptime(ms), "round trip of %s", s)
	}
}
