package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfessionText(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{
			name:  "Valid text",
			input: "hello world",
			want:  "hello world",
		},
		{
			name:  "Leading and trailing whitespace trimmed",
			input: "  secret  ",
			want:  "secret",
		},
		{
			name:    "Empty text rejected",
			input:   "",
			wantErr: true,
		},
		{
			name:    "Whitespace-only text rejected",
			input:   "   \n\t  ",
			wantErr: true,
		},
		{
			name:  "Exactly max length allowed",
			input: strings.Repeat("a", MaxConfessionLength),
			want:  strings.Repeat("a", MaxConfessionLength),
		},
		{
			name:    "Over max length rejected",
			input:   strings.Repeat("a", MaxConfessionLength+1),
			wantErr: true,
		},
		{
			name:  "Multibyte runes counted as characters, not bytes",
			input: strings.Repeat("ü", MaxConfessionLength),
			want:  strings.Repeat("ü", MaxConfessionLength),
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got, err := ConfessionText(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestConfessionColor(t *testing.T) {
	assert.NoError(t, ConfessionColor("#8B9DC3"))
	assert.NoError(t, ConfessionColor("#80B192"))
	assert.Error(t, ConfessionColor(""))
	assert.Error(t, ConfessionColor("#FFFFFF"))
	assert.Error(t, ConfessionColor("red"))
}
