package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		email   string
		wantErr bool
	}{
		{"a@x.com", false},
		{"first.last+tag@sub.example.org", false},
		{"", true},
		{"no-at-sign.com", true},
		{"missing@tld", true},
		{"spaces in@x.com", true},
		{strings.Repeat("a", 250) + "@x.com", true},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			err := ValidateEmail(tt.email)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidatePassword(t *testing.T) {
	assert.Error(t, ValidatePassword(""))
	assert.Error(t, ValidatePassword("short12"))
	assert.NoError(t, ValidatePassword("longpass1"))
	assert.NoError(t, ValidatePassword(strings.Repeat("x", MaxPasswordLength)))
	assert.Error(t, ValidatePassword(strings.Repeat("x", MaxPasswordLength+1)))
}

func TestValidateName(t *testing.T) {
	assert.NoError(t, ValidateName("Ann"))
	assert.Error(t, ValidateName("   "))
	assert.Error(t, ValidateName(strings.Repeat("n", 51)))
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "a@x.com", NormalizeEmail("  A@X.Com "))
}
