package contact

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWhatsAppLink(t *testing.T) {
	tests := []struct {
		name    string
		phone   string
		message string
		want    string
		wantErr error
	}{
		{
			name:    "international number",
			phone:   "+91 98765-43210",
			message: "Hello Priya, I need help with maths & physics?",
			want:    "https://wa.me/919876543210?text=Hello+Priya%2C+I+need+help+with+maths+%26+physics%3F",
		},
		{name: "no message", phone: "+243 810 000 000", want: "https://wa.me/243810000000"},
		{name: "blank message", phone: "243810000000", message: "  ", want: "https://wa.me/243810000000"},
		{name: "no phone", phone: "", message: "hi", wantErr: ErrNoPhone},
		{name: "no digits", phone: "n/a", message: "hi", wantErr: ErrNoPhone},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := WhatsAppLink(tc.phone, tc.message)
			if tc.wantErr != nil {
				assert.Equal(t, tc.wantErr, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestDefaultMessage(t *testing.T) {
	assert.Equal(t, "Hello Priya, I found your profile on EduConnect Pro.", DefaultMessage("EduConnect Pro", "Priya", ""))
	assert.Equal(
		t,
		"Hello Priya, I found your profile on EduConnect Pro and I am interested in Physics classes.",
		DefaultMessage("EduConnect Pro", "Priya", "Physics"),
	)
}
