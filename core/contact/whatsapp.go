package contact

import (
	"fmt"
	"net/url"
	"strings"
	"unicode"

	"github.com/pkg/errors"
)

const whatsAppBaseURL = "https://wa.me/"

var ErrNoPhone = errors.New("this teacher has no contact phone number")

// WhatsAppLink returns the wa.me link opening a chat with `phone`, prefilled with `message`.
// Only the digits of the phone number are kept.
func WhatsAppLink(phone, message string) (string, error) {
	digits := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, phone)
	if digits == "" {
		return "", ErrNoPhone
	}

	link := whatsAppBaseURL + digits
	if message = strings.TrimSpace(message); message != "" {
		link += "?text=" + url.QueryEscape(message)
	}
	return link, nil
}

// DefaultMessage is the greeting prefilled when contacting a teacher.
func DefaultMessage(appName, teacherName, subject string) string {
	msg := fmt.Sprintf("Hello %s, I found your profile on %s", teacherName, appName)
	if subject != "" {
		msg += fmt.Sprintf(" and I am interested in %s classes", subject)
	}
	return msg + "."
}
