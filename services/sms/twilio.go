package smssvc

import (
	"context"
	"fmt"
	"net/http"

	"github.com/pkg/errors"
	"github.com/twilio/twilio-go"
	twclient "github.com/twilio/twilio-go/client"
	verify "github.com/twilio/twilio-go/rest/verify/v2"

	"github.com/educonnectpro/educonnect/core"
	"github.com/educonnectpro/educonnect/core/user"
)

// TwilioVerifier delegates code delivery and checking to a Twilio Verify service.
type TwilioVerifier struct {
	client     *twilio.RestClient
	serviceSID string
	logger     core.Logger
}

var _ user.OTPVerifier = (*TwilioVerifier)(nil)

func NewTwilioVerifier(conf *core.Config, logger core.Logger) *TwilioVerifier {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: conf.Twilio.AccountSID,
		Password: conf.Twilio.AuthToken,
	})
	return &TwilioVerifier{client: client, serviceSID: conf.Twilio.VerifyServiceSID, logger: logger}
}

func (v *TwilioVerifier) SendCode(_ context.Context, phone string) error {
	params := &verify.CreateVerificationParams{}
	params.SetTo(phone)
	params.SetChannel("sms")

	if _, err := v.client.VerifyV2.CreateVerification(v.serviceSID, params); err != nil {
		v.logger.Error(fmt.Sprintf("twilio create verification: %v", err), err)
		return errors.Wrap(err, "twilio.CreateVerification")
	}
	return nil
}

func (v *TwilioVerifier) CheckCode(_ context.Context, phone, code string) (bool, error) {
	params := &verify.CreateVerificationCheckParams{}
	params.SetTo(phone)
	params.SetCode(code)

	resp, err := v.client.VerifyV2.CreateVerificationCheck(v.serviceSID, params)
	if err != nil {
		// expired or already approved verifications are reported as not found
		var restErr *twclient.TwilioRestError
		if errors.As(err, &restErr) && restErr.Status == http.StatusNotFound {
			return false, nil
		}
		return false, errors.Wrap(err, "twilio.CreateVerificationCheck")
	}
	return resp.Status != nil && *resp.Status == "approved", nil
}
