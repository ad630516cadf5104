package identitysvc

import (
	"context"

	"github.com/pkg/errors"
	"google.golang.org/api/idtoken"

	"github.com/educonnectpro/educonnect/core"
	"github.com/educonnectpro/educonnect/core/user"
)

type validateFunc func(ctx context.Context, idToken, audience string) (*idtoken.Payload, error)

// GoogleVerifier checks Google sign-in ID tokens against the configured OAuth client ID.
type GoogleVerifier struct {
	audience string
	validate validateFunc
}

var _ user.IdentityVerifier = (*GoogleVerifier)(nil)

func NewGoogleVerifier(conf *core.Config) *GoogleVerifier {
	return &GoogleVerifier{audience: conf.GoogleClientID, validate: idtoken.Validate}
}

func (v *GoogleVerifier) VerifyIDToken(ctx context.Context, idToken string) (user.GoogleIdentity, error) {
	if v.audience == "" {
		return user.GoogleIdentity{}, errors.New("google sign-in is not configured")
	}
	payload, err := v.validate(ctx, idToken, v.audience)
	if err != nil {
		return user.GoogleIdentity{}, errors.Wrap(err, "idtoken.Validate")
	}
	return identityFromPayload(payload), nil
}

func identityFromPayload(p *idtoken.Payload) user.GoogleIdentity {
	identity := user.GoogleIdentity{Subject: p.Subject}
	if email, ok := p.Claims["email"].(string); ok {
		identity.Email = email
	}
	// email_verified may be encoded as a string by some issuers
	switch verified := p.Claims["email_verified"].(type) {
	case bool:
		identity.EmailVerified = verified
	case string:
		identity.EmailVerified = verified == "true"
	}
	if name, ok := p.Claims["name"].(string); ok {
		identity.Name = name
	}
	return identity
}
