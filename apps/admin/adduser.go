package main

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/educonnectpro/educonnect/core"
	"github.com/educonnectpro/educonnect/core/user"
)

var errInvalidRole = errors.New("role must be one of admin, teacher, student or parent")

// addUser updates or creates an active user.User with email & password.
// The profile of an existing user is kept unless the role changes.
func (cli *commandLine) addUser(name, email, pwd string, role user.Role) error {
	if !role.Valid() {
		return errInvalidRole
	}
	ctx := context.Background()
	name = core.CleanString(name)
	email = core.CleanString(email, true /* lower */)

	usr, err := cli.usrRepo.GetUser(ctx, user.GetFilter{Email: email})
	exists := err == nil
	if err != nil && !errors.Is(err, core.ErrNotFound) {
		return errors.Wrap(err, "finding user by email")
	}

	if !exists {
		_, err = cli.usrSvc.Create(ctx, name, email, pwd, role)
		return err
	}

	if usr.Role != role {
		if usr.Profile, err = user.NewProfile(role); err != nil {
			return err
		}
	}
	usr.Name = name
	usr.Role = role
	usr.IsActive = true
	usr.UpdatedAt = time.Now().UTC()
	if err = usr.SetPassword(pwd); err != nil {
		return errors.Wrap(err, "setting password")
	}
	_, err = cli.usrRepo.UpdateUser(ctx, usr)
	return err
}
