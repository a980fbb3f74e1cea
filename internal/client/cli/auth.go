package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dmitrijs2005/uploadvault/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// Register prompts for an email and password and attempts to create a new
// account. The password byte slice is wiped before returning.
func (a *App) Register(ctx context.Context) error {

	email, err := getSimpleText(a.reader, "Enter email", os.Stdout)
	if err != nil {
		return err
	}

	password, err := getPassword(os.Stdout)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.client.Register(ctx, email, password); err != nil {
		if errors.Is(err, common.ErrorValidation) {
			fmt.Println("Invalid email or password format")
			return nil
		}
		return err
	}

	fmt.Println("Success! You can now log in.")
	return nil
}

// Login prompts for credentials and establishes the session. On success the
// user name is shown in the REPL prompt.
func (a *App) Login(ctx context.Context) error {

	email, err := getSimpleText(a.reader, "Enter email", os.Stdout)
	if err != nil {
		return err
	}

	password, err := getPassword(os.Stdout)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.client.Login(ctx, email, password); err != nil {
		if errors.Is(err, common.ErrorUnauthorized) {
			fmt.Println("Invalid email or password")
			return nil
		}
		return err
	}

	a.userName = email
	fmt.Println("Logged in as", email)
	return nil
}
