// Package gate decides whether a transfer may be released to a caller.
//
// Evaluation always checks expiry before the password: an expired transfer
// stays expired whatever password is supplied, and a protected one releases
// nothing until the password matches.
package gate

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/vaultdrop/internal/common"
	"github.com/dmitrijs2005/vaultdrop/internal/cryptox"
	"github.com/dmitrijs2005/vaultdrop/internal/server/models"
)

type State int

const (
	CheckingExpiry State = iota
	Expired
	CheckingPassword
	PasswordRequired
	Granted
)

func (s State) String() string {
	switch s {
	case CheckingExpiry:
		return "checking_expiry"
	case Expired:
		return "expired"
	case CheckingPassword:
		return "checking_password"
	case PasswordRequired:
		return "password_required"
	case Granted:
		return "granted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// verifyPassword is replaced in tests.
var verifyPassword = cryptox.VerifyPassword

// Evaluate runs the gate for t at time now. The returned error is nil only
// for Granted.
func Evaluate(t *models.Transfer, password string, now time.Time) (State, error) {
	return evaluate(t, password, now, true)
}

// EvaluateCounted is Evaluate for a download whose click was already counted:
// the download limit no longer applies to it, expiry and password still do.
func EvaluateCounted(t *models.Transfer, password string, now time.Time) (State, error) {
	return evaluate(t, password, now, false)
}

func evaluate(t *models.Transfer, password string, now time.Time, checkLimit bool) (State, error) {
	state := CheckingExpiry
	for {
		switch state {
		case CheckingExpiry:
			if now.After(t.ExpiresAt) {
				return Expired, common.ErrExpired
			}
			if checkLimit && t.Exhausted() {
				return Expired, common.ErrDownloadLimit
			}
			state = CheckingPassword

		case CheckingPassword:
			if !t.HasPassword() {
				return Granted, nil
			}
			if password == "" {
				return PasswordRequired, common.ErrPasswordRequired
			}
			ok, err := verifyPassword(t.PasswordHash, password)
			if err != nil {
				// a corrupt stored hash must not open the gate
				return PasswordRequired, fmt.Errorf("%w: %v", common.ErrorInternal, err)
			}
			if !ok {
				return PasswordRequired, common.ErrPasswordMismatch
			}
			return Granted, nil

		default:
			return state, fmt.Errorf("%w: unexpected gate state %s", common.ErrorInternal, state)
		}
	}
}
