package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/dmitrijs2005/vaultdrop/internal/client/client"
	"github.com/dmitrijs2005/vaultdrop/internal/common"
	"github.com/dmitrijs2005/vaultdrop/internal/cryptox"
	"github.com/fatih/color"
)

var (
	success   = color.New(color.FgGreen)
	failure   = color.New(color.FgRed, color.Bold)
	highlight = color.New(color.FgCyan)
	muted     = color.New(color.Faint)
	warning   = color.New(color.FgYellow)
)

// Describe turns an error into the sentence shown to the user.
func Describe(err error) string {
	switch {
	case errors.Is(err, cryptox.ErrKeyFormat):
		return "link is invalid"
	case errors.Is(err, cryptox.ErrDecryption):
		return "could not decrypt: the key does not match or the file is damaged"
	case errors.Is(err, common.ErrDownloadLimit):
		return "this transfer has reached its download limit"
	case errors.Is(err, common.ErrExpired):
		return "this transfer has expired"
	case errors.Is(err, common.ErrPasswordRequired):
		return "a correct password is required"
	case errors.Is(err, common.ErrTooManyAttempts):
		return "too many password attempts, wait a minute and try again"
	case errors.Is(err, common.ErrQuotaExceeded):
		return "storage quota exceeded"
	case errors.Is(err, common.ErrLinkExpired):
		return "the download link expired, run the command again"
	case errors.Is(err, common.ErrStorageUnavailable):
		return "file storage is unavailable, try again later"
	case errors.Is(err, client.ErrUnavailable):
		return "server is unavailable"
	case errors.Is(err, common.ErrUserBlocked):
		return "this account is blocked"
	case errors.Is(err, common.ErrTokenExpired), errors.Is(err, common.ErrorUnauthorized):
		return "not logged in or session expired, run `vaultdrop login`"
	case errors.Is(err, common.ErrorForbidden):
		return "not allowed"
	case errors.Is(err, common.ErrorNotFound):
		return "transfer not found"
	case errors.Is(err, common.ErrAlreadyExists):
		return "already exists"
	default:
		return err.Error()
	}
}

// PrintError writes err to w the way every command reports failures.
func PrintError(w io.Writer, err error) {
	fmt.Fprintf(w, "%s %s\n", failure.Sprint("error:"), Describe(err))
}
