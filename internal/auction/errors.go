package auction

import (
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// Errors returned by the service carry the message shown to users.
var (
	ErrNotFound           = errors.New("Not found.")
	ErrForbidden          = errors.New("You can only change your own items.")
	ErrInvalidName        = errors.New("Name length must be larger than 1!")
	ErrNameTooLong        = errors.New("Name must be at most 64 characters!")
	ErrInvalidPrice       = errors.New("Price must be a positive number!")
	ErrInvalidImage       = errors.New("Not a valid image format!")
	ErrInvalidBid         = errors.New("Your bid must be a number!")
	ErrBidTooLow          = errors.New("Your bid must be higher than the current price!")
	ErrItemClosed         = errors.New("This auction is closed.")
	ErrOwnItem            = errors.New("You cannot bid on or watch your own item.")
	ErrEmptyComment       = errors.New("Comment cannot be empty.")
	ErrCategoryNotFound   = errors.New("Category does not exist.")
	ErrPasswordMismatch   = errors.New("Passwords must match.")
	ErrUsernameTaken      = errors.New("Username already taken.")
	ErrUsernameTooLong    = errors.New("Username must be at most 150 characters.")
	ErrEmailTooLong       = errors.New("Email address must be at most 254 characters.")
	ErrMissingCredentials = errors.New("Username and password are required.")
	ErrInvalidCredentials = errors.New("Invalid username and/or password.")
)

// IsUserError reports whether err is one of the sentinel errors above, whose
// text can be shown to the user as is.
func IsUserError(err error) bool {
	for _, e := range []error{
		ErrNotFound, ErrForbidden, ErrInvalidName, ErrNameTooLong, ErrInvalidPrice, ErrInvalidImage,
		ErrInvalidBid, ErrBidTooLow, ErrItemClosed, ErrOwnItem, ErrEmptyComment,
		ErrCategoryNotFound, ErrPasswordMismatch, ErrUsernameTaken, ErrUsernameTooLong, ErrEmailTooLong,
		ErrMissingCredentials, ErrInvalidCredentials,
	} {
		if errors.Is(err, e) {
			return true
		}
	}
	return false
}

func dbError(err error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return errors.Wrap(err, msg)
}
