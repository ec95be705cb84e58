package services

// CustomError carries a message that is safe to show to the user.
type CustomError struct {
	Message string
}

func (e *CustomError) Error() string {
	return e.Message
}

var (
	ErrEmptyCart          = &CustomError{"Your cart is empty"}
	ErrNotAuthenticated   = &CustomError{"Please login to place an order"}
	ErrCanteenClosed      = &CustomError{"The canteen is closed right now"}
	ErrNoAvailableItems   = &CustomError{"None of the items in your cart are available any more"}
	ErrOrderNotFound      = &CustomError{"Order not found"}
	ErrInvalidStatus      = &CustomError{"Invalid status"}
	ErrInvalidTransition  = &CustomError{"That status change is not allowed"}
	ErrTokenRequired      = &CustomError{"Enter a token"}
	ErrTokenNotFound      = &CustomError{"No order with that token"}
	ErrOrderClosed        = &CustomError{"Order is already closed"}
	ErrInvalidPhone       = &CustomError{"Phone number must be 10 digits"}
	ErrPasswordRequired   = &CustomError{"Password is required"}
	ErrPasswordMismatch   = &CustomError{"Passwords do not match"}
	ErrPhoneTaken         = &CustomError{"Phone number already registered"}
	ErrInvalidCredentials = &CustomError{"Invalid phone number or password"}
	ErrUserNotFound       = &CustomError{"User not found"}
	ErrInsufficientFunds  = &CustomError{"Wallet balance cannot go below zero"}
	ErrZeroAmount         = &CustomError{"Amount must not be zero"}
	ErrInvalidAmount      = &CustomError{"Amount must be a number"}
	ErrInvalidRating      = &CustomError{"Rating must be between 1 and 5"}
	ErrItemNotFound       = &CustomError{"Item not found"}
	ErrInvalidPickupSlot  = &CustomError{"Pickup slot must be in the future"}
)
