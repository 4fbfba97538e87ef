package manualpayment

import "errors"

var (
	ErrPaymentNotFound   = errors.New("payment not found")
	ErrInvalidPayment    = errors.New("invalid payment")
	ErrInvalidTransition = errors.New("payment has already been reviewed")
	ErrUnauthorized      = errors.New("unauthorized")
)
