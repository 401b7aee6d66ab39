package domain

import "errors"

var ErrRecordNotFound = errors.New("record not found")
var ErrInvalidAmount = errors.New("invalid amount")
var ErrInvalidInput = errors.New("invalid input")
var ErrUnauthorized = errors.New("unauthorized")
var ErrInsufficientBalance = errors.New("insufficient balance")
var ErrRecipientNotFound = errors.New("recipient not found")
var ErrSelfTransfer = errors.New("cannot transfer to the same account")
var ErrConflict = errors.New("username or email already exists")
var ErrStoreUnavailable = errors.New("store unavailable")
