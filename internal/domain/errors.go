package domain

import "errors"

var (
	ErrRecordNotFound      = errors.New("record not found")
	ErrStoreNotInitialized = errors.New("cart store is not initialized: it must be created and initialized before use")
	ErrStoreClosed         = errors.New("cart store is closed")
	ErrInvalidProduct      = errors.New("invalid product")
)
