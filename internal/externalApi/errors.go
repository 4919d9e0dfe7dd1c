package externalApi

import "errors"

var (
	ErrNotFound   = errors.New("error not found")
	ErrInvalidURL = errors.New("error invalid url")
	ErrNoData     = errors.New("error no data")
	ErrBadStatus  = errors.New("error bad response status")
)
