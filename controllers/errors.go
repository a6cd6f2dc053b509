package controllers

import "errors"

var (
	ErrEmptyPatch = errors.New("no fields to update")
	ErrMissingID  = errors.New("controller id is required")
)
