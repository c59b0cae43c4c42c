package model

import "errors"

var (
	// ErrSetup means the detector or the analysis client could not be initialized.
	ErrSetup = errors.New("setup failure")
	// ErrInference means the detector call or the remote call failed while running.
	ErrInference = errors.New("inference failure")
	// ErrUnknownClass means a detection references a class the label table does not know.
	ErrUnknownClass = errors.New("unknown class index")
	// ErrInvalidParams means a detection parameter is outside its range.
	ErrInvalidParams = errors.New("invalid detection parameters")
)
