package utils

import "errors"

var (
	ErrorRecordNotFound = errors.New("record not found")
	ErrorDuplicate      = errors.New("duplicate")
)

func ErrorPanic(err error) {
	if err != nil {
		panic(err)
	}
}
