package response

var errors = map[ErrCode]string{
	ErrCodeMalformedTime:  "The %q parameter is not a recognizable timestamp.",
	ErrCodeMalformedAddr:  "The %q parameter is not a device address.",
	ErrCodeStorageQuery:   "Storage query failed.",
	ErrCodeUnknownFormat:  "Unknown output format %q.",
	ErrCodeDeviceNotFound: "Device %q not found.",
}

var ErrStorageQuery = &responseError{
	Code:    ErrCodeStorageQuery,
	Message: errors[ErrCodeStorageQuery],
}

func ErrMalformedTime(param string) *responseError {
	return generateError(ErrCodeMalformedTime, param)
}

func ErrMalformedAddr(param string) *responseError {
	return generateError(ErrCodeMalformedAddr, param)
}

func ErrUnknownFormat(format string) *responseError {
	return generateError(ErrCodeUnknownFormat, format)
}

func ErrDeviceNotFound(id string) *responseError {
	return generateError(ErrCodeDeviceNotFound, id)
}
