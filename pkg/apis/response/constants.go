package response

type ErrCode int

const (
	_                       ErrCode = 10000 + iota
	ErrCodeMalformedTime            // 10001
	ErrCodeMalformedAddr            // 10002
	ErrCodeStorageQuery             // 10003
	ErrCodeUnknownFormat            // 10004
	ErrCodeDeviceNotFound           // 10005
)

// !!! IMPORTANT PLEASE READ FIRST !!!
// You SHOULD add new code at the end, and append comment of number
// Meanwhile, the corresponding error message SHOULD be appended in response.errors
// The order MUST be consistent between them
