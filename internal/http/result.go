package httpapi

// Result response envelope shared by every endpoint
// - code: ResultSuccess = 2000
// - type: 'success' | 'error' | 'warning'
// - message: string
// - result: any
type Result[T any] struct {
	Code    int    `json:"code"`
	Type    string `json:"type"`
	Message string `json:"message"`
	Result  T      `json:"result"`
}

const (
	ResultSuccess = 2000
	ResultError   = -1
	// ResultNotFound the referenced schedule (or its adaptation state) does not exist
	ResultNotFound = 404
)

func Ok[T any](result T) Result[T] {
	return Result[T]{Code: ResultSuccess, Type: "success", Message: "ok", Result: result}
}

func Fail(message string) Result[any] {
	return Result[any]{Code: ResultError, Type: "error", Message: message, Result: nil}
}

func NotFound(message string) Result[any] {
	return Result[any]{Code: ResultNotFound, Type: "error", Message: message, Result: nil}
}
