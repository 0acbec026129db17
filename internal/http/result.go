package httpapi

// Result is the response envelope shared with the dashboard:
// {statusCode, message, data, meta}.
type Result[T any] struct {
	StatusCode int            `json:"statusCode"`
	Message    string         `json:"message"`
	Data       T              `json:"data"`
	Meta       map[string]any `json:"meta"`
}

func Ok[T any](data T, message string) Result[T] {
	return Result[T]{StatusCode: 200, Message: message, Data: data, Meta: map[string]any{}}
}

func Fail(status int, message string) Result[any] {
	return Result[any]{StatusCode: status, Message: message, Data: nil, Meta: map[string]any{}}
}

// ValidationFailed carries per-field messages in data, like a 422 from the dashboard API.
func ValidationFailed(errs map[string][]string) Result[map[string][]string] {
	msg := "The given data was invalid"
	for _, field := range []string{"camera_code", "status"} {
		if m, ok := errs[field]; ok && len(m) > 0 {
			msg = m[0]
			break
		}
	}
	return Result[map[string][]string]{StatusCode: 422, Message: msg, Data: errs, Meta: map[string]any{}}
}

// Paginated adds page metadata to a list response.
func Paginated[T any](items []T, page, size, total int) Result[[]T] {
	last := 1
	if size > 0 && total > 0 {
		last = (total + size - 1) / size
	}
	return Result[[]T]{
		StatusCode: 200,
		Message:    "Success",
		Data:       items,
		Meta: map[string]any{
			"current_page": page,
			"per_page":     size,
			"total":        total,
			"last_page":    last,
		},
	}
}
