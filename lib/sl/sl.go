package sl

import (
	"fmt"
	"log/slog"
)

func Err(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "<nil>")
	}
	return slog.Attr{
		Key:   "error",
		Value: slog.StringValue(err.Error()),
	}
}

// Secret keeps the first 4 characters of value and masks the rest,
// used for API tokens and distributed codes in logs
func Secret(key, value string) slog.Attr {
	r := "***"
	if len(value) > 4 {
		r = fmt.Sprintf("%s***", value[0:4])
	}
	if value == "" {
		r = "?"
	}
	return slog.Attr{
		Key:   key,
		Value: slog.StringValue(r),
	}
}

func Module(mod string) slog.Attr {
	return slog.Attr{
		Key:   "mod",
		Value: slog.StringValue(mod),
	}
}

func Attempt(n int) slog.Attr {
	return slog.Int("attempt", n)
}
