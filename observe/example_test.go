package observe_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/jonwraymond/webguard/observe"
)

func ExampleNewLoggerWithWriter() {
	var buf bytes.Buffer
	logger := observe.NewLoggerWithWriter("info", &buf).With(observe.F("chain", "default"))

	logger.Warn(context.Background(), "authentication failed",
		observe.F("principal", "user"),
		observe.F("password", "hunter2"),
	)

	var entry map[string]any
	_ = json.Unmarshal(buf.Bytes(), &entry)
	fmt.Println(entry["level"], entry["msg"], entry["chain"], entry["password"])
	// Output:
	// warn authentication failed default [REDACTED]
}

func ExampleMiddleware_Wrap() {
	mw := observe.NopMiddleware()

	handle := mw.Wrap(func(ctx context.Context, meta observe.RequestMeta) (observe.Outcome, error) {
		return observe.Outcome{Status: 200, Principal: "user"}, nil
	})

	out, err := handle(context.Background(), observe.RequestMeta{Method: "GET", Path: "/"})
	fmt.Println(out.Status, out.Principal, err)
	// Output:
	// 200 user <nil>
}
