package config_test

import (
	"context"
	"fmt"

	"github.com/c360/semrcl/config"
)

func ExampleParse() {
	cfg, err := config.Parse([]byte(`
transport:
  kind: inproc
logging:
  level: debug
arguments: ["--ros-args", "-r", "chatter:=news"]
`))
	if err != nil {
		fmt.Println(err)
		return
	}

	tr, closeFn, err := config.NewTransport(context.Background(), cfg, nil, nil)
	if err != nil {
		fmt.Println(err)
		return
	}
	defer closeFn(context.Background())
	defer tr.Shutdown()

	fmt.Println(tr.Identifier(), cfg.Logging.Level, cfg.Arguments[3])
	// Output: inproc debug chatter:=news
}
