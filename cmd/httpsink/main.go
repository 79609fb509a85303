// cmd/httpsink/main.go
package main

import (
	"go.uber.org/fx"

	"github.com/joeydtaylor/steeze-httpsink/pkg/sinkfx"
)

func main() {
	fx.New(
		sinkfx.Module(sinkfx.Options{Service: "httpsink"}),
	).Run()
}
