package main

import (
	"github.com/peter-kozarec/botplatform/cmd/hedge"
	"github.com/peter-kozarec/botplatform/internal/config"
)

func main() {
	hedge.Main(config.ModeSandbox)
}
