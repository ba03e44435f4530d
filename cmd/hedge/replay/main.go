package main

import (
	_ "github.com/marcboeker/go-duckdb"

	"github.com/peter-kozarec/botplatform/cmd/hedge"
	"github.com/peter-kozarec/botplatform/internal/app"
	"github.com/peter-kozarec/botplatform/internal/config"
)

func main() {
	hedge.Main(config.ModeReplay, app.WithReplayDriver("duckdb"))
}
