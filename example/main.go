// Demonstrates strict configuration access backed by a layered store.
package main

import (
	"fmt"
	"os"

	"confkit"

	"github.com/rs/zerolog"
)

type serviceDefaults struct {
	Name string `toml:"Name"`
	Port int64  `toml:"Port"`
}

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(zerolog.DebugLevel).
		With().Timestamp().Logger()

	store, err := confkit.NewBuilder().
		WithDefaults(&serviceDefaults{Name: "example", Port: 8080}).
		WithPrefix("Service").
		WithEnvPrefix("EXAMPLE_").
		WithFile("config.toml").
		Build()
	if err != nil {
		logger.Warn().Err(err).Msg("running on defaults")
	}

	// Opt in to the startup dump for the demo.
	_ = store.Register(confkit.StartupLogKey, "1")
	confkit.LogStartupValues(store, &logger)

	name, err := confkit.RequireString(store, "Service:Name")
	if err != nil {
		logger.Fatal().Err(err).Msg("missing mandatory configuration")
	}

	port, err := confkit.Require[int64](store, "Service:Port")
	if err != nil {
		logger.Fatal().Err(err).Msg("missing mandatory configuration")
	}

	fmt.Printf("%s listening on :%d\n", name, port)
}
