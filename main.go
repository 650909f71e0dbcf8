package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"modbot/bot"
	"modbot/config"
	"modbot/handlers"
	"modbot/utils/database"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	if err := os.MkdirAll("./data", os.ModePerm); err != nil {
		log.Fatal().Err(err).Msg("failed to create data directory")
	}

	db, err := database.Init(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}

	b, err := bot.New(cfg, db)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create bot")
	}

	handlers.Register(b)
	defer b.Close()

	b.Run()
}
