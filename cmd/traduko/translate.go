package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/allaspectsdev/traduko/internal/app"
	"github.com/allaspectsdev/traduko/internal/config"
	"github.com/allaspectsdev/traduko/internal/dispatch"
)

func cmdTranslate(args []string) {
	var (
		from       string
		to         = "sr"
		hint       string
		configPath string
		texts      []string
	)

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--from":
			i++
			if i < len(args) {
				from = args[i]
			}
		case "--to":
			i++
			if i < len(args) {
				to = args[i]
			}
		case "--hint":
			i++
			if i < len(args) {
				hint = args[i]
			}
		case "--config":
			i++
			if i < len(args) {
				configPath = args[i]
			}
		default:
			texts = append(texts, args[i])
		}
	}

	text := strings.Join(texts, " ")
	if text == "" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error reading stdin: %v\n", err)
			os.Exit(1)
		}
		text = strings.TrimRight(string(data), "\n")
	}
	if text == "" {
		fmt.Fprintln(os.Stderr, "nothing to translate")
		os.Exit(1)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading config: %v\n", err)
		os.Exit(1)
	}

	// One-shot mode logs only warnings, to stderr.
	log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger().Level(zerolog.WarnLevel)

	rt, err := app.Build(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer rt.Close()

	result, err := rt.Translator.Translate(context.Background(), text, from, to, dispatch.Options{Hint: hint})
	if err != nil {
		var exhausted *dispatch.ExhaustedError
		switch {
		case errors.As(err, &exhausted):
			fmt.Fprintf(os.Stderr, "translation failed after %d attempts: %v\n", exhausted.Attempts, exhausted.LastErr)
		case errors.Is(err, dispatch.ErrNoEligibleInstance):
			fmt.Fprintln(os.Stderr, "no provider instance is currently available")
		default:
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}

	fmt.Println(result)
}

func cmdServe(args []string) {
	foreground := false
	configPath := ""
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--foreground", "-f":
			foreground = true
		case "--config":
			i++
			if i < len(args) {
				configPath = args[i]
			}
		}
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading config: %v\n", err)
		os.Exit(1)
	}

	if err := app.Run(cfg, foreground); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func cmdInitConfig() {
	if err := config.InitConfig(); err != nil {
		fmt.Fprintf(os.Stderr, "error generating config: %v\n", err)
		os.Exit(1)
	}
}
