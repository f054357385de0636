package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const redacted = "<redacted>"

func runConfig(cmd *cobra.Command, args []string) error {
	cfg, _, used, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	shown := *cfg
	if shown.Telegram.BotToken != "" {
		shown.Telegram.BotToken = redacted
	}

	out := cmd.OutOrStdout()
	if used != "" {
		fmt.Fprintf(out, "# loaded from %s\n", used)
	}
	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(&shown); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return enc.Close()
}

func runPurgeCodes(cmd *cobra.Command, args []string) error {
	app, closeFn, err := openCore(cmd)
	if err != nil {
		return err
	}
	defer closeFn()

	n, err := app.Pairing().PurgeExpired(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "purged %d expired pairing code(s)\n", n)
	return nil
}

func runPair(cmd *cobra.Command, args []string) error {
	app, closeFn, err := openCore(cmd)
	if err != nil {
		return err
	}
	defer closeFn()

	code, err := app.Pairing().StartPairing(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "pairing code for %s: %s (valid for %s)\n",
		args[0], code, app.AppConfig().Pairing.CodeTTL)
	return nil
}
