package main

import (
	"context"
	"fmt"
	"log/slog"
	"syscall"

	"github.com/Strob0t/TourBridge/internal/adapter/whatsapp"
	"github.com/Strob0t/TourBridge/internal/config"
	"github.com/Strob0t/TourBridge/internal/port/notifier"
	"github.com/Strob0t/TourBridge/internal/secrets"
)

const (
	whatsappTokenEnv  = "TOURBRIDGE_WHATSAPP_TOKEN"
	whatsappTokenFile = "whatsapp_access_token"
)

// bindNotifierSecrets points the WhatsApp provider at a vault backed by the
// configured secrets file, reloaded on SIGHUP. Without a secrets file the
// token from the notifier config is used as is.
func bindNotifierSecrets(ctx context.Context, cfg config.Notifier, provider notifier.Notifier) error {
	wa, ok := provider.(*whatsapp.Notifier)
	if !ok || cfg.SecretsFile == "" {
		return nil
	}

	vault, err := secrets.NewVault(secrets.Chain(
		secrets.EnvLoader(whatsappTokenEnv),
		secrets.FileLoader(cfg.SecretsFile),
	))
	if err != nil {
		return fmt.Errorf("notifier secrets: %w", err)
	}
	wa.UseTokenSource(func() string {
		if tok := vault.Get(whatsappTokenFile); tok != "" {
			return tok
		}
		return vault.Get(whatsappTokenEnv)
	})
	vault.ReloadOn(ctx, syscall.SIGHUP)

	slog.Info("notifier secrets loaded",
		"file", cfg.SecretsFile,
		"token", vault.Redacted(whatsappTokenFile),
	)
	return nil
}
