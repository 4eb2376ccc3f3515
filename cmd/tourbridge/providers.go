package main

// Notifier blank imports: each import registers a provider selectable by
// notifier.provider in the config. The whatsapp provider is registered by
// its regular import in secrets.go.

import (
	_ "github.com/Strob0t/TourBridge/internal/adapter/lognotifier"
)
