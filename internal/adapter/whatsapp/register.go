package whatsapp

import "github.com/Strob0t/TourBridge/internal/port/notifier"

func init() {
	notifier.Register(providerName, func(config map[string]string) (notifier.Notifier, error) {
		return NewNotifier(config["base_url"], config["phone_number_id"], config["access_token"]), nil
	})
}
