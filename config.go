package main

import (
	"fmt"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
)

// Config holds the complete application configuration, loadable from
// environment variables (SHOP_ prefix) or a YAML config file.
type Config struct {
	Port             int           `default:"8080" usage:"HTTP listen port"`
	Currency         string        `default:"USD" usage:"Currency assumed for catalog prices"`
	GuestCookieTTL   time.Duration `default:"720h" usage:"Lifetime of the anonymous-session cookie" flag:"guest-cookie-ttl"`
	TaxRatePercent   float64       `default:"8.25" usage:"Sales tax percentage applied on receipts" flag:"tax-rate-percent"`
	ShippingFeeCents int64         `default:"2500" usage:"Flat shipping fee in cents" flag:"shipping-fee-cents"`
	SeedDemoData     bool          `default:"false" usage:"Seed a demo catalog and sessions on startup (local development only)" flag:"seed-demo-data"`
}

func loadConfig() (Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "SHOP",
		Files:     []string{"config.yaml", "/etc/shopbackend/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
		SkipFlags:          true,
		AllowUnknownFields: true,
	})
	err := loader.Load()
	if err != nil {
		return Config{}, fmt.Errorf("error loading config: %s", err)
	}

	return cfg, nil
}
