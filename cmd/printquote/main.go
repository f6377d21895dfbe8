// printquote CLI - 3D print quoting toolkit
//
// Usage:
//   printquote serve
//   printquote estimate --file part.stl --material pla-white [--quality fine]
//   printquote quote --material pla-white --machine ender3-v2 --grams 100 --minutes 120
//   printquote config validate|show
//   printquote audit --n 20
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"printquote/api"
	"printquote/internal/configstore"
	"printquote/internal/estimate"
	"printquote/internal/geometry"
	"printquote/internal/mesh"
	"printquote/internal/quote"
	"printquote/pkg/units"
)

var version = "0.1.0"

// Exit codes for CI/CD integration
const (
	ExitSuccess     = 0
	ExitUsageError  = 10
	ExitDecodeError = 11
	ExitQuoteError  = 12
	ExitConfigError = 13
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	app := &cli.App{
		Name:    "printquote",
		Usage:   "Quote and estimate 3D-printing jobs from the command line",
		Version: version,

		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Value:   "data/config.json",
				Usage:   "Path to the canonical config file",
				EnvVars: []string{"CONFIG_PATH"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Usage:   "Log level (debug, info, warn, error)",
				EnvVars: []string{"PRINTQUOTE_LOG_LEVEL"},
			},
		},

		Before: func(c *cli.Context) error {
			if level, err := zerolog.ParseLevel(c.String("log-level")); err == nil {
				zerolog.SetGlobalLevel(level)
			}
			return nil
		},

		Commands: []*cli.Command{
			serveCommand(),
			estimateCommand(),
			quoteCommand(),
			configCommand(),
			auditCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(ExitUsageError)
	}
}

func openStore(c *cli.Context) *configstore.Store {
	return configstore.New(c.String("config")).WithLogger(log.Logger)
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the quoting API server",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Value:   8080,
				Usage:   "Listen port",
				EnvVars: []string{"PORT"},
			},
			&cli.StringFlag{
				Name:    "jwt-secret",
				Usage:   "HMAC secret for staff/admin tokens",
				EnvVars: []string{"JWT_SECRET"},
			},
			&cli.StringSliceFlag{
				Name:    "cors-origin",
				Usage:   "Allowed CORS origin (repeatable)",
				EnvVars: []string{"CORS_ORIGINS"},
			},
		},
		Action: func(c *cli.Context) error {
			store := openStore(c)
			if err := store.EnsureDefault(configstore.DefaultSnapshot()); err != nil {
				return cli.Exit(err.Error(), ExitConfigError)
			}

			cfg := api.DefaultConfig()
			cfg.Port = c.Int("port")
			if secret := c.String("jwt-secret"); secret != "" {
				cfg.JWTSecret = []byte(secret)
			}
			if origins := c.StringSlice("cors-origin"); len(origins) > 0 {
				cfg.CORSOrigins = origins
			}

			server := api.NewServer(store, cfg, log.Logger)
			return server.StartWithGracefulShutdown()
		},
	}
}

func estimateCommand() *cli.Command {
	return &cli.Command{
		Name:  "estimate",
		Usage: "Estimate material and print time for a mesh file",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "file",
				Usage:    "Path to the .stl or .3mf file",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "material",
				Usage:    "Material id from the catalog",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "quality",
				Value: "normal",
				Usage: "Quality tier: draft, normal, fine",
			},
			&cli.StringFlag{
				Name:  "output",
				Value: "text",
				Usage: "Output format: text, json",
			},
		},
		Action: runEstimate,
	}
}

func runEstimate(c *cli.Context) error {
	data, err := os.ReadFile(c.String("file"))
	if err != nil {
		return cli.Exit(fmt.Sprintf("read file: %v", err), ExitUsageError)
	}

	snap, err := openStore(c).Read()
	if err != nil {
		return cli.Exit(err.Error(), ExitConfigError)
	}
	mat, ok := snap.MaterialByID(c.String("material"))
	if !ok {
		return cli.Exit("unknown material id: "+c.String("material"), ExitUsageError)
	}

	m, err := mesh.Decode(data, c.String("file"))
	if err != nil {
		return cli.Exit(err.Error(), ExitDecodeError)
	}
	measurement, err := geometry.Measure(m)
	if err != nil {
		return cli.Exit(err.Error(), ExitDecodeError)
	}

	volumeCm3 := units.Cm3FromMm3(measurement.VolumeMM3)
	params := estimate.ParamsFromSettings(snap.Settings)
	result := estimate.Estimate(volumeCm3, mat.Density(), params, estimate.ParseQuality(c.String("quality")))

	if c.String("output") == "json" {
		out := map[string]any{
			"volume_cm3":        units.Round2(volumeCm3),
			"bbox_mm":           []float64{units.Round2(measurement.BBoxMM[0]), units.Round2(measurement.BBoxMM[1]), units.Round2(measurement.BBoxMM[2])},
			"estimated_grams":   units.Round1(result.Grams),
			"estimated_minutes": units.RoundMinutes(result.Minutes),
			"approximate":       measurement.Approximate,
		}
		return json.NewEncoder(os.Stdout).Encode(out)
	}

	fmt.Printf("Volume:    %.2f cm³\n", volumeCm3)
	fmt.Printf("Bounding:  %.2f × %.2f × %.2f mm\n",
		measurement.BBoxMM[0], measurement.BBoxMM[1], measurement.BBoxMM[2])
	fmt.Printf("Material:  %.1f g (%s)\n", units.Round1(result.Grams), mat.ID)
	fmt.Printf("Time:      %d min\n", units.RoundMinutes(result.Minutes))
	if measurement.Approximate {
		fmt.Println("Warning:   mesh not watertight; volume is a convex-hull approximation")
	}
	return nil
}

func quoteCommand() *cli.Command {
	return &cli.Command{
		Name:  "quote",
		Usage: "Produce an itemized monetary quote",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "material", Usage: "Material id", Required: true},
			&cli.StringFlag{Name: "machine", Usage: "Machine id (defaults to the catalog default)"},
			&cli.IntFlag{Name: "qty", Value: 1, Usage: "Item quantity"},
			&cli.Float64Flag{Name: "grams", Usage: "Filament grams per item", Required: true},
			&cli.Float64Flag{Name: "minutes", Usage: "Print time minutes per item", Required: true},
			&cli.Float64Flag{Name: "post-pro-hours", Usage: "Post-processing hours per item"},
			&cli.Float64Flag{Name: "extras", Usage: "Order-level extra charges"},
		},
		Action: runQuote,
	}
}

func runQuote(c *cli.Context) error {
	snap, err := openStore(c).Read()
	if err != nil {
		return cli.Exit(err.Error(), ExitConfigError)
	}

	req := quote.Request{
		MaterialID:          c.String("material"),
		MachineID:           c.String("machine"),
		Qty:                 c.Int("qty"),
		GramsPerItem:        c.Float64("grams"),
		MinutesPerItem:      c.Float64("minutes"),
		PostProHoursPerItem: c.Float64("post-pro-hours"),
		Extras:              c.Float64("extras"),
	}

	var breakdown *quote.Breakdown
	if req.MachineID == "" {
		breakdown, err = quote.ComputePublic(req, snap)
	} else {
		breakdown, err = quote.Compute(req, snap)
	}
	if err != nil {
		return cli.Exit(err.Error(), ExitQuoteError)
	}

	fmt.Printf("Material:      %s\n", breakdown.Material.StringFixed(0))
	fmt.Printf("Power:         %s\n", breakdown.Power.StringFixed(0))
	fmt.Printf("Depreciation:  %s\n", breakdown.Depreciation.StringFixed(0))
	fmt.Printf("Maintenance:   %s\n", breakdown.Maintenance.StringFixed(0))
	fmt.Printf("Coloring:      %s\n", breakdown.Labor.StringFixed(0))
	fmt.Printf("Overhead:      %s\n", breakdown.Overhead.StringFixed(0))
	fmt.Printf("Extras:        %s\n", breakdown.Extras.StringFixed(0))
	fmt.Printf("Total:         %s\n", breakdown.Total.StringFixed(0))
	return nil
}

func configCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Inspect the catalog configuration",
		Subcommands: []*cli.Command{
			{
				Name:  "validate",
				Usage: "Validate the canonical config file",
				Action: func(c *cli.Context) error {
					snap, err := openStore(c).Read()
					if err != nil {
						return cli.Exit(err.Error(), ExitConfigError)
					}
					if err := snap.Validate(); err != nil {
						return cli.Exit(err.Error(), ExitConfigError)
					}
					fmt.Printf("OK: %d materials, %d machines\n", len(snap.Materials), len(snap.Machines))
					return nil
				},
			},
			{
				Name:  "show",
				Usage: "Print the current snapshot as JSON",
				Action: func(c *cli.Context) error {
					snap, err := openStore(c).Read()
					if err != nil {
						return cli.Exit(err.Error(), ExitConfigError)
					}
					enc := json.NewEncoder(os.Stdout)
					enc.SetIndent("", "  ")
					return enc.Encode(snap)
				},
			},
		},
	}
}

func auditCommand() *cli.Command {
	return &cli.Command{
		Name:  "audit",
		Usage: "Show the last N audit records",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "n", Value: 20, Usage: "Number of records"},
		},
		Action: func(c *cli.Context) error {
			records, err := openStore(c).TailAudit(c.Int("n"))
			if err != nil {
				return cli.Exit(err.Error(), ExitConfigError)
			}
			for _, rec := range records {
				fmt.Printf("%s  %-20s %s\n",
					rec.At.Format("2006-01-02 15:04:05"),
					rec.Action,
					rec.Actor)
			}
			if len(records) == 0 {
				fmt.Println("no audit records")
			}
			return nil
		},
	}
}
