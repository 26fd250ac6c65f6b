package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"retail-insights/internal/config"
	"retail-insights/internal/models"
	"retail-insights/internal/services"
)

const (
	formatJSON = "json"
	formatYAML = "yaml"
)

// cli holds settings resolved from flags, RETAIL_* environment and defaults,
// in that order of precedence.
type cli struct {
	v *viper.Viper
}

func newRootCmd() *cobra.Command {
	c := &cli{v: viper.New()}
	c.v.SetEnvPrefix(config.EnvPrefix)
	c.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	c.v.AutomaticEnv()

	root := &cobra.Command{
		Use:           "retailctl",
		Short:         "Analyse point-of-sale extracts from the command line",
		Long:          "retailctl runs the data quality, promotion and price index analyses over a sales extract (.xlsx or .csv) and prints the results as JSON or YAML.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := c.v.BindPFlags(cmd.Flags()); err != nil {
				return err
			}
			switch f := c.v.GetString("format"); f {
			case formatJSON, formatYAML:
				return nil
			default:
				return fmt.Errorf("unsupported output format %q, use json or yaml", f)
			}
		},
	}

	pf := root.PersistentFlags()
	pf.String("data", "Test_Data.xlsx", "sales extract to analyse (.xlsx or .csv)")
	pf.String("sheet", "", "worksheet name for .xlsx files (default first sheet)")
	pf.StringP("format", "o", formatJSON, "output format: json or yaml")
	pf.Bool("cache", false, "reuse the parsed-data cache in .cache/")
	pf.Bool("debug", false, "log loader progress to stderr")

	root.AddCommand(
		c.qualityCmd(),
		c.promotionsCmd(),
		c.pricingCmd(),
		c.compareCmd(),
	)
	return root
}

func (c *cli) dataset(cmd *cobra.Command) (*models.Dataset, error) {
	level := slog.LevelWarn
	if c.v.GetBool("debug") {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return services.LoadDataset(ctx, c.v.GetString("data"), services.LoadOptions{
		Sheet:    c.v.GetString("sheet"),
		UseCache: c.v.GetBool("cache"),
		Logger:   logger,
	})
}

func (c *cli) print(w io.Writer, v any) error {
	return writeOutput(w, c.v.GetString("format"), v)
}

// writeOutput renders v as indented JSON or YAML. YAML goes through JSON first
// so both formats share the json field names.
func writeOutput(w io.Writer, format string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	if format == formatJSON {
		_, err = fmt.Fprintln(w, string(data))
		return err
	}

	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return fmt.Errorf("convert output: %w", err)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(generic); err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	return enc.Close()
}
