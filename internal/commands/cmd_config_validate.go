package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/hay-kot/criterio"
	"github.com/urfave/cli/v3"

	"github.com/hay-kot/marktimer/internal/core/config"
	"github.com/hay-kot/marktimer/pkg/iojson"
)

type ConfigValidateCmd struct {
	flags  *Flags
	format string
}

// NewConfigValidateCmd creates a new config validate command.
func NewConfigValidateCmd(flags *Flags) *ConfigValidateCmd {
	return &ConfigValidateCmd{flags: flags}
}

// Register adds the config validate command to the application.
func (cmd *ConfigValidateCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "config",
		Usage: "Configuration management commands",
		Commands: []*cli.Command{
			{
				Name:        "validate",
				Usage:       "Validate configuration file",
				UsageText:   "marktimer config validate [options]",
				Description: "Validates the configuration file, its storage settings, presets and preset files.",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:        "format",
						Usage:       "output format (text, json)",
						Value:       "text",
						Destination: &cmd.format,
					},
				},
				Action: cmd.run,
			},
		},
	})

	return app
}

type validationOutput struct {
	Valid    bool                       `json:"valid"`
	Errors   map[string]string          `json:"errors,omitempty"`
	Warnings []config.ValidationWarning `json:"warnings,omitempty"`
}

func validationResult(cfg *config.Config, path string) validationOutput {
	out := validationOutput{Valid: true, Warnings: cfg.Warnings()}

	err := cfg.ValidateDeep(path)
	if err == nil {
		return out
	}

	out.Valid = false
	out.Errors = map[string]string{}
	var fe criterio.FieldErrors
	if errors.As(err, &fe) {
		for _, f := range fe {
			out.Errors[f.Field] = f.Err.Error()
		}
	} else {
		out.Errors["config"] = err.Error()
	}
	return out
}

func (cmd *ConfigValidateCmd) run(ctx context.Context, c *cli.Command) error {
	p := newPrinter(c)
	result := validationResult(cmd.flags.Config, cmd.flags.ConfigPath)

	if cmd.format == "json" {
		if err := iojson.WriteWith(p.out, p.err, result); err != nil {
			return err
		}
		if !result.Valid {
			return cli.Exit("", 1)
		}
		return nil
	}

	for _, warn := range result.Warnings {
		p.Infof("%s: %s", warn.Category, warn.Message)
		if warn.Item != "" {
			p.Printf("  Item: %s", warn.Item)
		}
	}
	for field, msg := range result.Errors {
		p.Errorf("%s: %s", field, msg)
	}

	p.Printf("")
	if result.Valid {
		p.Successf("Configuration is valid")
		return nil
	}

	p.Errorf("%d error(s) found", len(result.Errors))
	return cli.Exit(fmt.Sprintf("invalid configuration: %s", cmd.flags.ConfigPath), 1)
}
